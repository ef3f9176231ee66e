package ksignal

import "github.com/Ninjaware/zeke/kcore"

// Sendsig implements §4.3.3 (sendsig / queue_sig): enqueue a signal for
// target, taking the fatal fast path if the resolved action is DFL with a
// KILL default and the signal is not in the target's wait mask. isCurrent
// should be true when target is the calling thread itself (skips the
// exec_cond wake step: a thread never needs to wake itself).
//
// dumper may be nil; a nil dumper is treated as "core dump unavailable"
// (the fatal path still proceeds, just without CORE→DUMPED upgrade).
func Sendsig(s *State, target TargetThread, dumper kcore.CoreDumper, info KSigInfo, isCurrent bool) error {
	if info.Signum <= 0 || info.Signum > MaxSig {
		return kcore.ErrParameter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Has(info.Signum) {
		return nil // already mid-handler: coalesced
	}

	action, _ := s.actions.Get(info.Signum)
	if action.Kind == ActionIgnore {
		return nil
	}

	def := DefaultDisposition(info.Signum)
	if action.Kind == ActionDefault && def&DispKill != 0 && !s.wait.Has(info.Signum) {
		exitInfo := info
		exitInfo.Code = CldKilled
		target.SetExitInfo(exitInfo)

		if target.IsMainThread() && def&DispCore != 0 && dumper != nil {
			if err := dumper.Dump(nil, target.ThreadID()); err == nil {
				exitInfo.Code = CldDumped
				target.SetExitInfo(exitInfo)
			}
		}

		if target.InSyscall() {
			s.flags |= flagKillPending
		} else {
			target.TerminateImmediately()
		}
		return nil
	}

	s.pending.PushBack(info)
	if !isCurrent {
		s.execCond(info.Signum, target)
	}
	return nil
}

// ForwardOne implements §4.3.4: scan the process's pending queue in FIFO
// order and place the first signal that some thread can take onto the
// queue of the first thread that is either waiting for it or not blocking
// it. At most one signal is placed per call; signals no thread can take
// stay queued on the process. Returns true if a signal was placed.
func ForwardOne(proc *State, threads []TargetThread) bool {
	proc.mu.Lock()
	defer proc.mu.Unlock()

	for i := 0; i < proc.pending.Len(); i++ {
		info := proc.pending.At(i)
		signum := info.Signum

		for _, th := range threads {
			ts := th.SignalState()
			ts.mu.Lock()
			blocked := ts.block.Has(signum)
			waiting := ts.wait.Has(signum)
			if (blocked && waiting) || !blocked {
				proc.pending.RemoveAt(i)
				ts.pending.PushBack(info)
				ts.execCond(signum, th)
				ts.mu.Unlock()
				return true
			}
			ts.mu.Unlock()
		}
	}
	return false
}
