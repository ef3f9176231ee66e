package ksched

import (
	"github.com/Ninjaware/zeke/kcore"
	"github.com/Ninjaware/zeke/ksignal"
)

// YieldCurrent implements §4.2's "give up the remainder of this thread's
// slice voluntarily": it simply zeroes the timeslice counter, letting the
// next tick's penalty/selection logic take it from there. No-op if there
// is no current thread.
func (s *Scheduler) YieldCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.threads[s.current]; t != nil {
		t.timeslice = 0
	}
}

// SleepCurrent implements §4.2 sleep_current: arm a timeout bound to the
// current thread, set FlagNoSignalWakeup (only the timer resumes it), and
// clear runnable. ms == 0 blocks forever (no timer armed); the caller
// must then invoke Terminate or rely on some other event to ever make the
// thread runnable again - sleep_current has no such event in-kernel.
func (s *Scheduler) SleepCurrent(ms uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threads[s.current]
	if t == nil {
		return kcore.ErrParameter
	}
	t.flags |= FlagNoSignalWakeup
	t.flags &^= FlagRunnable
	s.queue.Remove(t.id)
	if ms > 0 {
		deadline := s.kernelTicks + msToTicks(ms, s.opts.loadFreqTicks)
		id := t.id
		s.timers.Arm(deadline, func() { s.wakeSleeper(id) })
	}
	return nil
}

// WaitCurrent implements §4.2 wait_current: as SleepCurrent, but the
// thread may also be resumed by a signal whose mask matches (it is not
// marked FlagNoSignalWakeup).
func (s *Scheduler) WaitCurrent(ms uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threads[s.current]
	if t == nil {
		return kcore.ErrParameter
	}
	t.flags &^= FlagRunnable
	s.queue.Remove(t.id)
	if ms > 0 {
		deadline := s.kernelTicks + msToTicks(ms, s.opts.loadFreqTicks)
		id := t.id
		s.timers.Arm(deadline, func() { s.wakeSleeper(id) })
	}
	return nil
}

// wakeSleeper runs with s.mu already held (called from within
// TimerInterrupt's RunExpired pass).
func (s *Scheduler) wakeSleeper(id int) {
	t := s.threads[id]
	if t == nil {
		return
	}
	t.flags &^= FlagNoSignalWakeup
	t.MarkRunnable()
}

// msToTicks is a placeholder conversion pending a real platform timer
// frequency; it treats loadFreqTicks as "ticks per second" divided by
// 1000, floored to at least one tick.
func msToTicks(ms uint64, ticksPerSecond uint64) uint64 {
	if ticksPerSecond == 0 {
		ticksPerSecond = 1
	}
	n := ms * ticksPerSecond / 1000
	if n == 0 {
		n = 1
	}
	return n
}

// Kill implements the pkill syscall surface: enqueue info on the process's
// own signal state (process-directed signal, §4.3.1), with the process's
// main thread as the fatal-path and wake-up target. A later forwarding
// pass moves a queued signal to one of the process's threads.
func (s *Scheduler) Kill(pid int, info ksignal.KSigInfo) error {
	s.mu.Lock()
	proc := s.processes[pid]
	s.mu.Unlock()
	if proc == nil {
		return kcore.ErrParameter
	}
	target := s.mainThreadTarget(pid)
	s.mu.Lock()
	defer s.mu.Unlock()
	return ksignal.Sendsig(proc.signals, target, s.opts.dumper, info, false)
}

// Tkill implements the tkill syscall surface: deliver info against a
// single thread directly (§4.3.1 thread-directed signal).
func (s *Scheduler) Tkill(tid int, info ksignal.KSigInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threads[tid]
	if t == nil {
		return kcore.ErrParameter
	}
	return ksignal.Sendsig(t.signals, t, s.opts.dumper, info, tid == s.current)
}

// mainThreadTarget resolves the TargetThread for a process's main thread,
// used as the fatal-path SetExitInfo/TerminateImmediately recipient for
// process-directed signals. Caller must not hold s.mu.
func (s *Scheduler) mainThreadTarget(pid int) ksignal.TargetThread {
	s.mu.Lock()
	defer s.mu.Unlock()
	proc := s.processes[pid]
	if proc == nil {
		return nil
	}
	return s.threads[proc.mainThreadID]
}

// SetAction implements the sigaction syscall surface against a thread's
// signal state.
func (s *Scheduler) SetAction(tid int, signum int, a ksignal.Action) error {
	s.mu.Lock()
	t := s.threads[tid]
	s.mu.Unlock()
	if t == nil {
		return kcore.ErrParameter
	}
	t.signals.Lock()
	defer t.signals.Unlock()
	return t.signals.SetAction(signum, a)
}

// GetAction implements the sigaction-query half of the syscall surface.
func (s *Scheduler) GetAction(tid int, signum int) (ksignal.Action, error) {
	s.mu.Lock()
	t := s.threads[tid]
	s.mu.Unlock()
	if t == nil {
		return ksignal.Action{}, kcore.ErrParameter
	}
	t.signals.Lock()
	defer t.signals.Unlock()
	return t.signals.GetAction(signum)
}

// Sigmask implements the sigprocmask syscall surface (§4.3.7).
func (s *Scheduler) Sigmask(tid int, how ksignal.How, set ksignal.Sigset) (ksignal.Sigset, error) {
	s.mu.Lock()
	t := s.threads[tid]
	s.mu.Unlock()
	if t == nil {
		return 0, kcore.ErrParameter
	}
	return t.signals.Sigsmask(how, set)
}

// Sigreturn implements the sigreturn syscall surface (§4.3.8).
func (s *Scheduler) Sigreturn(tid int, signum int) error {
	s.mu.Lock()
	t := s.threads[tid]
	s.mu.Unlock()
	if t == nil {
		return kcore.ErrParameter
	}
	t.signals.Sigreturn(signum)
	return nil
}

// SyscallExit implements the syscall-exit path's signal check (§4.3.9).
func (s *Scheduler) SyscallExit(tid int, selectedSignum int) (ksignal.SyscallExitAction, error) {
	s.mu.Lock()
	t := s.threads[tid]
	s.mu.Unlock()
	if t == nil {
		return ksignal.SyscallExitAction{}, kcore.ErrParameter
	}
	return t.SignalState().SyscallExit(selectedSignum), nil
}

// Sigwait implements the sigwaitinfo syscall surface (§4.3.6): returns
// immediately if a member of set is already pending, otherwise arms the
// wait mask and - if ms > 0 - a backing timeout, then blocks the thread
// (WaitCurrent semantics: a signal can resume it).
func (s *Scheduler) Sigwait(tid int, set ksignal.Sigset, ms uint64) (ksignal.KSigInfo, bool, error) {
	s.mu.Lock()
	t := s.threads[tid]
	s.mu.Unlock()
	if t == nil {
		return ksignal.KSigInfo{}, false, kcore.ErrParameter
	}

	if proc := s.processAt(t.processID); proc != nil {
		s.mu.Lock()
		ksignal.ForwardOne(proc.signals, (&processThreadView{sched: s, processID: t.processID}).Threads())
		s.mu.Unlock()
	}

	info, resolved := t.signals.BeginSigwait(set)
	if resolved {
		return info, true, nil
	}

	s.mu.Lock()
	t.flags &^= FlagRunnable
	s.queue.Remove(t.id)
	if ms > 0 {
		deadline := s.kernelTicks + msToTicks(ms, s.opts.loadFreqTicks)
		id := t.id
		s.timers.Arm(deadline, func() {
			s.wakeSleeper(id)
			if tt := s.threads[id]; tt != nil {
				tt.signals.AbandonSigwait()
			}
		})
	}
	s.mu.Unlock()

	return ksignal.KSigInfo{}, false, nil
}

func (s *Scheduler) processAt(pid int) *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processes[pid]
}

// Sigsleep implements the sigsleep early-return check (§4.3.6): true means
// a deliverable signal is already pending and the caller should not
// block at all.
func (s *Scheduler) Sigsleep(tid int, excludeSignum int) bool {
	t := s.Thread(tid)
	if t == nil {
		return false
	}
	return t.signals.HasDeliverableSignal(excludeSignum)
}

// Fork implements §4.3.10 / §12.6: the child thread's signal state is a
// fresh State with a cloned action table and an empty pending queue.
func (s *Scheduler) Fork(parentTID int, childID int) (*ksignal.State, error) {
	t := s.Thread(parentTID)
	if t == nil {
		return nil, kcore.ErrParameter
	}
	return t.signals.Fork(childID), nil
}
