package ksignal

import "github.com/Ninjaware/zeke/kcore"

// HookResult reports what, if anything, the post-scheduling hook did.
type HookResult uint8

const (
	// HookNone means no signal was acted on this pass.
	HookNone HookResult = iota
	// HookSigwaitResolved means a blocked sigwait was satisfied.
	HookSigwaitResolved
	// HookDropped means a signal was removed from the queue without
	// being delivered (ignored, errored, or a no-op default).
	HookDropped
	// HookDelivered means a user handler was armed via stack munging.
	HookDelivered
	// HookStackFault means the stack push faulted; a fatal SIGILL was
	// raised against the owning process and no handler was armed.
	HookStackFault
)

// PostSchedule implements §4.3.5: the hook run against the thread selected
// to execute next, every schedule. proc is the thread's process-owned
// signal state (forwarding is attempted against it first); th is the
// thread itself; munger performs the user-stack rewrite; usigret is the
// process's registered trampoline address.
//
// On a stack-push fault, PostSchedule sends SIGILL/ILL_BADSTK fatally
// against the process state itself (self is not already locked at that
// point; Sendsig acquires its own lock).
func PostSchedule(proc *State, th TargetThread, procThreads []TargetThread, munger StackMunger, dumper kcore.CoreDumper, usigret uintptr) (HookResult, error) {
	if proc != nil {
		ForwardOne(proc, procThreads)
	}

	s := th.SignalState()
	if !s.TryLock() {
		return HookNone, nil
	}

	if th.InSyscall() && s.flags&flagInterruptible == 0 {
		s.Unlock()
		return HookNone, nil
	}

	var (
		selected    KSigInfo
		selectedIdx = -1
	)

scan:
	for i := 0; i < s.pending.Len(); i++ {
		item := s.pending.At(i)
		signum := item.Signum

		if s.running.Has(signum) {
			continue
		}

		if s.block.Has(signum) && s.wait.Has(signum) {
			s.wait = s.wait.del(signum)
			s.sigwaitRetval = item
			s.hasSigwaitRetval = true
			s.pending.RemoveAt(i)
			s.flags &^= flagInterruptible
			s.Unlock()
			return HookSigwaitResolved, nil
		}

		if s.block.Has(signum) {
			continue
		}

		action, _ := s.actions.Get(signum)
		switch action.Kind {
		case ActionIgnore, ActionError:
			s.pending.RemoveAt(i)
			s.flags &^= flagInterruptible
			s.Unlock()
			return HookDropped, nil
		case ActionHold:
			continue
		case ActionDefault:
			// DFL with KILL should have been resolved at enqueue time
			// (§4.3.3); reaching here means no user handler applies -
			// it is a no-op, dropped the same as ignore.
			s.pending.RemoveAt(i)
			s.flags &^= flagInterruptible
			s.Unlock()
			return HookDropped, nil
		case ActionHandler:
			selected = item
			selectedIdx = i
			break scan
		}
	}

	if selectedIdx < 0 {
		s.Unlock()
		return HookNone, nil
	}

	action, _ := s.actions.Get(selected.Signum)
	handler := action.Handler
	pushErr := munger.PushSignalFrame(th.ThreadID(), handler, selected.Signum, selected, usigret)
	if pushErr != nil {
		s.Unlock()
		if proc != nil {
			_ = Sendsig(proc, th, dumper, KSigInfo{
				Signum: SIGILL,
				Code:   IllBadstk,
			}, false)
		}
		return HookStackFault, nil
	}

	s.pending.RemoveAt(selectedIdx)
	s.running = s.running.add(selected.Signum)
	s.flags |= flagSigHandler
	s.flags &^= flagInterruptible
	s.Unlock()
	return HookDelivered, nil
}
