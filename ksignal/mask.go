package ksignal

import "github.com/Ninjaware/zeke/kcore"

// How selects sigsmask's (§4.3.7) update mode.
type How uint8

const (
	Block How = iota
	SetMask
	Unblock
)

// Sigsmask implements §4.3.7: read the old block mask, then apply how.
func (s *State) Sigsmask(how How, set Sigset) (old Sigset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old = s.block
	switch how {
	case Block:
		s.block = s.block.Union(set)
	case SetMask:
		s.block = set
	case Unblock:
		s.block = s.block.Intersect(set.Complement())
	default:
		return old, kcore.ErrParameter
	}
	return old, nil
}

// SyscallExitAction is what the syscall-exit path (§4.3.9) must do with
// the thread that just returned from a syscall.
type SyscallExitAction struct {
	Terminate bool // SA_KILL was set: do not return, terminate the thread
	// EnterHandler is true if SIGHANDLER was set: the caller must patch
	// the syscall's saved return frame and arrange the handler's first
	// argument to be Signum.
	EnterHandler bool
	Signum       int
}

// SyscallExit implements §4.3.9.
func (s *State) SyscallExit(selectedSignum int) SyscallExitAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags &^= flagInterruptible

	if s.flags&flagKillPending != 0 {
		return SyscallExitAction{Terminate: true}
	}

	if s.flags&flagSigHandler != 0 {
		s.flags &^= flagSigHandler
		return SyscallExitAction{EnterHandler: true, Signum: selectedSignum}
	}

	return SyscallExitAction{}
}

// Sigreturn implements §4.3.8: clears the running mark for signum (the
// handler it corresponds to has returned), allowing a fresh delivery of
// the same signal number in future. The actual stack-frame pop is
// performed by the caller via AddressSpace/StackMunger; a pop fault is
// reported by the caller as a fatal SIGILL/ILL_BADSTK, not by this method.
func (s *State) Sigreturn(signum int) {
	s.mu.Lock()
	s.running = s.running.del(signum)
	s.mu.Unlock()
}
