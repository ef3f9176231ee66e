package ksignal

import (
	"sync"
	"sync/atomic"

	"github.com/Ninjaware/zeke/kcore"
)

// OwnerKind tags whether a State belongs to a thread or a process (§3).
type OwnerKind uint8

const (
	OwnerThread OwnerKind = iota
	OwnerProcess
)

// stateFlags are the per-signal-state flags of §3.
type stateFlags uint8

const (
	flagSigHandler   stateFlags = 1 << iota // a handler is being delivered on return to user mode
	flagKillPending                         // SA_KILL: a fatal signal is pending termination via syscall exit
	flagInterruptible
)

// State is a signal state machine owned by either a thread or a process
// (§3). It is reference-counted: senders that follow a pointer to someone
// else's State must call Ref and check ok before touching it, and must
// never dereference a State they have not successfully Ref'd (§9 design
// note).
type State struct {
	mu sync.Mutex

	owner   OwnerKind
	ownerID int

	pending *pendingQueue
	actions *actionTree

	block, wait, running Sigset
	flags                stateFlags

	sigwaitRetval    KSigInfo
	hasSigwaitRetval bool

	refs  atomic.Int32
	dying atomic.Bool
}

// NewState constructs a signal state owned by a thread or process, with a
// single reference already held by the caller (the owner itself).
func NewState(owner OwnerKind, ownerID int) *State {
	s := &State{
		owner:   owner,
		ownerID: ownerID,
		pending: newPendingQueue(),
		actions: &actionTree{},
	}
	s.refs.Store(1)
	return s
}

// Ref attempts to acquire an additional reference, failing if the state is
// dying. Every concurrent sender must hold a ref for the duration of its
// operation against someone else's state.
func (s *State) Ref() bool {
	if s.dying.Load() {
		return false
	}
	s.refs.Add(1)
	if s.dying.Load() {
		// lost the race with Close; back out.
		s.Unref()
		return false
	}
	return true
}

// Unref releases a reference acquired via Ref or held implicitly by the
// owner since construction.
func (s *State) Unref() {
	s.refs.Add(-1)
}

// Close marks the state dying: no further Ref calls will succeed. It does
// not block on outstanding refs reaching zero; Go's GC reclaims the State
// once the last reference (implicit or explicit) is dropped.
func (s *State) Close() {
	s.dying.Store(true)
}

// Dying reports whether the state has been closed.
func (s *State) Dying() bool { return s.dying.Load() }

func (s *State) Lock()         { s.mu.Lock() }
func (s *State) Unlock()       { s.mu.Unlock() }
func (s *State) TryLock() bool { return s.mu.TryLock() }

// SetAction installs an action for signum, overriding the default
// disposition. Caller must hold the lock.
func (s *State) SetAction(signum int, a Action) error {
	if signum <= 0 || signum > MaxSig {
		return kcore.ErrParameter
	}
	s.actions.Set(signum, a)
	return nil
}

// GetAction returns the installed action for signum, or the zero Action
// (ActionDefault) if none was installed. Caller must hold the lock.
func (s *State) GetAction(signum int) (Action, error) {
	if signum <= 0 || signum > MaxSig {
		return Action{}, kcore.ErrParameter
	}
	a, ok := s.actions.Get(signum)
	if !ok {
		return Action{Kind: ActionDefault}, nil
	}
	return a, nil
}

// execCond is the shared "make the recipient runnable, or release it from
// sigwait" step used by both Sendsig and the process→thread forwarder
// (§12.3, ksignal_exec_cond in the source). Caller must hold s's lock.
func (s *State) execCond(signum int, target TargetThread) {
	switch {
	case s.block.Has(signum) && s.wait.Has(signum):
		target.ReleaseFromSigwait()
	case !s.block.Has(signum):
		target.MarkRunnable()
	}
}

// Fork implements §4.3.10 / §12.6: pending signals are cleared, but the
// action table is cloned, and the state gets a fresh lock (a new State,
// not a reset of the inherited one) rather than reusing anything that
// might have been held at fork time.
func (s *State) Fork(childOwnerID int) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	child := &State{
		owner:   s.owner,
		ownerID: childOwnerID,
		pending: newPendingQueue(),
		actions: s.actions.Clone(),
	}
	child.refs.Store(1)
	return child
}
