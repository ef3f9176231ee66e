package ksignal

// TargetThread is the narrow view and control surface the signal machine
// needs over a thread owned by the scheduler (component B), without
// importing the scheduler package. A scheduler's thread type implements
// this by delegating to its own table, per the design note on avoiding a
// hidden global current_thread: every operation takes its target
// explicitly rather than reaching for package state.
type TargetThread interface {
	ThreadID() int
	ProcessID() int
	InSyscall() bool
	IsMainThread() bool

	// SignalState returns the thread's own (owner=thread) signal state.
	SignalState() *State

	// SetExitInfo records the ksiginfo that caused (or will cause) this
	// thread's termination, per §4.3.3's fatal fast path.
	SetExitInfo(info KSigInfo)

	// MarkRunnable clears whatever is blocking the thread from being
	// scheduled (the non-fatal, not-blocked enqueue case).
	MarkRunnable()

	// ReleaseFromSigwait wakes a thread parked in sigwait for this signal.
	ReleaseFromSigwait()

	// TerminateImmediately tears the thread down right away (the fatal
	// fast path when the target is not inside a syscall).
	TerminateImmediately()
}

// StackMunger performs the user-stack rewrite described in §4.3.5 step 6:
// push the interrupted frame and a siginfo_t onto the user stack, then
// rewrite the outgoing register frame to enter handler on return. Returns
// an error if the push faults (caller reports that as a fatal SIGILL).
type StackMunger interface {
	PushSignalFrame(threadID int, handler uintptr, signum int, info KSigInfo, usigret uintptr) error
}

// ProcessThreads enumerates the threads of a process for the §4.3.4
// forwarding pass.
type ProcessThreads interface {
	Threads() []TargetThread
}
