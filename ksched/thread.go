package ksched

import "github.com/Ninjaware/zeke/ksignal"

// ThreadFlags are the per-thread state flags of §3.
type ThreadFlags uint8

const (
	FlagInUse ThreadFlags = 1 << iota
	FlagRunnable
	FlagInSyscall
	FlagNoSignalWakeup
)

// NoThread is the distinguished "no-thread" id returned by CreateThread
// when the table is full (§4.2 failure semantics).
const NoThread = -1

// ThreadSpec describes a thread to create.
type ThreadSpec struct {
	ProcessID   int
	Priority    Priority
	ParentID    int // NoThread if none
	MainThread  bool
}

// Thread is one entry of the scheduler's fixed-size thread table (§3).
// All fields are only ever mutated while the owning Scheduler's lock is
// held, matching the source's interrupt-masking discipline for short
// critical sections; Signals has its own lock for the (possibly
// longer-held, possibly contended-by-other-processes) signal-state
// operations.
type Thread struct {
	id        int
	processID int
	flags     ThreadFlags

	priority    Priority
	defPriority Priority
	timeslice   int

	userSP uintptr

	parentID      int
	firstChildID  int
	nextSiblingID int

	signals  *ksignal.State
	exitInfo ksignal.KSigInfo
	hasExit  bool

	sched *Scheduler
}

var _ ksignal.TargetThread = (*Thread)(nil)

func (t *Thread) ThreadID() int  { return t.id }
func (t *Thread) ProcessID() int { return t.processID }
func (t *Thread) InSyscall() bool {
	return t.flags&FlagInSyscall != 0
}

// IsMainThread reports whether t is its process's main thread.
func (t *Thread) IsMainThread() bool {
	p := t.sched.processes[t.processID]
	return p != nil && p.mainThreadID == t.id
}

func (t *Thread) SignalState() *ksignal.State { return t.signals }

func (t *Thread) SetExitInfo(info ksignal.KSigInfo) {
	t.exitInfo = info
	t.hasExit = true
}

// MarkRunnable and ReleaseFromSigwait both mean "this thread should run
// again"; the scheduler keeps no separate "sigwaiting" sub-state, so both
// reduce to the same queue-membership upsert. Callers must already hold
// the owning Scheduler's lock (§5: the "interrupt masking" critical
// section these fire inside of).
//
// On a genuine non-runnable->runnable transition this also restores the
// default priority and resets the time slice to 4+priority_level,
// matching _sched_thread_set_exec's "in_use && !exec" guard: a thread
// that was already runnable is left alone. A thread sleeping with
// FlagNoSignalWakeup set is also left alone: only its sleep timer (which
// clears the flag first) makes it runnable again.
func (t *Thread) MarkRunnable() {
	if t.flags&(FlagRunnable|FlagNoSignalWakeup) != 0 {
		return
	}
	t.priority = t.defPriority
	t.timeslice = 4 + t.defPriority.level()
	t.flags |= FlagRunnable
	t.sched.queue.Insert(t.id, t.priority)
}

func (t *Thread) ReleaseFromSigwait() { t.MarkRunnable() }

func (t *Thread) TerminateImmediately() {
	t.sched.terminateLocked(t.id)
}

// ExitInfo returns the ksiginfo that caused this thread's termination, if
// any was recorded by a fatal signal.
func (t *Thread) ExitInfo() (ksignal.KSigInfo, bool) { return t.exitInfo, t.hasExit }

// Process holds process-level state shared by its threads (§3).
type Process struct {
	id           int
	mainThreadID int
	signals      *ksignal.State
	usigret      uintptr
	credUID      int
}

var _ ksignal.ProcessThreads = (*processThreadView)(nil)

// processThreadView adapts a Scheduler+Process pair to ksignal.ProcessThreads
// for the §4.3.4 forwarding pass, without the Process type itself needing
// to know about the thread table.
type processThreadView struct {
	sched     *Scheduler
	processID int
}

func (v *processThreadView) Threads() []ksignal.TargetThread {
	var out []ksignal.TargetThread
	for _, th := range v.sched.threads {
		if th != nil && th.processID == v.processID {
			out = append(out, th)
		}
	}
	return out
}
