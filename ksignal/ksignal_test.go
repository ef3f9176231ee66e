package ksignal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeThread is a minimal TargetThread double for tests.
type fakeThread struct {
	id, pid       int
	inSyscall     bool
	isMain        bool
	state         *State
	exitInfo      KSigInfo
	hasExitInfo   bool
	runnableCalls int
	releaseCalls  int
	terminated    bool
}

func newFakeThread(id int, st *State) *fakeThread {
	return &fakeThread{id: id, pid: id, state: st}
}

func (f *fakeThread) ThreadID() int          { return f.id }
func (f *fakeThread) ProcessID() int         { return f.pid }
func (f *fakeThread) InSyscall() bool        { return f.inSyscall }
func (f *fakeThread) IsMainThread() bool     { return f.isMain }
func (f *fakeThread) SignalState() *State    { return f.state }
func (f *fakeThread) SetExitInfo(i KSigInfo) { f.exitInfo = i; f.hasExitInfo = true }
func (f *fakeThread) MarkRunnable()          { f.runnableCalls++ }
func (f *fakeThread) ReleaseFromSigwait()    { f.releaseCalls++ }
func (f *fakeThread) TerminateImmediately()  { f.terminated = true }

type fakeMunger struct {
	fault   bool
	calls   int
	handler uintptr
	signum  int
}

func (m *fakeMunger) PushSignalFrame(threadID int, handler uintptr, signum int, info KSigInfo, usigret uintptr) error {
	m.calls++
	m.handler = handler
	m.signum = signum
	if m.fault {
		return errFault
	}
	return nil
}

var errFault = errors.New("fault")

func TestDefaultDisposition(t *testing.T) {
	require.Equal(t, DispKill, DefaultDisposition(SIGHUP))
	require.Equal(t, DispKill|DispCore, DefaultDisposition(SIGSEGV))
	require.Equal(t, DispIgnore, DefaultDisposition(SIGCHLD))
	require.Equal(t, DispIgnore|DispContinue, DefaultDisposition(SIGCONT))
	require.Equal(t, DispStop, DefaultDisposition(SIGSTOP))
	require.Equal(t, DispStop|DispTTYStop, DefaultDisposition(SIGTSTP))
	require.Equal(t, Disposition(0), DefaultDisposition(0))
	require.Equal(t, Disposition(0), DefaultDisposition(99))
}

func TestSigsetLaws(t *testing.T) {
	// invariant 7: BLOCK then UNBLOCK restores the prior mask; SETMASK sets exactly S.
	s := NewState(OwnerThread, 1)
	orig, err := s.Sigsmask(SetMask, NewSigset(SIGUSR1, SIGUSR2))
	require.NoError(t, err)
	require.Equal(t, Sigset(0), orig)

	before, err := s.Sigsmask(Block, NewSigset(SIGHUP))
	require.NoError(t, err)
	require.Equal(t, NewSigset(SIGUSR1, SIGUSR2), before)

	after, err := s.Sigsmask(Unblock, NewSigset(SIGHUP))
	require.NoError(t, err)
	require.Equal(t, before.Union(NewSigset(SIGHUP)), after)
	require.Equal(t, before, s.block)

	_, err = s.Sigsmask(How(99), 0)
	require.Error(t, err)
}

func TestActionTreeCloneIsIndependent(t *testing.T) {
	s := NewState(OwnerProcess, 1)
	require.NoError(t, s.SetAction(SIGUSR1, Action{Kind: ActionHandler, Handler: 0x1000}))

	child := s.Fork(2)
	a, err := child.GetAction(SIGUSR1)
	require.NoError(t, err)
	require.Equal(t, ActionHandler, a.Kind)
	require.Equal(t, uintptr(0x1000), a.Handler)

	require.NoError(t, child.SetAction(SIGUSR2, Action{Kind: ActionIgnore}))
	_, err = s.GetAction(SIGUSR2)
	require.NoError(t, err)
	a2, _ := s.GetAction(SIGUSR2)
	require.Equal(t, ActionDefault, a2.Kind, "parent's table must be unaffected by child mutation")

	require.Equal(t, 0, child.pending.Len(), "fork clears pending (invariant 6)")
}

func TestSendsig_Coalesced(t *testing.T) {
	s := NewState(OwnerThread, 1)
	th := newFakeThread(1, s)
	require.NoError(t, s.SetAction(SIGUSR1, Action{Kind: ActionHandler, Handler: 1}))
	s.running = s.running.add(SIGUSR1)

	err := Sendsig(s, th, nil, KSigInfo{Signum: SIGUSR1}, false)
	require.NoError(t, err)
	require.Equal(t, 0, s.pending.Len(), "a running signal is coalesced, not re-queued")
}

func TestSendsig_FatalFastPath_NotInSyscall(t *testing.T) {
	s := NewState(OwnerThread, 1)
	th := newFakeThread(1, s)

	err := Sendsig(s, th, nil, KSigInfo{Signum: SIGKILL, SenderTID: 2}, false)
	require.NoError(t, err)
	require.True(t, th.hasExitInfo)
	require.Equal(t, CldKilled, th.exitInfo.Code)
	require.True(t, th.terminated)
}

func TestSendsig_FatalFastPath_InSyscall(t *testing.T) {
	s := NewState(OwnerThread, 1)
	th := newFakeThread(1, s)
	th.inSyscall = true

	err := Sendsig(s, th, nil, KSigInfo{Signum: SIGKILL}, false)
	require.NoError(t, err)
	require.False(t, th.terminated, "fatal signal against a syscalling thread defers to syscall exit")
	require.NotZero(t, s.flags&flagKillPending)
}

func TestSendsig_NotBlocked_MarksRunnable(t *testing.T) {
	s := NewState(OwnerThread, 1)
	th := newFakeThread(1, s)
	require.NoError(t, s.SetAction(SIGUSR2, Action{Kind: ActionHandler, Handler: 1}))

	err := Sendsig(s, th, nil, KSigInfo{Signum: SIGUSR2}, false)
	require.NoError(t, err)
	require.Equal(t, 1, th.runnableCalls)
	require.Equal(t, 1, s.pending.Len())
}

func TestSendsig_Blocked_NoWake(t *testing.T) {
	s := NewState(OwnerThread, 1)
	th := newFakeThread(1, s)
	require.NoError(t, s.SetAction(SIGUSR2, Action{Kind: ActionHandler, Handler: 1}))
	_, _ = s.Sigsmask(Block, NewSigset(SIGUSR2))

	err := Sendsig(s, th, nil, KSigInfo{Signum: SIGUSR2}, false)
	require.NoError(t, err)
	require.Equal(t, 0, th.runnableCalls)
	require.Equal(t, 1, s.pending.Len())
}

// TestScenarioS2_SigwaitRace covers the spec's S2 scenario.
func TestScenarioS2_SigwaitRace(t *testing.T) {
	s := NewState(OwnerThread, 1)
	th := newFakeThread(1, s)
	_, _ = s.Sigsmask(Block, NewSigset(SIGUSR1))

	_, resolved := s.BeginSigwait(NewSigset(SIGUSR1))
	require.False(t, resolved, "no signal pending yet")

	err := Sendsig(s, th, nil, KSigInfo{Signum: SIGUSR1, SenderTID: 2}, false)
	require.NoError(t, err)
	require.Equal(t, 1, th.releaseCalls, "blocked+waited signal releases the waiter")

	// One scheduling pass resolves the sigwait and stashes the retval.
	result, err := PostSchedule(nil, th, nil, &fakeMunger{}, nil, 0)
	require.NoError(t, err)
	require.Equal(t, HookSigwaitResolved, result)

	info, ok := s.EndSigwait()
	require.True(t, ok)
	require.Equal(t, SIGUSR1, info.Signum)
	require.Equal(t, 0, s.pending.Len())
}

// TestScenarioS4_UserHandler covers the spec's S4 scenario.
func TestScenarioS4_UserHandler(t *testing.T) {
	s := NewState(OwnerThread, 1)
	th := newFakeThread(1, s)
	require.NoError(t, s.SetAction(SIGUSR2, Action{Kind: ActionHandler, Handler: 0xdead}))
	require.NoError(t, Sendsig(s, th, nil, KSigInfo{Signum: SIGUSR2}, false))

	m := &fakeMunger{}
	result, err := PostSchedule(nil, th, nil, m, nil, 0xbeef)
	require.NoError(t, err)
	require.Equal(t, HookDelivered, result)
	require.Equal(t, 1, m.calls)
	require.Equal(t, uintptr(0xdead), m.handler)
	require.Equal(t, SIGUSR2, m.signum)
	require.True(t, s.running.Has(SIGUSR2))
}

// TestScenarioS6_StackTrash covers the spec's S6 scenario.
func TestScenarioS6_StackTrash(t *testing.T) {
	procState := NewState(OwnerProcess, 1)
	s := NewState(OwnerThread, 1)
	th := newFakeThread(1, s)
	require.NoError(t, s.SetAction(SIGUSR2, Action{Kind: ActionHandler, Handler: 0xdead}))
	require.NoError(t, Sendsig(s, th, nil, KSigInfo{Signum: SIGUSR2}, false))

	m := &fakeMunger{fault: true}
	result, err := PostSchedule(procState, th, nil, m, nil, 0xbeef)
	require.NoError(t, err)
	require.Equal(t, HookStackFault, result)
	require.False(t, s.running.Has(SIGUSR2), "no handler was entered for the original signal")

	// SIGILL's default is KILL|CORE, so the send takes the fatal fast path.
	require.True(t, th.terminated, "fatal SIGILL tears the thread down")
	require.True(t, th.hasExitInfo)
	require.Equal(t, SIGILL, th.exitInfo.Signum)
	require.Equal(t, CldKilled, th.exitInfo.Code)
}

func TestForwardOne_FirstEligibleThread(t *testing.T) {
	proc := NewState(OwnerProcess, 1)
	s1 := NewState(OwnerThread, 1)
	s2 := NewState(OwnerThread, 2)
	th1 := newFakeThread(1, s1)
	th2 := newFakeThread(2, s2)
	_, _ = s1.Sigsmask(Block, NewSigset(SIGUSR1)) // th1 blocks it outright, ineligible
	require.NoError(t, s2.SetAction(SIGUSR1, Action{Kind: ActionHandler, Handler: 1}))

	proc.pending.PushBack(KSigInfo{Signum: SIGUSR1})

	placed := ForwardOne(proc, []TargetThread{th1, th2})
	require.True(t, placed)
	require.Equal(t, 0, proc.pending.Len())
	require.Equal(t, 0, s1.pending.Len())
	require.Equal(t, 1, s2.pending.Len())
	require.Equal(t, 1, th2.runnableCalls)
}

func TestHasDeliverableSignal(t *testing.T) {
	s := NewState(OwnerThread, 1)
	require.False(t, s.HasDeliverableSignal(0))

	s.pending.PushBack(KSigInfo{Signum: SIGUSR1})
	require.False(t, s.HasDeliverableSignal(0), "no handler installed yet")

	require.NoError(t, s.SetAction(SIGUSR1, Action{Kind: ActionHandler, Handler: 1}))
	require.True(t, s.HasDeliverableSignal(0))
	require.False(t, s.HasDeliverableSignal(SIGUSR1), "excluded signum is skipped")
}

func TestRefcounting(t *testing.T) {
	s := NewState(OwnerThread, 1)
	require.True(t, s.Ref())
	s.Unref()
	s.Close()
	require.False(t, s.Ref(), "no new refs may be acquired once dying")
}
