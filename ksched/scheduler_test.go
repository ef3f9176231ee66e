package ksched

import (
	"testing"

	"github.com/Ninjaware/zeke/kcore"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	return New(WithMaxThreads(16))
}

// TestInvariant1_SchedulerFairness covers invariant 1: a realtime thread
// that remains runnable is selected at least once every two ticks - here,
// against a lower-priority competitor, every tick.
func TestInvariant1_SchedulerFairness(t *testing.T) {
	s := newTestScheduler(t)
	s.CreateProcess(1, 0)

	rt, e1 := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityRealTime, ParentID: NoThread, MainThread: true})
	require.NoError(t, e1)
	_, e2 := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread})
	require.NoError(t, e2)

	selected := map[int]int{}
	for i := 0; i < 1000; i++ {
		tid, _ := s.TimerInterrupt(0)
		selected[tid]++
		// Neither thread ever sleeps: both remain runnable forever (busy loop).
	}

	require.GreaterOrEqual(t, selected[rt], 500)
}

// TestScenarioS1_PenaltyAmongEquals is the penalty half of S1, run with
// both competitors below realtime (the only configuration in which the
// penalty step is ever reached: a strictly-higher-priority busy looper
// never cedes the heap top, so a lower-priority sibling is never even
// examined - see DESIGN.md's note on S1).
func TestScenarioS1_PenaltyAmongEquals(t *testing.T) {
	s := newTestScheduler(t)
	s.CreateProcess(1, 0)

	hog, err := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread, MainThread: true})
	require.NoError(t, err)
	_, err = s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		s.TimerInterrupt(0)
	}

	p, err := s.GetPriority(hog)
	require.NoError(t, err)
	require.Equal(t, PriorityLow, p)
}

// TestInvariant2_PenaltyBound checks a normal thread alone: it must drop
// to low after its slice is exhausted, and never fall lower by penalty
// alone.
func TestInvariant2_PenaltyBound(t *testing.T) {
	s := newTestScheduler(t)
	s.CreateProcess(1, 0)
	tid, err := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread, MainThread: true})
	require.NoError(t, err)

	// Initial slice is 4 + level(normal) = 4 + 2 = 6.
	for i := 0; i < 6; i++ {
		got, _ := s.TimerInterrupt(0)
		require.Equal(t, tid, got)
		p, _ := s.GetPriority(tid)
		require.Equal(t, PriorityNormal, p)
	}

	got, _ := s.TimerInterrupt(0)
	require.Equal(t, tid, got)
	p, _ := s.GetPriority(tid)
	require.Equal(t, PriorityLow, p)

	for i := 0; i < 20; i++ {
		s.TimerInterrupt(0)
		p, _ := s.GetPriority(tid)
		require.GreaterOrEqual(t, p, PriorityLow)
	}
}

// TestInvariant3_LazyGC checks that a terminated thread disappears from
// scheduling within one pass and its id is freed exactly once.
func TestInvariant3_LazyGC(t *testing.T) {
	s := newTestScheduler(t)
	s.CreateProcess(1, 0)
	victim, err := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread, MainThread: true})
	require.NoError(t, err)
	survivor, err := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityLow, ParentID: NoThread})
	require.NoError(t, err)

	require.NoError(t, s.Terminate(victim))

	// Lazy GC sentinel means the id may still transiently sort to heap
	// top, but it must never be returned as the scheduled thread, and
	// must vanish from the queue within one pass.
	seenVictim := false
	for i := 0; i < 3; i++ {
		tid, _ := s.TimerInterrupt(0)
		if tid == victim {
			seenVictim = true
		}
	}
	require.False(t, seenVictim)

	_, ok := s.queue.Find(victim)
	require.False(t, ok)

	require.Contains(t, s.freeIDs, victim)
	count := 0
	for _, id := range s.freeIDs {
		if id == victim {
			count++
		}
	}
	require.Equal(t, 1, count)

	// The survivor must still be scheduled fine.
	tid, _ := s.TimerInterrupt(0)
	require.Equal(t, survivor, tid)
}

// TestInvariant10_LoadAverageMonotonicity checks convergence toward a
// constant runnable count under repeated kernel-tick-boundary updates.
func TestInvariant10_LoadAverageMonotonicity(t *testing.T) {
	s := New(WithMaxThreads(16), WithLoadAvgPeriod(1), WithTicksPerKernelTick(1))
	s.CreateProcess(1, 0)
	for i := 0; i < 4; i++ {
		_, err := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread})
		require.NoError(t, err)
	}

	for i := 0; i < 6*200; i++ {
		s.TimerInterrupt(0)
	}

	one, _, _ := s.GetLoadAvg()
	require.InDelta(t, 400, one, 100)
}

func TestCreateThread_TableFull(t *testing.T) {
	s := New(WithMaxThreads(2))
	s.CreateProcess(1, 0)
	_, err := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread, MainThread: true})
	require.NoError(t, err)
	_, err = s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread})
	require.NoError(t, err)
	_, err = s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread})
	require.ErrorIs(t, err, kcore.ErrNoThread)
}

func TestSetPriority_InvalidRejected(t *testing.T) {
	s := newTestScheduler(t)
	s.CreateProcess(1, 0)
	tid, err := s.CreateThread(ThreadSpec{ProcessID: 1, Priority: PriorityNormal, ParentID: NoThread, MainThread: true})
	require.NoError(t, err)
	require.Error(t, s.SetPriority(tid, Priority(99)))
}
