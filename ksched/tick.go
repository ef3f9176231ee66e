package ksched

import "github.com/Ninjaware/zeke/ksignal"

// TimerInterrupt implements the §4.2 tick-path algorithm: the entry point
// invoked by the platform timer on every tick. currentSP is the
// interrupted thread's saved user stack pointer; the returned nextSP is
// what the hardware return path should restore. If no thread is
// currently selected (table empty), nextTID is NoThread and nextSP is 0.
func (s *Scheduler) TimerInterrupt(currentSP uintptr) (nextTID int, nextSP uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.threads[s.current]; cur != nil {
		cur.userSP = currentSP
	}

	s.tick++
	atBoundary := s.tick%s.opts.ticksPerKernelTick == 0
	if atBoundary {
		s.kernelTicks++
		s.timers.RunExpired(s.kernelTicks)
	}
	loadDue := atBoundary && s.kernelTicks%s.opts.loadFreqTicks == 0

	var next *Thread
	for {
		id, pri, ok := s.queue.PeekMax()
		if !ok {
			break
		}
		t := s.threads[id]
		if t == nil || t.flags&(FlagInUse|FlagRunnable) != FlagInUse|FlagRunnable {
			s.queue.DeleteMax()
			continue
		}
		if t.timeslice <= 0 && pri < PriorityRealTime && pri > PriorityLow {
			t.priority = PriorityLow
			s.queue.RescheduleRoot(t.priority)
			continue
		}
		next = t
		break
	}

	if next == nil {
		s.current = NoThread
		if loadDue {
			s.loads.update(int64(s.queue.Len()))
		}
		return NoThread, 0
	}

	next.timeslice--
	s.current = next.id

	s.runPostSchedule(next)

	if loadDue {
		s.loads.update(int64(s.queue.Len()))
	}

	return next.id, next.userSP
}

// runPostSchedule invokes the §4.3.5 signal hook against the thread about
// to execute in user mode. With a nil stack munger (no WithStackMunger
// option) the hook, including process-to-thread forwarding, is skipped
// entirely and signals stay queued.
func (s *Scheduler) runPostSchedule(t *Thread) {
	if s.opts.munger == nil {
		return
	}
	proc := s.processes[t.processID]
	var (
		procState *ksignal.State
		threads   []ksignal.TargetThread
		usigret   uintptr
	)
	if proc != nil {
		procState = proc.signals
		usigret = proc.usigret
		threads = (&processThreadView{sched: s, processID: t.processID}).Threads()
	}
	_, _ = ksignal.PostSchedule(procState, t, threads, s.opts.munger, s.opts.dumper, usigret)
}
