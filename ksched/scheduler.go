package ksched

import (
	"sync"

	"github.com/Ninjaware/zeke/kcore"
	"github.com/Ninjaware/zeke/ksignal"
	"github.com/Ninjaware/zeke/prioq"
)

// Scheduler is the execution core's thread table, priority queue driver,
// and timer wheel (component B). A single Scheduler represents one
// logical CPU (§5): every method that touches the table or the queue
// takes the same mutex, playing the role the source gives interrupt
// masking for short critical sections.
type Scheduler struct {
	mu sync.Mutex

	opts schedOptions

	threads   map[int]*Thread
	processes map[int]*Process
	queue     *prioq.Queue[int, Priority]
	freeIDs   []int
	nextID    int

	current int // id of the thread currently selected to run; NoThread if none

	tick        uint64
	kernelTicks uint64
	loads       loadavg

	timers *timerWheel
}

// New constructs a Scheduler. See SchedOption for construction
// parameters (thread table size, kernel-tick ratio, load-average period,
// logger, core dumper, stack munger).
func New(opts ...SchedOption) *Scheduler {
	o := resolveSchedOptions(opts)
	s := &Scheduler{
		opts:        o,
		threads:     make(map[int]*Thread),
		processes:   make(map[int]*Process),
		queue:       prioq.New[int, Priority](),
		current:     NoThread,
		timers:      newTimerWheel(),
	}
	return s
}

// CreateProcess registers a process record; threads created against it
// reference its signal state for process-wide signal fan-out.
func (s *Scheduler) CreateProcess(id int, credUID int) *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &Process{
		id:      id,
		signals: ksignal.NewState(ksignal.OwnerProcess, id),
		credUID: credUID,
	}
	s.processes[id] = p
	return p
}

// CreateThread allocates a thread from the table (§4.2). Returns NoThread
// with kcore.ErrNoThread if the table is full.
func (s *Scheduler) CreateThread(spec ThreadSpec) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !spec.Priority.Valid() {
		return NoThread, kcore.ErrParameter
	}

	var id int
	if n := len(s.freeIDs); n > 0 {
		id = s.freeIDs[n-1]
		s.freeIDs = s.freeIDs[:n-1]
	} else {
		if len(s.threads) >= s.opts.maxThreads {
			return NoThread, kcore.ErrNoThread
		}
		s.nextID++
		id = s.nextID
	}

	t := &Thread{
		id:            id,
		processID:     spec.ProcessID,
		flags:         FlagInUse,
		priority:      spec.Priority,
		defPriority:   spec.Priority,
		timeslice:     4 + spec.Priority.level(),
		parentID:      spec.ParentID,
		firstChildID:  NoThread,
		nextSiblingID: NoThread,
		signals:       ksignal.NewState(ksignal.OwnerThread, id),
		sched:         s,
	}
	s.threads[id] = t

	if proc := s.processes[spec.ProcessID]; proc != nil && spec.MainThread {
		proc.mainThreadID = id
	}
	if parent := s.threads[spec.ParentID]; parent != nil {
		t.nextSiblingID = parent.firstChildID
		parent.firstChildID = id
	}

	t.flags |= FlagRunnable
	s.queue.Insert(id, t.priority)
	return id, nil
}

// terminateLocked implements §4.2 thread termination. Caller must hold s.mu.
func (s *Scheduler) terminateLocked(id int) {
	t := s.threads[id]
	if t == nil {
		return
	}
	t.flags = 0
	t.signals.Close()
	s.queue.ChangeKey(id, priorityError) // forces lazy removal on next pass
	s.freeIDs = append(s.freeIDs, id)
	delete(s.threads, id)
	if s.current == id {
		s.current = NoThread
	}
}

// Terminate tears a thread down (§4.2). Returns kcore.ErrParameter if tid
// is not an in-use slot.
func (s *Scheduler) Terminate(tid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threads[tid] == nil {
		return kcore.ErrParameter
	}
	s.terminateLocked(tid)
	return nil
}

// SetPriority updates a thread's current and default priority (§4.2).
// The new priority takes effect immediately: any penalty is discarded and
// the thread's queue entry, if present, is re-keyed.
func (s *Scheduler) SetPriority(tid int, p Priority) error {
	if !p.Valid() {
		return kcore.ErrParameter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threads[tid]
	if t == nil {
		return kcore.ErrParameter
	}
	t.defPriority = p
	t.priority = p
	s.queue.ChangeKey(tid, p)
	return nil
}

// GetPriority returns a thread's current dynamic priority (§4.2).
func (s *Scheduler) GetPriority(tid int) (Priority, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threads[tid]
	if t == nil {
		return 0, kcore.ErrParameter
	}
	return t.priority, nil
}

// GetLoadAvg returns the (1, 5, 15)-minute load averages, scaled by 100
// and rounded to nearest (§4.2).
func (s *Scheduler) GetLoadAvg() (one, five, fifteen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads.Get()
}

// Current returns the id of the thread currently selected to run, or
// NoThread if none has been scheduled yet.
func (s *Scheduler) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Thread returns the live record for tid, or nil. Exposed so the (out of
// scope) syscall layer can read e.g. ExitInfo after a wait().
func (s *Scheduler) Thread(tid int) *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads[tid]
}
