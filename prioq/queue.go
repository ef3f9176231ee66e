// Package prioq implements the scheduler's priority queue (component A): a
// max-heap of opaque ids keyed by a dynamic priority, with insertion-order
// tiebreaks. It has no notion of threads, time slices, or scheduling policy
// - it is a search structure, not a synchronisation primitive. Grounded on
// the heap shape of the teacher's eventloop timer heap, generalised with
// golang.org/x/exp/constraints to a generic ordered key.
package prioq

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

// entry is one element of the heap: an opaque id keyed by Priority, with a
// monotonically increasing sequence number used to break priority ties in
// insertion order (earlier insertions sort first among equal priorities).
type entry[ID comparable, P constraints.Ordered] struct {
	id       ID
	priority P
	seq      uint64
	index    int // current position in the backing slice; maintained by Swap
}

type container[ID comparable, P constraints.Ordered] []*entry[ID, P]

func (c container[ID, P]) Len() int { return len(c) }

func (c container[ID, P]) Less(i, j int) bool {
	if c[i].priority != c[j].priority {
		return c[i].priority > c[j].priority // max-heap
	}
	return c[i].seq < c[j].seq // earlier insertion wins ties
}

func (c container[ID, P]) Swap(i, j int) {
	c[i], c[j] = c[j], c[i]
	c[i].index = i
	c[j].index = j
}

func (c *container[ID, P]) Push(x any) {
	e := x.(*entry[ID, P])
	e.index = len(*c)
	*c = append(*c, e)
}

func (c *container[ID, P]) Pop() any {
	old := *c
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*c = old[:n-1]
	e.index = -1
	return e
}

// Queue is a max-heap of ids keyed by priority P. The zero value is not
// usable; construct with New.
type Queue[ID comparable, P constraints.Ordered] struct {
	c       container[ID, P]
	byID    map[ID]*entry[ID, P]
	nextSeq uint64
}

// New constructs an empty queue.
func New[ID comparable, P constraints.Ordered]() *Queue[ID, P] {
	return &Queue[ID, P]{byID: make(map[ID]*entry[ID, P])}
}

// Len reports the number of ids currently in the queue.
func (q *Queue[ID, P]) Len() int { return len(q.c) }

// Insert adds id with the given priority. Inserting an id already present
// replaces its priority and resets its tiebreak position to "now".
func (q *Queue[ID, P]) Insert(id ID, priority P) {
	if e, ok := q.byID[id]; ok {
		e.priority = priority
		e.seq = q.nextSeq
		q.nextSeq++
		heap.Fix(&q.c, e.index)
		return
	}
	e := &entry[ID, P]{id: id, priority: priority, seq: q.nextSeq}
	q.nextSeq++
	q.byID[id] = e
	heap.Push(&q.c, e)
}

// PeekMax returns the id with the highest priority without removing it.
// ok is false if the queue is empty.
func (q *Queue[ID, P]) PeekMax() (id ID, priority P, ok bool) {
	if len(q.c) == 0 {
		return id, priority, false
	}
	top := q.c[0]
	return top.id, top.priority, true
}

// DeleteMax removes and returns the id with the highest priority.
func (q *Queue[ID, P]) DeleteMax() (id ID, priority P, ok bool) {
	if len(q.c) == 0 {
		return id, priority, false
	}
	e := heap.Pop(&q.c).(*entry[ID, P])
	delete(q.byID, e.id)
	return e.id, e.priority, true
}

// RescheduleRoot changes the priority of the current top element and
// restores the heap property. Panics if the queue is empty - callers must
// check Len or PeekMax first, matching the source's unchecked-root-access
// pattern inside context_switcher.
func (q *Queue[ID, P]) RescheduleRoot(priority P) {
	if len(q.c) == 0 {
		panic("prioq: RescheduleRoot on empty queue")
	}
	e := q.c[0]
	e.priority = priority
	heap.Fix(&q.c, 0)
}

// Find reports the current priority of id by looking it up in the id map
// (O(1) here; the source's table-bounded linear scan is a different
// representation of the same contract: the id's dynamic priority).
func (q *Queue[ID, P]) Find(id ID) (priority P, ok bool) {
	e, ok := q.byID[id]
	if !ok {
		return priority, false
	}
	return e.priority, true
}

// ChangeKey sets a new priority for id if present, re-heapifying around it.
// Used by IncreaseKey/DecreaseKey below and by the lazy-removal sentinel
// trick (raise priority to the "error" sentinel so the next DeleteMax scan
// drops it).
func (q *Queue[ID, P]) ChangeKey(id ID, priority P) (ok bool) {
	e, ok := q.byID[id]
	if !ok {
		return false
	}
	e.priority = priority
	heap.Fix(&q.c, e.index)
	return true
}

// IncreaseKey raises id's priority. Alias for ChangeKey kept for parity
// with the source's heap_inc_key.
func (q *Queue[ID, P]) IncreaseKey(id ID, priority P) bool { return q.ChangeKey(id, priority) }

// DecreaseKey lowers id's priority. Alias for ChangeKey kept for parity
// with the source's naming. The scheduler's penalty step uses
// RescheduleRoot instead, since it only ever demotes the top element.
func (q *Queue[ID, P]) DecreaseKey(id ID, priority P) bool { return q.ChangeKey(id, priority) }

// Remove deletes id from the queue outright, wherever it is, used when an
// id is known dead rather than relying on lazy GC via the error sentinel.
func (q *Queue[ID, P]) Remove(id ID) (ok bool) {
	e, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&q.c, e.index)
	delete(q.byID, id)
	return true
}
