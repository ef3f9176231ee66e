package ksignal

// KSigInfo is a single queued signal instance (§3 ksiginfo). Pending-queue
// ordering is insertion order.
type KSigInfo struct {
	Signum    int
	Code      int
	Errno     int
	SenderTID int
	SenderPID int
	SenderUID int
	Addr      uintptr
	Status    int
	Value     int64
}

// Fatal-signal si_code values referenced by §4.3.3 and §4.3.5.
const (
	CldKilled = 1
	CldDumped = 2
	IllBadstk = 3
)

// pendingQueue is a growable FIFO of KSigInfo, adapted from the ring-buffer
// shape of catrate/ring.go (power-of-two backing slice, mask-based
// indexing) but simplified to a plain queue: KSigInfo has no natural
// ordering, so the search/insert-at machinery of the original is dropped
// in favour of push-back/pop-front/peek-scan.
type pendingQueue struct {
	buf        []KSigInfo
	head, size int
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{buf: make([]KSigInfo, 8)}
}

func (q *pendingQueue) Len() int { return q.size }

func (q *pendingQueue) grow() {
	next := make([]KSigInfo, len(q.buf)*2)
	for i := 0; i < q.size; i++ {
		next[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = next
	q.head = 0
}

func (q *pendingQueue) PushBack(info KSigInfo) {
	if q.size == len(q.buf) {
		q.grow()
	}
	idx := (q.head + q.size) % len(q.buf)
	q.buf[idx] = info
	q.size++
}

// At returns the i'th queued item in FIFO order (0 = oldest) without
// removing it.
func (q *pendingQueue) At(i int) KSigInfo {
	return q.buf[(q.head+i)%len(q.buf)]
}

// RemoveAt removes the i'th queued item in FIFO order, shifting later
// items down by one logical position.
func (q *pendingQueue) RemoveAt(i int) {
	for j := i; j < q.size-1; j++ {
		q.buf[(q.head+j)%len(q.buf)] = q.buf[(q.head+j+1)%len(q.buf)]
	}
	q.size--
}
