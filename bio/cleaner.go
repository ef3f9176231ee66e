package bio

// Cleaner is the idle-task cleaner of §4.4: a background pass over the
// release list that flushes delayed writes and, when eviction is
// requested, frees buffers whose vnode is not busy. Shaped on the
// teacher's microbatch.Batcher flush pass - a periodic sweep over
// accumulated state rather than a per-item goroutine - simplified to a
// single synchronous RunOnce since the cleaner has no per-item result to
// report back to a caller.
type Cleaner struct {
	cache *Cache
}

// NewCleaner binds a Cleaner to cache.
func NewCleaner(cache *Cache) *Cleaner { return &Cleaner{cache: cache} }

// RunOnce executes one cleaner pass (§4.4 "Idle cleaner"). It runs under
// a try-lock on the cache's global lock: if contended, it returns false
// immediately rather than blocking (the idle task simply tries again next
// time it runs). evict requests that clean, unreferenced buffers also be
// removed from their vnode's tree and freed, not merely written out.
func (cl *Cleaner) RunOnce(evict bool) (ran bool) {
	if !cl.cache.mu.TryLock() {
		return false
	}
	snapshot := append([]*Buffer(nil), cl.cache.release...)
	cl.cache.mu.Unlock()

	for _, b := range snapshot {
		cl.cleanOne(b, evict)
	}
	return true
}

func (cl *Cleaner) cleanOne(b *Buffer, evict bool) {
	b.mu.Lock()
	if b.flags&(LOCKED|BUSY) != 0 {
		b.mu.Unlock()
		return
	}

	if b.flags&DELWRI != 0 {
		b.flags |= BUSY
		b.flags &^= ASYNC
		b.mu.Unlock()

		err := cl.cache.writeOut(b)

		b.mu.Lock()
		b.flags &^= BUSY | DELWRI
		if err != nil {
			b.flags |= ERROR
			b.err = err
		}
		b.cond.Broadcast()
	}

	locked := b.flags&LOCKED != 0
	b.mu.Unlock()

	if !evict || locked {
		return
	}

	vnode := b.vnode
	blkno := b.blkno
	cl.cache.mu.Lock()
	vlock := cl.cache.vnodeLocks[vnode]
	cl.cache.mu.Unlock()
	if vlock == nil || !vlock.TryLock() {
		return
	}
	defer vlock.Unlock()

	cl.cache.mu.Lock()
	defer cl.cache.mu.Unlock()
	t := cl.cache.trees[vnode]
	if t != nil {
		t.Remove(blkno)
	}
	cl.cache.removeFromRelease(b)
}
