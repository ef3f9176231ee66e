package bio

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Ninjaware/zeke/kcore"
)

// Cache is the buffer cache (component D): a global lock over per-vnode
// splay trees and a release list, plus a bounded worker pool for
// asynchronous writeback. Construct with New.
type Cache struct {
	opts cacheOptions

	mu         sync.Mutex
	trees      map[kcore.VnodeFile]*splayTree
	release    []*Buffer
	vnodeLocks map[kcore.VnodeFile]*sync.Mutex

	asyncSem *semaphore.Weighted
	asyncWG  sync.WaitGroup
}

// New constructs an empty buffer cache.
func New(opts ...Option) *Cache {
	o := resolveOptions(opts)
	return &Cache{
		opts:       o,
		trees:      make(map[kcore.VnodeFile]*splayTree),
		vnodeLocks: make(map[kcore.VnodeFile]*sync.Mutex),
		asyncSem:   semaphore.NewWeighted(o.asyncWorkers),
	}
}

// Incore implements incore: a pure lookup, no I/O.
func (c *Cache) Incore(vnode kcore.VnodeFile, blkno int64) *Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.trees[vnode]
	if t == nil {
		return nil
	}
	return t.Get(blkno)
}

// Getblk implements the §4.4 getblk contract.
func (c *Cache) Getblk(vnode kcore.VnodeFile, blkno int64, size int64, fileFD, deviceFD int) (*Buffer, error) {
	c.mu.Lock()
	t := c.trees[vnode]
	if t == nil {
		t = &splayTree{}
		c.trees[vnode] = t
		c.vnodeLocks[vnode] = &sync.Mutex{}
	}
	b := t.Get(blkno)
	if b == nil {
		b = newBuffer(vnode, blkno, c.opts.holdingSize, fileFD, deviceFD)
		t.Insert(blkno, b)
	}
	c.mu.Unlock()

	// Wait for outstanding I/O; the error (if any) is already recorded on
	// b and surfaced via GetError, so it is not returned from here.
	_ = b.biowait()

	b.mu.Lock()
	for b.flags&BUSY != 0 {
		b.cond.Wait()
	}
	b.flags |= BUSY

	if size != b.size {
		b.data = resizeBuf(b.data, size)
		b.size = size
	}
	b.flags &^= ERROR
	b.mu.Unlock()

	c.mu.Lock()
	c.removeFromRelease(b)
	c.mu.Unlock()

	return b, nil
}

func resizeBuf(data []byte, size int64) []byte {
	if int64(len(data)) == size {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

// Bread implements bread: getblk, then read-in under the buffer's lock.
func (c *Cache) Bread(vnode kcore.VnodeFile, blkno int64, size int64, fileFD, deviceFD int) (*Buffer, error) {
	b, err := c.Getblk(vnode, blkno, size, fileFD, deviceFD)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	_, readErr := vnode.ReadAt(b.data, blkno*size)
	if readErr != nil {
		b.flags |= ERROR
		b.err = readErr
	}
	b.flags |= DONE
	b.cond.Broadcast()
	b.mu.Unlock()

	if readErr != nil {
		return b, readErr
	}
	return b, nil
}

// Breadn is explicitly unimplemented: the source marks read-ahead TODO
// and the spec does not require it.
func (c *Cache) Breadn(vnode kcore.VnodeFile, blkno int64, raBlocks []int64, size int64) (*Buffer, error) {
	return nil, kcore.ErrNotSupported
}

// Bwrite implements bwrite (§4.4): synchronous by default, or scheduled
// onto the async worker pool if the buffer has ASYNC set.
func (c *Cache) Bwrite(b *Buffer) error {
	b.mu.Lock()
	if b.vnode == nil {
		b.flags |= ERROR
		b.err = kcore.ErrIO
		b.mu.Unlock()
		return kcore.ErrIO
	}
	async := b.flags&ASYNC != 0
	b.flags &^= DONE | ERROR | ASYNC | DELWRI
	b.flags |= BUSY
	b.mu.Unlock()

	if async {
		c.scheduleAsyncWrite(b)
		return nil
	}

	err := c.writeOut(b)
	b.mu.Lock()
	b.flags &^= BUSY
	b.cond.Broadcast()
	b.mu.Unlock()
	return err
}

// Bawrite implements bawrite: force ASYNC, then Bwrite.
func (c *Cache) Bawrite(b *Buffer) error {
	b.mu.Lock()
	b.flags |= ASYNC
	b.mu.Unlock()
	return c.Bwrite(b)
}

// Bdwrite implements bdwrite: mark DELWRI, to be flushed by the cleaner
// on release or an explicit Bwrite later.
func (c *Cache) Bdwrite(b *Buffer) {
	b.mu.Lock()
	b.flags |= DELWRI
	b.mu.Unlock()
}

// writeOut performs the actual I/O, recording ERROR/err on failure.
// NOSYNC suppresses the write itself (the buffer is still marked DONE),
// matching the source's _bio_writeout "goto out" on B_NOSYNC.
func (c *Cache) writeOut(b *Buffer) error {
	b.mu.Lock()
	nosync := b.flags&NOSYNC != 0
	b.mu.Unlock()
	if nosync {
		b.mu.Lock()
		b.flags |= DONE
		b.mu.Unlock()
		return nil
	}

	_, err := b.vnode.WriteAt(b.data, b.blkno*b.size)
	b.mu.Lock()
	if err != nil {
		b.flags |= ERROR
		b.err = err
	}
	b.flags |= DONE
	b.mu.Unlock()
	return err
}

// scheduleAsyncWrite runs the write on the bounded worker pool, grounded
// on the teacher's microbatch worker-concurrency gate (a weighted
// semaphore bounding concurrent BatchProcessor calls), simplified here to
// one write per acquired slot since each buffer writes independently.
func (c *Cache) scheduleAsyncWrite(b *Buffer) {
	c.asyncWG.Add(1)
	go func() {
		defer c.asyncWG.Done()
		_ = c.asyncSem.Acquire(context.Background(), 1)
		defer c.asyncSem.Release(1)

		_ = c.writeOut(b)

		b.mu.Lock()
		b.flags &^= BUSY
		b.cond.Broadcast()
		b.mu.Unlock()

		c.Brelse(b)
	}()
}

// Wait blocks until all currently scheduled asynchronous writes complete.
// Intended for orderly shutdown, not part of the per-buffer protocol.
func (c *Cache) Wait() { c.asyncWG.Wait() }

// BioClrbuf implements bio_clrbuf: flush DELWRI synchronously, wait out
// ASYNC, then zero-fill under BUSY.
func (c *Cache) BioClrbuf(b *Buffer) error {
	b.mu.Lock()
	delwri := b.flags&DELWRI != 0
	async := b.flags&ASYNC != 0
	b.mu.Unlock()

	if delwri {
		if err := c.Bwrite(b); err != nil {
			return err
		}
	} else if async {
		if err := b.biowait(); err != nil {
			return err
		}
	}

	b.mu.Lock()
	b.flags &^= DELWRI | ERROR
	b.flags |= BUSY
	for i := range b.data {
		b.data[i] = 0
	}
	b.flags &^= BUSY
	b.cond.Broadcast()
	b.mu.Unlock()
	return nil
}

// Brelse implements brelse: clear BUSY, push onto the global release
// list.
func (c *Cache) Brelse(b *Buffer) {
	b.mu.Lock()
	b.flags &^= BUSY
	b.cond.Broadcast()
	b.mu.Unlock()

	c.mu.Lock()
	if !b.onRelease {
		b.onRelease = true
		c.release = append(c.release, b)
	}
	c.mu.Unlock()
}

func (c *Cache) brelse(b *Buffer) { c.Brelse(b) }

// removeFromRelease deletes b from the release list, if present. Caller
// must hold c.mu.
func (c *Cache) removeFromRelease(b *Buffer) {
	if !b.onRelease {
		return
	}
	for i, r := range c.release {
		if r == b {
			c.release = append(c.release[:i], c.release[i+1:]...)
			break
		}
	}
	b.onRelease = false
}
