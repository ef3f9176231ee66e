// Package bio implements the buffer cache (component D): per-vnode block
// buffers with a busy/delayed-write/async lifecycle, plus the idle-task
// cleaner that flushes dirty buffers in the background.
package bio

import (
	"sync"

	"github.com/Ninjaware/zeke/kcore"
)

// Flags are the per-buffer state bits of §4.4.
type Flags uint16

const (
	BUSY Flags = 1 << iota
	DONE
	ERROR
	ASYNC
	DELWRI
	NOSYNC
	LOCKED
	NOCORE
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// key identifies a buffer by vnode identity and block number. VnodeFile
// values are compared by the identity of the concrete value behind the
// interface, matching the source's "comparator asserts same vnode".
type key struct {
	vnode kcore.VnodeFile
	blkno int64
}

// Buffer is one cached block (§3/§4.4). Its own mutex guards flags, data,
// and error - independent of the cache's global lock, which only guards
// the lookup structures and release list.
type Buffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	vnode kcore.VnodeFile
	blkno int64
	size  int64

	data  []byte
	flags Flags
	err   error

	// fileFD and deviceFD mirror the source's two descriptors derived from
	// the vnode/superblock; this core has no concrete fd table, so they
	// are opaque handles supplied by the caller at creation.
	fileFD, deviceFD int

	onRelease bool
}

func newBuffer(vnode kcore.VnodeFile, blkno int64, size int64, fileFD, deviceFD int) *Buffer {
	b := &Buffer{
		vnode:    vnode,
		blkno:    blkno,
		size:     size,
		data:     make([]byte, size),
		flags:    DONE,
		fileFD:   fileFD,
		deviceFD: deviceFD,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Blkno returns the buffer's block number.
func (b *Buffer) Blkno() int64 { return b.blkno }

// Data returns the buffer's backing storage. Callers must hold no
// expectation of exclusivity beyond BUSY ownership.
func (b *Buffer) Data() []byte { return b.data }

// Flags returns a snapshot of the buffer's flags.
func (b *Buffer) Flags() Flags {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flags
}

// bio_geterror: the last recorded I/O error, if ERROR is set.
func (b *Buffer) GetError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flags&ERROR == 0 {
		return nil
	}
	return b.err
}

// Biodone implements biodone: a completion callback invoked by whatever
// drives the underlying I/O (a block device driver, out of this core's
// scope) once a transfer finishes. Sets DONE and wakes waiters; if ASYNC,
// the buffer is released (pushed onto the cache's release list) as part
// of completion.
func (b *Buffer) Biodone(c *Cache, ioErr error) {
	b.mu.Lock()
	if ioErr != nil {
		b.flags |= ERROR
		b.err = ioErr
	}
	b.flags |= DONE
	async := b.flags&ASYNC != 0
	b.cond.Broadcast()
	b.mu.Unlock()

	if async {
		c.brelse(b)
	}
}

// biowait blocks until DONE is set, then returns b_error. Uses a
// condition variable rather than the source's busy-wait loop.
func (b *Buffer) biowait() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.flags&DONE == 0 {
		b.cond.Wait()
	}
	if b.flags&ERROR != 0 {
		return b.err
	}
	return nil
}
