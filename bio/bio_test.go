package bio

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeVnode is an in-memory VnodeFile backing store for tests.
type fakeVnode struct {
	mu   sync.Mutex
	data []byte
}

func newFakeVnode(size int) *fakeVnode {
	return &fakeVnode{data: make([]byte, size)}
}

func (v *fakeVnode) ReadAt(p []byte, off int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if int(off)+len(p) > len(v.data) {
		return 0, errors.New("fakeVnode: out of range")
	}
	copy(p, v.data[off:])
	return len(p), nil
}

func (v *fakeVnode) WriteAt(p []byte, off int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if int(off)+len(p) > len(v.data) {
		return 0, errors.New("fakeVnode: out of range")
	}
	copy(v.data[off:], p)
	return len(p), nil
}

func (v *fakeVnode) snapshot(off int64, n int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]byte, n)
	copy(out, v.data[off:off+int64(n)])
	return out
}

// TestInvariant8_BufferCoherence checks that successive Getblk calls for
// the same key return the same *Buffer.
func TestInvariant8_BufferCoherence(t *testing.T) {
	c := New()
	vn := newFakeVnode(8192)

	b1, err := c.Getblk(vn, 1, 4096, 0, 0)
	require.NoError(t, err)
	c.Brelse(b1)

	b2, err := c.Getblk(vn, 1, 4096, 0, 0)
	require.NoError(t, err)
	require.Same(t, b1, b2)
}

// TestInvariant9_DelayedWriteFlush checks that a DELWRI buffer is written
// out at most once by the cleaner between Brelse and eviction, and zero
// times once NOSYNC is set.
func TestInvariant9_DelayedWriteFlush(t *testing.T) {
	c := New()
	vn := newFakeVnode(64 * 4096)
	cl := NewCleaner(c)

	b, err := c.Bread(vn, 2, 4096, 0, 0)
	require.NoError(t, err)

	copy(b.Data(), []byte("hello, delayed write"))
	c.Bdwrite(b)
	c.Brelse(b)

	require.True(t, cl.RunOnce(false))
	require.False(t, b.Flags().Has(DELWRI))
	require.Equal(t, []byte("hello, delayed write"), vn.snapshot(2*4096, len("hello, delayed write")))

	// A second pass must not write again (DELWRI already cleared).
	before := vn.snapshot(2*4096, 4096)
	require.True(t, cl.RunOnce(false))
	require.Equal(t, before, vn.snapshot(2*4096, 4096))
}

func TestInvariant9_NoSyncSuppressesFlush(t *testing.T) {
	c := New()
	vn := newFakeVnode(64 * 4096)
	cl := NewCleaner(c)

	b, err := c.Bread(vn, 3, 4096, 0, 0)
	require.NoError(t, err)

	b.mu.Lock()
	b.flags |= NOSYNC
	b.mu.Unlock()
	copy(b.Data(), []byte("should not be flushed"))
	before := vn.snapshot(3*4096, 4096)

	c.Bdwrite(b)
	c.Brelse(b)

	require.True(t, cl.RunOnce(false))
	require.False(t, b.Flags().Has(DELWRI)) // still cleared from the queue...
	require.Equal(t, before, vn.snapshot(3*4096, 4096)) // ...but never written to media.
}

// TestScenarioS5_BreadThenBdwriteThenClean is scenario S5.
func TestScenarioS5_BreadThenBdwriteThenClean(t *testing.T) {
	c := New()
	vn := newFakeVnode(64 * 4096)
	cl := NewCleaner(c)

	want := make([]byte, 4096)
	for i := range want {
		want[i] = byte(i)
	}
	_, err := vn.WriteAt(want, 42*4096)
	require.NoError(t, err)

	b, err := c.Bread(vn, 42, 4096, 0, 0)
	require.NoError(t, err)
	require.True(t, b.Flags().Has(DONE))
	require.Equal(t, want, b.Data())

	c.Bdwrite(b)
	c.Brelse(b)

	require.True(t, cl.RunOnce(false))

	require.Equal(t, want, vn.snapshot(42*4096, 4096))
	require.False(t, b.Flags().Has(DELWRI))
}

func TestGetblk_DoubleInsertPanicsOnRawTree(t *testing.T) {
	tree := &splayTree{}
	buf := &Buffer{blkno: 1}
	tree.Insert(1, buf)
	require.Panics(t, func() { tree.Insert(1, buf) })
}

func TestBwrite_NilVnodeIsEIO(t *testing.T) {
	b := newBuffer(nil, 0, 4096, 0, 0)
	c := New()
	err := c.Bwrite(b)
	require.Error(t, err)
	require.True(t, b.Flags().Has(ERROR))
}

func TestBreadn_NotSupported(t *testing.T) {
	c := New()
	vn := newFakeVnode(8192)
	_, err := c.Breadn(vn, 0, nil, 4096)
	require.Error(t, err)
}

func TestCleaner_EvictRemovesFromTree(t *testing.T) {
	c := New()
	vn := newFakeVnode(64 * 4096)
	cl := NewCleaner(c)

	b, err := c.Bread(vn, 7, 4096, 0, 0)
	require.NoError(t, err)
	c.Brelse(b)

	require.NotNil(t, c.Incore(vn, 7))
	require.True(t, cl.RunOnce(true))
	require.Nil(t, c.Incore(vn, 7))
}

func TestAsyncWrite_CompletesAndClearsBusy(t *testing.T) {
	c := New(WithAsyncWorkers(2))
	vn := newFakeVnode(64 * 4096)

	b, err := c.Bread(vn, 5, 4096, 0, 0)
	require.NoError(t, err)
	copy(b.Data(), []byte("async payload"))

	require.NoError(t, c.Bawrite(b))
	c.Wait()

	require.False(t, b.Flags().Has(BUSY))
	require.Equal(t, []byte("async payload"), vn.snapshot(5*4096, len("async payload")))
}
