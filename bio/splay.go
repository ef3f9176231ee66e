package bio

import (
	"fmt"

	"github.com/Ninjaware/zeke/kcore"
)

// splayTree is a per-vnode top-down splay tree keyed by block number
// (§4.4: "per-vnode splay tree on block number, comparator asserts same
// vnode"). No splay tree implementation exists anywhere in the example
// corpus, so this is hand-written standard-library-grade code - the one
// deliberate exception to "never fall back to stdlib" for this package.
type splayTree struct {
	root *splayNode
	size int
}

type splayNode struct {
	blkno       int64
	buf         *Buffer
	left, right *splayNode
}

// splay moves the node matching blkno (or its last-visited neighbour, if
// absent) to the root, via the standard top-down zig-zig/zig-zag passes.
func (t *splayTree) splay(blkno int64) {
	if t.root == nil {
		return
	}
	var header splayNode
	l, r := &header, &header
	cur := t.root

	for {
		switch {
		case blkno < cur.blkno:
			if cur.left == nil {
				goto done
			}
			if blkno < cur.left.blkno {
				y := cur.left
				cur.left = y.right
				y.right = cur
				cur = y
				if cur.left == nil {
					goto done
				}
			}
			r.left = cur
			r = cur
			cur = cur.left
		case blkno > cur.blkno:
			if cur.right == nil {
				goto done
			}
			if blkno > cur.right.blkno {
				y := cur.right
				cur.right = y.left
				y.left = cur
				cur = y
				if cur.right == nil {
					goto done
				}
			}
			l.right = cur
			l = cur
			cur = cur.right
		default:
			goto done
		}
	}

done:
	l.right = cur.left
	r.left = cur.right
	cur.left = header.right
	cur.right = header.left
	t.root = cur
}

// Get looks up blkno without mutating cache statistics beyond the splay
// reorder itself (incore is a pure lookup per §4.4, so this is still
// "pure" from the caller's perspective - only the tree shape changes).
func (t *splayTree) Get(blkno int64) *Buffer {
	t.splay(blkno)
	if t.root != nil && t.root.blkno == blkno {
		return t.root.buf
	}
	return nil
}

// Insert adds buf under blkno. Panics (invariant violation) if blkno is
// already present, matching the source's "double insert panics".
func (t *splayTree) Insert(blkno int64, buf *Buffer) {
	if t.root == nil {
		t.root = &splayNode{blkno: blkno, buf: buf}
		t.size++
		return
	}
	t.splay(blkno)
	if t.root.blkno == blkno {
		panicDoubleInsert(blkno)
	}
	n := &splayNode{blkno: blkno, buf: buf}
	if blkno < t.root.blkno {
		n.left = t.root.left
		n.right = t.root
		t.root.left = nil
	} else {
		n.right = t.root.right
		n.left = t.root
		t.root.right = nil
	}
	t.root = n
	t.size++
}

// Remove deletes blkno from the tree, if present.
func (t *splayTree) Remove(blkno int64) {
	if t.root == nil {
		return
	}
	t.splay(blkno)
	if t.root.blkno != blkno {
		return
	}
	if t.root.left == nil {
		t.root = t.root.right
	} else {
		right := t.root.right
		t.root = t.root.left
		t.splay(blkno) // bring the largest of the left subtree to root
		t.root.right = right
	}
	t.size--
}

func panicDoubleInsert(blkno int64) {
	kcore.Panic(fmt.Sprintf("bio: double insert for blkno %d", blkno))
}
