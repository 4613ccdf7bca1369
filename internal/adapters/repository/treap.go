package repository

import (
	"math/rand/v2"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/ranking"
)

// Order-statistics treap over entries of one leaderboard.
//
// In-order traversal yields the ranking order for the board's direction, and
// subtree sizes give O(log n) positional access for paging.
//
// Entries stored in the tree are never mutated in a way that changes their
// ordering key (score, achievedAt, participantID); an update removes the old
// entry and inserts a new one.

type node struct {
	entry *model.Entry
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

type treap struct {
	root *node
	dir  model.Direction
}

func newTreap(dir model.Direction) *treap {
	return &treap{dir: dir}
}

func (t *treap) less(a, b *model.Entry) bool {
	return ranking.Compare(t.dir, a, b) < 0
}

func (t *treap) Len() int { return nsize(t.root) }

func (t *treap) Insert(e *model.Entry) {
	t.root = t.insert(t.root, e, rand.Uint64()) //nolint:gosec // balancing priority, not security
}

func (t *treap) insert(n *node, e *model.Entry, prio uint64) *node {
	if n == nil {
		return &node{entry: e, prio: prio, size: 1}
	}
	if t.less(e, n.entry) {
		n.left = t.insert(n.left, e, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = t.insert(n.right, e, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// Delete removes e, located by its ordering key.
func (t *treap) Delete(e *model.Entry) {
	t.root = t.deleteNode(t.root, e)
}

func (t *treap) deleteNode(n *node, e *model.Entry) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.entry.ParticipantID == e.ParticipantID:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = t.deleteNode(n.right, e)
		} else {
			n = rotateLeft(n)
			n.left = t.deleteNode(n.left, e)
		}
	case t.less(e, n.entry):
		n.left = t.deleteNode(n.left, e)
	default:
		n.right = t.deleteNode(n.right, e)
	}
	fix(n)
	return n
}

// Position returns the 0-based in-order index of e, or -1 if absent.
func (t *treap) Position(e *model.Entry) int {
	pos := 0
	n := t.root
	for n != nil {
		switch {
		case n.entry.ParticipantID == e.ParticipantID:
			return pos + nsize(n.left)
		case t.less(e, n.entry):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

// Slice appends up to limit entries starting at in-order index offset.
func (t *treap) Slice(offset, limit int) []*model.Entry {
	if limit <= 0 || offset >= t.Len() {
		return nil
	}
	out := make([]*model.Entry, 0, min(limit, t.Len()-offset))
	collect(t.root, offset, limit, &out)
	return out
}

func collect(n *node, skip, limit int, out *[]*model.Entry) int {
	if n == nil || len(*out) >= limit {
		return skip
	}
	if skip >= n.size {
		return skip - n.size
	}
	skip = collect(n.left, skip, limit, out)
	if len(*out) >= limit {
		return skip
	}
	if skip > 0 {
		skip--
	} else {
		*out = append(*out, n.entry)
	}
	return collect(n.right, skip, limit, out)
}

// All returns every entry in order.
func (t *treap) All() []*model.Entry {
	return t.Slice(0, t.Len())
}
