package store

import (
	"time"

	"github.com/tidwall/btree"
)

type entry[T any] struct {
	at  time.Time
	seq uint64
	val *T
}

func entryLess[T any](a, b entry[T]) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.seq < b.seq
}

// timeline keeps records ordered by (timestamp, insertion sequence). It has no
// locking of its own; the owning Store serializes access.
type timeline[T any] struct {
	tree *btree.BTreeG[entry[T]]
}

func newTimeline[T any]() *timeline[T] {
	return &timeline[T]{
		tree: btree.NewBTreeGOptions(entryLess[T], btree.Options{NoLocks: true}),
	}
}

func (t *timeline[T]) add(at time.Time, seq uint64, val *T) {
	t.tree.Set(entry[T]{at: at, seq: seq, val: val})
}

func (t *timeline[T]) len() int {
	return t.tree.Len()
}

func (t *timeline[T]) latest() (*T, bool) {
	e, ok := t.tree.Max()
	if !ok {
		return nil, false
	}
	return e.val, true
}

// newest walks from the most recent record backwards, stopping after limit
// records (limit <= 0 means no limit) or when keep returns false for a record
// older than the caller cares about.
func (t *timeline[T]) newest(limit int, keep func(*T) bool) []*T {
	var out []*T
	t.tree.Reverse(func(e entry[T]) bool {
		if keep != nil && !keep(e.val) {
			return false
		}
		out = append(out, e.val)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// oldest returns every record in chronological order.
func (t *timeline[T]) oldest() []*T {
	out := make([]*T, 0, t.tree.Len())
	t.tree.Scan(func(e entry[T]) bool {
		out = append(out, e.val)
		return true
	})
	return out
}
