package symcc

import (
	"github.com/benbjohnson/immutable"
)

// DeferredEntry is a candidate address constraint waiting for a branch that
// depends on the same inputs.
type DeferredEntry struct {
	Deps     DependencySet
	Addr     Handle
	Expr     Expr
	Concrete uint64
}

// DeferredQueue holds address constraints that are only asserted once a
// later branch proves their inputs relevant.
//
// Resident entries never include one another and none is covered by the
// exact set. Entries are kept in insertion order.
type DeferredQueue struct {
	entries *immutable.SortedMap // seq -> *DeferredEntry
	seq     uint64
	exact   DependencySet
}

// NewDeferredQueue returns an empty queue.
func NewDeferredQueue() *DeferredQueue {
	return &DeferredQueue{entries: immutable.NewSortedMap(&uint64Comparer{})}
}

// Len returns the number of resident entries.
func (q *DeferredQueue) Len() int { return q.entries.Len() }

// Exact returns the union of all promoted dependency sets.
func (q *DeferredQueue) Exact() DependencySet { return q.exact }

// IsExact returns true if deps is covered by the exact set.
// Always false before the first promotion.
func (q *DeferredQueue) IsExact(deps DependencySet) bool {
	if len(q.exact) == 0 {
		return false
	}
	return q.exact.Includes(deps)
}

// Insert adds entry unless the exact set or a resident entry already covers
// it, or a resident entry is narrower than it. Returns true if inserted.
func (q *DeferredQueue) Insert(entry DeferredEntry) bool {
	if q.exact.Includes(entry.Deps) {
		return false
	}

	itr := q.entries.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		other := v.(*DeferredEntry)
		if other.Deps.Includes(entry.Deps) || entry.Deps.Includes(other.Deps) {
			return false
		}
	}

	q.seq++
	q.entries = q.entries.Set(q.seq, &entry)
	return true
}

// Verify promotes the first entry, in insertion order, whose dependency set
// is a subset of deps. At most one entry is promoted per call. Entries that
// the grown exact set now covers are dropped.
func (q *DeferredQueue) Verify(deps DependencySet) (DeferredEntry, bool) {
	itr := q.entries.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		entry := v.(*DeferredEntry)
		if !entry.Deps.SubsetOf(deps) {
			continue
		}

		q.entries = q.entries.Delete(k)
		q.exact = q.exact.Union(entry.Deps)
		q.prune()
		return *entry, true
	}
	return DeferredEntry{}, false
}

// prune removes entries covered by the exact set.
func (q *DeferredQueue) prune() {
	itr := q.entries.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		if q.exact.Includes(v.(*DeferredEntry).Deps) {
			q.entries = q.entries.Delete(k)
		}
	}
}

// Entries returns the resident entries in insertion order.
func (q *DeferredQueue) Entries() []DeferredEntry {
	a := make([]DeferredEntry, 0, q.entries.Len())
	itr := q.entries.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		a = append(a, *v.(*DeferredEntry))
	}
	return a
}

// Handles returns the address handles held by resident entries.
func (q *DeferredQueue) Handles() []Handle {
	a := make([]Handle, 0, q.entries.Len())
	itr := q.entries.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		a = append(a, v.(*DeferredEntry).Addr)
	}
	return a
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not an uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
