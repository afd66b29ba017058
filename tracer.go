package symcc

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// CallStackTracer follows call, return and basic-block notifications so that
// branch sites can be told apart by calling context.
type CallStackTracer struct {
	stack  []uint64 // call sites, innermost last
	hashes []uint64 // context hash for each stack depth

	location    uint64
	pending     bool
	interesting bool
	visits      map[uint64]uint32
}

// NewCallStackTracer returns a tracer at the program entry.
func NewCallStackTracer() *CallStackTracer {
	return &CallStackTracer{
		hashes:      []uint64{0},
		visits:      make(map[uint64]uint32),
		interesting: true,
	}
}

// VisitCall records a call from site.
func (t *CallStackTracer) VisitCall(site uint64) {
	t.stack = append(t.stack, site)
	t.hashes = append(t.hashes, mix(t.Context(), site))
}

// VisitReturn unwinds the stack to the most recent call from site.
// A return with no matching call is ignored.
func (t *CallStackTracer) VisitReturn(site uint64) {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i] == site {
			t.stack = t.stack[:i]
			t.hashes = t.hashes[:i+1]
			return
		}
	}
}

// VisitBasicBlock sets the current location.
func (t *CallStackTracer) VisitBasicBlock(site uint64) {
	t.location = site
	t.pending = true
}

// Depth returns the number of active calls.
func (t *CallStackTracer) Depth() int { return len(t.stack) }

// Location returns the most recently entered basic block.
func (t *CallStackTracer) Location() uint64 { return t.location }

// Context returns a hash of the active call sites.
func (t *CallStackTracer) Context() uint64 {
	return t.hashes[len(t.hashes)-1]
}

// Interesting reports whether the current block has been entered in the
// current context a power-of-two number of times.
func (t *CallStackTracer) Interesting() bool {
	if t.pending {
		t.pending = false
		key := mix(t.Context(), t.location)
		t.visits[key]++
		n := t.visits[key]
		t.interesting = n&(n-1) == 0
	}
	return t.interesting
}

// BranchKey returns a key identifying a branch direction at site in the
// current context.
func (t *CallStackTracer) BranchKey(site uint64, taken bool) uint64 {
	key := mix(t.Context(), site)
	if taken {
		return mix(key, 1)
	}
	return mix(key, 0)
}

func mix(h, v uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], h)
	binary.LittleEndian.PutUint64(buf[8:16], v)
	return xxhash.Sum64(buf[:])
}
