package symcc

import (
	"fmt"
)

// Handle is the integer identity of a registered expression as seen by
// instrumented code. The zero handle means "not tracked".
//
// The low 32 bits hold the slot index plus one and the high 32 bits hold the
// slot generation, so a handle whose slot was collected and reused is
// detected as stale rather than resolving to the new occupant.
type Handle uint64

// NullHandle is the handle of an untracked (concrete) value.
const NullHandle Handle = 0

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) index() uint32 { return uint32(h) - 1 }
func (h Handle) gen() uint32   { return uint32(h >> 32) }

// IsNull returns true if h is the null handle.
func (h Handle) IsNull() bool { return h == NullHandle }

// String returns the handle formatted as "index.generation".
func (h Handle) String() string {
	if h.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%d.%d", h.index(), h.gen())
}

// HandleError is returned when a handle cannot be resolved.
type HandleError struct {
	Handle Handle
	Err    error
}

// Error returns the error message.
func (e *HandleError) Error() string {
	return fmt.Sprintf("handle %s: %s", e.Handle, e.Err)
}

// Unwrap returns the underlying cause.
func (e *HandleError) Unwrap() error { return e.Err }

// Registry owns every expression handed out to instrumented code. Entries
// live in an arena of slots until the garbage collector sweeps them.
type Registry struct {
	slots []registrySlot
	free  []uint32
	index map[Expr]Handle
	live  int
}

type registrySlot struct {
	expr Expr
	gen  uint32
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[Expr]Handle)}
}

// Len returns the number of live entries.
func (r *Registry) Len() int { return r.live }

// Register stores expr and returns its handle. Registering an expression that
// is already present returns the existing handle and leaves the entry alone.
func (r *Registry) Register(expr Expr) Handle {
	if expr == nil {
		return NullHandle
	} else if h, ok := r.index[expr]; ok {
		return h
	}

	var i uint32
	if n := len(r.free); n > 0 {
		i, r.free = r.free[n-1], r.free[:n-1]
	} else {
		assert(uint64(len(r.slots)) < 1<<32-1, "registry exhausted")
		r.slots = append(r.slots, registrySlot{})
		i = uint32(len(r.slots) - 1)
	}

	slot := &r.slots[i]
	slot.gen++
	slot.expr = expr

	h := makeHandle(i, slot.gen)
	r.index[expr] = h
	r.live++
	return h
}

// Lookup returns the expression registered under h.
// Returns a *HandleError if h is null, was never issued, or was collected.
func (r *Registry) Lookup(h Handle) (Expr, error) {
	if h.IsNull() {
		return nil, &HandleError{Handle: h, Err: ErrNullHandle}
	}

	i := h.index()
	if int(i) >= len(r.slots) {
		return nil, &HandleError{Handle: h, Err: ErrUnknownHandle}
	}

	slot := &r.slots[i]
	if h.gen() > slot.gen {
		return nil, &HandleError{Handle: h, Err: ErrUnknownHandle}
	} else if h.gen() < slot.gen || slot.expr == nil {
		return nil, &HandleError{Handle: h, Err: ErrStaleHandle}
	}
	return slot.expr, nil
}

// HandleOf returns the handle expr is registered under, if any.
func (r *Registry) HandleOf(expr Expr) (Handle, bool) {
	h, ok := r.index[expr]
	return h, ok
}

// Contains returns true if h resolves to a live entry.
func (r *Registry) Contains(h Handle) bool {
	_, err := r.Lookup(h)
	return err == nil
}

// release drops the entry in slot i. The slot generation is kept so that
// outstanding handles to it become stale.
func (r *Registry) release(i uint32) {
	slot := &r.slots[i]
	delete(r.index, slot.expr)
	slot.expr = nil
	r.free = append(r.free, i)
	r.live--
}
