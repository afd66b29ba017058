package symcc

import (
	"time"
)

// RootSet supplies the handles still referenced by the instrumented program,
// such as symbolic registers and shadow memory.
type RootSet interface {
	Roots() []Handle
}

// RootSetFunc adapts a function to the RootSet interface.
type RootSetFunc func() []Handle

// Roots returns the result of calling fn.
func (fn RootSetFunc) Roots() []Handle { return fn() }

// GCStats reports the outcome of a single collection.
type GCStats struct {
	Before   int
	After    int
	Duration time.Duration
}

// Collected returns the number of entries released.
func (s GCStats) Collected() int { return s.Before - s.After }

// Collect releases every entry not reachable from roots. Reachability follows
// operand edges through all subexpressions, so an unregistered intermediate
// node still keeps its registered operands alive.
//
// Null, unknown and stale roots are ignored.
func (r *Registry) Collect(roots []Handle) GCStats {
	t := time.Now()
	stats := GCStats{Before: r.live}

	marked := make([]bool, len(r.slots))
	visited := make(map[Expr]struct{})
	var stack []Expr
	for _, h := range roots {
		if expr, err := r.Lookup(h); err == nil {
			stack = append(stack, expr)
		}
	}

	// Mark.
	for len(stack) > 0 {
		expr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[expr]; ok {
			continue
		}
		visited[expr] = struct{}{}

		if h, ok := r.index[expr]; ok {
			marked[h.index()] = true
		}
		stack = append(stack, ExprOperands(expr)...)
	}

	// Sweep.
	for i := range r.slots {
		if r.slots[i].expr != nil && !marked[i] {
			r.release(uint32(i))
		}
	}

	stats.After = r.live
	stats.Duration = time.Since(t)
	return stats
}
