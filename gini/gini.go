// Package gini implements a symcc.Solver by bit-blasting expressions into a
// circuit solved with the gini SAT solver.
package gini

import (
	"fmt"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	symcc "github.com/y4ngyy/SymCC-Modified"
)

// Ensure solver implements interface.
var _ symcc.Solver = (*Solver)(nil)

// Solver represents a solver that bit-blasts each query into a fresh circuit.
type Solver struct {
	// Maximum time spent in a single query. Zero means no limit.
	Timeout time.Duration

	stats Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	return &Solver{}
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Solve returns whether the conjunction of constraints is satisfiable and, if
// so, a value for each read in the same order as reads.
func (s *Solver) Solve(constraints []symcc.Expr, reads []*symcc.ReadExpr) (satisfiable bool, values []byte, err error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	b := newBlaster()
	roots := make([]z.Lit, 0, len(constraints))
	for _, constraint := range constraints {
		if w := symcc.ExprWidth(constraint); w != symcc.WidthBool {
			return false, nil, &Error{Op: "assert", Message: fmt.Sprintf("constraint width %d is not boolean", w)}
		}
		roots = append(roots, b.blast(constraint)[0])
	}

	// Every read needs its bits known to the solver, even if simplified away.
	inputs := make([][]z.Lit, len(reads))
	anchors := make([]z.Lit, 0, len(reads)*8)
	for i, read := range reads {
		inputs[i] = b.read(read.Offset)
		for range inputs[i] {
			anchors = append(anchors, b.c.Lit())
		}
	}

	g := gini.New()
	b.c.ToCnf(g)
	for i, lits := range inputs {
		for j, m := range lits {
			g.Add(m)
			g.Add(anchors[i*8+j])
			g.Add(0)
		}
	}
	g.Assume(roots...)

	switch ret := s.check(g); ret {
	case -1:
		return false, nil, nil
	case 0:
		return false, nil, symcc.ErrSolverTimeout
	}

	values = make([]byte, len(reads))
	for i, lits := range inputs {
		for j, m := range lits {
			if g.Value(m) {
				values[i] |= 1 << uint(j)
			}
		}
	}
	return true, values, nil
}

func (s *Solver) check(g *gini.Gini) int {
	if s.Timeout <= 0 {
		return g.Solve()
	}
	return g.GoSolve().Try(s.Timeout)
}

// Stats represents statistics for the solver.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}

// Error represents a query the solver cannot encode.
type Error struct {
	Op      string
	Message string
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	return fmt.Sprintf("gini: %s: %s", e.Op, e.Message)
}

// blaster translates expressions into circuit literals, least significant
// bit first.
type blaster struct {
	c     *logic.C
	cache map[symcc.Expr][]z.Lit
	reads map[uint64][]z.Lit
}

func newBlaster() *blaster {
	return &blaster{
		c:     logic.NewC(),
		cache: make(map[symcc.Expr][]z.Lit),
		reads: make(map[uint64][]z.Lit),
	}
}

func (b *blaster) read(offset uint64) []z.Lit {
	if lits, ok := b.reads[offset]; ok {
		return lits
	}
	lits := make([]z.Lit, 8)
	for i := range lits {
		lits[i] = b.c.Lit()
	}
	b.reads[offset] = lits
	return lits
}

func (b *blaster) blast(expr symcc.Expr) []z.Lit {
	if lits, ok := b.cache[expr]; ok {
		return lits
	}
	lits := b.blastExpr(expr)
	b.cache[expr] = lits
	return lits
}

func (b *blaster) blastExpr(expr symcc.Expr) []z.Lit {
	switch expr := expr.(type) {
	case *symcc.ConstantExpr:
		lits := make([]z.Lit, expr.Width)
		for i := range lits {
			lits[i] = b.bool(expr.Bit(uint(i)))
		}
		return lits

	case *symcc.ReadExpr:
		return b.read(expr.Offset)

	case *symcc.NotExpr:
		return not(b.blast(expr.Expr))

	case *symcc.ConcatExpr:
		lsb, msb := b.blast(expr.LSB), b.blast(expr.MSB)
		return append(append(make([]z.Lit, 0, len(lsb)+len(msb)), lsb...), msb...)

	case *symcc.ExtractExpr:
		return b.blast(expr.Expr)[expr.Offset : expr.Offset+expr.Width]

	case *symcc.CastExpr:
		src := b.blast(expr.Src)
		fill := b.c.F
		if expr.Signed {
			fill = src[len(src)-1]
		}
		return b.extend(src, expr.Width, fill)

	case *symcc.IteExpr:
		cond := b.blast(expr.Cond)[0]
		return b.ite(cond, b.blast(expr.Then), b.blast(expr.Else))

	case *symcc.BinaryExpr:
		return b.blastBinary(expr)

	default:
		panic(fmt.Sprintf("gini: unexpected expression type: %T", expr))
	}
}

func (b *blaster) blastBinary(expr *symcc.BinaryExpr) []z.Lit {
	x, y := b.blast(expr.LHS), b.blast(expr.RHS)

	switch expr.Op {
	case symcc.ADD:
		return b.add(x, y, b.c.F)
	case symcc.SUB:
		return b.sub(x, y)
	case symcc.MUL:
		return b.mul(x, y)
	case symcc.UDIV:
		q, _ := b.udivrem(x, y)
		return q
	case symcc.UREM:
		_, r := b.udivrem(x, y)
		return r
	case symcc.SDIV:
		q, _ := b.sdivrem(x, y)
		return q
	case symcc.SREM:
		_, r := b.sdivrem(x, y)
		return r
	case symcc.AND:
		return b.bitwise(x, y, b.c.And)
	case symcc.OR:
		return b.bitwise(x, y, b.c.Or)
	case symcc.XOR:
		return b.bitwise(x, y, b.c.Xor)
	case symcc.SHL:
		return b.shift(x, y, b.c.F, shiftLeft)
	case symcc.LSHR:
		return b.shift(x, y, b.c.F, shiftRight)
	case symcc.ASHR:
		return b.shift(x, y, x[len(x)-1], shiftRight)

	case symcc.EQ:
		return []z.Lit{b.eq(x, y)}
	case symcc.NE:
		return []z.Lit{b.eq(x, y).Not()}
	case symcc.ULT:
		return []z.Lit{b.ult(x, y, b.c.F)}
	case symcc.ULE:
		return []z.Lit{b.ult(x, y, b.c.T)}
	case symcc.UGT:
		return []z.Lit{b.ult(y, x, b.c.F)}
	case symcc.UGE:
		return []z.Lit{b.ult(y, x, b.c.T)}
	case symcc.SLT:
		return []z.Lit{b.slt(x, y, b.c.F)}
	case symcc.SLE:
		return []z.Lit{b.slt(x, y, b.c.T)}
	case symcc.SGT:
		return []z.Lit{b.slt(y, x, b.c.F)}
	case symcc.SGE:
		return []z.Lit{b.slt(y, x, b.c.T)}

	default:
		panic(fmt.Sprintf("gini: unexpected binary operation: %s", expr.Op))
	}
}

func (b *blaster) bool(v bool) z.Lit {
	if v {
		return b.c.T
	}
	return b.c.F
}

func not(x []z.Lit) []z.Lit {
	out := make([]z.Lit, len(x))
	for i, m := range x {
		out[i] = m.Not()
	}
	return out
}

func (b *blaster) bitwise(x, y []z.Lit, fn func(a, b z.Lit) z.Lit) []z.Lit {
	out := make([]z.Lit, len(x))
	for i := range x {
		out[i] = fn(x[i], y[i])
	}
	return out
}

func (b *blaster) extend(x []z.Lit, width uint, fill z.Lit) []z.Lit {
	out := make([]z.Lit, width)
	copy(out, x)
	for i := len(x); i < len(out); i++ {
		out[i] = fill
	}
	return out
}

func (b *blaster) ite(cond z.Lit, x, y []z.Lit) []z.Lit {
	out := make([]z.Lit, len(x))
	for i := range x {
		out[i] = b.c.Choice(cond, x[i], y[i])
	}
	return out
}

// add returns x+y+carry as a ripple-carry adder.
func (b *blaster) add(x, y []z.Lit, carry z.Lit) []z.Lit {
	out := make([]z.Lit, len(x))
	for i := range x {
		t := b.c.Xor(x[i], y[i])
		out[i] = b.c.Xor(t, carry)
		carry = b.c.Or(b.c.And(x[i], y[i]), b.c.And(carry, t))
	}
	return out
}

func (b *blaster) sub(x, y []z.Lit) []z.Lit {
	return b.add(x, not(y), b.c.T)
}

func (b *blaster) neg(x []z.Lit) []z.Lit {
	return b.sub(b.extend(nil, uint(len(x)), b.c.F), x)
}

// mul returns the low bits of x*y by shift and add.
func (b *blaster) mul(x, y []z.Lit) []z.Lit {
	acc := b.extend(nil, uint(len(x)), b.c.F)
	for i := range y {
		partial := make([]z.Lit, len(x))
		for j := range partial {
			if j < i {
				partial[j] = b.c.F
			} else {
				partial[j] = b.c.And(y[i], x[j-i])
			}
		}
		acc = b.add(acc, partial, b.c.F)
	}
	return acc
}

// udivrem returns the quotient and remainder of restoring division. Division
// by zero yields a quotient of all ones and a remainder of x.
func (b *blaster) udivrem(x, y []z.Lit) (q, r []z.Lit) {
	w := len(x)
	q = make([]z.Lit, w)
	r = b.extend(nil, uint(w), b.c.F)
	wide := b.extend(y, uint(w+1), b.c.F)

	for i := w - 1; i >= 0; i-- {
		// r < y always holds, so the shifted remainder fits in w+1 bits.
		shifted := append([]z.Lit{x[i]}, r...)
		ge := b.ult(wide, shifted, b.c.T)
		q[i] = ge
		r = b.ite(ge, b.sub(shifted, wide), shifted)[:w]
	}
	return q, r
}

// sdivrem divides magnitudes and fixes the signs. The quotient is negative
// when the operand signs differ and the remainder takes the sign of x.
func (b *blaster) sdivrem(x, y []z.Lit) (q, r []z.Lit) {
	sx, sy := x[len(x)-1], y[len(y)-1]
	q, r = b.udivrem(b.ite(sx, b.neg(x), x), b.ite(sy, b.neg(y), y))
	q = b.ite(b.c.Xor(sx, sy), b.neg(q), q)
	r = b.ite(sx, b.neg(r), r)
	return q, r
}

const (
	shiftLeft = iota
	shiftRight
)

// shift returns a barrel shift of x by y. Amounts of the width or more
// produce fill in every bit.
func (b *blaster) shift(x, y []z.Lit, fill z.Lit, dir int) []z.Lit {
	w := len(x)
	out := x
	overflow := b.c.F
	for k := range y {
		n := 1 << uint(k)
		if k >= 63 || n >= w {
			overflow = b.c.Or(overflow, y[k])
			continue
		}

		shifted := make([]z.Lit, w)
		for i := range shifted {
			var j int
			if dir == shiftLeft {
				j = i - n
			} else {
				j = i + n
			}
			if j < 0 {
				shifted[i] = b.c.F
			} else if j >= w {
				shifted[i] = fill
			} else {
				shifted[i] = out[j]
			}
		}
		out = b.ite(y[k], shifted, out)
	}
	return b.ite(overflow, b.extend(nil, uint(w), fill), out)
}

func (b *blaster) eq(x, y []z.Lit) z.Lit {
	ms := make([]z.Lit, len(x))
	for i := range x {
		ms[i] = b.c.Xor(x[i], y[i]).Not()
	}
	return b.c.Ands(ms...)
}

// ult returns x < y, or x <= y when orEqual is true.
func (b *blaster) ult(x, y []z.Lit, orEqual z.Lit) z.Lit {
	lt := orEqual
	for i := range x {
		less := b.c.And(x[i].Not(), y[i])
		same := b.c.Xor(x[i], y[i]).Not()
		lt = b.c.Or(less, b.c.And(same, lt))
	}
	return lt
}

// slt is ult with the sign bits exchanged.
func (b *blaster) slt(x, y []z.Lit, orEqual z.Lit) z.Lit {
	n := len(x) - 1
	xs := append(append([]z.Lit(nil), x[:n]...), y[n])
	ys := append(append([]z.Lit(nil), y[:n]...), x[n])
	return b.ult(xs, ys, orEqual)
}
