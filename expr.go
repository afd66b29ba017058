package symcc

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Expr represents an immutable symbolic expression. Expressions are shared
// by pointer and never modified after construction.
type Expr interface {
	String() string
	expr()
}

func (*BinaryExpr) expr()   {}
func (*CastExpr) expr()     {}
func (*ConcatExpr) expr()   {}
func (*ConstantExpr) expr() {}
func (*ExtractExpr) expr()  {}
func (*IteExpr) expr()      {}
func (*NotExpr) expr()      {}
func (*ReadExpr) expr()     {}

// ExprWidth returns the bit width of the expression.
func ExprWidth(expr Expr) uint {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Width
	case *ReadExpr:
		return Width8
	case *ConcatExpr:
		return expr.width
	case *ExtractExpr:
		return expr.Width
	case *NotExpr:
		return ExprWidth(expr.Expr)
	case *CastExpr:
		return expr.Width
	case *IteExpr:
		return ExprWidth(expr.Then)
	case *BinaryExpr:
		return expr.width
	default:
		panic("unreachable")
	}
}

// ExprDeps returns the set of input offsets that expr depends on.
func ExprDeps(expr Expr) DependencySet {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return nil
	case *ReadExpr:
		return expr.deps
	case *ConcatExpr:
		return expr.deps
	case *ExtractExpr:
		return ExprDeps(expr.Expr)
	case *NotExpr:
		return ExprDeps(expr.Expr)
	case *CastExpr:
		return ExprDeps(expr.Src)
	case *IteExpr:
		return expr.deps
	case *BinaryExpr:
		return expr.deps
	default:
		panic("unreachable")
	}
}

// ExprOperands returns the direct operands of expr.
func ExprOperands(expr Expr) []Expr {
	switch expr := expr.(type) {
	case *BinaryExpr:
		return []Expr{expr.LHS, expr.RHS}
	case *CastExpr:
		return []Expr{expr.Src}
	case *ConcatExpr:
		return []Expr{expr.MSB, expr.LSB}
	case *ExtractExpr:
		return []Expr{expr.Expr}
	case *NotExpr:
		return []Expr{expr.Expr}
	case *IteExpr:
		return []Expr{expr.Cond, expr.Then, expr.Else}
	default:
		return nil
	}
}

// BinaryOp represents a binary expression operations.
type BinaryOp int

// BinaryExpr operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	UDIV
	SDIV
	UREM
	SREM
	AND
	OR
	XOR
	SHL
	LSHR
	ASHR
	arithmetic_op_end

	compare_op_begin
	EQ
	NE
	ULT
	ULE
	UGT
	UGE
	SLT
	SLE
	SGT
	SGE
	compare_op_end
)

var binaryOps = [...]string{
	ADD:  "add",
	SUB:  "sub",
	MUL:  "mul",
	UDIV: "udiv",
	SDIV: "sdiv",
	UREM: "urem",
	SREM: "srem",
	AND:  "and",
	OR:   "or",
	XOR:  "xor",
	SHL:  "shl",
	LSHR: "lshr",
	ASHR: "ashr",
	EQ:   "eq",
	NE:   "ne",
	ULT:  "ult",
	ULE:  "ule",
	UGT:  "ugt",
	UGE:  "uge",
	SLT:  "slt",
	SLE:  "sle",
	SGT:  "sgt",
	SGE:  "sge",
}

// ParseBinaryOp returns the operation with the given name.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op, name := range binaryOps {
		if name != "" && name == s {
			return BinaryOp(op), true
		}
	}
	return 0, false
}

// String returns the string representation of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// BinaryExpr represents an operation on two expressions.
type BinaryExpr struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr

	width uint
	deps  DependencySet
}

func newBinaryExpr(op BinaryOp, lhs, rhs Expr) *BinaryExpr {
	width := ExprWidth(lhs)
	if op.IsCompare() {
		width = WidthBool
	}
	return &BinaryExpr{
		Op:    op,
		LHS:   lhs,
		RHS:   rhs,
		width: width,
		deps:  ExprDeps(lhs).Union(ExprDeps(rhs)),
	}
}

// NewBinaryExpr returns a simplified expression applying op to lhs & rhs.
// Comparisons are normalized to EQ, ULT, ULE, SLT & SLE.
func NewBinaryExpr(op BinaryOp, lhs, rhs Expr) Expr {
	assert(ExprWidth(lhs) == ExprWidth(rhs), "binary expr width mismatch: op=%s %d != %d", op, ExprWidth(lhs), ExprWidth(rhs))

	switch op {
	// Arithmetic operators
	case ADD:
		return newAddExpr(lhs, rhs)
	case SUB:
		return newSubExpr(lhs, rhs)
	case MUL:
		return newMulExpr(lhs, rhs)
	case UDIV, SDIV:
		return newDivExpr(op, lhs, rhs)
	case UREM, SREM:
		return newRemExpr(op, lhs, rhs)
	case AND:
		return newAndExpr(lhs, rhs)
	case OR:
		return newOrExpr(lhs, rhs)
	case XOR:
		return newXorExpr(lhs, rhs)
	case SHL:
		return newShlExpr(lhs, rhs)
	case LSHR:
		return newLShrExpr(lhs, rhs)
	case ASHR:
		return newAShrExpr(lhs, rhs)

	// Comparison operators
	case EQ:
		return newEqExpr(lhs, rhs)
	case NE:
		return NewBinaryExpr(EQ, NewBoolConstantExpr(false), NewBinaryExpr(EQ, lhs, rhs))
	case ULT:
		return newUltExpr(lhs, rhs)
	case UGT:
		return newUltExpr(rhs, lhs) // reverse
	case ULE:
		return newUleExpr(lhs, rhs)
	case UGE:
		return newUleExpr(rhs, lhs) // reverse
	case SLT:
		return newSltExpr(lhs, rhs)
	case SGT:
		return newSltExpr(rhs, lhs) // reverse
	case SLE:
		return newSleExpr(lhs, rhs)
	case SGE:
		return newSleExpr(rhs, lhs) // reverse

	default:
		panic("unreachable")
	}
}

// String returns the string representation of the expression.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// newAddExpr returns the expression representing the sum of lhs & rhs.
func newAddExpr(lhs, rhs Expr) Expr {
	// Move constant expression to left hand side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Refactor to XOR for boolean expressions.
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(XOR, lhs, rhs)
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.IsZero() {
			return rhs
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Add(rhs)
		}
	}

	// Merge constant LHS with constant in RHS binary expression.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*BinaryExpr); ok {
			if rhs.Op == ADD && IsConstantExpr(rhs.LHS) { // X + (Y+z) == (X+Y) + z
				return NewBinaryExpr(ADD, NewBinaryExpr(ADD, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == SUB && IsConstantExpr(rhs.LHS) { // X + (Y-z) == (X+Y) - z
				return NewBinaryExpr(SUB, NewBinaryExpr(ADD, lhs, rhs.LHS), rhs.RHS)
			}
		}
	}

	// Refactor constant LHS.LHS to a standalone value on LHS.
	if lhs, ok := lhs.(*BinaryExpr); ok && IsConstantExpr(lhs.LHS) {
		if lhs.Op == ADD { // (X+y) + z = X + (y+z)
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(ADD, lhs.RHS, rhs))
		} else if lhs.Op == SUB { // (X-y) + z = X + (z-y)
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(SUB, rhs, lhs.RHS))
		}
	}

	// Refactor constant RHS.LHS to a standalone value on LHS.
	if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
		if rhs.Op == ADD { // a + (k+b) = k+(a+b)
			return NewBinaryExpr(ADD, rhs.LHS, NewBinaryExpr(ADD, lhs, rhs.RHS))
		} else if rhs.Op == SUB { // a + (k-b) = k+(a-b)
			return NewBinaryExpr(ADD, rhs.LHS, NewBinaryExpr(SUB, lhs, rhs.RHS))
		}
	}

	return newBinaryExpr(ADD, lhs, rhs)
}

// newSubExpr returns an expression representing the difference of lhs & rhs.
func newSubExpr(lhs, rhs Expr) Expr {
	// Subtracting a value from itself is zero.
	if CompareExpr(lhs, rhs) == 0 {
		return NewConstantExpr(0, ExprWidth(lhs))
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Sub(rhs)
		}
	}

	// Refactor to XOR for boolean expressions.
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(XOR, lhs, rhs)
	}

	// If constant is on right side, refactor to addition with LHS & RHS flipped.
	if rhs, ok := rhs.(*ConstantExpr); ok {
		return NewBinaryExpr(ADD, NewConstantExpr(0, rhs.Width).Sub(rhs), lhs)
	}

	// Combine with children of RHS binary expression, if possible.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*BinaryExpr); ok {
			if rhs.Op == ADD && IsConstantExpr(rhs.LHS) { // X - (Y+z) == (X-Y) - z
				return NewBinaryExpr(SUB, NewBinaryExpr(SUB, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == SUB && IsConstantExpr(rhs.LHS) { // X - (Y-z) == (X-Y) + z
				return NewBinaryExpr(ADD, NewBinaryExpr(SUB, lhs, rhs.LHS), rhs.RHS)
			}
		}
	}

	// Refactor constant LHS.LHS to a standalone value on LHS.
	if lhs, ok := lhs.(*BinaryExpr); ok && IsConstantExpr(lhs.LHS) {
		if lhs.Op == ADD { // (X+y) - z = X + (y-z)
			return NewBinaryExpr(ADD, lhs.LHS, NewBinaryExpr(SUB, lhs.RHS, rhs))
		} else if lhs.Op == SUB { // (X-y) - z = X - (y+z)
			return NewBinaryExpr(SUB, lhs.LHS, NewBinaryExpr(ADD, lhs.RHS, rhs))
		}
	}

	// Refactor constant RHS.LHS to a standalone value on LHS.
	if rhs, ok := rhs.(*BinaryExpr); ok && IsConstantExpr(rhs.LHS) {
		if rhs.Op == ADD { // x - (Y+z) = (x-z) - Y
			return NewBinaryExpr(SUB, NewBinaryExpr(SUB, lhs, rhs.RHS), rhs.LHS)
		} else if rhs.Op == SUB { // x - (Y-z) = (x+z) - Y
			return NewBinaryExpr(SUB, NewBinaryExpr(ADD, lhs, rhs.RHS), rhs.LHS)
		}
	}

	return newBinaryExpr(SUB, lhs, rhs)
}

// newMulExpr returns an expression that represents the product of lhs & rhs.
func newMulExpr(lhs, rhs Expr) Expr {
	// If constant is on right side, swap to left side.
	if IsConstantExpr(rhs) && !IsConstantExpr(lhs) {
		lhs, rhs = rhs, lhs
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Mul(rhs)
		}
	}

	// Refactor to AND for boolean expressions.
	if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(AND, lhs, rhs)
	}

	// Optimize for multiplication with a constant 1 or 0.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.IsOne() {
			return rhs
		} else if lhs.IsZero() {
			return lhs
		}
	}
	return newBinaryExpr(MUL, lhs, rhs)
}

// newDivExpr returns an expression that represents the division of lhs & rhs.
func newDivExpr(op BinaryOp, lhs, rhs Expr) Expr {
	assert(op == UDIV || op == SDIV, "invalid div op: %s", op)

	if rhs, ok := rhs.(*ConstantExpr); ok {
		if lhs, ok := lhs.(*ConstantExpr); ok {
			if op == UDIV {
				return lhs.UDiv(rhs)
			}
			return lhs.SDiv(rhs)
		} else if rhs.IsOne() {
			return lhs
		}
	}
	return newBinaryExpr(op, lhs, rhs)
}

// newRemExpr returns an expression that represents the remainder of lhs divided by rhs.
func newRemExpr(op BinaryOp, lhs, rhs Expr) Expr {
	assert(op == UREM || op == SREM, "invalid rem op: %s", op)

	if rhs, ok := rhs.(*ConstantExpr); ok {
		if lhs, ok := lhs.(*ConstantExpr); ok {
			if op == UREM {
				return lhs.URem(rhs)
			}
			return lhs.SRem(rhs)
		} else if rhs.IsOne() {
			return NewConstantExpr(0, rhs.Width)
		}
	}
	return newBinaryExpr(op, lhs, rhs)
}

// newAndExpr returns an expression that represents the bitwise AND of lhs & rhs.
func newAndExpr(lhs, rhs Expr) Expr {
	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.And(rhs)
		}
	}

	// If constant is on left side, swap to right side.
	if IsConstantExpr(lhs) && !IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Optimize for if constant is all ones or zeros.
	if rhs, ok := rhs.(*ConstantExpr); ok {
		if rhs.IsAllOnes() {
			return lhs
		} else if rhs.IsZero() {
			return rhs
		}
	}
	if lhs == rhs {
		return lhs
	}
	return newBinaryExpr(AND, lhs, rhs)
}

// newOrExpr returns an expression that represents the bitwise OR of lhs & rhs.
func newOrExpr(lhs, rhs Expr) Expr {
	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Or(rhs)
		}
	}

	// If constant is on left side, swap to right side.
	if IsConstantExpr(lhs) && !IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Optimize for if constant is all ones or zeros.
	if rhs, ok := rhs.(*ConstantExpr); ok {
		if rhs.IsAllOnes() {
			return rhs
		} else if rhs.IsZero() {
			return lhs
		}
	}
	if lhs == rhs {
		return lhs
	}
	return newBinaryExpr(OR, lhs, rhs)
}

// newXorExpr returns an expression that represents the bitwise XOR of lhs & rhs.
func newXorExpr(lhs, rhs Expr) Expr {
	// If constant is on right side, swap to left side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if lhs.IsZero() {
			return rhs
		} else if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Xor(rhs)
		}
	}

	return newBinaryExpr(XOR, lhs, rhs)
}

// newShlExpr returns an expression that represents the shift-left of lhs by rhs bits.
func newShlExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Shl(rhs)
		}
	}
	if IsConstantZero(rhs) {
		return lhs
	} else if ExprWidth(lhs) == WidthBool { // l & !r
		return NewBinaryExpr(AND, lhs, NewIsZeroExpr(rhs))
	}
	return newBinaryExpr(SHL, lhs, rhs)
}

// newLShrExpr returns an expression that represents the logical shift-right of lhs by rhs bits.
func newLShrExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.LShr(rhs)
		}
	}
	if IsConstantZero(rhs) {
		return lhs
	} else if ExprWidth(lhs) == WidthBool {
		return NewBinaryExpr(AND, lhs, NewIsZeroExpr(rhs)) // l & !r
	}
	return newBinaryExpr(LSHR, lhs, rhs)
}

// newAShrExpr returns an expression that represents the arithmetic shift-right of lhs by rhs bits.
func newAShrExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.AShr(rhs)
		}
	}
	if IsConstantZero(rhs) || ExprWidth(lhs) == WidthBool { // l
		return lhs
	}
	return newBinaryExpr(ASHR, lhs, rhs)
}

// newEqExpr returns an expression that represents the equality of lhs and rhs.
func newEqExpr(lhs, rhs Expr) Expr {
	// If constant is on right side, swap to left side.
	if !IsConstantExpr(lhs) && IsConstantExpr(rhs) {
		lhs, rhs = rhs, lhs
	}

	// Compute constant if both sides are constant.
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Eq(rhs)
		}

		width := lhs.Width
		switch rhs := rhs.(type) {
		case *BinaryExpr:
			switch rhs.Op {
			case EQ:
				if width == WidthBool {
					if lhs.IsTrue() {
						return rhs
					} else if IsConstantFalse(rhs.LHS) {
						return rhs.RHS // 0 == (0 == A) => A
					}
				}
			case OR:
				if width == WidthBool {
					if lhs.IsTrue() {
						return rhs // T == X || Y => X || Y
					}
					return NewBinaryExpr(AND, NewIsZeroExpr(rhs.LHS), NewIsZeroExpr(rhs.RHS)) // F == X || Y => !X && !Y
				}
			case ADD:
				if IsConstantExpr(rhs.LHS) { // X = Y + z => X - Y = z
					return NewBinaryExpr(EQ, NewBinaryExpr(SUB, lhs, rhs.LHS), rhs.RHS)
				}
			case SUB:
				if IsConstantExpr(rhs.LHS) { // X = Y - z => Y - X = z
					return NewBinaryExpr(EQ, NewBinaryExpr(SUB, rhs.LHS, lhs), rhs.RHS)
				}
			}

		case *NotExpr:
			if width == WidthBool { // c == !A => !c == A
				return NewBinaryExpr(EQ, lhs.Not(), rhs.Expr)
			}

		case *CastExpr:
			trunc := lhs.ZExt(ExprWidth(rhs.Src))
			if rhs.Signed { // (sext(a,T)==c) == (a==c)
				if CompareExpr(lhs, trunc.SExt(width)) == 0 {
					return NewBinaryExpr(EQ, trunc, rhs.Src)
				}
				return NewBoolConstantExpr(false)
			} else { // (zext(a,T)==c) == (a==c)
				if CompareExpr(lhs, trunc.ZExt(width)) == 0 {
					return NewBinaryExpr(EQ, trunc, rhs.Src)
				}
				return NewBoolConstantExpr(false)
			}
		}
	}

	if CompareExpr(lhs, rhs) == 0 {
		return NewBoolConstantExpr(true)
	}
	return newBinaryExpr(EQ, lhs, rhs)
}

// newUltExpr returns an expression that represents the if lhs is less than rhs (unsigned).
func newUltExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Ult(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // !lhs && rhs
		return NewBinaryExpr(AND, NewIsZeroExpr(lhs), rhs)
	}
	return newBinaryExpr(ULT, lhs, rhs)
}

// newUleExpr returns an expression that represents the if lhs is less than or equal to rhs (unsigned).
func newUleExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Ule(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // !(lhs && !rhs)
		return NewBinaryExpr(OR, NewIsZeroExpr(lhs), rhs)
	}
	return newBinaryExpr(ULE, lhs, rhs)
}

// newSltExpr returns an expression that represents the if lhs is less than rhs (signed).
func newSltExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Slt(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // lhs && !rhs
		return NewBinaryExpr(AND, lhs, NewIsZeroExpr(rhs))
	}
	return newBinaryExpr(SLT, lhs, rhs)
}

// newSleExpr returns an expression that represents the if lhs is less than or equal to rhs (signed).
func newSleExpr(lhs, rhs Expr) Expr {
	if lhs, ok := lhs.(*ConstantExpr); ok {
		if rhs, ok := rhs.(*ConstantExpr); ok {
			return lhs.Sle(rhs)
		}
	}
	if ExprWidth(lhs) == WidthBool { // !(!lhs && rhs)
		return NewBinaryExpr(OR, lhs, NewIsZeroExpr(rhs))
	}
	return newBinaryExpr(SLE, lhs, rhs)
}

// ReadExpr represents one byte of symbolic program input.
type ReadExpr struct {
	Offset uint64

	deps DependencySet
}

// NewReadExpr returns an expression reading the input byte at offset.
func NewReadExpr(offset uint64) *ReadExpr {
	return &ReadExpr{Offset: offset, deps: DependencySet{offset}}
}

// String returns the string representation of the expression.
func (e *ReadExpr) String() string {
	return fmt.Sprintf("(read %d)", e.Offset)
}

// ConcatExpr represents a concatenation of two expressions.
type ConcatExpr struct {
	MSB Expr
	LSB Expr

	width uint
	deps  DependencySet
}

// NewConcatExpr returns a new instance of ConcatExpr.
func NewConcatExpr(msb, lsb Expr) Expr {
	// Combine expressions if they are both constants.
	if msb, ok := msb.(*ConstantExpr); ok {
		if lsb, ok := lsb.(*ConstantExpr); ok {
			return msb.Concat(lsb)
		}
	}

	// Combine extract expressions if they are contiguous.
	if msb, ok := msb.(*ExtractExpr); ok {
		if lsb, ok := lsb.(*ExtractExpr); ok {
			if msb.Expr == lsb.Expr && lsb.Offset+lsb.Width == msb.Offset {
				return NewExtractExpr(msb.Expr, lsb.Offset, msb.Width+lsb.Width)
			}
		}
	}

	return &ConcatExpr{
		MSB:   msb,
		LSB:   lsb,
		width: ExprWidth(msb) + ExprWidth(lsb),
		deps:  ExprDeps(msb).Union(ExprDeps(lsb)),
	}
}

// String returns the string representation of the expression.
func (e *ConcatExpr) String() string {
	return fmt.Sprintf("(concat %s %s)", e.MSB, e.LSB)
}

// ExtractExpr represents the extraction of a set of bits at a given offset/width.
type ExtractExpr struct {
	Expr   Expr
	Offset uint
	Width  uint
}

// NewExtractExpr returns a new instance of ExtractExpr.
func NewExtractExpr(expr Expr, offset uint, width uint) Expr {
	kw := ExprWidth(expr)
	assert(width > 0, "extract width cannot be zero")
	assert(offset+width <= kw, "extract out of bounds: %d+%d > %d", offset, width, kw)

	if width == kw {
		return expr
	} else if expr, ok := expr.(*ConstantExpr); ok {
		return expr.Extract(offset, width)
	}

	switch expr := expr.(type) {
	case *ConcatExpr:
		lw := ExprWidth(expr.LSB)

		// Directly extract from MSB if we skip over LSB.
		if offset >= lw {
			return NewExtractExpr(expr.MSB, offset-lw, width)
		}

		// Directly extract from LSB if we skip over MSB.
		if offset+width <= lw {
			return NewExtractExpr(expr.LSB, offset, width)
		}

		// E(C(x,y)) = C(E(x), E(y))
		return NewConcatExpr(
			NewExtractExpr(expr.MSB, 0, offset+width-lw),
			NewExtractExpr(expr.LSB, offset, lw-offset),
		)

	case *ExtractExpr:
		// E(E(x)) = E(x) with combined offset.
		return NewExtractExpr(expr.Expr, expr.Offset+offset, width)

	case *CastExpr:
		// Extracting only bits of the original value skips the extension.
		if offset+width <= ExprWidth(expr.Src) {
			return NewExtractExpr(expr.Src, offset, width)
		}
	}

	return &ExtractExpr{
		Expr:   expr,
		Offset: offset,
		Width:  width,
	}
}

// String returns the string representation of the expression.
func (e *ExtractExpr) String() string {
	return fmt.Sprintf("(extract %s %d %d)", e.Expr, e.Offset, e.Width)
}

// NotExpr represents a bitwise not of an expression.
type NotExpr struct {
	Expr Expr
}

// NewNotExpr returns a new instance of NotExpr.
func NewNotExpr(expr Expr) Expr {
	switch expr := expr.(type) {
	case *ConstantExpr:
		return expr.Not()
	case *NotExpr:
		return expr.Expr
	}
	return &NotExpr{Expr: expr}
}

// String returns the string representation of the expression.
func (e *NotExpr) String() string {
	return fmt.Sprintf("(not %s)", e.Expr)
}

// CastExpr represents an expression that casts an expression to a new width.
type CastExpr struct {
	Src    Expr
	Width  uint
	Signed bool
}

// NewCastExpr returns a new instance of CastExpr. Constants are folded unless
// the result is wider than WidthMax.
func NewCastExpr(src Expr, width uint, signed bool) Expr {
	if signed {
		return newSExtExpr(src, width)
	}
	return newZExtExpr(src, width)
}

// newZExtExpr returns a new zero-extension binary operation.
func newZExtExpr(src Expr, w uint) Expr {
	sw := ExprWidth(src)
	if w == sw { // nop
		return src
	} else if w < sw { // truncate
		return NewExtractExpr(src, 0, w)
	} else if src, ok := src.(*ConstantExpr); ok && w <= WidthMax {
		return src.ZExt(w)
	}
	return &CastExpr{Src: src, Width: w, Signed: false}
}

// newSExtExpr returns a new signed-extension binary operation.
func newSExtExpr(src Expr, w uint) Expr {
	sw := ExprWidth(src)
	if w == sw { // nop
		return src
	} else if w < sw { // truncate
		return NewExtractExpr(src, 0, w)
	} else if src, ok := src.(*ConstantExpr); ok && w <= WidthMax {
		return src.SExt(w)
	}
	return &CastExpr{Src: src, Width: w, Signed: true}
}

// String returns the string representation of the expression.
func (e *CastExpr) String() string {
	if e.Signed {
		return fmt.Sprintf("(sext %s %d)", e.Src, e.Width)
	}
	return fmt.Sprintf("(zext %s %d)", e.Src, e.Width)
}

// IteExpr selects Then when Cond is true and Else otherwise.
type IteExpr struct {
	Cond Expr
	Then Expr
	Else Expr

	deps DependencySet
}

// NewIteExpr returns a new if-then-else expression.
func NewIteExpr(cond, then, els Expr) Expr {
	assert(ExprWidth(cond) == WidthBool, "ite condition must be boolean: %d", ExprWidth(cond))
	assert(ExprWidth(then) == ExprWidth(els), "ite width mismatch: %d != %d", ExprWidth(then), ExprWidth(els))

	if cond, ok := cond.(*ConstantExpr); ok {
		if cond.IsTrue() {
			return then
		}
		return els
	} else if CompareExpr(then, els) == 0 {
		return then
	}

	// ite(c, 1, 0) on booleans is the condition itself.
	if ExprWidth(then) == WidthBool && IsConstantTrue(then) && IsConstantFalse(els) {
		return cond
	}

	return &IteExpr{
		Cond: cond,
		Then: then,
		Else: els,
		deps: ExprDeps(cond).Union(ExprDeps(then)).Union(ExprDeps(els)),
	}
}

// String returns the string representation of the expression.
func (e *IteExpr) String() string {
	return fmt.Sprintf("(ite %s %s %s)", e.Cond, e.Then, e.Else)
}

// ConstantExpr represents a fixed-width integer of up to WidthMax bits.
type ConstantExpr struct {
	Value uint256.Int
	Width uint
}

// NewConstantExpr returns a new instance of ConstantExpr.
func NewConstantExpr(value uint64, width uint) *ConstantExpr {
	return NewConstantExprInt(uint256.NewInt(value), width)
}

// NewConstantExprInt returns a constant holding the low width bits of v.
func NewConstantExprInt(v *uint256.Int, width uint) *ConstantExpr {
	assert(width > 0 && width <= WidthMax, "invalid constant width: %d", width)
	e := &ConstantExpr{Width: width}
	e.Value.And(v, bitmask(width))
	return e
}

// NewConstantExpr128 returns a 128-bit constant built from two 64-bit halves.
func NewConstantExpr128(high, low uint64) *ConstantExpr {
	v := new(uint256.Int).Lsh(uint256.NewInt(high), 64)
	v.Or(v, uint256.NewInt(low))
	return NewConstantExprInt(v, Width128)
}

// NewConstantExpr64 returns a 64-bit constant expression.
func NewConstantExpr64(value uint64) *ConstantExpr {
	return NewConstantExpr(value, Width64)
}

// NewBoolConstantExpr is an ease of use function for creating constant boolean expressions.
func NewBoolConstantExpr(value bool) *ConstantExpr {
	if value {
		return NewConstantExpr(1, WidthBool)
	}
	return NewConstantExpr(0, WidthBool)
}

// String returns the string representation of the expression.
func (e *ConstantExpr) String() string {
	return fmt.Sprintf("(const %s %d)", e.Value.ToBig().String(), e.Width)
}

// Uint64 returns the low 64 bits of the value.
func (e *ConstantExpr) Uint64() uint64 {
	return e.Value.Uint64()
}

// Big returns the value as an unsigned big integer.
func (e *ConstantExpr) Big() *big.Int {
	return e.Value.ToBig()
}

// Bit returns bit i of the value.
func (e *ConstantExpr) Bit(i uint) bool {
	return new(uint256.Int).Rsh(&e.Value, i).Uint64()&1 == 1
}

// IsTrue returns true if this is a boolean true expression.
func (e *ConstantExpr) IsTrue() bool {
	return e.Width == WidthBool && !e.Value.IsZero()
}

// IsFalse returns true if this is a boolean false expression.
func (e *ConstantExpr) IsFalse() bool {
	return e.Width == WidthBool && e.Value.IsZero()
}

// IsZero returns true if all bits in the value are zero.
func (e *ConstantExpr) IsZero() bool {
	return e.Value.IsZero()
}

// IsOne returns true if the value equals one.
func (e *ConstantExpr) IsOne() bool {
	return e.Value.IsUint64() && e.Value.Uint64() == 1
}

// IsAllOnes returns true if all bits in the value are one.
func (e *ConstantExpr) IsAllOnes() bool {
	return e.Value.Eq(bitmask(e.Width))
}

// IsNegative returns true if the sign bit is set.
func (e *ConstantExpr) IsNegative() bool {
	return e.Value.BitLen() == int(e.Width)
}

// signed returns the value sign-extended to the full 256 bits.
func (e *ConstantExpr) signed() *uint256.Int {
	v := new(uint256.Int).Set(&e.Value)
	if e.Width < WidthMax && e.IsNegative() {
		v.Or(v, new(uint256.Int).Not(bitmask(e.Width)))
	}
	return v
}

// shift returns the shift amount held by other and whether it is in range for e.
func (e *ConstantExpr) shift(other *ConstantExpr) (uint, bool) {
	if !other.Value.IsUint64() || other.Value.Uint64() >= uint64(e.Width) {
		return 0, false
	}
	return uint(other.Value.Uint64()), true
}

// Add returns the sum of e and other.
func (e *ConstantExpr) Add(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "add: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExprInt(new(uint256.Int).Add(&e.Value, &other.Value), e.Width)
}

// Sub returns the difference of e and other.
func (e *ConstantExpr) Sub(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "sub: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExprInt(new(uint256.Int).Sub(&e.Value, &other.Value), e.Width)
}

// Mul returns the product of e and other.
func (e *ConstantExpr) Mul(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "mul: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExprInt(new(uint256.Int).Mul(&e.Value, &other.Value), e.Width)
}

// UDiv returns the quotient of unsigned division of e and other.
// Division by zero yields all ones.
func (e *ConstantExpr) UDiv(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "udiv: width mismatch: %d != %d", e.Width, other.Width)
	if other.IsZero() {
		return NewConstantExprInt(bitmask(e.Width), e.Width)
	}
	return NewConstantExprInt(new(uint256.Int).Div(&e.Value, &other.Value), e.Width)
}

// SDiv returns the quotient of signed division of e and other.
// Division by zero yields -1 for non-negative e and 1 otherwise.
func (e *ConstantExpr) SDiv(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "sdiv: width mismatch: %d != %d", e.Width, other.Width)
	if other.IsZero() {
		if e.IsNegative() {
			return NewConstantExpr(1, e.Width)
		}
		return NewConstantExprInt(bitmask(e.Width), e.Width)
	}
	return NewConstantExprInt(new(uint256.Int).SDiv(e.signed(), other.signed()), e.Width)
}

// URem returns the remainder of unsigned division of e and other.
// Division by zero yields e.
func (e *ConstantExpr) URem(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "urem: width mismatch: %d != %d", e.Width, other.Width)
	if other.IsZero() {
		return e
	}
	return NewConstantExprInt(new(uint256.Int).Mod(&e.Value, &other.Value), e.Width)
}

// SRem returns the remainder of signed division of e and other.
// The result takes the sign of e. Division by zero yields e.
func (e *ConstantExpr) SRem(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "srem: width mismatch: %d != %d", e.Width, other.Width)
	if other.IsZero() {
		return e
	}
	return NewConstantExprInt(new(uint256.Int).SMod(e.signed(), other.signed()), e.Width)
}

// And returns the bitwise AND of e and other.
func (e *ConstantExpr) And(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "and: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExprInt(new(uint256.Int).And(&e.Value, &other.Value), e.Width)
}

// Or returns the bitwise OR of e and other.
func (e *ConstantExpr) Or(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "or: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExprInt(new(uint256.Int).Or(&e.Value, &other.Value), e.Width)
}

// Xor returns the bitwise XOR of e and other.
func (e *ConstantExpr) Xor(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "xor: width mismatch: %d != %d", e.Width, other.Width)
	return NewConstantExprInt(new(uint256.Int).Xor(&e.Value, &other.Value), e.Width)
}

// Shl returns the value of e shifted left by other number of bits.
func (e *ConstantExpr) Shl(other *ConstantExpr) *ConstantExpr {
	n, ok := e.shift(other)
	if !ok {
		return NewConstantExpr(0, e.Width)
	}
	return NewConstantExprInt(new(uint256.Int).Lsh(&e.Value, n), e.Width)
}

// LShr returns the value of e logically shifted right by other number of bits.
func (e *ConstantExpr) LShr(other *ConstantExpr) *ConstantExpr {
	n, ok := e.shift(other)
	if !ok {
		return NewConstantExpr(0, e.Width)
	}
	return NewConstantExprInt(new(uint256.Int).Rsh(&e.Value, n), e.Width)
}

// AShr returns the value of e arithmetically shifted right by other number of bits.
func (e *ConstantExpr) AShr(other *ConstantExpr) *ConstantExpr {
	n, ok := e.shift(other)
	if !ok {
		if e.IsNegative() {
			return NewConstantExprInt(bitmask(e.Width), e.Width)
		}
		return NewConstantExpr(0, e.Width)
	}
	return NewConstantExprInt(new(uint256.Int).SRsh(e.signed(), n), e.Width)
}

// Eq returns the equality of e and other.
func (e *ConstantExpr) Eq(other *ConstantExpr) *ConstantExpr {
	assert(e.Width == other.Width, "eq: width mismatch: %d != %d", e.Width, other.Width)
	return NewBoolConstantExpr(e.Value.Eq(&other.Value))
}

// Ult returns the unsigned less than comparison of e to other.
func (e *ConstantExpr) Ult(other *ConstantExpr) *ConstantExpr {
	return NewBoolConstantExpr(e.Value.Lt(&other.Value))
}

// Ule returns the unsigned less than or equal to comparison of e to other.
func (e *ConstantExpr) Ule(other *ConstantExpr) *ConstantExpr {
	return NewBoolConstantExpr(!e.Value.Gt(&other.Value))
}

// Slt returns the signed less than comparison of e to other.
func (e *ConstantExpr) Slt(other *ConstantExpr) *ConstantExpr {
	return NewBoolConstantExpr(e.signed().Slt(other.signed()))
}

// Sle returns the signed less than or equal to comparison of e to other.
func (e *ConstantExpr) Sle(other *ConstantExpr) *ConstantExpr {
	return NewBoolConstantExpr(!e.signed().Sgt(other.signed()))
}

// ZExt returns the zero-extension of e to a new width. A narrower width truncates.
func (e *ConstantExpr) ZExt(width uint) *ConstantExpr {
	if e.Width == width {
		return e
	}
	return NewConstantExprInt(&e.Value, width)
}

// SExt returns the sign-extension of e to a new width. A narrower width truncates.
func (e *ConstantExpr) SExt(width uint) *ConstantExpr {
	if e.Width == width {
		return e
	} else if width < e.Width {
		return e.ZExt(width)
	}
	return NewConstantExprInt(e.signed(), width)
}

// Not returns the bitwise NOT of the expression.
func (e *ConstantExpr) Not() *ConstantExpr {
	return NewConstantExprInt(new(uint256.Int).Not(&e.Value), e.Width)
}

// Extract returns width number of bits starting at offset.
func (e *ConstantExpr) Extract(offset, width uint) *ConstantExpr {
	return NewConstantExprInt(new(uint256.Int).Rsh(&e.Value, offset), width)
}

// Concat returns the concatenation of e and lsb.
func (e *ConstantExpr) Concat(lsb *ConstantExpr) *ConstantExpr {
	v := new(uint256.Int).Lsh(&e.Value, lsb.Width)
	return NewConstantExprInt(v.Or(v, &lsb.Value), e.Width+lsb.Width)
}

// bitmask returns a value with the low width bits set.
func bitmask(width uint) *uint256.Int {
	m := new(uint256.Int)
	if width >= WidthMax {
		return m.SetAllOne()
	}
	m.Lsh(uint256.NewInt(1), width)
	return m.Sub(m, uint256.NewInt(1))
}

// IsConstantExpr returns true if expr is an instance of ConstantExpr.
func IsConstantExpr(expr Expr) bool {
	_, ok := expr.(*ConstantExpr)
	return ok
}

// IsConstantTrue returns true if expr is an instance of ConstantExpr and is true.
func IsConstantTrue(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsTrue()
}

// IsConstantFalse returns true if expr is an instance of ConstantExpr and is false.
func IsConstantFalse(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsFalse()
}

// IsConstantZero returns true if expr is a constant with all bits clear.
func IsConstantZero(expr Expr) bool {
	tmp, ok := expr.(*ConstantExpr)
	return ok && tmp.IsZero()
}

// NewIsZeroExpr returns an expression that checks the equality of other to zero.
func NewIsZeroExpr(other Expr) Expr {
	return NewBinaryExpr(EQ, other, NewConstantExpr(0, ExprWidth(other)))
}

// NewNegExpr returns the two's complement negation of expr.
func NewNegExpr(expr Expr) Expr {
	return NewBinaryExpr(SUB, NewConstantExpr(0, ExprWidth(expr)), expr)
}

// CompareExpr returns an integer comparing two expressions.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareExpr(a, b Expr) int {
	if a == b {
		return 0
	} else if a == nil {
		return -1
	} else if b == nil {
		return 1
	}

	if ak, bk := exprKind(a), exprKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	switch a := a.(type) {
	case *ConstantExpr:
		return compareConstantExpr(a, b.(*ConstantExpr))
	case *ReadExpr:
		return compareUint64(a.Offset, b.(*ReadExpr).Offset)
	case *ConcatExpr:
		return compareConcatExpr(a, b.(*ConcatExpr))
	case *ExtractExpr:
		return compareExtractExpr(a, b.(*ExtractExpr))
	case *NotExpr:
		return CompareExpr(a.Expr, b.(*NotExpr).Expr)
	case *CastExpr:
		return compareCastExpr(a, b.(*CastExpr))
	case *IteExpr:
		return compareIteExpr(a, b.(*IteExpr))
	case *BinaryExpr:
		return compareBinaryExpr(a, b.(*BinaryExpr))
	default:
		panic("unreachable")
	}
}

func compareUint64(a, b uint64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func compareConstantExpr(a, b *ConstantExpr) int {
	if cmp := compareUint64(uint64(a.Width), uint64(b.Width)); cmp != 0 {
		return cmp
	}
	return a.Value.Cmp(&b.Value)
}

func compareConcatExpr(a, b *ConcatExpr) int {
	if cmp := CompareExpr(a.MSB, b.MSB); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.LSB, b.LSB)
}

func compareExtractExpr(a, b *ExtractExpr) int {
	if cmp := compareUint64(uint64(a.Offset), uint64(b.Offset)); cmp != 0 {
		return cmp
	} else if cmp := compareUint64(uint64(a.Width), uint64(b.Width)); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Expr, b.Expr)
}

func compareCastExpr(a, b *CastExpr) int {
	if a.Signed && !b.Signed {
		return -1
	} else if !a.Signed && b.Signed {
		return 1
	}

	if cmp := compareUint64(uint64(a.Width), uint64(b.Width)); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Src, b.Src)
}

func compareIteExpr(a, b *IteExpr) int {
	if cmp := CompareExpr(a.Cond, b.Cond); cmp != 0 {
		return cmp
	} else if cmp := CompareExpr(a.Then, b.Then); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.Else, b.Else)
}

func compareBinaryExpr(a, b *BinaryExpr) int {
	if a.Op < b.Op {
		return -1
	} else if a.Op > b.Op {
		return 1
	}
	if cmp := CompareExpr(a.LHS, b.LHS); cmp != 0 {
		return cmp
	}
	return CompareExpr(a.RHS, b.RHS)
}

// exprKind returns a numeric value for the type of expression.
// Only used internally for equality checks and sorting.
func exprKind(expr Expr) int {
	switch expr.(type) {
	case *ConstantExpr:
		return 1
	case *ReadExpr:
		return 2
	case *ConcatExpr:
		return 3
	case *ExtractExpr:
		return 4
	case *NotExpr:
		return 5
	case *CastExpr:
		return 6
	case *IteExpr:
		return 7
	case *BinaryExpr:
		return 8
	default:
		panic("unreachable")
	}
}

// ExprVisitor represents a visitor that can be passed to WalkExpr().
type ExprVisitor interface {
	// Executed for every visited node. Returning nil skips the node's operands.
	Visit(expr Expr) ExprVisitor
}

// WalkExpr traverses expr depth-first. Shared subexpressions are visited once.
func WalkExpr(v ExprVisitor, expr Expr) {
	seen := make(map[Expr]struct{})
	stack := []walkFrame{{expr: expr, v: v}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[f.expr]; ok {
			continue
		}
		seen[f.expr] = struct{}{}

		w := f.v.Visit(f.expr)
		if w == nil {
			continue
		}
		operands := ExprOperands(f.expr)
		for i := len(operands) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{expr: operands[i], v: w})
		}
	}
}

type walkFrame struct {
	expr Expr
	v    ExprVisitor
}

// FindReads returns the distinct input reads in the expression trees, ordered by offset.
func FindReads(exprs ...Expr) []*ReadExpr {
	var deps DependencySet
	for _, expr := range exprs {
		deps = deps.Union(ExprDeps(expr))
	}
	a := make([]*ReadExpr, len(deps))
	for i, offset := range deps {
		a[i] = NewReadExpr(offset)
	}
	return a
}
