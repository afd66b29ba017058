package symcc

import (
	"fmt"
)

// ExprEvaluator evaluates expressions against concrete input bytes.
type ExprEvaluator struct {
	input []byte
	cache map[Expr]*ConstantExpr
}

// NewExprEvaluator returns a new instance of ExprEvaluator over input.
func NewExprEvaluator(input []byte) *ExprEvaluator {
	return &ExprEvaluator{
		input: input,
		cache: make(map[Expr]*ConstantExpr),
	}
}

// Evaluate evaluates expr to a constant expression.
// Returns an error if expr reads beyond the end of the input.
func (ee *ExprEvaluator) Evaluate(expr Expr) (*ConstantExpr, error) {
	if c, ok := ee.cache[expr]; ok {
		return c, nil
	}
	c, err := ee.evaluate(expr)
	if err != nil {
		return nil, err
	}
	ee.cache[expr] = c
	return c, nil
}

func (ee *ExprEvaluator) evaluate(expr Expr) (*ConstantExpr, error) {
	switch expr := expr.(type) {
	case *BinaryExpr:
		lhs, err := ee.Evaluate(expr.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := ee.Evaluate(expr.RHS)
		if err != nil {
			return nil, err
		}
		return NewBinaryExpr(expr.Op, lhs, rhs).(*ConstantExpr), nil
	case *CastExpr:
		if expr.Width > WidthMax {
			return nil, fmt.Errorf("cast to %d bits exceeds constant width %d", expr.Width, WidthMax)
		}
		src, err := ee.Evaluate(expr.Src)
		if err != nil {
			return nil, err
		}
		return NewCastExpr(src, expr.Width, expr.Signed).(*ConstantExpr), nil
	case *ConcatExpr:
		msb, err := ee.Evaluate(expr.MSB)
		if err != nil {
			return nil, err
		}
		lsb, err := ee.Evaluate(expr.LSB)
		if err != nil {
			return nil, err
		}
		return NewConcatExpr(msb, lsb).(*ConstantExpr), nil
	case *ConstantExpr:
		return expr, nil
	case *ExtractExpr:
		exp, err := ee.Evaluate(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewExtractExpr(exp, expr.Offset, expr.Width).(*ConstantExpr), nil
	case *NotExpr:
		exp, err := ee.Evaluate(expr.Expr)
		if err != nil {
			return nil, err
		}
		return NewNotExpr(exp).(*ConstantExpr), nil
	case *IteExpr:
		cond, err := ee.Evaluate(expr.Cond)
		if err != nil {
			return nil, err
		} else if cond.IsTrue() {
			return ee.Evaluate(expr.Then)
		}
		return ee.Evaluate(expr.Else)
	case *ReadExpr:
		if expr.Offset >= uint64(len(ee.input)) {
			return nil, fmt.Errorf("read %d of %d input bytes: %w", expr.Offset, len(ee.input), ErrInputOutOfRange)
		}
		return NewConstantExpr(uint64(ee.input[expr.Offset]), Width8), nil
	default:
		return nil, fmt.Errorf("invalid expression type: %T", expr)
	}
}
