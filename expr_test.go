package symcc_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	symcc "github.com/y4ngyy/SymCC-Modified"
)

func TestExprWidth(t *testing.T) {
	x, y := symcc.NewReadExpr(0), symcc.NewReadExpr(1)

	t.Run("ConstantExpr", func(t *testing.T) {
		if w := symcc.ExprWidth(symcc.NewConstantExpr(0, 8)); w != 8 {
			t.Fatalf("unexpected width: %d", w)
		}
	})
	t.Run("ReadExpr", func(t *testing.T) {
		if w := symcc.ExprWidth(x); w != 8 {
			t.Fatalf("unexpected width: %d", w)
		}
	})
	t.Run("ConcatExpr", func(t *testing.T) {
		if w := symcc.ExprWidth(symcc.NewConcatExpr(x, symcc.NewConcatExpr(y, x))); w != 24 {
			t.Fatalf("unexpected width: %d", w)
		}
	})
	t.Run("ExtractExpr", func(t *testing.T) {
		if w := symcc.ExprWidth(symcc.NewExtractExpr(symcc.NewConcatExpr(x, y), 4, 8)); w != 8 {
			t.Fatalf("unexpected width: %d", w)
		}
	})
	t.Run("NotExpr", func(t *testing.T) {
		if w := symcc.ExprWidth(symcc.NewNotExpr(x)); w != 8 {
			t.Fatalf("unexpected width: %d", w)
		}
	})
	t.Run("CastExpr", func(t *testing.T) {
		if w := symcc.ExprWidth(symcc.NewCastExpr(x, 32, true)); w != 32 {
			t.Fatalf("unexpected width: %d", w)
		}
	})
	t.Run("IteExpr", func(t *testing.T) {
		cond := symcc.NewBinaryExpr(symcc.ULT, x, y)
		if w := symcc.ExprWidth(symcc.NewIteExpr(cond, symcc.NewCastExpr(x, 16, false), symcc.NewConstantExpr(0, 16))); w != 16 {
			t.Fatalf("unexpected width: %d", w)
		}
	})
	t.Run("BinaryExpr", func(t *testing.T) {
		t.Run("Bool", func(t *testing.T) {
			if w := symcc.ExprWidth(symcc.NewBinaryExpr(symcc.EQ, x, y)); w != 1 {
				t.Fatalf("unexpected width: %d", w)
			}
		})
		t.Run("NonBool", func(t *testing.T) {
			if w := symcc.ExprWidth(symcc.NewBinaryExpr(symcc.ADD, x, y)); w != 8 {
				t.Fatalf("unexpected width: %d", w)
			}
		})
	})
}

func TestExprDeps(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		if deps := symcc.ExprDeps(symcc.NewConstantExpr(1, 8)); deps.Len() != 0 {
			t.Fatalf("unexpected deps: %s", deps)
		}
	})
	t.Run("Nested", func(t *testing.T) {
		x := symcc.NewConcatExpr(symcc.NewReadExpr(3), symcc.NewReadExpr(1))
		y := symcc.NewCastExpr(symcc.NewReadExpr(7), 16, false)
		expr := symcc.NewBinaryExpr(symcc.ULT, symcc.NewBinaryExpr(symcc.MUL, x, y), symcc.NewNotExpr(x))
		if diff := cmp.Diff(symcc.ExprDeps(expr), symcc.NewDependencySet(1, 3, 7)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Ite", func(t *testing.T) {
		cond := symcc.NewBinaryExpr(symcc.EQ, symcc.NewReadExpr(2), symcc.NewConstantExpr(0, 8))
		expr := symcc.NewIteExpr(cond, symcc.NewReadExpr(0), symcc.NewConstantExpr(5, 8))
		if diff := cmp.Diff(symcc.ExprDeps(expr), symcc.NewDependencySet(0, 2)); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestBinaryOp_String(t *testing.T) {
	t.Run("Known", func(t *testing.T) {
		if s := symcc.ADD.String(); s != "add" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Unknown", func(t *testing.T) {
		if s := symcc.BinaryOp(100).String(); s != "BinaryOp<100>" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestParseBinaryOp(t *testing.T) {
	for _, op := range []symcc.BinaryOp{symcc.ADD, symcc.SREM, symcc.ASHR, symcc.EQ, symcc.SGE} {
		if got, ok := symcc.ParseBinaryOp(op.String()); !ok || got != op {
			t.Fatalf("unexpected op for %q: %v %v", op, got, ok)
		}
	}
	if _, ok := symcc.ParseBinaryOp("fadd"); ok {
		t.Fatal("expected unknown op")
	}
}

func TestBinaryOp_IsArithmetic(t *testing.T) {
	if !symcc.ADD.IsArithmetic() {
		t.Fatal("expected true")
	} else if symcc.EQ.IsArithmetic() {
		t.Fatal("expected false")
	}
}

func TestBinaryOp_IsCompare(t *testing.T) {
	if !symcc.ULT.IsCompare() {
		t.Fatal("expected true")
	} else if symcc.SUB.IsCompare() {
		t.Fatal("expected false")
	}
}

func TestNewBinaryExpr_ADD(t *testing.T) {
	x := symcc.NewReadExpr(0)

	t.Run("Constant", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.ADD, symcc.NewConstantExpr(6, 8), symcc.NewConstantExpr(4, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(10, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Overflow", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.ADD, symcc.NewConstantExpr(255, 8), symcc.NewConstantExpr(1, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Zero", func(t *testing.T) {
		if got := symcc.NewBinaryExpr(symcc.ADD, x, symcc.NewConstantExpr(0, 8)); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("Bool", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.ADD, symcc.NewBoolConstantExpr(true), symcc.NewBoolConstantExpr(true))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewBoolConstantExpr(false))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ConstantLHS", func(t *testing.T) {
		if s := symcc.NewBinaryExpr(symcc.ADD, x, symcc.NewConstantExpr(1, 8)).String(); s != "(add (const 1 8) (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("MergeConstants", func(t *testing.T) {
		inner := symcc.NewBinaryExpr(symcc.ADD, symcc.NewConstantExpr(3, 8), x)
		if s := symcc.NewBinaryExpr(symcc.ADD, symcc.NewConstantExpr(4, 8), inner).String(); s != "(add (const 7 8) (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestNewBinaryExpr_SUB(t *testing.T) {
	x := symcc.NewReadExpr(0)

	t.Run("Self", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.SUB, x, symcc.NewReadExpr(0))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Constant", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.SUB, symcc.NewConstantExpr(3, 8), symcc.NewConstantExpr(5, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(254, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ConstantRHS", func(t *testing.T) {
		if s := symcc.NewBinaryExpr(symcc.SUB, x, symcc.NewConstantExpr(1, 8)).String(); s != "(add (const 255 8) (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Neg", func(t *testing.T) {
		if s := symcc.NewNegExpr(x).String(); s != "(sub (const 0 8) (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestNewBinaryExpr_MUL(t *testing.T) {
	x := symcc.NewReadExpr(0)

	t.Run("Constant", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.MUL, symcc.NewConstantExpr(16, 8), symcc.NewConstantExpr(17, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(16, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("One", func(t *testing.T) {
		if got := symcc.NewBinaryExpr(symcc.MUL, x, symcc.NewConstantExpr(1, 8)); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("Zero", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.MUL, x, symcc.NewConstantExpr(0, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestNewBinaryExpr_DIV(t *testing.T) {
	x := symcc.NewReadExpr(0)

	for _, tt := range []struct {
		name     string
		op       symcc.BinaryOp
		lhs, rhs uint64
		exp      uint64
	}{
		{"UDIV", symcc.UDIV, 200, 7, 28},
		{"UDIVByZero", symcc.UDIV, 200, 0, 0xFF},
		{"SDIV", symcc.SDIV, 0xF9, 2, 0xFD}, // -7 / 2 = -3
		{"SDIVByZero", symcc.SDIV, 5, 0, 0xFF},
		{"SDIVNegativeByZero", symcc.SDIV, 0x80, 0, 1},
		{"SDIVOverflow", symcc.SDIV, 0x80, 0xFF, 0x80},
		{"UREM", symcc.UREM, 200, 7, 4},
		{"UREMByZero", symcc.UREM, 7, 0, 7},
		{"SREM", symcc.SREM, 0xF9, 2, 0xFF}, // -7 % 2 = -1
		{"SREMNegativeDivisor", symcc.SREM, 7, 0xFE, 1},
		{"SREMByZero", symcc.SREM, 0xF9, 0, 0xF9},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := symcc.NewBinaryExpr(tt.op, symcc.NewConstantExpr(tt.lhs, 8), symcc.NewConstantExpr(tt.rhs, 8))
			if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(tt.exp, 8))); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	t.Run("DivByOne", func(t *testing.T) {
		if got := symcc.NewBinaryExpr(symcc.SDIV, x, symcc.NewConstantExpr(1, 8)); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("RemByOne", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.UREM, x, symcc.NewConstantExpr(1, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Symbolic", func(t *testing.T) {
		if s := symcc.NewBinaryExpr(symcc.UDIV, symcc.NewConstantExpr(9, 8), x).String(); s != "(udiv (const 9 8) (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestNewBinaryExpr_Bitwise(t *testing.T) {
	x := symcc.NewReadExpr(0)

	t.Run("AND", func(t *testing.T) {
		if got := symcc.NewBinaryExpr(symcc.AND, symcc.NewConstantExpr(0xFF, 8), x); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
		if got := symcc.NewBinaryExpr(symcc.AND, x, symcc.NewConstantExpr(0, 8)); !symcc.IsConstantZero(got) {
			t.Fatalf("unexpected expr: %s", got)
		}
		if s := symcc.NewBinaryExpr(symcc.AND, symcc.NewConstantExpr(0x0F, 8), x).String(); s != "(and (read 0) (const 15 8))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("OR", func(t *testing.T) {
		if got := symcc.NewBinaryExpr(symcc.OR, x, symcc.NewConstantExpr(0, 8)); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
		got := symcc.NewBinaryExpr(symcc.OR, x, symcc.NewConstantExpr(0xFF, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0xFF, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("XOR", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.XOR, symcc.NewConstantExpr(0xF0, 8), symcc.NewConstantExpr(0xFF, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0x0F, 8))); diff != "" {
			t.Fatal(diff)
		}
		if got := symcc.NewBinaryExpr(symcc.XOR, x, symcc.NewConstantExpr(0, 8)); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
}

func TestNewBinaryExpr_Shift(t *testing.T) {
	for _, tt := range []struct {
		name     string
		op       symcc.BinaryOp
		lhs, rhs uint64
		exp      uint64
	}{
		{"SHL", symcc.SHL, 0x81, 1, 0x02},
		{"SHLOverflow", symcc.SHL, 0x81, 8, 0},
		{"LSHR", symcc.LSHR, 0x80, 7, 1},
		{"LSHROverflow", symcc.LSHR, 0x80, 200, 0},
		{"ASHR", symcc.ASHR, 0x80, 1, 0xC0},
		{"ASHRPositive", symcc.ASHR, 0x40, 2, 0x10},
		{"ASHROverflowNegative", symcc.ASHR, 0x80, 9, 0xFF},
		{"ASHROverflowPositive", symcc.ASHR, 0x7F, 9, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := symcc.NewBinaryExpr(tt.op, symcc.NewConstantExpr(tt.lhs, 8), symcc.NewConstantExpr(tt.rhs, 8))
			if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(tt.exp, 8))); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	t.Run("ByZero", func(t *testing.T) {
		x := symcc.NewReadExpr(0)
		if got := symcc.NewBinaryExpr(symcc.LSHR, x, symcc.NewConstantExpr(0, 8)); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
}

func TestNewBinaryExpr_EQ(t *testing.T) {
	x := symcc.NewReadExpr(0)

	t.Run("Constant", func(t *testing.T) {
		if got := symcc.NewBinaryExpr(symcc.EQ, symcc.NewConstantExpr(3, 8), symcc.NewConstantExpr(3, 8)); !symcc.IsConstantTrue(got) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("Self", func(t *testing.T) {
		if got := symcc.NewBinaryExpr(symcc.EQ, x, symcc.NewReadExpr(0)); !symcc.IsConstantTrue(got) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("ConstantLHS", func(t *testing.T) {
		if s := symcc.NewBinaryExpr(symcc.EQ, x, symcc.NewConstantExpr(5, 8)).String(); s != "(eq (const 5 8) (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("SExt", func(t *testing.T) {
		t.Run("InRange", func(t *testing.T) {
			got := symcc.NewBinaryExpr(symcc.EQ, symcc.NewConstantExpr(0xFFFF, 16), symcc.NewCastExpr(x, 16, true))
			if s := got.String(); s != "(eq (const 255 8) (read 0))" {
				t.Fatalf("unexpected string: %s", s)
			}
		})
		t.Run("OutOfRange", func(t *testing.T) {
			got := symcc.NewBinaryExpr(symcc.EQ, symcc.NewConstantExpr(0x00FF, 16), symcc.NewCastExpr(x, 16, true))
			if !symcc.IsConstantFalse(got) {
				t.Fatalf("unexpected expr: %s", got)
			}
		})
	})
	t.Run("ZExt", func(t *testing.T) {
		got := symcc.NewBinaryExpr(symcc.EQ, symcc.NewConstantExpr(0x0100, 16), symcc.NewCastExpr(x, 16, false))
		if !symcc.IsConstantFalse(got) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("Add", func(t *testing.T) {
		sum := symcc.NewBinaryExpr(symcc.ADD, symcc.NewConstantExpr(2, 8), x)
		if s := symcc.NewBinaryExpr(symcc.EQ, symcc.NewConstantExpr(10, 8), sum).String(); s != "(eq (const 8 8) (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("DoubleNegation", func(t *testing.T) {
		cond := symcc.NewBinaryExpr(symcc.ULT, x, symcc.NewReadExpr(1))
		if got := symcc.NewIsZeroExpr(symcc.NewIsZeroExpr(cond)); got != cond {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
}

func TestNewBinaryExpr_NE(t *testing.T) {
	got := symcc.NewBinaryExpr(symcc.NE, symcc.NewReadExpr(0), symcc.NewConstantExpr(5, 8))
	if s := got.String(); s != "(eq (const 0 1) (eq (const 5 8) (read 0)))" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestNewBinaryExpr_Compare(t *testing.T) {
	x := symcc.NewReadExpr(0)

	t.Run("Reverse", func(t *testing.T) {
		for _, tt := range []struct {
			op  symcc.BinaryOp
			exp string
		}{
			{symcc.UGT, "(ult (const 5 8) (read 0))"},
			{symcc.UGE, "(ule (const 5 8) (read 0))"},
			{symcc.SGT, "(slt (const 5 8) (read 0))"},
			{symcc.SGE, "(sle (const 5 8) (read 0))"},
		} {
			if s := symcc.NewBinaryExpr(tt.op, x, symcc.NewConstantExpr(5, 8)).String(); s != tt.exp {
				t.Fatalf("%s: unexpected string: %s", tt.op, s)
			}
		}
	})
	t.Run("Constant", func(t *testing.T) {
		for _, tt := range []struct {
			op       symcc.BinaryOp
			lhs, rhs uint64
			exp      bool
		}{
			{symcc.ULT, 0x7F, 0x80, true},
			{symcc.SLT, 0x7F, 0x80, false},
			{symcc.SLT, 0x80, 0x7F, true},
			{symcc.ULE, 3, 3, true},
			{symcc.SLE, 0xFF, 0, true},
			{symcc.UGT, 0xFF, 0, true},
			{symcc.SGE, 0, 0xFF, true},
		} {
			got := symcc.NewBinaryExpr(tt.op, symcc.NewConstantExpr(tt.lhs, 8), symcc.NewConstantExpr(tt.rhs, 8))
			if diff := cmp.Diff(got, symcc.Expr(symcc.NewBoolConstantExpr(tt.exp))); diff != "" {
				t.Fatalf("%s(%d,%d): %s", tt.op, tt.lhs, tt.rhs, diff)
			}
		}
	})
}

func TestNewConcatExpr(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		got := symcc.NewConcatExpr(symcc.NewConstantExpr(0x80, 8), symcc.NewConstantExpr(0xFF, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0x80FF, 16))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Extract", func(t *testing.T) {
		x := symcc.NewConcatExpr(symcc.NewReadExpr(1), symcc.NewReadExpr(0))
		src := symcc.NewBinaryExpr(symcc.MUL, x, x)
		got := symcc.NewConcatExpr(symcc.NewExtractExpr(src, 8, 8), symcc.NewExtractExpr(src, 0, 8))
		if got != src {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("Symbolic", func(t *testing.T) {
		got := symcc.NewConcatExpr(symcc.NewReadExpr(1), symcc.NewReadExpr(0))
		if s := got.String(); s != "(concat (read 1) (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestNewExtractExpr(t *testing.T) {
	x := symcc.NewConcatExpr(symcc.NewReadExpr(1), symcc.NewReadExpr(0))

	t.Run("Constant", func(t *testing.T) {
		got := symcc.NewExtractExpr(symcc.NewConstantExpr(0xAABB, 16), 8, 8)
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0xAA, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("FullWidth", func(t *testing.T) {
		if got := symcc.NewExtractExpr(x, 0, 16); got != x {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("ConcatMSB", func(t *testing.T) {
		if s := symcc.NewExtractExpr(x, 8, 8).String(); s != "(read 1)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("ConcatLSB", func(t *testing.T) {
		if s := symcc.NewExtractExpr(x, 2, 4).String(); s != "(extract (read 0) 2 4)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("ConcatSpan", func(t *testing.T) {
		if s := symcc.NewExtractExpr(x, 4, 8).String(); s != "(concat (extract (read 1) 0 4) (extract (read 0) 4 4))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Nested", func(t *testing.T) {
		sum := symcc.NewBinaryExpr(symcc.ADD, x, symcc.NewConcatExpr(symcc.NewReadExpr(3), symcc.NewReadExpr(2)))
		got := symcc.NewExtractExpr(symcc.NewExtractExpr(sum, 4, 8), 2, 4)
		if exp := symcc.NewExtractExpr(sum, 6, 4); symcc.CompareExpr(got, exp) != 0 {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("Cast", func(t *testing.T) {
		got := symcc.NewExtractExpr(symcc.NewCastExpr(symcc.NewReadExpr(0), 32, true), 0, 8)
		if s := got.String(); s != "(read 0)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("OutOfBounds", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		symcc.NewExtractExpr(x, 12, 8)
	})
}

func TestNewNotExpr(t *testing.T) {
	x := symcc.NewReadExpr(0)

	t.Run("Constant", func(t *testing.T) {
		got := symcc.NewNotExpr(symcc.NewConstantExpr(0x0F, 8))
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0xF0, 8))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Double", func(t *testing.T) {
		if got := symcc.NewNotExpr(symcc.NewNotExpr(x)); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("String", func(t *testing.T) {
		if s := symcc.NewNotExpr(x).String(); s != "(not (read 0))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestNewCastExpr(t *testing.T) {
	x := symcc.NewReadExpr(0)

	t.Run("SameWidth", func(t *testing.T) {
		if got := symcc.NewCastExpr(x, 8, true); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("Truncate", func(t *testing.T) {
		if s := symcc.NewCastExpr(x, 4, false).String(); s != "(extract (read 0) 0 4)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("ConstantSigned", func(t *testing.T) {
		got := symcc.NewCastExpr(symcc.NewConstantExpr(0x80, 8), 16, true)
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0xFF80, 16))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ConstantUnsigned", func(t *testing.T) {
		got := symcc.NewCastExpr(symcc.NewConstantExpr(0x80, 8), 16, false)
		if diff := cmp.Diff(got, symcc.Expr(symcc.NewConstantExpr(0x80, 16))); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("String", func(t *testing.T) {
		if s := symcc.NewCastExpr(x, 16, true).String(); s != "(sext (read 0) 16)" {
			t.Fatalf("unexpected string: %s", s)
		} else if s := symcc.NewCastExpr(x, 16, false).String(); s != "(zext (read 0) 16)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestNewIteExpr(t *testing.T) {
	x, y := symcc.NewReadExpr(0), symcc.NewReadExpr(1)
	cond := symcc.NewBinaryExpr(symcc.ULT, x, y)

	t.Run("ConstantCondition", func(t *testing.T) {
		if got := symcc.NewIteExpr(symcc.NewBoolConstantExpr(true), x, y); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		} else if got := symcc.NewIteExpr(symcc.NewBoolConstantExpr(false), x, y); got != symcc.Expr(y) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("SameBranches", func(t *testing.T) {
		if got := symcc.NewIteExpr(cond, x, symcc.NewReadExpr(0)); got != symcc.Expr(x) {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("BoolToBit", func(t *testing.T) {
		if got := symcc.NewIteExpr(cond, symcc.NewBoolConstantExpr(true), symcc.NewBoolConstantExpr(false)); got != cond {
			t.Fatalf("unexpected expr: %s", got)
		}
	})
	t.Run("String", func(t *testing.T) {
		if s := symcc.NewIteExpr(cond, x, y).String(); s != "(ite (ult (read 0) (read 1)) (read 0) (read 1))" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

// Wide constants must agree with arbitrary-precision arithmetic modulo 2^128.
func TestConstantExpr_Width128(t *testing.T) {
	mod := new(big.Int).Lsh(big.NewInt(1), 128)
	values := [][2]uint64{
		{0, 1},
		{1, 0},
		{0xFFFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF},
		{0x0123456789ABCDEF, 0xFEDCBA9876543210},
		{0x8000000000000000, 3},
		{0, 0xFFFFFFFFFFFFFFFF},
	}

	toBig := func(v [2]uint64) *big.Int {
		x := new(big.Int).Lsh(new(big.Int).SetUint64(v[0]), 64)
		return x.Or(x, new(big.Int).SetUint64(v[1]))
	}

	for _, tt := range []struct {
		name string
		fn   func(a, b *symcc.ConstantExpr) *symcc.ConstantExpr
		exp  func(a, b *big.Int) *big.Int
	}{
		{"Add", (*symcc.ConstantExpr).Add, func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }},
		{"Sub", (*symcc.ConstantExpr).Sub, func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }},
		{"Mul", (*symcc.ConstantExpr).Mul, func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) }},
		{"UDiv", (*symcc.ConstantExpr).UDiv, func(a, b *big.Int) *big.Int {
			if b.Sign() == 0 {
				return new(big.Int).Sub(mod, big.NewInt(1))
			}
			return new(big.Int).Div(a, b)
		}},
		{"URem", (*symcc.ConstantExpr).URem, func(a, b *big.Int) *big.Int {
			if b.Sign() == 0 {
				return a
			}
			return new(big.Int).Mod(a, b)
		}},
		{"Xor", (*symcc.ConstantExpr).Xor, func(a, b *big.Int) *big.Int { return new(big.Int).Xor(a, b) }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range values {
				for _, b := range values {
					got := tt.fn(symcc.NewConstantExpr128(a[0], a[1]), symcc.NewConstantExpr128(b[0], b[1]))
					exp := new(big.Int).Mod(tt.exp(toBig(a), toBig(b)), mod)
					if got.Width != 128 {
						t.Fatalf("unexpected width: %d", got.Width)
					} else if got.Big().Cmp(exp) != 0 {
						t.Fatalf("%x, %x: got %s, expected %s", a, b, got.Big(), exp)
					}
				}
			}
		})
	}

	t.Run("String", func(t *testing.T) {
		if s := symcc.NewConstantExpr128(1, 0).String(); s != "(const 18446744073709551616 128)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("SExt", func(t *testing.T) {
		got := symcc.NewConstantExpr(0x8000000000000000, 64).SExt(128)
		if diff := cmp.Diff(got, symcc.NewConstantExpr128(0xFFFFFFFFFFFFFFFF, 0x8000000000000000)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ZExt", func(t *testing.T) {
		got := symcc.NewConstantExpr(0x8000000000000000, 64).ZExt(128)
		if diff := cmp.Diff(got, symcc.NewConstantExpr128(0, 0x8000000000000000)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Extract", func(t *testing.T) {
		got := symcc.NewConstantExpr128(0xAA, 0xBB).Extract(64, 64)
		if diff := cmp.Diff(got, symcc.NewConstantExpr(0xAA, 64)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Slt", func(t *testing.T) {
		neg := symcc.NewConstantExpr128(0x8000000000000000, 0)
		if !neg.Slt(symcc.NewConstantExpr128(0, 1)).IsTrue() {
			t.Fatal("expected true")
		} else if neg.Ult(symcc.NewConstantExpr128(0, 1)).IsTrue() {
			t.Fatal("expected false")
		}
	})
}

func TestConstantExpr_SExt(t *testing.T) {
	t.Run("SameWidth", func(t *testing.T) {
		i32 := int32(-100)
		got := symcc.NewConstantExpr(uint64(uint32(i32)), 32).SExt(32)
		if diff := cmp.Diff(got, symcc.NewConstantExpr(uint64(uint32(i32)), 32)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Negative", func(t *testing.T) {
		i8, i64 := int8(-100), int64(-100)
		got := symcc.NewConstantExpr(uint64(uint8(i8)), 8).SExt(64)
		if diff := cmp.Diff(got, symcc.NewConstantExpr(uint64(i64), 64)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Positive", func(t *testing.T) {
		got := symcc.NewConstantExpr(100, 8).SExt(32)
		if diff := cmp.Diff(got, symcc.NewConstantExpr(100, 32)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Bool", func(t *testing.T) {
		got := symcc.NewBoolConstantExpr(true).SExt(8)
		if diff := cmp.Diff(got, symcc.NewConstantExpr(0xFF, 8)); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestConstantExpr_Bit(t *testing.T) {
	c := symcc.NewConstantExpr128(1, 0x5)
	for _, tt := range []struct {
		i   uint
		exp bool
	}{{0, true}, {1, false}, {2, true}, {63, false}, {64, true}, {127, false}} {
		if got := c.Bit(tt.i); got != tt.exp {
			t.Fatalf("bit %d: got %v", tt.i, got)
		}
	}
}

func TestIsConstantTrue(t *testing.T) {
	if !symcc.IsConstantTrue(symcc.NewBoolConstantExpr(true)) {
		t.Fatal("expected true")
	} else if symcc.IsConstantTrue(symcc.NewConstantExpr(1, 8)) {
		t.Fatal("expected false for non-bool")
	} else if symcc.IsConstantTrue(symcc.NewReadExpr(0)) {
		t.Fatal("expected false for non-constant")
	}
}

func TestIsConstantFalse(t *testing.T) {
	if !symcc.IsConstantFalse(symcc.NewBoolConstantExpr(false)) {
		t.Fatal("expected true")
	} else if symcc.IsConstantFalse(symcc.NewConstantExpr(0, 8)) {
		t.Fatal("expected false for non-bool")
	}
}

func TestCompareExpr(t *testing.T) {
	x, y := symcc.NewReadExpr(0), symcc.NewReadExpr(1)
	for _, tt := range []struct {
		name string
		a, b symcc.Expr
		exp  int
	}{
		{"Equal", symcc.NewBinaryExpr(symcc.ULT, x, y), symcc.NewBinaryExpr(symcc.ULT, symcc.NewReadExpr(0), symcc.NewReadExpr(1)), 0},
		{"Kind", symcc.NewConstantExpr(100, 8), x, -1},
		{"ReadOffset", y, x, 1},
		{"ConstantWidth", symcc.NewConstantExpr(1, 8), symcc.NewConstantExpr(0, 16), -1},
		{"CastSigned", symcc.NewCastExpr(x, 16, true), symcc.NewCastExpr(x, 16, false), -1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := symcc.CompareExpr(tt.a, tt.b); got != tt.exp {
				t.Fatalf("unexpected result: %d", got)
			}
		})
	}
}

func TestWalkExpr(t *testing.T) {
	x := symcc.NewConcatExpr(symcc.NewReadExpr(1), symcc.NewReadExpr(0))
	expr := symcc.NewBinaryExpr(symcc.MUL, x, x)

	var visited []string
	symcc.WalkExpr(exprVisitorFunc(func(e symcc.Expr) bool {
		visited = append(visited, e.String())
		return true
	}), expr)

	if diff := cmp.Diff(visited, []string{
		"(mul (concat (read 1) (read 0)) (concat (read 1) (read 0)))",
		"(concat (read 1) (read 0))",
		"(read 1)",
		"(read 0)",
	}); diff != "" {
		t.Fatal(diff)
	}
}

func TestFindReads(t *testing.T) {
	a := symcc.NewBinaryExpr(symcc.ULT, symcc.NewReadExpr(9), symcc.NewReadExpr(2))
	b := symcc.NewBinaryExpr(symcc.EQ, symcc.NewReadExpr(2), symcc.NewReadExpr(4))

	var offsets []uint64
	for _, read := range symcc.FindReads(a, b) {
		offsets = append(offsets, read.Offset)
	}
	if diff := cmp.Diff(offsets, []uint64{2, 4, 9}); diff != "" {
		t.Fatal(diff)
	}
}

func TestExprEvaluator_Evaluate(t *testing.T) {
	x := symcc.NewConcatExpr(symcc.NewReadExpr(1), symcc.NewReadExpr(0))

	t.Run("OK", func(t *testing.T) {
		expr := symcc.NewIteExpr(
			symcc.NewBinaryExpr(symcc.SLT, x, symcc.NewConstantExpr(0, 16)),
			symcc.NewNotExpr(x),
			symcc.NewCastExpr(symcc.NewExtractExpr(x, 4, 8), 16, true),
		)
		got, err := symcc.NewExprEvaluator([]byte{0xBB, 0x0A}).Evaluate(expr)
		if err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(got, symcc.NewConstantExpr(0xFFAB, 16)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("Negative", func(t *testing.T) {
		expr := symcc.NewIteExpr(
			symcc.NewBinaryExpr(symcc.SLT, x, symcc.NewConstantExpr(0, 16)),
			symcc.NewNotExpr(x),
			symcc.NewConstantExpr(0, 16),
		)
		got, err := symcc.NewExprEvaluator([]byte{0x00, 0xFF}).Evaluate(expr)
		if err != nil {
			t.Fatal(err)
		} else if diff := cmp.Diff(got, symcc.NewConstantExpr(0x00FF, 16)); diff != "" {
			t.Fatal(diff)
		}
	})
	t.Run("ErrInputOutOfRange", func(t *testing.T) {
		if _, err := symcc.NewExprEvaluator([]byte{1}).Evaluate(x); !errors.Is(err, symcc.ErrInputOutOfRange) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("ErrWideCast", func(t *testing.T) {
		expr := symcc.NewCastExpr(symcc.NewConstantExpr128(1, 2), 328, false)
		if _, ok := expr.(*symcc.CastExpr); !ok {
			t.Fatalf("expected cast, got %s", expr)
		} else if _, err := symcc.NewExprEvaluator(nil).Evaluate(expr); err == nil {
			t.Fatal("expected error")
		}
	})
}

type exprVisitorFunc func(symcc.Expr) bool

func (fn exprVisitorFunc) Visit(expr symcc.Expr) symcc.ExprVisitor {
	if fn(expr) {
		return fn
	}
	return nil
}
