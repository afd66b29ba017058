//go:build z3

package z3_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	symcc "github.com/y4ngyy/SymCC-Modified"
	"github.com/y4ngyy/SymCC-Modified/z3"
)

func TestSolver_Solve(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		t.Run("True", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if satisfiable, _, err := s.Solve([]symcc.Expr{symcc.NewBoolConstantExpr(true)}, nil); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("False", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if satisfiable, _, err := s.Solve([]symcc.Expr{symcc.NewBoolConstantExpr(false)}, nil); err != nil {
				t.Fatal(err)
			} else if satisfiable {
				t.Fatal("expected unsatisfiable")
			}
		})
		t.Run("Width128", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			x := symcc.NewCastExpr(symcc.NewReadExpr(0), symcc.Width128, false)
			c := symcc.NewConstantExpr128(1, 0)
			constraints := []symcc.Expr{symcc.NewBinaryExpr(symcc.ULT, x, c)}
			if satisfiable, _, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			}
		})
	})

	t.Run("Read", func(t *testing.T) {
		t.Run("Width8", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			constraints := []symcc.Expr{symcc.NewBinaryExpr(symcc.EQ, symcc.NewReadExpr(0), symcc.NewConstantExpr(10, 8))}
			if satisfiable, values, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if diff := cmp.Diff(values, []byte{10}); diff != "" {
				t.Fatal(diff)
			}
		})
		t.Run("Width16", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			x := symcc.NewConcatExpr(symcc.NewReadExpr(1), symcc.NewReadExpr(0))
			constraints := []symcc.Expr{symcc.NewBinaryExpr(symcc.EQ, x, symcc.NewConstantExpr(0xAABB, 16))}
			if satisfiable, values, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if diff := cmp.Diff(values, []byte{0xBB, 0xAA}); diff != "" {
				t.Fatal(diff)
			}
		})
	})

	t.Run("Extract", func(t *testing.T) {
		t.Run("Bool", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			x := symcc.NewReadExpr(0)
			constraints := []symcc.Expr{
				symcc.NewExtractExpr(x, 2, 1),
				symcc.NewBinaryExpr(symcc.ULT, x, symcc.NewConstantExpr(5, 8)),
			}
			if satisfiable, values, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if diff := cmp.Diff(values, []byte{4}); diff != "" {
				t.Fatal(diff)
			}
		})
	})

	t.Run("Cast", func(t *testing.T) {
		t.Run("Signed", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			x := symcc.NewCastExpr(symcc.NewReadExpr(0), 32, true)
			constraints := []symcc.Expr{symcc.NewBinaryExpr(symcc.EQ, x, symcc.NewConstantExpr(0xFFFFFF80, 32))}
			if satisfiable, values, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if diff := cmp.Diff(values, []byte{0x80}); diff != "" {
				t.Fatal(diff)
			}
		})
		t.Run("SignedBool", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			cond := symcc.NewBinaryExpr(symcc.EQ, symcc.NewReadExpr(0), symcc.NewConstantExpr(7, 8))
			constraints := []symcc.Expr{
				symcc.NewBinaryExpr(symcc.EQ, symcc.NewCastExpr(cond, 16, true), symcc.NewConstantExpr(0xFFFF, 16)),
			}
			if satisfiable, values, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			} else if diff := cmp.Diff(values, []byte{7}); diff != "" {
				t.Fatal(diff)
			}
		})
	})

	t.Run("Ite", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)
		x := symcc.NewReadExpr(0)
		ite := symcc.NewIteExpr(
			symcc.NewBinaryExpr(symcc.UGT, x, symcc.NewConstantExpr(100, 8)),
			symcc.NewConstantExpr(1, 8),
			symcc.NewConstantExpr(2, 8),
		)
		constraints := []symcc.Expr{
			symcc.NewBinaryExpr(symcc.EQ, ite, symcc.NewConstantExpr(1, 8)),
			symcc.NewBinaryExpr(symcc.ULT, x, symcc.NewConstantExpr(102, 8)),
		}
		if satisfiable, values, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		} else if diff := cmp.Diff(values, []byte{101}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("DivisionByZero", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)
		x := symcc.NewReadExpr(0)
		constraints := []symcc.Expr{
			symcc.NewBinaryExpr(symcc.EQ, symcc.NewReadExpr(1), symcc.NewConstantExpr(0, 8)),
			symcc.NewBinaryExpr(symcc.EQ, symcc.NewBinaryExpr(symcc.UDIV, x, symcc.NewReadExpr(1)), symcc.NewConstantExpr(0xFF, 8)),
			symcc.NewBinaryExpr(symcc.EQ, x, symcc.NewConstantExpr(3, 8)),
		}
		if satisfiable, _, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		}
	})

	t.Run("Unsatisfiable", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)
		x := symcc.NewReadExpr(0)
		constraints := []symcc.Expr{
			symcc.NewBinaryExpr(symcc.ULT, x, symcc.NewConstantExpr(10, 8)),
			symcc.NewBinaryExpr(symcc.UGT, x, symcc.NewConstantExpr(20, 8)),
		}
		if satisfiable, _, err := s.Solve(constraints, symcc.FindReads(constraints...)); err != nil {
			t.Fatal(err)
		} else if satisfiable {
			t.Fatal("expected unsatisfiable")
		} else if got := s.Stats().SolveN; got != 1 {
			t.Fatalf("unexpected solve count: %d", got)
		}
	})
}

// MustCloseSolver closes s. Panic on error.
func MustCloseSolver(s *z3.Solver) {
	if err := s.Close(); err != nil {
		panic(err)
	}
}
