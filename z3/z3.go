//go:build z3

// Package z3 implements a symcc.Solver on top of the Z3 C API.
package z3

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	symcc "github.com/y4ngyy/SymCC-Modified"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
*/
import "C"

// Ensure solver implements interface.
var _ symcc.Solver = (*Solver)(nil)

// Solver represents a solver that uses an embedded Z3 solver.
type Solver struct {
	// Maximum time spent in a single query. Zero means no limit.
	Timeout time.Duration

	ctx   *Context
	stats Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	return &Solver{
		ctx: NewContext(),
	}
}

// Close deletes the underlying Z3 context.
func (s *Solver) Close() error {
	return s.ctx.Close()
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

	solver := C.Z3_mk_solver(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_solver"); err != nil {
		return false, nil, err
	}
	C.Z3_solver_inc_ref(s.ctx.raw, solver)
	defer C.Z3_solver_dec_ref(s.ctx.raw, solver)

	if s.Timeout > 0 {
		if err := s.ctx.setTimeout(solver, s.Timeout); err != nil {
			return false, nil, err
		}
	}

	for _, constraint := range constraints {
		ast, err := s.ctx.toBoolAST(constraint)
		if err != nil {
			return false, nil, err
		}
		C.Z3_solver_assert(s.ctx.raw, solver, ast)
		if err := s.ctx.err("Z3_solver_assert"); err != nil {
			return false, nil, err
		}
	}

	// Exit immediately if unsatisfiable or the solver encountered an error.
	ret := C.Z3_solver_check(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return false, nil, err
	} else if ret == C.Z3_L_FALSE {
		return false, nil, nil
	} else if ret == C.Z3_L_UNDEF {
		reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, solver))
		switch {
		case strings.Contains(reason, "timeout"):
			return false, nil, symcc.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return false, nil, symcc.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return false, nil, symcc.ErrSolverResourceLimit
		case strings.Contains(reason, "unknown"):
			return false, nil, symcc.ErrSolverUnknown
		default:
			return false, nil, fmt.Errorf("z3: %s", reason)
		}
	} else if len(reads) == 0 {
		return true, nil, nil // no symbolics, ignore model
	}

	model := C.Z3_solver_get_model(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_get_model"); err != nil {
		return true, nil, err
	}
	C.Z3_model_inc_ref(s.ctx.raw, model)
	defer C.Z3_model_dec_ref(s.ctx.raw, model)

	if values, err = s.ctx.eval(model, reads); err != nil {
		return true, nil, err
	}
	return true, values, nil
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

func (ctx *Context) setTimeout(solver C.Z3_solver, d time.Duration) error {
	params := C.Z3_mk_params(ctx.raw)
	C.Z3_params_inc_ref(ctx.raw, params)
	defer C.Z3_params_dec_ref(ctx.raw, params)

	name := C.CString("timeout")
	defer C.free(unsafe.Pointer(name))
	C.Z3_params_set_uint(ctx.raw, params, C.Z3_mk_string_symbol(ctx.raw, name), C.uint(d.Milliseconds()))
	C.Z3_solver_set_params(ctx.raw, solver, params)
	return ctx.err("Z3_solver_set_params")
}

// toBoolAST returns a boolean Z3 term for a single-bit expression.
func (ctx *Context) toBoolAST(expr symcc.Expr) (C.Z3_ast, error) {
	if w := symcc.ExprWidth(expr); w != symcc.WidthBool {
		return nil, fmt.Errorf("z3.Context.toBoolAST: expected boolean expression, got width %d", w)
	}
	ast, err := ctx.toAST(expr)
	if err != nil {
		return nil, err
	}
	return ctx.isOne(ast)
}

// toAST returns a bit-vector Z3 term for expr. Booleans are one-bit vectors.
func (ctx *Context) toAST(expr symcc.Expr) (C.Z3_ast, error) {
	switch expr := expr.(type) {
	case *symcc.ConstantExpr:
		return ctx.makeConstant(expr)
	case *symcc.ReadExpr:
		return ctx.makeRead(expr.Offset)
	case *symcc.ConcatExpr:
		return ctx.toConcatAST(expr)
	case *symcc.ExtractExpr:
		return ctx.toExtractAST(expr)
	case *symcc.CastExpr:
		return ctx.toCastAST(expr)
	case *symcc.NotExpr:
		src, err := ctx.toAST(expr.Expr)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_bvnot(ctx.raw, src), ctx.err("Z3_mk_bvnot")
	case *symcc.IteExpr:
		return ctx.toIteAST(expr)
	case *symcc.BinaryExpr:
		return ctx.toBinaryAST(expr)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid expression type: %T", expr)
	}
}

func (ctx *Context) toConcatAST(expr *symcc.ConcatExpr) (C.Z3_ast, error) {
	msb, err := ctx.toAST(expr.MSB)
	if err != nil {
		return nil, err
	}
	lsb, err := ctx.toAST(expr.LSB)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(ctx.raw, msb, lsb), ctx.err("Z3_mk_concat")
}

func (ctx *Context) toExtractAST(expr *symcc.ExtractExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_extract(ctx.raw, C.uint(expr.Offset+expr.Width-1), C.uint(expr.Offset), src), ctx.err("Z3_mk_extract")
}

func (ctx *Context) toCastAST(expr *symcc.CastExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Src)
	if err != nil {
		return nil, err
	}
	n := C.uint(expr.Width - symcc.ExprWidth(expr.Src))
	if expr.Signed {
		return C.Z3_mk_sign_ext(ctx.raw, n, src), ctx.err("Z3_mk_sign_ext")
	}
	return C.Z3_mk_zero_ext(ctx.raw, n, src), ctx.err("Z3_mk_zero_ext")
}

func (ctx *Context) toIteAST(expr *symcc.IteExpr) (C.Z3_ast, error) {
	cond, err := ctx.toBoolAST(expr.Cond)
	if err != nil {
		return nil, err
	}
	then, err := ctx.toAST(expr.Then)
	if err != nil {
		return nil, err
	}
	els, err := ctx.toAST(expr.Else)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, then, els), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toBinaryAST(expr *symcc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	var ast C.Z3_ast
	switch expr.Op {
	case symcc.ADD:
		ast = C.Z3_mk_bvadd(ctx.raw, lhs, rhs)
	case symcc.SUB:
		ast = C.Z3_mk_bvsub(ctx.raw, lhs, rhs)
	case symcc.MUL:
		ast = C.Z3_mk_bvmul(ctx.raw, lhs, rhs)
	case symcc.UDIV:
		ast = C.Z3_mk_bvudiv(ctx.raw, lhs, rhs)
	case symcc.SDIV:
		ast = C.Z3_mk_bvsdiv(ctx.raw, lhs, rhs)
	case symcc.UREM:
		ast = C.Z3_mk_bvurem(ctx.raw, lhs, rhs)
	case symcc.SREM:
		ast = C.Z3_mk_bvsrem(ctx.raw, lhs, rhs)
	case symcc.AND:
		ast = C.Z3_mk_bvand(ctx.raw, lhs, rhs)
	case symcc.OR:
		ast = C.Z3_mk_bvor(ctx.raw, lhs, rhs)
	case symcc.XOR:
		ast = C.Z3_mk_bvxor(ctx.raw, lhs, rhs)
	case symcc.SHL:
		ast = C.Z3_mk_bvshl(ctx.raw, lhs, rhs)
	case symcc.LSHR:
		ast = C.Z3_mk_bvlshr(ctx.raw, lhs, rhs)
	case symcc.ASHR:
		ast = C.Z3_mk_bvashr(ctx.raw, lhs, rhs)

	case symcc.EQ:
		return ctx.toBit(C.Z3_mk_eq(ctx.raw, lhs, rhs))
	case symcc.NE:
		return ctx.toBit(C.Z3_mk_not(ctx.raw, C.Z3_mk_eq(ctx.raw, lhs, rhs)))
	case symcc.ULT:
		return ctx.toBit(C.Z3_mk_bvult(ctx.raw, lhs, rhs))
	case symcc.ULE:
		return ctx.toBit(C.Z3_mk_bvule(ctx.raw, lhs, rhs))
	case symcc.UGT:
		return ctx.toBit(C.Z3_mk_bvugt(ctx.raw, lhs, rhs))
	case symcc.UGE:
		return ctx.toBit(C.Z3_mk_bvuge(ctx.raw, lhs, rhs))
	case symcc.SLT:
		return ctx.toBit(C.Z3_mk_bvslt(ctx.raw, lhs, rhs))
	case symcc.SLE:
		return ctx.toBit(C.Z3_mk_bvsle(ctx.raw, lhs, rhs))
	case symcc.SGT:
		return ctx.toBit(C.Z3_mk_bvsgt(ctx.raw, lhs, rhs))
	case symcc.SGE:
		return ctx.toBit(C.Z3_mk_bvsge(ctx.raw, lhs, rhs))

	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", expr.Op)
	}
	return ast, ctx.err("Z3_mk_bv" + expr.Op.String())
}

// toBit converts a boolean term into a one-bit vector.
func (ctx *Context) toBit(cond C.Z3_ast) (C.Z3_ast, error) {
	if err := ctx.err("Z3_mk_cmp"); err != nil {
		return nil, err
	}
	one, err := ctx.makeUint64(1, 1)
	if err != nil {
		return nil, err
	}
	zero, err := ctx.makeUint64(1, 0)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, one, zero), ctx.err("Z3_mk_ite")
}

// isOne converts a one-bit vector into a boolean term.
func (ctx *Context) isOne(ast C.Z3_ast) (C.Z3_ast, error) {
	one, err := ctx.makeUint64(1, 1)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_eq(ctx.raw, ast, one), ctx.err("Z3_mk_eq")
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(value), t), ctx.err("Z3_mk_unsigned_int64")
}

func (ctx *Context) makeConstant(expr *symcc.ConstantExpr) (C.Z3_ast, error) {
	if expr.Width <= 64 {
		return ctx.makeUint64(expr.Width, expr.Uint64())
	}

	// Wide constants go through their decimal representation.
	t, err := ctx.makeBVSort(expr.Width)
	if err != nil {
		return nil, err
	}
	cstr := C.CString(expr.Big().String())
	defer C.free(unsafe.Pointer(cstr))
	return C.Z3_mk_numeral(ctx.raw, cstr, t), ctx.err("Z3_mk_numeral")
}

// makeRead returns the byte-sized constant standing for the input at offset.
func (ctx *Context) makeRead(offset uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(symcc.Width8)
	if err != nil {
		return nil, err
	}
	cname := C.CString(readName(offset))
	defer C.free(unsafe.Pointer(cname))
	return C.Z3_mk_const(ctx.raw, C.Z3_mk_string_symbol(ctx.raw, cname), t), ctx.err("Z3_mk_const")
}

// eval returns the model value of each read.
func (ctx *Context) eval(model C.Z3_model, reads []*symcc.ReadExpr) ([]byte, error) {
	values := make([]byte, 0, len(reads))
	for _, read := range reads {
		ast, err := ctx.makeRead(read.Offset)
		if err != nil {
			return nil, err
		}

		var result C.Z3_ast
		C.Z3_model_eval(ctx.raw, model, ast, C.bool(true), &result)
		if err := ctx.err("Z3_model_eval"); err != nil {
			return nil, err
		}

		var v C.uint
		C.Z3_get_numeral_uint(ctx.raw, result, &v)
		if err := ctx.err("Z3_get_numeral_uint"); err != nil {
			return nil, err
		}
		values = append(values, byte(v))
	}
	return values, nil
}

func readName(offset uint64) string {
	return fmt.Sprintf("k!%d", offset)
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats represents statistics for the solver.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
