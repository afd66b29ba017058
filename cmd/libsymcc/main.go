// Command libsymcc exposes the runtime through the C ABI expected by
// instrumented programs. Build with -buildmode=c-shared.
package main

/*
#include <stdlib.h>
#include "symcc.h"
*/
import "C"

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	symcc "github.com/y4ngyy/SymCC-Modified"
	"github.com/y4ngyy/SymCC-Modified/internal/backend"
)

var (
	initOnce sync.Once
	rt       *symcc.Runtime
	roots    regions

	exprString *C.char // static buffer returned by _sym_expr_to_string
)

func main() {}

// runtime returns the process runtime, initializing it on first use.
// Configuration errors terminate the process.
func runtime() *symcc.Runtime {
	initOnce.Do(func() {
		r, err := openRuntime(os.LookupEnv, &roots)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		rt = r
		exprString = (*C.char)(C.malloc(symcc.MaxExprStringLen + 1))
	})
	return rt
}

// openRuntime returns an initialized runtime configured from the environment.
func openRuntime(getenv func(string) (string, bool), roots symcc.RootSet) (*symcc.Runtime, error) {
	config, err := symcc.ConfigFromEnv(getenv)
	if err != nil {
		return nil, err
	}
	b, err := backend.Open(config)
	if err != nil {
		return nil, err
	}
	b.Runtime.Roots = roots
	if err := b.Runtime.Initialize(); err != nil {
		b.Close()
		return nil, err
	}
	return b.Runtime, nil
}

func handle(e C.SymExpr) symcc.Handle { return symcc.Handle(e) }
func symExpr(h symcc.Handle) C.SymExpr { return C.SymExpr(h) }

func binary(op symcc.BinaryOp, a, b C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildBinary(op, handle(a), handle(b)))
}

//export _sym_initialize
func _sym_initialize() { runtime() }

//export _sym_build_integer
func _sym_build_integer(value C.uint64_t, bits C.uint8_t) C.SymExpr {
	return symExpr(runtime().BuildInteger(uint64(value), uint8(bits)))
}

//export _sym_build_integer128
func _sym_build_integer128(high, low C.uint64_t) C.SymExpr {
	return symExpr(runtime().BuildInteger128(uint64(high), uint64(low)))
}

//export _sym_build_null_pointer
func _sym_build_null_pointer() C.SymExpr { return symExpr(runtime().BuildNullPointer()) }

//export _sym_build_true
func _sym_build_true() C.SymExpr { return symExpr(runtime().BuildTrue()) }

//export _sym_build_false
func _sym_build_false() C.SymExpr { return symExpr(runtime().BuildFalse()) }

//export _sym_build_bool
func _sym_build_bool(value C.bool) C.SymExpr { return symExpr(runtime().BuildBool(bool(value))) }

//export _sym_build_add
func _sym_build_add(a, b C.SymExpr) C.SymExpr { return binary(symcc.ADD, a, b) }

//export _sym_build_sub
func _sym_build_sub(a, b C.SymExpr) C.SymExpr { return binary(symcc.SUB, a, b) }

//export _sym_build_mul
func _sym_build_mul(a, b C.SymExpr) C.SymExpr { return binary(symcc.MUL, a, b) }

//export _sym_build_unsigned_div
func _sym_build_unsigned_div(a, b C.SymExpr) C.SymExpr { return binary(symcc.UDIV, a, b) }

//export _sym_build_signed_div
func _sym_build_signed_div(a, b C.SymExpr) C.SymExpr { return binary(symcc.SDIV, a, b) }

//export _sym_build_unsigned_rem
func _sym_build_unsigned_rem(a, b C.SymExpr) C.SymExpr { return binary(symcc.UREM, a, b) }

//export _sym_build_signed_rem
func _sym_build_signed_rem(a, b C.SymExpr) C.SymExpr { return binary(symcc.SREM, a, b) }

//export _sym_build_shift_left
func _sym_build_shift_left(a, b C.SymExpr) C.SymExpr { return binary(symcc.SHL, a, b) }

//export _sym_build_logical_shift_right
func _sym_build_logical_shift_right(a, b C.SymExpr) C.SymExpr { return binary(symcc.LSHR, a, b) }

//export _sym_build_arithmetic_shift_right
func _sym_build_arithmetic_shift_right(a, b C.SymExpr) C.SymExpr { return binary(symcc.ASHR, a, b) }

//export _sym_build_signed_less_than
func _sym_build_signed_less_than(a, b C.SymExpr) C.SymExpr { return binary(symcc.SLT, a, b) }

//export _sym_build_signed_less_equal
func _sym_build_signed_less_equal(a, b C.SymExpr) C.SymExpr { return binary(symcc.SLE, a, b) }

//export _sym_build_signed_greater_than
func _sym_build_signed_greater_than(a, b C.SymExpr) C.SymExpr { return binary(symcc.SGT, a, b) }

//export _sym_build_signed_greater_equal
func _sym_build_signed_greater_equal(a, b C.SymExpr) C.SymExpr { return binary(symcc.SGE, a, b) }

//export _sym_build_unsigned_less_than
func _sym_build_unsigned_less_than(a, b C.SymExpr) C.SymExpr { return binary(symcc.ULT, a, b) }

//export _sym_build_unsigned_less_equal
func _sym_build_unsigned_less_equal(a, b C.SymExpr) C.SymExpr { return binary(symcc.ULE, a, b) }

//export _sym_build_unsigned_greater_than
func _sym_build_unsigned_greater_than(a, b C.SymExpr) C.SymExpr { return binary(symcc.UGT, a, b) }

//export _sym_build_unsigned_greater_equal
func _sym_build_unsigned_greater_equal(a, b C.SymExpr) C.SymExpr { return binary(symcc.UGE, a, b) }

//export _sym_build_equal
func _sym_build_equal(a, b C.SymExpr) C.SymExpr { return binary(symcc.EQ, a, b) }

//export _sym_build_not_equal
func _sym_build_not_equal(a, b C.SymExpr) C.SymExpr { return binary(symcc.NE, a, b) }

//export _sym_build_bool_and
func _sym_build_bool_and(a, b C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildBoolAnd(handle(a), handle(b)))
}

//export _sym_build_and
func _sym_build_and(a, b C.SymExpr) C.SymExpr { return binary(symcc.AND, a, b) }

//export _sym_build_bool_or
func _sym_build_bool_or(a, b C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildBoolOr(handle(a), handle(b)))
}

//export _sym_build_or
func _sym_build_or(a, b C.SymExpr) C.SymExpr { return binary(symcc.OR, a, b) }

//export _sym_build_bool_xor
func _sym_build_bool_xor(a, b C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildBoolXor(handle(a), handle(b)))
}

//export _sym_build_xor
func _sym_build_xor(a, b C.SymExpr) C.SymExpr { return binary(symcc.XOR, a, b) }

//export _sym_build_neg
func _sym_build_neg(e C.SymExpr) C.SymExpr { return symExpr(runtime().BuildNeg(handle(e))) }

//export _sym_build_not
func _sym_build_not(e C.SymExpr) C.SymExpr { return symExpr(runtime().BuildNot(handle(e))) }

//export _sym_build_ite
func _sym_build_ite(cond, a, b C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildIte(handle(cond), handle(a), handle(b)))
}

//export _sym_build_sext
func _sym_build_sext(e C.SymExpr, bits C.uint8_t) C.SymExpr {
	return symExpr(runtime().BuildSExt(handle(e), uint8(bits)))
}

//export _sym_build_zext
func _sym_build_zext(e C.SymExpr, bits C.uint8_t) C.SymExpr {
	return symExpr(runtime().BuildZExt(handle(e), uint8(bits)))
}

//export _sym_build_trunc
func _sym_build_trunc(e C.SymExpr, bits C.uint8_t) C.SymExpr {
	return symExpr(runtime().BuildTrunc(handle(e), uint8(bits)))
}

//export _sym_build_bool_to_bit
func _sym_build_bool_to_bit(e C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildBoolToBit(handle(e)))
}

//export _sym_get_input_byte
func _sym_get_input_byte(offset C.size_t, value C.uint8_t) C.SymExpr {
	return symExpr(runtime().GetInputByte(uint64(offset), byte(value)))
}

//export _sym_concat_helper
func _sym_concat_helper(a, b C.SymExpr) C.SymExpr {
	return symExpr(runtime().Concat(handle(a), handle(b)))
}

//export _sym_extract_helper
func _sym_extract_helper(e C.SymExpr, first, last C.size_t) C.SymExpr {
	return symExpr(runtime().Extract(handle(e), uint(first), uint(last)))
}

//export _sym_bits_helper
func _sym_bits_helper(e C.SymExpr) C.size_t {
	return C.size_t(runtime().Bits(handle(e)))
}

//export _sym_push_path_constraint
func _sym_push_path_constraint(cond C.SymExpr, taken C.int, site C.uintptr_t) {
	runtime().PushPathConstraint(handle(cond), taken != 0, uint64(site))
}

//export _sym_asan_push_path_constraint
func _sym_asan_push_path_constraint(cond C.SymExpr, taken C.int, site C.uintptr_t) {
	runtime().PushSanitizerConstraint(handle(cond), taken != 0, uint64(site))
}

//export _sym_asan_test_dependency
func _sym_asan_test_dependency(e C.SymExpr) {
	fmt.Println("DependencySet-------")
	for _, offset := range runtime().DependencySet(handle(e)) {
		fmt.Println(offset)
	}
	fmt.Println("DependencySet End-------")
}

//export _sym_asan_insert_symbolic_addr_node
func _sym_asan_insert_symbolic_addr_node(value, addr C.SymExpr, concrete C.uintptr_t) {
	runtime().InsertSymbolicAddress(handle(value), handle(addr), uint64(concrete))
}

//export _sym_asan_constraint_verify
func _sym_asan_constraint_verify(e C.SymExpr) {
	runtime().VerifyConstraint(handle(e))
}

//export _sym_asan_is_symexpr_exact
func _sym_asan_is_symexpr_exact(e C.SymExpr) C.bool {
	return C.bool(runtime().IsExact(handle(e)))
}

//export _sym_notify_call
func _sym_notify_call(site C.uintptr_t) { runtime().NotifyCall(uint64(site)) }

//export _sym_notify_ret
func _sym_notify_ret(site C.uintptr_t) { runtime().NotifyReturn(uint64(site)) }

//export _sym_notify_basic_block
func _sym_notify_basic_block(site C.uintptr_t) { runtime().NotifyBasicBlock(uint64(site)) }

//export _sym_expr_to_string
func _sym_expr_to_string(e C.SymExpr) *C.char {
	s := runtime().ExprString(handle(e))
	buf := unsafe.Slice((*byte)(unsafe.Pointer(exprString)), symcc.MaxExprStringLen+1)
	n := copy(buf[:symcc.MaxExprStringLen], s)
	buf[n] = 0
	return exprString
}

//export _sym_feasible
func _sym_feasible(e C.SymExpr) C.bool {
	return C.bool(runtime().Feasible(handle(e)))
}

//export _sym_collect_garbage
func _sym_collect_garbage() { runtime().CollectGarbage() }

//export _sym_set_parameter_expression
func _sym_set_parameter_expression(index C.uint8_t, e C.SymExpr) {
	runtime().SetParameter(int(index), handle(e))
}

//export _sym_get_parameter_expression
func _sym_get_parameter_expression(index C.uint8_t) C.SymExpr {
	return symExpr(runtime().Parameter(int(index)))
}

//export _sym_set_return_expression
func _sym_set_return_expression(e C.SymExpr) { runtime().SetReturn(handle(e)) }

//export _sym_get_return_expression
func _sym_get_return_expression() C.SymExpr { return symExpr(runtime().Return()) }

//export symcc_set_test_case_handler
func symcc_set_test_case_handler(h C.TestCaseHandler) {
	runtime().SetTestCaseHandler(handlerFunc(h))
}

//export symcc_register_expression_region
func symcc_register_expression_region(start *C.SymExpr, n C.size_t) {
	roots.add(unsafe.Pointer(start), int(n))
}

//export symcc_unregister_expression_region
func symcc_unregister_expression_region(start *C.SymExpr) {
	roots.remove(unsafe.Pointer(start))
}
