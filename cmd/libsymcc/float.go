package main

// #include "symcc.h"
import "C"

// Floating-point expressions are not supported; every builder returns null.

//export _sym_build_float
func _sym_build_float(value C.double, isDouble C.int) C.SymExpr {
	return symExpr(runtime().BuildFloat(float64(value), isDouble != 0))
}

//export _sym_build_fp_add
func _sym_build_fp_add(a, b C.SymExpr) C.SymExpr { return fpBinary("add", a, b) }

//export _sym_build_fp_sub
func _sym_build_fp_sub(a, b C.SymExpr) C.SymExpr { return fpBinary("sub", a, b) }

//export _sym_build_fp_mul
func _sym_build_fp_mul(a, b C.SymExpr) C.SymExpr { return fpBinary("mul", a, b) }

//export _sym_build_fp_div
func _sym_build_fp_div(a, b C.SymExpr) C.SymExpr { return fpBinary("div", a, b) }

//export _sym_build_fp_rem
func _sym_build_fp_rem(a, b C.SymExpr) C.SymExpr { return fpBinary("rem", a, b) }

//export _sym_build_fp_abs
func _sym_build_fp_abs(e C.SymExpr) C.SymExpr { return fpUnary("abs", e) }

//export _sym_build_fp_neg
func _sym_build_fp_neg(e C.SymExpr) C.SymExpr { return fpUnary("neg", e) }

//export _sym_build_float_ordered_greater_than
func _sym_build_float_ordered_greater_than(a, b C.SymExpr) C.SymExpr { return fpCompare("ogt", a, b) }

//export _sym_build_float_ordered_greater_equal
func _sym_build_float_ordered_greater_equal(a, b C.SymExpr) C.SymExpr { return fpCompare("oge", a, b) }

//export _sym_build_float_ordered_less_than
func _sym_build_float_ordered_less_than(a, b C.SymExpr) C.SymExpr { return fpCompare("olt", a, b) }

//export _sym_build_float_ordered_less_equal
func _sym_build_float_ordered_less_equal(a, b C.SymExpr) C.SymExpr { return fpCompare("ole", a, b) }

//export _sym_build_float_ordered_equal
func _sym_build_float_ordered_equal(a, b C.SymExpr) C.SymExpr { return fpCompare("oeq", a, b) }

//export _sym_build_float_ordered_not_equal
func _sym_build_float_ordered_not_equal(a, b C.SymExpr) C.SymExpr { return fpCompare("one", a, b) }

//export _sym_build_float_ordered
func _sym_build_float_ordered(a, b C.SymExpr) C.SymExpr { return fpCompare("ord", a, b) }

//export _sym_build_float_unordered
func _sym_build_float_unordered(a, b C.SymExpr) C.SymExpr { return fpCompare("uno", a, b) }

//export _sym_build_float_unordered_greater_than
func _sym_build_float_unordered_greater_than(a, b C.SymExpr) C.SymExpr { return fpCompare("ugt", a, b) }

//export _sym_build_float_unordered_greater_equal
func _sym_build_float_unordered_greater_equal(a, b C.SymExpr) C.SymExpr { return fpCompare("uge", a, b) }

//export _sym_build_float_unordered_less_than
func _sym_build_float_unordered_less_than(a, b C.SymExpr) C.SymExpr { return fpCompare("ult", a, b) }

//export _sym_build_float_unordered_less_equal
func _sym_build_float_unordered_less_equal(a, b C.SymExpr) C.SymExpr { return fpCompare("ule", a, b) }

//export _sym_build_float_unordered_equal
func _sym_build_float_unordered_equal(a, b C.SymExpr) C.SymExpr { return fpCompare("ueq", a, b) }

//export _sym_build_float_unordered_not_equal
func _sym_build_float_unordered_not_equal(a, b C.SymExpr) C.SymExpr { return fpCompare("une", a, b) }

//export _sym_build_int_to_float
func _sym_build_int_to_float(e C.SymExpr, isDouble, isSigned C.int) C.SymExpr {
	return fpConvert("int_to_float", e, 0)
}

//export _sym_build_float_to_float
func _sym_build_float_to_float(e C.SymExpr, isDouble C.int) C.SymExpr {
	return fpConvert("float_to_float", e, 0)
}

//export _sym_build_bits_to_float
func _sym_build_bits_to_float(e C.SymExpr, isDouble C.int) C.SymExpr {
	return fpConvert("bits_to_float", e, 0)
}

//export _sym_build_float_to_bits
func _sym_build_float_to_bits(e C.SymExpr) C.SymExpr {
	return fpConvert("float_to_bits", e, 0)
}

//export _sym_build_float_to_signed_integer
func _sym_build_float_to_signed_integer(e C.SymExpr, bits C.uint8_t) C.SymExpr {
	return fpConvert("float_to_signed_integer", e, uint8(bits))
}

//export _sym_build_float_to_unsigned_integer
func _sym_build_float_to_unsigned_integer(e C.SymExpr, bits C.uint8_t) C.SymExpr {
	return fpConvert("float_to_unsigned_integer", e, uint8(bits))
}

func fpBinary(op string, a, b C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildFloatBinary(op, handle(a), handle(b)))
}

func fpUnary(op string, e C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildFloatUnary(op, handle(e)))
}

func fpCompare(predicate string, a, b C.SymExpr) C.SymExpr {
	return symExpr(runtime().BuildFloatCompare(predicate, handle(a), handle(b)))
}

func fpConvert(op string, e C.SymExpr, bits uint8) C.SymExpr {
	return symExpr(runtime().BuildFloatConvert(op, handle(e), bits))
}
