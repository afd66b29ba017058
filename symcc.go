package symcc

import (
	"errors"
	"fmt"
)

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
	Width128  = 128

	// WidthMax is the widest bit-vector a constant can hold.
	WidthMax = 256

	// WidthPointer is the pointer width of the instrumented target.
	WidthPointer = Width64
)

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")

	ErrOutputDirMissing = errors.New("output directory does not exist")
	ErrUnknownHandle    = errors.New("unknown expression handle")
	ErrStaleHandle      = errors.New("expression handle already collected")
	ErrNullHandle       = errors.New("null expression handle")
	ErrInputOutOfRange  = errors.New("input offset out of range")
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
