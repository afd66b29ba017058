//go:build z3

package backend

import (
	"io"

	symcc "github.com/y4ngyy/SymCC-Modified"
	"github.com/y4ngyy/SymCC-Modified/z3"
)

func init() {
	RegisterSolver("z3", func() (symcc.Solver, io.Closer) {
		s := z3.NewSolver()
		return s, s
	})
}
