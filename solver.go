package symcc

// Solver represents a decision procedure for bit-vector constraints.
type Solver interface {
	// Returns the satisfiability of the conjunction of constraints. If the
	// formula is satisfiable, a value is returned for each read passed in.
	Solve(constraints []Expr, reads []*ReadExpr) (satisfiable bool, values []byte, err error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(constraints []Expr, reads []*ReadExpr) (bool, []byte, error)

// Solve calls fn.
func (fn SolverFunc) Solve(constraints []Expr, reads []*ReadExpr) (bool, []byte, error) {
	return fn(constraints, reads)
}

// AddConstraint adds expr to constraints and returns the new constraint list.
// If expr is a boolean AND expression then its LHS & RHS are split into
// independent constraints. Constant true constraints are dropped.
func AddConstraint(a []Expr, expr Expr) []Expr {
	if IsConstantTrue(expr) {
		return a
	} else if expr, ok := expr.(*BinaryExpr); ok && expr.Op == AND && ExprWidth(expr) == WidthBool {
		a = AddConstraint(a, expr.LHS)
		a = AddConstraint(a, expr.RHS)
		return a
	}
	return append(a, expr)
}
