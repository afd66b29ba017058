package symcc

// ExprBuilder post-processes each expression the runtime constructs from
// symbolic operands.
type ExprBuilder interface {
	Build(expr Expr) Expr
}

// SymbolicBuilder keeps every expression symbolic.
type SymbolicBuilder struct{}

// Build returns expr unchanged.
func (SymbolicBuilder) Build(expr Expr) Expr { return expr }

// PruningBuilder replaces expressions built in uninteresting contexts with
// their concrete value, which keeps hot loops from growing the expression
// graph. A context is interesting while its basic block has been entered a
// power-of-two number of times.
type PruningBuilder struct {
	Tracer *CallStackTracer
	Solver *PathSolver
}

// NewPruningBuilder returns a pruning builder.
func NewPruningBuilder(tracer *CallStackTracer, solver *PathSolver) *PruningBuilder {
	return &PruningBuilder{Tracer: tracer, Solver: solver}
}

// Build returns expr, or its concrete value if the current context is not
// interesting. Expressions that cannot be evaluated are kept.
func (b *PruningBuilder) Build(expr Expr) Expr {
	if IsConstantExpr(expr) || b.Tracer.Interesting() {
		return expr
	}
	value, err := NewExprEvaluator(b.Solver.inputs).Evaluate(expr)
	if err != nil {
		return expr
	}
	return value
}
