package symcc

import (
	"fmt"
	"log"
	"time"
)

// PathSolver tracks the concrete input and the permanent path constraints of
// one execution, and asks a Solver for inputs that take the other direction
// of each symbolic branch.
type PathSolver struct {
	// Filters branches already negated. All branches are negated when nil.
	Coverage CoverageMap

	// Distinguishes branch sites by calling context, if set.
	Tracer *CallStackTracer

	// Receives test cases when no handler is registered.
	Sink TestCaseSink

	Logger *log.Logger

	solver      Solver
	metrics     *Metrics
	inputs      []byte
	constraints []Expr
	forest      *dependencyForest
	scopes      [][]Expr
	values      map[uint64]byte // model of the last satisfiable query
	handler     TestCaseHandler
	testN       int
}

// NewPathSolver returns a path solver using solver for queries.
func NewPathSolver(solver Solver, metrics *Metrics) *PathSolver {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &PathSolver{
		Logger:  log.Default(),
		solver:  solver,
		metrics: metrics,
		forest:  newDependencyForest(),
	}
}

// PushInputByte records the concrete value of the input byte at offset,
// growing the buffer as needed.
func (s *PathSolver) PushInputByte(offset uint64, value byte) {
	if n := offset + 1; n > uint64(len(s.inputs)) {
		s.inputs = append(s.inputs, make([]byte, n-uint64(len(s.inputs)))...)
	}
	s.inputs[offset] = value
}

// Inputs returns a copy of the concrete input buffer.
func (s *PathSolver) Inputs() []byte {
	return append([]byte(nil), s.inputs...)
}

// Constraints returns the permanent path constraints.
func (s *PathSolver) Constraints() []Expr {
	return append([]Expr(nil), s.constraints...)
}

// Depth returns the number of open assertion scopes.
func (s *PathSolver) Depth() int { return len(s.scopes) }

// Push opens a new assertion scope.
func (s *PathSolver) Push() {
	s.scopes = append(s.scopes, nil)
}

// Pop discards the innermost assertion scope and everything asserted in it.
func (s *PathSolver) Pop() {
	assert(len(s.scopes) > 0, "pop: no open scope")
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Assert adds expr to the innermost scope. Without an open scope expr becomes
// a permanent path constraint.
func (s *PathSolver) Assert(expr Expr) {
	expr = toBoolExpr(expr)
	if len(s.scopes) == 0 {
		s.addPathConstraint(expr)
		return
	}
	top := len(s.scopes) - 1
	s.scopes[top] = AddConstraint(s.scopes[top], expr)
}

// Check returns the satisfiability of the scoped assertions together with
// the path constraints related to them. Without an open scope, all path
// constraints are checked.
func (s *PathSolver) Check() (bool, error) {
	if len(s.scopes) == 0 {
		return s.solve("check", s.constraints)
	}

	var scoped []Expr
	var deps DependencySet
	for _, scope := range s.scopes {
		for _, expr := range scope {
			scoped = append(scoped, expr)
			deps = deps.Union(ExprDeps(expr))
		}
	}
	return s.solve("check", append(s.forest.related(deps), scoped...))
}

// Feasible returns true if expr can hold on the current path. The permanent
// constraints are unchanged afterwards, including when the solver fails.
func (s *PathSolver) Feasible(expr Expr) (bool, error) {
	s.Push()
	defer s.Pop()

	s.Assert(expr)
	return s.Check()
}

// SetTestCaseHandler replaces the handler receiving generated test cases.
// A nil handler restores persistence through the sink.
func (s *PathSolver) SetTestCaseHandler(fn TestCaseHandler) {
	s.handler = fn
}

// ConcreteValues returns the input buffer patched with the model of the last
// satisfiable query.
func (s *PathSolver) ConcreteValues() []byte {
	buf := s.Inputs()
	for offset, value := range s.values {
		if offset < uint64(len(buf)) {
			buf[offset] = value
		}
	}
	return buf
}

// SaveValues emits the current concrete values as a test case. The handler
// receives it if one is registered; otherwise it goes to the sink.
func (s *PathSolver) SaveValues(suffix string) error {
	data := s.ConcreteValues()
	s.metrics.TestCases.WithLabelValues(suffix).Inc()

	if s.handler != nil {
		s.handler(data)
		return nil
	} else if s.Sink == nil {
		return nil
	}

	tc := &TestCase{Index: s.testN, Suffix: suffix, Data: data}
	s.testN++
	return s.Sink.WriteTestCase(tc)
}

// AddBranch records the direction taken at a symbolic branch. When the other
// direction has not been tried in this context, the solver is asked for an
// input reaching it, falling back to the negated condition alone. The taken
// direction then becomes a permanent path constraint.
func (s *PathSolver) AddBranch(expr Expr, taken bool, site uint64, sanitizer bool) error {
	if IsConstantExpr(expr) {
		return nil
	}
	expr = toBoolExpr(expr)

	origin := "branch"
	if sanitizer {
		origin = "sanitizer"
	}
	s.metrics.Branches.WithLabelValues(origin).Inc()

	var err error
	if ok, e := s.visit(site, !taken, sanitizer); e != nil {
		err = fmt.Errorf("coverage: %w", e)
	} else if ok {
		err = s.negate(expr, taken, sanitizer)
	}

	s.addPathConstraint(branchCondition(expr, taken))
	return err
}

// visit marks the branch direction in the coverage map.
func (s *PathSolver) visit(site uint64, taken bool, sanitizer bool) (bool, error) {
	if s.Coverage == nil {
		return true, nil
	}

	var key uint64
	if s.Tracer != nil {
		key = s.Tracer.BranchKey(site, taken)
	} else {
		key = mix(site, boolToUint64(taken))
	}
	if sanitizer {
		key = mix(key, 2)
	}
	return s.Coverage.Visit(key)
}

func (s *PathSolver) negate(expr Expr, taken bool, sanitizer bool) error {
	negated := branchCondition(expr, !taken)
	if IsConstantFalse(negated) {
		return nil
	}

	suffix := ""
	if sanitizer {
		suffix = "sanitizer"
	}

	related := s.forest.related(ExprDeps(negated))
	if ok, err := s.solve("branch", append(related[:len(related):len(related)], negated)); err != nil {
		return err
	} else if ok {
		return s.SaveValues(suffix)
	}

	// Ignore the path prefix and try the branch on its own.
	if ok, err := s.solve("optimistic", []Expr{negated}); err != nil {
		return err
	} else if ok {
		return s.SaveValues("optimistic")
	}
	return nil
}

func (s *PathSolver) addPathConstraint(expr Expr) {
	for _, c := range AddConstraint(nil, expr) {
		if IsConstantFalse(c) {
			s.Logger.Printf("[solver] ignoring unsatisfiable path constraint")
			continue
		}
		s.constraints = append(s.constraints, c)
		s.forest.add(c)
	}
}

func (s *PathSolver) solve(kind string, constraints []Expr) (bool, error) {
	for _, c := range constraints {
		if IsConstantFalse(c) {
			s.metrics.Queries.WithLabelValues(kind, "unsat").Inc()
			return false, nil
		}
	}

	reads := FindReads(constraints...)
	t := time.Now()
	sat, values, err := s.solver.Solve(constraints, reads)
	s.metrics.QueryDuration.Observe(time.Since(t).Seconds())
	if err != nil {
		s.metrics.Queries.WithLabelValues(kind, "error").Inc()
		return false, err
	} else if !sat {
		s.metrics.Queries.WithLabelValues(kind, "unsat").Inc()
		return false, nil
	}
	s.metrics.Queries.WithLabelValues(kind, "sat").Inc()

	s.values = make(map[uint64]byte, len(reads))
	for i, read := range reads {
		if i < len(values) {
			s.values[read.Offset] = values[i]
		}
	}
	return true, nil
}

// toBoolExpr converts a non-boolean condition to a comparison against zero.
func toBoolExpr(expr Expr) Expr {
	if ExprWidth(expr) == WidthBool {
		return expr
	}
	return NewBinaryExpr(NE, expr, NewConstantExpr(0, ExprWidth(expr)))
}

// branchCondition returns expr if taken and its negation otherwise.
func branchCondition(expr Expr, taken bool) Expr {
	if taken {
		return expr
	}
	return NewIsZeroExpr(expr)
}

func boolToUint64(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
