package symcc

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

// MaxExprStringLen is the longest rendering returned by ExprString.
const MaxExprStringLen = 4095

// State is the lifecycle state of a Runtime.
type State int32

// Runtime states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateConcrete
	StateClosed
)

var states = [...]string{
	StateUninitialized: "uninitialized",
	StateInitializing:  "initializing",
	StateReady:         "ready",
	StateConcrete:      "concrete",
	StateClosed:        "closed",
}

// String returns the name of the state.
func (s State) String() string {
	if s >= 0 && int(s) < len(states) {
		return states[s]
	}
	return fmt.Sprintf("State<%d>", s)
}

// Runtime is the symbolic backend called by instrumented code. It owns the
// expression registry, the deferred address constraints and the path solver.
//
// Every entry point is safe for concurrent use; calls are serialized by a
// single lock. Until Initialize succeeds, and in concrete mode, expression
// builders return NullHandle and notifications are ignored.
type Runtime struct {
	// Collaborators. Set before Initialize; defaults are used when nil,
	// except for Solver which is required.
	Solver   Solver
	Coverage CoverageMap
	Sink     TestCaseSink
	Roots    RootSet
	Logger   *log.Logger

	config  Config
	once    sync.Once
	state   atomic.Int32
	initErr error
	logFile io.Closer

	mu       sync.Mutex
	registry *Registry
	deferred *DeferredQueue
	tracer   *CallStackTracer
	solver   *PathSolver
	builder  ExprBuilder
	metrics  *Metrics
	handler  TestCaseHandler
	params   []Handle
	ret      Handle
}

// NewRuntime returns an uninitialized runtime using config.
func NewRuntime(config Config) *Runtime {
	return &Runtime{
		config:   config,
		registry: NewRegistry(),
		deferred: NewDeferredQueue(),
		tracer:   NewCallStackTracer(),
		metrics:  NewMetrics(),
	}
}

// Config returns the runtime configuration.
func (r *Runtime) Config() Config { return r.config }

// State returns the lifecycle state.
func (r *Runtime) State() State { return State(r.state.Load()) }

// Metrics returns the runtime metrics.
func (r *Runtime) Metrics() *Metrics { return r.metrics }

// Initialize performs setup on the first call; later and concurrent calls
// wait for it and return its result. A missing output directory returns an
// error wrapping ErrOutputDirMissing and leaves the runtime inert.
func (r *Runtime) Initialize() error {
	r.once.Do(func() {
		r.state.Store(int32(StateInitializing))
		state, err := r.init()
		if err != nil {
			r.initErr = err
			r.state.Store(int32(StateUninitialized))
			return
		}
		r.state.Store(int32(state))
	})
	return r.initErr
}

func (r *Runtime) init() (State, error) {
	if r.Logger == nil {
		var w io.Writer = os.Stderr
		if r.config.LogFile != "" {
			f, err := os.OpenFile(r.config.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
			if err != nil {
				return StateUninitialized, fmt.Errorf("open log file: %w", err)
			}
			r.logFile, w = f, f
		}
		r.Logger = log.New(w, "", 0)
	}

	r.Logger.Printf("This is SymCC running with the %s backend", r.config.Solver)
	if r.config.NoSymbolicInput {
		r.Logger.Printf("Performing fully concrete execution (i.e., without symbolic input)")
		return StateConcrete, nil
	}

	// Check the output directory.
	if fi, err := os.Stat(r.config.OutputDir); err != nil || !fi.IsDir() {
		r.Logger.Printf("Error: the output directory %s (configurable via SYMCC_OUTPUT_DIR) does not exist.", r.config.OutputDir)
		return StateUninitialized, fmt.Errorf("%s: %w", r.config.OutputDir, ErrOutputDirMissing)
	}

	if r.Solver == nil {
		return StateUninitialized, errors.New("no solver configured")
	}
	if r.Coverage == nil {
		switch r.config.Coverage {
		case "", CoverageBitmap:
			if r.config.AFLCoverageMap == "" {
				r.Coverage = NewBitmapCoverage()
			} else if c, err := OpenBitmapCoverage(r.config.AFLCoverageMap); err != nil {
				return StateUninitialized, err
			} else {
				r.Coverage = c
			}
		default:
			return StateUninitialized, fmt.Errorf("coverage backend %q must be supplied by the caller", r.config.Coverage)
		}
	}
	if r.Sink == nil {
		r.Sink = NewDirSink(r.config.OutputDir)
	}

	solver := NewPathSolver(r.Solver, r.metrics)
	solver.Coverage = r.Coverage
	solver.Tracer = r.tracer
	solver.Sink = r.Sink
	solver.Logger = r.Logger

	r.mu.Lock()
	defer r.mu.Unlock()
	solver.SetTestCaseHandler(r.handler)
	r.solver = solver
	if r.config.Pruning {
		r.builder = NewPruningBuilder(r.tracer, r.solver)
	} else {
		r.builder = SymbolicBuilder{}
	}
	return StateReady, nil
}

// Shutdown flushes the coverage map and leaves the runtime inert.
func (r *Runtime) Shutdown() error {
	r.once.Do(func() {}) // a later Initialize must not run setup

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State() == StateClosed {
		return nil
	}
	r.state.Store(int32(StateClosed))

	var err error
	if r.Coverage != nil {
		if e := r.Coverage.Close(); e != nil {
			err = fmt.Errorf("close coverage: %w", e)
		}
	}
	if r.logFile != nil {
		if e := r.logFile.Close(); e != nil && err == nil {
			err = fmt.Errorf("close log file: %w", e)
		}
	}
	return err
}

func (r *Runtime) logf(format string, args ...interface{}) {
	if r.Logger == nil {
		log.Printf(format, args...)
		return
	}
	r.Logger.Printf(format, args...)
}

// active returns true if expressions are being tracked.
func (r *Runtime) active() bool {
	return r.State() == StateReady
}

// lookup resolves h or panics with a *HandleError.
func (r *Runtime) lookup(h Handle) Expr {
	expr, err := r.registry.Lookup(h)
	if err != nil {
		r.logf("[runtime] invalid expression: %s", err)
		panic(err)
	}
	return expr
}

func (r *Runtime) register(expr Expr) Handle {
	h := r.registry.Register(expr)
	r.metrics.Expressions.Set(float64(r.registry.Len()))
	return h
}

// build runs expr through the configured builder and registers the result.
func (r *Runtime) build(expr Expr) Handle {
	return r.register(r.builder.Build(expr))
}

// Lookup returns the expression registered under h.
func (r *Runtime) Lookup(h Handle) (Expr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.Lookup(h)
}

// Len returns the number of live registered expressions.
func (r *Runtime) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.Len()
}

// BuildInteger returns a constant of the given width.
func (r *Runtime) BuildInteger(value uint64, bits uint8) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(NewConstantExpr(value, uint(bits)))
}

// BuildInteger128 returns a 128-bit constant from its 64-bit halves.
func (r *Runtime) BuildInteger128(high, low uint64) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(NewConstantExpr128(high, low))
}

// BuildNullPointer returns a zero constant of pointer width.
func (r *Runtime) BuildNullPointer() Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(NewConstantExpr(0, WidthPointer))
}

// BuildTrue returns the boolean true constant.
func (r *Runtime) BuildTrue() Handle { return r.BuildBool(true) }

// BuildFalse returns the boolean false constant.
func (r *Runtime) BuildFalse() Handle { return r.BuildBool(false) }

// BuildBool returns a boolean constant.
func (r *Runtime) BuildBool(value bool) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(NewBoolConstantExpr(value))
}

// BuildBinary applies op to a and b.
func (r *Runtime) BuildBinary(op BinaryOp, a, b Handle) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(NewBinaryExpr(op, r.lookup(a), r.lookup(b)))
}

// BuildBoolAnd returns the conjunction of two booleans.
func (r *Runtime) BuildBoolAnd(a, b Handle) Handle { return r.BuildBinary(AND, a, b) }

// BuildBoolOr returns the disjunction of two booleans.
func (r *Runtime) BuildBoolOr(a, b Handle) Handle { return r.BuildBinary(OR, a, b) }

// BuildBoolXor returns true if exactly one of two booleans is true.
func (r *Runtime) BuildBoolXor(a, b Handle) Handle { return r.BuildBinary(XOR, a, b) }

// BuildNeg returns the two's complement negation of h.
func (r *Runtime) BuildNeg(h Handle) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(NewNegExpr(r.lookup(h)))
}

// BuildNot returns the bitwise complement of h. On booleans this is logical not.
func (r *Runtime) BuildNot(h Handle) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(NewNotExpr(r.lookup(h)))
}

// BuildIte returns a if cond holds and b otherwise.
func (r *Runtime) BuildIte(cond, a, b Handle) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(NewIteExpr(r.lookup(cond), r.lookup(a), r.lookup(b)))
}

// BuildSExt sign-extends h by bits additional bits.
func (r *Runtime) BuildSExt(h Handle, bits uint8) Handle {
	return r.extend(h, bits, true)
}

// BuildZExt zero-extends h by bits additional bits.
func (r *Runtime) BuildZExt(h Handle, bits uint8) Handle {
	return r.extend(h, bits, false)
}

func (r *Runtime) extend(h Handle, bits uint8, signed bool) Handle {
	if !r.active() || h.IsNull() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	expr := r.lookup(h)
	return r.build(NewCastExpr(expr, ExprWidth(expr)+uint(bits), signed))
}

// BuildTrunc keeps the low bits bits of h.
func (r *Runtime) BuildTrunc(h Handle, bits uint8) Handle {
	if !r.active() || h.IsNull() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(NewExtractExpr(r.lookup(h), 0, uint(bits)))
}

// Concat returns a as the high bits and b as the low bits of a new value.
func (r *Runtime) Concat(a, b Handle) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(NewConcatExpr(r.lookup(a), r.lookup(b)))
}

// Extract returns bits first down to last of h, inclusive.
func (r *Runtime) Extract(h Handle, first, last uint) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.build(NewExtractExpr(r.lookup(h), last, first-last+1))
}

// Bits returns the bit width of h.
func (r *Runtime) Bits(h Handle) uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ExprWidth(r.lookup(h))
}

// BuildBoolToBit converts a boolean into a single-bit value.
func (r *Runtime) BuildBoolToBit(h Handle) Handle {
	if !r.active() || h.IsNull() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(r.lookup(h))
}

// GetInputByte returns the symbolic input byte at offset and records its
// concrete value.
func (r *Runtime) GetInputByte(offset uint64, value byte) Handle {
	if !r.active() {
		return NullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solver.PushInputByte(offset, value)
	return r.register(NewReadExpr(offset))
}

// BuildFloat is unsupported and returns NullHandle.
func (r *Runtime) BuildFloat(value float64, double bool) Handle { return NullHandle }

// BuildFloatBinary is unsupported and returns NullHandle.
func (r *Runtime) BuildFloatBinary(op string, a, b Handle) Handle { return NullHandle }

// BuildFloatUnary is unsupported and returns NullHandle.
func (r *Runtime) BuildFloatUnary(op string, h Handle) Handle { return NullHandle }

// BuildFloatCompare is unsupported and returns NullHandle.
func (r *Runtime) BuildFloatCompare(predicate string, a, b Handle) Handle { return NullHandle }

// BuildFloatConvert is unsupported and returns NullHandle.
func (r *Runtime) BuildFloatConvert(op string, h Handle, bits uint8) Handle { return NullHandle }

// PushPathConstraint records the direction of a branch on cond.
// A null condition was concrete and is ignored.
func (r *Runtime) PushPathConstraint(cond Handle, taken bool, site uint64) {
	r.pushPathConstraint(cond, taken, site, false)
}

// PushSanitizerConstraint records a condition checked by sanitizer
// instrumentation.
func (r *Runtime) PushSanitizerConstraint(cond Handle, taken bool, site uint64) {
	r.pushPathConstraint(cond, taken, site, true)
}

func (r *Runtime) pushPathConstraint(cond Handle, taken bool, site uint64, sanitizer bool) {
	if !r.active() || cond.IsNull() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addBranch(r.lookup(cond), taken, site, sanitizer)
}

func (r *Runtime) addBranch(expr Expr, taken bool, site uint64, sanitizer bool) {
	if err := r.solver.AddBranch(expr, taken, site, sanitizer); err != nil {
		r.Logger.Printf("[solver] branch at site %#x: %s", site, err)
	}
}

// InsertSymbolicAddress defers the constraint that addr equals concrete
// until a branch depends on the inputs of value.
func (r *Runtime) InsertSymbolicAddress(value, addr Handle, concrete uint64) {
	if !r.active() || value.IsNull() || addr.IsNull() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ok := r.deferred.Insert(DeferredEntry{
		Deps:     ExprDeps(r.lookup(value)),
		Addr:     addr,
		Expr:     r.lookup(addr),
		Concrete: concrete,
	})
	if ok && r.config.Debug {
		r.Logger.Printf("[deferred] queued address %#x (%d pending)", concrete, r.deferred.Len())
	}
	r.metrics.Deferred.Set(float64(r.deferred.Len()))
}

// VerifyConstraint promotes at most one deferred address constraint whose
// inputs are all inputs of branch.
func (r *Runtime) VerifyConstraint(branch Handle) {
	if !r.active() || branch.IsNull() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deferred.Len() == 0 {
		return
	}
	entry, ok := r.deferred.Verify(ExprDeps(r.lookup(branch)))
	r.metrics.Deferred.Set(float64(r.deferred.Len()))
	if !ok {
		return
	}
	r.metrics.DeferredPromotions.Inc()

	addr := entry.Expr
	if ExprWidth(addr) != Width64 {
		addr = NewCastExpr(addr, Width64, false)
	}
	eq := NewBinaryExpr(EQ, NewConstantExpr64(entry.Concrete), addr)
	r.register(eq)
	r.addBranch(eq, true, 0, false)
}

// IsExact returns true if every input h depends on is covered by promoted
// address constraints.
func (r *Runtime) IsExact(h Handle) bool {
	if !r.active() || h.IsNull() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred.IsExact(ExprDeps(r.lookup(h)))
}

// DependencySet returns the input offsets h depends on.
func (r *Runtime) DependencySet(h Handle) DependencySet {
	if h.IsNull() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return ExprDeps(r.lookup(h))
}

// ExactDependencySet returns the inputs covered by promoted address constraints.
func (r *Runtime) ExactDependencySet() DependencySet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred.Exact()
}

// DeferredEntries returns the pending address constraints in insertion order.
func (r *Runtime) DeferredEntries() []DeferredEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred.Entries()
}

// NotifyCall records a call from site.
func (r *Runtime) NotifyCall(site uint64) {
	if !r.active() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracer.VisitCall(site)
}

// NotifyReturn records a return to site.
func (r *Runtime) NotifyReturn(site uint64) {
	if !r.active() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracer.VisitReturn(site)
}

// NotifyBasicBlock records entry into the block at site.
func (r *Runtime) NotifyBasicBlock(site uint64) {
	if !r.active() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracer.VisitBasicBlock(site)
}

// ExprString renders h, truncated to MaxExprStringLen bytes.
func (r *Runtime) ExprString(h Handle) string {
	if h.IsNull() {
		return "null"
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(h).String()
	if len(s) > MaxExprStringLen {
		s = s[:MaxExprStringLen]
	}
	return s
}

// Feasible returns true if h can hold on the current path. Path constraints
// are unchanged by the query. A null handle is concrete and always feasible.
func (r *Runtime) Feasible(h Handle) bool {
	if !r.active() || h.IsNull() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.solver.Feasible(r.lookup(h))
	if err != nil {
		r.Logger.Printf("[solver] feasibility query: %s", err)
		return false
	}
	return ok
}

// PathConstraints returns the permanent path constraints.
func (r *Runtime) PathConstraints() []Expr {
	if !r.active() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.solver.Constraints()
}

// SetTestCaseHandler replaces the receiver of generated test cases. It may be
// called before Initialize. A nil handler restores writing to the sink.
func (r *Runtime) SetTestCaseHandler(fn TestCaseHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = fn
	if r.solver != nil {
		r.solver.SetTestCaseHandler(fn)
	}
}

// SetParameter stores the expression of function argument i.
func (r *Runtime) SetParameter(i int, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.params) {
		r.params = append(r.params, make([]Handle, i+1-len(r.params))...)
	}
	r.params[i] = h
}

// Parameter returns the expression of function argument i.
func (r *Runtime) Parameter(i int) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.params) {
		return NullHandle
	}
	return r.params[i]
}

// SetReturn stores the expression of the value being returned.
func (r *Runtime) SetReturn(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ret = h
}

// Return returns the expression of the most recently returned value.
func (r *Runtime) Return() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ret
}

// CollectGarbage releases expressions unreachable from the roots once the
// registry holds at least the configured threshold of entries.
func (r *Runtime) CollectGarbage() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registry.Len() < r.config.GCThreshold {
		return
	}

	var roots []Handle
	if r.Roots != nil {
		roots = append(roots, r.Roots.Roots()...)
	}
	roots = append(roots, r.params...)
	roots = append(roots, r.ret)
	roots = append(roots, r.deferred.Handles()...)

	stats := r.registry.Collect(roots)
	r.metrics.Collections.Inc()
	r.metrics.Collected.Add(float64(stats.Collected()))
	r.metrics.CollectDuration.Observe(stats.Duration.Seconds())
	r.metrics.Expressions.Set(float64(r.registry.Len()))

	if r.config.Debug {
		r.logf("After garbage collection: %d expressions remain", stats.After)
		r.logf("\t(collection took %d milliseconds)", stats.Duration.Milliseconds())
	}
}
