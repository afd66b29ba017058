// Package backend builds a Runtime and its collaborators from a Config.
package backend

import (
	"errors"
	"fmt"
	"io"
	"sort"

	symcc "github.com/y4ngyy/SymCC-Modified"
	"github.com/y4ngyy/SymCC-Modified/gini"
	"github.com/y4ngyy/SymCC-Modified/kafka"
	"github.com/y4ngyy/SymCC-Modified/pebble"
)

// SolverFactory returns a new solver and a closer releasing it, if any.
type SolverFactory func() (symcc.Solver, io.Closer)

var solvers = map[string]SolverFactory{
	"gini": func() (symcc.Solver, io.Closer) { return gini.NewSolver(), nil },
}

// RegisterSolver makes a solver backend available by name.
func RegisterSolver(name string, fn SolverFactory) {
	solvers[name] = fn
}

// Solvers returns the names of the available solver backends.
func Solvers() []string {
	a := make([]string, 0, len(solvers))
	for name := range solvers {
		a = append(a, name)
	}
	sort.Strings(a)
	return a
}

// Backend is a runtime wired to the collaborators named by its config.
type Backend struct {
	Runtime *symcc.Runtime

	closers []io.Closer
}

// Open returns a runtime with its solver, coverage map and sinks attached.
// The runtime is not initialized.
func Open(config symcc.Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	b := &Backend{Runtime: symcc.NewRuntime(config)}

	name := config.Solver
	if name == "" {
		name = symcc.DefaultSolver
	}
	fn, ok := solvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver: %q (available: %v)", name, Solvers())
	}
	solver, closer := fn()
	b.Runtime.Solver = solver
	b.addCloser(closer)

	// Pebble coverage is closed by the runtime on shutdown.
	if config.Coverage == symcc.CoveragePebble {
		store, err := pebble.Open(config.CoverageDB)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Runtime.Coverage = store
	}

	if len(config.Kafka.Brokers) > 0 {
		sink := kafka.NewSink(config.Kafka.Brokers, config.Kafka.Topic)
		b.Runtime.Sink = symcc.MultiSink{symcc.NewDirSink(config.OutputDir), sink}
		b.addCloser(sink)
	}
	return b, nil
}

func (b *Backend) addCloser(c io.Closer) {
	if c != nil {
		b.closers = append(b.closers, c)
	}
}

// Close shuts down the runtime and releases the collaborators.
func (b *Backend) Close() error {
	err := b.Runtime.Shutdown()
	for i := len(b.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, b.closers[i].Close())
	}
	b.closers = nil
	return err
}
