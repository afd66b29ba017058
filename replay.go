package symcc

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Trace is a recorded sequence of runtime calls. Values are referred to by
// name; every named value stays a garbage collection root until dropped.
type Trace struct {
	Steps []Step `yaml:"steps"`
}

// Step is a single runtime call within a trace.
type Step struct {
	Op     string   `yaml:"op"`
	Name   string   `yaml:"name,omitempty"`
	Fn     string   `yaml:"fn,omitempty"`
	Args   []string `yaml:"args,omitempty"`
	Value  uint64   `yaml:"value,omitempty"`
	High   uint64   `yaml:"high,omitempty"`
	Bits   uint8    `yaml:"bits,omitempty"`
	Offset uint64   `yaml:"offset,omitempty"`
	First  uint     `yaml:"first,omitempty"`
	Last   uint     `yaml:"last,omitempty"`
	Taken  bool     `yaml:"taken,omitempty"`
	Site   uint64   `yaml:"site,omitempty"`
}

// ParseTrace decodes a YAML trace. Unknown fields are rejected.
func ParseTrace(data []byte) (*Trace, error) {
	var t Trace
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parse trace: %w", err)
	}
	return &t, nil
}

// Replayer drives a Runtime from a trace.
type Replayer struct {
	runtime *Runtime
	names   map[string]Handle
	output  []string
}

// NewReplayer returns a replayer for r and installs it as the root set of r.
// It must be called before r is shared with other goroutines.
func NewReplayer(r *Runtime) *Replayer {
	p := &Replayer{runtime: r, names: make(map[string]Handle)}
	r.Roots = p
	return p
}

// Roots returns the handles of all named values.
func (p *Replayer) Roots() []Handle {
	a := make([]Handle, 0, len(p.names))
	for _, h := range p.names {
		a = append(a, h)
	}
	return a
}

// Handle returns the handle bound to name.
func (p *Replayer) Handle(name string) (Handle, bool) {
	h, ok := p.names[name]
	return h, ok
}

// Run executes each step of t in order and returns the lines produced by
// observing steps such as "print", "feasible" and "exact".
func (p *Replayer) Run(t *Trace) ([]string, error) {
	p.output = nil
	for i, step := range t.Steps {
		if err := p.step(step); err != nil {
			return p.output, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}
	return p.output, nil
}

func (p *Replayer) step(s Step) error {
	r := p.runtime

	args := make([]Handle, len(s.Args))
	for i, name := range s.Args {
		h, ok := p.names[name]
		if !ok {
			return fmt.Errorf("unknown value: %q", name)
		}
		args[i] = h
	}
	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("expected %d arguments, got %d", n, len(args))
		}
		return nil
	}

	var h Handle
	switch s.Op {
	case "input":
		h = r.GetInputByte(s.Offset, byte(s.Value))
	case "const":
		h = r.BuildInteger(s.Value, s.Bits)
	case "const128":
		h = r.BuildInteger128(s.High, s.Value)
	case "null":
		h = r.BuildNullPointer()
	case "bool":
		h = r.BuildBool(s.Value != 0)
	case "float":
		h = r.BuildFloat(float64(s.Value), s.Bits == 64)
	case "fadd":
		if err := want(2); err != nil {
			return err
		}
		h = r.BuildFloatBinary("add", args[0], args[1])

	case "binary":
		if err := want(2); err != nil {
			return err
		}
		op, ok := ParseBinaryOp(s.Fn)
		if !ok {
			return fmt.Errorf("unknown binary operation: %q", s.Fn)
		}
		h = r.BuildBinary(op, args[0], args[1])
	case "neg", "not", "bool_to_bit":
		if err := want(1); err != nil {
			return err
		}
		switch s.Op {
		case "neg":
			h = r.BuildNeg(args[0])
		case "not":
			h = r.BuildNot(args[0])
		default:
			h = r.BuildBoolToBit(args[0])
		}
	case "ite":
		if err := want(3); err != nil {
			return err
		}
		h = r.BuildIte(args[0], args[1], args[2])
	case "sext", "zext", "trunc":
		if err := want(1); err != nil {
			return err
		}
		switch s.Op {
		case "sext":
			h = r.BuildSExt(args[0], s.Bits)
		case "zext":
			h = r.BuildZExt(args[0], s.Bits)
		default:
			h = r.BuildTrunc(args[0], s.Bits)
		}
	case "concat":
		if err := want(2); err != nil {
			return err
		}
		h = r.Concat(args[0], args[1])
	case "extract":
		if err := want(1); err != nil {
			return err
		}
		h = r.Extract(args[0], s.First, s.Last)

	case "branch", "sanitizer":
		if err := want(1); err != nil {
			return err
		}
		if s.Op == "branch" {
			r.PushPathConstraint(args[0], s.Taken, s.Site)
		} else {
			r.PushSanitizerConstraint(args[0], s.Taken, s.Site)
		}
	case "defer":
		if err := want(2); err != nil {
			return err
		}
		r.InsertSymbolicAddress(args[0], args[1], s.Value)
	case "verify":
		if err := want(1); err != nil {
			return err
		}
		r.VerifyConstraint(args[0])
	case "call":
		r.NotifyCall(s.Site)
	case "ret":
		r.NotifyReturn(s.Site)
	case "bb":
		r.NotifyBasicBlock(s.Site)
	case "gc":
		r.CollectGarbage()
	case "drop":
		for _, name := range s.Args {
			delete(p.names, name)
		}

	case "print":
		if err := want(1); err != nil {
			return err
		}
		p.printf("%s = %s", s.Args[0], r.ExprString(args[0]))
	case "feasible":
		if err := want(1); err != nil {
			return err
		}
		p.printf("feasible %s = %t", s.Args[0], r.Feasible(args[0]))
	case "exact":
		if err := want(1); err != nil {
			return err
		}
		p.printf("exact %s = %t", s.Args[0], r.IsExact(args[0]))
	case "deps":
		if err := want(1); err != nil {
			return err
		}
		p.printf("deps %s = %s", s.Args[0], r.DependencySet(args[0]))
	case "stats":
		p.printf("expressions = %d", r.Len())
		p.printf("deferred = %d", len(r.DeferredEntries()))
		p.printf("exact = %s", r.ExactDependencySet())
		p.printf("constraints = %d", len(r.PathConstraints()))
	case "live":
		live := make([]string, 0, len(p.names))
		for name, h := range p.names {
			if _, err := r.Lookup(h); err == nil {
				live = append(live, name)
			}
		}
		sort.Strings(live)
		p.printf("live = %v", live)

	default:
		return fmt.Errorf("unknown operation")
	}

	if s.Name != "" {
		p.names[s.Name] = h
	}
	return nil
}

func (p *Replayer) printf(format string, args ...interface{}) {
	p.output = append(p.output, fmt.Sprintf(format, args...))
}
