package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/prometheus/common/expfmt"
	symcc "github.com/y4ngyy/SymCC-Modified"
	"github.com/y4ngyy/SymCC-Modified/internal/backend"
)

// ReplayCommand represents a command for replaying runtime call traces.
type ReplayCommand struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) (string, bool)
}

// NewReplayCommand returns a new instance of ReplayCommand.
func NewReplayCommand() *ReplayCommand {
	return &ReplayCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.LookupEnv,
	}
}

// Run executes the "replay" subcommand.
func (cmd *ReplayCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("symcc-replay", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose")
	outputDir := fs.String("o", "", "output directory")
	solver := fs.String("solver", "", "solver backend")
	metrics := fs.Bool("metrics", false, "print metrics after replay")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("trace file required")
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many trace files specified")
	}

	config, err := symcc.ConfigFromEnv(cmd.Getenv)
	if err != nil {
		return err
	}
	if *outputDir != "" {
		config.OutputDir = *outputDir
	}
	if *solver != "" {
		config.Solver = *solver
	}

	buf, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	trace, err := symcc.ParseTrace(buf)
	if err != nil {
		return err
	}

	b, err := backend.Open(config)
	if err != nil {
		return err
	}
	defer b.Close()

	logOutput := cmd.Stderr
	if !*verbose {
		logOutput = io.Discard
	}
	b.Runtime.Logger = log.New(logOutput, "", 0)

	replayer := symcc.NewReplayer(b.Runtime)
	if err := b.Runtime.Initialize(); err != nil {
		return err
	}

	output, err := replayer.Run(trace)
	for _, line := range output {
		fmt.Fprintln(cmd.Stdout, line)
	}
	if err != nil {
		return err
	}

	if *metrics {
		families, err := b.Runtime.Metrics().Registry.Gather()
		if err != nil {
			return err
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(cmd.Stdout, mf); err != nil {
				return err
			}
		}
	}
	return b.Close()
}

func (cmd *ReplayCommand) usage() {
	fmt.Fprintln(cmd.Stderr, `
usage: symcc replay [arguments] TRACE

Replays the runtime calls recorded in a YAML trace. Settings are read
from the SYMCC_* environment variables and may be overridden below.

Arguments:

	-o DIR
	    Write generated test cases to DIR.

	-solver NAME
	    Solver backend.

	-metrics
	    Print metrics in the Prometheus text format after replay.

	-v
	    Enable verbose logging.
`[1:])
}
