package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/y4ngyy/SymCC-Modified/pebble"
)

// CoverageCommand represents a command for inspecting a coverage database.
type CoverageCommand struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewCoverageCommand returns a new instance of CoverageCommand.
func NewCoverageCommand() *CoverageCommand {
	return &CoverageCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the "coverage" subcommand.
func (cmd *CoverageCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("symcc-coverage", flag.ContinueOnError)
	list := fs.Bool("l", false, "list keys")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("coverage database required")
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many databases specified")
	}

	store, err := pebble.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer store.Close()

	if *list {
		if err := store.Keys(func(key uint64) error {
			_, err := fmt.Fprintf(cmd.Stdout, "%016x\n", key)
			return err
		}); err != nil {
			return err
		}
	}

	n, err := store.Len()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Stdout, "%d branches covered\n", n)
	return nil
}

func (cmd *CoverageCommand) usage() {
	fmt.Fprintln(cmd.Stderr, `
usage: symcc coverage [arguments] DIR

Reports the branches recorded in a pebble coverage database.

Arguments:

	-l
	    List every recorded branch key.
`[1:])
}
