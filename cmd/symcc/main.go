package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "replay":
		return NewReplayCommand().Run(ctx, args)
	case "config":
		return NewConfigCommand().Run(ctx, args)
	case "coverage":
		return NewCoverageCommand().Run(ctx, args)
	default:
		return fmt.Errorf(`symcc %s: unknown command`, cmd)
	}
}

// printError writes err to stderr, in red when stderr is a terminal.
func printError(err error) {
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

func usage() {
	fmt.Fprintln(os.Stderr, `
SymCC is a symbolic backend for compiler-instrumented programs.

Usage:

	symcc <command> [arguments]

The commands are:

	config      print the effective configuration
	coverage    inspect a persistent coverage database
	replay      replay a recorded trace of runtime calls
	help        this screen
`[1:])
}
