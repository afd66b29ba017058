package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	symcc "github.com/y4ngyy/SymCC-Modified"
	"github.com/y4ngyy/SymCC-Modified/internal/backend"
	"gopkg.in/yaml.v3"
)

// ConfigCommand represents a command for printing the effective configuration.
type ConfigCommand struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) (string, bool)
}

// NewConfigCommand returns a new instance of ConfigCommand.
func NewConfigCommand() *ConfigCommand {
	return &ConfigCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.LookupEnv,
	}
}

// Run executes the "config" subcommand.
func (cmd *ConfigCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("symcc-config", flag.ContinueOnError)
	format := fs.String("format", "yaml", "output format")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() != 0 {
		return fmt.Errorf("too many arguments")
	}

	config, err := symcc.ConfigFromEnv(cmd.Getenv)
	if err != nil {
		return err
	}

	switch *format {
	case "yaml":
		enc := yaml.NewEncoder(cmd.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(config); err != nil {
			return err
		}
		return enc.Close()
	case "go":
		spew.Fdump(cmd.Stdout, config)
		fmt.Fprintf(cmd.Stdout, "solvers: %v\n", backend.Solvers())
		return nil
	default:
		return fmt.Errorf("unknown format: %q", *format)
	}
}

func (cmd *ConfigCommand) usage() {
	fmt.Fprintln(cmd.Stderr, `
usage: symcc config [arguments]

Prints the configuration built from SYMCC_CONFIG_FILE and the
SYMCC_* environment variables.

Arguments:

	-format FORMAT
	    Output format: "yaml" or "go".
`[1:])
}
