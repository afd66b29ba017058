package symcc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultOutputDir   = "/tmp/output"
	DefaultGCThreshold = 5000000
	DefaultSolver      = "gini"
	DefaultKafkaTopic  = "symcc-test-cases"
)

// Coverage backends.
const (
	CoverageBitmap = "bitmap"
	CoveragePebble = "pebble"
)

// Config holds the runtime settings.
type Config struct {
	// Directory receiving generated test cases. Must exist.
	OutputDir string `yaml:"output-dir"`

	// File the program reads its symbolic input from. Empty means stdin.
	InputFile string `yaml:"input-file"`

	// Run fully concrete; no expressions are ever built.
	NoSymbolicInput bool `yaml:"no-symbolic-input"`

	// Concretize expressions built in uninteresting contexts.
	Pruning bool `yaml:"pruning"`

	// Branch coverage filter. "bitmap" uses an AFL-style map stored at
	// AFLCoverageMap; "pebble" uses a database at CoverageDB.
	Coverage       string `yaml:"coverage"`
	AFLCoverageMap string `yaml:"afl-coverage-map"`
	CoverageDB     string `yaml:"coverage-db"`

	// Registry size at which garbage collection runs.
	GCThreshold int `yaml:"gc-threshold"`

	// Solver backend name.
	Solver string `yaml:"solver"`

	Debug   bool   `yaml:"debug"`
	LogFile string `yaml:"log-file"`

	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig enables publishing test cases to a topic when Brokers is set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		OutputDir:   DefaultOutputDir,
		Coverage:    CoverageBitmap,
		GCThreshold: DefaultGCThreshold,
		Solver:      DefaultSolver,
		Kafka:       KafkaConfig{Topic: DefaultKafkaTopic},
	}
}

// Validate returns an error if the configuration is inconsistent.
func (c *Config) Validate() error {
	switch c.Coverage {
	case "", CoverageBitmap:
	case CoveragePebble:
		if c.CoverageDB == "" {
			return errors.New("pebble coverage requires a coverage database path")
		}
	default:
		return fmt.Errorf("unknown coverage backend: %q", c.Coverage)
	}
	if c.GCThreshold < 0 {
		return fmt.Errorf("invalid gc threshold: %d", c.GCThreshold)
	}
	return nil
}

// LoadConfig reads a YAML configuration file over the defaults.
// Unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, c.Validate()
}

// ConfigFromEnv builds the configuration from SYMCC_* variables read through
// lookup. A file named by SYMCC_CONFIG_FILE is loaded first and variables
// override its values.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := DefaultConfig()
	if path, ok := lookup("SYMCC_CONFIG_FILE"); ok && path != "" {
		var err error
		if c, err = LoadConfig(path); err != nil {
			return c, err
		}
	}

	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	flag := func(name string, dst *bool) error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		b, err := parseFlag(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
		return nil
	}

	str("SYMCC_OUTPUT_DIR", &c.OutputDir)
	str("SYMCC_INPUT_FILE", &c.InputFile)
	str("SYMCC_AFL_COVERAGE_MAP", &c.AFLCoverageMap)
	str("SYMCC_COVERAGE_BACKEND", &c.Coverage)
	str("SYMCC_COVERAGE_DB", &c.CoverageDB)
	str("SYMCC_SOLVER", &c.Solver)
	str("SYMCC_LOG_FILE", &c.LogFile)
	str("SYMCC_KAFKA_TOPIC", &c.Kafka.Topic)

	if v, ok := lookup("SYMCC_KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = nil
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, broker)
			}
		}
	}

	for name, dst := range map[string]*bool{
		"SYMCC_NO_SYMBOLIC_INPUT": &c.NoSymbolicInput,
		"SYMCC_PRUNING":           &c.Pruning,
		"SYMCC_DEBUG":             &c.Debug,
	} {
		if err := flag(name, dst); err != nil {
			return c, err
		}
	}

	if v, ok := lookup("SYMCC_GC_THRESHOLD"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("SYMCC_GC_THRESHOLD: %w", err)
		}
		c.GCThreshold = n
	}
	return c, c.Validate()
}

// parseFlag parses the boolean spellings accepted in the environment.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "yes", "true":
		return true, nil
	case "0", "off", "no", "false", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %q", s)
	}
}
