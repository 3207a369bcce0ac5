// Package config loads the optional anchorgo.yaml file that supplies
// defaults for CLI flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gagliardetto/solana-go/rpc"
	"gopkg.in/yaml.v3"

	"github.com/roach88/anchorgo/internal/logging"
	"github.com/roach88/anchorgo/internal/transport"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "anchorgo.yaml"

// Config holds CLI defaults. Flags given on the command line win.
type Config struct {
	// OutDir is the root directory for generated packages.
	OutDir string `yaml:"out_dir"`

	// Package overrides the generated package name. Empty derives it from
	// the program name.
	Package string `yaml:"package"`

	RPCEndpoint string `yaml:"rpc_endpoint"`
	Commitment  string `yaml:"commitment"`

	// DB is the registry path. Empty disables the registry.
	DB string `yaml:"db"`

	LogLevel string `yaml:"log_level"`

	// MetricsFile receives Prometheus text metrics after each run. Empty
	// disables metrics.
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		OutDir:      "generated",
		RPCEndpoint: rpc.MainNetBeta_RPC,
		Commitment:  "confirmed",
		LogLevel:    "info",
	}
}

// Load reads a config file on top of the defaults. Keys missing from the
// file keep their default; unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes config YAML on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve loads path when set. Otherwise it loads DefaultFile if present
// and falls back to Default. found reports whether a file was read.
func Resolve(path string) (cfg Config, found bool, err error) {
	if path != "" {
		cfg, err = Load(path)
		return cfg, err == nil, err
	}
	if _, statErr := os.Stat(DefaultFile); statErr != nil {
		return Default(), false, nil
	}
	cfg, err = Load(DefaultFile)
	return cfg, err == nil, err
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	if _, err := transport.ParseCommitment(c.Commitment); err != nil {
		return fmt.Errorf("commitment: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir must not be empty")
	}
	return nil
}
