package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognised by [ApplyEnv].
const (
	EnvDumpPath     = "ENTITY_DUMP_PATH"
	EnvStoreDSN     = "ENTITY_STORE_DSN"
	EnvNERTypesPath = "NER_TYPES_PATH"
)

// Load reads the YAML configuration file at path over the defaults, applies
// the environment, and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults, applies the
// environment, and validates the result. Unknown YAML keys are an error.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := Parse(r)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML config from r over the defaults without applying the
// environment or validating. The binary layers environment and flags on top
// before calling [Validate].
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overlays recognised environment variables onto cfg. Environment
// values override the file; CLI flags applied afterwards override both.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvDumpPath); v != "" {
		cfg.DumpPath = v
	}
	if v := os.Getenv(EnvStoreDSN); v != "" {
		cfg.StoreDSN = v
	}
	if v := os.Getenv(EnvNERTypesPath); v != "" {
		cfg.NERTypesPath = v
	}
}
