// Package config provides the configuration schema and loader for the
// Quindex pipeline and lookup tooling. Resolution order is: built-in
// defaults, then an optional YAML file, then environment variables, then
// CLI flags (applied by the binary).
package config

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"time"
)

// LogLevel controls log verbosity for the Quindex binary.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// languagePattern matches BCP-47-ish language codes accepted in the
// allowlist ("en", "pt-br", "zh-hans").
var languagePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,15}$`)

// Duration wraps [time.Duration] so YAML configs can use "48h"-style values.
type Duration time.Duration

// UnmarshalYAML decodes a Go duration string ("30m", "48h").
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Config is the flat configuration for both the ingestion pipeline and the
// lookup probe. Every field has a documented default; see [Default].
type Config struct {
	// DumpPath is the entity dump to ingest (.json, .json.gz, or .json.bz2).
	// Required unless pass 1 is skipped. Env: ENTITY_DUMP_PATH.
	DumpPath string `yaml:"dump_path"`

	// StoreDSN is the Postgres connection string for the entity store.
	// Env: ENTITY_STORE_DSN.
	StoreDSN string `yaml:"store_dsn"`

	// LanguageAllowlist selects which label/alias/description languages are
	// ingested, in preference order.
	LanguageAllowlist []string `yaml:"language_allowlist"`

	// MaxAliasesPerLanguage caps aliases kept per language during pass 1.
	MaxAliasesPerLanguage int `yaml:"max_aliases_per_language"`

	// MaxContextObjects caps relation object IDs extracted per entity.
	MaxContextObjects int `yaml:"max_context_objects"`

	// MaxContextChars truncates the pass-2 context string.
	MaxContextChars int `yaml:"max_context_chars"`

	// Pass1Batch and Pass2Batch size the upsert and scan batches.
	Pass1Batch int `yaml:"pass1_batch"`
	Pass2Batch int `yaml:"pass2_batch"`

	// Workers is the transform / resolver pool width.
	Workers int `yaml:"workers"`

	// DisableNER leaves coarse and fine types empty during ingestion.
	DisableNER bool `yaml:"disable_ner"`

	// SkipPass1, SkipPass2, and SkipIndexes skip the corresponding pipeline
	// phase.
	SkipPass1   bool `yaml:"skip_pass1"`
	SkipPass2   bool `yaml:"skip_pass2"`
	SkipIndexes bool `yaml:"skip_indexes"`

	// Compact drops the auxiliary context-inputs table after a successful
	// run. Re-running pass 2 afterwards requires a rebuild.
	Compact bool `yaml:"compact"`

	// CacheTTL prunes query-cache entries older than this at the end of a
	// run. Zero disables pruning.
	CacheTTL Duration `yaml:"cache_ttl"`

	// NERTypesPath is an optional JSONL file of per-entity type overrides.
	// Env: NER_TYPES_PATH.
	NERTypesPath string `yaml:"ner_types_path"`

	// Limit caps the number of dump records read; zero reads everything.
	Limit int `yaml:"limit"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// Default returns a Config with the documented defaults filled in.
func Default() Config {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 1 {
		workers = 1
	}
	return Config{
		LanguageAllowlist:     []string{"en"},
		MaxAliasesPerLanguage: 8,
		MaxContextObjects:     32,
		MaxContextChars:       640,
		Pass1Batch:            5000,
		Pass2Batch:            1000,
		Workers:               workers,
		LogLevel:              LogInfo,
	}
}

// Validate checks that cfg is a coherent set of values. It returns a joined
// error listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.StoreDSN == "" {
		errs = append(errs, errors.New("store_dsn is required (or set ENTITY_STORE_DSN)"))
	}
	if cfg.DumpPath == "" && !cfg.SkipPass1 {
		errs = append(errs, errors.New("dump_path is required unless pass 1 is skipped (or set ENTITY_DUMP_PATH)"))
	}

	if len(cfg.LanguageAllowlist) == 0 {
		errs = append(errs, errors.New("language_allowlist must not be empty"))
	}
	for i, lang := range cfg.LanguageAllowlist {
		if !languagePattern.MatchString(lang) {
			errs = append(errs, fmt.Errorf("language_allowlist[%d] %q is not a valid language code", i, lang))
		}
	}

	positives := []struct {
		name  string
		value int
	}{
		{"max_aliases_per_language", cfg.MaxAliasesPerLanguage},
		{"max_context_objects", cfg.MaxContextObjects},
		{"max_context_chars", cfg.MaxContextChars},
		{"pass1_batch", cfg.Pass1Batch},
		{"pass2_batch", cfg.Pass2Batch},
		{"workers", cfg.Workers},
	}
	for _, p := range positives {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}

	if cfg.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", cfg.CacheTTL))
	}
	if cfg.Limit < 0 {
		errs = append(errs, fmt.Errorf("limit must not be negative, got %d", cfg.Limit))
	}
	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}
