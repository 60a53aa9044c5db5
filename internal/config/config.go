// Package config loads and bounds-checks process-wide configuration and
// exposes the immutable security policy tables. Configuration is loaded
// once at startup via Load and never mutated afterward; it is threaded
// by reference into every other component rather than kept as a mutable
// package-level global.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Limits holds the numeric bounds enforced across the core, each with an
// admissible range. Out-of-range values fail Load, never silently clamp.
type Limits struct {
	MemoryLimitMB                int `yaml:"memory_limit_mb"`
	CodeSizeLimit                int `yaml:"code_size_limit"`
	CoverageExhaustiveThreshold  int `yaml:"coverage_exhaustive_threshold"`
	DefaultAnalysisTimeoutSec    int `yaml:"default_analysis_timeout_seconds"`
	EquivalenceTimeoutSec        int `yaml:"equivalence_timeout_seconds"`
}

// PerPathTimeoutRatio is a fixed policy constant, not a tunable field.
const PerPathTimeoutRatio = 0.10

// bound describes one Limits field's admissible range and default.
type bound struct {
	name           string
	envVar         string
	lo, hi         int
	def            int
	target         *int
}

// Server holds transport-facing settings outside the core proper.
type Server struct {
	Listen string `yaml:"listen"`
}

// Logging mirrors the category logger's debug-mode gate and sink format.
type Logging struct {
	DebugMode bool   `yaml:"debug_mode"`
	Format    string `yaml:"format"` // "text" or "json"
	Dir       string `yaml:"dir"`
}

// Config is the process-wide configuration object. Built once by Load
// and passed by reference; the only later change is cmd/symbolicd
// setting Logging.DebugMode from --verbose before any request is served.
type Config struct {
	Limits  Limits  `yaml:"limits"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
	Policy  Policy  `yaml:"-"` // compiled tables, never serialized
}

// DefaultConfig returns the configuration's defaults, matching spec.md
// §4.1 exactly.
func DefaultConfig() *Config {
	return &Config{
		Limits: Limits{
			MemoryLimitMB:               2048,
			CodeSizeLimit:               65536,
			CoverageExhaustiveThreshold: 1000,
			DefaultAnalysisTimeoutSec:   30,
			EquivalenceTimeoutSec:       60,
		},
		Server: Server{Listen: "stdio"},
		Logging: Logging{
			DebugMode: false,
			Format:    "text",
			Dir:       ".symbolicd/logs",
		},
		Policy: CompilePolicy(),
	}
}

// Load builds the process-wide Config: YAML file (if present) layered
// over defaults, then SYMBOLIC_* environment variable overrides, then
// bounds validation. It must be called exactly once, before any request
// is accepted; the returned Config is not mutated once requests are
// being served.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.Policy = CompilePolicy()

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.validateBounds(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bounds returns the bound descriptors for every Limits field, used by
// both applyEnvOverrides and validateBounds so the two never drift.
func (c *Config) bounds() []bound {
	return []bound{
		{"MemoryLimitMB", "SYMBOLIC_MEMORY_LIMIT_MB", 128, 65536, 2048, &c.Limits.MemoryLimitMB},
		{"CodeSizeLimit", "SYMBOLIC_CODE_SIZE_LIMIT", 1024, 1048576, 65536, &c.Limits.CodeSizeLimit},
		{"CoverageExhaustiveThreshold", "SYMBOLIC_COVERAGE_EXHAUSTIVE_THRESHOLD", 100, 100000, 1000, &c.Limits.CoverageExhaustiveThreshold},
		{"DefaultAnalysisTimeoutSeconds", "SYMBOLIC_DEFAULT_ANALYSIS_TIMEOUT_SECONDS", 1, 3600, 30, &c.Limits.DefaultAnalysisTimeoutSec},
		{"EquivalenceTimeoutSeconds", "SYMBOLIC_EQUIVALENCE_TIMEOUT_SECONDS", 1, 3600, 60, &c.Limits.EquivalenceTimeoutSec},
	}
}

// applyEnvOverrides parses each SYMBOLIC_<NAME> environment variable as
// an integer; non-numeric values fall back to the existing (default or
// YAML-loaded) value, per spec.md §4.1's bounds parser contract.
func (c *Config) applyEnvOverrides() error {
	for _, b := range c.bounds() {
		raw, ok := os.LookupEnv(b.envVar)
		if !ok || raw == "" {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
			continue // non-numeric: keep current value
		}
		*b.target = v
	}
	return nil
}

// validateBounds fails startup with a message naming the variable and
// the violated bound, per spec.md §4.1 and property P7.
func (c *Config) validateBounds() error {
	for _, b := range c.bounds() {
		v := *b.target
		if v < b.lo || v > b.hi {
			return fmt.Errorf("%s (%s) = %d out of range [%d, %d]", b.name, b.envVar, v, b.lo, b.hi)
		}
	}
	return nil
}
