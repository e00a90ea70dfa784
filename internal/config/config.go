// Package config holds the ingestion policy constants. Defaults live in
// code; a csingest.yaml file and CSINGEST_-prefixed environment variables
// may override them.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces environment overrides, e.g. CSINGEST_TICK_SKEW_TICKS.
const envPrefix = "CSINGEST_"

// Config carries the repair and indexing policy constants. The
// tick-domain values depend on the external parser's tick rate; defaults
// assume 64-tick recordings.
type Config struct {
	// TickSkewTicks bounds the local re-sort window for out-of-order
	// events. Violations beyond it are excluded from replay.
	TickSkewTicks int `koanf:"tick_skew_ticks"`

	// RoundGapTicks is the tick gap beyond which a round boundary is
	// inferred when the payload carries no round markers.
	RoundGapTicks int `koanf:"round_gap_ticks"`

	// TicksPerSecond converts ticks to wall-clock for labels and reports.
	TicksPerSecond float64 `koanf:"ticks_per_second"`

	// MaxDamagePerHit clamps implausible damage values.
	MaxDamagePerHit int `koanf:"max_damage_per_hit"`

	// MaxWorldCoord bounds plausible position coordinates; positions with
	// any axis beyond it are dropped and flagged.
	MaxWorldCoord float64 `koanf:"max_world_coord"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		TickSkewTicks:   16,    // 0.25s at 64-tick
		RoundGapTicks:   20000, // ~5 min at 64-tick
		TicksPerSecond:  64,
		MaxDamagePerHit: 500,
		MaxWorldCoord:   1 << 17,
	}
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment, in that precedence order. path may be empty; a missing file
// at an explicitly given path is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.TickSkewTicks < 0 {
		return fmt.Errorf("tick_skew_ticks must be >= 0, got %d", c.TickSkewTicks)
	}
	if c.RoundGapTicks <= 0 {
		return fmt.Errorf("round_gap_ticks must be > 0, got %d", c.RoundGapTicks)
	}
	if c.TicksPerSecond <= 0 {
		return fmt.Errorf("ticks_per_second must be > 0, got %f", c.TicksPerSecond)
	}
	return nil
}
