package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if c.TickSkewTicks != 16 {
		t.Errorf("TickSkewTicks default: want 16, got %d", c.TickSkewTicks)
	}
	if c.RoundGapTicks != 20000 {
		t.Errorf("RoundGapTicks default: want 20000, got %d", c.RoundGapTicks)
	}
	if c.TicksPerSecond != 64 {
		t.Errorf("TicksPerSecond default: want 64, got %f", c.TicksPerSecond)
	}
}

func TestLoadNoFile(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if c.TickSkewTicks != 16 {
		t.Errorf("expected defaults without a file, got skew=%d", c.TickSkewTicks)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "csingest.yaml")
	body := "tick_skew_ticks: 32\nround_gap_ticks: 40000\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.TickSkewTicks != 32 {
		t.Errorf("tick_skew_ticks: want 32, got %d", c.TickSkewTicks)
	}
	if c.RoundGapTicks != 40000 {
		t.Errorf("round_gap_ticks: want 40000, got %d", c.RoundGapTicks)
	}
	// Untouched keys keep defaults.
	if c.TicksPerSecond != 64 {
		t.Errorf("ticks_per_second should keep default, got %f", c.TicksPerSecond)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CSINGEST_TICK_SKEW_TICKS", "8")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.TickSkewTicks != 8 {
		t.Errorf("env override: want 8, got %d", c.TickSkewTicks)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("CSINGEST_ROUND_GAP_TICKS", "0")
	if _, err := Load(""); err == nil {
		t.Error("expected validation error for round_gap_ticks=0")
	}
}
