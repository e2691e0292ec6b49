package configs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.MaxUnlockAttempts != 3 {
		t.Errorf("MaxUnlockAttempts = %d, want 3", cfg.MaxUnlockAttempts)
	}
	if cfg.GraceSeconds != 180 {
		t.Errorf("GraceSeconds = %d, want 180", cfg.GraceSeconds)
	}
	want := []int{60, 300, 600}
	if len(cfg.TimerChoices) != len(want) {
		t.Fatalf("TimerChoices = %v, want %v", cfg.TimerChoices, want)
	}
	for i, v := range want {
		if cfg.TimerChoices[i] != v {
			t.Errorf("TimerChoices[%d] = %d, want %d", i, cfg.TimerChoices[i], v)
		}
	}
	if cfg.MapperDevice() != "/dev/mapper/deaddrop_vault" {
		t.Errorf("MapperDevice = %q", cfg.MapperDevice())
	}
}

func TestLoadAppliesTOMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deaddrop.toml")
	content := strings.Join([]string{
		`ramdisk_size = "16M"`,
		`mapper_name = "custom_vault"`,
		`timer_choices = [120, 900]`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RamdiskSize != "16M" {
		t.Errorf("RamdiskSize = %q, want 16M", cfg.RamdiskSize)
	}
	if cfg.MapperName != "custom_vault" {
		t.Errorf("MapperName = %q", cfg.MapperName)
	}
	if len(cfg.TimerChoices) != 2 || cfg.TimerChoices[0] != 120 || cfg.TimerChoices[1] != 900 {
		t.Errorf("TimerChoices = %v", cfg.TimerChoices)
	}
	// Untouched keys keep their defaults.
	if cfg.RamdiskPath != "/tmp/deaddrop_ramdisk" {
		t.Errorf("RamdiskPath = %q", cfg.RamdiskPath)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("Expected an error for a missing config file")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"RelativeRamdiskPath", func(c *Config) { c.RamdiskPath = "ramdisk" }},
		{"RelativeAuditDir", func(c *Config) { c.AuditDir = "logs" }},
		{"EmptySize", func(c *Config) { c.RamdiskSize = "" }},
		{"EmptyMapperName", func(c *Config) { c.MapperName = "" }},
		{"ZeroAttempts", func(c *Config) { c.MaxUnlockAttempts = 0 }},
		{"ZeroGrace", func(c *Config) { c.GraceSeconds = 0 }},
		{"NoTimerChoices", func(c *Config) { c.TimerChoices = nil }},
		{"TimerBelowMinimum", func(c *Config) { c.TimerChoices = []int{10} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation to fail")
			}
		})
	}
}
