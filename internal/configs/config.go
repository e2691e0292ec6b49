package configs

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config carries every fixed parameter of a dead-drop session. It is built
// once at startup from defaults, an optional TOML file, and flag overrides,
// and treated as immutable afterwards so the same pipeline can run against
// fake services in tests.
type Config struct {
	// RamdiskPath is where the volatile store is mounted.
	RamdiskPath string `toml:"ramdisk_path"`

	// RamdiskSize is the tmpfs size bound, in mount(8) notation (e.g. "5M").
	// The capacity is fixed at creation and cannot grow.
	RamdiskSize string `toml:"ramdisk_size"`

	// ImageURL is the remote location of the encrypted volume image.
	ImageURL string `toml:"image_url"`

	// ImagePath is where the fetched image is written.
	ImagePath string `toml:"image_path"`

	// MountPoint is where the unlocked volume is mounted.
	MountPoint string `toml:"mount_point"`

	// MapperName is the device-mapper name for the unlocked volume.
	// It is a system-wide singleton: a second open with the same name fails.
	MapperName string `toml:"mapper_name"`

	// MaxUnlockAttempts bounds the passphrase retry loop.
	MaxUnlockAttempts int `toml:"max_unlock_attempts"`

	// GraceSeconds separates the failsafe trigger from the primary one.
	GraceSeconds int `toml:"grace_seconds"`

	// TimerChoices are the lifetimes offered by the interactive menu,
	// in seconds.
	TimerChoices []int `toml:"timer_choices"`

	// MinSessionSeconds is the shortest lifetime the operator may arm.
	// Guards against a window too short to read anything.
	MinSessionSeconds int `toml:"min_session_seconds"`

	// AuditDir holds the audit log and the detached triggers' output.
	// It must live outside the ramdisk so destruction can be recorded.
	AuditDir string `toml:"audit_dir"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		RamdiskPath:       "/tmp/deaddrop_ramdisk",
		RamdiskSize:       "5M",
		ImageURL:          "https://github.com/GlitchLinux/LUKS-TOKEN/raw/refs/heads/main/LUKS-TOKEN-2MB.img",
		ImagePath:         "/tmp/deaddrop.img",
		MountPoint:        "/tmp/deaddrop_vault",
		MapperName:        "deaddrop_vault",
		MaxUnlockAttempts: 3,
		GraceSeconds:      180,
		TimerChoices:      []int{60, 300, 600},
		MinSessionSeconds: 30,
		AuditDir:          "/var/log/deaddrop",
	}
}

// Load returns the default configuration, overridden by the TOML file at
// path when path is non-empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if err := LoadTOML(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot produce a safe session.
func (c *Config) Validate() error {
	for name, p := range map[string]string{
		"ramdisk_path": c.RamdiskPath,
		"image_path":   c.ImagePath,
		"mount_point":  c.MountPoint,
		"audit_dir":    c.AuditDir,
	} {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%s must be an absolute path, got %q", name, p)
		}
	}
	if c.RamdiskSize == "" {
		return fmt.Errorf("ramdisk_size must be set")
	}
	if c.MapperName == "" {
		return fmt.Errorf("mapper_name must be set")
	}
	if c.MaxUnlockAttempts < 1 {
		return fmt.Errorf("max_unlock_attempts must be at least 1, got %d", c.MaxUnlockAttempts)
	}
	if c.GraceSeconds < 1 {
		return fmt.Errorf("grace_seconds must be positive, got %d", c.GraceSeconds)
	}
	if len(c.TimerChoices) == 0 {
		return fmt.Errorf("timer_choices must not be empty")
	}
	for _, t := range c.TimerChoices {
		if t < c.MinSessionSeconds {
			return fmt.Errorf("timer choice %ds is below min_session_seconds (%ds)", t, c.MinSessionSeconds)
		}
	}
	return nil
}

// Grace returns the failsafe grace period as a duration.
func (c *Config) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

// MapperDevice returns the block device path the encryption service exposes
// for the configured mapper name.
func (c *Config) MapperDevice() string {
	return "/dev/mapper/" + c.MapperName
}
