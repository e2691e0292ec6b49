package workflows

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glitchlinux/deaddrop/internal/configs"
	"github.com/glitchlinux/deaddrop/internal/destruct"
	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
	"github.com/glitchlinux/deaddrop/internal/fetch"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
	"github.com/glitchlinux/deaddrop/internal/luks"
	"github.com/glitchlinux/deaddrop/internal/ramdisk"
)

type fakeProvisioner struct {
	steps *[]string
	err   error
}

func (f *fakeProvisioner) Provision(path, size string) (*ramdisk.Store, error) {
	*f.steps = append(*f.steps, "provision")
	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	return &ramdisk.Store{MountPath: path, Size: size}, nil
}

type fakeFetcher struct {
	steps *[]string
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destPath string, progress fetch.ProgressFunc) (*fetch.Image, error) {
	*f.steps = append(*f.steps, "fetch")
	if f.err != nil {
		return nil, f.err
	}
	return &fetch.Image{SourceURL: url, LocalPath: destPath, SizeBytes: 2048}, nil
}

type fakeUnlocker struct {
	steps *[]string
	err   error
}

func (f *fakeUnlocker) UnlockAndMount(ctx context.Context, imagePath, mapperName, mountPath string) (*luks.Volume, error) {
	*f.steps = append(*f.steps, "unlock")
	if f.err != nil {
		return nil, f.err
	}
	return &luks.Volume{MapperName: mapperName, DevicePath: "/dev/mapper/" + mapperName, MountPath: mountPath}, nil
}

func testConfig(t *testing.T) *configs.Config {
	t.Helper()
	base := t.TempDir()
	cfg := configs.Default()
	cfg.RamdiskPath = filepath.Join(base, "ramdisk")
	cfg.ImagePath = filepath.Join(base, "ramdisk", "image.img")
	cfg.MountPoint = filepath.Join(base, "mnt")
	cfg.AuditDir = filepath.Join(base, "audit")
	return cfg
}

func testWorkflow(steps *[]string) *Workflow {
	return &Workflow{
		Provisioner: &fakeProvisioner{steps: steps},
		Fetcher:     &fakeFetcher{steps: steps},
		Unlocker:    &fakeUnlocker{steps: steps},
		Activate: func(unit *destruct.Unit, log logger.Logger) error {
			*steps = append(*steps, "activate")
			return nil
		},
		Log: logger.Logger{},
	}
}

func baseOptions(cfg *configs.Config) OpenOptions {
	return OpenOptions{
		Config:        cfg,
		TimerSeconds:  60,
		ShellIn:       strings.NewReader("q\n"),
		ShellOut:      &bytes.Buffer{},
		SkipRootCheck: true,
	}
}

func TestOpenRunsPipelineInOrder(t *testing.T) {
	cfg := testConfig(t)
	var steps []string
	w := testWorkflow(&steps)

	result, err := w.Open(context.Background(), baseOptions(cfg))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	want := []string{"provision", "fetch", "unlock", "activate"}
	if len(steps) != len(want) {
		t.Fatalf("Steps = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("Steps = %v, want %v", steps, want)
		}
	}

	if result.Session == "" {
		t.Error("Session ID was not assigned")
	}
	if result.Unit == nil || result.Unit.Plan.FailsafeSeconds != 60+cfg.GraceSeconds {
		t.Errorf("Unexpected unit: %+v", result.Unit)
	}
	if result.Volume == nil || result.Volume.MountPath != cfg.MountPoint {
		t.Errorf("Unexpected volume: %+v", result.Volume)
	}

	// The plan must have been persisted for the detached triggers.
	planPath := filepath.Join(cfg.RamdiskPath, destruct.PlanFileName)
	if _, err := os.Stat(planPath); err != nil {
		t.Errorf("Plan file missing: %v", err)
	}
}

func TestOpenAbortsWhenFetchFails(t *testing.T) {
	cfg := testConfig(t)
	var steps []string
	w := testWorkflow(&steps)
	w.Fetcher = &fakeFetcher{steps: &steps, err: errors.New("connection refused")}

	_, err := w.Open(context.Background(), baseOptions(cfg))
	if err == nil {
		t.Fatal("Expected Open to fail")
	}
	for _, s := range steps {
		if s == "unlock" || s == "activate" {
			t.Errorf("Step %q ran after a failed fetch: %v", s, steps)
		}
	}
}

func TestOpenAbortsWhenUnlockFails(t *testing.T) {
	cfg := testConfig(t)
	var steps []string
	w := testWorkflow(&steps)
	w.Unlocker = &fakeUnlocker{steps: &steps, err: kerrors.ErrAuthExhausted}

	_, err := w.Open(context.Background(), baseOptions(cfg))
	if !errors.Is(err, kerrors.ErrAuthExhausted) {
		t.Fatalf("Expected ErrAuthExhausted, got %v", err)
	}
	for _, s := range steps {
		if s == "activate" {
			t.Error("Destruct unit was activated without a mounted volume")
		}
	}
}

func TestOpenRejectsTooShortTimer(t *testing.T) {
	cfg := testConfig(t)
	var steps []string
	w := testWorkflow(&steps)

	opts := baseOptions(cfg)
	opts.TimerSeconds = 5
	_, err := w.Open(context.Background(), opts)
	if !errors.Is(err, kerrors.ErrTimerTooShort) {
		t.Fatalf("Expected ErrTimerTooShort, got %v", err)
	}
}

func TestOpenFailsWithoutTimerOrSelector(t *testing.T) {
	cfg := testConfig(t)
	var steps []string
	w := testWorkflow(&steps)

	opts := baseOptions(cfg)
	opts.TimerSeconds = 0
	opts.SelectTimer = nil

	// Must surface a configuration error, not crash on the nil selector.
	_, err := w.Open(context.Background(), opts)
	if err == nil {
		t.Fatal("Expected an error when no lifetime source is configured")
	}
	for _, s := range steps {
		if s == "unlock" || s == "activate" {
			t.Errorf("Step %q ran without a chosen lifetime: %v", s, steps)
		}
	}
}

func TestOpenConsultsTimerMenu(t *testing.T) {
	cfg := testConfig(t)
	var steps []string
	w := testWorkflow(&steps)

	opts := baseOptions(cfg)
	opts.TimerSeconds = 0
	asked := false
	opts.SelectTimer = func() (int, error) {
		asked = true
		return 300, nil
	}

	result, err := w.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !asked {
		t.Error("SelectTimer was never consulted")
	}
	if result.Unit.Plan.PrimarySeconds != 300 {
		t.Errorf("PrimarySeconds = %d, want 300", result.Unit.Plan.PrimarySeconds)
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MapperName = ""
	var steps []string
	w := testWorkflow(&steps)

	if _, err := w.Open(context.Background(), baseOptions(cfg)); err == nil {
		t.Fatal("Expected Open to reject an invalid config")
	}
	if len(steps) != 0 {
		t.Errorf("Pipeline ran despite invalid config: %v", steps)
	}
}
