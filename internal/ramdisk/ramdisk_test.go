package ramdisk

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
)

// recordingRunner captures every command line and answers from a script.
type recordingRunner struct {
	calls   []string
	answers map[string]error
}

func (r *recordingRunner) Run(name string, args ...string) error {
	line := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, line)
	if err, ok := r.answers[name]; ok {
		return err
	}
	return nil
}

func TestProvisionMountsTmpfsWithSizeBound(t *testing.T) {
	runner := &recordingRunner{}
	path := filepath.Join(t.TempDir(), "ramdisk")
	p := NewProvisionerWithRunner(runner, logger.Logger{})

	store, err := p.Provision(path, "5M")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if store.MountPath != path || store.Size != "5M" {
		t.Errorf("Unexpected store: %+v", store)
	}

	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		t.Errorf("Mount point directory was not created: %v", err)
	}

	want := "mount -t tmpfs -o size=5M tmpfs " + path
	if len(runner.calls) != 1 || runner.calls[0] != want {
		t.Errorf("Calls = %v, want [%q]", runner.calls, want)
	}
}

func TestProvisionWrapsMountFailure(t *testing.T) {
	runner := &recordingRunner{answers: map[string]error{"mount": errors.New("exit status 32")}}
	p := NewProvisionerWithRunner(runner, logger.Logger{})

	_, err := p.Provision(filepath.Join(t.TempDir(), "ramdisk"), "5M")
	if !errors.Is(err, kerrors.ErrMount) {
		t.Fatalf("Expected ErrMount, got %v", err)
	}
}

func TestTeardownUnmountsOnlyWhenMounted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramdisk")
	if err := os.MkdirAll(path, 0700); err != nil {
		t.Fatal(err)
	}

	t.Run("Mounted", func(t *testing.T) {
		runner := &recordingRunner{}
		p := NewProvisionerWithRunner(runner, logger.Logger{})
		if err := p.Teardown(path); err != nil {
			t.Fatalf("Teardown failed: %v", err)
		}
		// mountpoint reported success, so umount must have run.
		want := []string{"mountpoint -q " + path, "umount " + path}
		if len(runner.calls) != 2 || runner.calls[0] != want[0] || runner.calls[1] != want[1] {
			t.Errorf("Calls = %v, want %v", runner.calls, want)
		}
	})

	t.Run("AlreadyGone", func(t *testing.T) {
		runner := &recordingRunner{answers: map[string]error{"mountpoint": errors.New("exit status 1")}}
		p := NewProvisionerWithRunner(runner, logger.Logger{})
		if err := p.Teardown(path); err != nil {
			t.Fatalf("Teardown of an unmounted path failed: %v", err)
		}
		for _, call := range runner.calls {
			if strings.HasPrefix(call, "umount") {
				t.Errorf("umount ran on an unmounted path: %v", runner.calls)
			}
		}
	})
}
