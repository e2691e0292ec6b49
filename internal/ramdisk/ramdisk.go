package ramdisk

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
)

// Store describes a provisioned memory-backed filesystem. Its capacity is
// fixed at creation; tmpfs rejects writes past the size bound.
type Store struct {
	MountPath string
	Size      string
}

// Runner executes an external command. The default implementation shells
// out; tests substitute a recorder.
type Runner interface {
	Run(name string, args ...string) error
}

// ExecRunner runs commands with os/exec, discarding stdout and capturing
// stderr into the returned error.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %s", err, msg)
		}
		return err
	}
	return nil
}

// Provisioner creates and tears down tmpfs mounts.
type Provisioner struct {
	runner Runner
	log    logger.Logger
}

// NewProvisioner returns a Provisioner that shells out to mount(8).
func NewProvisioner(log logger.Logger) *Provisioner {
	return &Provisioner{runner: ExecRunner{}, log: log}
}

// NewProvisionerWithRunner returns a Provisioner using the given runner.
func NewProvisionerWithRunner(runner Runner, log logger.Logger) *Provisioner {
	return &Provisioner{runner: runner, log: log}
}

// Provision creates the directory if absent and mounts a tmpfs of exactly
// size at path. Mount failure is fatal to the session; there is no retry.
func (p *Provisioner) Provision(path, size string) (*Store, error) {
	p.log.Debugf("Creating ramdisk mount point at %s", path)
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("creating ramdisk directory: %w", err)
	}

	p.log.Debugf("Mounting %s tmpfs at %s", size, path)
	if err := p.runner.Run("mount", "-t", "tmpfs", "-o", "size="+size, "tmpfs", path); err != nil {
		return nil, fmt.Errorf("%w: mounting tmpfs at %s: %v", kerrors.ErrMount, path, err)
	}

	return &Store{MountPath: path, Size: size}, nil
}

// Teardown unmounts path and removes the directory. Safe to call when the
// mount is already gone.
func (p *Provisioner) Teardown(path string) error {
	if p.IsMountpoint(path) {
		if err := p.runner.Run("umount", path); err != nil {
			return fmt.Errorf("%w: unmounting %s: %v", kerrors.ErrMount, path, err)
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// IsMountpoint reports whether path is currently a mount point. It checks
// live state on every call: the destruct unit may have acted since the
// last observation.
func (p *Provisioner) IsMountpoint(path string) bool {
	return p.runner.Run("mountpoint", "-q", path) == nil
}
