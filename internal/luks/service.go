package luks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
)

// Service is the narrow interface to the system volume-encryption service.
// The secret always travels through an in-memory channel, never argv.
type Service interface {
	// Open unlocks the encrypted image under the given mapper name and
	// returns the plaintext block device path. A wrong passphrase returns
	// an error matching ErrWrongPassphrase. Opening an already-open name
	// fails; the mapper name is a system-wide singleton.
	Open(ctx context.Context, imagePath, name string, secret []byte) (string, error)

	// Close revokes the mapping and its key material from kernel memory.
	Close(ctx context.Context, name string) error

	// IsOpen reports whether a mapping currently exists under name.
	// It checks live state on every call.
	IsOpen(name string) bool
}

// cryptsetup exit code for a failed passphrase, per cryptsetup(8).
const exitBadPassphrase = 2

// Cryptsetup drives the cryptsetup(8) tool.
type Cryptsetup struct {
	log logger.Logger
}

// NewCryptsetup returns a Service backed by cryptsetup(8).
func NewCryptsetup(log logger.Logger) *Cryptsetup {
	return &Cryptsetup{log: log}
}

func (c *Cryptsetup) Open(ctx context.Context, imagePath, name string, secret []byte) (string, error) {
	cmd := exec.CommandContext(ctx, "cryptsetup", "open", imagePath, name)
	// The passphrase goes in on stdin so it never shows up in process
	// listings or logs.
	cmd.Stdin = bytes.NewReader(secret)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == exitBadPassphrase {
			return "", fmt.Errorf("%w: %s", kerrors.ErrWrongPassphrase, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("cryptsetup open %s: %v: %s", imagePath, err, strings.TrimSpace(stderr.String()))
	}

	c.log.Debugf("Mapper %s opened", name)
	return "/dev/mapper/" + name, nil
}

func (c *Cryptsetup) Close(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "cryptsetup", "close", name)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cryptsetup close %s: %v: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	c.log.Debugf("Mapper %s closed", name)
	return nil
}

func (c *Cryptsetup) IsOpen(name string) bool {
	_, err := os.Stat("/dev/mapper/" + name)
	return err == nil
}
