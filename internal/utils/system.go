package utils

import (
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
)

// EnsureRoot fails with ErrPrivilege unless the process runs with an
// effective UID of 0. Mount and device-mapper operations need it, so this
// is checked once at startup rather than discovered mid-pipeline.
func EnsureRoot() error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("%w: run with sudo", kerrors.ErrPrivilege)
	}
	return nil
}

// ExecutablePath returns the absolute path of the running binary, resolving
// any symlink. The destruct unit re-executes this path, so it must not
// depend on the working directory.
func ExecutablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return exe, nil
	}
	return resolved, nil
}
