package luks

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
)

// Mounter mounts and unmounts the plaintext block device.
type Mounter interface {
	MountDevice(device, mountPoint string) error
	UnmountPath(path string) error
	IsMountpoint(path string) bool
}

// BlockMounter drives mount(8) and umount(8).
type BlockMounter struct{}

func (BlockMounter) MountDevice(device, mountPoint string) error {
	if err := os.MkdirAll(mountPoint, 0700); err != nil {
		return fmt.Errorf("%w: creating mount point %s: %v", kerrors.ErrMount, mountPoint, err)
	}
	if err := run("mount", device, mountPoint); err != nil {
		return fmt.Errorf("%w: mounting %s at %s: %v", kerrors.ErrMount, device, mountPoint, err)
	}
	return nil
}

func (BlockMounter) UnmountPath(path string) error {
	if err := run("umount", path); err != nil {
		return fmt.Errorf("%w: unmounting %s: %v", kerrors.ErrMount, path, err)
	}
	return nil
}

func (BlockMounter) IsMountpoint(path string) bool {
	return run("mountpoint", "-q", path) == nil
}

func run(name string, args ...string) error {
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
