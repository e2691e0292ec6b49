package luks

import (
	"context"
	"errors"
	"fmt"

	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
	"github.com/glitchlinux/deaddrop/internal/utils"
)

// Volume describes an unlocked, mounted encrypted volume.
type Volume struct {
	MapperName string
	DevicePath string
	MountPath  string
}

// PassphraseFunc obtains the operator's secret for one attempt. The
// controller zeroes the returned slice once the attempt completes, so
// implementations must not retain a reference.
type PassphraseFunc func(prompt string) ([]byte, error)

// Controller drives the unlock-and-mount state machine:
//
//	AwaitingPassphrase ⇄ Unlocking (bounded retry) → Unlocked → Mounting → Mounted
//
// Wrong passphrases loop back up to maxAttempts times; any failure after a
// successful unlock is terminal and never re-enters the passphrase loop.
type Controller struct {
	svc         Service
	mounter     Mounter
	readSecret  PassphraseFunc
	maxAttempts int
	log         logger.Logger
}

// NewController wires a Controller. readSecret is typically
// utils.ReadPassphrase; tests inject scripted secrets.
func NewController(svc Service, mounter Mounter, readSecret PassphraseFunc, maxAttempts int, log logger.Logger) *Controller {
	return &Controller{
		svc:         svc,
		mounter:     mounter,
		readSecret:  readSecret,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// UnlockAndMount prompts for the passphrase, unlocks the image under
// mapperName, and mounts the resulting block device at mountPath.
//
// Exactly maxAttempts passphrase attempts are permitted; exhausting them
// returns ErrAuthExhausted and the session must abort with no partial
// mount. The passphrase never outlives the attempt that read it.
func (c *Controller) UnlockAndMount(ctx context.Context, imagePath, mapperName, mountPath string) (*Volume, error) {
	devicePath := ""

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		prompt := fmt.Sprintf("Enter passphrase (attempt %d/%d): ", attempt, c.maxAttempts)
		secret, err := c.readSecret(prompt)
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}

		devicePath, err = c.svc.Open(ctx, imagePath, mapperName, secret)
		utils.Zero(secret)

		if err == nil {
			break
		}
		if !errors.Is(err, kerrors.ErrWrongPassphrase) {
			return nil, fmt.Errorf("unlocking volume: %w", err)
		}

		c.log.WarnfUser("Passphrase rejected (%d/%d)", attempt, c.maxAttempts)
		if attempt == c.maxAttempts {
			return nil, fmt.Errorf("%w after %d attempts", kerrors.ErrAuthExhausted, c.maxAttempts)
		}
	}

	c.log.Infof("Volume unlocked at %s", devicePath)

	if err := c.mounter.MountDevice(devicePath, mountPath); err != nil {
		// The unlock succeeded but the mount did not. Close the mapper so
		// the key does not linger in kernel memory, then report the mount
		// failure rather than hiding it behind the cleanup.
		if closeErr := c.svc.Close(ctx, mapperName); closeErr != nil {
			c.log.Errorf("Failed to close mapper after mount failure: %v", closeErr)
		}
		return nil, err
	}

	c.log.Infof("Volume mounted at %s", mountPath)
	return &Volume{MapperName: mapperName, DevicePath: devicePath, MountPath: mountPath}, nil
}
