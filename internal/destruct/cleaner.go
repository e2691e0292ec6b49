package destruct

import (
	"context"
	"os"

	"github.com/glitchlinux/deaddrop/internal/audit"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
	"github.com/glitchlinux/deaddrop/internal/luks"
)

// Cleaner executes the destruction sequence. Every step re-checks live
// state before acting, tolerates the target already being gone, and logs
// rather than aborts on failure: a second invocation finding nothing left
// is a clean no-op, and partial destruction is strictly better than
// stopping at the first obstacle.
type Cleaner struct {
	crypt    luks.Service
	mounter  luks.Mounter
	shredder *Shredder
	log      logger.Logger
}

// NewCleaner wires a Cleaner over the real system services.
func NewCleaner(log logger.Logger) *Cleaner {
	return &Cleaner{
		crypt:    luks.NewCryptsetup(log),
		mounter:  luks.BlockMounter{},
		shredder: NewShredder(log),
		log:      log,
	}
}

// NewCleanerWith wires a Cleaner with explicit collaborators, for tests.
func NewCleanerWith(crypt luks.Service, mounter luks.Mounter, shredder *Shredder, log logger.Logger) *Cleaner {
	return &Cleaner{crypt: crypt, mounter: mounter, shredder: shredder, log: log}
}

// Cleanup runs the full sequence against the plan's targets, in order:
// unmount the volume, close the mapper, shred and delete the image, shred
// the ramdisk contents, unmount and remove the ramdisk. It returns the
// number of steps that failed; the caller ignores it for exit purposes.
func (c *Cleaner) Cleanup(ctx context.Context, plan Plan) int {
	failed := 0
	step := func(op string, path string, err error, skipped bool) {
		outcome := "ok"
		switch {
		case skipped:
			outcome = "skipped"
		case err != nil:
			outcome = "failed"
			failed++
			c.log.Errorf("%s: %v", op, err)
		}
		audit.Log(plan.AuditDir, audit.Entry{
			Session:   plan.Session,
			Operation: op,
			Path:      path,
			Outcome:   outcome,
		})
	}

	c.log.Infof("Starting destruction sequence for session %s", plan.Session)

	// 1. Unmount the decrypted volume.
	if c.mounter.IsMountpoint(plan.MountPoint) {
		step("cleanup.unmount_volume", plan.MountPoint, c.mounter.UnmountPath(plan.MountPoint), false)
	} else {
		step("cleanup.unmount_volume", plan.MountPoint, nil, true)
	}

	// 2. Close the mapper, revoking the key from kernel memory.
	if c.crypt.IsOpen(plan.MapperName) {
		step("cleanup.close_mapper", plan.MapperName, c.crypt.Close(ctx, plan.MapperName), false)
	} else {
		step("cleanup.close_mapper", plan.MapperName, nil, true)
	}

	// 3. Shred the encrypted image. Its source location may be disk-backed,
	// so the overwrite discipline applies even when the copy is in memory.
	if _, err := os.Stat(plan.ImagePath); err == nil {
		step("cleanup.shred_image", plan.ImagePath, c.shredder.ShredFile(plan.ImagePath), false)
	} else {
		step("cleanup.shred_image", plan.ImagePath, nil, true)
	}

	// 4. Shred everything left inside the ramdisk.
	if _, err := os.Stat(plan.RamdiskPath); err == nil {
		c.shredder.ShredDir(plan.RamdiskPath)
		step("cleanup.shred_ramdisk", plan.RamdiskPath, nil, false)
	} else {
		step("cleanup.shred_ramdisk", plan.RamdiskPath, nil, true)
	}

	// 5. Unmount the ramdisk and remove the directory.
	if c.mounter.IsMountpoint(plan.RamdiskPath) {
		step("cleanup.unmount_ramdisk", plan.RamdiskPath, c.mounter.UnmountPath(plan.RamdiskPath), false)
	} else {
		step("cleanup.unmount_ramdisk", plan.RamdiskPath, nil, true)
	}
	if err := os.Remove(plan.RamdiskPath); err == nil || os.IsNotExist(err) {
		step("cleanup.remove_ramdisk_dir", plan.RamdiskPath, nil, false)
	} else {
		step("cleanup.remove_ramdisk_dir", plan.RamdiskPath, err, false)
	}

	if failed == 0 {
		c.log.Infof("Destruction sequence completed")
	} else {
		c.log.WarnfAlways("Destruction sequence completed with %d failed step(s)", failed)
	}
	return failed
}
