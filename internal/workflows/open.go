package workflows

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/glitchlinux/deaddrop/internal/audit"
	"github.com/glitchlinux/deaddrop/internal/configs"
	"github.com/glitchlinux/deaddrop/internal/destruct"
	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
	"github.com/glitchlinux/deaddrop/internal/fetch"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
	"github.com/glitchlinux/deaddrop/internal/luks"
	"github.com/glitchlinux/deaddrop/internal/ramdisk"
	"github.com/glitchlinux/deaddrop/internal/session"
	"github.com/glitchlinux/deaddrop/internal/utils"

	"github.com/google/uuid"
)

// Provisioner creates the volatile store.
type Provisioner interface {
	Provision(path, size string) (*ramdisk.Store, error)
}

// Fetcher retrieves the encrypted image.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string, progress fetch.ProgressFunc) (*fetch.Image, error)
}

// Unlocker unlocks and mounts the encrypted volume.
type Unlocker interface {
	UnlockAndMount(ctx context.Context, imagePath, mapperName, mountPath string) (*luks.Volume, error)
}

// Activator arms the built destruct unit.
type Activator func(unit *destruct.Unit, log logger.Logger) error

// OpenOptions configures the open workflow.
type OpenOptions struct {
	// Config is the immutable session configuration.
	Config *configs.Config

	// TimerSeconds is the chosen lifetime. Zero means SelectTimer is
	// consulted interactively.
	TimerSeconds int

	// SelectTimer prompts the operator for a lifetime when TimerSeconds
	// is zero.
	SelectTimer func() (int, error)

	// Progress receives fetch percentage updates.
	Progress fetch.ProgressFunc

	// ShellIn and ShellOut carry the file-menu interaction.
	ShellIn  io.Reader
	ShellOut io.Writer

	// SkipRootCheck disables the privilege check, for tests only.
	SkipRootCheck bool

	// Per-stage callbacks for user-facing output. Nil callbacks are skipped.
	OnProvisioned func(store *ramdisk.Store)
	OnFetched     func(image *fetch.Image)
	OnTimerChosen func(seconds int)
	OnMounted     func(volume *luks.Volume)
	OnArmed       func(unit *destruct.Unit)
}

// OpenResult contains the outcome of a completed session.
type OpenResult struct {
	// Session is the UUID identifying this session in the audit log.
	Session string

	// Store is the provisioned volatile store.
	Store *ramdisk.Store

	// Image is the fetched encrypted image.
	Image *fetch.Image

	// Volume is the unlocked, mounted volume.
	Volume *luks.Volume

	// Unit is the activated destruct unit.
	Unit *destruct.Unit
}

// Workflow wires the open pipeline's collaborators. Production wiring
// comes from NewWorkflow; tests substitute fakes.
type Workflow struct {
	Provisioner Provisioner
	Fetcher     Fetcher
	Unlocker    Unlocker
	Activate    Activator
	Log         logger.Logger
}

// NewWorkflow wires the real system services. readSecret is the
// interactive passphrase prompt.
func NewWorkflow(cfg *configs.Config, readSecret luks.PassphraseFunc, log logger.Logger) *Workflow {
	crypt := luks.NewCryptsetup(log)
	return &Workflow{
		Provisioner: ramdisk.NewProvisioner(log),
		Fetcher:     fetch.NewFetcher(),
		Unlocker:    luks.NewController(crypt, luks.BlockMounter{}, readSecret, cfg.MaxUnlockAttempts, log),
		Activate:    destruct.Activate,
		Log:         log,
	}
}

// Open runs the strict pipeline: provision, fetch, build unit (inert),
// unlock and mount, activate unit, file shell. Every fatal error aborts
// the remaining steps. Once the unit is activated, nothing in this
// process affects destruction, not even the shell exiting or the process
// dying.
func (w *Workflow) Open(ctx context.Context, opts OpenOptions) (*OpenResult, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if !opts.SkipRootCheck {
		if err := utils.EnsureRoot(); err != nil {
			return nil, err
		}
	}

	sessionID := uuid.NewString()
	result := &OpenResult{Session: sessionID}

	// Volatile store.
	store, err := w.Provisioner.Provision(cfg.RamdiskPath, cfg.RamdiskSize)
	if err != nil {
		return nil, fmt.Errorf("provisioning volatile store: %w", err)
	}
	result.Store = store
	audit.Log(cfg.AuditDir, audit.Entry{Session: sessionID, Operation: "session.provision", Path: cfg.RamdiskPath, Outcome: "ok"})
	if opts.OnProvisioned != nil {
		opts.OnProvisioned(store)
	}

	// Encrypted image.
	image, err := w.Fetcher.Fetch(ctx, cfg.ImageURL, cfg.ImagePath, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("fetching encrypted image: %w", err)
	}
	result.Image = image
	audit.Log(cfg.AuditDir, audit.Entry{Session: sessionID, Operation: "session.fetch", Path: cfg.ImagePath, Outcome: "ok"})
	if opts.OnFetched != nil {
		opts.OnFetched(image)
	}

	// Lifetime.
	timerSeconds := opts.TimerSeconds
	if timerSeconds == 0 {
		if opts.SelectTimer == nil {
			return nil, fmt.Errorf("no lifetime given and no selector configured")
		}
		timerSeconds, err = opts.SelectTimer()
		if err != nil {
			return nil, fmt.Errorf("selecting lifetime: %w", err)
		}
	}
	if timerSeconds < cfg.MinSessionSeconds {
		return nil, fmt.Errorf("%w: %ds < %ds", kerrors.ErrTimerTooShort, timerSeconds, cfg.MinSessionSeconds)
	}
	audit.Log(cfg.AuditDir, audit.Entry{Session: sessionID, Operation: "session.timer", Seconds: timerSeconds})
	if opts.OnTimerChosen != nil {
		opts.OnTimerChosen(timerSeconds)
	}

	// Destruct unit, built inert before any key material exists.
	unit, err := destruct.Build(destruct.Plan{
		Session:        sessionID,
		RamdiskPath:    cfg.RamdiskPath,
		ImagePath:      cfg.ImagePath,
		MountPoint:     cfg.MountPoint,
		MapperName:     cfg.MapperName,
		AuditDir:       cfg.AuditDir,
		PrimarySeconds: timerSeconds,
	}, cfg.GraceSeconds)
	if err != nil {
		return nil, err
	}
	result.Unit = unit

	// Unlock and mount. The audit entry records the outcome only; the
	// passphrase itself never reaches any log.
	volume, err := w.Unlocker.UnlockAndMount(ctx, cfg.ImagePath, cfg.MapperName, cfg.MountPoint)
	if err != nil {
		entry := audit.Entry{Session: sessionID, Operation: "session.unlock", Outcome: "failed"}
		if errors.Is(err, kerrors.ErrAuthExhausted) {
			entry.Attempt = cfg.MaxUnlockAttempts
			entry.Detail = "passphrase attempts exhausted"
		}
		audit.Log(cfg.AuditDir, entry)
		return nil, err
	}
	audit.Log(cfg.AuditDir, audit.Entry{Session: sessionID, Operation: "session.unlock", Outcome: "ok"})
	result.Volume = volume
	audit.Log(cfg.AuditDir, audit.Entry{Session: sessionID, Operation: "session.mounted", Path: cfg.MountPoint, Outcome: "ok"})
	if opts.OnMounted != nil {
		opts.OnMounted(volume)
	}

	// Arm the unit. From here destruction is guaranteed regardless of what
	// happens to this process.
	if err := w.Activate(unit, w.Log); err != nil {
		return nil, err
	}
	if opts.OnArmed != nil {
		opts.OnArmed(unit)
	}

	w.Log.Infof("Exposure window: primary wipe in %ds, failsafe in %ds", unit.Plan.PrimarySeconds, unit.Plan.FailsafeSeconds)

	// File shell. Its exit never triggers cleanup.
	shell := session.NewShell(cfg.MountPoint, nil, opts.ShellIn, opts.ShellOut, w.Log)
	if err := shell.Run(); err != nil {
		return nil, fmt.Errorf("session shell: %w", err)
	}
	audit.Log(cfg.AuditDir, audit.Entry{Session: sessionID, Operation: "session.closed", Outcome: "ok"})

	return result, nil
}
