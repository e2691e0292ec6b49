package destruct

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/glitchlinux/deaddrop/internal/audit"
	kerrors "github.com/glitchlinux/deaddrop/internal/errors"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
	"github.com/glitchlinux/deaddrop/internal/utils"
)

// Trigger roles. Both run the identical cleanup; whichever fires first does
// the work and the later one finds nothing left.
const (
	RolePrimary  = "primary"
	RoleFailsafe = "failsafe"
)

// PlanFileName is the serialized plan's name inside the ramdisk.
const PlanFileName = "destruct-plan.json"

// Unit is a built, initially inert destruct unit. Activation detaches it
// into an independent process tree; from then on nothing the parent does,
// including dying, affects destruction.
type Unit struct {
	Plan     Plan
	PlanPath string
}

// Build completes the plan with the failsafe deadline and materializes it
// inside the ramdisk. The unit is inert until Activate.
func Build(plan Plan, graceSeconds int) (*Unit, error) {
	plan.FailsafeSeconds = plan.PrimarySeconds + graceSeconds
	plan.CreatedAt = time.Now().UTC()

	if err := plan.Validate(graceSeconds); err != nil {
		return nil, fmt.Errorf("building destruct plan: %w", err)
	}

	planPath := filepath.Join(plan.RamdiskPath, PlanFileName)
	if err := WritePlan(plan, planPath); err != nil {
		return nil, err
	}

	return &Unit{Plan: plan, PlanPath: planPath}, nil
}

// Spawner starts one detached trigger process. The default implementation
// re-executes this binary; tests substitute a recorder.
type Spawner interface {
	Spawn(exe string, unit *Unit, role string, delaySeconds int) error
}

// Activate launches the two triggers as separate detached processes, each
// in its own session, so killing one cannot take the other down. Both are
// scheduled at activation time: the failsafe never depends on the primary
// having run or even existing.
//
// Returns ErrActivation if either detach cannot be established. The unit
// must never run attached to the parent.
func Activate(unit *Unit, log logger.Logger) error {
	return ActivateWith(unit, ExecSpawner{}, utils.ExecutablePath, log)
}

// ActivateWith launches the triggers through the given spawner and
// executable resolver, for tests.
func ActivateWith(unit *Unit, spawner Spawner, exePath func() (string, error), log logger.Logger) error {
	exe, err := exePath()
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrActivation, err)
	}

	triggers := []struct {
		role  string
		delay int
	}{
		{RolePrimary, unit.Plan.PrimarySeconds},
		{RoleFailsafe, unit.Plan.FailsafeSeconds},
	}

	for _, t := range triggers {
		if err := spawner.Spawn(exe, unit, t.role, t.delay); err != nil {
			return fmt.Errorf("%w: %s trigger: %v", kerrors.ErrActivation, t.role, err)
		}
		log.Infof("%s trigger armed: fires in %ds", t.role, t.delay)
		audit.Log(unit.Plan.AuditDir, audit.Entry{
			Session:   unit.Plan.Session,
			Operation: "destruct.armed",
			Role:      t.role,
			Seconds:   t.delay,
		})
	}

	return nil
}

// ExecSpawner starts trigger processes with os/exec.
type ExecSpawner struct{}

// Spawn starts one trigger process fully detached: own session, no
// inherited stdio, a fixed working directory and minimal environment, and
// output redirected to the destruct log. The parent never observes its
// exit status.
func (ExecSpawner) Spawn(exe string, unit *Unit, role string, delaySeconds int) error {
	if err := os.MkdirAll(unit.Plan.AuditDir, 0700); err != nil {
		return fmt.Errorf("creating audit dir: %w", err)
	}
	logFile, err := os.OpenFile(
		filepath.Join(unit.Plan.AuditDir, "destruct.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0600,
	)
	if err != nil {
		return fmt.Errorf("opening destruct log: %w", err)
	}
	defer logFile.Close()

	cmd := triggerCommand(exe, unit, role, delaySeconds)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// triggerCommand builds the detached trigger invocation. The trigger must
// keep working with the parent gone: its own session, no inherited cwd, no
// inherited environment beyond a fixed PATH.
func triggerCommand(exe string, unit *Unit, role string, delaySeconds int) *exec.Cmd {
	cmd := exec.Command(exe, "destruct-trigger",
		"--plan", unit.PlanPath,
		"--delay", strconv.Itoa(delaySeconds),
		"--role", role,
	)
	cmd.Dir = "/"
	cmd.Env = []string{"PATH=/usr/sbin:/usr/bin:/sbin:/bin"}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return cmd
}

// RunTrigger is the detached trigger's body: the plan is already in memory,
// so the sleep-then-clean cycle survives the ramdisk (and the plan file)
// being destroyed by the other trigger. The delay runs on the monotonic
// clock. Returns the number of failed cleanup steps.
func RunTrigger(ctx context.Context, plan Plan, role string, delay time.Duration, log logger.Logger) int {
	log.Infof("%s trigger sleeping %s (session %s)", role, delay, plan.Session)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	<-timer.C

	log.Infof("%s trigger firing", role)
	audit.Log(plan.AuditDir, audit.Entry{
		Session:   plan.Session,
		Operation: "destruct.fired",
		Role:      role,
		Seconds:   int(delay / time.Second),
	})

	cleaner := NewCleaner(log)
	return cleaner.Cleanup(ctx, plan)
}
