package destruct

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Plan is the serialized parameter block for the destruct unit. It is
// created once, immutable after creation, and references its targets by
// path and name only: the unit owns none of them and must tolerate any of
// them already being gone when it fires.
type Plan struct {
	Session         string    `json:"session"`
	RamdiskPath     string    `json:"ramdisk_path"`
	ImagePath       string    `json:"image_path"`
	MountPoint      string    `json:"mount_point"`
	MapperName      string    `json:"mapper_name"`
	AuditDir        string    `json:"audit_dir"`
	PrimarySeconds  int       `json:"primary_seconds"`
	FailsafeSeconds int       `json:"failsafe_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks the deadline ordering invariant: the failsafe fires
// exactly grace seconds after the primary, for every primary value.
func (p Plan) Validate(graceSeconds int) error {
	if p.PrimarySeconds <= 0 {
		return fmt.Errorf("primary deadline must be positive, got %d", p.PrimarySeconds)
	}
	if p.FailsafeSeconds != p.PrimarySeconds+graceSeconds {
		return fmt.Errorf("failsafe deadline %d != primary %d + grace %d",
			p.FailsafeSeconds, p.PrimarySeconds, graceSeconds)
	}
	return nil
}

// WritePlan serializes the plan to path, owner-readable only.
func WritePlan(plan Plan, path string) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding destruct plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing destruct plan: %w", err)
	}
	return nil
}

// LoadPlan reads a plan back. Triggers call this once at activation and
// keep the plan in memory, so a later ramdisk teardown cannot strand the
// failsafe without its parameters.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("reading destruct plan: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return Plan{}, fmt.Errorf("decoding destruct plan: %w", err)
	}
	return plan, nil
}
