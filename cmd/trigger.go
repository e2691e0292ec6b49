package cmd

import (
	"time"

	"github.com/glitchlinux/deaddrop/internal/destruct"
	logger "github.com/glitchlinux/deaddrop/internal/logging"
	"github.com/spf13/cobra"
)

var (
	triggerPlan  string
	triggerDelay int
	triggerRole  string
)

func init() {
	triggerCmd.Flags().StringVar(&triggerPlan, "plan", "", "path to the serialized destruct plan")
	triggerCmd.Flags().IntVar(&triggerDelay, "delay", 0, "seconds to wait before firing")
	triggerCmd.Flags().StringVar(&triggerRole, "role", destruct.RolePrimary, "trigger role (primary or failsafe)")
	_ = triggerCmd.MarkFlagRequired("plan")
}

// resetTriggerCommandState resets the trigger command's global state for testing.
func resetTriggerCommandState() {
	triggerPlan = ""
	triggerDelay = 0
	triggerRole = destruct.RolePrimary
}

// triggerCmd is the detached destruct unit's entry point. It is hidden:
// operators never invoke it, Activate does. It loads the plan into memory
// immediately, sleeps out its deadline, and runs the idempotent cleanup.
// It exits 0 even when cleanup steps fail - partial destruction must not
// look like a crash to process supervisors, and the parent never observes
// this exit status anyway.
var triggerCmd = &cobra.Command{
	Use:    "destruct-trigger",
	Hidden: true,
	Short:  "Internal: timed destruction trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		// The trigger's output goes to a log file, so log everything.
		log := logger.Logger{Verbose: true, Debug: debug}

		plan, err := destruct.LoadPlan(triggerPlan)
		if err != nil {
			// Without a plan there is nothing this trigger can destroy.
			// The other trigger holds its own copy of the parameters.
			log.Errorf("Cannot load destruct plan: %v", err)
			return nil
		}

		delay := time.Duration(triggerDelay) * time.Second
		failed := destruct.RunTrigger(cmd.Context(), plan, triggerRole, delay, log)
		if failed > 0 {
			log.WarnfAlways("%d cleanup step(s) failed; remaining material may need manual removal", failed)
		}
		return nil
	},
}
