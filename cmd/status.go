package cmd

import (
	"fmt"
	"os"

	"github.com/glitchlinux/deaddrop/internal/audit"
	"github.com/glitchlinux/deaddrop/internal/configs"
	"github.com/glitchlinux/deaddrop/internal/luks"
	"github.com/glitchlinux/deaddrop/internal/ramdisk"
	"github.com/glitchlinux/deaddrop/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const statusAuditTail = 10

// statusCmd re-checks the singleton resources at the moment it runs. The
// destruct unit may have acted since any earlier observation, so nothing
// here is cached or inferred from past state.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the live state of the dead-drop resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configs.Load(configPath)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}

		provisioner := ramdisk.NewProvisioner(Logger)
		crypt := luks.NewCryptsetup(Logger)
		mounter := luks.BlockMounter{}

		printState("RAM disk", cfg.RamdiskPath, provisioner.IsMountpoint(cfg.RamdiskPath), "mounted", "absent")
		_, imgErr := os.Stat(cfg.ImagePath)
		printState("Encrypted image", cfg.ImagePath, imgErr == nil, "present", "absent")
		printState("Mapper", cfg.MapperName, crypt.IsOpen(cfg.MapperName), "open", "closed")
		printState("Volume", cfg.MountPoint, mounter.IsMountpoint(cfg.MountPoint), "mounted", "absent")

		if crypt.IsOpen(cfg.MapperName) {
			fmt.Println(ui.Warning.Sprint("A previous session's mapper is still open; a new session cannot reuse the name until it closes."))
		}

		entries, err := audit.ReadEntries(cfg.AuditDir)
		if err != nil {
			Logger.Warnf("Could not read audit log: %v", err)
			return nil
		}
		if len(entries) == 0 {
			fmt.Println(ui.Muted.Sprint("no audit entries"))
			return nil
		}

		fmt.Println("\n" + ui.Info.Sprint("Recent audit entries:"))
		start := len(entries) - statusAuditTail
		if start < 0 {
			start = 0
		}
		for _, e := range entries[start:] {
			line := fmt.Sprintf("  %s  %-24s", e.Timestamp, e.Operation)
			if e.Role != "" {
				line += " role=" + e.Role
			}
			if e.Seconds != 0 {
				line += fmt.Sprintf(" seconds=%d", e.Seconds)
			}
			if e.Outcome != "" {
				line += " outcome=" + e.Outcome
			}
			fmt.Println(line)
		}
		return nil
	},
}

func printState(label, target string, ok bool, yes, no string) {
	mark := color.GreenString("✓")
	state := yes
	if !ok {
		mark = color.HiBlackString("-")
		state = no
	}
	fmt.Printf("%s %-16s %-8s %s\n", mark, label, state, ui.Path.Sprint(target))
}
