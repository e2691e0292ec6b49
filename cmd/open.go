package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/glitchlinux/deaddrop/internal/configs"
	"github.com/glitchlinux/deaddrop/internal/destruct"
	"github.com/glitchlinux/deaddrop/internal/fetch"
	"github.com/glitchlinux/deaddrop/internal/luks"
	"github.com/glitchlinux/deaddrop/internal/ramdisk"
	"github.com/glitchlinux/deaddrop/internal/utils"
	"github.com/glitchlinux/deaddrop/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	openURL     string
	openRamdisk string
	openImage   string
	openMount   string
	openSize    string
	openTimer   int
)

func init() {
	openCmd.Flags().StringVar(&openURL, "url", "", "remote encrypted image URL")
	openCmd.Flags().StringVar(&openRamdisk, "ramdisk", "", "ramdisk mount path")
	openCmd.Flags().StringVar(&openImage, "image", "", "local path for the fetched image")
	openCmd.Flags().StringVar(&openMount, "mount", "", "mount point for the decrypted volume")
	openCmd.Flags().StringVar(&openSize, "size", "", "ramdisk capacity (mount(8) notation, e.g. 5M)")
	openCmd.Flags().IntVarP(&openTimer, "timer", "t", 0, "lifetime in seconds (skips the interactive menu)")
}

// resetOpenCommandState resets the open command's global state for testing.
func resetOpenCommandState() {
	openURL = ""
	openRamdisk = ""
	openImage = ""
	openMount = ""
	openSize = ""
	openTimer = 0
}

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a dead-drop session and arm the self-destruct timers",
	Long: `Open runs the full pipeline: create a RAM disk, fetch the encrypted
volume image, arm two independent destruction timers, unlock and mount the
volume with your passphrase, then present its files.

The timers run as detached processes. Closing the session, killing this
process, or losing the terminal does not cancel them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configs.Load(configPath)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}
		applyOpenOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return Logger.ErrorfAndReturn("Invalid configuration: %v", err)
		}

		// Privilege is a fatal startup condition, checked before any work.
		if err := utils.EnsureRoot(); err != nil {
			return Logger.ErrorfAndReturn("%v", err)
		}

		fmt.Println()
		banner := figure.NewColorFigure("deaddrop", "alligator2", "red", true)
		banner.Print()
		fmt.Println()

		w := workflows.NewWorkflow(cfg, utils.ReadPassphrase, Logger)
		w.Fetcher = &spinnerFetcher{inner: w.Fetcher}

		result, err := w.Open(cmd.Context(), workflows.OpenOptions{
			Config:       cfg,
			TimerSeconds: openTimer,
			SelectTimer:  func() (int, error) { return selectTimer(cfg) },
			ShellIn:      os.Stdin,
			ShellOut:     os.Stdout,
			OnProvisioned: func(store *ramdisk.Store) {
				fmt.Printf("%s RAM disk (%s) mounted at %s\n", color.GreenString("✓"), store.Size, color.YellowString(store.MountPath))
			},
			OnFetched: func(image *fetch.Image) {
				fmt.Printf("%s Downloaded %d bytes to %s\n", color.GreenString("✓"), image.SizeBytes, color.YellowString(image.LocalPath))
			},
			OnTimerChosen: func(seconds int) {
				fmt.Printf("%s Lifetime: %s\n", color.GreenString("✓"), color.YellowString(formatDuration(seconds)))
			},
			OnMounted: func(volume *luks.Volume) {
				fmt.Printf("%s Volume mounted at %s\n", color.GreenString("✓"), color.YellowString(volume.MountPath))
			},
			OnArmed: func(unit *destruct.Unit) {
				fmt.Printf("%s Destruct timers armed: primary in %s, failsafe in %s\n",
					color.GreenString("✓"),
					color.YellowString(formatDuration(unit.Plan.PrimarySeconds)),
					color.YellowString(formatDuration(unit.Plan.FailsafeSeconds)))
				Logger.WarnfUser("The RAM disk will self-destruct automatically. There is no cancel.")
			},
		})
		if err != nil {
			return Logger.ErrorfAndReturn("Session failed: %v", err)
		}

		Logger.Debugf("Session %s ended", result.Session)
		fmt.Printf("\n%s Session ended. Self-destruct timers remain active.\n", color.CyanString("→"))
		return nil
	},
}

// applyOpenOverrides layers non-empty flag values over the config.
func applyOpenOverrides(cfg *configs.Config) {
	if openURL != "" {
		cfg.ImageURL = openURL
	}
	if openRamdisk != "" {
		cfg.RamdiskPath = openRamdisk
	}
	if openImage != "" {
		cfg.ImagePath = openImage
	}
	if openMount != "" {
		cfg.MountPoint = openMount
	}
	if openSize != "" {
		cfg.RamdiskSize = openSize
	}
}

// spinnerFetcher wraps the real fetcher with a progress spinner. Progress
// is only shown when the server reports a total size.
type spinnerFetcher struct {
	inner workflows.Fetcher
}

func (f *spinnerFetcher) Fetch(ctx context.Context, url, destPath string, progress fetch.ProgressFunc) (*fetch.Image, error) {
	s, cleanup := startSpinner("Downloading encrypted image...", verbose)
	defer cleanup()

	image, err := f.inner.Fetch(ctx, url, destPath, func(percent float64) {
		s.Suffix = fmt.Sprintf(" Downloading encrypted image... %.1f%%", percent)
	})
	if err != nil {
		s.FinalMSG = color.RedString("✗") + " Download failed"
		return nil, err
	}
	return image, nil
}

// selectTimer presents the lifetime menu built from the configured choices.
func selectTimer(cfg *configs.Config) (int, error) {
	if !utils.IsTerminal() {
		return 0, fmt.Errorf("stdin is not a terminal; pass --timer to choose a lifetime")
	}

	fmt.Println("\n" + color.CyanString("Select token lifetime:"))
	for i, seconds := range cfg.TimerChoices {
		fmt.Printf("  %d. %s\n", i+1, formatDuration(seconds))
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("\nEnter your choice (1-%d): ", len(cfg.TimerChoices))
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("reading choice: %w", err)
		}
		idx, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil || idx < 1 || idx > len(cfg.TimerChoices) {
			fmt.Println(color.RedString("✗") + " Invalid choice.")
			continue
		}
		return cfg.TimerChoices[idx-1], nil
	}
}

// formatDuration renders whole minutes as "N minute(s)", anything else in
// seconds.
func formatDuration(seconds int) string {
	if seconds >= 60 && seconds%60 == 0 {
		minutes := seconds / 60
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d seconds", seconds)
}
