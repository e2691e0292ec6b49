package cmd

import (
	logger "github.com/glitchlinux/deaddrop/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	debug      bool
	configPath string
	Logger     logger.Logger

	RootCmd = &cobra.Command{
		Use:   "deaddrop",
		Short: "Deaddrop - a short-lived, self-destructing encrypted drop.",
		Long: `Deaddrop provisions a short-lived encrypted dead-drop: it fetches a
LUKS volume image into a RAM disk, unlocks it with your passphrase, lets you
read its secrets, and guarantees irreversible destruction of all key material
and plaintext after a bounded time window - even if this process is killed.

Run 'deaddrop open' to start a session. Once the destruct timers are armed,
nothing cancels them.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing deaddrop with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	RootCmd.AddCommand(openCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(triggerCmd)
	RootCmd.AddCommand(versionCmd)
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configPath = ""
	resetOpenCommandState()
	resetTriggerCommandState()
	resetConfigCommandState()
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
