package cmd

import (
	"fmt"
	"os"

	"github.com/glitchlinux/deaddrop/internal/configs"
	"github.com/glitchlinux/deaddrop/internal/ui"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// defaultConfigPath is where `config init` writes unless told otherwise.
const defaultConfigPath = "/etc/deaddrop/config.toml"

var (
	configInitPath  string
	configInitForce bool
)

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", defaultConfigPath, "where to write the config file")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

// resetConfigCommandState resets the config command's global state for testing.
func resetConfigCommandState() {
	configInitPath = defaultConfigPath
	configInitForce = false
	configInitCmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage deaddrop configuration",
	Long: `Provides commands for inspecting and bootstrapping the configuration.

Use these commands to:
  - Write a config file populated with the defaults (config init)
  - Print the effective configuration (config show)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file populated with the defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configInitPath); err == nil && !configInitForce {
			return Logger.ErrorfAndReturn("Config file %s already exists (use --force to overwrite)", configInitPath)
		}
		if err := configs.SaveTOML(configInitPath, configs.Default()); err != nil {
			return Logger.ErrorfAndReturn("Failed to write config: %v", err)
		}
		fmt.Println(ui.Success.Sprint("✓") + " Wrote " + ui.Path.Sprint(configInitPath))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configs.Load(configPath)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
		}
		if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg); err != nil {
			return Logger.ErrorfAndReturn("Failed to encode configuration: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "mapper device: "+ui.Highlight.Sprint(cfg.MapperDevice()))
		fmt.Fprintln(cmd.OutOrStdout(), "failsafe grace: "+ui.Highlight.Sprint(cfg.Grace().String()))
		return nil
	},
}
