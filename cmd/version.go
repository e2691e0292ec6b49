package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release version, overridable at build time with
// -ldflags "-X github.com/glitchlinux/deaddrop/cmd.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the deaddrop version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("deaddrop %s\n", Version)
	},
}
