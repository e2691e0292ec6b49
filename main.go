package main

import (
	"os"

	"github.com/glitchlinux/deaddrop/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		// The failing command has already logged the cause.
		os.Exit(1)
	}
}
