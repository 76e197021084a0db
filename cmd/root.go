package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/warpcall/warpcall/internal/ui"
	"github.com/warpcall/warpcall/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "warpcall",
	Short: "Two-party WebRTC calls through a minimal signaling relay",
	Long: `warpcall pairs two participants in a named room and negotiates a direct
peer-to-peer media connection between them. The relay only forwards
signaling messages; audio and video never pass through it.

Run "warpcall serve" to start a relay and "warpcall join ROOM" on each side.`,
	Version: version.Version,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
