package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Pairline/internal/ui"
	"github.com/BioHazard786/Pairline/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pairline",
	Short: "Anonymous one-to-one matchmaking and WebRTC signaling relay",
	Long: `Pairline pairs anonymous users two at a time and relays the WebRTC handshake
between them so they can open a direct peer-to-peer session.

Run "pairline serve" for the relay, "pairline peer" to join the queue from the
terminal and "pairline stats" to inspect a running relay.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
