// Nyx is the perception, reasoning and learning core of a voice/text assistant.
//
// Usage:
//
//	# Run the line-delimited JSON loop on stdin/stdout
//	nyx serve
//
//	# Also expose HTTP and NATS feedback surfaces
//	NYX_HTTP_ENABLED=true NYX_NATS_ENABLED=true nyx serve
//
//	# Dry-run the pipeline on one utterance
//	nyx classify "set timer for 5 minutes"
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nyx",
		Short: "Nyx assistant core",
		Long: `nyx classifies utterances into intents, routes them to modules and learns
from user feedback which interpretations to trust.`,
		SilenceUsage: true,
		Version:      version,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/nyx/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newServeCmd())
	root.AddCommand(newClassifyCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nyx by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
