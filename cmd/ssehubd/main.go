package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ssehubd",
		Short: "Addressable Server-Sent Events push hub",
		Long: `ssehubd runs a standalone SSE push hub.

Browsers subscribe at /subscribe (optionally as a named user), and
anything that can POST JSON can push events to one connection, one
user, or everyone via /emit. A monitoring page lives at /admin/.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
