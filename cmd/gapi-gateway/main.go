// gapi-gateway serves a small Gmail and Google Calendar API over REST and MCP.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gapi-gateway",
		Short: "Gmail and Google Calendar gateway",
		Long: `gapi-gateway exposes a narrow slice of Gmail and Google Calendar:
listing and replying to emails, and listing, creating and updating today's events.

The operations are served as a JSON REST API and as MCP tools.`,
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(`{{printf "gapi-gateway version %s\n" .Version}}`)

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("gapi-gateway version %s\n", version)
		},
	}
}
