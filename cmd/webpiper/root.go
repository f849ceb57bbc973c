// Package main provides the entry point for the webpiper CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webpiper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webpiper",
		Short: "Adaptive site crawler with link status auditing",
		Long: `Webpiper crawls a website with a self-tuning concurrency limit that backs
off on 429/503 rate-limit signals and ramps up again when the host recovers.

Crawled pages, the links between them, and a per-request audit log are stored
in a local SQLite database. After a crawl, link statuses are back-filled from
the request log so broken internal links surface in the report.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewPropagateCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
