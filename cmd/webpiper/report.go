package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielmulder/webpiper/internal/config"
	"github.com/danielmulder/webpiper/internal/database"
	"github.com/danielmulder/webpiper/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a report from stored crawl data",
		Long: `Report aggregates the stored pages, links and request log into a summary
without running a new crawl.

Examples:
  # Human-readable summary of the default database
  webpiper report

  # JSON summary to a file
  webpiper report --json -o summary.json

  # Markdown report from a specific database directory
  webpiper report --markdown --db-dir ./data`,
		RunE: runReportCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()

	var err error
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	logger := setupLogger(getVerboseFlag(cmd))
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DBDir, database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	summary, err := db.Summary(cmd.Context())
	if err != nil {
		return fmt.Errorf("aggregate stored data: %w", err)
	}

	output, closeOutput, err := reportOutput(cfg)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := reportWriter(cfg, output)
	if _, err := writer.Write(&report.Report{Summary: summary}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
