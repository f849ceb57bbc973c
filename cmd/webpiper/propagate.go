package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielmulder/webpiper/internal/config"
	"github.com/danielmulder/webpiper/internal/database"
	"github.com/danielmulder/webpiper/internal/graph"
)

// NewPropagateCmd creates the propagate command.
func NewPropagateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Back-fill link statuses from stored crawl data",
		Long: `Propagate rebuilds the internal link graph from the database and pushes
error statuses along it: a link pointing at a page that failed inherits that
page's status, and the failure propagates to everything reachable from it.

The crawl command runs this automatically. Run it standalone to reconcile a
database after an interrupted crawl or after merging sitemap audit runs.

Examples:
  # Propagate statuses in the default database
  webpiper propagate

  # Use a specific database directory
  webpiper propagate --db-dir ./data`,
		RunE: runPropagateCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runPropagateCmd executes the propagate command.
func runPropagateCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	logger := setupLogger(getVerboseFlag(cmd))
	slog.SetDefault(logger)

	// The database must already exist; propagation never creates one.
	db, err := database.Open(dbDir, database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	result, err := graph.NewPropagator(db, logger).Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("status propagation: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Propagation complete: %d nodes, %d edges, %d statuses raised, %d links updated (%s)\n",
		result.Nodes, result.Edges, result.Raised, result.LinksUpdated,
		result.Duration.Round(time.Millisecond))

	return nil
}
