package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketfs/config"
	"github.com/sagarc03/bucketfs/database"
)

var purgeOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the metadata cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old removal markers from the SQL cache",
	Long: `Delete removal markers older than --older-than from the SQL metadata cache.

A removal marker lets the cache answer "absent" for a deleted object without a
network request. Purging old markers only costs a HEAD the next time the key
is checked.

Examples:
  bucketfs cache purge --cache-backend sql --db-dsn bucketfs.db
  bucketfs cache purge --older-than 168h`,
	Args: cobra.NoArgs,
	RunE: runCachePurge,
}

func init() {
	cachePurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 30*24*time.Hour, "minimum age of purged markers")
	cacheCmd.AddCommand(cachePurgeCmd)
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}
	if cfg.Cache.Backend != "sql" {
		return reportError(fmt.Errorf("cache purge needs the sql cache backend, have %q", cfg.Cache.Backend))
	}

	cache, cleanup, err := database.Connect(ctx, cfg.Cache.Database)
	if err != nil {
		return reportError(err)
	}
	defer cleanup()

	n, err := cache.PurgeTombstones(ctx, time.Now().Add(-purgeOlderThan))
	if err != nil {
		return reportError(err)
	}

	slog.Info("purged removal markers", "count", n, "older_than", purgeOlderThan)
	if !quiet {
		_, _ = fmt.Fprintf(os.Stdout, "Purged %d removal marker(s).\n", n)
	}
	return nil
}
