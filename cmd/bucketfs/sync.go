package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketfs/clientcli"
	"github.com/sagarc03/bucketfs/config"
)

var (
	syncDir      string
	syncPrefix   string
	syncExcludes []string
	syncForce    bool
	syncUseCache bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload a local directory tree to the bucket",
	Long: `Upload every file under --dir whose remote copy is missing or older.

Paths relative to --dir are matched against the exclude patterns; a matching
directory is not descended into. Without --exclude the sync.exclude setting is
used, which defaults to version control directories and OS metadata files.

Examples:
  bucketfs sync --dir ./static --prefix static
  bucketfs sync --dir ./media --exclude '\.psd$,^drafts$' --workers 16
  bucketfs sync --dir ./static --force
  bucketfs sync --dir ./static --cache --cache-backend file --cache-dir ~/.cache/bucketfs`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncDir, "dir", "d", ".", "local directory to upload")
	syncCmd.Flags().StringVar(&syncPrefix, "prefix", "", "key prefix inside the bucket")
	syncCmd.Flags().StringSliceVar(&syncExcludes, "exclude", nil, "comma-separated regular expressions to skip")
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "upload every file regardless of modification times")
	syncCmd.Flags().BoolVar(&syncUseCache, "cache", false, "trust the metadata cache for remote modification times")
	syncCmd.Flags().Int("workers", 0, "files uploaded concurrently (env: BUCKETFS_SYNC_WORKERS)")
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	client, cleanup, err := newClient(ctx)
	if err != nil {
		return reportError(err)
	}
	defer cleanup()

	excludes := cfg.Sync.Exclude
	if cmd.Flags().Changed("exclude") {
		excludes = syncExcludes
	}
	if excludes == nil {
		excludes = []string{}
	}

	results, err := client.Sync(ctx, clientcli.SyncOptions{
		Dir:      syncDir,
		Prefix:   syncPrefix,
		Exclude:  excludes,
		Force:    syncForce,
		UseCache: syncUseCache,
	})
	if err != nil {
		return reportError(err)
	}

	if err := getFormatter().FormatSync(os.Stdout, results); err != nil {
		return err
	}

	var failed int
	for i := range results {
		if results[i].Action == clientcli.SyncFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("sync: %s failed to upload", pluralFiles(failed))
	}
	return nil
}

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
