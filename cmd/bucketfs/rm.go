package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketfs/clientcli"
)

var rmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Delete objects from the bucket",
	Long: `Delete one or more objects. Every key is attempted even when an earlier
one fails; the command fails if any deletion did.

Examples:
  bucketfs rm static/old.css
  bucketfs rm static/a.js static/b.js`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, cleanup, err := newClient(ctx)
	if err != nil {
		return reportError(err)
	}
	defer cleanup()

	results, err := client.Delete(ctx, clientcli.DeleteOptions{Keys: args})
	if err != nil {
		return reportError(err)
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return results[i].Err
		}
	}
	return nil
}
