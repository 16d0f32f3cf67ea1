package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketfs/clientcli"
)

var (
	lsLimit     int
	lsAll       bool
	lsMarker    string
	lsRecursive bool
)

var lsCmd = &cobra.Command{
	Use:   "ls [prefix]",
	Short: "List objects in the bucket",
	Long: `List objects in the bucket.

Without --recursive, keys are grouped at "/" and sub-directories are shown
as DIR entries.

Examples:
  bucketfs ls
  bucketfs ls static/css/
  bucketfs ls --recursive --all static/
  bucketfs ls --limit 10 --marker static/css/site.css`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().IntVarP(&lsLimit, "limit", "l", 100, "max results per page (max: 1000)")
	lsCmd.Flags().BoolVar(&lsAll, "all", false, "fetch all pages")
	lsCmd.Flags().StringVar(&lsMarker, "marker", "", "list keys after this one")
	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "do not group keys into directories")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	client, cleanup, err := newClient(ctx)
	if err != nil {
		return reportError(err)
	}
	defer cleanup()

	opts := clientcli.ListOptions{
		Prefix: prefix,
		Limit:  lsLimit,
		Marker: lsMarker,
		All:    lsAll,
	}
	if !lsRecursive {
		opts.Delimiter = "/"
	}

	result, err := client.List(ctx, opts)
	if err != nil {
		return reportError(err)
	}

	return getFormatter().FormatList(os.Stdout, result)
}
