package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketfs/clientcli"
)

var catOutput string

var catCmd = &cobra.Command{
	Use:   "cat <key>",
	Short: "Print or download an object",
	Long: `Print an object to stdout, or save it with --output.

Compressed objects are decoded.

Examples:
  bucketfs cat static/robots.txt
  bucketfs cat static/data.json | jq .
  bucketfs cat -o ./site.css static/css/site.css`,
	Args: cobra.ExactArgs(1),
	RunE: runCat,
}

func init() {
	catCmd.Flags().StringVarP(&catOutput, "output", "o", "-", `output file path, "-" for stdout`)
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, cleanup, err := newClient(ctx)
	if err != nil {
		return reportError(err)
	}
	defer cleanup()

	result, body, err := client.Download(ctx, clientcli.DownloadOptions{
		Key:       args[0],
		LocalPath: catOutput,
	})
	if err != nil {
		return reportError(err)
	}

	if body != nil {
		defer func() { _ = body.Close() }()
		if _, err := io.Copy(os.Stdout, body); err != nil {
			return err
		}
		return nil
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}
