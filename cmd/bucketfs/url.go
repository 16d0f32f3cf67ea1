package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketfs"
)

var (
	urlHTTPS   bool
	urlSigned  bool
	urlExpires time.Duration
)

var urlCmd = &cobra.Command{
	Use:   "url <key>...",
	Short: "Print public or presigned URLs",
	Long: `Print the public URL of each key, built from the url template in the
config file. With --signed a presigned GET URL against the bucket is printed
instead.

Examples:
  bucketfs url static/css/site.css
  bucketfs url --https static/css/site.css
  bucketfs url --signed --expires 1h private/report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runURL,
}

func init() {
	urlCmd.Flags().BoolVar(&urlHTTPS, "https", false, "build URLs as for a secure request")
	urlCmd.Flags().BoolVar(&urlSigned, "signed", false, "print presigned bucket URLs")
	urlCmd.Flags().DurationVar(&urlExpires, "expires", 15*time.Minute, "presigned URL lifetime")
}

func runURL(cmd *cobra.Command, args []string) error {
	ctx := bucketfs.WithSecure(cmd.Context(), urlHTTPS)

	client, cleanup, err := newClient(ctx)
	if err != nil {
		return reportError(err)
	}
	defer cleanup()

	storage := client.Storage()
	formatter := getFormatter()
	for _, key := range args {
		var u string
		if urlSigned {
			u, err = storage.SignedURL(ctx, key, urlExpires)
		} else {
			u, err = storage.URL(ctx, key)
		}
		if err != nil {
			return reportError(err)
		}
		if err := formatter.FormatURL(os.Stdout, bucketfs.NormalizeName(key), u); err != nil {
			return err
		}
	}
	return nil
}
