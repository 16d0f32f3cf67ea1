package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketfs/clientcli"
	"github.com/sagarc03/bucketfs/config"
	"github.com/sagarc03/bucketfs/metrics"
)

var (
	version = "dev"

	cfgFiles     []string
	profileName  string
	profilesPath string
	endpoint     string
	bucket       string
	callingFmt   string
	secure       bool
	accessKey    string
	secretKey    string
	jsonOutput   bool
	quiet        bool

	appMetrics = metrics.New()
)

var rootCmd = &cobra.Command{
	Use:     "bucketfs",
	Version: version,
	Short:   "Filesystem-style access to a signed object storage bucket",
	Long: `bucketfs talks to an object storage bucket with signed requests.

Bucket connections come from profiles (~/.bucketfs/config.yaml), BUCKETFS_*
environment variables and flags, in increasing order of precedence. Tool
settings such as the metadata cache, URL template and header rules come from
bucketfs.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.FromContext(cmd.Context())
		if err != nil || cfg.Metrics.TextFile == "" {
			return nil //nolint:nilerr // no config means no metrics to write
		}
		if err := appMetrics.WriteToTextfile(cfg.Metrics.TextFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		slog.Debug("metrics written", "file", cfg.Metrics.TextFile)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringSliceVar(&cfgFiles, "config", nil, "config file(s), merged left to right (default: ./bucketfs.yaml)")
	pf.StringVarP(&profileName, "profile", "p", "", "profile name (env: BUCKETFS_PROFILE)")
	pf.StringVar(&profilesPath, "profiles", "", "profile file (default: ~/.bucketfs/config.yaml, env: BUCKETFS_PROFILES)")
	pf.StringVarP(&endpoint, "endpoint", "e", "", "object store host (env: BUCKETFS_ENDPOINT)")
	pf.StringVarP(&bucket, "bucket", "b", "", "bucket name (env: BUCKETFS_BUCKET)")
	pf.StringVar(&callingFmt, "calling-format", "", "path, subdomain or vanity (env: BUCKETFS_CALLING_FORMAT)")
	pf.BoolVar(&secure, "secure", false, "use https to reach the object store (env: BUCKETFS_SECURE)")
	pf.StringVarP(&accessKey, "access-key", "a", "", "access key (env: BUCKETFS_ACCESS_KEY)")
	pf.StringVarP(&secretKey, "secret-key", "k", "", "secret key (env: BUCKETFS_SECRET_KEY)")
	pf.BoolVar(&jsonOutput, "json", false, "output as JSON")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	// Bound to config keys.
	pf.String("env", "", "environment: dev or prod (env: BUCKETFS_ENV)")
	pf.String("cache-backend", "", "metadata cache: none, memory, file, sql (env: BUCKETFS_CACHE_BACKEND)")
	pf.String("cache-dir", "", "directory for the file cache (env: BUCKETFS_CACHE_DIR)")
	pf.String("db-type", "", "sql cache database: sqlite, postgres (env: BUCKETFS_CACHE_DATABASE_TYPE)")
	pf.String("db-dsn", "", "sql cache connection string (env: BUCKETFS_CACHE_DATABASE_DSN)")
	pf.Duration("timeout", 0, "request timeout (env: BUCKETFS_TRANSPORT_TIMEOUT)")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit (env: BUCKETFS_METRICS_TEXTFILE)")
	pf.String("log-level", "", "debug, info, warn or error (env: BUCKETFS_LOG_LEVEL)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(signCDNCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// reportError prints err with the active formatter and returns it.
func reportError(err error) error {
	_ = getFormatter().FormatError(os.Stderr, err)
	return err
}
