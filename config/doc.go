// Package config provides configuration loading and validation for the bucketfs tool.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator. Bucket
// connection settings are not part of it; they live in clientcli profiles.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (BUCKETFS_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"bucketfs.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// All config keys map to environment variables with BUCKETFS_ prefix:
//   - cache.backend → BUCKETFS_CACHE_BACKEND
//   - sync.workers → BUCKETFS_SYNC_WORKERS
//   - transport.timeout → BUCKETFS_TRANSPORT_TIMEOUT
//
// # Configuration Structure
//
//   - Cache: metadata cache backend (none, memory, file or sql) and its location
//   - Transport: timeout, x-amz-date signing and gzip settings
//   - URL and Headers: public URL template and upload header rules
//   - Sync: worker count and exclude patterns
//   - Keys and CDN: key files for credentials and CDN URL signing
//   - Metrics and Log: textfile export path and log level
package config
