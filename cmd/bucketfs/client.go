package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/clientcli"
	"github.com/sagarc03/bucketfs/config"
	"github.com/sagarc03/bucketfs/database"
	"github.com/sagarc03/bucketfs/filecache"
	"github.com/sagarc03/bucketfs/keybackend"
	"github.com/sagarc03/bucketfs/metrics"
	"github.com/sagarc03/bucketfs/transport"
)

// buildConnection merges the profile file, env vars and flags (flags take precedence).
func buildConnection() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	path := profilesPath
	if path == "" {
		path = clientcli.ConfigPathFromEnv()
	}
	explicit := path != ""
	if path == "" {
		path = clientcli.DefaultConfigPath()
	}

	name := profileName
	if name == "" {
		name = clientcli.ProfileFromEnv()
	}

	if path != "" {
		file, err := clientcli.LoadConfigFile(path)
		switch {
		case err == nil:
			if len(file.Profiles) > 0 || name != "" {
				p, perr := file.GetProfile(name)
				if perr != nil {
					return nil, perr
				}
				configs = append(configs, clientcli.ConfigFromProfile(p))
			}
		case explicit || name != "" || !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	configs = append(configs, clientcli.ConfigFromEnv(), &clientcli.Config{
		Endpoint:      endpoint,
		Bucket:        bucket,
		CallingFormat: callingFmt,
		Secure:        secure,
		AccessKey:     accessKey,
		SecretKey:     secretKey,
	})

	return clientcli.MergeConfig(configs...).WithDefaults(), nil
}

// transportConfig resolves credentials, consulting the key file from the tool
// config when the connection carries no secret.
func transportConfig(conn *clientcli.Config, cfg *config.Config) (transport.Config, error) {
	if conn.SecretKey == "" && (cfg.Keys.File != "" || len(cfg.Keys.Inline) > 0) {
		store, err := keybackend.NewSecretStore(cfg.Keys)
		if err != nil {
			return transport.Config{}, err
		}
		creds, err := store.Credentials(conn.AccessKey)
		if err != nil {
			return transport.Config{}, fmt.Errorf("select credentials: %w", err)
		}
		conn.AccessKey, conn.SecretKey = creds.AccessKeyID, creds.SecretAccessKey
	}

	tc, err := conn.Transport(os.Getenv)
	if err != nil {
		return transport.Config{}, err
	}
	tc.UseAmzDate = cfg.Transport.UseAmzDate
	tc.GzipContentTypes = cfg.Transport.GzipContentTypes
	tc.GzipMinSize = cfg.Transport.GzipMinSize
	return tc, nil
}

// openCache opens the configured metadata cache. The returned cleanup is never nil.
func openCache(ctx context.Context, cfg config.CacheConfig) (bucketfs.MetadataCache, func(), error) {
	switch cfg.Backend {
	case "memory":
		return bucketfs.NewMemoryCache(), func() {}, nil
	case "file":
		c, err := filecache.Open(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close file cache", "err", err)
			}
		}, nil
	case "sql":
		return database.Connect(ctx, cfg.Database)
	default:
		return nil, func() {}, nil
	}
}

// newClient builds a client for the resolved bucket connection.
// The returned cleanup function must be called when the client is no longer used.
func newClient(ctx context.Context) (*clientcli.Client, func(), error) {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	conn, err := buildConnection()
	if err != nil {
		return nil, nil, err
	}

	tc, err := transportConfig(conn, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []transport.Option{transport.WithObserver(appMetrics)}
	if cfg.Transport.Timeout > 0 {
		opts = append(opts, transport.WithTimeout(cfg.Transport.Timeout))
	}
	tr, err := transport.New(tc, opts...)
	if err != nil {
		return nil, nil, err
	}

	storageOpts := bucketfs.Options{}
	if cfg.URL.Default != "" {
		if storageOpts.BaseURL, err = bucketfs.NewURLTemplate(cfg.URL); err != nil {
			return nil, nil, err
		}
	}
	if storageOpts.HeaderRules, err = bucketfs.CompileHeaderRules(cfg.Headers); err != nil {
		return nil, nil, err
	}

	cache, cleanup, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	if cache != nil {
		storageOpts.Cache = metrics.InstrumentCache(cache, appMetrics)
	}

	client, err := clientcli.New(tr, storageOpts, clientcli.WithWorkers(cfg.Sync.Workers))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return client, cleanup, nil
}
