package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/clientcli"
	"github.com/sagarc03/bucketfs/database"
	"github.com/sagarc03/bucketfs/keybackend"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for the bucketfs tool.
type Config struct {
	Env       string                      `mapstructure:"env" validate:"omitempty,oneof=dev development prod production"`
	Cache     CacheConfig                 `mapstructure:"cache"`
	Transport TransportConfig             `mapstructure:"transport"`
	URL       bucketfs.URLTemplateConfig  `mapstructure:"url"`
	Headers   []bucketfs.HeaderRuleConfig `mapstructure:"headers" validate:"dive"`
	Sync      SyncConfig                  `mapstructure:"sync"`
	Keys      keybackend.KeysConfig       `mapstructure:"keys"`
	CDN       keybackend.CDNKeyConfig     `mapstructure:"cdn"`
	Metrics   MetricsConfig               `mapstructure:"metrics"`
	Log       LogConfig                   `mapstructure:"log"`
}

// CacheConfig selects the metadata cache backend.
type CacheConfig struct {
	Backend  string          `mapstructure:"backend" validate:"required,oneof=none memory file sql"`
	Dir      string          `mapstructure:"dir" validate:"required_if=Backend file"`
	Database database.Config `mapstructure:"database"`
}

// TransportConfig tunes the authenticated transport.
type TransportConfig struct {
	Timeout          time.Duration `mapstructure:"timeout" validate:"min=0"`
	UseAmzDate       bool          `mapstructure:"use_amz_date"`
	GzipContentTypes []string      `mapstructure:"gzip_content_types"`
	GzipMinSize      int64         `mapstructure:"gzip_min_size" validate:"min=0"`
}

// SyncConfig holds defaults for the sync command.
type SyncConfig struct {
	Workers int      `mapstructure:"workers" validate:"min=1,max=256"`
	Exclude []string `mapstructure:"exclude"`
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	// TextFile is written in the Prometheus text format when the command finishes.
	TextFile string `mapstructure:"textfile"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// IsProduction reports whether Env names a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// flagToViperKey maps CLI flag names to viper configuration keys.
// Flags not listed here are command options and are never bound.
var flagToViperKey = map[string]string{
	"env":           "env",
	"cache-backend": "cache.backend",
	"cache-dir":     "cache.dir",
	"db-type":       "cache.database.type",
	"db-dsn":        "cache.database.dsn",
	"timeout":       "transport.timeout",
	"workers":       "sync.workers",
	"metrics-file":  "metrics.textfile",
	"log-level":     "log.level",
}

// bindFlags binds explicitly set CLI flags to viper keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok || !f.Changed {
			return
		}
		_ = v.BindPFlag(viperKey, f)
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.database.type", "sqlite")
	v.SetDefault("cache.database.dsn", "bucketfs.db")
	v.SetDefault("cache.database.table", database.DefaultTable)

	v.SetDefault("transport.timeout", 30*time.Second)
	v.SetDefault("transport.use_amz_date", false)
	v.SetDefault("transport.gzip_min_size", 0) // 0 keeps the transport default

	v.SetDefault("url.default", "")
	v.SetDefault("url.https", "")

	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.exclude", clientcli.DefaultExcludes)

	v.SetDefault("keys.file", "")
	v.SetDefault("cdn.key_pair_id", "")
	v.SetDefault("cdn.private_key_file", "")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("log.level", "")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("bucketfs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix("BUCKETFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
