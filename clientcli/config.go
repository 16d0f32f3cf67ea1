package clientcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/transport"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the object store host used when a profile names none.
const DefaultEndpoint = bucketfs.DefaultServer

// Profile holds connection settings for one bucket.
type Profile struct {
	Name          string `yaml:"name"`
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	CallingFormat string `yaml:"calling_format,omitempty"`
	Secure        bool   `yaml:"secure,omitempty"`
	AccessKey     string `yaml:"access_key,omitempty"`
	SecretKey     string `yaml:"secret_key,omitempty"`
	Default       bool   `yaml:"default,omitempty"`
}

// ConfigFile holds the full config file structure with multiple profiles.
type ConfigFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// GetProfile returns the profile by name.
// If name is empty, returns the default profile.
func (c *ConfigFile) GetProfile(name string) (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	if name == "" {
		return c.GetDefaultProfile()
	}

	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// GetDefaultProfile returns the profile marked default, or the first one.
func (c *ConfigFile) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}

	for i := range c.Profiles {
		if c.Profiles[i].Default {
			return &c.Profiles[i], nil
		}
	}

	return &c.Profiles[0], nil
}

// AddProfile adds a new profile. Returns ErrProfileExists if the name is taken.
func (c *ConfigFile) AddProfile(p Profile) error {
	if c.indexOf(p.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// UpdateProfile replaces an existing profile with the same name.
func (c *ConfigFile) UpdateProfile(p Profile) error {
	i := c.indexOf(p.Name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, p.Name)
	}
	c.Profiles[i] = p
	return nil
}

// RemoveProfile removes a profile by name.
func (c *ConfigFile) RemoveProfile(name string) error {
	i := c.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
	return nil
}

// SetDefault marks name as the default profile and clears the flag elsewhere.
func (c *ConfigFile) SetDefault(name string) error {
	if c.indexOf(name) < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	for i := range c.Profiles {
		c.Profiles[i].Default = c.Profiles[i].Name == name
	}
	return nil
}

// ProfileNames returns a list of all profile names.
func (c *ConfigFile) ProfileNames() []string {
	names := make([]string, len(c.Profiles))
	for i := range c.Profiles {
		names[i] = c.Profiles[i].Name
	}
	return names
}

func (c *ConfigFile) indexOf(name string) int {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return i
		}
	}
	return -1
}

// Save writes the config to path, creating the parent directory if needed.
// The file holds secrets and is written with mode 0600.
func (c *ConfigFile) Save(path string) error {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadConfigFile loads the profile file at path.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// DefaultConfigPath returns ~/.bucketfs/config.yaml, or "" when there is no home directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bucketfs", "config.yaml")
}

// Config holds the resolved connection settings for one bucket.
type Config struct {
	Endpoint      string
	Bucket        string
	CallingFormat string
	Secure        bool
	AccessKey     string
	SecretKey     string
}

// WithDefaults returns a copy of the config with default values applied.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &cfg
}

// Transport builds the transport configuration. Missing credentials fall back to
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY through getenv.
func (c *Config) Transport(getenv func(string) string) (transport.Config, error) {
	if c.Bucket == "" {
		return transport.Config{}, ErrBucketRequired
	}

	format, err := bucketfs.ParseCallingFormat(c.CallingFormat)
	if err != nil {
		return transport.Config{}, err
	}

	creds, err := bucketfs.ResolveCredentials(bucketfs.Credentials{
		AccessKeyID:     c.AccessKey,
		SecretAccessKey: c.SecretKey,
	}, getenv)
	if err != nil {
		return transport.Config{}, err
	}

	endpoint := bucketfs.Endpoint{
		Server: c.Endpoint,
		Format: format,
		Secure: c.Secure,
	}
	if format == bucketfs.VanityFormat {
		endpoint.VanityHost = c.Endpoint
	}

	return transport.Config{
		Credentials: creds,
		Bucket:      c.Bucket,
		Endpoint:    endpoint,
	}, nil
}

// ConfigFromProfile creates a Config from a Profile.
func ConfigFromProfile(p *Profile) *Config {
	if p == nil {
		return &Config{}
	}
	return &Config{
		Endpoint:      p.Endpoint,
		Bucket:        p.Bucket,
		CallingFormat: p.CallingFormat,
		Secure:        p.Secure,
		AccessKey:     p.AccessKey,
		SecretKey:     p.SecretKey,
	}
}

// ConfigFromEnv loads config from BUCKETFS_* environment variables.
func ConfigFromEnv() *Config {
	secure, _ := strconv.ParseBool(os.Getenv("BUCKETFS_SECURE"))
	return &Config{
		Endpoint:      os.Getenv("BUCKETFS_ENDPOINT"),
		Bucket:        os.Getenv("BUCKETFS_BUCKET"),
		CallingFormat: os.Getenv("BUCKETFS_CALLING_FORMAT"),
		Secure:        secure,
		AccessKey:     os.Getenv("BUCKETFS_ACCESS_KEY"),
		SecretKey:     os.Getenv("BUCKETFS_SECRET_KEY"),
	}
}

// ProfileFromEnv returns the profile name from BUCKETFS_PROFILE.
func ProfileFromEnv() string {
	return os.Getenv("BUCKETFS_PROFILE")
}

// ConfigPathFromEnv returns the profile file path from BUCKETFS_PROFILES.
func ConfigPathFromEnv() string {
	return os.Getenv("BUCKETFS_PROFILES")
}

// MergeConfig merges configs, later ones taking precedence.
// Empty strings never override earlier values and Secure can only be switched on.
func MergeConfig(configs ...*Config) *Config {
	result := &Config{}
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if cfg.Endpoint != "" {
			result.Endpoint = cfg.Endpoint
		}
		if cfg.Bucket != "" {
			result.Bucket = cfg.Bucket
		}
		if cfg.CallingFormat != "" {
			result.CallingFormat = cfg.CallingFormat
		}
		if cfg.Secure {
			result.Secure = true
		}
		if cfg.AccessKey != "" {
			result.AccessKey = cfg.AccessKey
		}
		if cfg.SecretKey != "" {
			result.SecretKey = cfg.SecretKey
		}
	}
	return result
}
