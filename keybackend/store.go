package keybackend

import (
	"fmt"

	"github.com/sagarc03/bucketfs"
)

// KeysConfig holds configuration for loading access keys.
type KeysConfig struct {
	Inline []bucketfs.Credentials `mapstructure:"inline" yaml:"inline"` // Inline key pairs from config
	File   string                 `mapstructure:"file" yaml:"file"`     // Path to JSON file containing key pairs
}

// CDNKeyConfig names the key pair used to sign CDN URLs.
type CDNKeyConfig struct {
	KeyPairID      string `mapstructure:"key_pair_id" yaml:"key_pair_id"`
	PrivateKeyFile string `mapstructure:"private_key_file" yaml:"private_key_file"`
}

// Enabled reports whether any CDN signing setting was provided.
func (c CDNKeyConfig) Enabled() bool {
	return c.KeyPairID != "" || c.PrivateKeyFile != ""
}

// NewSecretStore creates a MapSecretStore from the given configuration.
// It loads keys from both inline config and file (if specified),
// merging them into a single store. File keys take precedence over inline keys
// if there are duplicates.
func NewSecretStore(cfg KeysConfig) (*MapSecretStore, error) {
	keys := make(map[string]string)

	for _, p := range cfg.Inline {
		if p.AccessKeyID != "" && p.SecretAccessKey != "" {
			keys[p.AccessKeyID] = p.SecretAccessKey
		}
	}

	if cfg.File != "" {
		fileKeys, err := LoadKeysFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileKeys {
			keys[k] = v
		}
	}

	return NewMapSecretStore(keys), nil
}

// NewCDNSigner loads the private key named by cfg and builds a signer for it.
func NewCDNSigner(cfg CDNKeyConfig) (*bucketfs.CDNSigner, error) {
	if cfg.KeyPairID == "" || cfg.PrivateKeyFile == "" {
		return nil, fmt.Errorf("cdn signing needs key_pair_id and private_key_file: %w", bucketfs.ErrConfiguration)
	}

	key, err := LoadCDNKeyFromFile(cfg.PrivateKeyFile)
	if err != nil {
		return nil, err
	}
	return bucketfs.NewCDNSigner(cfg.KeyPairID, key)
}
