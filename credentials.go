package bucketfs

import (
	"fmt"
	"os"
)

const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
)

// ResolveCredentials returns the configured key pair, falling back to the environment
// only when both configured values are empty. A half-configured pair, in configuration
// or in the environment, is ErrConfiguration.
func ResolveCredentials(configured Credentials, getenv func(string) string) (Credentials, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	hasID := configured.AccessKeyID != ""
	hasSecret := configured.SecretAccessKey != ""
	if hasID && hasSecret {
		return configured, nil
	}
	if hasID != hasSecret {
		return Credentials{}, fmt.Errorf("resolve credentials: both access key and secret key must be set: %w", ErrConfiguration)
	}

	env := Credentials{
		AccessKeyID:     getenv(EnvAccessKeyID),
		SecretAccessKey: getenv(EnvSecretAccessKey),
	}
	switch {
	case env.AccessKeyID != "" && env.SecretAccessKey != "":
		return env, nil
	case env.AccessKeyID != "" || env.SecretAccessKey != "":
		return Credentials{}, fmt.Errorf("resolve credentials: %s and %s must both be set: %w", EnvAccessKeyID, EnvSecretAccessKey, ErrConfiguration)
	default:
		return Credentials{}, fmt.Errorf("resolve credentials: no credentials configured: %w", ErrConfiguration)
	}
}
