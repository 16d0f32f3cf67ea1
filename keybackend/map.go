// Package keybackend loads bucket credentials and CDN signing keys.
package keybackend

import (
	"fmt"
	"sort"

	"github.com/sagarc03/bucketfs"
)

// MapSecretStore holds access key to secret key pairs in memory.
type MapSecretStore struct {
	keys map[string]string
}

// NewMapSecretStore creates a new map-based secret store with the given access key to secret key mapping.
func NewMapSecretStore(keys map[string]string) *MapSecretStore {
	return &MapSecretStore{keys: keys}
}

// Lookup returns the secret key for accessKey. Its signature matches the lookup
// expected by bucketfs.NewSignatureVerifier.
func (s *MapSecretStore) Lookup(accessKey string) (string, bool) {
	secretKey, found := s.keys[accessKey]
	return secretKey, found
}

// Len reports how many key pairs the store holds.
func (s *MapSecretStore) Len() int {
	return len(s.keys)
}

// Credentials returns the pair for accessKey. An empty accessKey selects the only
// configured pair, and fails with ErrAmbiguousKey when there are several.
func (s *MapSecretStore) Credentials(accessKey string) (bucketfs.Credentials, error) {
	if accessKey == "" {
		switch len(s.keys) {
		case 0:
			return bucketfs.Credentials{}, ErrKeyNotFound
		case 1:
			for k := range s.keys {
				accessKey = k
			}
		default:
			ids := make([]string, 0, len(s.keys))
			for k := range s.keys {
				ids = append(ids, k)
			}
			sort.Strings(ids)
			return bucketfs.Credentials{}, fmt.Errorf("%w: %v", ErrAmbiguousKey, ids)
		}
	}

	secretKey, found := s.keys[accessKey]
	if !found {
		return bucketfs.Credentials{}, fmt.Errorf("%s: %w", accessKey, ErrKeyNotFound)
	}
	return bucketfs.Credentials{AccessKeyID: accessKey, SecretAccessKey: secretKey}, nil
}
