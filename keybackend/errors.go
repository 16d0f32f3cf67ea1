package keybackend

import "errors"

// ErrKeyNotFound is returned when the access key does not exist in the store.
var ErrKeyNotFound = errors.New("access key not found")

// ErrAmbiguousKey is returned when a default key is requested from a store holding several.
var ErrAmbiguousKey = errors.New("more than one access key configured")
