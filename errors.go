package bucketfs

import (
	"errors"
	"net/http"
	"strconv"
)

var (
	// ErrNotFound is returned when an object does not exist in the bucket
	ErrNotFound = errors.New("not found")
	// ErrConfiguration is returned for missing or partial credentials, bad key material or bad settings
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrSigning is returned when a request or policy cannot be signed
	ErrSigning = errors.New("signing error")
	// ErrReadOnly is returned when writing to a file opened for reading
	ErrReadOnly = errors.New("file was opened for read-only access")
	// ErrUnauthorized is returned when a request signature cannot be verified
	ErrUnauthorized = errors.New("unauthorized")
)

// TransportError represents a non-success response from the object store.
type TransportError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if e.Code != "" {
		return "storage error: " + strconv.Itoa(e.StatusCode) + " " + e.Code + " - " + msg
	}
	return "storage error: " + strconv.Itoa(e.StatusCode) + " - " + msg
}

// Is reports whether target matches this error.
// A 404 matches ErrNotFound; any *TransportError matches when status codes are equal.
func (e *TransportError) Is(target error) bool {
	if target == ErrNotFound {
		return e.StatusCode == http.StatusNotFound
	}
	var t *TransportError
	if !errors.As(target, &t) {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *TransportError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
