package http

import (
	"net/http"
	"strings"

	"github.com/sagarc03/bucketfs"
)

// IsSecureRequest reports whether r arrived over TLS or through a proxy that says it did.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Ssl"), "on") {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// SecureMiddleware stores the secure flag of each request on its context.
func SecureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := bucketfs.WithSecure(r.Context(), IsSecureRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ResourceFunc returns the canonical resource a request is signed against.
type ResourceFunc func(r *http.Request) string

// AuthMiddleware creates middleware that enforces signature authentication.
// Pass a nil verifier to disable authentication (public access).
func AuthMiddleware(verifier *bucketfs.SignatureVerifier, resource ResourceFunc) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.Verify(r, resource(r)); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
