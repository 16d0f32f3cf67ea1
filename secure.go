package bucketfs

import "context"

type secureKey struct{}

// WithSecure returns a context carrying the request-scoped secure flag.
func WithSecure(ctx context.Context, secure bool) context.Context {
	return context.WithValue(ctx, secureKey{}, secure)
}

// IsSecure reports the secure flag carried by ctx. It is false when unset.
func IsSecure(ctx context.Context) bool {
	secure, _ := ctx.Value(secureKey{}).(bool)
	return secure
}
