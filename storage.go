package bucketfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ObjectTransport issues authenticated requests against a single bucket.
// Implementations never retry; every failure is returned on first occurrence.
//
// Errors for non-success responses must be *TransportError values (or wrap them), so
// that errors.Is(err, ErrNotFound) holds for 404 responses.
type ObjectTransport interface {
	// Head retrieves object metadata without the body.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - key: The object key, not escaped
	//
	// Returns:
	//   - RemoteObject: Size, last-modified time, ETag and encoding headers
	//   - error: An error matching ErrNotFound if the key doesn't exist, or a *TransportError
	Head(ctx context.Context, key string) (RemoteObject, error)

	// Get retrieves object content, optionally restricted to rng.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - key: The object key, not escaped
	//   - rng: Byte range to read, or nil for the whole object
	//
	// Returns:
	//   - GetResult: Body bytes (gzip decoded for full reads), object metadata, Content-Range
	//   - error: A *TransportError for any status outside 200/206
	//
	// A range starting at or past the end of the object yields an empty result, not an error.
	Get(ctx context.Context, key string, rng *ByteRange) (GetResult, error)

	// Put uploads body to key with the extra headers supplied.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - key: The object key, not escaped
	//   - body: Content to upload; its position is restored before Put returns
	//   - header: Extra request headers, e.g. Cache-Control, merged before signing
	//
	// Returns:
	//   - PutResult: Bytes sent after optional compression and the server Date
	//   - error: A *TransportError or I/O error
	Put(ctx context.Context, key string, body io.ReadSeeker, header http.Header) (PutResult, error)

	// Delete removes key from the bucket.
	Delete(ctx context.Context, key string) error

	// ListBucket returns one page of a bucket listing. NextMarker is set whenever
	// IsTruncated is true. Looping over pages is the caller's responsibility.
	ListBucket(ctx context.Context, q ListQuery) (ListBucketResult, error)

	// PresignURL returns a query-string authenticated URL valid until expires.
	PresignURL(method, key string, expires time.Time) (string, error)
}

// Options configures a Storage.
type Options struct {
	// Cache is consulted before network calls. Nil disables caching.
	Cache MetadataCache
	// BaseURL builds public URLs. Nil makes URL return ErrConfiguration.
	BaseURL *URLTemplate
	// HeaderRules are consulted before DefaultHeaderRules; the first match wins.
	HeaderRules        []HeaderRule
	DefaultHeaderRules []HeaderRule
	// CleanupTimeout bounds placeholder removal after a failed upload (default: 30s).
	CleanupTimeout time.Duration
	// Now is the clock used for presign expiry (default: time.Now).
	Now func() time.Time
}

// Storage exposes a filesystem-like view over a bucket.
type Storage struct {
	transport      ObjectTransport
	cache          MetadataCache
	baseURL        *URLTemplate
	rules          []HeaderRule
	cleanupTimeout time.Duration
	now            func() time.Time
}

// New creates a Storage over transport.
func New(transport ObjectTransport, opts Options) (*Storage, error) {
	if transport == nil {
		return nil, fmt.Errorf("new storage: transport is nil: %w", ErrConfiguration)
	}

	cache := opts.Cache
	if cache == nil {
		cache = NopCache{}
	}
	cleanupTimeout := opts.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	rules := make([]HeaderRule, 0, len(opts.HeaderRules)+len(opts.DefaultHeaderRules))
	rules = append(rules, opts.HeaderRules...)
	rules = append(rules, opts.DefaultHeaderRules...)

	return &Storage{
		transport:      transport,
		cache:          cache,
		baseURL:        opts.BaseURL,
		rules:          rules,
		cleanupTimeout: cleanupTimeout,
		now:            now,
	}, nil
}

// Save uploads content under name and returns the normalized final name.
//
// Before the upload a placeholder cache entry is written unless the cache already knows
// the object is present, so concurrent readers see the in-flight upload as existing.
// If the upload fails the placeholder is rolled back to what the cache knew before. On success the cache is
// overwritten with the uploaded size and the server's Date.
//
// The position of content is restored before Save returns.
func (s *Storage) Save(ctx context.Context, name string, content io.ReadSeeker) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}

	name = NormalizeName(name)
	if name == "" {
		return "", fmt.Errorf("save: %w: name cannot be empty", ErrInvalidInput)
	}

	if _, err := s.put(ctx, name, content); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Storage) put(ctx context.Context, name string, content io.ReadSeeker) (PutResult, error) {
	prior := s.cache.Exists(ctx, name)
	placeholder := false
	if prior != Present {
		if err := s.cache.Save(ctx, name, 0, time.Time{}); err != nil {
			slog.Warn("failed to write cache placeholder", "name", name, "err", err)
		} else {
			placeholder = true
		}
	}

	res, err := s.transport.Put(ctx, name, content, s.headersFor(name))
	if err != nil {
		if placeholder {
			// The request context may already be cancelled.
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cleanupTimeout)
			defer cancel()
			if rbErr := s.rollbackPlaceholder(cleanupCtx, name, prior); rbErr != nil {
				slog.Warn("failed to remove cache placeholder", "name", name, "err", rbErr)
			}
		}
		return PutResult{}, fmt.Errorf("save %s: %w", name, err)
	}

	mtime := res.Date
	if mtime.IsZero() {
		mtime = s.now()
	}
	if err := s.cache.Save(ctx, name, res.Size, mtime.Truncate(time.Second)); err != nil {
		slog.Warn("failed to update cache", "name", name, "err", err)
	}
	return res, nil
}

// rollbackPlaceholder returns name to the state the cache reported before the placeholder.
func (s *Storage) rollbackPlaceholder(ctx context.Context, name string, prior Existence) error {
	if prior == Absent {
		return s.cache.Remove(ctx, name)
	}
	return s.cache.Forget(ctx, name)
}

func (s *Storage) headersFor(name string) http.Header {
	for _, r := range s.rules {
		if r.Pattern.MatchString(name) {
			return r.Headers.Clone()
		}
	}
	return http.Header{}
}

// Open returns a handle on name. Mode follows the usual "r"/"w" letters; only handles
// opened with "w" accept writes. No request is made until the handle is read or closed.
func (s *Storage) Open(ctx context.Context, name, mode string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	name = NormalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("open: %w: name cannot be empty", ErrInvalidInput)
	}
	if mode == "" {
		mode = "rb"
	}

	return &File{
		ctx:     ctx,
		name:    name,
		mode:    mode,
		storage: s,
		size:    -1,
	}, nil
}

func (s *Storage) read(ctx context.Context, name string, rng *ByteRange) (GetResult, error) {
	res, err := s.transport.Get(ctx, name, rng)
	if err != nil {
		return GetResult{}, fmt.Errorf("read %s: %w", name, err)
	}
	return res, nil
}

// Delete removes name from the bucket and the cache.
func (s *Storage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	name = NormalizeName(name)
	if name == "" {
		return fmt.Errorf("delete: %w: name cannot be empty", ErrInvalidInput)
	}

	if err := s.transport.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if err := s.cache.Remove(ctx, name); err != nil {
		slog.Warn("failed to remove cache entry", "name", name, "err", err)
	}
	return nil
}

// Exists reports whether name exists. Unless forceCheck is set a definite cache
// answer is returned without a network call. An empty name is never present.
func (s *Storage) Exists(ctx context.Context, name string, forceCheck bool) (bool, error) {
	name = NormalizeName(name)
	if name == "" {
		return false, nil
	}

	if !forceCheck {
		switch s.cache.Exists(ctx, name) {
		case Present:
			slog.Debug("cache hit", "op", "exists", "name", name)
			return true, nil
		case Absent:
			slog.Debug("cache hit", "op", "exists", "name", name)
			return false, nil
		}
	}

	obj, err := s.transport.Head(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("exists %s: %w", name, err)
	}

	s.store(ctx, name, obj)
	return true, nil
}

// Size returns the size of name in bytes as stored, which for compressed uploads is the
// compressed length. A missing object is an error matching ErrNotFound.
func (s *Storage) Size(ctx context.Context, name string, forceCheck bool) (int64, error) {
	name = NormalizeName(name)

	if !forceCheck {
		if size, ok := s.cache.Size(ctx, name); ok {
			slog.Debug("cache hit", "op", "size", "name", name)
			return size, nil
		}
	}

	obj, err := s.head(ctx, "size", name)
	if err != nil {
		return 0, err
	}
	return obj.Size, nil
}

// ModifiedTime returns the last modification time of name. A missing object is an
// error matching ErrNotFound, so "never synced" can be told apart from transport failures.
func (s *Storage) ModifiedTime(ctx context.Context, name string, forceCheck bool) (time.Time, error) {
	name = NormalizeName(name)

	if !forceCheck {
		if mtime, ok := s.cache.ModifiedTime(ctx, name); ok {
			slog.Debug("cache hit", "op", "modified_time", "name", name)
			return mtime, nil
		}
	}

	obj, err := s.head(ctx, "modified time", name)
	if err != nil {
		return time.Time{}, err
	}
	return obj.LastModified, nil
}

func (s *Storage) head(ctx context.Context, op, name string) (RemoteObject, error) {
	if name == "" {
		return RemoteObject{}, fmt.Errorf("%s: %w: name cannot be empty", op, ErrInvalidInput)
	}

	obj, err := s.transport.Head(ctx, name)
	if err != nil {
		return RemoteObject{}, fmt.Errorf("%s %s: %w", op, name, err)
	}
	s.store(ctx, name, obj)
	return obj, nil
}

func (s *Storage) store(ctx context.Context, name string, obj RemoteObject) {
	if obj.LastModified.IsZero() {
		return
	}
	if err := s.cache.Save(ctx, name, obj.Size, obj.LastModified); err != nil {
		slog.Warn("failed to update cache", "name", name, "err", err)
	}
}

// ListDir lists the direct children of path. Directories are the pseudo-directories
// formed by "/" delimited common prefixes; files are the remaining keys. Both are
// relative to path. All listing pages are followed.
func (s *Storage) ListDir(ctx context.Context, path string) ([]string, []string, error) {
	prefix := NormalizeName(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	dirs := []string{}
	files := []string{}
	q := ListQuery{Prefix: prefix, Delimiter: "/"}
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("list dir %s: %w", path, err)
		}

		page, err := s.transport.ListBucket(ctx, q)
		if err != nil {
			return nil, nil, fmt.Errorf("list dir %s: %w", path, err)
		}

		for _, p := range page.CommonPrefixes {
			if d := strings.Trim(strings.TrimPrefix(p, prefix), "/"); d != "" {
				dirs = append(dirs, d)
			}
		}
		for _, e := range page.Entries {
			if f := strings.TrimPrefix(e.Key, prefix); f != "" {
				files = append(files, f)
			}
		}

		if !page.IsTruncated || page.NextMarker == "" || page.NextMarker == q.Marker {
			break
		}
		q.Marker = page.NextMarker
	}

	return dirs, files, nil
}

// URL returns the public URL of name, using the secure flag carried by ctx to pick the scheme.
// name is a raw key: each byte outside the unreserved set and "/" is percent-encoded once.
func (s *Storage) URL(ctx context.Context, name string) (string, error) {
	if s.baseURL == nil {
		return "", fmt.Errorf("url: %w: no base url configured", ErrConfiguration)
	}
	return s.baseURL.ResolveKey(NormalizeName(name), IsSecure(ctx)), nil
}

// SignedURL returns a presigned GET URL for name valid for expiresIn.
// The expiry is fixed when the URL is generated.
func (s *Storage) SignedURL(ctx context.Context, name string, expiresIn time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("signed url: %w", err)
	}

	name = NormalizeName(name)
	if name == "" {
		return "", fmt.Errorf("signed url: %w: name cannot be empty", ErrInvalidInput)
	}

	u, err := s.transport.PresignURL(http.MethodGet, name, s.now().Add(expiresIn))
	if err != nil {
		return "", fmt.Errorf("signed url %s: %w", name, err)
	}
	return u, nil
}
