package transport

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // G501: Content-MD5 is an integrity check, not a security control
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-http-utils/headers"
	"github.com/sagarc03/bucketfs"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultGzipMinSize is the payload size above which compression is attempted.
	DefaultGzipMinSize = 1024

	// DefaultContentType is sent when the key's extension has no known type.
	DefaultContentType = "application/x-octet-stream"

	headerDate    = "Date"
	headerAmzDate = "X-Amz-Date"
)

// DefaultGzipContentTypes are the media types compressed on upload by default.
var DefaultGzipContentTypes = []string{
	"text/css",
	"application/javascript",
	"application/x-javascript",
	"text/javascript",
}

// Config describes the bucket a Client talks to.
type Config struct {
	Credentials bucketfs.Credentials
	Bucket      string
	Endpoint    bucketfs.Endpoint
	// UseAmzDate signs x-amz-date instead of Date, for hosts whose clocks cannot be trusted.
	UseAmzDate bool
	// GzipContentTypes overrides DefaultGzipContentTypes when non-nil.
	GzipContentTypes []string
	// GzipMinSize overrides DefaultGzipMinSize when positive.
	GzipMinSize int64
}

// Observer receives one call per completed HTTP exchange.
type Observer interface {
	ObserveRequest(op string, status int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int, time.Duration) {}

// Client performs signed requests against one bucket.
type Client struct {
	bucket      string
	endpoint    bucketfs.Endpoint
	signer      *bucketfs.Signer
	httpClient  *http.Client
	now         func() time.Time
	observer    Observer
	useAmzDate  bool
	gzipTypes   map[string]bool
	gzipMinSize int64
}

var _ bucketfs.ObjectTransport = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithClock sets the clock used for Date headers and presign expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithObserver reports every request to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a new Client with the given config and options.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("new transport: bucket is empty: %w", bucketfs.ErrConfiguration)
	}

	signer, err := bucketfs.NewSigner(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("new transport: %w", err)
	}

	// Fail fast on a bucket the calling format cannot address.
	if _, err := cfg.Endpoint.Resolve(cfg.Bucket, ""); err != nil {
		return nil, fmt.Errorf("new transport: %w", err)
	}

	gzipTypes := cfg.GzipContentTypes
	if gzipTypes == nil {
		gzipTypes = DefaultGzipContentTypes
	}
	minSize := cfg.GzipMinSize
	if minSize <= 0 {
		minSize = DefaultGzipMinSize
	}

	c := &Client{
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		signer:   signer,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now:         time.Now,
		observer:    nopObserver{},
		useAmzDate:  cfg.UseAmzDate,
		gzipTypes:   make(map[string]bool, len(gzipTypes)),
		gzipMinSize: minSize,
	}
	for _, t := range gzipTypes {
		c.gzipTypes[strings.ToLower(t)] = true
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Head retrieves object metadata.
func (c *Client) Head(ctx context.Context, key string) (bucketfs.RemoteObject, error) {
	resp, err := c.do(ctx, "head", http.MethodHead, key, nil, nil, nil)
	if err != nil {
		return bucketfs.RemoteObject{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return bucketfs.RemoteObject{}, errorFromResponse(resp)
	}
	return objectFromHeader(key, resp.Header, resp.ContentLength), nil
}

// Get retrieves object content, optionally restricted to rng.
// A range that cannot be satisfied yields an empty result.
func (c *Client) Get(ctx context.Context, key string, rng *bucketfs.ByteRange) (bucketfs.GetResult, error) {
	header := http.Header{}
	// Keep the HTTP stack from negotiating and stripping its own encoding.
	header.Set(headers.AcceptEncoding, "identity")
	if rng != nil {
		header.Set(headers.Range, rng.Header())
	}

	resp, err := c.do(ctx, "get", http.MethodGet, key, nil, header, nil)
	if err != nil {
		return bucketfs.GetResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		if rng != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return bucketfs.GetResult{Partial: true}, nil
		}
		return bucketfs.GetResult{}, errorFromResponse(resp)
	default:
		return bucketfs.GetResult{}, errorFromResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return bucketfs.GetResult{}, fmt.Errorf("get %s: read body: %w", key, err)
	}

	obj := objectFromHeader(key, resp.Header, int64(len(data)))
	if resp.StatusCode == http.StatusOK && strings.EqualFold(obj.ContentEncoding, "gzip") {
		decoded, err := gunzip(data)
		if err != nil {
			return bucketfs.GetResult{}, fmt.Errorf("get %s: %w", key, err)
		}
		data = decoded
	}

	return bucketfs.GetResult{
		Data:         data,
		Object:       obj,
		ContentRange: resp.Header.Get(headers.ContentRange),
		Partial:      resp.StatusCode == http.StatusPartialContent,
	}, nil
}

// Put uploads body to key. The content type is derived from the key's extension.
// The position of body is restored on every return path.
func (c *Client) Put(ctx context.Context, key string, body io.ReadSeeker, header http.Header) (res bucketfs.PutResult, err error) {
	pos, err := body.Seek(0, io.SeekCurrent)
	if err != nil {
		return bucketfs.PutResult{}, fmt.Errorf("put %s: save position: %w", key, err)
	}
	defer func() {
		if _, seekErr := body.Seek(pos, io.SeekStart); seekErr != nil && err == nil {
			err = fmt.Errorf("put %s: restore position: %w", key, seekErr)
		}
	}()

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return bucketfs.PutResult{}, fmt.Errorf("put %s: rewind: %w", key, err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return bucketfs.PutResult{}, fmt.Errorf("put %s: read content: %w", key, err)
	}

	contentType := ContentTypeFor(key)
	payload := data
	encoding := ""
	if c.compressible(contentType, int64(len(data))) {
		gz, err := gzipBytes(data)
		if err != nil {
			return bucketfs.PutResult{}, fmt.Errorf("put %s: %w", key, err)
		}
		if len(gz) < len(data) {
			payload = gz
			encoding = "gzip"
		}
	}

	sum := md5.Sum(payload) //nolint:gosec // G401: see import
	reqHeader := header.Clone()
	if reqHeader == nil {
		reqHeader = http.Header{}
	}
	reqHeader.Set(headers.ContentType, contentType)
	reqHeader.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	if encoding != "" {
		reqHeader.Set(headers.ContentEncoding, encoding)
	}

	resp, err := c.do(ctx, "put", http.MethodPut, key, nil, reqHeader, payload)
	if err != nil {
		return bucketfs.PutResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return bucketfs.PutResult{}, errorFromResponse(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	date, _ := http.ParseTime(resp.Header.Get(headerDate))
	return bucketfs.PutResult{
		Size:            int64(len(payload)),
		Date:            date,
		ContentType:     contentType,
		ContentEncoding: encoding,
		ETag:            strings.Trim(resp.Header.Get(headers.ETag), `"`),
	}, nil
}

// Delete removes key. A missing key is not an error, matching the store's own semantics.
func (c *Client) Delete(ctx context.Context, key string) error {
	resp, err := c.do(ctx, "delete", http.MethodDelete, key, nil, nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	return nil
}

// ListBucket fetches one page of the bucket listing.
func (c *Client) ListBucket(ctx context.Context, q bucketfs.ListQuery) (bucketfs.ListBucketResult, error) {
	query := url.Values{}
	if q.Prefix != "" {
		query.Set("prefix", q.Prefix)
	}
	if q.Delimiter != "" {
		query.Set("delimiter", q.Delimiter)
	}
	if q.Marker != "" {
		query.Set("marker", q.Marker)
	}
	if q.MaxKeys > 0 {
		query.Set("max-keys", strconv.Itoa(q.MaxKeys))
	}

	resp, err := c.do(ctx, "list", http.MethodGet, "", query, nil, nil)
	if err != nil {
		return bucketfs.ListBucketResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return bucketfs.ListBucketResult{}, errorFromResponse(resp)
	}

	result, err := decodeListBucket(resp.Body)
	if err != nil {
		return bucketfs.ListBucketResult{}, fmt.Errorf("list bucket: %w", err)
	}
	return result, nil
}

// PresignURL returns a query-string authenticated URL for key valid until expires.
func (c *Client) PresignURL(method, key string, expires time.Time) (string, error) {
	loc, err := c.endpoint.Resolve(c.bucket, key)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	query := c.signer.PresignQuery(method, loc.Resource, nil, expires)
	return c.scheme() + "://" + loc.Host + loc.Path + "?" + query.Encode(), nil
}

func (c *Client) scheme() string {
	if c.endpoint.Secure {
		return "https"
	}
	return "http"
}

func (c *Client) compressible(contentType string, size int64) bool {
	if size <= c.gzipMinSize {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return c.gzipTypes[mediaType]
}

func (c *Client) do(ctx context.Context, op, method, key string, query url.Values, header http.Header, body []byte) (*http.Response, error) {
	loc, err := c.endpoint.Resolve(c.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, key, err)
	}

	target := c.scheme() + "://" + loc.Host + loc.Path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: create request: %w", op, key, err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	if body != nil {
		req.ContentLength = int64(len(body))
	}

	date := c.now().UTC().Format(http.TimeFormat)
	if c.useAmzDate {
		req.Header.Set(headerAmzDate, date)
	} else {
		req.Header.Set(headerDate, date)
	}
	c.signer.SignRequest(req, loc.Resource)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observer.ObserveRequest(op, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: do request: %w", op, key, err)
	}
	c.observer.ObserveRequest(op, resp.StatusCode, time.Since(start))
	return resp, nil
}

// ContentTypeFor guesses the content type of key from its extension.
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return DefaultContentType
}

func objectFromHeader(key string, h http.Header, fallbackSize int64) bucketfs.RemoteObject {
	size := fallbackSize
	if raw := h.Get(headers.ContentLength); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			size = n
		}
	}
	if size < 0 {
		size = 0
	}
	modified, _ := http.ParseTime(h.Get(headers.LastModified))

	return bucketfs.RemoteObject{
		Key:             key,
		Size:            size,
		LastModified:    modified,
		ETag:            strings.Trim(h.Get(headers.ETag), `"`),
		ContentType:     h.Get(headers.ContentType),
		ContentEncoding: h.Get(headers.ContentEncoding),
	}
}

func errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	te := &bucketfs.TransportError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}

	if code, message, ok := decodeError(body); ok {
		te.Code = code
		te.Message = message
	} else if resp.StatusCode == http.StatusNotFound {
		te.Code = "NoSuchKey"
	}
	if te.Message == "" && te.Body == "" {
		te.Message = http.StatusText(resp.StatusCode)
	}

	return te
}
