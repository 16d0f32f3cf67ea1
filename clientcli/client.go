package clientcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/sagarc03/bucketfs"
)

// maxListKeys is the largest page the object store returns.
const maxListKeys = 1000

// Client performs bucket operations through a bucketfs.Storage.
type Client struct {
	storage   *bucketfs.Storage
	transport bucketfs.ObjectTransport
	workers   int
}

// Option configures a Client.
type Option func(*Client)

// WithWorkers sets how many files Sync processes concurrently.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a Client over transport. opts configure the underlying Storage.
func New(transport bucketfs.ObjectTransport, opts bucketfs.Options, clientOpts ...Option) (*Client, error) {
	storage, err := bucketfs.New(transport, opts)
	if err != nil {
		return nil, err
	}

	c := &Client{
		storage:   storage,
		transport: transport,
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range clientOpts {
		opt(c)
	}

	return c, nil
}

// Storage returns the storage the client operates on.
func (c *Client) Storage() *bucketfs.Storage {
	return c.storage
}

// Download fetches an object in full, decoding gzip content.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	key := bucketfs.NormalizeName(opts.Key)
	if key == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyPath)
	}

	f, err := c.storage.Open(ctx, key, "rb")
	if err != nil {
		return nil, nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := f.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("download: %w", err)
	}

	result := &DownloadResult{
		Key:  key,
		Size: int64(len(data)),
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, io.NopCloser(bytes.NewReader(data)), nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = path.Base(key)
	}
	result.LocalPath = localPath

	if dir := filepath.Dir(localPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create directory: %w", err)
		}
	}

	if err := os.WriteFile(localPath, data, 0o644); err != nil { //#nosec G306 -- downloaded content is not secret
		return nil, nil, fmt.Errorf("write file: %w", err)
	}

	return result, nil, nil
}

// Delete removes one or more objects. It continues on error, collecting results for all keys.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Keys) == 0 {
		return nil, ErrNoPaths
	}

	results := make([]DeleteResult, 0, len(opts.Keys))
	for _, key := range opts.Keys {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		err := c.storage.Delete(ctx, key)
		results = append(results, DeleteResult{
			Key:     bucketfs.NormalizeName(key),
			Deleted: err == nil,
			Err:     err,
		})
	}

	return results, nil
}

// List returns objects under opts.Prefix. Without opts.All only one page is fetched
// and NextMarker tells the caller where to resume.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	q := bucketfs.ListQuery{
		Prefix:    bucketfs.NormalizeName(opts.Prefix),
		Delimiter: opts.Delimiter,
		Marker:    opts.Marker,
	}
	if opts.Limit > 0 && opts.Limit <= maxListKeys {
		q.MaxKeys = opts.Limit
	}

	result := &ListResult{Items: []ObjectInfo{}}
	for {
		page, err := c.transport.ListBucket(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}

		for _, e := range page.Entries {
			result.Items = append(result.Items, ObjectInfo{
				Key:          e.Key,
				Size:         e.Size,
				LastModified: e.LastModified,
				ETag:         e.ETag,
			})
		}
		result.Prefixes = append(result.Prefixes, page.CommonPrefixes...)

		result.NextMarker = ""
		if !page.IsTruncated {
			break
		}
		if page.NextMarker == "" || page.NextMarker == q.Marker {
			return nil, errors.New("list: truncated page without a usable marker")
		}
		result.NextMarker = page.NextMarker
		if !opts.All {
			break
		}
		q.Marker = page.NextMarker
	}

	return result, nil
}
