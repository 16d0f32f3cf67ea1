package bucketfs_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/bucketfs"
	"github.com/sagarc03/bucketfs/bucketfstest"
	"github.com/sagarc03/bucketfs/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBucketStorage(t *testing.T, cache bucketfs.MetadataCache) (*bucketfs.Storage, *bucketfstest.Server) {
	t.Helper()

	srv := bucketfstest.NewServer(t, "static")
	client, err := transport.New(transport.Config{
		Credentials: bucketfstest.DefaultCredentials,
		Bucket:      "static",
		Endpoint:    srv.Endpoint(),
	}, transport.WithClock(srv.Now))
	require.NoError(t, err)

	base, err := bucketfs.NewURLTemplate(bucketfs.URLTemplateConfig{Default: "http://cdn.example.com/static/"})
	require.NoError(t, err)

	rules, err := bucketfs.CompileHeaderRules([]bucketfs.HeaderRuleConfig{
		{Pattern: `\.css$`, Headers: map[string]string{"Cache-Control": "max-age=86400"}},
	})
	require.NoError(t, err)

	storage, err := bucketfs.New(client, bucketfs.Options{
		Cache:       cache,
		BaseURL:     base,
		HeaderRules: rules,
		Now:         srv.Now,
	})
	require.NoError(t, err)

	return storage, srv
}

func TestStorage_AgainstBucketServer(t *testing.T) {
	cache := bucketfs.NewMemoryCache()
	storage, srv := newBucketStorage(t, cache)
	ctx := context.Background()
	css := bytes.Repeat([]byte(".nav { display: flex; }\n"), 100)

	name, err := storage.Save(ctx, "/css/site.css", bytes.NewReader(css))
	require.NoError(t, err)
	assert.Equal(t, "css/site.css", name)

	stored, ok := srv.Object("css/site.css")
	require.True(t, ok)
	assert.Equal(t, "gzip", stored.ContentEncoding)
	assert.Equal(t, "max-age=86400", stored.Header.Get("Cache-Control"))

	t.Run("metadata is served from the cache", func(t *testing.T) {
		srv.ResetRequests()

		exists, err := storage.Exists(ctx, "css/site.css", false)
		require.NoError(t, err)
		assert.True(t, exists)

		size, err := storage.Size(ctx, "css/site.css", false)
		require.NoError(t, err)
		assert.Equal(t, int64(len(stored.Data)), size)

		mtime, err := storage.ModifiedTime(ctx, "css/site.css", false)
		require.NoError(t, err)
		assert.True(t, bucketfstest.Epoch.Equal(mtime))

		assert.Zero(t, srv.TotalRequests())
	})

	t.Run("forced checks hit the server", func(t *testing.T) {
		srv.ResetRequests()

		exists, err := storage.Exists(ctx, "css/site.css", true)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, 1, srv.Requests(http.MethodHead))
	})

	t.Run("read whole file decodes gzip", func(t *testing.T) {
		f, err := storage.Open(ctx, "css/site.css", "")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()

		got, err := f.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, css, got)
	})

	t.Run("url", func(t *testing.T) {
		u, err := storage.URL(ctx, "css/site.css")
		require.NoError(t, err)
		assert.Equal(t, "http://cdn.example.com/static/css/site.css", u)

		u, err = storage.URL(bucketfs.WithSecure(ctx, true), "css/site.css")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/static/css/site.css", u)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, storage.Delete(ctx, "css/site.css"))

		srv.ResetRequests()
		exists, err := storage.Exists(ctx, "css/site.css", false)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Zero(t, srv.TotalRequests())
	})
}

func TestStorage_RangedReadsAgainstBucketServer(t *testing.T) {
	storage, srv := newBucketStorage(t, nil)
	srv.PutObject("notes.txt", []byte("abcdefgh"), "text/plain")
	ctx := context.Background()

	f, err := storage.Open(ctx, "notes.txt", "rb")
	require.NoError(t, err)

	buf := make([]byte, 3)
	var got []string
	for {
		n, err := f.Read(buf)
		if n > 0 {
			got = append(got, string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"abc", "def", "gh"}, got)
	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
	assert.Equal(t, 3, srv.Requests(http.MethodGet))
}

func TestStorage_WriteHandleAgainstBucketServer(t *testing.T) {
	storage, srv := newBucketStorage(t, bucketfs.NewMemoryCache())
	ctx := context.Background()

	f, err := storage.Open(ctx, "out/log.txt", "wb")
	require.NoError(t, err)

	_, err = io.Copy(f, strings.NewReader("line one\n"))
	require.NoError(t, err)
	_, err = f.Write([]byte("line two\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	stored, ok := srv.Object("out/log.txt")
	require.True(t, ok)
	assert.Equal(t, "line one\nline two\n", string(stored.Data))
}

func TestStorage_FailedSaveClearsPlaceholder(t *testing.T) {
	cache := bucketfs.NewMemoryCache()
	storage, srv := newBucketStorage(t, cache)
	srv.FailNext(http.MethodPut, http.StatusInternalServerError)
	ctx := context.Background()

	_, err := storage.Save(ctx, "broken.txt", strings.NewReader("x"))

	var te *bucketfs.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, bucketfs.Unknown, cache.Exists(ctx, "broken.txt"))
}

func TestStorage_FailedOverwriteKeepsRemoteObjectVisible(t *testing.T) {
	cache := bucketfs.NewMemoryCache()
	storage, srv := newBucketStorage(t, cache)
	srv.PutObject("existing.txt", []byte("v1"), "text/plain")
	srv.FailNext(http.MethodPut, http.StatusInternalServerError)
	ctx := context.Background()

	_, err := storage.Save(ctx, "existing.txt", strings.NewReader("v2"))
	require.Error(t, err)
	assert.Equal(t, bucketfs.Unknown, cache.Exists(ctx, "existing.txt"))

	srv.ResetRequests()
	exists, err := storage.Exists(ctx, "existing.txt", false)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, srv.TotalRequests(), "unknown cache state falls through to HEAD")

	stored, ok := srv.Object("existing.txt")
	require.True(t, ok)
	assert.Equal(t, "v1", string(stored.Data))
}

func TestStorage_ListDirAgainstBucketServer(t *testing.T) {
	storage, srv := newBucketStorage(t, nil)
	for _, k := range []string{"img/a.png", "img/b.png", "img/icons/x.svg", "img/thumbs/y.png", "root.txt"} {
		srv.PutObject(k, []byte("x"), "application/octet-stream")
	}

	dirs, files, err := storage.ListDir(context.Background(), "img")
	require.NoError(t, err)
	assert.Equal(t, []string{"icons", "thumbs"}, dirs)
	assert.Equal(t, []string{"a.png", "b.png"}, files)

	dirs, files, err = storage.ListDir(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"img"}, dirs)
	assert.Equal(t, []string{"root.txt"}, files)
}

func TestStorage_SignedURLAgainstBucketServer(t *testing.T) {
	storage, srv := newBucketStorage(t, nil)
	srv.PutObject("private.txt", []byte("top secret"), "text/plain")

	signed, err := storage.SignedURL(context.Background(), "private.txt", 5*time.Second)
	require.NoError(t, err)

	resp, err := http.Get(signed) //nolint:noctx // test request
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv.Advance(6 * time.Second)
	resp, err = http.Get(signed) //nolint:noctx // test request
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
