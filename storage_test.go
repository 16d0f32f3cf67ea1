package bucketfs_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sagarc03/bucketfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SpyTransport struct {
	mock.Mock
}

func (s *SpyTransport) Head(ctx context.Context, key string) (bucketfs.RemoteObject, error) {
	args := s.Called(ctx, key)
	return args.Get(0).(bucketfs.RemoteObject), args.Error(1)
}

func (s *SpyTransport) Get(ctx context.Context, key string, rng *bucketfs.ByteRange) (bucketfs.GetResult, error) {
	args := s.Called(ctx, key, rng)
	return args.Get(0).(bucketfs.GetResult), args.Error(1)
}

func (s *SpyTransport) Put(ctx context.Context, key string, body io.ReadSeeker, header http.Header) (bucketfs.PutResult, error) {
	args := s.Called(ctx, key, body, header)
	return args.Get(0).(bucketfs.PutResult), args.Error(1)
}

func (s *SpyTransport) Delete(ctx context.Context, key string) error {
	args := s.Called(ctx, key)
	return args.Error(0)
}

func (s *SpyTransport) ListBucket(ctx context.Context, q bucketfs.ListQuery) (bucketfs.ListBucketResult, error) {
	args := s.Called(ctx, q)
	return args.Get(0).(bucketfs.ListBucketResult), args.Error(1)
}

func (s *SpyTransport) PresignURL(method, key string, expires time.Time) (string, error) {
	args := s.Called(method, key, expires)
	return args.String(0), args.Error(1)
}

type SpyCache struct {
	mock.Mock
}

func (s *SpyCache) Exists(ctx context.Context, name string) bucketfs.Existence {
	args := s.Called(ctx, name)
	return args.Get(0).(bucketfs.Existence)
}

func (s *SpyCache) Size(ctx context.Context, name string) (int64, bool) {
	args := s.Called(ctx, name)
	return args.Get(0).(int64), args.Bool(1)
}

func (s *SpyCache) ModifiedTime(ctx context.Context, name string) (time.Time, bool) {
	args := s.Called(ctx, name)
	return args.Get(0).(time.Time), args.Bool(1)
}

func (s *SpyCache) Save(ctx context.Context, name string, size int64, mtime time.Time) error {
	args := s.Called(ctx, name, size, mtime)
	return args.Error(0)
}

func (s *SpyCache) Remove(ctx context.Context, name string) error {
	args := s.Called(ctx, name)
	return args.Error(0)
}

func (s *SpyCache) Forget(ctx context.Context, name string) error {
	args := s.Called(ctx, name)
	return args.Error(0)
}

var (
	serverDate   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lastModified = time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC)
	notFoundErr  = &bucketfs.TransportError{StatusCode: http.StatusNotFound, Code: "NoSuchKey"}
)

func NewStorage(t *testing.T, opts bucketfs.Options) (*bucketfs.Storage, *SpyTransport) {
	t.Helper()
	spy := new(SpyTransport)
	s, err := bucketfs.New(spy, opts)
	require.NoError(t, err, "new storage")
	return s, spy
}

func TestNew(t *testing.T) {
	_, err := bucketfs.New(nil, bucketfs.Options{})
	assert.ErrorIs(t, err, bucketfs.ErrConfiguration)
}

func TestStorage_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes name and writes through to cache", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		spy.On("Put", ctx, "dir/a.txt", mock.Anything, http.Header{}).
			Return(bucketfs.PutResult{Size: 5, Date: serverDate}, nil)

		name, err := s.Save(ctx, `\dir\a.txt`, strings.NewReader("hello"))
		require.NoError(t, err)
		assert.Equal(t, "dir/a.txt", name)

		ok, err := s.Exists(ctx, name, false)
		require.NoError(t, err)
		assert.True(t, ok)

		size, err := s.Size(ctx, name, false)
		require.NoError(t, err)
		assert.Equal(t, int64(5), size)

		mtime, err := s.ModifiedTime(ctx, name, false)
		require.NoError(t, err)
		assert.True(t, serverDate.Equal(mtime))

		spy.AssertExpectations(t)
		spy.AssertNotCalled(t, "Head", mock.Anything, mock.Anything)
	})

	t.Run("writes placeholder before upload", func(t *testing.T) {
		cache := new(SpyCache)
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		var order []string
		cache.On("Exists", ctx, "a.txt").Return(bucketfs.Unknown)
		cache.On("Save", ctx, "a.txt", int64(0), time.Time{}).Run(func(mock.Arguments) {
			order = append(order, "placeholder")
		}).Return(nil)
		spy.On("Put", ctx, "a.txt", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			order = append(order, "put")
		}).Return(bucketfs.PutResult{Size: 3, Date: serverDate}, nil)
		cache.On("Save", ctx, "a.txt", int64(3), serverDate).Run(func(mock.Arguments) {
			order = append(order, "populate")
		}).Return(nil)

		_, err := s.Save(ctx, "a.txt", strings.NewReader("abc"))
		require.NoError(t, err)

		assert.Equal(t, []string{"placeholder", "put", "populate"}, order)
		cache.AssertExpectations(t)
	})

	t.Run("skips placeholder when already present", func(t *testing.T) {
		cache := new(SpyCache)
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		cache.On("Exists", ctx, "a.txt").Return(bucketfs.Present)
		spy.On("Put", ctx, "a.txt", mock.Anything, mock.Anything).Return(bucketfs.PutResult{Size: 3, Date: serverDate}, nil)
		cache.On("Save", ctx, "a.txt", int64(3), serverDate).Return(nil)

		_, err := s.Save(ctx, "a.txt", strings.NewReader("abc"))
		require.NoError(t, err)

		cache.AssertNotCalled(t, "Save", ctx, "a.txt", int64(0), time.Time{})
		cache.AssertExpectations(t)
	})

	t.Run("failed upload restores prior cache state", func(t *testing.T) {
		tests := []struct {
			name  string
			setup func(*bucketfs.MemoryCache)
			want  bucketfs.Existence
		}{
			{name: "unknown stays unknown", setup: func(*bucketfs.MemoryCache) {}, want: bucketfs.Unknown},
			{name: "absent stays absent", setup: func(c *bucketfs.MemoryCache) { _ = c.Remove(ctx, "a.txt") }, want: bucketfs.Absent},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cache := bucketfs.NewMemoryCache()
				tt.setup(cache)
				s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

				uploadErr := &bucketfs.TransportError{StatusCode: http.StatusForbidden, Code: "AccessDenied"}
				spy.On("Put", ctx, "a.txt", mock.Anything, mock.Anything).Return(bucketfs.PutResult{}, uploadErr)

				_, err := s.Save(ctx, "a.txt", strings.NewReader("abc"))
				require.ErrorIs(t, err, uploadErr)

				assert.Equal(t, tt.want, cache.Exists(ctx, "a.txt"))
			})
		}
	})

	t.Run("failed upload forgets placeholder instead of removing", func(t *testing.T) {
		cache := new(SpyCache)
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		cache.On("Exists", ctx, "a.txt").Return(bucketfs.Unknown)
		cache.On("Save", ctx, "a.txt", int64(0), time.Time{}).Return(nil)
		cache.On("Forget", mock.Anything, "a.txt").Return(nil)
		spy.On("Put", ctx, "a.txt", mock.Anything, mock.Anything).Return(bucketfs.PutResult{}, errors.New("connection reset"))

		_, err := s.Save(ctx, "a.txt", strings.NewReader("abc"))
		require.Error(t, err)

		cache.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
		cache.AssertExpectations(t)
	})

	t.Run("cache write failure does not fail the save", func(t *testing.T) {
		cache := new(SpyCache)
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		cache.On("Exists", ctx, "a.txt").Return(bucketfs.Unknown)
		cache.On("Save", ctx, "a.txt", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		spy.On("Put", ctx, "a.txt", mock.Anything, mock.Anything).Return(bucketfs.PutResult{Size: 3, Date: serverDate}, nil)

		name, err := s.Save(ctx, "a.txt", strings.NewReader("abc"))
		require.NoError(t, err)
		assert.Equal(t, "a.txt", name)
		cache.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	})

	t.Run("caller header rules win over defaults", func(t *testing.T) {
		callerRules, err := bucketfs.CompileHeaderRules([]bucketfs.HeaderRuleConfig{
			{Pattern: `\.css$`, Headers: map[string]string{"Cache-Control": "max-age=600"}},
		})
		require.NoError(t, err)
		defaultRules, err := bucketfs.CompileHeaderRules([]bucketfs.HeaderRuleConfig{
			{Pattern: `.*`, Headers: map[string]string{"Cache-Control": "no-cache"}},
		})
		require.NoError(t, err)

		s, spy := NewStorage(t, bucketfs.Options{HeaderRules: callerRules, DefaultHeaderRules: defaultRules})

		spy.On("Put", ctx, "site.css", mock.Anything, http.Header{"Cache-Control": {"max-age=600"}}).
			Return(bucketfs.PutResult{Size: 1, Date: serverDate}, nil)
		spy.On("Put", ctx, "a.txt", mock.Anything, http.Header{"Cache-Control": {"no-cache"}}).
			Return(bucketfs.PutResult{Size: 1, Date: serverDate}, nil)

		_, err = s.Save(ctx, "site.css", strings.NewReader("x"))
		require.NoError(t, err)
		_, err = s.Save(ctx, "a.txt", strings.NewReader("x"))
		require.NoError(t, err)

		spy.AssertExpectations(t)
	})

	t.Run("rule headers are not shared between uploads", func(t *testing.T) {
		rules := []bucketfs.HeaderRule{{Pattern: regexp.MustCompile(`.*`), Headers: http.Header{"X-Amz-Acl": {"public-read"}}}}
		s, spy := NewStorage(t, bucketfs.Options{HeaderRules: rules})

		spy.On("Put", ctx, "a.txt", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(3).(http.Header).Set("Content-Type", "text/plain")
		}).Return(bucketfs.PutResult{Size: 1, Date: serverDate}, nil)

		_, err := s.Save(ctx, "a.txt", strings.NewReader("x"))
		require.NoError(t, err)
		assert.Empty(t, rules[0].Headers.Get("Content-Type"))
	})

	t.Run("empty name", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		_, err := s.Save(ctx, "/", strings.NewReader("x"))
		assert.ErrorIs(t, err, bucketfs.ErrInvalidInput)
		spy.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s, _ := NewStorage(t, bucketfs.Options{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Save(cctx, "a.txt", strings.NewReader("x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStorage_Exists(t *testing.T) {
	ctx := context.Background()

	t.Run("empty name never hits the network", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{Cache: bucketfs.NewMemoryCache()})

		for _, name := range []string{"", "/"} {
			ok, err := s.Exists(ctx, name, true)
			require.NoError(t, err)
			assert.False(t, ok)
		}
		spy.AssertNotCalled(t, "Head", mock.Anything, mock.Anything)
	})

	t.Run("unknown cache falls through to head and populates", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		spy.On("Head", ctx, "a.txt").Return(bucketfs.RemoteObject{Key: "a.txt", Size: 7, LastModified: lastModified}, nil).Once()

		ok, err := s.Exists(ctx, "a.txt", false)
		require.NoError(t, err)
		assert.True(t, ok)

		size, err := s.Size(ctx, "a.txt", false)
		require.NoError(t, err)
		assert.Equal(t, int64(7), size)

		spy.AssertNumberOfCalls(t, "Head", 1)
	})

	t.Run("head 404 is false", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("Head", ctx, "missing.txt").Return(bucketfs.RemoteObject{}, notFoundErr)

		ok, err := s.Exists(ctx, "missing.txt", false)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other transport errors surface", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("Head", ctx, "a.txt").Return(bucketfs.RemoteObject{}, &bucketfs.TransportError{StatusCode: http.StatusInternalServerError})

		_, err := s.Exists(ctx, "a.txt", false)
		assert.Error(t, err)
	})

	t.Run("absent cache answer", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		require.NoError(t, cache.Remove(ctx, "gone.txt"))
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		ok, err := s.Exists(ctx, "gone.txt", false)
		require.NoError(t, err)
		assert.False(t, ok)
		spy.AssertNotCalled(t, "Head", mock.Anything, mock.Anything)
	})

	t.Run("force check bypasses a definite cache answer", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		require.NoError(t, cache.Save(ctx, "a.txt", 1, lastModified))
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		spy.On("Head", ctx, "a.txt").Return(bucketfs.RemoteObject{}, notFoundErr)

		ok, err := s.Exists(ctx, "a.txt", true)
		require.NoError(t, err)
		assert.False(t, ok)
		spy.AssertNumberOfCalls(t, "Head", 1)
	})

	t.Run("placeholder counts as present", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		require.NoError(t, cache.Save(ctx, "uploading.bin", 0, time.Time{}))
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		ok, err := s.Exists(ctx, "uploading.bin", false)
		require.NoError(t, err)
		assert.True(t, ok)
		spy.AssertNotCalled(t, "Head", mock.Anything, mock.Anything)
	})
}

func TestStorage_SizeAndModifiedTime(t *testing.T) {
	ctx := context.Background()

	t.Run("placeholder size is not trusted", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		require.NoError(t, cache.Save(ctx, "a.txt", 0, time.Time{}))
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		spy.On("Head", ctx, "a.txt").Return(bucketfs.RemoteObject{Size: 99, LastModified: lastModified}, nil)

		size, err := s.Size(ctx, "a.txt", false)
		require.NoError(t, err)
		assert.Equal(t, int64(99), size)
	})

	t.Run("missing object is not found", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("Head", ctx, "never.txt").Return(bucketfs.RemoteObject{}, notFoundErr)

		_, err := s.ModifiedTime(ctx, "never.txt", false)
		assert.ErrorIs(t, err, bucketfs.ErrNotFound)

		_, err = s.Size(ctx, "never.txt", false)
		assert.ErrorIs(t, err, bucketfs.ErrNotFound)
	})

	t.Run("unreachable provider is not not-found", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("Head", ctx, "a.txt").Return(bucketfs.RemoteObject{}, &bucketfs.TransportError{StatusCode: http.StatusBadGateway})

		_, err := s.ModifiedTime(ctx, "a.txt", false)
		require.Error(t, err)
		assert.False(t, errors.Is(err, bucketfs.ErrNotFound))
	})

	t.Run("force check refreshes cache", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		require.NoError(t, cache.Save(ctx, "a.txt", 1, serverDate))
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		spy.On("Head", ctx, "a.txt").Return(bucketfs.RemoteObject{Size: 2, LastModified: lastModified}, nil)

		mtime, err := s.ModifiedTime(ctx, "a.txt", true)
		require.NoError(t, err)
		assert.True(t, lastModified.Equal(mtime))

		size, ok := cache.Size(ctx, "a.txt")
		assert.True(t, ok)
		assert.Equal(t, int64(2), size)
	})

	t.Run("empty name", func(t *testing.T) {
		s, _ := NewStorage(t, bucketfs.Options{})
		_, err := s.Size(ctx, "", false)
		assert.ErrorIs(t, err, bucketfs.ErrInvalidInput)
	})
}

func TestStorage_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes from cache", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		require.NoError(t, cache.Save(ctx, "a.txt", 1, lastModified))
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		spy.On("Delete", ctx, "a.txt").Return(nil)

		require.NoError(t, s.Delete(ctx, "/a.txt"))

		ok, err := s.Exists(ctx, "a.txt", false)
		require.NoError(t, err)
		assert.False(t, ok)
		spy.AssertNotCalled(t, "Head", mock.Anything, mock.Anything)
	})

	t.Run("transport failure keeps cache entry", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		require.NoError(t, cache.Save(ctx, "a.txt", 1, lastModified))
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		spy.On("Delete", ctx, "a.txt").Return(&bucketfs.TransportError{StatusCode: http.StatusForbidden})

		assert.Error(t, s.Delete(ctx, "a.txt"))
		assert.Equal(t, bucketfs.Present, cache.Exists(ctx, "a.txt"))
	})
}

func TestStorage_ListDir(t *testing.T) {
	ctx := context.Background()

	t.Run("directories and files relative to path", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})

		spy.On("ListBucket", ctx, bucketfs.ListQuery{Prefix: "a/", Delimiter: "/"}).Return(bucketfs.ListBucketResult{
			Entries:        []bucketfs.RemoteObject{{Key: "a/1.txt"}, {Key: "a/2.txt"}},
			CommonPrefixes: []string{"a/b/"},
		}, nil)
		spy.On("ListBucket", ctx, bucketfs.ListQuery{Prefix: "a/b/", Delimiter: "/"}).Return(bucketfs.ListBucketResult{
			Entries: []bucketfs.RemoteObject{{Key: "a/b/3.txt"}},
		}, nil)

		dirs, files, err := s.ListDir(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, dirs)
		assert.Equal(t, []string{"1.txt", "2.txt"}, files)

		dirs, files, err = s.ListDir(ctx, "a/b/")
		require.NoError(t, err)
		assert.Empty(t, dirs)
		assert.Equal(t, []string{"3.txt"}, files)
	})

	t.Run("follows pagination", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})

		spy.On("ListBucket", ctx, bucketfs.ListQuery{Prefix: "", Delimiter: "/"}).Return(bucketfs.ListBucketResult{
			Entries:     []bucketfs.RemoteObject{{Key: "1.txt"}},
			IsTruncated: true,
			NextMarker:  "1.txt",
		}, nil)
		spy.On("ListBucket", ctx, bucketfs.ListQuery{Prefix: "", Delimiter: "/", Marker: "1.txt"}).Return(bucketfs.ListBucketResult{
			CommonPrefixes: []string{"dir/"},
			IsTruncated:    true,
			NextMarker:     "dir/",
		}, nil)
		spy.On("ListBucket", ctx, bucketfs.ListQuery{Prefix: "", Delimiter: "/", Marker: "dir/"}).Return(bucketfs.ListBucketResult{
			Entries: []bucketfs.RemoteObject{{Key: "z.txt"}},
		}, nil)

		dirs, files, err := s.ListDir(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"dir"}, dirs)
		assert.Equal(t, []string{"1.txt", "z.txt"}, files)
		spy.AssertNumberOfCalls(t, "ListBucket", 3)
	})

	t.Run("transport error", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("ListBucket", ctx, mock.Anything).Return(bucketfs.ListBucketResult{}, &bucketfs.TransportError{StatusCode: http.StatusForbidden})

		_, _, err := s.ListDir(ctx, "a")
		assert.Error(t, err)
	})
}

func TestStorage_URL(t *testing.T) {
	ctx := context.Background()

	t.Run("no base url", func(t *testing.T) {
		s, _ := NewStorage(t, bucketfs.Options{})
		_, err := s.URL(ctx, "a.txt")
		assert.ErrorIs(t, err, bucketfs.ErrConfiguration)
	})

	t.Run("scheme is request scoped", func(t *testing.T) {
		tmpl, err := bucketfs.NewURLTemplate(bucketfs.URLTemplateConfig{Default: "http://media.example.com/"})
		require.NoError(t, err)
		s, _ := NewStorage(t, bucketfs.Options{BaseURL: tmpl})

		plain, err := s.URL(ctx, "/dir/file é.txt")
		require.NoError(t, err)
		secure, err := s.URL(bucketfs.WithSecure(ctx, true), "/dir/file é.txt")
		require.NoError(t, err)

		assert.Equal(t, "http://media.example.com/dir/file%20%C3%A9.txt", plain)
		assert.Equal(t, "https://media.example.com/dir/file%20%C3%A9.txt", secure)

		again, err := s.URL(ctx, "/dir/file é.txt")
		require.NoError(t, err)
		assert.Equal(t, plain, again)
	})

	t.Run("percent in key is encoded once", func(t *testing.T) {
		tmpl, err := bucketfs.NewURLTemplate(bucketfs.URLTemplateConfig{Default: "http://media.example.com/"})
		require.NoError(t, err)
		s, _ := NewStorage(t, bucketfs.Options{BaseURL: tmpl})

		tests := []struct {
			key  string
			want string
		}{
			{key: "100% done.txt", want: "http://media.example.com/100%25%20done.txt"},
			{key: "a%20b.txt", want: "http://media.example.com/a%2520b.txt"},
		}

		for _, tt := range tests {
			t.Run(tt.key, func(t *testing.T) {
				u, err := s.URL(ctx, tt.key)
				require.NoError(t, err)
				assert.Equal(t, tt.want, u)
			})
		}
	})
}

func TestStorage_SignedURL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	s, spy := NewStorage(t, bucketfs.Options{Now: func() time.Time { return now }})
	spy.On("PresignURL", http.MethodGet, "a.txt", now.Add(time.Minute)).Return("http://signed", nil)

	u, err := s.SignedURL(ctx, "/a.txt", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://signed", u)
	spy.AssertExpectations(t)
}

func TestStorage_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("empty name", func(t *testing.T) {
		s, _ := NewStorage(t, bucketfs.Options{})
		_, err := s.Open(ctx, "", "rb")
		assert.ErrorIs(t, err, bucketfs.ErrInvalidInput)
	})

	t.Run("default mode is read only", func(t *testing.T) {
		s, _ := NewStorage(t, bucketfs.Options{})
		f, err := s.Open(ctx, "a.txt", "")
		require.NoError(t, err)
		_, err = f.Write([]byte("x"))
		assert.ErrorIs(t, err, bucketfs.ErrReadOnly)
	})

	t.Run("write then close uploads buffered content", func(t *testing.T) {
		cache := bucketfs.NewMemoryCache()
		s, spy := NewStorage(t, bucketfs.Options{Cache: cache})

		var uploaded []byte
		spy.On("Put", ctx, "a.txt", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			body := args.Get(2).(io.ReadSeeker)
			uploaded, _ = io.ReadAll(body)
		}).Return(bucketfs.PutResult{Size: 11, Date: serverDate}, nil)

		f, err := s.Open(ctx, "a.txt", "wb")
		require.NoError(t, err)
		_, err = f.Write([]byte("hello "))
		require.NoError(t, err)
		_, err = f.Write([]byte("world"))
		require.NoError(t, err)
		require.NoError(t, f.Close())

		assert.Equal(t, []byte("hello world"), uploaded)
		size, err := f.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(11), size)
		assert.Equal(t, bucketfs.Present, cache.Exists(ctx, "a.txt"))

		require.NoError(t, f.Close(), "second close is a no-op")
		spy.AssertNumberOfCalls(t, "Put", 1)
	})

	t.Run("close without writes makes no request", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		f, err := s.Open(ctx, "a.txt", "w")
		require.NoError(t, err)
		require.NoError(t, f.Close())
		spy.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFile_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("ranged reads advance the offset", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})

		spy.On("Get", ctx, "a.txt", &bucketfs.ByteRange{Start: 0, End: 4}).Return(bucketfs.GetResult{
			Data: []byte("hello"), ContentRange: "bytes 0-4/11", Partial: true,
		}, nil)
		spy.On("Get", ctx, "a.txt", &bucketfs.ByteRange{Start: 5, End: 9}).Return(bucketfs.GetResult{
			Data: []byte(" worl"), ContentRange: "bytes 5-9/11", Partial: true,
		}, nil)
		spy.On("Get", ctx, "a.txt", &bucketfs.ByteRange{Start: 10, End: 14}).Return(bucketfs.GetResult{
			Data: []byte("d"), ContentRange: "bytes 10-10/11", Partial: true,
		}, nil)

		f, err := s.Open(ctx, "a.txt", "rb")
		require.NoError(t, err)

		var out bytes.Buffer
		buf := make([]byte, 5)
		for {
			n, err := f.Read(buf)
			out.Write(buf[:n])
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
		}

		assert.Equal(t, "hello world", out.String())
		size, err := f.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(11), size)
		spy.AssertNumberOfCalls(t, "Get", 3)
	})

	t.Run("read past end is empty", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("Get", ctx, "a.txt", &bucketfs.ByteRange{Start: 0, End: 127}).Return(bucketfs.GetResult{}, nil)

		f, err := s.Open(ctx, "a.txt", "rb")
		require.NoError(t, err)

		n, err := f.Read(make([]byte, 128))
		assert.Zero(t, n)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("server ignoring range", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("Get", ctx, "a.txt", &bucketfs.ByteRange{Start: 0, End: 2}).Return(bucketfs.GetResult{Data: []byte("abcdef")}, nil)
		spy.On("Get", ctx, "a.txt", &bucketfs.ByteRange{Start: 3, End: 5}).Return(bucketfs.GetResult{Data: []byte("abcdef")}, nil)

		f, err := s.Open(ctx, "a.txt", "rb")
		require.NoError(t, err)

		buf := make([]byte, 3)
		n, err := f.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "abc", string(buf[:n]))
		n, err = f.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "def", string(buf[:n]))
		_, err = f.Read(buf)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("read all", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("Get", ctx, "a.css", (*bucketfs.ByteRange)(nil)).Return(bucketfs.GetResult{Data: []byte("body{}")}, nil)

		f, err := s.Open(ctx, "a.css", "rb")
		require.NoError(t, err)
		data, err := f.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "body{}", string(data))
	})

	t.Run("transport error", func(t *testing.T) {
		s, spy := NewStorage(t, bucketfs.Options{})
		spy.On("Get", ctx, "a.txt", mock.Anything).Return(bucketfs.GetResult{}, notFoundErr)

		f, err := s.Open(ctx, "a.txt", "rb")
		require.NoError(t, err)
		_, err = f.Read(make([]byte, 4))
		assert.ErrorIs(t, err, bucketfs.ErrNotFound)
	})

	t.Run("closed handle", func(t *testing.T) {
		s, _ := NewStorage(t, bucketfs.Options{})
		f, err := s.Open(ctx, "a.txt", "rb")
		require.NoError(t, err)
		require.NoError(t, f.Close())
		_, err = f.Read(make([]byte, 4))
		assert.Error(t, err)
	})
}
