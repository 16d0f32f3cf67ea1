// Package bucketfstest provides an in-memory bucket server for tests.
//
// The server speaks the path-style subset of the bucket protocol used by the
// transport package: HEAD, ranged GET, PUT, DELETE and version 1 listings. Every
// request must carry a valid header or query-string signature, checked against a
// clock the test controls.
package bucketfstest

import (
	"crypto/md5" //nolint:gosec // G501: ETags are MD5 digests on the wire
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-http-utils/headers"
	"github.com/sagarc03/bucketfs"
	bucketfshttp "github.com/sagarc03/bucketfs/http"
)

// DefaultCredentials are accepted by every Server.
var DefaultCredentials = bucketfs.Credentials{
	AccessKeyID:     "AKIAFAKEBUCKETFS",
	SecretAccessKey: "fake/secret+key",
}

// Epoch is the initial time of a Server's clock.
var Epoch = time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)

const defaultMaxKeys = 1000

// storedHeaders are request headers kept with an object and replayed on reads.
var storedHeaders = []string{
	headers.CacheControl,
	headers.ContentDisposition,
	headers.Expires,
}

// Object is a stored object.
type Object struct {
	Data            []byte
	ContentType     string
	ContentEncoding string
	Header          http.Header
	LastModified    time.Time
	ETag            string
}

// Server is a fake bucket endpoint.
type Server struct {
	// URL is the base URL of the form http://ipaddr:port with no trailing slash.
	URL    string
	Bucket string

	srv *httptest.Server

	mu       sync.Mutex
	now      time.Time
	objects  map[string]Object
	requests map[string]int
	failures map[string][]int
}

// NewServer starts a server for bucket and stops it when the test ends.
func NewServer(tb testing.TB, bucket string) *Server {
	tb.Helper()

	s := &Server{
		Bucket:   bucket,
		now:      Epoch,
		objects:  make(map[string]Object),
		requests: make(map[string]int),
		failures: make(map[string][]int),
	}

	keys := map[string]string{DefaultCredentials.AccessKeyID: DefaultCredentials.SecretAccessKey}
	verifier := bucketfs.NewSignatureVerifier(func(id string) (string, bool) {
		secret, ok := keys[id]
		return secret, ok
	}, s.Now)

	r := chi.NewRouter()
	r.Use(s.countRequests)
	r.Use(s.injectFailures)
	r.Use(bucketfshttp.AuthMiddleware(verifier, Resource))
	r.Route("/{bucket}", func(r chi.Router) {
		r.Use(s.requireBucket)
		r.Get("/", s.handleList)
		r.Get("/*", s.handleGet)
		r.Head("/*", s.handleHead)
		r.Put("/*", s.handlePut)
		r.Delete("/*", s.handleDelete)
	})

	s.srv = httptest.NewServer(r)
	s.URL = s.srv.URL
	tb.Cleanup(s.srv.Close)

	return s
}

// Endpoint returns a path-style endpoint addressing the server.
func (s *Server) Endpoint() bucketfs.Endpoint {
	u, _ := url.Parse(s.URL)
	return bucketfs.Endpoint{Server: u.Host, Format: bucketfs.PathFormat}
}

// Now returns the server clock.
func (s *Server) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the server clock forward by d.
func (s *Server) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

// Requests returns how many requests with method have been received.
func (s *Server) Requests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method]
}

// TotalRequests returns the number of requests received.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// ResetRequests zeroes the request counters.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.requests)
}

// FailNext makes the next request with method fail with status.
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], status)
}

// PutObject stores data under key without going through HTTP.
func (s *Server) PutObject(key string, data []byte, contentType string) {
	sum := md5.Sum(data) //nolint:gosec // G401: see import

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{
		Data:         append([]byte(nil), data...),
		ContentType:  contentType,
		Header:       http.Header{},
		LastModified: s.now.Truncate(time.Second),
		ETag:         hex.EncodeToString(sum[:]),
	}
}

// Object returns the object stored under key.
func (s *Server) Object(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Keys returns the stored keys in order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedKeys()
}

// Resource returns the canonical resource a path-style request is signed against.
func Resource(r *http.Request) string {
	bucket, key, found := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if !found {
		return "/" + bucket
	}
	return "/" + bucket + "/" + bucketfs.EscapeKey(key)
}

func objectKey(r *http.Request) string {
	_, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	return key
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var status int
		if pending := s.failures[r.Method]; len(pending) > 0 {
			status = pending[0]
			s.failures[r.Method] = pending[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			bucketfshttp.WriteError(w, r, status, "InjectedFailure", "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBucket(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "bucket") != s.Bucket {
			bucketfshttp.WriteError(w, r, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.Object(objectKey(r))
	if !ok {
		bucketfshttp.HandleRequestError(w, r, bucketfs.ErrNotFound)
		return
	}

	writeObjectHeaders(w, obj)
	w.Header().Set(headers.ContentLength, strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.Object(objectKey(r))
	if !ok {
		bucketfshttp.HandleRequestError(w, r, bucketfs.ErrNotFound)
		return
	}

	writeObjectHeaders(w, obj)
	total := len(obj.Data)

	rangeHeader := r.Header.Get(headers.Range)
	if rangeHeader == "" {
		w.Header().Set(headers.ContentLength, strconv.Itoa(total))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(obj.Data)
		return
	}

	start, end, ok := parseRange(rangeHeader, total)
	if !ok {
		w.Header().Del(headers.ContentEncoding)
		w.Header().Set(headers.ContentRange, "bytes */"+strconv.Itoa(total))
		bucketfshttp.WriteError(w, r, http.StatusRequestedRangeNotSatisfiable, "InvalidRange", "The requested range is not satisfiable")
		return
	}

	w.Header().Set(headers.ContentRange, "bytes "+strconv.Itoa(start)+"-"+strconv.Itoa(end)+"/"+strconv.Itoa(total))
	w.Header().Set(headers.ContentLength, strconv.Itoa(end-start+1))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(obj.Data[start : end+1])
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		bucketfshttp.HandleRequestError(w, r, err)
		return
	}

	sum := md5.Sum(data) //nolint:gosec // G401: see import
	if want := r.Header.Get("Content-MD5"); want != "" && want != base64.StdEncoding.EncodeToString(sum[:]) {
		bucketfshttp.WriteError(w, r, http.StatusBadRequest, "BadDigest", "The Content-MD5 you specified did not match what we received.")
		return
	}

	extra := http.Header{}
	for _, name := range storedHeaders {
		if v := r.Header.Get(name); v != "" {
			extra.Set(name, v)
		}
	}
	for name, vs := range r.Header {
		if strings.HasPrefix(strings.ToLower(name), "x-amz-meta-") {
			extra[name] = vs
		}
	}

	now := s.Now()
	obj := Object{
		Data:            data,
		ContentType:     r.Header.Get(headers.ContentType),
		ContentEncoding: r.Header.Get(headers.ContentEncoding),
		Header:          extra,
		LastModified:    now.Truncate(time.Second),
		ETag:            hex.EncodeToString(sum[:]),
	}

	s.mu.Lock()
	s.objects[objectKey(r)] = obj
	s.mu.Unlock()

	w.Header().Set("Date", now.UTC().Format(http.TimeFormat))
	w.Header().Set(headers.ETag, `"`+obj.ETag+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.objects, objectKey(r))
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sortedKeys() []string {
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeObjectHeaders(w http.ResponseWriter, obj Object) {
	h := w.Header()
	for name, vs := range obj.Header {
		h[name] = vs
	}
	if obj.ContentType != "" {
		h.Set(headers.ContentType, obj.ContentType)
	}
	if obj.ContentEncoding != "" {
		h.Set(headers.ContentEncoding, obj.ContentEncoding)
	}
	h.Set(headers.ETag, `"`+obj.ETag+`"`)
	h.Set(headers.LastModified, obj.LastModified.UTC().Format(http.TimeFormat))
	h.Set(headers.AcceptRanges, "bytes")
}

// parseRange parses a single "bytes=start-end" or "bytes=start-" range against total.
func parseRange(header string, total int) (start, end int, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	first, last, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	start, err := strconv.Atoi(first)
	if err != nil || start < 0 || start >= total {
		return 0, 0, false
	}

	end = total - 1
	if last != "" {
		n, err := strconv.Atoi(last)
		if err != nil || n < start {
			return 0, 0, false
		}
		end = min(n, total-1)
	}
	return start, end, true
}
