package bucketfs

import (
	"fmt"
	"net/url"
	"strings"
)

// CallingFormat is the convention for mapping a bucket and key to a request host and path.
type CallingFormat int

const (
	// PathFormat addresses objects as server/bucket/key.
	PathFormat CallingFormat = iota
	// SubdomainFormat addresses objects as bucket.server/key. The bucket must be DNS-safe.
	SubdomainFormat
	// VanityFormat addresses objects as vanity-host/key.
	VanityFormat
)

// DefaultServer is the endpoint used when Endpoint.Server is empty.
const DefaultServer = "s3.amazonaws.com"

func (f CallingFormat) String() string {
	switch f {
	case PathFormat:
		return "path"
	case SubdomainFormat:
		return "subdomain"
	case VanityFormat:
		return "vanity"
	default:
		return "unknown"
	}
}

// ParseCallingFormat parses "path", "subdomain" or "vanity". An empty string selects SubdomainFormat.
func ParseCallingFormat(s string) (CallingFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "subdomain":
		return SubdomainFormat, nil
	case "path":
		return PathFormat, nil
	case "vanity":
		return VanityFormat, nil
	default:
		return 0, fmt.Errorf("parse calling format %q: %w", s, ErrConfiguration)
	}
}

// Endpoint resolves bucket and key pairs into request locations.
type Endpoint struct {
	Server     string
	Format     CallingFormat
	VanityHost string
	Secure     bool
}

// Location is a resolved request target.
type Location struct {
	Host string
	// Path is the escaped request path.
	Path string
	// Resource is the canonical resource used for signing, without sub-resources.
	Resource string
}

// Resolve returns the host, path and canonical resource for key in bucket.
// SubdomainFormat fails fast with ErrInvalidInput when the bucket is not DNS-safe.
func (e Endpoint) Resolve(bucket, key string) (Location, error) {
	server := e.Server
	if server == "" {
		server = DefaultServer
	}

	escaped := "/" + EscapeKey(key)

	switch e.Format {
	case PathFormat:
		if bucket == "" {
			return Location{Host: server, Path: "/", Resource: "/"}, nil
		}
		path := "/" + bucket + escaped
		return Location{Host: server, Path: path, Resource: path}, nil
	case SubdomainFormat:
		if !IsDNSSafeBucket(bucket) {
			return Location{}, fmt.Errorf("resolve: bucket %q is not DNS-safe: %w", bucket, ErrInvalidInput)
		}
		return Location{Host: bucket + "." + server, Path: escaped, Resource: "/" + bucket + escaped}, nil
	case VanityFormat:
		if e.VanityHost == "" {
			return Location{}, fmt.Errorf("resolve: vanity host is empty: %w", ErrConfiguration)
		}
		return Location{Host: e.VanityHost, Path: escaped, Resource: "/" + bucket + escaped}, nil
	default:
		return Location{}, fmt.Errorf("resolve: unknown calling format %d: %w", e.Format, ErrConfiguration)
	}
}

// URL returns the absolute URL for key in bucket.
func (e Endpoint) URL(bucket, key string) (*url.URL, error) {
	loc, err := e.Resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	return &url.URL{
		Scheme:  e.scheme(),
		Host:    loc.Host,
		Path:    unescapedPath(loc.Path),
		RawPath: loc.Path,
	}, nil
}

func (e Endpoint) scheme() string {
	if e.Secure {
		return "https"
	}
	return "http"
}

func unescapedPath(p string) string {
	u, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return u
}

// IsDNSSafeBucket reports whether bucket can be used as a DNS label prefix:
// 3 to 63 characters of lowercase letters, digits, dots and hyphens,
// starting and ending with a letter or digit, with no empty labels.
func IsDNSSafeBucket(bucket string) bool {
	if len(bucket) < 3 || len(bucket) > 63 {
		return false
	}
	if strings.Contains(bucket, "..") {
		return false
	}
	for i := 0; i < len(bucket); i++ {
		c := bucket[i]
		alnum := ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
		if (i == 0 || i == len(bucket)-1) && !alnum {
			return false
		}
		if !alnum && c != '.' && c != '-' {
			return false
		}
	}
	return true
}
