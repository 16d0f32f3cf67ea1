package bucketfs

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// Credentials holds the key pair used for symmetric request signing.
type Credentials struct {
	AccessKeyID     string `json:"access_key" mapstructure:"access_key" yaml:"access_key"`
	SecretAccessKey string `json:"secret_key" mapstructure:"secret_key" yaml:"secret_key"`
}

// RemoteObject describes an object as reported by the object store.
type RemoteObject struct {
	Key             string
	Size            int64
	LastModified    time.Time
	ETag            string
	ContentType     string
	ContentEncoding string
}

// ByteRange is an inclusive byte range. End < 0 means "to the end of the object".
type ByteRange struct {
	Start int64
	End   int64
}

// Header renders the range as a Range header value.
func (r ByteRange) Header() string {
	if r.End < 0 {
		return "bytes=" + strconv.FormatInt(r.Start, 10) + "-"
	}
	return "bytes=" + strconv.FormatInt(r.Start, 10) + "-" + strconv.FormatInt(r.End, 10)
}

// GetResult is the outcome of a get against the transport.
type GetResult struct {
	Data         []byte
	Object       RemoteObject
	ContentRange string
	Partial      bool
}

// PutResult is the outcome of a successful put.
type PutResult struct {
	// Size is the number of bytes sent, after optional compression.
	Size            int64
	Date            time.Time
	ContentType     string
	ContentEncoding string
	ETag            string
}

// ListQuery selects one page of a bucket listing.
type ListQuery struct {
	Prefix    string
	Delimiter string
	Marker    string
	MaxKeys   int
}

// ListBucketResult is one page of a bucket listing.
type ListBucketResult struct {
	Entries        []RemoteObject
	CommonPrefixes []string
	IsTruncated    bool
	NextMarker     string
}

// HeaderRule attaches extra headers to uploads whose key matches Pattern.
type HeaderRule struct {
	Pattern *regexp.Regexp
	Headers http.Header
}

// HeaderRuleConfig is the serializable form of a HeaderRule.
type HeaderRuleConfig struct {
	Pattern string            `mapstructure:"pattern" yaml:"pattern"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`
}

// CompileHeaderRules compiles header rule configs, preserving order.
func CompileHeaderRules(cfgs []HeaderRuleConfig) ([]HeaderRule, error) {
	rules := make([]HeaderRule, 0, len(cfgs))
	for _, c := range cfgs {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile header rules: %w: %w", ErrConfiguration, err)
		}
		h := make(http.Header, len(c.Headers))
		for k, v := range c.Headers {
			h.Set(k, v)
		}
		rules = append(rules, HeaderRule{Pattern: re, Headers: h})
	}
	return rules, nil
}

// Tables holds configurable table names for SQL-backed metadata caches.
// This allows several storages to share one database.
type Tables struct {
	Cache string `mapstructure:"cache" yaml:"cache"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Cache == "" {
		return errors.New("validate tables: cache table name cannot be empty")
	}

	if !IsValidTableName(t.Cache) {
		return fmt.Errorf("validate tables: invalid cache table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Cache)
	}

	return nil
}
