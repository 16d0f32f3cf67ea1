package bucketfs

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const amzPrefix = "x-amz-"

// signedSubresources are the query parameters that change authorization scope.
var signedSubresources = map[string]bool{
	"acl":                          true,
	"location":                     true,
	"logging":                      true,
	"torrent":                      true,
	"versioning":                   true,
	"versionId":                    true,
	"uploads":                      true,
	"uploadId":                     true,
	"partNumber":                   true,
	"response-content-type":        true,
	"response-content-language":    true,
	"response-expires":             true,
	"response-cache-control":       true,
	"response-content-disposition": true,
	"response-content-encoding":    true,
}

// SignableRequest holds the security-relevant parts of a request.
type SignableRequest struct {
	Method string
	// Resource is the canonical resource, "/bucket/key" with the key escaped.
	Resource string
	Query    url.Values
	Header   http.Header
	// Expires replaces the date line for query-string signing when non-zero.
	Expires time.Time
}

// CanonicalString builds the newline-joined string-to-sign for req.
func CanonicalString(req SignableRequest) string {
	interesting := make(map[string][]string)
	for k, vs := range req.Header {
		lk := strings.ToLower(k)
		if lk != "content-md5" && lk != "content-type" && lk != "date" && !strings.HasPrefix(lk, amzPrefix) {
			continue
		}
		for _, v := range vs {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			interesting[lk] = append(interesting[lk], v)
		}
	}

	if _, ok := interesting[amzPrefix+"date"]; ok {
		interesting["date"] = nil
	}
	if !req.Expires.IsZero() {
		interesting["date"] = []string{strconv.FormatInt(req.Expires.Unix(), 10)}
	}

	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte('\n')
	b.WriteString(strings.Join(interesting["content-md5"], ","))
	b.WriteByte('\n')
	b.WriteString(strings.Join(interesting["content-type"], ","))
	b.WriteByte('\n')
	b.WriteString(strings.Join(interesting["date"], ","))
	b.WriteByte('\n')

	amzKeys := make([]string, 0, len(interesting))
	for k := range interesting {
		if strings.HasPrefix(k, amzPrefix) {
			amzKeys = append(amzKeys, k)
		}
	}
	sort.Strings(amzKeys)
	for _, k := range amzKeys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strings.Join(interesting[k], ","))
		b.WriteByte('\n')
	}

	b.WriteString(CanonicalResource(req.Resource, req.Query))
	return b.String()
}

// CanonicalResource appends the sorted signed sub-resources in query to resource.
// Other query parameters are ignored.
func CanonicalResource(resource string, query url.Values) string {
	if resource == "" {
		resource = "/"
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if signedSubresources[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return resource
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := query.Get(k)
		if v == "" {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, k+"="+v)
	}
	return resource + "?" + strings.Join(parts, "&")
}
