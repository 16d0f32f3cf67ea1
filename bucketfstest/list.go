package bucketfstest

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-http-utils/headers"
	bucketfshttp "github.com/sagarc03/bucketfs/http"
)

type listResult struct {
	XMLName        xml.Name       `xml:"ListBucketResult"`
	Name           string         `xml:"Name"`
	Prefix         string         `xml:"Prefix"`
	Marker         string         `xml:"Marker"`
	NextMarker     string         `xml:"NextMarker,omitempty"`
	MaxKeys        int            `xml:"MaxKeys"`
	Delimiter      string         `xml:"Delimiter,omitempty"`
	IsTruncated    bool           `xml:"IsTruncated"`
	Contents       []listContents `xml:"Contents"`
	CommonPrefixes []listPrefix   `xml:"CommonPrefixes"`
}

type listContents struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int    `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

type listPrefix struct {
	Prefix string `xml:"Prefix"`
}

// handleList answers a version 1 listing. NextMarker is only sent when a
// delimiter is given, so clients must derive the marker themselves otherwise.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	marker := q.Get("marker")

	maxKeys := defaultMaxKeys
	if raw := q.Get("max-keys"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			bucketfshttp.WriteError(w, r, http.StatusBadRequest, "InvalidArgument", "max-keys must be a non-negative integer")
			return
		}
		maxKeys = min(n, defaultMaxKeys)
	}

	result := listResult{
		Name:      s.Bucket,
		Prefix:    prefix,
		Marker:    marker,
		MaxKeys:   maxKeys,
		Delimiter: delimiter,
	}

	s.mu.Lock()
	keys := s.sortedKeys()
	objects := make(map[string]Object, len(keys))
	for _, k := range keys {
		objects[k] = s.objects[k]
	}
	s.mu.Unlock()

	last := ""
	lastPrefix := ""
	count := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) || key <= marker {
			continue
		}

		common := ""
		if delimiter != "" {
			if i := strings.Index(key[len(prefix):], delimiter); i >= 0 {
				common = key[:len(prefix)+i+len(delimiter)]
			}
		}
		if common != "" && (common == lastPrefix || common <= marker) {
			continue
		}

		if count == maxKeys {
			result.IsTruncated = true
			break
		}
		count++

		if common != "" {
			result.CommonPrefixes = append(result.CommonPrefixes, listPrefix{Prefix: common})
			lastPrefix = common
			last = common
			continue
		}

		obj := objects[key]
		result.Contents = append(result.Contents, listContents{
			Key:          key,
			LastModified: obj.LastModified.UTC().Format("2006-01-02T15:04:05.000Z"),
			ETag:         `"` + obj.ETag + `"`,
			Size:         len(obj.Data),
			StorageClass: "STANDARD",
		})
		last = key
	}

	if result.IsTruncated && delimiter != "" {
		result.NextMarker = last
	}

	w.Header().Set(headers.ContentType, "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(result)
}
