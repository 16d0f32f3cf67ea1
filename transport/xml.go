package transport

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/sagarc03/bucketfs"
)

type listBucketXML struct {
	XMLName        xml.Name       `xml:"ListBucketResult"`
	Name           string         `xml:"Name"`
	Prefix         string         `xml:"Prefix"`
	Marker         string         `xml:"Marker"`
	NextMarker     string         `xml:"NextMarker"`
	MaxKeys        int            `xml:"MaxKeys"`
	Delimiter      string         `xml:"Delimiter"`
	IsTruncated    bool           `xml:"IsTruncated"`
	Contents       []contentsXML  `xml:"Contents"`
	CommonPrefixes []commonPrefix `xml:"CommonPrefixes"`
}

type contentsXML struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int64  `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

type commonPrefix struct {
	Prefix string `xml:"Prefix"`
}

type errorXML struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
}

func decodeListBucket(r io.Reader) (bucketfs.ListBucketResult, error) {
	var doc listBucketXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return bucketfs.ListBucketResult{}, fmt.Errorf("decode listing: %w", err)
	}

	result := bucketfs.ListBucketResult{
		Entries:        make([]bucketfs.RemoteObject, 0, len(doc.Contents)),
		CommonPrefixes: make([]string, 0, len(doc.CommonPrefixes)),
		IsTruncated:    doc.IsTruncated,
		NextMarker:     doc.NextMarker,
	}
	for _, c := range doc.Contents {
		modified, _ := time.Parse(time.RFC3339Nano, c.LastModified)
		result.Entries = append(result.Entries, bucketfs.RemoteObject{
			Key:          c.Key,
			Size:         c.Size,
			LastModified: modified,
			ETag:         trimQuotes(c.ETag),
		})
	}
	for _, p := range doc.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, p.Prefix)
	}

	// Without a delimiter the store omits NextMarker; the last key seen continues the listing.
	if result.IsTruncated && result.NextMarker == "" {
		result.NextMarker = lastMarker(result)
	}
	return result, nil
}

func lastMarker(r bucketfs.ListBucketResult) string {
	marker := ""
	if n := len(r.Entries); n > 0 {
		marker = r.Entries[n-1].Key
	}
	if n := len(r.CommonPrefixes); n > 0 && r.CommonPrefixes[n-1] > marker {
		marker = r.CommonPrefixes[n-1]
	}
	return marker
}

func decodeError(body []byte) (code, message string, ok bool) {
	if len(body) == 0 {
		return "", "", false
	}
	var doc errorXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", "", false
	}
	if doc.Code == "" {
		return "", "", false
	}
	return doc.Code, doc.Message, true
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
