package clientcli

import "time"

// DefaultExcludes are the patterns skipped by Sync when SyncOptions.Exclude is nil.
var DefaultExcludes = []string{`\.svn$`, `\.git$`, `\.hg$`, `Thumbs\.db$`, `\.DS_Store$`}

// SyncOptions configures a one-way sync of a local directory into the bucket.
type SyncOptions struct {
	Dir    string
	Prefix string
	// Exclude holds regular expressions matched against slash-separated paths relative
	// to Dir. Nil selects DefaultExcludes; an empty slice excludes nothing.
	Exclude []string
	// Force uploads every file regardless of the remote modified time.
	Force bool
	// UseCache trusts the metadata cache for remote modified times instead of forcing a HEAD.
	UseCache bool
	// Workers overrides the client's worker count when positive.
	Workers int
}

// SyncAction is what Sync did with a file.
type SyncAction string

const (
	SyncUploaded SyncAction = "uploaded"
	SyncSkipped  SyncAction = "skipped"
	SyncFailed   SyncAction = "failed"
)

// SyncResult represents the outcome for a single local file.
type SyncResult struct {
	LocalPath string     `json:"local_path"`
	Key       string     `json:"key"`
	Action    SyncAction `json:"action"`
	Size      int64      `json:"size_bytes"`
	Err       error      `json:"-"` // nil unless Action is SyncFailed
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	Key       string
	LocalPath string // empty = derive from key, "-" = stdout
}

// DownloadResult represents the result of downloading an object.
type DownloadResult struct {
	Key       string `json:"key"`
	LocalPath string `json:"local_path"`
	Size      int64  `json:"size_bytes"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Keys []string
}

// DeleteResult represents the result of deleting a single object.
type DeleteResult struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListOptions configures a list operation.
type ListOptions struct {
	Prefix string
	// Delimiter groups keys sharing a prefix up to the delimiter into Prefixes.
	Delimiter string
	Limit     int
	Marker    string
	All       bool // follow every page
}

// ListResult contains one or more listing pages.
type ListResult struct {
	Items      []ObjectInfo `json:"items"`
	Prefixes   []string     `json:"prefixes,omitempty"`
	NextMarker string       `json:"next_marker,omitempty"`
}

// TotalSize returns the sum of item sizes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for i := range r.Items {
		total += r.Items[i].Size
	}
	return total
}

// ObjectInfo represents metadata for a single object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
}
