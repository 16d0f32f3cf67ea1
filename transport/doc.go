// Package transport implements bucketfs.ObjectTransport over HTTP.
//
// Every request is signed with HMAC-SHA1 header authentication. Uploads of
// compressible content types are gzip encoded when that makes them smaller, and
// full reads of gzip encoded objects are decoded transparently. Bucket listings are
// returned one page at a time; following NextMarker is the caller's job.
//
// The transport never retries. Timeouts are imposed through the http.Client.
package transport
