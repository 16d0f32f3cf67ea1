// Package bucketfs provides a filesystem-like client for bucket-based object stores
// accessed with signed HTTP requests.
//
// The package implements the request-signing core and a metadata cache that avoids
// redundant round-trips, and composes them into a Storage facade with save, open,
// read, write, delete, exists, size, modified-time, listdir and url operations.
//
// # Key Components
//
//   - CanonicalString: deterministic string-to-sign for header and query authentication
//   - Signer / SignatureVerifier: HMAC-SHA1 request signing and verification
//   - CDNSigner: RSA-SHA1 canned policy signing for CDN edge URLs
//   - Endpoint: path, subdomain and vanity calling formats
//   - MetadataCache: tri-state (Present, Absent, Unknown) existence, size and mtime cache
//   - ObjectTransport: authenticated bucket primitives (see the transport package)
//   - Storage / File: the facade and its file handle
//   - URLTemplate: public URL building with per-path routing and CDN alias rotation
//
// # Request-scoped secure flag
//
// Whether a URL should use https is carried on the context:
//
//	ctx = bucketfs.WithSecure(ctx, true)
//	u, err := storage.URL(ctx, "media/logo.png")
//
// # Example Usage
//
//	client, err := transport.New(transport.Config{
//	    Credentials: creds,
//	    Bucket:      "media-bucket",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	storage, err := bucketfs.New(client, bucketfs.Options{
//	    Cache: bucketfs.NewMemoryCache(),
//	})
//
//	name, err := storage.Save(ctx, "css/site.css", file)
//	ok, err := storage.Exists(ctx, name, false)
//
// See the filecache and database packages for persistent MetadataCache implementations.
package bucketfs
