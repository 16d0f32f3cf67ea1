// Package http provides HTTP adapters around bucketfs.
//
// SecureMiddleware derives the request-scoped secure flag from an inbound request and
// stores it on the request context, where bucketfs.Storage.URL and
// bucketfs.URLTemplate.MediaURL read it:
//
//	router.Use(http.SecureMiddleware)
//
// AuthMiddleware verifies header or query-string signatures on inbound requests, and
// WriteError / HandleError render failures as bucket-style XML error documents. The
// bucketfstest package builds its fake bucket server from these pieces.
package http
