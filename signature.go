package bucketfs

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // G505: the bucket protocol signs with HMAC-SHA1
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// AuthorizationScheme prefixes the Authorization header value.
	AuthorizationScheme = "AWS"

	QueryAccessKeyID = "AWSAccessKeyId"
	QueryExpires     = "Expires"
	QuerySignature   = "Signature"
)

// Signer computes HMAC-SHA1 signatures for header and query-string authentication.
type Signer struct {
	creds Credentials
}

// NewSigner creates a signer. Both halves of the key pair are required.
func NewSigner(creds Credentials) (*Signer, error) {
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, fmt.Errorf("new signer: access key and secret key are required: %w", ErrConfiguration)
	}
	return &Signer{creds: creds}, nil
}

// AccessKeyID returns the public half of the key pair.
func (s *Signer) AccessKeyID() string {
	return s.creds.AccessKeyID
}

// Sign returns the base64 HMAC-SHA1 of the canonical string for req.
func (s *Signer) Sign(req SignableRequest) string {
	return signString(s.creds.SecretAccessKey, CanonicalString(req))
}

// Authorization returns the Authorization header value for req.
func (s *Signer) Authorization(req SignableRequest) string {
	return AuthorizationScheme + " " + s.creds.AccessKeyID + ":" + s.Sign(req)
}

// SignRequest sets the Authorization header on r. The request must already carry
// its final Date (or x-amz-date), Content-Type and Content-MD5 headers.
func (s *Signer) SignRequest(r *http.Request, resource string) {
	r.Header.Set("Authorization", s.Authorization(SignableRequest{
		Method:   r.Method,
		Resource: resource,
		Query:    r.URL.Query(),
		Header:   r.Header,
	}))
}

// PresignQuery returns query with AWSAccessKeyId, Expires and Signature added.
// expires is fixed at signing time and encoded as Unix epoch seconds.
func (s *Signer) PresignQuery(method, resource string, query url.Values, expires time.Time) url.Values {
	signed := make(url.Values, len(query)+3)
	for k, v := range query {
		signed[k] = append([]string(nil), v...)
	}

	sig := s.Sign(SignableRequest{
		Method:   method,
		Resource: resource,
		Query:    query,
		Expires:  expires,
	})

	signed.Set(QueryAccessKeyID, s.creds.AccessKeyID)
	signed.Set(QueryExpires, strconv.FormatInt(expires.Unix(), 10))
	signed.Set(QuerySignature, sig)
	return signed
}

func signString(secret, canonical string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignatureVerifier checks header and query-string signatures on inbound requests.
type SignatureVerifier struct {
	AccessKeyLookup func(accessKey string) (secretKey string, found bool)
	Now             func() time.Time
}

// NewSignatureVerifier creates a verifier.
//
// Parameters:
//   - lookup: Function to retrieve secret key by access key. Returns (secretKey, true) if found, ("", false) if not.
//   - now: Clock used for expiry checks; nil means time.Now.
func NewSignatureVerifier(lookup func(string) (string, bool), now func() time.Time) *SignatureVerifier {
	if now == nil {
		now = time.Now
	}
	return &SignatureVerifier{
		AccessKeyLookup: lookup,
		Now:             now,
	}
}

// Verify checks the signature carried by r against resource.
//
// A request carrying a Signature query parameter is verified as presigned and rejected once
// its Expires time has passed. Otherwise the Authorization header is required.
//
// Returns an error wrapping ErrUnauthorized if verification fails, nil if the signature is valid.
func (v *SignatureVerifier) Verify(r *http.Request, resource string) error {
	query := r.URL.Query()
	if query.Has(QuerySignature) {
		return v.verifyQuery(r.Method, resource, query)
	}
	return v.verifyHeader(r, resource, query)
}

func (v *SignatureVerifier) verifyQuery(method, resource string, query url.Values) error {
	accessKey := query.Get(QueryAccessKeyID)
	expiresRaw := query.Get(QueryExpires)
	signature := query.Get(QuerySignature)

	if accessKey == "" || expiresRaw == "" || signature == "" {
		return fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	epoch, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid Expires: %w", ErrUnauthorized)
	}
	expires := time.Unix(epoch, 0)
	if v.Now().After(expires) {
		return fmt.Errorf("signature expired: %w", ErrUnauthorized)
	}

	secret, found := v.AccessKeyLookup(accessKey)
	if !found {
		return fmt.Errorf("invalid access key: %w", ErrUnauthorized)
	}

	unsigned := make(url.Values, len(query))
	for k, vs := range query {
		switch k {
		case QueryAccessKeyID, QueryExpires, QuerySignature:
			continue
		}
		unsigned[k] = vs
	}

	expected := signString(secret, CanonicalString(SignableRequest{
		Method:   method,
		Resource: resource,
		Query:    unsigned,
		Expires:  expires,
	}))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}
	return nil
}

func (v *SignatureVerifier) verifyHeader(r *http.Request, resource string, query url.Values) error {
	auth := r.Header.Get("Authorization")
	rest, ok := strings.CutPrefix(auth, AuthorizationScheme+" ")
	if !ok {
		return fmt.Errorf("missing authorization: %w", ErrUnauthorized)
	}
	accessKey, signature, ok := strings.Cut(rest, ":")
	if !ok || accessKey == "" || signature == "" {
		return fmt.Errorf("invalid authorization format: %w", ErrUnauthorized)
	}

	secret, found := v.AccessKeyLookup(accessKey)
	if !found {
		return fmt.Errorf("invalid access key: %w", ErrUnauthorized)
	}

	expected := signString(secret, CanonicalString(SignableRequest{
		Method:   r.Method,
		Resource: resource,
		Query:    query,
		Header:   r.Header,
	}))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}
	return nil
}
