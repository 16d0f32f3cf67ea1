package bucketfs

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // G505: CDN policies are signed with RSA-SHA1
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const QueryKeyPairID = "Key-Pair-Id"

var cdnAlphabet = strings.NewReplacer("+", "-", "=", "_", "/", "~")

// Field order in these types is the serialized order, which the CDN re-derives.
type cdnPolicy struct {
	Statement []cdnStatement `json:"Statement"`
}

type cdnStatement struct {
	Resource  string       `json:"Resource"`
	Condition cdnCondition `json:"Condition"`
}

type cdnCondition struct {
	DateLessThan cdnEpoch `json:"DateLessThan"`
}

type cdnEpoch struct {
	EpochTime int64 `json:"AWS:EpochTime"`
}

// CDNSigner signs canned CDN policies with an RSA private key.
type CDNSigner struct {
	keyPairID string
	key       *rsa.PrivateKey
}

// NewCDNSigner creates a signer for the given key pair id and key.
func NewCDNSigner(keyPairID string, key *rsa.PrivateKey) (*CDNSigner, error) {
	if keyPairID == "" {
		return nil, fmt.Errorf("new cdn signer: key pair id is empty: %w", ErrConfiguration)
	}
	if key == nil {
		return nil, fmt.Errorf("new cdn signer: private key is nil: %w", ErrConfiguration)
	}
	return &CDNSigner{keyPairID: keyPairID, key: key}, nil
}

// ParseCDNPrivateKey parses a PEM encoded PKCS#1 or PKCS#8 RSA private key.
func ParseCDNPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("parse cdn key: no PEM block found: %w", ErrSigning)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse cdn key: %w: %w", ErrSigning, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parse cdn key: not an RSA key: %w", ErrSigning)
	}
	return key, nil
}

// CannedPolicy returns the compact JSON policy granting access to resource until expires.
func CannedPolicy(resource string, expires time.Time) ([]byte, error) {
	policy := cdnPolicy{
		Statement: []cdnStatement{{
			Resource: resource,
			Condition: cdnCondition{
				DateLessThan: cdnEpoch{EpochTime: expires.Unix()},
			},
		}},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(policy); err != nil {
		return nil, fmt.Errorf("encode policy: %w: %w", ErrSigning, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CDNEncode base64-encodes b and remaps "+", "=" and "/" to "-", "_" and "~".
func CDNEncode(b []byte) string {
	return cdnAlphabet.Replace(base64.StdEncoding.EncodeToString(b))
}

// Sign returns the CDN-alphabet RSA-SHA1 signature of policy.
func (s *CDNSigner) Sign(policy []byte) (string, error) {
	digest := sha1.Sum(policy) //nolint:gosec // G401: required by the CDN
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign policy: %w: %w", ErrSigning, err)
	}
	return CDNEncode(sig), nil
}

// SignURL returns rawURL with Expires, Signature and Key-Pair-Id appended.
func (s *CDNSigner) SignURL(rawURL string, expires time.Time) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("sign url: resource url is empty: %w", ErrSigning)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("sign url: %w: %w", ErrSigning, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("sign url: resource url %q has no host: %w", rawURL, ErrSigning)
	}

	policy, err := CannedPolicy(rawURL, expires)
	if err != nil {
		return "", err
	}
	sig, err := s.Sign(policy)
	if err != nil {
		return "", err
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep +
		QueryExpires + "=" + strconv.FormatInt(expires.Unix(), 10) +
		"&" + QuerySignature + "=" + sig +
		"&" + QueryKeyPairID + "=" + url.QueryEscape(s.keyPairID), nil
}
