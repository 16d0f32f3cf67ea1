package bucketfs

import (
	"strings"
)

// NormalizeName converts a caller-supplied name into an object key.
// Backslashes become forward slashes and a single leading slash is removed.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return strings.TrimPrefix(name, "/")
}

// EscapeKey percent-encodes every byte of key except unreserved characters and "/".
// The result is used both on the wire and in the canonical resource, so the two always agree.
func EscapeKey(key string) string {
	return escapeBytes(key, isKeySafe)
}

// IRIToURI converts an IRI into a URI by percent-encoding spaces, non-ASCII bytes and
// other unsafe characters. Reserved characters and "%" are kept, so an already encoded
// path passes through unchanged and repeated conversion is stable.
func IRIToURI(iri string) string {
	return escapeBytes(iri, isURISafe)
}

const upperhex = "0123456789ABCDEF"

func escapeBytes(s string, keep func(byte) bool) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !keep(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}

func isKeySafe(c byte) bool {
	return isUnreserved(c) || c == '/'
}

func isURISafe(c byte) bool {
	if isUnreserved(c) {
		return true
	}
	return strings.IndexByte("/#%[]=:;$&()+,!?*@'", c) >= 0
}
