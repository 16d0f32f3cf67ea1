package bucketfs

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
)

// URLPattern routes paths matching Pattern to Base.
type URLPattern struct {
	Pattern *regexp.Regexp
	Base    string
}

// URLTemplateConfig is the serializable form of a URLTemplate.
type URLTemplateConfig struct {
	Default  string             `mapstructure:"default" yaml:"default"`
	HTTPS    string             `mapstructure:"https" yaml:"https,omitempty"`
	Patterns []URLPatternConfig `mapstructure:"patterns" yaml:"patterns,omitempty"`
	Aliases  []string           `mapstructure:"aliases" yaml:"aliases,omitempty"`
}

// URLPatternConfig is the serializable form of a URLPattern.
type URLPatternConfig struct {
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
	Base    string `mapstructure:"base" yaml:"base"`
}

// URLTemplate turns object paths into public URLs.
//
// The base URL is chosen from Patterns (first match wins) or Default. Secure requests use
// HTTPS when set, otherwise the chosen base with its scheme switched to https. A "%s" in
// the base is replaced with the next entry of Aliases, rotating in order.
type URLTemplate struct {
	Default  string
	HTTPS    string
	Patterns []URLPattern
	Aliases  []string

	next atomic.Uint64
}

// NewURLTemplate compiles cfg into a URLTemplate.
func NewURLTemplate(cfg URLTemplateConfig) (*URLTemplate, error) {
	if cfg.Default == "" {
		return nil, fmt.Errorf("new url template: default base is empty: %w", ErrConfiguration)
	}

	t := &URLTemplate{
		Default: cfg.Default,
		HTTPS:   cfg.HTTPS,
		Aliases: append([]string(nil), cfg.Aliases...),
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("new url template: %w: %w", ErrConfiguration, err)
		}
		t.Patterns = append(t.Patterns, URLPattern{Pattern: re, Base: p.Base})
	}
	return t, nil
}

// Base returns the base URL for path without consuming an alias.
func (t *URLTemplate) Base(path string, secure bool) string {
	base := t.Default
	for _, p := range t.Patterns {
		if p.Pattern.MatchString(path) {
			base = p.Base
			break
		}
	}

	if secure {
		if t.HTTPS != "" {
			return t.HTTPS
		}
		return strings.Replace(base, "http://", "https://", 1)
	}
	return strings.Replace(base, "https://", "http://", 1)
}

// Resolve returns the URL of path. Absolute URLs are returned unchanged.
func (t *URLTemplate) Resolve(path string, secure bool) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	return joinURL(t.base(path, secure), IRIToURI(path))
}

// ResolveKey returns the URL of an object key. Unlike Resolve, "%" in key is a literal
// character and is encoded like every other byte outside the unreserved set.
func (t *URLTemplate) ResolveKey(key string, secure bool) string {
	return joinURL(t.base(key, secure), EscapeKey(key))
}

// base picks the base for path and fills in the next alias.
func (t *URLTemplate) base(path string, secure bool) string {
	base := t.Base(path, secure)
	if strings.Contains(base, "%s") && len(t.Aliases) > 0 {
		base = strings.Replace(base, "%s", t.nextAlias(), 1)
	}
	return base
}

// MediaURL resolves path using the secure flag carried by ctx.
func (t *URLTemplate) MediaURL(ctx context.Context, path string) string {
	return t.Resolve(path, IsSecure(ctx))
}

func (t *URLTemplate) nextAlias() string {
	n := t.next.Add(1) - 1
	return t.Aliases[n%uint64(len(t.Aliases))]
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
