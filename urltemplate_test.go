package bucketfs_test

import (
	"context"
	"sync"
	"testing"

	"github.com/sagarc03/bucketfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTemplate(t *testing.T, cfg bucketfs.URLTemplateConfig) *bucketfs.URLTemplate {
	t.Helper()
	tmpl, err := bucketfs.NewURLTemplate(cfg)
	require.NoError(t, err)
	return tmpl
}

func TestURLTemplate_Resolve(t *testing.T) {
	t.Run("scheme follows secure flag", func(t *testing.T) {
		tmpl := newTemplate(t, bucketfs.URLTemplateConfig{Default: "http://media.example.com/"})

		assert.Equal(t, "http://media.example.com/a.txt", tmpl.Resolve("a.txt", false))
		assert.Equal(t, "https://media.example.com/a.txt", tmpl.Resolve("a.txt", true))
	})

	t.Run("https base downgraded for insecure requests", func(t *testing.T) {
		tmpl := newTemplate(t, bucketfs.URLTemplateConfig{Default: "https://media.example.com"})
		assert.Equal(t, "http://media.example.com/a.txt", tmpl.Resolve("a.txt", false))
	})

	t.Run("explicit https base", func(t *testing.T) {
		tmpl := newTemplate(t, bucketfs.URLTemplateConfig{
			Default: "http://%s.example.com/",
			HTTPS:   "https://secure.example.net/",
			Aliases: []string{"cdn1"},
		})
		assert.Equal(t, "https://secure.example.net/a.txt", tmpl.Resolve("a.txt", true))
	})

	t.Run("first matching pattern wins", func(t *testing.T) {
		tmpl := newTemplate(t, bucketfs.URLTemplateConfig{
			Default: "http://media.example.com/",
			Patterns: []bucketfs.URLPatternConfig{
				{Pattern: `^js/`, Base: "http://js.example.com/"},
				{Pattern: `\.js$`, Base: "http://other.example.com/"},
			},
		})
		assert.Equal(t, "http://js.example.com/js/app.js", tmpl.Resolve("js/app.js", false))
		assert.Equal(t, "http://other.example.com/lib/app.js", tmpl.Resolve("lib/app.js", false))
		assert.Equal(t, "http://media.example.com/img/a.png", tmpl.Resolve("img/a.png", false))
	})

	t.Run("aliases rotate in order", func(t *testing.T) {
		tmpl := newTemplate(t, bucketfs.URLTemplateConfig{
			Default: "http://%s.example.com/",
			Aliases: []string{"cdn1", "cdn2", "cdn3"},
		})

		got := []string{
			tmpl.Resolve("a", false),
			tmpl.Resolve("a", false),
			tmpl.Resolve("a", false),
			tmpl.Resolve("a", false),
		}
		assert.Equal(t, []string{
			"http://cdn1.example.com/a",
			"http://cdn2.example.com/a",
			"http://cdn3.example.com/a",
			"http://cdn1.example.com/a",
		}, got)
	})

	t.Run("absolute urls untouched", func(t *testing.T) {
		tmpl := newTemplate(t, bucketfs.URLTemplateConfig{Default: "http://media.example.com/"})
		assert.Equal(t, "https://elsewhere.com/x.js", tmpl.Resolve("https://elsewhere.com/x.js", false))
	})

	t.Run("key encoded exactly once", func(t *testing.T) {
		tmpl := newTemplate(t, bucketfs.URLTemplateConfig{Default: "http://media.example.com/"})

		want := "http://media.example.com/dir/caf%C3%A9%20menu.txt"
		for range 3 {
			assert.Equal(t, want, tmpl.Resolve("dir/café menu.txt", false))
		}
		assert.Equal(t, want, tmpl.Resolve("dir/caf%C3%A9%20menu.txt", false))
	})

	t.Run("concurrent rotation stays in range", func(t *testing.T) {
		tmpl := newTemplate(t, bucketfs.URLTemplateConfig{
			Default: "http://%s.example.com/",
			Aliases: []string{"cdn1", "cdn2"},
		})

		var mu sync.Mutex
		seen := map[string]int{}
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u := tmpl.Resolve("a", false)
				mu.Lock()
				seen[u]++
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, map[string]int{
			"http://cdn1.example.com/a": 50,
			"http://cdn2.example.com/a": 50,
		}, seen)
	})
}

func TestURLTemplate_MediaURL(t *testing.T) {
	tmpl := newTemplate(t, bucketfs.URLTemplateConfig{Default: "http://media.example.com/"})

	ctx := context.Background()
	assert.Equal(t, "http://media.example.com/a.txt", tmpl.MediaURL(ctx, "a.txt"))
	assert.Equal(t, "https://media.example.com/a.txt", tmpl.MediaURL(bucketfs.WithSecure(ctx, true), "a.txt"))
}

func TestURLTemplate_ResolveKey(t *testing.T) {
	tmpl := newTemplate(t, bucketfs.URLTemplateConfig{
		Default:  "http://%s.example.com/",
		Patterns: []bucketfs.URLPatternConfig{{Pattern: `^img/`, Base: "http://img.example.com/"}},
		Aliases:  []string{"cdn1", "cdn2"},
	})

	assert.Equal(t, "http://img.example.com/img/50%25%20off.png", tmpl.ResolveKey("img/50% off.png", false))
	assert.Equal(t, "http://cdn1.example.com/docs/a%25b.txt", tmpl.ResolveKey("docs/a%b.txt", false))
	assert.Equal(t, "https://cdn2.example.com/docs/a%25b.txt", tmpl.ResolveKey("docs/a%b.txt", true))

	// Resolve treats "%" as an existing escape.
	assert.Equal(t, "http://cdn1.example.com/docs/a%20b.txt", tmpl.Resolve("docs/a%20b.txt", false))
}

func TestNewURLTemplate_Errors(t *testing.T) {
	_, err := bucketfs.NewURLTemplate(bucketfs.URLTemplateConfig{})
	assert.ErrorIs(t, err, bucketfs.ErrConfiguration)

	_, err = bucketfs.NewURLTemplate(bucketfs.URLTemplateConfig{
		Default:  "http://a/",
		Patterns: []bucketfs.URLPatternConfig{{Pattern: "(", Base: "http://b/"}},
	})
	assert.ErrorIs(t, err, bucketfs.ErrConfiguration)
}

func TestSecureFlag(t *testing.T) {
	ctx := context.Background()
	assert.False(t, bucketfs.IsSecure(ctx))

	secure := bucketfs.WithSecure(ctx, true)
	insecure := bucketfs.WithSecure(secure, false)
	assert.True(t, bucketfs.IsSecure(secure))
	assert.False(t, bucketfs.IsSecure(insecure))
}
