package bucketfs_test

import (
	"testing"

	"github.com/sagarc03/bucketfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteRange_Header(t *testing.T) {
	assert.Equal(t, "bytes=0-127", bucketfs.ByteRange{Start: 0, End: 127}.Header())
	assert.Equal(t, "bytes=128-", bucketfs.ByteRange{Start: 128, End: -1}.Header())
}

func TestCompileHeaderRules(t *testing.T) {
	rules, err := bucketfs.CompileHeaderRules([]bucketfs.HeaderRuleConfig{
		{Pattern: `\.css$`, Headers: map[string]string{"cache-control": "max-age=86400"}},
		{Pattern: `.*`, Headers: map[string]string{"Cache-Control": "no-cache"}},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.True(t, rules[0].Pattern.MatchString("site.css"))
	assert.Equal(t, "max-age=86400", rules[0].Headers.Get("Cache-Control"))

	_, err = bucketfs.CompileHeaderRules([]bucketfs.HeaderRuleConfig{{Pattern: "["}})
	assert.ErrorIs(t, err, bucketfs.ErrConfiguration)
}

func TestIsValidTableName(t *testing.T) {
	tt := []struct {
		Name  string
		Input string
		Want  bool
	}{
		{Name: "simple", Input: "bucket_cache", Want: true},
		{Name: "leading underscore", Input: "_cache", Want: true},
		{Name: "uppercase", Input: "Cache", Want: false},
		{Name: "leading digit", Input: "1cache", Want: false},
		{Name: "injection", Input: "cache; DROP TABLE x", Want: false},
		{Name: "too long", Input: "a123456789012345678901234567890123456789012345678901234567890123", Want: false},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, bucketfs.IsValidTableName(tc.Input))
		})
	}
}

func TestTables_Validate(t *testing.T) {
	assert.NoError(t, bucketfs.Tables{Cache: "bucket_cache"}.Validate())
	assert.Error(t, bucketfs.Tables{}.Validate())
	assert.Error(t, bucketfs.Tables{Cache: "Bad-Name"}.Validate())
}
