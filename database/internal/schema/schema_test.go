package schema_test

import (
	"testing"

	"github.com/sagarc03/bucketfs/database/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	expected := schema.Table{
		"name":        {Type: "text"},
		"size_bytes":  {Type: "bigint"},
		"modified_at": {Type: "timestamp with time zone", Nullable: true},
	}

	tests := []struct {
		name     string
		actual   schema.Table
		contains []string
	}{
		{
			name: "match ignores case and extra columns",
			actual: schema.Table{
				"name":        {Type: "TEXT"},
				"size_bytes":  {Type: "BIGINT"},
				"modified_at": {Type: "timestamp with time zone", Nullable: true},
				"extra":       {Type: "text"},
			},
		},
		{
			name: "missing column",
			actual: schema.Table{
				"name":       {Type: "text"},
				"size_bytes": {Type: "bigint"},
			},
			contains: []string{"missing columns: modified_at"},
		},
		{
			name: "type and nullability",
			actual: schema.Table{
				"name":        {Type: "text", Nullable: true},
				"size_bytes":  {Type: "integer"},
				"modified_at": {Type: "timestamp with time zone", Nullable: true},
			},
			contains: []string{
				"name: expected nullable=false, got nullable=true",
				"size_bytes: expected bigint, got integer",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := schema.Compare("cache", expected, tt.actual)
			if len(tt.contains) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "table cache schema validation failed")
			for _, s := range tt.contains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}
