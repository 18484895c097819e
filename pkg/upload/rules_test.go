package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	assert.NoError(t, ValidateFile("image/jpeg", 1024))
	assert.NoError(t, ValidateFile("image/webp", MaxFileSizeBytes))

	cases := []struct {
		name        string
		contentType string
		size        int64
		field       string
	}{
		{"pdf rejected", "application/pdf", 1024, "content_type"},
		{"empty type rejected", "", 1024, "content_type"},
		{"empty file rejected", "image/png", 0, "file_size"},
		{"oversized rejected", "image/png", MaxFileSizeBytes + 1, "file_size"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFile(tc.contentType, tc.size)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".jpg", Ext("image/jpeg"))
	assert.Equal(t, ".tif", Ext("image/tiff"))
	assert.Empty(t, Ext("application/pdf"))
}
