package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFolderPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/", ""},
		{"invoices/a", "invoices/a/"},
		{"/invoices/b/", "invoices/b/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, folderPrefix(tt.in), tt.in)
	}
}

func TestWithPageSizeBounds(t *testing.T) {
	s := &S3Storage{pageSize: defaultPageSize}
	assert.Equal(t, int32(50), s.WithPageSize(50).pageSize)
	assert.Equal(t, int32(50), s.WithPageSize(0).pageSize)
	assert.Equal(t, int32(50), s.WithPageSize(5000).pageSize)
}
