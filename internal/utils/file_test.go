package utils

import (
	"os"
	"path/filepath"
	"testing"

	"interviewprep/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaTypeForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     types.MediaType
	}{
		{"resume.txt", types.MediaTypeText},
		{"RESUME.PDF", types.MediaTypePDF},
		{"cv.docx", types.MediaTypeDOCX},
		{"notes.md", types.MediaTypeText},
		{"old.doc", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, MediaTypeForFile(tt.filename))
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "10.0 MB", FormatFileSize(10*1024*1024))
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))

	assert.NoError(t, ValidateInputFile(path))
	assert.Error(t, ValidateInputFile(""))
	assert.Error(t, ValidateInputFile(filepath.Join(dir, "missing.txt")))
	assert.Error(t, ValidateInputFile(dir))
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, ValidateOutputFile(target))

	info, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
