package storage_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attachkit/file"
	"github.com/dmitrymomot/attachkit/storage"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

var uuidName = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

func TestUUIDName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		file   *file.File
		suffix string
	}{
		{name: "keeps compound extension", file: file.New("/tmp/backup.tar.gz"), suffix: ".tar.gz"},
		{name: "keeps simple extension", file: file.New("/tmp/Photo.JPG"), suffix: ".jpg"},
		{name: "no extension", file: file.New("/tmp/README"), suffix: ""},
		{name: "anonymous stream", file: file.FromBytes([]byte("x")), suffix: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name := storage.UUIDName(tt.file)
			assert.Regexp(t, uuidName, name)
			assert.Len(t, name, 36+len(tt.suffix))
			if tt.suffix != "" {
				assert.Equal(t, tt.suffix, name[36:])
			}
		})
	}

	assert.NotEqual(t, storage.UUIDName(file.New("a.txt")), storage.UUIDName(file.New("a.txt")))
}

func TestSanitizedName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "my_photo.png", storage.SanitizedName(file.New("/uploads/My Photo.png")))
	assert.Empty(t, storage.SanitizedName(file.FromBytes([]byte("x"))))
}
