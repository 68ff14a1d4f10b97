package file_test

import (
	"bytes"
	"crypto/md5"
	"errors"
	"hash"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attachkit/file"
)

var (
	pngHeader  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegHeader = []byte{0xFF, 0xD8, 0xFF}
)

func upload(name string, content []byte) *file.File {
	return file.New(file.Upload{Tempfile: bytes.NewReader(content), Filename: name})
}

func TestIsImage(t *testing.T) {
	t.Parallel()

	t.Run("png image", func(t *testing.T) {
		t.Parallel()
		assert.True(t, file.IsImage(upload("test.png", pngHeader)))
	})

	t.Run("jpeg image", func(t *testing.T) {
		t.Parallel()
		assert.True(t, file.IsImage(upload("test.jpg", jpegHeader)))
	})

	t.Run("gif image", func(t *testing.T) {
		t.Parallel()
		assert.True(t, file.IsImage(upload("test.gif", []byte("GIF89a"))))
	})

	t.Run("text renamed to jpg", func(t *testing.T) {
		t.Parallel()
		assert.False(t, file.IsImage(upload("fake.jpg", []byte("hello world"))))
	})

	t.Run("unreadable file falls back to extension", func(t *testing.T) {
		t.Parallel()
		f := file.New(filepath.Join(t.TempDir(), "missing.jpg"))
		assert.True(t, file.IsImage(f))
	})

	t.Run("nil file", func(t *testing.T) {
		t.Parallel()
		assert.False(t, file.IsImage(nil))
	})
}

func TestIsVideoAudioPDF(t *testing.T) {
	t.Parallel()

	missing := func(name string) *file.File {
		return file.New(filepath.Join(t.TempDir(), name))
	}

	assert.True(t, file.IsVideo(missing("clip.mp4")))
	assert.False(t, file.IsVideo(missing("clip.txt")))
	assert.False(t, file.IsVideo(nil))

	assert.True(t, file.IsAudio(missing("track.mp3")))
	assert.False(t, file.IsAudio(missing("track.doc")))
	assert.False(t, file.IsAudio(nil))

	assert.True(t, file.IsPDF(upload("doc.bin", []byte("%PDF-1.4 content"))))
	assert.True(t, file.IsPDF(missing("doc.pdf")))
	assert.False(t, file.IsPDF(upload("doc.txt", []byte("plain text"))))
	assert.False(t, file.IsPDF(nil))
}

func TestFile_DetectContentType(t *testing.T) {
	t.Parallel()

	t.Run("text is returned without parameters", func(t *testing.T) {
		t.Parallel()
		ct, err := upload("a.txt", []byte("hello world")).DetectContentType()
		require.NoError(t, err)
		assert.Equal(t, "text/plain", ct)
	})

	t.Run("stream stays readable", func(t *testing.T) {
		t.Parallel()
		content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x01}, 1024)...)
		f := upload("big.png", content)

		ct, err := f.DetectContentType()
		require.NoError(t, err)
		assert.Equal(t, "image/png", ct)

		data, err := f.Read()
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("buffer keeps sniffed bytes", func(t *testing.T) {
		t.Parallel()
		content := bytes.Repeat([]byte("a"), 700)

		tests := []struct {
			name  string
			sniff func(f *file.File)
		}{
			{"MIMEType", func(f *file.File) { assert.Equal(t, "text/plain", f.MIMEType()) }},
			{"IsImage", func(f *file.File) { assert.False(t, file.IsImage(f)) }},
			{"ValidateMIMEType", func(f *file.File) { assert.NoError(t, file.ValidateMIMEType(f, "text/plain")) }},
			{"twice", func(f *file.File) {
				_, _ = f.DetectContentType()
				_, _ = f.DetectContentType()
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				f := file.FromReader(bytes.NewBuffer(bytes.Clone(content)))
				tt.sniff(f)

				assert.Equal(t, int64(len(content)), f.Size())
				data, err := f.Read()
				require.NoError(t, err)
				assert.Equal(t, content, data)
			})
		}
	})

	t.Run("buffered upload copies whole content", func(t *testing.T) {
		t.Parallel()
		content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x02}, 2048)...)
		f := file.New(file.Upload{Tempfile: bytes.NewBuffer(bytes.Clone(content)), Filename: "pic.png"})

		assert.Equal(t, "image/png", f.MIMEType())
		assert.Equal(t, int64(len(content)), f.Size())

		dup, err := f.CopyTo(filepath.Join(t.TempDir(), "pic.png"))
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), dup.Size())

		data, err := dup.Read()
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("unreadable input", func(t *testing.T) {
		t.Parallel()
		_, err := file.New(42).DetectContentType()
		require.Error(t, err)
		assert.True(t, errors.Is(err, file.ErrFailedToDetectMIMEType))
		assert.True(t, errors.Is(err, file.ErrInvalidInput))
	})
}

func TestFile_MIMEType(t *testing.T) {
	t.Parallel()

	declared := file.New(file.Upload{
		Tempfile:    strings.NewReader("hello"),
		Filename:    "a.txt",
		ContentType: "text/markdown; charset=utf-8",
	})
	assert.Equal(t, "text/markdown", declared.MIMEType())

	assert.Equal(t, "application/pdf", upload("x", []byte("%PDF-1.7")).MIMEType())
	assert.Equal(t, "application/octet-stream", file.New(42).MIMEType())
}

func TestValidateSize(t *testing.T) {
	t.Parallel()

	f := upload("small.txt", []byte("12345"))

	require.NoError(t, file.ValidateSize(f, 5))
	require.NoError(t, file.ValidateSize(f, 10))

	err := file.ValidateSize(f, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, file.ErrFileTooLarge))

	assert.True(t, errors.Is(file.ValidateSize(nil, 1), file.ErrInvalidInput))
}

func TestValidateMIMEType(t *testing.T) {
	t.Parallel()

	f := upload("image.png", pngHeader)

	require.NoError(t, file.ValidateMIMEType(f))
	require.NoError(t, file.ValidateMIMEType(f, "image/jpeg", "image/png"))

	err := file.ValidateMIMEType(f, "application/pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, file.ErrMIMETypeNotAllowed))

	assert.True(t, errors.Is(file.ValidateMIMEType(nil, "image/png"), file.ErrInvalidInput))
}

func TestHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		h        hash.Hash
		expected string
	}{
		{name: "default sha256", h: nil, expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
		{name: "md5", h: md5.New(), expected: "5eb63bbbe01eeed093cb22bb8f5acdc3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sum, err := file.Hash(upload("hello.txt", []byte("hello world")), tt.h)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sum)
		})
	}

	t.Run("path source", func(t *testing.T) {
		t.Parallel()
		path := writeTempFile(t, "hello.txt", []byte("hello world"))
		sum, err := file.Hash(file.New(path), nil)
		require.NoError(t, err)
		assert.Equal(t, tests[0].expected, sum)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		_, err := file.Hash(file.New(nil), nil)
		assert.True(t, errors.Is(err, file.ErrInvalidInput))
		_, err = file.Hash(nil, nil)
		assert.True(t, errors.Is(err, file.ErrInvalidInput))
	})
}
