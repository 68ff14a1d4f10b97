package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/attachkit/file"
	"github.com/dmitrymomot/attachkit/pkg/config"
	"github.com/dmitrymomot/attachkit/storage"
)

func uploaded(name string, content []byte) *file.File {
	return file.New(file.Upload{Tempfile: strings.NewReader(string(content)), Filename: name})
}

func TestNewLocalStorage(t *testing.T) {
	t.Parallel()

	t.Run("creates base directory", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "nested", "store")

		s, err := storage.NewLocalStorage(dir, "/files")
		require.NoError(t, err)
		require.NotNil(t, s)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, "/files/a.txt", s.URL("a.txt"))
	})

	t.Run("empty base directory", func(t *testing.T) {
		t.Parallel()
		s, err := storage.NewLocalStorage("", "/files/")
		assert.True(t, errors.Is(err, storage.ErrInvalidConfig))
		assert.Nil(t, s)
	})
}

func TestLocalStorage_Save(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	s, err := storage.NewLocalStorage(tempDir, "/files/")
	require.NoError(t, err)

	t.Run("save simple file", func(t *testing.T) {
		t.Parallel()
		content := []byte("hello world")

		obj, err := s.Save(context.Background(), uploaded("Test File.TXT", content), "test.txt")
		require.NoError(t, err)
		require.NotNil(t, obj)

		assert.Equal(t, "test.txt", obj.Filename)
		assert.Equal(t, "Test File.TXT", obj.OriginalFilename)
		assert.Equal(t, int64(len(content)), obj.Size)
		assert.Equal(t, "txt", obj.Extension)
		assert.Equal(t, "test.txt", obj.RelativePath)
		assert.Equal(t, filepath.Join(tempDir, "test.txt"), obj.AbsolutePath)
		assert.Equal(t, "text/plain", obj.MIMEType)

		data, err := os.ReadFile(obj.AbsolutePath)
		require.NoError(t, err)
		assert.Equal(t, content, data)

		info, err := os.Stat(obj.AbsolutePath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	})

	t.Run("directory path keeps sanitized name", func(t *testing.T) {
		t.Parallel()
		obj, err := s.Save(context.Background(), uploaded("My Report.tar.gz", []byte("archive")), "uploads/docs/")
		require.NoError(t, err)

		assert.Equal(t, "uploads/docs/my_report.tar.gz", obj.RelativePath)
		assert.Equal(t, "my_report.tar.gz", obj.Filename)
		assert.Equal(t, "tar.gz", obj.Extension)
		assert.FileExists(t, obj.AbsolutePath)
	})

	t.Run("anonymous stream gets generated name", func(t *testing.T) {
		t.Parallel()
		obj, err := s.Save(context.Background(), file.FromBytes([]byte("anonymous")), "anon/")
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(obj.RelativePath, "anon/"))
		assert.Len(t, strings.TrimPrefix(obj.RelativePath, "anon/"), 36)
		assert.Empty(t, obj.OriginalFilename)
	})

	t.Run("buffered stream is stored whole", func(t *testing.T) {
		t.Parallel()
		content := bytes.Repeat([]byte("a"), 1000)

		obj, err := s.Save(context.Background(), file.FromReader(bytes.NewBuffer(bytes.Clone(content))), "buffered/x.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), obj.Size)
		assert.Equal(t, "text/plain", obj.MIMEType)

		data, err := os.ReadFile(obj.AbsolutePath)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("source is left in place", func(t *testing.T) {
		t.Parallel()
		src := filepath.Join(t.TempDir(), "keep.txt")
		require.NoError(t, os.WriteFile(src, []byte("keep me"), 0o644))

		f := file.New(src)
		obj, err := s.Save(context.Background(), f, "copies/keep.txt")
		require.NoError(t, err)

		assert.FileExists(t, src)
		assert.FileExists(t, obj.AbsolutePath)
		assert.Equal(t, src, f.Path())
	})

	t.Run("invalid path traversal", func(t *testing.T) {
		t.Parallel()
		obj, err := s.Save(context.Background(), uploaded("x.txt", []byte("malicious")), "../../../etc/passwd")
		assert.True(t, errors.Is(err, storage.ErrInvalidPath))
		assert.Nil(t, obj)
	})

	t.Run("nil file", func(t *testing.T) {
		t.Parallel()
		obj, err := s.Save(context.Background(), nil, "nil.txt")
		assert.True(t, errors.Is(err, storage.ErrNilFile))
		assert.Nil(t, obj)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		obj, err := s.Save(context.Background(), file.FromBytes(nil), "empty.txt")
		assert.True(t, errors.Is(err, storage.ErrEmptyFile))
		assert.Nil(t, obj)
		assert.NoFileExists(t, filepath.Join(tempDir, "empty.txt"))
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		obj, err := s.Save(ctx, uploaded("c.txt", []byte("canceled")), "canceled.txt")
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Nil(t, obj)
		assert.NoFileExists(t, filepath.Join(tempDir, "canceled.txt"))
	})
}

func TestLocalStorage_SaveMove(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	s, err := storage.NewLocalStorage(tempDir, "/files/",
		storage.WithLocalMove(),
		storage.WithLocalFileOptions(file.WithPermissions(0o600)),
	)
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "incoming.bin")
	require.NoError(t, os.WriteFile(src, []byte("moved content"), 0o644))

	f := file.New(src)
	obj, err := s.Save(context.Background(), f, "archive/")
	require.NoError(t, err)

	assert.NoFileExists(t, src)
	assert.Equal(t, obj.AbsolutePath, f.Path())
	assert.Equal(t, "archive/incoming.bin", obj.RelativePath)
	assert.Equal(t, "incoming.bin", obj.OriginalFilename)

	info, err := os.Stat(obj.AbsolutePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLocalStorage_Open(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	s, err := storage.NewLocalStorage(tempDir, "/files/")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), uploaded("notes.md", []byte("# notes")), "docs/notes.md")
	require.NoError(t, err)

	t.Run("existing file", func(t *testing.T) {
		t.Parallel()
		f, err := s.Open(context.Background(), "docs/notes.md")
		require.NoError(t, err)

		assert.True(t, f.IsPathBased())
		assert.Equal(t, "notes.md", f.Filename())
		assert.Equal(t, int64(7), f.Size())

		data, err := f.Read()
		require.NoError(t, err)
		assert.Equal(t, []byte("# notes"), data)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := s.Open(context.Background(), "docs/missing.md")
		assert.True(t, errors.Is(err, storage.ErrFileNotFound))
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		_, err := s.Open(context.Background(), "docs")
		assert.True(t, errors.Is(err, storage.ErrIsDirectory))
	})

	t.Run("path traversal", func(t *testing.T) {
		t.Parallel()
		_, err := s.Open(context.Background(), "../outside.txt")
		assert.True(t, errors.Is(err, storage.ErrInvalidPath))
	})
}

func TestLocalStorage_Delete(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	s, err := storage.NewLocalStorage(tempDir, "/files/")
	require.NoError(t, err)

	t.Run("delete existing file", func(t *testing.T) {
		t.Parallel()
		filePath := filepath.Join(tempDir, "delete-me.txt")
		require.NoError(t, os.WriteFile(filePath, []byte("delete me"), 0o644))

		require.NoError(t, s.Delete(context.Background(), "delete-me.txt"))
		assert.NoFileExists(t, filePath)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		err := s.Delete(context.Background(), "never-existed.txt")
		assert.True(t, errors.Is(err, storage.ErrFileNotFound))
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "a-dir"), 0o755))
		err := s.Delete(context.Background(), "a-dir")
		assert.True(t, errors.Is(err, storage.ErrIsDirectory))
	})

	t.Run("path traversal", func(t *testing.T) {
		t.Parallel()
		err := s.Delete(context.Background(), "../../etc/passwd")
		assert.True(t, errors.Is(err, storage.ErrInvalidPath))
	})
}

func TestLocalStorage_DeleteDir(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	s, err := storage.NewLocalStorage(tempDir, "/files/")
	require.NoError(t, err)

	t.Run("removes tree", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(tempDir, "tree", "sub")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644))

		require.NoError(t, s.DeleteDir(context.Background(), "tree"))
		assert.NoDirExists(t, filepath.Join(tempDir, "tree"))
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		err := s.DeleteDir(context.Background(), "nope")
		assert.True(t, errors.Is(err, storage.ErrDirectoryNotFound))
	})

	t.Run("not a directory", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "plain.txt"), []byte("x"), 0o644))
		err := s.DeleteDir(context.Background(), "plain.txt")
		assert.True(t, errors.Is(err, storage.ErrNotDirectory))
	})

	t.Run("base directory", func(t *testing.T) {
		t.Parallel()
		err := s.DeleteDir(context.Background(), ".")
		assert.True(t, errors.Is(err, storage.ErrInvalidPath))
		assert.DirExists(t, tempDir)
	})
}

func TestLocalStorage_ExistsAndList(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	s, err := storage.NewLocalStorage(tempDir, "/files/")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "list", "child"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "list", "a.txt"), []byte("abc"), 0o644))

	assert.True(t, s.Exists(context.Background(), "list/a.txt"))
	assert.True(t, s.Exists(context.Background(), "list/child"))
	assert.False(t, s.Exists(context.Background(), "list/b.txt"))
	assert.False(t, s.Exists(context.Background(), "../outside"))

	entries, err := s.List(context.Background(), "list")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]storage.Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, storage.Entry{Name: "a.txt", Path: "list/a.txt", Size: 3}, byName["a.txt"])
	assert.Equal(t, storage.Entry{Name: "child", Path: "list/child", IsDir: true}, byName["child"])

	_, err = s.List(context.Background(), "list/a.txt")
	assert.True(t, errors.Is(err, storage.ErrNotDirectory))

	_, err = s.List(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrDirectoryNotFound))
}

func TestLocalStorage_URL(t *testing.T) {
	t.Parallel()
	s, err := storage.NewLocalStorage(t.TempDir(), "https://cdn.example.com/static")
	require.NoError(t, err)

	tests := []struct {
		path     string
		expected string
	}{
		{path: "a/b.png", expected: "https://cdn.example.com/static/a/b.png"},
		{path: "a//b/../c.png", expected: "https://cdn.example.com/static/a/c.png"},
		{path: "/already/absolute.png", expected: "/already/absolute.png"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, s.URL(tt.path))
		})
	}
}

func TestLocalStorageFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := storage.LoadLocalConfig(config.WithEnvironment(map[string]string{}))
		require.NoError(t, err)
		assert.Equal(t, "./uploads", cfg.BaseDir)
		assert.Equal(t, "/uploads/", cfg.BaseURL)
		assert.False(t, cfg.Move)
		assert.Equal(t, file.Mode(0o755), cfg.File.DirPermissions)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfg, err := storage.LoadLocalConfig(config.WithEnvironment(map[string]string{
			"STORAGE_LOCAL_BASE_DIR":         dir,
			"STORAGE_LOCAL_UUID_NAMES":       "true",
			"STORAGE_LOCAL_FILE_PERMISSIONS": "0600",
		}))
		require.NoError(t, err)

		s, err := storage.NewLocalStorageFromConfig(cfg)
		require.NoError(t, err)

		obj, err := s.Save(context.Background(), uploaded("photo.jpg", []byte("not really a photo")), "img/")
		require.NoError(t, err)

		assert.NotEqual(t, "img/photo.jpg", obj.RelativePath)
		assert.True(t, strings.HasSuffix(obj.RelativePath, ".jpg"))
		assert.Equal(t, "photo.jpg", obj.OriginalFilename)

		info, err := os.Stat(obj.AbsolutePath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Parallel()
		_, err := storage.LoadLocalConfig(config.WithEnvironment(map[string]string{
			"STORAGE_LOCAL_MOVE": "sometimes",
		}))
		assert.True(t, errors.Is(err, storage.ErrFailedToLoadConfig))
		assert.True(t, errors.Is(err, config.ErrParsingConfig))
	})
}

func TestLocalStorage_Logging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := storage.NewLocalStorage(t.TempDir(), "/files/", storage.WithLocalLogger(log))
	require.NoError(t, err)

	_, err = s.Save(context.Background(), uploaded("log.txt", []byte("logged")), "log.txt")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "file saved", rec["msg"])
	assert.Equal(t, "storage.local", rec["component"])
	assert.Equal(t, "log.txt", rec["path"])
	assert.Equal(t, float64(6), rec["size"])
	assert.Equal(t, "text/plain", rec["mime_type"])
}
