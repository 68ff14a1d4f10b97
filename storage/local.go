package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrymomot/attachkit/file"
	"github.com/dmitrymomot/attachkit/pkg/logger"
)

// LocalStorage implements Storage for the local filesystem.
// All operations are confined to baseDir to prevent path traversal attacks.
// Safe for concurrent use as long as callers target distinct paths.
type LocalStorage struct {
	baseDir  string        // Absolute path, all files stored within this directory
	baseURL  string        // URL prefix for serving files (e.g., "/files/")
	move     bool          // Move sources into place instead of copying them
	fileOpts []file.Option // Applied to every stored file
	nameFn   NameFunc
	logger   *slog.Logger
}

// LocalOption defines a function that configures LocalStorage.
type LocalOption func(*LocalStorage)

// WithLocalMove makes Save move path-based sources into the store instead
// of copying them. The saved File then points at its stored location.
func WithLocalMove() LocalOption {
	return func(s *LocalStorage) {
		s.move = true
	}
}

// WithLocalFileOptions sets file options, such as permissions, applied to stored files.
func WithLocalFileOptions(opts ...file.Option) LocalOption {
	return func(s *LocalStorage) {
		s.fileOpts = append(s.fileOpts, opts...)
	}
}

// WithLocalNameFunc sets how names are generated for directory paths.
func WithLocalNameFunc(fn NameFunc) LocalOption {
	return func(s *LocalStorage) {
		if fn != nil {
			s.nameFn = fn
		}
	}
}

// WithLocalLogger sets the logger. Nil loggers are ignored.
func WithLocalLogger(l *slog.Logger) LocalOption {
	return func(s *LocalStorage) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLocalStorage creates a new local filesystem storage.
// baseDir is resolved to an absolute path and created if it doesn't exist.
// baseURL is used for generating public URLs (e.g., "/files/").
func NewLocalStorage(baseDir, baseURL string, opts ...LocalOption) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve base directory: %v", ErrFailedToGetAbsolutePath, err)
	}

	if err := os.MkdirAll(absBaseDir, file.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	s := &LocalStorage{
		baseDir: absBaseDir,
		baseURL: baseURL,
		nameFn:  SanitizedName,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(logger.Component("storage.local"))

	return s, nil
}

// NewLocalStorageFromConfig creates a LocalStorage from loaded configuration.
func NewLocalStorageFromConfig(cfg LocalConfig, opts ...LocalOption) (*LocalStorage, error) {
	fileOpts := cfg.File.Options()
	opts = append([]LocalOption{WithLocalFileOptions(fileOpts...)}, opts...)
	if cfg.Move {
		opts = append(opts, WithLocalMove())
	}
	if cfg.UUIDNames {
		opts = append(opts, WithLocalNameFunc(UUIDName))
	}
	return NewLocalStorage(cfg.BaseDir, cfg.BaseURL, opts...)
}

// Save stores f within the base directory. The content is copied (or moved
// with WithLocalMove) through the File itself, which creates intermediate
// directories and applies the configured permissions.
func (s *LocalStorage) Save(ctx context.Context, f *file.File, path string) (*Object, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNilFile
	}
	if f.Empty() {
		return nil, ErrEmptyFile
	}

	key := objectKey(path, f, s.nameFn)
	absPath, err := s.resolvePath(key)
	if err != nil {
		return nil, err
	}

	// Captured before a move replaces the source. Sniffing keeps the content
	// intact, so the copy below still sees every byte.
	originalFilename := f.OriginalFilename()
	mimeType := f.MIMEType()

	src := f.With(s.fileOpts...)
	var stored *file.File
	if s.move {
		if err := src.MoveTo(absPath); err != nil {
			s.logger.ErrorContext(ctx, "file move failed", logger.Path(key), logger.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrFailedToSaveFile, err)
		}
		// Repoint the caller's handle at the stored location.
		*f = *src
		stored = f
	} else {
		stored, err = src.CopyTo(absPath)
		if err != nil {
			s.logger.ErrorContext(ctx, "file copy failed", logger.Path(key), logger.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrFailedToSaveFile, err)
		}
	}

	// A copy finished after cancellation is discarded.
	if err := checkContext(ctx); err != nil && !s.move {
		_ = stored.Delete()
		return nil, err
	}

	relPath, err := filepath.Rel(s.baseDir, absPath)
	if err != nil {
		relPath = key
	}
	relPath = filepath.ToSlash(relPath)

	s.logger.DebugContext(ctx, "file saved",
		logger.Path(relPath),
		logger.Size(stored.Size()),
		logger.MIMEType(mimeType),
		slog.Bool("moved", s.move),
	)

	return &Object{
		Filename:         stored.Filename(),
		OriginalFilename: originalFilename,
		Size:             stored.Size(),
		MIMEType:         mimeType,
		Extension:        stored.Extension(),
		AbsolutePath:     absPath,
		RelativePath:     relPath,
	}, nil
}

// Open returns a path-based File for a stored file.
func (s *LocalStorage) Open(ctx context.Context, path string) (*file.File, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return nil, err
	}

	if err := statEntry(absPath, path, false); err != nil {
		return nil, err
	}

	return file.New(absPath, s.fileOpts...), nil
}

// Delete removes a single file.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}

	if err := statEntry(absPath, path, false); err != nil {
		return err
	}

	if err := file.New(absPath).Delete(); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToDeleteFile, err)
	}

	s.logger.DebugContext(ctx, "file deleted", logger.Path(path))
	return nil
}

// DeleteDir recursively removes a directory and all its contents.
func (s *LocalStorage) DeleteDir(ctx context.Context, path string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}
	if absPath == s.baseDir {
		return fmt.Errorf("%w: refusing to delete base directory", ErrInvalidPath)
	}

	if err := statEntry(absPath, path, true); err != nil {
		return err
	}

	if err := os.RemoveAll(absPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteDirectory, err)
	}

	s.logger.DebugContext(ctx, "directory deleted", logger.Path(path))
	return nil
}

// Exists checks if a file or directory exists.
func (s *LocalStorage) Exists(ctx context.Context, path string) bool {
	if checkContext(ctx) != nil {
		return false
	}

	absPath, err := s.resolvePath(path)
	if err != nil {
		return false
	}

	return file.New(absPath).Exists()
}

// List returns all entries in a directory (non-recursive).
func (s *LocalStorage) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	absPath, err := s.resolvePath(dir)
	if err != nil {
		return nil, err
	}

	if err := statEntry(absPath, dir, true); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToReadDirectory, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}

		entryAbsPath := filepath.Join(absPath, dirEntry.Name())
		entryRelPath, err := filepath.Rel(s.baseDir, entryAbsPath)
		if err != nil {
			entryRelPath = filepath.Join(dir, dirEntry.Name())
		}

		entry := Entry{
			Name:  dirEntry.Name(),
			Path:  filepath.ToSlash(entryRelPath),
			IsDir: dirEntry.IsDir(),
		}
		if !entry.IsDir {
			entry.Size = file.New(entryAbsPath).Size()
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// URL returns the public URL for a file.
func (s *LocalStorage) URL(path string) string {
	path = filepath.ToSlash(filepath.Clean(path))

	if strings.HasPrefix(path, "/") {
		return path
	}

	return s.baseURL + path
}

// resolvePath validates and resolves a path within the base directory.
func (s *LocalStorage) resolvePath(path string) (string, error) {
	path = filepath.Clean(filepath.FromSlash(path))

	absPath, err := filepath.Abs(filepath.Join(s.baseDir, path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToGetAbsolutePath, err)
	}

	if !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) && absPath != s.baseDir {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	return absPath, nil
}

// statEntry checks that absPath exists and is a directory when wantDir is set,
// or a regular entry otherwise. rel is the caller's path used in errors.
func statEntry(absPath, rel string, wantDir bool) error {
	info, err := os.Stat(absPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && wantDir:
		return fmt.Errorf("%w: %s", ErrDirectoryNotFound, rel)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrFileNotFound, rel)
	case err != nil:
		return fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	case wantDir && !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDirectory, rel)
	case !wantDir && info.IsDir():
		return fmt.Errorf("%w: %s", ErrIsDirectory, rel)
	}
	return nil
}
