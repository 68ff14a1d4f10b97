package storage

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/attachkit/file"
)

// Object describes a stored file.
type Object struct {
	Filename         string // Sanitized name the content is stored under
	OriginalFilename string // Name as supplied by the client, never sanitized
	Size             int64
	MIMEType         string
	Extension        string // Without the leading dot
	AbsolutePath     string // Empty for remote backends
	RelativePath     string
}

// Entry represents a file or directory entry.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// Storage is implemented by every backend. Backends only rely on the public
// file.File contract: Open/Read for content, Filename and Extension for
// naming, Size and ContentType for metadata.
type Storage interface {
	// Save stores f under path and returns metadata. A path that is empty or
	// ends with "/" is completed with a generated name.
	Save(ctx context.Context, f *file.File, path string) (*Object, error)
	// Open returns a File for a stored object.
	Open(ctx context.Context, path string) (*file.File, error)
	// Delete removes a single file.
	Delete(ctx context.Context, path string) error
	// DeleteDir recursively removes a directory and all its contents.
	DeleteDir(ctx context.Context, path string) error
	// Exists checks if a file or directory exists.
	Exists(ctx context.Context, path string) bool
	// List returns all entries in a directory (non-recursive).
	List(ctx context.Context, dir string) ([]Entry, error)
	// URL returns the public URL for a file.
	URL(path string) string
}

// NameFunc picks the stored name for a file when Save gets a directory path.
type NameFunc func(f *file.File) string

// SanitizedName keeps the sanitized original filename.
func SanitizedName(f *file.File) string {
	return f.Filename()
}

// UUIDName generates a random name that keeps the original extension,
// e.g. "0d5c1e62-3f0b-4c47-9a43-1b4e2f7a9c10.tar.gz".
func UUIDName(f *file.File) string {
	name := uuid.NewString()
	if ext := f.Extension(); ext != "" {
		name += "." + ext
	}
	return name
}

// objectKey completes p with a generated name when it denotes a directory.
// Falls back to UUIDName when nameFn yields nothing, e.g. for anonymous streams.
func objectKey(p string, f *file.File, nameFn NameFunc) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		return p
	}

	name := ""
	if nameFn != nil {
		name = nameFn(f)
	}
	if name == "" {
		name = UUIDName(f)
	}
	return path.Join(p, name)
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

var (
	_ Storage = (*LocalStorage)(nil)
	_ Storage = (*S3Storage)(nil)
)
