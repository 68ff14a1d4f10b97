package file

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// MoveTo relocates the content to newPath and makes the File point there.
// It is a no-op for an empty File. An existing file at a different location
// is renamed; anything else (in-memory streams, or a file already at
// newPath) is written out through Read. Declared upload metadata is dropped
// because the File becomes path based.
//
// A blank newPath fails with bare ErrInvalidPath, without ErrIO; check it
// with errors.Is(err, file.ErrInvalidPath). Filesystem failures wrap ErrIO.
func (f *File) MoveTo(newPath string) error {
	if f.Empty() {
		return nil
	}

	dst, err := f.prepareDestination(newPath)
	if err != nil {
		return err
	}

	if cur := f.Path(); cur != "" && cur != dst && f.Exists() {
		if err := moveFile(cur, dst, f.createMode()); err != nil {
			return err
		}
	} else if err := f.writeTo(dst); err != nil {
		return err
	}

	if err := f.chmod(dst); err != nil {
		return err
	}

	f.src = pathSource{path: dst}
	return nil
}

// CopyTo writes the content to newPath and returns a new path-based File
// for it with the same options. The receiver is left unchanged. Copying an
// empty File writes nothing and returns an empty File.
//
// Errors follow MoveTo: a blank newPath yields ErrInvalidPath, and
// filesystem failures wrap ErrIO.
func (f *File) CopyTo(newPath string) (*File, error) {
	if f.Empty() {
		return &File{opts: f.opts}, nil
	}

	dst, err := f.prepareDestination(newPath)
	if err != nil {
		return nil, err
	}

	if cur := f.Path(); cur != "" && cur != dst && f.Exists() {
		if err := copyFile(cur, dst, f.createMode()); err != nil {
			return nil, err
		}
	} else if err := f.writeTo(dst); err != nil {
		return nil, err
	}

	if err := f.chmod(dst); err != nil {
		return nil, err
	}

	return &File{src: pathSource{path: dst}, opts: f.opts}, nil
}

// Delete removes the filesystem entry at Path. Missing files and
// in-memory sources are ignored.
func (f *File) Delete() error {
	p := f.Path()
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError(ErrFailedToDeleteFile, p, err)
	}
	return nil
}

// prepareDestination resolves newPath and makes sure its parent directory exists.
func (f *File) prepareDestination(newPath string) (string, error) {
	if strings.TrimSpace(newPath) == "" {
		return "", ErrInvalidPath
	}

	dst, err := filepath.Abs(newPath)
	if err != nil {
		return "", ioError(ErrFailedToGetAbsolutePath, newPath, err)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, f.opts.dirPerm); err != nil {
		return "", ioError(ErrFailedToCreateDirectory, dir, err)
	}
	return dst, nil
}

// writeTo stores the full content at dst as a new file.
// Content is buffered first so a File may be written onto its own path.
func (f *File) writeTo(dst string) error {
	data, err := f.Read()
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, f.createMode()); err != nil {
		return ioError(ErrFailedToWriteFile, dst, err)
	}
	return nil
}

func (f *File) createMode() os.FileMode {
	if f.opts.permSet {
		return f.opts.perm
	}
	return defaultFilePermissions
}

// chmod applies the configured mode; without one it does nothing.
func (f *File) chmod(path string) error {
	if !f.opts.permSet {
		return nil
	}
	if err := os.Chmod(path, f.opts.perm); err != nil {
		return ioError(ErrFailedToSetPermissions, path, err)
	}
	return nil
}

// moveFile renames src to dst, copying across filesystems when rename cannot.
func moveFile(src, dst string, mode os.FileMode) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return ioError(ErrFailedToMoveFile, src, err)
	}

	if err := copyFile(src, dst, mode); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return ioError(ErrFailedToMoveFile, src, err)
	}
	return nil
}

// copyFile copies src to dst, removing a partial dst on failure.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return ioError(ErrFailedToOpenFile, src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return ioError(ErrFailedToCopyFile, dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return ioError(ErrFailedToCopyFile, dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return ioError(ErrFailedToCopyFile, dst, err)
	}
	return nil
}
