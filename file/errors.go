package file

import (
	"errors"
	"fmt"
)

var (
	// ErrIO is reported together with every failure of the underlying
	// filesystem or stream. The original os error stays reachable through errors.Is/As.
	ErrIO = errors.New("file i/o error")

	// ErrInvalidInput is returned when the wrapped value offers no read, size or path capability.
	// Construction never fails; the error surfaces on the first operation that needs the capability.
	ErrInvalidInput = errors.New("invalid file input")

	// ErrInvalidPath is returned when a destination path is empty
	ErrInvalidPath = errors.New("invalid path")

	// ErrNilFileHeader is returned when a nil multipart file header is provided
	ErrNilFileHeader = errors.New("file header is nil")

	// File validation errors
	ErrFileTooLarge       = errors.New("file size exceeds maximum allowed size")
	ErrMIMETypeNotAllowed = errors.New("MIME type is not allowed")

	// I/O operation errors, always joined with ErrIO
	ErrFailedToOpenFile         = errors.New("failed to open file")
	ErrFailedToReadFile         = errors.New("failed to read file")
	ErrFailedToWriteFile        = errors.New("failed to write file")
	ErrFailedToMoveFile         = errors.New("failed to move file")
	ErrFailedToCopyFile         = errors.New("failed to copy file")
	ErrFailedToDeleteFile       = errors.New("failed to delete file")
	ErrFailedToRewind           = errors.New("failed to rewind stream")
	ErrFailedToCreateDirectory  = errors.New("failed to create directory")
	ErrFailedToSetPermissions   = errors.New("failed to set permissions")
	ErrFailedToGetAbsolutePath  = errors.New("failed to get absolute path")
	ErrFailedToDetectMIMEType   = errors.New("failed to detect MIME type")
	ErrFailedToHashFile         = errors.New("failed to hash file")
	ErrFailedToParsePermissions = errors.New("failed to parse permissions")
)

// ioError tags err with ErrIO and the operation sentinel.
func ioError(op error, path string, err error) error {
	if path == "" {
		return fmt.Errorf("%w: %w: %w", ErrIO, op, err)
	}
	return fmt.Errorf("%w: %w: %s: %w", ErrIO, op, path, err)
}
