package storage

import "errors"

var (
	// Input errors
	ErrNilFile     = errors.New("file is nil")
	ErrEmptyFile   = errors.New("file is empty")
	ErrInvalidPath = errors.New("invalid path") // Prevents path traversal attacks

	// Storage lookup errors
	ErrFileNotFound      = errors.New("file not found")
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNotDirectory      = errors.New("path is not a directory")
	ErrIsDirectory       = errors.New("path is a directory")

	// I/O operation errors
	ErrFailedToSaveFile        = errors.New("failed to save file")
	ErrFailedToDeleteFile      = errors.New("failed to delete file")
	ErrFailedToCreateDirectory = errors.New("failed to create directory")
	ErrFailedToDeleteDirectory = errors.New("failed to delete directory")
	ErrFailedToReadDirectory   = errors.New("failed to read directory")
	ErrFailedToReadFile        = errors.New("failed to read file")
	ErrFailedToStatPath        = errors.New("failed to stat path")
	ErrFailedToGetAbsolutePath = errors.New("failed to get absolute path")

	// S3 errors mapped from API error codes
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrRequestTimeout     = errors.New("request timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrInvalidObjectState = errors.New("invalid object state")

	// Context and cancellation errors
	ErrOperationTimeout  = errors.New("operation timed out")
	ErrOperationCanceled = errors.New("operation canceled")

	// Configuration errors
	ErrPaginatorNil       = errors.New("paginator factory returned nil")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrFailedToLoadConfig = errors.New("failed to load config")
)
