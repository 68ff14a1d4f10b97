// Package storage persists file.File handles to the local filesystem or to
// S3-compatible object stores.
//
// Backends only depend on the public file.File contract, so any source a File
// can wrap (a path, an in-memory buffer or an upload bundle) can be saved
// without the caller caring which one it is:
//
//	f, u, err := file.FromFileHeader(fh)
//	if err != nil {
//		return err
//	}
//	defer u.Close()
//
//	store, err := storage.NewLocalStorage("./uploads", "/uploads/")
//	if err != nil {
//		return err
//	}
//	obj, err := store.Save(ctx, f, "avatars/")
//
// A path that is empty or ends with "/" is completed with the sanitized
// filename, or with a UUID name when WithLocalNameFunc(UUIDName) or
// WithS3NameFunc(UUIDName) is used. Anonymous streams always get a UUID name.
//
// # Local storage
//
// LocalStorage confines every operation to its base directory; paths that
// resolve outside of it fail with ErrInvalidPath. Save copies the content
// through File.CopyTo, or relocates it through File.MoveTo when the storage
// was created with WithLocalMove.
//
// # S3 storage
//
// S3Storage streams File.Open into PutObject with the File's MIME type and
// stores the original filename as object metadata so that Open can restore
// it. The S3Client interface is satisfied by *s3.Client and by test mocks;
// DeleteDir needs WithPaginatorFactory when a mock is used.
//
// S3 failures are mapped to package errors (ErrFileNotFound, ErrAccessDenied,
// ErrOperationTimeout and friends) so callers can use errors.Is regardless of
// the backend.
//
// # Configuration
//
// LoadLocalConfig and LoadS3Config read STORAGE_LOCAL_* and STORAGE_S3_*
// variables, plus an optional .env file.
package storage
