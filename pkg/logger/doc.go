// Package logger holds slog attribute constructors that keep key names
// consistent across the storage backends.
//
// Empty values (nil errors, blank MIME types) produce an empty slog.Attr,
// which slog handlers drop, so callers can pass them unconditionally:
//
//	log.ErrorContext(ctx, "upload failed",
//		logger.Path(key),
//		logger.MIMEType(f.ContentType()),
//		logger.Error(err),
//	)
package logger
