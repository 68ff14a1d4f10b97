package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Path records a storage path or object key under the key "path".
func Path(p string) slog.Attr {
	return slog.String("path", p)
}

// Size records a byte count under the key "size".
func Size(n int64) slog.Attr {
	return slog.Int64("size", n)
}

// MIMEType records a media type under the key "mime_type".
// Empty types yield an empty Attr.
func MIMEType(t string) slog.Attr {
	if t == "" {
		return slog.Attr{}
	}
	return slog.String("mime_type", t)
}

// Bucket records an object store bucket under the key "bucket".
func Bucket(name string) slog.Attr {
	return slog.String("bucket", name)
}

// Count records a number of affected items under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
