package file

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is a uniform view over a path, an in-memory stream, an open handle or
// an upload bundle. All metadata is derived from the current source on every
// call. MoveTo is the only operation that changes which source is wrapped.
//
// A File is not safe for concurrent use. It never closes streams it was given.
type File struct {
	src  source
	opts options
}

// New classifies input and wraps it. Construction never touches the
// filesystem and never fails; unusable inputs surface ErrInvalidInput from
// the first operation that needs to read them.
//
// Recognized inputs, in order of precedence:
//   - Upload, *Upload, or map[string]any with "tempfile", "filename" and
//     "content_type" keys
//   - string, a filesystem path
//   - []byte or io.Reader, a stream
func New(input any, opts ...Option) *File {
	f := &File{src: classify(input), opts: defaultOptions()}
	for _, opt := range opts {
		opt(&f.opts)
	}
	return f
}

// FromPath wraps a filesystem path.
func FromPath(path string, opts ...Option) *File {
	return New(path, opts...)
}

// FromReader wraps an open stream.
func FromReader(r io.Reader, opts ...Option) *File {
	return New(r, opts...)
}

// FromBytes wraps an in-memory byte slice.
func FromBytes(data []byte, opts ...Option) *File {
	return New(bytes.NewReader(data), opts...)
}

// FromUpload wraps an upload bundle.
func FromUpload(u Upload, opts ...Option) *File {
	return New(u, opts...)
}

// With returns a shallow copy of f with opts applied on top of its current
// options. The copy shares the underlying source.
func (f *File) With(opts ...Option) *File {
	c := &File{src: f.src, opts: f.opts}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// stream returns the active stream for stream and upload sources.
func (f *File) stream() (streamSource, bool) {
	switch src := f.src.(type) {
	case streamSource:
		return src, true
	case uploadSource:
		return src.stream, true
	}
	return streamSource{}, false
}

// setStream replaces the active stream of a stream or upload source.
func (f *File) setStream(s streamSource) {
	switch src := f.src.(type) {
	case streamSource:
		f.src = s
	case uploadSource:
		src.stream = s
		f.src = src
	}
}

// OriginalFilename returns the unsanitized name or "" when none is known.
//
// Rules, first match wins:
//  1. the filename declared by an upload bundle
//  2. the stream's own OriginalFilename
//  3. the final component of Path
func (f *File) OriginalFilename() string {
	if src, ok := f.src.(uploadSource); ok && src.filename != "" {
		return src.filename
	}
	if s, ok := f.stream(); ok {
		if name := s.originalFilename(); name != "" {
			return name
		}
	}
	if p := f.Path(); p != "" {
		return filepath.Base(p)
	}
	return ""
}

// Filename returns the sanitized OriginalFilename, or "" when there is none.
func (f *File) Filename() string {
	name := f.OriginalFilename()
	if name == "" {
		return ""
	}
	return SanitizeFilename(name)
}

// Identifier is an alias of Filename used by storage backends.
func (f *File) Identifier() string {
	return f.Filename()
}

// Basename returns Filename without its extension.
func (f *File) Basename() string {
	name := f.Filename()
	if name == "" {
		return ""
	}
	base, _ := SplitExtension(name)
	return base
}

// Extension returns the extension of Filename without the leading dot.
func (f *File) Extension() string {
	name := f.Filename()
	if name == "" {
		return ""
	}
	_, ext := SplitExtension(name)
	return ext
}

// Size returns the length in bytes, or 0 when it cannot be determined.
//
// Rules, first match wins:
//  1. the stream's Size (or Len for buffers)
//  2. the on-disk length of Path when the file exists
//  3. zero
func (f *File) Size() int64 {
	if s, ok := f.stream(); ok {
		if n, ok := s.size(); ok {
			return n
		}
	}
	if p := f.Path(); p != "" {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return info.Size()
		}
	}
	return 0
}

// Path returns the absolute filesystem location, or "" for empty and
// purely in-memory sources.
func (f *File) Path() string {
	switch src := f.src.(type) {
	case pathSource:
		if src.path == "" {
			return ""
		}
		return absPath(src.path)
	case streamSource:
		return src.path()
	case uploadSource:
		return src.stream.path()
	}
	return ""
}

// Exists reports whether Path names an existing filesystem entry.
func (f *File) Exists() bool {
	p := f.Path()
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// IsPathBased reports whether the File wraps a non-empty path.
func (f *File) IsPathBased() bool {
	src, ok := f.src.(pathSource)
	return ok && src.path != ""
}

// Empty reports whether there is no source or its size is zero.
func (f *File) Empty() bool {
	return f.src == nil || f.Size() == 0
}

// ContentType returns the declared or stream-reported MIME type, "" when unknown.
//
// Rules, first match wins:
//  1. the content type declared by an upload bundle
//  2. the stream's ContentType with trailing whitespace trimmed
func (f *File) ContentType() string {
	if src, ok := f.src.(uploadSource); ok && src.contentType != "" {
		return src.contentType
	}
	if s, ok := f.stream(); ok {
		return s.contentType()
	}
	return ""
}

// Permissions returns the configured file mode and whether one was set.
func (f *File) Permissions() (os.FileMode, bool) {
	return f.opts.perm, f.opts.permSet
}

// Read returns the whole content. Path sources are read through a transient
// handle; streams are rewound first when they can seek.
func (f *File) Read() ([]byte, error) {
	if f.IsPathBased() {
		p := f.Path()
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, ioError(ErrFailedToReadFile, p, err)
		}
		return data, nil
	}

	s, err := f.readableStream()
	if err != nil {
		return nil, err
	}
	if err := s.rewind(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(s.r)
	if err != nil {
		return nil, ioError(ErrFailedToReadFile, s.path(), err)
	}
	return data, nil
}

// Open returns a reader over the whole content following the same rules as Read.
// Closing the reader of a stream source does not close the stream itself.
func (f *File) Open() (io.ReadCloser, error) {
	if f.IsPathBased() {
		p := f.Path()
		r, err := os.Open(p)
		if err != nil {
			return nil, ioError(ErrFailedToOpenFile, p, err)
		}
		return r, nil
	}

	s, err := f.readableStream()
	if err != nil {
		return nil, err
	}
	if err := s.rewind(); err != nil {
		return nil, err
	}
	return io.NopCloser(s.r), nil
}

// readableStream returns the active stream or ErrInvalidInput.
func (f *File) readableStream() (streamSource, error) {
	switch src := f.src.(type) {
	case nil:
		return streamSource{}, fmt.Errorf("%w: no source", ErrInvalidInput)
	case invalidSource:
		return streamSource{}, fmt.Errorf("%w: %T cannot be read", ErrInvalidInput, src.value)
	case pathSource:
		return streamSource{}, fmt.Errorf("%w: empty path", ErrInvalidInput)
	}

	s, _ := f.stream()
	if s.r == nil {
		return streamSource{}, fmt.Errorf("%w: upload has no tempfile", ErrInvalidInput)
	}
	return s, nil
}

// String returns the path or the filename, whichever is known.
func (f *File) String() string {
	if p := f.Path(); p != "" {
		return p
	}
	return f.Filename()
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
