package file

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode"
)

// Sizer is implemented by streams that know their total length in bytes.
// bytes.Reader, strings.Reader and io.SectionReader satisfy it.
type Sizer interface {
	Size() int64
}

// ContentTyper is implemented by streams that carry a MIME type.
type ContentTyper interface {
	ContentType() string
}

// OriginalFilenamer is implemented by streams that remember the name they were uploaded with.
type OriginalFilenamer interface {
	OriginalFilename() string
}

// Pather is implemented by streams backed by a filesystem location.
type Pather interface {
	Path() string
}

// lener covers bytes.Buffer and friends that only report the unread length.
type lener interface {
	Len() int
}

// source is the closed set of inputs a File can wrap.
// A nil source means the File is empty.
type source interface {
	isSource()
}

// pathSource is a filesystem location that has not been checked for existence.
type pathSource struct {
	path string
}

// streamSource is an open reader plus the optional capabilities probed once at construction.
type streamSource struct {
	r    io.Reader
	caps capabilities
}

// capabilities records which optional operations a stream supports.
// Nil fields mean the capability is absent.
type capabilities struct {
	size             Sizer
	length           lener
	contentType      ContentTyper
	originalFilename OriginalFilenamer
	path             Pather
	seeker           io.Seeker
}

// uploadSource is a stream with a declared original filename and content type.
type uploadSource struct {
	stream      streamSource
	filename    string
	contentType string
}

// invalidSource keeps a value that offers none of the required capabilities.
type invalidSource struct {
	value any
}

func (pathSource) isSource()    {}
func (streamSource) isSource()  {}
func (uploadSource) isSource()  {}
func (invalidSource) isSource() {}

// osFilePath exposes the name an *os.File was opened with.
type osFilePath struct {
	f *os.File
}

func (p osFilePath) Path() string { return p.f.Name() }

func newStreamSource(r io.Reader) streamSource {
	s := streamSource{r: r}
	if r == nil {
		return s
	}

	if v, ok := r.(Sizer); ok {
		s.caps.size = v
	}
	if v, ok := r.(lener); ok {
		s.caps.length = v
	}
	if v, ok := r.(ContentTyper); ok {
		s.caps.contentType = v
	}
	if v, ok := r.(OriginalFilenamer); ok {
		s.caps.originalFilename = v
	}
	if v, ok := r.(io.Seeker); ok {
		s.caps.seeker = v
	}

	switch v := r.(type) {
	case *os.File:
		s.caps.path = osFilePath{f: v}
	case Pather:
		s.caps.path = v
	}

	return s
}

// classify resolves an arbitrary input into one of the source variants.
//
// Precedence, first match wins:
//  1. Upload, *Upload or a map carrying tempfile/filename/content_type keys
//  2. string, taken as a filesystem path
//  3. []byte or any io.Reader, taken as a stream
//  4. anything else is kept as an invalid source
func classify(input any) source {
	switch v := input.(type) {
	case nil:
		return nil
	case Upload:
		return v.source()
	case *Upload:
		if v == nil {
			return nil
		}
		return v.source()
	case map[string]any:
		if u, ok := uploadFromMap(v); ok {
			return u.source()
		}
		return invalidSource{value: v}
	case string:
		return pathSource{path: v}
	case []byte:
		return newStreamSource(bytes.NewReader(v))
	case io.Reader:
		return newStreamSource(v)
	default:
		return invalidSource{value: v}
	}
}

func (s streamSource) size() (int64, bool) {
	switch {
	case s.caps.size != nil:
		return max(s.caps.size.Size(), 0), true
	case s.caps.length != nil:
		return int64(max(s.caps.length.Len(), 0)), true
	}
	return 0, false
}

func (s streamSource) originalFilename() string {
	if s.caps.originalFilename == nil {
		return ""
	}
	return s.caps.originalFilename.OriginalFilename()
}

func (s streamSource) contentType() string {
	if s.caps.contentType == nil {
		return ""
	}
	return strings.TrimRightFunc(s.caps.contentType.ContentType(), unicode.IsSpace)
}

func (s streamSource) path() string {
	if s.caps.path == nil {
		return ""
	}
	p := s.caps.path.Path()
	if p == "" {
		return ""
	}
	return absPath(p)
}

// rewind seeks back to the start when the stream supports it.
func (s streamSource) rewind() error {
	if s.caps.seeker == nil {
		return nil
	}
	if _, err := s.caps.seeker.Seek(0, io.SeekStart); err != nil {
		return ioError(ErrFailedToRewind, "", err)
	}
	return nil
}

// prefixLen reports the unread length of a stream that had bytes pushed back.
type prefixLen struct {
	head *bytes.Reader
	rest lener
}

func (p prefixLen) Len() int { return p.head.Len() + p.rest.Len() }

// unread returns a stream that yields head before the remainder of s.
// The result cannot seek, and a Len-based size keeps counting head until it is consumed.
func (s streamSource) unread(head []byte) streamSource {
	hr := bytes.NewReader(head)
	out := streamSource{r: io.MultiReader(hr, s.r), caps: s.caps}
	out.caps.seeker = nil
	if s.caps.length != nil {
		out.caps.length = prefixLen{head: hr, rest: s.caps.length}
	}
	return out
}
