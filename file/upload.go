package file

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
)

// Keys recognized when an upload bundle is passed as a map.
const (
	UploadTempfileKey    = "tempfile"
	UploadFilenameKey    = "filename"
	UploadContentTypeKey = "content_type"
)

// Upload bundles a temporary stream with the filename and content type
// declared by the client. The declared values take precedence over anything
// the stream reports about itself.
type Upload struct {
	Tempfile    io.Reader
	Filename    string
	ContentType string
}

// Close closes the temporary stream if it can be closed.
func (u Upload) Close() error {
	if c, ok := u.Tempfile.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (u Upload) source() source {
	return uploadSource{
		stream:      newStreamSource(u.Tempfile),
		filename:    u.Filename,
		contentType: u.ContentType,
	}
}

// uploadFromMap recognizes a map holding all three upload keys.
// The tempfile must be a reader and the other two strings.
func uploadFromMap(m map[string]any) (Upload, bool) {
	tmp, okTmp := m[UploadTempfileKey]
	name, okName := m[UploadFilenameKey]
	ct, okCT := m[UploadContentTypeKey]
	if !okTmp || !okName || !okCT {
		return Upload{}, false
	}

	r, ok := tmp.(io.Reader)
	if !ok {
		return Upload{}, false
	}
	filename, ok := name.(string)
	if !ok {
		return Upload{}, false
	}
	contentType, ok := ct.(string)
	if !ok {
		return Upload{}, false
	}

	return Upload{Tempfile: r, Filename: filename, ContentType: contentType}, true
}

// OpenUpload opens a multipart file header and returns it as an Upload.
// The content type comes from the part's Content-Type header without parameters.
// The caller owns the returned Upload and must Close it.
func OpenUpload(fh *multipart.FileHeader) (Upload, error) {
	if fh == nil {
		return Upload{}, ErrNilFileHeader
	}

	f, err := fh.Open()
	if err != nil {
		return Upload{}, ioError(ErrFailedToOpenFile, fh.Filename, err)
	}

	contentType := fh.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	return Upload{
		Tempfile:    f,
		Filename:    fh.Filename,
		ContentType: contentType,
	}, nil
}

// FromFileHeader opens fh and wraps it in a File.
// Close the returned Upload once the File is no longer read.
func FromFileHeader(fh *multipart.FileHeader, opts ...Option) (*File, Upload, error) {
	u, err := OpenUpload(fh)
	if err != nil {
		return nil, Upload{}, fmt.Errorf("open upload: %w", err)
	}
	return FromUpload(u, opts...), u, nil
}
