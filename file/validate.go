package file

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"mime"
	"net/http"
	"slices"
)

// sniffLen is the most http.DetectContentType looks at.
const sniffLen = 512

var (
	imageMIMETypes = map[string]bool{
		"image/jpeg":    true,
		"image/jpg":     true,
		"image/png":     true,
		"image/gif":     true,
		"image/webp":    true,
		"image/svg+xml": true,
		"image/bmp":     true,
		"image/tiff":    true,
		"image/heic":    true,
		"image/heif":    true,
		"image/avif":    true,
		"image/jxl":     true,
	}

	videoMIMETypes = map[string]bool{
		"video/mp4":        true,
		"video/mpeg":       true,
		"video/ogg":        true,
		"video/webm":       true,
		"video/quicktime":  true,
		"video/x-msvideo":  true,
		"video/x-flv":      true,
		"video/3gpp":       true,
		"video/x-matroska": true,
		"video/av1":        true,
	}

	audioMIMETypes = map[string]bool{
		"audio/mpeg":   true,
		"audio/ogg":    true,
		"audio/wav":    true,
		"audio/wave":   true,
		"audio/webm":   true,
		"audio/aac":    true,
		"audio/mp4":    true,
		"audio/x-m4a":  true,
		"audio/m4a":    true,
		"audio/opus":   true,
		"audio/flac":   true,
		"audio/x-flac": true,
		"audio/3gpp":   true,
		"audio/3gpp2":  true,
	}
)

// DetectContentType sniffs the MIME type from the first 512 bytes of content.
// Parameters such as charset are stripped. The stream is rewound before and
// after sniffing when it can seek; otherwise the sniffed bytes are pushed back
// so later reads still see the whole content.
func (f *File) DetectContentType() (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFailedToDetectMIMEType, err)
	}
	defer func() { _ = r.Close() }()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)

	if s, ok := f.stream(); ok && n > 0 {
		if s.caps.seeker == nil || s.rewind() != nil {
			f.setStream(s.unread(buf[:n]))
		}
	}

	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", ioError(ErrFailedToDetectMIMEType, f.Path(), err)
	}

	return mediaType(http.DetectContentType(buf[:n])), nil
}

// MIMEType returns the declared content type, falling back to sniffing and
// finally to "application/octet-stream".
func (f *File) MIMEType() string {
	if ct := f.ContentType(); ct != "" {
		return mediaType(ct)
	}
	if ct, err := f.DetectContentType(); err == nil && ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// IsImage checks if the file is an image based on its sniffed MIME type.
// Falls back to the extension when the content cannot be read.
func IsImage(f *File) bool {
	if f == nil {
		return false
	}

	mimeType, err := f.DetectContentType()
	if err == nil && mimeType != "" {
		return imageMIMETypes[mimeType]
	}

	switch f.Extension() {
	case "jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "tiff", "tif", "heic", "heif", "avif", "jxl":
		return true
	default:
		return false
	}
}

// IsVideo checks if the file is a video based on its sniffed MIME type.
func IsVideo(f *File) bool {
	if f == nil {
		return false
	}

	mimeType, err := f.DetectContentType()
	if err == nil && mimeType != "" {
		return videoMIMETypes[mimeType]
	}

	switch f.Extension() {
	case "mp4", "mpeg", "mpg", "ogg", "webm", "mov", "avi", "flv", "3gp", "mkv", "av1":
		return true
	default:
		return false
	}
}

// IsAudio checks if the file is an audio file based on its sniffed MIME type.
func IsAudio(f *File) bool {
	if f == nil {
		return false
	}

	mimeType, err := f.DetectContentType()
	if err == nil && mimeType != "" {
		return audioMIMETypes[mimeType]
	}

	switch f.Extension() {
	case "mp3", "ogg", "wav", "webm", "aac", "mp4", "m4a", "opus", "flac", "3gp", "3g2":
		return true
	default:
		return false
	}
}

// IsPDF checks if the file is a PDF.
func IsPDF(f *File) bool {
	if f == nil {
		return false
	}

	mimeType, err := f.DetectContentType()
	if err == nil && mimeType == "application/pdf" {
		return true
	}

	return f.Extension() == "pdf"
}

// ValidateSize checks if the file size is within the allowed limit.
//
// Example:
//
//	if err := file.ValidateSize(f, 5<<20); err != nil { // 5MB limit
//	    return err
//	}
func ValidateSize(f *File, maxBytes int64) error {
	if f == nil {
		return ErrInvalidInput
	}
	if size := f.Size(); size > maxBytes {
		return fmt.Errorf("file size %d bytes exceeds %d bytes limit: %w", size, maxBytes, ErrFileTooLarge)
	}
	return nil
}

// ValidateMIMEType checks if the sniffed MIME type is in the allowed list.
// Pass no types to allow all MIME types.
//
// Example:
//
//	if err := file.ValidateMIMEType(f, "image/jpeg", "image/png"); err != nil {
//	    return err
//	}
func ValidateMIMEType(f *File, allowedTypes ...string) error {
	if f == nil {
		return ErrInvalidInput
	}
	if len(allowedTypes) == 0 {
		return nil
	}

	mimeType, err := f.DetectContentType()
	if err != nil {
		return err
	}

	if slices.Contains(allowedTypes, mimeType) {
		return nil
	}

	return fmt.Errorf("MIME type %s not in allowed types %v: %w", mimeType, allowedTypes, ErrMIMETypeNotAllowed)
}

// Hash calculates the hex encoded hash of the file content.
// If h is nil, SHA256 is used.
//
// Example:
//
//	sum, err := file.Hash(f, md5.New())
func Hash(f *File, h hash.Hash) (string, error) {
	if f == nil {
		return "", ErrInvalidInput
	}
	if h == nil {
		h = sha256.New()
	}

	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	if _, err := io.Copy(h, r); err != nil {
		return "", ioError(ErrFailedToHashFile, f.Path(), err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func mediaType(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}
