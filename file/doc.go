// Package file provides a single File type over every shape an uploaded or
// attached file can take: a filesystem path, an in-memory byte stream, an
// already open handle, or an upload bundle (temporary stream plus the
// filename and content type declared by the client).
//
// Whatever the input, a File answers the same questions the same way:
// original and sanitized filename, basename and extension, size, absolute
// path, existence, content type and content. It can also be moved, copied
// and deleted on the local filesystem.
//
// # Inputs
//
//	f := file.New("/tmp/report.pdf")              // path
//	f := file.New(bytes.NewReader(data))          // stream
//	f := file.New(osFile)                         // open handle, path known
//	f := file.New(file.Upload{                    // upload bundle
//	    Tempfile:    tmp,
//	    Filename:    "Report Final.PDF",
//	    ContentType: "application/pdf",
//	})
//
// A map[string]any with "tempfile", "filename" and "content_type" keys is
// accepted as an upload bundle as well. For multipart uploads use
// FromFileHeader, which opens the part and returns the Upload to Close.
//
// Streams may implement Sizer, ContentTyper, OriginalFilenamer, Pather and
// io.Seeker. Each capability is optional and used only when present.
//
// # Naming
//
// Filename is always SanitizeFilename(OriginalFilename): directory parts
// are stripped, unsafe characters become underscores and the result is
// lower-cased. OriginalFilename is kept as supplied for display and audit.
//
//	f.OriginalFilename() // "Report Final.PDF"
//	f.Filename()         // "report_final.pdf"
//	f.Basename()         // "report_final"
//	f.Extension()        // "pdf"
//
// # Relocation
//
//	if err := f.MoveTo("/var/uploads/1/report_final.pdf"); err != nil {
//	    return err
//	}
//	dup, err := f.CopyTo("/var/uploads/1/copy.pdf")
//
// MoveTo and CopyTo create missing parent directories and apply the mode
// set with WithPermissions to the written file.
//
// # Error Handling
//
// Every filesystem or stream failure matches ErrIO together with an
// operation sentinel and the original os error:
//
//	data, err := f.Read()
//	if errors.Is(err, file.ErrIO) && errors.Is(err, fs.ErrNotExist) {
//	    // the file is gone
//	}
//
// Inputs that cannot be read at all report ErrInvalidInput. Metadata
// accessors never fail; they return "" or 0 when a value is unknown.
package file
