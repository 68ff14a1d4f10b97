package file

import (
	"regexp"
	"strings"
)

var (
	disallowedFilenameChars = regexp.MustCompile(`[^A-Za-z0-9.+_-]`)
	dotsOnly                = regexp.MustCompile(`^\.+$`)

	// Tried in order, first match wins.
	extensionMatchers = []*regexp.Regexp{
		regexp.MustCompile(`^(.+)\.([^.]{1,3}\.[^.]{1,4})$`), // archive.tar.gz
		regexp.MustCompile(`^(.+)\.([^.]+)$`),                // photo.jpg
	}
)

// SanitizeFilename turns an untrusted filename into a safe on-disk name.
//
// Backslashes are treated as separators and only the final path segment is
// kept. Every character outside [A-Za-z0-9.+_-] becomes an underscore, names
// made only of dots get a leading underscore, an empty result becomes
// "unnamed", and the whole name is lower-cased. The function is idempotent.
//
// Example:
//
//	file.SanitizeFilename("../../etc/passwd")  // "passwd"
//	file.SanitizeFilename("C:\\Users\\a b.JPG") // "a_b.jpg"
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}

	name = disallowedFilenameChars.ReplaceAllString(name, "_")
	if dotsOnly.MatchString(name) {
		name = "_" + name
	}
	if name == "" {
		name = "unnamed"
	}

	return strings.ToLower(name)
}

// SplitExtension splits a sanitized filename into its base and extension.
// Two-part suffixes such as "tar.gz" are kept together. The extension has
// no leading dot and is empty when the name has none.
//
// Example:
//
//	file.SplitExtension("archive.tar.gz") // "archive", "tar.gz"
//	file.SplitExtension("README")         // "README", ""
func SplitExtension(name string) (base, ext string) {
	for _, re := range extensionMatchers {
		if m := re.FindStringSubmatch(name); m != nil {
			return m[1], m[2]
		}
	}
	return name, ""
}
