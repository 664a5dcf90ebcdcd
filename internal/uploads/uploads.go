// Package uploads decides whether a submitted file is acceptable for classification.
// The decision looks only at the presence of the file field and the declared
// filename; file content is never inspected.
package uploads

import (
	"slices"
	"strings"
)

// AllowedExtensions are the accepted image extensions, lower-case.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "bmp", "gif"}

// Validate returns the lower-cased extension of an acceptable upload, or the
// reason it is rejected. Checks apply in order: field present, filename non-empty,
// extension allowed. The extension is the text after the last dot.
func Validate(present bool, filename string) (string, error) {
	if !present {
		return "", ErrNoFilePart
	}
	if filename == "" {
		return "", ErrNoFileSelected
	}

	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return "", ErrUnsupportedType
	}

	ext := strings.ToLower(filename[i+1:])
	if !slices.Contains(AllowedExtensions, ext) {
		return "", ErrUnsupportedType
	}

	return ext, nil
}

// ContentType returns the MIME type conventionally served for an accepted extension.
func ContentType(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	}
	return "application/octet-stream"
}
