package media

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("only JPG, PNG, GIF and WEBP images are supported")
	ErrTooLarge        = errors.New("file is too large")
	ErrEmptyFile       = errors.New("file is empty")
)

var allowedTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

// DetectType checks the file name and content against the allowed image
// types and returns the sniffed content type and canonical extension.
// SVG is never accepted.
func DetectType(filename string, data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	ext := strings.ToLower(filepath.Ext(filename))
	detected := http.DetectContentType(data)

	exts, ok := allowedTypes[detected]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	for _, e := range exts {
		if e == ext {
			return detected, e, nil
		}
	}
	// content wins over a wrong or missing extension
	return detected, exts[0], nil
}
