package upload

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxModelSize is the upload limit for 3D models.
const MaxModelSize int64 = 50 << 20

var (
	ErrUnsupportedFormat = errors.New("only .glb, .gltf and .usdz models are supported")
	ErrFileTooLarge      = fmt.Errorf("model exceeds the %d MiB limit", MaxModelSize>>20)
	ErrEmptyFile         = errors.New("model file is empty")
	ErrContentMismatch   = errors.New("file content does not match its extension")
)

var modelContentTypes = map[string]string{
	".glb":  "model/gltf-binary",
	".gltf": "model/gltf+json",
	".usdz": "model/vnd.usdz+zip",
}

var (
	glbMagic = []byte("glTF")
	zipMagic = []byte("PK\x03\x04")
)

// ValidateModel checks the filename extension, the size and the first bytes
// (head) of an uploaded AR model. Returns the content type to store.
func ValidateModel(filename string, size int64, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := modelContentTypes[ext]
	if !ok {
		return "", ErrUnsupportedFormat
	}
	if size <= 0 || len(head) == 0 {
		return "", ErrEmptyFile
	}
	if size > MaxModelSize {
		return "", ErrFileTooLarge
	}

	switch ext {
	case ".glb":
		if !bytes.HasPrefix(head, glbMagic) {
			return "", ErrContentMismatch
		}
	case ".usdz":
		if !bytes.HasPrefix(head, zipMagic) {
			return "", ErrContentMismatch
		}
	case ".gltf":
		// glTF JSON documents start with an object
		if trimmed := bytes.TrimLeft(head, " \t\r\n\xef\xbb\xbf"); len(trimmed) == 0 || trimmed[0] != '{' {
			return "", ErrContentMismatch
		}
	}
	return contentType, nil
}

// ModelExtension returns the normalized extension of an accepted model file.
func ModelExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
