package loader

import (
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-pano/common"
)

// loaderBackend defines the generic interface for decoding panorama images.
// Concrete implementations handle format-specific details.
type loaderBackend interface {
	// Supports reports whether the backend can decode files with the given extension.
	//
	// Parameters:
	//   - ext: lower-case file extension including the dot
	//
	// Returns:
	//   - bool: true if the extension is supported
	Supports(ext string) bool

	// Decode decodes an image into RGBA staging data.
	//
	// Parameters:
	//   - file: the image reference, either a path or in-memory bytes
	//
	// Returns:
	//   - common.TextureStagingData: decoded pixels
	//   - error: error if decoding fails
	Decode(file common.ImageFile) (common.TextureStagingData, error)
}

// imageLoaderBackend decodes JPEG and PNG images with the image package.
type imageLoaderBackend struct{}

var _ loaderBackend = imageLoaderBackend{}

func newImageLoaderBackend() loaderBackend {
	return imageLoaderBackend{}
}

func (imageLoaderBackend) Supports(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func (imageLoaderBackend) Decode(file common.ImageFile) (common.TextureStagingData, error) {
	return file.Decode()
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
