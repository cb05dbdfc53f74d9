// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
// Adapters produce it, the renderer consumes it.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// Empty reports whether the staging data carries no pixels.
func (t TextureStagingData) Empty() bool {
	return t.Width == 0 || t.Height == 0 || len(t.Pixels) < int(t.Width)*int(t.Height)*4
}

// At returns the RGBA value of the pixel at (x, y). Coordinates are clamped to the texture bounds.
//
// Parameters:
//   - x, y: pixel coordinates
//
// Returns:
//   - r, g, b, a: the channel values
func (t TextureStagingData) At(x, y int) (r, g, b, a uint8) {
	if x < 0 {
		x = 0
	} else if x >= int(t.Width) {
		x = int(t.Width) - 1
	}
	if y < 0 {
		y = 0
	} else if y >= int(t.Height) {
		y = int(t.Height) - 1
	}
	i := (y*int(t.Width) + x) * 4
	return t.Pixels[i], t.Pixels[i+1], t.Pixels[i+2], t.Pixels[i+3]
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// This is primarily used in the BindGroupProvider to stage sampler data before creating the GPU sampler and bind group.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// PanoramaSampler returns the sampler used for panorama textures: linear filtering,
// repeat horizontally so the seam at yaw 0 blends, clamp vertically at the poles.
func PanoramaSampler() SamplerStagingData {
	return SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// ImageFile represents encoded image data referenced by a panorama source.
// For in-memory images the Data field contains the encoded bytes.
// For external images the Path field contains the file path.
type ImageFile struct {
	// Name is an identifier for this image, used as the cache key.
	Name string

	// Path is the file path for external images (empty for in-memory).
	Path string

	// Data contains encoded image bytes (PNG/JPEG).
	Data []byte
}

// Decode decodes the image to raw RGBA pixel data.
// Uses either the in-memory Data bytes or loads from Path on disk.
// Supports PNG and JPEG formats.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - TextureStagingData: raw RGBA pixel data (4 bytes per pixel, row-major order)
//   - error: error if decoding fails
func (f ImageFile) Decode() (TextureStagingData, error) {
	var r io.Reader
	switch {
	case len(f.Data) > 0:
		r = bytes.NewReader(f.Data)
	case f.Path != "":
		file, err := os.Open(f.Path)
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to open image file %s: %w", f.Path, err)
		}
		defer file.Close()
		r = file
	default:
		return TextureStagingData{}, fmt.Errorf("image has neither data nor path")
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image %s: %w", Coalesce(f.Path, f.Name), err)
	}
	return ImageToStaging(img), nil
}

// ImageToStaging converts any image.Image into tightly packed RGBA staging data.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - TextureStagingData: RGBA pixels with origin at the top-left corner
func ImageToStaging(img image.Image) TextureStagingData {
	bounds := img.Bounds()
	dst := image.Rect(0, 0, bounds.Dx(), bounds.Dy())

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect != dst || rgba.Stride != dst.Dx()*4 {
		rgba = image.NewRGBA(dst)
		draw.Draw(rgba, dst, img, bounds.Min, draw.Src)
	}

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(dst.Dx()),
		Height: uint32(dst.Dy()),
	}
}
