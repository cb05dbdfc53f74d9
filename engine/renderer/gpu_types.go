package renderer

import (
	"encoding/binary"
	"image/color"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/camera"
)

// GPUPanoramaUniformSource is the WGSL definition of the PanoramaUniform struct.
// It embeds CameraUniform, so shaders must include both.
const GPUPanoramaUniformSource = `struct PanoramaUniform {
    camera: CameraUniform,
    crop: vec4<f32>,
    background: vec4<f32>,
    params: vec4<f32>,
};
`

// GPUPanoramaUniform is the GPU-aligned representation of the panorama uniform buffer.
// Matches the WGSL PanoramaUniform struct layout exactly (see GPUPanoramaUniformSource).
// Size: 128 bytes.
type GPUPanoramaUniform struct {
	Camera     camera.GPUCameraUniform // offset   0: camera rays (80 bytes)
	Crop       [4]float32              // offset  80: crop offset xy, crop extent zw in [0, 1]
	Background [4]float32              // offset  96: colour outside the crop
	Params     [4]float32              // offset 112: x = geometry (0 sphere, 1 cube), y = face count
}

// newPanoramaUniform gathers the per-frame uniform data for a drawable.
func newPanoramaUniform(c camera.Camera, d *adapter.Drawable, background color.RGBA) GPUPanoramaUniform {
	u := GPUPanoramaUniform{
		Camera: camera.NewGPUCameraUniform(c),
		Crop:   [4]float32{0, 0, 1, 1},
		Background: [4]float32{
			float32(background.R) / 255,
			float32(background.G) / 255,
			float32(background.B) / 255,
			float32(background.A) / 255,
		},
	}
	if d.Geometry == adapter.GeometryCube {
		u.Params[0] = 1
	}
	u.Params[1] = float32(len(d.Faces))
	if d.Crop != nil && len(d.Faces) > 0 {
		ox, oy, sx, sy := d.Crop.Normalized(d.Faces[0].Width, d.Faces[0].Height)
		u.Crop = [4]float32{ox, oy, sx, sy}
	}
	return u
}

// Size returns the size of the GPUPanoramaUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (g *GPUPanoramaUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUPanoramaUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUPanoramaUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	copy(buf, g.Camera.Marshal())
	off := g.Camera.Size()
	for _, v := range [][4]float32{g.Crop, g.Background, g.Params} {
		for i := range 4 {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v[i]))
			off += 4
		}
	}
	return buf
}
