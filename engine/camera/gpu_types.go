package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (80 bytes).
const GPUCameraUniformSource = `struct CameraUniform {
    inv_view_proj: mat4x4<f32>,
    forward: vec3<f32>,
    tan_half_fov: f32,
};
`

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
// Size: 80 bytes.
type GPUCameraUniform struct {
	InverseViewProj [16]float32 // offset  0: inverse view-projection matrix (mat4x4<f32>)
	Forward         [3]float32  // offset 64: world-space view direction (vec3<f32>)
	TanHalfFov      float32     // offset 76: tan(fov / 2)
}

// NewGPUCameraUniform captures the camera state a fragment shader needs to rebuild view rays.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - GPUCameraUniform: the uniform data
func NewGPUCameraUniform(c Camera) GPUCameraUniform {
	_, _, forward, tanHalfFov, _ := c.Basis()
	return GPUCameraUniform{
		InverseViewProj: c.InverseViewProjectionMatrix(),
		Forward:         forward,
		TanHalfFov:      tanHalfFov,
	}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.InverseViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Forward[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(g.TanHalfFov))
	return buf
}
