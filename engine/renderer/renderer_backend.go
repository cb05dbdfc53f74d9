package renderer

import (
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/camera"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
	// BackendTypeSoftware selects the CPU ray-casting backend rendering into an image.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// RendererBackend is the contract every backend satisfies. The Renderer calls Upload only when
// the drawable's texture set changed and Draw once per frame.
type RendererBackend interface {
	// Upload makes the drawable's faces resident in the backend.
	//
	// Parameters:
	//   - d: the drawable whose textures should be uploaded
	//
	// Returns:
	//   - error: an error if the textures could not be created
	Upload(d *adapter.Drawable) error

	// Draw renders the uploaded panorama through the camera.
	//
	// Parameters:
	//   - c: the camera to render with
	//   - d: the drawable of this frame, for per-frame parameters
	//
	// Returns:
	//   - error: an error if the frame could not be produced
	Draw(c camera.Camera, d *adapter.Drawable) error

	// Resize reconfigures the backend target.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	Resize(width, height int)

	// Release frees every resource held by the backend.
	Release()
}
