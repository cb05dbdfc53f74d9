// Package renderer draws a panorama drawable through a camera. Two backends exist: a WebGPU
// backend presenting to a window surface and a software backend ray-casting into an image.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/camera"
	"github.com/Carmen-Shannon/oxy-pano/internal/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// ErrNothingBound is returned by RenderFrame when no drawable was bound for the frame.
var ErrNothingBound = errors.New("no drawable bound for this frame")

// ErrReleased is returned by operations invoked after Release.
var ErrReleased = errors.New("renderer released")

// Surface is anything the WebGPU backend can present to. window.Window satisfies it.
type Surface interface {
	// SurfaceDescriptor returns the platform-specific descriptor used to create the WebGPU surface.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Width returns the surface width in pixels.
	Width() int

	// Height returns the surface height in pixels.
	Height() int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	width, height int

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	presentMode          PresentMode
	background           color.RGBA
	workers              int

	bound       *adapter.Drawable
	uploadedKey uuid.UUID
	uploadedRev uint64
	uploaded    bool

	frames   uint64
	released bool
}

// Renderer defines the interface for the panorama rendering system.
//
// A frame is produced in two steps: BindDrawable hands over the drawable the adapter produced for
// the current orientation, then RenderFrame draws it through a camera. Texture uploads only happen
// when the drawable's key or revision changes.
type Renderer interface {
	// CreateCamera creates a camera whose aspect ratio matches the current render size.
	//
	// Parameters:
	//   - options: additional camera options, applied after the aspect ratio
	//
	// Returns:
	//   - camera.Camera: the new camera
	CreateCamera(options ...camera.CameraBuilderOption) camera.Camera

	// BindDrawable binds the drawable for the next RenderFrame call, uploading its faces when they
	// differ from what the backend already holds.
	//
	// Parameters:
	//   - d: the drawable to render
	//
	// Returns:
	//   - error: an error if the drawable is nil or its upload failed
	BindDrawable(d *adapter.Drawable) error

	// RenderFrame draws the bound drawable through the camera and clears the binding.
	//
	// Parameters:
	//   - c: the camera to render with
	//
	// Returns:
	//   - error: ErrNothingBound when no drawable was bound, or the backend failure
	RenderFrame(c camera.Camera) error

	// Resize changes the render target size. Non-positive sizes are ignored.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	Resize(width, height int)

	// Size returns the current render target size.
	Size() (width, height int)

	// Type returns the backend type in use.
	Type() RendererBackendType

	// Snapshot returns a copy of the last rendered frame. Only the software backend keeps frames
	// in memory.
	//
	// Returns:
	//   - *image.RGBA: the frame
	//   - error: an error if the backend cannot snapshot
	Snapshot() (*image.RGBA, error)

	// Frames returns how many frames rendered successfully.
	Frames() uint64

	// Release frees the backend. Calling it more than once is a no-op.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend.
//
// Parameters:
//   - backendType: the backend to render with
//   - surface: the presentation target, required for BackendTypeWGPU and ignored by the software backend
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: an error if the backend could not be created
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		width:       640,
		height:      360,
		background:  color.RGBA{A: 255},
		workers:     runtime.NumCPU(),
	}
	if surface != nil {
		r.width, r.height = surface.Width(), surface.Height()
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.width <= 0 || r.height <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", r.width, r.height)
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.width, r.height, r.workers, r.background)
	case BackendTypeWGPU:
		if surface == nil {
			return nil, errors.New("the wgpu backend needs a surface")
		}
		backend, err := newWGPURendererBackend(surface.SurfaceDescriptor(), r.forceFallbackAdapter, r.presentMode, r.background)
		if err != nil {
			return nil, err
		}
		backend.Resize(r.width, r.height)
		r.backend = backend
	default:
		return nil, fmt.Errorf("unknown renderer backend %d", backendType)
	}

	log.Component("renderer").Debug("renderer created", "backend", backendType, "width", r.width, "height", r.height)
	return r, nil
}

func (r *renderer) CreateCamera(options ...camera.CameraBuilderOption) camera.Camera {
	r.mu.Lock()
	aspect := float32(r.width) / float32(r.height)
	r.mu.Unlock()
	return camera.NewCamera(append([]camera.CameraBuilderOption{camera.WithAspect(aspect)}, options...)...)
}

func (r *renderer) BindDrawable(d *adapter.Drawable) error {
	if d == nil {
		return errors.New("nil drawable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}

	if !r.uploaded || d.Key != r.uploadedKey || d.Revision != r.uploadedRev {
		if err := r.backend.Upload(d); err != nil {
			r.uploaded = false
			return fmt.Errorf("upload %s panorama: %w", d.Geometry, err)
		}
		r.uploaded = true
		r.uploadedKey, r.uploadedRev = d.Key, d.Revision
		log.Component("renderer").Debug("panorama uploaded", "key", d.Key, "revision", d.Revision, "faces", len(d.Faces))
	}
	r.bound = d
	return nil
}

func (r *renderer) RenderFrame(c camera.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	if r.bound == nil {
		return ErrNothingBound
	}
	d := r.bound
	r.bound = nil

	if err := r.backend.Draw(c, d); err != nil {
		return err
	}
	r.frames++
	return nil
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.width, r.height = width, height
	r.backend.Resize(width, height)
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Type() RendererBackendType {
	return r.backendType
}

func (r *renderer) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.backend.(Snapshotter)
	if !ok {
		return nil, fmt.Errorf("%s backend does not keep frames in memory", r.backendType)
	}
	return s.Snapshot(), nil
}

func (r *renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.bound = nil
	r.backend.Release()
}
