// Package adapter defines the contract panorama format drivers satisfy and ships the
// equirectangular and cubemap drivers.
package adapter

import (
	"context"
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/google/uuid"
)

// Geometry is the viewing surface a drawable is projected onto.
type Geometry int

const (
	// GeometrySphere samples a single equirectangular texture.
	GeometrySphere Geometry = iota
	// GeometryCube samples six cube faces.
	GeometryCube
)

func (g Geometry) String() string {
	switch g {
	case GeometrySphere:
		return "sphere"
	case GeometryCube:
		return "cube"
	default:
		return "unknown"
	}
}

// CubeFace indexes the six faces of a cubemap in texture layer order.
type CubeFace int

const (
	FaceRight  CubeFace = iota // +X
	FaceLeft                   // -X
	FaceTop                    // +Y
	FaceBottom                 // -Y
	FaceBack                   // +Z
	FaceFront                  // -Z
)

// Capability names an optional, format-specific adapter feature.
type Capability string

const (
	// CapCubemap marks adapters producing GeometryCube drawables.
	CapCubemap Capability = "cubemap"
	// CapDynamicResolution marks adapters that stream resolution tiles on demand.
	CapDynamicResolution Capability = "dynamic-resolution"
	// CapContinuousRender marks adapters whose drawable changes every frame (e.g. video),
	// so the render loop must not skip idle frames.
	CapContinuousRender Capability = "continuous-render"
)

// Crop places a partial equirectangular image inside the full sphere.
// The loaded image covers [X, X+width) x [Y, Y+height) of a FullWidth x FullHeight panorama.
type Crop struct {
	FullWidth  int `yaml:"fullWidth" json:"fullWidth"`
	FullHeight int `yaml:"fullHeight" json:"fullHeight"`
	X          int `yaml:"x" json:"x"`
	Y          int `yaml:"y" json:"y"`
}

// Validate checks that an image of the given size fits inside the full panorama.
//
// Parameters:
//   - width, height: the loaded image size in pixels
//
// Returns:
//   - error: nil if the crop is consistent
func (c Crop) Validate(width, height uint32) error {
	if c.FullWidth <= 0 || c.FullHeight <= 0 {
		return fmt.Errorf("crop full size must be positive, got %dx%d", c.FullWidth, c.FullHeight)
	}
	if c.X < 0 || c.Y < 0 {
		return fmt.Errorf("crop offset must not be negative, got %d,%d", c.X, c.Y)
	}
	if c.X+int(width) > c.FullWidth || c.Y+int(height) > c.FullHeight {
		return fmt.Errorf("image %dx%d at %d,%d exceeds full panorama %dx%d",
			width, height, c.X, c.Y, c.FullWidth, c.FullHeight)
	}
	return nil
}

// Normalized returns the crop offset and extent as fractions of the full panorama.
//
// Parameters:
//   - width, height: the loaded image size in pixels
//
// Returns:
//   - ox, oy: offset of the image in [0, 1]
//   - sx, sy: extent of the image in [0, 1]
func (c Crop) Normalized(width, height uint32) (ox, oy, sx, sy float32) {
	fw, fh := float32(c.FullWidth), float32(c.FullHeight)
	return float32(c.X) / fw, float32(c.Y) / fh, float32(width) / fw, float32(height) / fh
}

// CubeFaces lists the file paths of the six faces of a cubemap panorama.
type CubeFaces struct {
	Left   string `yaml:"left" json:"left"`
	Front  string `yaml:"front" json:"front"`
	Right  string `yaml:"right" json:"right"`
	Back   string `yaml:"back" json:"back"`
	Top    string `yaml:"top" json:"top"`
	Bottom string `yaml:"bottom" json:"bottom"`
}

// Ordered returns the face paths in CubeFace layer order.
func (f CubeFaces) Ordered() [6]string {
	var out [6]string
	out[FaceRight] = f.Right
	out[FaceLeft] = f.Left
	out[FaceTop] = f.Top
	out[FaceBottom] = f.Bottom
	out[FaceBack] = f.Back
	out[FaceFront] = f.Front
	return out
}

// Empty reports whether no face path is set.
func (f CubeFaces) Empty() bool {
	return f == CubeFaces{}
}

// Source describes where a panorama comes from. Exactly one of Path, Data or Image is used by
// the equirectangular adapter; Faces or FaceImages by the cubemap adapter.
type Source struct {
	// Path is an image file on disk.
	Path string `yaml:"path" json:"path"`
	// Data holds encoded image bytes.
	Data []byte `yaml:"-" json:"-"`
	// Image is an already decoded image.
	Image image.Image `yaml:"-" json:"-"`
	// Faces holds cube face file paths.
	Faces CubeFaces `yaml:"faces" json:"faces"`
	// FaceImages holds decoded cube faces in CubeFace order.
	FaceImages [6]image.Image `yaml:"-" json:"-"`
	// Crop places a partial equirectangular image inside the full sphere.
	Crop *Crop `yaml:"crop" json:"crop,omitempty"`
}

// String returns a short description of the source for logs and errors.
func (s Source) String() string {
	switch {
	case s.Path != "":
		return s.Path
	case len(s.Data) > 0:
		return fmt.Sprintf("<%d bytes>", len(s.Data))
	case s.Image != nil:
		b := s.Image.Bounds()
		return fmt.Sprintf("<image %dx%d>", b.Dx(), b.Dy())
	case !s.Faces.Empty():
		return s.Faces.Front
	case s.FaceImages[FaceFront] != nil:
		return "<cube images>"
	}
	return ""
}

// Empty reports whether the source references no panorama at all.
func (s Source) Empty() bool {
	if s.Path != "" || len(s.Data) > 0 || s.Image != nil || !s.Faces.Empty() {
		return false
	}
	for _, img := range s.FaceImages {
		if img != nil {
			return false
		}
	}
	return true
}

// Drawable is the renderable panorama surface for the current frame.
// It is owned by the adapter; the render loop only holds it for the duration of a frame.
type Drawable struct {
	// Key identifies the texture set; renderers cache GPU resources by Key and Revision.
	Key uuid.UUID
	// Revision changes whenever the pixel data changes.
	Revision uint64
	// Geometry selects the projection.
	Geometry Geometry
	// Faces holds one texture for GeometrySphere and six, in CubeFace order, for GeometryCube.
	Faces []common.TextureStagingData
	// Sampler configures texture filtering.
	Sampler common.SamplerStagingData
	// Crop places a partial equirectangular texture; nil for full panoramas.
	Crop *Crop
	// Uniforms carries per-frame scalar parameters.
	Uniforms map[string]float32
}

// DrawableFactory produces the drawable for each frame.
type DrawableFactory interface {
	// Drawable returns the drawable for the given camera state.
	// Called once per frame; implementations must not decode or block.
	//
	// Parameters:
	//   - state: the orientation being rendered
	//
	// Returns:
	//   - *Drawable: the drawable for this frame
	//   - error: error if no drawable can be produced
	Drawable(state orientation.State) (*Drawable, error)
}

// DrawableFunc adapts a function to DrawableFactory.
type DrawableFunc func(state orientation.State) (*Drawable, error)

func (f DrawableFunc) Drawable(state orientation.State) (*Drawable, error) {
	return f(state)
}

// Adapter is the contract every panorama format driver satisfies.
// The engine treats adapters polymorphically and discovers optional features with Supports.
type Adapter interface {
	// Name returns the registry name of the adapter.
	Name() string

	// Load acquires and decodes the source. It may block and is never called on the render loop.
	//
	// Parameters:
	//   - ctx: context bounding the load
	//   - src: the panorama source
	//
	// Returns:
	//   - DrawableFactory: the per-frame drawable producer
	//   - error: a *common.LoadError carrying the original cause
	Load(ctx context.Context, src Source) (DrawableFactory, error)

	// Dispose releases the memory and cache entries owned by the adapter. Safe to call twice.
	//
	// Returns:
	//   - error: error if releasing failed
	Dispose() error
}

// CapabilityQuerier is implemented by adapters that expose optional features.
type CapabilityQuerier interface {
	// Supports reports whether the adapter provides the capability.
	Supports(c Capability) bool
}

// Supports queries an adapter for a capability without inspecting its concrete type.
//
// Parameters:
//   - a: the adapter
//   - c: the capability
//
// Returns:
//   - bool: false when the adapter does not implement CapabilityQuerier
func Supports(a Adapter, c Capability) bool {
	q, ok := a.(CapabilityQuerier)
	return ok && q.Supports(c)
}

func loadError(adapter string, src Source, err error) error {
	return &common.LoadError{Adapter: adapter, Source: src.String(), Err: err}
}
