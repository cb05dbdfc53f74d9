package renderer

import (
	"errors"
	"image/color"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/camera"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	grey  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// columns builds a texture whose every column has its own colour.
func columns(height int, cols ...color.RGBA) common.TextureStagingData {
	w := len(cols)
	px := make([]byte, w*height*4)
	for y := 0; y < height; y++ {
		for x, c := range cols {
			i := (y*w + x) * 4
			px[i], px[i+1], px[i+2], px[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return common.TextureStagingData{Pixels: px, Width: uint32(w), Height: uint32(height)}
}

func solid(c color.RGBA) common.TextureStagingData {
	return columns(1, c)
}

func newSoftware(t *testing.T, w, h int) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeSoftware, nil, WithSize(w, h), WithWorkers(2), WithBackground(grey))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func renderCentre(t *testing.T, r Renderer, d *adapter.Drawable, s orientation.State) color.RGBA {
	t.Helper()
	c := r.CreateCamera()
	c.Update(s)
	if err := r.BindDrawable(d); err != nil {
		t.Fatalf("BindDrawable: %v", err)
	}
	if err := r.RenderFrame(c); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	img, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	b := img.Bounds()
	return img.RGBAAt(b.Dx()/2, b.Dy()/2)
}

func TestEquirectangularColumnsFollowYaw(t *testing.T) {
	t.Parallel()

	r := newSoftware(t, 1, 1)
	d := &adapter.Drawable{
		Key:      uuid.New(),
		Geometry: adapter.GeometrySphere,
		Faces:    []common.TextureStagingData{columns(2, red, green, blue, white)},
	}

	// Offsets keep the sample away from column boundaries.
	if got := renderCentre(t, r, d, orientation.State{Yaw: 0.1, Fov: 60}); got != blue {
		t.Fatalf("yaw 0 should sample column 2, got %v", got)
	}
	if got := renderCentre(t, r, d, orientation.State{Yaw: math.Pi/2 + 0.1, Fov: 60}); got != white {
		t.Fatalf("yaw π/2 should sample column 3, got %v", got)
	}
	if got := renderCentre(t, r, d, orientation.State{Yaw: 3*math.Pi/2 + 0.1, Fov: 60}); got != green {
		t.Fatalf("yaw 3π/2 should sample column 1, got %v", got)
	}
	if r.Frames() != 3 {
		t.Fatalf("frames = %d", r.Frames())
	}
}

func TestCubeFacesFollowOrientation(t *testing.T) {
	t.Parallel()

	colours := []color.RGBA{
		adapter.FaceRight:  red,
		adapter.FaceLeft:   green,
		adapter.FaceTop:    blue,
		adapter.FaceBottom: white,
		adapter.FaceBack:   {R: 10, A: 255},
		adapter.FaceFront:  {G: 10, A: 255},
	}
	faces := make([]common.TextureStagingData, len(colours))
	for i, c := range colours {
		faces[i] = solid(c)
	}
	d := &adapter.Drawable{Key: uuid.New(), Geometry: adapter.GeometryCube, Faces: faces}
	r := newSoftware(t, 3, 3)

	cases := []struct {
		name  string
		state orientation.State
		want  adapter.CubeFace
	}{
		{"front", orientation.State{Fov: 60}, adapter.FaceFront},
		{"right", orientation.State{Yaw: math.Pi / 2, Fov: 60}, adapter.FaceRight},
		{"back", orientation.State{Yaw: math.Pi, Fov: 60}, adapter.FaceBack},
		{"left", orientation.State{Yaw: 3 * math.Pi / 2, Fov: 60}, adapter.FaceLeft},
		{"top", orientation.State{Pitch: 1.4, Fov: 60}, adapter.FaceTop},
		{"bottom", orientation.State{Pitch: -1.4, Fov: 60}, adapter.FaceBottom},
	}
	for _, tc := range cases {
		if got := renderCentre(t, r, d, tc.state); got != colours[tc.want] {
			t.Fatalf("%s: got %v, want face %d colour %v", tc.name, got, tc.want, colours[tc.want])
		}
	}
}

func TestCropOutsideDrawsBackground(t *testing.T) {
	t.Parallel()

	r := newSoftware(t, 1, 1)
	d := &adapter.Drawable{
		Key:      uuid.New(),
		Geometry: adapter.GeometrySphere,
		Faces:    []common.TextureStagingData{columns(2, red, red, red, red)},
		Crop:     &adapter.Crop{FullWidth: 8, FullHeight: 4},
	}

	if got := renderCentre(t, r, d, orientation.State{Yaw: math.Pi / 2, Fov: 60}); got != grey {
		t.Fatalf("outside the crop should be background, got %v", got)
	}
	if got := renderCentre(t, r, d, orientation.State{Yaw: 3 * math.Pi / 2, Pitch: 0.5, Fov: 60}); got != red {
		t.Fatalf("inside the crop should sample the image, got %v", got)
	}
}

func TestRenderFrameWithoutDrawable(t *testing.T) {
	t.Parallel()

	r := newSoftware(t, 2, 2)
	c := r.CreateCamera()
	if err := r.RenderFrame(c); !errors.Is(err, ErrNothingBound) {
		t.Fatalf("err = %v, want ErrNothingBound", err)
	}

	d := &adapter.Drawable{Key: uuid.New(), Faces: []common.TextureStagingData{solid(red)}}
	if err := r.BindDrawable(d); err != nil {
		t.Fatal(err)
	}
	if err := r.RenderFrame(c); err != nil {
		t.Fatal(err)
	}
	if err := r.RenderFrame(c); !errors.Is(err, ErrNothingBound) {
		t.Fatalf("binding should last one frame, err = %v", err)
	}
}

func TestBindDrawableRejectsBadFaces(t *testing.T) {
	t.Parallel()

	r := newSoftware(t, 2, 2)
	if err := r.BindDrawable(&adapter.Drawable{Geometry: adapter.GeometryCube, Faces: []common.TextureStagingData{solid(red)}}); err == nil {
		t.Fatalf("cube with one face accepted")
	}
	if err := r.BindDrawable(nil); err == nil {
		t.Fatalf("nil drawable accepted")
	}
}

type countingBackend struct {
	uploads, draws int
	failDraw       error
}

func (b *countingBackend) Upload(*adapter.Drawable) error { b.uploads++; return nil }

func (b *countingBackend) Draw(camera.Camera, *adapter.Drawable) error {
	b.draws++
	return b.failDraw
}

func (b *countingBackend) Resize(int, int) {}

func (b *countingBackend) Release() {}

func TestUploadOnlyWhenKeyOrRevisionChanges(t *testing.T) {
	t.Parallel()

	b := &countingBackend{}
	r := &renderer{mu: &sync.Mutex{}, backend: b, width: 4, height: 4}
	c := r.CreateCamera()

	d := &adapter.Drawable{Key: uuid.New()}
	for i := 0; i < 3; i++ {
		if err := r.BindDrawable(d); err != nil {
			t.Fatal(err)
		}
		if err := r.RenderFrame(c); err != nil {
			t.Fatal(err)
		}
	}
	if b.uploads != 1 || b.draws != 3 {
		t.Fatalf("uploads=%d draws=%d", b.uploads, b.draws)
	}

	d.Revision++
	_ = r.BindDrawable(d)
	_ = r.BindDrawable(&adapter.Drawable{Key: uuid.New()})
	if b.uploads != 3 {
		t.Fatalf("uploads=%d, want 3", b.uploads)
	}

	b.failDraw = errors.New("lost device")
	if err := r.RenderFrame(c); err == nil || r.Frames() != 3 {
		t.Fatalf("err=%v frames=%d", err, r.Frames())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newSoftware(t, 2, 2)
	r.Release()
	r.Release()
	if err := r.BindDrawable(&adapter.Drawable{}); !errors.Is(err, ErrReleased) {
		t.Fatalf("err = %v", err)
	}
}

func TestResizeUpdatesCameraAspect(t *testing.T) {
	t.Parallel()

	r := newSoftware(t, 4, 2)
	r.Resize(0, 10)
	if w, h := r.Size(); w != 4 || h != 2 {
		t.Fatalf("invalid resize applied: %dx%d", w, h)
	}
	r.Resize(9, 3)
	if c := r.CreateCamera(); c.Aspect() != 3 {
		t.Fatalf("aspect = %v", c.Aspect())
	}
	img, _ := r.Snapshot()
	if img.Bounds().Dx() != 9 || img.Bounds().Dy() != 3 {
		t.Fatalf("frame size = %v", img.Bounds())
	}
}

func TestSphereAndCubeUV(t *testing.T) {
	t.Parallel()

	if u, v := SphereUV(mgl32.Vec3{0, 0, -1}); u != 0.5 || v != 0.5 {
		t.Fatalf("forward = %v,%v", u, v)
	}
	if _, v := SphereUV(mgl32.Vec3{0, 1, 0}); v != 0 {
		t.Fatalf("zenith v = %v", v)
	}

	face, u, v := CubeFaceUV(mgl32.Vec3{0, 0, -1})
	if face != adapter.FaceFront || u != 0.5 || v != 0.5 {
		t.Fatalf("front = %v %v %v", face, u, v)
	}
	// The right half of the front face borders the right face.
	if face, u, _ = CubeFaceUV(mgl32.Vec3{0.9, 0, -1}); face != adapter.FaceFront || u <= 0.5 {
		t.Fatalf("front right = %v %v", face, u)
	}
	if face, u, _ = CubeFaceUV(mgl32.Vec3{1, 0, -0.9}); face != adapter.FaceRight || u >= 0.5 {
		t.Fatalf("right face left edge = %v %v", face, u)
	}
	// Looking up, the lower edge of the top face meets the front.
	if face, _, v = CubeFaceUV(mgl32.Vec3{0, 1, -0.9}); face != adapter.FaceTop || v <= 0.5 {
		t.Fatalf("top near front = %v %v", face, v)
	}
}

func TestPanoramaUniformLayout(t *testing.T) {
	t.Parallel()

	c := camera.NewCamera()
	d := &adapter.Drawable{
		Geometry: adapter.GeometrySphere,
		Faces:    []common.TextureStagingData{columns(2, red, red, red, red)},
		Crop:     &adapter.Crop{FullWidth: 8, FullHeight: 4, X: 4},
	}
	u := newPanoramaUniform(c, d, white)
	if u.Size() != 128 || len(u.Marshal()) != 128 {
		t.Fatalf("size = %d", u.Size())
	}
	if u.Crop != [4]float32{0.5, 0, 0.5, 0.5} {
		t.Fatalf("crop = %v", u.Crop)
	}
	if u.Params[0] != 0 || u.Params[1] != 1 {
		t.Fatalf("params = %v", u.Params)
	}
}

func TestPanoramaShaderExpandsAnnotations(t *testing.T) {
	t.Parallel()

	source, layout, err := panoramaShader()
	if err != nil {
		t.Fatalf("panoramaShader: %v", err)
	}
	for _, want := range []string{
		"struct CameraUniform {",
		"struct PanoramaUniform {",
		"@group(0) @binding(0) var<uniform> u: PanoramaUniform;",
	} {
		if !strings.Contains(source, want) {
			t.Fatalf("expanded shader lacks %q", want)
		}
	}
	if strings.Contains(source, "@pano:") {
		t.Fatalf("annotations left in the shader")
	}

	if len(layout.Entries) != 3 {
		t.Fatalf("layout entries = %d", len(layout.Entries))
	}
	if e := layout.Entries[bindingUniform]; e.Buffer.Type != wgpu.BufferBindingTypeUniform || e.Buffer.MinBindingSize != 128 {
		t.Fatalf("uniform entry = %+v", e.Buffer)
	}
	if e := layout.Entries[bindingTexture]; e.Texture.ViewDimension != wgpu.TextureViewDimension2DArray {
		t.Fatalf("texture entry = %+v", e.Texture)
	}
	if e := layout.Entries[bindingSampler]; e.Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Fatalf("sampler entry = %+v", e.Sampler)
	}
}
