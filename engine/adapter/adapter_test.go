package adapter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/loader"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestEquirectangularFromImage(t *testing.T) {
	t.Parallel()

	a := NewEquirectangular(nil)
	f, err := a.Load(context.Background(), Source{Image: solid(8, 4, color.RGBA{B: 9, A: 255})})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := f.Drawable(orientation.State{})
	if err != nil {
		t.Fatalf("Drawable: %v", err)
	}
	if d.Geometry != GeometrySphere || len(d.Faces) != 1 || d.Faces[0].Width != 8 {
		t.Fatalf("unexpected drawable %+v", d)
	}

	if err := a.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := a.Dispose(); err != nil {
		t.Fatalf("second Dispose: %v", err)
	}
	if _, err := f.Drawable(orientation.State{}); err == nil {
		t.Fatalf("expected error after dispose")
	}
}

func TestEquirectangularFromBytesEvictsOnDispose(t *testing.T) {
	t.Parallel()

	l := loader.NewLoader(loader.BackendTypeImage, loader.WithWorkers(1))
	defer l.Release()

	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(4, 2, color.RGBA{A: 255})); err != nil {
		t.Fatalf("encode: %v", err)
	}

	a := NewEquirectangular(l).(*equirectangular)
	if _, err := a.Load(context.Background(), Source{Data: buf.Bytes()}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(a.cacheKeys) != 1 {
		t.Fatalf("expected one cache key, got %v", a.cacheKeys)
	}
	key := a.cacheKeys[0]
	if _, ok := l.Get(key); !ok {
		t.Fatalf("decoded image not cached under %q", key)
	}
	a.Dispose()
	if _, ok := l.Get(key); ok {
		t.Fatalf("dispose did not evict %q", key)
	}
}

func TestEquirectangularLoadError(t *testing.T) {
	t.Parallel()

	l := loader.NewLoader(loader.BackendTypeImage)
	defer l.Release()

	a := NewEquirectangular(l)
	_, err := a.Load(context.Background(), Source{Path: filepath.Join(t.TempDir(), "missing.jpg")})
	var le *common.LoadError
	if !errors.As(err, &le) || le.Adapter != Equirectangular {
		t.Fatalf("expected LoadError, got %v", err)
	}

	_, err = a.Load(context.Background(), Source{})
	if !errors.Is(err, common.ErrNoPanorama) {
		t.Fatalf("expected ErrNoPanorama, got %v", err)
	}
}

func TestEquirectangularCrop(t *testing.T) {
	t.Parallel()

	a := NewEquirectangular(nil)
	crop := &Crop{FullWidth: 16, FullHeight: 8, X: 4, Y: 2}
	f, err := a.Load(context.Background(), Source{Image: solid(8, 4, color.RGBA{A: 255}), Crop: crop})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, _ := f.Drawable(orientation.State{})
	ox, oy, sx, sy := d.Crop.Normalized(d.Faces[0].Width, d.Faces[0].Height)
	if ox != 0.25 || oy != 0.25 || sx != 0.5 || sy != 0.5 {
		t.Fatalf("unexpected normalized crop %v %v %v %v", ox, oy, sx, sy)
	}

	bad := &Crop{FullWidth: 10, FullHeight: 8, X: 4, Y: 2}
	if _, err := NewEquirectangular(nil).Load(context.Background(), Source{Image: solid(8, 4, color.RGBA{A: 255}), Crop: bad}); err == nil {
		t.Fatalf("expected crop validation error")
	}
}

func TestCubemapFromFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	names := []string{"left", "front", "right", "back", "top", "bottom"}
	paths := map[string]string{}
	for i, n := range names {
		p := filepath.Join(dir, n+".png")
		writePNG(t, p, solid(4, 4, color.RGBA{R: uint8(i * 10), A: 255}))
		paths[n] = p
	}

	l := loader.NewLoader(loader.BackendTypeImage, loader.WithWorkers(3))
	defer l.Release()

	a := NewCubemap(l)
	if !Supports(a, CapCubemap) || Supports(a, CapContinuousRender) {
		t.Fatalf("unexpected capabilities")
	}
	f, err := a.Load(context.Background(), Source{Faces: CubeFaces{
		Left: paths["left"], Front: paths["front"], Right: paths["right"],
		Back: paths["back"], Top: paths["top"], Bottom: paths["bottom"],
	}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := f.Drawable(orientation.State{})
	if err != nil {
		t.Fatalf("Drawable: %v", err)
	}
	if d.Geometry != GeometryCube || len(d.Faces) != 6 {
		t.Fatalf("unexpected drawable")
	}
	// front is the 2nd file written (R=10) and lives at layer FaceFront
	if r, _, _, _ := d.Faces[FaceFront].At(0, 0); r != 10 {
		t.Fatalf("front face has r=%d, want 10", r)
	}
	if r, _, _, _ := d.Faces[FaceRight].At(0, 0); r != 20 {
		t.Fatalf("right face has r=%d, want 20", r)
	}
}

func TestCubemapRejectsMismatchedFaces(t *testing.T) {
	t.Parallel()

	var faces [6]image.Image
	for i := range faces {
		faces[i] = solid(4, 4, color.RGBA{A: 255})
	}
	faces[FaceTop] = solid(4, 2, color.RGBA{A: 255})

	if _, err := NewCubemap(nil).Load(context.Background(), Source{FaceImages: faces}); err == nil {
		t.Fatalf("expected error for non-square face")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	if got := r.Names(); len(got) != 2 || got[0] != Cubemap || got[1] != Equirectangular {
		t.Fatalf("unexpected names %v", got)
	}
	a, err := r.New(Equirectangular, nil)
	if err != nil || a.Name() != Equirectangular {
		t.Fatalf("New: %v %v", a, err)
	}
	if _, err := r.New("tiles", nil); !errors.Is(err, common.ErrUnknownAdapter) {
		t.Fatalf("expected ErrUnknownAdapter, got %v", err)
	}
	r.Register("alias", NewEquirectangular)
	if !r.Has("alias") {
		t.Fatalf("registered name missing")
	}
}
