package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/camera"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// softwareRendererBackendImpl ray-casts every pixel on the CPU. Rows are split into bands that
// shade in parallel on a worker pool.
type softwareRendererBackendImpl struct {
	mu *sync.Mutex

	width, height int
	frame         *image.RGBA

	faces      []common.TextureStagingData
	background color.RGBA

	pool    worker.DynamicWorkerPool
	workers int
	taskID  int
}

var _ RendererBackend = &softwareRendererBackendImpl{}

// Snapshotter is implemented by backends that keep the last frame in memory.
type Snapshotter interface {
	// Snapshot returns a copy of the last rendered frame.
	//
	// Returns:
	//   - *image.RGBA: the frame
	Snapshot() *image.RGBA
}

func newSoftwareRendererBackend(width, height, workers int, background color.RGBA) *softwareRendererBackendImpl {
	if workers <= 0 {
		workers = 1
	}
	return &softwareRendererBackendImpl{
		mu:         &sync.Mutex{},
		width:      width,
		height:     height,
		frame:      image.NewRGBA(image.Rect(0, 0, width, height)),
		background: background,
		workers:    workers,
		pool:       worker.NewDynamicWorkerPool(workers, workers*4, time.Second),
	}
}

func (b *softwareRendererBackendImpl) Upload(d *adapter.Drawable) error {
	want := 1
	if d.Geometry == adapter.GeometryCube {
		want = 6
	}
	if len(d.Faces) != want {
		return fmt.Errorf("%s drawable needs %d faces, got %d", d.Geometry, want, len(d.Faces))
	}
	for i, f := range d.Faces {
		if f.Empty() || len(f.Pixels) < int(f.Width*f.Height*4) {
			return fmt.Errorf("face %d has no pixel data", i)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.faces = d.Faces
	return nil
}

func (b *softwareRendererBackendImpl) Draw(c camera.Camera, d *adapter.Drawable) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.faces) == 0 {
		return errors.New("no panorama uploaded")
	}
	if b.width == 0 || b.height == 0 {
		return nil
	}

	right, up, forward, tanHalf, aspect := c.Basis()
	sh := softwareShader{
		right:      right.Mul(tanHalf * aspect),
		up:         up.Mul(tanHalf),
		forward:    forward,
		faces:      b.faces,
		cube:       d.Geometry == adapter.GeometryCube,
		nearest:    d.Sampler.MagFilter == wgpu.FilterModeNearest,
		background: b.background,
		crop:       [4]float32{0, 0, 1, 1},
		wrapU:      true,
	}
	if d.Crop != nil && !sh.cube {
		ox, oy, sx, sy := d.Crop.Normalized(b.faces[0].Width, b.faces[0].Height)
		sh.crop = [4]float32{ox, oy, sx, sy}
		sh.wrapU = sx >= 1
	}

	bands := min(b.height, b.workers*4)
	rows := (b.height + bands - 1) / bands
	errs := make([]error, bands)

	// The pool's own Wait tracks idle workers, not task completion, so a
	// WaitGroup serves as the barrier for this frame.
	var wg sync.WaitGroup
	for band := 0; band < bands; band++ {
		y0 := band * rows
		y1 := min(y0+rows, b.height)
		if y0 >= y1 {
			continue
		}
		wg.Add(1)
		b.taskID++
		b.pool.SubmitTask(worker.Task{
			ID:      b.taskID,
			Payload: band,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						errs[band] = common.RecoveredError(r)
					}
				}()
				sh.shadeRows(b.frame, b.width, b.height, y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (b *softwareRendererBackendImpl) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
	b.frame = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (b *softwareRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faces = nil
	b.pool.ClearTaskQueue()
	b.pool.Stop()
}

func (b *softwareRendererBackendImpl) Snapshot() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := image.NewRGBA(b.frame.Rect)
	copy(out.Pix, b.frame.Pix)
	return out
}

// softwareShader holds the per-frame state every band reads. It is never written while bands run.
type softwareShader struct {
	right, up, forward mgl32.Vec3

	faces      []common.TextureStagingData
	cube       bool
	nearest    bool
	background color.RGBA
	crop       [4]float32
	wrapU      bool
}

func (s softwareShader) shadeRows(dst *image.RGBA, width, height, y0, y1 int) {
	for y := y0; y < y1; y++ {
		ndcY := 1 - (float32(y)+0.5)/float32(height)*2
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < width; x++ {
			ndcX := (float32(x)+0.5)/float32(width)*2 - 1
			d := s.forward.Add(s.right.Mul(ndcX)).Add(s.up.Mul(ndcY)).Normalize()
			c := s.shade(d)
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

func (s softwareShader) shade(d mgl32.Vec3) color.RGBA {
	if s.cube {
		face, u, v := CubeFaceUV(d)
		return sample(s.faces[face], u, v, false, s.nearest)
	}
	u, v := SphereUV(d)
	lu := (u - s.crop[0]) / s.crop[2]
	lv := (v - s.crop[1]) / s.crop[3]
	if lu < 0 || lu > 1 || lv < 0 || lv > 1 {
		return s.background
	}
	return sample(s.faces[0], lu, lv, s.wrapU, s.nearest)
}

// sample reads a texture at normalized coordinates. U repeats when wrapU is set, everything else
// clamps to the edge.
func sample(tex common.TextureStagingData, u, v float32, wrapU, nearest bool) color.RGBA {
	w, h := int(tex.Width), int(tex.Height)
	if nearest {
		x := int(math.Floor(float64(u * float32(w))))
		y := int(math.Floor(float64(v * float32(h))))
		return texel(tex, wrapIndex(x, w, wrapU), wrapIndex(y, h, false))
	}

	fx := float64(u*float32(w)) - 0.5
	fy := float64(v*float32(h)) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	tx, ty := float32(fx-x0), float32(fy-y0)
	ix, iy := int(x0), int(y0)

	c00 := texel(tex, wrapIndex(ix, w, wrapU), wrapIndex(iy, h, false))
	c10 := texel(tex, wrapIndex(ix+1, w, wrapU), wrapIndex(iy, h, false))
	c01 := texel(tex, wrapIndex(ix, w, wrapU), wrapIndex(iy+1, h, false))
	c11 := texel(tex, wrapIndex(ix+1, w, wrapU), wrapIndex(iy+1, h, false))

	mix := func(a, b, c, d uint8) uint8 {
		top := float32(a)*(1-tx) + float32(b)*tx
		bottom := float32(c)*(1-tx) + float32(d)*tx
		return uint8(top*(1-ty) + bottom*ty + 0.5)
	}
	return color.RGBA{
		R: mix(c00.R, c10.R, c01.R, c11.R),
		G: mix(c00.G, c10.G, c01.G, c11.G),
		B: mix(c00.B, c10.B, c01.B, c11.B),
		A: mix(c00.A, c10.A, c01.A, c11.A),
	}
}

func texel(tex common.TextureStagingData, x, y int) color.RGBA {
	i := (y*int(tex.Width) + x) * 4
	p := tex.Pixels[i : i+4 : i+4]
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

func wrapIndex(i, n int, wrap bool) int {
	if wrap {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	return max(0, min(i, n-1))
}
