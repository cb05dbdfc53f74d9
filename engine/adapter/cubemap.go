package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/loader"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/google/uuid"
)

// cubemap loads six square faces.
type cubemap struct {
	mu *sync.Mutex

	loader loader.Loader

	cacheKeys []string
	drawable  *Drawable
	disposed  bool
}

var (
	_ Adapter           = &cubemap{}
	_ CapabilityQuerier = &cubemap{}
)

// NewCubemap creates a cubemap adapter. Faces are decoded in parallel on the loader's pool.
//
// Parameters:
//   - l: the image loader used for decoding
//
// Returns:
//   - Adapter: the new adapter
func NewCubemap(l loader.Loader) Adapter {
	return &cubemap{
		mu:     &sync.Mutex{},
		loader: l,
	}
}

func (c *cubemap) Name() string { return Cubemap }

func (c *cubemap) Supports(capability Capability) bool {
	return capability == CapCubemap
}

func (c *cubemap) Load(ctx context.Context, src Source) (DrawableFactory, error) {
	faces, keys, err := c.resolve(ctx, src)
	if err != nil {
		return nil, loadError(Cubemap, src, err)
	}

	size := faces[0].Width
	for i, f := range faces {
		if f.Width != f.Height {
			return nil, loadError(Cubemap, src, fmt.Errorf("face %d is not square: %dx%d", i, f.Width, f.Height))
		}
		if f.Width != size {
			return nil, loadError(Cubemap, src, fmt.Errorf("face %d is %dpx, expected %dpx", i, f.Width, size))
		}
	}

	d := &Drawable{
		Key:      uuid.New(),
		Revision: 1,
		Geometry: GeometryCube,
		Faces:    faces,
		Sampler:  common.PanoramaSampler(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, loadError(Cubemap, src, errDisposed)
	}
	c.cacheKeys = append(c.cacheKeys, keys...)
	c.drawable = d
	return DrawableFunc(c.current), nil
}

func (c *cubemap) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil
	}
	c.disposed = true
	c.drawable = nil
	if c.loader != nil {
		for _, k := range c.cacheKeys {
			c.loader.Evict(k)
		}
	}
	c.cacheKeys = nil
	return nil
}

func (c *cubemap) current(orientation.State) (*Drawable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || c.drawable == nil {
		return nil, errDisposed
	}
	return c.drawable, nil
}

func (c *cubemap) resolve(ctx context.Context, src Source) ([]common.TextureStagingData, []string, error) {
	if src.FaceImages[0] != nil {
		faces := make([]common.TextureStagingData, 6)
		for i, img := range src.FaceImages {
			if img == nil {
				return nil, nil, fmt.Errorf("missing face %d", i)
			}
			faces[i] = common.ImageToStaging(img)
		}
		return faces, nil, nil
	}

	if src.Faces.Empty() {
		return nil, nil, common.ErrNoPanorama
	}
	if c.loader == nil {
		return nil, nil, fmt.Errorf("no loader available")
	}

	paths := src.Faces.Ordered()
	files := make([]common.ImageFile, 6)
	keys := make([]string, 6)
	for i, p := range paths {
		if p == "" {
			return nil, nil, fmt.Errorf("missing face %d", i)
		}
		files[i] = common.ImageFile{Name: p, Path: p}
		keys[i] = p
	}

	faces, err := c.loader.LoadAll(ctx, files)
	if err != nil {
		return nil, nil, err
	}
	return faces, keys, nil
}
