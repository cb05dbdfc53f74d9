package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/loader"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/Carmen-Shannon/oxy-pano/internal/log"
	"github.com/google/uuid"
)

var errDisposed = errors.New("adapter disposed")

// equirectangular loads a single 2:1 spherical panorama.
type equirectangular struct {
	mu *sync.Mutex

	loader loader.Loader

	cacheKeys []string
	drawable  *Drawable
	disposed  bool
}

var (
	_ Adapter           = &equirectangular{}
	_ CapabilityQuerier = &equirectangular{}
)

// NewEquirectangular creates an equirectangular adapter.
//
// Parameters:
//   - l: the image loader used for decoding
//
// Returns:
//   - Adapter: the new adapter
func NewEquirectangular(l loader.Loader) Adapter {
	return &equirectangular{
		mu:     &sync.Mutex{},
		loader: l,
	}
}

func (e *equirectangular) Name() string { return Equirectangular }

func (e *equirectangular) Supports(c Capability) bool {
	return false
}

func (e *equirectangular) Load(ctx context.Context, src Source) (DrawableFactory, error) {
	img, key, err := e.resolve(ctx, src)
	if err != nil {
		return nil, loadError(Equirectangular, src, err)
	}

	if src.Crop != nil {
		if err := src.Crop.Validate(img.Width, img.Height); err != nil {
			return nil, loadError(Equirectangular, src, err)
		}
	} else if img.Width != 2*img.Height {
		log.Component("adapter").Warn("equirectangular panorama is not 2:1",
			"source", src.String(), "width", img.Width, "height", img.Height)
	}

	d := &Drawable{
		Key:      uuid.New(),
		Revision: 1,
		Geometry: GeometrySphere,
		Faces:    []common.TextureStagingData{img},
		Sampler:  common.PanoramaSampler(),
		Crop:     src.Crop,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil, loadError(Equirectangular, src, errDisposed)
	}
	if key != "" {
		e.cacheKeys = append(e.cacheKeys, key)
	}
	e.drawable = d
	return DrawableFunc(e.current), nil
}

func (e *equirectangular) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil
	}
	e.disposed = true
	e.drawable = nil
	if e.loader != nil {
		for _, k := range e.cacheKeys {
			e.loader.Evict(k)
		}
	}
	e.cacheKeys = nil
	return nil
}

func (e *equirectangular) current(orientation.State) (*Drawable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed || e.drawable == nil {
		return nil, errDisposed
	}
	return e.drawable, nil
}

// resolve turns the source into decoded pixels and the loader cache key it occupies.
func (e *equirectangular) resolve(ctx context.Context, src Source) (common.TextureStagingData, string, error) {
	switch {
	case src.Image != nil:
		img := common.ImageToStaging(src.Image)
		if img.Empty() {
			return img, "", fmt.Errorf("empty image")
		}
		return img, "", nil
	case len(src.Data) > 0:
		if e.loader == nil {
			return common.TextureStagingData{}, "", fmt.Errorf("no loader available")
		}
		key := uuid.NewString()
		img, err := e.loader.LoadBytes(ctx, key, src.Data)
		return img, key, err
	case src.Path != "":
		if e.loader == nil {
			return common.TextureStagingData{}, "", fmt.Errorf("no loader available")
		}
		img, err := e.loader.Load(ctx, src.Path)
		return img, src.Path, err
	}
	return common.TextureStagingData{}, "", common.ErrNoPanorama
}
