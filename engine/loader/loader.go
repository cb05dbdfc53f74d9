package loader

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/internal/log"
)

// LoaderBackendType identifies the image decoding backend to use.
type LoaderBackendType int

const (
	// BackendTypeImage selects the JPEG/PNG decoding backend.
	BackendTypeImage LoaderBackendType = iota
)

// DefaultMaxDimension is the largest accepted texture edge in pixels.
const DefaultMaxDimension = 16384

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	imageCache map[string]common.TextureStagingData

	backend loaderBackend

	pool         worker.DynamicWorkerPool
	workers      int
	queueSize    int
	maxDimension uint32

	taskID   int
	released bool
}

// Loader defines the public-facing interface for decoding and caching panorama images.
// Decoding runs on a worker pool so the render loop never blocks on it; callers wait
// through a context.
type Loader interface {
	// Load decodes an image file and caches the result keyed by path.
	// If the image is already cached, the cached version is returned.
	//
	// Parameters:
	//   - ctx: context bounding the wait for the decode
	//   - path: the file path to the image
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels
	//   - error: error if loading fails or ctx ends first
	Load(ctx context.Context, path string) (common.TextureStagingData, error)

	// LoadBytes decodes in-memory image bytes and caches the result by the given name.
	//
	// Parameters:
	//   - ctx: context bounding the wait for the decode
	//   - name: the cache key for the image
	//   - data: encoded image bytes
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels
	//   - error: error if decoding fails or ctx ends first
	LoadBytes(ctx context.Context, name string, data []byte) (common.TextureStagingData, error)

	// LoadAll decodes several images in parallel. The result order matches files.
	// The first error encountered is returned.
	//
	// Parameters:
	//   - ctx: context bounding the wait for all decodes
	//   - files: the images to decode
	//
	// Returns:
	//   - []common.TextureStagingData: decoded pixels, one per file
	//   - error: error if any decode fails or ctx ends first
	LoadAll(ctx context.Context, files []common.ImageFile) ([]common.TextureStagingData, error)

	// Get retrieves a cached image by name.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - common.TextureStagingData: the cached pixels
	//   - bool: false if not cached
	Get(name string) (common.TextureStagingData, bool)

	// Evict removes an image from the cache.
	//
	// Parameters:
	//   - name: the cache key to remove
	Evict(name string)

	// Release stops the worker pool and drops the cache. Further loads fail.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeImage)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:           sync.RWMutex{},
		imageCache:   make(map[string]common.TextureStagingData),
		workers:      runtime.NumCPU(),
		queueSize:    64,
		maxDimension: DefaultMaxDimension,
	}

	switch backendType {
	case BackendTypeImage:
		l.backend = newImageLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}

	l.pool = worker.NewDynamicWorkerPool(l.workers, l.queueSize, time.Second)
	return l
}

func (l *loader) Load(ctx context.Context, path string) (common.TextureStagingData, error) {
	if cached, ok := l.Get(path); ok {
		return cached, nil
	}
	if !l.backend.Supports(extension(path)) {
		return common.TextureStagingData{}, fmt.Errorf("unsupported image format: %s", extension(path))
	}
	res, err := l.LoadAll(ctx, []common.ImageFile{{Name: path, Path: path}})
	if err != nil {
		return common.TextureStagingData{}, err
	}
	return res[0], nil
}

func (l *loader) LoadBytes(ctx context.Context, name string, data []byte) (common.TextureStagingData, error) {
	if cached, ok := l.Get(name); ok {
		return cached, nil
	}
	res, err := l.LoadAll(ctx, []common.ImageFile{{Name: name, Data: data}})
	if err != nil {
		return common.TextureStagingData{}, err
	}
	return res[0], nil
}

func (l *loader) LoadAll(ctx context.Context, files []common.ImageFile) ([]common.TextureStagingData, error) {
	results := make([]common.TextureStagingData, len(files))
	errs := make([]error, len(files))

	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return nil, fmt.Errorf("loader released")
	}
	var pending []int
	for i, f := range files {
		if cached, ok := l.imageCache[cacheKey(f)]; ok {
			results[i] = cached
			continue
		}
		pending = append(pending, i)
	}
	baseID := l.taskID
	l.taskID += len(pending)
	l.mu.Unlock()

	if len(pending) == 0 {
		return results, nil
	}

	// The pool's own Wait tracks idle workers, not task completion, so a
	// WaitGroup serves as the barrier for this batch.
	var wg sync.WaitGroup
	done := make(chan struct{})
	for n, i := range pending {
		wg.Add(1)
		file := files[i]
		l.pool.SubmitTask(worker.Task{
			ID:      baseID + n,
			Payload: file.Name,
			Do: func() (res any, err error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						errs[i] = common.RecoveredError(r)
					}
				}()
				if ctx.Err() != nil {
					errs[i] = ctx.Err()
					return nil, errs[i]
				}
				start := time.Now()
				results[i], errs[i] = l.decode(file)
				if errs[i] == nil {
					log.Component("loader").Debug("decoded image",
						"name", cacheKey(file),
						"width", results[i].Width,
						"height", results[i].Height,
						"took", time.Since(start))
				}
				return nil, errs[i]
			},
		})
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	for _, i := range pending {
		if errs[i] != nil {
			return nil, errs[i]
		}
	}

	l.mu.Lock()
	if !l.released {
		for _, i := range pending {
			l.imageCache[cacheKey(files[i])] = results[i]
		}
	}
	l.mu.Unlock()
	return results, nil
}

func (l *loader) Get(name string) (common.TextureStagingData, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	img, ok := l.imageCache[name]
	return img, ok
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.imageCache, name)
}

func (l *loader) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	l.imageCache = make(map[string]common.TextureStagingData)
	l.mu.Unlock()

	l.pool.ClearTaskQueue()
	l.pool.Stop()
}

func (l *loader) decode(file common.ImageFile) (common.TextureStagingData, error) {
	img, err := l.backend.Decode(file)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	if l.maxDimension > 0 && (img.Width > l.maxDimension || img.Height > l.maxDimension) {
		return common.TextureStagingData{}, fmt.Errorf("image %s is %dx%d, exceeds max dimension %d",
			cacheKey(file), img.Width, img.Height, l.maxDimension)
	}
	return img, nil
}

func cacheKey(f common.ImageFile) string {
	return common.Coalesce(f.Name, f.Path)
}
