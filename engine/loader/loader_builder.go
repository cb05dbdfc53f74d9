package loader

import "github.com/Carmen-Shannon/oxy-pano/common"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers sets the maximum number of decode workers.
//
// Parameters:
//   - n: worker count, values below 1 are ignored
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithQueueSize sets the capacity of the decode task queue.
//
// Parameters:
//   - n: queue capacity, values below 1 are ignored
//
// Returns:
//   - LoaderBuilderOption: a function that applies the queue size to a loader
func WithQueueSize(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithMaxDimension sets the largest accepted texture edge in pixels. Zero disables the check.
//
// Parameters:
//   - px: maximum width or height
//
// Returns:
//   - LoaderBuilderOption: a function that applies the limit to a loader
func WithMaxDimension(px uint32) LoaderBuilderOption {
	return func(l *loader) {
		l.maxDimension = px
	}
}

// WithImage is an option builder that pre-populates the image cache.
//
// Parameters:
//   - key: the cache key for the image
//   - img: the decoded image
//
// Returns:
//   - LoaderBuilderOption: a function that applies the image option to a loader
func WithImage(key string, img common.TextureStagingData) LoaderBuilderOption {
	return func(l *loader) {
		l.imageCache[key] = img
	}
}
