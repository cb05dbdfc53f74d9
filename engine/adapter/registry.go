package adapter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/loader"
)

// Default adapter names.
const (
	Equirectangular = "equirectangular"
	Cubemap         = "cubemap"
)

// Constructor builds a fresh adapter instance around the shared image loader.
type Constructor func(l loader.Loader) Adapter

type registryImpl struct {
	mu    *sync.RWMutex
	ctors map[string]Constructor
}

// Registry maps adapter names to constructors. The engine consults it by name only.
type Registry interface {
	// Register adds or replaces a constructor.
	//
	// Parameters:
	//   - name: the adapter name used in configuration
	//   - ctor: the constructor
	Register(name string, ctor Constructor)

	// New constructs an adapter by name.
	//
	// Parameters:
	//   - name: the adapter name
	//   - l: the shared image loader
	//
	// Returns:
	//   - Adapter: the new adapter
	//   - error: wraps common.ErrUnknownAdapter when name is not registered
	New(name string, l loader.Loader) (Adapter, error)

	// Has reports whether name is registered.
	Has(name string) bool

	// Names returns the sorted registered names.
	Names() []string
}

var _ Registry = &registryImpl{}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - options: functional options to configure the registry
//
// Returns:
//   - Registry: the newly created registry
func NewRegistry(options ...RegistryBuilderOption) Registry {
	r := &registryImpl{
		mu:    &sync.RWMutex{},
		ctors: make(map[string]Constructor),
	}

	for _, option := range options {
		option(r)
	}
	return r
}

// DefaultRegistry returns a registry holding the equirectangular and cubemap adapters.
func DefaultRegistry() Registry {
	return NewRegistry(
		WithAdapter(Equirectangular, NewEquirectangular),
		WithAdapter(Cubemap, NewCubemap),
	)
}

func (r *registryImpl) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

func (r *registryImpl) New(name string, l loader.Loader) (Adapter, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownAdapter, name)
	}
	return ctor(l), nil
}

func (r *registryImpl) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[name]
	return ok
}

func (r *registryImpl) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
