package adapter

// RegistryBuilderOption is a functional option for configuring a Registry.
type RegistryBuilderOption func(*registryImpl)

// WithAdapter registers a constructor at creation time.
//
// Parameters:
//   - name: the adapter name
//   - ctor: the constructor
//
// Returns:
//   - RegistryBuilderOption: a function that registers the constructor
func WithAdapter(name string, ctor Constructor) RegistryBuilderOption {
	return func(r *registryImpl) {
		r.ctors[name] = ctor
	}
}
