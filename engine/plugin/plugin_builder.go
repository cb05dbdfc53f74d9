package plugin

// HostBuilderOption is a functional option for configuring a Host.
type HostBuilderOption func(*hostImpl)

// WithErrorHandler sets the callback receiving PluginError values raised by panicking teardowns.
//
// Parameters:
//   - fn: the error callback
//
// Returns:
//   - HostBuilderOption: a function that sets the error handler
func WithErrorHandler(fn func(error)) HostBuilderOption {
	return func(h *hostImpl) {
		h.onError = fn
	}
}
