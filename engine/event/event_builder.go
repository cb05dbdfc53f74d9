package event

import "time"

// BusBuilderOption is a functional option for configuring a Bus.
type BusBuilderOption func(*busImpl)

// WithClock sets the time source used to stamp events.
//
// Parameters:
//   - clock: function returning the current time
//
// Returns:
//   - BusBuilderOption: a function that sets the clock
func WithClock(clock func() time.Time) BusBuilderOption {
	return func(b *busImpl) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithErrorHandler sets the callback that receives PluginError values for panicking handlers.
// Panics raised while dispatching an Error event are swallowed instead, so a broken error
// handler cannot recurse.
//
// Parameters:
//   - fn: the error callback
//
// Returns:
//   - BusBuilderOption: a function that sets the error handler
func WithErrorHandler(fn func(error)) BusBuilderOption {
	return func(b *busImpl) {
		b.onError = fn
	}
}
