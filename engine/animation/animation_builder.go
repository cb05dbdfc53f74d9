package animation

import "time"

// AnimatorBuilderOption is a functional option for configuring an Animator.
type AnimatorBuilderOption func(*animatorImpl)

// WithClock sets the time source used to stamp the start of each animation.
// Tick times must come from the same source.
//
// Parameters:
//   - clock: function returning the current time
//
// Returns:
//   - AnimatorBuilderOption: a function that sets the clock
func WithClock(clock func() time.Time) AnimatorBuilderOption {
	return func(a *animatorImpl) {
		if clock != nil {
			a.clock = clock
		}
	}
}
