package input

import "time"

// ControllerBuilderOption is a functional option for configuring a Controller.
type ControllerBuilderOption func(*controllerImpl)

// WithMoveSpeed sets the drag sensitivity in radians per pixel.
//
// Parameters:
//   - k: radians of rotation per pixel of pointer motion
//
// Returns:
//   - ControllerBuilderOption: a function that sets the drag sensitivity
func WithMoveSpeed(k float64) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.moveSpeed = k
	}
}

// WithWheelSpeed sets the zoom delta applied per wheel unit.
//
// Parameters:
//   - s: logarithmic zoom delta per wheel unit
//
// Returns:
//   - ControllerBuilderOption: a function that sets the wheel speed
func WithWheelSpeed(s float64) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.wheelSpeed = s
	}
}

// WithPinchSensitivity scales the zoom delta derived from the pinch distance ratio.
//
// Parameters:
//   - s: multiplier applied to ln(distance / previousDistance)
//
// Returns:
//   - ControllerBuilderOption: a function that sets the pinch sensitivity
func WithPinchSensitivity(s float64) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.pinchSensitivity = s
	}
}

// WithKeyboardSpeed sets the pan and zoom rates applied while navigation keys are held.
//
// Parameters:
//   - pan: radians per second
//   - zoom: logarithmic zoom delta per second
//
// Returns:
//   - ControllerBuilderOption: a function that sets the keyboard speeds
func WithKeyboardSpeed(pan, zoom float64) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.keyPanSpeed = pan
		c.keyZoomSpeed = zoom
	}
}

// WithInertia enables or disables post-drag inertia and sets its exponential decay rate.
//
// Parameters:
//   - enabled: whether releasing a fast drag keeps the view moving
//   - decay: decay rate per second, velocity is multiplied by exp(-decay*dt); values <= 0 keep the default
//
// Returns:
//   - ControllerBuilderOption: a function that configures inertia
func WithInertia(enabled bool, decay float64) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.inertiaEnabled = enabled
		if decay > 0 {
			c.inertiaDecay = decay
		}
	}
}

// WithInertiaThreshold sets the speed in pixels per second below which inertia does not start and stops.
//
// Parameters:
//   - pxPerSecond: the threshold speed
//
// Returns:
//   - ControllerBuilderOption: a function that sets the threshold
func WithInertiaThreshold(pxPerSecond float64) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.inertiaThreshold = pxPerSecond
	}
}

// WithVelocityWindow sets how far back pointer samples count towards the release velocity.
//
// Parameters:
//   - d: the sample window
//
// Returns:
//   - ControllerBuilderOption: a function that sets the window
func WithVelocityWindow(d time.Duration) ControllerBuilderOption {
	return func(c *controllerImpl) {
		if d > 0 {
			c.velocityWindow = d
		}
	}
}

// WithTouchmoveTwoFingers requires two touch pointers to navigate; a single finger is ignored.
//
// Parameters:
//   - enabled: whether two-finger navigation is required for touch
//
// Returns:
//   - ControllerBuilderOption: a function that toggles two-finger navigation
func WithTouchmoveTwoFingers(enabled bool) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.touchTwoFingers = enabled
	}
}

// WithAnimationCanceller sets the animator interrupted by direct user input.
//
// Parameters:
//   - a: the animation canceller, usually the viewer's animator
//
// Returns:
//   - ControllerBuilderOption: a function that sets the canceller
func WithAnimationCanceller(a AnimationCanceller) ControllerBuilderOption {
	return func(c *controllerImpl) {
		c.animations = a
	}
}
