package orientation

// OrientationBuilderOption is a functional option for configuring an Orientation.
type OrientationBuilderOption func(*orientationImpl)

// WithYaw sets the initial yaw in radians.
//
// Parameters:
//   - yaw: initial yaw, wrapped into [0, 2π)
//
// Returns:
//   - OrientationBuilderOption: a function that sets the initial yaw
func WithYaw(yaw float64) OrientationBuilderOption {
	return func(o *orientationImpl) {
		o.yaw = yaw
	}
}

// WithPitch sets the initial pitch in radians.
//
// Parameters:
//   - pitch: initial pitch, clamped to the pitch range
//
// Returns:
//   - OrientationBuilderOption: a function that sets the initial pitch
func WithPitch(pitch float64) OrientationBuilderOption {
	return func(o *orientationImpl) {
		o.pitch = pitch
	}
}

// WithRoll sets the initial roll in radians.
//
// Parameters:
//   - roll: initial roll, wrapped into [-π, π)
//
// Returns:
//   - OrientationBuilderOption: a function that sets the initial roll
func WithRoll(roll float64) OrientationBuilderOption {
	return func(o *orientationImpl) {
		o.roll = roll
	}
}

// WithZoom sets the initial zoom level.
//
// Parameters:
//   - zoom: initial zoom level, clamped to [0, 100]
//
// Returns:
//   - OrientationBuilderOption: a function that sets the initial zoom level
func WithZoom(zoom float64) OrientationBuilderOption {
	return func(o *orientationImpl) {
		o.zoom = zoom
	}
}

// WithPitchRange sets the allowed pitch range in radians.
//
// Parameters:
//   - min: lowest pitch (looking down)
//   - max: highest pitch (looking up)
//
// Returns:
//   - OrientationBuilderOption: a function that sets the pitch bounds
func WithPitchRange(min, max float64) OrientationBuilderOption {
	return func(o *orientationImpl) {
		o.minPitch = min
		o.maxPitch = max
	}
}

// WithFovRange sets the field-of-view range in degrees. Zoom 0 maps to max, zoom 100 to min.
//
// Parameters:
//   - min: narrowest fov in degrees
//   - max: widest fov in degrees
//
// Returns:
//   - OrientationBuilderOption: a function that sets the fov bounds
func WithFovRange(min, max float64) OrientationBuilderOption {
	return func(o *orientationImpl) {
		o.minFov = min
		o.maxFov = max
	}
}

// WithZoomScaledPan enables scaling of angular deltas by fov/maxFov in ApplyDelta.
//
// Parameters:
//   - enabled: whether panning slows down when zoomed in
//
// Returns:
//   - OrientationBuilderOption: a function that toggles zoom-scaled panning
func WithZoomScaledPan(enabled bool) OrientationBuilderOption {
	return func(o *orientationImpl) {
		o.zoomScaledPan = enabled
	}
}
