package camera

type CameraBuilderOption func(*cameraImpl)

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithRotation sets the initial yaw, pitch and roll in radians.
//
// Parameters:
//   - yaw, pitch, roll: the initial orientation
//
// Returns:
//   - CameraBuilderOption: functional option to set the initial rotation
func WithRotation(yaw, pitch, roll float64) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.yaw, c.pitch, c.roll = yaw, pitch, roll
	}
}
