// Package camera turns an orientation into the rotation, matrices and viewport rays used to
// render a panorama from the centre of the viewing sphere.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	fov    float32
	aspect float32
	near   float32
	far    float32

	yaw, pitch, roll float64

	rotation mgl32.Quat

	viewMatrix                  mgl32.Mat4
	projectionMatrix            mgl32.Mat4
	viewProjectionMatrix        mgl32.Mat4
	inverseViewProjectionMatrix mgl32.Mat4
}

// Camera defines the interface for the panorama camera.
// The camera sits at the origin and only rotates; Update copies an orientation snapshot
// and recomputes every derived matrix.
//
// Axis convention: +Y is up and yaw 0 looks down -Z. Positive yaw turns right and positive
// pitch looks up.
type Camera interface {
	// Update recomputes the rotation and matrices from an orientation snapshot.
	//
	// Parameters:
	//   - state: the orientation to render; Fov is read in degrees
	Update(state orientation.State)

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Rotation returns the camera rotation as a quaternion.
	//
	// Returns:
	//   - mgl32.Quat: rotation from camera space to world space
	Rotation() mgl32.Quat

	// Direction returns the world-space unit vector the camera looks along.
	//
	// Returns:
	//   - mgl32.Vec3: the forward vector
	Direction() mgl32.Vec3

	// Basis returns the world-space camera axes and the projection scale, enough to build a
	// viewport ray without touching the matrices.
	//
	// Returns:
	//   - right, up, forward: the camera axes in world space
	//   - tanHalfFov: tan(fov / 2)
	//   - aspect: width / height
	Basis() (right, up, forward mgl32.Vec3, tanHalfFov, aspect float32)

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major).
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the current combined view-projection matrix as 16 floats (column-major).
	ViewProjectionMatrix() [16]float32

	// InverseViewProjectionMatrix returns the inverse of the view-projection matrix as 16 floats
	// (column-major). Shaders use it to turn clip coordinates back into view rays.
	InverseViewProjectionMatrix() [16]float32

	// Ray returns the world-space unit direction through a viewport point.
	//
	// Parameters:
	//   - ndcX, ndcY: normalized device coordinates in [-1, 1], +Y up
	//
	// Returns:
	//   - mgl32.Vec3: the view ray direction
	Ray(ndcX, ndcY float32) mgl32.Vec3

	// SphericalAt returns the panorama coordinates under a viewport point.
	//
	// Parameters:
	//   - ndcX, ndcY: normalized device coordinates in [-1, 1], +Y up
	//
	// Returns:
	//   - yaw: longitude in [0, 2π)
	//   - pitch: latitude in [-π/2, π/2]
	SphericalAt(ndcX, ndcY float32) (yaw, pitch float64)

	// Project maps a panorama direction onto the viewport.
	//
	// Parameters:
	//   - yaw, pitch: the direction in radians
	//
	// Returns:
	//   - ndcX, ndcY: normalized device coordinates
	//   - visible: true when the direction is in front of the camera and inside the viewport
	Project(yaw, pitch float64) (ndcX, ndcY float32, visible bool)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio; values <= 0 are ignored
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	SetFar(far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera looking at yaw 0 with a 65 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		fov:      mgl32.DegToRad(65),
		aspect:   1.0,
		near:     0.1,
		far:      100.0,
		rotation: mgl32.QuatIdent(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Update(state orientation.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yaw, c.pitch, c.roll = state.Yaw, state.Pitch, state.Roll
	if state.Fov > 0 {
		c.fov = mgl32.DegToRad(float32(state.Fov))
	}
	c.updateMatrices()
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Rotation() mgl32.Quat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

func (c *cameraImpl) Direction() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation.Rotate(mgl32.Vec3{0, 0, -1})
}

func (c *cameraImpl) Basis() (right, up, forward mgl32.Vec3, tanHalfFov, aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	right = c.rotation.Rotate(mgl32.Vec3{1, 0, 0})
	up = c.rotation.Rotate(mgl32.Vec3{0, 1, 0})
	forward = c.rotation.Rotate(mgl32.Vec3{0, 0, -1})
	return right, up, forward, float32(math.Tan(float64(c.fov) / 2)), c.aspect
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseViewProjectionMatrix
}

func (c *cameraImpl) Ray(ndcX, ndcY float32) mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ray(ndcX, ndcY)
}

func (c *cameraImpl) SphericalAt(ndcX, ndcY float32) (yaw, pitch float64) {
	c.mu.Lock()
	d := c.ray(ndcX, ndcY)
	c.mu.Unlock()
	return DirectionToSpherical(d)
}

func (c *cameraImpl) Project(yaw, pitch float64) (ndcX, ndcY float32, visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	local := c.rotation.Conjugate().Rotate(SphericalToDirection(yaw, pitch))
	if local.Z() >= 0 {
		return 0, 0, false
	}
	t := float32(math.Tan(float64(c.fov) / 2))
	depth := -local.Z()
	ndcX = local.X() / (depth * t * c.aspect)
	ndcY = local.Y() / (depth * t)
	visible = ndcX >= -1 && ndcX <= 1 && ndcY >= -1 && ndcY <= 1
	return ndcX, ndcY, visible
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

// SphericalToDirection returns the unit vector for a panorama direction.
//
// Parameters:
//   - yaw, pitch: the direction in radians
//
// Returns:
//   - mgl32.Vec3: (cos p sin y, sin p, -cos p cos y)
func SphericalToDirection(yaw, pitch float64) mgl32.Vec3 {
	sy, cy := math.Sincos(yaw)
	sp, cp := math.Sincos(pitch)
	return mgl32.Vec3{float32(cp * sy), float32(sp), float32(-cp * cy)}
}

// DirectionToSpherical is the inverse of SphericalToDirection.
//
// Parameters:
//   - d: a direction, need not be normalized
//
// Returns:
//   - yaw: longitude in [0, 2π)
//   - pitch: latitude in [-π/2, π/2]
func DirectionToSpherical(d mgl32.Vec3) (yaw, pitch float64) {
	l := d.Len()
	if l == 0 {
		return 0, 0
	}
	x, y, z := float64(d.X()/l), float64(d.Y()/l), float64(d.Z()/l)
	yaw = common.WrapAngle(math.Atan2(x, -z))
	pitch = math.Asin(common.Clamp(y, -1, 1))
	return yaw, pitch
}

// ray builds a world-space ray analytically from the rotation. Caller must hold the mutex.
func (c *cameraImpl) ray(ndcX, ndcY float32) mgl32.Vec3 {
	t := float32(math.Tan(float64(c.fov) / 2))
	local := mgl32.Vec3{ndcX * t * c.aspect, ndcY * t, -1}
	return c.rotation.Rotate(local).Normalize()
}

// updateMatrices recalculates the rotation and the view, projection, view-projection and
// inverse view-projection matrices. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	yaw := mgl32.QuatRotate(float32(-c.yaw), mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(float32(c.pitch), mgl32.Vec3{1, 0, 0})
	roll := mgl32.QuatRotate(float32(c.roll), mgl32.Vec3{0, 0, 1})
	c.rotation = yaw.Mul(pitch).Mul(roll).Normalize()

	c.viewMatrix = c.rotation.Conjugate().Mat4()
	c.projectionMatrix = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
	c.inverseViewProjectionMatrix = c.viewProjectionMatrix.Inv()
}
