// Package orientation holds the viewer's look direction and zoom level.
// Every setter wraps or clamps its input so the stored state never leaves its configured bounds.
package orientation

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-pano/common"
)

// Dimension identifies one scalar of the orientation state.
type Dimension int

const (
	Yaw Dimension = iota
	Pitch
	Roll
	Zoom
)

// Dimensions lists every dimension in a fixed order.
var Dimensions = [...]Dimension{Yaw, Pitch, Roll, Zoom}

func (d Dimension) String() string {
	switch d {
	case Yaw:
		return "yaw"
	case Pitch:
		return "pitch"
	case Roll:
		return "roll"
	case Zoom:
		return "zoom"
	default:
		return "unknown"
	}
}

// Angular reports whether the dimension is an angle that wraps around.
func (d Dimension) Angular() bool {
	return d == Yaw || d == Roll
}

// MaxZoom is the upper bound of the zoom level; 0 maps to MaxFov and MaxZoom maps to MinFov.
const MaxZoom = 100.0

// State is an immutable snapshot of the orientation.
type State struct {
	// Yaw is the horizontal angle in radians, in [0, 2π).
	Yaw float64 `json:"yaw"`
	// Pitch is the vertical angle in radians, within the configured pitch range.
	Pitch float64 `json:"pitch"`
	// Roll is the rotation around the view axis in radians, in [-π, π).
	Roll float64 `json:"roll"`
	// Zoom is the zoom level in [0, 100].
	Zoom float64 `json:"zoom"`
	// Fov is the vertical field of view in degrees derived from Zoom.
	Fov float64 `json:"fov"`
}

// Get returns the value of the given dimension.
func (s State) Get(d Dimension) float64 {
	switch d {
	case Yaw:
		return s.Yaw
	case Pitch:
		return s.Pitch
	case Roll:
		return s.Roll
	case Zoom:
		return s.Zoom
	}
	return 0
}

type orientationImpl struct {
	mu *sync.Mutex

	yaw   float64
	pitch float64
	roll  float64
	zoom  float64

	minPitch float64
	maxPitch float64
	minFov   float64
	maxFov   float64

	zoomScaledPan bool

	revision uint64
}

// Orientation defines the mutable orientation store shared by the input controller,
// the animator and the render loop.
type Orientation interface {
	// State returns a snapshot of the current orientation.
	//
	// Returns:
	//   - State: yaw, pitch, roll, zoom and derived fov
	State() State

	// Get returns the current value of a single dimension.
	//
	// Parameters:
	//   - d: the dimension to read
	//
	// Returns:
	//   - float64: the stored value
	Get(d Dimension) float64

	// Set writes a single dimension through the matching setter.
	//
	// Parameters:
	//   - d: the dimension to write
	//   - v: the requested value
	//
	// Returns:
	//   - bool: true if the stored value changed
	Set(d Dimension, v float64) bool

	// SetYaw sets the yaw in radians, wrapped into [0, 2π).
	//
	// Parameters:
	//   - v: yaw in radians
	//
	// Returns:
	//   - bool: true if the stored value changed
	SetYaw(v float64) bool

	// SetPitch sets the pitch in radians, clamped to the configured pitch range.
	//
	// Parameters:
	//   - v: pitch in radians
	//
	// Returns:
	//   - bool: true if the stored value changed
	SetPitch(v float64) bool

	// SetRoll sets the roll in radians, wrapped into [-π, π).
	//
	// Parameters:
	//   - v: roll in radians
	//
	// Returns:
	//   - bool: true if the stored value changed
	SetRoll(v float64) bool

	// SetZoom sets the zoom level, clamped to [0, 100].
	//
	// Parameters:
	//   - v: zoom level
	//
	// Returns:
	//   - bool: true if the stored value changed
	SetZoom(v float64) bool

	// ApplyDelta applies an incremental change.
	// Angles are additive. When zoom-scaled panning is enabled they are first multiplied by fov/maxFov,
	// so a given pointer distance pans less when zoomed in. Zoom is multiplicative in field-of-view space:
	// fov' = fov * exp(-dZoom), so positive dZoom zooms in and equal deltas feel alike at every zoom level.
	//
	// Parameters:
	//   - dYaw: yaw delta in radians
	//   - dPitch: pitch delta in radians
	//   - dZoom: logarithmic zoom delta
	//
	// Returns:
	//   - bool: true if any stored value changed
	ApplyDelta(dYaw, dPitch, dZoom float64) bool

	// Revision returns a counter incremented on every effective change.
	//
	// Returns:
	//   - uint64: the current revision
	Revision() uint64

	// PitchRange returns the configured pitch bounds in radians.
	//
	// Returns:
	//   - min, max: pitch bounds
	PitchRange() (min, max float64)

	// FovRange returns the configured field-of-view bounds in degrees.
	//
	// Returns:
	//   - min, max: fov bounds
	FovRange() (min, max float64)

	// ZoomToFov maps a zoom level to a vertical field of view in degrees.
	//
	// Parameters:
	//   - zoom: zoom level in [0, 100]
	//
	// Returns:
	//   - float64: fov in degrees
	ZoomToFov(zoom float64) float64

	// FovToZoom maps a vertical field of view in degrees to a zoom level.
	//
	// Parameters:
	//   - fov: fov in degrees
	//
	// Returns:
	//   - float64: zoom level in [0, 100]
	FovToZoom(fov float64) float64
}

var _ Orientation = &orientationImpl{}

// NewOrientation creates a new orientation store.
// Defaults: pitch range [-π/2, π/2], fov range [30°, 90°], zoom 50, yaw/pitch/roll 0.
// Initial values supplied through options are wrapped and clamped after all options are applied.
//
// Parameters:
//   - options: functional options to configure the orientation
//
// Returns:
//   - Orientation: the newly created orientation
func NewOrientation(options ...OrientationBuilderOption) Orientation {
	o := &orientationImpl{
		mu:       &sync.Mutex{},
		zoom:     50,
		minPitch: -math.Pi / 2,
		maxPitch: math.Pi / 2,
		minFov:   30,
		maxFov:   90,
	}

	for _, option := range options {
		option(o)
	}

	if o.minPitch > o.maxPitch {
		o.minPitch, o.maxPitch = o.maxPitch, o.minPitch
	}
	if o.minFov > o.maxFov {
		o.minFov, o.maxFov = o.maxFov, o.minFov
	}

	o.yaw = common.WrapAngle(o.yaw)
	o.pitch = common.Clamp(o.pitch, o.minPitch, o.maxPitch)
	o.roll = common.WrapSignedAngle(o.roll)
	o.zoom = common.Clamp(o.zoom, 0, MaxZoom)
	return o
}

func (o *orientationImpl) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return State{
		Yaw:   o.yaw,
		Pitch: o.pitch,
		Roll:  o.roll,
		Zoom:  o.zoom,
		Fov:   o.zoomToFov(o.zoom),
	}
}

func (o *orientationImpl) Get(d Dimension) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch d {
	case Yaw:
		return o.yaw
	case Pitch:
		return o.pitch
	case Roll:
		return o.roll
	case Zoom:
		return o.zoom
	}
	return 0
}

func (o *orientationImpl) Set(d Dimension, v float64) bool {
	switch d {
	case Yaw:
		return o.SetYaw(v)
	case Pitch:
		return o.SetPitch(v)
	case Roll:
		return o.SetRoll(v)
	case Zoom:
		return o.SetZoom(v)
	}
	return false
}

func (o *orientationImpl) SetYaw(v float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store(&o.yaw, common.WrapAngle(v))
}

func (o *orientationImpl) SetPitch(v float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store(&o.pitch, common.Clamp(v, o.minPitch, o.maxPitch))
}

func (o *orientationImpl) SetRoll(v float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store(&o.roll, common.WrapSignedAngle(v))
}

func (o *orientationImpl) SetZoom(v float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store(&o.zoom, common.Clamp(v, 0, MaxZoom))
}

func (o *orientationImpl) ApplyDelta(dYaw, dPitch, dZoom float64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	fov := o.zoomToFov(o.zoom)
	if o.zoomScaledPan && o.maxFov > 0 {
		scale := fov / o.maxFov
		dYaw *= scale
		dPitch *= scale
	}

	changed := false
	if dYaw != 0 {
		changed = o.store(&o.yaw, common.WrapAngle(o.yaw+dYaw)) || changed
	}
	if dPitch != 0 {
		changed = o.store(&o.pitch, common.Clamp(o.pitch+dPitch, o.minPitch, o.maxPitch)) || changed
	}
	if dZoom != 0 && !math.IsNaN(dZoom) {
		nextFov := common.Clamp(fov*math.Exp(-dZoom), o.minFov, o.maxFov)
		changed = o.store(&o.zoom, o.fovToZoom(nextFov)) || changed
	}
	return changed
}

func (o *orientationImpl) Revision() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.revision
}

func (o *orientationImpl) PitchRange() (min, max float64) {
	return o.minPitch, o.maxPitch
}

func (o *orientationImpl) FovRange() (min, max float64) {
	return o.minFov, o.maxFov
}

func (o *orientationImpl) ZoomToFov(zoom float64) float64 {
	return o.zoomToFov(common.Clamp(zoom, 0, MaxZoom))
}

func (o *orientationImpl) FovToZoom(fov float64) float64 {
	return o.fovToZoom(fov)
}

// store writes v into dst and bumps the revision when the value differs.
// Caller must hold the mutex.
func (o *orientationImpl) store(dst *float64, v float64) bool {
	if *dst == v {
		return false
	}
	*dst = v
	o.revision++
	return true
}

func (o *orientationImpl) zoomToFov(zoom float64) float64 {
	return o.maxFov + (o.minFov-o.maxFov)*zoom/MaxZoom
}

func (o *orientationImpl) fovToZoom(fov float64) float64 {
	span := o.maxFov - o.minFov
	if span <= 0 {
		return o.zoom
	}
	return common.Clamp((o.maxFov-fov)/span*MaxZoom, 0, MaxZoom)
}
