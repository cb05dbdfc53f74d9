// Package input turns raw pointer, wheel, keyboard and device-orientation events into orientation changes.
package input

import (
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
)

// PointerType identifies the device behind a pointer.
type PointerType int

const (
	PointerMouse PointerType = iota
	PointerTouch
	PointerPen
)

// Mode is the state of the pointer state machine.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModePinching
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDragging:
		return "dragging"
	case ModePinching:
		return "pinching"
	default:
		return "unknown"
	}
}

// AnimationCanceller is the part of the animator the controller needs: any direct
// user input interrupts in-flight transitions.
type AnimationCanceller interface {
	CancelAll() int
}

type pointerState struct {
	kind  PointerType
	lastX float64
	lastY float64
}

type sample struct {
	x, y float64
	at   time.Time
}

type pinchState struct {
	pointer0 int
	pointer1 int
	prevDist float64
	prevMidX float64
	prevMidY float64
}

type gyroState struct {
	valid bool
	yaw   float64
	pitch float64
	roll  float64
}

type controllerImpl struct {
	mu *sync.Mutex

	orientation orientation.Orientation
	animations  AnimationCanceller

	moveSpeed        float64
	wheelSpeed       float64
	pinchSensitivity float64
	keyPanSpeed      float64
	keyZoomSpeed     float64
	touchTwoFingers  bool

	inertiaEnabled   bool
	inertiaDecay     float64
	inertiaThreshold float64
	velocityWindow   time.Duration

	mode     Mode
	pointers map[int]*pointerState
	order    []int
	primary  int
	samples  []sample
	pinch    pinchState

	inertia bool
	velX    float64
	velY    float64

	keys map[int]bool
	gyro gyroState
}

// Controller defines the input state machine.
// Pointer handling moves Idle -> Dragging on the first pointer, Dragging -> Pinching on a second one,
// and back to Idle when all pointers are released or cancelled.
type Controller interface {
	// PointerDown starts or extends a gesture. Starting a drag cancels animations and stops inertia.
	//
	// Parameters:
	//   - id: pointer identifier, unique among active pointers
	//   - kind: the pointer device type
	//   - x, y: position in pixels
	//   - now: event time
	PointerDown(id int, kind PointerType, x, y float64, now time.Time)

	// PointerMove updates a pointer. In Dragging mode the primary pointer's motion pans the view;
	// in Pinching mode the distance ratio between the two pinch pointers zooms it.
	//
	// Parameters:
	//   - id: pointer identifier
	//   - x, y: position in pixels
	//   - now: event time
	PointerMove(id int, x, y float64, now time.Time)

	// PointerUp releases a pointer. Releasing the last pointer of a drag computes the
	// release velocity and may start inertia.
	//
	// Parameters:
	//   - id: pointer identifier
	//   - x, y: position in pixels
	//   - now: event time
	PointerUp(id int, x, y float64, now time.Time)

	// PointerCancel drops a pointer without inertia, e.g. when the platform takes over the gesture.
	//
	// Parameters:
	//   - id: pointer identifier
	PointerCancel(id int)

	// Wheel zooms by delta wheel units; positive zooms in. Cancels animations.
	//
	// Parameters:
	//   - delta: wheel delta
	Wheel(delta float64)

	// KeyDown marks a key as held. Navigation keys cancel animations.
	//
	// Parameters:
	//   - key: key code from common
	KeyDown(key int)

	// KeyUp releases a held key.
	//
	// Parameters:
	//   - key: key code from common
	KeyUp(key int)

	// DeviceOrientation applies the change since the previous sensor reading.
	// The first reading only establishes the reference.
	//
	// Parameters:
	//   - yaw, pitch, roll: absolute sensor angles in radians
	DeviceOrientation(yaw, pitch, roll float64)

	// Step advances time-driven input: inertia decay and held keys.
	//
	// Parameters:
	//   - dt: time since the previous step
	//
	// Returns:
	//   - bool: true if the step changed the orientation
	Step(dt time.Duration) bool

	// Active reports whether Step has pending work (inertia or held keys).
	//
	// Returns:
	//   - bool: true while inertia runs or a navigation key is held
	Active() bool

	// InertiaActive reports whether a post-drag inertia glide is running.
	//
	// Returns:
	//   - bool: true while inertia runs
	InertiaActive() bool

	// Mode returns the pointer state machine mode.
	//
	// Returns:
	//   - Mode: the current mode
	Mode() Mode

	// Reset drops every pointer, held key, inertia and gyroscope reference.
	Reset()
}

var _ Controller = &controllerImpl{}

// NewController creates an input controller writing into o.
//
// Parameters:
//   - o: the orientation to drive
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the newly created controller
func NewController(o orientation.Orientation, options ...ControllerBuilderOption) Controller {
	c := &controllerImpl{
		mu:          &sync.Mutex{},
		orientation: o,

		moveSpeed:        0.005,
		wheelSpeed:       0.1,
		pinchSensitivity: 1.0,
		keyPanSpeed:      1.0,
		keyZoomSpeed:     1.0,

		inertiaEnabled:   true,
		inertiaDecay:     5.0,
		inertiaThreshold: 20.0,
		velocityWindow:   100 * time.Millisecond,

		pointers: make(map[int]*pointerState),
		keys:     make(map[int]bool),
	}

	for _, option := range options {
		option(c)
	}
	return c
}

func (c *controllerImpl) PointerDown(id int, kind PointerType, x, y float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pointers[id]; exists {
		return
	}
	c.pointers[id] = &pointerState{kind: kind, lastX: x, lastY: y}
	c.order = append(c.order, id)

	switch c.mode {
	case ModeIdle:
		if kind == PointerTouch && c.touchTwoFingers {
			if c.touchCount() >= 2 {
				c.startPinch()
			}
			return
		}
		c.interrupt()
		c.mode = ModeDragging
		c.primary = id
		c.samples = append(c.samples[:0], sample{x: x, y: y, at: now})
	case ModeDragging:
		c.startPinch()
	}
}

func (c *controllerImpl) PointerMove(id int, x, y float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pointers[id]
	if !ok {
		return
	}
	dx, dy := x-p.lastX, y-p.lastY
	p.lastX, p.lastY = x, y

	switch c.mode {
	case ModeDragging:
		if id != c.primary {
			return
		}
		c.pan(dx, dy)
		c.samples = append(c.samples, sample{x: x, y: y, at: now})
		c.trimSamples(now)
	case ModePinching:
		if id != c.pinch.pointer0 && id != c.pinch.pointer1 {
			return
		}
		c.updatePinch()
	}
}

func (c *controllerImpl) PointerUp(id int, x, y float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pointers[id]
	if !ok {
		return
	}
	if c.mode == ModeDragging && id == c.primary && (x != p.lastX || y != p.lastY) {
		c.pan(x-p.lastX, y-p.lastY)
		p.lastX, p.lastY = x, y
	}

	if c.mode == ModeDragging && id == c.primary && len(c.pointers) == 1 {
		c.samples = append(c.samples, sample{x: x, y: y, at: now})
		c.trimSamples(now)
		c.startInertia()
	}
	c.release(id, now)
}

func (c *controllerImpl) PointerCancel(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pointers[id]; !ok {
		return
	}
	c.release(id, time.Time{})
}

func (c *controllerImpl) Wheel(delta float64) {
	if delta == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelAnimations()
	c.orientation.ApplyDelta(0, 0, delta*c.wheelSpeed)
}

func (c *controllerImpl) KeyDown(key int) {
	if !navigationKey(key) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.keys[key] {
		c.cancelAnimations()
		c.stopInertia()
	}
	c.keys[key] = true
}

func (c *controllerImpl) KeyUp(key int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
}

func (c *controllerImpl) DeviceOrientation(yaw, pitch, roll float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.gyro
	c.gyro = gyroState{valid: true, yaw: yaw, pitch: pitch, roll: roll}
	if !prev.valid {
		return
	}

	dYaw := common.ShortestAngleDelta(prev.yaw, yaw)
	dPitch := pitch - prev.pitch
	dRoll := common.ShortestAngleDelta(prev.roll, roll)
	if dYaw == 0 && dPitch == 0 && dRoll == 0 {
		return
	}
	c.cancelAnimations()
	c.orientation.ApplyDelta(dYaw, dPitch, 0)
	if dRoll != 0 {
		c.orientation.SetRoll(c.orientation.Get(orientation.Roll) + dRoll)
	}
}

func (c *controllerImpl) Step(dt time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	secs := dt.Seconds()
	if secs <= 0 {
		return false
	}

	changed := false
	if c.inertia {
		changed = c.pan(c.velX*secs, c.velY*secs) || changed
		decay := math.Exp(-c.inertiaDecay * secs)
		c.velX *= decay
		c.velY *= decay
		if math.Hypot(c.velX, c.velY) < c.inertiaThreshold {
			c.stopInertia()
		}
	}

	if len(c.keys) > 0 {
		var dYaw, dPitch, dZoom float64
		for key := range c.keys {
			switch key {
			case common.KeyLeft:
				dYaw -= c.keyPanSpeed * secs
			case common.KeyRight:
				dYaw += c.keyPanSpeed * secs
			case common.KeyUp:
				dPitch += c.keyPanSpeed * secs
			case common.KeyDown:
				dPitch -= c.keyPanSpeed * secs
			case common.KeyEqual, common.KeyKPAdd, common.KeyPageUp:
				dZoom += c.keyZoomSpeed * secs
			case common.KeyMinus, common.KeyKPSub, common.KeyPageDown:
				dZoom -= c.keyZoomSpeed * secs
			}
		}
		changed = c.orientation.ApplyDelta(dYaw, dPitch, dZoom) || changed
	}
	return changed
}

func (c *controllerImpl) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inertia || len(c.keys) > 0
}

func (c *controllerImpl) InertiaActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inertia
}

func (c *controllerImpl) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *controllerImpl) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeIdle
	c.pointers = make(map[int]*pointerState)
	c.order = nil
	c.samples = nil
	c.pinch = pinchState{}
	c.keys = make(map[int]bool)
	c.gyro = gyroState{}
	c.stopInertia()
}

// --- internal helpers ---

// pan converts a pixel delta into an orientation delta. Dragging right turns the view left
// so the panorama follows the pointer. Caller must hold the mutex.
func (c *controllerImpl) pan(dx, dy float64) bool {
	if dx == 0 && dy == 0 {
		return false
	}
	return c.orientation.ApplyDelta(-dx*c.moveSpeed, dy*c.moveSpeed, 0)
}

// interrupt cancels animations and inertia before manual control takes over.
// Caller must hold the mutex.
func (c *controllerImpl) interrupt() {
	c.cancelAnimations()
	c.stopInertia()
}

func (c *controllerImpl) cancelAnimations() {
	if c.animations != nil {
		c.animations.CancelAll()
	}
}

func (c *controllerImpl) stopInertia() {
	c.inertia = false
	c.velX, c.velY = 0, 0
}

// startInertia computes the release velocity from samples inside the velocity window
// and starts inertia when it exceeds the threshold. Caller must hold the mutex.
func (c *controllerImpl) startInertia() {
	if !c.inertiaEnabled || len(c.samples) < 2 {
		return
	}
	first, last := c.samples[0], c.samples[len(c.samples)-1]
	dt := last.at.Sub(first.at).Seconds()
	if dt <= 0 {
		return
	}
	vx := (last.x - first.x) / dt
	vy := (last.y - first.y) / dt
	if math.Hypot(vx, vy) < c.inertiaThreshold {
		return
	}
	c.inertia = true
	c.velX, c.velY = vx, vy
}

// trimSamples keeps the samples inside the velocity window ending at now.
func (c *controllerImpl) trimSamples(now time.Time) {
	cutoff := now.Add(-c.velocityWindow)
	i := 0
	for i < len(c.samples)-1 && c.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.samples = append(c.samples[:0], c.samples[i:]...)
	}
}

func (c *controllerImpl) touchCount() int {
	n := 0
	for _, p := range c.pointers {
		if p.kind == PointerTouch {
			n++
		}
	}
	return n
}

// startPinch enters Pinching with the two oldest pointers. Caller must hold the mutex.
func (c *controllerImpl) startPinch() {
	if len(c.order) < 2 {
		return
	}
	c.interrupt()
	c.mode = ModePinching
	c.samples = c.samples[:0]
	c.pinch = pinchState{pointer0: c.order[0], pointer1: c.order[1]}
	c.pinch.prevDist, c.pinch.prevMidX, c.pinch.prevMidY = c.pinchGeometry()
}

func (c *controllerImpl) pinchGeometry() (dist, midX, midY float64) {
	p0, p1 := c.pointers[c.pinch.pointer0], c.pointers[c.pinch.pointer1]
	dist = math.Hypot(p1.lastX-p0.lastX, p1.lastY-p0.lastY)
	return dist, (p0.lastX + p1.lastX) / 2, (p0.lastY + p1.lastY) / 2
}

// updatePinch zooms by the log of the distance ratio and, for two-finger navigation,
// pans by the midpoint motion. Caller must hold the mutex.
func (c *controllerImpl) updatePinch() {
	dist, midX, midY := c.pinchGeometry()
	if c.pinch.prevDist > 0 && dist > 0 {
		c.orientation.ApplyDelta(0, 0, math.Log(dist/c.pinch.prevDist)*c.pinchSensitivity)
	}
	if c.touchTwoFingers {
		c.pan(midX-c.pinch.prevMidX, midY-c.pinch.prevMidY)
	}
	c.pinch.prevDist, c.pinch.prevMidX, c.pinch.prevMidY = dist, midX, midY
}

// release removes a pointer and moves the state machine accordingly. Caller must hold the mutex.
func (c *controllerImpl) release(id int, now time.Time) {
	delete(c.pointers, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	switch c.mode {
	case ModeDragging:
		if id == c.primary {
			c.mode = ModeIdle
			c.samples = c.samples[:0]
			if len(c.order) > 0 {
				c.anchor(c.order[0], now)
			}
		}
	case ModePinching:
		if id != c.pinch.pointer0 && id != c.pinch.pointer1 {
			return
		}
		c.pinch = pinchState{}
		c.mode = ModeIdle
		switch {
		case len(c.order) >= 2:
			c.startPinch()
		case len(c.order) == 1:
			if c.pointers[c.order[0]].kind == PointerTouch && c.touchTwoFingers {
				return
			}
			c.anchor(c.order[0], now)
		}
	}
}

// anchor re-enters Dragging on the remaining pointer from its current position.
func (c *controllerImpl) anchor(id int, now time.Time) {
	p := c.pointers[id]
	c.mode = ModeDragging
	c.primary = id
	c.samples = append(c.samples[:0], sample{x: p.lastX, y: p.lastY, at: now})
}

func navigationKey(key int) bool {
	switch key {
	case common.KeyLeft, common.KeyRight, common.KeyUp, common.KeyDown,
		common.KeyEqual, common.KeyKPAdd, common.KeyPageUp,
		common.KeyMinus, common.KeyKPSub, common.KeyPageDown:
		return true
	}
	return false
}
