package input

import (
	"math"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/animation"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
)

var t0 = time.Unix(5000, 0)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func yawDelta(from, to float64) float64 { return common.ShortestAngleDelta(from, to) }

func TestDragScenarioWithoutInertia(t *testing.T) {
	t.Parallel()

	const k = 0.004
	o := orientation.NewOrientation()
	c := NewController(o, WithMoveSpeed(k))
	start := o.Get(orientation.Yaw)

	c.PointerDown(1, PointerMouse, 100, 100, at(0))
	if c.Mode() != ModeDragging {
		t.Fatalf("mode = %v, want dragging", c.Mode())
	}
	c.PointerMove(1, 150, 100, at(16))
	c.PointerUp(1, 150, 100, at(1000))

	if got := math.Abs(yawDelta(start, o.Get(orientation.Yaw))); math.Abs(got-k*50) > 1e-12 {
		t.Fatalf("|Δyaw| = %v, want %v", got, k*50)
	}
	if c.InertiaActive() {
		t.Fatalf("inertia started for a slow release")
	}
	if c.Mode() != ModeIdle {
		t.Fatalf("mode = %v after release", c.Mode())
	}
}

func TestFlickStartsInertiaThatDecays(t *testing.T) {
	t.Parallel()

	o := orientation.NewOrientation()
	c := NewController(o, WithMoveSpeed(0.001), WithInertia(true, 8))

	c.PointerDown(1, PointerTouch, 0, 0, at(0))
	for i := 1; i <= 5; i++ {
		c.PointerMove(1, float64(i*20), 0, at(i*10))
	}
	c.PointerUp(1, 100, 0, at(50))

	if !c.InertiaActive() {
		t.Fatalf("expected inertia after a fast flick")
	}
	before := o.Get(orientation.Yaw)
	if !c.Step(16 * time.Millisecond) {
		t.Fatalf("first inertia step did not change orientation")
	}
	if d := yawDelta(before, o.Get(orientation.Yaw)); d >= 0 {
		t.Fatalf("inertia should continue the drag direction (negative yaw), got %v", d)
	}

	for i := 0; i < 1000 && c.InertiaActive(); i++ {
		c.Step(16 * time.Millisecond)
	}
	if c.InertiaActive() || c.Active() {
		t.Fatalf("inertia never settled")
	}
}

func TestInertiaDisabled(t *testing.T) {
	t.Parallel()

	c := NewController(orientation.NewOrientation(), WithInertia(false, 0))
	c.PointerDown(1, PointerMouse, 0, 0, at(0))
	c.PointerMove(1, 200, 0, at(10))
	c.PointerUp(1, 200, 0, at(20))
	if c.InertiaActive() {
		t.Fatalf("inertia started while disabled")
	}
}

func TestDragCancelsAnimationSilently(t *testing.T) {
	t.Parallel()

	o := orientation.NewOrientation()
	a := animation.NewAnimator(o, animation.WithClock(func() time.Time { return t0 }))
	c := NewController(o, WithAnimationCanceller(a))

	fired := false
	a.AnimateTo(animation.Target{orientation.Yaw: 2}, time.Second, animation.Linear, func() { fired = true })
	a.Tick(at(500))

	c.PointerDown(1, PointerMouse, 0, 0, at(500))
	if a.Active() {
		t.Fatalf("animation still active after drag start")
	}
	a.Tick(at(2000))
	if fired {
		t.Fatalf("cancelled animation fired its callback")
	}
}

func TestNewDragStopsInertia(t *testing.T) {
	t.Parallel()

	c := NewController(orientation.NewOrientation())
	c.PointerDown(1, PointerMouse, 0, 0, at(0))
	c.PointerMove(1, 300, 0, at(20))
	c.PointerUp(1, 300, 0, at(30))
	if !c.InertiaActive() {
		t.Fatalf("expected inertia")
	}
	c.PointerDown(2, PointerMouse, 0, 0, at(40))
	if c.InertiaActive() {
		t.Fatalf("new drag did not stop inertia")
	}
}

func TestPointerCancelReturnsToIdle(t *testing.T) {
	t.Parallel()

	o := orientation.NewOrientation()
	c := NewController(o)
	c.PointerDown(7, PointerTouch, 10, 10, at(0))
	c.PointerMove(7, 400, 10, at(10))
	c.PointerCancel(7)

	if c.Mode() != ModeIdle || c.InertiaActive() {
		t.Fatalf("cancel left mode=%v inertia=%v", c.Mode(), c.InertiaActive())
	}
	yaw := o.Get(orientation.Yaw)
	c.PointerMove(7, 800, 10, at(20))
	if o.Get(orientation.Yaw) != yaw {
		t.Fatalf("move after cancel changed orientation")
	}
}

func TestPinchZoomsByDistanceRatio(t *testing.T) {
	t.Parallel()

	o := orientation.NewOrientation(orientation.WithFovRange(10, 120), orientation.WithZoom(0))
	c := NewController(o, WithPinchSensitivity(1))

	c.PointerDown(1, PointerTouch, 100, 100, at(0))
	c.PointerDown(2, PointerTouch, 200, 100, at(5))
	if c.Mode() != ModePinching {
		t.Fatalf("mode = %v, want pinching", c.Mode())
	}
	yaw := o.Get(orientation.Yaw)
	fov := o.State().Fov

	c.PointerMove(2, 300, 100, at(20))
	if got := o.State().Fov; math.Abs(got-fov/2) > 1e-9 {
		t.Fatalf("fov = %v, want %v", got, fov/2)
	}
	if o.Get(orientation.Yaw) != yaw {
		t.Fatalf("pinch should not pan with one-finger navigation")
	}

	c.PointerUp(2, 300, 100, at(30))
	if c.Mode() != ModeDragging {
		t.Fatalf("mode = %v after lifting one finger, want dragging", c.Mode())
	}
	c.PointerMove(1, 110, 100, at(40))
	if o.Get(orientation.Yaw) == yaw {
		t.Fatalf("remaining finger should drag")
	}
}

func TestTouchmoveTwoFingers(t *testing.T) {
	t.Parallel()

	o := orientation.NewOrientation()
	c := NewController(o, WithTouchmoveTwoFingers(true))

	c.PointerDown(1, PointerTouch, 100, 100, at(0))
	c.PointerMove(1, 200, 100, at(10))
	if o.Get(orientation.Yaw) != 0 || c.Mode() != ModeIdle {
		t.Fatalf("single finger moved the view")
	}

	c.PointerDown(2, PointerTouch, 100, 200, at(20))
	if c.Mode() != ModePinching {
		t.Fatalf("mode = %v, want pinching", c.Mode())
	}
	c.PointerMove(1, 250, 100, at(30))
	c.PointerMove(2, 150, 200, at(30))
	if o.Get(orientation.Yaw) == 0 {
		t.Fatalf("two-finger move should pan")
	}

	c.PointerUp(2, 150, 200, at(40))
	if c.Mode() != ModeIdle {
		t.Fatalf("single remaining touch should not drag, mode = %v", c.Mode())
	}

	c.PointerDown(3, PointerMouse, 0, 0, at(50))
	if c.Mode() != ModePinching && c.Mode() != ModeDragging {
		t.Fatalf("mouse should still navigate, mode = %v", c.Mode())
	}
}

func TestWheelZoomsAndCancels(t *testing.T) {
	t.Parallel()

	o := orientation.NewOrientation()
	a := animation.NewAnimator(o)
	c := NewController(o, WithAnimationCanceller(a), WithWheelSpeed(0.1))

	a.AnimateTo(animation.Target{orientation.Pitch: 1}, time.Hour, nil, nil)
	z := o.Get(orientation.Zoom)
	c.Wheel(1)
	if o.Get(orientation.Zoom) <= z {
		t.Fatalf("positive wheel should zoom in")
	}
	if a.Active() {
		t.Fatalf("wheel did not cancel the animation")
	}
	c.Wheel(-100)
	if o.Get(orientation.Zoom) != 0 {
		t.Fatalf("zoom should clamp at 0, got %v", o.Get(orientation.Zoom))
	}
}

func TestKeyboardNavigation(t *testing.T) {
	t.Parallel()

	o := orientation.NewOrientation()
	c := NewController(o, WithKeyboardSpeed(0.5, 0))

	c.KeyDown(common.KeyRight)
	if !c.Active() {
		t.Fatalf("held key should keep the controller active")
	}
	c.Step(time.Second)
	if got := o.Get(orientation.Yaw); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("yaw = %v, want 0.5", got)
	}
	c.KeyUp(common.KeyRight)
	if c.Active() {
		t.Fatalf("controller still active after key release")
	}

	c.KeyDown(common.KeyUp)
	c.Step(time.Second)
	if got := o.Get(orientation.Pitch); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("pitch = %v, want 0.5", got)
	}

	c.KeyDown(common.KeyW)
	c.Reset()
	if c.Active() {
		t.Fatalf("reset left keys held")
	}
}

func TestDeviceOrientationAppliesRelativeChange(t *testing.T) {
	t.Parallel()

	o := orientation.NewOrientation(orientation.WithYaw(1))
	c := NewController(o)

	c.DeviceOrientation(2*math.Pi-0.1, 0, 0)
	if o.Get(orientation.Yaw) != 1 {
		t.Fatalf("first reading should only set the reference")
	}
	c.DeviceOrientation(0.1, 0.2, 0)
	if got := o.Get(orientation.Yaw); math.Abs(got-1.2) > 1e-9 {
		t.Fatalf("yaw = %v, want 1.2", got)
	}
	if got := o.Get(orientation.Pitch); math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("pitch = %v, want 0.2", got)
	}
}
