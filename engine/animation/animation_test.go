package animation

import (
	"math"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

func newFixture(options ...orientation.OrientationBuilderOption) (orientation.Orientation, Animator, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	o := orientation.NewOrientation(options...)
	return o, NewAnimator(o, WithClock(clock.Now)), clock
}

func TestAnimateToLinearYaw(t *testing.T) {
	t.Parallel()

	o, a, clock := newFixture(orientation.WithYaw(0), orientation.WithPitch(0))
	calls := 0
	a.AnimateTo(Target{orientation.Yaw: math.Pi}, time.Second, Linear, func() { calls++ })

	a.Tick(clock.Advance(500 * time.Millisecond))
	if got := o.Get(orientation.Yaw); math.Abs(got-math.Pi/2) > 1e-9 {
		t.Fatalf("yaw at 500ms = %v, want π/2", got)
	}
	if calls != 0 {
		t.Fatalf("callback fired early")
	}

	a.Tick(clock.Advance(500 * time.Millisecond))
	if got := o.Get(orientation.Yaw); got != math.Pi {
		t.Fatalf("yaw at 1000ms = %v, want exactly π", got)
	}
	if calls != 1 {
		t.Fatalf("callback fired %d times, want 1", calls)
	}

	a.Tick(clock.Advance(500 * time.Millisecond))
	if calls != 1 || a.Active() {
		t.Fatalf("completed animation should be removed; calls=%d active=%v", calls, a.Active())
	}
}

func TestYawTakesShortestPath(t *testing.T) {
	t.Parallel()

	o, a, clock := newFixture(orientation.WithYaw(0.1))
	a.AnimateTo(Target{orientation.Yaw: 2*math.Pi - 0.1}, time.Second, Linear, nil)
	a.Tick(clock.Advance(500 * time.Millisecond))

	yaw := o.Get(orientation.Yaw)
	dist := math.Min(yaw, 2*math.Pi-yaw)
	if dist > 1e-9 {
		t.Fatalf("midpoint yaw = %v, want near 0", yaw)
	}
}

func TestSameDimensionLatestWins(t *testing.T) {
	t.Parallel()

	o, a, clock := newFixture(orientation.WithYaw(0))
	aCalls, bCalls := 0, 0
	a.AnimateTo(Target{orientation.Yaw: 1}, time.Second, Linear, func() { aCalls++ })
	a.Tick(clock.Advance(200 * time.Millisecond))

	a.AnimateTo(Target{orientation.Yaw: 2}, time.Second, InOutCubic, func() { bCalls++ })
	for i := 0; i < 20; i++ {
		a.Tick(clock.Advance(100 * time.Millisecond))
	}

	if aCalls != 0 {
		t.Fatalf("replaced animation callback fired %d times", aCalls)
	}
	if bCalls != 1 {
		t.Fatalf("replacing animation callback fired %d times, want 1", bCalls)
	}
	if got := o.Get(orientation.Yaw); got != 2 {
		t.Fatalf("yaw = %v, want exactly 2", got)
	}
}

func TestDisjointDimensionsRunIndependently(t *testing.T) {
	t.Parallel()

	o, a, clock := newFixture(orientation.WithYaw(0), orientation.WithZoom(0))
	yawDone, zoomDone := false, false
	a.AnimateTo(Target{orientation.Yaw: 1}, time.Second, Linear, func() { yawDone = true })
	a.AnimateTo(Target{orientation.Zoom: 80}, 2*time.Second, Linear, func() { zoomDone = true })

	a.Tick(clock.Advance(time.Second))
	if !yawDone || zoomDone {
		t.Fatalf("after 1s: yawDone=%v zoomDone=%v", yawDone, zoomDone)
	}
	if got := o.Get(orientation.Zoom); math.Abs(got-40) > 1e-9 {
		t.Fatalf("zoom at 1s = %v, want 40", got)
	}

	a.Tick(clock.Advance(time.Second))
	if !zoomDone || o.Get(orientation.Zoom) != 80 {
		t.Fatalf("zoom animation did not finish: %v", o.Get(orientation.Zoom))
	}
}

func TestCancelIsSilent(t *testing.T) {
	t.Parallel()

	o, a, clock := newFixture()
	calls := 0
	h := a.AnimateTo(Target{orientation.Pitch: 0.5}, time.Second, Linear, func() { calls++ })
	a.Tick(clock.Advance(500 * time.Millisecond))

	if !a.Cancel(h) {
		t.Fatalf("cancel of active animation returned false")
	}
	if a.Cancel(h) {
		t.Fatalf("second cancel returned true")
	}
	before := o.Get(orientation.Pitch)
	a.Tick(clock.Advance(time.Second))

	if calls != 0 {
		t.Fatalf("cancelled callback fired")
	}
	if o.Get(orientation.Pitch) != before {
		t.Fatalf("cancelled animation kept writing")
	}
}

func TestCancelDimensionsOnlyDropsMatchingTasks(t *testing.T) {
	t.Parallel()

	_, a, _ := newFixture()
	fired := false
	a.AnimateTo(Target{orientation.Yaw: 1}, time.Second, nil, func() { fired = true })
	a.AnimateTo(Target{orientation.Zoom: 80}, time.Second, nil, nil)

	if n := a.CancelDimensions(orientation.Pitch); n != 0 {
		t.Fatalf("cancelled %d tasks for an idle dimension", n)
	}
	if n := a.CancelDimensions(orientation.Yaw, orientation.Roll); n != 1 {
		t.Fatalf("cancelled %d tasks, want 1", n)
	}
	if a.Animating(orientation.Yaw) || !a.Animating(orientation.Zoom) {
		t.Fatalf("wrong task removed")
	}
	if fired {
		t.Fatalf("cancellation fired a callback")
	}
}

func TestZeroDurationCompletesOnNextTick(t *testing.T) {
	t.Parallel()

	o, a, clock := newFixture()
	calls := 0
	a.AnimateTo(Target{orientation.Roll: 0.25}, 0, nil, func() { calls++ })
	if !a.Animating(orientation.Roll) {
		t.Fatalf("expected roll to be animating")
	}
	a.Tick(clock.Now())
	if calls != 1 || o.Get(orientation.Roll) != 0.25 {
		t.Fatalf("calls=%d roll=%v", calls, o.Get(orientation.Roll))
	}
}

func TestCallbackMayChainAnimation(t *testing.T) {
	t.Parallel()

	o, a, clock := newFixture(orientation.WithYaw(0))
	a.AnimateTo(Target{orientation.Yaw: 1}, time.Second, Linear, func() {
		a.AnimateTo(Target{orientation.Yaw: 2}, time.Second, Linear, nil)
	})

	a.Tick(clock.Advance(time.Second))
	if !a.Active() {
		t.Fatalf("chained animation should be active")
	}
	a.Tick(clock.Advance(time.Second))
	if got := o.Get(orientation.Yaw); got != 2 {
		t.Fatalf("yaw = %v, want 2", got)
	}
}

func TestEasingEndpoints(t *testing.T) {
	t.Parallel()

	for _, name := range EasingNames() {
		fn, ok := EasingByName(name)
		if !ok {
			t.Fatalf("registered easing %q not found", name)
		}
		if v := fn(0); math.Abs(v) > 1e-9 {
			t.Fatalf("%s(0) = %v", name, v)
		}
		if v := fn(1); math.Abs(v-1) > 1e-9 {
			t.Fatalf("%s(1) = %v", name, v)
		}
	}
	if _, ok := EasingByName("in-out-sine"); !ok {
		t.Fatalf("dashed easing name not resolved")
	}
	if _, ok := EasingByName("bounce"); ok {
		t.Fatalf("unknown easing resolved")
	}
}
