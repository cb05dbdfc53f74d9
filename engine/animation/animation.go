// Package animation interpolates orientation dimensions towards absolute targets over time.
package animation

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
)

// Target is a partial orientation: only the listed dimensions are animated.
// Yaw, pitch and roll are in radians, zoom is a zoom level.
type Target map[orientation.Dimension]float64

// Handle identifies a started animation. The zero Handle never refers to an animation.
type Handle uint64

type track struct {
	from  float64
	delta float64
	to    float64
}

type task struct {
	id         Handle
	tracks     map[orientation.Dimension]track
	start      time.Time
	duration   time.Duration
	easing     EasingFunc
	onComplete func()
}

// progress returns the eased fraction for now and whether the task reached its end.
func (t *task) progress(now time.Time) (float64, bool) {
	if t.duration <= 0 {
		return 1, true
	}
	f := float64(now.Sub(t.start)) / float64(t.duration)
	f = common.Clamp(f, 0, 1)
	if f >= 1 {
		return 1, true
	}
	return t.easing(f), false
}

type animatorImpl struct {
	mu *sync.Mutex

	orientation orientation.Orientation
	clock       func() time.Time

	nextID Handle
	tasks  []*task
}

// Animator defines the time-based interpolation engine.
// At most one animation owns a given dimension; starting a new animation on any dimension
// an active animation drives cancels that older animation silently.
type Animator interface {
	// AnimateTo starts an animation from the current orientation to target.
	// Yaw and roll travel along the shortest arc.
	//
	// Parameters:
	//   - target: the dimensions to animate and their end values
	//   - duration: animation length; zero or negative completes on the next Tick
	//   - easing: easing function, nil means Linear
	//   - onComplete: optional callback invoked exactly once when the end value is written
	//
	// Returns:
	//   - Handle: identifier usable with Cancel, zero when target is empty
	AnimateTo(target Target, duration time.Duration, easing EasingFunc, onComplete func()) Handle

	// Tick advances every active animation to now and writes the interpolated values.
	// Completion callbacks run after all values for this tick are written.
	//
	// Parameters:
	//   - now: the current frame time
	//
	// Returns:
	//   - bool: true if any animation was active during this tick
	Tick(now time.Time) bool

	// Cancel removes an animation without invoking its completion callback.
	//
	// Parameters:
	//   - h: the animation handle
	//
	// Returns:
	//   - bool: true if the animation was active
	Cancel(h Handle) bool

	// CancelAll removes every active animation without invoking completion callbacks.
	//
	// Returns:
	//   - int: number of animations removed
	CancelAll() int

	// CancelDimensions removes every animation driving any of the given dimensions, without
	// invoking completion callbacks.
	//
	// Parameters:
	//   - dims: the dimensions to release
	//
	// Returns:
	//   - int: number of animations removed
	CancelDimensions(dims ...orientation.Dimension) int

	// Active reports whether any animation is in flight.
	//
	// Returns:
	//   - bool: true if at least one animation is active
	Active() bool

	// Animating reports whether the given dimension is currently driven by an animation.
	//
	// Parameters:
	//   - d: the dimension
	//
	// Returns:
	//   - bool: true if an active animation targets d
	Animating(d orientation.Dimension) bool
}

var _ Animator = &animatorImpl{}

// NewAnimator creates an animator that writes into o.
//
// Parameters:
//   - o: the orientation the animations drive
//   - options: functional options to configure the animator
//
// Returns:
//   - Animator: the newly created animator
func NewAnimator(o orientation.Orientation, options ...AnimatorBuilderOption) Animator {
	a := &animatorImpl{
		mu:          &sync.Mutex{},
		orientation: o,
		clock:       time.Now,
	}

	for _, option := range options {
		option(a)
	}
	return a
}

func (a *animatorImpl) AnimateTo(target Target, duration time.Duration, easing EasingFunc, onComplete func()) Handle {
	if len(target) == 0 {
		return 0
	}
	if easing == nil {
		easing = Linear
	}

	state := a.orientation.State()
	tracks := make(map[orientation.Dimension]track, len(target))
	for d, to := range target {
		from := state.Get(d)
		var delta float64
		switch d {
		case orientation.Yaw:
			to = common.WrapAngle(to)
			delta = common.ShortestAngleDelta(from, to)
		case orientation.Roll:
			to = common.WrapSignedAngle(to)
			delta = common.ShortestAngleDelta(from, to)
		default:
			delta = to - from
		}
		tracks[d] = track{from: from, delta: delta, to: to}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.tasks[:0]
	for _, t := range a.tasks {
		if !overlaps(t, tracks) {
			kept = append(kept, t)
		}
	}
	clear(a.tasks[len(kept):])
	a.tasks = kept

	a.nextID++
	a.tasks = append(a.tasks, &task{
		id:         a.nextID,
		tracks:     tracks,
		start:      a.clock(),
		duration:   duration,
		easing:     easing,
		onComplete: onComplete,
	})
	return a.nextID
}

func (a *animatorImpl) Tick(now time.Time) bool {
	a.mu.Lock()
	if len(a.tasks) == 0 {
		a.mu.Unlock()
		return false
	}

	var completed []func()
	kept := a.tasks[:0]
	for _, t := range a.tasks {
		p, done := t.progress(now)
		for d, tr := range t.tracks {
			if done {
				a.orientation.Set(d, tr.to)
			} else {
				a.orientation.Set(d, tr.from+tr.delta*p)
			}
		}
		if done {
			if t.onComplete != nil {
				completed = append(completed, t.onComplete)
			}
			continue
		}
		kept = append(kept, t)
	}
	clear(a.tasks[len(kept):])
	a.tasks = kept
	a.mu.Unlock()

	for _, fn := range completed {
		fn()
	}
	return true
}

func (a *animatorImpl) Cancel(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, t := range a.tasks {
		if t.id == h {
			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (a *animatorImpl) CancelAll() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.tasks)
	a.tasks = nil
	return n
}

func (a *animatorImpl) CancelDimensions(dims ...orientation.Dimension) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.tasks[:0]
	for _, t := range a.tasks {
		if !drives(t, dims) {
			kept = append(kept, t)
		}
	}
	n := len(a.tasks) - len(kept)
	clear(a.tasks[len(kept):])
	a.tasks = kept
	return n
}

func (a *animatorImpl) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tasks) > 0
}

func (a *animatorImpl) Animating(d orientation.Dimension) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.tasks {
		if _, ok := t.tracks[d]; ok {
			return true
		}
	}
	return false
}

func overlaps(t *task, tracks map[orientation.Dimension]track) bool {
	for d := range tracks {
		if _, ok := t.tracks[d]; ok {
			return true
		}
	}
	return false
}

func drives(t *task, dims []orientation.Dimension) bool {
	for _, d := range dims {
		if _, ok := t.tracks[d]; ok {
			return true
		}
	}
	return false
}
