package engine

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/event"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
)

// maxConsecutiveFailures is the number of failed frames in a row that halts the loop.
const maxConsecutiveFailures = 3

// Tick runs one frame. Order within a tick is fixed: queued work, finished loads, animations,
// input inertia and held keys, change events, then the render itself.
func (v *viewerImpl) Tick(now time.Time) bool {
	v.mu.Lock()
	if v.destroyed || v.ticking {
		v.mu.Unlock()
		return false
	}
	v.ticking = true
	queue := v.queue
	v.queue = nil
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.ticking = false
		v.mu.Unlock()
	}()

	v.runQueued(queue)
	v.installLoads()
	if v.isDestroyed() {
		return false
	}

	v.mu.Lock()
	var dt time.Duration
	if !v.lastTick.IsZero() && now.After(v.lastTick) {
		dt = now.Sub(v.lastTick)
	}
	v.lastTick = now
	v.mu.Unlock()

	animating := v.animator.Tick(now)
	stepped := v.input.Step(dt)

	state := v.orientation.State()
	rev := v.orientation.Revision()
	v.publishChanges(state)
	if v.isDestroyed() {
		return false
	}

	v.mu.Lock()
	changed := rev != v.lastRev
	v.lastRev = rev
	factory := v.factory
	active := v.adapter
	idle := !changed && !animating && !stepped && !v.needsRender
	halted := v.halted
	frame := v.frame + 1
	v.mu.Unlock()

	if factory == nil || halted || (idle && !adapter.Supports(active, adapter.CapContinuousRender)) {
		if v.profiler != nil {
			v.profiler.Skip()
		}
		return false
	}

	info := FrameInfo{Frame: frame, Time: now, Delta: dt, Orientation: state}
	v.bus.Emit(event.BeforeRender, info)
	if v.isDestroyed() {
		return false
	}

	err := v.renderFrame(factory, state)
	if v.isDestroyed() {
		return false
	}
	if err != nil {
		v.frameFailed(frame, err)
		return false
	}

	v.mu.Lock()
	v.frame = frame
	v.failures = 0
	v.needsRender = false
	v.mu.Unlock()

	v.bus.EmitOnce(event.FirstRender, info)
	v.bus.Emit(event.Render, info)
	if v.profiler != nil {
		v.profiler.Tick()
	}
	return true
}

// runQueued runs work posted through Do. A panicking function is reported and does not
// prevent the others from running.
func (v *viewerImpl) runQueued(queue []func()) {
	for _, fn := range queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					err := common.RecoveredError(r)
					v.logger().Warn("queued function failed", "error", err)
					v.bus.Emit(event.Error, err)
				}
			}()
			fn()
		}()
	}
}

// installLoads swaps in adapters whose load finished since the previous tick.
func (v *viewerImpl) installLoads() {
	v.mu.Lock()
	results := v.completed
	v.completed = nil
	current := v.loadGen
	v.mu.Unlock()

	for _, r := range results {
		if r.gen != current {
			v.dispose(r.adapter, r.name)
			continue
		}
		if r.err != nil {
			v.logger().Error("panorama load failed", "adapter", r.name, "source", r.source.String(), "error", r.err)
			v.dispose(r.adapter, r.name)
			v.bus.Emit(event.LoadFailed, r.err)
			continue
		}

		v.mu.Lock()
		if v.destroyed {
			v.mu.Unlock()
			v.dispose(r.adapter, r.name)
			return
		}
		previous, previousName := v.adapter, v.adapterName
		v.adapter = r.adapter
		v.adapterName = r.name
		v.source = r.source
		v.factory = r.factory
		v.needsRender = true
		v.failures = 0
		v.halted = false
		v.haltErr = nil
		v.mu.Unlock()

		if previous != nil {
			v.dispose(previous, previousName)
		}

		info := PanoramaInfo{Adapter: r.name, Source: r.source}
		v.logger().Info("panorama loaded", "adapter", r.name, "source", r.source.String())
		v.bus.Emit(event.PanoramaLoaded, info)
		v.bus.EmitOnce(event.PanoramaReady, info)
	}
}

// publishChanges emits PositionUpdated and ZoomUpdated when the orientation moved since the last tick.
func (v *viewerImpl) publishChanges(state orientation.State) {
	v.mu.Lock()
	last := v.lastState
	v.lastState = state
	v.mu.Unlock()

	if state.Yaw != last.Yaw || state.Pitch != last.Pitch || state.Roll != last.Roll {
		v.bus.Emit(event.PositionUpdated, state)
	}
	if state.Zoom != last.Zoom {
		v.bus.Emit(event.ZoomUpdated, state)
	}
}

// renderFrame asks the adapter for the drawable, positions the camera and draws.
func (v *viewerImpl) renderFrame(factory adapter.DrawableFactory, state orientation.State) (err error) {
	d, err := drawable(factory, state)
	if err != nil {
		return err
	}
	v.camera.Update(state)
	if err := v.renderer.BindDrawable(d); err != nil {
		return err
	}
	return v.renderer.RenderFrame(v.camera)
}

func drawable(factory adapter.DrawableFactory, state orientation.State) (d *adapter.Drawable, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.RecoveredError(r)
		}
	}()
	d, err = factory.Drawable(state)
	if err == nil && d == nil {
		err = fmt.Errorf("adapter returned no drawable")
	}
	return d, err
}

// frameFailed counts a failed frame and marks the view for another attempt on the next tick.
// The third failure in a row stops the scheduler and publishes FatalError; rendering resumes
// only once a new panorama is installed.
func (v *viewerImpl) frameFailed(frame uint64, cause error) {
	err := &common.RenderError{Frame: frame, Err: cause}

	v.mu.Lock()
	v.needsRender = true
	v.failures++
	failures := v.failures
	fatal := failures >= maxConsecutiveFailures
	if fatal {
		v.halted = true
		v.haltErr = err
	}
	v.mu.Unlock()

	v.logger().Warn("frame failed", "frame", frame, "consecutive", failures, "error", cause)
	v.bus.Emit(event.Error, err)
	if !fatal {
		return
	}

	v.logger().Error("render loop halted", "frame", frame, "error", cause)
	v.scheduler.Stop()
	v.bus.Emit(event.FatalError, err)
}
