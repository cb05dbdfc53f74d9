// Package plugin hosts optional feature modules that extend the viewer through its public capabilities.
package plugin

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/animation"
	"github.com/Carmen-Shannon/oxy-pano/engine/event"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/google/uuid"
)

// Viewer is the capability surface handed to plugins.
// It exposes the event bus, orientation access, animation scheduling and panorama swapping,
// never the engine internals.
type Viewer interface {
	// ID returns the viewer instance identifier.
	//
	// Returns:
	//   - string: the viewer's uuid
	ID() string

	// On subscribes to viewer events. Subscriptions made by a plugin are released on its teardown.
	//
	// Parameters:
	//   - t: the event type to listen for
	//   - handler: called synchronously for every matching event
	//
	// Returns:
	//   - func(): unsubscribes the handler, safe to call more than once
	On(t event.Type, handler event.Handler) func()

	// Emit publishes an event on the viewer's bus.
	//
	// Parameters:
	//   - t: the event type
	//   - payload: the event payload handed to subscribers
	Emit(t event.Type, payload any)

	// Orientation returns the current orientation snapshot.
	//
	// Returns:
	//   - orientation.State: yaw, pitch, roll, zoom and the derived field of view
	Orientation() orientation.State

	// SetOrientation writes the given dimensions immediately, cancelling animations that drive them.
	//
	// Parameters:
	//   - target: the dimensions to write, missing dimensions keep their value
	SetOrientation(target animation.Target)

	// AnimateTo starts an animated transition.
	//
	// Parameters:
	//   - target: the dimensions to animate and their end values
	//   - duration: the transition length, zero snaps on the next tick
	//   - easing: the easing curve, nil for the viewer's default
	//   - onComplete: called once when the target is reached, never when cancelled
	//
	// Returns:
	//   - animation.Handle: handle for CancelAnimation
	AnimateTo(target animation.Target, duration time.Duration, easing animation.EasingFunc, onComplete func()) animation.Handle

	// CancelAnimation cancels an animation without invoking its callback.
	//
	// Parameters:
	//   - h: the handle returned by AnimateTo
	//
	// Returns:
	//   - bool: true if the animation was still running
	CancelAnimation(h animation.Handle) bool

	// SetPanorama swaps the displayed panorama, loading it asynchronously.
	//
	// Parameters:
	//   - source: the panorama to load
	//   - adapterName: the adapter reading it, empty for the configured adapter
	//
	// Returns:
	//   - error: ErrNoPanorama, ErrViewerDestroyed, ErrUnknownAdapter, or nil once the load started
	SetPanorama(source adapter.Source, adapterName string) error

	// Do schedules fn to run on the render loop at the start of the next tick.
	//
	// Parameters:
	//   - fn: the work to run; a panic is reported as an error event
	Do(fn func())
}

// Teardown releases a plugin's resources. The host calls it at most once.
type Teardown func()

// Factory initializes a plugin against the viewer capabilities and returns its teardown.
// Subscriptions made through the provided Viewer are released automatically on teardown.
type Factory func(v Viewer) (Teardown, error)

// Plugin pairs a name with its factory for ordered registration at viewer construction.
type Plugin struct {
	Name    string
	Factory Factory
}

// Registration describes a registered plugin.
type Registration struct {
	ID            uuid.UUID
	Name          string
	Subscriptions []event.Type
}

type registration struct {
	id       uuid.UUID
	name     string
	scope    *scopedViewer
	teardown Teardown
	once     sync.Once
}

type hostImpl struct {
	mu *sync.Mutex

	viewer  Viewer
	bus     event.Bus
	onError func(error)

	closed  bool
	plugins []*registration
}

// Host defines the plugin registry and lifecycle manager.
type Host interface {
	// Register initializes a plugin and records its registration.
	// A factory that fails or panics leaves no subscriptions behind.
	//
	// Parameters:
	//   - name: plugin name used in error reports
	//   - factory: the plugin factory
	//
	// Returns:
	//   - Registration: the plugin identity and subscriptions
	//   - error: a PluginError if the factory failed, ErrViewerDestroyed after TeardownAll
	Register(name string, factory Factory) (Registration, error)

	// Remove tears down a single plugin.
	//
	// Parameters:
	//   - id: the registration identity
	//
	// Returns:
	//   - bool: true if the plugin was registered
	Remove(id uuid.UUID) bool

	// TeardownAll tears down every plugin in reverse registration order and closes the host.
	// Safe to call repeatedly and from within plugin callbacks.
	TeardownAll()

	// Registrations returns the currently registered plugins in registration order.
	//
	// Returns:
	//   - []Registration: registration snapshots
	Registrations() []Registration
}

var _ Host = &hostImpl{}

// NewHost creates a plugin host bound to a viewer and its bus.
//
// Parameters:
//   - v: the viewer capability surface handed to plugins
//   - bus: the bus used for plugin subscriptions
//   - options: functional options to configure the host
//
// Returns:
//   - Host: the newly created host
func NewHost(v Viewer, bus event.Bus, options ...HostBuilderOption) Host {
	h := &hostImpl{
		mu:     &sync.Mutex{},
		viewer: v,
		bus:    bus,
	}

	for _, option := range options {
		option(h)
	}
	return h
}

func (h *hostImpl) Register(name string, factory Factory) (Registration, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return Registration{}, common.ErrViewerDestroyed
	}
	if factory == nil {
		return Registration{}, &common.PluginError{Plugin: name, Err: fmt.Errorf("nil factory")}
	}

	reg := &registration{
		id:   uuid.New(),
		name: name,
	}
	reg.scope = &scopedViewer{Viewer: h.viewer, bus: h.bus, owner: name}

	teardown, err := h.initialize(reg, factory)
	if err != nil {
		reg.scope.release()
		return Registration{}, &common.PluginError{Plugin: name, Err: err}
	}
	reg.teardown = teardown

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.teardown(reg)
		return Registration{}, common.ErrViewerDestroyed
	}
	h.plugins = append(h.plugins, reg)
	h.mu.Unlock()

	return reg.snapshot(), nil
}

func (h *hostImpl) Remove(id uuid.UUID) bool {
	h.mu.Lock()
	idx := slices.IndexFunc(h.plugins, func(r *registration) bool { return r.id == id })
	if idx < 0 {
		h.mu.Unlock()
		return false
	}
	reg := h.plugins[idx]
	h.plugins = slices.Delete(h.plugins, idx, idx+1)
	h.mu.Unlock()

	h.teardown(reg)
	return true
}

func (h *hostImpl) TeardownAll() {
	h.mu.Lock()
	h.closed = true
	plugins := h.plugins
	h.plugins = nil
	h.mu.Unlock()

	for i := len(plugins) - 1; i >= 0; i-- {
		h.teardown(plugins[i])
	}
}

func (h *hostImpl) Registrations() []Registration {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Registration, 0, len(h.plugins))
	for _, r := range h.plugins {
		out = append(out, r.snapshot())
	}
	return out
}

func (h *hostImpl) initialize(reg *registration, factory Factory) (teardown Teardown, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = common.RecoveredError(r)
		}
	}()
	return factory(reg.scope)
}

func (h *hostImpl) teardown(reg *registration) {
	reg.once.Do(func() {
		defer reg.scope.release()
		if reg.teardown == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil && h.onError != nil {
				h.onError(&common.PluginError{Plugin: reg.name, Err: common.RecoveredError(r)})
			}
		}()
		reg.teardown()
	})
}

func (r *registration) snapshot() Registration {
	return Registration{
		ID:            r.id,
		Name:          r.name,
		Subscriptions: r.scope.types(),
	}
}

// scopedViewer records the subscriptions a plugin makes so they can be released on teardown.
type scopedViewer struct {
	Viewer

	bus   event.Bus
	owner string

	mu       sync.Mutex
	released bool
	subs     []scopedSub
}

type scopedSub struct {
	t   event.Type
	off func()
}

func (s *scopedViewer) On(t event.Type, handler event.Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return func() {}
	}
	off := s.bus.OnAs(s.owner, t, handler)
	s.subs = append(s.subs, scopedSub{t: t, off: off})
	return off
}

func (s *scopedViewer) release() {
	s.mu.Lock()
	s.released = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.off()
	}
}

func (s *scopedViewer) types() []event.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Type, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub.t)
	}
	return out
}
