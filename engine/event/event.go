// Package event implements the viewer's synchronous publish/subscribe bus.
package event

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
)

// Type names an event.
type Type string

// Lifecycle and interaction events emitted by the viewer.
// Construct, PanoramaReady, FirstRender, BeforeDestroy and Destroyed are delivered once per viewer.
const (
	Construct       Type = "construct"
	PanoramaReady   Type = "adapter-ready"
	PanoramaLoaded  Type = "panorama-loaded"
	LoadFailed      Type = "load-error"
	FirstRender     Type = "first-render"
	BeforeRender    Type = "before-render"
	Render          Type = "render"
	SizeUpdated     Type = "size-updated"
	PositionUpdated Type = "position-updated"
	ZoomUpdated     Type = "zoom-updated"
	Error           Type = "error"
	FatalError      Type = "fatal-error"
	BeforeDestroy   Type = "before-destroy"
	Destroyed       Type = "destroyed"
)

// Event is a single dispatched notification. It is passed by value and never modified after dispatch.
type Event struct {
	Type      Type
	Payload   any
	Timestamp time.Time
}

// Handler receives events.
type Handler func(Event)

type subscription struct {
	id      uint64
	owner   string
	handler Handler
}

type busImpl struct {
	mu *sync.Mutex

	clock   func() time.Time
	onError func(error)

	nextID   uint64
	handlers map[Type][]subscription
	once     map[Type]bool
}

// Bus defines the publish/subscribe surface shared by the viewer, adapters and plugins.
// Dispatch is synchronous and ordered by registration. Each Emit iterates over a snapshot,
// so handlers added during a dispatch are first invoked on the next Emit.
type Bus interface {
	// On subscribes handler to events of type t.
	//
	// Parameters:
	//   - t: the event type
	//   - handler: the callback invoked on every matching event
	//
	// Returns:
	//   - func(): unsubscribe function, safe to call more than once
	On(t Type, handler Handler) func()

	// OnAs subscribes handler on behalf of a named owner. Panics inside the handler are
	// reported as PluginError values carrying the owner name.
	//
	// Parameters:
	//   - owner: the subscribing plugin name
	//   - t: the event type
	//   - handler: the callback invoked on every matching event
	//
	// Returns:
	//   - func(): unsubscribe function, safe to call more than once
	OnAs(owner string, t Type, handler Handler) func()

	// Emit delivers an event to every current subscriber of its type.
	// A handler that panics does not prevent delivery to the remaining subscribers.
	//
	// Parameters:
	//   - t: the event type
	//   - payload: event data, may be nil
	//
	// Returns:
	//   - Event: the dispatched event
	Emit(t Type, payload any) Event

	// EmitOnce behaves like Emit the first time it is called for a type and is a no-op afterwards.
	//
	// Parameters:
	//   - t: the event type
	//   - payload: event data, may be nil
	//
	// Returns:
	//   - bool: true if the event was dispatched
	EmitOnce(t Type, payload any) bool

	// Count returns the number of subscribers to t.
	//
	// Parameters:
	//   - t: the event type
	//
	// Returns:
	//   - int: subscriber count
	Count(t Type) int

	// Clear removes every subscription.
	Clear()
}

var _ Bus = &busImpl{}

// NewBus creates a new event bus.
//
// Parameters:
//   - options: functional options to configure the bus
//
// Returns:
//   - Bus: the newly created bus
func NewBus(options ...BusBuilderOption) Bus {
	b := &busImpl{
		mu:       &sync.Mutex{},
		clock:    time.Now,
		handlers: make(map[Type][]subscription),
		once:     make(map[Type]bool),
	}

	for _, option := range options {
		option(b)
	}
	return b
}

func (b *busImpl) On(t Type, handler Handler) func() {
	return b.OnAs("", t, handler)
}

func (b *busImpl) OnAs(owner string, t Type, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, owner: owner, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(t, id) })
	}
}

func (b *busImpl) Emit(t Type, payload any) Event {
	e := Event{Type: t, Payload: payload, Timestamp: b.clock()}

	b.mu.Lock()
	subs := make([]subscription, len(b.handlers[t]))
	copy(subs, b.handlers[t])
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
	return e
}

func (b *busImpl) EmitOnce(t Type, payload any) bool {
	b.mu.Lock()
	if b.once[t] {
		b.mu.Unlock()
		return false
	}
	b.once[t] = true
	b.mu.Unlock()

	b.Emit(t, payload)
	return true
}

func (b *busImpl) Count(t Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[t])
}

func (b *busImpl) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[Type][]subscription)
}

func (b *busImpl) deliver(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			err := &common.PluginError{Plugin: s.owner, Event: string(e.Type), Err: common.RecoveredError(r)}
			if b.onError != nil && e.Type != Error {
				b.onError(err)
			}
		}
	}()
	s.handler(e)
}

func (b *busImpl) remove(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[t]
	for i, s := range subs {
		if s.id == id {
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.handlers[t] = next
			return
		}
	}
}
