package plugin

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/animation"
	"github.com/Carmen-Shannon/oxy-pano/engine/event"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
)

type stubViewer struct {
	bus event.Bus
}

func (s *stubViewer) ID() string { return "stub" }
func (s *stubViewer) On(t event.Type, h event.Handler) func() {
	return s.bus.On(t, h)
}
func (s *stubViewer) Emit(t event.Type, payload any) { s.bus.Emit(t, payload) }
func (s *stubViewer) Orientation() orientation.State { return orientation.State{} }
func (s *stubViewer) SetOrientation(animation.Target) {}
func (s *stubViewer) CancelAnimation(animation.Handle) bool { return false }
func (s *stubViewer) SetPanorama(adapter.Source, string) error { return nil }
func (s *stubViewer) Do(fn func()) { fn() }
func (s *stubViewer) AnimateTo(animation.Target, time.Duration, animation.EasingFunc, func()) animation.Handle {
	return 0
}

func newHost(options ...HostBuilderOption) (Host, event.Bus) {
	bus := event.NewBus()
	return NewHost(&stubViewer{bus: bus}, bus, options...), bus
}

func TestRegisterTracksSubscriptions(t *testing.T) {
	t.Parallel()

	h, bus := newHost()
	renders := 0
	reg, err := h.Register("counter", func(v Viewer) (Teardown, error) {
		v.On(event.Render, func(event.Event) { renders++ })
		v.On(event.SizeUpdated, func(event.Event) {})
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(reg.Subscriptions) != 2 || reg.Subscriptions[0] != event.Render {
		t.Fatalf("unexpected subscriptions %v", reg.Subscriptions)
	}

	bus.Emit(event.Render, nil)
	if !h.Remove(reg.ID) {
		t.Fatalf("Remove returned false")
	}
	bus.Emit(event.Render, nil)

	if renders != 1 {
		t.Fatalf("renders = %d, want 1", renders)
	}
	if bus.Count(event.Render) != 0 || bus.Count(event.SizeUpdated) != 0 {
		t.Fatalf("plugin subscriptions survived removal")
	}
	if h.Remove(reg.ID) {
		t.Fatalf("second Remove returned true")
	}
}

func TestTeardownAllReverseOrderExactlyOnce(t *testing.T) {
	t.Parallel()

	h, _ := newHost()
	var order []string
	counts := map[string]int{}
	for _, name := range []string{"a", "b", "c"} {
		_, err := h.Register(name, func(Viewer) (Teardown, error) {
			return func() {
				order = append(order, name)
				counts[name]++
			}, nil
		})
		if err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	h.TeardownAll()
	h.TeardownAll()

	if len(order) != 3 || order[0] != "c" || order[2] != "a" {
		t.Fatalf("teardown order = %v", order)
	}
	for name, n := range counts {
		if n != 1 {
			t.Fatalf("%s torn down %d times", name, n)
		}
	}
	if _, err := h.Register("late", func(Viewer) (Teardown, error) { return nil, nil }); !errors.Is(err, common.ErrViewerDestroyed) {
		t.Fatalf("expected ErrViewerDestroyed, got %v", err)
	}
}

func TestTeardownReentrant(t *testing.T) {
	t.Parallel()

	h, _ := newHost()
	calls := 0
	_, err := h.Register("self", func(Viewer) (Teardown, error) {
		return func() {
			calls++
			h.TeardownAll()
		}, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	h.TeardownAll()
	if calls != 1 {
		t.Fatalf("teardown calls = %d", calls)
	}
}

func TestFailingFactoryLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	h, bus := newHost()
	_, err := h.Register("broken", func(v Viewer) (Teardown, error) {
		v.On(event.Render, func(event.Event) {})
		return nil, errors.New("no")
	})
	var pe *common.PluginError
	if !errors.As(err, &pe) || pe.Plugin != "broken" {
		t.Fatalf("expected PluginError, got %v", err)
	}
	if bus.Count(event.Render) != 0 {
		t.Fatalf("failed plugin left a subscription")
	}

	_, err = h.Register("panics", func(v Viewer) (Teardown, error) {
		v.On(event.Render, func(event.Event) {})
		panic("factory")
	})
	if !errors.As(err, &pe) {
		t.Fatalf("expected PluginError for panicking factory, got %v", err)
	}
	if bus.Count(event.Render) != 0 || len(h.Registrations()) != 0 {
		t.Fatalf("panicking plugin left state behind")
	}
}

func TestPanickingTeardownIsReported(t *testing.T) {
	t.Parallel()

	var reported []error
	h, bus := newHost(WithErrorHandler(func(err error) { reported = append(reported, err) }))
	_, err := h.Register("grumpy", func(v Viewer) (Teardown, error) {
		v.On(event.Render, func(event.Event) {})
		return func() { panic("teardown") }, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	h.TeardownAll()
	if len(reported) != 1 {
		t.Fatalf("reported %d errors, want 1", len(reported))
	}
	if bus.Count(event.Render) != 0 {
		t.Fatalf("subscriptions not released after panicking teardown")
	}
}

func TestSubscriptionAfterTeardownIsIgnored(t *testing.T) {
	t.Parallel()

	h, bus := newHost()
	var captured Viewer
	reg, err := h.Register("leaky", func(v Viewer) (Teardown, error) {
		captured = v
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	h.Remove(reg.ID)

	captured.On(event.Render, func(event.Event) {})
	if bus.Count(event.Render) != 0 {
		t.Fatalf("subscription made after teardown was registered")
	}
}
