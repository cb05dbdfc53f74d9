package event

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/oxy-pano/common"
)

func TestEmitRegistrationOrder(t *testing.T) {
	t.Parallel()

	b := NewBus()
	var got []int
	for i := 0; i < 5; i++ {
		b.On(Render, func(Event) { got = append(got, i) })
	}
	b.Emit(Render, nil)

	if !reflect.DeepEqual(got, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("delivery order = %v", got)
	}
}

func TestSnapshotSemantics(t *testing.T) {
	t.Parallel()

	b := NewBus()
	late := 0
	b.On(Render, func(Event) {
		b.On(Render, func(Event) { late++ })
	})

	b.Emit(Render, nil)
	if late != 0 {
		t.Fatalf("handler added during dispatch was invoked in the same dispatch")
	}
	b.Emit(Render, nil)
	if late != 1 {
		t.Fatalf("late handler calls = %d, want 1", late)
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBus()
	calls := 0
	off := b.On(ZoomUpdated, func(Event) { calls++ })
	b.Emit(ZoomUpdated, nil)
	off()
	off()
	b.Emit(ZoomUpdated, nil)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if b.Count(ZoomUpdated) != 0 {
		t.Fatalf("subscription not removed")
	}
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	t.Parallel()

	var reported []error
	b := NewBus(WithErrorHandler(func(err error) { reported = append(reported, err) }))
	second := false
	b.OnAs("broken", Render, func(Event) { panic("boom") })
	b.On(Render, func(Event) { second = true })

	b.Emit(Render, 42)

	if !second {
		t.Fatalf("subscriber after a panicking handler was not invoked")
	}
	if len(reported) != 1 {
		t.Fatalf("reported %d errors, want 1", len(reported))
	}
	var pe *common.PluginError
	if !errors.As(reported[0], &pe) || pe.Plugin != "broken" || pe.Event != string(Render) {
		t.Fatalf("unexpected error %v", reported[0])
	}
}

func TestPanicDuringErrorDispatchIsNotReported(t *testing.T) {
	t.Parallel()

	reports := 0
	b := NewBus(WithErrorHandler(func(error) { reports++ }))
	b.On(Error, func(Event) { panic("again") })

	b.Emit(Error, errors.New("x"))
	if reports != 0 {
		t.Fatalf("panic in error handler was re-reported")
	}
}

func TestEmitOnce(t *testing.T) {
	t.Parallel()

	b := NewBus()
	calls := 0
	b.On(FirstRender, func(Event) { calls++ })

	if !b.EmitOnce(FirstRender, nil) {
		t.Fatalf("first EmitOnce returned false")
	}
	if b.EmitOnce(FirstRender, nil) {
		t.Fatalf("second EmitOnce returned true")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
