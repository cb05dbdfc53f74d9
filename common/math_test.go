package common

import (
	"errors"
	"math"
	"testing"
)

func TestWrapAngle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"full turn", TwoPi, 0},
		{"negative", -math.Pi / 2, 3 * math.Pi / 2},
		{"many turns", 10*TwoPi + 1, 1},
		{"many negative turns", -10*TwoPi - 1, TwoPi - 1},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
	}
	for _, tc := range cases {
		got := WrapAngle(tc.in)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: WrapAngle(%v) = %v, want %v", tc.name, tc.in, got, tc.want)
		}
		if got < 0 || got >= TwoPi {
			t.Fatalf("%s: WrapAngle(%v) = %v out of [0, 2π)", tc.name, tc.in, got)
		}
	}
}

func TestWrapAngleTinyNegative(t *testing.T) {
	t.Parallel()

	got := WrapAngle(-1e-18)
	if got < 0 || got >= TwoPi {
		t.Fatalf("WrapAngle(-1e-18) = %v out of range", got)
	}
}

func TestShortestAngleDelta(t *testing.T) {
	t.Parallel()

	d := ShortestAngleDelta(0.1, TwoPi-0.1)
	if math.Abs(d-(-0.2)) > 1e-9 {
		t.Fatalf("expected -0.2, got %v", d)
	}
	d = ShortestAngleDelta(TwoPi-0.1, 0.1)
	if math.Abs(d-0.2) > 1e-9 {
		t.Fatalf("expected 0.2, got %v", d)
	}
	d = ShortestAngleDelta(0, math.Pi)
	if d != math.Pi {
		t.Fatalf("expected a half-turn to resolve to +π, got %v", d)
	}
	d = ShortestAngleDelta(0, math.Pi/2)
	if math.Abs(d-math.Pi/2) > 1e-9 {
		t.Fatalf("expected π/2, got %v", d)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	if Clamp(5, 0, 1) != 1 || Clamp(-5, 0, 1) != 0 || Clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("clamp returned unexpected values")
	}
	if Clamp(math.NaN(), -1, 1) != -1 {
		t.Fatalf("NaN should clamp to the lower bound")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	var err error = &LoadError{Adapter: "equirectangular", Source: "a.jpg", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("LoadError does not unwrap to cause")
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Adapter != "equirectangular" {
		t.Fatalf("errors.As failed for LoadError")
	}

	err = &PluginError{Plugin: "markers", Event: "render", Err: RecoveredError("bad")}
	if err.Error() != "plugin markers on render: panic: bad" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
