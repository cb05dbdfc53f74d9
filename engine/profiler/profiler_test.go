package profiler

import (
	"testing"
	"time"
)

func TestTickSamplesOncePerInterval(t *testing.T) {
	now := time.Unix(100, 0)
	var samples []Stats
	p := NewProfiler(
		WithClock(func() time.Time { return now }),
		WithInterval(500*time.Millisecond),
		WithMemStats(false),
		WithSampleHandler(func(s Stats) { samples = append(samples, s) }),
	)

	for i := 0; i < 9; i++ {
		now = now.Add(50 * time.Millisecond)
		if p.Tick() {
			t.Fatalf("sampled after %d frames", i+1)
		}
	}
	p.Skip()
	now = now.Add(50 * time.Millisecond)
	if !p.Tick() {
		t.Fatalf("no sample after the interval elapsed")
	}

	if len(samples) != 1 {
		t.Fatalf("samples = %d", len(samples))
	}
	s := p.Last()
	if s.Frames != 10 || s.FPS != 20 || s.SkippedTicks != 1 {
		t.Fatalf("stats = %+v", s)
	}

	now = now.Add(10 * time.Millisecond)
	if p.Tick() {
		t.Fatalf("counter was not reset")
	}
}
