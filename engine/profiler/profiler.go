// Package profiler samples frame rate and memory statistics of the render loop.
package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/internal/log"
)

// Stats is one profiler sample covering a single update interval.
type Stats struct {
	FPS          float64
	Frames       int
	HeapMB       float64
	AllocRateMB  float64
	SysMB        float64
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
	Interval     time.Duration
	SkippedTicks int
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	skipped        int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats

	now      func() time.Time
	readMem  bool
	onSample func(Stats)
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithInterval sets how often samples are taken. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithMemStats toggles runtime.ReadMemStats on each sample. It stops the world briefly, so
// it can be disabled for very high frame rates.
func WithMemStats(enabled bool) Option {
	return func(p *Profiler) {
		p.readMem = enabled
	}
}

// WithSampleHandler registers a function receiving every sample, in addition to the log line.
func WithSampleHandler(fn func(Stats)) Option {
	return func(p *Profiler) {
		p.onSample = fn
	}
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...Option) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		updateInterval: time.Second,
		now:            time.Now,
		readMem:        true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Skip records a loop iteration that did not render, for example because nothing changed.
func (p *Profiler) Skip() {
	p.mu.Lock()
	p.skipped++
	p.mu.Unlock()
}

// Tick should be called once per rendered frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		p.mu.Unlock()
		return false
	}

	s := Stats{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		Frames:       p.frameCount,
		Interval:     elapsed,
		SkippedTicks: p.skipped,
	}

	if p.readMem {
		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
		s.SysMB = float64(p.memStats.Sys) / 1024 / 1024
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		s.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		gcCount := p.memStats.NumGC
		s.GCCount = gcCount
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			s.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
					s.MaxPauseUs = pause
				}
			}
		}
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
	}

	p.frameCount = 0
	p.skipped = 0
	p.lastTime = currentTime
	p.last = s
	onSample := p.onSample
	p.mu.Unlock()

	log.Component("profiler").Info("frame stats",
		"fps", s.FPS,
		"skipped", s.SkippedTicks,
		"heapMB", s.HeapMB,
		"allocRateMB", s.AllocRateMB,
		"gc", s.GCCount,
		"lastPauseUs", s.LastPauseUs,
		"maxPauseUs", s.MaxPauseUs,
		"sysMB", s.SysMB,
	)
	if onSample != nil {
		onSample(s)
	}
	return true
}

// Last returns the most recent sample. The zero value is returned before the first interval elapsed.
func (p *Profiler) Last() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
