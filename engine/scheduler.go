package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/engine/window"
)

// ErrSchedulerRunning is returned by Start when the scheduler already drives a frame function.
var ErrSchedulerRunning = errors.New("scheduler already running")

// Scheduler invokes a frame function once per display refresh. Each viewer owns its own
// scheduler; nothing is shared between viewer instances.
type Scheduler interface {
	// Start begins invoking frame. Schedulers that own the calling goroutine (WindowScheduler)
	// block until stopped; the others return immediately.
	//
	// Parameters:
	//   - frame: the function to call each tick with the tick time
	//
	// Returns:
	//   - error: ErrSchedulerRunning if already started
	Start(frame func(now time.Time)) error

	// Stop stops scheduling further frames. It never waits for an in-flight frame, so it is
	// safe to call from inside frame. Safe to call more than once.
	Stop()

	// Running reports whether frames are being scheduled.
	//
	// Returns:
	//   - bool: true between Start and Stop
	Running() bool
}

// frameInterval converts a frames-per-second cap into a minimum frame duration; 0 = uncapped.
func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

type windowScheduler struct {
	mu      *sync.Mutex
	window  window.Window
	limit   time.Duration
	running bool
}

var _ Scheduler = &windowScheduler{}

// NewWindowScheduler drives frames from a window's message loop on the calling goroutine,
// which must be the goroutine that created the window.
//
// Parameters:
//   - w: the window whose events are polled between frames
//   - frameLimit: maximum frames per second, 0 = uncapped
//
// Returns:
//   - Scheduler: the scheduler
func NewWindowScheduler(w window.Window, frameLimit float64) Scheduler {
	return &windowScheduler{
		mu:     &sync.Mutex{},
		window: w,
		limit:  frameInterval(frameLimit),
	}
}

func (s *windowScheduler) Start(frame func(now time.Time)) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	s.mu.Unlock()

	defer s.Stop()
	for s.Running() && s.window.PollEvents() {
		start := time.Now()
		frame(start)

		// Frame rate limiting
		if s.limit > 0 {
			if remaining := s.limit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return nil
}

func (s *windowScheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *windowScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

type tickerScheduler struct {
	mu       *sync.Mutex
	interval time.Duration
	quit     chan struct{}
	quitOnce *sync.Once
	running  bool
}

var _ Scheduler = &tickerScheduler{}

// NewTickerScheduler drives frames from a time.Ticker on its own goroutine, for headless viewers.
//
// Parameters:
//   - fps: frames per second; values <= 0 default to 60
//
// Returns:
//   - Scheduler: the scheduler
func NewTickerScheduler(fps float64) Scheduler {
	if fps <= 0 {
		fps = 60
	}
	return &tickerScheduler{
		mu:       &sync.Mutex{},
		interval: frameInterval(fps),
	}
}

func (s *tickerScheduler) Start(frame func(now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	s.running = true
	s.quit = make(chan struct{})
	s.quitOnce = &sync.Once{}

	quit := s.quit
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case now := <-ticker.C:
				// Stop may have raced with the tick.
				select {
				case <-quit:
					return
				default:
				}
				frame(now)
			}
		}
	}()
	return nil
}

func (s *tickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *tickerScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ManualScheduler is driven explicitly by the host through Step. Tests and hosts with their own
// frame loop use it.
type ManualScheduler struct {
	mu      *sync.Mutex
	frame   func(now time.Time)
	running bool
}

var _ Scheduler = &ManualScheduler{}

// NewManualScheduler creates a stopped manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{mu: &sync.Mutex{}}
}

func (s *ManualScheduler) Start(frame func(now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	s.frame = frame
	s.running = true
	return nil
}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *ManualScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Step runs one frame at now if the scheduler is running.
//
// Parameters:
//   - now: the frame time
//
// Returns:
//   - bool: true if a frame ran
func (s *ManualScheduler) Step(now time.Time) bool {
	s.mu.Lock()
	frame, running := s.frame, s.running
	s.mu.Unlock()
	if !running || frame == nil {
		return false
	}
	frame(now)
	return true
}
