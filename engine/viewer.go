// Package engine composes the panorama viewer: orientation, animation, input, adapters,
// the renderer and the plugin host, driven one tick at a time by a Scheduler.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/animation"
	"github.com/Carmen-Shannon/oxy-pano/engine/camera"
	"github.com/Carmen-Shannon/oxy-pano/engine/event"
	"github.com/Carmen-Shannon/oxy-pano/engine/input"
	"github.com/Carmen-Shannon/oxy-pano/engine/loader"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/Carmen-Shannon/oxy-pano/engine/plugin"
	"github.com/Carmen-Shannon/oxy-pano/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pano/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pano/engine/window"
	"github.com/Carmen-Shannon/oxy-pano/internal/log"
	"github.com/google/uuid"
)

// FrameInfo is the payload of BeforeRender and Render events.
type FrameInfo struct {
	Frame       uint64
	Time        time.Time
	Delta       time.Duration
	Orientation orientation.State
}

// SizeInfo is the payload of SizeUpdated events.
type SizeInfo struct {
	Width  int
	Height int
}

// PanoramaInfo is the payload of PanoramaReady and PanoramaLoaded events.
type PanoramaInfo struct {
	Adapter string
	Source  adapter.Source
}

type loadResult struct {
	gen     uint64
	name    string
	source  adapter.Source
	adapter adapter.Adapter
	factory adapter.DrawableFactory
	err     error
}

// viewerImpl is the implementation of the Viewer interface.
type viewerImpl struct {
	mu *sync.Mutex

	id    uuid.UUID
	cfg   Config
	clock func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	orientation orientation.Orientation
	animator    animation.Animator
	input       input.Controller
	bus         event.Bus
	host        plugin.Host
	registry    adapter.Registry
	loader      loader.Loader
	renderer    renderer.Renderer
	camera      camera.Camera
	scheduler   Scheduler
	profiler    *profiler.Profiler

	// Pre-creation state collected from builder options
	window      window.Window
	surface     renderer.Surface
	ownLoader   bool
	ownRenderer bool
	easing      animation.EasingFunc

	// Panorama state
	adapter     adapter.Adapter
	adapterName string
	source      adapter.Source
	factory     adapter.DrawableFactory
	loadGen     uint64
	loadCancel  context.CancelFunc
	completed   []loadResult

	ready     chan struct{}
	readyOnce *sync.Once
	readyErr  error

	// Tick state
	queue       []func()
	ticking     bool
	lastTick    time.Time
	lastState   orientation.State
	lastRev     uint64
	needsRender bool
	failures    int
	halted      bool
	haltErr     error
	frame       uint64

	// destroying is set by the first Destroy call, destroyed once BeforeDestroy was delivered.
	destroying bool
	destroyed  bool
}

// Viewer is a single panorama viewer instance. Viewers share no state with each other.
//
// Orientation is written by the animator, the input controller and SetOrientation, and read by the
// render loop. Work from other goroutines can be funnelled onto the render loop with Do.
type Viewer interface {
	plugin.Viewer

	// WaitReady blocks until the first panorama finished loading.
	//
	// Parameters:
	//   - ctx: context bounding the wait
	//
	// Returns:
	//   - error: nil once loaded, the *common.LoadError if loading failed, ctx.Err() or ErrViewerDestroyed
	WaitReady(ctx context.Context) error

	// Input returns the input controller hosts forward platform events to.
	//
	// Returns:
	//   - input.Controller: the controller
	Input() input.Controller

	// Camera returns the virtual camera, positioned from the orientation on every rendered frame.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Renderer returns the renderer the viewer draws with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Plugins returns the plugin host, for registering or removing plugins after construction.
	//
	// Returns:
	//   - plugin.Host: the host
	Plugins() plugin.Host

	// Resize changes the viewport size and publishes SizeUpdated.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	Resize(width, height int)

	// Tick runs one frame of the render loop at now.
	//
	// Parameters:
	//   - now: the frame time
	//
	// Returns:
	//   - bool: true if a frame was rendered
	Tick(now time.Time) bool

	// Run starts the scheduler. With a window scheduler it blocks until the window closes or Stop
	// is called; other schedulers return immediately.
	//
	// Returns:
	//   - error: ErrViewerDestroyed, the scheduler start error, or the fatal render error that halted the loop
	Run() error

	// Stop stops the scheduler. Ticks can still be driven manually.
	Stop()

	// Destroy tears the viewer down: animations are cancelled, plugins torn down, the scheduler
	// stopped and every adapter disposed. Safe to call more than once and from inside a tick.
	Destroy()
}

var _ Viewer = &viewerImpl{}

// NewViewer creates a viewer, registers its plugins, emits Construct and starts loading the
// configured panorama in the background.
//
// Parameters:
//   - options: functional options applied on top of DefaultConfig
//
// Returns:
//   - Viewer: the new viewer
//   - error: a *common.ConfigError for invalid options, or an error creating the renderer
func NewViewer(options ...ViewerBuilderOption) (Viewer, error) {
	v := &viewerImpl{
		mu:        &sync.Mutex{},
		id:        uuid.New(),
		cfg:       DefaultConfig(),
		clock:     time.Now,
		ready:     make(chan struct{}),
		readyOnce: &sync.Once{},
	}
	for _, option := range options {
		option(v)
	}

	if err := v.cfg.Validate(); err != nil {
		return nil, err
	}
	if v.registry == nil {
		v.registry = adapter.DefaultRegistry()
	}
	if !v.registry.Has(v.cfg.Adapter) {
		return nil, &common.ConfigError{Field: "adapter", Reason: fmt.Sprintf("%q is not registered", v.cfg.Adapter), Err: common.ErrUnknownAdapter}
	}
	if v.cfg.DefaultEasing != "" {
		v.easing, _ = animation.EasingByName(v.cfg.DefaultEasing)
	}

	if err := v.createRenderer(); err != nil {
		return nil, err
	}
	if v.loader == nil {
		v.loader = loader.NewLoader(loader.BackendTypeImage)
		v.ownLoader = true
	}

	v.ctx, v.cancel = context.WithCancel(context.Background())
	v.bus = event.NewBus(event.WithClock(v.clock), event.WithErrorHandler(v.reportError))

	v.orientation = orientation.NewOrientation(
		orientation.WithYaw(v.cfg.DefaultYaw),
		orientation.WithPitch(v.cfg.DefaultPitch),
		orientation.WithZoom(v.cfg.DefaultZoom),
		orientation.WithPitchRange(v.cfg.MinPitch, v.cfg.MaxPitch),
		orientation.WithFovRange(v.cfg.MinFov, v.cfg.MaxFov),
		orientation.WithZoomScaledPan(v.cfg.ZoomScaledPan),
	)
	v.animator = animation.NewAnimator(v.orientation, animation.WithClock(v.clock))
	v.input = input.NewController(v.orientation,
		input.WithMoveSpeed(v.cfg.MoveSpeed),
		input.WithWheelSpeed(v.cfg.ZoomSpeed),
		input.WithPinchSensitivity(v.cfg.PinchSensitivity),
		input.WithKeyboardSpeed(v.cfg.KeyboardPanSpeed, v.cfg.KeyboardZoomSpeed),
		input.WithInertia(v.cfg.MoveInertia.Enabled, v.cfg.MoveInertia.Decay),
		input.WithInertiaThreshold(v.cfg.InertiaThreshold),
		input.WithTouchmoveTwoFingers(v.cfg.TouchmoveTwoFingers),
		input.WithAnimationCanceller(v.animator),
	)

	state := v.orientation.State()
	v.camera = v.renderer.CreateCamera(camera.WithRotation(state.Yaw, state.Pitch, state.Roll))
	v.camera.Update(state)
	v.lastState = state
	v.lastRev = v.orientation.Revision()
	v.needsRender = true

	if v.scheduler == nil {
		if v.window != nil {
			v.scheduler = NewWindowScheduler(v.window, v.cfg.FrameLimit)
		} else {
			v.scheduler = NewTickerScheduler(v.cfg.FrameLimit)
		}
	}
	if v.cfg.Profiling {
		v.profiler = profiler.NewProfiler()
	}

	v.host = plugin.NewHost(v, v.bus, plugin.WithErrorHandler(v.reportError))
	for _, p := range v.cfg.Plugins {
		if _, err := v.host.Register(p.Name, p.Factory); err != nil {
			v.Destroy()
			return nil, err
		}
	}
	if v.window != nil {
		BindWindow(v, v.window)
	}

	v.logger().Info("viewer created",
		"adapter", v.cfg.Adapter,
		"renderer", v.renderer.Type().String(),
		"plugins", len(v.cfg.Plugins),
	)
	v.bus.EmitOnce(event.Construct, v.ID())

	if !v.cfg.Panorama.Empty() {
		if err := v.SetPanorama(v.cfg.Panorama, v.cfg.Adapter); err != nil {
			v.Destroy()
			return nil, err
		}
	}
	return v, nil
}

// Open creates a viewer and waits for its first panorama. The viewer is destroyed when loading fails.
//
// Parameters:
//   - ctx: context bounding the initial load
//   - options: functional options applied on top of DefaultConfig
//
// Returns:
//   - Viewer: the ready viewer
//   - error: a *common.ConfigError, the *common.LoadError of the initial load, or ctx.Err()
func Open(ctx context.Context, options ...ViewerBuilderOption) (Viewer, error) {
	v, err := NewViewer(options...)
	if err != nil {
		return nil, err
	}
	if err := v.WaitReady(ctx); err != nil {
		v.Destroy()
		return nil, err
	}
	return v, nil
}

func (v *viewerImpl) createRenderer() error {
	if v.renderer != nil {
		return nil
	}

	var (
		backend renderer.RendererBackendType
		surface renderer.Surface
	)
	switch v.cfg.Renderer {
	case RendererWGPU:
		backend = renderer.BackendTypeWGPU
		surface = v.surface
		if surface == nil && v.window != nil {
			surface = v.window
		}
		if surface == nil {
			return &common.ConfigError{Field: "renderer", Reason: "the wgpu renderer needs a window or surface"}
		}
	default:
		backend = renderer.BackendTypeSoftware
	}

	options := []renderer.RendererBuilderOption{}
	if surface == nil {
		options = append(options, renderer.WithSize(v.cfg.Size.Width, v.cfg.Size.Height))
	}
	if v.cfg.FrameLimit == 0 {
		options = append(options, renderer.WithPresentMode(renderer.PresentModeUncapped))
	}

	r, err := renderer.NewRenderer(backend, surface, options...)
	if err != nil {
		return fmt.Errorf("create %s renderer: %w", v.cfg.Renderer, err)
	}
	v.renderer = r
	v.ownRenderer = true
	return nil
}

func (v *viewerImpl) logger() *slog.Logger {
	return log.Component("viewer").With("viewer", v.id.String())
}

func (v *viewerImpl) ID() string {
	return v.id.String()
}

func (v *viewerImpl) On(t event.Type, handler event.Handler) func() {
	return v.bus.On(t, handler)
}

func (v *viewerImpl) Emit(t event.Type, payload any) {
	v.bus.Emit(t, payload)
}

func (v *viewerImpl) Orientation() orientation.State {
	return v.orientation.State()
}

func (v *viewerImpl) SetOrientation(target animation.Target) {
	if v.isDestroyed() || len(target) == 0 {
		return
	}
	dims := make([]orientation.Dimension, 0, len(target))
	for d := range target {
		dims = append(dims, d)
	}
	v.animator.CancelDimensions(dims...)
	for d, value := range target {
		v.orientation.Set(d, value)
	}
}

func (v *viewerImpl) AnimateTo(target animation.Target, duration time.Duration, easing animation.EasingFunc, onComplete func()) animation.Handle {
	if v.isDestroyed() {
		return 0
	}
	if easing == nil {
		easing = v.easing
	}
	return v.animator.AnimateTo(target, duration, easing, onComplete)
}

func (v *viewerImpl) CancelAnimation(h animation.Handle) bool {
	return v.animator.Cancel(h)
}

func (v *viewerImpl) SetPanorama(source adapter.Source, adapterName string) error {
	if adapterName == "" {
		adapterName = v.cfg.Adapter
	}
	if source.Empty() {
		return common.ErrNoPanorama
	}

	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return common.ErrViewerDestroyed
	}
	a, err := v.registry.New(adapterName, v.loader)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	if v.loadCancel != nil {
		v.loadCancel()
	}
	v.loadGen++
	gen := v.loadGen
	ctx, cancel := context.WithCancel(v.ctx)
	v.loadCancel = cancel
	v.mu.Unlock()

	v.logger().Debug("loading panorama", "adapter", adapterName, "source", source.String(), "generation", gen)
	go v.load(ctx, gen, a, adapterName, source)
	return nil
}

// load runs an adapter load off the render loop and queues the result for the next tick.
func (v *viewerImpl) load(ctx context.Context, gen uint64, a adapter.Adapter, name string, source adapter.Source) {
	factory, err := a.Load(ctx, source)
	if err != nil {
		var le *common.LoadError
		if !errors.As(err, &le) {
			err = &common.LoadError{Adapter: name, Source: source.String(), Err: err}
		}
	}

	v.mu.Lock()
	if v.destroyed || gen != v.loadGen {
		v.mu.Unlock()
		if derr := a.Dispose(); derr != nil {
			v.logger().Warn("dispose superseded adapter", "adapter", name, "error", derr)
		}
		return
	}
	v.completed = append(v.completed, loadResult{
		gen:     gen,
		name:    name,
		source:  source,
		adapter: a,
		factory: factory,
		err:     err,
	})
	v.needsRender = true
	v.mu.Unlock()

	v.resolveReady(err)
}

func (v *viewerImpl) resolveReady(err error) {
	v.readyOnce.Do(func() {
		v.readyErr = err
		close(v.ready)
	})
}

func (v *viewerImpl) WaitReady(ctx context.Context) error {
	select {
	case <-v.ready:
		return v.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *viewerImpl) Do(fn func()) {
	if fn == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return
	}
	v.queue = append(v.queue, fn)
}

func (v *viewerImpl) Input() input.Controller {
	return v.input
}

func (v *viewerImpl) Camera() camera.Camera {
	return v.camera
}

func (v *viewerImpl) Renderer() renderer.Renderer {
	return v.renderer
}

func (v *viewerImpl) Plugins() plugin.Host {
	return v.host
}

func (v *viewerImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 || v.isDestroyed() {
		return
	}
	v.renderer.Resize(width, height)
	v.camera.SetAspect(float32(width) / float32(height))

	v.mu.Lock()
	v.needsRender = true
	v.mu.Unlock()

	v.bus.Emit(event.SizeUpdated, SizeInfo{Width: width, Height: height})
}

func (v *viewerImpl) Run() error {
	if v.isDestroyed() {
		return common.ErrViewerDestroyed
	}
	v.mu.Lock()
	if v.halted {
		v.mu.Unlock()
		return v.haltErr
	}
	v.mu.Unlock()

	if err := v.scheduler.Start(func(now time.Time) { v.Tick(now) }); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.halted {
		return v.haltErr
	}
	return nil
}

func (v *viewerImpl) Stop() {
	v.scheduler.Stop()
}

func (v *viewerImpl) Destroy() {
	v.mu.Lock()
	if v.destroying {
		v.mu.Unlock()
		return
	}
	v.destroying = true
	v.mu.Unlock()

	v.bus.EmitOnce(event.BeforeDestroy, v.ID())

	v.mu.Lock()
	v.destroyed = true
	active := v.adapter
	pending := v.completed
	loadCancel := v.loadCancel
	v.adapter, v.factory, v.completed, v.queue = nil, nil, nil, nil
	v.mu.Unlock()

	if v.scheduler != nil {
		v.scheduler.Stop()
	}
	if v.animator != nil {
		v.animator.CancelAll()
	}
	if v.input != nil {
		v.input.Reset()
	}
	if v.host != nil {
		v.host.TeardownAll()
	}

	if loadCancel != nil {
		loadCancel()
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.dispose(active, v.adapterName)
	for _, r := range pending {
		v.dispose(r.adapter, r.name)
	}

	v.bus.EmitOnce(event.Destroyed, v.ID())
	v.bus.Clear()

	if v.ownRenderer && v.renderer != nil {
		v.renderer.Release()
	}
	if v.ownLoader && v.loader != nil {
		v.loader.Release()
	}
	v.resolveReady(common.ErrViewerDestroyed)
	v.logger().Info("viewer destroyed", "frames", v.frameCount())
}

func (v *viewerImpl) dispose(a adapter.Adapter, name string) {
	if a == nil {
		return
	}
	if err := a.Dispose(); err != nil {
		v.logger().Warn("dispose adapter", "adapter", name, "error", err)
	}
}

// reportError publishes failures raised by plugin handlers and teardowns.
func (v *viewerImpl) reportError(err error) {
	v.logger().Warn("plugin failure", "error", err)
	v.bus.Emit(event.Error, err)
}

func (v *viewerImpl) isDestroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

func (v *viewerImpl) frameCount() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}
