package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/loader"
	"github.com/Carmen-Shannon/oxy-pano/engine/plugin"
	"github.com/Carmen-Shannon/oxy-pano/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pano/engine/window"
)

// ViewerBuilderOption is a functional option for configuring a Viewer.
// Options are applied in order on top of DefaultConfig; the result is validated by NewViewer.
type ViewerBuilderOption func(*viewerImpl)

// WithConfig replaces the whole configuration, for example with one read by LoadConfig.
// Options applied after it still override individual fields.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithConfig(cfg Config) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg = cfg
	}
}

// WithPanorama sets the panorama loaded at construction.
//
// Parameters:
//   - src: the panorama source
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithPanorama(src adapter.Source) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.Panorama = src
	}
}

// WithAdapter selects the adapter by registry name.
//
// Parameters:
//   - name: the adapter name, e.g. adapter.Equirectangular
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithAdapter(name string) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.Adapter = name
	}
}

// WithPlugin appends a plugin. Plugins are registered in the order they were added.
//
// Parameters:
//   - name: the plugin name used in error reports
//   - factory: the plugin factory
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithPlugin(name string, factory plugin.Factory) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.Plugins = append(v.cfg.Plugins, plugin.Plugin{Name: name, Factory: factory})
	}
}

// WithDefaultYaw sets the initial yaw in radians.
func WithDefaultYaw(yaw float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.DefaultYaw = yaw
	}
}

// WithDefaultPitch sets the initial pitch in radians.
func WithDefaultPitch(pitch float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.DefaultPitch = pitch
	}
}

// WithDefaultZoom sets the initial zoom level in [0, 100].
func WithDefaultZoom(zoom float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.DefaultZoom = zoom
	}
}

// WithFovRange sets the field of view bounds in degrees. Zoom 0 maps to max and zoom 100 to min.
func WithFovRange(min, max float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.MinFov, v.cfg.MaxFov = min, max
	}
}

// WithPitchRange sets the pitch bounds in radians.
func WithPitchRange(min, max float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.MinPitch, v.cfg.MaxPitch = min, max
	}
}

// WithMoveSpeed sets the drag sensitivity in radians per pixel.
func WithMoveSpeed(k float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.MoveSpeed = k
	}
}

// WithMoveInertia configures post-drag inertia.
//
// Parameters:
//   - enabled: whether releasing a fast drag keeps the view moving
//   - decay: exponential decay rate per second, 0 keeps the default
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithMoveInertia(enabled bool, decay float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.MoveInertia.Enabled = enabled
		if decay > 0 {
			v.cfg.MoveInertia.Decay = decay
		}
	}
}

// WithTouchmoveTwoFingers requires two fingers to pan on touch screens.
func WithTouchmoveTwoFingers(enabled bool) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.TouchmoveTwoFingers = enabled
	}
}

// WithDefaultEasing names the easing used by AnimateTo when none is passed.
func WithDefaultEasing(name string) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.DefaultEasing = name
	}
}

// WithSize sets the viewport size used by the software renderer.
//
// Parameters:
//   - width, height: the size in pixels
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithSize(width, height int) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.Size = Size{Width: width, Height: height}
	}
}

// WithFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the loop.
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithFrameLimit(fps float64) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.FrameLimit = fps
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithProfiling(enabled bool) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.cfg.Profiling = enabled
	}
}

// WithWindow renders into a window with the WebGPU backend, drives frames from its message loop
// and forwards its input through BindWindow.
//
// Parameters:
//   - w: a window created with window.NewWindow
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithWindow(w window.Window) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.window = w
		v.cfg.Renderer = RendererWGPU
		v.cfg.Size = Size{Width: w.Width(), Height: w.Height()}
	}
}

// WithSurface sets the presentation target for the WebGPU renderer without binding window input.
func WithSurface(s renderer.Surface) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.surface = s
	}
}

// WithRenderer injects a renderer. The viewer does not release injected renderers.
func WithRenderer(r renderer.Renderer) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.renderer = r
	}
}

// WithScheduler injects the frame scheduler. Defaults to a window scheduler when a window is set
// and to a ticker scheduler otherwise.
func WithScheduler(s Scheduler) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.scheduler = s
	}
}

// WithClock replaces time.Now for animation start times and event timestamps.
// Tick times must come from the same source.
func WithClock(clock func() time.Time) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// WithRegistry replaces the adapter registry. Defaults to adapter.DefaultRegistry.
func WithRegistry(r adapter.Registry) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.registry = r
	}
}

// WithLoader injects the image loader shared by adapters. The viewer does not release injected loaders.
func WithLoader(l loader.Loader) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.loader = l
	}
}
