package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-pano/common"
	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/animation"
	"github.com/Carmen-Shannon/oxy-pano/engine/plugin"
	"gopkg.in/yaml.v3"
)

// Renderer names accepted by Config.Renderer.
const (
	RendererSoftware = "software"
	RendererWGPU     = "wgpu"
)

// Inertia configures post-drag inertia. In YAML it is written either as a boolean or as a
// decay rate per second, where a positive number enables inertia with that decay.
type Inertia struct {
	Enabled bool
	Decay   float64
}

func (i *Inertia) UnmarshalYAML(node *yaml.Node) error {
	var enabled bool
	if err := node.Decode(&enabled); err == nil {
		i.Enabled = enabled
		return nil
	}
	var decay float64
	if err := node.Decode(&decay); err != nil {
		return fmt.Errorf("line %d: moveInertia must be a boolean or a decay rate", node.Line)
	}
	i.Enabled = decay != 0
	i.Decay = decay
	return nil
}

func (i Inertia) MarshalYAML() (any, error) {
	if !i.Enabled || i.Decay == 0 {
		return i.Enabled, nil
	}
	return i.Decay, nil
}

// Size is a viewport size in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config holds every viewer construction option. Angles are radians except the field of view
// bounds, which are degrees.
type Config struct {
	Panorama adapter.Source  `yaml:"panorama"`
	Adapter  string          `yaml:"adapter"`
	Plugins  []plugin.Plugin `yaml:"-"`

	DefaultYaw   float64 `yaml:"defaultYaw"`
	DefaultPitch float64 `yaml:"defaultPitch"`
	DefaultZoom  float64 `yaml:"defaultZoom"`
	MinFov       float64 `yaml:"minFov"`
	MaxFov       float64 `yaml:"maxFov"`
	MinPitch     float64 `yaml:"minPitch"`
	MaxPitch     float64 `yaml:"maxPitch"`

	MoveSpeed           float64 `yaml:"moveSpeed"`
	ZoomSpeed           float64 `yaml:"zoomSpeed"`
	KeyboardPanSpeed    float64 `yaml:"keyboardPanSpeed"`
	KeyboardZoomSpeed   float64 `yaml:"keyboardZoomSpeed"`
	MoveInertia         Inertia `yaml:"moveInertia"`
	InertiaThreshold    float64 `yaml:"inertiaThreshold"`
	PinchSensitivity    float64 `yaml:"pinchSensitivity"`
	TouchmoveTwoFingers bool    `yaml:"touchmoveTwoFingers"`
	ZoomScaledPan       bool    `yaml:"zoomScaledPan"`

	// DefaultEasing names the easing used by AnimateTo when none is given.
	DefaultEasing string `yaml:"defaultEasing"`

	Size       Size    `yaml:"size"`
	Renderer   string  `yaml:"renderer"`
	FrameLimit float64 `yaml:"frameLimit"`
	Profiling  bool    `yaml:"profiling"`
	LogLevel   string  `yaml:"logLevel"`
}

// DefaultConfig returns the configuration used when no option overrides a field.
//
// Returns:
//   - Config: the defaults
func DefaultConfig() Config {
	return Config{
		Adapter:           adapter.Equirectangular,
		DefaultZoom:       50,
		MinFov:            30,
		MaxFov:            90,
		MinPitch:          -math.Pi / 2,
		MaxPitch:          math.Pi / 2,
		MoveSpeed:         0.005,
		ZoomSpeed:         0.1,
		KeyboardPanSpeed:  1,
		KeyboardZoomSpeed: 1,
		MoveInertia:       Inertia{Enabled: true, Decay: 5},
		InertiaThreshold:  20,
		PinchSensitivity:  1,
		DefaultEasing:     "in-out-sine",
		Size:              Size{Width: 1280, Height: 720},
		Renderer:          RendererSoftware,
		FrameLimit:        60,
		LogLevel:          "info",
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the validated configuration
//   - error: a read error or *common.ConfigError
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig. Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the validated configuration
//   - error: a *common.ConfigError describing the first problem
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &common.ConfigError{Field: "yaml", Reason: "cannot decode", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field and reports the first invalid one.
//
// Returns:
//   - error: nil or a *common.ConfigError
func (c Config) Validate() error {
	bad := func(field, format string, args ...any) error {
		return &common.ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	switch {
	case c.Adapter == "":
		return bad("adapter", "must name an adapter")
	case c.MinFov <= 0 || c.MinFov >= 180:
		return bad("minFov", "must be in (0, 180), got %v", c.MinFov)
	case c.MaxFov <= 0 || c.MaxFov >= 180:
		return bad("maxFov", "must be in (0, 180), got %v", c.MaxFov)
	case c.MinFov > c.MaxFov:
		return bad("minFov", "%v exceeds maxFov %v", c.MinFov, c.MaxFov)
	case c.MinPitch < -math.Pi/2 || c.MaxPitch > math.Pi/2:
		return bad("minPitch", "pitch range must lie within [-π/2, π/2], got [%v, %v]", c.MinPitch, c.MaxPitch)
	case c.MinPitch > c.MaxPitch:
		return bad("minPitch", "%v exceeds maxPitch %v", c.MinPitch, c.MaxPitch)
	case c.DefaultPitch < c.MinPitch || c.DefaultPitch > c.MaxPitch:
		return bad("defaultPitch", "%v is outside [%v, %v]", c.DefaultPitch, c.MinPitch, c.MaxPitch)
	case c.DefaultZoom < 0 || c.DefaultZoom > 100:
		return bad("defaultZoom", "must be in [0, 100], got %v", c.DefaultZoom)
	case math.IsNaN(c.DefaultYaw) || math.IsInf(c.DefaultYaw, 0):
		return bad("defaultYaw", "must be finite")
	case c.MoveSpeed <= 0:
		return bad("moveSpeed", "must be positive, got %v", c.MoveSpeed)
	case c.ZoomSpeed < 0:
		return bad("zoomSpeed", "must not be negative, got %v", c.ZoomSpeed)
	case c.KeyboardPanSpeed < 0 || c.KeyboardZoomSpeed < 0:
		return bad("keyboardPanSpeed", "keyboard speeds must not be negative")
	case c.MoveInertia.Decay < 0:
		return bad("moveInertia", "decay rate must not be negative, got %v", c.MoveInertia.Decay)
	case c.InertiaThreshold < 0:
		return bad("inertiaThreshold", "must not be negative, got %v", c.InertiaThreshold)
	case c.PinchSensitivity <= 0:
		return bad("pinchSensitivity", "must be positive, got %v", c.PinchSensitivity)
	case c.Size.Width <= 0 || c.Size.Height <= 0:
		return bad("size", "must be positive, got %dx%d", c.Size.Width, c.Size.Height)
	case c.Renderer != RendererSoftware && c.Renderer != RendererWGPU:
		return bad("renderer", "must be %q or %q, got %q", RendererSoftware, RendererWGPU, c.Renderer)
	case c.FrameLimit < 0:
		return bad("frameLimit", "must not be negative, got %v", c.FrameLimit)
	}

	if c.DefaultEasing != "" {
		if _, ok := animation.EasingByName(c.DefaultEasing); !ok {
			return bad("defaultEasing", "unknown easing %q", c.DefaultEasing)
		}
	}
	if c.Panorama.Crop != nil && c.Panorama.Crop.FullWidth <= 0 {
		return bad("panorama.crop", "fullWidth must be positive")
	}
	for i, p := range c.Plugins {
		if p.Factory == nil {
			return bad(fmt.Sprintf("plugins[%d]", i), "plugin %q has no factory", p.Name)
		}
	}
	return nil
}
