package animation

import (
	"math"
	"sort"
	"strings"
)

// EasingFunc maps normalized elapsed time in [0, 1] to normalized progress.
// Implementations must return 0 for 0 and 1 for 1.
type EasingFunc func(t float64) float64

func Linear(t float64) float64 { return t }

func InQuad(t float64) float64  { return t * t }
func OutQuad(t float64) float64 { return t * (2 - t) }
func InOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

func InCubic(t float64) float64 { return t * t * t }
func OutCubic(t float64) float64 {
	u := t - 1
	return u*u*u + 1
}
func InOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := 2*t - 2
	return (t-1)*u*u + 1
}

func InQuart(t float64) float64 { return t * t * t * t }
func OutQuart(t float64) float64 {
	u := t - 1
	return 1 - u*u*u*u
}
func InOutQuart(t float64) float64 {
	if t < 0.5 {
		return 8 * t * t * t * t
	}
	u := t - 1
	return 1 - 8*u*u*u*u
}

func InSine(t float64) float64    { return 1 - math.Cos(t*math.Pi/2) }
func OutSine(t float64) float64   { return math.Sin(t * math.Pi / 2) }
func InOutSine(t float64) float64 { return (1 - math.Cos(math.Pi*t)) / 2 }

func InExpo(t float64) float64 {
	if t == 0 {
		return 0
	}
	return math.Pow(2, 10*(t-1))
}
func OutExpo(t float64) float64 {
	if t == 1 {
		return 1
	}
	return 1 - math.Pow(2, -10*t)
}
func InOutExpo(t float64) float64 {
	switch {
	case t == 0:
		return 0
	case t == 1:
		return 1
	case t < 0.5:
		return math.Pow(2, 20*t-10) / 2
	default:
		return (2 - math.Pow(2, -20*t+10)) / 2
	}
}

var easings = map[string]EasingFunc{
	"linear":     Linear,
	"inquad":     InQuad,
	"outquad":    OutQuad,
	"inoutquad":  InOutQuad,
	"incubic":    InCubic,
	"outcubic":   OutCubic,
	"inoutcubic": InOutCubic,
	"inquart":    InQuart,
	"outquart":   OutQuart,
	"inoutquart": InOutQuart,
	"insine":     InSine,
	"outsine":    OutSine,
	"inoutsine":  InOutSine,
	"inexpo":     InExpo,
	"outexpo":    OutExpo,
	"inoutexpo":  InOutExpo,
}

// EasingByName looks up an easing function by name, case-insensitively.
// Names follow the "inOutQuad" convention; dashes and underscores are ignored.
//
// Parameters:
//   - name: the easing name, e.g. "linear" or "in-out-sine"
//
// Returns:
//   - EasingFunc: the easing function
//   - bool: false when the name is unknown
func EasingByName(name string) (EasingFunc, bool) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	fn, ok := easings[key]
	return fn, ok
}

// EasingNames returns the sorted list of registered easing names.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
