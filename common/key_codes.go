package common

// Virtual key codes used by keyboard navigation and window shortcuts.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyMinus = 45 // - key (ASCII)
	KeyEqual = 61 // = / + key (ASCII)
	KeyF     = 70 // F key (ASCII), toggles fullscreen
	KeyW     = 87 // W key (ASCII)
)

// Non-printable keys (GLFW).
const (
	KeyEsc      = 256
	KeyRight    = 262
	KeyLeft     = 263
	KeyDown     = 264
	KeyUp       = 265
	KeyPageUp   = 266
	KeyPageDown = 267
	KeyKPSub    = 333 // keypad -
	KeyKPAdd    = 334 // keypad +
)
