package remote

import (
	"time"

	"github.com/Carmen-Shannon/oxy-pano/engine/animation"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
)

// Message types sent to clients.
const (
	TypeHello             = "hello"
	TypeOrientation       = "orientation"
	TypeLifecycle         = "lifecycle"
	TypeAck               = "ack"
	TypeError             = "error"
	TypeAnimationComplete = "animation-complete"
	TypePong              = "pong"
)

// Command types accepted from clients.
const (
	CommandAnimate  = "animate"
	CommandSet      = "set"
	CommandZoom     = "zoom"
	CommandPanorama = "panorama"
	CommandPing     = "ping"
)

// Message is a server to client frame.
type Message struct {
	Type        string             `json:"type"`
	ID          string             `json:"id,omitempty"`
	Viewer      string             `json:"viewer,omitempty"`
	Client      string             `json:"client,omitempty"`
	Event       string             `json:"event,omitempty"`
	Orientation *orientation.State `json:"orientation,omitempty"`
	Error       string             `json:"error,omitempty"`
	Time        int64              `json:"time"`
}

func newMessage(typ string, at time.Time) Message {
	return Message{Type: typ, Time: at.UnixMilli()}
}

// Command is a client to server frame. Omitted dimensions are left untouched.
type Command struct {
	Type       string   `json:"type"`
	ID         string   `json:"id,omitempty"`
	Yaw        *float64 `json:"yaw,omitempty"`
	Pitch      *float64 `json:"pitch,omitempty"`
	Roll       *float64 `json:"roll,omitempty"`
	Zoom       *float64 `json:"zoom,omitempty"`
	DurationMs int64    `json:"durationMs,omitempty"`
	Easing     string   `json:"easing,omitempty"`
	Panorama   string   `json:"panorama,omitempty"`
	Adapter    string   `json:"adapter,omitempty"`
}

// Target converts the command's dimensions into an animation target.
func (c Command) Target() animation.Target {
	t := animation.Target{}
	if c.Yaw != nil {
		t[orientation.Yaw] = *c.Yaw
	}
	if c.Pitch != nil {
		t[orientation.Pitch] = *c.Pitch
	}
	if c.Roll != nil {
		t[orientation.Roll] = *c.Roll
	}
	if c.Zoom != nil {
		t[orientation.Zoom] = *c.Zoom
	}
	return t
}

// Duration returns the animation length.
func (c Command) Duration() time.Duration {
	return time.Duration(c.DurationMs) * time.Millisecond
}
