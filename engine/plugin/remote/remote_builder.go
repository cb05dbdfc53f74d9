package remote

import (
	"net/http"
	"time"
)

// ServerBuilderOption is a functional option for configuring a Server.
type ServerBuilderOption func(*serverImpl)

// WithCheckOrigin sets the websocket origin check. By default only same-origin requests
// and requests without an Origin header are accepted.
//
// Parameters:
//   - fn: returns true to accept the upgrade request
//
// Returns:
//   - ServerBuilderOption: a function that sets the origin check
func WithCheckOrigin(fn func(r *http.Request) bool) ServerBuilderOption {
	return func(s *serverImpl) {
		s.upgrader.CheckOrigin = fn
	}
}

// WithSendBuffer sets how many outgoing messages are queued per client before new ones are dropped.
//
// Parameters:
//   - n: queue length, values <= 0 are ignored
//
// Returns:
//   - ServerBuilderOption: a function that sets the queue length
func WithSendBuffer(n int) ServerBuilderOption {
	return func(s *serverImpl) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// WithWriteTimeout bounds every websocket write.
func WithWriteTimeout(d time.Duration) ServerBuilderOption {
	return func(s *serverImpl) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithPingInterval sets how often idle connections are pinged. Zero disables pings.
func WithPingInterval(d time.Duration) ServerBuilderOption {
	return func(s *serverImpl) {
		if d >= 0 {
			s.pingInterval = d
		}
	}
}

// WithReadLimit caps the size of an incoming command in bytes.
func WithReadLimit(n int64) ServerBuilderOption {
	return func(s *serverImpl) {
		if n > 0 {
			s.readLimit = n
		}
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(clock func() time.Time) ServerBuilderOption {
	return func(s *serverImpl) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPanoramaRoot enables the panorama command and confines it to dir. Command paths must be
// relative and stay inside dir; they are resolved against it, and symlinks are followed and must
// also end inside dir. Without a root the command is refused.
//
// Parameters:
//   - dir: the directory panoramas may be opened from
//
// Returns:
//   - ServerBuilderOption: a function that sets the panorama root
func WithPanoramaRoot(dir string) ServerBuilderOption {
	return func(s *serverImpl) {
		s.panoramaRoot = dir
	}
}
