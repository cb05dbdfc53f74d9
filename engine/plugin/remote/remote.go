// Package remote is a viewer plugin exposing the viewer over a websocket. Connected clients
// receive orientation and lifecycle updates and may send animate, set, zoom and panorama commands.
// Panorama commands only open files below the root set with WithPanoramaRoot. Any client reaching
// the endpoint can move the view, so mount it where only trusted clients connect.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/animation"
	"github.com/Carmen-Shannon/oxy-pano/engine/event"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/Carmen-Shannon/oxy-pano/engine/plugin"
	"github.com/Carmen-Shannon/oxy-pano/internal/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Name is the plugin name used when registering the server with a viewer.
const Name = "remote"

var (
	// ErrAttached is returned by the plugin factory when the server already serves a viewer.
	ErrAttached = errors.New("remote server already attached to a viewer")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("remote server closed")

	// ErrPanoramaDisabled is replied to panorama commands when no panorama root is configured.
	ErrPanoramaDisabled = errors.New("panorama command disabled")
)

// lifecycleEvents are forwarded to clients as lifecycle messages.
var lifecycleEvents = []event.Type{
	event.PanoramaReady,
	event.PanoramaLoaded,
	event.LoadFailed,
	event.FirstRender,
	event.SizeUpdated,
	event.FatalError,
	event.BeforeDestroy,
}

// Stats contains server statistics.
type Stats struct {
	Clients          int    `json:"clients"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	MessagesDropped  uint64 `json:"messages_dropped"`
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

type serverImpl struct {
	mu *sync.RWMutex

	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	pingInterval time.Duration
	readLimit    int64
	clock        func() time.Time
	panoramaRoot string

	viewer  plugin.Viewer
	clients map[uuid.UUID]*client
	closed  bool

	received atomic.Uint64
	sent     atomic.Uint64
	dropped  atomic.Uint64
}

// Server streams a viewer's state to websocket clients and applies their commands.
// Commands are handed to the viewer through Do, so they run on the render loop.
type Server interface {
	http.Handler

	// Plugin returns the plugin binding the server to a viewer. A server serves one viewer.
	//
	// Returns:
	//   - plugin.Plugin: the plugin, named Name
	Plugin() plugin.Plugin

	// Clients returns the number of connected clients.
	Clients() int

	// Stats returns message counters.
	Stats() Stats

	// Close disconnects every client and rejects new connections.
	//
	// Returns:
	//   - error: ErrClosed if already closed
	Close() error
}

var _ Server = &serverImpl{}

// NewServer creates a remote control server. Mount it on any http.ServeMux path and register
// its Plugin with the viewer.
//
// Parameters:
//   - options: functional options to configure the server
//
// Returns:
//   - Server: the new server
func NewServer(options ...ServerBuilderOption) Server {
	s := &serverImpl{
		mu:           &sync.RWMutex{},
		sendBuffer:   64,
		writeTimeout: 5 * time.Second,
		pingInterval: 30 * time.Second,
		readLimit:    4096,
		clock:        time.Now,
		clients:      make(map[uuid.UUID]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *serverImpl) Plugin() plugin.Plugin {
	return plugin.Plugin{Name: Name, Factory: s.attach}
}

func (s *serverImpl) attach(v plugin.Viewer) (plugin.Teardown, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.viewer != nil:
		s.mu.Unlock()
		return nil, ErrAttached
	}
	s.viewer = v
	s.mu.Unlock()

	v.On(event.PositionUpdated, s.onOrientation)
	v.On(event.ZoomUpdated, s.onOrientation)
	for _, t := range lifecycleEvents {
		v.On(t, s.onLifecycle)
	}

	log.Component("remote").Info("attached", "viewer", v.ID())
	return s.detach, nil
}

func (s *serverImpl) detach() {
	s.mu.Lock()
	s.viewer = nil
	clients := s.snapshot()
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	log.Component("remote").Info("detached", "clients", len(clients))
}

func (s *serverImpl) onOrientation(e event.Event) {
	state, ok := e.Payload.(orientation.State)
	if !ok {
		return
	}
	m := newMessage(TypeOrientation, e.Timestamp)
	m.Orientation = &state
	s.broadcast(m)
}

func (s *serverImpl) onLifecycle(e event.Event) {
	m := newMessage(TypeLifecycle, e.Timestamp)
	m.Event = string(e.Type)
	if err, ok := e.Payload.(error); ok {
		m.Error = err.Error()
	}
	s.broadcast(m)
}

func (s *serverImpl) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	v, closed := s.viewer, s.closed
	s.mu.RUnlock()
	if closed || v == nil {
		http.Error(w, "no viewer attached", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		log.Component("remote").Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, s.sendBuffer),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed || s.viewer == nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c.id] = c
	count := len(s.clients)
	s.mu.Unlock()

	logger := log.Component("remote").With("client", c.id.String())
	logger.Info("client connected", "remote", r.RemoteAddr, "clients", count)

	hello := newMessage(TypeHello, s.clock())
	hello.Viewer = v.ID()
	hello.Client = c.id.String()
	state := v.Orientation()
	hello.Orientation = &state
	s.sendTo(c, hello)

	go s.writePump(c)
	s.readPump(c)

	s.mu.Lock()
	delete(s.clients, c.id)
	count = len(s.clients)
	s.mu.Unlock()
	c.close()
	logger.Info("client disconnected", "clients", count)
}

func (s *serverImpl) readPump(c *client) {
	c.conn.SetReadLimit(s.readLimit)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Component("remote").Debug("read failed", "client", c.id.String(), "error", err)
			}
			return
		}
		s.received.Add(1)
		s.handleCommand(c, data)
	}
}

func (s *serverImpl) writePump(c *client) {
	var ping <-chan time.Time
	if s.pingInterval > 0 {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "viewer detached"))
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Component("remote").Debug("write failed", "client", c.id.String(), "error", err)
				return
			}
			s.sent.Add(1)
		case <-ping:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *serverImpl) handleCommand(c *client, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.reply(c, cmd.ID, fmt.Errorf("malformed command: %w", err))
		return
	}

	s.mu.RLock()
	v := s.viewer
	s.mu.RUnlock()
	if v == nil {
		s.reply(c, cmd.ID, ErrClosed)
		return
	}

	switch cmd.Type {
	case CommandPing:
		m := newMessage(TypePong, s.clock())
		m.ID = cmd.ID
		s.sendTo(c, m)

	case CommandAnimate, CommandZoom:
		target := cmd.Target()
		if cmd.Type == CommandZoom {
			if cmd.Zoom == nil {
				s.reply(c, cmd.ID, errors.New("zoom command needs a zoom value"))
				return
			}
			target = animation.Target{orientation.Zoom: *cmd.Zoom}
		}
		if len(target) == 0 {
			s.reply(c, cmd.ID, errors.New("animate command needs at least one dimension"))
			return
		}
		var easing animation.EasingFunc
		if cmd.Easing != "" {
			fn, ok := animation.EasingByName(cmd.Easing)
			if !ok {
				s.reply(c, cmd.ID, fmt.Errorf("unknown easing %q", cmd.Easing))
				return
			}
			easing = fn
		}
		v.Do(func() {
			v.AnimateTo(target, cmd.Duration(), easing, func() {
				m := newMessage(TypeAnimationComplete, s.clock())
				m.ID = cmd.ID
				s.sendTo(c, m)
			})
		})
		s.reply(c, cmd.ID, nil)

	case CommandSet:
		target := cmd.Target()
		if len(target) == 0 {
			s.reply(c, cmd.ID, errors.New("set command needs at least one dimension"))
			return
		}
		v.Do(func() { v.SetOrientation(target) })
		s.reply(c, cmd.ID, nil)

	case CommandPanorama:
		path, err := s.panoramaPath(cmd.Panorama)
		if err != nil {
			s.reply(c, cmd.ID, err)
			return
		}
		s.reply(c, cmd.ID, v.SetPanorama(adapter.Source{Path: path}, cmd.Adapter))

	default:
		s.reply(c, cmd.ID, fmt.Errorf("unknown command %q", cmd.Type))
	}
}

// panoramaPath resolves a panorama command path inside the configured root.
func (s *serverImpl) panoramaPath(p string) (string, error) {
	switch {
	case s.panoramaRoot == "":
		return "", ErrPanoramaDisabled
	case p == "":
		return "", errors.New("panorama command needs a path")
	case !filepath.IsLocal(p):
		return "", fmt.Errorf("panorama path %q is outside the panorama root", p)
	}
	joined := filepath.Join(s.panoramaRoot, p)

	root, err := filepath.EvalSymlinks(s.panoramaRoot)
	if err != nil {
		return "", fmt.Errorf("resolve panorama root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if errors.Is(err, fs.ErrNotExist) {
		// Missing files surface as a load error from the adapter.
		return joined, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve panorama path %q: %w", p, err)
	}
	if rel, err := filepath.Rel(root, resolved); err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("panorama path %q is outside the panorama root", p)
	}
	return joined, nil
}

// reply acknowledges a command, or reports why it was rejected.
func (s *serverImpl) reply(c *client, id string, err error) {
	m := newMessage(TypeAck, s.clock())
	if err != nil {
		m.Type = TypeError
		m.Error = err.Error()
	}
	m.ID = id
	s.sendTo(c, m)
}

func (s *serverImpl) broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Component("remote").Error("encode message", "type", m.Type, "error", err)
		return
	}

	s.mu.RLock()
	clients := s.snapshot()
	s.mu.RUnlock()

	for _, c := range clients {
		s.enqueue(c, data)
	}
}

func (s *serverImpl) sendTo(c *client, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Component("remote").Error("encode message", "type", m.Type, "error", err)
		return
	}
	s.enqueue(c, data)
}

// enqueue never blocks the caller, which is often the render loop. Slow clients lose messages.
func (s *serverImpl) enqueue(c *client, data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		s.dropped.Add(1)
	}
}

// snapshot copies the client set. Caller must hold the mutex.
func (s *serverImpl) snapshot() []*client {
	out := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *serverImpl) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *serverImpl) Stats() Stats {
	return Stats{
		Clients:          s.Clients(),
		MessagesReceived: s.received.Load(),
		MessagesSent:     s.sent.Load(),
		MessagesDropped:  s.dropped.Load(),
	}
}

func (s *serverImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	clients := s.snapshot()
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	return nil
}
