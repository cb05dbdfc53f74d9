package remote

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-pano/engine/adapter"
	"github.com/Carmen-Shannon/oxy-pano/engine/animation"
	"github.com/Carmen-Shannon/oxy-pano/engine/event"
	"github.com/Carmen-Shannon/oxy-pano/engine/orientation"
	"github.com/Carmen-Shannon/oxy-pano/engine/plugin"
	"github.com/gorilla/websocket"
)

// fakeViewer queues Do work until the test drains it and completes animations instantly.
type fakeViewer struct {
	bus   event.Bus
	o     orientation.Orientation
	queue chan func()

	mu        sync.Mutex
	animated  []animation.Target
	panoramas []adapter.Source
}

var _ plugin.Viewer = &fakeViewer{}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{
		bus:   event.NewBus(),
		o:     orientation.NewOrientation(),
		queue: make(chan func(), 16),
	}
}

func (v *fakeViewer) ID() string { return "viewer-1" }
func (v *fakeViewer) On(t event.Type, h event.Handler) func() { return v.bus.On(t, h) }
func (v *fakeViewer) Emit(t event.Type, payload any) { v.bus.Emit(t, payload) }
func (v *fakeViewer) Orientation() orientation.State { return v.o.State() }
func (v *fakeViewer) CancelAnimation(animation.Handle) bool { return false }
func (v *fakeViewer) Do(fn func()) { v.queue <- fn }

func (v *fakeViewer) SetOrientation(target animation.Target) {
	for d, value := range target {
		v.o.Set(d, value)
	}
}

func (v *fakeViewer) AnimateTo(target animation.Target, _ time.Duration, _ animation.EasingFunc, onComplete func()) animation.Handle {
	v.mu.Lock()
	v.animated = append(v.animated, target)
	n := len(v.animated)
	v.mu.Unlock()
	if onComplete != nil {
		onComplete()
	}
	return animation.Handle(n)
}

func (v *fakeViewer) SetPanorama(source adapter.Source, _ string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panoramas = append(v.panoramas, source)
	return nil
}

// runQueued runs one function handed to Do.
func (v *fakeViewer) runQueued(t *testing.T) {
	t.Helper()
	select {
	case fn := <-v.queue:
		fn()
	case <-time.After(5 * time.Second):
		t.Fatalf("nothing was queued through Do")
	}
}

type fixture struct {
	server Server
	viewer *fakeViewer
	http   *httptest.Server
}

func newFixture(t *testing.T, options ...ServerBuilderOption) *fixture {
	t.Helper()
	f := &fixture{server: NewServer(append([]ServerBuilderOption{WithPingInterval(0)}, options...)...), viewer: newFakeViewer()}
	if _, err := f.server.Plugin().Factory(f.viewer); err != nil {
		t.Fatalf("attach: %v", err)
	}
	f.http = httptest.NewServer(f.server)
	t.Cleanup(func() {
		f.server.Close()
		f.http.Close()
	})
	return f
}

func (f *fixture) url() string {
	return "ws" + strings.TrimPrefix(f.http.URL, "http")
}

// dial connects and consumes the hello message.
func (f *fixture) dial(t *testing.T) (*websocket.Conn, Message) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	hello := read(t, conn)
	if hello.Type != TypeHello {
		t.Fatalf("first message = %+v", hello)
	}
	return conn, hello
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return m
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHelloCarriesViewerState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.viewer.SetOrientation(animation.Target{orientation.Yaw: 1})

	_, hello := f.dial(t)
	if hello.Viewer != "viewer-1" || hello.Client == "" {
		t.Fatalf("hello = %+v", hello)
	}
	if hello.Orientation == nil || hello.Orientation.Yaw != 1 {
		t.Fatalf("hello orientation = %+v", hello.Orientation)
	}
	if n := f.server.Clients(); n != 1 {
		t.Fatalf("clients = %d", n)
	}
}

func TestOrientationIsBroadcastToEveryClient(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a, _ := f.dial(t)
	b, _ := f.dial(t)

	f.viewer.Emit(event.PositionUpdated, orientation.State{Yaw: 2, Zoom: 50, Fov: 65})
	for _, conn := range []*websocket.Conn{a, b} {
		m := read(t, conn)
		if m.Type != TypeOrientation || m.Orientation == nil || m.Orientation.Yaw != 2 {
			t.Fatalf("message = %+v", m)
		}
	}

	f.viewer.Emit(event.PositionUpdated, "not a state")
	f.viewer.Emit(event.ZoomUpdated, orientation.State{Zoom: 80})
	if m := read(t, a); m.Orientation == nil || m.Orientation.Zoom != 80 {
		t.Fatalf("malformed payload was forwarded: %+v", m)
	}
}

func TestLifecycleEventsAreForwarded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	conn, _ := f.dial(t)

	f.viewer.Emit(event.LoadFailed, errors.New("404"))
	m := read(t, conn)
	if m.Type != TypeLifecycle || m.Event != string(event.LoadFailed) || m.Error != "404" {
		t.Fatalf("message = %+v", m)
	}

	f.viewer.Emit(event.Render, nil)
	f.viewer.Emit(event.FirstRender, nil)
	if m := read(t, conn); m.Event != string(event.FirstRender) {
		t.Fatalf("unexpected event forwarded: %+v", m)
	}
}

func TestCommandsRunThroughDo(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	conn, _ := f.dial(t)

	send(t, conn, `{"type":"animate","id":"a1","yaw":1.5,"durationMs":500,"easing":"inOutSine"}`)
	if m := read(t, conn); m.Type != TypeAck || m.ID != "a1" {
		t.Fatalf("ack = %+v", m)
	}
	f.viewer.mu.Lock()
	queuedOnly := len(f.viewer.animated) == 0
	f.viewer.mu.Unlock()
	if !queuedOnly {
		t.Fatalf("animation started outside Do")
	}

	f.viewer.runQueued(t)
	if m := read(t, conn); m.Type != TypeAnimationComplete || m.ID != "a1" {
		t.Fatalf("completion = %+v", m)
	}
	f.viewer.mu.Lock()
	got := f.viewer.animated[0][orientation.Yaw]
	f.viewer.mu.Unlock()
	if got != 1.5 {
		t.Fatalf("animated yaw = %v", got)
	}

	send(t, conn, `{"type":"set","id":"s1","pitch":0.3}`)
	if m := read(t, conn); m.Type != TypeAck {
		t.Fatalf("ack = %+v", m)
	}
	f.viewer.runQueued(t)
	if p := f.viewer.Orientation().Pitch; p != 0.3 {
		t.Fatalf("pitch = %v", p)
	}

	send(t, conn, `{"type":"zoom","id":"z1","zoom":90,"yaw":3}`)
	read(t, conn)
	f.viewer.runQueued(t)
	read(t, conn)
	f.viewer.mu.Lock()
	zoom := f.viewer.animated[1]
	f.viewer.mu.Unlock()
	if len(zoom) != 1 || zoom[orientation.Zoom] != 90 {
		t.Fatalf("zoom target = %v", zoom)
	}

	if s := f.server.Stats(); s.MessagesReceived != 3 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestPanoramaCommandSwapsSource(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	f := newFixture(t, WithPanoramaRoot(root))
	conn, _ := f.dial(t)

	send(t, conn, `{"type":"panorama","id":"p1","panorama":"tours/lobby.jpg"}`)
	if m := read(t, conn); m.Type != TypeAck || m.ID != "p1" {
		t.Fatalf("ack = %+v", m)
	}
	f.viewer.mu.Lock()
	defer f.viewer.mu.Unlock()
	want := filepath.Join(root, "tours", "lobby.jpg")
	if len(f.viewer.panoramas) != 1 || f.viewer.panoramas[0].Path != want {
		t.Fatalf("panoramas = %+v, want %s", f.viewer.panoramas, want)
	}
}

func TestPanoramaCommandStaysInsideRoot(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithPanoramaRoot(t.TempDir()))
	conn, _ := f.dial(t)

	for _, path := range []string{"../secret.jpg", "tours/../../secret.jpg", "/etc/passwd"} {
		send(t, conn, `{"type":"panorama","id":"p","panorama":"`+path+`"}`)
		if m := read(t, conn); m.Type != TypeError || m.Error == "" {
			t.Fatalf("%s: reply = %+v", path, m)
		}
	}

	closed := newFixture(t)
	other, _ := closed.dial(t)
	send(t, other, `{"type":"panorama","id":"p","panorama":"lobby.jpg"}`)
	if m := read(t, other); m.Type != TypeError || m.Error != ErrPanoramaDisabled.Error() {
		t.Fatalf("reply without root = %+v", m)
	}

	f.viewer.mu.Lock()
	defer f.viewer.mu.Unlock()
	closed.viewer.mu.Lock()
	defer closed.viewer.mu.Unlock()
	if len(f.viewer.panoramas) != 0 || len(closed.viewer.panoramas) != 0 {
		t.Fatalf("rejected commands reached the viewer")
	}
}

func TestPanoramaCommandRejectsSymlinksLeavingRoot(t *testing.T) {
	t.Parallel()

	root, outside := t.TempDir(), t.TempDir()
	secret := filepath.Join(outside, "secret.jpg")
	if err := os.WriteFile(secret, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	inside := filepath.Join(root, "lobby.jpg")
	if err := os.WriteFile(inside, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(secret, filepath.Join(root, "escape.jpg")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "elsewhere")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(inside, filepath.Join(root, "alias.jpg")); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, WithPanoramaRoot(root))
	conn, _ := f.dial(t)

	for _, path := range []string{"escape.jpg", "elsewhere/secret.jpg"} {
		send(t, conn, `{"type":"panorama","id":"p","panorama":"`+path+`"}`)
		if m := read(t, conn); m.Type != TypeError || !strings.Contains(m.Error, "outside the panorama root") {
			t.Fatalf("%s: reply = %+v", path, m)
		}
	}

	send(t, conn, `{"type":"panorama","id":"ok","panorama":"alias.jpg"}`)
	if m := read(t, conn); m.Type != TypeAck || m.ID != "ok" {
		t.Fatalf("link inside root: reply = %+v", m)
	}

	f.viewer.mu.Lock()
	defer f.viewer.mu.Unlock()
	want := filepath.Join(root, "alias.jpg")
	if len(f.viewer.panoramas) != 1 || f.viewer.panoramas[0].Path != want {
		t.Fatalf("panoramas = %+v, want only %s", f.viewer.panoramas, want)
	}
}

func TestInvalidCommandsAreRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	conn, _ := f.dial(t)

	tests := []struct {
		name string
		raw  string
	}{
		{"malformed", `{"type":`},
		{"unknown type", `{"type":"jump"}`},
		{"animate without dimensions", `{"type":"animate"}`},
		{"unknown easing", `{"type":"animate","yaw":1,"easing":"bouncy"}`},
		{"zoom without value", `{"type":"zoom","yaw":1}`},
		{"set without dimensions", `{"type":"set"}`},
		{"panorama without path", `{"type":"panorama"}`},
	}
	for _, tt := range tests {
		send(t, conn, tt.raw)
		if m := read(t, conn); m.Type != TypeError || m.Error == "" {
			t.Fatalf("%s: reply = %+v", tt.name, m)
		}
	}

	send(t, conn, `{"type":"ping","id":"p"}`)
	if m := read(t, conn); m.Type != TypePong || m.ID != "p" {
		t.Fatalf("ping reply = %+v", m)
	}
	select {
	case <-f.viewer.queue:
		t.Fatalf("rejected command reached the viewer")
	default:
	}
}

func TestTeardownDisconnectsClients(t *testing.T) {
	t.Parallel()

	s := NewServer(WithPingInterval(0))
	v := newFakeViewer()
	teardown, err := s.Plugin().Factory(v)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	srv := httptest.NewServer(s)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	read(t, conn)

	teardown()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("read after teardown err = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := s.Clients(); n != 0 {
		t.Fatalf("clients after teardown = %d", n)
	}

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("dial without viewer: err=%v resp=%v", err, resp)
	}

	if _, err := s.Plugin().Factory(v); err != nil {
		t.Fatalf("reattach after teardown: %v", err)
	}
}

func TestServerServesOneViewer(t *testing.T) {
	t.Parallel()

	s := NewServer()
	if _, err := s.Plugin().Factory(newFakeViewer()); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := s.Plugin().Factory(newFakeViewer()); !errors.Is(err, ErrAttached) {
		t.Fatalf("second attach err = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Close err = %v", err)
	}
	if _, err := NewServer().Plugin().Factory(newFakeViewer()); err != nil {
		t.Fatalf("fresh server attach: %v", err)
	}
	if s.Plugin().Name != Name {
		t.Fatalf("plugin name = %q", s.Plugin().Name)
	}
}

func TestSlowClientsDropMessages(t *testing.T) {
	t.Parallel()

	s := NewServer(WithSendBuffer(1)).(*serverImpl)
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	s.enqueue(c, []byte("a"))
	s.enqueue(c, []byte("b"))
	if d := s.Stats().MessagesDropped; d != 1 {
		t.Fatalf("dropped = %d", d)
	}
	c.close()
	c.close()
	s.enqueue(c, []byte("c"))
	if d := s.Stats().MessagesDropped; d != 1 {
		t.Fatalf("closed client counted as dropped: %d", d)
	}
}
