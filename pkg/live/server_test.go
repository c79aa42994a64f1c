package live

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recera/mapview/pkg/viewport"
)

func testOptions() viewport.Options {
	return viewport.Options{
		Scene:       viewport.SceneBounds{Width: 1000, Height: 500},
		Limits:      viewport.ZoomLimits{MinWidth: 100, MaxWidth: 1000},
		StepRatio:   2,
		InitialZoom: 2,
		Anchor:      viewport.Point{X: 250, Y: 125},
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(testOptions())
	mux := http.NewServeMux()
	mux.HandleFunc(PathPrefix, srv.HandleWebSocket)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + PathPrefix + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("Expected binary frame, got type %d", mt)
	}
	return data
}

func expectControl(t *testing.T, conn *websocket.Conn, want string) []uint64 {
	t.Helper()
	data := readFrame(t, conn)
	verb, args, err := DecodeControl(data)
	if err != nil {
		t.Fatalf("Expected control %s, got %s", want, DescribeFrame(data))
	}
	if verb != want {
		t.Fatalf("Expected control %s, got %s", want, verb)
	}
	return args
}

func expectView(t *testing.T, conn *websocket.Conn) viewport.Window {
	t.Helper()
	data := readFrame(t, conn)
	_, w, err := DecodeView(data)
	if err != nil {
		t.Fatalf("Expected view frame, got %s", DescribeFrame(data))
	}
	return w
}

func send(t *testing.T, conn *websocket.Conn, evt Event) {
	t.Helper()
	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeEvent(evt)); err != nil {
		t.Fatalf("Failed to send %s: %v", evt.Type, err)
	}
}

func sendResize(t *testing.T, conn *websocket.Conn) {
	send(t, conn, Event{
		Type:   EventResize,
		Rect:   viewport.Rect{Width: 500, Height: 250},
		PixelW: 500,
		PixelH: 250,
	})
}

func TestServer_HelloAndInitialView(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "abc")

	expectControl(t, conn, ControlHello)
	w := expectView(t, conn)

	want := viewport.Window{X: 250, Y: 125, W: 500, H: 250}
	if w != want {
		t.Errorf("Expected %v, got %v", want, w)
	}
}

func TestServer_DragRoundTrip(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts, "drag")
	expectControl(t, conn, ControlHello)
	expectView(t, conn)

	sendResize(t, conn)
	send(t, conn, Event{Type: EventPointerDown, PointerID: 1, X: 100, Y: 100})

	if args := expectControl(t, conn, ControlCapture); len(args) != 1 || args[0] != 1 {
		t.Errorf("Expected capture of pointer 1, got %v", args)
	}
	if args := expectControl(t, conn, ControlDragging); len(args) != 1 || args[0] != 1 {
		t.Errorf("Expected dragging on, got %v", args)
	}

	// One pixel is one scene unit at this zoom; dragging left moves the window right
	send(t, conn, Event{Type: EventPointerMove, PointerID: 1, X: 90, Y: 95})
	w := expectView(t, conn)
	if w.X != 260 || w.Y != 130 {
		t.Errorf("Expected origin (260, 130), got (%g, %g)", w.X, w.Y)
	}

	send(t, conn, Event{Type: EventPointerUp, PointerID: 1, X: 90, Y: 95})
	expectControl(t, conn, ControlRelease)
	if args := expectControl(t, conn, ControlDragging); len(args) != 1 || args[0] != 0 {
		t.Errorf("Expected dragging off, got %v", args)
	}

	snap, ok := srv.Snapshot("drag")
	if !ok {
		t.Fatal("Expected session to exist")
	}
	if snap != w {
		t.Errorf("Expected snapshot %v, got %v", w, snap)
	}
}

func TestServer_WheelAndButtons(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "wheel")
	expectControl(t, conn, ControlHello)
	expectView(t, conn)
	sendResize(t, conn)

	// Zoom in about the top-left corner keeps the origin fixed
	send(t, conn, Event{Type: EventWheel, DeltaY: -100, X: 0, Y: 0})
	w := expectView(t, conn)
	if w.W != 250 || w.X != 250 || w.Y != 125 {
		t.Errorf("Expected 250 wide at (250, 125), got %v", w)
	}

	send(t, conn, Event{Type: EventZoomOut})
	w = expectView(t, conn)
	if w.W != 500 {
		t.Errorf("Expected width 500 after zoom out, got %g", w.W)
	}

	send(t, conn, Event{Type: EventReset})
	w = expectView(t, conn)
	want := viewport.Window{X: 250, Y: 125, W: 500, H: 250}
	if w != want {
		t.Errorf("Expected reset to %v, got %v", want, w)
	}
}

func TestServer_PingPong(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "ping")
	expectControl(t, conn, ControlHello)
	expectView(t, conn)

	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeControl(ControlPing)); err != nil {
		t.Fatalf("Failed to send ping: %v", err)
	}
	expectControl(t, conn, ControlPong)
}

func TestServer_ReconnectKeepsWindow(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "again")
	expectControl(t, conn, ControlHello)
	expectView(t, conn)

	send(t, conn, Event{Type: EventZoomIn})
	zoomed := expectView(t, conn)
	conn.Close()

	conn2 := dial(t, ts, "again")
	expectControl(t, conn2, ControlHello)
	if w := expectView(t, conn2); w != zoomed {
		t.Errorf("Expected reconnect to restore %v, got %v", zoomed, w)
	}
}

func TestServer_BroadcastAndReconfigure(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts, "reload")
	expectControl(t, conn, ControlHello)
	expectView(t, conn)

	if n := srv.Broadcast(ControlReload); n != 1 {
		t.Errorf("Expected broadcast to reach 1 session, got %d", n)
	}
	expectControl(t, conn, ControlReload)

	opts := testOptions()
	opts.InitialZoom = 4
	opts.Anchor = viewport.Point{}
	srv.Reconfigure(opts)

	w := expectView(t, conn)
	want := viewport.Window{X: 0, Y: 0, W: 250, H: 125}
	if w != want {
		t.Errorf("Expected reconfigured window %v, got %v", want, w)
	}
}

func TestServer_SessionLifecycle(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dial(t, ts, "life")
	expectControl(t, conn, ControlHello)

	if srv.SessionCount() != 1 {
		t.Errorf("Expected 1 session, got %d", srv.SessionCount())
	}

	srv.RemoveSession("life")
	if _, ok := srv.GetSession("life"); ok {
		t.Error("Expected session to be removed")
	}
	if _, ok := srv.Snapshot("life"); ok {
		t.Error("Expected no snapshot for removed session")
	}
}

func waitForSessions(t *testing.T, srv *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.SessionCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d sessions, still have %d", want, srv.SessionCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_RemovesIdleSessions(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.SetSessionGrace(20 * time.Millisecond)

	for i := 0; i < 50; i++ {
		conn := dial(t, ts, fmt.Sprintf("tab-%d", i))
		expectControl(t, conn, ControlHello)
		conn.Close()
	}
	waitForSessions(t, srv, 0)
}

func TestServer_ReconnectWithinGraceKeepsSession(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.SetSessionGrace(100 * time.Millisecond)

	conn := dial(t, ts, "blink")
	expectControl(t, conn, ControlHello)
	expectView(t, conn)
	send(t, conn, Event{Type: EventZoomIn})
	zoomed := expectView(t, conn)
	conn.Close()

	conn2 := dial(t, ts, "blink")
	expectControl(t, conn2, ControlHello)
	if w := expectView(t, conn2); w != zoomed {
		t.Errorf("Expected reconnect to restore %v, got %v", zoomed, w)
	}

	// The reconnect cancelled the pending removal
	time.Sleep(250 * time.Millisecond)
	if _, ok := srv.GetSession("blink"); !ok {
		t.Fatal("Expected connected session to survive the grace period")
	}

	conn2.Close()
	waitForSessions(t, srv, 0)
}

func TestSession_DebugTrace(t *testing.T) {
	var lines []string
	SetDebugLog(func(args ...interface{}) {
		lines = append(lines, fmt.Sprint(args...))
	})
	defer SetDebugLog(nil)

	s := newSession("trace", testOptions())
	s.dispatch(&Event{Type: EventZoomIn})

	var sawEvent, sawView bool
	for _, line := range lines {
		if strings.Contains(line, "zoom-in") {
			sawEvent = true
		}
		if strings.Contains(line, "send") && strings.Contains(line, "view#1") {
			sawView = true
		}
	}
	if !sawEvent || !sawView {
		t.Errorf("Expected the event and the outgoing view frame traced, got %q", lines)
	}
}

func TestServer_RejectsMissingSessionID(t *testing.T) {
	srv := NewServer(testOptions())
	for _, path := range []string{PathPrefix, PathPrefix + "a/b"} {
		rec := httptest.NewRecorder()
		srv.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}
