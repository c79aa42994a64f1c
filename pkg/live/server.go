//go:build !wasm
// +build !wasm

package live

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recera/mapview/pkg/viewport"
)

// PathPrefix is where the live endpoint is mounted; the session ID follows it
const PathPrefix = "/mapview/live/"

// ErrSendBufferFull is returned when a session's outgoing queue is saturated
var ErrSendBufferFull = errors.New("send buffer full")

// DefaultSessionGrace is how long a disconnected session keeps its window
// waiting for the viewer to reconnect
const DefaultSessionGrace = 30 * time.Second

// Server handles WebSocket connections for live viewport sessions.
// Each session owns its own view state; the browser is only a render surface.
type Server struct {
	upgrader websocket.Upgrader
	opts     viewport.Options
	sessions map[string]*Session
	grace    time.Duration
	mu       sync.RWMutex
}

// Session represents one viewer: a view state, the gesture adapter driving
// it and the connection currently rendering it.
type Session struct {
	ID string

	state   *viewport.ViewState
	adapter *viewport.GestureAdapter
	surface *remoteSurface
	seq     uint64
	// mu guards the fields above against Snapshot/Reconfigure callers.
	// Input events themselves are applied by the single reader goroutine,
	// in arrival order.
	mu sync.Mutex

	link *link
	// idle removes the session once its grace period runs out; attach stops
	// it and bumps idleGen so a timer that already fired does nothing
	idle    *time.Timer
	idleGen uint64
	linkMu  sync.Mutex
}

// link is one websocket connection attached to a session. Frames queued on
// a link are never replayed onto its successor.
type link struct {
	conn     *websocket.Conn
	sendChan chan []byte
	done     chan struct{}
	once     sync.Once
}

func (l *link) close() {
	l.once.Do(func() {
		l.conn.Close()
		close(l.done)
	})
}

// NewServer creates a new live protocol server whose sessions start from opts
func NewServer(opts viewport.Options) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local viewer, any origin may connect
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		opts:     opts,
		sessions: make(map[string]*Session),
		grace:    DefaultSessionGrace,
	}
}

// SetSessionGrace sets how long a disconnected session survives before it
// is removed. Zero or less removes it as soon as its connection drops.
func (s *Server) SetSessionGrace(d time.Duration) {
	s.mu.Lock()
	s.grace = d
	s.mu.Unlock()
}

// HandleWebSocket handles WebSocket upgrade and session management
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Extract session ID from path
	sessionID := strings.TrimPrefix(r.URL.Path, PathPrefix)
	if sessionID == "" || sessionID == r.URL.Path || strings.Contains(sessionID, "/") {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	// Upgrade connection
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Live Server] Failed to upgrade connection: %v", err)
		return
	}

	session, l := s.acquire(sessionID, conn)

	// Handle the session
	go func() {
		session.handleConnection(l)
		s.expire(session, l)
	}()
}

// acquire gets an existing session or creates a new one and attaches conn
// to it. A reconnecting viewer keeps its view window.
func (s *Server) acquire(sessionID string, conn *websocket.Conn) (*Session, *link) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		session = newSession(sessionID, s.opts)
		s.sessions[sessionID] = session
		log.Printf("[Live Server] Created session %s", sessionID)
	}
	return session, session.attach(conn)
}

// expire starts the grace period of a session whose connection l dropped,
// unless a newer connection already took over
func (s *Server) expire(session *Session, l *link) {
	s.mu.RLock()
	grace := s.grace
	s.mu.RUnlock()

	session.linkMu.Lock()
	defer session.linkMu.Unlock()
	if session.link != l {
		return
	}
	session.link = nil

	session.idleGen++
	gen := session.idleGen
	session.idle = time.AfterFunc(grace, func() { s.removeIdle(session, gen) })
}

// removeIdle drops a session whose grace timer gen fired with no connection
// attached. Lock order is s.mu then linkMu, as in acquire.
func (s *Server) removeIdle(session *Session, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.linkMu.Lock()
	stale := session.idleGen == gen && session.link == nil
	if stale {
		session.idle = nil
	}
	session.linkMu.Unlock()

	if stale && s.sessions[session.ID] == session {
		delete(s.sessions, session.ID)
		log.Printf("[Live Server] Removed idle session %s", session.ID)
	}
}

func newSession(id string, opts viewport.Options) *Session {
	session := &Session{ID: id}
	session.surface = &remoteSurface{session: session}
	session.state = viewport.NewViewState(&opts)
	session.adapter = viewport.NewGestureAdapter(session.state, session.surface)
	return session
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// RemoveSession closes and removes a session
func (s *Server) RemoveSession(sessionID string) {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists {
		session.detach()
	}
}

// SessionCount returns the number of known sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot returns a copy of a session's current window
func (s *Server) Snapshot(sessionID string) (viewport.Window, bool) {
	session, ok := s.GetSession(sessionID)
	if !ok {
		return viewport.Window{}, false
	}
	return session.Window(), true
}

// Broadcast sends a control verb to every session and returns how many
// sessions accepted it
func (s *Server) Broadcast(verb string, args ...uint64) int {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	frame := EncodeControl(verb, args...)
	sent := 0
	for _, session := range sessions {
		if session.send(frame) == nil {
			sent++
		}
	}
	return sent
}

// Reconfigure replaces the options for new sessions and re-initializes every
// existing session with them, as if the viewer pressed reset.
func (s *Server) Reconfigure(opts viewport.Options) {
	s.mu.Lock()
	s.opts = opts
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		session.reconfigure(opts)
	}
	log.Printf("[Live Server] Reconfigured %d sessions", len(sessions))
}

// Close disconnects every session
func (s *Server) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.detach()
	}
}

// Window returns a copy of the session's current window
func (s *Session) Window() viewport.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Get()
}

// attach makes conn the session's connection, closing any previous one
func (s *Session) attach(conn *websocket.Conn) *link {
	l := &link{
		conn:     conn,
		sendChan: make(chan []byte, 256),
		done:     make(chan struct{}),
	}

	s.linkMu.Lock()
	old := s.link
	s.link = l
	s.idleGen++
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.linkMu.Unlock()

	if old != nil {
		log.Printf("[Live Session %s] Replacing previous connection", s.ID)
		old.close()
		s.mu.Lock()
		s.adapter.Abort()
		s.mu.Unlock()
	}
	return l
}

// current reports whether l is still the session's connection
func (s *Session) current(l *link) bool {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return s.link == l
}

func (s *Session) detach() {
	s.linkMu.Lock()
	l := s.link
	s.link = nil
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	s.linkMu.Unlock()

	if l != nil {
		l.close()
	}
}

func (s *Session) reconfigure(opts viewport.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.adapter.Abort()
	s.state = viewport.NewViewState(&opts)
	s.adapter = viewport.NewGestureAdapter(s.state, s.surface)
	s.adapter.Sync()
}

// handleConnection manages the WebSocket connection for a session
func (s *Session) handleConnection(l *link) {
	defer func() {
		l.close()
		// A drag cannot survive its input source
		if s.current(l) {
			s.mu.Lock()
			s.adapter.Abort()
			s.mu.Unlock()
		}
	}()

	go s.writer(l)

	// Send hello and the current window so the surface can draw immediately
	s.mu.Lock()
	s.send(EncodeControl(ControlHello, s.seq))
	s.adapter.Sync()
	s.mu.Unlock()
	log.Printf("[Live Session %s] Connected", s.ID)

	l.conn.SetReadDeadline(time.Now().Add(300 * time.Second))
	l.conn.SetPongHandler(func(string) error {
		l.conn.SetReadDeadline(time.Now().Add(300 * time.Second))
		return nil
	})

	// Read messages
	for {
		messageType, data, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[Live Session %s] Unexpected close: %v", s.ID, err)
			} else {
				log.Printf("[Live Session %s] Disconnected", s.ID)
			}
			return
		}
		l.conn.SetReadDeadline(time.Now().Add(300 * time.Second))

		if messageType == websocket.BinaryMessage {
			s.handleBinaryMessage(data)
		} else if messageType == websocket.TextMessage {
			log.Printf("[Live Session %s] Ignoring text message: %s", s.ID, string(data))
		}
	}
}

// writer handles writing messages to the WebSocket
func (s *Session) writer(l *link) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message := <-l.sendChan:
			l.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := l.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				log.Printf("[Live Session %s] Failed to write message: %v", s.ID, err)
				l.close()
				return
			}

		case <-ticker.C:
			l.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				l.close()
				return
			}

		case <-l.done:
			return
		}
	}
}

// send queues a frame on the current connection without blocking the caller
func (s *Session) send(frame []byte) error {
	if debugLog != nil {
		debugLog("[Live Session", s.ID+"]", "send", DescribeFrame(frame))
	}

	s.linkMu.Lock()
	l := s.link
	s.linkMu.Unlock()

	if l == nil {
		return ErrNotConnected
	}
	select {
	case l.sendChan <- frame:
		return nil
	case <-l.done:
		return ErrNotConnected
	default:
		log.Printf("[Live Session %s] Send buffer full, dropping frame", s.ID)
		return ErrSendBufferFull
	}
}

// handleBinaryMessage processes binary protocol messages
func (s *Session) handleBinaryMessage(data []byte) {
	if len(data) == 0 {
		return
	}

	switch MessageType(data[0]) {
	case FrameEvent:
		event, err := DecodeEvent(data)
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode event: %v", s.ID, err)
			return
		}
		s.mu.Lock()
		s.dispatch(event)
		s.mu.Unlock()

	case FrameControl:
		if debugLog != nil {
			debugLog("[Live Session", s.ID+"]", "recv", DescribeFrame(data))
		}
		verb, args, err := DecodeControl(data)
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode control message: %v", s.ID, err)
			return
		}

		switch verb {
		case ControlHello:
			log.Printf("[Live Session %s] Client hello: %v", s.ID, args)
		case ControlPing:
			s.send(EncodeControl(ControlPong))
		}

	default:
		log.Printf("[Live Session %s] Unknown frame type 0x%02x", s.ID, data[0])
	}
}

// dispatch routes one input event to the gesture adapter. Callers hold s.mu.
func (s *Session) dispatch(event *Event) {
	if debugLog != nil {
		debugLog("[Live Session", s.ID+"]", event.Type.String(), event.PointerID, event.X, event.Y)
	}

	pe := viewport.PointerEvent{ID: event.PointerID, ClientX: event.X, ClientY: event.Y}
	switch event.Type {
	case EventPointerDown:
		s.adapter.PointerDown(pe)
	case EventPointerMove:
		s.adapter.PointerMove(pe)
	case EventPointerUp:
		s.adapter.PointerUp(pe)
	case EventPointerCancel:
		s.adapter.PointerCancel(pe)
	case EventLostCapture:
		s.adapter.LostCapture(pe)
	case EventWheel:
		s.adapter.Wheel(viewport.WheelEvent{DeltaY: event.DeltaY, ClientX: event.X, ClientY: event.Y})
	case EventZoomIn:
		s.adapter.Press(viewport.ButtonZoomIn)
	case EventZoomOut:
		s.adapter.Press(viewport.ButtonZoomOut)
	case EventReset:
		s.adapter.Press(viewport.ButtonReset)
	case EventResize:
		s.surface.rect = event.Rect
		s.surface.pxW, s.surface.pxH = event.PixelW, event.PixelH
	}
}

// remoteSurface is the browser on the other end of the session. Geometry is
// whatever the browser last reported; presenting queues a view frame.
type remoteSurface struct {
	session *Session
	rect    viewport.Rect
	pxW     float64
	pxH     float64
}

func (r *remoteSurface) Present(w viewport.Window) {
	r.session.seq++
	r.session.send(EncodeView(r.session.seq, w))
}

func (r *remoteSurface) PixelSize() (float64, float64) {
	return r.pxW, r.pxH
}

func (r *remoteSurface) ClientRect() viewport.Rect {
	return r.rect
}

func (r *remoteSurface) CapturePointer(id uint32) {
	r.session.send(EncodeControl(ControlCapture, uint64(id)))
}

func (r *remoteSurface) ReleasePointer(id uint32) {
	r.session.send(EncodeControl(ControlRelease, uint64(id)))
}

func (r *remoteSurface) SetDragging(dragging bool) {
	var v uint64
	if dragging {
		v = 1
	}
	r.session.send(EncodeControl(ControlDragging, v))
}
