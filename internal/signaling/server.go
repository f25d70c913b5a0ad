package signaling

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/KevinRamirezAmaya/webRTC/internal/metrics"
	"github.com/KevinRamirezAmaya/webRTC/internal/ratelimit"
	"github.com/KevinRamirezAmaya/webRTC/internal/room"
)

const wsWriteWait = 1 * time.Second

// Config wires together the runtime dependencies for the signaling service.
type Config struct {
	// Registry is the shared room store. If nil, the server creates its own.
	Registry *room.Registry
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// CheckOrigin validates the Origin of WebSocket handshakes. If nil every
	// origin is accepted; the production binary enforces origins in the
	// httpserver middleware before the request reaches this package.
	CheckOrigin func(r *http.Request) bool

	SignalingWSIdleTimeout  time.Duration
	SignalingWSPingInterval time.Duration

	// WebSocket inbound signaling hardening.
	MaxSignalingMessageBytes      int64
	MaxSignalingMessagesPerSecond int

	// SendQueueBytes bounds the encoded frames waiting to be written to one
	// connection.
	SendQueueBytes int
}

// Server implements the relay's WebSocket signaling surface.
//
// Endpoints:
//   - GET /ws : room signaling events (see package documentation)
type Server struct {
	registry *room.Registry
	metrics  *metrics.Metrics
	log      *slog.Logger
	locks    *RoomLocks
	hub      *Hub
	upgrader websocket.Upgrader

	idleTimeout          time.Duration
	pingInterval         time.Duration
	maxMessageBytes      int64
	maxMessagesPerSecond int
	sendQueueBytes       int

	mu       sync.Mutex
	sessions map[*wsSession]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewServer(cfg Config) *Server {
	s := &Server{
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		locks:    NewRoomLocks(),
		hub:      NewHub(),

		idleTimeout:          cfg.SignalingWSIdleTimeout,
		pingInterval:         cfg.SignalingWSPingInterval,
		maxMessageBytes:      cfg.MaxSignalingMessageBytes,
		maxMessagesPerSecond: cfg.MaxSignalingMessagesPerSecond,
		sendQueueBytes:       cfg.SendQueueBytes,

		sessions: make(map[*wsSession]struct{}),
	}
	if s.registry == nil {
		s.registry = room.NewRegistry()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.idleTimeout <= 0 {
		s.idleTimeout = 60 * time.Second
	}
	if s.pingInterval <= 0 || s.pingInterval >= s.idleTimeout {
		s.pingInterval = s.idleTimeout / 3
	}
	if s.maxMessageBytes <= 0 {
		s.maxMessageBytes = 64 * 1024
	}
	if s.maxMessagesPerSecond <= 0 {
		s.maxMessagesPerSecond = 50
	}
	if s.sendQueueBytes <= 0 {
		s.sendQueueBytes = 1 << 20
	}

	checkOrigin := cfg.CheckOrigin
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if checkOrigin == nil || checkOrigin(r) {
				return true
			}
			s.metrics.Inc(metrics.OriginRejected)
			return false
		},
	}
	return s
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Registry returns the room store the server's relays operate on.
func (s *Server) Registry() *room.Registry { return s.registry }

// Connections returns the number of open WebSocket sessions.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close closes every open session and waits for their departure broadcasts to
// be applied. New upgrades are refused afterwards.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*wsSession, 0, len(s.sessions))
	for ws := range s.sessions {
		sessions = append(sessions, ws)
	}
	s.mu.Unlock()

	for _, ws := range sessions {
		ws.closeWith(websocket.CloseGoingAway, "server shutting down")
		ws.Close()
	}
	s.wg.Wait()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "remote_addr", r.RemoteAddr, "err", err)
		return
	}

	ws := s.newSession(conn)
	if !s.track(ws) {
		ws.closeWith(websocket.CloseGoingAway, "server shutting down")
		ws.Close()
		return
	}
	defer s.untrack(ws)
	ws.run()
}

func (s *Server) track(ws *wsSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[ws] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(ws *wsSession) {
	s.mu.Lock()
	delete(s.sessions, ws)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) newSession(conn *websocket.Conn) *wsSession {
	id := uuid.NewString()
	ws := &wsSession{
		id:     id,
		srv:    s,
		conn:   conn,
		outbox: newOutbox(s.sendQueueBytes),
		limiter: ratelimit.NewTokenBucket(
			ratelimit.RealClock{},
			int64(s.maxMessagesPerSecond),
			int64(s.maxMessagesPerSecond),
		),
		log:        s.log.With("conn_id", id),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	ws.relay = NewRelay(RelayConfig{
		Registry: s.registry,
		Locks:    s.locks,
		Metrics:  s.metrics,
		Logger:   ws.log,
		ConnID:   id,
	}, ws)
	return ws
}

// wsSession is one WebSocket connection. It is the Relay's Transport.
type wsSession struct {
	id      string
	srv     *Server
	conn    *websocket.Conn
	outbox  *outbox
	limiter *ratelimit.TokenBucket
	relay   *Relay
	log     *slog.Logger

	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

func (ws *wsSession) run() {
	defer ws.Close()
	ws.srv.metrics.Inc(metrics.ConnectionsOpened)
	ws.log.Info("signaling connection opened", "remote_addr", ws.conn.RemoteAddr().String())

	go ws.writeLoop()
	go ws.pingLoop()

	idle := ws.srv.idleTimeout
	ws.conn.SetReadLimit(ws.srv.maxMessageBytes)
	_ = ws.conn.SetReadDeadline(time.Now().Add(idle))
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(idle))
	})

	// Runs before Close so departure broadcasts go out while the hub still
	// routes to the other members.
	defer ws.relay.Disconnect()

	for {
		msgType, data, err := ws.conn.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				ws.closeWith(websocket.CloseNormalClosure, "idle timeout")
			}
			ws.log.Debug("signaling read ended", "err", err)
			return
		}
		_ = ws.conn.SetReadDeadline(time.Now().Add(idle))

		// Apply the rate limit after reading so bytes already in the receive
		// buffer are consumed and the client observes the close frame.
		if !ws.limiter.Allow(1) {
			ws.srv.metrics.Inc(metrics.RateLimitedEvents)
			ws.fail(CodeRateLimited, "rate limit exceeded", websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
		if msgType != websocket.TextMessage {
			_ = ws.relay.reject(badMessage("", "expected text message"))
			continue
		}
		_ = ws.relay.HandleFrame(data)
	}
}

func (ws *wsSession) writeLoop() {
	defer close(ws.writerDone)
	for {
		frame, ok := ws.outbox.Pop()
		if !ok {
			return
		}
		_ = ws.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := ws.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			ws.log.Debug("signaling write failed", "err", err)
			ws.outbox.Close()
			ws.outbox.Discard()
			// Unblocks the read loop, which runs the disconnect path.
			_ = ws.conn.Close()
			return
		}
	}
}

func (ws *wsSession) pingLoop() {
	ticker := time.NewTicker(ws.srv.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ws.done:
			return
		case <-ticker.C:
			if err := ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (ws *wsSession) Emit(event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		ws.log.Error("failed to encode signaling frame", "event", event, "err", err)
		return err
	}
	if err := ws.enqueue(frame); err != nil {
		ws.dropped(event, err)
		return err
	}
	return nil
}

func (ws *wsSession) Broadcast(roomID, event string, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		ws.log.Error("failed to encode signaling frame", "event", event, "room_id", roomID, "err", err)
		return
	}
	_, failed := ws.srv.hub.broadcast(roomID, ws, frame)
	for _, err := range failed {
		ws.dropped(event, err)
	}
}

func (ws *wsSession) Subscribe(roomID string)   { ws.srv.hub.subscribe(roomID, ws) }
func (ws *wsSession) Unsubscribe(roomID string) { ws.srv.hub.unsubscribe(roomID, ws) }

func (ws *wsSession) enqueue(frame []byte) error {
	return ws.outbox.Push(frame)
}

func (ws *wsSession) dropped(event string, err error) {
	ws.srv.metrics.Inc(metrics.SendDropped)
	if errors.Is(err, ErrConnectionClosed) {
		ws.log.Debug("dropping frame for closed connection", "event", event)
		return
	}
	ws.log.Warn("dropping frame for slow connection", "event", event, "err", err)
}

// fail reports a fatal error to the client, flushes what is queued and sends
// a close frame.
func (ws *wsSession) fail(code, message string, closeCode int, closeReason string) {
	_ = ws.Emit(EventError, ErrorNotice{Code: code, Message: message})
	ws.outbox.Close()
	select {
	case <-ws.writerDone:
	case <-time.After(wsWriteWait):
	}
	ws.closeWith(closeCode, closeReason)
}

func (ws *wsSession) closeWith(code int, reason string) {
	_ = ws.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}

func (ws *wsSession) Close() {
	ws.closeOnce.Do(func() {
		close(ws.done)
		ws.outbox.Close()
		_ = ws.conn.Close()
		ws.srv.metrics.Inc(metrics.ConnectionsClosed)
		ws.log.Info("signaling connection closed")
	})
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
