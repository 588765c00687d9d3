package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lexiduel/lexiduel/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsConn wraps one websocket connection. Writes go through a buffered
// channel drained by a single writer goroutine, so Send never blocks a
// service; a full buffer drops the connection instead.
type wsConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	playerID model.PlayerID
	closed   bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) PlayerID() model.PlayerID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *wsConn) BindPlayer(playerID model.PlayerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// Send queues a message for delivery. Closing the connection when the
// buffer is full prevents one slow client from backing up the caller.
func (c *wsConn) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.closed = true
		close(c.send)
		return websocket.ErrCloseSent
	}
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// Server upgrades HTTP requests to websocket sessions and runs them
type Server struct {
	registry   *Registry
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewServer creates a websocket server
func NewServer(registry *Registry, dispatcher *Dispatcher, logger *slog.Logger) *Server {
	return &Server{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP upgrades the request and runs the connection's read and write
// pumps until either side closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := newWSConn(raw)
	s.logger.Info("connection opened", slog.String("conn_id", conn.id))

	go s.writePump(conn, raw)
	s.readPump(r.Context(), conn, raw)
}

// readPump reads frames off the wire and dispatches them. Exiting tears
// the connection down and unregisters it.
func (s *Server) readPump(ctx context.Context, conn *wsConn, raw *websocket.Conn) {
	defer func() {
		s.registry.Unregister(conn)
		_ = conn.Close()
		_ = raw.Close()
		s.logger.Info("connection closed", slog.String("conn_id", conn.id))
	}()

	raw.SetReadLimit(maxMessageSize)
	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("read failed",
					slog.String("conn_id", conn.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		s.dispatcher.Dispatch(ctx, conn, data)
	}
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings.
func (s *Server) writePump(conn *wsConn, raw *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = raw.Close()
	}()

	for {
		select {
		case data, ok := <-conn.send:
			_ = raw.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = raw.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := raw.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = raw.SetWriteDeadline(time.Now().Add(writeWait))
			if err := raw.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}