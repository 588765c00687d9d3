package ws

import "github.com/lexiduel/lexiduel/internal/model"

// Conn is a live bidirectional connection capable of delivering discrete
// messages. The engine only sees this interface; the transport behind it
// (websocket framing, handshake) is established upstream.
type Conn interface {
	// ID uniquely identifies this connection within the process
	ID() string

	// PlayerID returns the identity bound to this connection, or empty
	// before the first valid message binds one
	PlayerID() model.PlayerID

	// BindPlayer binds an identity to the connection. Called once by the
	// registry on registration.
	BindPlayer(id model.PlayerID)

	// Send queues a message for delivery. Returns an error if the
	// connection is closed or its buffer is full; delivery is best-effort.
	Send(msg any) error

	// Close tears down the connection
	Close() error
}
