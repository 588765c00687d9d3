package ws

import (
	"log/slog"
	"sync"

	"github.com/lexiduel/lexiduel/internal/model"
)

// Registry maps player identities to their live connections. A player may
// hold several connections at once (multiple tabs); the most recently
// registered live one is the primary, used for queue and match delivery.
type Registry struct {
	mu       sync.RWMutex
	byPlayer map[model.PlayerID][]Conn // registration order, last is primary
	byConn   map[string]model.PlayerID
	logger   *slog.Logger

	// onConnect fires on every transition from zero to one live
	// connections; onDisconnect on every transition back to zero.
	// Both fire at most once per transition, outside the registry lock.
	onConnect    func(model.PlayerID)
	onDisconnect func(model.PlayerID)
}

// NewRegistry creates an empty connection registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byPlayer: make(map[model.PlayerID][]Conn),
		byConn:   make(map[string]model.PlayerID),
		logger:   logger.With(slog.String("component", "registry")),
	}
}

// SetCallbacks installs the presence-transition callbacks. Must be called
// before the registry starts receiving connections.
func (r *Registry) SetCallbacks(onConnect, onDisconnect func(model.PlayerID)) {
	r.onConnect = onConnect
	r.onDisconnect = onDisconnect
}

// Register binds a connection to a player and makes it the primary.
// Registering an already-registered connection is a no-op.
func (r *Registry) Register(playerID model.PlayerID, conn Conn) {
	r.mu.Lock()
	if _, ok := r.byConn[conn.ID()]; ok {
		r.mu.Unlock()
		return
	}
	wasOffline := len(r.byPlayer[playerID]) == 0
	r.byPlayer[playerID] = append(r.byPlayer[playerID], conn)
	r.byConn[conn.ID()] = playerID
	conn.BindPlayer(playerID)
	total := len(r.byPlayer[playerID])
	r.mu.Unlock()

	r.logger.Info("connection registered",
		slog.String("player_id", string(playerID)),
		slog.String("conn_id", conn.ID()),
		slog.Int("live_connections", total),
	)

	if wasOffline && r.onConnect != nil {
		r.onConnect(playerID)
	}
}

// Unregister removes a connection. If it was the primary and other live
// connections remain, the most recently registered survivor takes over;
// if none remain the player is offline and the disconnect callback fires.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	playerID, ok := r.byConn[conn.ID()]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byConn, conn.ID())

	conns := r.byPlayer[playerID]
	for i, c := range conns {
		if c.ID() == conn.ID() {
			conns = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	nowOffline := len(conns) == 0
	if nowOffline {
		delete(r.byPlayer, playerID)
	} else {
		r.byPlayer[playerID] = conns
	}
	r.mu.Unlock()

	r.logger.Info("connection unregistered",
		slog.String("player_id", string(playerID)),
		slog.String("conn_id", conn.ID()),
		slog.Bool("offline", nowOffline),
	)

	if nowOffline && r.onDisconnect != nil {
		r.onDisconnect(playerID)
	}
}

// Primary returns the player's primary connection, or nil if offline
func (r *Registry) Primary(playerID model.PlayerID) Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byPlayer[playerID]
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// AllLive returns every live connection for a player
func (r *Registry) AllLive(playerID model.PlayerID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byPlayer[playerID]
	result := make([]Conn, len(conns))
	copy(result, conns)
	return result
}

// IsOnline reports whether the player has at least one live connection
func (r *Registry) IsOnline(playerID model.PlayerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPlayer[playerID]) > 0
}

// SendToPlayer delivers a message to the player's primary connection.
// Returns false if the player is offline or delivery failed; absence of a
// connection is not an error.
func (r *Registry) SendToPlayer(playerID model.PlayerID, msg any) bool {
	conn := r.Primary(playerID)
	if conn == nil {
		return false
	}
	if err := conn.Send(msg); err != nil {
		r.logger.Warn("send to primary failed",
			slog.String("player_id", string(playerID)),
			slog.String("conn_id", conn.ID()),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}
