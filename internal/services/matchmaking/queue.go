package matchmaking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lexiduel/lexiduel/internal/dependencies/clock"
	"github.com/lexiduel/lexiduel/internal/model"
)

// Presence reports whether a player currently has a live connection
type Presence interface {
	IsOnline(playerID model.PlayerID) bool
}

// Notifier delivers outbound messages to players
type Notifier interface {
	SendToPlayer(playerID model.PlayerID, msg any) bool
}

// Starter launches a match between two paired players
type Starter interface {
	StartMatch(ctx context.Context, playerOne, playerTwo model.PlayerID) (*model.Match, error)
}

// Config holds matchmaking settings
type Config struct {
	// GraceWindow is how long a disconnected player keeps their queue
	// position before being dropped
	GraceWindow time.Duration
	// SweepInterval is the period of the expiry sweep
	SweepInterval time.Duration
}

// DefaultConfig returns the standard matchmaking settings
func DefaultConfig() Config {
	return Config{
		GraceWindow:   30 * time.Second,
		SweepInterval: 10 * time.Second,
	}
}

// disconnectRecord remembers a queued player's position while their
// connection is down
type disconnectRecord struct {
	at       time.Time
	position int // 1-based position at disconnect time
}

// Queue is the FIFO matchmaking queue. Disconnected players are not
// removed immediately; they hold their slot for the grace window and are
// skipped during pairing while offline.
type Queue struct {
	presence Presence
	notifier Notifier
	starter  Starter
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config

	mu          sync.Mutex
	entries     []model.PlayerID
	disconnects map[model.PlayerID]*disconnectRecord
}

// NewQueue creates an empty matchmaking queue
func NewQueue(presence Presence, notifier Notifier, starter Starter, clk clock.Clock, logger *slog.Logger, cfg Config) *Queue {
	return &Queue{
		presence:    presence,
		notifier:    notifier,
		starter:     starter,
		clock:       clk,
		logger:      logger.With(slog.String("component", "matchmaking")),
		cfg:         cfg,
		disconnects: make(map[model.PlayerID]*disconnectRecord),
	}
}

// Join enqueues a player and attempts to pair. Joining while already
// queued is idempotent and re-acks the current position.
func (q *Queue) Join(ctx context.Context, playerID model.PlayerID) {
	q.mu.Lock()
	position := q.indexOf(playerID) + 1
	if position == 0 {
		q.entries = append(q.entries, playerID)
		position = len(q.entries)
		delete(q.disconnects, playerID)
	}
	queued := q.snapshot()
	q.mu.Unlock()

	q.logger.Info("player queued",
		slog.String("player_id", string(playerID)),
		slog.Int("position", position),
	)

	q.notifier.SendToPlayer(playerID, model.NewQueueJoinedMsg(position))
	q.broadcastUpdate(queued)
	q.TryMatch(ctx)
}

// Leave removes a player from the queue
func (q *Queue) Leave(playerID model.PlayerID) error {
	q.mu.Lock()
	idx := q.indexOf(playerID)
	if idx < 0 {
		q.mu.Unlock()
		return model.ErrNotQueued
	}
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	delete(q.disconnects, playerID)
	queued := q.snapshot()
	q.mu.Unlock()

	q.logger.Info("player left queue", slog.String("player_id", string(playerID)))

	q.notifier.SendToPlayer(playerID, model.NewQueueLeftMsg())
	q.broadcastUpdate(queued)
	return nil
}

// TryMatch pairs the two earliest-queued online players, repeatedly until
// no pair can be formed. Offline players in their grace window are skipped
// but keep their slot.
func (q *Queue) TryMatch(ctx context.Context) {
	for {
		playerOne, playerTwo, ok := q.takePair()
		if !ok {
			return
		}

		if _, err := q.starter.StartMatch(ctx, playerOne, playerTwo); err != nil {
			q.logger.Error("starting match failed; requeueing pair",
				slog.String("player_one", string(playerOne)),
				slog.String("player_two", string(playerTwo)),
				slog.String("error", err.Error()),
			)
			q.mu.Lock()
			q.entries = append([]model.PlayerID{playerOne, playerTwo}, q.entries...)
			q.mu.Unlock()
			return
		}

		q.mu.Lock()
		queued := q.snapshot()
		q.mu.Unlock()
		q.broadcastUpdate(queued)
	}
}

// takePair removes and returns the two earliest online players, preserving
// the order of everyone skipped. ok is false when fewer than two online
// players are queued.
func (q *Queue) takePair() (model.PlayerID, model.PlayerID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	first, second := -1, -1
	for i, playerID := range q.entries {
		if !q.presence.IsOnline(playerID) {
			continue
		}
		if first < 0 {
			first = i
			continue
		}
		if q.entries[first] != playerID {
			second = i
			break
		}
	}
	if second < 0 {
		return "", "", false
	}

	playerOne := q.entries[first]
	playerTwo := q.entries[second]
	remaining := make([]model.PlayerID, 0, len(q.entries)-2)
	for i, playerID := range q.entries {
		if i == first || i == second {
			continue
		}
		remaining = append(remaining, playerID)
	}
	q.entries = remaining
	delete(q.disconnects, playerOne)
	delete(q.disconnects, playerTwo)
	return playerOne, playerTwo, true
}

// HandleDisconnect marks a queued player as disconnected, starting their
// grace window. Players not in the queue are ignored.
func (q *Queue) HandleDisconnect(playerID model.PlayerID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	idx := q.indexOf(playerID)
	if idx < 0 {
		return
	}
	q.disconnects[playerID] = &disconnectRecord{
		at:       q.clock.Now(),
		position: idx + 1,
	}
}

// HandleReconnect restores a player who reconnected inside their grace
// window to at worst one position behind where they were, then attempts to
// pair.
func (q *Queue) HandleReconnect(ctx context.Context, playerID model.PlayerID) {
	q.mu.Lock()
	record, ok := q.disconnects[playerID]
	if !ok {
		q.mu.Unlock()
		q.TryMatch(ctx)
		return
	}
	delete(q.disconnects, playerID)

	idx := q.indexOf(playerID)
	if idx >= 0 {
		q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	}
	target := record.position - 1
	if target > len(q.entries) {
		target = len(q.entries)
	}
	if target < 0 {
		target = 0
	}
	q.entries = append(q.entries[:target], append([]model.PlayerID{playerID}, q.entries[target:]...)...)
	position := target + 1
	q.mu.Unlock()

	q.logger.Info("player reconnected to queue",
		slog.String("player_id", string(playerID)),
		slog.Int("position", position),
	)

	q.notifier.SendToPlayer(playerID, model.NewQueueJoinedMsg(position))
	q.TryMatch(ctx)
}

// Run sweeps expired grace windows until the context is cancelled
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.SweepExpired()
		}
	}
}

// SweepExpired drops queued players whose grace window has lapsed
func (q *Queue) SweepExpired() {
	now := q.clock.Now()

	q.mu.Lock()
	var dropped []model.PlayerID
	for playerID, record := range q.disconnects {
		if now.Sub(record.at) < q.cfg.GraceWindow {
			continue
		}
		delete(q.disconnects, playerID)
		if idx := q.indexOf(playerID); idx >= 0 {
			q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
			dropped = append(dropped, playerID)
		}
	}
	queued := q.snapshot()
	q.mu.Unlock()

	if len(dropped) == 0 {
		return
	}
	for _, playerID := range dropped {
		q.logger.Info("grace window expired; dequeued",
			slog.String("player_id", string(playerID)),
		)
	}
	q.broadcastUpdate(queued)
}

// Contains reports whether a player is queued
func (q *Queue) Contains(playerID model.PlayerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexOf(playerID) >= 0
}

// Len returns the number of queued players
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// indexOf returns the player's index in entries, or -1. Caller holds q.mu.
func (q *Queue) indexOf(playerID model.PlayerID) int {
	for i, id := range q.entries {
		if id == playerID {
			return i
		}
	}
	return -1
}

// snapshot copies the current entries. Caller holds q.mu.
func (q *Queue) snapshot() []model.PlayerID {
	queued := make([]model.PlayerID, len(q.entries))
	copy(queued, q.entries)
	return queued
}

// broadcastUpdate sends the current queue depth to everyone still queued
func (q *Queue) broadcastUpdate(queued []model.PlayerID) {
	msg := model.NewQueueUpdateMsg(len(queued))
	for _, playerID := range queued {
		q.notifier.SendToPlayer(playerID, msg)
	}
}