package social

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lexiduel/lexiduel/internal/model"
)

// Notifier delivers outbound messages to players
type Notifier interface {
	SendToPlayer(playerID model.PlayerID, msg any) bool
}

// Starter launches a match between two players
type Starter interface {
	StartMatch(ctx context.Context, playerOne, playerTwo model.PlayerID) (*model.Match, error)
}

// Config holds friend invite settings
type Config struct {
	// InviteTTL is how long an invite stays open before expiring
	InviteTTL time.Duration
}

// DefaultConfig returns the standard social settings
func DefaultConfig() Config {
	return Config{InviteTTL: time.Hour}
}

// inviteKey identifies one directed invite
type inviteKey struct {
	from model.PlayerID
	to   model.PlayerID
}

// invite is a pending friend challenge
type invite struct {
	expiry *time.Timer
}

// Service handles friend invites: a player challenges another directly,
// and acceptance starts a match outside the matchmaking queue.
type Service struct {
	notifier Notifier
	starter  Starter
	logger   *slog.Logger
	cfg      Config

	mu      sync.Mutex
	invites map[inviteKey]*invite
}

// New creates a social service
func New(notifier Notifier, starter Starter, logger *slog.Logger, cfg Config) *Service {
	return &Service{
		notifier: notifier,
		starter:  starter,
		logger:   logger.With(slog.String("component", "social")),
		cfg:      cfg,
		invites:  make(map[inviteKey]*invite),
	}
}

// Invite sends a friend challenge from one player to another. A repeat
// invite to the same player replaces the earlier one, restarting its
// expiry.
func (s *Service) Invite(from, to model.PlayerID) error {
	if from == to {
		return model.ErrSelfMatch
	}

	key := inviteKey{from: from, to: to}

	s.mu.Lock()
	if existing, ok := s.invites[key]; ok {
		existing.expiry.Stop()
	}
	s.invites[key] = &invite{
		expiry: time.AfterFunc(s.cfg.InviteTTL, func() {
			s.expire(key)
		}),
	}
	s.mu.Unlock()

	s.logger.Info("friend invite sent",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)

	s.notifier.SendToPlayer(to, model.NewFriendInviteReceivedMsg(from))
	return nil
}

// expire drops a lapsed invite and tells the inviter
func (s *Service) expire(key inviteKey) {
	s.mu.Lock()
	_, ok := s.invites[key]
	if ok {
		delete(s.invites, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.logger.Info("friend invite expired",
		slog.String("from", string(key.from)),
		slog.String("to", string(key.to)),
	)
	s.notifier.SendToPlayer(key.from, model.NewFriendInviteExpiredMsg(key.to))
}

// Accept consumes a pending invite and starts the match. Acceptance
// without a matching recorded invite still starts the match; the invite
// table only drives expiry notices.
func (s *Service) Accept(ctx context.Context, accepter, inviter model.PlayerID) (*model.Match, error) {
	key := inviteKey{from: inviter, to: accepter}

	s.mu.Lock()
	if inv, ok := s.invites[key]; ok {
		inv.expiry.Stop()
		delete(s.invites, key)
	}
	s.mu.Unlock()

	return s.starter.StartMatch(ctx, inviter, accepter)
}

// HasInvite reports whether an invite from one player to another is open
func (s *Service) HasInvite(from, to model.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.invites[inviteKey{from: from, to: to}]
	return ok
}