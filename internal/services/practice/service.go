package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lexiduel/lexiduel/internal/dependencies/clock"
	"github.com/lexiduel/lexiduel/internal/model"
	"github.com/lexiduel/lexiduel/internal/services/combo"
	"github.com/lexiduel/lexiduel/internal/services/dictionary"
	"github.com/lexiduel/lexiduel/internal/storage"
)

// Notifier delivers outbound messages to players
type Notifier interface {
	SendToPlayer(playerID model.PlayerID, msg any) bool
}

// Reroll reasons carried on PRACTICE_LETTERS_UPDATED
const (
	RerollManual = "MANUAL_REROLL"
	RerollAuto   = "AUTO_REROLL"
)

// Config holds practice session settings
type Config struct {
	// Variant selects the dictionary word list
	Variant string
	// AutoRerollInterval is how long a hand sits before fresh letters are
	// dealt automatically; zero disables auto-reroll
	AutoRerollInterval time.Duration
}

// DefaultConfig returns the standard practice settings
func DefaultConfig() Config {
	return Config{
		Variant:            "en",
		AutoRerollInterval: 30 * time.Second,
	}
}

// session is one player's in-memory practice state. Sessions do not
// survive a restart; only the aggregate stats persist.
type session struct {
	letters    string
	score      int
	usedWords  map[string]struct{}
	comboState combo.State
	rerollDone chan struct{}
}

// Service runs solo practice sessions: same letters, dictionary, and combo
// rules as a match, but no opponent and no clock pressure.
type Service struct {
	store    storage.Store
	dict     *dictionary.Service
	engine   *combo.Engine
	clock    clock.Clock
	notifier Notifier
	logger   *slog.Logger
	cfg      Config

	mu       sync.Mutex
	sessions map[model.PlayerID]*session
}

// New creates a practice service
func New(
	store storage.Store,
	dict *dictionary.Service,
	engine *combo.Engine,
	clk clock.Clock,
	notifier Notifier,
	logger *slog.Logger,
	cfg Config,
) *Service {
	return &Service{
		store:    store,
		dict:     dict,
		engine:   engine,
		clock:    clk,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "practice")),
		cfg:      cfg,
		sessions: make(map[model.PlayerID]*session),
	}
}

// Start begins a practice session for a player, replacing any session
// already in progress.
func (s *Service) Start(ctx context.Context, playerID model.PlayerID) (string, error) {
	if err := s.store.EnsurePlayer(ctx, playerID, s.clock.Now()); err != nil {
		return "", fmt.Errorf("ensuring player: %w", err)
	}

	letters := s.dict.GenerateLetters(s.cfg.Variant)
	sess := &session{
		letters:   letters,
		usedWords: make(map[string]struct{}),
	}

	s.mu.Lock()
	if prior, ok := s.sessions[playerID]; ok && prior.rerollDone != nil {
		close(prior.rerollDone)
	}
	s.sessions[playerID] = sess
	if s.cfg.AutoRerollInterval > 0 {
		sess.rerollDone = make(chan struct{})
		go s.runAutoReroll(playerID, sess)
	}
	s.mu.Unlock()

	s.logger.Info("practice started",
		slog.String("player_id", string(playerID)),
		slog.String("letters", letters),
	)

	s.notifier.SendToPlayer(playerID, model.NewPracticeStartedMsg(letters))
	return letters, nil
}

// runAutoReroll deals fresh letters whenever a hand has sat untouched for
// the full interval. Rerolling or ending the session restarts or stops it.
func (s *Service) runAutoReroll(playerID model.PlayerID, sess *session) {
	ticker := time.NewTicker(s.cfg.AutoRerollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.rerollDone:
			return
		case <-ticker.C:
			if _, err := s.reroll(playerID, sess, RerollAuto); err != nil {
				return
			}
		}
	}
}

// Reroll deals fresh letters on request
func (s *Service) Reroll(playerID model.PlayerID) (string, error) {
	s.mu.Lock()
	sess, ok := s.sessions[playerID]
	s.mu.Unlock()
	if !ok {
		return "", model.ErrNoPracticeSession
	}
	return s.reroll(playerID, sess, RerollManual)
}

// reroll swaps the session's letters and notifies the player. Fails if the
// session has been replaced or ended since sess was captured.
func (s *Service) reroll(playerID model.PlayerID, sess *session, reason string) (string, error) {
	letters := s.dict.GenerateLetters(s.cfg.Variant)

	s.mu.Lock()
	current, ok := s.sessions[playerID]
	if !ok || current != sess {
		s.mu.Unlock()
		return "", model.ErrNoPracticeSession
	}
	sess.letters = letters
	s.mu.Unlock()

	s.notifier.SendToPlayer(playerID, model.NewPracticeLettersUpdatedMsg(letters, reason))
	return letters, nil
}

// SubmitResult is the outcome of an accepted practice submission
type SubmitResult struct {
	Word       string
	BaseScore  int
	TotalScore int
	BonusScore int
	Streak     int
	FinalScore int
}

// SubmitWord validates and scores a word within the player's practice
// session. Same rules as a match: duplicates, unformable, and unknown
// words are rejected and reset the streak.
func (s *Service) SubmitWord(playerID model.PlayerID, word string) (*SubmitResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(word))

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[playerID]
	if !ok {
		return nil, model.ErrNoPracticeSession
	}

	if _, used := sess.usedWords[normalized]; used {
		s.engine.Reset(&sess.comboState)
		return nil, model.ErrWordAlreadyUsed
	}
	if !dictionary.CanForm(normalized, sess.letters) {
		s.engine.Reset(&sess.comboState)
		return nil, model.ErrWordNotFormable
	}
	if !s.dict.IsValid(normalized, s.cfg.Variant) {
		s.engine.Reset(&sess.comboState)
		return nil, model.ErrWordNotInDictionary
	}

	result := s.engine.Advance(&sess.comboState, s.clock.Now(), len(normalized))
	sess.usedWords[normalized] = struct{}{}
	sess.score += result.TotalScore

	return &SubmitResult{
		Word:       normalized,
		BaseScore:  result.BaseScore,
		TotalScore: result.TotalScore,
		BonusScore: result.BonusScore,
		Streak:     result.Streak,
		FinalScore: sess.score,
	}, nil
}

// End closes the player's practice session and folds the final score into
// their persisted stats. Returns the final score and whether it set a new
// personal best.
func (s *Service) End(ctx context.Context, playerID model.PlayerID) (int, bool, error) {
	s.mu.Lock()
	sess, ok := s.sessions[playerID]
	if !ok {
		s.mu.Unlock()
		return 0, false, model.ErrNoPracticeSession
	}
	delete(s.sessions, playerID)
	if sess.rerollDone != nil {
		close(sess.rerollDone)
	}
	s.mu.Unlock()

	now := s.clock.Now()
	stats, err := s.store.GetPracticeStats(ctx, playerID)
	if errors.Is(err, model.ErrStatsNotFound) {
		stats = &model.PracticeStats{PlayerID: playerID}
	} else if err != nil {
		return 0, false, fmt.Errorf("loading practice stats: %w", err)
	}
	stats.TotalPlays++
	newBest := sess.score > stats.BestScore
	if newBest {
		stats.BestScore = sess.score
	}
	stats.UpdatedAt = now
	if err := s.store.SavePracticeStats(ctx, stats); err != nil {
		return 0, false, fmt.Errorf("saving practice stats: %w", err)
	}

	s.logger.Info("practice ended",
		slog.String("player_id", string(playerID)),
		slog.Int("final_score", sess.score),
		slog.Bool("new_best", newBest),
	)

	s.notifier.SendToPlayer(playerID, model.NewPracticeEndedMsg(sess.score, newBest))
	return sess.score, newBest, nil
}

// HasSession reports whether a player has a practice session in progress
func (s *Service) HasSession(playerID model.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[playerID]
	return ok
}