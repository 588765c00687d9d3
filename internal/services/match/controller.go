package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lexiduel/lexiduel/internal/dependencies/clock"
	"github.com/lexiduel/lexiduel/internal/dependencies/random"
	"github.com/lexiduel/lexiduel/internal/model"
	"github.com/lexiduel/lexiduel/internal/services/combo"
	"github.com/lexiduel/lexiduel/internal/services/dictionary"
	"github.com/lexiduel/lexiduel/internal/storage"
)

const matchIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Notifier delivers outbound messages to players. Delivery is best-effort;
// an offline player simply misses the message.
type Notifier interface {
	SendToPlayer(playerID model.PlayerID, msg any) bool
}

// Config holds match lifecycle settings
type Config struct {
	// Duration is the length of a match from start to deadline
	Duration time.Duration
	// Variant selects the dictionary word list
	Variant string
	// TickInterval is the period of TIMER_TICK broadcasts; zero disables
	// the ticker
	TickInterval time.Duration
}

// DefaultConfig returns the standard match settings
func DefaultConfig() Config {
	return Config{
		Duration:     180 * time.Second,
		Variant:      "en",
		TickInterval: time.Second,
	}
}

// SubmitResult is the outcome of an accepted word submission
type SubmitResult struct {
	Word       string
	BaseScore  int
	TotalScore int
	BonusScore int
	Streak     int
	OpponentID model.PlayerID
	// Exhausted is set when the accepted word was the last formable
	// candidate, so the match should finalize early
	Exhausted bool
}

// matchHandle is the in-memory side of an active match: its deadline timer,
// the words already played, and the candidate pool. The persisted Match
// record is the durable half.
type matchHandle struct {
	mu         sync.Mutex
	id         model.MatchID
	players    [2]model.PlayerID
	letters    string
	deadline   time.Time
	active     bool
	usedWords  map[string]model.PlayerID
	candidates map[string]struct{}
	timer      *time.Timer
	tickerDone chan struct{}
}

// Controller owns the lifecycle of active matches. All mutation of one
// match's in-memory state happens under that match's handle lock, so
// concurrent submissions from both players serialize.
type Controller struct {
	store    storage.Store
	dict     *dictionary.Service
	engine   *combo.Engine
	combos   *combo.Tracker
	clock    clock.Clock
	random   random.Random
	notifier Notifier
	logger   *slog.Logger
	cfg      Config

	mu      sync.RWMutex
	matches map[model.MatchID]*matchHandle
}

// NewController creates a match controller
func NewController(
	store storage.Store,
	dict *dictionary.Service,
	engine *combo.Engine,
	combos *combo.Tracker,
	clk clock.Clock,
	rnd random.Random,
	notifier Notifier,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	return &Controller{
		store:    store,
		dict:     dict,
		engine:   engine,
		combos:   combos,
		clock:    clk,
		random:   rnd,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "match")),
		cfg:      cfg,
		matches:  make(map[model.MatchID]*matchHandle),
	}
}

// StartMatch creates and persists a new match between two distinct players,
// arms its deadline timer, and notifies both players.
func (c *Controller) StartMatch(ctx context.Context, playerOne, playerTwo model.PlayerID) (*model.Match, error) {
	if playerOne == playerTwo {
		return nil, model.ErrSelfMatch
	}

	now := c.clock.Now()
	for _, playerID := range []model.PlayerID{playerOne, playerTwo} {
		if err := c.store.EnsurePlayer(ctx, playerID, now); err != nil {
			return nil, fmt.Errorf("ensuring player %s: %w", playerID, err)
		}
		if err := c.recordLogin(ctx, playerID, now); err != nil {
			return nil, fmt.Errorf("recording login for %s: %w", playerID, err)
		}
	}

	letters := c.dict.GenerateLetters(c.cfg.Variant)
	m := &model.Match{
		ID:        model.MatchID(c.random.String(12, matchIDAlphabet)),
		PlayerOne: playerOne,
		PlayerTwo: playerTwo,
		Letters:   letters,
		Status:    model.MatchStatusActive,
		CreatedAt: now,
		Deadline:  now.Add(c.cfg.Duration),
	}
	if err := c.store.SaveMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("saving match: %w", err)
	}

	c.register(m, c.cfg.Duration, nil)

	c.logger.Info("match started",
		slog.String("match_id", string(m.ID)),
		slog.String("player_one", string(playerOne)),
		slog.String("player_two", string(playerTwo)),
		slog.String("letters", letters),
	)

	c.notifier.SendToPlayer(playerOne, model.NewMatchStartMsg(m.ID, playerTwo, letters, m.Deadline))
	c.notifier.SendToPlayer(playerTwo, model.NewMatchStartMsg(m.ID, playerOne, letters, m.Deadline))

	return m, nil
}

// register installs the in-memory handle for an active match and arms its
// timers. remaining is the time until the deadline; usedWords seeds the
// duplicate set during recovery and may be nil.
func (c *Controller) register(m *model.Match, remaining time.Duration, usedWords map[string]model.PlayerID) {
	if usedWords == nil {
		usedWords = make(map[string]model.PlayerID)
	}
	candidates := make(map[string]struct{})
	for _, word := range c.dict.CandidateWords(m.Letters, c.cfg.Variant) {
		candidates[word] = struct{}{}
	}

	h := &matchHandle{
		id:         m.ID,
		players:    [2]model.PlayerID{m.PlayerOne, m.PlayerTwo},
		letters:    m.Letters,
		deadline:   m.Deadline,
		active:     true,
		usedWords:  usedWords,
		candidates: candidates,
	}

	if c.cfg.TickInterval > 0 {
		h.tickerDone = make(chan struct{})
	}

	// Handle goes into the map before the timer is armed so that a
	// deadline already microseconds away still finds it.
	c.mu.Lock()
	c.matches[m.ID] = h
	c.mu.Unlock()

	h.mu.Lock()
	h.timer = time.AfterFunc(remaining, func() {
		if _, err := c.ForceFinalize(context.Background(), m.ID); err != nil {
			c.logger.Error("deadline finalization failed",
				slog.String("match_id", string(m.ID)),
				slog.String("error", err.Error()),
			)
		}
	})
	h.mu.Unlock()

	if h.tickerDone != nil {
		go c.runTicker(h)
	}
}

// runTicker broadcasts the remaining seconds to both players until the
// match ends.
func (c *Controller) runTicker(h *matchHandle) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.tickerDone:
			return
		case <-ticker.C:
			remaining := int(h.deadline.Sub(c.clock.Now()).Seconds())
			if remaining < 0 {
				remaining = 0
			}
			msg := model.NewTimerTickMsg(h.id, remaining)
			for _, playerID := range h.players {
				c.notifier.SendToPlayer(playerID, msg)
			}
		}
	}
}

// handle returns the in-memory entry for a match, or nil
func (c *Controller) handle(matchID model.MatchID) *matchHandle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matches[matchID]
}

// SubmitWord validates and scores one word submission. Rejections return a
// sentinel error and reset the player's streak without advancing the combo
// clock; accepted words persist before any in-memory state commits, so a
// storage failure leaves the word replayable.
func (c *Controller) SubmitWord(ctx context.Context, playerID model.PlayerID, matchID model.MatchID, word string) (*SubmitResult, error) {
	h := c.handle(matchID)
	if h == nil {
		// No live handle; distinguish finished from unknown.
		m, err := c.store.GetMatch(ctx, matchID)
		if err != nil {
			return nil, model.ErrMatchNotFound
		}
		if !m.IsActive() {
			return nil, model.ErrMatchFinished
		}
		return nil, model.ErrMatchNotFound
	}

	normalized := normalizeWord(word)

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.active {
		return nil, model.ErrMatchFinished
	}
	if h.players[0] != playerID && h.players[1] != playerID {
		return nil, model.ErrNotInMatch
	}

	state := c.combos.Get(matchID, playerID)
	if _, used := h.usedWords[normalized]; used {
		c.engine.Reset(state)
		return nil, model.ErrWordAlreadyUsed
	}
	if !dictionary.CanForm(normalized, h.letters) {
		c.engine.Reset(state)
		return nil, model.ErrWordNotFormable
	}
	if !c.dict.IsValid(normalized, c.cfg.Variant) {
		c.engine.Reset(state)
		return nil, model.ErrWordNotInDictionary
	}

	now := c.clock.Now()
	baseScore := len(normalized)

	// Score on a copy and commit only after the submission persists.
	scored := *state
	result := c.engine.Advance(&scored, now, baseScore)

	sub := &model.Submission{
		MatchID:     matchID,
		PlayerID:    playerID,
		Word:        normalized,
		BaseScore:   result.BaseScore,
		TotalScore:  result.TotalScore,
		ComboLevel:  result.Streak,
		SubmittedAt: now,
	}
	if err := c.store.SaveSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("saving submission: %w", err)
	}

	*state = scored
	h.usedWords[normalized] = playerID

	opponent := h.players[0]
	if opponent == playerID {
		opponent = h.players[1]
	}

	exhausted := len(h.candidates) > 0 && c.allCandidatesUsed(h)

	c.logger.Info("word accepted",
		slog.String("match_id", string(matchID)),
		slog.String("player_id", string(playerID)),
		slog.String("word", normalized),
		slog.Int("total_score", result.TotalScore),
		slog.Int("streak", result.Streak),
	)

	return &SubmitResult{
		Word:       normalized,
		BaseScore:  result.BaseScore,
		TotalScore: result.TotalScore,
		BonusScore: result.BonusScore,
		Streak:     result.Streak,
		OpponentID: opponent,
		Exhausted:  exhausted,
	}, nil
}

// allCandidatesUsed reports whether every formable dictionary word has been
// played. Caller holds h.mu.
func (c *Controller) allCandidatesUsed(h *matchHandle) bool {
	for word := range h.candidates {
		if _, used := h.usedWords[word]; !used {
			return false
		}
	}
	return true
}

// ForceFinalize ends an active match: tallies scores from persisted
// submissions, records the winner, updates both players' counters, and
// notifies them. Safe to call concurrently with the deadline timer; only
// the first caller finalizes.
func (c *Controller) ForceFinalize(ctx context.Context, matchID model.MatchID) (*model.MatchResult, error) {
	h := c.handle(matchID)
	if h == nil {
		return nil, model.ErrMatchNotFound
	}

	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return nil, model.ErrMatchFinished
	}
	h.active = false
	if h.timer != nil {
		h.timer.Stop()
	}
	if h.tickerDone != nil {
		close(h.tickerDone)
	}
	h.mu.Unlock()

	m, err := c.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("loading match for finalization: %w", err)
	}

	result, err := c.finalizeStored(ctx, m)
	if err != nil {
		return nil, err
	}

	msg := model.NewMatchOverMsg(*result)
	c.notifier.SendToPlayer(m.PlayerOne, msg)
	c.notifier.SendToPlayer(m.PlayerTwo, msg)

	c.mu.Lock()
	delete(c.matches, matchID)
	c.mu.Unlock()
	c.combos.DropMatch(matchID)

	return result, nil
}

// finalizeStored performs the durable half of finalization on a persisted
// match record. Used both for live finalization and for matches found
// already expired during startup recovery.
func (c *Controller) finalizeStored(ctx context.Context, m *model.Match) (*model.MatchResult, error) {
	subs, err := c.store.GetSubmissionsForMatch(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("loading submissions: %w", err)
	}

	scores := map[model.PlayerID]int{m.PlayerOne: 0, m.PlayerTwo: 0}
	for _, sub := range subs {
		scores[sub.PlayerID] += sub.TotalScore
	}

	var winner *model.PlayerID
	switch {
	case scores[m.PlayerOne] > scores[m.PlayerTwo]:
		winner = &m.PlayerOne
	case scores[m.PlayerTwo] > scores[m.PlayerOne]:
		winner = &m.PlayerTwo
	}

	m.Status = model.MatchStatusFinished
	m.Winner = winner
	if err := c.store.SaveMatch(ctx, m); err != nil {
		// One retry; past that the record stays ACTIVE and the next
		// startup recovery will finalize it.
		if err = c.store.SaveMatch(ctx, m); err != nil {
			c.logger.Error("persisting finished match failed; will re-finalize on next startup",
				slog.String("match_id", string(m.ID)),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("persisting finished match: %w", err)
		}
	}

	c.updateCounters(ctx, m, winner)

	c.logger.Info("match finished",
		slog.String("match_id", string(m.ID)),
		slog.Int("score_one", scores[m.PlayerOne]),
		slog.Int("score_two", scores[m.PlayerTwo]),
		slog.Bool("tie", winner == nil),
	)

	return &model.MatchResult{MatchID: m.ID, Scores: scores, Winner: winner}, nil
}

// updateCounters applies win/loss/streak updates to both players. A tie
// touches neither record.
func (c *Controller) updateCounters(ctx context.Context, m *model.Match, winner *model.PlayerID) {
	if winner == nil {
		return
	}
	loser := m.Opponent(*winner)

	if record, err := c.store.GetPlayerRecord(ctx, *winner); err != nil {
		c.logger.Warn("loading winner record failed", slog.String("player_id", string(*winner)), slog.String("error", err.Error()))
	} else {
		record.TotalWins++
		record.WinStreak++
		if err := c.store.SavePlayerRecord(ctx, record); err != nil {
			c.logger.Warn("saving winner record failed", slog.String("player_id", string(*winner)), slog.String("error", err.Error()))
		}
	}
	if record, err := c.store.GetPlayerRecord(ctx, loser); err != nil {
		c.logger.Warn("loading loser record failed", slog.String("player_id", string(loser)), slog.String("error", err.Error()))
	} else {
		record.TotalLosses++
		record.WinStreak = 0
		if err := c.store.SavePlayerRecord(ctx, record); err != nil {
			c.logger.Warn("saving loser record failed", slog.String("player_id", string(loser)), slog.String("error", err.Error()))
		}
	}
}

// RecoverActiveMatches scans persisted matches still marked ACTIVE after a
// restart. Expired ones finalize immediately; in-window ones get their
// timers re-armed with the remaining time and their duplicate sets rebuilt
// from persisted submissions. Combo streaks do not survive a restart.
func (c *Controller) RecoverActiveMatches(ctx context.Context) error {
	active, err := c.store.GetActiveMatches(ctx)
	if err != nil {
		return fmt.Errorf("listing active matches: %w", err)
	}

	now := c.clock.Now()
	for _, m := range active {
		remaining := m.Deadline.Sub(now)
		if remaining <= 0 {
			if _, err := c.finalizeStored(ctx, m); err != nil {
				c.logger.Error("recovering expired match failed",
					slog.String("match_id", string(m.ID)),
					slog.String("error", err.Error()),
				)
			}
			continue
		}

		usedWords := make(map[string]model.PlayerID)
		subs, err := c.store.GetSubmissionsForMatch(ctx, m.ID)
		if err != nil {
			c.logger.Warn("loading submissions during recovery failed",
				slog.String("match_id", string(m.ID)),
				slog.String("error", err.Error()),
			)
		} else {
			for _, sub := range subs {
				usedWords[sub.Word] = sub.PlayerID
			}
		}

		c.register(m, remaining, usedWords)
		c.logger.Info("match recovered",
			slog.String("match_id", string(m.ID)),
			slog.Duration("remaining", remaining),
		)
	}

	return nil
}

// ActiveMatchFor returns the ID of the live match a player is in, or ok
// false when they are not in one.
func (c *Controller) ActiveMatchFor(playerID model.PlayerID) (model.MatchID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for id, h := range c.matches {
		if h.players[0] == playerID || h.players[1] == playerID {
			return id, true
		}
	}
	return "", false
}

// Shutdown stops all in-memory timers without finalizing; the persisted
// ACTIVE records are picked up by recovery on the next start.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range c.matches {
		h.mu.Lock()
		if h.active {
			h.active = false
			if h.timer != nil {
				h.timer.Stop()
			}
			if h.tickerDone != nil {
				close(h.tickerDone)
			}
		}
		h.mu.Unlock()
	}
	c.matches = make(map[model.MatchID]*matchHandle)
}

// normalizeWord lowercases and trims a submission for comparison against
// the dictionary and the duplicate set.
func normalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// recordLogin updates the daily login streak: a login on the calendar day
// after the last one extends the streak, the same day leaves it alone,
// anything later restarts it at one.
func (c *Controller) recordLogin(ctx context.Context, playerID model.PlayerID, now time.Time) error {
	record, err := c.store.GetPlayerRecord(ctx, playerID)
	if err != nil {
		return err
	}

	today := now.Truncate(24 * time.Hour)
	lastDay := record.LastLogin.Truncate(24 * time.Hour)
	switch {
	case record.LastLogin.IsZero() || today.Sub(lastDay) > 24*time.Hour:
		record.DailyStreak = 1
	case today.Sub(lastDay) == 24*time.Hour:
		record.DailyStreak++
	default:
		return nil
	}
	record.LastLogin = now
	return c.store.SavePlayerRecord(ctx, record)
}
