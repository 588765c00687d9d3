package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lexiduel/lexiduel/internal/model"
	"github.com/lexiduel/lexiduel/internal/storage"
)

// Storage is an in-memory implementation of the store interface, used in
// tests and single-process dev mode.
type Storage struct {
	mu sync.RWMutex

	players       map[model.PlayerID]*model.PlayerRecord
	matches       map[model.MatchID]*model.Match
	submissions   map[model.MatchID][]*model.Submission
	practiceStats map[model.PlayerID]*model.PracticeStats
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:       make(map[model.PlayerID]*model.PlayerRecord),
		matches:       make(map[model.MatchID]*model.Match),
		submissions:   make(map[model.MatchID][]*model.Submission),
		practiceStats: make(map[model.PlayerID]*model.PracticeStats),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Player operations

func (s *Storage) EnsurePlayer(ctx context.Context, id model.PlayerID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		s.players[id] = &model.PlayerRecord{ID: id, CreatedAt: now}
	}
	return nil
}

func (s *Storage) GetPlayerRecord(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *Storage) SavePlayerRecord(ctx context.Context, record *model.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.players[record.ID] = &copied
	return nil
}

// Match operations

func (s *Storage) SaveMatch(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *match
	s.matches[match.ID] = &copied
	return nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	copied := *match
	return &copied, nil
}

func (s *Storage) GetActiveMatches(ctx context.Context) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []*model.Match
	for _, match := range s.matches {
		if match.Status == model.MatchStatusActive {
			copied := *match
			active = append(active, &copied)
		}
	}
	return active, nil
}

// Submission operations

func (s *Storage) SaveSubmission(ctx context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sub
	s.submissions[sub.MatchID] = append(s.submissions[sub.MatchID], &copied)
	return nil
}

func (s *Storage) GetSubmissionsForMatch(ctx context.Context, matchID model.MatchID) ([]*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := s.submissions[matchID]
	result := make([]*model.Submission, len(subs))
	for i, sub := range subs {
		copied := *sub
		result[i] = &copied
	}
	return result, nil
}

// Practice stats operations

func (s *Storage) GetPracticeStats(ctx context.Context, id model.PlayerID) (*model.PracticeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.practiceStats[id]
	if !ok {
		return nil, model.ErrStatsNotFound
	}
	copied := *stats
	return &copied, nil
}

func (s *Storage) SavePracticeStats(ctx context.Context, stats *model.PracticeStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *stats
	s.practiceStats[stats.PlayerID] = &copied
	return nil
}
