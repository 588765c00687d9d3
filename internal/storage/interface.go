package storage

import (
	"context"
	"time"

	"github.com/lexiduel/lexiduel/internal/model"
)

// Store defines the narrow persistence contract the session engine consumes.
// Matches and submissions are the only state that must survive a restart;
// player records and practice stats are aggregate counters.
type Store interface {
	// Player operations
	// EnsurePlayer creates a placeholder record for the identity if none
	// exists. Idempotent.
	EnsurePlayer(ctx context.Context, id model.PlayerID, now time.Time) error
	GetPlayerRecord(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error)
	SavePlayerRecord(ctx context.Context, record *model.PlayerRecord) error

	// Match operations
	SaveMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	// GetActiveMatches returns every persisted match still marked ACTIVE,
	// used for crash recovery on startup.
	GetActiveMatches(ctx context.Context) ([]*model.Match, error)

	// Submission operations
	SaveSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionsForMatch(ctx context.Context, matchID model.MatchID) ([]*model.Submission, error)

	// Practice stats operations
	GetPracticeStats(ctx context.Context, id model.PlayerID) (*model.PracticeStats, error)
	SavePracticeStats(ctx context.Context, stats *model.PracticeStats) error
}
