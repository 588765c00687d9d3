package model

import "time"

// PlayerID uniquely identifies a player across the system.
// Identity is issued externally; the engine treats it as an opaque key.
type PlayerID string

// PlayerRecord holds a player's aggregate counters, updated on match
// finalization and daily login.
type PlayerRecord struct {
	ID          PlayerID
	TotalWins   int
	TotalLosses int
	WinStreak   int
	DailyStreak int
	LastLogin   time.Time
	CreatedAt   time.Time
}

// PracticeStats is the persisted summary of a player's practice sessions.
type PracticeStats struct {
	PlayerID   PlayerID
	TotalPlays int
	BestScore  int
	UpdatedAt  time.Time
}
