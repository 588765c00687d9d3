package model

import "time"

// MatchID uniquely identifies a match
type MatchID string

// MatchStatus represents the lifecycle state of a match
type MatchStatus string

const (
	MatchStatusActive   MatchStatus = "ACTIVE"
	MatchStatusFinished MatchStatus = "FINISHED"
)

// Match is the authoritative record of a two-player timed round.
// While ACTIVE an in-memory deadline timer is armed for it; the persisted
// record outlives the in-memory entry.
type Match struct {
	ID        MatchID
	PlayerOne PlayerID
	PlayerTwo PlayerID
	Letters   string
	Status    MatchStatus
	Winner    *PlayerID // nil while active, and on a tie
	CreatedAt time.Time
	Deadline  time.Time
}

// IsActive reports whether the match still accepts submissions.
func (m *Match) IsActive() bool {
	return m.Status == MatchStatusActive
}

// HasPlayer reports whether the given player is one of the two participants.
func (m *Match) HasPlayer(playerID PlayerID) bool {
	return m.PlayerOne == playerID || m.PlayerTwo == playerID
}

// Opponent returns the other participant, or empty if playerID is not in
// the match.
func (m *Match) Opponent(playerID PlayerID) PlayerID {
	switch playerID {
	case m.PlayerOne:
		return m.PlayerTwo
	case m.PlayerTwo:
		return m.PlayerOne
	}
	return ""
}

// Submission is one accepted word within a match
type Submission struct {
	MatchID     MatchID
	PlayerID    PlayerID
	Word        string // normalized lowercase
	BaseScore   int
	TotalScore  int
	ComboLevel  int
	SubmittedAt time.Time
}

// MatchResult is the outcome of finalization
type MatchResult struct {
	MatchID MatchID
	Scores  map[PlayerID]int
	Winner  *PlayerID // nil on a tie
}
