package model

import "time"

// InboundType tags a client-to-server message
type InboundType string

const (
	// Matchmaking
	InJoinQueue  InboundType = "JOIN_QUEUE"
	InLeaveQueue InboundType = "LEAVE_QUEUE"

	// Match play
	InSubmitWord InboundType = "SUBMIT_WORD"

	// Practice
	InStartPractice      InboundType = "START_PRACTICE"
	InPracticeReroll     InboundType = "PRACTICE_REROLL"
	InSubmitPracticeWord InboundType = "SUBMIT_PRACTICE_WORD"
	InEndPractice        InboundType = "END_PRACTICE"

	// Social
	InFriendInvite       InboundType = "FRIEND_INVITE"
	InFriendInviteAccept InboundType = "FRIEND_INVITE_ACCEPTED"
)

// Inbound is the single schema for client-to-server messages. Fields beyond
// the tag and player identity are type-specific; Validate enforces which
// are required so handlers never probe for optional shapes.
type Inbound struct {
	Type     InboundType `json:"type"`
	PlayerID PlayerID    `json:"playerId"`

	// SUBMIT_WORD / SUBMIT_PRACTICE_WORD
	MatchID MatchID `json:"matchId,omitempty"`
	Word    string  `json:"word,omitempty"`

	// FRIEND_INVITE / FRIEND_INVITE_ACCEPTED
	ToPlayerID PlayerID `json:"toPlayerId,omitempty"`
}

// Validate checks that the message carries the fields its type requires.
func (m *Inbound) Validate() error {
	if m.PlayerID == "" {
		return ErrMissingPlayerID
	}
	switch m.Type {
	case InJoinQueue, InLeaveQueue,
		InStartPractice, InPracticeReroll, InEndPractice:
		return nil
	case InSubmitWord:
		if m.MatchID == "" || m.Word == "" {
			return ErrMalformedMessage
		}
		return nil
	case InSubmitPracticeWord:
		if m.Word == "" {
			return ErrMalformedMessage
		}
		return nil
	case InFriendInvite, InFriendInviteAccept:
		if m.ToPlayerID == "" {
			return ErrMalformedMessage
		}
		return nil
	}
	return ErrUnknownMessageType
}

// OutboundType tags a server-to-client message
type OutboundType string

const (
	// Matchmaking
	OutQueueJoined OutboundType = "QUEUE_JOINED"
	OutQueueLeft   OutboundType = "QUEUE_LEFT"
	OutQueueUpdate OutboundType = "QUEUE_UPDATE"

	// Match play
	OutMatchStart        OutboundType = "MATCH_START"
	OutTimerTick         OutboundType = "TIMER_TICK"
	OutWordResult        OutboundType = "WORD_RESULT"
	OutOpponentSubmitted OutboundType = "OPPONENT_SUBMITTED"
	OutMatchOver         OutboundType = "MATCH_OVER"

	// Practice
	OutPracticeStarted        OutboundType = "PRACTICE_STARTED"
	OutPracticeLettersUpdated OutboundType = "PRACTICE_LETTERS_UPDATED"
	OutPracticeWordResult     OutboundType = "PRACTICE_WORD_RESULT"
	OutPracticeEnded          OutboundType = "PRACTICE_ENDED"

	// Social
	OutFriendInviteReceived OutboundType = "FRIEND_INVITE_RECEIVED"
	OutFriendInviteExpired  OutboundType = "FRIEND_INVITE_EXPIRED"

	// Errors
	OutError OutboundType = "ERROR"
)

// Outbound messages; one struct per type, each carrying its own tag so the
// wire format is explicit.

type QueueJoinedMsg struct {
	Type     OutboundType `json:"type"`
	Position int          `json:"position"`
}

func NewQueueJoinedMsg(position int) QueueJoinedMsg {
	return QueueJoinedMsg{Type: OutQueueJoined, Position: position}
}

type QueueLeftMsg struct {
	Type OutboundType `json:"type"`
}

func NewQueueLeftMsg() QueueLeftMsg {
	return QueueLeftMsg{Type: OutQueueLeft}
}

type QueueUpdateMsg struct {
	Type           OutboundType `json:"type"`
	PlayersInQueue int          `json:"playersInQueue"`
}

func NewQueueUpdateMsg(playersInQueue int) QueueUpdateMsg {
	return QueueUpdateMsg{Type: OutQueueUpdate, PlayersInQueue: playersInQueue}
}

type MatchStartMsg struct {
	Type       OutboundType `json:"type"`
	MatchID    MatchID      `json:"matchId"`
	OpponentID PlayerID     `json:"opponentId"`
	Letters    string       `json:"letters"`
	Deadline   time.Time    `json:"deadline"`
}

func NewMatchStartMsg(matchID MatchID, opponentID PlayerID, letters string, deadline time.Time) MatchStartMsg {
	return MatchStartMsg{
		Type:       OutMatchStart,
		MatchID:    matchID,
		OpponentID: opponentID,
		Letters:    letters,
		Deadline:   deadline,
	}
}

type TimerTickMsg struct {
	Type      OutboundType `json:"type"`
	MatchID   MatchID      `json:"matchId"`
	Remaining int          `json:"remaining"`
}

func NewTimerTickMsg(matchID MatchID, remaining int) TimerTickMsg {
	return TimerTickMsg{Type: OutTimerTick, MatchID: matchID, Remaining: remaining}
}

type WordResultMsg struct {
	Type       OutboundType `json:"type"`
	Success    bool         `json:"success"`
	Reason     string       `json:"reason,omitempty"`
	Word       string       `json:"word,omitempty"`
	BaseScore  int          `json:"baseScore,omitempty"`
	BonusScore int          `json:"bonusScore,omitempty"`
	TotalScore int          `json:"totalScore,omitempty"`
	ComboLevel int          `json:"comboLevel,omitempty"`
}

type OpponentSubmittedMsg struct {
	Type     OutboundType `json:"type"`
	Word     string       `json:"word"`
	PlayerID PlayerID     `json:"playerId"`
}

func NewOpponentSubmittedMsg(word string, playerID PlayerID) OpponentSubmittedMsg {
	return OpponentSubmittedMsg{Type: OutOpponentSubmitted, Word: word, PlayerID: playerID}
}

type MatchOverMsg struct {
	Type     OutboundType     `json:"type"`
	MatchID  MatchID          `json:"matchId"`
	Scores   map[PlayerID]int `json:"scores"`
	WinnerID *PlayerID        `json:"winnerId"` // null on a tie
}

func NewMatchOverMsg(result MatchResult) MatchOverMsg {
	return MatchOverMsg{
		Type:     OutMatchOver,
		MatchID:  result.MatchID,
		Scores:   result.Scores,
		WinnerID: result.Winner,
	}
}

type PracticeStartedMsg struct {
	Type    OutboundType `json:"type"`
	Letters string       `json:"letters"`
}

func NewPracticeStartedMsg(letters string) PracticeStartedMsg {
	return PracticeStartedMsg{Type: OutPracticeStarted, Letters: letters}
}

type PracticeLettersUpdatedMsg struct {
	Type    OutboundType `json:"type"`
	Letters string       `json:"letters"`
	Reason  string       `json:"reason"` // MANUAL_REROLL or AUTO_REROLL
}

func NewPracticeLettersUpdatedMsg(letters, reason string) PracticeLettersUpdatedMsg {
	return PracticeLettersUpdatedMsg{Type: OutPracticeLettersUpdated, Letters: letters, Reason: reason}
}

type PracticeWordResultMsg struct {
	Type       OutboundType `json:"type"`
	Success    bool         `json:"success"`
	Reason     string       `json:"reason,omitempty"`
	Word       string       `json:"word,omitempty"`
	BaseScore  int          `json:"baseScore,omitempty"`
	BonusScore int          `json:"bonusScore,omitempty"`
	TotalScore int          `json:"totalScore,omitempty"`
	ComboLevel int          `json:"comboLevel,omitempty"`
	FinalScore int          `json:"finalScore,omitempty"`
}

type PracticeEndedMsg struct {
	Type       OutboundType `json:"type"`
	FinalScore int          `json:"finalScore"`
	NewBest    bool         `json:"newBest"`
}

func NewPracticeEndedMsg(finalScore int, newBest bool) PracticeEndedMsg {
	return PracticeEndedMsg{Type: OutPracticeEnded, FinalScore: finalScore, NewBest: newBest}
}

type FriendInviteReceivedMsg struct {
	Type         OutboundType `json:"type"`
	FromPlayerID PlayerID     `json:"fromPlayerId"`
}

func NewFriendInviteReceivedMsg(from PlayerID) FriendInviteReceivedMsg {
	return FriendInviteReceivedMsg{Type: OutFriendInviteReceived, FromPlayerID: from}
}

type FriendInviteExpiredMsg struct {
	Type       OutboundType `json:"type"`
	ToPlayerID PlayerID     `json:"toPlayerId"`
}

func NewFriendInviteExpiredMsg(to PlayerID) FriendInviteExpiredMsg {
	return FriendInviteExpiredMsg{Type: OutFriendInviteExpired, ToPlayerID: to}
}

type ErrorMsg struct {
	Type    OutboundType `json:"type"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
}

func NewErrorMsg(code, message string) ErrorMsg {
	return ErrorMsg{Type: OutError, Code: code, Message: message}
}
