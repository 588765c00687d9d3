package wserr

import (
	"errors"

	"github.com/lexiduel/lexiduel/internal/model"
)

// Common error codes
const (
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeUnknownMessageType = "UNKNOWN_MESSAGE_TYPE"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeMatchNotFound      = "MATCH_NOT_FOUND"
	CodeMatchFinished      = "MATCH_FINISHED"
	CodeNotInMatch         = "NOT_IN_MATCH"
	CodeSelfMatch          = "SELF_MATCH"
	CodeNotQueued          = "NOT_QUEUED"
	CodeNoPracticeSession  = "NO_PRACTICE_SESSION"
	CodeInternalError      = "INTERNAL_ERROR"
)

// wireError combines a wire code with a human-readable message
type wireError struct {
	code    string
	message string
}

// Code returns the wire error code for an error
func Code(err error) string {
	return toWireError(err).code
}

// Message returns the human-readable message for an error
func Message(err error) string {
	return toWireError(err).message
}

// Rejection returns the short reason attached to a rejected word, or ""
// when the error is not a word rejection.
func Rejection(err error) string {
	switch {
	case errors.Is(err, model.ErrWordNotInDictionary):
		return "Invalid word"
	case errors.Is(err, model.ErrWordNotFormable):
		return "Invalid letters"
	case errors.Is(err, model.ErrWordAlreadyUsed):
		return "Duplicate word"
	case errors.Is(err, model.ErrMatchFinished):
		return "Game has ended"
	case errors.Is(err, model.ErrMatchNotFound):
		return "Match not found"
	default:
		return ""
	}
}

// toWireError converts an error to a wireError
func toWireError(err error) wireError {
	switch {
	case errors.Is(err, model.ErrMalformedMessage):
		return wireError{CodeInvalidMessage, "Malformed message"}
	case errors.Is(err, model.ErrMissingPlayerID):
		return wireError{CodeInvalidMessage, "Missing player id"}
	case errors.Is(err, model.ErrUnknownMessageType):
		return wireError{CodeUnknownMessageType, "Unknown message type"}
	case errors.Is(err, model.ErrPlayerNotFound):
		return wireError{CodePlayerNotFound, "Player not found"}
	case errors.Is(err, model.ErrMatchNotFound):
		return wireError{CodeMatchNotFound, "Match not found"}
	case errors.Is(err, model.ErrMatchFinished):
		return wireError{CodeMatchFinished, "Game has ended"}
	case errors.Is(err, model.ErrNotInMatch):
		return wireError{CodeNotInMatch, "Not a participant in this match"}
	case errors.Is(err, model.ErrSelfMatch):
		return wireError{CodeSelfMatch, "Cannot play against yourself"}
	case errors.Is(err, model.ErrNotQueued):
		return wireError{CodeNotQueued, "Not in the queue"}
	case errors.Is(err, model.ErrNoPracticeSession):
		return wireError{CodeNoPracticeSession, "No practice session in progress"}
	default:
		return wireError{CodeInternalError, "Internal server error"}
	}
}
