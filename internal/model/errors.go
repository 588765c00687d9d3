package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Match errors
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchFinished = errors.New("match is not active")
	ErrNotInMatch    = errors.New("player is not in this match")
	ErrSelfMatch     = errors.New("cannot start a match against yourself")

	// Word rejection errors
	ErrWordNotInDictionary = errors.New("word not found in dictionary")
	ErrWordNotFormable     = errors.New("word cannot be formed from the match letters")
	ErrWordAlreadyUsed     = errors.New("word has already been used in this match")

	// Queue errors
	ErrNotQueued = errors.New("player is not in the matchmaking queue")

	// Practice errors
	ErrNoPracticeSession = errors.New("no practice session in progress")

	// Message validation errors
	ErrMissingPlayerID    = errors.New("message is missing a player id")
	ErrMalformedMessage   = errors.New("message is missing required fields")
	ErrUnknownMessageType = errors.New("unknown message type")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")

	// Stats errors
	ErrStatsNotFound = errors.New("practice stats not found")
)
