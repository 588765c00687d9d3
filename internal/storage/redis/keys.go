package redis

import (
	"fmt"

	"github.com/lexiduel/lexiduel/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "lexiduel"

// playerKey returns the Redis key for a PlayerRecord
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// matchKey returns the Redis key for a Match
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// activeMatchIndexKey returns the Redis key for the SET of active match ids
func activeMatchIndexKey() string {
	return fmt.Sprintf("%s:idx:active_matches", keyPrefix)
}

// submissionsKey returns the Redis key for the ordered LIST of submissions
// in a match
func submissionsKey(matchID model.MatchID) string {
	return fmt.Sprintf("%s:submissions:%s", keyPrefix, matchID)
}

// practiceStatsKey returns the Redis key for a player's PracticeStats
func practiceStatsKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:practice_stats:%s", keyPrefix, id)
}
