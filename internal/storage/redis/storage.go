package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexiduel/lexiduel/internal/model"
	"github.com/lexiduel/lexiduel/internal/storage"
)

// Storage is a Redis-backed implementation of the store interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Player operations

func (s *Storage) EnsurePlayer(ctx context.Context, id model.PlayerID, now time.Time) error {
	record := &model.PlayerRecord{ID: id, CreatedAt: now}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	// SetNX keeps an existing record untouched
	return s.client.SetNX(ctx, playerKey(id), data, 0).Err()
}

func (s *Storage) GetPlayerRecord(ctx context.Context, id model.PlayerID) (*model.PlayerRecord, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var record model.PlayerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Storage) SavePlayerRecord(ctx context.Context, record *model.PlayerRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, playerKey(record.ID), data, 0).Err()
}

// Match operations

func (s *Storage) SaveMatch(ctx context.Context, match *model.Match) error {
	data, err := json.Marshal(match)
	if err != nil {
		return err
	}

	key := matchKey(match.ID)
	indexKey := activeMatchIndexKey()

	// Pipeline the value write with the active-index update so recovery
	// never sees a match missing from the index
	pipe := s.client.Pipeline()
	if match.Status == model.MatchStatusActive {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, indexKey, string(match.ID))
	} else {
		pipe.Set(ctx, key, data, s.cfg.FinishedMatchTTL)
		pipe.SRem(ctx, indexKey, string(match.ID))
		pipe.Expire(ctx, submissionsKey(match.ID), s.cfg.FinishedMatchTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *Storage) GetActiveMatches(ctx context.Context) ([]*model.Match, error) {
	ids, err := s.client.SMembers(ctx, activeMatchIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchKey(model.MatchID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	matches := make([]*model.Match, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // index entry outlived the record
		}
		var match model.Match
		if err := json.Unmarshal([]byte(val.(string)), &match); err != nil {
			continue
		}
		if match.Status == model.MatchStatusActive {
			matches = append(matches, &match)
		}
	}

	return matches, nil
}

// Submission operations

func (s *Storage) SaveSubmission(ctx context.Context, sub *model.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, submissionsKey(sub.MatchID), data).Err()
}

func (s *Storage) GetSubmissionsForMatch(ctx context.Context, matchID model.MatchID) ([]*model.Submission, error) {
	values, err := s.client.LRange(ctx, submissionsKey(matchID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	subs := make([]*model.Submission, 0, len(values))
	for _, val := range values {
		var sub model.Submission
		if err := json.Unmarshal([]byte(val), &sub); err != nil {
			continue
		}
		subs = append(subs, &sub)
	}
	return subs, nil
}

// Practice stats operations

func (s *Storage) GetPracticeStats(ctx context.Context, id model.PlayerID) (*model.PracticeStats, error) {
	data, err := s.client.Get(ctx, practiceStatsKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrStatsNotFound
		}
		return nil, err
	}

	var stats model.PracticeStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Storage) SavePracticeStats(ctx context.Context, stats *model.PracticeStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, practiceStatsKey(stats.PlayerID), data, 0).Err()
}
