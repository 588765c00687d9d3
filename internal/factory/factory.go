package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/lexiduel/lexiduel/internal/dependencies/clock"
	"github.com/lexiduel/lexiduel/internal/dependencies/random"
	"github.com/lexiduel/lexiduel/internal/model"
	"github.com/lexiduel/lexiduel/internal/services/combo"
	"github.com/lexiduel/lexiduel/internal/services/dictionary"
	"github.com/lexiduel/lexiduel/internal/services/match"
	"github.com/lexiduel/lexiduel/internal/services/matchmaking"
	"github.com/lexiduel/lexiduel/internal/services/practice"
	"github.com/lexiduel/lexiduel/internal/services/social"
	"github.com/lexiduel/lexiduel/internal/storage"
	"github.com/lexiduel/lexiduel/internal/storage/memory"
	redisstorage "github.com/lexiduel/lexiduel/internal/storage/redis"
	"github.com/lexiduel/lexiduel/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Store storage.Store

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Dictionary      *dictionary.Service
	ComboEngine     *combo.Engine
	ComboTracker    *combo.Tracker
	MatchController *match.Controller
	Queue           *matchmaking.Queue
	Practice        *practice.Service
	Social          *social.Service

	// Transport
	Registry   *ws.Registry
	Dispatcher *ws.Dispatcher
	WSServer   *ws.Server
}

// Config holds configuration for the application factory
type Config struct {
	// WordListPaths maps variant names to word list files (optional)
	// If empty, word lists must be loaded manually
	WordListPaths map[string]string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config

	// MatchConfig holds match lifecycle settings (optional)
	MatchConfig *match.Config
	// MatchmakingConfig holds queue settings (optional)
	MatchmakingConfig *matchmaking.Config
	// PracticeConfig holds practice settings (optional)
	PracticeConfig *practice.Config
	// SocialConfig holds friend invite settings (optional)
	SocialConfig *social.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Store
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	clk := clock.New()
	rnd := random.New()

	app := newWithDependencies(store, clk, rnd, logger, cfg)

	if len(cfg.WordListPaths) > 0 {
		if err := app.Dictionary.LoadLists(cfg.WordListPaths); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Store, clk clock.Clock, rnd random.Random, logger *slog.Logger, cfg Config) *App {
	matchCfg := match.DefaultConfig()
	if cfg.MatchConfig != nil {
		matchCfg = *cfg.MatchConfig
	}
	queueCfg := matchmaking.DefaultConfig()
	if cfg.MatchmakingConfig != nil {
		queueCfg = *cfg.MatchmakingConfig
	}
	practiceCfg := practice.DefaultConfig()
	if cfg.PracticeConfig != nil {
		practiceCfg = *cfg.PracticeConfig
	}
	socialCfg := social.DefaultConfig()
	if cfg.SocialConfig != nil {
		socialCfg = *cfg.SocialConfig
	}

	registry := ws.NewRegistry(logger)
	dictService := dictionary.New(dictionary.DefaultConfig(), rnd, logger)
	comboEngine := combo.NewEngine(combo.DefaultConfig())
	comboTracker := combo.NewTracker()
	matchController := match.NewController(store, dictService, comboEngine, comboTracker, clk, rnd, registry, logger, matchCfg)
	queue := matchmaking.NewQueue(registry, registry, matchController, clk, logger, queueCfg)
	practiceService := practice.New(store, dictService, comboEngine, clk, registry, logger, practiceCfg)
	socialService := social.New(registry, matchController, logger, socialCfg)
	dispatcher := ws.NewDispatcher(registry, queue, matchController, practiceService, socialService, logger)
	wsServer := ws.NewServer(registry, dispatcher, logger)

	registry.SetCallbacks(
		func(playerID model.PlayerID) {
			queue.HandleReconnect(context.Background(), playerID)
		},
		queue.HandleDisconnect,
	)

	return &App{
		Store:           store,
		Clock:           clk,
		Random:          rnd,
		Dictionary:      dictService,
		ComboEngine:     comboEngine,
		ComboTracker:    comboTracker,
		MatchController: matchController,
		Queue:           queue,
		Practice:        practiceService,
		Social:          socialService,
		Registry:        registry,
		Dispatcher:      dispatcher,
		WSServer:        wsServer,
	}
}