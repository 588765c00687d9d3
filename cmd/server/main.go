package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lexiduel/lexiduel/internal/factory"
	"github.com/lexiduel/lexiduel/internal/middleware"
	redisstorage "github.com/lexiduel/lexiduel/internal/storage/redis"
)

const shutdownTimeout = 10 * time.Second

type serverConfig struct {
	listenAddr  string
	storageType string
	redisURL    string
	wordLists   []string
}

func main() {
	// .env is optional; real deployments set the environment directly.
	// Loaded before flag defaults are read so it can supply them.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	cfg := &serverConfig{
		listenAddr:  envOr("LEXIDUEL_ADDR", ":8080"),
		storageType: envOr("STORAGE_TYPE", factory.StorageTypeMemory),
		redisURL:    os.Getenv("REDIS_URL"),
	}
	if lists := os.Getenv("LEXIDUEL_WORD_LISTS"); lists != "" {
		cfg.wordLists = strings.Split(lists, ",")
	} else {
		cfg.wordLists = []string{"en=data/words_en.txt"}
	}

	rootCmd := &cobra.Command{
		Use:   "lexiduel-server",
		Short: "Real-time word duel game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&cfg.listenAddr, "addr", cfg.listenAddr, "Listen address (env: LEXIDUEL_ADDR)")
	rootCmd.Flags().StringVar(&cfg.storageType, "storage", cfg.storageType, "Storage backend: memory, redis (env: STORAGE_TYPE)")
	rootCmd.Flags().StringVar(&cfg.redisURL, "redis-url", cfg.redisURL, "Redis connection URL (env: REDIS_URL)")
	rootCmd.Flags().StringSliceVar(&cfg.wordLists, "word-list", cfg.wordLists, "Word list as variant=path, repeatable (env: LEXIDUEL_WORD_LISTS)")

	return rootCmd
}

func run(cfg *serverConfig) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	wordLists, err := parseWordLists(cfg.wordLists)
	if err != nil {
		logger.Error("invalid word list flag", slog.String("error", err.Error()))
		return err
	}

	factoryCfg := factory.Config{
		Logger:        logger,
		StorageType:   cfg.storageType,
		WordListPaths: wordLists,
	}
	if cfg.storageType == factory.StorageTypeRedis {
		if cfg.redisURL == "" {
			logger.Error("REDIS_URL required when STORAGE_TYPE=redis")
			return errors.New("missing redis url")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.redisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}

	if !app.Dictionary.IsLoaded() {
		logger.Error("no word lists loaded; refusing to start")
		return errors.New("no word lists loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Matches left ACTIVE by a previous process get their timers re-armed
	// before we accept connections.
	if err := app.MatchController.RecoverActiveMatches(ctx); err != nil {
		logger.Error("match recovery failed", slog.String("error", err.Error()))
		return err
	}

	go app.Queue.Run(ctx)

	router := mux.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Handle("/ws", app.WSServer)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:    cfg.listenAddr,
		Handler: router,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.listenAddr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			return err
		}
		// Leave active matches persisted; recovery re-arms them next start.
		app.MatchController.Shutdown()
	}

	logger.Info("server stopped")
	return nil
}

// parseWordLists parses variant=path pairs
func parseWordLists(entries []string) (map[string]string, error) {
	lists := make(map[string]string, len(entries))
	for _, entry := range entries {
		variant, path, ok := strings.Cut(entry, "=")
		if !ok || variant == "" || path == "" {
			return nil, errors.New("word list must be variant=path: " + entry)
		}
		lists[variant] = path
	}
	return lists, nil
}

// envOr returns the environment value or a default
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}