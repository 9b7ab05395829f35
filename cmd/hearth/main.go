package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hearth/internal/analytics"
	"hearth/internal/bot"
	"hearth/internal/config"
	"hearth/internal/modules/audit"
	"hearth/internal/progression"
	"hearth/internal/progression/pgstore"
	"hearth/internal/progression/redisstore"
	"hearth/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 15*time.Second)
	progressStore, closeProgress, err := openProgressionStore(initCtx, cfg.Progression, store)
	initCancel()
	if err != nil {
		logger.Fatal("progression store init failed", zap.String("backend", cfg.Progression.Backend), zap.Error(err))
	}
	defer closeProgress()
	logger.Info("progression store ready", zap.String("backend", cfg.Progression.Backend))

	progressionEngine := progression.NewEngine(progressStore, time.Duration(cfg.Progression.CooldownSeconds)*time.Second)

	auditLogger := audit.NewLogger(logger.Named("activity"), cfg.Activity.RingSize)
	for _, destination := range cfg.Activity.Destinations {
		switch destination {
		case config.DestinationDB:
			auditLogger.AddDestination(audit.NewStoreDestination(store))
		case config.DestinationFile:
			file, err := audit.NewFileDestination(cfg.Activity.FilePath)
			if err != nil {
				logger.Fatal("activity file init failed", zap.String("path", cfg.Activity.FilePath), zap.Error(err))
			}
			defer func() {
				_ = file.Sync()
			}()
			auditLogger.AddDestination(file)
		}
	}
	analyticsEngine := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, progressionEngine, auditLogger, analyticsEngine)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.Strings("activity_destinations", auditLogger.Destinations()))

	var server *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("storage unavailable"))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		server = &http.Server{Addr: cfg.Health.Addr, Handler: mux}
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}

// openProgressionStore picks the xp backend. The sqlite store is shared with the rest of the bot.
func openProgressionStore(ctx context.Context, cfg config.ProgressionConfig, store *storage.Store) (progression.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return progression.NewMemoryStore(), func() {}, nil
	case config.BackendRedis:
		rs, err := redisstore.New(ctx, redisstore.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	case config.BackendPostgres:
		ps, err := pgstore.New(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		if err := ps.Migrate(ctx); err != nil {
			ps.Close()
			return nil, nil, err
		}
		return ps, ps.Close, nil
	default:
		return store, func() {}, nil
	}
}
