package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safar/stockmaster-sync/internal/api"
	"github.com/safar/stockmaster-sync/internal/auth"
	"github.com/safar/stockmaster-sync/internal/config"
	"github.com/safar/stockmaster-sync/internal/database"
	"github.com/safar/stockmaster-sync/internal/logger"
	"github.com/safar/stockmaster-sync/internal/metrics"
	"github.com/safar/stockmaster-sync/internal/store"
	"github.com/safar/stockmaster-sync/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Init logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	zlog.Info("connected to database")

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(context.Background(), db, database.Up)
		if err != nil {
			return err
		}
		zlog.Info("migrations applied", zap.Strings("files", applied))
	}

	signingKey := cfg.Auth.SigningKey
	if signingKey == "" {
		// Only reachable outside production; tokens die with the process.
		signingKey = uuid.NewString()
		zlog.Warn("JWT_SIGNING_KEY not set, using an ephemeral key")
	}
	tokens, err := auth.NewTokens(signingKey, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	m := metrics.New(cfg.Metrics.Prefix)

	svc := syncer.NewService(db, store.NewTables(),
		syncer.WithLogger(zlog.Named("sync")),
		syncer.WithRecorder(m),
		syncer.WithTimeout(cfg.Sync.Timeout),
	)

	srv := api.New(api.Deps{
		DB:      db,
		Syncer:  svc,
		Tokens:  tokens,
		Metrics: m,
		Log:     zlog,
		Server:  cfg.Server,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(ctx)
}
