package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wifinder/wifinder/internal/config"
	httpserver "github.com/wifinder/wifinder/internal/http"
	"github.com/wifinder/wifinder/internal/logging"
	"github.com/wifinder/wifinder/internal/mapview"
	"github.com/wifinder/wifinder/internal/repository"
	"github.com/wifinder/wifinder/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog := logging.New("info", "json", os.Stderr)

	if err := godotenv.Load(); err != nil {
		bootLog.Debug().Msg("no .env file found, relying on the environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	dbCtx := ctx
	if cfg.Database.ConnTimeout > 0 {
		var cancel context.CancelFunc
		dbCtx, cancel = context.WithTimeout(ctx, cfg.Database.ConnTimeout)
		defer cancel()
	}

	st, err := store.New(dbCtx, cfg.Database.URL, store.Options{
		MaxConns:               cfg.Database.MaxConns,
		MinConns:               cfg.Database.MinConns,
		MaxConnIdleTime:        cfg.Database.MaxConnIdleTime,
		MaxConnLifetime:        cfg.Database.MaxConnLifetime,
		ConnTimeout:            cfg.Database.ConnTimeout,
		StatementCacheCapacity: cfg.Database.StatementCacheCapacity,
		Logger:                 logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	renderer, err := mapview.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("init map renderer")
	}

	repo := repository.New(st)
	server := httpserver.New(cfg, st, repo, renderer, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	logger.Info().Msg("server stopped")
}
