package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"onionchat/internal/config"
	"onionchat/internal/history"
	"onionchat/internal/http"
	"onionchat/internal/logger"
	"onionchat/internal/registry"
	"onionchat/internal/ws"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg)
	defer func() { _ = log.Sync() }()

	hub := ws.NewHub(registry.New(), history.New(cfg.MaxMessages), log)

	apiServer := http.NewAPIServer(hub, cfg.Addr, log)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Start()
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "application error: %v\n", err)
		os.Exit(1)
	}
}
