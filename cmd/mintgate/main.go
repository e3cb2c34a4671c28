package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mintgate/internal/config"
	"mintgate/internal/infra/db"
	httpinfra "mintgate/internal/infra/http"
	"mintgate/internal/infra/logging"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logging.New(cfg)

	if err := cfg.ValidateGateway(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	store, err := db.NewStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to init store")
	}
	defer store.Close()

	srv := httpinfra.NewServer(cfg, store, log)
	if err := srv.InitErr(); err != nil {
		log.WithError(err).Fatal("failed to wire dependencies")
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("mintgate listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
	log.Info("mintgate stopped")
}
