package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/config"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/httpapi"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/prefs"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/session"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := prefs.Open(ctx, cfg.DBPath, logger)
	defer store.Close()

	supervisor := session.New(ctx, session.Options{
		URL:          cfg.ServerURL,
		Store:        store,
		Log:          logger,
		ReconnectMin: cfg.ReconnectMin,
		ReconnectMax: cfg.ReconnectMax,
	})

	// A group id from the environment overrides the remembered one.
	if cfg.GroupID != "" {
		supervisor.Inbox() <- session.JoinGroup{GroupID: cfg.GroupID}
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.SetupRoutes(supervisor, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("control api listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("daemon exited", zap.Error(err))
	}
}
