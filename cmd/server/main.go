package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/tocbar/internal/api"
	"github.com/dgallion1/tocbar/internal/config"
	"github.com/dgallion1/tocbar/internal/pathstore"
	"github.com/dgallion1/tocbar/internal/prefs"
	"github.com/dgallion1/tocbar/internal/session"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(os.Getenv("TOCBAR_CONFIG"))
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closer, err := openStore(cfg)
	if err != nil {
		log.Error("open preference store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	sessions := session.NewRegistry(cfg.SessionTTL, log)
	go sessions.Run(ctx, 5*time.Minute)

	srv := api.NewServer(store, sessions, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if err := closer.Close(); err != nil {
			log.Warn("close preference store", "error", err)
		}
	}()

	log.Info("starting tocbar", "port", cfg.Port, "docs_dir", cfg.DocsDir, "store", cfg.StoreBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func openStore(cfg config.Config) (prefs.Store, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return prefs.NewMemoryStore(), closeFunc(func() error { return nil }), nil
	case config.StoreSQLite:
		s, err := prefs.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StorePathstore:
		c := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		return prefs.NewRemoteStore(c), closeFunc(func() error { c.Close(); return nil }), nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
