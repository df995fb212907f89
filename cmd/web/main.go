package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/dmdash/internal/config"
	"github.com/geocoder89/dmdash/internal/db"
	httpx "github.com/geocoder89/dmdash/internal/http"
	"github.com/geocoder89/dmdash/internal/http/handlers"
	"github.com/geocoder89/dmdash/internal/observability"
	"github.com/geocoder89/dmdash/internal/repo/memory"
	"github.com/geocoder89/dmdash/internal/repo/postgres"
	"github.com/geocoder89/dmdash/internal/session"
	"github.com/geocoder89/dmdash/internal/storage"
	"github.com/geocoder89/dmdash/internal/userdir"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// signinHistory is what both sign-in repositories offer.
type signinHistory interface {
	session.History
	handlers.SigninLister
}

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "dmdash", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Pinger{}

	// sign-in history: postgres when configured, memory otherwise
	var history signinHistory = memory.NewSigninsRepo(100)

	if cfg.DBURL != "" {
		if err := db.Migrate(cfg.DBURL); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}

		pool, err := db.NewPool(cfg.DBURL)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		checks["db"] = pool.Ping
		history = postgres.NewSigninsRepo(pool, prom)
	}

	provider, closeProvider, err := newMirrorProvider(ctx, cfg, checks)
	if err != nil {
		log.Error("mirror backend init failed", "backend", cfg.MirrorBackend, "err", err)
		os.Exit(1)
	}
	defer closeProvider()

	dir := userdir.New(cfg.UserDirURL, cfg.UserDirTimeout, prom)

	sessions := session.NewService(dir, session.Options{
		History:      history,
		Metrics:      prom,
		Logger:       log,
		PhoneHashKey: cfg.PhoneHashKey,
	})

	router := httpx.NewRouter(log, cfg, httpx.Deps{
		Sessions: sessions,
		Provider: provider,
		Signins:  history,
		Prom:     prom,
		Gatherer: reg,
		Checks:   checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "mirror", provider.Name())
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(sctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// newMirrorProvider builds the configured local storage backend and
// registers its readiness check.
func newMirrorProvider(ctx context.Context, cfg config.Config, checks map[string]handlers.Pinger) (storage.Provider, func(), error) {
	switch cfg.MirrorBackend {
	case config.MirrorRedis:
		rdb := storage.NewRedisClient(storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		p := storage.NewRedisProvider(rdb, cfg.MirrorTTL)

		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		if err := p.Ping(pctx); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}

		checks["redis"] = p.Ping
		return p, func() { _ = rdb.Close() }, nil

	case config.MirrorCookie:
		return storage.NewCookieProvider(cfg.MirrorSigningKey, cfg.MirrorTTL), func() {}, nil

	default:
		p := storage.NewMemoryProvider(cfg.MirrorTTL)
		go p.RunSweeper(ctx, time.Minute)
		return p, func() {}, nil
	}
}
