// cmd/server is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/tixmarket/ledger/internal/clock"
	"github.com/tixmarket/ledger/internal/config"
	"github.com/tixmarket/ledger/internal/database"
	"github.com/tixmarket/ledger/internal/handler"
	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/obs"
	"github.com/tixmarket/ledger/internal/repository"
	"github.com/tixmarket/ledger/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	log := obs.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	royalty := ledger.RoyaltyPolicy{RateBps: cfg.Marketplace.RoyaltyBps}

	// The postgres ledger is used when a database is configured; the
	// in-memory ledger serves local runs and demos.
	var marketLedger ledger.Ledger
	if cfg.Database.URL != "" {
		pool, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			log.Error("connect database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		marketLedger = repository.NewStore(pool, clock.NewSystem(), royalty)
		log.Info("ledger backend ready", "backend", "postgres")
	} else {
		marketLedger = ledger.NewMemory(clock.NewSystem(), royalty)
		log.Info("ledger backend ready", "backend", "memory")
	}

	svc := service.New(marketLedger, log)
	h := handler.NewMarketplaceHandler(svc)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.AccessLog(log))
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	r.Group(h.Routes)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr, "royalty_bps", cfg.Marketplace.RoyaltyBps)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
