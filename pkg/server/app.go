package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"ToxicTide/internal/domain/repository"
	internalrepo "ToxicTide/internal/repository"
	"ToxicTide/internal/usecase"
	"ToxicTide/pkg/config"
	xhttp "ToxicTide/pkg/http"
	applogger "ToxicTide/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	orch       *usecase.Orchestrator
	feed       repository.MarketFeed
	ledger     repository.LedgerSink
	publisher  repository.RecordPublisher
	storage    repository.RecordStorage
	bridge     *internalrepo.RedisEventBridge
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	orch *usecase.Orchestrator,
	feed repository.MarketFeed,
	ledger repository.LedgerSink,
	publisher repository.RecordPublisher,
	storage repository.RecordStorage,
	bridge *internalrepo.RedisEventBridge,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		orch:      orch,
		feed:      feed,
		ledger:    ledger,
		publisher: publisher,
		storage:   storage,
		bridge:    bridge,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connection-owning feeds run their own read loop; the simulator has
	// no loop to start.
	if starter, ok := a.feed.(interface{ Start(context.Context) error }); ok {
		go func() {
			if err := starter.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("feed stream error", applogger.Error(err))
			}
		}()
		a.log.Info("feed stream started", applogger.String("type", a.cfg.Feed.Type))
	}

	go func() {
		if err := a.orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("orchestrator error", applogger.Error(err))
		}
	}()
	a.log.Info("engine started",
		applogger.String("symbol", a.cfg.Market.Symbol),
		applogger.String("mode", a.cfg.Execution.Mode),
		applogger.Duration("tick_interval", a.cfg.Engine.TickInterval),
	)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.log.Info("shutting down", applogger.String("session", a.orch.Summary()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.feed.Close(); err != nil {
		a.log.Warn("feed close error", applogger.Error(err))
	}

	// The ledger closes last among the write paths so a record in flight
	// still lands on disk.
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Warn("storage close error", applogger.Error(err))
		}
	}
	if a.bridge != nil {
		if err := a.bridge.Close(); err != nil {
			a.log.Warn("redis bridge close error", applogger.Error(err))
		}
	}
	if err := a.ledger.Close(); err != nil {
		a.log.Warn("ledger close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
