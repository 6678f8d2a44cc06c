package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"LPRange/internal/usecase"
	"LPRange/pkg/config"
	xhttp "LPRange/pkg/http"
	applogger "LPRange/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	reg         *prometheus.Registry
	evaluator   *usecase.Evaluator
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	evaluator *usecase.Evaluator,
	h xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		reg:         reg,
		evaluator:   evaluator,
		httpHandler: h,
	}
}

// Evaluator exposes the evaluation use case for one-shot commands.
func (a *App) Evaluator() *usecase.Evaluator { return a.evaluator }

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.l }

// Server builds (once) the HTTP server for the configured handler.
func (a *App) Server() *xhttp.Server {
	if a.httpServer != nil {
		return a.httpServer
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.l),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(a.reg, a.cfg.Metrics.Path))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, opts...)
	return a.httpServer
}

// Run starts the HTTP API and blocks until ctx is cancelled, a termination
// signal arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := a.Server()
	if err := srv.Start(); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}
	a.l.Info("lprange api started",
		applogger.String("addr", srv.Addr()),
		applogger.Ints("horizons", a.evaluator.Config().Horizons.Days()),
		applogger.Float64("prior", a.evaluator.Config().Prior),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err := <-srv.Errors():
		a.l.Error("http server error", applogger.Error(err))
		runErr = err
	}

	return a.shutdown(runErr)
}

func (a *App) shutdown(runErr error) error {
	a.l.Info("shutting down...")
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	a.l.Info("shutdown complete")
	return runErr
}
