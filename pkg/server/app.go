package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"X402/internal/settlement"
	"X402/internal/usecase"
	xhttp "X402/pkg/http"
	applogger "X402/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// App encapsulates the entire application lifecycle.
type App struct {
	srv      *xhttp.Server
	runner   *settlement.Runner
	recorder *usecase.DecisionRecorder
	log      *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(srv *xhttp.Server, runner *settlement.Runner, recorder *usecase.DecisionRecorder, l *applogger.Logger) *App {
	return &App{
		srv:      srv,
		runner:   runner,
		recorder: recorder,
		log:      l.With("app"),
	}
}

// Run starts the application and blocks until ctx ends, SIGINT/SIGTERM
// arrives or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.runner != nil {
		a.runner.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err, ok := <-a.srv.Start():
			if ok && err != nil {
				return err
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received")
		return a.shutdown()
	})
	return g.Wait()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	var errs []error

	timeout := a.srv.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.srv.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	// in-flight agent runs finish before the sinks and caches they use close
	if a.runner != nil {
		a.runner.Stop()
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.log.Warn("decision recorder close error", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
