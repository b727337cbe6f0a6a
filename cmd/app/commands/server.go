package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/credvault/internal/app"
)

// shutdownTimeout bounds the graceful stop of the servers.
const shutdownTimeout = 30 * time.Second

// Runner is a component started and stopped with the server process.
type Runner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// RunServer serves the API, the metrics endpoint and the outbox worker until SIGINT or
// SIGTERM, or until one of them fails. Every component is built before anything starts
// listening so a bad master key or database fails fast.
func RunServer(ctx context.Context, container *app.Container, version string) error {
	cfg := container.Config()
	gin.SetMode(cfg.GinMode())

	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := container.HTTPServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	outboxUseCase, err := container.OutboxUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox worker: %w", err)
	}

	runners := []Runner{server}
	if metricsServer != nil {
		runners = append(runners, metricsServer)
	}

	return serve(ctx, logger, runners, outboxUseCase.Start)
}

// serve starts every runner and worker and stops all of them when ctx ends or any of
// them fails. Cancellation of the worker is not reported as an error.
func serve(
	ctx context.Context,
	logger *slog.Logger,
	runners []Runner,
	workers ...func(ctx context.Context) error,
) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, r := range runners {
		g.Go(func() error {
			return r.Start(gctx)
		})
	}
	for _, worker := range workers {
		g.Go(func() error {
			if err := worker(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer shutdownCancel()

		var errs []error
		for _, r := range runners {
			if err := r.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
