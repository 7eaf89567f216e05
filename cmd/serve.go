package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bilgisen/newstrust/internal/api"
	"github.com/bilgisen/newstrust/internal/feed"
	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	cfg := a.cfg
	log := logger.Get()
	log.Info().Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("Starting application...")

	importer := feed.NewProcessor(feed.NewFetcher(cfg.HTTPTimeout), a.cache, a.svc, cfg.FeedCacheTTL)
	handlers := api.NewHandlers(a.svc, importer, 0)
	app := api.NewApp(cfg, handlers)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}

	log.Info().Msg("Shutting down server...")

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	done := make(chan struct{})
	go func() {
		handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Background imports still running at shutdown")
	}

	a.close(ctx)
	log.Info().Msg("Server exited properly")
	return nil
}
