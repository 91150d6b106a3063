package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/kapu/creator-directory-go/internal/app"
	"github.com/kapu/creator-directory-go/internal/config"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
)

var (
	name    = flag.String("name", "", "Enrich a single creator and exit")
	names   = flag.String("names", "", "Enrich a comma separated batch of creators and exit")
	refresh = flag.Int("refresh", 0, "Refresh up to N stale profiles and exit")
	flagged = flag.Bool("flagged", false, "List profiles with unresolved flags and exit")
	list    = flag.Int("list", 0, "List up to N profiles and exit")
	dryRun  = flag.Bool("dry-run", false, "Use the in-memory store instead of Postgres")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger, app.BuildOptions{DryRun: *dryRun})
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if ran, err := runCommand(ctx, container); ran {
		if err != nil {
			logger.Error("Command failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, container); err != nil {
		logger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
}

// runCommand executes a one-shot CLI mode. ran is false when no mode flag was given.
func runCommand(ctx context.Context, c *app.Container) (ran bool, err error) {
	var out any
	switch {
	case *name != "":
		out, err = c.Pipeline.ProcessProfile(ctx, *name)
	case *names != "":
		out, err = c.Pipeline.ProcessBatch(ctx, config.ParseNames(*names))
	case *refresh > 0:
		out, err = c.Pipeline.RefreshStaleProfiles(ctx, *refresh)
	case *flagged:
		out, err = c.Pipeline.GetFlaggedProfiles(ctx)
	case *list > 0:
		out, err = c.Pipeline.ListProfiles(ctx, *list)
	default:
		return false, nil
	}

	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil && err == nil {
			err = encErr
		}
	}
	return true, err
}

func serve(ctx context.Context, c *app.Container) error {
	logger := c.Logger

	if c.Config.Refresh.Enabled {
		c.Scheduler.Start(ctx)
		defer c.Scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              c.Config.HTTP.Addr,
		Handler:           c.Server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Admin API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return err
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Shutdown complete")
	return nil
}
