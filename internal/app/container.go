package app

import (
	"context"
	"fmt"

	"github.com/kapu/creator-directory-go/internal/aggregate"
	"github.com/kapu/creator-directory-go/internal/config"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/pipeline"
	"github.com/kapu/creator-directory-go/internal/server"
	"github.com/kapu/creator-directory-go/internal/service/cache"
	"github.com/kapu/creator-directory-go/internal/service/database"
	"github.com/kapu/creator-directory-go/internal/service/youtube"
	"github.com/kapu/creator-directory-go/internal/source"
	"github.com/kapu/creator-directory-go/internal/store"
	"github.com/kapu/creator-directory-go/internal/validate"
	"go.uber.org/zap"
)

// Store is the persistence contract the binaries need: the pipeline's view
// plus curated imports.
type Store interface {
	pipeline.Store
	ImportCreator(ctx context.Context, seed *domain.Creator) (*domain.SaveResult, error)
	SetRefreshPriority(ctx context.Context, creatorID string, priority domain.RefreshPriority) error
}

type BuildOptions struct {
	// DryRun keeps everything in memory and skips Postgres and Redis.
	DryRun bool
}

// Container bundles the assembled services.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     Store
	Pipeline  *pipeline.Pipeline
	Scheduler *pipeline.Scheduler
	Server    *server.Server

	closers []func()
}

// Close releases connections in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles infrastructure, adapters and the pipeline. Missing provider
// credentials disable single adapters; a missing Redis only disables the
// channel cache and the in-flight lock.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts BuildOptions) (_ *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	container := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			container.Close()
		}
	}()

	var health func(context.Context) error
	if opts.DryRun {
		container.Store = store.NewMemoryStore(logger)
		logger.Info("Dry run: using in-memory store")
	} else {
		postgresSvc, err := database.NewPostgresService(ctx, database.PostgresConfig{
			Host:         cfg.Postgres.Host,
			Port:         cfg.Postgres.Port,
			User:         cfg.Postgres.User,
			Password:     cfg.Postgres.Password,
			Database:     cfg.Postgres.Database,
			SSLMode:      cfg.Postgres.SSLMode,
			MaxOpenConns: cfg.Postgres.MaxConns,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres service: %w", err)
		}
		container.closers = append(container.closers, func() {
			_ = postgresSvc.Close()
		})
		if err := postgresSvc.Migrate(ctx); err != nil {
			return nil, err
		}
		container.Store = store.NewPostgresStore(postgresSvc.GetDB(), logger)
		health = postgresSvc.Ping
	}

	var (
		channelCache source.ChannelCache
		locker       pipeline.Locker
	)
	if cfg.Redis.Enabled && !opts.DryRun {
		cacheSvc, cerr := cache.NewCacheService(ctx, cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if cerr != nil {
			logger.Warn("Redis unavailable, continuing without channel cache and in-flight lock", zap.Error(cerr))
		} else {
			container.closers = append(container.closers, func() {
				_ = cacheSvc.Close()
			})
			channelCache = cacheSvc
			locker = cacheSvc
		}
	}

	adapters, err := buildAdapters(ctx, cfg, channelCache, logger)
	if err != nil {
		return nil, err
	}

	aggregator := aggregate.NewAggregator(adapters, cfg.Sources.AdapterTimeout, logger)

	var prober validate.LinkProber
	if cfg.Sources.ProbeLinks {
		prober = validate.NewHTTPProber(cfg.Sources.LinkProbeTimeout)
	}
	validator := validate.NewValidator(prober, cfg.Pipeline.MinConfidenceToSave, logger)

	container.Pipeline = pipeline.New(aggregator, validator, container.Store, pipeline.Options{
		MinConfidence:  cfg.Pipeline.MinConfidenceToSave,
		InterItemDelay: cfg.Pipeline.InterItemDelay,
		SingleTimeout:  cfg.Pipeline.SingleTimeout,
		BatchTimeout:   cfg.Pipeline.BatchTimeout,
		ListTimeout:    cfg.Pipeline.ListTimeout,
		Locker:         locker,
		Logger:         logger,
	})
	container.Scheduler = pipeline.NewScheduler(container.Pipeline, cfg.Refresh.Interval, cfg.Refresh.Limit, logger)
	container.Server = server.New(container.Pipeline, server.Config{
		AdminToken:        cfg.HTTP.AdminToken,
		RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
		MaxBatchSize:      cfg.Pipeline.MaxBatchSize,
		RefreshLimit:      cfg.Refresh.Limit,
		Health:            health,
	}, logger)

	logger.Info("Pipeline assembled",
		zap.Int("adapters", len(adapters)),
		zap.Any("sources", aggregator.Sources()),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("in_flight_lock", locker != nil))

	return container, nil
}

// buildAdapters wires one adapter per provider in merge priority order.
func buildAdapters(ctx context.Context, cfg *config.Config, channelCache source.ChannelCache, logger *zap.Logger) ([]source.Adapter, error) {
	opts := source.Options{
		RequestsPerSecond: cfg.Sources.RequestsPerSecond,
		Logger:            logger,
	}
	adapters := make([]source.Adapter, 0, 6)

	knowledge, err := source.NewKnowledgeAdapter(ctx, cfg.Sources.KnowledgeAPIKey, opts)
	if err != nil {
		return nil, err
	}
	adapters = append(adapters, knowledge)

	if cfg.Sources.EnableWikipedia {
		adapters = append(adapters, source.NewWikipediaAdapter("", opts))
	}

	var videoAPI source.VideoAPI
	if cfg.Sources.YouTubeAPIKey != "" {
		ytSvc, err := youtube.NewYouTubeService(ctx, cfg.Sources.YouTubeAPIKey, logger)
		if err != nil {
			return nil, err
		}
		videoAPI = ytSvc
	} else {
		logger.Info("Video adapters disabled (no YouTube API key)")
	}
	adapters = append(adapters, source.NewVideoAdapter(videoAPI, channelCache, opts))

	booksAdapter, err := source.NewBooksAdapter(ctx, cfg.Sources.BooksAPIKey, opts)
	if err != nil {
		return nil, err
	}
	adapters = append(adapters, booksAdapter)

	if cfg.Sources.EnablePodcasts {
		adapters = append(adapters, source.NewPodcastAdapter("", opts))
	}
	if cfg.Sources.EnableMentions {
		adapters = append(adapters, source.NewMentionsAdapter(videoAPI, opts))
	}

	return adapters, nil
}
