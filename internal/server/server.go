// Package server exposes the pipeline over an authenticated admin HTTP API.
package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pipeline is what the admin surface invokes.
type Pipeline interface {
	ProcessProfile(ctx context.Context, name string) (*domain.PipelineResult, error)
	ProcessBatch(ctx context.Context, names []string) (*domain.BatchResult, error)
	RefreshStaleProfiles(ctx context.Context, limit int) (*domain.RefreshResult, error)
	GetFlaggedProfiles(ctx context.Context) ([]domain.FlaggedProfile, error)
	ListProfiles(ctx context.Context, limit int) ([]domain.CreatorSummary, error)
}

type Config struct {
	AdminToken        string
	RequestsPerMinute int
	MaxBatchSize      int
	RefreshLimit      int
	// Health reports backing-store health for /healthz. Optional.
	Health func(ctx context.Context) error
}

type Server struct {
	pipeline Pipeline
	cfg      Config
	logger   *zap.Logger
}

func New(p Pipeline, cfg Config, logger *zap.Logger) *Server {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = constants.PipelineConfig.MaxBatchSize
	}
	if cfg.RefreshLimit <= 0 {
		cfg.RefreshLimit = constants.Refresh.SchedulerBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipeline: p, cfg: cfg, logger: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin/profiles", func(r chi.Router) {
		if s.cfg.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RequestsPerMinute, time.Minute))
		}
		r.Use(s.requireAdmin)

		r.Post("/sync", s.handleSync)
		r.Post("/sync-batch", s.handleSyncBatch)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/flagged", s.handleFlagged)
		r.Get("/", s.handleList)
	})

	return r
}

// requireAdmin checks the bearer token. An empty configured token disables auth.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())))
	})
}
