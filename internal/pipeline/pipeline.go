// Package pipeline drives one name through collection, validation, the
// confidence gate and persistence, and runs batches and scheduled refreshes
// on top of that.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/metrics"
	"github.com/kapu/creator-directory-go/internal/store"
	"github.com/kapu/creator-directory-go/internal/util"
	"github.com/kapu/creator-directory-go/pkg/errors"
	"go.uber.org/zap"
)

type Aggregator interface {
	Aggregate(ctx context.Context, name string, known domain.KnownIdentifiers) (*domain.CandidateProfile, error)
}

type Validator interface {
	Validate(ctx context.Context, c *domain.CandidateProfile) (domain.ValidationResult, []domain.ProfileFlag)
}

type Store interface {
	GetCreator(ctx context.Context, slug string) (*domain.Creator, error)
	GetCreatorByID(ctx context.Context, id string) (*domain.Creator, error)
	SaveProfile(ctx context.Context, c *domain.CandidateProfile, flags []domain.ProfileFlag, trigger domain.Trigger) (*domain.SaveResult, error)
	GetProfilesDueForRefresh(ctx context.Context, limit int) ([]string, error)
	DeferRefresh(ctx context.Context, creatorID string, delay time.Duration) error
	GetProfilesWithFlags(ctx context.Context) ([]domain.FlaggedProfile, error)
	ListCreators(ctx context.Context, limit int) ([]domain.CreatorSummary, error)
}

// Locker guards a slug against concurrent runs. TryLock returns a nil release
// func when another run holds the slug.
type Locker interface {
	TryLock(ctx context.Context, slug string) (func(), error)
}

type State string

const (
	StateCollecting State = "COLLECTING"
	StateValidating State = "VALIDATING"
	StateDeciding   State = "DECIDING"
	StateSaving     State = "SAVING"
	StateDone       State = "DONE"
	StateSkipped    State = "SKIPPED"
	StateFailed     State = "FAILED"
)

type Options struct {
	MinConfidence  int
	InterItemDelay time.Duration
	SingleTimeout  time.Duration
	BatchTimeout   time.Duration
	ListTimeout    time.Duration
	Locker         Locker
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.SingleTimeout <= 0 {
		o.SingleTimeout = constants.PipelineConfig.SingleTimeout
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = constants.PipelineConfig.BatchTimeout
	}
	if o.ListTimeout <= 0 {
		o.ListTimeout = constants.PipelineConfig.ListTimeout
	}
	if o.InterItemDelay < 0 {
		o.InterItemDelay = 0
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type Pipeline struct {
	aggregator Aggregator
	validator  Validator
	store      Store
	opts       Options
	logger     *zap.Logger
	clock      util.Clock
}

func New(aggregator Aggregator, validator Validator, st Store, opts Options) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{
		aggregator: aggregator,
		validator:  validator,
		store:      st,
		opts:       opts,
		logger:     opts.Logger,
		clock:      util.SystemClock,
	}
}

// ProcessProfile runs one name end to end. The error is non-nil only when the
// single-run deadline expired; every other outcome is described by the result.
func (p *Pipeline) ProcessProfile(ctx context.Context, name string) (*domain.PipelineResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.SingleTimeout)
	defer cancel()

	result := p.run(ctx, name, "")
	return result, p.deadlineError(ctx, "profile sync", p.opts.SingleTimeout)
}

// ProcessBatch handles names sequentially in input order with a pause between
// items. One item failing never stops the batch; when the batch deadline
// expires the results gathered so far are returned with a timeout error.
func (p *Pipeline) ProcessBatch(ctx context.Context, names []string) (*domain.BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.BatchTimeout)
	defer cancel()

	results := make([]*domain.PipelineResult, 0, len(names))
	for i, name := range names {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		results = append(results, p.run(ctx, name, ""))
	}

	batch := &domain.BatchResult{Summary: domain.Summarize(results), Results: results}
	p.logger.Info("Batch processed",
		zap.Int("requested", len(names)),
		zap.Int("processed", len(results)),
		zap.Int("successful", batch.Summary.Successful),
		zap.Int("skipped", batch.Summary.Skipped),
		zap.Int("failed", batch.Summary.Failed))

	return batch, p.deadlineError(ctx, "batch sync", p.opts.BatchTimeout)
}

// RefreshStaleProfiles re-runs the pipeline for up to limit creators whose
// refresh is due, oldest first.
func (p *Pipeline) RefreshStaleProfiles(ctx context.Context, limit int) (*domain.RefreshResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.BatchTimeout)
	defer cancel()

	refresh := &domain.RefreshResult{Results: []*domain.PipelineResult{}}
	ids, err := p.store.GetProfilesDueForRefresh(ctx, limit)
	if err != nil {
		if te := p.deadlineError(ctx, "refresh", p.opts.BatchTimeout); te != nil {
			return refresh, te
		}
		p.logger.Error("Failed to load due profiles", zap.Error(err))
		return refresh, err
	}
	metrics.RecordRefreshDue(len(ids))

	for i, id := range ids {
		if i > 0 {
			if err := p.pause(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		result := p.run(ctx, p.refreshName(ctx, id), domain.TriggerAutoRefresh)
		if result.Success {
			refresh.Refreshed++
		} else if ctx.Err() == nil {
			// An unsaved run leaves the creator due; move it back so it does
			// not stay at the head of the queue.
			if err := p.store.DeferRefresh(ctx, id, constants.Refresh.RetryInterval); err != nil {
				p.logger.Warn("Failed to defer refresh", zap.String("id", id), zap.Error(err))
			}
		}
		refresh.Results = append(refresh.Results, result)
	}

	p.logger.Info("Refresh completed",
		zap.Int("due", len(ids)),
		zap.Int("refreshed", refresh.Refreshed))
	return refresh, p.deadlineError(ctx, "refresh", p.opts.BatchTimeout)
}

// refreshName picks the name to search for a stored creator. The display name
// is used when it still maps to the same slug; otherwise the slug is turned
// back into words.
func (p *Pipeline) refreshName(ctx context.Context, id string) string {
	creator, err := p.store.GetCreatorByID(ctx, id)
	if err != nil {
		p.logger.Warn("Failed to load creator for refresh", zap.String("id", id), zap.Error(err))
	}
	if creator != nil && creator.Profile.Name != "" && store.SlugFor(creator.Profile.Name) == creator.Slug {
		return creator.Profile.Name
	}
	if creator != nil && creator.Slug != "" {
		return util.NameFromSlug(creator.Slug)
	}
	return util.NameFromSlug(id)
}

func (p *Pipeline) GetFlaggedProfiles(ctx context.Context) ([]domain.FlaggedProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ListTimeout)
	defer cancel()

	flagged, err := p.store.GetProfilesWithFlags(ctx)
	if te := p.deadlineError(ctx, "flagged listing", p.opts.ListTimeout); te != nil {
		return []domain.FlaggedProfile{}, te
	}
	if err != nil {
		return []domain.FlaggedProfile{}, err
	}
	return flagged, nil
}

func (p *Pipeline) ListProfiles(ctx context.Context, limit int) ([]domain.CreatorSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ListTimeout)
	defer cancel()

	list, err := p.store.ListCreators(ctx, limit)
	if te := p.deadlineError(ctx, "profile listing", p.opts.ListTimeout); te != nil {
		return []domain.CreatorSummary{}, te
	}
	if err != nil {
		return []domain.CreatorSummary{}, err
	}
	return list, nil
}

// run moves one name through the state machine. trigger is chosen from the
// existing document when empty.
func (p *Pipeline) run(ctx context.Context, rawName string, trigger domain.Trigger) *domain.PipelineResult {
	start := p.clock()
	name := util.CollapseSpace(rawName)
	result := &domain.PipelineResult{
		Name:        name,
		Flags:       []domain.ProfileFlag{},
		DataSources: []domain.SourceID{},
	}
	logger := p.logger.With(zap.String("name", name))

	finish := func(state State, action domain.Action, err error) *domain.PipelineResult {
		result.Action = action
		result.Success = action == domain.ActionCreated || action == domain.ActionUpdated
		if err != nil {
			result.Error = err.Error()
		}
		elapsed := p.clock().Sub(start)
		result.ProcessingTimeMs = elapsed.Milliseconds()
		metrics.RecordPipelineRun(string(action), result.Confidence.Score, elapsed)

		fields := []zap.Field{
			zap.String("state", string(state)),
			zap.String("action", string(action)),
			zap.Int("score", result.Confidence.Score),
			zap.Int("flags", len(result.Flags)),
			zap.Int64("ms", result.ProcessingTimeMs),
		}
		if err != nil {
			logger.Warn("Pipeline finished", append(fields, zap.Error(err))...)
		} else {
			logger.Info("Pipeline finished", fields...)
		}
		return result
	}

	slug := store.SlugFor(name)
	if slug == "" {
		return finish(StateFailed, domain.ActionFailed, errors.NewValidationError("name is required", "name", name))
	}

	if p.opts.Locker != nil {
		release, err := p.opts.Locker.TryLock(ctx, slug)
		switch {
		case err != nil:
			logger.Warn("In-flight lock unavailable, continuing without it", zap.Error(err))
		case release == nil:
			return finish(StateFailed, domain.ActionFailed, errors.NewEnrichError(
				fmt.Sprintf("a run for %q is already in progress", slug), errors.CodeInProgress, http.StatusConflict,
				map[string]any{"slug": slug}))
		default:
			defer release()
		}
	}

	logger.Debug("Pipeline state", zap.String("state", string(StateCollecting)))
	existing, err := p.store.GetCreator(ctx, slug)
	if err != nil {
		return finish(StateFailed, domain.ActionFailed, err)
	}
	var known domain.KnownIdentifiers
	if existing != nil {
		known = existing.Identifiers
	}

	candidate, err := p.aggregator.Aggregate(ctx, name, known)
	if err != nil {
		return finish(StateFailed, domain.ActionFailed, errors.NewEnrichError(
			"aggregation failed", errors.CodeEnrichError, http.StatusBadGateway,
			map[string]any{"slug": slug}).WithCause(err))
	}
	if candidate == nil || candidate.Name == "" {
		return finish(StateFailed, domain.ActionFailed, fmt.Errorf("aggregation returned no name"))
	}
	result.Confidence = candidate.DataQuality
	result.DataSources = append(result.DataSources, candidate.DataSources...)

	logger.Debug("Pipeline state", zap.String("state", string(StateValidating)))
	validation, flags := p.validator.Validate(ctx, candidate)
	result.Validation = &validation
	if flags != nil {
		result.Flags = flags
	}

	logger.Debug("Pipeline state", zap.String("state", string(StateDeciding)))
	if candidate.DataQuality.Score < p.opts.MinConfidence {
		return finish(StateSkipped, domain.ActionSkipped, fmt.Errorf(
			"confidence %d is below the save threshold %d", candidate.DataQuality.Score, p.opts.MinConfidence))
	}

	logger.Debug("Pipeline state", zap.String("state", string(StateSaving)))
	if trigger == "" {
		trigger = domain.TriggerInitial
		if existing != nil {
			trigger = domain.TriggerManual
		}
	}
	saved, err := p.store.SaveProfile(ctx, candidate, result.Flags, trigger)
	if err != nil {
		return finish(StateFailed, domain.ActionFailed, err)
	}

	result.CreatorID = &saved.CreatorID
	result.Slug = &saved.Slug
	result.Version = saved.Version
	action := domain.ActionUpdated
	if saved.IsNew {
		action = domain.ActionCreated
	}
	return finish(StateDone, action, nil)
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.opts.InterItemDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.opts.InterItemDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) deadlineError(ctx context.Context, op string, timeout time.Duration) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewTimeoutError(op, timeout, ctx.Err())
	}
	return nil
}
