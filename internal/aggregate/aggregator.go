// Package aggregate fans a name out to every source adapter and merges the
// fragments into one scored candidate profile.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/metrics"
	"github.com/kapu/creator-directory-go/internal/source"
	"github.com/kapu/creator-directory-go/internal/util"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

type Aggregator struct {
	adapters []source.Adapter
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAggregator wires the adapters. timeout bounds each adapter call; zero
// uses the default.
func NewAggregator(adapters []source.Adapter, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = constants.SourceConfig.AdapterTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		adapters: adapters,
		timeout:  timeout,
		logger:   logger,
	}
}

// Sources lists the configured adapter ids.
func (a *Aggregator) Sources() []domain.SourceID {
	ids := make([]domain.SourceID, len(a.adapters))
	for i, ad := range a.adapters {
		ids[i] = ad.ID()
	}
	return ids
}

// Aggregate runs every adapter concurrently and merges their fragments in
// source priority order. Adapter failures only reduce the data available.
func (a *Aggregator) Aggregate(ctx context.Context, name string, known domain.KnownIdentifiers) (*domain.CandidateProfile, error) {
	name = util.CollapseSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	fragments := make([]domain.Fragment, len(a.adapters))
	p := pool.New().WithMaxGoroutines(max(len(a.adapters), 1))
	for idx, adapter := range a.adapters {
		p.Go(func() {
			fragments[idx] = a.fetch(ctx, adapter, name, known)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidate := Merge(name, fragments)

	a.logger.Info("Profile aggregated",
		zap.String("name", name),
		zap.Int("sources", len(candidate.DataSources)),
		zap.Int("fields", len(candidate.Fields)),
		zap.Int("conflicts", len(candidate.Conflicts)),
		zap.Int("score", candidate.DataQuality.Score),
		zap.String("level", string(candidate.DataQuality.Level)))

	return candidate, nil
}

// fetch runs one adapter under its own deadline. A panic, a nil fragment or
// an adapter that ignores its context all become an empty fragment.
func (a *Aggregator) fetch(ctx context.Context, adapter source.Adapter, name string, known domain.KnownIdentifiers) domain.Fragment {
	id := adapter.ID()
	empty := domain.EmptyFragment{ID: id}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan domain.Fragment, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("Source adapter panicked",
					zap.String("source", string(id)),
					zap.Any("panic", r))
				metrics.RecordSourceFetch(string(id), metrics.SourcePanic, time.Since(start))
				done <- nil
			}
		}()
		done <- adapter.Fetch(ctx, name, known)
	}()

	select {
	case frag := <-done:
		if frag == nil || frag.Source() != id {
			return empty
		}
		outcome := metrics.SourceEmpty
		if len(frag.Values()) > 0 {
			outcome = metrics.SourceContributed
		}
		metrics.RecordSourceFetch(string(id), outcome, time.Since(start))
		return frag
	case <-ctx.Done():
		a.logger.Warn("Source adapter timed out",
			zap.String("source", string(id)),
			zap.Duration("timeout", a.timeout))
		metrics.RecordSourceFetch(string(id), metrics.SourceTimeout, time.Since(start))
		return empty
	}
}

// Merge combines fragments into a candidate. Fragments are ordered by source
// priority first, so the result does not depend on completion order: the
// first non-empty value per field wins and every value is kept as an
// observation.
func Merge(name string, fragments []domain.Fragment) *domain.CandidateProfile {
	candidate := domain.NewCandidateProfile(name)

	ordered := make([]domain.Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f != nil {
			ordered = append(ordered, f)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return domain.PriorityRank(ordered[i].Source()) < domain.PriorityRank(ordered[j].Source())
	})

	for _, frag := range ordered {
		values := frag.Values()
		if len(values) == 0 {
			continue
		}
		candidate.DataSources = append(candidate.DataSources, frag.Source())

		for _, v := range values {
			if _, taken := candidate.Fields[v.Field]; !taken {
				candidate.Fields[v.Field] = v
			}
			candidate.Observations[v.Field] = append(candidate.Observations[v.Field], domain.Observation{
				Source: v.Source,
				Value:  v.Value,
			})
		}
	}

	candidate.Conflicts = domain.FindConflicts(candidate.Observations, constants.Merge.NumericTolerance)
	candidate.DataQuality = Score(candidate)
	return candidate
}
