package app

import (
	"context"
	"testing"
	"time"

	"github.com/kapu/creator-directory-go/internal/config"
	"github.com/kapu/creator-directory-go/internal/domain"
	"go.uber.org/zap"
)

func offlineConfig() *config.Config {
	return &config.Config{
		Sources: config.SourcesConfig{
			AdapterTimeout:    time.Second,
			RequestsPerSecond: 10,
		},
		Pipeline: config.PipelineConfig{
			MinConfidenceToSave: 40,
			SingleTimeout:       5 * time.Second,
			BatchTimeout:        10 * time.Second,
			ListTimeout:         time.Second,
			MaxBatchSize:        20,
		},
		Refresh: config.RefreshConfig{Interval: time.Hour, Limit: 5},
		HTTP:    config.HTTPConfig{RequestsPerMinute: 30},
	}
}

func TestBuildDryRunWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	container, err := Build(ctx, offlineConfig(), zap.NewNop(), BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer container.Close()

	if container.Pipeline == nil || container.Scheduler == nil || container.Server == nil {
		t.Fatal("expected pipeline, scheduler and server to be assembled")
	}

	// Every adapter is disabled, so the candidate falls below the save gate.
	res, err := container.Pipeline.ProcessProfile(ctx, "Omar Suleiman")
	if err != nil {
		t.Fatalf("ProcessProfile: %v", err)
	}
	if res.Action != domain.ActionSkipped || len(res.DataSources) != 0 {
		t.Fatalf("expected skipped run without sources, got %+v", res)
	}

	seed := &domain.Creator{Profile: domain.CreatorProfile{Name: "Omar Suleiman"}}
	saved, err := container.Store.ImportCreator(ctx, seed)
	if err != nil {
		t.Fatalf("ImportCreator: %v", err)
	}
	got, err := container.Store.GetCreator(ctx, saved.Slug)
	if err != nil || got == nil {
		t.Fatalf("GetCreator(%q) = %v, %v", saved.Slug, got, err)
	}
}

func TestBuildRejectsMissingDependencies(t *testing.T) {
	if _, err := Build(context.Background(), nil, zap.NewNop(), BuildOptions{DryRun: true}); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := Build(context.Background(), offlineConfig(), nil, BuildOptions{DryRun: true}); err == nil {
		t.Fatal("expected error for nil logger")
	}
}
