package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/store"
	"go.uber.org/zap"
)

func TestLoadSeedsAndImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creators.json")
	content := `{"creators":[
		{"name":"Omar Suleiman","bio":"Curated biography that is long enough to be protected from automated rewrites.","channelId":"UC1","priority":"high"},
		{"name":"Yasir Qadhi","wikipediaTitle":"Yasir Qadhi"}
	]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	seeds, err := loadSeeds(path)
	if err != nil {
		t.Fatalf("loadSeeds: %v", err)
	}
	if err := validateSeeds(seeds); err != nil {
		t.Fatalf("validateSeeds: %v", err)
	}

	ctx := context.Background()
	s := store.NewMemoryStore(zap.NewNop())
	res, err := s.ImportCreator(ctx, seeds[0].Creator())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !res.IsNew || res.CreatorID != "omar-suleiman" {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := s.SetRefreshPriority(ctx, res.CreatorID, seeds[0].RefreshPriority()); err != nil {
		t.Fatalf("priority: %v", err)
	}

	got, _ := s.GetCreatorByID(ctx, res.CreatorID)
	if got.Profile.Provenance[domain.FieldBio] != domain.SourceManual || got.Identifiers.ChannelID != "UC1" {
		t.Fatalf("seed not stored as manual data: %+v", got)
	}
	versions, _ := s.GetVersions(ctx, res.CreatorID)
	if len(versions) != 1 || versions[0].Trigger != domain.TriggerSeed {
		t.Fatalf("expected one seed version, got %+v", versions)
	}
}

func TestValidateSeeds(t *testing.T) {
	tests := []struct {
		name  string
		seeds []SeedCreator
		ok    bool
	}{
		{"valid", []SeedCreator{{Name: "Omar Suleiman"}, {Name: "Yasir Qadhi", Priority: "low"}}, true},
		{"blank name", []SeedCreator{{Name: "  "}}, false},
		{"duplicate slug", []SeedCreator{{Name: "Omar Suleiman"}, {Name: "Sheikh Omar Suleiman"}}, false},
		{"bad priority", []SeedCreator{{Name: "Omar Suleiman", Priority: "urgent"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSeeds(tt.seeds)
			if (err == nil) != tt.ok {
				t.Fatalf("validateSeeds() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
