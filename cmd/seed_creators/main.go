package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/kapu/creator-directory-go/internal/app"
	"github.com/kapu/creator-directory-go/internal/config"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/store"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
)

var (
	file    = flag.String("file", "data/creators.json", "Curated creators JSON file")
	dryRun  = flag.Bool("dry-run", false, "Validate and import into memory only")
	verbose = flag.Bool("verbose", false, "Log every imported creator")
)

// SeedCreator is one curated entry. Profile fields are stored as manual edits.
type SeedCreator struct {
	Name           string `json:"name"`
	Bio            string `json:"bio,omitempty"`
	ShortBio       string `json:"shortBio,omitempty"`
	Avatar         string `json:"avatar,omitempty"`
	WebsiteURL     string `json:"websiteUrl,omitempty"`
	ChannelID      string `json:"channelId,omitempty"`
	KnowledgeID    string `json:"knowledgeId,omitempty"`
	WikipediaTitle string `json:"wikipediaTitle,omitempty"`
	Priority       string `json:"priority,omitempty"`
}

type seedFile struct {
	Creators []SeedCreator `json:"creators"`
}

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

	seeds, err := loadSeeds(*file)
	if err != nil {
		logger.Fatal("Failed to load seed file", zap.String("file", *file), zap.Error(err))
	}
	if err := validateSeeds(seeds); err != nil {
		logger.Fatal("Seed validation failed", zap.Error(err))
	}
	logger.Info("Seed file loaded", zap.Int("creators", len(seeds)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := app.Build(ctx, cfg, logger, app.BuildOptions{DryRun: *dryRun})
	if err != nil {
		logger.Fatal("Failed to assemble application services", zap.Error(err))
	}
	defer container.Close()

	created, updated := 0, 0
	for _, seed := range seeds {
		res, err := container.Store.ImportCreator(ctx, seed.Creator())
		if err != nil {
			logger.Error("Failed to import creator", zap.String("name", seed.Name), zap.Error(err))
			continue
		}
		if res.IsNew {
			created++
		} else {
			updated++
		}

		if p := seed.RefreshPriority(); p != domain.PriorityNormal {
			if err := container.Store.SetRefreshPriority(ctx, res.CreatorID, p); err != nil {
				logger.Warn("Failed to set refresh priority", zap.String("id", res.CreatorID), zap.Error(err))
			}
		}

		if *verbose {
			logger.Info("Imported creator",
				zap.String("id", res.CreatorID),
				zap.Int("version", res.Version),
				zap.Int("changes", res.Changes))
		}
	}

	logger.Info("Seed import completed",
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("failed", len(seeds)-created-updated),
		zap.Bool("dry_run", *dryRun))
}

func loadSeeds(path string) ([]SeedCreator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc seedFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc.Creators, nil
}

// validateSeeds rejects unnamed entries and entries that collapse to the same slug.
func validateSeeds(seeds []SeedCreator) error {
	seen := make(map[string]string, len(seeds))
	for i, s := range seeds {
		slug := store.SlugFor(s.Name)
		if slug == "" {
			return fmt.Errorf("entry %d has no usable name", i)
		}
		if prev, dup := seen[slug]; dup {
			return fmt.Errorf("%q and %q share slug %q", prev, s.Name, slug)
		}
		seen[slug] = s.Name

		switch s.Priority {
		case "", string(domain.PriorityLow), string(domain.PriorityNormal), string(domain.PriorityHigh):
		default:
			return fmt.Errorf("%q has unknown priority %q", s.Name, s.Priority)
		}
	}
	return nil
}

func (s SeedCreator) Creator() *domain.Creator {
	return &domain.Creator{
		Profile: domain.CreatorProfile{
			Name:     util.CollapseSpace(s.Name),
			Bio:      s.Bio,
			ShortBio: s.ShortBio,
			Avatar:   s.Avatar,
		},
		Facts: domain.CreatorFacts{WebsiteURL: s.WebsiteURL},
		Identifiers: domain.KnownIdentifiers{
			ChannelID:      s.ChannelID,
			KnowledgeID:    s.KnowledgeID,
			WikipediaTitle: s.WikipediaTitle,
		},
	}
}

func (s SeedCreator) RefreshPriority() domain.RefreshPriority {
	if s.Priority == "" {
		return domain.PriorityNormal
	}
	return domain.RefreshPriority(s.Priority)
}
