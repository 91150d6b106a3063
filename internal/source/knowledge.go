package source

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
	"google.golang.org/api/kgsearch/v1"
	"google.golang.org/api/option"
)

type KnowledgeAdapter struct {
	service *kgsearch.Service
	guard   *guard
	logger  *zap.Logger
}

// kgEntity is the narrowed shape of one itemListElement entry.
type kgEntity struct {
	Result struct {
		ID          string   `json:"@id"`
		Name        string   `json:"name"`
		Types       []string `json:"@type"`
		Description string   `json:"description"`
		URL         string   `json:"url"`
		Image       *struct {
			ContentURL string `json:"contentUrl"`
		} `json:"image"`
		Detailed *struct {
			ArticleBody string `json:"articleBody"`
			URL         string `json:"url"`
		} `json:"detailedDescription"`
	} `json:"result"`
	ResultScore float64 `json:"resultScore"`
}

// NewKnowledgeAdapter builds the knowledge-graph adapter. An empty apiKey disables it.
func NewKnowledgeAdapter(ctx context.Context, apiKey string, opts Options, clientOpts ...option.ClientOption) (*KnowledgeAdapter, error) {
	opts = opts.withDefaults()
	a := &KnowledgeAdapter{
		guard:  newGuard(domain.SourceKnowledge, opts.RequestsPerSecond, opts.Logger),
		logger: opts.Logger,
	}
	if apiKey == "" {
		opts.Logger.Info("Knowledge graph adapter disabled (no API key)")
		return a, nil
	}

	clientOpts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, clientOpts...)
	service, err := kgsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Knowledge Graph service: %w", err)
	}
	a.service = service
	return a, nil
}

func (a *KnowledgeAdapter) ID() domain.SourceID { return domain.SourceKnowledge }

func (a *KnowledgeAdapter) Fetch(ctx context.Context, name string, known domain.KnownIdentifiers) domain.Fragment {
	empty := domain.EmptyFragment{ID: domain.SourceKnowledge}
	if a.service == nil {
		return empty
	}

	call := a.service.Entities.Search().Types("Person").Languages("en").Limit(5)
	if known.KnowledgeID != "" {
		call = call.Ids(known.KnowledgeID)
	} else {
		call = call.Query(util.CleanName(name))
	}

	var raw []any
	err := a.guard.do(ctx, func(ctx context.Context) error {
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return err
		}
		raw = resp.ItemListElement
		return nil
	})
	if err != nil {
		a.logger.Warn("Knowledge graph search failed", zap.String("name", name), zap.Error(err))
		return empty
	}

	entities, err := narrowEntities(raw)
	if err != nil {
		a.logger.Warn("Knowledge graph payload rejected", zap.String("name", name), zap.Error(err))
		return empty
	}

	frag := knowledgeFromEntities(name, entities, known.KnowledgeID != "")
	if frag == nil {
		return empty
	}
	return frag
}

func narrowEntities(raw []any) ([]kgEntity, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var entities []kgEntity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// knowledgeFromEntities picks the first relevant person entity. When the id
// was already known the relevance filter is skipped.
func knowledgeFromEntities(name string, entities []kgEntity, knownID bool) *domain.KnowledgeFragment {
	for _, e := range entities {
		r := e.Result
		if r.ID == "" {
			continue
		}
		if !knownID && !IsRelevant(name, r.Name) {
			continue
		}

		frag := &domain.KnowledgeFragment{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			WebsiteURL:  r.URL,
		}
		if r.Image != nil {
			frag.ImageURL = r.Image.ContentURL
		}
		if r.Detailed != nil {
			frag.Detailed = util.CollapseSpace(r.Detailed.ArticleBody)
			if strings.Contains(r.Detailed.URL, "wikipedia.org") {
				frag.WikipediaURL = r.Detailed.URL
			}
		}
		return frag
	}
	return nil
}
