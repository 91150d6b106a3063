package source

import (
	"context"
	"net/url"
	"time"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
)

const itunesSearchAPI = "https://itunes.apple.com/search"

type PodcastAdapter struct {
	client *apiClient
	logger *zap.Logger
}

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		CollectionID   int64  `json:"collectionId"`
		CollectionName string `json:"collectionName"`
		ArtistName     string `json:"artistName"`
		FeedURL        string `json:"feedUrl"`
		ViewURL        string `json:"collectionViewUrl"`
		Artwork        string `json:"artworkUrl600"`
		Genre          string `json:"primaryGenreName"`
		TrackCount     int64  `json:"trackCount"`
		ReleaseDate    string `json:"releaseDate"`
	} `json:"results"`
}

// NewPodcastAdapter builds the podcast directory adapter. baseURL defaults
// to the iTunes search API.
func NewPodcastAdapter(baseURL string, opts Options) *PodcastAdapter {
	opts = opts.withDefaults()
	if baseURL == "" {
		baseURL = itunesSearchAPI
	}
	return &PodcastAdapter{
		client: newAPIClient(domain.SourcePodcast, baseURL, opts),
		logger: opts.Logger,
	}
}

func (a *PodcastAdapter) ID() domain.SourceID { return domain.SourcePodcast }

func (a *PodcastAdapter) Fetch(ctx context.Context, name string, _ domain.KnownIdentifiers) domain.Fragment {
	empty := domain.EmptyFragment{ID: domain.SourcePodcast}

	params := url.Values{
		"term":   {util.CleanName(name)},
		"media":  {"podcast"},
		"entity": {"podcast"},
		"limit":  {"10"},
	}

	var resp itunesResponse
	if err := a.client.getJSON(ctx, params, &resp); err != nil {
		a.logger.Warn("Podcast search failed", zap.String("name", name), zap.Error(err))
		return empty
	}

	podcasts := make([]domain.Podcast, 0, constants.Merge.MaxPodcasts)
	for _, r := range resp.Results {
		if r.CollectionID == 0 || !IsRelevant(name, r.ArtistName, r.CollectionName) {
			continue
		}
		p := domain.Podcast{
			ID:           r.CollectionID,
			Title:        r.CollectionName,
			Author:       r.ArtistName,
			FeedURL:      r.FeedURL,
			URL:          r.ViewURL,
			Artwork:      r.Artwork,
			Genre:        r.Genre,
			EpisodeCount: r.TrackCount,
		}
		if t, err := time.Parse(time.RFC3339, r.ReleaseDate); err == nil {
			p.LatestAt = &t
		}
		podcasts = append(podcasts, p)
		if len(podcasts) == constants.Merge.MaxPodcasts {
			break
		}
	}

	if len(podcasts) == 0 {
		return empty
	}
	a.logger.Debug("Podcasts fetched", zap.String("name", name), zap.Int("podcasts", len(podcasts)))
	return &domain.PodcastFragment{Podcasts: podcasts}
}
