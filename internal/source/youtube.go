package source

import (
	"context"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	youtubesvc "github.com/kapu/creator-directory-go/internal/service/youtube"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
)

// VideoAPI is the subset of the YouTube service the video adapters use.
type VideoAPI interface {
	SearchChannels(ctx context.Context, query string, max int64) ([]youtubesvc.ChannelHit, error)
	GetChannel(ctx context.Context, channelID string) (*domain.VideoChannel, string, error)
	GetPlaylistVideos(ctx context.Context, playlistID string, max int64) ([]domain.Video, error)
	SearchVideos(ctx context.Context, q youtubesvc.VideoQuery) ([]domain.Video, error)
	IsQuotaAvailable(cost int) bool
}

// ChannelCache remembers name to channel id discoveries between runs.
type ChannelCache interface {
	GetChannelID(ctx context.Context, name string) (string, bool)
	SetChannelID(ctx context.Context, name, channelID string)
}

type VideoAdapter struct {
	api    VideoAPI
	cache  ChannelCache
	guard  *guard
	logger *zap.Logger
}

// NewVideoAdapter builds the channel adapter. A nil api yields an adapter
// that always returns an empty fragment; cache is optional.
func NewVideoAdapter(api VideoAPI, cache ChannelCache, opts Options) *VideoAdapter {
	opts = opts.withDefaults()
	return &VideoAdapter{
		api:    api,
		cache:  cache,
		guard:  newGuard(domain.SourceVideo, opts.RequestsPerSecond, opts.Logger),
		logger: opts.Logger,
	}
}

func (a *VideoAdapter) ID() domain.SourceID { return domain.SourceVideo }

func (a *VideoAdapter) Fetch(ctx context.Context, name string, known domain.KnownIdentifiers) domain.Fragment {
	empty := domain.EmptyFragment{ID: domain.SourceVideo}
	if a.api == nil {
		return empty
	}

	channelID := known.ChannelID
	if channelID == "" {
		channelID = a.discover(ctx, name)
	}
	if channelID == "" {
		return empty
	}

	var (
		channel *domain.VideoChannel
		uploads string
	)
	err := a.guard.do(ctx, func(ctx context.Context) error {
		var err error
		channel, uploads, err = a.api.GetChannel(ctx, channelID)
		return err
	})
	if err != nil {
		a.logger.Warn("Video channel lookup failed",
			zap.String("name", name),
			zap.String("channel", channelID),
			zap.Error(err))
		return empty
	}
	if channel == nil {
		a.logger.Debug("Video channel not found", zap.String("channel", channelID))
		return empty
	}

	if uploads != "" {
		_ = a.guard.do(ctx, func(ctx context.Context) error {
			videos, err := a.api.GetPlaylistVideos(ctx, uploads, constants.YouTubeQuota.RecentVideos)
			if err != nil {
				a.logger.Debug("Recent uploads unavailable", zap.String("channel", channelID), zap.Error(err))
				return err
			}
			channel.RecentVideos = videos
			return nil
		})
	}

	if a.api.IsQuotaAvailable(constants.YouTubeQuota.SearchCost) {
		_ = a.guard.do(ctx, func(ctx context.Context) error {
			videos, err := a.api.SearchVideos(ctx, youtubesvc.VideoQuery{
				ChannelID: channelID,
				Order:     "viewCount",
				Max:       constants.YouTubeQuota.PopularVideos,
			})
			if err != nil {
				a.logger.Debug("Popular videos unavailable", zap.String("channel", channelID), zap.Error(err))
				return err
			}
			channel.PopularVideos = videos
			return nil
		})
	}

	texts := []string{channel.Title, channel.Description}
	for _, v := range channel.RecentVideos {
		texts = append(texts, v.Title)
	}
	for _, v := range channel.PopularVideos {
		texts = append(texts, v.Title)
	}
	channel.Tags = DeriveTags(texts...)

	a.logger.Debug("Video channel fetched",
		zap.String("name", name),
		zap.String("channel", channelID),
		zap.Int64("subscribers", channel.SubscriberCount))

	return &domain.VideoFragment{Channel: channel}
}

// discover finds the creator's channel by name, consulting the cache first.
func (a *VideoAdapter) discover(ctx context.Context, name string) string {
	query := util.CleanName(name)
	cacheKey := util.Slugify(query)

	if a.cache != nil {
		if id, ok := a.cache.GetChannelID(ctx, cacheKey); ok {
			return id
		}
	}

	var hits []youtubesvc.ChannelHit
	err := a.guard.do(ctx, func(ctx context.Context) error {
		var err error
		hits, err = a.api.SearchChannels(ctx, query, constants.YouTubeQuota.ChannelSearches)
		return err
	})
	if err != nil {
		a.logger.Warn("Video channel search failed", zap.String("name", name), zap.Error(err))
		return ""
	}

	for _, hit := range hits {
		if IsRelevant(name, hit.Title, hit.Description) {
			if a.cache != nil {
				a.cache.SetChannelID(ctx, cacheKey, hit.ID)
			}
			return hit.ID
		}
	}

	a.logger.Debug("No relevant video channel", zap.String("name", name), zap.Int("candidates", len(hits)))
	return ""
}
