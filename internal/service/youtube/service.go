package youtube

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
	"github.com/kapu/creator-directory-go/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type YouTubeService struct {
	service    *youtube.Service
	logger     *zap.Logger
	clock      util.Clock
	quotaUsed  int
	quotaMu    sync.Mutex
	quotaReset time.Time
}

// ChannelHit is a channel search result before its details are fetched.
type ChannelHit struct {
	ID          string
	Title       string
	Description string
}

// VideoQuery describes a search.list call for videos.
type VideoQuery struct {
	Query     string
	ChannelID string
	Order     string
	Max       int64
}

func NewYouTubeService(ctx context.Context, apiKey string, logger *zap.Logger, opts ...option.ClientOption) (*YouTubeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	ys := &YouTubeService{
		service: service,
		logger:  logger,
		clock:   util.SystemClock,
	}
	ys.quotaReset = util.NextPacificMidnight(ys.clock())

	logger.Info("YouTube service initialized",
		zap.Time("quotaReset", ys.quotaReset))

	return ys, nil
}

func (ys *YouTubeService) checkQuota(cost int) error {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	now := ys.clock()
	if now.After(ys.quotaReset) {
		ys.quotaUsed = 0
		ys.quotaReset = util.NextPacificMidnight(now)
		ys.logger.Info("YouTube API quota auto-reset",
			zap.Time("nextReset", ys.quotaReset))
	}

	limit := constants.YouTubeQuota.DailyLimit
	if ys.quotaUsed+cost > limit-constants.YouTubeQuota.SafetyMargin {
		return &QuotaExceededError{
			Used:      ys.quotaUsed,
			Limit:     limit,
			Requested: cost,
			ResetTime: ys.quotaReset,
		}
	}
	return nil
}

func (ys *YouTubeService) consumeQuota(cost int) {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	ys.quotaUsed += cost
	remaining := constants.YouTubeQuota.DailyLimit - ys.quotaUsed

	ys.logger.Debug("YouTube API quota consumed",
		zap.Int("cost", cost),
		zap.Int("used", ys.quotaUsed),
		zap.Int("remaining", remaining))

	if remaining < constants.YouTubeQuota.SafetyMargin {
		ys.logger.Warn("YouTube API quota running low",
			zap.Int("remaining", remaining),
			zap.Time("resetTime", ys.quotaReset))
	}
}

// IsQuotaAvailable reports whether a call of the given cost fits in today's budget.
func (ys *YouTubeService) IsQuotaAvailable(cost int) bool {
	return ys.checkQuota(cost) == nil
}

func (ys *YouTubeService) GetQuotaStatus() (used int, remaining int, resetTime time.Time) {
	ys.quotaMu.Lock()
	defer ys.quotaMu.Unlock()

	limit := constants.YouTubeQuota.DailyLimit
	if ys.clock().After(ys.quotaReset) {
		return 0, limit, util.NextPacificMidnight(ys.clock())
	}
	return ys.quotaUsed, limit - ys.quotaUsed, ys.quotaReset
}

// SearchChannels runs a channel search for query.
func (ys *YouTubeService) SearchChannels(ctx context.Context, query string, max int64) ([]ChannelHit, error) {
	cost := constants.YouTubeQuota.SearchCost
	if err := ys.checkQuota(cost); err != nil {
		return nil, err
	}

	response, err := ys.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(max).
		Context(ctx).
		Do()
	ys.consumeQuota(cost)
	if err != nil {
		return nil, ys.wrapError("channel search", err)
	}

	hits := make([]ChannelHit, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Snippet == nil || item.Snippet.ChannelId == "" {
			continue
		}
		hits = append(hits, ChannelHit{
			ID:          item.Snippet.ChannelId,
			Title:       item.Snippet.ChannelTitle,
			Description: item.Snippet.Description,
		})
	}
	return hits, nil
}

// GetChannel loads snippet, statistics and upload playlist for a channel.
// A channel that does not exist yields nil without error.
func (ys *YouTubeService) GetChannel(ctx context.Context, channelID string) (*domain.VideoChannel, string, error) {
	cost := constants.YouTubeQuota.ListCost
	if err := ys.checkQuota(cost); err != nil {
		return nil, "", err
	}

	response, err := ys.service.Channels.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	ys.consumeQuota(cost)
	if err != nil {
		return nil, "", ys.wrapError("channel details", err)
	}
	if len(response.Items) == 0 {
		return nil, "", nil
	}

	channel, uploads := ChannelFromAPI(response.Items[0])
	return channel, uploads, nil
}

// GetPlaylistVideos lists the newest entries of a playlist.
func (ys *YouTubeService) GetPlaylistVideos(ctx context.Context, playlistID string, max int64) ([]domain.Video, error) {
	cost := constants.YouTubeQuota.ListCost
	if err := ys.checkQuota(cost); err != nil {
		return nil, err
	}

	response, err := ys.service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(max).
		Context(ctx).
		Do()
	ys.consumeQuota(cost)
	if err != nil {
		return nil, ys.wrapError("playlist items", err)
	}

	videos := make([]domain.Video, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil || item.Snippet.ResourceId.VideoId == "" {
			continue
		}
		s := item.Snippet
		videos = append(videos, newVideo(s.ResourceId.VideoId, s.Title, s.ChannelId, s.ChannelTitle, s.PublishedAt, s.Thumbnails))
	}
	return videos, nil
}

// SearchVideos runs a video search, optionally scoped to one channel.
func (ys *YouTubeService) SearchVideos(ctx context.Context, q VideoQuery) ([]domain.Video, error) {
	cost := constants.YouTubeQuota.SearchCost
	if err := ys.checkQuota(cost); err != nil {
		return nil, err
	}

	call := ys.service.Search.List([]string{"snippet"}).
		Type("video").
		MaxResults(q.Max)
	if q.Query != "" {
		call = call.Q(q.Query)
	}
	if q.ChannelID != "" {
		call = call.ChannelId(q.ChannelID)
	}
	if q.Order != "" {
		call = call.Order(q.Order)
	}

	response, err := call.Context(ctx).Do()
	ys.consumeQuota(cost)
	if err != nil {
		return nil, ys.wrapError("video search", err)
	}

	videos := make([]domain.Video, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		s := item.Snippet
		video := newVideo(item.Id.VideoId, s.Title, s.ChannelId, s.ChannelTitle, s.PublishedAt, s.Thumbnails)
		video.Description = s.Description
		videos = append(videos, video)
	}
	return videos, nil
}

func (ys *YouTubeService) wrapError(op string, err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		if apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusTooManyRequests {
			ys.logger.Warn("YouTube API refused request",
				zap.String("op", op),
				zap.Int("status", apiErr.Code))
			_, _, reset := ys.GetQuotaStatus()
			return errors.NewRateLimitError(string(domain.SourceVideo), apiErr.Code, time.Until(reset))
		}
		return errors.NewSourceError(op+" failed", string(domain.SourceVideo), apiErr.Code, err)
	}
	return errors.NewSourceError(op+" failed", string(domain.SourceVideo), 0, err)
}

// ChannelFromAPI converts an API channel into the stored shape and returns
// its uploads playlist id.
func ChannelFromAPI(ch *youtube.Channel) (*domain.VideoChannel, string) {
	if ch == nil || ch.Id == "" {
		return nil, ""
	}

	channel := &domain.VideoChannel{
		ChannelID: ch.Id,
		URL:       "https://www.youtube.com/channel/" + ch.Id,
	}
	if ch.Snippet != nil {
		channel.Title = ch.Snippet.Title
		channel.Description = ch.Snippet.Description
		channel.CustomURL = ch.Snippet.CustomUrl
		channel.Thumbnail = extractThumbnail(ch.Snippet.Thumbnails)
	}
	if ch.Statistics != nil {
		if !ch.Statistics.HiddenSubscriberCount {
			channel.SubscriberCount = int64(ch.Statistics.SubscriberCount)
		}
		channel.VideoCount = int64(ch.Statistics.VideoCount)
		channel.ViewCount = int64(ch.Statistics.ViewCount)
	}

	uploads := ""
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		uploads = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	return channel, uploads
}

func newVideo(id, title, channelID, channelTitle, publishedAt string, thumbs *youtube.ThumbnailDetails) domain.Video {
	video := domain.Video{
		ID:          id,
		Title:       title,
		ChannelID:   channelID,
		ChannelName: channelTitle,
		URL:         "https://www.youtube.com/watch?v=" + id,
		Thumbnail:   extractThumbnail(thumbs),
	}
	if publishedAt != "" {
		if t, err := time.Parse(time.RFC3339, publishedAt); err == nil {
			video.PublishedAt = &t
		}
	}
	return video
}

func extractThumbnail(thumbnails *youtube.ThumbnailDetails) string {
	if thumbnails == nil {
		return ""
	}

	for _, t := range []*youtube.Thumbnail{thumbnails.Maxres, thumbnails.High, thumbnails.Medium, thumbnails.Default} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}

type QuotaExceededError struct {
	Used      int
	Limit     int
	Requested int
	ResetTime time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("YouTube API quota exceeded: used %d/%d (requested %d more), resets at %s",
		e.Used, e.Limit, e.Requested, e.ResetTime.Format(time.RFC3339))
}
