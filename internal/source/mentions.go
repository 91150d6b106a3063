package source

import (
	"context"
	"strconv"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	youtubesvc "github.com/kapu/creator-directory-go/internal/service/youtube"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
)

// MentionsAdapter finds videos by other channels that talk about the creator.
type MentionsAdapter struct {
	api    VideoAPI
	guard  *guard
	logger *zap.Logger
}

func NewMentionsAdapter(api VideoAPI, opts Options) *MentionsAdapter {
	opts = opts.withDefaults()
	return &MentionsAdapter{
		api:    api,
		guard:  newGuard(domain.SourceMentions, opts.RequestsPerSecond, opts.Logger),
		logger: opts.Logger,
	}
}

func (a *MentionsAdapter) ID() domain.SourceID { return domain.SourceMentions }

func (a *MentionsAdapter) Fetch(ctx context.Context, name string, known domain.KnownIdentifiers) domain.Fragment {
	empty := domain.EmptyFragment{ID: domain.SourceMentions}
	if a.api == nil {
		return empty
	}

	var videos []domain.Video
	err := a.guard.do(ctx, func(ctx context.Context) error {
		var err error
		videos, err = a.api.SearchVideos(ctx, youtubesvc.VideoQuery{
			Query: strconv.Quote(util.CleanName(name)),
			Order: "relevance",
			Max:   constants.YouTubeQuota.MentionVideos,
		})
		return err
	})
	if err != nil {
		a.logger.Warn("Mention search failed", zap.String("name", name), zap.Error(err))
		return empty
	}

	mentions := make([]domain.Video, 0, len(videos))
	for _, v := range videos {
		if known.ChannelID != "" && v.ChannelID == known.ChannelID {
			continue
		}
		if !IsRelevant(name, v.Title, v.Description) {
			continue
		}
		mentions = append(mentions, v)
		if len(mentions) == constants.Merge.MaxMentionVideos {
			break
		}
	}

	if len(mentions) == 0 {
		return empty
	}
	return &domain.MentionsFragment{Videos: mentions}
}
