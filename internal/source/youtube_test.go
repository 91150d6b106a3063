package source

import (
	"context"
	"errors"
	"testing"

	"github.com/kapu/creator-directory-go/internal/domain"
	youtubesvc "github.com/kapu/creator-directory-go/internal/service/youtube"
)

type fakeVideoAPI struct {
	hits       []youtubesvc.ChannelHit
	channel    *domain.VideoChannel
	channelErr error
	uploads    []domain.Video
	popular    []domain.Video
	mentions   []domain.Video
	quota      bool

	searches       int
	channelLookups []string
	queries        []youtubesvc.VideoQuery
}

func (f *fakeVideoAPI) SearchChannels(_ context.Context, _ string, _ int64) ([]youtubesvc.ChannelHit, error) {
	f.searches++
	return f.hits, nil
}

func (f *fakeVideoAPI) GetChannel(_ context.Context, id string) (*domain.VideoChannel, string, error) {
	f.channelLookups = append(f.channelLookups, id)
	if f.channelErr != nil {
		return nil, "", f.channelErr
	}
	if f.channel == nil {
		return nil, "", nil
	}
	ch := *f.channel
	return &ch, "UU" + id, nil
}

func (f *fakeVideoAPI) GetPlaylistVideos(_ context.Context, _ string, _ int64) ([]domain.Video, error) {
	return f.uploads, nil
}

func (f *fakeVideoAPI) SearchVideos(_ context.Context, q youtubesvc.VideoQuery) ([]domain.Video, error) {
	f.queries = append(f.queries, q)
	if q.ChannelID != "" {
		return f.popular, nil
	}
	return f.mentions, nil
}

func (f *fakeVideoAPI) IsQuotaAvailable(int) bool { return f.quota }

type fakeChannelCache struct {
	entries map[string]string
}

func (c *fakeChannelCache) GetChannelID(_ context.Context, name string) (string, bool) {
	id, ok := c.entries[name]
	return id, ok
}

func (c *fakeChannelCache) SetChannelID(_ context.Context, name, id string) {
	c.entries[name] = id
}

var testOpts = Options{RequestsPerSecond: 1000}

func TestVideoAdapterDiscoversRelevantChannel(t *testing.T) {
	api := &fakeVideoAPI{
		hits: []youtubesvc.ChannelHit{
			{ID: "UC-wrong", Title: "Omar Cooking"},
			{ID: "UC-omar", Title: "Omar Suleiman", Description: "Official channel"},
		},
		channel: &domain.VideoChannel{
			ChannelID:       "UC-omar",
			Title:           "Omar Suleiman",
			Description:     "Weekly tafsir and khutbah",
			URL:             "https://www.youtube.com/channel/UC-omar",
			SubscriberCount: 1200000,
		},
		uploads: []domain.Video{{ID: "v1", Title: "Seerah episode 1"}},
		popular: []domain.Video{{ID: "v2", Title: "Ramadan reminder"}},
		quota:   true,
	}
	cache := &fakeChannelCache{entries: map[string]string{}}

	adapter := NewVideoAdapter(api, cache, testOpts)
	frag, ok := adapter.Fetch(t.Context(), "Sheikh Omar Suleiman", domain.KnownIdentifiers{}).(*domain.VideoFragment)
	if !ok {
		t.Fatal("expected a video fragment")
	}

	if frag.Channel.ChannelID != "UC-omar" {
		t.Fatalf("channel = %q, want UC-omar", frag.Channel.ChannelID)
	}
	if len(frag.Channel.RecentVideos) != 1 || len(frag.Channel.PopularVideos) != 1 {
		t.Errorf("expected recent and popular videos, got %+v", frag.Channel)
	}
	if cache.entries["omar-suleiman"] != "UC-omar" {
		t.Errorf("discovery not cached: %v", cache.entries)
	}

	tags := frag.Channel.Tags
	for _, want := range []string{"lectures", "seerah", "tafsir"} {
		found := false
		for _, tag := range tags {
			if tag == want {
				found = true
			}
		}
		if !found {
			t.Errorf("tag %q missing from %v", want, tags)
		}
	}
}

func TestVideoAdapterKnownChannelSkipsSearch(t *testing.T) {
	api := &fakeVideoAPI{
		channel: &domain.VideoChannel{ChannelID: "UC-known", Title: "Anything"},
	}

	frag := NewVideoAdapter(api, nil, testOpts).Fetch(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{ChannelID: "UC-known"})
	if len(frag.Values()) == 0 {
		t.Fatal("expected data for a known channel")
	}
	if api.searches != 0 {
		t.Errorf("search ran %d times for a known channel", api.searches)
	}
	if len(api.queries) != 0 {
		t.Errorf("popular search ran without quota: %+v", api.queries)
	}
}

func TestVideoAdapterUsesCachedDiscovery(t *testing.T) {
	api := &fakeVideoAPI{channel: &domain.VideoChannel{ChannelID: "UC-cached"}}
	cache := &fakeChannelCache{entries: map[string]string{"omar-suleiman": "UC-cached"}}

	NewVideoAdapter(api, cache, testOpts).Fetch(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{})
	if api.searches != 0 {
		t.Errorf("expected cache hit to skip search")
	}
	if len(api.channelLookups) != 1 || api.channelLookups[0] != "UC-cached" {
		t.Errorf("channel lookups = %v", api.channelLookups)
	}
}

func TestVideoAdapterFailsSoft(t *testing.T) {
	tests := map[string]*fakeVideoAPI{
		"no relevant hit": {hits: []youtubesvc.ChannelHit{{ID: "UC-x", Title: "Cooking with Omar"}}},
		"lookup error": {
			hits:       []youtubesvc.ChannelHit{{ID: "UC-omar", Title: "Omar Suleiman"}},
			channelErr: errors.New("boom"),
		},
		"channel missing": {hits: []youtubesvc.ChannelHit{{ID: "UC-omar", Title: "Omar Suleiman"}}},
	}

	for name, api := range tests {
		t.Run(name, func(t *testing.T) {
			frag := NewVideoAdapter(api, nil, testOpts).Fetch(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{})
			if _, ok := frag.(domain.EmptyFragment); !ok {
				t.Fatalf("expected EmptyFragment, got %T", frag)
			}
			if frag.Source() != domain.SourceVideo {
				t.Errorf("source = %q", frag.Source())
			}
		})
	}
}

func TestMentionsAdapterFiltersOwnChannel(t *testing.T) {
	api := &fakeVideoAPI{
		mentions: []domain.Video{
			{ID: "m1", Title: "Omar Suleiman on patience", ChannelID: "UC-other"},
			{ID: "m2", Title: "Omar Suleiman live", ChannelID: "UC-omar"},
			{ID: "m3", Title: "Random vlog", ChannelID: "UC-other"},
		},
	}

	frag, ok := NewMentionsAdapter(api, testOpts).
		Fetch(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{ChannelID: "UC-omar"}).(*domain.MentionsFragment)
	if !ok {
		t.Fatal("expected mentions fragment")
	}
	if len(frag.Videos) != 1 || frag.Videos[0].ID != "m1" {
		t.Fatalf("mentions = %+v", frag.Videos)
	}
	if api.queries[0].Query != `"Omar Suleiman"` {
		t.Errorf("query = %q, want quoted clean name", api.queries[0].Query)
	}
}
