package aggregate

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/source"
	"go.uber.org/zap"
)

type fakeAdapter struct {
	id     domain.SourceID
	frag   domain.Fragment
	delay  time.Duration
	panics bool
	block  bool
}

func (f *fakeAdapter) ID() domain.SourceID { return f.id }

func (f *fakeAdapter) Fetch(ctx context.Context, _ string, _ domain.KnownIdentifiers) domain.Fragment {
	if f.panics {
		panic("provider exploded")
	}
	if f.block {
		time.Sleep(time.Second)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.frag
}

func videoOnly() *domain.VideoFragment {
	return &domain.VideoFragment{Channel: &domain.VideoChannel{
		ChannelID:       "UC123",
		Title:           "Omar Suleiman",
		URL:             "https://www.youtube.com/channel/UC123",
		Thumbnail:       "https://yt.example/omar.jpg",
		SubscriberCount: 1200000,
	}}
}

func booksFragment() *domain.BooksFragment {
	return &domain.BooksFragment{Books: []domain.Book{{Title: "Allah Loves", Authors: []string{"Omar Suleiman"}}}}
}

func emptyAdapters() []source.Adapter {
	ids := []domain.SourceID{
		domain.SourceKnowledge, domain.SourceEncyclopedia, domain.SourceVideo,
		domain.SourceBooks, domain.SourcePodcast, domain.SourceMentions,
	}
	adapters := make([]source.Adapter, len(ids))
	for i, id := range ids {
		adapters[i] = &fakeAdapter{id: id, frag: domain.EmptyFragment{ID: id}}
	}
	return adapters
}

func withFragment(adapters []source.Adapter, frag domain.Fragment) []source.Adapter {
	for i, a := range adapters {
		if a.ID() == frag.Source() {
			adapters[i] = &fakeAdapter{id: a.ID(), frag: frag}
		}
	}
	return adapters
}

func TestAggregateVideoOnly(t *testing.T) {
	agg := NewAggregator(withFragment(emptyAdapters(), videoOnly()), time.Second, zap.NewNop())

	candidate, err := agg.Aggregate(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if candidate.DataQuality.Score != 55 || candidate.DataQuality.Level != domain.QualityMedium {
		t.Errorf("quality = %+v, want 55/medium", candidate.DataQuality)
	}
	if !reflect.DeepEqual(candidate.DataSources, []domain.SourceID{domain.SourceVideo}) {
		t.Errorf("dataSources = %v", candidate.DataSources)
	}
	if candidate.Has(domain.FieldBio) {
		t.Error("video adapter must not supply a bio")
	}
}

func TestAggregateVideoAndBooks(t *testing.T) {
	adapters := withFragment(withFragment(emptyAdapters(), videoOnly()), booksFragment())
	candidate, err := NewAggregator(adapters, time.Second, zap.NewNop()).
		Aggregate(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if candidate.DataQuality.Score != 65 {
		t.Errorf("score = %d, want 65", candidate.DataQuality.Score)
	}
	want := []domain.SourceID{domain.SourceVideo, domain.SourceBooks}
	if !reflect.DeepEqual(candidate.DataSources, want) {
		t.Errorf("dataSources = %v, want %v", candidate.DataSources, want)
	}
}

func TestAggregateAllEmpty(t *testing.T) {
	candidate, err := NewAggregator(emptyAdapters(), time.Second, zap.NewNop()).
		Aggregate(t.Context(), "Unknown Person123", domain.KnownIdentifiers{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if candidate.DataQuality.Score != 0 || candidate.DataQuality.Level != domain.QualityLow {
		t.Errorf("quality = %+v, want 0/low", candidate.DataQuality)
	}
	if len(candidate.DataSources) != 0 {
		t.Errorf("dataSources = %v, want none", candidate.DataSources)
	}
}

func TestAggregateRejectsBlankName(t *testing.T) {
	if _, err := NewAggregator(emptyAdapters(), time.Second, nil).Aggregate(t.Context(), "   ", domain.KnownIdentifiers{}); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestAggregateAbsorbsAdapterFailures(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{id: domain.SourceKnowledge, panics: true},
		&fakeAdapter{id: domain.SourceEncyclopedia, block: true},
		&fakeAdapter{id: domain.SourceBooks, frag: nil},
		&fakeAdapter{id: domain.SourcePodcast, frag: videoOnly()},
		&fakeAdapter{id: domain.SourceVideo, frag: videoOnly()},
	}

	start := time.Now()
	candidate, err := NewAggregator(adapters, 50*time.Millisecond, zap.NewNop()).
		Aggregate(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("slow adapter was not cut off: %v", elapsed)
	}

	// The podcast adapter returned a fragment tagged for another source and
	// must be ignored.
	if !reflect.DeepEqual(candidate.DataSources, []domain.SourceID{domain.SourceVideo}) {
		t.Errorf("dataSources = %v", candidate.DataSources)
	}
}

func TestAggregateMergeOrderIsDeterministic(t *testing.T) {
	knowledge := &domain.KnowledgeFragment{ID: "kg:/m/1", Name: "Omar Suleiman", ImageURL: "https://kg.example/a.jpg"}
	encyclopedia := &domain.EncyclopediaFragment{Title: "Omar Suleiman (imam)", Name: "Omar Suleiman", ImageURL: "https://wiki.example/b.jpg"}

	slowKnowledge := []source.Adapter{
		&fakeAdapter{id: domain.SourceKnowledge, frag: knowledge, delay: 40 * time.Millisecond},
		&fakeAdapter{id: domain.SourceEncyclopedia, frag: encyclopedia},
		&fakeAdapter{id: domain.SourceVideo, frag: videoOnly(), delay: 20 * time.Millisecond},
	}
	reversed := []source.Adapter{
		&fakeAdapter{id: domain.SourceVideo, frag: videoOnly()},
		&fakeAdapter{id: domain.SourceEncyclopedia, frag: encyclopedia, delay: 40 * time.Millisecond},
		&fakeAdapter{id: domain.SourceKnowledge, frag: knowledge},
	}

	a, err := NewAggregator(slowKnowledge, time.Second, zap.NewNop()).Aggregate(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewAggregator(reversed, time.Second, zap.NewNop()).Aggregate(t.Context(), "Omar Suleiman", domain.KnownIdentifiers{})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a.Fields, b.Fields) || !reflect.DeepEqual(a.DataSources, b.DataSources) {
		t.Fatalf("merge depends on adapter order:\n%+v\n%+v", a.Fields, b.Fields)
	}
	if got := a.String(domain.FieldImageURL); got != "https://kg.example/a.jpg" {
		t.Errorf("imageUrl = %q, want knowledge graph value", got)
	}
	if got := len(a.Observations[domain.FieldImageURL]); got != 3 {
		t.Errorf("imageUrl observations = %d, want 3", got)
	}
	want := []domain.SourceID{domain.SourceKnowledge, domain.SourceEncyclopedia, domain.SourceVideo}
	if !reflect.DeepEqual(a.DataSources, want) {
		t.Errorf("dataSources = %v, want %v", a.DataSources, want)
	}
}

func TestAggregateHonorsCallerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	adapters := []source.Adapter{&fakeAdapter{id: domain.SourceVideo, block: true}}
	if _, err := NewAggregator(adapters, time.Second, zap.NewNop()).Aggregate(ctx, "Omar Suleiman", domain.KnownIdentifiers{}); err == nil {
		t.Fatal("expected the caller deadline to surface")
	}
}
