package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kapu/creator-directory-go/internal/aggregate"
	"github.com/kapu/creator-directory-go/internal/domain"
	"go.uber.org/zap"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore() (*MemoryStore, *testClock) {
	clock := &testClock{now: epoch}
	return NewMemoryStore(zap.NewNop()).WithClock(clock.Now), clock
}

func videoFragment() *domain.VideoFragment {
	return &domain.VideoFragment{Channel: &domain.VideoChannel{
		ChannelID:       "UC123",
		Title:           "Omar Suleiman",
		URL:             "https://www.youtube.com/channel/UC123",
		Thumbnail:       "https://yt.example/omar.jpg",
		SubscriberCount: 1200000,
		Tags:            []string{"lectures"},
	}}
}

func booksFragment() *domain.BooksFragment {
	return &domain.BooksFragment{Books: []domain.Book{{
		Title:         "Allah Loves",
		Authors:       []string{"Omar Suleiman"},
		PurchaseLinks: []domain.PurchaseLink{},
	}}}
}

func candidate(name string, frags ...domain.Fragment) *domain.CandidateProfile {
	return aggregate.Merge(name, frags)
}

func changedFields(changes []domain.FieldChange) map[string]domain.ChangeType {
	out := make(map[string]domain.ChangeType, len(changes))
	for _, c := range changes {
		out[c.Field] = c.Type
	}
	return out
}

func TestSlugFor(t *testing.T) {
	tests := map[string]string{
		"Omar Suleiman":             "omar-suleiman",
		"  Sheikh Omar   Suleiman ": "omar-suleiman",
		"Dr. Yāsir Qāḍī":            "yasir-qadi",
		"Nouman Ali Khan (speaker)": "nouman-ali-khan",
		"Abdul-Nasir Jangda":        "abdul-nasir-jangda",
	}
	for input, want := range tests {
		if got := SlugFor(input); got != want {
			t.Errorf("SlugFor(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSaveProfileCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	first, err := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if !first.IsNew || first.Version != 1 || first.Slug != "omar-suleiman" {
		t.Fatalf("unexpected first result %+v", first)
	}

	clock.Advance(time.Hour)
	second, err := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment(), booksFragment()), nil, domain.TriggerManual)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.IsNew || second.Version != 2 || second.CreatorID != first.CreatorID {
		t.Fatalf("unexpected second result %+v", second)
	}

	versions, _ := s.GetVersions(ctx, first.CreatorID)
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	changes := changedFields(versions[1].Changes)
	if changes["content.books"] != domain.ChangeAdded {
		t.Fatalf("expected content.books added, got %v", changes)
	}
	if changes["dataQuality.score"] != domain.ChangeModified {
		t.Fatalf("expected dataQuality.score modified, got %v", changes)
	}
	if _, ok := changes["version"]; ok {
		t.Fatal("version must not appear in the diff")
	}
	if versions[1].Data.Content.Video == nil || versions[1].Data.Content.Video.ChannelID != "UC123" {
		t.Fatal("video content should be kept")
	}
	if versions[1].Data.Version != 2 || versions[1].CreatedBy != "admin" {
		t.Fatalf("unexpected version record %+v", versions[1])
	}
}

func TestSaveProfileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	c := candidate("Omar Suleiman", videoFragment(), booksFragment())
	first, err := s.SaveProfile(ctx, c, nil, domain.TriggerInitial)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	clock.Advance(24 * time.Hour)
	second, err := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment(), booksFragment()), nil, domain.TriggerAutoRefresh)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.Changes != 0 {
		versions, _ := s.GetVersions(ctx, first.CreatorID)
		t.Fatalf("expected no changes, got %+v", versions[1].Changes)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("each save appends a version: got %d", second.Version)
	}
}

func TestSaveProfileSlugConsistency(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	a, _ := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	b, _ := s.SaveProfile(ctx, candidate("Sheikh Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	if a.CreatorID != b.CreatorID {
		t.Fatalf("names with the same slug must hit one creator: %s vs %s", a.CreatorID, b.CreatorID)
	}

	got, err := s.GetCreator(ctx, "omar-suleiman")
	if err != nil || got == nil {
		t.Fatalf("GetCreator: %v %v", got, err)
	}
	byID, _ := s.GetCreatorByID(ctx, a.CreatorID)
	if byID == nil || byID.Slug != got.Slug {
		t.Fatal("lookup by id and slug must agree")
	}

	missing, err := s.GetCreator(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown slug, got %v %v", missing, err)
	}
}

func TestSaveProfileKeepsManualBio(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	curated := "Omar Suleiman is an American Islamic scholar and civil rights activist who founded the Yaqeen Institute."
	seed := &domain.Creator{Profile: domain.CreatorProfile{Name: "Omar Suleiman", Bio: curated}}
	if _, err := s.ImportCreator(ctx, seed); err != nil {
		t.Fatalf("import: %v", err)
	}

	kg := &domain.KnowledgeFragment{ID: "/m/0abc", Name: "Omar Suleiman", Detailed: "A different pipeline bio that is long enough to otherwise replace the curated one."}
	res, err := s.SaveProfile(ctx, candidate("Omar Suleiman", kg, videoFragment()), nil, domain.TriggerManual)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, _ := s.GetCreatorByID(ctx, res.CreatorID)
	if got.Profile.Bio != curated {
		t.Fatalf("manual bio overwritten: %q", got.Profile.Bio)
	}
	if got.Profile.Provenance[domain.FieldBio] != domain.SourceManual {
		t.Fatalf("bio provenance should stay manual, got %q", got.Profile.Provenance[domain.FieldBio])
	}
	if got.Identifiers.KnowledgeID != "/m/0abc" {
		t.Fatalf("identifiers should be recorded, got %+v", got.Identifiers)
	}
}

func TestSaveProfileReplacesTrivialManualBio(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	seed := &domain.Creator{Profile: domain.CreatorProfile{Name: "Omar Suleiman", Bio: "Speaker."}}
	if _, err := s.ImportCreator(ctx, seed); err != nil {
		t.Fatalf("import: %v", err)
	}

	bio := "Omar Suleiman is an American Islamic scholar, civil rights activist and writer."
	kg := &domain.KnowledgeFragment{ID: "/m/0abc", Detailed: bio}
	res, _ := s.SaveProfile(ctx, candidate("Omar Suleiman", kg), nil, domain.TriggerManual)
	got, _ := s.GetCreatorByID(ctx, res.CreatorID)
	if got.Profile.Bio != bio {
		t.Fatalf("trivial manual bio should be replaced, got %q", got.Profile.Bio)
	}
	if got.Profile.Provenance[domain.FieldBio] != domain.SourceKnowledge {
		t.Fatalf("provenance should move to the source, got %q", got.Profile.Provenance[domain.FieldBio])
	}
}

func TestSaveProfileHookFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()
	s.WithSaveHook(func(string) error { return errors.New("disk full") })

	if _, err := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial); err == nil {
		t.Fatal("expected save error")
	}
	if got, _ := s.GetCreator(ctx, "omar-suleiman"); got != nil {
		t.Fatal("failed save must not create a creator")
	}
	if versions, _ := s.GetVersions(ctx, "omar-suleiman"); len(versions) != 0 {
		t.Fatal("failed save must not append a version")
	}
}

func TestGetProfilesDueForRefresh(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	clock.Advance(time.Hour)
	s.SaveProfile(ctx, candidate("Yasir Qadhi", videoFragment()), nil, domain.TriggerInitial)
	clock.Advance(time.Hour)
	hist := &domain.EncyclopediaFragment{Title: "Al-Ghazali", Name: "Al-Ghazali", LongBio: "Persian scholar.", DeathYear: 1111}
	s.SaveProfile(ctx, candidate("Al-Ghazali", hist, videoFragment()), nil, domain.TriggerInitial)

	if due, _ := s.GetProfilesDueForRefresh(ctx, 10); len(due) != 0 {
		t.Fatalf("nothing should be due yet, got %v", due)
	}

	clock.Advance(60 * 24 * time.Hour)
	due, err := s.GetProfilesDueForRefresh(ctx, 10)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	want := []string{"omar-suleiman", "yasir-qadhi"}
	if strings.Join(due, ",") != strings.Join(want, ",") {
		t.Fatalf("due = %v, want %v (oldest first, historical excluded)", due, want)
	}

	limited, _ := s.GetProfilesDueForRefresh(ctx, 1)
	if len(limited) != 1 || limited[0] != "omar-suleiman" {
		t.Fatalf("limit not applied: %v", limited)
	}
}

func TestGetProfilesWithFlagsUsesLatestVersion(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	flags := []domain.ProfileFlag{
		{ID: "1", Type: domain.FlagMissingData, Severity: domain.SeverityMedium, Field: domain.FieldBio},
		{ID: "2", Type: domain.FlagMissingData, Severity: domain.SeverityLow, Field: domain.FieldImageURL},
	}
	s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), flags, domain.TriggerInitial)
	s.SaveProfile(ctx, candidate("Yasir Qadhi", videoFragment()), flags[:1], domain.TriggerInitial)

	flagged, err := s.GetProfilesWithFlags(ctx)
	if err != nil {
		t.Fatalf("flagged: %v", err)
	}
	if len(flagged) != 2 || flagged[0].CreatorID != "omar-suleiman" || flagged[0].FlagCount != 2 {
		t.Fatalf("unexpected flagged %+v", flagged)
	}

	s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerManual)
	flagged, _ = s.GetProfilesWithFlags(ctx)
	if len(flagged) != 1 || flagged[0].CreatorID != "yasir-qadhi" {
		t.Fatalf("only the latest version counts: %+v", flagged)
	}
}

func TestRefreshScheduleFollowsPriorityAndQuality(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	res, _ := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	sched, _ := s.GetSchedule(ctx, res.CreatorID)
	if sched == nil || !sched.NextRefresh.Equal(epoch.Add(14*24*time.Hour)) || sched.RefreshCount != 1 {
		t.Fatalf("unexpected schedule %+v", sched)
	}

	if err := s.SetRefreshPriority(ctx, res.CreatorID, domain.PriorityHigh); err != nil {
		t.Fatalf("priority: %v", err)
	}
	clock.Advance(time.Hour)
	s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerAutoRefresh)
	sched, _ = s.GetSchedule(ctx, res.CreatorID)
	if !sched.NextRefresh.Equal(clock.now.Add(7*24*time.Hour)) || sched.RefreshCount != 2 || sched.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected schedule after priority change %+v", sched)
	}

	if got := RefreshInterval(domain.PriorityNormal, domain.DataQuality{Score: 80, Level: domain.QualityHigh}); got != 30*24*time.Hour {
		t.Fatalf("high confidence interval = %s", got)
	}
}

func TestListCreatorsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	clock.Advance(time.Minute)
	s.SaveProfile(ctx, candidate("Yasir Qadhi", videoFragment()), nil, domain.TriggerInitial)

	list, err := s.ListCreators(ctx, 0)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}
	if list[0].Slug != "yasir-qadhi" {
		t.Fatalf("expected newest first, got %v", list)
	}
	if one, _ := s.ListCreators(ctx, 1); len(one) != 1 {
		t.Fatalf("limit not applied: %v", one)
	}
}

func TestDiffNewCreatorIsAllAdded(t *testing.T) {
	next := BuildCreator(nil, candidate("Omar Suleiman", videoFragment()), "omar-suleiman", epoch)
	changes, err := Diff(nil, next)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(changes) == 0 {
		t.Fatal("expected changes for a new creator")
	}
	for _, c := range changes {
		if c.Type != domain.ChangeAdded {
			t.Fatalf("expected only additions, got %+v", c)
		}
		if c.Field == "createdAt" || c.Field == "updatedAt" {
			t.Fatalf("bookkeeping field leaked: %s", c.Field)
		}
	}
}

func TestBuildCreatorMarksHistorical(t *testing.T) {
	hist := &domain.EncyclopediaFragment{Title: "Al-Ghazali", Name: "Al-Ghazali", DeathYear: 1111}
	c := BuildCreator(nil, candidate("Al-Ghazali", hist), "al-ghazali", epoch)
	if !c.Historical {
		t.Fatal("expected historical creator")
	}
	if c.Ownership.Status != domain.OwnershipUnclaimed || c.Version != 1 {
		t.Fatalf("unexpected new creator %+v", c)
	}
}

func TestSaveProfileKeepsTrivialManualBioOverShorterValue(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	manual := "Scholar and author from Texas."
	seed := &domain.Creator{Profile: domain.CreatorProfile{Name: "Omar Suleiman", Bio: manual}}
	if _, err := s.ImportCreator(ctx, seed); err != nil {
		t.Fatalf("import: %v", err)
	}

	kg := &domain.KnowledgeFragment{ID: "/m/0abc", Detailed: "Scholar."}
	res, _ := s.SaveProfile(ctx, candidate("Omar Suleiman", kg), nil, domain.TriggerManual)
	got, _ := s.GetCreatorByID(ctx, res.CreatorID)
	if got.Profile.Bio != manual || got.Profile.Provenance[domain.FieldBio] != domain.SourceManual {
		t.Fatalf("shorter automated bio replaced a manual one: %q (%s)", got.Profile.Bio, got.Profile.Provenance[domain.FieldBio])
	}
}

func TestSetRefreshPriorityPullsNextRefreshForward(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	res, _ := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	if err := s.SetRefreshPriority(ctx, res.CreatorID, domain.PriorityHigh); err != nil {
		t.Fatalf("priority: %v", err)
	}
	sched, _ := s.GetSchedule(ctx, res.CreatorID)
	if !sched.NextRefresh.Equal(epoch.Add(7 * 24 * time.Hour)) {
		t.Fatalf("high priority should shorten the interval, next = %s", sched.NextRefresh)
	}

	clock.Advance(8 * 24 * time.Hour)
	due, _ := s.GetProfilesDueForRefresh(ctx, 10)
	if len(due) != 1 || due[0] != res.CreatorID {
		t.Fatalf("expected %s due after priority raise, got %v", res.CreatorID, due)
	}

	if err := s.SetRefreshPriority(ctx, res.CreatorID, domain.PriorityLow); err != nil {
		t.Fatalf("priority: %v", err)
	}
	sched, _ = s.GetSchedule(ctx, res.CreatorID)
	if !sched.NextRefresh.Equal(epoch.Add(7*24*time.Hour)) || sched.Priority != domain.PriorityLow {
		t.Fatalf("lowering priority must not push the refresh later: %+v", sched)
	}
	if sched.RefreshCount != 1 || !sched.LastRefreshed.Equal(epoch) {
		t.Fatalf("priority change must not count as a refresh: %+v", sched)
	}
}

func TestDeferRefreshKeepsRefreshCounters(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	res, _ := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	clock.Advance(15 * 24 * time.Hour)
	if due, _ := s.GetProfilesDueForRefresh(ctx, 1); len(due) != 1 {
		t.Fatalf("expected creator due, got %v", due)
	}

	if err := s.DeferRefresh(ctx, res.CreatorID, 3*24*time.Hour); err != nil {
		t.Fatalf("defer: %v", err)
	}
	sched, _ := s.GetSchedule(ctx, res.CreatorID)
	if !sched.NextRefresh.Equal(clock.now.Add(3*24*time.Hour)) || sched.RefreshCount != 1 || !sched.LastRefreshed.Equal(epoch) {
		t.Fatalf("unexpected deferred schedule %+v", sched)
	}
	if due, _ := s.GetProfilesDueForRefresh(ctx, 1); len(due) != 0 {
		t.Fatalf("deferred creator should not be due, got %v", due)
	}
	if versions, _ := s.GetVersions(ctx, res.CreatorID); len(versions) != 1 {
		t.Fatalf("deferral must not add versions, got %d", len(versions))
	}
	if err := s.DeferRefresh(ctx, "unknown", time.Hour); err == nil {
		t.Fatal("expected error for unknown creator")
	}
}

func TestGetProfilesDueForRefreshNonPositiveLimit(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), nil, domain.TriggerInitial)
	s.SaveProfile(ctx, candidate("Yasir Qadhi", videoFragment()), nil, domain.TriggerInitial)
	clock.Advance(60 * 24 * time.Hour)

	for _, limit := range []int{0, -1} {
		if due, err := s.GetProfilesDueForRefresh(ctx, limit); err != nil || len(due) != 2 {
			t.Fatalf("limit %d: got %v, %v", limit, due, err)
		}

		query, args := dueQuery(clock.now, limit)
		if strings.Contains(query, "LIMIT") || len(args) != 1 {
			t.Fatalf("limit %d should select every due row: %q %v", limit, query, args)
		}
	}

	query, args := dueQuery(clock.now, 5)
	if !strings.Contains(query, "LIMIT $2") || len(args) != 2 || args[1] != 5 {
		t.Fatalf("positive limit not applied: %q %v", query, args)
	}
}

func TestSaveProfileRejectsFlagOutsideSnapshot(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore()

	flags := []domain.ProfileFlag{{ID: "1", Type: domain.FlagMissingData, Severity: domain.SeverityLow, Field: "profile.nickname"}}
	if _, err := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), flags, domain.TriggerInitial); err == nil {
		t.Fatal("expected error for flag on an unknown field")
	}
	if got, _ := s.GetCreator(ctx, "omar-suleiman"); got != nil {
		t.Fatal("rejected save must not create a creator")
	}

	flags[0].Field = domain.FieldBio
	if _, err := s.SaveProfile(ctx, candidate("Omar Suleiman", videoFragment()), flags, domain.TriggerInitial); err != nil {
		t.Fatalf("flag on a snapshot field should save: %v", err)
	}
}

func TestNewPostgresStoreDefaultsLogger(t *testing.T) {
	if s := NewPostgresStore(nil, nil); s.logger == nil {
		t.Fatal("expected a no-op logger")
	}
}
