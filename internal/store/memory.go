package store

import (
	"context"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
	"github.com/kapu/creator-directory-go/pkg/errors"
	"go.uber.org/zap"
)

// MemoryStore keeps everything in process. It backs dry runs and tests.
type MemoryStore struct {
	mu        sync.Mutex
	creators  map[string]*domain.Creator
	slugs     map[string]string
	versions  map[string][]domain.ProfileVersion
	schedules map[string]domain.RefreshSchedule
	clock     util.Clock
	saveHook  func(slug string) error
	logger    *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		creators:  make(map[string]*domain.Creator),
		slugs:     make(map[string]string),
		versions:  make(map[string][]domain.ProfileVersion),
		schedules: make(map[string]domain.RefreshSchedule),
		clock:     util.SystemClock,
		logger:    logger,
	}
}

// WithClock pins "now" for timestamps and due checks.
func (s *MemoryStore) WithClock(clock util.Clock) *MemoryStore {
	s.clock = clock
	return s
}

// WithSaveHook runs hook before every save; a non-nil error aborts the save
// without writing anything.
func (s *MemoryStore) WithSaveHook(hook func(slug string) error) *MemoryStore {
	s.saveHook = hook
	return s
}

func (s *MemoryStore) GetCreator(_ context.Context, slug string) (*domain.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.slugs[slug]
	if !ok {
		return nil, nil
	}
	return copyCreator(s.creators[id])
}

func (s *MemoryStore) GetCreatorByID(_ context.Context, id string) (*domain.Creator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.creators[id]
	if !ok {
		return nil, nil
	}
	return copyCreator(c)
}

func (s *MemoryStore) SaveProfile(_ context.Context, c *domain.CandidateProfile, flags []domain.ProfileFlag, trigger domain.Trigger) (*domain.SaveResult, error) {
	slug := SlugFor(c.Name)
	if slug == "" {
		return nil, errors.NewStoreError("cannot derive slug", "save", "", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveHook != nil {
		if err := s.saveHook(slug); err != nil {
			return nil, errors.NewStoreError("save failed", "save", slug, err)
		}
	}

	existing, prevSchedule := s.current(slug)
	w, err := prepareSave(existing, prevSchedule, c, flags, trigger, slug, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.commit(slug, w); err != nil {
		return nil, err
	}

	s.logger.Debug("Profile saved (memory)",
		zap.String("slug", slug),
		zap.Int("version", w.creator.Version),
		zap.Int("changes", len(w.version.Changes)))
	return w.result(), nil
}

func (s *MemoryStore) ImportCreator(_ context.Context, seed *domain.Creator) (*domain.SaveResult, error) {
	slug := SlugFor(seed.Profile.Name)
	if slug == "" {
		return nil, errors.NewStoreError("seed creator has no name", "import", "", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, prevSchedule := s.current(slug)
	now := s.clock()
	next := ApplyManual(existing, seed, now)
	if existing == nil {
		next.ID, next.Slug = slug, slug
	}

	w, err := prepareWrite(existing, next, prevSchedule, next.DataQuality, next.DataSources, nil, domain.TriggerSeed, now)
	if err != nil {
		return nil, err
	}
	if err := s.commit(slug, w); err != nil {
		return nil, err
	}
	return w.result(), nil
}

func (s *MemoryStore) current(slug string) (*domain.Creator, *domain.RefreshSchedule) {
	id, ok := s.slugs[slug]
	if !ok {
		return nil, nil
	}
	existing := s.creators[id]
	if sched, ok := s.schedules[id]; ok {
		return existing, &sched
	}
	return existing, nil
}

// commit stores the creator, slug, version and schedule together.
func (s *MemoryStore) commit(slug string, w *write) error {
	snapshot, err := copyCreator(w.creator)
	if err != nil {
		return errors.NewStoreError("failed to snapshot creator", "save", w.creator.ID, err)
	}
	w.version.Data = snapshot

	s.creators[w.creator.ID] = w.creator
	s.slugs[slug] = w.creator.ID
	s.versions[w.creator.ID] = append(s.versions[w.creator.ID], w.version)
	s.schedules[w.creator.ID] = w.schedule
	return nil
}

func (s *MemoryStore) GetVersions(_ context.Context, creatorID string) ([]domain.ProfileVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.ProfileVersion(nil), s.versions[creatorID]...), nil
}

func (s *MemoryStore) GetSchedule(_ context.Context, creatorID string) (*domain.RefreshSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[creatorID]
	if !ok {
		return nil, nil
	}
	return &sched, nil
}

// SetRefreshPriority changes the refresh interval of a creator. A higher
// priority can pull the next refresh forward.
func (s *MemoryStore) SetRefreshPriority(_ context.Context, creatorID string, priority domain.RefreshPriority) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[creatorID]
	if !ok {
		return errors.NewStoreError("no refresh schedule", "priority", creatorID, nil)
	}
	var quality domain.DataQuality
	if c, ok := s.creators[creatorID]; ok {
		quality = c.DataQuality
	}
	s.schedules[creatorID] = Reprioritize(sched, priority, quality)
	return nil
}

// DeferRefresh pushes a creator's next refresh to now+delay without writing a
// version.
func (s *MemoryStore) DeferRefresh(_ context.Context, creatorID string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.schedules[creatorID]
	if !ok {
		return errors.NewStoreError("no refresh schedule", "defer", creatorID, nil)
	}
	s.schedules[creatorID] = DeferSchedule(sched, delay, s.clock())
	return nil
}

func (s *MemoryStore) GetProfilesDueForRefresh(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	due := make([]domain.RefreshSchedule, 0)
	for _, sched := range s.schedules {
		if sched.Refreshable && !sched.NextRefresh.After(now) {
			due = append(due, sched)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextRefresh.Equal(due[j].NextRefresh) {
			return due[i].NextRefresh.Before(due[j].NextRefresh)
		}
		return due[i].CreatorID < due[j].CreatorID
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]string, len(due))
	for i, sched := range due {
		ids[i] = sched.CreatorID
	}
	return ids, nil
}

func (s *MemoryStore) GetProfilesWithFlags(_ context.Context) ([]domain.FlaggedProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flagged := make([]domain.FlaggedProfile, 0)
	for id, versions := range s.versions {
		if len(versions) == 0 {
			continue
		}
		latest := versions[len(versions)-1]
		if n := domain.CountUnresolved(latest.Flags); n > 0 {
			flagged = append(flagged, domain.FlaggedProfile{
				CreatorID: id,
				Name:      s.creators[id].Profile.Name,
				FlagCount: n,
			})
		}
	}
	sortFlagged(flagged)
	return flagged, nil
}

func (s *MemoryStore) ListCreators(_ context.Context, limit int) ([]domain.CreatorSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]domain.CreatorSummary, 0, len(s.creators))
	for _, c := range s.creators {
		summaries = append(summaries, c.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].Slug < summaries[j].Slug
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func sortFlagged(flagged []domain.FlaggedProfile) {
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].FlagCount != flagged[j].FlagCount {
			return flagged[i].FlagCount > flagged[j].FlagCount
		}
		return flagged[i].CreatorID < flagged[j].CreatorID
	})
}

// copyCreator deep-copies through the document encoding so callers never
// alias stored state.
func copyCreator(c *domain.Creator) (*domain.Creator, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out domain.Creator
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
