package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
	"github.com/kapu/creator-directory-go/pkg/errors"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore keeps creators as JSONB documents. Every upsert runs in one
// transaction holding a per-slug advisory lock and a row lock on the creator.
type PostgresStore struct {
	db     *sql.DB
	clock  util.Clock
	logger *zap.Logger
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{
		db:     db,
		clock:  util.SystemClock,
		logger: logger,
	}
}

func (s *PostgresStore) GetCreator(ctx context.Context, slug string) (*domain.Creator, error) {
	query := `
		SELECT c.data
		FROM creator_slugs s
		JOIN creators c ON c.id = s.creator_id
		WHERE s.slug = $1
	`
	return s.queryCreator(ctx, s.db, query, slug)
}

func (s *PostgresStore) GetCreatorByID(ctx context.Context, id string) (*domain.Creator, error) {
	return s.queryCreator(ctx, s.db, `SELECT data FROM creators WHERE id = $1`, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) queryCreator(ctx context.Context, q queryer, query string, arg string) (*domain.Creator, error) {
	var data []byte
	err := q.QueryRowContext(ctx, query, arg).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError("failed to load creator", "get", arg, err)
	}

	var creator domain.Creator
	if err := json.Unmarshal(data, &creator); err != nil {
		return nil, errors.NewStoreError("failed to decode creator", "get", arg, err)
	}
	return &creator, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, c *domain.CandidateProfile, flags []domain.ProfileFlag, trigger domain.Trigger) (*domain.SaveResult, error) {
	slug := SlugFor(c.Name)
	if slug == "" {
		return nil, errors.NewStoreError("cannot derive slug", "save", "", nil)
	}

	return s.inSlugTx(ctx, slug, func(existing *domain.Creator, prev *domain.RefreshSchedule) (*write, error) {
		return prepareSave(existing, prev, c, flags, trigger, slug, s.clock())
	})
}

func (s *PostgresStore) ImportCreator(ctx context.Context, seed *domain.Creator) (*domain.SaveResult, error) {
	slug := SlugFor(seed.Profile.Name)
	if slug == "" {
		return nil, errors.NewStoreError("seed creator has no name", "import", "", nil)
	}

	return s.inSlugTx(ctx, slug, func(existing *domain.Creator, prev *domain.RefreshSchedule) (*write, error) {
		now := s.clock()
		next := ApplyManual(existing, seed, now)
		if existing == nil {
			next.ID, next.Slug = slug, slug
		}
		return prepareWrite(existing, next, prev, next.DataQuality, next.DataSources, nil, domain.TriggerSeed, now)
	})
}

type buildFunc func(existing *domain.Creator, prev *domain.RefreshSchedule) (*write, error)

// inSlugTx loads the current state for slug under lock, lets build compute
// the next write and commits creator, slug, version and schedule together.
func (s *PostgresStore) inSlugTx(ctx context.Context, slug string, build buildFunc) (*domain.SaveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStoreError("failed to begin transaction", "save", slug, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slug); err != nil {
		return nil, errors.NewStoreError("failed to lock slug", "save", slug, err)
	}

	existing, err := s.queryCreator(ctx, tx, `
		SELECT c.data
		FROM creator_slugs s
		JOIN creators c ON c.id = s.creator_id
		WHERE s.slug = $1
		FOR UPDATE OF c
	`, slug)
	if err != nil {
		return nil, err
	}

	var prev *domain.RefreshSchedule
	if existing != nil {
		if prev, err = s.loadSchedule(ctx, tx, existing.ID); err != nil {
			return nil, err
		}
	}

	w, err := build(existing, prev)
	if err != nil {
		return nil, err
	}
	if err := s.writeAll(ctx, tx, slug, w); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewStoreError("failed to commit", "save", w.creator.ID, err)
	}

	s.logger.Debug("Profile saved",
		zap.String("slug", slug),
		zap.Int("version", w.creator.Version),
		zap.Int("changes", len(w.version.Changes)))
	return w.result(), nil
}

func (s *PostgresStore) writeAll(ctx context.Context, tx *sql.Tx, slug string, w *write) error {
	id := w.creator.ID
	doc, err := json.Marshal(w.creator)
	if err != nil {
		return errors.NewStoreError("failed to encode creator", "save", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO creators (id, slug, name, data, version, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			data = EXCLUDED.data,
			version = EXCLUDED.version,
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at
	`, id, w.creator.Slug, w.creator.Profile.Name, doc, w.creator.Version,
		w.creator.DataQuality.Score, w.creator.CreatedAt, w.creator.UpdatedAt)
	if err != nil {
		return errors.NewStoreError("failed to upsert creator", "save", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO creator_slugs (slug, creator_id) VALUES ($1, $2)
		ON CONFLICT (slug) DO NOTHING
	`, slug, id)
	if err != nil {
		return errors.NewStoreError("failed to record slug", "save", id, err)
	}

	if err := s.insertVersion(ctx, tx, w.version); err != nil {
		return err
	}

	sched := w.schedule
	_, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_schedules (creator_id, last_refreshed, next_refresh, refresh_count, priority, refreshable)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (creator_id) DO UPDATE SET
			last_refreshed = EXCLUDED.last_refreshed,
			next_refresh = EXCLUDED.next_refresh,
			refresh_count = EXCLUDED.refresh_count,
			priority = EXCLUDED.priority,
			refreshable = EXCLUDED.refreshable
	`, id, sched.LastRefreshed, sched.NextRefresh, sched.RefreshCount, string(sched.Priority), sched.Refreshable)
	if err != nil {
		return errors.NewStoreError("failed to upsert schedule", "save", id, err)
	}
	return nil
}

func (s *PostgresStore) insertVersion(ctx context.Context, tx *sql.Tx, v domain.ProfileVersion) error {
	data, err := json.Marshal(v.Data)
	if err != nil {
		return errors.NewStoreError("failed to encode snapshot", "version", v.CreatorID, err)
	}
	changes, err := json.Marshal(v.Changes)
	if err != nil {
		return errors.NewStoreError("failed to encode changes", "version", v.CreatorID, err)
	}
	confidence, err := json.Marshal(v.Confidence)
	if err != nil {
		return errors.NewStoreError("failed to encode confidence", "version", v.CreatorID, err)
	}
	flags, err := json.Marshal(v.Flags)
	if err != nil {
		return errors.NewStoreError("failed to encode flags", "version", v.CreatorID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profile_versions
			(version_id, creator_id, version, trigger, data, changes, confidence,
			 data_sources, flags, unresolved_flags, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, v.VersionID, v.CreatorID, v.Version, string(v.Trigger), data, changes, confidence,
		pq.Array(sourceStrings(v.DataSources)), flags, domain.CountUnresolved(v.Flags), v.CreatedAt, v.CreatedBy)
	if err != nil {
		return errors.NewStoreError("failed to insert version", "version", v.CreatorID, err)
	}
	return nil
}

func (s *PostgresStore) loadSchedule(ctx context.Context, q queryer, creatorID string) (*domain.RefreshSchedule, error) {
	sched := domain.RefreshSchedule{CreatorID: creatorID}
	var priority string
	err := q.QueryRowContext(ctx, `
		SELECT last_refreshed, next_refresh, refresh_count, priority, refreshable
		FROM refresh_schedules
		WHERE creator_id = $1
	`, creatorID).Scan(&sched.LastRefreshed, &sched.NextRefresh, &sched.RefreshCount, &priority, &sched.Refreshable)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError("failed to load schedule", "schedule", creatorID, err)
	}
	sched.Priority = domain.RefreshPriority(priority)
	return &sched, nil
}

func (s *PostgresStore) GetSchedule(ctx context.Context, creatorID string) (*domain.RefreshSchedule, error) {
	return s.loadSchedule(ctx, s.db, creatorID)
}

// SetRefreshPriority stores the priority and pulls next_refresh forward when
// the new interval, counted from the last refresh, ends sooner.
func (s *PostgresStore) SetRefreshPriority(ctx context.Context, creatorID string, priority domain.RefreshPriority) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_schedules r
		SET priority = $2,
		    next_refresh = LEAST(r.next_refresh, r.last_refreshed + CASE
		        WHEN $2 = $3 THEN $4::float8 * INTERVAL '1 second'
		        WHEN c.data->'dataQuality'->>'level' = $5 THEN $6::float8 * INTERVAL '1 second'
		        ELSE $7::float8 * INTERVAL '1 second'
		    END)
		FROM creators c
		WHERE r.creator_id = $1 AND c.id = r.creator_id
	`, creatorID, string(priority), string(domain.PriorityHigh),
		constants.Refresh.PriorityInterval.Seconds(),
		string(domain.QualityHigh), constants.Refresh.HighConfidenceInterval.Seconds(),
		constants.Refresh.DefaultInterval.Seconds())
	if err != nil {
		return errors.NewStoreError("failed to update priority", "priority", creatorID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewStoreError("no refresh schedule", "priority", creatorID, nil)
	}
	return nil
}

// DeferRefresh pushes next_refresh to now+delay after a refresh that did not
// save. last_refreshed and refresh_count are left alone.
func (s *PostgresStore) DeferRefresh(ctx context.Context, creatorID string, delay time.Duration) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_schedules
		SET next_refresh = GREATEST(next_refresh, $2)
		WHERE creator_id = $1
	`, creatorID, s.clock().Add(delay))
	if err != nil {
		return errors.NewStoreError("failed to defer refresh", "defer", creatorID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewStoreError("no refresh schedule", "defer", creatorID, nil)
	}
	return nil
}

func (s *PostgresStore) GetVersions(ctx context.Context, creatorID string) ([]domain.ProfileVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version_id, version, trigger, data, changes, confidence, data_sources, flags, created_at, created_by
		FROM profile_versions
		WHERE creator_id = $1
		ORDER BY version
	`, creatorID)
	if err != nil {
		return nil, errors.NewStoreError("failed to query versions", "versions", creatorID, err)
	}
	defer rows.Close()

	versions := make([]domain.ProfileVersion, 0)
	for rows.Next() {
		v := domain.ProfileVersion{CreatorID: creatorID}
		var (
			trigger                         string
			data, changes, confidence, flgs []byte
			sources                         []string
		)
		if err := rows.Scan(&v.VersionID, &v.Version, &trigger, &data, &changes, &confidence,
			pq.Array(&sources), &flgs, &v.CreatedAt, &v.CreatedBy); err != nil {
			return nil, errors.NewStoreError("failed to scan version", "versions", creatorID, err)
		}
		v.Trigger = domain.Trigger(trigger)
		for _, part := range []struct {
			raw  []byte
			dest any
		}{{data, &v.Data}, {changes, &v.Changes}, {confidence, &v.Confidence}, {flgs, &v.Flags}} {
			if err := json.Unmarshal(part.raw, part.dest); err != nil {
				return nil, errors.NewStoreError("failed to decode version", "versions", creatorID, err)
			}
		}
		v.DataSources = make([]domain.SourceID, len(sources))
		for i, src := range sources {
			v.DataSources[i] = domain.SourceID(src)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate versions", "versions", creatorID, err)
	}
	return versions, nil
}

// GetProfilesDueForRefresh returns every due creator when limit <= 0, like
// MemoryStore.
func (s *PostgresStore) GetProfilesDueForRefresh(ctx context.Context, limit int) ([]string, error) {
	query, args := dueQuery(s.clock(), limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreError("failed to query due profiles", "due", "", err)
	}
	defer rows.Close()

	ids := make([]string, 0, max(limit, 0))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewStoreError("failed to scan due profile", "due", "", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate due profiles", "due", "", err)
	}
	return ids, nil
}

func (s *PostgresStore) GetProfilesWithFlags(ctx context.Context) ([]domain.FlaggedProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (v.creator_id) v.creator_id, c.name, v.unresolved_flags
		FROM profile_versions v
		JOIN creators c ON c.id = v.creator_id
		ORDER BY v.creator_id, v.version DESC
	`)
	if err != nil {
		return nil, errors.NewStoreError("failed to query flagged profiles", "flagged", "", err)
	}
	defer rows.Close()

	flagged := make([]domain.FlaggedProfile, 0)
	for rows.Next() {
		var fp domain.FlaggedProfile
		if err := rows.Scan(&fp.CreatorID, &fp.Name, &fp.FlagCount); err != nil {
			return nil, errors.NewStoreError("failed to scan flagged profile", "flagged", "", err)
		}
		if fp.FlagCount > 0 {
			flagged = append(flagged, fp)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate flagged profiles", "flagged", "", err)
	}
	sortFlagged(flagged)
	return flagged, nil
}

func (s *PostgresStore) ListCreators(ctx context.Context, limit int) ([]domain.CreatorSummary, error) {
	query := `SELECT data FROM creators ORDER BY updated_at DESC, slug`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStoreError("failed to list creators", "list", "", err)
	}
	defer rows.Close()

	summaries := make([]domain.CreatorSummary, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.NewStoreError("failed to scan creator", "list", "", err)
		}
		var c domain.Creator
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, errors.NewStoreError("failed to decode creator", "list", "", err)
		}
		summaries = append(summaries, c.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to iterate creators", "list", "", err)
	}
	return summaries, nil
}

func sourceStrings(ids []domain.SourceID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func dueQuery(now time.Time, limit int) (string, []any) {
	query := `
		SELECT creator_id
		FROM refresh_schedules
		WHERE refreshable AND next_refresh <= $1
		ORDER BY next_refresh, creator_id`
	args := []any{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return query, args
}
