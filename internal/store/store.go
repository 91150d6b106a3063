// Package store persists creators, their version history and refresh
// schedules. MemoryStore and PostgresStore share the merge, diff and
// scheduling rules defined here.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/pkg/errors"
)

// write is everything one upsert commits together.
type write struct {
	creator  *domain.Creator
	version  domain.ProfileVersion
	schedule domain.RefreshSchedule
	isNew    bool
}

func (w *write) result() *domain.SaveResult {
	return &domain.SaveResult{
		CreatorID: w.creator.ID,
		Slug:      w.creator.Slug,
		Version:   w.creator.Version,
		IsNew:     w.isNew,
		Changes:   len(w.version.Changes),
	}
}

func prepareSave(existing *domain.Creator, prevSchedule *domain.RefreshSchedule, c *domain.CandidateProfile, flags []domain.ProfileFlag, trigger domain.Trigger, slug string, now time.Time) (*write, error) {
	next := BuildCreator(existing, c, slug, now)
	return prepareWrite(existing, next, prevSchedule, c.DataQuality, c.DataSources, flags, trigger, now)
}

func prepareWrite(existing, next *domain.Creator, prevSchedule *domain.RefreshSchedule, quality domain.DataQuality, sources []domain.SourceID, flags []domain.ProfileFlag, trigger domain.Trigger, now time.Time) (*write, error) {
	changes, err := Diff(existing, next)
	if err != nil {
		return nil, errors.NewStoreError("failed to diff snapshots", "diff", next.ID, err)
	}
	if flags == nil {
		flags = []domain.ProfileFlag{}
	}
	for _, f := range flags {
		if _, ok := domain.SnapshotPaths[f.Field]; f.Field != "" && !ok {
			return nil, errors.NewStoreError(
				fmt.Sprintf("flag %s references unknown field %q", f.Type, f.Field), "save", next.ID, nil)
		}
	}
	if sources == nil {
		sources = []domain.SourceID{}
	}

	return &write{
		creator: next,
		version: domain.ProfileVersion{
			VersionID:   uuid.NewString(),
			CreatorID:   next.ID,
			Version:     next.Version,
			Trigger:     trigger,
			Data:        next,
			Changes:     changes,
			Confidence:  quality,
			DataSources: sources,
			Flags:       flags,
			CreatedAt:   now,
			CreatedBy:   trigger.CreatedBy(),
		},
		schedule: NextSchedule(prevSchedule, next, now),
		isNew:    existing == nil,
	}, nil
}
