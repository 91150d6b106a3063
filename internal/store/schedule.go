package store

import (
	"time"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
)

// RefreshInterval picks the staleness interval for a creator: high priority
// refreshes weekly, high confidence monthly, everything else fortnightly.
func RefreshInterval(priority domain.RefreshPriority, quality domain.DataQuality) time.Duration {
	switch {
	case priority == domain.PriorityHigh:
		return constants.Refresh.PriorityInterval
	case quality.Level == domain.QualityHigh:
		return constants.Refresh.HighConfidenceInterval
	default:
		return constants.Refresh.DefaultInterval
	}
}

// NextSchedule advances the refresh schedule after a successful write.
func NextSchedule(prev *domain.RefreshSchedule, creator *domain.Creator, now time.Time) domain.RefreshSchedule {
	next := domain.RefreshSchedule{
		CreatorID: creator.ID,
		Priority:  domain.PriorityNormal,
	}
	if prev != nil {
		next.RefreshCount = prev.RefreshCount
		if prev.Priority != "" {
			next.Priority = prev.Priority
		}
	}

	next.LastRefreshed = now
	next.NextRefresh = now.Add(RefreshInterval(next.Priority, creator.DataQuality))
	next.RefreshCount++
	next.Refreshable = !creator.Historical
	return next
}

// DeferSchedule moves a due creator back by delay after a refresh that did not
// save. LastRefreshed and RefreshCount only advance on successful writes.
func DeferSchedule(sched domain.RefreshSchedule, delay time.Duration, now time.Time) domain.RefreshSchedule {
	if next := now.Add(delay); next.After(sched.NextRefresh) {
		sched.NextRefresh = next
	}
	return sched
}

// Reprioritize applies a new priority. The next refresh only ever moves
// earlier, so raising the priority of a stale creator makes it due at once.
func Reprioritize(sched domain.RefreshSchedule, priority domain.RefreshPriority, quality domain.DataQuality) domain.RefreshSchedule {
	sched.Priority = priority
	if sched.LastRefreshed.IsZero() {
		return sched
	}
	if next := sched.LastRefreshed.Add(RefreshInterval(priority, quality)); next.Before(sched.NextRefresh) {
		sched.NextRefresh = next
	}
	return sched
}
