package domain

import "time"

type FlagType string

const (
	FlagMissingData   FlagType = "missing_data"
	FlagInvalidLink   FlagType = "invalid_link"
	FlagLowConfidence FlagType = "low_confidence"
	FlagDataConflict  FlagType = "data_conflict"
	FlagStaleData     FlagType = "stale_data"
)

type FlagSeverity string

const (
	SeverityHigh   FlagSeverity = "high"
	SeverityMedium FlagSeverity = "medium"
	SeverityLow    FlagSeverity = "low"
)

// ProfileFlag is a data-quality note attached to a profile version. The
// pipeline creates and reads flags; resolving them is an admin action.
type ProfileFlag struct {
	ID         string       `json:"id"`
	Type       FlagType     `json:"type"`
	Severity   FlagSeverity `json:"severity"`
	Field      string       `json:"field,omitempty"`
	Message    string       `json:"message"`
	CreatedAt  time.Time    `json:"createdAt"`
	ResolvedAt *time.Time   `json:"resolvedAt,omitempty"`
	ResolvedBy string       `json:"resolvedBy,omitempty"`
}

func (f ProfileFlag) IsResolved() bool {
	return f.ResolvedAt != nil
}

func CountUnresolved(flags []ProfileFlag) int {
	n := 0
	for _, f := range flags {
		if !f.IsResolved() {
			n++
		}
	}
	return n
}
