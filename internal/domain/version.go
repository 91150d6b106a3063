package domain

import "time"

// Trigger is the reason a profile version was written.
type Trigger string

const (
	TriggerInitial     Trigger = "initial"
	TriggerAutoRefresh Trigger = "auto_refresh"
	TriggerManual      Trigger = "manual"
	TriggerSeed        Trigger = "seed"
)

// CreatedBy is the actor label stored on a version.
func (t Trigger) CreatedBy() string {
	switch t {
	case TriggerAutoRefresh:
		return "scheduler"
	case TriggerSeed:
		return "seed"
	default:
		return "admin"
	}
}

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

type FieldChange struct {
	Field string     `json:"field"`
	Type  ChangeType `json:"type"`
	Old   any        `json:"old"`
	New   any        `json:"new"`
}

// ProfileVersion is the write-once audit record of one store upsert.
type ProfileVersion struct {
	VersionID   string        `json:"versionId"`
	CreatorID   string        `json:"creatorId"`
	Version     int           `json:"version"`
	Trigger     Trigger       `json:"trigger"`
	Data        *Creator      `json:"data"`
	Changes     []FieldChange `json:"changes"`
	Confidence  DataQuality   `json:"confidence"`
	DataSources []SourceID    `json:"dataSources"`
	Flags       []ProfileFlag `json:"flags"`
	CreatedAt   time.Time     `json:"createdAt"`
	CreatedBy   string        `json:"createdBy"`
}

type RefreshPriority string

const (
	PriorityLow    RefreshPriority = "low"
	PriorityNormal RefreshPriority = "normal"
	PriorityHigh   RefreshPriority = "high"
)

type RefreshSchedule struct {
	CreatorID     string          `json:"creatorId"`
	LastRefreshed time.Time       `json:"lastRefreshed"`
	NextRefresh   time.Time       `json:"nextRefresh"`
	RefreshCount  int             `json:"refreshCount"`
	Priority      RefreshPriority `json:"priority"`
	Refreshable   bool            `json:"refreshable"`
}

type SaveResult struct {
	CreatorID string `json:"creatorId"`
	Slug      string `json:"slug"`
	Version   int    `json:"version"`
	IsNew     bool   `json:"isNew"`
	Changes   int    `json:"changes"`
}

type FlaggedProfile struct {
	CreatorID string `json:"creatorId"`
	Name      string `json:"name"`
	FlagCount int    `json:"flagCount"`
}
