package domain

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
	ActionFailed  Action = "failed"
)

// PipelineResult is the stable result contract returned for every processed name.
type PipelineResult struct {
	Name             string        `json:"name"`
	Success          bool          `json:"success"`
	CreatorID        *string       `json:"creatorId"`
	Slug             *string       `json:"slug"`
	Action           Action        `json:"action"`
	Version          int           `json:"version,omitempty"`
	Confidence       DataQuality   `json:"confidence"`
	Flags            []ProfileFlag `json:"flags"`
	DataSources      []SourceID    `json:"dataSources"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
	Error            string        `json:"error,omitempty"`

	Validation *ValidationResult `json:"validation,omitempty"`
}

type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Flagged    int `json:"flagged"`
	Skipped    int `json:"skipped"`
}

type BatchResult struct {
	Summary BatchSummary      `json:"summary"`
	Results []*PipelineResult `json:"results"`
}

type RefreshResult struct {
	Refreshed int               `json:"refreshed"`
	Results   []*PipelineResult `json:"results"`
}

// Summarize tallies results. Flagged counts successful results carrying at
// least one flag.
func Summarize(results []*PipelineResult) BatchSummary {
	summary := BatchSummary{Total: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionCreated, ActionUpdated:
			summary.Successful++
			if len(r.Flags) > 0 {
				summary.Flagged++
			}
		case ActionSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return summary
}
