package domain

// Logical field names shared by fragments, the candidate profile, flags and diffs.
const (
	FieldName            = "name"
	FieldBio             = "bio"
	FieldShortBio        = "shortBio"
	FieldDescription     = "description"
	FieldImageURL        = "imageUrl"
	FieldChannelID       = "channelId"
	FieldChannelURL      = "channelUrl"
	FieldSubscriberCount = "subscriberCount"
	FieldVideoChannel    = "videoChannel"
	FieldBooks           = "books"
	FieldPodcasts        = "podcasts"
	FieldMentions        = "mentions"
	FieldTags            = "tags"
	FieldKnowledgeID     = "knowledgeId"
	FieldWikipediaTitle  = "wikipediaTitle"
	FieldWikipediaURL    = "wikipediaUrl"
	FieldWebsiteURL      = "websiteUrl"
	FieldBirthYear       = "birthYear"
	FieldDeathYear       = "deathYear"
	FieldBirthPlace      = "birthPlace"

	// Aggregate pseudo-fields used by missing-data and low-confidence flags.
	FieldContent      = "content"
	FieldExternalLink = "externalLink"
	FieldDataQuality  = "dataQuality"
)

// ContentFields are the per-source content categories, in display order.
var ContentFields = []string{FieldVideoChannel, FieldBooks, FieldPodcasts, FieldMentions}

// LinkFields hold externally-sourced profile URLs.
var LinkFields = []string{FieldWebsiteURL, FieldWikipediaURL, FieldChannelURL}

// IdentityFields conflict at high severity: two sources disagree on who the person is.
var IdentityFields = map[string]bool{
	FieldChannelID:    true,
	FieldKnowledgeID:  true,
	FieldWikipediaURL: true,
}

// ComparableFields take part in cross-source conflict detection. Media URLs
// and collections legitimately differ between providers.
var ComparableFields = map[string]bool{
	FieldName:            true,
	FieldBio:             true,
	FieldDescription:     true,
	FieldChannelID:       true,
	FieldSubscriberCount: true,
	FieldKnowledgeID:     true,
	FieldWikipediaURL:    true,
	FieldWebsiteURL:      true,
	FieldBirthYear:       true,
	FieldDeathYear:       true,
	FieldBirthPlace:      true,
}

type QualityLevel string

const (
	QualityLow    QualityLevel = "low"
	QualityMedium QualityLevel = "medium"
	QualityHigh   QualityLevel = "high"
)

type DataQuality struct {
	Score int          `json:"score"`
	Level QualityLevel `json:"level"`
}

// Observation is one value a source reported for a field, kept for conflict detection.
type Observation struct {
	Source SourceID `json:"source"`
	Value  any      `json:"value"`
}

// CandidateProfile is the unsaved result of one aggregation run.
type CandidateProfile struct {
	Name         string                   `json:"name"`
	Fields       map[string]FieldValue    `json:"fields"`
	Observations map[string][]Observation `json:"observations"`
	DataSources  []SourceID               `json:"dataSources"`
	Conflicts    []Conflict               `json:"conflicts"`
	DataQuality  DataQuality              `json:"dataQuality"`
}

func NewCandidateProfile(name string) *CandidateProfile {
	return &CandidateProfile{
		Name:         name,
		Fields:       make(map[string]FieldValue),
		Observations: make(map[string][]Observation),
		DataSources:  []SourceID{},
		Conflicts:    []Conflict{},
	}
}

func (c *CandidateProfile) Has(field string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Fields[field]
	return ok
}

// String returns the winning value of a string field, or "".
func (c *CandidateProfile) String(field string) string {
	if c == nil {
		return ""
	}
	if fv, ok := c.Fields[field]; ok {
		if s, ok := fv.Value.(string); ok {
			return s
		}
	}
	return ""
}

// Int returns the winning value of a numeric field, or 0.
func (c *CandidateProfile) Int(field string) int64 {
	if c == nil {
		return 0
	}
	if fv, ok := c.Fields[field]; ok {
		if n, ok := AsInt64(fv.Value); ok {
			return n
		}
	}
	return 0
}

// ContentCategories lists the content fields populated in this candidate.
func (c *CandidateProfile) ContentCategories() []string {
	categories := make([]string, 0, len(ContentFields))
	for _, f := range ContentFields {
		if c.Has(f) {
			categories = append(categories, f)
		}
	}
	return categories
}

func (c *CandidateProfile) HasExternalLink() bool {
	for _, f := range LinkFields {
		if c.String(f) != "" {
			return true
		}
	}
	return false
}

// AsInt64 converts the numeric kinds adapters and JSON decoding produce.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
