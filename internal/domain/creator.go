package domain

import "time"

type OwnershipStatus string

const (
	OwnershipUnclaimed OwnershipStatus = "unclaimed"
	OwnershipPending   OwnershipStatus = "pending"
	OwnershipClaimed   OwnershipStatus = "claimed"
)

// Creator is the persisted directory entry. Profile is curated and merged
// conservatively; Content is owned by the pipeline.
type Creator struct {
	ID          string           `json:"id"`
	Slug        string           `json:"slug"`
	Profile     CreatorProfile   `json:"profile"`
	Content     CreatorContent   `json:"content"`
	Facts       CreatorFacts     `json:"facts"`
	Identifiers KnownIdentifiers `json:"identifiers"`
	DataQuality DataQuality      `json:"dataQuality"`
	DataSources []SourceID       `json:"dataSources"`
	Ownership   Ownership        `json:"ownership"`
	Historical  bool             `json:"historical"`
	Version     int              `json:"version"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type CreatorProfile struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	ShortBio string `json:"shortBio"`
	// Provenance maps a profile field to the source that wrote it ("manual"
	// for admin edits).
	Provenance map[string]SourceID `json:"provenance"`
}

type CreatorContent struct {
	Video    *VideoChannel `json:"video"`
	Podcasts []Podcast     `json:"podcasts"`
	Books    []Book        `json:"books"`
	Mentions []Video       `json:"mentions"`
}

type CreatorFacts struct {
	Description  string   `json:"description"`
	WebsiteURL   string   `json:"websiteUrl"`
	WikipediaURL string   `json:"wikipediaUrl"`
	BirthYear    int64    `json:"birthYear"`
	DeathYear    int64    `json:"deathYear"`
	BirthPlace   string   `json:"birthPlace"`
	Tags         []string `json:"tags"`
}

type Ownership struct {
	Status    OwnershipStatus `json:"status"`
	ClaimedBy string          `json:"claimedBy,omitempty"`
	ClaimedAt *time.Time      `json:"claimedAt,omitempty"`
}

// SnapshotPaths maps logical fields to their dotted path in a Creator snapshot.
// Every flag field resolves to a path that is always present in the document.
var SnapshotPaths = map[string]string{
	FieldName:            "profile.name",
	FieldBio:             "profile.bio",
	FieldShortBio:        "profile.shortBio",
	FieldImageURL:        "profile.avatar",
	FieldDescription:     "facts.description",
	FieldChannelID:       "identifiers.channelId",
	FieldChannelURL:      "content.video",
	FieldSubscriberCount: "content.video",
	FieldVideoChannel:    "content.video",
	FieldBooks:           "content.books",
	FieldPodcasts:        "content.podcasts",
	FieldMentions:        "content.mentions",
	FieldTags:            "facts.tags",
	FieldKnowledgeID:     "identifiers.knowledgeId",
	FieldWikipediaTitle:  "identifiers.wikipediaTitle",
	FieldWikipediaURL:    "facts.wikipediaUrl",
	FieldWebsiteURL:      "facts.websiteUrl",
	FieldBirthYear:       "facts.birthYear",
	FieldDeathYear:       "facts.deathYear",
	FieldBirthPlace:      "facts.birthPlace",
	FieldContent:         "content",
	FieldExternalLink:    "facts",
	FieldDataQuality:     "dataQuality.score",
}

// CreatorSummary is the listing row for admin views.
type CreatorSummary struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Version     int         `json:"version"`
	DataQuality DataQuality `json:"dataQuality"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (c *Creator) Summary() CreatorSummary {
	return CreatorSummary{
		ID:          c.ID,
		Slug:        c.Slug,
		Name:        c.Profile.Name,
		Version:     c.Version,
		DataQuality: c.DataQuality,
		UpdatedAt:   c.UpdatedAt,
	}
}
