package domain

// Fragment is the normalized output of one adapter. Each provider has its own
// tagged type; the aggregator only sees Values.
type Fragment interface {
	Source() SourceID
	Values() []FieldValue
}

// FieldValue is one logical field supplied by a source.
type FieldValue struct {
	Field  string   `json:"field"`
	Value  any      `json:"value"`
	Source SourceID `json:"source"`
}

// EmptyFragment is returned by adapters that found nothing or failed.
type EmptyFragment struct {
	ID SourceID
}

func (f EmptyFragment) Source() SourceID     { return f.ID }
func (f EmptyFragment) Values() []FieldValue { return nil }

type VideoFragment struct {
	Channel *VideoChannel
}

func (f *VideoFragment) Source() SourceID { return SourceVideo }

func (f *VideoFragment) Values() []FieldValue {
	if f == nil || f.Channel == nil || f.Channel.ChannelID == "" {
		return nil
	}
	b := newValueBuilder(SourceVideo)
	b.str(FieldChannelID, f.Channel.ChannelID)
	b.str(FieldChannelURL, f.Channel.URL)
	b.str(FieldImageURL, f.Channel.Thumbnail)
	b.num(FieldSubscriberCount, f.Channel.SubscriberCount)
	b.list(FieldTags, f.Channel.Tags, len(f.Channel.Tags))
	b.add(FieldVideoChannel, f.Channel)
	return b.values
}

type BooksFragment struct {
	Books []Book
}

func (f *BooksFragment) Source() SourceID { return SourceBooks }

func (f *BooksFragment) Values() []FieldValue {
	if f == nil {
		return nil
	}
	b := newValueBuilder(SourceBooks)
	b.list(FieldBooks, f.Books, len(f.Books))
	return b.values
}

type KnowledgeFragment struct {
	ID           string
	Name         string
	Description  string
	Detailed     string
	ImageURL     string
	WebsiteURL   string
	WikipediaURL string
}

func (f *KnowledgeFragment) Source() SourceID { return SourceKnowledge }

func (f *KnowledgeFragment) Values() []FieldValue {
	if f == nil || f.ID == "" {
		return nil
	}
	b := newValueBuilder(SourceKnowledge)
	b.str(FieldKnowledgeID, f.ID)
	b.str(FieldName, f.Name)
	b.str(FieldDescription, f.Description)
	b.str(FieldBio, f.Detailed)
	b.str(FieldImageURL, f.ImageURL)
	b.str(FieldWebsiteURL, f.WebsiteURL)
	b.str(FieldWikipediaURL, f.WikipediaURL)
	return b.values
}

type EncyclopediaFragment struct {
	Title      string
	Name       string
	ShortBio   string
	LongBio    string
	ImageURL   string
	PageURL    string
	BirthYear  int64
	DeathYear  int64
	BirthPlace string
}

func (f *EncyclopediaFragment) Source() SourceID { return SourceEncyclopedia }

func (f *EncyclopediaFragment) Values() []FieldValue {
	if f == nil || f.Title == "" {
		return nil
	}
	b := newValueBuilder(SourceEncyclopedia)
	b.str(FieldWikipediaTitle, f.Title)
	b.str(FieldName, f.Name)
	b.str(FieldShortBio, f.ShortBio)
	b.str(FieldBio, f.LongBio)
	b.str(FieldImageURL, f.ImageURL)
	b.str(FieldWikipediaURL, f.PageURL)
	b.num(FieldBirthYear, f.BirthYear)
	b.num(FieldDeathYear, f.DeathYear)
	b.str(FieldBirthPlace, f.BirthPlace)
	return b.values
}

type PodcastFragment struct {
	Podcasts []Podcast
}

func (f *PodcastFragment) Source() SourceID { return SourcePodcast }

func (f *PodcastFragment) Values() []FieldValue {
	if f == nil {
		return nil
	}
	b := newValueBuilder(SourcePodcast)
	b.list(FieldPodcasts, f.Podcasts, len(f.Podcasts))
	return b.values
}

type MentionsFragment struct {
	Videos []Video
}

func (f *MentionsFragment) Source() SourceID { return SourceMentions }

func (f *MentionsFragment) Values() []FieldValue {
	if f == nil {
		return nil
	}
	b := newValueBuilder(SourceMentions)
	b.list(FieldMentions, f.Videos, len(f.Videos))
	return b.values
}

type valueBuilder struct {
	source SourceID
	values []FieldValue
}

func newValueBuilder(source SourceID) *valueBuilder {
	return &valueBuilder{source: source}
}

func (b *valueBuilder) add(field string, value any) {
	b.values = append(b.values, FieldValue{Field: field, Value: value, Source: b.source})
}

func (b *valueBuilder) str(field, value string) {
	if value != "" {
		b.add(field, value)
	}
}

func (b *valueBuilder) num(field string, value int64) {
	if value > 0 {
		b.add(field, value)
	}
}

func (b *valueBuilder) list(field string, value any, n int) {
	if n > 0 {
		b.add(field, value)
	}
}
