package store

import (
	"time"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
)

// SlugFor derives the lookup slug for a requested name.
func SlugFor(name string) string {
	return util.Slugify(util.CleanName(name))
}

// BuildCreator applies a candidate onto the existing document (nil when the
// creator is new) and returns the next document. Curated profile fields are
// protected, content is replaced whenever the run found some, ownership is
// kept verbatim and data quality always comes from the candidate.
func BuildCreator(existing *domain.Creator, c *domain.CandidateProfile, slug string, now time.Time) *domain.Creator {
	var next domain.Creator
	if existing != nil {
		next = cloneCreator(existing)
		next.Version = existing.Version + 1
	} else {
		next = domain.Creator{
			ID:        slug,
			Slug:      slug,
			Ownership: domain.Ownership{Status: domain.OwnershipUnclaimed},
			Version:   1,
			CreatedAt: now,
		}
	}
	if next.Profile.Provenance == nil {
		next.Profile.Provenance = make(map[string]domain.SourceID)
	}
	next.UpdatedAt = now

	applyProfile(&next.Profile, c)
	applyContent(&next.Content, c)
	applyFacts(&next.Facts, c)
	applyIdentifiers(&next.Identifiers, c)

	if next.Profile.Name == "" {
		next.Profile.Name = c.Name
	}

	next.DataQuality = c.DataQuality
	next.DataSources = append([]domain.SourceID{}, c.DataSources...)
	next.Historical = next.Facts.DeathYear > 0 && next.Facts.DeathYear < int64(constants.Merge.HistoricalCutoff)
	return &next
}

func applyProfile(p *domain.CreatorProfile, c *domain.CandidateProfile) {
	p.Name = mergeProfileField(p.Provenance, domain.FieldName, p.Name, c, 0)
	p.Avatar = mergeProfileField(p.Provenance, domain.FieldImageURL, p.Avatar, c, 0)
	p.Bio = mergeProfileField(p.Provenance, domain.FieldBio, p.Bio, c, constants.Merge.TrivialBioRunes)
	p.ShortBio = mergeProfileField(p.Provenance, domain.FieldShortBio, p.ShortBio, c, 0)
}

// mergeProfileField decides one curated field. A manual value survives unless
// it is trivial (shorter than trivialRunes) and the incoming value is longer;
// a pipeline value is refreshed by a source of equal or higher priority.
func mergeProfileField(prov map[string]domain.SourceID, field, current string, c *domain.CandidateProfile, trivialRunes int) string {
	incoming, ok := c.Fields[field]
	value, isString := incoming.Value.(string)
	if !ok || !isString || value == "" {
		return current
	}

	if current != "" {
		owner, known := prov[field]
		switch {
		case owner == domain.SourceManual:
			currentRunes := len([]rune(current))
			if currentRunes >= max(trivialRunes, 1) || len([]rune(value)) <= currentRunes {
				return current
			}
		case known && domain.PriorityRank(incoming.Source) > domain.PriorityRank(owner):
			return current
		}
	}

	prov[field] = incoming.Source
	return value
}

func applyContent(content *domain.CreatorContent, c *domain.CandidateProfile) {
	if ch, ok := c.Fields[domain.FieldVideoChannel].Value.(*domain.VideoChannel); ok && ch != nil {
		content.Video = ch
	}
	if books, ok := c.Fields[domain.FieldBooks].Value.([]domain.Book); ok && len(books) > 0 {
		content.Books = books
	}
	if podcasts, ok := c.Fields[domain.FieldPodcasts].Value.([]domain.Podcast); ok && len(podcasts) > 0 {
		content.Podcasts = podcasts
	}
	if mentions, ok := c.Fields[domain.FieldMentions].Value.([]domain.Video); ok && len(mentions) > 0 {
		content.Mentions = mentions
	}
}

func applyFacts(f *domain.CreatorFacts, c *domain.CandidateProfile) {
	setString(&f.Description, c.String(domain.FieldDescription))
	setString(&f.WebsiteURL, c.String(domain.FieldWebsiteURL))
	setString(&f.WikipediaURL, c.String(domain.FieldWikipediaURL))
	setString(&f.BirthPlace, c.String(domain.FieldBirthPlace))
	if n := c.Int(domain.FieldBirthYear); n > 0 {
		f.BirthYear = n
	}
	if n := c.Int(domain.FieldDeathYear); n > 0 {
		f.DeathYear = n
	}
	if tags, ok := c.Fields[domain.FieldTags].Value.([]string); ok && len(tags) > 0 {
		f.Tags = tags
	}
}

func applyIdentifiers(ids *domain.KnownIdentifiers, c *domain.CandidateProfile) {
	setString(&ids.ChannelID, c.String(domain.FieldChannelID))
	setString(&ids.KnowledgeID, c.String(domain.FieldKnowledgeID))
	setString(&ids.WikipediaTitle, c.String(domain.FieldWikipediaTitle))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ApplyManual writes administrator-curated profile fields over a document
// and marks them manual.
func ApplyManual(existing *domain.Creator, seed *domain.Creator, now time.Time) *domain.Creator {
	var next domain.Creator
	if existing != nil {
		next = cloneCreator(existing)
		next.Version = existing.Version + 1
	} else {
		next = cloneCreator(seed)
		next.Profile = domain.CreatorProfile{}
		next.Version = 1
		next.CreatedAt = now
		if next.Ownership.Status == "" {
			next.Ownership.Status = domain.OwnershipUnclaimed
		}
	}
	if next.Profile.Provenance == nil {
		next.Profile.Provenance = make(map[string]domain.SourceID)
	}
	next.UpdatedAt = now

	manual := func(field string, dst *string, v string) {
		if v != "" {
			*dst = v
			next.Profile.Provenance[field] = domain.SourceManual
		}
	}
	manual(domain.FieldName, &next.Profile.Name, seed.Profile.Name)
	manual(domain.FieldImageURL, &next.Profile.Avatar, seed.Profile.Avatar)
	manual(domain.FieldBio, &next.Profile.Bio, seed.Profile.Bio)
	manual(domain.FieldShortBio, &next.Profile.ShortBio, seed.Profile.ShortBio)

	setString(&next.Facts.WebsiteURL, seed.Facts.WebsiteURL)
	setString(&next.Identifiers.ChannelID, seed.Identifiers.ChannelID)
	setString(&next.Identifiers.KnowledgeID, seed.Identifiers.KnowledgeID)
	setString(&next.Identifiers.WikipediaTitle, seed.Identifiers.WikipediaTitle)
	return &next
}

// cloneCreator copies the maps and slices a merge may modify.
func cloneCreator(c *domain.Creator) domain.Creator {
	out := *c
	out.Profile.Provenance = make(map[string]domain.SourceID, len(c.Profile.Provenance))
	for k, v := range c.Profile.Provenance {
		out.Profile.Provenance[k] = v
	}
	out.DataSources = append([]domain.SourceID{}, c.DataSources...)
	out.Facts.Tags = append([]string(nil), c.Facts.Tags...)
	return out
}
