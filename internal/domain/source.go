package domain

// SourceID identifies an external data provider.
type SourceID string

const (
	SourceKnowledge    SourceID = "knowledge"
	SourceEncyclopedia SourceID = "encyclopedia"
	SourceVideo        SourceID = "video"
	SourceBooks        SourceID = "books"
	SourcePodcast      SourceID = "podcast"
	SourceMentions     SourceID = "mentions"

	// SourceManual marks profile fields written by an administrator.
	SourceManual SourceID = "manual"
)

// SourcePriority is the merge order: identity authorities first.
var SourcePriority = []SourceID{
	SourceKnowledge,
	SourceEncyclopedia,
	SourceVideo,
	SourceBooks,
	SourcePodcast,
	SourceMentions,
}

// PriorityRank returns the position of id in SourcePriority, or len(SourcePriority)
// for unknown sources. Manual edits outrank everything.
func PriorityRank(id SourceID) int {
	if id == SourceManual {
		return -1
	}
	for i, s := range SourcePriority {
		if s == id {
			return i
		}
	}
	return len(SourcePriority)
}

// KnownIdentifiers lets adapters skip discovery when a previous run already
// resolved the provider-side identity.
type KnownIdentifiers struct {
	ChannelID      string `json:"channelId"`
	KnowledgeID    string `json:"knowledgeId"`
	WikipediaTitle string `json:"wikipediaTitle"`
}

func (k KnownIdentifiers) IsZero() bool {
	return k.ChannelID == "" && k.KnowledgeID == "" && k.WikipediaTitle == ""
}
