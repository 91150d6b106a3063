package domain

import (
	"math"
	"sort"
	"strings"

	"github.com/kapu/creator-directory-go/internal/util"
)

type CheckSeverity string

const (
	CheckError   CheckSeverity = "error"
	CheckWarning CheckSeverity = "warning"
	CheckInfo    CheckSeverity = "info"
)

type ValidationCheck struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Message  string        `json:"message"`
	Severity CheckSeverity `json:"severity"`
}

type Conflict struct {
	Field   string        `json:"field"`
	Sources []Observation `json:"sources"`
}

type CrossReference struct {
	SourcesAgree bool       `json:"sourcesAgree"`
	Conflicts    []Conflict `json:"conflicts"`
}

type LinkStatus string

const (
	LinkValid     LinkStatus = "valid"
	LinkInvalid   LinkStatus = "invalid"
	LinkUnchecked LinkStatus = "unchecked"
)

type LinkCheck struct {
	URL    string     `json:"url"`
	Field  string     `json:"field"`
	Status LinkStatus `json:"status"`
	Reason string     `json:"reason,omitempty"`
}

type LinkReport struct {
	Total     int         `json:"total"`
	Valid     int         `json:"valid"`
	Invalid   int         `json:"invalid"`
	Unchecked int         `json:"unchecked"`
	Links     []LinkCheck `json:"links"`
}

type ValidationResult struct {
	Checks         []ValidationCheck `json:"checks"`
	CrossReference CrossReference    `json:"crossReference"`
	Links          LinkReport        `json:"links"`
}

// FindConflicts reports one conflict per comparable field whose observations
// from distinct sources disagree after normalization. The result is sorted by
// field and each conflict lists sources in priority order, so it does not
// depend on observation order.
func FindConflicts(observations map[string][]Observation, numericTolerance float64) []Conflict {
	conflicts := make([]Conflict, 0)

	for field, obs := range observations {
		if !ComparableFields[field] {
			continue
		}

		distinct := dedupeBySource(obs)
		if len(distinct) < 2 {
			continue
		}

		disagree := false
		for i := 0; i < len(distinct) && !disagree; i++ {
			for j := i + 1; j < len(distinct); j++ {
				if !ValuesAgree(field, distinct[i].Value, distinct[j].Value, numericTolerance) {
					disagree = true
					break
				}
			}
		}

		if disagree {
			conflicts = append(conflicts, Conflict{Field: field, Sources: distinct})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Field < conflicts[j].Field })
	return conflicts
}

func dedupeBySource(obs []Observation) []Observation {
	seen := make(map[SourceID]bool, len(obs))
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if seen[o.Source] {
			continue
		}
		seen[o.Source] = true
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return PriorityRank(out[i].Source) < PriorityRank(out[j].Source)
	})
	return out
}

// proseFields are free text where one provider often truncates another.
var proseFields = map[string]bool{
	FieldBio:         true,
	FieldShortBio:    true,
	FieldDescription: true,
}

// ValuesAgree compares two observed values for field. Numbers agree within a
// relative tolerance. URLs agree ignoring scheme, case and trailing slash.
// Other strings compare case/whitespace/punctuation insensitively, and for
// prose a truncated prefix agrees with its full text.
func ValuesAgree(field string, a, b any, numericTolerance float64) bool {
	if na, ok := AsInt64(a); ok {
		nb, ok := AsInt64(b)
		if !ok {
			return false
		}
		return numbersAgree(na, nb, numericTolerance)
	}

	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA || !okB {
		return true
	}

	if strings.HasSuffix(field, "Url") {
		return normalizeURL(sa) == normalizeURL(sb)
	}

	na := util.NormalizeForCompare(sa)
	nb := util.NormalizeForCompare(sb)
	if na == nb {
		return true
	}
	if !proseFields[field] || na == "" || nb == "" {
		return false
	}
	return strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na)
}

func normalizeURL(raw string) string {
	u := util.Normalize(raw)
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}

func numbersAgree(a, b int64, tolerance float64) bool {
	if a == b {
		return true
	}
	largest := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	return math.Abs(float64(a-b)) <= largest*tolerance
}
