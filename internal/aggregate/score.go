package aggregate

import (
	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
)

// Score computes the confidence of a merged candidate. Populated important
// fields and corroborating sources add points; an empty run and conflicting
// sources subtract them.
func Score(c *domain.CandidateProfile) domain.DataQuality {
	w := constants.Scoring
	score := w.Base

	if util.CollapseSpace(c.Name) != "" || c.String(domain.FieldName) != "" {
		score += w.Name
	}
	if c.String(domain.FieldBio) != "" {
		score += w.Bio
	}
	if categories := len(c.ContentCategories()); categories > 0 {
		score += w.FirstCategory + min(categories-1, w.MaxExtraCategories)*w.ExtraCategory
	}
	if c.HasExternalLink() {
		score += w.ExternalLink
	}
	if c.String(domain.FieldImageURL) != "" {
		score += w.Image
	}

	if sources := len(c.DataSources); sources == 0 {
		score -= w.NoSourcesPenalty
	} else {
		score += min((sources-1)*w.PerCorroboration, w.MaxCorroboration)
	}

	score -= min(len(c.Conflicts)*w.PerConflictPenalty, w.MaxConflictPenalty)

	score = util.Clamp(score, 0, 100)
	return domain.DataQuality{Score: score, Level: LevelFor(score)}
}

// LevelFor maps a score to its band.
func LevelFor(score int) domain.QualityLevel {
	switch {
	case score >= constants.Scoring.HighThreshold:
		return domain.QualityHigh
	case score >= constants.Scoring.MediumThreshold:
		return domain.QualityMedium
	default:
		return domain.QualityLow
	}
}
