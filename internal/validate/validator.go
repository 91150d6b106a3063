// Package validate checks a candidate profile and turns every problem it
// finds into a severity-tagged flag.
package validate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/metrics"
	"github.com/kapu/creator-directory-go/internal/util"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	CheckNamePresent   = "name_present"
	CheckContentExists = "content_present"
	CheckReachableLink = "reachable_link"
	CheckSourcesAgree  = "sources_agree"
)

type Validator struct {
	prober        LinkProber
	minConfidence int
	clock         util.Clock
	logger        *zap.Logger
}

// NewValidator builds a validator. A nil prober leaves well-formed links
// unchecked.
func NewValidator(prober LinkProber, minConfidence int, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		prober:        prober,
		minConfidence: minConfidence,
		clock:         util.SystemClock,
		logger:        logger,
	}
}

// WithClock pins the time stamped on flags.
func (v *Validator) WithClock(clock util.Clock) *Validator {
	v.clock = clock
	return v
}

// Validate runs the structural checks, the cross-reference check and link
// probing. It never fails: every finding is reported as a check or a flag.
func (v *Validator) Validate(ctx context.Context, c *domain.CandidateProfile) (domain.ValidationResult, []domain.ProfileFlag) {
	links := v.checkLinks(ctx, c)

	result := domain.ValidationResult{
		CrossReference: domain.CrossReference{
			SourcesAgree: len(c.Conflicts) == 0,
			Conflicts:    c.Conflicts,
		},
		Links: links,
	}

	hasName := util.CollapseSpace(c.Name) != "" || c.String(domain.FieldName) != ""
	hasContent := len(c.ContentCategories()) > 0
	hasReachable := reachableProfileLink(links)

	result.Checks = []domain.ValidationCheck{
		check(CheckNamePresent, hasName, domain.CheckError, "name is present", "name is missing"),
		check(CheckContentExists, hasContent, domain.CheckWarning,
			fmt.Sprintf("%d content categories", len(c.ContentCategories())), "no content category found"),
		check(CheckReachableLink, hasReachable, domain.CheckWarning, "external link available", "no reachable external link"),
		check(CheckSourcesAgree, result.CrossReference.SourcesAgree, domain.CheckWarning,
			"sources agree", fmt.Sprintf("%d conflicting fields", len(c.Conflicts))),
	}

	flags := v.flags(c, links, hasName, hasContent)

	v.logger.Debug("Profile validated",
		zap.String("name", c.Name),
		zap.Int("flags", len(flags)),
		zap.Int("links", links.Total),
		zap.Int("invalidLinks", links.Invalid))

	return result, flags
}

func check(name string, passed bool, severity domain.CheckSeverity, ok, failed string) domain.ValidationCheck {
	msg := ok
	if !passed {
		msg = failed
	}
	return domain.ValidationCheck{Name: name, Passed: passed, Message: msg, Severity: severity}
}

func (v *Validator) flags(c *domain.CandidateProfile, links domain.LinkReport, hasName, hasContent bool) []domain.ProfileFlag {
	var flags []domain.ProfileFlag
	add := func(t domain.FlagType, sev domain.FlagSeverity, field, msg string) {
		flags = append(flags, domain.ProfileFlag{
			ID:        uuid.NewString(),
			Type:      t,
			Severity:  sev,
			Field:     field,
			Message:   msg,
			CreatedAt: v.clock(),
		})
		metrics.RecordFlag(string(t), string(sev))
	}

	for _, conflict := range c.Conflicts {
		sev := domain.SeverityMedium
		if domain.IdentityFields[conflict.Field] {
			sev = domain.SeverityHigh
		}
		sources := make([]string, len(conflict.Sources))
		for i, o := range conflict.Sources {
			sources[i] = string(o.Source)
		}
		add(domain.FlagDataConflict, sev, conflict.Field,
			fmt.Sprintf("sources disagree on %s: %v", conflict.Field, sources))
	}

	for _, link := range links.Links {
		if link.Status == domain.LinkInvalid {
			add(domain.FlagInvalidLink, domain.SeverityLow, link.Field,
				fmt.Sprintf("link %s is invalid (%s)", link.URL, link.Reason))
		}
	}

	if score := c.DataQuality.Score; score < v.minConfidence {
		add(domain.FlagLowConfidence, domain.SeverityHigh, domain.FieldDataQuality,
			fmt.Sprintf("confidence %d is below %d", score, v.minConfidence))
	}

	if !hasName {
		add(domain.FlagMissingData, domain.SeverityMedium, domain.FieldName, "no source supplied a name")
	}
	if c.String(domain.FieldBio) == "" {
		add(domain.FlagMissingData, domain.SeverityMedium, domain.FieldBio, "no source supplied a biography")
	}
	if !hasContent {
		add(domain.FlagMissingData, domain.SeverityMedium, domain.FieldContent, "no content found in any source")
	}
	if !c.HasExternalLink() {
		add(domain.FlagMissingData, domain.SeverityLow, domain.FieldExternalLink, "no external link found")
	}
	if c.String(domain.FieldImageURL) == "" {
		add(domain.FlagMissingData, domain.SeverityLow, domain.FieldImageURL, "no image found")
	}

	if flags == nil {
		flags = []domain.ProfileFlag{}
	}
	return flags
}

// checkLinks classifies the candidate's profile URLs. Malformed URLs are
// invalid without a request; the rest are probed concurrently.
func (v *Validator) checkLinks(ctx context.Context, c *domain.CandidateProfile) domain.LinkReport {
	fields := append(append([]string{}, domain.LinkFields...), domain.FieldImageURL)

	var checks []domain.LinkCheck
	seen := make(map[string]bool)
	for _, field := range fields {
		raw := c.String(field)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		checks = append(checks, domain.LinkCheck{URL: raw, Field: field})
		if len(checks) == constants.LinkProbe.MaxLinks {
			break
		}
	}

	p := pool.New().WithMaxGoroutines(constants.LinkProbe.Concurrency)
	for i := range checks {
		p.Go(func() {
			lc := &checks[i]
			switch {
			case !WellFormed(lc.URL):
				lc.Status, lc.Reason = domain.LinkInvalid, "malformed url"
			case v.prober == nil:
				lc.Status = domain.LinkUnchecked
			default:
				lc.Status, lc.Reason = v.prober.Probe(ctx, lc.URL)
			}
			metrics.RecordLinkProbe(string(lc.Status))
		})
	}
	p.Wait()

	report := domain.LinkReport{Total: len(checks), Links: checks}
	if report.Links == nil {
		report.Links = []domain.LinkCheck{}
	}
	for _, lc := range checks {
		switch lc.Status {
		case domain.LinkValid:
			report.Valid++
		case domain.LinkInvalid:
			report.Invalid++
		default:
			report.Unchecked++
		}
	}
	return report
}

// reachableProfileLink is true when any external profile link was not
// proven invalid.
func reachableProfileLink(report domain.LinkReport) bool {
	for _, lc := range report.Links {
		if lc.Field == domain.FieldImageURL {
			continue
		}
		if lc.Status != domain.LinkInvalid {
			return true
		}
	}
	return false
}
