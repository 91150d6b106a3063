// Package source holds one adapter per external provider. Adapters never
// return errors: any failure becomes an empty fragment so one provider's
// outage cannot block the others.
package source

import (
	"context"
	"net/http"
	"strings"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/internal/util"
	"go.uber.org/zap"
)

// Adapter turns a person's name into a normalized fragment for one provider.
type Adapter interface {
	ID() domain.SourceID
	Fetch(ctx context.Context, name string, known domain.KnownIdentifiers) domain.Fragment
}

// Options carries the shared transport settings for adapters.
type Options struct {
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Logger            *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: constants.SourceConfig.AdapterTimeout}
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = constants.SourceConfig.RequestsPerSecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// IsRelevant reports whether the candidate texts mention at least
// min(2, tokenCount) of the cleaned name's tokens (tokens of three or more
// characters). It guards against matches on common given names.
func IsRelevant(name string, texts ...string) bool {
	tokens := util.NameTokens(name)
	if len(tokens) == 0 {
		return false
	}

	required := min(constants.Merge.MinRelevantTokens, len(tokens))

	words := make(map[string]struct{})
	for _, text := range texts {
		folded := util.FoldDiacritics(strings.ToLower(text))
		for _, w := range strings.FieldsFunc(folded, isWordBreak) {
			words[w] = struct{}{}
		}
	}

	matched := 0
	for _, t := range tokens {
		if _, ok := words[t]; ok {
			matched++
		}
	}
	return matched >= required
}

func isWordBreak(r rune) bool {
	return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r < 0x80
}
