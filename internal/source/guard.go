package source

import (
	"context"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// guard paces requests to one provider and trips a circuit breaker after
// consecutive failures, so a dead provider costs nothing until it recovers.
type guard struct {
	source  domain.SourceID
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func newGuard(source domain.SourceID, rps float64, logger *zap.Logger) *guard {
	settings := gobreaker.Settings{
		Name:        string(source),
		MaxRequests: constants.SourceConfig.BreakerMaxRequests,
		Interval:    constants.SourceConfig.BreakerInterval,
		Timeout:     constants.SourceConfig.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= constants.SourceConfig.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Source circuit breaker state change",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &guard{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), constants.SourceConfig.Burst),
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// do waits for a rate token and runs fn through the breaker.
func (g *guard) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
