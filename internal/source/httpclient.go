package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
	"github.com/kapu/creator-directory-go/pkg/errors"
	"go.uber.org/zap"
)

// apiClient performs paced GET requests against a JSON provider. It never
// retries; a failed call simply yields no data for this run.
type apiClient struct {
	httpClient *http.Client
	baseURL    string
	source     domain.SourceID
	guard      *guard
	logger     *zap.Logger
}

func newAPIClient(source domain.SourceID, baseURL string, opts Options) *apiClient {
	return &apiClient{
		httpClient: opts.HTTPClient,
		baseURL:    baseURL,
		source:     source,
		guard:      newGuard(source, opts.RequestsPerSecond, opts.Logger),
		logger:     opts.Logger,
	}
}

func (c *apiClient) getJSON(ctx context.Context, params url.Values, dest any) error {
	return c.guard.do(ctx, func(ctx context.Context) error {
		reqURL := c.baseURL
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", constants.SourceConfig.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.NewSourceError("request failed", string(c.source), 0, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.NewSourceError("failed to read response", string(c.source), resp.StatusCode, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.Warn("Source rate limited",
				zap.String("source", string(c.source)),
				zap.Int("status", resp.StatusCode))
			return errors.NewRateLimitError(string(c.source), resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")))
		}

		if resp.StatusCode >= 400 {
			return errors.NewSourceError(fmt.Sprintf("unexpected status: %d", resp.StatusCode), string(c.source), resp.StatusCode, nil)
		}

		if err := json.Unmarshal(body, dest); err != nil {
			return errors.NewSourceError("failed to decode response", string(c.source), resp.StatusCode, err)
		}
		return nil
	})
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return time.Until(at)
	}
	return 0
}
