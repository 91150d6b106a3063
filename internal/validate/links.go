package validate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kapu/creator-directory-go/internal/constants"
	"github.com/kapu/creator-directory-go/internal/domain"
)

// LinkProber classifies a well-formed URL by fetching it.
type LinkProber interface {
	Probe(ctx context.Context, rawURL string) (domain.LinkStatus, string)
}

// HTTPProber issues a HEAD request (GET when HEAD is not allowed) under a
// short per-link timeout. Only an explicit client-error answer makes a link
// invalid; network failures, server errors and access refusals leave it
// unchecked.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = constants.LinkProbe.Timeout
	}
	return &HTTPProber{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (p *HTTPProber) Probe(ctx context.Context, rawURL string) (domain.LinkStatus, string) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	status, err := p.do(ctx, http.MethodHead, rawURL)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, err = p.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		return domain.LinkUnchecked, "unreachable: " + err.Error()
	}
	return ClassifyStatus(status)
}

func (p *HTTPProber) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", constants.SourceConfig.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// ClassifyStatus maps an HTTP status to a link status.
func ClassifyStatus(status int) (domain.LinkStatus, string) {
	switch {
	case status < 400:
		return domain.LinkValid, ""
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return domain.LinkUnchecked, fmt.Sprintf("status %d", status)
	case status < 500:
		return domain.LinkInvalid, fmt.Sprintf("status %d", status)
	default:
		return domain.LinkUnchecked, fmt.Sprintf("status %d", status)
	}
}

// WellFormed reports whether raw is an absolute http(s) URL with a host.
func WellFormed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
