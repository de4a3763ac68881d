// Package probe issues HEAD requests to see how a source URL currently responds.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/redirect-cleaner/internal/redirects"
)

// DefaultTimeout bounds a single HEAD request.
const DefaultTimeout = 6 * time.Second

// HTTPDoer is the interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HeadProber checks URLs with a single HEAD request and never follows
// redirects. Failures are reported in the result, not retried.
type HeadProber struct {
	client    HTTPDoer
	userAgent string
}

// NewHeadProber creates a prober with its own client. A zero timeout uses DefaultTimeout.
func NewHeadProber(timeout time.Duration, userAgent string) *HeadProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return NewHeadProberWithClient(client, userAgent)
}

// NewHeadProberWithClient uses client as is. The caller is responsible for
// disabling redirect following on it.
func NewHeadProberWithClient(client HTTPDoer, userAgent string) *HeadProber {
	return &HeadProber{client: client, userAgent: userAgent}
}

// Probe implements redirects.Prober.
func (p *HeadProber) Probe(ctx context.Context, url string) redirects.ProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return redirects.ProbeResult{Err: fmt.Errorf("build request: %w", err)}
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return redirects.ProbeResult{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return redirects.ProbeResult{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
	}
}
