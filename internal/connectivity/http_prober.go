package connectivity

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPProber treats any non-5xx answer from URL as reachable.
type HTTPProber struct {
	http *resty.Client
	url  string
}

// NewHTTPProber builds a prober for url with a short timeout.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		http: resty.New().SetTimeout(timeout),
		url:  url,
	}
}

// Ping performs a HEAD request against the probe URL.
func (p *HTTPProber) Ping(ctx context.Context) error {
	resp, err := p.http.R().SetContext(ctx).Head(p.url)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("probe %s: status %d", p.url, resp.StatusCode())
	}
	return nil
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

// Ping calls f.
func (f ProberFunc) Ping(ctx context.Context) error { return f(ctx) }
