// Package crawler fetches web pages and turns them into document content.
// It knows nothing about storage, the caller decides what to enqueue.
package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; ragstore-crawler/1.0)"

type Config struct {
	Timeout      time.Duration
	RatePerSec   float64
	Burst        int
	MaxBodyBytes int64
	UserAgent    string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 2
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return c
}

// Fetcher is safe for concurrent use. Every request waits on a shared limiter.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

func NewFetcher(cfg Config) *Fetcher {
	cfg = cfg.withDefaults()
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}
}

// Fetch downloads and parses one HTML page. Non-2xx answers, non-HTML
// content and transport failures are reported as ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, pageURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, pageURL, err)
	}
	defer resp.Body.Close()

	slog.Debug("page fetched", slog.String("url", pageURL), slog.Int("status", resp.StatusCode),
		slog.Duration("cost", time.Since(start)), slog.String("component", "crawler"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, pageURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "text/html" && mediaType != "application/xhtml+xml") {
			return nil, fmt.Errorf("%w: %s is not an html page (%s)", ErrFetch, pageURL, ct)
		}
	}

	page, err := Parse(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes), resp.Request.URL.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, pageURL, err)
	}
	return page, nil
}
