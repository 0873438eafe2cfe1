// Package website implements the generic website source adapter: an HTTP
// fetch through the configured outbound proxy plus a per-source extraction
// strategy that normalizes listing blocks into candidates.
package website

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/propstream/propstream/internal/common"
	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

// Adapter fetches and extracts listings from generic listing websites.
type Adapter struct {
	client       *http.Client
	userAgent    string
	maxBodySize  int64
	requestDelay time.Duration
	logger       arbor.ILogger

	extractors map[string]Extractor // keyed by lowercase source name
	fallback   Extractor

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter // keyed by host
}

// NewAdapter creates the website adapter. When a proxy URL is configured all
// fetches go through it; proxy credentials are attached to the proxy URL.
func NewAdapter(cfg *common.ScraperConfig, proxy *common.ProxyConfig, logger arbor.ILogger) (*Adapter, error) {
	delay, err := cfg.GetRequestDelay()
	if err != nil {
		return nil, fmt.Errorf("invalid request delay: %w", err)
	}

	transport := &http.Transport{}
	if proxy != nil && proxy.URL != "" {
		proxyURL, err := url.Parse(proxy.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		if proxy.Username != "" {
			proxyURL.User = url.UserPassword(proxy.Username, proxy.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Info().Str("proxy_host", proxyURL.Host).Msg("Website fetches routed through outbound proxy")
	} else {
		logger.Warn().Msg("No outbound proxy configured, website fetches go direct")
	}

	return &Adapter{
		client:       &http.Client{Transport: transport},
		userAgent:    cfg.UserAgent,
		maxBodySize:  cfg.MaxBodySize,
		requestDelay: delay,
		logger:       logger,
		extractors:   make(map[string]Extractor),
		fallback:     NewPatternExtractor(),
		limiters:     make(map[string]*rate.Limiter),
	}, nil
}

// Kind returns the source kind this adapter serves.
func (a *Adapter) Kind() string {
	return models.SourceKindWebsite
}

// RegisterExtractor binds a tuned extraction strategy to a source name.
// Sources without one fall back to the default pattern extractor.
func (a *Adapter) RegisterExtractor(sourceName string, extractor Extractor) {
	if extractor == nil {
		return
	}
	a.extractors[strings.ToLower(sourceName)] = extractor
}

// Fetch retrieves the source page and extracts listing candidates. Transport
// errors and non-2xx statuses fail the whole call; a malformed listing block
// is skipped, counted as found but never added.
func (a *Adapter) Fetch(ctx context.Context, source *models.Source, runID string, rec interfaces.RunRecorder) ([]models.ListingCandidate, error) {
	if err := a.waitForHost(ctx, source.URL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("Configuration: invalid source URL %q: %w", source.URL, err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Transport: request to %s failed: %w", source.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Upstream: HTTP %d %s fetching %s", resp.StatusCode, http.StatusText(resp.StatusCode), source.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("Transport: reading response from %s failed: %w", source.URL, err)
	}

	blocks := a.extractorFor(source.Name).Extract(body)

	if err := rec.RecordProgress(ctx, runID, len(blocks)); err != nil {
		a.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to record progress")
	}

	candidates := make([]models.ListingCandidate, 0, len(blocks))
	skipped := 0
	for _, c := range blocks {
		c.SourceName = source.Name
		if c.SourceURL == "" {
			c.SourceURL = source.URL
		}
		c.NaturalKey = models.TitleNaturalKey(c.Title, source.Name)

		if !c.IsComplete() {
			skipped++
			continue
		}
		candidates = append(candidates, c)
	}

	a.logger.Info().
		Str("source", source.Name).
		Int("found", len(blocks)).
		Int("usable", len(candidates)).
		Int("malformed", skipped).
		Msg("Website fetch finished")

	return candidates, nil
}

func (a *Adapter) extractorFor(sourceName string) Extractor {
	if e, ok := a.extractors[strings.ToLower(sourceName)]; ok {
		return e
	}
	return a.fallback
}

// waitForHost enforces the per-host request delay.
func (a *Adapter) waitForHost(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}

	a.limiterMu.Lock()
	limiter, ok := a.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(a.requestDelay), 1)
		a.limiters[u.Host] = limiter
	}
	a.limiterMu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("Transport: rate limit wait cancelled: %w", err)
	}
	return nil
}
