// Package util holds HTTP helpers shared by the fetcher.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/logger"
)

const maxRobotsBytes = 512 << 10

// RobotsChecker checks robots.txt compliance, caching one policy per site
type RobotsChecker struct {
	cache      map[string]*robotstxt.RobotsData
	mu         sync.RWMutex
	httpClient *http.Client
	userAgent  string
	agent      string
	logger     *zap.Logger
}

// NewRobotsChecker creates a new robots.txt checker
func NewRobotsChecker(userAgent string, timeout time.Duration, log *zap.Logger) *RobotsChecker {
	return &RobotsChecker{
		cache: make(map[string]*robotstxt.RobotsData),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		agent:     NormalizeUserAgent(userAgent),
		logger:    logger.OrNop(log),
	}
}

// WithTransport routes robots.txt requests through rt (proxy, TLS settings)
func (r *RobotsChecker) WithTransport(rt http.RoundTripper) *RobotsChecker {
	r.httpClient.Transport = rt
	return r
}

// CanFetch reports whether rawURL may be fetched and the crawl delay
// requested for our agent. An unreachable robots.txt allows everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return true, 0, nil
	}

	site := parsed.Scheme + "://" + parsed.Host
	data, err := r.robotsData(ctx, site)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing", zap.String("site", site), zap.Error(err))
		return true, 0, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	var delay time.Duration
	if group := data.FindGroup(r.agent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(path, r.agent), delay, nil
}

// robotsData fetches and caches robots.txt for a site
func (r *RobotsChecker) robotsData(ctx context.Context, site string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, exists := r.cache[site]
	r.mu.RUnlock()
	if exists {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx allows all, 5xx disallows all
	data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.cache[site] = data
	r.mu.Unlock()

	return data, nil
}

// NormalizeUserAgent reduces a user agent string to its product token,
// which is what robots.txt groups are matched against
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) > 0 {
		return strings.Split(parts[0], "/")[0]
	}
	return ua
}
