package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/cache"
	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/util"
)

// ErrDisallowed means robots.txt forbids fetching the URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// fetchSleepFunc is replaced in tests to skip backoff delays
var fetchSleepFunc = time.Sleep

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Fetcher fetches scheme pages
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBytes     int64
	maxAttempts  int
	retryBackoff time.Duration

	robots   *util.RobotsChecker
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	lastFetch map[string]time.Time // per host, for crawl delays
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.NewTransport(insecureTLS, httpProxy, httpsProxy, noProxy),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent:    userAgent,
		maxBytes:     maxBytes,
		maxAttempts:  3,
		retryBackoff: time.Second,
		logger:       zap.NewNop(),
		lastFetch:    make(map[string]time.Time),
	}
}

// NewFetcherFromConfig builds a fetcher with retries, robots.txt and the
// page cache configured as in cfg
func NewFetcherFromConfig(cfg model.HTTPConfig, cacheCfg model.CacheConfig, log *zap.Logger) *Fetcher {
	f := NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, cfg.InsecureTLS, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy).
		WithRetry(cfg.MaxRetries, cfg.RetryBackoff).
		WithLogger(log)

	if cfg.RespectRobots {
		robots := util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout, log).
			WithTransport(f.httpClient.Transport)
		f = f.WithRobots(robots)
	}
	if c := cache.FromConfig(cacheCfg); c != nil {
		f = f.WithCache(c, cacheCfg.TTL)
	}
	return f
}

// WithRetry sets the number of attempts and the first backoff delay
func (f *Fetcher) WithRetry(attempts int, backoff time.Duration) *Fetcher {
	if attempts > 0 {
		f.maxAttempts = attempts
	}
	if backoff > 0 {
		f.retryBackoff = backoff
	}
	return f
}

// WithRobots enables robots.txt checks
func (f *Fetcher) WithRobots(r *util.RobotsChecker) *Fetcher {
	f.robots = r
	return f
}

// WithCache enables the page cache
func (f *Fetcher) WithCache(c cache.Cache, ttl time.Duration) *Fetcher {
	f.cache = c
	f.cacheTTL = ttl
	return f
}

// WithLogger sets the logger
func (f *Fetcher) WithLogger(log *zap.Logger) *Fetcher {
	f.logger = logger.OrNop(log)
	return f
}

// FetchResult contains the fetched content and metadata
type FetchResult struct {
	Content     string
	ContentType string
	Format      model.Format
	FinalURL    string
	Fingerprint string // BLAKE3 of the content
	FromCache   bool
}

// Fetch retrieves a page once, without retries or robots.txt checks
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown;q=0.9,text/plain;q=0.8,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	return &FetchResult{
		Content:     string(body),
		ContentType: contentType,
		Format:      formatFromContentType(contentType),
		FinalURL:    resp.Request.URL.String(),
		Fingerprint: cache.Fingerprint(body),
	}, nil
}

// FetchWithRetry checks robots.txt and the page cache, then fetches with
// exponential backoff on transient failures
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.CacheKey(rawURL)
	if f.cache != nil {
		if data, ok := f.cache.Get(key); ok {
			f.logger.Debug("page cache hit", zap.String("url", rawURL))
			return &FetchResult{
				Content:     string(data),
				Format:      model.FormatAuto,
				FinalURL:    rawURL,
				Fingerprint: cache.Fingerprint(data),
				FromCache:   true,
			}, nil
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		if err := f.waitCrawlDelay(ctx, rawURL, delay); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			if f.cache != nil {
				if err := f.cache.Set(key, []byte(result.Content), f.cacheTTL); err != nil {
					f.logger.Warn("page cache write failed", zap.String("url", rawURL), zap.Error(err))
				}
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableFetchError(err) || attempt == f.maxAttempts {
			break
		}

		backoff := f.retryBackoff * time.Duration(1<<(attempt-1))
		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		fetchSleepFunc(backoff)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// waitCrawlDelay spaces requests to one host by the robots.txt crawl delay
func (f *Fetcher) waitCrawlDelay(ctx context.Context, rawURL string, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	f.mu.Lock()
	now := time.Now()
	next := f.lastFetch[parsed.Host].Add(delay)
	wait := next.Sub(now)
	if wait < 0 {
		wait = 0
		next = now
	}
	f.lastFetch[parsed.Host] = next
	f.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableFetchError reports whether a fetch error is transient:
// throttling, server errors and network failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrDisallowed) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func formatFromContentType(contentType string) model.Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return model.FormatAuto
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return model.FormatHTML
	case "text/markdown", "text/x-markdown":
		return model.FormatMarkdown
	case "text/plain":
		return model.FormatText
	}
	return model.FormatAuto
}
