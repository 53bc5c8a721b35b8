package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces requests per host. A rate set for a portal domain such as
// karnataka.gov.in is shared by all of its subdomains, since state
// departments usually sit behind the same servers.
type Limiter struct {
	mu           sync.RWMutex
	hosts        map[string]*rate.Limiter
	portals      map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter applying requestsPerSecond to every host
// without a portal override. A burst of zero or less means 5.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		hosts:        make(map[string]*rate.Limiter),
		portals:      make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until a request to rawURL may proceed or ctx ends
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := extractDomain(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether a request to rawURL may proceed now, consuming
// a token when it may
func (l *Limiter) Allow(rawURL string) bool {
	host, err := extractDomain(rawURL)
	if err != nil {
		return false
	}
	return l.forHost(host).Allow()
}

// SetDomainRate overrides the rate for domain and every subdomain of it
func (l *Limiter) SetDomainRate(domain string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	l.portals[domain] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	// Hosts seen earlier must pick up the override
	for host := range l.hosts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			delete(l.hosts, host)
		}
	}
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.hosts[host]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.hosts[host]; ok {
		return limiter
	}

	limiter = l.portalFor(host)
	if limiter == nil {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	}
	l.hosts[host] = limiter
	return limiter
}

// portalFor returns the override of the closest enclosing portal domain.
// Callers hold l.mu.
func (l *Limiter) portalFor(host string) *rate.Limiter {
	for name := host; name != ""; {
		if limiter, ok := l.portals[name]; ok {
			return limiter
		}
		_, parent, found := strings.Cut(name, ".")
		if !found {
			break
		}
		name = parent
	}
	return nil
}

// extractDomain returns the lowercased host of a URL, without port
func extractDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return host, nil
}
