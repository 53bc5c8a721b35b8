package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1) // 100 rps, burst 1
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.gov.in/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different domain should also work
	if err := limiter.Wait(ctx, "http://kerala.gov.in"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	if err := limiter.Wait(ctx, "/relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "http://slow.gov.in/a"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected cancelled wait to fail")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	// 1 rps, burst 1
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "http://example.gov.in"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of 1 is consumed
	if limiter.Allow(url) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	// Port and case do not create a separate bucket
	if limiter.Allow("http://EXAMPLE.gov.in:8080/x") {
		t.Errorf("expected same bucket for host with port")
	}

	if !limiter.Allow("http://other.gov.in") {
		t.Errorf("expected allow for other domain")
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	limiter := NewLimiter(10, 10) // fast default

	limiter.SetDomainRate("Slow.gov.in", 0.1, 1)

	if !limiter.Allow("http://slow.gov.in") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("http://slow.gov.in") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("http://fast.gov.in") {
		t.Errorf("other domain should pass")
	}
}

func TestLimiter_PortalSharedBySubdomains(t *testing.T) {
	limiter := NewLimiter(10, 10)

	// Seen before the override; must not keep its default bucket
	if !limiter.Allow("https://raitamitra.karnataka.gov.in/a") {
		t.Fatal("first request should pass")
	}

	limiter.SetDomainRate(".karnataka.gov.in", 0.1, 1)

	if !limiter.Allow("https://sevasindhu.karnataka.gov.in/x") {
		t.Errorf("first request to the portal should pass")
	}
	if limiter.Allow("https://raitamitra.karnataka.gov.in/b") {
		t.Errorf("subdomains should share the portal bucket")
	}
	if limiter.Allow("https://karnataka.gov.in/") {
		t.Errorf("portal apex should share the bucket")
	}
	if !limiter.Allow("https://notkarnataka.gov.in/") {
		t.Errorf("unrelated host with the same suffix text should use its own bucket")
	}
}

func TestExtractDomain(t *testing.T) {
	domain, err := extractDomain("http://Example.gov.in:8443/foo")
	if err != nil {
		t.Fatalf("extractDomain failed: %v", err)
	}
	if domain != "example.gov.in" {
		t.Errorf("expected example.gov.in, got %s", domain)
	}

	_, err = extractDomain("::invalid")
	if err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
