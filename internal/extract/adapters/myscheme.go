package adapters

import (
	"strings"

	"github.com/ppiankov/yojana/internal/extract"
)

// MySchemeAdapter handles the national scheme portal, which renders each
// scheme section under a fixed element id (#eligibility, #benefits, ...).
type MySchemeAdapter struct {
	hosts []string
}

// NewMySchemeAdapter creates a new myScheme adapter
func NewMySchemeAdapter() *MySchemeAdapter {
	return &MySchemeAdapter{
		hosts: []string{"myscheme.gov.in"},
	}
}

// Name returns the adapter name
func (a *MySchemeAdapter) Name() string {
	return "myscheme"
}

// CanHandle checks for the portal host or a subdomain of it
func (a *MySchemeAdapter) CanHandle(rawURL string) bool {
	host := hostOf(rawURL)
	for _, h := range a.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Strategies returns the section anchor strategy
func (a *MySchemeAdapter) Strategies() []extract.Strategy {
	return []extract.Strategy{
		extract.NewAnchorStrategy(`(?i)eligib`),
	}
}
