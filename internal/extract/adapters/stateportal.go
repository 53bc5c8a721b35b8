package adapters

import (
	"strings"

	"github.com/ppiankov/yojana/internal/extract"
)

// StatePortalAdapter handles government welfare portals, which tend to
// title the eligibility section in longer phrases than the defaults cover.
type StatePortalAdapter struct {
	headingKeywords []string
	domainSuffixes  []string
	pathHints       []string
}

// NewStatePortalAdapter creates a new state portal adapter
func NewStatePortalAdapter() *StatePortalAdapter {
	return &StatePortalAdapter{
		headingKeywords: []string{
			"eligibility", "eligibility criteria", "who can apply", "who is eligible",
			"conditions for eligibility", "eligible", "applicants", "beneficiaries",
			"target group", "criteria",
		},
		domainSuffixes: []string{".gov.in", ".nic.in"},
		pathHints:      []string{"/scheme", "/yojana", "/welfare", "/pension", "/scholarship"},
	}
}

// Name returns the adapter name
func (a *StatePortalAdapter) Name() string {
	return "state-portal"
}

// CanHandle checks for a government domain and a scheme-like path
func (a *StatePortalAdapter) CanHandle(rawURL string) bool {
	host := hostOf(rawURL)
	gov := false
	for _, suffix := range a.domainSuffixes {
		if strings.HasSuffix(host, suffix) {
			gov = true
			break
		}
	}
	if !gov {
		return false
	}

	lowerURL := strings.ToLower(rawURL)
	for _, hint := range a.pathHints {
		if strings.Contains(lowerURL, hint) {
			return true
		}
	}
	return false
}

// Strategies returns a heading strategy with the portal vocabulary
func (a *StatePortalAdapter) Strategies() []extract.Strategy {
	return []extract.Strategy{
		extract.NewHeadingStrategy(a.headingKeywords),
	}
}
