// Package jurisdiction infers the state a scheme page belongs to from its URL.
package jurisdiction

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/yojana/internal/extract"
	"github.com/ppiankov/yojana/internal/model"
)

// stateCodes maps the short host labels used by state portals
var stateCodes = map[string]string{
	"ap": "Andhra Pradesh",
	"ar": "Arunachal Pradesh",
	"as": "Assam",
	"br": "Bihar",
	"cg": "Chhattisgarh",
	"gj": "Gujarat",
	"hp": "Himachal Pradesh",
	"hr": "Haryana",
	"jh": "Jharkhand",
	"jk": "Jammu and Kashmir",
	"ka": "Karnataka",
	"mp": "Madhya Pradesh",
	"mh": "Maharashtra",
	"od": "Odisha",
	"pb": "Punjab",
	"rj": "Rajasthan",
	"tn": "Tamil Nadu",
	"ts": "Telangana",
	"up": "Uttar Pradesh",
	"uk": "Uttarakhand",
	"wb": "West Bengal",
}

// governmentSuffixes are the domains under which state labels are trusted
var governmentSuffixes = []string{".gov.in", ".nic.in"}

var statePathPattern = regexp.MustCompile(`(?i)/(?:state|states)/([a-z][a-z-]+)`)

// Detector maps source URLs to Indian states
type Detector struct {
	domains  map[string]string
	compacts map[string]string
}

// NewDetector creates a new detector. Configured domains take precedence
// over the built-in host label rules.
func NewDetector(config *model.JurisdictionConfig) *Detector {
	d := &Detector{
		domains:  make(map[string]string),
		compacts: make(map[string]string),
	}

	if config != nil {
		for domain, state := range config.Domains {
			if canonical, ok := extract.CanonicalState(state); ok {
				state = canonical
			}
			d.domains[strings.ToLower(strings.TrimPrefix(domain, "www."))] = state
		}
	}

	for _, s := range extract.States {
		d.compacts[compact(s)] = s
	}

	return d
}

// Detect returns the state for rawURL, or "" when none can be inferred
func (d *Detector) Detect(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	// Explicit mappings from config, exact then parent domains
	if state, ok := d.domains[host]; ok {
		return state
	}
	for domain, state := range d.domains {
		if strings.HasSuffix(host, "."+domain) {
			return state
		}
	}

	if state := d.fromHost(host); state != "" {
		return state
	}

	if m := statePathPattern.FindStringSubmatch(parsed.Path); m != nil {
		return d.lookup(strings.ReplaceAll(m[1], "-", " "))
	}

	return ""
}

// fromHost reads state labels from government hosts like sjd.kerala.gov.in
// or tn.gov.in
func (d *Detector) fromHost(host string) string {
	trimmed := ""
	for _, suffix := range governmentSuffixes {
		if strings.HasSuffix(host, suffix) {
			trimmed = strings.TrimSuffix(host, suffix)
			break
		}
	}
	if trimmed == "" {
		return ""
	}

	labels := strings.Split(trimmed, ".")
	// Closest label to the suffix is the most specific jurisdiction
	for i := len(labels) - 1; i >= 0; i-- {
		if state, ok := stateCodes[labels[i]]; ok {
			return state
		}
		if state := d.lookup(labels[i]); state != "" {
			return state
		}
	}
	return ""
}

func (d *Detector) lookup(label string) string {
	if state, ok := extract.CanonicalState(label); ok {
		return state
	}
	if state, ok := d.compacts[compact(label)]; ok {
		return state
	}
	return ""
}

func compact(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "-", "").Replace(s))
}
