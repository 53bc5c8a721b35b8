package model

import (
	"regexp"
	"strings"
)

// Format is the markup of a RawDocument's content
type Format string

const (
	FormatAuto     Format = ""
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// RawDocument is scraped page content awaiting extraction.
// It is consumed once and never persisted.
type RawDocument struct {
	SchemeID         string `json:"scheme_id"`
	SourceURL        string `json:"source_url,omitempty"`
	Title            string `json:"title,omitempty"`
	Content          string `json:"-"`
	Format           Format `json:"format,omitempty"`
	JurisdictionHint string `json:"jurisdiction_hint,omitempty"` // State name the source belongs to, if known
}

var htmlTagPattern = regexp.MustCompile(`(?i)<(html|body|div|p|h[1-6]|ul|ol|li|section|article|span|table)[\s>]`)

// DetectFormat guesses the markup of content when Format is unset
func (d RawDocument) DetectFormat() Format {
	if d.Format != FormatAuto {
		return d.Format
	}
	if htmlTagPattern.MatchString(d.Content) {
		return FormatHTML
	}
	return FormatMarkdown
}

var nonSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns free text into a lowercase, dash separated identifier
func Slug(s string) string {
	s = nonSlugPattern.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
