package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
)

// Passage is the located eligibility text
type Passage struct {
	Text     string
	Strategy string               // Name of the strategy that found it
	Path     model.ExtractionPath // anchor, heading or keyword
}

// Strategy locates an eligibility passage in flattened content
type Strategy interface {
	// Name identifies the strategy in logs and results
	Name() string

	// Attempt returns the passage, or false when nothing usable was found
	Attempt(blocks []Block) (Passage, bool)
}

// DefaultHeadingKeywords mark a heading as introducing eligibility text
var DefaultHeadingKeywords = []string{"eligibility", "eligible", "who can apply", "criteria"}

// DefaultPassageKeywords mark a sentence as eligibility-related
var DefaultPassageKeywords = []string{
	"eligible", "eligibility", "income", "annual income", "age", "aged", "years",
	"resident", "domicile", "citizen", "category", "caste", "below poverty line",
	"bpl", "widow", "widows", "women", "household", "beneficiary", "landholding",
	"student", "students", "farmer", "farmers", "applicant", "applicants",
}

// DefaultStrategies returns the built-in heading then keyword strategies
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewHeadingStrategy(DefaultHeadingKeywords),
		NewKeywordStrategy(DefaultPassageKeywords),
	}
}

// HeadingStrategy takes the section under the first heading naming eligibility
type HeadingStrategy struct {
	keywords []string
}

// NewHeadingStrategy creates a heading strategy matching any of keywords
func NewHeadingStrategy(keywords []string) *HeadingStrategy {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &HeadingStrategy{keywords: lowered}
}

// Name returns the strategy name
func (s *HeadingStrategy) Name() string {
	return "heading"
}

// Attempt tries every matching heading in order.
// A heading with an empty section falls through to the next one.
func (s *HeadingStrategy) Attempt(blocks []Block) (Passage, bool) {
	for i, b := range blocks {
		if !b.IsHeading() || !s.matches(b.Text) {
			continue
		}
		if text := section(blocks, i); text != "" {
			return Passage{Text: text, Strategy: s.Name(), Path: model.PathHeading}, true
		}
	}
	return Passage{}, false
}

func (s *HeadingStrategy) matches(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range s.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// section joins the blocks after blocks[i] up to the next heading of equal
// or higher rank. Lower ranked headings are kept as text.
func section(blocks []Block, i int) string {
	level := blocks[i].Level
	var parts []string
	for _, b := range blocks[i+1:] {
		if b.IsHeading() && b.Level <= level {
			break
		}
		parts = append(parts, b.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// KeywordStrategy collects sentences mentioning eligibility terms anywhere
type KeywordStrategy struct {
	pattern *regexp.Regexp
}

// NewKeywordStrategy creates a keyword strategy; keywords match on word boundaries
func NewKeywordStrategy(keywords []string) *KeywordStrategy {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}
	if len(quoted) == 0 {
		return &KeywordStrategy{}
	}
	return &KeywordStrategy{pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

// Name returns the strategy name
func (s *KeywordStrategy) Name() string {
	return "keyword"
}

// Attempt concatenates matching sentences in document order
func (s *KeywordStrategy) Attempt(blocks []Block) (Passage, bool) {
	if s.pattern == nil {
		return Passage{}, false
	}

	seen := make(map[string]bool)
	var sentences []string
	for _, b := range blocks {
		if b.IsHeading() {
			continue
		}
		for _, sentence := range splitSentences(b.Text) {
			key := strings.ToLower(sentence)
			if seen[key] || !s.pattern.MatchString(sentence) {
				continue
			}
			seen[key] = true
			sentences = append(sentences, sentence)
		}
	}

	if len(sentences) == 0 {
		return Passage{}, false
	}
	return Passage{Text: strings.Join(sentences, "\n"), Strategy: s.Name(), Path: model.PathKeyword}, true
}

// AnchorStrategy takes the content of elements whose id names eligibility,
// as on portals that render each section under a fixed anchor.
type AnchorStrategy struct {
	idPattern *regexp.Regexp
}

// NewAnchorStrategy creates an anchor strategy for ids matching pattern
func NewAnchorStrategy(pattern string) *AnchorStrategy {
	return &AnchorStrategy{idPattern: regexp.MustCompile(pattern)}
}

// Name returns the strategy name
func (s *AnchorStrategy) Name() string {
	return "anchor"
}

// Attempt prefers text inside a matching element, then a matching heading's section
func (s *AnchorStrategy) Attempt(blocks []Block) (Passage, bool) {
	var parts []string
	for _, b := range blocks {
		if b.IsHeading() && s.idPattern.MatchString(b.ID) {
			continue
		}
		for _, a := range b.Anchors {
			if s.idPattern.MatchString(a) {
				parts = append(parts, b.Text)
				break
			}
		}
	}
	if text := strings.TrimSpace(strings.Join(parts, "\n")); text != "" {
		return Passage{Text: text, Strategy: s.Name(), Path: model.PathAnchor}, true
	}

	for i, b := range blocks {
		if !b.IsHeading() || !s.idPattern.MatchString(b.ID) {
			continue
		}
		if text := section(blocks, i); text != "" {
			return Passage{Text: text, Strategy: s.Name(), Path: model.PathAnchor}, true
		}
	}
	return Passage{}, false
}

var abbreviations = map[string]bool{
	"rs": true, "no": true, "nos": true, "dr": true, "mr": true, "mrs": true, "ms": true,
	"smt": true, "shri": true, "sh": true, "govt": true, "dept": true, "st": true,
	"i.e": true, "e.g": true, "etc": true, "viz": true, "approx": true,
}

// splitSentences splits text on terminators, keeping abbreviations and decimals intact
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' && r != ';' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] != ' ' && runes[i+1] != '\n' {
			continue
		}
		if r == '.' && isAbbreviation(current.String()) {
			continue
		}

		if sentence := strings.TrimSpace(current.String()); len(sentence) > 2 {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	if sentence := strings.TrimSpace(current.String()); len(sentence) > 2 {
		sentences = append(sentences, sentence)
	}
	return sentences
}

// isAbbreviation reports whether s ends with a known abbreviation and its period
func isAbbreviation(s string) bool {
	s = strings.TrimSuffix(s, ".")
	idx := strings.LastIndexAny(s, " \n(")
	word := strings.ToLower(s[idx+1:])
	return abbreviations[word]
}
