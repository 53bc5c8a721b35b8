package model

// SchemaVersion is the current RuleDocument layout version
const SchemaVersion = 1

// Combination is how clauses of a rule are combined
type Combination string

const (
	// CombinationAll requires every clause to hold
	CombinationAll Combination = "all"
)

// Confidence marks how precisely the eligibility passage was located
type Confidence string

const (
	ConfidenceHigh      Confidence = "high"      // Heading or page anchor
	ConfidenceHeuristic Confidence = "heuristic" // Keyword fallback or ambiguous phrasing
)

// ExtractionPath names the strategy that produced a passage
type ExtractionPath string

const (
	PathAnchor  ExtractionPath = "anchor"
	PathHeading ExtractionPath = "heading"
	PathKeyword ExtractionPath = "keyword"
)

// Confidence returns the confidence implied by the extraction path
func (p ExtractionPath) Confidence() Confidence {
	if p == PathKeyword {
		return ConfidenceHeuristic
	}
	return ConfidenceHigh
}

// RuleDocument is the normalized, persisted rule for one scheme.
// It is immutable once produced and re-created wholesale on every run.
type RuleDocument struct {
	SchemaVersion int         `json:"schemaVersion" jsonschema:"enum=1"`
	SchemeID      string      `json:"schemeId" jsonschema:"minLength=1"`
	Title         string      `json:"title,omitempty"`
	SourceURL     string      `json:"sourceUrl,omitempty"`
	ContentHash   string      `json:"contentHash,omitempty"` // BLAKE3 of the fetched page
	Passage       string      `json:"passage,omitempty"` // Eligibility passage for review
	Criteria      []Criterion `json:"criteria" jsonschema:"minItems=1"`
	Combination   Combination `json:"combination" jsonschema:"enum=all"`
	Confidence    Confidence  `json:"confidence" jsonschema:"enum=high,enum=heuristic"`
}

// Criterion returns the clause of the given kind, if present
func (d *RuleDocument) Criterion(kind Kind) (Criterion, bool) {
	for _, c := range d.Criteria {
		if c.Kind == kind {
			return c, true
		}
	}
	return Criterion{}, false
}
