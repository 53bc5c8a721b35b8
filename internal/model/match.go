package model

// Verdict is the overall outcome of matching a profile against a rule
type Verdict string

const (
	VerdictEligible      Verdict = "eligible"
	VerdictIneligible    Verdict = "ineligible"
	VerdictIndeterminate Verdict = "indeterminate"
)

// Rank orders verdicts for sorting: eligible first, ineligible last
func (v Verdict) Rank() int {
	switch v {
	case VerdictEligible:
		return 0
	case VerdictIndeterminate:
		return 1
	default:
		return 2
	}
}

// ClauseResult is the evaluation of one criterion.
// Satisfied is nil when the clause could not be decided.
type ClauseResult struct {
	Kind      Kind   `json:"kind"`
	Satisfied *bool  `json:"satisfied"`
	Reason    string `json:"reason"`
}

// Determinate reports whether the clause was decided
func (c ClauseResult) Determinate() bool {
	return c.Satisfied != nil
}

// MatchResult is the evaluation of one profile against one RuleDocument.
// It is never cached.
type MatchResult struct {
	SchemeID string         `json:"schemeId"`
	Title    string         `json:"title,omitempty"`
	Verdict  Verdict        `json:"verdict"`
	Score    float64        `json:"score"`    // satisfied / determinate clauses
	Coverage float64        `json:"coverage"` // determinate / total clauses
	Clauses  []ClauseResult `json:"clauses"`

	Explanation *Explanation `json:"explanation,omitempty"` // Optional LLM text, never affects verdict
}

// Explanation is an optional plain-language rendering of a MatchResult
type Explanation struct {
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Text     string   `json:"text"`
	Warnings []string `json:"warnings,omitempty"`
}

// Bool returns a pointer to b, for building clause results
func Bool(b bool) *bool {
	return &b
}
