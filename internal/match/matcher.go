// Package match evaluates a UserProfile against RuleDocuments.
// Every clause is reported with a reason; a missing or unreadable profile
// value never fails a clause, it leaves it undecided.
package match

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/ppiankov/yojana/internal/model"
)

// ReasonManualReview is the reason attached to free-text clauses
const ReasonManualReview = "requires manual review"

// Matcher evaluates profiles against rules. It holds no state.
type Matcher struct{}

// NewMatcher creates a new matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match evaluates profile against every clause of rule
func (m *Matcher) Match(profile model.UserProfile, rule *model.RuleDocument) model.MatchResult {
	result := model.MatchResult{
		SchemeID: rule.SchemeID,
		Title:    rule.Title,
		Clauses:  make([]model.ClauseResult, 0, len(rule.Criteria)),
	}

	satisfied, determinate, failed := 0, 0, 0
	for _, c := range rule.Criteria {
		clause := m.evaluate(profile, c)
		result.Clauses = append(result.Clauses, clause)

		if !clause.Determinate() {
			continue
		}
		determinate++
		if *clause.Satisfied {
			satisfied++
		} else {
			failed++
		}
	}

	switch {
	case failed > 0:
		result.Verdict = model.VerdictIneligible
	case determinate == len(rule.Criteria):
		result.Verdict = model.VerdictEligible
	default:
		result.Verdict = model.VerdictIndeterminate
	}

	if determinate > 0 {
		result.Score = float64(satisfied) / float64(determinate)
	}
	if len(rule.Criteria) > 0 {
		result.Coverage = float64(determinate) / float64(len(rule.Criteria))
	}

	return result
}

// MatchAll evaluates profile against every rule and returns ranked results
func (m *Matcher) MatchAll(profile model.UserProfile, rules []*model.RuleDocument) []model.MatchResult {
	results := make([]model.MatchResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, m.Match(profile, rule))
	}
	Rank(results)
	return results
}

// Rank sorts results: eligible, then indeterminate, then ineligible;
// within a verdict by score, coverage and finally scheme id.
func Rank(results []model.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Verdict.Rank() != b.Verdict.Rank() {
			return a.Verdict.Rank() < b.Verdict.Rank()
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Coverage != b.Coverage {
			return a.Coverage > b.Coverage
		}
		return a.SchemeID < b.SchemeID
	})
}

func (m *Matcher) evaluate(profile model.UserProfile, c model.Criterion) model.ClauseResult {
	clause := model.ClauseResult{Kind: c.Kind}

	if c.Kind == model.KindOtherFreeText {
		clause.Reason = ReasonManualReview
		return clause
	}

	field := c.Kind.ProfileField()
	raw, ok := profile.Lookup(field)
	if !ok {
		clause.Reason = fmt.Sprintf("profile has no %s", field)
		return clause
	}

	switch c.Operator {
	case model.OpLessOrEqual, model.OpGreaterOrEqual:
		return compareNumber(clause, field, raw, c)
	case model.OpIn, model.OpNotIn:
		return compareSet(clause, field, raw, c)
	case model.OpEqual:
		return compareText(clause, field, raw, c)
	}

	clause.Reason = fmt.Sprintf("unsupported operator %q", c.Operator)
	return clause
}

func compareNumber(clause model.ClauseResult, field string, raw any, c model.Criterion) model.ClauseResult {
	n, err := toNumber(raw)
	if err != nil {
		clause.Reason = fmt.Sprintf("%s %v is not a number", field, raw)
		return clause
	}

	var ok bool
	if c.Operator == model.OpLessOrEqual {
		ok = n <= c.Value.Number
	} else {
		ok = n >= c.Value.Number
	}
	clause.Satisfied = model.Bool(ok)

	verb := "satisfies"
	if !ok {
		verb = "does not satisfy"
	}
	clause.Reason = fmt.Sprintf("%s %s %s %s %s", field, formatNumber(n), verb, c.Operator, c.Value)
	return clause
}

func compareSet(clause model.ClauseResult, field string, raw any, c model.Criterion) model.ClauseResult {
	values, err := toStrings(raw)
	if err != nil || len(values) == 0 {
		clause.Reason = fmt.Sprintf("%s %v is not readable as text", field, raw)
		return clause
	}

	var hit string
	for _, v := range values {
		if c.Value.Contains(v) {
			hit = v
			break
		}
	}

	declared := strings.Join(values, ", ")
	if c.Operator == model.OpIn {
		clause.Satisfied = model.Bool(hit != "")
		if hit != "" {
			clause.Reason = fmt.Sprintf("%s %s is in %s", field, hit, c.Value)
		} else {
			clause.Reason = fmt.Sprintf("%s %s is not in %s", field, declared, c.Value)
		}
		return clause
	}

	clause.Satisfied = model.Bool(hit == "")
	if hit != "" {
		clause.Reason = fmt.Sprintf("%s %s is excluded by %s", field, hit, c.Value)
	} else {
		clause.Reason = fmt.Sprintf("%s %s is not excluded", field, declared)
	}
	return clause
}

func compareText(clause model.ClauseResult, field string, raw any, c model.Criterion) model.ClauseResult {
	s, err := toText(raw)
	if err != nil {
		clause.Reason = fmt.Sprintf("%s %v is not readable as text", field, raw)
		return clause
	}
	s = strings.TrimSpace(s)
	if s == "" {
		clause.Reason = fmt.Sprintf("profile has no %s", field)
		return clause
	}

	ok := strings.EqualFold(s, c.Value.Text)
	clause.Satisfied = model.Bool(ok)
	if ok {
		clause.Reason = fmt.Sprintf("%s is %s", field, c.Value.Text)
	} else {
		clause.Reason = fmt.Sprintf("%s %s is not %s", field, s, c.Value.Text)
	}
	return clause
}

// toNumber accepts non-negative finite numbers and numeric strings, with
// thousands separators
func toNumber(raw any) (float64, error) {
	var (
		n   float64
		err error
	)
	switch v := raw.(type) {
	case bool:
		return 0, fmt.Errorf("boolean is not a number")
	case string:
		n, err = strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
	default:
		n, err = cast.ToFloat64E(raw)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%v is not a finite number", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%v is negative", raw)
	}
	return n, nil
}

// toText reads a scalar as text; booleans are not names
func toText(raw any) (string, error) {
	if _, ok := raw.(bool); ok {
		return "", fmt.Errorf("boolean is not text")
	}
	return cast.ToStringE(raw)
}

// toStrings accepts a single value or a list of values
func toStrings(raw any) ([]string, error) {
	var items []string
	switch v := raw.(type) {
	case string:
		items = []string{v}
	case []string:
		items = v
	case []any:
		for _, elem := range v {
			s, err := toText(elem)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}
	default:
		s, err := toText(v)
		if err != nil {
			return nil, err
		}
		items = []string{s}
	}

	out := items[:0:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
