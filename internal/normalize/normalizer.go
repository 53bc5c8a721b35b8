// Package normalize turns candidate criteria into a canonical RuleDocument:
// one clause per kind, the most restrictive candidate winning.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
)

// ErrEmptyDocument means every candidate criterion was invalid
var ErrEmptyDocument = errors.New("no valid criteria")

// InvalidCriterionError describes a dropped criterion
type InvalidCriterionError struct {
	Criterion model.Criterion
	Reason    string
}

func (e *InvalidCriterionError) Error() string {
	return fmt.Sprintf("invalid criterion %s: %s", e.Criterion, e.Reason)
}

// Normalizer validates, deduplicates and orders criteria
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(log *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger.OrNop(log)}
}

// Normalize builds a RuleDocument from candidate criteria.
// Invalid criteria are dropped and returned as *InvalidCriterionError values.
// The document is nil, with ErrEmptyDocument among the errors, when nothing survives.
func (n *Normalizer) Normalize(schemeID string, criteria []model.Criterion, confidence model.Confidence) (*model.RuleDocument, []error) {
	var errs []error

	byKind := make(map[model.Kind]model.Criterion)
	for _, c := range criteria {
		c = tidy(c)
		if err := Validate(c); err != nil {
			n.logger.Warn("dropping invalid criterion",
				zap.String("scheme_id", schemeID),
				zap.String("kind", string(c.Kind)),
				zap.String("reason", err.Reason),
				zap.String("source_span", logger.TruncateForLog(c.SourceSpan, 80)),
			)
			errs = append(errs, err)
			continue
		}

		if existing, ok := byKind[c.Kind]; ok {
			byKind[c.Kind] = mostRestrictive(existing, c)
		} else {
			byKind[c.Kind] = c
		}
	}

	if len(byKind) == 0 {
		return nil, append(errs, fmt.Errorf("normalize %s: %w", schemeID, ErrEmptyDocument))
	}

	if confidence == "" {
		confidence = model.ConfidenceHigh
	}

	doc := &model.RuleDocument{
		SchemaVersion: model.SchemaVersion,
		SchemeID:      schemeID,
		Combination:   model.CombinationAll,
		Confidence:    confidence,
	}
	for _, kind := range model.Kinds {
		if c, ok := byKind[kind]; ok {
			doc.Criteria = append(doc.Criteria, c)
		}
	}

	return doc, errs
}

// tidy fills in the operator when missing and normalizes set contents
func tidy(c model.Criterion) model.Criterion {
	if c.Operator == "" && c.Kind.Valid() {
		c.Operator = c.Kind.Operator()
	}
	switch c.Value.Type {
	case model.ValueSet:
		c.Value = model.Set(c.Value.Set...)
	case model.ValueText:
		c.Value = model.Text(strings.TrimSpace(c.Value.Text))
	}
	if c.Kind == model.KindGender && c.Value.Type == model.ValueText {
		c.Value = model.Text(strings.ToLower(c.Value.Text))
	}
	return c
}

// Validate checks a single criterion against its kind's shape
func Validate(c model.Criterion) *InvalidCriterionError {
	invalid := func(format string, args ...any) *InvalidCriterionError {
		return &InvalidCriterionError{Criterion: c, Reason: fmt.Sprintf(format, args...)}
	}

	if !c.Kind.Valid() {
		return invalid("unknown kind %q", c.Kind)
	}
	if !c.Operator.Valid() {
		return invalid("unknown operator %q", c.Operator)
	}
	if !c.Kind.Compatible(c.Operator) {
		return invalid("operator %s not allowed for %s (want %s)", c.Operator, c.Kind, c.Kind.Operator())
	}
	if c.Value.Type != c.Kind.ValueType() {
		return invalid("value is %s, %s requires %s", c.Value.Type, c.Kind, c.Kind.ValueType())
	}

	switch c.Value.Type {
	case model.ValueNumber:
		if math.IsNaN(c.Value.Number) || math.IsInf(c.Value.Number, 0) {
			return invalid("value is not finite")
		}
		if c.Value.Number < 0 {
			return invalid("value %v is negative", c.Value.Number)
		}
	case model.ValueSet:
		if len(c.Value.Set) == 0 {
			return invalid("set is empty")
		}
	case model.ValueText:
		if c.Value.Text == "" {
			return invalid("text is empty")
		}
	}
	return nil
}

// mostRestrictive merges two valid criteria of the same kind
func mostRestrictive(a, b model.Criterion) model.Criterion {
	switch a.Operator {
	case model.OpLessOrEqual:
		if b.Value.Number < a.Value.Number {
			return b
		}
		return a
	case model.OpGreaterOrEqual:
		if b.Value.Number > a.Value.Number {
			return b
		}
		return a
	case model.OpIn:
		common := intersect(a.Value.Set, b.Value.Set)
		if len(common) > 0 {
			return model.Criterion{
				Kind:       a.Kind,
				Operator:   a.Operator,
				Value:      model.Set(common...),
				SourceSpan: joinSpans(a.SourceSpan, b.SourceSpan),
			}
		}
		if len(b.Value.Set) < len(a.Value.Set) {
			return b
		}
		return a
	case model.OpNotIn:
		// excluding more is more restrictive
		return model.Criterion{
			Kind:       a.Kind,
			Operator:   a.Operator,
			Value:      model.Set(append(append([]string{}, a.Value.Set...), b.Value.Set...)...),
			SourceSpan: joinSpans(a.SourceSpan, b.SourceSpan),
		}
	}

	if a.Kind == model.KindOtherFreeText && len(b.Value.Text) > len(a.Value.Text) {
		return b
	}
	return a
}

func intersect(a, b []string) []string {
	var out []string
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				out = append(out, x)
				break
			}
		}
	}
	return out
}

func joinSpans(a, b string) string {
	switch {
	case a == b || b == "":
		return a
	case a == "":
		return b
	}
	return a + "; " + b
}
