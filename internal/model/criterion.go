package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies what a criterion constrains
type Kind string

const (
	KindIncomeMax          Kind = "income-max"
	KindIncomeMin          Kind = "income-min"
	KindAgeMin             Kind = "age-min"
	KindAgeMax             Kind = "age-max"
	KindResidencyState     Kind = "residency-state"
	KindCategory           Kind = "category"
	KindGender             Kind = "gender"
	KindOccupation         Kind = "occupation"
	KindOccupationExcluded Kind = "occupation-excluded"
	KindOtherFreeText      Kind = "other-free-text"
)

// Kinds lists every kind in canonical clause order
var Kinds = []Kind{
	KindResidencyState,
	KindAgeMin,
	KindAgeMax,
	KindIncomeMin,
	KindIncomeMax,
	KindGender,
	KindCategory,
	KindOccupation,
	KindOccupationExcluded,
	KindOtherFreeText,
}

// Operator is the comparison a criterion applies to a profile value
type Operator string

const (
	OpLessOrEqual    Operator = "<="
	OpGreaterOrEqual Operator = ">="
	OpEqual          Operator = "="
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
)

// kindSpec describes the fixed shape of each kind
type kindSpec struct {
	op           Operator
	value        ValueType
	profileField string
}

var kindSpecs = map[Kind]kindSpec{
	KindIncomeMax:          {OpLessOrEqual, ValueNumber, FieldIncome},
	KindIncomeMin:          {OpGreaterOrEqual, ValueNumber, FieldIncome},
	KindAgeMin:             {OpGreaterOrEqual, ValueNumber, FieldAge},
	KindAgeMax:             {OpLessOrEqual, ValueNumber, FieldAge},
	KindResidencyState:     {OpIn, ValueSet, FieldState},
	KindCategory:           {OpIn, ValueSet, FieldCategory},
	KindGender:             {OpEqual, ValueText, FieldGender},
	KindOccupation:         {OpIn, ValueSet, FieldOccupation},
	KindOccupationExcluded: {OpNotIn, ValueSet, FieldOccupation},
	KindOtherFreeText:      {OpEqual, ValueText, ""},
}

// Valid reports whether the kind is known
func (k Kind) Valid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// Operator returns the only operator compatible with the kind
func (k Kind) Operator() Operator {
	return kindSpecs[k].op
}

// ValueType returns the value shape the kind carries
func (k Kind) ValueType() ValueType {
	return kindSpecs[k].value
}

// ProfileField returns the UserProfile field the kind is evaluated against.
// Free text kinds have no field.
func (k Kind) ProfileField() string {
	return kindSpecs[k].profileField
}

// Compatible reports whether op may be paired with the kind
func (k Kind) Compatible(op Operator) bool {
	spec, ok := kindSpecs[k]
	return ok && spec.op == op
}

// Valid reports whether the operator is known
func (o Operator) Valid() bool {
	switch o {
	case OpLessOrEqual, OpGreaterOrEqual, OpEqual, OpIn, OpNotIn:
		return true
	}
	return false
}

// ValueType discriminates the Value union
type ValueType int

const (
	ValueNone ValueType = iota
	ValueNumber
	ValueSet
	ValueText
)

func (t ValueType) String() string {
	switch t {
	case ValueNumber:
		return "number"
	case ValueSet:
		return "set"
	case ValueText:
		return "text"
	default:
		return "none"
	}
}

// Value is a number, a set of strings or a text.
// It serializes as a JSON number, array of strings or string.
type Value struct {
	Type   ValueType
	Number float64
	Set    []string
	Text   string
}

// Number builds a numeric value
func Number(n float64) Value {
	return Value{Type: ValueNumber, Number: n}
}

// Set builds a set value, dropping blanks and case-insensitive duplicates
func Set(items ...string) Value {
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return Value{Type: ValueSet, Set: out}
}

// Text builds a text value
func Text(s string) Value {
	return Value{Type: ValueText, Text: s}
}

// Contains reports whether the set holds s (case-insensitive)
func (v Value) Contains(s string) bool {
	for _, item := range v.Set {
		if strings.EqualFold(item, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func (v Value) String() string {
	switch v.Type {
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueSet:
		return "{" + strings.Join(v.Set, ", ") + "}"
	case ValueText:
		return strconv.Quote(v.Text)
	default:
		return "<none>"
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case ValueNumber:
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return nil, fmt.Errorf("value is not a finite number")
		}
		return json.Marshal(v.Number)
	case ValueSet:
		if v.Set == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Set)
	case ValueText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode set value: %w", err)
		}
		*v = Value{Type: ValueSet, Set: items}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode text value: %w", err)
		}
		*v = Text(s)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode number value: %w", err)
		}
		*v = Number(n)
	}
	return nil
}

// Criterion is one atomic eligibility constraint
type Criterion struct {
	Kind       Kind     `json:"kind"`
	Operator   Operator `json:"operator"`
	Value      Value    `json:"value"`
	SourceSpan string   `json:"sourceSpan"` // Text the constraint was derived from
}

// NewCriterion builds a criterion with the operator the kind requires
func NewCriterion(kind Kind, value Value, span string) Criterion {
	return Criterion{
		Kind:       kind,
		Operator:   kind.Operator(),
		Value:      value,
		SourceSpan: strings.TrimSpace(span),
	}
}

func (c Criterion) String() string {
	return fmt.Sprintf("%s %s %s", c.Kind, c.Operator, c.Value)
}
