package schema_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/schema"
)

func validRule() model.RuleDocument {
	return model.RuleDocument{
		SchemaVersion: model.SchemaVersion,
		SchemeID:      "pm-kisan",
		Criteria: []model.Criterion{
			model.NewCriterion(model.KindResidencyState, model.Set("Kerala"), "resident of Kerala"),
			model.NewCriterion(model.KindIncomeMax, model.Number(250000), "income below Rs. 2.5 lakh"),
			model.NewCriterion(model.KindGender, model.Text("female"), "women"),
		},
		Combination: model.CombinationAll,
		Confidence:  model.ConfidenceHigh,
	}
}

func TestGenerate(t *testing.T) {
	data, err := schema.Generate()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, schema.RuleDocumentID, doc["$id"])
	assert.Equal(t, "object", doc["type"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"schemaVersion", "schemeId", "criteria", "combination", "confidence"} {
		assert.Contains(t, props, field)
	}
}

func TestRuleValidator(t *testing.T) {
	v, err := schema.NewRuleValidator()
	require.NoError(t, err)

	tcs := map[string]struct {
		mutate  func(map[string]any)
		wantErr bool
	}{
		"valid": {
			mutate: func(map[string]any) {},
		},
		"missing scheme id": {
			mutate:  func(d map[string]any) { delete(d, "schemeId") },
			wantErr: true,
		},
		"empty criteria": {
			mutate:  func(d map[string]any) { d["criteria"] = []any{} },
			wantErr: true,
		},
		"unknown confidence": {
			mutate:  func(d map[string]any) { d["confidence"] = "certain" },
			wantErr: true,
		},
		"wrong schema version": {
			mutate:  func(d map[string]any) { d["schemaVersion"] = 2 },
			wantErr: true,
		},
		"unknown kind": {
			mutate: func(d map[string]any) {
				criteria := d["criteria"].([]any)
				criteria[0].(map[string]any)["kind"] = "height-min"
			},
			wantErr: true,
		},
		"negative number": {
			mutate: func(d map[string]any) {
				criteria := d["criteria"].([]any)
				criteria[1].(map[string]any)["value"] = -5
			},
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			raw, err := json.Marshal(validRule())
			require.NoError(t, err)

			var doc map[string]any
			require.NoError(t, json.Unmarshal(raw, &doc))
			tc.mutate(doc)

			data, err := json.Marshal(doc)
			require.NoError(t, err)

			err = v.ValidateJSON(data)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var verr *schema.ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
			assert.True(t, errors.Is(err, schema.ErrSchemaViolation))
		})
	}
}

func TestNewValidatorErrors(t *testing.T) {
	_, err := schema.NewValidator("mem://bad", []byte(`{"invalid": json}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal schema")

	_, err = schema.NewValidator("mem://bad", []byte(`{"type": "invalid_type"}`))
	require.Error(t, err)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &schema.ValidationError{Field: "/criteria/0/kind", Detail: "value must be one of"}
	assert.Equal(t, "error at /criteria/0/kind: value must be one of", err.Error())

	err = &schema.ValidationError{Detail: "bad"}
	assert.Equal(t, "validation error: bad", err.Error())
}
