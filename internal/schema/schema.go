// Package schema generates the RuleDocument JSON Schema from the Go types
// and validates persisted documents against it.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/ppiankov/yojana/internal/model"
)

// RuleDocumentID is the $id of the generated RuleDocument schema
const RuleDocumentID = "https://github.com/ppiankov/yojana/schema/rule-document.v1.json"

var (
	kindType     = reflect.TypeOf(model.Kind(""))
	operatorType = reflect.TypeOf(model.Operator(""))
	valueType    = reflect.TypeOf(model.Value{})
)

// Reflect builds the RuleDocument schema
func Reflect() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Mapper:         mapType,
	}

	jss := r.Reflect(&model.RuleDocument{})
	jss.ID = jsonschema.ID(RuleDocumentID)
	jss.Title = "RuleDocument"
	jss.Description = "Normalized eligibility rule for one scheme"
	return jss
}

// Generate returns the RuleDocument schema as indented JSON
func Generate() ([]byte, error) {
	data, err := json.MarshalIndent(Reflect(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// mapType supplies schemas for types the reflector cannot infer
func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case kindType:
		kinds := make([]any, 0, len(model.Kinds))
		for _, k := range model.Kinds {
			kinds = append(kinds, string(k))
		}
		return &jsonschema.Schema{Type: "string", Enum: kinds}
	case operatorType:
		return &jsonschema.Schema{
			Type: "string",
			Enum: []any{
				string(model.OpLessOrEqual),
				string(model.OpGreaterOrEqual),
				string(model.OpEqual),
				string(model.OpIn),
				string(model.OpNotIn),
			},
		}
	case valueType:
		minItems := uint64(1)
		return &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{
				{Type: "number", Minimum: json.Number("0")},
				{Type: "array", Items: &jsonschema.Schema{Type: "string"}, MinItems: &minItems},
				{Type: "string"},
			},
		}
	}
	return nil
}
