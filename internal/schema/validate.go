package schema

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError is a schema violation in a persisted document.
// Field is the JSON pointer of the most specific failing location.
type ValidationError struct {
	Err    error
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("error at %s: %s", e.Field, e.Detail)
	}
	return "validation error: " + e.Detail
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ErrSchemaViolation is wrapped by every ValidationError
var ErrSchemaViolation = errors.New("schema validation")

// Validator validates documents against a compiled JSON schema
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaData, registered under id
func NewValidator(id string, schemaData []byte) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: jss}, nil
}

// NewRuleValidator compiles the generated RuleDocument schema
func NewRuleValidator() (*Validator, error) {
	data, err := Generate()
	if err != nil {
		return nil, err
	}
	return NewValidator(RuleDocumentID, data)
}

// Validate checks an already decoded instance
func (v *Validator) Validate(instance any) error {
	err := v.schema.Validate(instance)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	return &ValidationError{
		Err:    ErrSchemaViolation,
		Field:  "/" + strings.Join(mostSpecificLocation(verr), "/"),
		Detail: verr.Error(),
	}
}

// ValidateJSON decodes data and validates it
func (v *Validator) ValidateJSON(data []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return v.Validate(instance)
}

// mostSpecificLocation returns the longest instance location among all causes
func mostSpecificLocation(err *jsonschema.ValidationError) []string {
	longest := err.InstanceLocation
	for _, cause := range err.Causes {
		if loc := mostSpecificLocation(cause); len(loc) > len(longest) {
			longest = loc
		}
	}
	return longest
}
