// Package schema validates caller-supplied JSON Schemas and model output
// against them. Schemas are treated as opaque pass-through data everywhere
// else; this package is the only place that interprets them.
package schema

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/lectern/internal/errs"
)

// Validator wraps a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile parses and compiles a JSON Schema. A schema that does not compile
// is a caller error.
func Compile(raw json.RawMessage) (*Validator, error) {
	if len(raw) == 0 {
		return nil, &errs.ValidationError{Parameter: "output_schema", Message: "schema is empty"}
	}
	if !json.Valid(raw) {
		return nil, &errs.ValidationError{Parameter: "output_schema", Message: "schema is not valid JSON"}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, &errs.ValidationError{Parameter: "output_schema", Message: "loading schema: " + err.Error()}
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, &errs.ValidationError{Parameter: "output_schema", Message: "compiling schema: " + err.Error()}
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks a JSON document against the schema.
func (v *Validator) Validate(instance json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(instance, &doc); err != nil {
		return &errs.ValidationError{Parameter: "instance", Message: "decoding instance: " + err.Error()}
	}
	if err := v.schema.Validate(doc); err != nil {
		return &errs.ValidationError{Parameter: "instance", Message: err.Error()}
	}
	return nil
}

// ValidateInstance compiles raw and checks instance against it in one step.
func ValidateInstance(raw, instance json.RawMessage) error {
	v, err := Compile(raw)
	if err != nil {
		return err
	}
	return v.Validate(instance)
}
