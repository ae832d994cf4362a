// Package validation checks create/update payloads against the todo API
// contract.
//
// Two modes exist because the mock historically accepted payloads the real
// backend rejects: "compat" reproduces the mock's lenient coercion (a
// missing title becomes an empty string), while "strict" mirrors the real
// backend's 400 responses so tests written against it behave identically
// against the mock.
package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Mode selects the validation behavior.
type Mode string

// Modes.
const (
	// ModeCompat accepts anything and lets the store coerce defaults.
	ModeCompat Mode = "compat"
	// ModeStrict reproduces the real backend's validation failures.
	ModeStrict Mode = "strict"
)

// Error messages copied verbatim from the real backend.
const (
	MsgTitleRequired = "Title is required"
	MsgNoData        = "No data provided"
	MsgNoValidFields = "No valid fields to update"
)

// RequestError is a validation failure surfaced as a normal HTTP error
// response, never as a transport failure.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("validation failed (%d): %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status code for this error.
func (e *RequestError) StatusCode() int {
	return e.Status
}

const createSchemaJSON = `{
  "type": "object",
  "required": ["title"],
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "completed": {"type": "boolean"}
  }
}`

const updateSchemaJSON = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "completed": {"type": "boolean"}
  }
}`

// knownUpdateFields are the fields the real backend's dynamic UPDATE accepts.
var knownUpdateFields = []string{"title", "description", "completed"}

// Validator validates request payloads for the configured mode.
type Validator struct {
	mode   Mode
	create *jsonschema.Schema
	update *jsonschema.Schema
}

// New compiles the embedded payload schemas for the given mode.
func New(mode Mode) (*Validator, error) {
	if mode == "" {
		mode = ModeCompat
	}
	if mode != ModeCompat && mode != ModeStrict {
		return nil, fmt.Errorf("unknown validation mode %q (valid: %s, %s)", mode, ModeCompat, ModeStrict)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("create.json", strings.NewReader(createSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add create schema: %w", err)
	}
	if err := compiler.AddResource("update.json", strings.NewReader(updateSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add update schema: %w", err)
	}

	create, err := compiler.Compile("create.json")
	if err != nil {
		return nil, fmt.Errorf("compile create schema: %w", err)
	}
	update, err := compiler.Compile("update.json")
	if err != nil {
		return nil, fmt.Errorf("compile update schema: %w", err)
	}

	return &Validator{mode: mode, create: create, update: update}, nil
}

// MustNew is New for known-good modes; it panics on error.
func MustNew(mode Mode) *Validator {
	v, err := New(mode)
	if err != nil {
		panic(err)
	}
	return v
}

// Mode returns the configured mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// ValidateCreate checks a create payload. In compat mode everything passes.
func (v *Validator) ValidateCreate(body map[string]any) *RequestError {
	if v.mode != ModeStrict {
		return nil
	}

	if body == nil {
		return &RequestError{Status: http.StatusBadRequest, Message: MsgTitleRequired}
	}
	if _, ok := body["title"]; !ok {
		return &RequestError{Status: http.StatusBadRequest, Message: MsgTitleRequired}
	}
	if err := v.create.Validate(toJSONValue(body)); err != nil {
		return &RequestError{Status: http.StatusBadRequest, Message: schemaMessage(err)}
	}
	return nil
}

// ValidateUpdate checks an update payload. In compat mode everything passes.
func (v *Validator) ValidateUpdate(body map[string]any) *RequestError {
	if v.mode != ModeStrict {
		return nil
	}

	if len(body) == 0 {
		return &RequestError{Status: http.StatusBadRequest, Message: MsgNoData}
	}

	hasKnown := false
	for _, field := range knownUpdateFields {
		if _, ok := body[field]; ok {
			hasKnown = true
			break
		}
	}
	if !hasKnown {
		return &RequestError{Status: http.StatusBadRequest, Message: MsgNoValidFields}
	}

	if err := v.update.Validate(toJSONValue(body)); err != nil {
		return &RequestError{Status: http.StatusBadRequest, Message: schemaMessage(err)}
	}
	return nil
}

// toJSONValue converts the map to the plain interface form jsonschema expects.
func toJSONValue(body map[string]any) any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	return out
}

// schemaMessage flattens a jsonschema error into a single-line message.
func schemaMessage(err error) string {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if loc != "" {
			return fmt.Sprintf("invalid field %q: %s", loc, leaf.Message)
		}
		return leaf.Message
	}
	return err.Error()
}
