package genai

import (
	"errors"
	"testing"
)

var testSchema = &Schema{
	Name: "test-exercise",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"problem":  map[string]any{"type": "string"},
			"solution": map[string]any{"type": "string"},
		},
		"required":             []any{"problem", "solution"},
		"additionalProperties": false,
	},
}

func TestValidateResponseAcceptsConformingJSON(t *testing.T) {
	raw := `{"problem": "Deriva x^2", "solution": "2x"}`
	if err := validateResponse(testSchema, raw); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateResponseRejectsMissingField(t *testing.T) {
	raw := `{"problem": "Deriva x^2"}`
	err := validateResponse(testSchema, raw)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Errorf("expected *ErrInvalidResponse, got %T", err)
	}
}

func TestValidateResponseRejectsInvalidJSON(t *testing.T) {
	err := validateResponse(testSchema, "not json at all")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Errorf("expected *ErrInvalidResponse, got %T", err)
	}
}

func TestValidateResponseNilSchemaPasses(t *testing.T) {
	if err := validateResponse(nil, "plain text, not JSON"); err != nil {
		t.Errorf("unexpected error without schema: %v", err)
	}
}
