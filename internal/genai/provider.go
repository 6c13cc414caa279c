// Package genai provides the AI gateway for CalcMentor.
//
// It abstracts generative-text providers behind a single Provider interface
// supporting plain-text and schema-constrained JSON generation, and
// normalizes provider failures into a small typed error set.
package genai

import "context"

// Provider is the core abstraction for generative-text calls. A request
// carries one prompt (plus an optional system prompt) and, when Schema is
// set, instructs the provider to return JSON conforming to that schema.
type Provider interface {
	// Generate sends the prompt and returns the completion. When a schema
	// is set, the returned text is the validated JSON object; validation
	// failures surface as *ErrInvalidResponse, never a partial object.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes a single gateway call.
type Request struct {
	// System sets the model's role and constraints. Optional.
	System string

	// Prompt is the user prompt for this call.
	Prompt string

	// Schema, when set, constrains the response to JSON matching it.
	Schema *Schema

	// MaxTokens limits the response length. Zero means provider default.
	MaxTokens int

	// Temperature controls randomness. Range 0.0 - 1.0, default 0.0.
	Temperature float64
}

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies this schema (schema name for OpenAI structured
	// output). Kebab-case, e.g. "calculus-exercise".
	Name string

	// Description tells the model what this schema represents.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	// Text is the generated output. With a Schema it is the validated
	// JSON object; otherwise the raw completion text.
	Text string

	// Model is the model that served the request.
	Model string
}
