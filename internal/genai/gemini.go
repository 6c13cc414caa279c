package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	googlegenai "google.golang.org/genai"
)

// geminiModels maps friendly names to Gemini model IDs.
var geminiModels = map[string]string{
	"gemini-flash": "gemini-2.0-flash",
	"gemini-pro":   "gemini-2.0-pro",
}

// GeminiProvider implements Provider using the Google Gemini SDK.
type GeminiProvider struct {
	client *googlegenai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := googlegenai.NewClient(ctx, &googlegenai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: googlegenai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	model := resolveModel(cfg.Model, geminiModels)
	slog.Debug("GeminiProvider created", "model", model)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	config := &googlegenai.GenerateContentConfig{}

	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if req.System != "" {
		config.SystemInstruction = &googlegenai.Content{
			Parts: []*googlegenai.Part{{Text: req.System}},
		}
	}

	// Configure structured output.
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = buildGeminiSchema(req.Schema.Definition)
	}

	contents := []*googlegenai.Content{{
		Role:  "user",
		Parts: []*googlegenai.Part{{Text: req.Prompt}},
	}}

	slog.Debug("GeminiProvider Generate invoked", "model", p.model, "structured", req.Schema != nil, "prompt_length", len(req.Prompt))
	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		slog.Error("GeminiProvider Generate failed", "error", err, "model", p.model)
		return nil, mapGeminiError(err)
	}

	text := result.Text()
	if text == "" {
		slog.Error("GeminiProvider Generate returned empty content", "model", p.model)
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("empty Gemini response")}
	}

	if err := validateResponse(req.Schema, text); err != nil {
		slog.Error("GeminiProvider Generate schema validation failed", "error", err, "model", p.model)
		return nil, err
	}

	slog.Debug("GeminiProvider Generate succeeded", "model", p.model, "response_length", len(text))
	return &Response{Text: text, Model: p.model}, nil
}

func (p *GeminiProvider) ModelID() string {
	return p.model
}

// buildGeminiSchema converts a JSON Schema definition map to the SDK's
// schema type; Gemini does not accept raw JSON Schema documents.
func buildGeminiSchema(def map[string]any) *googlegenai.Schema {
	schema := &googlegenai.Schema{}

	if t, ok := def["type"].(string); ok {
		schema.Type = mapGeminiType(t)
	}
	if desc, ok := def["description"].(string); ok {
		schema.Description = desc
	}

	if props, ok := def["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*googlegenai.Schema)
		for k, v := range props {
			if propDef, ok := v.(map[string]any); ok {
				schema.Properties[k] = buildGeminiSchema(propDef)
			}
		}
	}

	if req, ok := def["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	if enums, ok := def["enum"].([]any); ok {
		for _, e := range enums {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	if items, ok := def["items"].(map[string]any); ok {
		schema.Items = buildGeminiSchema(items)
	}

	return schema
}

func mapGeminiType(t string) googlegenai.Type {
	switch t {
	case "string":
		return googlegenai.TypeString
	case "number":
		return googlegenai.TypeNumber
	case "integer":
		return googlegenai.TypeInteger
	case "boolean":
		return googlegenai.TypeBoolean
	case "array":
		return googlegenai.TypeArray
	case "object":
		return googlegenai.TypeObject
	default:
		return googlegenai.TypeString
	}
}

func mapGeminiError(err error) error {
	var apiErr *googlegenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &ErrRateLimit{Err: err}
		case apiErr.Code >= 500:
			return &ErrProviderUnavailable{Err: err}
		}
	}
	return &ErrProviderUnavailable{Err: err}
}
