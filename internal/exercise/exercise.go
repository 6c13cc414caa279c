// Package exercise generates practice exercises and verifies student
// answers through the AI provider.
package exercise

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calcmentor/CalcMentor/internal/genai"
	"github.com/calcmentor/CalcMentor/internal/models"
)

// exerciseSchema constrains structured generation to the two fields the
// flow needs.
var exerciseSchema = &genai.Schema{
	Name:        "exercise",
	Description: "A calculus exercise with its worked solution",
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

// Service generates and verifies exercises.
type Service struct {
	provider genai.Provider
}

// NewService creates an exercise service on top of the given provider.
func NewService(provider genai.Provider) *Service {
	return &Service{provider: provider}
}

// Generate asks the provider for a fresh exercise on the given topic and
// difficulty (1-5). The returned exercise carries the requested topic and
// difficulty alongside the generated problem and solution.
func (s *Service) Generate(ctx context.Context, topic string, difficulty int) (*models.Exercise, error) {
	prompt := fmt.Sprintf("Crea un ejercicio de Cálculo Diferencial sobre '%s' con dificultad %d/5. Devuelve JSON con claves 'problem' y 'solution'. Usa texto plano.", topic, difficulty)

	resp, err := s.provider.Generate(ctx, genai.Request{
		Prompt: prompt,
		Schema: exerciseSchema,
	})
	if err != nil {
		slog.Error("Exercise Generate provider call failed", "topic", topic, "difficulty", difficulty, "error", err)
		return nil, fmt.Errorf("failed to generate exercise: %w", err)
	}

	var payload struct {
		Problem  string `json:"problem"`
		Solution string `json:"solution"`
	}
	if err := json.Unmarshal([]byte(resp.Text), &payload); err != nil {
		slog.Error("Exercise Generate response decode failed", "topic", topic, "error", err)
		return nil, fmt.Errorf("failed to decode exercise: %w", &genai.ErrInvalidResponse{Content: resp.Text, Err: err})
	}
	if payload.Problem == "" || payload.Solution == "" {
		return nil, fmt.Errorf("failed to decode exercise: %w", &genai.ErrInvalidResponse{Content: resp.Text, Err: fmt.Errorf("missing problem or solution")})
	}

	slog.Debug("Exercise Generate succeeded", "topic", topic, "difficulty", difficulty, "model", resp.Model)
	return &models.Exercise{
		Topic:      topic,
		Difficulty: difficulty,
		Problem:    payload.Problem,
		Solution:   payload.Solution,
	}, nil
}

// Verification is the outcome of checking a student answer.
type Verification struct {
	// Feedback is the provider's free-form evaluation, shown to the user.
	Feedback string
	// Correct is derived from Feedback by keyword scan.
	Correct bool
}

// Verify evaluates a student's answer against the exercise's stored
// solution. The verdict is heuristic: the answer counts as correct when
// the feedback contains a congratulation keyword.
func (s *Service) Verify(ctx context.Context, ex *models.Exercise, answer string) (*Verification, error) {
	prompt := fmt.Sprintf(`Evalúa esta respuesta de un estudiante de Cálculo.
        - Problema: %q
        - Solución Correcta: %q
        - Respuesta del Estudiante: %q
        Si es correcta, felicita y ASEGÚRATE de incluir la palabra "correcto". Si no, da una pista SIN revelar la solución. Usa texto plano.`,
		ex.Problem, ex.Solution, strings.TrimSpace(answer))

	resp, err := s.provider.Generate(ctx, genai.Request{Prompt: prompt})
	if err != nil {
		slog.Error("Exercise Verify provider call failed", "topic", ex.Topic, "error", err)
		return nil, fmt.Errorf("failed to verify answer: %w", err)
	}

	verdict := ClassifyVerdict(resp.Text)
	slog.Debug("Exercise Verify succeeded", "topic", ex.Topic, "correct", verdict)
	return &Verification{Feedback: resp.Text, Correct: verdict}, nil
}
