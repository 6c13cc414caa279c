package models

import (
	"time"

	"github.com/google/uuid"
)

// Interaction types recorded for telemetry. Values match the original
// collection so downstream analysis keeps working.
const (
	InteractionNotebookQuestion = "duda_cuaderno"
	InteractionDoubt            = "asesoria"
	InteractionDeepen           = "profundizar_asesoria"
	InteractionExample          = "ejemplo"
	InteractionVerification     = "verificacion_ejercicio"
	InteractionSurveyLink       = "encuesta_link_sent"
)

// Interaction is an append-only telemetry record for one handled event.
type Interaction struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// NewInteraction builds an Interaction with a fresh id and timestamp.
func NewInteraction(interactionType, userID string, data map[string]string) Interaction {
	return Interaction{
		ID:        uuid.NewString(),
		Type:      interactionType,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      data,
	}
}
