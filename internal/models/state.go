// Package models defines the conversation state structures for CalcMentor.
package models

import (
	"fmt"
	"time"
)

// Mode is the discrete conversation stage for a user. It gates which
// inputs are accepted and which transition runs; it is never inferred
// from message content.
type Mode string

const (
	ModeIdle                       Mode = "idle"
	ModeAwaitingNotebookQuestion   Mode = "awaiting_notebook_question"
	ModeAwaitingDoubt              Mode = "awaiting_doubt"
	ModeAwaitingDeepenTopic        Mode = "awaiting_deepen_topic"
	ModeAwaitingExampleTopic       Mode = "awaiting_example_topic"
	ModeAwaitingExerciseTopic      Mode = "awaiting_exercise_topic"
	ModeAwaitingExerciseDifficulty Mode = "awaiting_exercise_difficulty"
	ModeAwaitingExerciseAnswer     Mode = "awaiting_exercise_answer"
	ModeAwaitingExerciseResolution Mode = "awaiting_exercise_resolution"
	ModeAwaitingNextAction         Mode = "awaiting_next_action"
)

// validModes is the closed set of modes accepted when loading persisted state.
var validModes = map[Mode]bool{
	ModeIdle:                       true,
	ModeAwaitingNotebookQuestion:   true,
	ModeAwaitingDoubt:              true,
	ModeAwaitingDeepenTopic:        true,
	ModeAwaitingExampleTopic:       true,
	ModeAwaitingExerciseTopic:      true,
	ModeAwaitingExerciseDifficulty: true,
	ModeAwaitingExerciseAnswer:     true,
	ModeAwaitingExerciseResolution: true,
	ModeAwaitingNextAction:         true,
}

// ParseMode validates a persisted mode string. Unknown values are rejected
// so corrupt state fails fast at load instead of silently defaulting.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !validModes[m] {
		return "", fmt.Errorf("unknown conversation mode %q", s)
	}
	return m, nil
}

// Exercise is the per-user exercise record, built incrementally: Topic on
// topic selection, Difficulty on difficulty selection, Problem/Solution
// after generation.
type Exercise struct {
	Topic      string `json:"topic"`
	Difficulty int    `json:"difficulty,omitempty"`
	Problem    string `json:"problem,omitempty"`
	Solution   string `json:"solution,omitempty"`
}

// ConversationState is the whole per-user conversation record. Writes are
// whole-record replacements; there is exactly one record per user.
type ConversationState struct {
	UserID          string    `json:"user_id"`
	Mode            Mode      `json:"mode"`
	LastTopic       string    `json:"last_topic,omitempty"`
	CurrentExercise *Exercise `json:"current_exercise,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewConversationState returns the default idle record for a user.
func NewConversationState(userID string) ConversationState {
	now := time.Now()
	return ConversationState{
		UserID:    userID,
		Mode:      ModeIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
