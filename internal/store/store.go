// Package store provides storage backends for CalcMentor.
//
// It includes SQLite and PostgreSQL backends for conversation state and
// telemetry interactions, plus an in-memory store used as the degraded
// fallback when no database is reachable.
package store

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/calcmentor/CalcMentor/internal/models"
)

// Store persists per-user conversation state and append-only interactions.
// GetConversationState returns (nil, nil) when no record exists.
// SaveConversationState replaces the whole record (last write wins).
type Store interface {
	GetConversationState(userID string) (*models.ConversationState, error)
	SaveConversationState(state models.ConversationState) error
	DeleteConversationState(userID string) error

	AddInteraction(interaction models.Interaction) error
	GetInteractions(userID string) ([]models.Interaction, error)

	Close() error
}

// InMemoryStore is the degraded no-persistence backend, selected at startup
// when no database DSN is configured or the database is unreachable.
type InMemoryStore struct {
	mu           sync.RWMutex
	states       map[string]models.ConversationState
	interactions []models.Interaction
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	slog.Debug("InMemoryStore created")
	return &InMemoryStore{states: make(map[string]models.ConversationState)}
}

// GetConversationState returns the stored record for a user, or (nil, nil).
func (s *InMemoryStore) GetConversationState(userID string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	copied := state
	return &copied, nil
}

// SaveConversationState replaces the user's record.
func (s *InMemoryStore) SaveConversationState(state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.UserID] = state
	slog.Debug("InMemoryStore SaveConversationState succeeded", "userID", state.UserID, "mode", state.Mode)
	return nil
}

// DeleteConversationState removes the user's record.
func (s *InMemoryStore) DeleteConversationState(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	slog.Debug("InMemoryStore DeleteConversationState succeeded", "userID", userID)
	return nil
}

// AddInteraction appends a telemetry interaction.
func (s *InMemoryStore) AddInteraction(interaction models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = append(s.interactions, interaction)
	slog.Debug("InMemoryStore AddInteraction succeeded", "userID", interaction.UserID, "type", interaction.Type)
	return nil
}

// GetInteractions returns the interactions recorded for a user in insertion order.
func (s *InMemoryStore) GetInteractions(userID string) ([]models.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Interaction
	for _, it := range s.interactions {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
