// Package store provides storage backends for CalcMentor.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/calcmentor/CalcMentor/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// GetConversationState retrieves the stored record for a user, or (nil, nil).
// A persisted mode outside the known set is a load error.
func (s *PostgresStore) GetConversationState(userID string) (*models.ConversationState, error) {
	query := `SELECT user_id, mode, last_topic, current_exercise, created_at, updated_at
			  FROM conversation_states WHERE user_id = $1`

	var state models.ConversationState
	var mode string
	var lastTopic, exerciseJSON sql.NullString

	err := s.db.QueryRow(query, userID).Scan(
		&state.UserID, &mode, &lastTopic, &exerciseJSON, &state.CreatedAt, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetConversationState not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetConversationState failed", "error", err, "userID", userID)
		return nil, err
	}

	state.Mode, err = models.ParseMode(mode)
	if err != nil {
		slog.Error("PostgresStore GetConversationState corrupt mode", "error", err, "userID", userID)
		return nil, fmt.Errorf("corrupt conversation state for %s: %w", userID, err)
	}
	state.LastTopic = lastTopic.String
	if exerciseJSON.Valid && exerciseJSON.String != "" {
		var ex models.Exercise
		if err := json.Unmarshal([]byte(exerciseJSON.String), &ex); err != nil {
			slog.Error("PostgresStore GetConversationState exercise unmarshal failed", "error", err, "userID", userID)
			return nil, fmt.Errorf("corrupt exercise for %s: %w", userID, err)
		}
		state.CurrentExercise = &ex
	}

	slog.Debug("PostgresStore GetConversationState found", "userID", userID, "mode", state.Mode)
	return &state, nil
}

// SaveConversationState stores or replaces the whole record for a user.
func (s *PostgresStore) SaveConversationState(state models.ConversationState) error {
	exerciseJSON, err := marshalExercise(state.CurrentExercise)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState marshal failed", "error", err, "userID", state.UserID)
		return err
	}

	query := `
		INSERT INTO conversation_states (user_id, mode, last_topic, current_exercise, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			last_topic = EXCLUDED.last_topic,
			current_exercise = EXCLUDED.current_exercise,
			updated_at = EXCLUDED.updated_at`
	_, err = s.db.Exec(query, state.UserID, string(state.Mode), nilIfEmpty(state.LastTopic),
		exerciseJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveConversationState failed", "error", err, "userID", state.UserID)
		return err
	}
	slog.Debug("PostgresStore SaveConversationState succeeded", "userID", state.UserID, "mode", state.Mode)
	return nil
}

// DeleteConversationState removes the record for a user.
func (s *PostgresStore) DeleteConversationState(userID string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_states WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore DeleteConversationState failed", "error", err, "userID", userID)
		return err
	}
	slog.Debug("PostgresStore DeleteConversationState succeeded", "userID", userID)
	return nil
}

// AddInteraction appends a telemetry interaction.
func (s *PostgresStore) AddInteraction(interaction models.Interaction) error {
	dataJSON, err := marshalInteractionData(interaction.Data)
	if err != nil {
		slog.Error("PostgresStore AddInteraction marshal failed", "error", err, "userID", interaction.UserID)
		return err
	}

	_, err = s.db.Exec(`INSERT INTO interactions (id, type, user_id, timestamp, data) VALUES ($1, $2, $3, $4, $5)`,
		interaction.ID, interaction.Type, interaction.UserID, interaction.Timestamp, dataJSON)
	if err != nil {
		slog.Error("PostgresStore AddInteraction failed", "error", err, "userID", interaction.UserID, "type", interaction.Type)
		return fmt.Errorf("failed to insert interaction for %s: %w", interaction.UserID, err)
	}
	slog.Debug("PostgresStore AddInteraction succeeded", "userID", interaction.UserID, "type", interaction.Type)
	return nil
}

// GetInteractions returns all interactions for a user, oldest first.
func (s *PostgresStore) GetInteractions(userID string) ([]models.Interaction, error) {
	rows, err := s.db.Query(`SELECT id, type, user_id, timestamp, data FROM interactions WHERE user_id = $1 ORDER BY timestamp`, userID)
	if err != nil {
		slog.Error("PostgresStore GetInteractions query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		it, err := scanInteraction(rows)
		if err != nil {
			slog.Error("PostgresStore GetInteractions scan failed", "error", err, "userID", userID)
			return nil, err
		}
		interactions = append(interactions, it)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetInteractions rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate interaction rows: %w", err)
	}
	slog.Debug("PostgresStore GetInteractions succeeded", "userID", userID, "count", len(interactions))
	return interactions, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
