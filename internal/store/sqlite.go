// Package store provides storage backends for CalcMentor.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/calcmentor/CalcMentor/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; its directory is
// created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetConversationState retrieves the stored record for a user, or (nil, nil).
// A persisted mode outside the known set is a load error.
func (s *SQLiteStore) GetConversationState(userID string) (*models.ConversationState, error) {
	query := `SELECT user_id, mode, last_topic, current_exercise, created_at, updated_at
			  FROM conversation_states WHERE user_id = ?`

	var state models.ConversationState
	var mode string
	var lastTopic, exerciseJSON sql.NullString

	err := s.db.QueryRow(query, userID).Scan(
		&state.UserID, &mode, &lastTopic, &exerciseJSON, &state.CreatedAt, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetConversationState not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetConversationState failed", "error", err, "userID", userID)
		return nil, err
	}

	state.Mode, err = models.ParseMode(mode)
	if err != nil {
		slog.Error("SQLiteStore GetConversationState corrupt mode", "error", err, "userID", userID)
		return nil, fmt.Errorf("corrupt conversation state for %s: %w", userID, err)
	}
	state.LastTopic = lastTopic.String
	if exerciseJSON.Valid && exerciseJSON.String != "" {
		var ex models.Exercise
		if err := json.Unmarshal([]byte(exerciseJSON.String), &ex); err != nil {
			slog.Error("SQLiteStore GetConversationState exercise unmarshal failed", "error", err, "userID", userID)
			return nil, fmt.Errorf("corrupt exercise for %s: %w", userID, err)
		}
		state.CurrentExercise = &ex
	}

	slog.Debug("SQLiteStore GetConversationState found", "userID", userID, "mode", state.Mode)
	return &state, nil
}

// SaveConversationState stores or replaces the whole record for a user.
func (s *SQLiteStore) SaveConversationState(state models.ConversationState) error {
	exerciseJSON, err := marshalExercise(state.CurrentExercise)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState marshal failed", "error", err, "userID", state.UserID)
		return err
	}

	query := `
		INSERT OR REPLACE INTO conversation_states (user_id, mode, last_topic, current_exercise, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, state.UserID, string(state.Mode), nilIfEmpty(state.LastTopic),
		exerciseJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveConversationState failed", "error", err, "userID", state.UserID)
		return err
	}
	slog.Debug("SQLiteStore SaveConversationState succeeded", "userID", state.UserID, "mode", state.Mode)
	return nil
}

// DeleteConversationState removes the record for a user.
func (s *SQLiteStore) DeleteConversationState(userID string) error {
	_, err := s.db.Exec(`DELETE FROM conversation_states WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore DeleteConversationState failed", "error", err, "userID", userID)
		return err
	}
	slog.Debug("SQLiteStore DeleteConversationState succeeded", "userID", userID)
	return nil
}

// AddInteraction appends a telemetry interaction.
func (s *SQLiteStore) AddInteraction(interaction models.Interaction) error {
	dataJSON, err := marshalInteractionData(interaction.Data)
	if err != nil {
		slog.Error("SQLiteStore AddInteraction marshal failed", "error", err, "userID", interaction.UserID)
		return err
	}

	_, err = s.db.Exec(`INSERT INTO interactions (id, type, user_id, timestamp, data) VALUES (?, ?, ?, ?, ?)`,
		interaction.ID, interaction.Type, interaction.UserID, interaction.Timestamp, dataJSON)
	if err != nil {
		slog.Error("SQLiteStore AddInteraction failed", "error", err, "userID", interaction.UserID, "type", interaction.Type)
		return fmt.Errorf("failed to insert interaction for %s: %w", interaction.UserID, err)
	}
	slog.Debug("SQLiteStore AddInteraction succeeded", "userID", interaction.UserID, "type", interaction.Type)
	return nil
}

// GetInteractions returns all interactions for a user, oldest first.
func (s *SQLiteStore) GetInteractions(userID string) ([]models.Interaction, error) {
	rows, err := s.db.Query(`SELECT id, type, user_id, timestamp, data FROM interactions WHERE user_id = ? ORDER BY timestamp`, userID)
	if err != nil {
		slog.Error("SQLiteStore GetInteractions query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		it, err := scanInteraction(rows)
		if err != nil {
			slog.Error("SQLiteStore GetInteractions scan failed", "error", err, "userID", userID)
			return nil, err
		}
		interactions = append(interactions, it)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetInteractions rows iteration failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to iterate interaction rows: %w", err)
	}
	slog.Debug("SQLiteStore GetInteractions succeeded", "userID", userID, "count", len(interactions))
	return interactions, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
