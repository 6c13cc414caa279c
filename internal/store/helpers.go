package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/calcmentor/CalcMentor/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalExercise serializes an exercise for a nullable JSON column.
func marshalExercise(ex *models.Exercise) (interface{}, error) {
	if ex == nil {
		return nil, nil
	}
	b, err := json.Marshal(ex)
	if err != nil {
		return nil, fmt.Errorf("marshal exercise failed: %w", err)
	}
	return string(b), nil
}

// marshalInteractionData serializes interaction data for a nullable JSON column.
func marshalInteractionData(data map[string]string) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal interaction data failed: %w", err)
	}
	return string(b), nil
}

// scanInteraction scans an Interaction from sql.Rows.
func scanInteraction(rows *sql.Rows) (models.Interaction, error) {
	var it models.Interaction
	var dataJSON sql.NullString
	if err := rows.Scan(&it.ID, &it.Type, &it.UserID, &it.Timestamp, &dataJSON); err != nil {
		return it, fmt.Errorf("scan interaction failed: %w", err)
	}
	if dataJSON.Valid && dataJSON.String != "" {
		it.Data = make(map[string]string)
		if err := json.Unmarshal([]byte(dataJSON.String), &it.Data); err != nil {
			return it, fmt.Errorf("unmarshal interaction data failed: %w", err)
		}
	}
	return it, nil
}
