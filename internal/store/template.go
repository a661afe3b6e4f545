package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveTemplate overwrites the single global flow template.
func (s *Store) SaveTemplate(ctx context.Context, tmpl *Template) error {
	if tmpl == nil {
		return errors.New("template is nil")
	}
	tmpl.UpdatedAt = time.Now().UTC()
	steps, err := json.Marshal(tmpl.Steps)
	if err != nil {
		return fmt.Errorf("marshal template steps: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO flow_template (id, base_time, updated_at, steps_json)
         VALUES (1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             base_time = excluded.base_time,
             updated_at = excluded.updated_at,
             steps_json = excluded.steps_json`,
		formatTime(tmpl.BaseTime),
		formatTime(tmpl.UpdatedAt),
		string(steps),
	)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// GetTemplate loads the global flow template. Returns ErrNotFound when no
// template has ever been saved.
func (s *Store) GetTemplate(ctx context.Context) (*Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT base_time, updated_at, steps_json FROM flow_template WHERE id = 1`)

	var (
		baseRaw    string
		updatedRaw string
		stepsJSON  string
	)
	if err := row.Scan(&baseRaw, &updatedRaw, &stepsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}

	tmpl := &Template{}
	base, err := parseTimeString(baseRaw)
	if err != nil {
		return nil, fmt.Errorf("parse template base time: %w", err)
	}
	tmpl.BaseTime = base
	if updated, err := parseTimeString(updatedRaw); err == nil {
		tmpl.UpdatedAt = updated
	}
	if err := json.Unmarshal([]byte(stepsJSON), &tmpl.Steps); err != nil {
		return nil, fmt.Errorf("decode template steps: %w", err)
	}
	return tmpl, nil
}
