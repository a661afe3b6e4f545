package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const actionColumns = "id, broadcast_id, kind, fire_at, scene_name, created_at, updated_at"

// UpsertAction inserts the action, replacing any existing row with the same id.
func (s *Store) UpsertAction(ctx context.Context, action *Action) error {
	if action == nil {
		return errors.New("action is nil")
	}
	if action.ID == "" {
		return errors.New("action id is empty")
	}
	if !KnownKind(action.Kind) {
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}
	now := time.Now().UTC()
	created := action.CreatedAt
	if created.IsZero() {
		created = now
	}
	action.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO actions (id, broadcast_id, kind, fire_at, scene_name, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             broadcast_id = excluded.broadcast_id,
             kind = excluded.kind,
             fire_at = excluded.fire_at,
             scene_name = excluded.scene_name,
             updated_at = excluded.updated_at`,
		action.ID,
		action.BroadcastID,
		string(action.Kind),
		formatTime(action.At),
		nullableString(action.Payload.SceneName),
		formatTime(created),
		formatTime(action.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert action: %w", err)
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = created
	}
	return nil
}

// GetAction fetches an action by id. Returns ErrNotFound when absent.
func (s *Store) GetAction(ctx context.Context, id string) (*Action, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM actions WHERE id = ?`, id)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	return action, nil
}

// RemoveAction deletes an action by id. Removing an unknown id is a no-op.
func (s *Store) RemoveAction(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete action: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListActions returns every persisted action ordered by fire time.
func (s *Store) ListActions(ctx context.Context) ([]*Action, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+actionColumns+` FROM actions ORDER BY fire_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()
	return collectActions(rows)
}

// ActionsForBroadcast returns the actions belonging to one broadcast ordered
// by fire time.
func (s *Store) ActionsForBroadcast(ctx context.Context, broadcastID string) ([]*Action, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+actionColumns+` FROM actions WHERE broadcast_id = ? ORDER BY fire_at, id`,
		broadcastID,
	)
	if err != nil {
		return nil, fmt.Errorf("actions for broadcast: %w", err)
	}
	defer rows.Close()
	return collectActions(rows)
}

// RemoveActionsForBroadcast deletes all actions owned by the broadcast and
// reports how many rows were removed.
func (s *Store) RemoveActionsForBroadcast(ctx context.Context, broadcastID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE broadcast_id = ?`, broadcastID)
	if err != nil {
		return 0, fmt.Errorf("delete broadcast actions: %w", err)
	}
	return res.RowsAffected()
}

func collectActions(rows *sql.Rows) ([]*Action, error) {
	var actions []*Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func scanAction(scanner interface{ Scan(dest ...any) error }) (*Action, error) {
	var (
		id          string
		broadcastID string
		kind        string
		fireAtRaw   string
		sceneName   sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &broadcastID, &kind, &fireAtRaw, &sceneName, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	action := &Action{
		ID:          id,
		BroadcastID: broadcastID,
		Kind:        ActionKind(kind),
		Payload:     Payload{SceneName: sceneName.String},
	}
	fireAt, err := parseTimeString(fireAtRaw)
	if err != nil {
		return nil, fmt.Errorf("parse action fire time: %w", err)
	}
	action.At = fireAt
	if created, err := parseTimeString(createdRaw.String); err == nil {
		action.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		action.UpdatedAt = updated
	}
	return action, nil
}
