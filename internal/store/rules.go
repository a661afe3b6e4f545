package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const ruleColumns = "broadcast_id, recurring, days, base_time, title, description, privacy, latency, thumb_path, created_at, updated_at"

// UpsertRule inserts or replaces the recurrence rule for a broadcast.
func (s *Store) UpsertRule(ctx context.Context, rule *Rule) error {
	if rule == nil {
		return errors.New("rule is nil")
	}
	if rule.BroadcastID == "" {
		return errors.New("rule broadcast id is empty")
	}
	now := time.Now().UTC()
	created := rule.CreatedAt
	if created.IsZero() {
		created = now
	}
	rule.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO recurrence_rules (
             broadcast_id, recurring, days, base_time,
             title, description, privacy, latency, thumb_path,
             created_at, updated_at
         ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(broadcast_id) DO UPDATE SET
             recurring = excluded.recurring,
             days = excluded.days,
             base_time = excluded.base_time,
             title = excluded.title,
             description = excluded.description,
             privacy = excluded.privacy,
             latency = excluded.latency,
             thumb_path = excluded.thumb_path,
             updated_at = excluded.updated_at`,
		rule.BroadcastID,
		boolToInt(rule.Recurring),
		encodeDays(rule.Days),
		formatTime(rule.BaseTime),
		nullableString(rule.Meta.Title),
		nullableString(rule.Meta.Description),
		nullableString(rule.Meta.Privacy),
		nullableString(rule.Meta.Latency),
		nullableString(rule.Meta.ThumbPath),
		formatTime(created),
		formatTime(rule.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert rule: %w", err)
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = created
	}
	return nil
}

// GetRule fetches the recurrence rule for a broadcast. Returns ErrNotFound
// when no rule exists.
func (s *Store) GetRule(ctx context.Context, broadcastID string) (*Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM recurrence_rules WHERE broadcast_id = ?`, broadcastID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

// ListRules returns every recurrence rule ordered by broadcast id.
func (s *Store) ListRules(ctx context.Context) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM recurrence_rules ORDER BY broadcast_id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// RemoveRule deletes the rule keyed by broadcast id.
func (s *Store) RemoveRule(ctx context.Context, broadcastID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE broadcast_id = ?`, broadcastID)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MigrateRule moves a rule from one broadcast id to another in a single
// transaction, carrying meta, days, and the recurring flag forward.
func (s *Store) MigrateRule(ctx context.Context, oldBroadcastID, newBroadcastID string, newBaseTime time.Time) error {
	if oldBroadcastID == "" || newBroadcastID == "" {
		return errors.New("migrate rule: empty broadcast id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM recurrence_rules WHERE broadcast_id = ?`, oldBroadcastID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read rule for migration: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE broadcast_id = ?`, oldBroadcastID); err != nil {
		return fmt.Errorf("delete old rule: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO recurrence_rules (
             broadcast_id, recurring, days, base_time,
             title, description, privacy, latency, thumb_path,
             created_at, updated_at
         ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newBroadcastID,
		boolToInt(rule.Recurring),
		encodeDays(rule.Days),
		formatTime(newBaseTime),
		nullableString(rule.Meta.Title),
		nullableString(rule.Meta.Description),
		nullableString(rule.Meta.Privacy),
		nullableString(rule.Meta.Latency),
		nullableString(rule.Meta.ThumbPath),
		formatTime(rule.CreatedAt),
		formatTime(now),
	); err != nil {
		return fmt.Errorf("insert migrated rule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rule migration: %w", err)
	}
	return nil
}

func scanRule(scanner interface{ Scan(dest ...any) error }) (*Rule, error) {
	var (
		broadcastID string
		recurring   sql.NullInt64
		daysRaw     sql.NullString
		baseRaw     string
		title       sql.NullString
		description sql.NullString
		privacy     sql.NullString
		latency     sql.NullString
		thumbPath   sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&broadcastID,
		&recurring,
		&daysRaw,
		&baseRaw,
		&title,
		&description,
		&privacy,
		&latency,
		&thumbPath,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rule := &Rule{
		BroadcastID: broadcastID,
		Recurring:   recurring.Valid && recurring.Int64 != 0,
		Days:        decodeDays(daysRaw.String),
		Meta: Meta{
			Title:       title.String,
			Description: description.String,
			Privacy:     privacy.String,
			Latency:     latency.String,
			ThumbPath:   thumbPath.String,
		},
	}
	base, err := parseTimeString(baseRaw)
	if err != nil {
		return nil, fmt.Errorf("parse rule base time: %w", err)
	}
	rule.BaseTime = base
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rule.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rule.UpdatedAt = updated
	}
	return rule, nil
}
