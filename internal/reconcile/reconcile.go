// Package reconcile diffs locally persisted actions and recurrence rules
// against the platform's known broadcast ids and purges entries whose
// broadcast exists in neither the scheduled nor the live set.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"stagehand/internal/logging"
	"stagehand/internal/services/youtube"
	"stagehand/internal/store"
)

// Store is the persistence surface the reconciler needs.
type Store interface {
	ListActions(ctx context.Context) ([]*store.Action, error)
	RemoveAction(ctx context.Context, id string) (bool, error)
	ListRules(ctx context.Context) ([]*store.Rule, error)
	RemoveRule(ctx context.Context, broadcastID string) (bool, error)
}

// Canceller cancels a pending action timer.
type Canceller interface {
	Cancel(id string)
}

// Result summarizes one cleanup pass.
type Result struct {
	ValidBroadcasts int
	ActionsPurged   int
	RulesPurged     int
	ActiveFetchOK   bool
}

// Reconciler purges local state that references deleted broadcasts.
type Reconciler struct {
	store  Store
	client youtube.Client
	timers Canceller
	logger *slog.Logger
}

// New constructs a reconciler.
func New(st Store, client youtube.Client, timers Canceller, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{
		store:  st,
		client: client,
		timers: timers,
		logger: logging.NewComponentLogger(logger, "reconcile"),
	}
}

// CleanupOrphanedData fetches the scheduled and live broadcast id sets, unions
// them, and deletes any local action or rule pointing outside the union,
// cancelling timers first. A scheduled-set fetch failure aborts the pass
// outright; a live-set fetch failure only narrows it (treated as empty, with
// a warning), since purging based on a partial picture must never delete
// state for a broadcast that is actually on air.
func (r *Reconciler) CleanupOrphanedData(ctx context.Context) (Result, error) {
	result := Result{}

	scheduled, err := r.client.ListScheduled(ctx)
	if err != nil {
		r.logger.Error("scheduled broadcast fetch failed, aborting cleanup", logging.Error(err))
		return result, fmt.Errorf("list scheduled broadcasts: %w", err)
	}

	valid := make(map[string]struct{})
	for _, broadcast := range scheduled {
		valid[broadcast.ID] = struct{}{}
	}

	active, err := r.client.ListActive(ctx)
	if err != nil {
		r.logger.Warn("active broadcast fetch failed, continuing with scheduled set only", logging.Error(err))
	} else {
		result.ActiveFetchOK = true
		for _, broadcast := range active {
			valid[broadcast.ID] = struct{}{}
		}
	}
	result.ValidBroadcasts = len(valid)

	actions, err := r.store.ListActions(ctx)
	if err != nil {
		return result, fmt.Errorf("list actions: %w", err)
	}
	for _, action := range actions {
		if _, ok := valid[action.BroadcastID]; ok {
			continue
		}
		if r.timers != nil {
			r.timers.Cancel(action.ID)
		}
		if _, err := r.store.RemoveAction(ctx, action.ID); err != nil {
			return result, fmt.Errorf("remove orphaned action %s: %w", action.ID, err)
		}
		result.ActionsPurged++
		r.logger.Info("purged orphaned action",
			logging.String(logging.FieldActionID, action.ID),
			logging.String(logging.FieldBroadcastID, action.BroadcastID))
	}

	rules, err := r.store.ListRules(ctx)
	if err != nil {
		return result, fmt.Errorf("list rules: %w", err)
	}
	for _, rule := range rules {
		if _, ok := valid[rule.BroadcastID]; ok {
			continue
		}
		if _, err := r.store.RemoveRule(ctx, rule.BroadcastID); err != nil {
			return result, fmt.Errorf("remove orphaned rule %s: %w", rule.BroadcastID, err)
		}
		result.RulesPurged++
		r.logger.Info("purged orphaned recurrence rule",
			logging.String(logging.FieldBroadcastID, rule.BroadcastID))
	}

	return result, nil
}
