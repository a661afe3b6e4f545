// Package flow derives the reusable action template from a broadcast's
// concrete timeline and materializes it back onto new broadcasts. One global
// template exists; whichever broadcast's actions were edited last defines the
// flow the next stream inherits.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"stagehand/internal/logging"
	"stagehand/internal/store"
)

// Store is the slice of persistence the engine needs.
type Store interface {
	ActionsForBroadcast(ctx context.Context, broadcastID string) ([]*store.Action, error)
	UpsertAction(ctx context.Context, action *store.Action) error
	SaveTemplate(ctx context.Context, tmpl *store.Template) error
	GetTemplate(ctx context.Context) (*store.Template, error)
}

// Armer arms a one-shot timer for a freshly materialized action.
type Armer interface {
	Schedule(action store.Action)
}

// Engine recomputes and applies the global flow template.
type Engine struct {
	store  Store
	armer  Armer
	loc    *time.Location
	logger *slog.Logger
}

// New constructs a flow engine. Day-aware math runs in loc; a nil loc means
// UTC.
func New(st Store, armer Armer, loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:  st,
		armer:  armer,
		loc:    loc,
		logger: logging.NewComponentLogger(logger, "flow"),
	}
}

// Recompute rebuilds the global template from one broadcast's actions. The
// base time prefers the start action, falling back to the chronologically
// earliest action. A broadcast with no actions leaves the template untouched.
func (e *Engine) Recompute(ctx context.Context, broadcastID string) error {
	actions, err := e.store.ActionsForBroadcast(ctx, broadcastID)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return nil
	}

	base := actions[0].At
	for _, action := range actions {
		if action.At.Before(base) {
			base = action.At
		}
	}
	for _, action := range actions {
		if action.Kind == store.ActionStart {
			base = action.At
			break
		}
	}

	steps := make([]store.Step, 0, len(actions))
	for _, action := range actions {
		offset := int64(math.Round(action.At.Sub(base).Seconds()))
		if offset < 0 {
			offset = 0
		}
		steps = append(steps, store.Step{
			OffsetSec:  offset,
			Kind:       action.Kind,
			Payload:    action.Payload,
			OriginalAt: action.At.UTC(),
		})
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].OffsetSec < steps[j].OffsetSec })

	tmpl := &store.Template{BaseTime: base.UTC(), Steps: steps}
	if err := e.store.SaveTemplate(ctx, tmpl); err != nil {
		return err
	}
	e.logger.Info("flow template recomputed",
		logging.String(logging.FieldBroadcastID, broadcastID),
		logging.Int("steps", len(steps)))
	return nil
}

// Apply materializes the template onto a broadcast linearly: each step fires
// at newBase plus its offset. It returns the created actions; an empty or
// missing template yields none, and the caller is responsible for
// synthesizing a default start action in that case.
func (e *Engine) Apply(ctx context.Context, broadcastID string, newBase time.Time) ([]store.Action, error) {
	tmpl, err := e.loadTemplate(ctx)
	if err != nil || tmpl == nil {
		return nil, err
	}
	actions := make([]store.Action, 0, len(tmpl.Steps))
	for _, step := range tmpl.Steps {
		at := newBase.Add(time.Duration(step.OffsetSec) * time.Second)
		actions = append(actions, e.buildAction(broadcastID, step, at))
	}
	return e.persist(ctx, broadcastID, actions)
}

// ApplyCalendar materializes the template preserving day-of-week structure:
// each step lands the same number of calendar days after the new base as the
// original action fell after the original base, at the original local
// time-of-day. This keeps multi-day flows aligned to "same time next day"
// across daylight-saving shifts where a raw second offset would drift.
func (e *Engine) ApplyCalendar(ctx context.Context, broadcastID string, newBase time.Time) ([]store.Action, error) {
	tmpl, err := e.loadTemplate(ctx)
	if err != nil || tmpl == nil {
		return nil, err
	}
	actions := make([]store.Action, 0, len(tmpl.Steps))
	for _, step := range tmpl.Steps {
		original := step.OriginalAt
		if original.IsZero() {
			original = tmpl.BaseTime.Add(time.Duration(step.OffsetSec) * time.Second)
		}
		at := e.dayAwareTime(tmpl.BaseTime, original, newBase)
		actions = append(actions, e.buildAction(broadcastID, step, at))
	}
	return e.persist(ctx, broadcastID, actions)
}

// dayAwareTime computes the calendar-day delta between the original base and
// the original action (midnight-normalized in the schedule zone), then
// applies that delta to the new base's date while copying the original
// time-of-day verbatim.
func (e *Engine) dayAwareTime(base, original, newBase time.Time) time.Time {
	baseLocal := base.In(e.loc)
	origLocal := original.In(e.loc)
	newLocal := newBase.In(e.loc)

	baseMidnight := time.Date(baseLocal.Year(), baseLocal.Month(), baseLocal.Day(), 0, 0, 0, 0, e.loc)
	origMidnight := time.Date(origLocal.Year(), origLocal.Month(), origLocal.Day(), 0, 0, 0, 0, e.loc)
	dayDelta := int(math.Round(origMidnight.Sub(baseMidnight).Hours() / 24))

	return time.Date(
		newLocal.Year(), newLocal.Month(), newLocal.Day()+dayDelta,
		origLocal.Hour(), origLocal.Minute(), origLocal.Second(), origLocal.Nanosecond(),
		e.loc,
	).UTC()
}

func (e *Engine) buildAction(broadcastID string, step store.Step, at time.Time) store.Action {
	return store.Action{
		ID:          uuid.NewString(),
		BroadcastID: broadcastID,
		Kind:        step.Kind,
		At:          at.UTC(),
		Payload:     step.Payload,
	}
}

func (e *Engine) persist(ctx context.Context, broadcastID string, actions []store.Action) ([]store.Action, error) {
	for i := range actions {
		if err := e.store.UpsertAction(ctx, &actions[i]); err != nil {
			return actions[:i], err
		}
		if e.armer != nil {
			e.armer.Schedule(actions[i])
		}
	}
	if len(actions) > 0 {
		e.logger.Info("flow template applied",
			logging.String(logging.FieldBroadcastID, broadcastID),
			logging.Int("actions", len(actions)))
	}
	return actions, nil
}

func (e *Engine) loadTemplate(ctx context.Context) (*store.Template, error) {
	tmpl, err := e.store.GetTemplate(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}
