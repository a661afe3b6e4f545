// Package recurrence rolls a recurring broadcast forward when its end action
// fires: it computes the next calendar occurrence, creates the next remote
// broadcast, re-applies the flow template, and migrates the rule to the new
// broadcast id.
package recurrence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stagehand/internal/bus"
	"stagehand/internal/flow"
	"stagehand/internal/logging"
	"stagehand/internal/services"
	"stagehand/internal/services/youtube"
	"stagehand/internal/store"
)

// ErrNoDays is returned when a rule has an empty day-of-week set.
var ErrNoDays = errors.New("recurrence rule has no days configured")

// Store is the persistence surface the engine needs.
type Store interface {
	GetRule(ctx context.Context, broadcastID string) (*store.Rule, error)
	MigrateRule(ctx context.Context, oldBroadcastID, newBroadcastID string, newBaseTime time.Time) error
	UpsertAction(ctx context.Context, action *store.Action) error
}

// Engine reacts to ended recurring broadcasts.
type Engine struct {
	store  Store
	client youtube.Client
	flow   *flow.Engine
	armer  flow.Armer
	events *bus.Bus
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// Option adjusts engine behavior.
type Option func(*Engine)

// WithNowFunc pins the engine's clock, for tests.
func WithNowFunc(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// New constructs a recurrence engine.
func New(st Store, client youtube.Client, flowEngine *flow.Engine, armer flow.Armer, events *bus.Bus, loc *time.Location, logger *slog.Logger, opts ...Option) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	engine := &Engine{
		store:  st,
		client: client,
		flow:   flowEngine,
		armer:  armer,
		events: events,
		loc:    loc,
		logger: logging.NewComponentLogger(logger, "recurrence"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// NextOccurrence returns the first instant strictly after now whose weekday
// is in days, carrying base's local time-of-day. The search starts at
// tomorrow, so a stream ending early on its own weekday never reschedules for
// later the same day.
func NextOccurrence(now, base time.Time, days []time.Weekday, loc *time.Location) (time.Time, error) {
	if len(days) == 0 {
		return time.Time{}, ErrNoDays
	}
	allowed := make(map[time.Weekday]struct{}, len(days))
	for _, day := range days {
		allowed[day] = struct{}{}
	}

	baseLocal := base.In(loc)
	candidate := now.In(loc).AddDate(0, 0, 1)
	for i := 0; i < 7; i++ {
		if _, ok := allowed[candidate.Weekday()]; ok {
			next := time.Date(
				candidate.Year(), candidate.Month(), candidate.Day(),
				baseLocal.Hour(), baseLocal.Minute(), baseLocal.Second(), 0,
				loc,
			)
			return next.UTC(), nil
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return time.Time{}, ErrNoDays
}

// HandleStreamEnded is invoked when an end action executes. Broadcasts
// without a recurring rule are ignored. Failures are logged and surface as an
// error, but nothing retries: the operator reschedules manually if the
// rollover misses.
func (e *Engine) HandleStreamEnded(ctx context.Context, broadcastID string) error {
	ctx = services.WithBroadcastID(ctx, broadcastID)
	logger := logging.WithContext(ctx, e.logger)

	rule, err := e.store.GetRule(ctx, broadcastID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load recurrence rule: %w", err)
	}
	if !rule.Recurring {
		return nil
	}

	nextStart, err := NextOccurrence(e.now(), rule.BaseTime, rule.Days, e.loc)
	if err != nil {
		logger.Error("cannot compute next occurrence", logging.Error(err))
		return err
	}

	created, err := e.client.CreateBroadcast(ctx, youtube.CreateRequest{
		Title:       rule.Meta.Title,
		Description: rule.Meta.Description,
		Privacy:     rule.Meta.Privacy,
		Latency:     rule.Meta.Latency,
		StartAt:     nextStart,
	})
	if err != nil {
		logger.Error("failed to create next occurrence", logging.Error(err))
		return fmt.Errorf("create next broadcast: %w", err)
	}
	logger.Info("next occurrence created",
		logging.String("next_broadcast_id", created.ID),
		logging.Time("start_at", nextStart))

	if _, err := e.client.BindToIngest(ctx, created.ID); err != nil {
		logger.Error("failed to bind next occurrence", logging.Error(err))
		return fmt.Errorf("bind next broadcast: %w", err)
	}

	if rule.Meta.ThumbPath != "" {
		if err := e.client.SetThumbnail(ctx, created.ID, rule.Meta.ThumbPath); err != nil {
			// Thumbnail loss is cosmetic; the occurrence still happens.
			logger.Warn("thumbnail upload failed", logging.Error(err))
		}
	}

	actions, err := e.flow.ApplyCalendar(ctx, created.ID, nextStart)
	if err != nil {
		logger.Error("failed to apply flow template", logging.Error(err))
		return fmt.Errorf("apply flow template: %w", err)
	}
	if !hasStart(actions) {
		if err := e.synthesizeStart(ctx, created.ID, nextStart); err != nil {
			return err
		}
	}

	if err := e.store.MigrateRule(ctx, broadcastID, created.ID, nextStart); err != nil {
		logger.Error("failed to migrate recurrence rule", logging.Error(err))
		return fmt.Errorf("migrate rule: %w", err)
	}

	if e.events != nil {
		e.events.Publish(bus.BroadcastScheduled{
			BroadcastID: created.ID,
			Title:       rule.Meta.Title,
			StartAt:     nextStart,
			Recurring:   true,
		})
	}
	return nil
}

// synthesizeStart covers templates with zero steps or no start step: the
// engine never invents a start, so its caller does.
func (e *Engine) synthesizeStart(ctx context.Context, broadcastID string, startAt time.Time) error {
	action := store.Action{
		ID:          uuid.NewString(),
		BroadcastID: broadcastID,
		Kind:        store.ActionStart,
		At:          startAt.UTC(),
	}
	if err := e.store.UpsertAction(ctx, &action); err != nil {
		return fmt.Errorf("synthesize start action: %w", err)
	}
	if e.armer != nil {
		e.armer.Schedule(action)
	}
	return nil
}

func hasStart(actions []store.Action) bool {
	for _, action := range actions {
		if action.Kind == store.ActionStart {
			return true
		}
	}
	return false
}
