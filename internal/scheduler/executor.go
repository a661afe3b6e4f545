package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stagehand/internal/bus"
	"stagehand/internal/encoder"
	"stagehand/internal/logging"
	"stagehand/internal/services"
	"stagehand/internal/services/obs"
	"stagehand/internal/store"
)

// Default scenes when an action carries no payload.
const (
	DefaultStartScene = "intro"
	DefaultLiveScene  = "live"
)

// ActionStore is the slice of persistence the executor needs.
type ActionStore interface {
	RemoveAction(ctx context.Context, id string) (bool, error)
}

// Executor interprets fired actions and drives the encoder gateway.
type Executor struct {
	gateway *encoder.Gateway
	actions ActionStore
	events  *bus.Bus
	logger  *slog.Logger
	now     func() time.Time
}

// NewExecutor wires the executor to its gateway, store, and event bus.
func NewExecutor(gateway *encoder.Gateway, actions ActionStore, events *bus.Bus, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		gateway: gateway,
		actions: actions,
		events:  events,
		logger:  logging.NewComponentLogger(logger, "executor"),
		now:     time.Now,
	}
}

// Execute dispatches on the action's kind. Known kinds route through the
// gateway's retrying connector; the persisted action is removed and an
// action_executed event emitted regardless of encoder outcome, since the
// timer has already fired and must never replay. Unknown kinds log a warning
// and emit nothing.
func (e *Executor) Execute(ctx context.Context, action store.Action) {
	ctx = services.WithBroadcastID(ctx, action.BroadcastID)
	ctx = services.WithActionID(ctx, action.ID)
	logger := logging.WithContext(ctx, e.logger).With(
		logging.String(logging.FieldActionType, string(action.Kind)))

	switch action.Kind {
	case store.ActionStart:
		scene := action.Payload.SceneName
		if scene == "" {
			scene = DefaultStartScene
		}
		e.gateway.WithEncoder(ctx, "action-start", func(client obs.Client) error {
			if err := client.SetScene(ctx, scene); err != nil {
				return err
			}
			return client.StartStream(ctx)
		})
	case store.ActionSetScene:
		scene := action.Payload.SceneName
		if scene == "" {
			scene = DefaultLiveScene
		}
		e.gateway.WithEncoder(ctx, "action-set-scene", func(client obs.Client) error {
			return client.SetScene(ctx, scene)
		})
	case store.ActionEnd:
		e.gateway.WithEncoder(ctx, "action-end", func(client obs.Client) error {
			return client.StopStream(ctx)
		})
	default:
		// Left in place for a future binary that understands the kind.
		logger.Warn("unknown action kind, ignoring")
		return
	}

	e.remove(ctx, action, logger)
	logger.Info("action executed")
	if e.events != nil {
		e.events.Publish(bus.LogLine{
			Component: "executor",
			Message:   fmt.Sprintf("job %q triggered", action.ID),
			At:        e.now().UTC(),
		})
		e.events.Publish(bus.ActionExecuted{
			ActionID:    action.ID,
			BroadcastID: action.BroadcastID,
			Kind:        string(action.Kind),
			At:          e.now().UTC(),
		})
	}
}

func (e *Executor) remove(ctx context.Context, action store.Action, logger *slog.Logger) {
	if e.actions == nil {
		return
	}
	if _, err := e.actions.RemoveAction(ctx, action.ID); err != nil {
		logger.Error("failed to remove executed action", logging.Error(err))
	}
}
