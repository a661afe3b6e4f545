package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stagehand/internal/bus"
	"stagehand/internal/clock"
	"stagehand/internal/config"
	"stagehand/internal/encoder"
	"stagehand/internal/flow"
	"stagehand/internal/logging"
	"stagehand/internal/orchestrator"
	"stagehand/internal/reconcile"
	"stagehand/internal/recurrence"
	"stagehand/internal/scheduler"
	"stagehand/internal/services/obs"
	"stagehand/internal/services/youtube"
	"stagehand/internal/store"
	"stagehand/internal/watchdog"
)

// Deps carries the external dependencies the daemon wires together. Config,
// Store, Client, and Dialer are required; a nil Events bus and Logger fall
// back to fresh or no-op instances.
type Deps struct {
	Config *config.Config
	Store  *store.Store
	Logger *slog.Logger
	Events *bus.Bus
	Client youtube.Client
	Dialer obs.Dialer
}

// Daemon coordinates the scheduling core and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	events *bus.Bus
	client youtube.Client
	loc    *time.Location

	gateway    *encoder.Gateway
	registry   *scheduler.Registry
	executor   *scheduler.Executor
	orch       *orchestrator.Orchestrator
	flow       *flow.Engine
	recurrence *recurrence.Engine
	reconciler *reconcile.Reconciler
	clock      *clock.Driver
	watchdog   *watchdog.Watchdog
	metrics    *Metrics
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon and wires its subsystems together.
func New(deps Deps) (*Daemon, error) {
	if deps.Config == nil || deps.Store == nil || deps.Client == nil || deps.Dialer == nil {
		return nil, errors.New("daemon requires config, store, broadcast client, and encoder dialer")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = bus.New(logger)
	}

	loc, err := deps.Config.Location()
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:      deps.Config,
		store:    deps.Store,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		events:   events,
		client:   deps.Client,
		loc:      loc,
		metrics:  NewMetrics(),
		lockPath: filepath.Join(deps.Config.Paths.LogDir, "stagehandd.lock"),
	}
	d.lock = flock.New(d.lockPath)

	d.gateway = encoder.NewGateway(deps.Dialer, events, logger)
	d.executor = scheduler.NewExecutor(d.gateway, deps.Store, events, logger)
	d.registry = scheduler.NewRegistry(d.executor.Execute, logger)
	d.orch = orchestrator.New(deps.Client, logger,
		orchestrator.WithLiveAttempts(deps.Config.Schedule.GoLiveAttempts))
	d.flow = flow.New(deps.Store, d.registry, loc, logger)
	d.recurrence = recurrence.New(deps.Store, deps.Client, d.flow, d.registry, events, loc, logger)
	d.reconciler = reconcile.New(deps.Store, deps.Client, d.registry, logger)

	d.clock = clock.New(clock.Options{
		Events:       events,
		Logger:       logger,
		Timezone:     deps.Config.Schedule.Timezone,
		Heartbeat:    deps.Config.HeartbeatInterval(),
		ProbeEvery:   deps.Config.ProbeInterval(),
		CleanupEvery: deps.Config.CleanupInterval(),
		Probe:        d.gateway.ProbeOnce,
		Cleanup: func(ctx context.Context) {
			if _, err := d.Cleanup(ctx); err != nil {
				d.logger.Warn("periodic cleanup failed", logging.Error(err))
			}
		},
	})
	d.watchdog = watchdog.New(watchdog.Options{
		Events:    events,
		Logger:    logger,
		Heartbeat: deps.Config.HeartbeatInterval(),
		Grace:     deps.Config.WatchdogGrace(),
		Sample:    deps.Config.WatchdogInterval(),
		OnStale: func(ctx context.Context) {
			if err := d.clock.Restart(ctx); err != nil {
				d.logger.Error("clock restart after stale heartbeats failed", logging.Error(err))
			}
		},
	})

	api, err := newAPIServer(deps.Config, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock, re-arms persisted timers, and launches the
// background loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another stagehand daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.rearmActions(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("re-arm persisted actions: %w", err)
	}

	d.wg.Add(3)
	go func() {
		defer d.wg.Done()
		_ = d.registry.Run(d.ctx)
	}()
	go func() {
		defer d.wg.Done()
		_ = d.watchdog.Run(d.ctx)
	}()
	go func() {
		defer d.wg.Done()
		d.routeEvents(d.ctx)
	}()

	if err := d.clock.Start(d.ctx); err != nil {
		d.logger.Warn("clock driver start failed", logging.Error(err))
	}
	if err := d.api.start(d.ctx); err != nil {
		d.running.Store(true)
		d.Stop()
		return err
	}

	d.running.Store(true)
	d.logger.Info("stagehand daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background loops and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.clock.Stop()
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("stagehand daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// rearmActions schedules a timer for every persisted action. Past-due actions
// fire immediately so a daemon restart never strands a timeline mid-stream.
func (d *Daemon) rearmActions(ctx context.Context) error {
	actions, err := d.store.ListActions(ctx)
	if err != nil {
		return err
	}
	armed := 0
	for _, action := range actions {
		if !store.KnownKind(action.Kind) {
			// The write boundary rejects these; a row like this means
			// schema drift, so leave it for inspection instead of arming.
			d.logger.Warn("skipping persisted action with unknown kind",
				logging.String(logging.FieldActionID, action.ID),
				logging.String(logging.FieldActionType, string(action.Kind)))
			continue
		}
		d.registry.Schedule(*action)
		armed++
	}
	if armed > 0 {
		d.logger.Info("re-armed persisted actions", logging.Int("count", armed))
	}
	return nil
}

// Status summarizes daemon runtime state.
type Status struct {
	Running        bool
	PID            int
	Timezone       string
	ClockRunning   bool
	HeartbeatStale bool
	LastHeartbeat  time.Time
	PendingActions int
	DBPath         string
	LockFilePath   string
}

// Status reports the current runtime snapshot.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Timezone:       d.cfg.Schedule.Timezone,
		ClockRunning:   d.clock.Running(),
		HeartbeatStale: d.watchdog.Stale(),
		LastHeartbeat:  d.watchdog.LastSeen(),
		PendingActions: d.registry.Len(),
		DBPath:         d.store.Path(),
		LockFilePath:   d.lockPath,
	}
}

// ScheduleRequest describes a new stream to schedule.
type ScheduleRequest struct {
	Title       string
	Description string
	Privacy     string
	Latency     string
	StartAt     time.Time
	Recurring   bool
	Days        []time.Weekday
	ThumbPath   string
}

// ScheduleResult reports what scheduling produced.
type ScheduleResult struct {
	BroadcastID string
	StreamID    string
	StartAt     time.Time
	Actions     int
}

// ScheduleStream creates a remote broadcast, binds it to the reusable ingest
// stream, and materializes the flow template onto it. When the template is
// empty or has no start step a single default start action is synthesized at
// the scheduled time. A recurring request also records the weekly rule.
func (d *Daemon) ScheduleStream(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	if req.StartAt.IsZero() {
		return nil, errors.New("start time is required")
	}
	if req.Recurring && len(req.Days) == 0 {
		return nil, errors.New("recurring schedule requires at least one weekday")
	}
	privacy := strings.TrimSpace(req.Privacy)
	if privacy == "" {
		privacy = d.cfg.YouTube.DefaultPrivacy
	}

	broadcast, err := d.client.CreateBroadcast(ctx, youtube.CreateRequest{
		Title:       title,
		Description: req.Description,
		Privacy:     privacy,
		Latency:     req.Latency,
		StartAt:     req.StartAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	logger := d.logger.With(logging.String(logging.FieldBroadcastID, broadcast.ID))

	streamID, err := d.client.BindToIngest(ctx, broadcast.ID)
	if err != nil {
		return nil, fmt.Errorf("bind broadcast to ingest: %w", err)
	}

	if req.ThumbPath != "" {
		if err := d.client.SetThumbnail(ctx, broadcast.ID, req.ThumbPath); err != nil {
			logger.Warn("thumbnail upload failed", logging.Error(err))
		}
	}

	actions, err := d.flow.Apply(ctx, broadcast.ID, req.StartAt)
	if err != nil {
		return nil, fmt.Errorf("apply flow template: %w", err)
	}
	if !hasStartAction(actions) {
		action := store.Action{
			ID:          uuid.NewString(),
			BroadcastID: broadcast.ID,
			Kind:        store.ActionStart,
			At:          req.StartAt.UTC(),
		}
		if err := d.store.UpsertAction(ctx, &action); err != nil {
			return nil, fmt.Errorf("persist default start action: %w", err)
		}
		d.registry.Schedule(action)
		actions = append(actions, action)
	}

	if req.Recurring {
		rule := &store.Rule{
			BroadcastID: broadcast.ID,
			Recurring:   true,
			Days:        req.Days,
			BaseTime:    req.StartAt.UTC(),
			Meta: store.Meta{
				Title:       title,
				Description: req.Description,
				Privacy:     privacy,
				Latency:     req.Latency,
				ThumbPath:   req.ThumbPath,
			},
		}
		if err := d.store.UpsertRule(ctx, rule); err != nil {
			return nil, fmt.Errorf("persist recurrence rule: %w", err)
		}
	}

	d.events.Publish(bus.BroadcastScheduled{
		BroadcastID: broadcast.ID,
		Title:       title,
		StartAt:     req.StartAt.UTC(),
		Recurring:   req.Recurring,
	})
	d.metrics.IncScheduled()
	logger.Info("stream scheduled",
		logging.Time("start_at", req.StartAt),
		logging.Int("actions", len(actions)),
		logging.Bool("recurring", req.Recurring))

	return &ScheduleResult{
		BroadcastID: broadcast.ID,
		StreamID:    streamID,
		StartAt:     req.StartAt.UTC(),
		Actions:     len(actions),
	}, nil
}

func hasStartAction(actions []store.Action) bool {
	for _, action := range actions {
		if action.Kind == store.ActionStart {
			return true
		}
	}
	return false
}

// Broadcasts lists upcoming broadcasts known to the platform.
func (d *Daemon) Broadcasts(ctx context.Context) ([]*youtube.Broadcast, error) {
	return d.client.ListScheduled(ctx)
}

// DeleteBroadcast removes the remote broadcast along with every local action
// and rule tied to it. Timers are cancelled before rows are deleted so a
// cancelled action can never fire mid-removal.
func (d *Daemon) DeleteBroadcast(ctx context.Context, broadcastID string) (int64, error) {
	if strings.TrimSpace(broadcastID) == "" {
		return 0, errors.New("broadcast id is required")
	}
	actions, err := d.store.ActionsForBroadcast(ctx, broadcastID)
	if err != nil {
		return 0, err
	}
	for _, action := range actions {
		d.registry.Cancel(action.ID)
	}
	removed, err := d.store.RemoveActionsForBroadcast(ctx, broadcastID)
	if err != nil {
		return removed, err
	}
	if _, err := d.store.RemoveRule(ctx, broadcastID); err != nil {
		return removed, err
	}
	if err := d.client.Delete(ctx, broadcastID); err != nil {
		return removed, fmt.Errorf("delete remote broadcast: %w", err)
	}
	d.logger.Info("broadcast deleted",
		logging.String(logging.FieldBroadcastID, broadcastID),
		logging.Int64("actions_removed", removed))
	return removed, nil
}

// Actions lists persisted actions, optionally filtered to one broadcast.
func (d *Daemon) Actions(ctx context.Context, broadcastID string) ([]*store.Action, error) {
	if strings.TrimSpace(broadcastID) == "" {
		return d.store.ListActions(ctx)
	}
	return d.store.ActionsForBroadcast(ctx, broadcastID)
}

// AddAction persists and arms a new action, then folds the broadcast's updated
// timeline back into the global flow template.
func (d *Daemon) AddAction(ctx context.Context, broadcastID string, kind store.ActionKind, at time.Time, scene string) (*store.Action, error) {
	if strings.TrimSpace(broadcastID) == "" {
		return nil, errors.New("broadcast id is required")
	}
	if !store.KnownKind(kind) {
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
	if at.IsZero() {
		return nil, errors.New("action time is required")
	}

	action := store.Action{
		ID:          uuid.NewString(),
		BroadcastID: broadcastID,
		Kind:        kind,
		At:          at.UTC(),
		Payload:     store.Payload{SceneName: strings.TrimSpace(scene)},
	}
	if err := d.store.UpsertAction(ctx, &action); err != nil {
		return nil, err
	}
	d.registry.Schedule(action)
	if err := d.flow.Recompute(ctx, broadcastID); err != nil {
		d.logger.Warn("flow template recompute failed", logging.Error(err))
	}
	return &action, nil
}

// RemoveAction cancels and deletes one action, then recomputes the template
// from the remaining timeline.
func (d *Daemon) RemoveAction(ctx context.Context, actionID string) error {
	action, err := d.store.GetAction(ctx, actionID)
	if err != nil {
		return err
	}
	d.registry.Cancel(actionID)
	if _, err := d.store.RemoveAction(ctx, actionID); err != nil {
		return err
	}
	if err := d.flow.Recompute(ctx, action.BroadcastID); err != nil {
		d.logger.Warn("flow template recompute failed", logging.Error(err))
	}
	return nil
}

// Cleanup runs one orphan reconciliation pass.
func (d *Daemon) Cleanup(ctx context.Context) (reconcile.Result, error) {
	result, err := d.reconciler.CleanupOrphanedData(ctx)
	if err == nil {
		d.metrics.AddPurged(result.ActionsPurged + result.RulesPurged)
	}
	return result, err
}

// RestartClock restarts the heartbeat clock driver.
func (d *Daemon) RestartClock(ctx context.Context) error {
	runCtx := d.ctx
	if runCtx == nil {
		runCtx = ctx
	}
	return d.clock.Restart(runCtx)
}

// GoLive kicks off the live transition retry loop for a broadcast that is
// already in testing. It returns once the loop is running; progress surfaces
// through logs and the lifecycle metrics.
func (d *Daemon) GoLive(ctx context.Context, broadcastID string) error {
	if strings.TrimSpace(broadcastID) == "" {
		return errors.New("broadcast id is required")
	}
	runCtx := d.ctx
	if runCtx == nil {
		runCtx = ctx
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.orch.GoLiveWithRetry(runCtx, broadcastID); err != nil {
			d.logger.Error("go-live retry loop failed",
				logging.String(logging.FieldBroadcastID, broadcastID),
				logging.Error(err))
			return
		}
		d.metrics.IncLive()
	}()
	return nil
}
