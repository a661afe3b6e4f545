package daemon_test

import (
	"context"
	"testing"
	"time"

	"stagehand/internal/bus"
	"stagehand/internal/config"
	"stagehand/internal/daemon"
	"stagehand/internal/logging"
	"stagehand/internal/store"
	"stagehand/internal/testsupport"
)

type harness struct {
	daemon *daemon.Daemon
	cfg    *config.Config
	store  *store.Store
	client *testsupport.FakeBroadcastClient
	dialer *testsupport.FlakyDialer
	events *bus.Bus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	client := testsupport.NewFakeBroadcastClient()
	dialer := &testsupport.FlakyDialer{}
	events := bus.New(nil)

	d, err := daemon.New(daemon.Deps{
		Config: cfg,
		Store:  st,
		Logger: logging.NewNop(),
		Events: events,
		Client: client,
		Dialer: dialer.Dial,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return &harness{daemon: d, cfg: cfg, store: st, client: client, dialer: dialer, events: events}
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !h.daemon.Status(ctx).Running {
		t.Fatal("daemon should report running")
	}
	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon should fail")
	}

	other, err := daemon.New(daemon.Deps{
		Config: h.cfg,
		Store:  h.store,
		Logger: logging.NewNop(),
		Client: h.client,
		Dialer: h.dialer.Dial,
	})
	if err != nil {
		t.Fatalf("daemon.New second instance: %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}

	h.daemon.Stop()
	if h.daemon.Status(ctx).Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestScheduleStreamSynthesizesStartAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	scheduled, cancel := h.events.Subscribe(4, bus.TypeBroadcastScheduled)
	defer cancel()

	startAt := time.Now().Add(2 * time.Hour).UTC()
	result, err := h.daemon.ScheduleStream(ctx, daemon.ScheduleRequest{
		Title:   "Sunday Service",
		StartAt: startAt,
	})
	if err != nil {
		t.Fatalf("ScheduleStream: %v", err)
	}
	if result.BroadcastID == "" || result.StreamID == "" {
		t.Fatalf("incomplete result: %#v", result)
	}
	if result.Actions != 1 {
		t.Fatalf("expected 1 synthesized action, got %d", result.Actions)
	}
	if len(h.client.Created) != 1 || len(h.client.Bound) != 1 {
		t.Fatalf("expected one create and one bind, got %d/%d", len(h.client.Created), len(h.client.Bound))
	}

	actions, err := h.store.ActionsForBroadcast(ctx, result.BroadcastID)
	if err != nil {
		t.Fatalf("ActionsForBroadcast: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != store.ActionStart {
		t.Fatalf("expected one start action, got %#v", actions)
	}
	if !actions[0].At.Equal(startAt) {
		t.Fatalf("start action at %v, want %v", actions[0].At, startAt)
	}

	select {
	case env := <-scheduled:
		evt, ok := env.Event.(bus.BroadcastScheduled)
		if !ok || evt.BroadcastID != result.BroadcastID || evt.Recurring {
			t.Fatalf("unexpected scheduled event: %#v", env.Event)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast_scheduled event")
	}
}

func TestScheduleStreamAppliesTemplate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	tmpl := &store.Template{
		BaseTime: base,
		Steps: []store.Step{
			{OffsetSec: 0, Kind: store.ActionStart, OriginalAt: base},
			{OffsetSec: 1800, Kind: store.ActionSetScene, Payload: store.Payload{SceneName: "worship"}, OriginalAt: base.Add(30 * time.Minute)},
			{OffsetSec: 5400, Kind: store.ActionEnd, OriginalAt: base.Add(90 * time.Minute)},
		},
	}
	if err := h.store.SaveTemplate(ctx, tmpl); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	startAt := time.Now().Add(24 * time.Hour).Truncate(time.Second).UTC()
	result, err := h.daemon.ScheduleStream(ctx, daemon.ScheduleRequest{
		Title:   "Midweek Stream",
		StartAt: startAt,
	})
	if err != nil {
		t.Fatalf("ScheduleStream: %v", err)
	}
	if result.Actions != 3 {
		t.Fatalf("expected 3 templated actions, got %d", result.Actions)
	}

	actions, err := h.store.ActionsForBroadcast(ctx, result.BroadcastID)
	if err != nil {
		t.Fatalf("ActionsForBroadcast: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("expected 3 persisted actions, got %d", len(actions))
	}
	if actions[1].Kind != store.ActionSetScene || actions[1].Payload.SceneName != "worship" {
		t.Fatalf("template payload lost: %#v", actions[1])
	}
	if !actions[2].At.Equal(startAt.Add(90 * time.Minute)) {
		t.Fatalf("end action at %v, want %v", actions[2].At, startAt.Add(90*time.Minute))
	}
}

func TestScheduleStreamRecurringPersistsRule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	startAt := time.Now().Add(time.Hour).UTC()
	result, err := h.daemon.ScheduleStream(ctx, daemon.ScheduleRequest{
		Title:     "Weekly Show",
		Latency:   "low",
		StartAt:   startAt,
		Recurring: true,
		Days:      []time.Weekday{time.Sunday, time.Wednesday},
	})
	if err != nil {
		t.Fatalf("ScheduleStream: %v", err)
	}

	rule, err := h.store.GetRule(ctx, result.BroadcastID)
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if !rule.Recurring || len(rule.Days) != 2 {
		t.Fatalf("unexpected rule: %#v", rule)
	}
	if rule.Meta.Title != "Weekly Show" {
		t.Fatalf("rule meta title = %q", rule.Meta.Title)
	}
	if rule.Meta.Latency != "low" {
		t.Fatalf("rule meta latency = %q, want low", rule.Meta.Latency)
	}
	if len(h.client.Created) != 1 || h.client.Created[0].Latency != "low" {
		t.Fatalf("create request did not carry latency: %#v", h.client.Created)
	}
}

func TestScheduleStreamRecurringWithoutDaysFails(t *testing.T) {
	h := newHarness(t)
	_, err := h.daemon.ScheduleStream(context.Background(), daemon.ScheduleRequest{
		Title:     "Broken",
		StartAt:   time.Now().Add(time.Hour),
		Recurring: true,
	})
	if err == nil {
		t.Fatal("expected error for recurring request without weekdays")
	}
	if len(h.client.Created) != 0 {
		t.Fatal("no remote broadcast should be created on validation failure")
	}
}

func TestAddAndRemoveActionMaintainTemplate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	startAt := time.Now().Add(3 * time.Hour).UTC()
	result, err := h.daemon.ScheduleStream(ctx, daemon.ScheduleRequest{Title: "Show", StartAt: startAt})
	if err != nil {
		t.Fatalf("ScheduleStream: %v", err)
	}

	added, err := h.daemon.AddAction(ctx, result.BroadcastID, store.ActionSetScene, startAt.Add(20*time.Minute), "interview")
	if err != nil {
		t.Fatalf("AddAction: %v", err)
	}

	tmpl, err := h.store.GetTemplate(ctx)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if len(tmpl.Steps) != 2 {
		t.Fatalf("expected 2 template steps after add, got %d", len(tmpl.Steps))
	}

	if err := h.daemon.RemoveAction(ctx, added.ID); err != nil {
		t.Fatalf("RemoveAction: %v", err)
	}
	if _, err := h.store.GetAction(ctx, added.ID); err == nil {
		t.Fatal("removed action should be gone")
	}
	tmpl, err = h.store.GetTemplate(ctx)
	if err != nil {
		t.Fatalf("GetTemplate after remove: %v", err)
	}
	if len(tmpl.Steps) != 1 {
		t.Fatalf("expected 1 template step after remove, got %d", len(tmpl.Steps))
	}
}

func TestAddActionRejectsUnknownKind(t *testing.T) {
	h := newHarness(t)
	if _, err := h.daemon.AddAction(context.Background(), "bc-1", store.ActionKind("pause"), time.Now().Add(time.Hour), ""); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
}

func TestStartRearmsPersistedActions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	testsupport.NewAction(t, h.store, "bc-1", store.ActionStart, time.Now().Add(time.Hour))
	testsupport.NewAction(t, h.store, "bc-1", store.ActionEnd, time.Now().Add(2*time.Hour))

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if pending := h.daemon.Status(ctx).PendingActions; pending != 2 {
		t.Fatalf("expected 2 re-armed actions, got %d", pending)
	}
}

func TestDeleteBroadcastPurgesLocalState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.daemon.ScheduleStream(ctx, daemon.ScheduleRequest{
		Title:     "Doomed",
		StartAt:   time.Now().Add(time.Hour).UTC(),
		Recurring: true,
		Days:      []time.Weekday{time.Friday},
	})
	if err != nil {
		t.Fatalf("ScheduleStream: %v", err)
	}

	removed, err := h.daemon.DeleteBroadcast(ctx, result.BroadcastID)
	if err != nil {
		t.Fatalf("DeleteBroadcast: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 action removed, got %d", removed)
	}
	if _, err := h.store.GetRule(ctx, result.BroadcastID); err == nil {
		t.Fatal("rule should be removed with its broadcast")
	}
	if len(h.client.Deleted) != 1 || h.client.Deleted[0] != result.BroadcastID {
		t.Fatalf("remote delete not issued: %#v", h.client.Deleted)
	}
}

func TestEndActionRollsRecurringBroadcastForward(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).UTC()
	rule := &store.Rule{
		BroadcastID: "bc-old",
		Recurring:   true,
		Days: []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		},
		BaseTime: base,
		Meta:     store.Meta{Title: "Nightly", Privacy: "public", Latency: "ultraLow"},
	}
	if err := h.store.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("UpsertRule: %v", err)
	}

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	h.events.Publish(bus.ActionExecuted{
		ActionID:    "act-end",
		BroadcastID: "bc-old",
		Kind:        string(store.ActionEnd),
		At:          time.Now().UTC(),
	})

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := h.store.GetRule(ctx, "bc-old"); err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for rule migration")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(h.client.Created) != 1 {
		t.Fatalf("expected next occurrence broadcast to be created, got %d", len(h.client.Created))
	}
	if h.client.Created[0].Title != "Nightly" || h.client.Created[0].Latency != "ultraLow" {
		t.Fatalf("rollover lost rule meta: %#v", h.client.Created[0])
	}
}
