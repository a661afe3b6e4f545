package daemon

import (
	"context"
	"strings"
	"testing"
	"time"

	"stagehand/internal/bus"
	"stagehand/internal/orchestrator"
	"stagehand/internal/services/youtube"
	"stagehand/internal/store"
	"stagehand/internal/testsupport"
)

// TestStartActionDrivesLiveSequence proves the event routing end to end: a
// fired start action published on the bus must reach the orchestrator and
// walk the broadcast through bind, testing, and live.
func TestStartActionDrivesLiveSequence(t *testing.T) {
	client := testsupport.NewFakeBroadcastClient()
	client.SetStatus("bc-live", youtube.StatusReady)

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	dialer := &testsupport.FlakyDialer{}

	d, err := New(Deps{
		Config: cfg,
		Store:  st,
		Client: client,
		Dialer: dialer.Dial,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	// Drop the fixed settle and testing waits so the sequence finishes
	// within the test deadline.
	d.orch = orchestrator.New(client, nil,
		orchestrator.WithLiveAttempts(cfg.Schedule.GoLiveAttempts),
		orchestrator.WithDelays(0, 0))

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	time.Sleep(50 * time.Millisecond)

	d.events.Publish(bus.ActionExecuted{
		ActionID:    "act-start",
		BroadcastID: "bc-live",
		Kind:        string(store.ActionStart),
		At:          time.Now().UTC(),
	})

	deadline := time.Now().Add(3 * time.Second)
	for client.TransitionCount("bc-live") < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for live sequence, transitions = %d", client.TransitionCount("bc-live"))
		}
		time.Sleep(20 * time.Millisecond)
	}

	if got := client.BoundCount("bc-live"); got != 1 {
		t.Fatalf("bind count = %d, want 1", got)
	}
	joined := strings.Join(client.Transitions, ",")
	if joined != "bc-live:testing,bc-live:live" {
		t.Fatalf("transitions = %q, want testing then live", joined)
	}
}
