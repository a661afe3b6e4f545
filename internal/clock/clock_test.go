package clock_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"stagehand/internal/bus"
	"stagehand/internal/clock"
)

func TestDriverEmitsTimezoneThenHeartbeats(t *testing.T) {
	events := bus.New(nil)
	ch, cancel := events.Subscribe(16, bus.TypeTimezone, bus.TypeHeartbeat)
	defer cancel()

	driver := clock.New(clock.Options{
		Events:    events,
		Timezone:  "America/New_York",
		Heartbeat: 20 * time.Millisecond,
	})
	if err := driver.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer driver.Stop()

	first := waitEvent(t, ch)
	tz, ok := first.(bus.Timezone)
	if !ok {
		t.Fatalf("first event = %T, want Timezone", first)
	}
	if tz.Name != "America/New_York" {
		t.Fatalf("timezone = %q", tz.Name)
	}

	if _, ok := waitEvent(t, ch).(bus.Heartbeat); !ok {
		t.Fatal("expected immediate heartbeat after timezone")
	}
	if _, ok := waitEvent(t, ch).(bus.Heartbeat); !ok {
		t.Fatal("expected periodic heartbeat")
	}
}

func TestDriverRunsProbeAndCleanup(t *testing.T) {
	var probes, cleanups atomic.Int32
	driver := clock.New(clock.Options{
		Events:       bus.New(nil),
		Heartbeat:    time.Hour,
		ProbeEvery:   15 * time.Millisecond,
		CleanupEvery: 25 * time.Millisecond,
		Probe:        func(context.Context) { probes.Add(1) },
		Cleanup:      func(context.Context) { cleanups.Add(1) },
	})
	if err := driver.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer driver.Stop()

	deadline := time.After(2 * time.Second)
	for probes.Load() < 2 || cleanups.Load() < 1 {
		select {
		case <-deadline:
			t.Fatalf("ticks missing: probes=%d cleanups=%d", probes.Load(), cleanups.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDriverRestart(t *testing.T) {
	events := bus.New(nil)
	driver := clock.New(clock.Options{
		Events:    events,
		Timezone:  "UTC",
		Heartbeat: time.Hour,
	})

	ctx := context.Background()
	if err := driver.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := driver.Start(ctx); err == nil {
		t.Fatal("second Start must fail while running")
	}

	ch, cancel := events.Subscribe(8, bus.TypeHeartbeat)
	defer cancel()

	if err := driver.Restart(ctx); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	defer driver.Stop()

	if _, ok := waitEvent(t, ch).(bus.Heartbeat); !ok {
		t.Fatal("expected fresh heartbeat after restart")
	}
	if !driver.Running() {
		t.Fatal("driver should report running after restart")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	driver := clock.New(clock.Options{Heartbeat: time.Hour})
	if err := driver.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	driver.Stop()
	driver.Stop()
	if driver.Running() {
		t.Fatal("driver should be stopped")
	}
}

func waitEvent(t *testing.T, ch <-chan bus.Envelope) bus.Event {
	t.Helper()
	select {
	case env := <-ch:
		return env.Event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}
