package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"stagehand/internal/scheduler"
	"stagehand/internal/store"
)

type recorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) handle(_ context.Context, action store.Action) {
	r.mu.Lock()
	r.fired = append(r.fired, action.ID)
	r.mu.Unlock()
	r.ch <- action.ID
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func (r *recorder) waitFor(t *testing.T, id string) {
	t.Helper()
	select {
	case got := <-r.ch:
		if got != id {
			t.Fatalf("fired %q, want %q", got, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for action %q to fire", id)
	}
}

func startRegistry(t *testing.T, rec *recorder) *scheduler.Registry {
	t.Helper()
	registry := scheduler.NewRegistry(rec.handle, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = registry.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return registry
}

func action(id string, at time.Time) store.Action {
	return store.Action{ID: id, BroadcastID: "bcast-1", Kind: store.ActionSetScene, At: at}
}

func TestScheduleFiresDueAction(t *testing.T) {
	rec := newRecorder()
	registry := startRegistry(t, rec)

	registry.Schedule(action("a-1", time.Now().Add(20*time.Millisecond)))
	rec.waitFor(t, "a-1")

	if registry.Len() != 0 {
		t.Fatalf("expected empty registry after fire, got %d", registry.Len())
	}
}

func TestSchedulePastActionFiresImmediately(t *testing.T) {
	rec := newRecorder()
	registry := startRegistry(t, rec)

	registry.Schedule(action("a-past", time.Now().Add(-time.Hour)))
	rec.waitFor(t, "a-past")
}

func TestScheduleThenCancelNeverFires(t *testing.T) {
	rec := newRecorder()
	registry := startRegistry(t, rec)

	registry.Schedule(action("a-1", time.Now().Add(50*time.Millisecond)))
	registry.Cancel("a-1")

	time.Sleep(150 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("cancelled action fired %d times", rec.count())
	}
	if registry.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", registry.Len())
	}
}

func TestCancelUnknownIDIsNoOp(t *testing.T) {
	rec := newRecorder()
	registry := startRegistry(t, rec)
	registry.Cancel("never-scheduled")
}

func TestReScheduleReplacesTimer(t *testing.T) {
	rec := newRecorder()
	registry := startRegistry(t, rec)

	registry.Schedule(action("a-1", time.Now().Add(30*time.Millisecond)))
	registry.Schedule(action("a-1", time.Now().Add(120*time.Millisecond)))

	if registry.Len() != 1 {
		t.Fatalf("expected one armed timer, got %d", registry.Len())
	}

	// The first deadline passes without a fire; only the replacement fires.
	time.Sleep(60 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("replaced timer fired at its original deadline")
	}
	rec.waitFor(t, "a-1")
	if rec.count() != 1 {
		t.Fatalf("expected exactly one fire, got %d", rec.count())
	}
}

func TestEarlierActionPreemptsDrivingTimer(t *testing.T) {
	rec := newRecorder()
	registry := startRegistry(t, rec)

	registry.Schedule(action("late", time.Now().Add(500*time.Millisecond)))
	registry.Schedule(action("early", time.Now().Add(30*time.Millisecond)))

	rec.waitFor(t, "early")
	rec.waitFor(t, "late")
}

func TestHandlerPanicIsContained(t *testing.T) {
	fired := make(chan string, 2)
	registry := scheduler.NewRegistry(func(_ context.Context, a store.Action) {
		fired <- a.ID
		if a.ID == "boom" {
			panic("handler exploded")
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = registry.Run(ctx) }()

	registry.Schedule(action("boom", time.Now()))
	registry.Schedule(action("after", time.Now().Add(30*time.Millisecond)))

	for _, want := range []string{"boom", "after"} {
		select {
		case got := <-fired:
			if got != want {
				t.Fatalf("fired %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}
