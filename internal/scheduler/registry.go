// Package scheduler arms one-shot timers for persisted actions and executes
// them when they elapse. A single driving timer tracks the earliest pending
// action; a min-heap orders the rest.
package scheduler

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"stagehand/internal/logging"
	"stagehand/internal/store"
)

// Handler receives an action when its timer fires.
type Handler func(ctx context.Context, action store.Action)

type entry struct {
	action   store.Action
	seq      uint64
	canceled bool
}

// entryHeap orders entries by fire time, breaking ties by arming order.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].action.At.Equal(h[j].action.At) {
		return h[i].seq < h[j].seq
	}
	return h[i].action.At.Before(h[j].action.At)
}
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(*entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Registry holds at most one live timer per action id. Re-arming an id
// replaces its prior timer; cancelling an unknown id is a no-op.
type Registry struct {
	mu      sync.Mutex
	heap    entryHeap
	entries map[string]*entry
	nextSeq uint64

	handler Handler
	logger  *slog.Logger
	now     func() time.Time
	wake    chan struct{}
}

// NewRegistry constructs a registry that dispatches fired actions to handler.
func NewRegistry(handler Handler, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		entries: make(map[string]*entry),
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "scheduler"),
		now:     time.Now,
		wake:    make(chan struct{}, 1),
	}
}

// Schedule arms a one-shot timer for the action. An existing timer for the
// same id is cancelled first, which makes edits a plain delete-and-recreate.
// Actions whose fire time already passed fire on the next loop iteration.
func (r *Registry) Schedule(action store.Action) {
	if action.ID == "" {
		return
	}
	r.mu.Lock()
	if prior, ok := r.entries[action.ID]; ok {
		prior.canceled = true
	}
	r.nextSeq++
	item := &entry{action: action, seq: r.nextSeq}
	r.entries[action.ID] = item
	heap.Push(&r.heap, item)
	r.mu.Unlock()

	r.logger.Debug("timer armed",
		logging.String(logging.FieldActionID, action.ID),
		logging.String(logging.FieldBroadcastID, action.BroadcastID),
		logging.Time("fire_at", action.At))
	r.poke()
}

// Cancel removes the timer for an action id if one exists.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	item, ok := r.entries[id]
	if ok {
		item.canceled = true
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if ok {
		r.logger.Debug("timer cancelled", logging.String(logging.FieldActionID, id))
		r.poke()
	}
}

// Pending returns the ids of all armed timers.
func (r *Registry) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the count of armed timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run drives the single timer loop until the context ends. Due actions are
// cleared from the registry before their handler runs, so a handler crash can
// never wedge or replay a timer.
func (r *Registry) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		var waitCh <-chan time.Time
		r.mu.Lock()
		next := r.peekLocked()
		r.mu.Unlock()
		if next != nil {
			delay := next.action.At.Sub(r.now())
			if delay < 0 {
				delay = 0
			}
			timer.Reset(delay)
			waitCh = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
			if waitCh != nil && !timer.Stop() {
				<-timer.C
			}
		case <-waitCh:
			r.fireDue(ctx)
		}
	}
}

// peekLocked discards cancelled heap entries and returns the earliest live one.
func (r *Registry) peekLocked() *entry {
	for r.heap.Len() > 0 {
		head := r.heap[0]
		if head.canceled {
			heap.Pop(&r.heap)
			continue
		}
		return head
	}
	return nil
}

func (r *Registry) fireDue(ctx context.Context) {
	now := r.now()
	for {
		r.mu.Lock()
		head := r.peekLocked()
		if head == nil || head.action.At.After(now) {
			r.mu.Unlock()
			return
		}
		heap.Pop(&r.heap)
		delete(r.entries, head.action.ID)
		r.mu.Unlock()

		// Handlers block on encoder and platform I/O with their own retry
		// budgets, so each fired action runs independently of the loop.
		go r.dispatch(ctx, head.action)
	}
}

func (r *Registry) dispatch(ctx context.Context, action store.Action) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("action handler panicked",
				logging.String(logging.FieldActionID, action.ID),
				logging.Any("panic", rec))
		}
	}()
	if r.handler != nil {
		r.handler(ctx, action)
	}
}

func (r *Registry) poke() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}
