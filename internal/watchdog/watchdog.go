// Package watchdog monitors heartbeat pulses and raises an edge-triggered
// stale condition when they stop arriving within the grace window. On the
// stale edge it asks for the clock driver to be restarted; when pulses resume
// it announces recovery.
package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stagehand/internal/bus"
	"stagehand/internal/logging"
)

// Options configures a Watchdog.
type Options struct {
	Events *bus.Bus
	Logger *slog.Logger

	// Heartbeat is the expected pulse interval; Grace is the slack allowed
	// on top of it before the stream of pulses counts as stale.
	Heartbeat time.Duration
	Grace     time.Duration

	// Sample is how often the age of the last pulse is checked.
	Sample time.Duration

	// OnStale runs once per stale edge, typically restarting the clock
	// driver.
	OnStale func(ctx context.Context)
}

// Watchdog tracks heartbeat freshness.
type Watchdog struct {
	events    *bus.Bus
	logger    *slog.Logger
	threshold time.Duration
	sample    time.Duration
	onStale   func(ctx context.Context)
	now       func() time.Time

	mu       sync.Mutex
	lastSeen time.Time
	stale    bool
}

// New constructs a watchdog. The stale threshold is heartbeat plus grace.
func New(opts Options) *Watchdog {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watchdog{
		events:    opts.Events,
		logger:    logging.NewComponentLogger(logger, "watchdog"),
		threshold: opts.Heartbeat + opts.Grace,
		sample:    opts.Sample,
		onStale:   opts.OnStale,
		now:       time.Now,
	}
}

// Stale reports whether the watchdog currently considers heartbeats stale.
func (w *Watchdog) Stale() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stale
}

// LastSeen returns the timestamp of the most recent heartbeat.
func (w *Watchdog) LastSeen() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Run observes heartbeats until the context ends. The first pulse arms the
// freshness check; before any pulse arrives nothing is considered stale.
func (w *Watchdog) Run(ctx context.Context) error {
	pulses, cancel := w.events.Subscribe(16, bus.TypeHeartbeat)
	defer cancel()

	ticker := time.NewTicker(w.sample)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-pulses:
			if !ok {
				return nil
			}
			if hb, isHB := env.Event.(bus.Heartbeat); isHB {
				w.observe(hb)
			}
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watchdog) observe(hb bus.Heartbeat) {
	w.mu.Lock()
	w.lastSeen = hb.At
	recovered := w.stale
	w.stale = false
	w.mu.Unlock()

	if recovered {
		w.logger.Info("heartbeats recovered")
		if w.events != nil {
			w.events.Publish(bus.HeartbeatRecovered{At: hb.At})
		}
	}
}

func (w *Watchdog) check(ctx context.Context) {
	w.mu.Lock()
	if w.lastSeen.IsZero() || w.stale {
		w.mu.Unlock()
		return
	}
	age := w.now().Sub(w.lastSeen)
	if age <= w.threshold {
		w.mu.Unlock()
		return
	}
	w.stale = true
	lastSeen := w.lastSeen
	w.mu.Unlock()

	w.logger.Warn("heartbeats stale",
		logging.Duration("age", age),
		logging.Time("last_seen", lastSeen))
	if w.events != nil {
		w.events.Publish(bus.HeartbeatStale{LastSeen: lastSeen, Age: age})
	}
	if w.onStale != nil {
		w.onStale(ctx)
	}
}
