// Package clock owns the daemon's periodic ticks: liveness heartbeats, the
// encoder health probe, and the optional orphan-cleanup sweep. The driver is
// fully restartable so the watchdog can bounce it when heartbeats stall.
package clock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"stagehand/internal/bus"
	"stagehand/internal/logging"
)

// Task is a periodic job the driver invokes on its tick.
type Task func(ctx context.Context)

// Driver emits heartbeats and runs periodic tasks until stopped.
type Driver struct {
	events       *bus.Bus
	logger       *slog.Logger
	timezone     string
	heartbeat    time.Duration
	probeEvery   time.Duration
	cleanupEvery time.Duration
	probe        Task
	cleanup      Task

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// Options configures a Driver.
type Options struct {
	Events       *bus.Bus
	Logger       *slog.Logger
	Timezone     string
	Heartbeat    time.Duration
	ProbeEvery   time.Duration
	CleanupEvery time.Duration // zero disables the sweep
	Probe        Task
	Cleanup      Task
}

// New constructs a stopped driver.
func New(opts Options) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Driver{
		events:       opts.Events,
		logger:       logging.NewComponentLogger(logger, "clock"),
		timezone:     opts.Timezone,
		heartbeat:    opts.Heartbeat,
		probeEvery:   opts.ProbeEvery,
		cleanupEvery: opts.CleanupEvery,
		probe:        opts.Probe,
		cleanup:      opts.Cleanup,
	}
}

// Start launches the tick loop. Starting a running driver is an error.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.New("clock driver already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.started = true
	go d.run(runCtx, d.done)

	d.logger.Info("clock driver started",
		logging.String("timezone", d.timezone),
		logging.Duration("heartbeat", d.heartbeat))
	return nil
}

// Stop halts the tick loop and waits for it to exit.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	done := d.done
	d.started = false
	d.cancel = nil
	d.done = nil
	d.mu.Unlock()

	cancel()
	<-done
	d.logger.Info("clock driver stopped")
}

// Restart bounces the tick loop, re-announcing the timezone and issuing a
// fresh heartbeat immediately.
func (d *Driver) Restart(ctx context.Context) error {
	d.Stop()
	return d.Start(ctx)
}

// Running reports whether the tick loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

func (d *Driver) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if d.events != nil && d.timezone != "" {
		d.events.Publish(bus.Timezone{Name: d.timezone})
	}
	d.pulse()

	heartbeat := time.NewTicker(d.heartbeat)
	defer heartbeat.Stop()

	var probeCh <-chan time.Time
	if d.probe != nil && d.probeEvery > 0 {
		probe := time.NewTicker(d.probeEvery)
		defer probe.Stop()
		probeCh = probe.C
	}

	var cleanupCh <-chan time.Time
	if d.cleanup != nil && d.cleanupEvery > 0 {
		cleanup := time.NewTicker(d.cleanupEvery)
		defer cleanup.Stop()
		cleanupCh = cleanup.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			d.pulse()
		case <-probeCh:
			d.probe(ctx)
		case <-cleanupCh:
			d.cleanup(ctx)
		}
	}
}

func (d *Driver) pulse() {
	if d.events != nil {
		d.events.Publish(bus.Heartbeat{At: time.Now().UTC()})
	}
}
