// Package encoder provides the gateway between scheduled work and the local
// streaming encoder. Connections are opened per task with a bounded retry,
// absorbing the common race where a job fires before the encoder has
// launched.
package encoder

import (
	"context"
	"log/slog"
	"time"

	"stagehand/internal/bus"
	"stagehand/internal/logging"
	"stagehand/internal/services/obs"
)

const (
	defaultConnectAttempts = 3
	defaultConnectDelay    = 10 * time.Second

	// ConnectFailed is the error string carried by the status event when
	// every connection attempt was exhausted.
	ConnectFailed = "connect-failed"
)

// Gateway dials the encoder on demand and reports connectivity over the bus.
type Gateway struct {
	dial     obs.Dialer
	events   *bus.Bus
	logger   *slog.Logger
	attempts int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option tunes gateway behavior, chiefly for tests.
type Option func(*Gateway)

// WithRetry overrides the connect attempt budget and delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(g *Gateway) {
		if attempts > 0 {
			g.attempts = attempts
		}
		if delay >= 0 {
			g.delay = delay
		}
	}
}

// NewGateway constructs a gateway over the given dialer.
func NewGateway(dial obs.Dialer, events *bus.Bus, logger *slog.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	g := &Gateway{
		dial:     dial,
		events:   events,
		logger:   logging.NewComponentLogger(logger, "encoder"),
		attempts: defaultConnectAttempts,
		delay:    defaultConnectDelay,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithEncoder opens a connection, runs fn, and closes it. Connection failures
// are retried up to the attempt budget with a fixed delay; exhausting the
// budget emits a failed connectivity status instead of returning an error, so
// callers observe terminal failure through the bus. Errors returned by fn are
// logged and swallowed the same way the per-attempt dial errors are.
func (g *Gateway) WithEncoder(ctx context.Context, taskName string, fn func(obs.Client) error) {
	logger := g.logger.With(logging.String("task", taskName))

	for attempt := 1; attempt <= g.attempts; attempt++ {
		client, err := g.dial(ctx)
		if err != nil {
			logger.Warn("encoder connection failed",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Error(err))
			if attempt == g.attempts {
				break
			}
			if sleepErr := g.sleep(ctx, g.delay); sleepErr != nil {
				logger.Warn("encoder retry abandoned", logging.Error(sleepErr))
				break
			}
			continue
		}

		if runErr := fn(client); runErr != nil {
			logger.Error("encoder task failed", logging.Error(runErr))
		}
		if closeErr := client.Close(); closeErr != nil {
			logger.Debug("encoder disconnect failed", logging.Error(closeErr))
		}
		return
	}

	g.publish(bus.EncoderStatus{OK: false, Task: taskName, Error: ConnectFailed})
}

// ProbeOnce performs a single connection attempt for the periodic health
// check, reporting version info on success. No retries.
func (g *Gateway) ProbeOnce(ctx context.Context) {
	client, err := g.dial(ctx)
	if err != nil {
		g.logger.Debug("encoder probe failed", logging.Error(err))
		g.publish(bus.EncoderStatus{OK: false, Task: "probe", Error: err.Error()})
		return
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			g.logger.Debug("encoder disconnect failed", logging.Error(closeErr))
		}
	}()

	version, err := client.Version(ctx)
	if err != nil {
		g.publish(bus.EncoderStatus{OK: false, Task: "probe", Error: err.Error()})
		return
	}
	g.publish(bus.EncoderStatus{OK: true, Task: "probe", Version: version})
}

func (g *Gateway) publish(status bus.EncoderStatus) {
	if g.events != nil {
		g.events.Publish(status)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
