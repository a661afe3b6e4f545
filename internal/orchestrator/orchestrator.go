// Package orchestrator drives a remote broadcast through its lifecycle
// (ready → testing → live) after a start action fires. Each step carries its
// own retry policy; the loop re-checks remote status before every live
// attempt so it stays idempotent and restartable.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stagehand/internal/logging"
	"stagehand/internal/services"
	"stagehand/internal/services/youtube"
)

const (
	testingAttempts = 3
	testingDelay    = 10 * time.Second
	settleDelay     = 5 * time.Second

	// DefaultLiveAttempts bounds the simple go-live path; the extended
	// auto pipeline may raise this to ExtendedLiveAttempts.
	DefaultLiveAttempts  = 5
	ExtendedLiveAttempts = 60

	backoffStep = 5 * time.Second
	backoffCap  = 30 * time.Second
	rateFloor   = 60 * time.Second
)

// ErrBroadcastGone signals the broadcast was deleted out-of-band; retrying is
// pointless.
var ErrBroadcastGone = errors.New("broadcast no longer exists")

// Orchestrator sequences lifecycle transitions against the platform client.
type Orchestrator struct {
	client youtube.Client
	logger *slog.Logger

	liveAttempts int
	sleep        func(ctx context.Context, d time.Duration) error
	settle       time.Duration
	testingWait  time.Duration
}

// Option adjusts orchestrator behavior.
type Option func(*Orchestrator)

// WithLiveAttempts overrides the go-live attempt budget.
func WithLiveAttempts(attempts int) Option {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.liveAttempts = attempts
		}
	}
}

// WithSleepFunc replaces the waiting primitive, for tests.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithDelays compresses the fixed waits, for tests.
func WithDelays(settle, testingWait time.Duration) Option {
	return func(o *Orchestrator) {
		o.settle = settle
		o.testingWait = testingWait
	}
}

// New constructs an orchestrator over the platform client.
func New(client youtube.Client, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		client:       client,
		logger:       logging.NewComponentLogger(logger, "orchestrator"),
		liveAttempts: DefaultLiveAttempts,
		sleep:        sleepContext,
		settle:       settleDelay,
		testingWait:  testingDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunStartSequence binds the broadcast to its ingest, transitions it to
// testing, waits for the monitor to settle, then goes live. A bind failure
// aborts the whole sequence without retrying: a misconfigured ingest makes
// every later step meaningless.
func (o *Orchestrator) RunStartSequence(ctx context.Context, broadcastID string) error {
	ctx = services.WithBroadcastID(ctx, broadcastID)
	logger := logging.WithContext(ctx, o.logger)

	if _, err := o.client.BindToIngest(ctx, broadcastID); err != nil {
		logger.Error("ingest bind failed, aborting start sequence", logging.Error(err))
		return fmt.Errorf("bind broadcast: %w", err)
	}
	logger.Info("broadcast bound to ingest")

	if err := o.transitionToTesting(ctx, broadcastID, logger); err != nil {
		return err
	}

	if err := o.sleep(ctx, o.settle); err != nil {
		return err
	}

	return o.GoLiveWithRetry(ctx, broadcastID)
}

// transitionToTesting retries only when the platform reports the ingest is
// not yet receiving data; any other failure abandons immediately.
func (o *Orchestrator) transitionToTesting(ctx context.Context, broadcastID string, logger *slog.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= testingAttempts; attempt++ {
		status, err := o.client.Transition(ctx, broadcastID, youtube.TransitionTesting)
		if err == nil {
			logger.Info("broadcast transitioned to testing", logging.String("status", status))
			return nil
		}
		lastErr = err
		if !services.IsNotReady(err) {
			logger.Error("testing transition failed", logging.Error(err))
			return fmt.Errorf("transition to testing: %w", err)
		}
		logger.Warn("stream not ready for testing",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Error(err))
		if attempt < testingAttempts {
			if sleepErr := o.sleep(ctx, o.testingWait); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return fmt.Errorf("transition to testing: %w", lastErr)
}

// GoLiveWithRetry attempts the live transition until it succeeds, the
// broadcast turns out to be live or complete already, the broadcast
// disappears, or the attempt budget runs out. Every attempt re-checks remote
// status first so redundant transition calls never race the platform's own
// propagation delay.
func (o *Orchestrator) GoLiveWithRetry(ctx context.Context, broadcastID string) error {
	ctx = services.WithBroadcastID(ctx, broadcastID)
	logger := logging.WithContext(ctx, o.logger)

	var lastErr error
	for attempt := 1; attempt <= o.liveAttempts; attempt++ {
		status, err := o.client.Status(ctx, broadcastID)
		switch {
		case err != nil && services.IsNotFound(err):
			logger.Error("broadcast deleted out-of-band, stopping", logging.Error(err))
			return fmt.Errorf("%w: %s", ErrBroadcastGone, broadcastID)
		case err != nil:
			lastErr = err
			logger.Warn("status check failed",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Error(err))
			if attempt < o.liveAttempts {
				if waitErr := o.backoff(ctx, attempt, err); waitErr != nil {
					return waitErr
				}
			}
			continue
		}

		switch status {
		case youtube.StatusLive:
			logger.Info("broadcast already live")
			return nil
		case youtube.StatusComplete:
			logger.Info("broadcast already complete, nothing to do")
			return nil
		}

		if _, err := o.client.Transition(ctx, broadcastID, youtube.TransitionLive); err != nil {
			if services.IsNotFound(err) {
				logger.Error("broadcast deleted out-of-band, stopping", logging.Error(err))
				return fmt.Errorf("%w: %s", ErrBroadcastGone, broadcastID)
			}
			lastErr = err
			logger.Warn("live transition failed",
				logging.Int(logging.FieldAttempt, attempt),
				logging.String("status", status),
				logging.Error(err))
			if attempt < o.liveAttempts {
				if waitErr := o.backoff(ctx, attempt, err); waitErr != nil {
					return waitErr
				}
			}
			continue
		}

		logger.Info("broadcast is live", logging.Int(logging.FieldAttempt, attempt))
		return nil
	}

	logger.Error("go-live attempts exhausted", logging.Error(lastErr))
	return fmt.Errorf("go live after %d attempts: %w", o.liveAttempts, lastErr)
}

// backoff waits linearly (capped) between attempts, stretching to a one
// minute floor when the platform is rate limiting us.
func (o *Orchestrator) backoff(ctx context.Context, attempt int, cause error) error {
	wait := time.Duration(attempt) * backoffStep
	if wait > backoffCap {
		wait = backoffCap
	}
	if services.IsRateLimited(cause) && wait < rateFloor {
		wait = rateFloor
	}
	return o.sleep(ctx, wait)
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
