package daemon

import (
	"context"

	"stagehand/internal/bus"
	"stagehand/internal/logging"
	"stagehand/internal/store"
)

// routeEvents connects fired actions to the lifecycle machinery. A start
// action launches the testing-then-live sequence; an end action announces the
// broadcast as ended and hands it to the recurrence engine for rollover.
// Handlers run in their own goroutines so a multi-minute go-live retry loop
// never blocks event delivery.
func (d *Daemon) routeEvents(ctx context.Context) {
	events, cancel := d.events.Subscribe(64, bus.TypeActionExecuted, bus.TypeEncoderStatus)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-events:
			if !ok {
				return
			}
			switch evt := env.Event.(type) {
			case bus.ActionExecuted:
				d.handleActionExecuted(ctx, evt)
			case bus.EncoderStatus:
				if !evt.OK {
					d.metrics.IncEncoderFailure()
				}
			}
		}
	}
}

func (d *Daemon) handleActionExecuted(ctx context.Context, evt bus.ActionExecuted) {
	d.metrics.IncActionExecuted(evt.Kind)

	switch store.ActionKind(evt.Kind) {
	case store.ActionStart:
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.orch.RunStartSequence(ctx, evt.BroadcastID); err != nil {
				d.logger.Error("start sequence failed",
					logging.String(logging.FieldBroadcastID, evt.BroadcastID),
					logging.Error(err))
				return
			}
			d.metrics.IncLive()
		}()
	case store.ActionEnd:
		d.events.Publish(bus.BroadcastEnded{BroadcastID: evt.BroadcastID, At: evt.At})
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.recurrence.HandleStreamEnded(ctx, evt.BroadcastID); err != nil {
				d.logger.Error("recurrence rollover failed",
					logging.String(logging.FieldBroadcastID, evt.BroadcastID),
					logging.Error(err))
			}
		}()
	}
}
