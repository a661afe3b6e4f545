// Package bus provides the in-process event channel that connects the clock
// driver, scheduler, orchestrator, and daemon surfaces without direct
// coupling. Publishing never blocks; slow subscribers drop their oldest
// undelivered events.
package bus

import (
	"log/slog"
	"sync"

	"stagehand/internal/logging"
)

const defaultBuffer = 64

// Envelope wraps a published event with its sequence number.
type Envelope struct {
	Sequence uint64
	Event    Event
}

type subscriber struct {
	id    int
	types map[Type]struct{}
	ch    chan Envelope
}

func (s *subscriber) wants(t Type) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus fans events out to subscribers over bounded channels.
type Bus struct {
	mu      sync.Mutex
	nextSeq uint64
	nextID  int
	subs    map[int]*subscriber
	dropped uint64
	logger  *slog.Logger
}

// New constructs an event bus. A nil logger disables drop warnings.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{
		subs:   make(map[int]*subscriber),
		logger: logging.NewComponentLogger(logger, "bus"),
	}
}

// Subscribe registers a bounded subscription for the listed event types. An
// empty type list receives everything. The returned cancel func releases the
// subscription and closes the channel.
func (b *Bus) Subscribe(buffer int, types ...Type) (<-chan Envelope, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &subscriber{ch: make(chan Envelope, buffer)}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[sub.id]; ok {
			delete(b.subs, sub.id)
			close(sub.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching subscriber. When a subscriber's
// buffer is full its oldest undelivered envelope is discarded to make room, so
// publishers are never backpressured by a stalled reader.
func (b *Bus) Publish(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	env := Envelope{Sequence: b.nextSeq, Event: evt}
	for _, sub := range b.subs {
		if !sub.wants(evt.EventType()) {
			continue
		}
		for {
			select {
			case sub.ch <- env:
			default:
				select {
				case <-sub.ch:
					b.dropped++
					b.logger.Warn("subscriber buffer full, dropping oldest event",
						logging.String(logging.FieldEventType, string(evt.EventType())))
				default:
				}
				continue
			}
			break
		}
	}
}

// Dropped reports how many envelopes were discarded due to full buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
