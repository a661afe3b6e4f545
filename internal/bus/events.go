package bus

import "time"

// Type identifies an event category on the bus.
type Type string

const (
	TypeHeartbeat          Type = "heartbeat"
	TypeHeartbeatStale     Type = "heartbeat_stale"
	TypeHeartbeatRecovered Type = "heartbeat_recovered"
	TypeEncoderStatus      Type = "encoder_status"
	TypeActionExecuted     Type = "action_executed"
	TypeBroadcastScheduled Type = "broadcast_scheduled"
	TypeBroadcastEnded     Type = "broadcast_ended"
	TypeTimezone           Type = "timezone"
	TypeLog                Type = "log"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	EventType() Type
}

// Heartbeat is published by the clock driver on every tick.
type Heartbeat struct {
	At time.Time `json:"at"`
}

func (Heartbeat) EventType() Type { return TypeHeartbeat }

// HeartbeatStale signals that heartbeats stopped arriving within the
// configured grace window.
type HeartbeatStale struct {
	LastSeen time.Time     `json:"last_seen"`
	Age      time.Duration `json:"age"`
}

func (HeartbeatStale) EventType() Type { return TypeHeartbeatStale }

// HeartbeatRecovered signals that heartbeats resumed after a stale period.
type HeartbeatRecovered struct {
	At time.Time `json:"at"`
}

func (HeartbeatRecovered) EventType() Type { return TypeHeartbeatRecovered }

// EncoderStatus reports the outcome of an encoder connection attempt or probe.
type EncoderStatus struct {
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
	Task    string `json:"task,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (EncoderStatus) EventType() Type { return TypeEncoderStatus }

// ActionExecuted is published after the executor runs a scheduled action,
// regardless of whether the encoder work inside it succeeded.
type ActionExecuted struct {
	ActionID    string    `json:"action_id"`
	BroadcastID string    `json:"broadcast_id"`
	Kind        string    `json:"kind"`
	At          time.Time `json:"at"`
}

func (ActionExecuted) EventType() Type { return TypeActionExecuted }

// BroadcastScheduled announces a newly created broadcast with armed actions.
type BroadcastScheduled struct {
	BroadcastID string    `json:"broadcast_id"`
	Title       string    `json:"title"`
	StartAt     time.Time `json:"start_at"`
	Recurring   bool      `json:"recurring"`
}

func (BroadcastScheduled) EventType() Type { return TypeBroadcastScheduled }

// BroadcastEnded announces that a broadcast's end action ran and the stream
// was taken down.
type BroadcastEnded struct {
	BroadcastID string    `json:"broadcast_id"`
	At          time.Time `json:"at"`
}

func (BroadcastEnded) EventType() Type { return TypeBroadcastEnded }

// LogLine carries a human-readable audit line onto the event stream so
// observers see the same trail the log files do.
type LogLine struct {
	Component string    `json:"component"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

func (LogLine) EventType() Type { return TypeLog }

// Timezone announces the zone all schedule math runs in. Published once when
// the clock driver starts so observers can render local times.
type Timezone struct {
	Name string `json:"name"`
}

func (Timezone) EventType() Type { return TypeTimezone }
