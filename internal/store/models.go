package store

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// ActionKind classifies the side effect an action performs when it fires.
type ActionKind string

const (
	ActionStart    ActionKind = "start"
	ActionSetScene ActionKind = "setScene"
	ActionEnd      ActionKind = "end"
)

// KnownKind reports whether the kind is part of the supported closed set.
func KnownKind(kind ActionKind) bool {
	switch kind {
	case ActionStart, ActionSetScene, ActionEnd:
		return true
	default:
		return false
	}
}

// Payload carries kind-specific action data.
type Payload struct {
	SceneName string `json:"sceneName,omitempty"`
}

// Action is a single timed side effect tied to a broadcast. Actions are never
// edited in place; edits are expressed as delete plus recreate.
type Action struct {
	ID          string
	BroadcastID string
	Kind        ActionKind
	At          time.Time
	Payload     Payload
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Meta holds the broadcast settings a recurrence rule carries forward onto
// each newly created occurrence.
type Meta struct {
	Title       string
	Description string
	Privacy     string
	Latency     string
	ThumbPath   string
}

// Rule is a recurrence rule keyed by the broadcast id it currently owns.
type Rule struct {
	BroadcastID string
	Recurring   bool
	Days        []time.Weekday
	BaseTime    time.Time
	Meta        Meta
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Step is one relative entry of the global flow template.
type Step struct {
	OffsetSec int64      `json:"offsetSec"`
	Kind      ActionKind `json:"type"`
	Payload   Payload    `json:"payload,omitempty"`
	// OriginalAt preserves the absolute time the step was derived from so the
	// day-aware apply can reconstruct calendar-day structure.
	OriginalAt time.Time `json:"originalAt"`
}

// Template is the single global flow template. It is overwritten whenever any
// broadcast's action set changes; the most recent flow becomes the default for
// the next scheduled stream.
type Template struct {
	BaseTime  time.Time
	UpdatedAt time.Time
	Steps     []Step
}

// HasStart reports whether any step is a start action.
func (t *Template) HasStart() bool {
	if t == nil {
		return false
	}
	for _, step := range t.Steps {
		if step.Kind == ActionStart {
			return true
		}
	}
	return false
}

func encodeDays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	seen := make(map[time.Weekday]struct{}, len(days))
	ordered := make([]int, 0, len(days))
	for _, day := range days {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		ordered = append(ordered, int(day))
	}
	sort.Ints(ordered)
	parts := make([]string, len(ordered))
	for i, day := range ordered {
		parts[i] = strconv.Itoa(day)
	}
	return strings.Join(parts, ",")
}

func decodeDays(raw string) []time.Weekday {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || value < 0 || value > 6 {
			continue
		}
		days = append(days, time.Weekday(value))
	}
	return days
}
