package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running        bool      `json:"running"`
	PID            int       `json:"pid"`
	Timezone       string    `json:"timezone"`
	ClockRunning   bool      `json:"clock_running"`
	HeartbeatStale bool      `json:"heartbeat_stale"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
	PendingActions int       `json:"pending_actions"`
	DBPath         string    `json:"db_path"`
	LockPath       string    `json:"lock_path"`
}

// ScheduleRequest schedules a new broadcast. Days holds weekday numbers,
// Sunday as zero; it is only consulted when Recurring is set.
type ScheduleRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Privacy     string    `json:"privacy"`
	Latency     string    `json:"latency"`
	StartAt     time.Time `json:"start_at"`
	Recurring   bool      `json:"recurring"`
	Days        []int     `json:"days"`
	ThumbPath   string    `json:"thumb_path"`
}

// ScheduleResponse reports the scheduled broadcast.
type ScheduleResponse struct {
	BroadcastID string    `json:"broadcast_id"`
	StreamID    string    `json:"stream_id"`
	StartAt     time.Time `json:"start_at"`
	Actions     int       `json:"actions"`
}

// Broadcast mirrors the platform broadcast DTO for IPC callers.
type Broadcast struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	ScheduledStart time.Time `json:"scheduled_start"`
}

// BroadcastsRequest lists upcoming broadcasts.
type BroadcastsRequest struct{}

// BroadcastsResponse contains upcoming broadcasts.
type BroadcastsResponse struct {
	Broadcasts []Broadcast `json:"broadcasts"`
}

// BroadcastDeleteRequest removes a broadcast and its local state.
type BroadcastDeleteRequest struct {
	BroadcastID string `json:"broadcast_id"`
}

// BroadcastDeleteResponse reports how many local actions were removed.
type BroadcastDeleteResponse struct {
	ActionsRemoved int64 `json:"actions_removed"`
}

// Action mirrors a persisted timed action for IPC callers.
type Action struct {
	ID          string    `json:"id"`
	BroadcastID string    `json:"broadcast_id"`
	Kind        string    `json:"kind"`
	At          time.Time `json:"at"`
	SceneName   string    `json:"scene_name,omitempty"`
}

// ActionsListRequest lists actions, optionally for one broadcast.
type ActionsListRequest struct {
	BroadcastID string `json:"broadcast_id"`
}

// ActionsListResponse contains action entries.
type ActionsListResponse struct {
	Actions []Action `json:"actions"`
}

// ActionAddRequest persists and arms a new action.
type ActionAddRequest struct {
	BroadcastID string    `json:"broadcast_id"`
	Kind        string    `json:"kind"`
	At          time.Time `json:"at"`
	SceneName   string    `json:"scene_name"`
}

// ActionAddResponse returns the created action.
type ActionAddResponse struct {
	Action Action `json:"action"`
}

// ActionRemoveRequest cancels and deletes an action.
type ActionRemoveRequest struct {
	ActionID string `json:"action_id"`
}

// ActionRemoveResponse reports removal.
type ActionRemoveResponse struct {
	Removed bool `json:"removed"`
}

// CleanupRequest runs an orphan reconciliation pass.
type CleanupRequest struct{}

// CleanupResponse summarizes the pass.
type CleanupResponse struct {
	ValidBroadcasts int  `json:"valid_broadcasts"`
	ActionsPurged   int  `json:"actions_purged"`
	RulesPurged     int  `json:"rules_purged"`
	ActiveFetchOK   bool `json:"active_fetch_ok"`
}

// ClockRestartRequest bounces the heartbeat clock driver.
type ClockRestartRequest struct{}

// ClockRestartResponse reports the restart.
type ClockRestartResponse struct {
	Restarted bool `json:"restarted"`
}

// GoLiveRequest kicks off the live transition retry loop for a broadcast.
type GoLiveRequest struct {
	BroadcastID string `json:"broadcast_id"`
}

// GoLiveResponse reports that the retry loop was launched.
type GoLiveResponse struct {
	Started bool `json:"started"`
}
