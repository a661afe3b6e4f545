package youtube

import (
	"context"
	"time"
)

// Lifecycle status values reported by the platform.
const (
	StatusCreated  = "created"
	StatusReady    = "ready"
	StatusTesting  = "testing"
	StatusLive     = "live"
	StatusComplete = "complete"
	StatusRevoked  = "revoked"
)

// Transition targets accepted by the platform.
const (
	TransitionTesting  = "testing"
	TransitionLive     = "live"
	TransitionComplete = "complete"
)

// Broadcast is the subset of remote broadcast state the daemon works with.
type Broadcast struct {
	ID             string
	Title          string
	Status         string
	ScheduledStart time.Time
}

// CreateRequest describes a new scheduled broadcast.
type CreateRequest struct {
	Title       string
	Description string
	Privacy     string
	Latency     string
	StartAt     time.Time
}

// Client defines the platform operations the orchestrator, recurrence engine,
// and reconciler depend on. The production implementation is backed by the
// YouTube Data API; tests substitute fakes.
type Client interface {
	CreateBroadcast(ctx context.Context, req CreateRequest) (*Broadcast, error)
	BindToIngest(ctx context.Context, broadcastID string) (string, error)
	Transition(ctx context.Context, broadcastID, status string) (string, error)
	Status(ctx context.Context, broadcastID string) (string, error)
	ListScheduled(ctx context.Context) ([]*Broadcast, error)
	ListActive(ctx context.Context) ([]*Broadcast, error)
	Delete(ctx context.Context, broadcastID string) error
	SetThumbnail(ctx context.Context, broadcastID, path string) error
}
