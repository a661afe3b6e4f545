package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"stagehand/internal/services/obs"
	"stagehand/internal/services/youtube"
)

// FakeBroadcastClient is a programmable youtube.Client. Function fields, when
// set, override the default in-memory behavior.
type FakeBroadcastClient struct {
	mu sync.Mutex

	CreateFunc     func(ctx context.Context, req youtube.CreateRequest) (*youtube.Broadcast, error)
	BindFunc       func(ctx context.Context, broadcastID string) (string, error)
	TransitionFunc func(ctx context.Context, broadcastID, status string) (string, error)
	StatusFunc     func(ctx context.Context, broadcastID string) (string, error)
	ScheduledFunc  func(ctx context.Context) ([]*youtube.Broadcast, error)
	ActiveFunc     func(ctx context.Context) ([]*youtube.Broadcast, error)
	DeleteFunc     func(ctx context.Context, broadcastID string) error
	ThumbnailFunc  func(ctx context.Context, broadcastID, path string) error

	Statuses    map[string]string
	Created     []youtube.CreateRequest
	Bound       []string
	Transitions []string
	Deleted     []string
	Thumbnails  []string

	nextID int
}

var _ youtube.Client = (*FakeBroadcastClient)(nil)

// NewFakeBroadcastClient returns an empty fake with an initialized status map.
func NewFakeBroadcastClient() *FakeBroadcastClient {
	return &FakeBroadcastClient{Statuses: make(map[string]string)}
}

// SetStatus seeds the remote lifecycle status for a broadcast id.
func (f *FakeBroadcastClient) SetStatus(broadcastID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Statuses[broadcastID] = status
}

func (f *FakeBroadcastClient) CreateBroadcast(ctx context.Context, req youtube.CreateRequest) (*youtube.Broadcast, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("fake-%d", f.nextID)
	f.Created = append(f.Created, req)
	f.Statuses[id] = youtube.StatusReady
	return &youtube.Broadcast{ID: id, Title: req.Title, Status: youtube.StatusReady, ScheduledStart: req.StartAt}, nil
}

func (f *FakeBroadcastClient) BindToIngest(ctx context.Context, broadcastID string) (string, error) {
	if f.BindFunc != nil {
		return f.BindFunc(ctx, broadcastID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Bound = append(f.Bound, broadcastID)
	return "stream-1", nil
}

func (f *FakeBroadcastClient) Transition(ctx context.Context, broadcastID, status string) (string, error) {
	if f.TransitionFunc != nil {
		return f.TransitionFunc(ctx, broadcastID, status)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Transitions = append(f.Transitions, broadcastID+":"+status)
	f.Statuses[broadcastID] = status
	return status, nil
}

func (f *FakeBroadcastClient) Status(ctx context.Context, broadcastID string) (string, error) {
	if f.StatusFunc != nil {
		return f.StatusFunc(ctx, broadcastID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.Statuses[broadcastID]
	if !ok {
		return "", errors.New("broadcast not found")
	}
	return status, nil
}

func (f *FakeBroadcastClient) ListScheduled(ctx context.Context) ([]*youtube.Broadcast, error) {
	if f.ScheduledFunc != nil {
		return f.ScheduledFunc(ctx)
	}
	return nil, nil
}

func (f *FakeBroadcastClient) ListActive(ctx context.Context) ([]*youtube.Broadcast, error) {
	if f.ActiveFunc != nil {
		return f.ActiveFunc(ctx)
	}
	return nil, nil
}

func (f *FakeBroadcastClient) Delete(ctx context.Context, broadcastID string) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, broadcastID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, broadcastID)
	delete(f.Statuses, broadcastID)
	return nil
}

func (f *FakeBroadcastClient) SetThumbnail(ctx context.Context, broadcastID, path string) error {
	if f.ThumbnailFunc != nil {
		return f.ThumbnailFunc(ctx, broadcastID, path)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Thumbnails = append(f.Thumbnails, broadcastID+":"+path)
	return nil
}

// BoundCount returns how many ingest binds were recorded for a broadcast.
func (f *FakeBroadcastClient) BoundCount(broadcastID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, id := range f.Bound {
		if id == broadcastID {
			count++
		}
	}
	return count
}

// TransitionCount returns how many transitions were recorded for a broadcast.
func (f *FakeBroadcastClient) TransitionCount(broadcastID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, entry := range f.Transitions {
		if len(entry) > len(broadcastID) && entry[:len(broadcastID)] == broadcastID {
			count++
		}
	}
	return count
}

// FakeEncoder records encoder commands and fails on demand.
type FakeEncoder struct {
	mu sync.Mutex

	Scenes     []string
	Starts     int
	Stops      int
	VersionStr string

	SceneErr error
	StartErr error
	StopErr  error
	Closed   bool
}

var _ obs.Client = (*FakeEncoder)(nil)

func (f *FakeEncoder) SetScene(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SceneErr != nil {
		return f.SceneErr
	}
	f.Scenes = append(f.Scenes, name)
	return nil
}

func (f *FakeEncoder) StartStream(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	f.Starts++
	return nil
}

func (f *FakeEncoder) StopStream(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StopErr != nil {
		return f.StopErr
	}
	f.Stops++
	return nil
}

func (f *FakeEncoder) Version(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.VersionStr == "" {
		return "30.0.0", nil
	}
	return f.VersionStr, nil
}

func (f *FakeEncoder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// FlakyDialer fails the first Failures dial attempts before handing out the
// wrapped encoder.
type FlakyDialer struct {
	mu       sync.Mutex
	Failures int
	Encoder  *FakeEncoder
	Dials    int
}

// Dial implements obs.Dialer.
func (d *FlakyDialer) Dial(ctx context.Context) (obs.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dials++
	if d.Dials <= d.Failures {
		return nil, errors.New("connection refused")
	}
	if d.Encoder == nil {
		d.Encoder = &FakeEncoder{}
	}
	return d.Encoder, nil
}
