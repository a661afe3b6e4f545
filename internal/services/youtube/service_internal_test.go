package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"stagehand/internal/services"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api, err := yt.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(server.URL))
	if err != nil {
		t.Fatalf("build api service: %v", err)
	}
	return &Service{api: api}
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestCreateBroadcastSendsMetadata(t *testing.T) {
	var gotBody yt.LiveBroadcast
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "liveBroadcasts") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		writeJSON(t, w, map[string]any{
			"id": "bc-1",
			"snippet": map[string]any{
				"title":              "Sunday Service",
				"scheduledStartTime": "2026-09-06T14:30:00Z",
			},
			"status": map[string]any{"lifeCycleStatus": "created"},
		})
	}))

	startAt := time.Date(2026, 9, 6, 14, 30, 0, 0, time.UTC)
	broadcast, err := svc.CreateBroadcast(context.Background(), CreateRequest{
		Title:   "Sunday Service",
		Privacy: "unlisted",
		StartAt: startAt,
	})
	if err != nil {
		t.Fatalf("CreateBroadcast returned error: %v", err)
	}
	if broadcast.ID != "bc-1" || broadcast.Status != StatusCreated {
		t.Fatalf("unexpected broadcast %+v", broadcast)
	}
	if !broadcast.ScheduledStart.Equal(startAt) {
		t.Fatalf("expected start %s, got %s", startAt, broadcast.ScheduledStart)
	}
	if gotBody.Snippet == nil || gotBody.Snippet.Title != "Sunday Service" {
		t.Fatalf("request snippet not forwarded: %+v", gotBody.Snippet)
	}
	if gotBody.Status == nil || gotBody.Status.PrivacyStatus != "unlisted" {
		t.Fatalf("request privacy not forwarded: %+v", gotBody.Status)
	}
}

func TestBindToIngestReusesReusableStream(t *testing.T) {
	var boundStream string
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "liveStreams"):
			writeJSON(t, w, map[string]any{
				"items": []map[string]any{
					{"id": "s-old", "contentDetails": map[string]any{"isReusable": false}},
					{"id": "s-reuse", "contentDetails": map[string]any{"isReusable": true}},
				},
			})
		case strings.Contains(r.URL.Path, "liveBroadcasts/bind"):
			boundStream = r.URL.Query().Get("streamId")
			writeJSON(t, w, map[string]any{"id": "bc-1"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	streamID, err := svc.BindToIngest(context.Background(), "bc-1")
	if err != nil {
		t.Fatalf("BindToIngest returned error: %v", err)
	}
	if streamID != "s-reuse" {
		t.Fatalf("expected reusable stream, got %q", streamID)
	}
	if boundStream != "s-reuse" {
		t.Fatalf("bind used stream %q", boundStream)
	}
}

func TestBindToIngestCreatesStreamWhenMissing(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "liveStreams") && r.Method == http.MethodGet:
			writeJSON(t, w, map[string]any{"items": []map[string]any{}})
		case strings.Contains(r.URL.Path, "liveStreams") && r.Method == http.MethodPost:
			writeJSON(t, w, map[string]any{"id": "s-new"})
		case strings.Contains(r.URL.Path, "liveBroadcasts/bind"):
			writeJSON(t, w, map[string]any{"id": "bc-1"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	streamID, err := svc.BindToIngest(context.Background(), "bc-1")
	if err != nil {
		t.Fatalf("BindToIngest returned error: %v", err)
	}
	if streamID != "s-new" {
		t.Fatalf("expected created stream, got %q", streamID)
	}
}

func TestTransitionReturnsReportedStatus(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "liveBroadcasts/transition") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("broadcastStatus"); got != TransitionLive {
			t.Errorf("expected transition to live, got %q", got)
		}
		writeJSON(t, w, map[string]any{
			"status": map[string]any{"lifeCycleStatus": "liveStarting"},
		})
	}))

	status, err := svc.Transition(context.Background(), "bc-1", TransitionLive)
	if err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if status != "liveStarting" {
		t.Fatalf("unexpected status %q", status)
	}
}

func TestStatusMissingBroadcastIsNotFound(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{}})
	}))

	_, err := svc.Status(context.Background(), "bc-missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListScheduledPaginates(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("broadcastStatus"); got != "upcoming" {
			t.Errorf("expected upcoming filter, got %q", got)
		}
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, map[string]any{
				"items":         []map[string]any{{"id": "bc-1"}},
				"nextPageToken": "page-2",
			})
			return
		}
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{{"id": "bc-2"}},
		})
	}))

	broadcasts, err := svc.ListScheduled(context.Background())
	if err != nil {
		t.Fatalf("ListScheduled returned error: %v", err)
	}
	if len(broadcasts) != 2 || broadcasts[0].ID != "bc-1" || broadcasts[1].ID != "bc-2" {
		t.Fatalf("unexpected broadcasts %+v", broadcasts)
	}
}

func TestLoadTokenMissingFileIsConfigurationError(t *testing.T) {
	_, err := loadToken(t.TempDir() + "/token.json")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
