package youtube

import (
	"context"
	"fmt"
	"os"
	"time"

	yt "google.golang.org/api/youtube/v3"

	"stagehand/internal/config"
	"stagehand/internal/services"
)

const listPageSize = 50

// Service implements Client against the YouTube Data API.
type Service struct {
	api     *yt.Service
	timeout time.Duration
}

// NewService builds an authenticated API client from the configured OAuth
// credentials and token files.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	httpClient, err := oauthHTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	api, err := newAPIService(ctx, httpClient)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "youtube", "init", "build api service", err)
	}
	return &Service{api: api, timeout: time.Duration(cfg.YouTube.RequestTimeout) * time.Second}, nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// CreateBroadcast schedules a new broadcast with the requested metadata.
func (s *Service) CreateBroadcast(ctx context.Context, req CreateRequest) (*Broadcast, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	broadcast := &yt.LiveBroadcast{
		Snippet: &yt.LiveBroadcastSnippet{
			Title:              req.Title,
			Description:        req.Description,
			ScheduledStartTime: req.StartAt.UTC().Format(time.RFC3339),
		},
		Status: &yt.LiveBroadcastStatus{
			PrivacyStatus: req.Privacy,
		},
		ContentDetails: &yt.LiveBroadcastContentDetails{
			EnableAutoStart: false,
			EnableAutoStop:  false,
		},
	}
	if req.Latency != "" {
		broadcast.ContentDetails.LatencyPreference = req.Latency
	}

	created, err := s.api.LiveBroadcasts.
		Insert([]string{"snippet", "status", "contentDetails"}, broadcast).
		Context(callCtx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	return convertBroadcast(created), nil
}

// BindToIngest attaches the broadcast to a reusable ingest stream, creating
// one when the channel has none. It returns the bound stream id.
func (s *Service) BindToIngest(ctx context.Context, broadcastID string) (string, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	streamID, err := s.ensureStream(callCtx)
	if err != nil {
		return "", err
	}

	_, err = s.api.LiveBroadcasts.
		Bind(broadcastID, []string{"id", "contentDetails"}).
		StreamId(streamID).
		Context(callCtx).
		Do()
	if err != nil {
		return "", fmt.Errorf("bind broadcast %s: %w", broadcastID, err)
	}
	return streamID, nil
}

func (s *Service) ensureStream(ctx context.Context) (string, error) {
	list, err := s.api.LiveStreams.
		List([]string{"id", "cdn", "contentDetails"}).
		Mine(true).
		MaxResults(listPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list ingest streams: %w", err)
	}
	for _, item := range list.Items {
		if item.ContentDetails != nil && item.ContentDetails.IsReusable {
			return item.Id, nil
		}
	}
	if len(list.Items) > 0 {
		return list.Items[0].Id, nil
	}

	created, err := s.api.LiveStreams.
		Insert([]string{"snippet", "cdn", "contentDetails"}, &yt.LiveStream{
			Snippet: &yt.LiveStreamSnippet{Title: "stagehand ingest"},
			Cdn: &yt.CdnSettings{
				FrameRate:     "variable",
				IngestionType: "rtmp",
				Resolution:    "variable",
			},
			ContentDetails: &yt.LiveStreamContentDetails{IsReusable: true},
		}).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create ingest stream: %w", err)
	}
	return created.Id, nil
}

// Transition requests a lifecycle transition and returns the status the
// platform reports afterwards.
func (s *Service) Transition(ctx context.Context, broadcastID, status string) (string, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	resp, err := s.api.LiveBroadcasts.
		Transition(status, broadcastID, []string{"status"}).
		Context(callCtx).
		Do()
	if err != nil {
		return "", fmt.Errorf("transition broadcast %s to %s: %w", broadcastID, status, err)
	}
	if resp.Status == nil {
		return status, nil
	}
	return resp.Status.LifeCycleStatus, nil
}

// Status fetches the remote lifecycle status for one broadcast.
func (s *Service) Status(ctx context.Context, broadcastID string) (string, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	resp, err := s.api.LiveBroadcasts.
		List([]string{"status"}).
		Id(broadcastID).
		Context(callCtx).
		Do()
	if err != nil {
		return "", fmt.Errorf("broadcast status %s: %w", broadcastID, err)
	}
	if len(resp.Items) == 0 {
		return "", services.Wrap(services.ErrNotFound, "youtube", "status", "broadcast "+broadcastID, nil)
	}
	if resp.Items[0].Status == nil {
		return "", services.Wrap(services.ErrTransient, "youtube", "status", "missing status for "+broadcastID, nil)
	}
	return resp.Items[0].Status.LifeCycleStatus, nil
}

// ListScheduled returns the channel's upcoming broadcasts.
func (s *Service) ListScheduled(ctx context.Context) ([]*Broadcast, error) {
	return s.listByBroadcastStatus(ctx, "upcoming")
}

// ListActive returns the channel's currently live broadcasts.
func (s *Service) ListActive(ctx context.Context) ([]*Broadcast, error) {
	return s.listByBroadcastStatus(ctx, "active")
}

func (s *Service) listByBroadcastStatus(ctx context.Context, broadcastStatus string) ([]*Broadcast, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	var (
		broadcasts []*Broadcast
		pageToken  string
	)
	for {
		call := s.api.LiveBroadcasts.
			List([]string{"id", "snippet", "status"}).
			BroadcastStatus(broadcastStatus).
			BroadcastType("all").
			MaxResults(listPageSize).
			Context(callCtx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list %s broadcasts: %w", broadcastStatus, err)
		}
		for _, item := range resp.Items {
			broadcasts = append(broadcasts, convertBroadcast(item))
		}
		if resp.NextPageToken == "" {
			return broadcasts, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Delete removes the broadcast from the platform.
func (s *Service) Delete(ctx context.Context, broadcastID string) error {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	if err := s.api.LiveBroadcasts.Delete(broadcastID).Context(callCtx).Do(); err != nil {
		return fmt.Errorf("delete broadcast %s: %w", broadcastID, err)
	}
	return nil
}

// SetThumbnail uploads a thumbnail image for the broadcast's video.
func (s *Service) SetThumbnail(ctx context.Context, broadcastID, path string) error {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open thumbnail %s: %w", path, err)
	}
	defer file.Close()

	if _, err := s.api.Thumbnails.Set(broadcastID).Media(file).Context(callCtx).Do(); err != nil {
		return fmt.Errorf("set thumbnail for %s: %w", broadcastID, err)
	}
	return nil
}

func convertBroadcast(item *yt.LiveBroadcast) *Broadcast {
	if item == nil {
		return nil
	}
	broadcast := &Broadcast{ID: item.Id}
	if item.Snippet != nil {
		broadcast.Title = item.Snippet.Title
		if item.Snippet.ScheduledStartTime != "" {
			if start, err := time.Parse(time.RFC3339, item.Snippet.ScheduledStartTime); err == nil {
				broadcast.ScheduledStart = start
			}
		}
	}
	if item.Status != nil {
		broadcast.Status = item.Status.LifeCycleStatus
	}
	return broadcast
}
