package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"stagehand/internal/config"
	"stagehand/internal/logging"
	"stagehand/internal/store"
)

// apiServer exposes a read-only HTTP view of the daemon plus the Prometheus
// scrape endpoint. An empty bind address disables it.
type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{bind: bind, logger: logger, daemon: d}

	router := chi.NewRouter()
	router.Get("/api/status", srv.handleStatus)
	router.Get("/api/broadcasts", srv.handleBroadcasts)
	router.Get("/api/actions", srv.handleActions)
	router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		d.metrics.Handler(func() {
			d.metrics.SetPendingActions(d.registry.Len())
		}).ServeHTTP(w, r)
	})

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the listener address, for tests that bind to port zero.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type statusPayload struct {
	Running        bool      `json:"running"`
	PID            int       `json:"pid"`
	Timezone       string    `json:"timezone"`
	ClockRunning   bool      `json:"clock_running"`
	HeartbeatStale bool      `json:"heartbeat_stale"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
	PendingActions int       `json:"pending_actions"`
	DBPath         string    `json:"db_path"`
}

type broadcastPayload struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	ScheduledStart time.Time `json:"scheduled_start"`
}

type actionPayload struct {
	ID          string    `json:"id"`
	BroadcastID string    `json:"broadcast_id"`
	Kind        string    `json:"kind"`
	At          time.Time `json:"at"`
	SceneName   string    `json:"scene_name,omitempty"`
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, statusPayload{
		Running:        status.Running,
		PID:            status.PID,
		Timezone:       status.Timezone,
		ClockRunning:   status.ClockRunning,
		HeartbeatStale: status.HeartbeatStale,
		LastHeartbeat:  status.LastHeartbeat,
		PendingActions: status.PendingActions,
		DBPath:         status.DBPath,
	})
}

func (s *apiServer) handleBroadcasts(w http.ResponseWriter, r *http.Request) {
	broadcasts, err := s.daemon.Broadcasts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	payload := make([]broadcastPayload, 0, len(broadcasts))
	for _, broadcast := range broadcasts {
		payload = append(payload, broadcastPayload{
			ID:             broadcast.ID,
			Title:          broadcast.Title,
			Status:         broadcast.Status,
			ScheduledStart: broadcast.ScheduledStart,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"broadcasts": payload})
}

func (s *apiServer) handleActions(w http.ResponseWriter, r *http.Request) {
	broadcastID := strings.TrimSpace(r.URL.Query().Get("broadcast"))
	actions, err := s.daemon.Actions(r.Context(), broadcastID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"actions": convertActions(actions)})
}

func convertActions(actions []*store.Action) []actionPayload {
	payload := make([]actionPayload, 0, len(actions))
	for _, action := range actions {
		payload = append(payload, actionPayload{
			ID:          action.ID,
			BroadcastID: action.BroadcastID,
			Kind:        string(action.Kind),
			At:          action.At,
			SceneName:   action.Payload.SceneName,
		})
	}
	return payload
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
