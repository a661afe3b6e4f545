package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"stagehand/internal/daemon"
	"stagehand/internal/logging"
	"stagehand/internal/store"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Stagehand", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Timezone = status.Timezone
	resp.ClockRunning = status.ClockRunning
	resp.HeartbeatStale = status.HeartbeatStale
	resp.LastHeartbeat = status.LastHeartbeat
	resp.PendingActions = status.PendingActions
	resp.DBPath = status.DBPath
	resp.LockPath = status.LockFilePath
	return nil
}

func (s *service) Schedule(req ScheduleRequest, resp *ScheduleResponse) error {
	days := make([]time.Weekday, 0, len(req.Days))
	for _, day := range req.Days {
		if day < 0 || day > 6 {
			return fmt.Errorf("invalid weekday %d", day)
		}
		days = append(days, time.Weekday(day))
	}

	result, err := s.daemon.ScheduleStream(s.ctx, daemon.ScheduleRequest{
		Title:       req.Title,
		Description: req.Description,
		Privacy:     req.Privacy,
		Latency:     req.Latency,
		StartAt:     req.StartAt,
		Recurring:   req.Recurring,
		Days:        days,
		ThumbPath:   req.ThumbPath,
	})
	if err != nil {
		return err
	}
	resp.BroadcastID = result.BroadcastID
	resp.StreamID = result.StreamID
	resp.StartAt = result.StartAt
	resp.Actions = result.Actions
	s.logger.Info("stream scheduled via IPC",
		logging.String(logging.FieldBroadcastID, result.BroadcastID))
	return nil
}

func (s *service) Broadcasts(_ BroadcastsRequest, resp *BroadcastsResponse) error {
	broadcasts, err := s.daemon.Broadcasts(s.ctx)
	if err != nil {
		return err
	}
	resp.Broadcasts = make([]Broadcast, 0, len(broadcasts))
	for _, broadcast := range broadcasts {
		resp.Broadcasts = append(resp.Broadcasts, Broadcast{
			ID:             broadcast.ID,
			Title:          broadcast.Title,
			Status:         broadcast.Status,
			ScheduledStart: broadcast.ScheduledStart,
		})
	}
	return nil
}

func (s *service) BroadcastDelete(req BroadcastDeleteRequest, resp *BroadcastDeleteResponse) error {
	removed, err := s.daemon.DeleteBroadcast(s.ctx, req.BroadcastID)
	if err != nil {
		return err
	}
	resp.ActionsRemoved = removed
	s.logger.Info("broadcast deleted via IPC",
		logging.String(logging.FieldBroadcastID, req.BroadcastID))
	return nil
}

func (s *service) ActionsList(req ActionsListRequest, resp *ActionsListResponse) error {
	actions, err := s.daemon.Actions(s.ctx, req.BroadcastID)
	if err != nil {
		return err
	}
	resp.Actions = make([]Action, 0, len(actions))
	for _, action := range actions {
		resp.Actions = append(resp.Actions, convertAction(action))
	}
	return nil
}

func (s *service) ActionAdd(req ActionAddRequest, resp *ActionAddResponse) error {
	action, err := s.daemon.AddAction(s.ctx, req.BroadcastID, store.ActionKind(req.Kind), req.At, req.SceneName)
	if err != nil {
		return err
	}
	resp.Action = convertAction(action)
	return nil
}

func (s *service) ActionRemove(req ActionRemoveRequest, resp *ActionRemoveResponse) error {
	if err := s.daemon.RemoveAction(s.ctx, req.ActionID); err != nil {
		return err
	}
	resp.Removed = true
	return nil
}

func (s *service) Cleanup(_ CleanupRequest, resp *CleanupResponse) error {
	result, err := s.daemon.Cleanup(s.ctx)
	if err != nil {
		return err
	}
	resp.ValidBroadcasts = result.ValidBroadcasts
	resp.ActionsPurged = result.ActionsPurged
	resp.RulesPurged = result.RulesPurged
	resp.ActiveFetchOK = result.ActiveFetchOK
	s.logger.Info("cleanup pass via IPC",
		logging.Int("actions_purged", result.ActionsPurged),
		logging.Int("rules_purged", result.RulesPurged))
	return nil
}

func (s *service) ClockRestart(_ ClockRestartRequest, resp *ClockRestartResponse) error {
	if err := s.daemon.RestartClock(s.ctx); err != nil {
		return err
	}
	resp.Restarted = true
	return nil
}

func (s *service) GoLive(req GoLiveRequest, resp *GoLiveResponse) error {
	if err := s.daemon.GoLive(s.ctx, req.BroadcastID); err != nil {
		return err
	}
	resp.Started = true
	return nil
}

func convertAction(action *store.Action) Action {
	if action == nil {
		return Action{}
	}
	return Action{
		ID:          action.ID,
		BroadcastID: action.BroadcastID,
		Kind:        string(action.Kind),
		At:          action.At,
		SceneName:   action.Payload.SceneName,
	}
}
