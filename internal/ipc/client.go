package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Stagehand.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Schedule creates a new scheduled broadcast.
func (c *Client) Schedule(req ScheduleRequest) (*ScheduleResponse, error) {
	var resp ScheduleResponse
	if err := c.client.Call("Stagehand.Schedule", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Broadcasts lists upcoming broadcasts.
func (c *Client) Broadcasts() (*BroadcastsResponse, error) {
	var resp BroadcastsResponse
	if err := c.client.Call("Stagehand.Broadcasts", BroadcastsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BroadcastDelete removes a broadcast and its local state.
func (c *Client) BroadcastDelete(broadcastID string) (*BroadcastDeleteResponse, error) {
	var resp BroadcastDeleteResponse
	req := BroadcastDeleteRequest{BroadcastID: broadcastID}
	if err := c.client.Call("Stagehand.BroadcastDelete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionsList lists actions, optionally filtered to one broadcast.
func (c *Client) ActionsList(broadcastID string) (*ActionsListResponse, error) {
	var resp ActionsListResponse
	req := ActionsListRequest{BroadcastID: broadcastID}
	if err := c.client.Call("Stagehand.ActionsList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionAdd persists and arms a new action.
func (c *Client) ActionAdd(req ActionAddRequest) (*ActionAddResponse, error) {
	var resp ActionAddResponse
	if err := c.client.Call("Stagehand.ActionAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActionRemove cancels and deletes an action.
func (c *Client) ActionRemove(actionID string) (*ActionRemoveResponse, error) {
	var resp ActionRemoveResponse
	req := ActionRemoveRequest{ActionID: actionID}
	if err := c.client.Call("Stagehand.ActionRemove", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cleanup runs an orphan reconciliation pass.
func (c *Client) Cleanup() (*CleanupResponse, error) {
	var resp CleanupResponse
	if err := c.client.Call("Stagehand.Cleanup", CleanupRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClockRestart bounces the heartbeat clock driver.
func (c *Client) ClockRestart() (*ClockRestartResponse, error) {
	var resp ClockRestartResponse
	if err := c.client.Call("Stagehand.ClockRestart", ClockRestartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoLive launches the live transition retry loop for a broadcast.
func (c *Client) GoLive(broadcastID string) (*GoLiveResponse, error) {
	var resp GoLiveResponse
	req := GoLiveRequest{BroadcastID: broadcastID}
	if err := c.client.Call("Stagehand.GoLive", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
