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

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start monitoring.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop monitoring.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	return call[ShutdownResponse](c, "Shutdown", ShutdownRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Rescan runs one scan of the watch directory.
func (c *Client) Rescan() (*RescanResponse, error) {
	return call[RescanResponse](c, "Rescan", RescanRequest{})
}

// Undo reverses the most recent undoable move.
func (c *Client) Undo() (*UndoResponse, error) {
	return call[UndoResponse](c, "Undo", UndoRequest{})
}

// Activity lists up to limit activity entries, newest first.
func (c *Client) Activity(limit int) (*ActivityResponse, error) {
	return call[ActivityResponse](c, "Activity", ActivityRequest{Limit: limit})
}

// Pending lists files waiting for a retry.
func (c *Client) Pending() (*PendingResponse, error) {
	return call[PendingResponse](c, "Pending", PendingRequest{})
}

// Review lists the review area.
func (c *Client) Review() (*ReviewResponse, error) {
	return call[ReviewResponse](c, "Review", ReviewRequest{})
}

// Reprocess sends one file back through the pipeline.
func (c *Client) Reprocess(path string) (*ReprocessResponse, error) {
	return call[ReprocessResponse](c, "Reprocess", ReprocessRequest{Path: path})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
