package admin

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"
)

// Client sends one control request per call to an acommsd admin endpoint,
// grounded on mirage.GhostAdminSpawner: a fresh net.Dialer connection per
// request with a fixed timeout, no persistent session.
type Client struct {
	addr    string
	timeout time.Duration
}

// NewClient constructs a client bound to one acommsd admin address.
func NewClient(addr string) *Client {
	return &Client{addr: strings.TrimSpace(addr), timeout: 5 * time.Second}
}

// Call sends req and returns the decoded response.
func (c *Client) Call(req Request) (Response, error) {
	if c.addr == "" {
		return Response{}, fmt.Errorf("admin: server address required")
	}
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.Dial("tcp", c.addr)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	line, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	line = append(line, '\n')
	_ = conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write(line); err != nil {
		return Response{}, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.timeout))
	respLine, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(respLine, &resp); err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, fmt.Errorf("admin: %s failed: %s", req.Action, strings.TrimSpace(resp.Error))
	}
	return resp, nil
}

// Push enqueues a raw CCL frame for dest via the named queue.
func (c *Client) Push(kind string, id, dest int, frame []byte) (Response, error) {
	return c.Call(NewRequest(ActionPush, PushRequest{Kind: kind, ID: id, Dest: dest, Frame: frame}))
}

// Snapshot returns acommsd's current queue introspection state.
func (c *Client) Snapshot() (Response, error) {
	return c.Call(NewRequest(ActionSnapshot, nil))
}

// Flush drops all pending messages and ACK obligations for the named queue.
func (c *Client) Flush(kind string, id int) (Response, error) {
	return c.Call(NewRequest(ActionFlush, FlushRequest{Kind: kind, ID: id}))
}

// InjectAck simulates an ACK for frame addressed to modem dest.
func (c *Client) InjectAck(frame uint32, dest int) (Response, error) {
	return c.Call(NewRequest(ActionInjectAck, InjectAckRequest{Frame: frame, Dest: dest}))
}
