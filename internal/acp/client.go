package acp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// Client is the parent side of the Agent Client Protocol: it issues
// initialize/new_session/prompt/cancel calls against a child and
// forwards the child's session_notification updates on Updates(),
// generalizing the stdio MCP transport's request/response correlation
// table (a map from request id to a channel awaiting that response)
// rather than pulling in a new RPC library.
type Client struct {
	conn      *Conn
	pending   map[int64]chan Response
	pendingMu sync.Mutex
	nextID    atomic.Int64
	updates   chan SessionUpdate
}

// NewClient builds a Client around conn.
func NewClient(conn *Conn) *Client {
	return &Client{
		conn:    conn,
		pending: make(map[int64]chan Response),
		updates: make(chan SessionUpdate, 100),
	}
}

// Updates returns the channel of session_notification updates the child
// streams back: text chunks, tool-call titles, and tool-call status
// changes at minimum. It is closed when Run returns.
func (c *Client) Updates() <-chan SessionUpdate { return c.updates }

// Run reads framed responses and session_notification notifications
// until the stream closes, dispatching each response to its waiting
// Call and each notification onto Updates(). It returns when the
// underlying reader is exhausted (the child exited).
func (c *Client) Run() error {
	defer close(c.updates)
	for {
		line, ok := c.conn.readLine()
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}

		var probe struct {
			ID     *int64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			continue
		}

		if probe.Method == MethodSessionUpdate {
			var notif Notification
			if err := json.Unmarshal([]byte(line), &notif); err != nil {
				continue
			}
			var update SessionUpdate
			if err := json.Unmarshal(notif.Params, &update); err != nil {
				continue
			}
			select {
			case c.updates <- update:
			default:
			}
			continue
		}

		if probe.ID == nil {
			continue
		}
		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			continue
		}
		c.pendingMu.Lock()
		ch, found := c.pending[*probe.ID]
		if found {
			delete(c.pending, *probe.ID)
		}
		c.pendingMu.Unlock()
		if found {
			ch <- resp
		}
	}
}

// Call sends method with params and blocks until the matching response
// arrives or ctx is done.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	respCh := make(chan Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.conn.writeLine(Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw}); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, fmt.Errorf("acp error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
