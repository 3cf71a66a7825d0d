package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
)

// WebSocketTransport communicates with an MCP server over a WebSocket
// connection. Messages are text frames containing JSON, correlated to
// pending requests by ID.
type WebSocketTransport struct {
	conn *websocket.Conn
	ctx  context.Context

	writeMu sync.Mutex

	pending map[int]chan JSONRPCResponse
	pendMu  sync.Mutex

	done      chan struct{} // closed when reader goroutine exits
	closeOnce sync.Once
}

// NewWebSocketTransport dials the given URL and returns a connected
// transport. The ctx governs the connection's lifetime, not just the
// dial.
func NewWebSocketTransport(ctx context.Context, url string, headers map[string]string) (*WebSocketTransport, error) {
	opts := &websocket.DialOptions{}
	if len(headers) > 0 {
		h := make(http.Header, len(headers))
		for k, v := range headers {
			h.Set(k, v)
		}
		opts.HTTPHeader = h
	}

	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	// Tool results can be large
	conn.SetReadLimit(4 * 1024 * 1024)

	t := &WebSocketTransport{
		conn:    conn,
		ctx:     ctx,
		pending: make(map[int]chan JSONRPCResponse),
		done:    make(chan struct{}),
	}

	go t.readLoop()

	return t, nil
}

// readLoop reads frames and dispatches responses to pending channels.
func (t *WebSocketTransport) readLoop() {
	defer close(t.done)

	for {
		_, data, err := t.conn.Read(t.ctx)
		if err != nil {
			// Normal closure or connection loss either way ends the loop;
			// pending senders are released via the done channel.
			return
		}

		var resp JSONRPCResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue // skip unparseable frames (server notifications etc.)
		}

		t.pendMu.Lock()
		ch, ok := t.pending[resp.ID]
		if ok {
			delete(t.pending, resp.ID)
		}
		t.pendMu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

func (t *WebSocketTransport) dropPending(id int) {
	t.pendMu.Lock()
	delete(t.pending, id)
	t.pendMu.Unlock()
}

func (t *WebSocketTransport) write(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.Write(ctx, websocket.MessageText, data)
}

// Send writes a JSON-RPC request frame and waits for the correlated response.
func (t *WebSocketTransport) Send(ctx context.Context, req JSONRPCRequest) (JSONRPCResponse, error) {
	if req.ID == nil {
		return JSONRPCResponse{}, fmt.Errorf("Send requires a request with an ID; use Notify for notifications")
	}
	id := *req.ID

	ch := make(chan JSONRPCResponse, 1)
	t.pendMu.Lock()
	t.pending[id] = ch
	t.pendMu.Unlock()

	if err := t.write(ctx, req); err != nil {
		t.dropPending(id)
		return JSONRPCResponse{}, fmt.Errorf("websocket write: %w", err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		t.dropPending(id)
		return JSONRPCResponse{}, ctx.Err()
	case <-t.done:
		t.dropPending(id)
		return JSONRPCResponse{}, fmt.Errorf("websocket connection closed")
	}
}

// Notify writes a JSON-RPC notification frame (no response expected).
func (t *WebSocketTransport) Notify(ctx context.Context, method string, params any) error {
	return t.write(ctx, newNotification(method, params))
}

// Close sends a close frame and shuts the connection down. Safe to call
// multiple times.
func (t *WebSocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.conn.Close(websocket.StatusNormalClosure, "")
	})
	return nil
}
