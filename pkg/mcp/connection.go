package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jg-phare/modegate/pkg/restriction"
)

const protocolVersion = "2024-11-05"

// serverConnection manages the lifecycle and state of a single MCP server.
type serverConnection struct {
	name         string
	config       ServerConfig
	status       ConnectionStatus
	info         *ServerInfo
	capabilities *ServerCapabilities
	tools        []ToolInfo
	transport    Transport
	errorMsg     string

	mu     sync.Mutex
	nextID atomic.Int32
}

func newServerConnection(name string, config ServerConfig) *serverConnection {
	return &serverConnection{
		name:   name,
		config: config,
		status: StatusPending,
	}
}

// connect creates the transport and runs the MCP initialization handshake.
func (sc *serverConnection) connect(ctx context.Context) error {
	sc.mu.Lock()
	transport, err := sc.createTransport(ctx)
	if err != nil {
		sc.status = StatusFailed
		sc.errorMsg = err.Error()
		sc.mu.Unlock()
		return fmt.Errorf("create transport: %w", err)
	}
	sc.transport = transport
	sc.mu.Unlock()

	return sc.runHandshake(ctx)
}

func (sc *serverConnection) createTransport(ctx context.Context) (Transport, error) {
	switch sc.config.Type {
	case TransportStdio:
		if sc.config.Command == "" {
			return nil, fmt.Errorf("stdio transport requires a command")
		}
		return NewStdioTransport(sc.config.Command, sc.config.Args, sc.config.Env)
	case TransportHTTP:
		if sc.config.URL == "" {
			return nil, fmt.Errorf("http transport requires a url")
		}
		return NewHTTPTransport(sc.config.URL, sc.config.Headers), nil
	case TransportWebSocket:
		if sc.config.URL == "" {
			return nil, fmt.Errorf("websocket transport requires a url")
		}
		return NewWebSocketTransport(ctx, sc.config.URL, sc.config.Headers)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", sc.config.Type)
	}
}

// failHandshake records a handshake failure and tears the transport down.
// Caller must hold sc.mu.
func (sc *serverConnection) failHandshake(msg string) {
	sc.status = StatusFailed
	sc.errorMsg = msg
	if sc.transport != nil {
		sc.transport.Close()
		sc.transport = nil
	}
}

// runHandshake performs the MCP initialization handshake on an
// already-created transport. Separated from connect to allow testing
// with injected mock transports.
func (sc *serverConnection) runHandshake(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	transport := sc.transport

	initParams := InitializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    ClientCapabilities{},
		ClientInfo:      ClientInfo{Name: "modegate", Version: "0.1.0"},
	}
	resp, err := transport.Send(ctx, newRequest(sc.nextRequestID(), MethodInitialize, initParams))
	if err != nil {
		sc.failHandshake(err.Error())
		return fmt.Errorf("initialize: %w", err)
	}
	if resp.Error != nil {
		sc.failHandshake(resp.Error.Message)
		return fmt.Errorf("initialize error: %s", resp.Error.Message)
	}

	var initResult InitializeResult
	if err := json.Unmarshal(resp.Result, &initResult); err != nil {
		sc.failHandshake(err.Error())
		return fmt.Errorf("parse initialize result: %w", err)
	}

	sc.info = &initResult.ServerInfo
	sc.capabilities = &initResult.Capabilities

	if err := transport.Notify(ctx, MethodInitialized, nil); err != nil {
		sc.failHandshake(err.Error())
		return fmt.Errorf("send initialized: %w", err)
	}

	if sc.capabilities.Tools != nil {
		tools, err := sc.listTools(ctx)
		if err != nil {
			sc.failHandshake(err.Error())
			return fmt.Errorf("list tools: %w", err)
		}
		sc.tools = tools
	}

	sc.status = StatusConnected
	sc.errorMsg = ""
	return nil
}

// disconnect closes the transport and resets state.
func (sc *serverConnection) disconnect() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.transport == nil {
		return nil
	}
	err := sc.transport.Close()
	sc.transport = nil
	sc.tools = nil
	sc.info = nil
	sc.capabilities = nil
	sc.status = StatusPending
	sc.errorMsg = ""
	return err
}

// refreshTools re-queries the server's tool list, picking up capability
// changes after a tools/list_changed notification or on demand.
func (sc *serverConnection) refreshTools(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.transport == nil {
		return fmt.Errorf("not connected")
	}
	if sc.capabilities == nil || sc.capabilities.Tools == nil {
		return nil // server does not advertise tools
	}

	tools, err := sc.listTools(ctx)
	if err != nil {
		return err
	}
	sc.tools = tools
	return nil
}

// callTool executes a tool call via the transport.
func (sc *serverConnection) callTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	sc.mu.Lock()
	transport := sc.transport
	sc.mu.Unlock()

	if transport == nil {
		return nil, fmt.Errorf("not connected")
	}

	resp, err := transport.Send(ctx, newRequest(sc.nextRequestID(), MethodToolsCall, ToolCallParams{
		Name:      name,
		Arguments: args,
	}))
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	var result ToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("parse tool result: %w", err)
	}
	return &result, nil
}

// listTools queries tools/list. Caller must hold sc.mu.
func (sc *serverConnection) listTools(ctx context.Context) ([]ToolInfo, error) {
	resp, err := sc.transport.Send(ctx, newRequest(sc.nextRequestID(), MethodToolsList, nil))
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	var result ToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

func (sc *serverConnection) nextRequestID() int {
	return int(sc.nextID.Add(1))
}

// descriptor snapshots the connection as the value type the restriction
// engine evaluates. Tool order is preserved as the server advertised it.
func (sc *serverConnection) descriptor() restriction.ServerDescriptor {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	names := make([]string, len(sc.tools))
	for i, t := range sc.tools {
		names[i] = t.Name
	}
	return restriction.ServerDescriptor{
		Name:           sc.name,
		DefaultVisible: sc.config.DefaultVisible,
		Tools:          names,
	}
}

// ServerStatus is an external view of a connection's state.
type ServerStatus struct {
	Name       string           `json:"name"`
	Status     ConnectionStatus `json:"status"`
	ServerInfo *ServerInfo      `json:"serverInfo,omitempty"`
	Error      string           `json:"error,omitempty"`
	Tools      []ToolInfo       `json:"tools,omitempty"`
}

func (sc *serverConnection) serverStatus() ServerStatus {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return ServerStatus{
		Name:       sc.name,
		Status:     sc.status,
		ServerInfo: sc.info,
		Error:      sc.errorMsg,
		Tools:      sc.tools,
	}
}
