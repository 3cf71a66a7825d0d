package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jg-phare/modegate/pkg/restriction"
)

// Client manages MCP server connections and exposes the descriptor
// snapshots the restriction engine consumes. It enforces nothing — the
// pre-execution gate wraps CallTool with the mode's verdicts.
type Client struct {
	mu      sync.RWMutex
	servers map[string]*serverConnection
}

// NewClient creates an MCP client with no connections.
func NewClient() *Client {
	return &Client{servers: make(map[string]*serverConnection)}
}

// Connect establishes a connection to an MCP server and lists its tools.
// Failed connections are kept for status reporting.
func (c *Client) Connect(ctx context.Context, name string, config ServerConfig) error {
	conn := newServerConnection(name, config)
	err := conn.connect(ctx)

	c.mu.Lock()
	c.servers[name] = conn
	c.mu.Unlock()

	return err
}

// Disconnect removes a server connection.
func (c *Client) Disconnect(name string) error {
	c.mu.Lock()
	conn, ok := c.servers[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("unknown server: %q", name)
	}
	delete(c.servers, name)
	c.mu.Unlock()

	return conn.disconnect()
}

// Reconnect disconnects and reconnects a server with its existing config.
func (c *Client) Reconnect(ctx context.Context, name string) error {
	c.mu.RLock()
	conn, ok := c.servers[name]
	c.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown server: %q", name)
	}

	config := conn.config
	conn.disconnect()
	return c.Connect(ctx, name, config)
}

// RefreshTools re-queries a server's tool list so descriptor snapshots
// reflect capability changes.
func (c *Client) RefreshTools(ctx context.Context, name string) error {
	c.mu.RLock()
	conn, ok := c.servers[name]
	c.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown server: %q", name)
	}
	return conn.refreshTools(ctx)
}

// SetServersResult reports what changed after a SetServers call.
type SetServersResult struct {
	Added   []string          `json:"added,omitempty"`
	Removed []string          `json:"removed,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// SetServers performs a bulk update: adds new servers, removes ones no
// longer configured, keeps unchanged connections alive.
func (c *Client) SetServers(ctx context.Context, servers map[string]ServerConfig) *SetServersResult {
	result := &SetServersResult{Errors: make(map[string]string)}

	c.mu.RLock()
	existing := make(map[string]bool, len(c.servers))
	for name := range c.servers {
		existing[name] = true
	}
	c.mu.RUnlock()

	for name := range existing {
		if _, keep := servers[name]; keep {
			continue
		}
		if err := c.Disconnect(name); err != nil {
			result.Errors[name] = err.Error()
		} else {
			result.Removed = append(result.Removed, name)
		}
	}

	for name, config := range servers {
		if existing[name] {
			continue
		}
		if err := c.Connect(ctx, name, config); err != nil {
			result.Errors[name] = err.Error()
		} else {
			result.Added = append(result.Added, name)
		}
	}

	return result
}

// Descriptors returns a snapshot of all connected servers as the value
// types the restriction engine evaluates, sorted by name so downstream
// listings are deterministic. Servers that never completed their
// handshake are excluded — they advertise nothing to restrict.
func (c *Client) Descriptors() []restriction.ServerDescriptor {
	c.mu.RLock()
	conns := make([]*serverConnection, 0, len(c.servers))
	for _, conn := range c.servers {
		conns = append(conns, conn)
	}
	c.mu.RUnlock()

	descriptors := make([]restriction.ServerDescriptor, 0, len(conns))
	for _, conn := range conns {
		if conn.serverStatus().Status != StatusConnected {
			continue
		}
		descriptors = append(descriptors, conn.descriptor())
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

// Descriptor returns the snapshot for a single server.
func (c *Client) Descriptor(name string) (restriction.ServerDescriptor, bool) {
	c.mu.RLock()
	conn, ok := c.servers[name]
	c.mu.RUnlock()

	if !ok || conn.serverStatus().Status != StatusConnected {
		return restriction.ServerDescriptor{}, false
	}
	return conn.descriptor(), true
}

// Status returns the status of all server connections, sorted by name.
func (c *Client) Status() []ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statuses := make([]ServerStatus, 0, len(c.servers))
	for _, conn := range c.servers {
		statuses = append(statuses, conn.serverStatus())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// ServerStatus returns the status of a specific server.
func (c *Client) ServerStatus(name string) (*ServerStatus, error) {
	c.mu.RLock()
	conn, ok := c.servers[name]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown server: %q", name)
	}

	s := conn.serverStatus()
	return &s, nil
}

// CallTool invokes a tool on a connected server. Callers wanting mode
// enforcement go through gate.Caller instead of calling this directly.
func (c *Client) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) (ToolResult, error) {
	c.mu.RLock()
	conn, ok := c.servers[serverName]
	c.mu.RUnlock()

	if !ok {
		return ToolResult{}, fmt.Errorf("unknown server: %q", serverName)
	}

	result, err := conn.callTool(ctx, toolName, args)
	if err != nil {
		return ToolResult{}, err
	}
	return *result, nil
}

// Close disconnects all servers.
func (c *Client) Close() error {
	c.mu.Lock()
	names := make([]string, 0, len(c.servers))
	for name := range c.servers {
		names = append(names, name)
	}
	c.mu.Unlock()

	var errs []string
	for _, name := range names {
		if err := c.Disconnect(name); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
