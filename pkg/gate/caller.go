package gate

import (
	"context"
	"fmt"

	"github.com/jg-phare/modegate/pkg/mcp"
)

// ToolCaller invokes a tool on a connected server. *mcp.Client
// satisfies this.
type ToolCaller interface {
	CallTool(ctx context.Context, serverName, toolName string, args map[string]any) (mcp.ToolResult, error)
}

// DeniedError is returned by Caller when the active mode blocks an
// invocation. It carries the full decision for audit logging.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	if e.Decision.Message != "" {
		return e.Decision.Message
	}
	return fmt.Sprintf("invocation of %s/%s denied", e.Decision.Server, e.Decision.Tool)
}

// Caller is an enforcing wrapper around a tool caller: every invocation
// is checked against the active mode first.
type Caller struct {
	gate  *Gate
	calls ToolCaller
}

// NewCaller wraps the given tool caller with the gate's checks.
func NewCaller(g *Gate, calls ToolCaller) *Caller {
	return &Caller{gate: g, calls: calls}
}

// CallTool checks the invocation against the active mode and forwards
// it only when allowed. The decision is returned either way so callers
// can log it.
func (c *Caller) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) (mcp.ToolResult, Decision, error) {
	decision := c.gate.Check(serverName, toolName)
	if !decision.Allowed {
		return mcp.ToolResult{}, decision, &DeniedError{Decision: decision}
	}

	result, err := c.calls.CallTool(ctx, serverName, toolName, args)
	return result, decision, err
}
