// Package gate is the consumer side of the restriction engine: it
// resolves the active mode's restrictions against the connected servers
// to produce pre-execution decisions, filtered capability listings and
// interactive search results.
package gate

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jg-phare/modegate/pkg/modes"
	"github.com/jg-phare/modegate/pkg/restriction"
)

// ServerSource yields the current server descriptors. *mcp.Client
// satisfies this.
type ServerSource interface {
	Descriptors() []restriction.ServerDescriptor
	Descriptor(name string) (restriction.ServerDescriptor, bool)
}

// Gate applies the active mode's restrictions to the connected servers.
type Gate struct {
	modes   *modes.Store
	servers ServerSource
}

// NewGate creates a gate over the given mode store and server source.
func NewGate(store *modes.Store, servers ServerSource) *Gate {
	return &Gate{modes: store, servers: servers}
}

// Decision is the outcome of one pre-execution check. The ID lets
// callers correlate audit log entries with the invocation they guarded.
type Decision struct {
	ID      uuid.UUID          `json:"id"`
	Server  string             `json:"server"`
	Tool    string             `json:"tool,omitempty"`
	Allowed bool               `json:"allowed"`
	Reason  restriction.Reason `json:"reason"`
	Message string             `json:"message,omitempty"`
}

// Check resolves whether the active mode permits invoking the named
// tool on the named server. A denial is a decision, not an error: the
// worst outcome is Allowed=false with an explanatory message.
func (g *Gate) Check(serverName, toolName string) Decision {
	d := Decision{
		ID:     uuid.New(),
		Server: serverName,
		Tool:   toolName,
	}

	desc, found := g.servers.Descriptor(serverName)
	if !found {
		d.Reason = restriction.ReasonDefaultHidden
		d.Message = fmt.Sprintf("server %q is not connected", serverName)
		return d
	}

	rs := g.modes.ActiveRestrictions()

	server := restriction.ResolveServer(desc.Name, desc.Visible(), rs)
	if !server.Enabled {
		d.Reason = server.Reason
		d.Message = g.denialMessage("server %q", serverName)
		return d
	}

	if !advertises(desc, toolName) {
		d.Reason = restriction.ReasonDefaultHidden
		d.Message = fmt.Sprintf("server %q does not advertise tool %q", serverName, toolName)
		return d
	}

	tool := restriction.ResolveTool(serverName, toolName, rs)
	d.Allowed = tool.Enabled
	d.Reason = tool.Reason
	if !tool.Enabled {
		d.Message = g.denialMessage("tool %q on server %q", toolName, serverName)
	}
	return d
}

// CheckServer resolves the server-level verdict alone, for callers that
// gate at connection granularity.
func (g *Gate) CheckServer(serverName string) Decision {
	d := Decision{
		ID:     uuid.New(),
		Server: serverName,
	}

	desc, found := g.servers.Descriptor(serverName)
	if !found {
		d.Reason = restriction.ReasonDefaultHidden
		d.Message = fmt.Sprintf("server %q is not connected", serverName)
		return d
	}

	verdict := restriction.ResolveServer(desc.Name, desc.Visible(), g.modes.ActiveRestrictions())
	d.Allowed = verdict.Enabled
	d.Reason = verdict.Reason
	if !verdict.Enabled {
		d.Message = g.denialMessage("server %q", serverName)
	}
	return d
}

func (g *Gate) denialMessage(format string, args ...any) string {
	subject := fmt.Sprintf(format, args...)
	if mode, ok := g.modes.Active(); ok {
		return fmt.Sprintf("mode %q does not permit %s", mode.Name, subject)
	}
	return fmt.Sprintf("%s is not permitted", subject)
}

func advertises(desc restriction.ServerDescriptor, toolName string) bool {
	for _, name := range desc.Tools {
		if name == toolName {
			return true
		}
	}
	return false
}
