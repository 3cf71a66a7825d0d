package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/jg-phare/modegate/pkg/mcp"
	"github.com/jg-phare/modegate/pkg/modes"
	"github.com/jg-phare/modegate/pkg/restriction"
)

// recordingCaller records invocations and returns a canned result.
type recordingCaller struct {
	calls  []string
	result mcp.ToolResult
	err    error
}

func (r *recordingCaller) CallTool(_ context.Context, serverName, toolName string, _ map[string]any) (mcp.ToolResult, error) {
	r.calls = append(r.calls, serverName+"/"+toolName)
	return r.result, r.err
}

func TestCaller_ForwardsAllowedCalls(t *testing.T) {
	g := NewGate(modes.NewStore(), testServers())
	backend := &recordingCaller{
		result: mcp.ToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: "ok"}}},
	}
	caller := NewCaller(g, backend)

	result, decision, err := caller.CallTool(context.Background(), "files", "read_file", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Allowed {
		t.Errorf("decision = %+v", decision)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "ok" {
		t.Errorf("result = %+v", result)
	}
	if len(backend.calls) != 1 || backend.calls[0] != "files/read_file" {
		t.Errorf("backend calls = %v", backend.calls)
	}
}

func TestCaller_RejectsDeniedCalls(t *testing.T) {
	store := storeWithActive(t, modes.Mode{
		Name: "readonly",
		Restrictions: &restriction.RestrictionSet{
			DisallowedTools: []restriction.ToolRule{{Server: "*", Tool: "write_*"}},
		},
	})
	g := NewGate(store, testServers())
	backend := &recordingCaller{}
	caller := NewCaller(g, backend)

	_, decision, err := caller.CallTool(context.Background(), "files", "write_file", nil)
	if err == nil {
		t.Fatal("expected denial error")
	}

	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("error type = %T", err)
	}
	if denied.Decision.ID != decision.ID {
		t.Error("error should carry the returned decision")
	}
	if decision.Reason != restriction.ReasonExplicitlyDisallowed {
		t.Errorf("reason = %q", decision.Reason)
	}
	if len(backend.calls) != 0 {
		t.Errorf("denied call must not reach the backend: %v", backend.calls)
	}
}

func TestCaller_PropagatesBackendErrors(t *testing.T) {
	g := NewGate(modes.NewStore(), testServers())
	backend := &recordingCaller{err: errors.New("connection reset")}
	caller := NewCaller(g, backend)

	_, decision, err := caller.CallTool(context.Background(), "files", "read_file", nil)
	if err == nil || err.Error() != "connection reset" {
		t.Errorf("err = %v", err)
	}
	// The decision was still allowed; only the transport failed
	if !decision.Allowed {
		t.Errorf("decision = %+v", decision)
	}
}
