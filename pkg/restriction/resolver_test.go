package restriction

import (
	"reflect"
	"testing"
)

func TestResolveServer_NoRestrictions(t *testing.T) {
	v := ResolveServer("docs", true, nil)
	if !v.Enabled || v.Reason != ReasonDefaultVisible {
		t.Errorf("visible server with nil restrictions: got %+v", v)
	}

	v = ResolveServer("admin", false, nil)
	if v.Enabled || v.Reason != ReasonDefaultHidden {
		t.Errorf("hidden server with nil restrictions: got %+v", v)
	}
}

func TestResolveServer_OptInRequiresAllowlist(t *testing.T) {
	// Allow-listed opt-in server becomes visible.
	rs := &RestrictionSet{AllowedServers: []string{"admin"}}
	v := ResolveServer("admin", false, rs)
	if !v.Enabled || v.Reason != ReasonExplicitlyAllowed {
		t.Errorf("allow-listed opt-in server: got %+v", v)
	}

	// Without an allow entry it stays hidden.
	rs = &RestrictionSet{AllowedServers: []string{"other"}}
	v = ResolveServer("admin", false, rs)
	if v.Enabled || v.Reason != ReasonNotInAllowlist {
		t.Errorf("opt-in server not in allow list: got %+v", v)
	}

	// Restrictions present but no allow list at all: still hidden.
	rs = &RestrictionSet{DisallowedServers: []string{"something"}}
	v = ResolveServer("admin", false, rs)
	if v.Enabled || v.Reason != ReasonNotInAllowlist {
		t.Errorf("opt-in server with no allow list: got %+v", v)
	}
}

func TestResolveServer_OptInIgnoresDisallowList(t *testing.T) {
	// A disallow entry for an opt-in server is redundant: the allow
	// list alone decides, and a server in both lists stays hidden only
	// because it was never allow-listed — and visible when it is.
	rs := &RestrictionSet{
		AllowedServers:    []string{"admin"},
		DisallowedServers: []string{"admin"},
	}
	v := ResolveServer("admin", false, rs)
	if !v.Enabled {
		t.Errorf("opt-in branch must not consult disallow list: got %+v", v)
	}
}

func TestResolveServer_AllowlistExcludesOthers(t *testing.T) {
	// Scenario D: only server1/server2 allowed; server3 defaults visible.
	rs := &RestrictionSet{AllowedServers: []string{"server1", "server2"}}
	v := ResolveServer("server3", true, rs)
	if v.Enabled || v.Reason != ReasonNotInAllowlist {
		t.Errorf("server3: got %+v", v)
	}

	v = ResolveServer("server1", true, rs)
	if !v.Enabled || v.Reason != ReasonExplicitlyAllowed {
		t.Errorf("server1: got %+v", v)
	}
}

func TestResolveServer_DisallowWins(t *testing.T) {
	// A name matching both lists ends up disabled.
	rs := &RestrictionSet{
		AllowedServers:    []string{"search-*"},
		DisallowedServers: []string{"search-internal"},
	}
	v := ResolveServer("search-internal", true, rs)
	if v.Enabled || v.Reason != ReasonExplicitlyDisallowed {
		t.Errorf("disallow must dominate allow: got %+v", v)
	}

	v = ResolveServer("search-web", true, rs)
	if !v.Enabled || v.Reason != ReasonExplicitlyAllowed {
		t.Errorf("search-web: got %+v", v)
	}
}

func TestResolveServer_DisallowOnly(t *testing.T) {
	rs := &RestrictionSet{DisallowedServers: []string{"*-internal"}}

	v := ResolveServer("search-internal", true, rs)
	if v.Enabled || v.Reason != ReasonExplicitlyDisallowed {
		t.Errorf("search-internal: got %+v", v)
	}

	v = ResolveServer("docs", true, rs)
	if !v.Enabled || v.Reason != ReasonDefaultVisible {
		t.Errorf("docs: got %+v", v)
	}
}

func TestResolveTool_NoToolRules(t *testing.T) {
	if v := ResolveTool("docs", "get_public", nil); !v.Enabled {
		t.Errorf("nil restrictions: got %+v", v)
	}

	// Server-level rules alone place no constraint on tools.
	rs := &RestrictionSet{AllowedServers: []string{"docs"}}
	if v := ResolveTool("docs", "get_public", rs); !v.Enabled {
		t.Errorf("no tool rules: got %+v", v)
	}
}

func TestResolveTool_DisallowDominatesAllow(t *testing.T) {
	// Scenario C: get_* allowed, get_secrets disallowed.
	rs := &RestrictionSet{
		AllowedTools:    []ToolRule{{Server: "docs", Tool: "get_*"}},
		DisallowedTools: []ToolRule{{Server: "docs", Tool: "get_secrets"}},
	}

	v := ResolveTool("docs", "get_secrets", rs)
	if v.Enabled || v.Reason != ReasonExplicitlyDisallowed {
		t.Errorf("get_secrets: got %+v", v)
	}

	v = ResolveTool("docs", "get_public", rs)
	if !v.Enabled || v.Reason != ReasonExplicitlyAllowed {
		t.Errorf("get_public: got %+v", v)
	}

	v = ResolveTool("docs", "delete_page", rs)
	if v.Enabled || v.Reason != ReasonNotInAllowlist {
		t.Errorf("delete_page: got %+v", v)
	}
}

func TestResolveTool_RulesMatchBothPatterns(t *testing.T) {
	rs := &RestrictionSet{
		AllowedTools: []ToolRule{{Server: "docs", Tool: "get_*"}},
	}

	// Same tool name on a different server does not match the rule.
	v := ResolveTool("wiki", "get_page", rs)
	if v.Enabled {
		t.Errorf("rule server pattern must constrain the match: got %+v", v)
	}

	// Wildcard server pattern covers every server.
	rs = &RestrictionSet{
		DisallowedTools: []ToolRule{{Server: "*", Tool: "delete_*"}},
	}
	v = ResolveTool("wiki", "delete_page", rs)
	if v.Enabled || v.Reason != ReasonExplicitlyDisallowed {
		t.Errorf("wildcard server rule: got %+v", v)
	}
}

func TestResolveTool_MalformedRulesAreInert(t *testing.T) {
	// A rule missing a field never matches, but does not poison the
	// rest of the set.
	rs := &RestrictionSet{
		DisallowedTools: []ToolRule{
			{Server: "", Tool: "get_*"},
			{Server: "docs", Tool: ""},
			{Server: "docs", Tool: "get_secrets"},
		},
	}

	if v := ResolveTool("docs", "get_secrets", rs); v.Enabled {
		t.Errorf("well-formed rule alongside malformed ones: got %+v", v)
	}
	if v := ResolveTool("docs", "get_public", rs); !v.Enabled {
		t.Errorf("malformed rules must not match: got %+v", v)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	rs := &RestrictionSet{
		AllowedServers:  []string{"docs", "search-*"},
		AllowedTools:    []ToolRule{{Server: "*", Tool: "get_*"}},
		DisallowedTools: []ToolRule{{Server: "docs", Tool: "get_secrets"}},
	}

	for i := 0; i < 3; i++ {
		if v := ResolveServer("docs", true, rs); !v.Enabled {
			t.Fatalf("call %d: server verdict changed: %+v", i, v)
		}
		if v := ResolveTool("docs", "get_secrets", rs); v.Enabled {
			t.Fatalf("call %d: tool verdict changed: %+v", i, v)
		}
	}
}

func boolPtr(b bool) *bool { return &b }

func TestFilterServers_StableOrder(t *testing.T) {
	servers := []ServerDescriptor{
		{Name: "zeta", Tools: []string{"z1"}},
		{Name: "admin", DefaultVisible: boolPtr(false), Tools: []string{"a1"}},
		{Name: "docs", Tools: []string{"d1"}},
		{Name: "search-internal", Tools: []string{"s1"}},
	}
	rs := &RestrictionSet{DisallowedServers: []string{"search-*"}}

	got := FilterServers(servers, rs, nil)
	names := make([]string, len(got))
	for i, s := range got {
		names[i] = s.Name
	}

	// admin is opt-in with no allow entry; search-internal is disallowed.
	want := []string{"zeta", "docs"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("FilterServers = %v, want %v", names, want)
	}
}

func TestFilterServers_LookupOverridesDescriptor(t *testing.T) {
	servers := []ServerDescriptor{
		{Name: "docs"}, // descriptor says visible
	}
	lookup := func(name string) bool { return false }

	got := FilterServers(servers, nil, lookup)
	if len(got) != 0 {
		t.Errorf("lookup marking docs opt-in should hide it, got %v", got)
	}
}

func TestFilterTools_PreservesAdvertisedOrder(t *testing.T) {
	server := ServerDescriptor{
		Name:  "docs",
		Tools: []string{"get_public", "get_secrets", "search", "get_drafts"},
	}
	rs := &RestrictionSet{
		AllowedTools:    []ToolRule{{Server: "docs", Tool: "get_*"}},
		DisallowedTools: []ToolRule{{Server: "docs", Tool: "get_secrets"}},
	}

	got := FilterTools(server, rs)
	want := []string{"get_public", "get_drafts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterTools = %v, want %v", got, want)
	}
}
