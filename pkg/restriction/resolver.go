package restriction

// ResolveServer computes the visibility verdict for one server under a
// mode's restrictions. A nil restriction set defers to the server's
// default-visibility flag.
//
// For an opt-in server (defaultVisible false) the only path to
// visibility is an allow-list match; the disallow list is never
// consulted, since a disallow entry for an already-hidden server is
// redundant rather than contradictory.
//
// For a default-visible server, enabled is the boolean formula
//
//	(no allow list OR allow match) AND NOT disallow match
//
// so "disallow wins" is a structural property of the computation, not a
// side effect of check ordering. A server matching both lists ends up
// disabled.
func ResolveServer(name string, defaultVisible bool, rs *RestrictionSet) Verdict {
	if rs == nil {
		if defaultVisible {
			return Verdict{Enabled: true, Reason: ReasonDefaultVisible}
		}
		return Verdict{Enabled: false, Reason: ReasonDefaultHidden}
	}

	if !defaultVisible {
		if len(rs.AllowedServers) > 0 && MatchesAny(name, rs.AllowedServers) {
			return Verdict{Enabled: true, Reason: ReasonExplicitlyAllowed}
		}
		return Verdict{Enabled: false, Reason: ReasonNotInAllowlist}
	}

	allowListed := len(rs.AllowedServers) == 0 || MatchesAny(name, rs.AllowedServers)
	disallowed := MatchesAny(name, rs.DisallowedServers)

	switch {
	case !allowListed:
		return Verdict{Enabled: false, Reason: ReasonNotInAllowlist}
	case disallowed:
		return Verdict{Enabled: false, Reason: ReasonExplicitlyDisallowed}
	case len(rs.AllowedServers) > 0:
		return Verdict{Enabled: true, Reason: ReasonExplicitlyAllowed}
	default:
		return Verdict{Enabled: true, Reason: ReasonDefaultVisible}
	}
}

// ResolveTool computes the verdict for one tool on a server whose own
// verdict is already enabled (a disabled server makes its tools
// unreachable regardless of tool rules; callers never ask about them).
//
// Enabled is the same disallow-dominant formula as ResolveServer:
//
//	(no allow rules OR allow rule match) AND NOT disallow rule match
//
// A tool matched by both an allow pattern (get_*) and a more specific
// disallow pattern (get_secrets) is disabled, independent of the order
// the rules were declared in.
func ResolveTool(serverName, toolName string, rs *RestrictionSet) Verdict {
	if rs == nil || (len(rs.AllowedTools) == 0 && len(rs.DisallowedTools) == 0) {
		return Verdict{Enabled: true, Reason: ReasonDefaultVisible}
	}

	allowListed := len(rs.AllowedTools) == 0 || matchesAnyRule(serverName, toolName, rs.AllowedTools)
	disallowed := matchesAnyRule(serverName, toolName, rs.DisallowedTools)

	switch {
	case !allowListed:
		return Verdict{Enabled: false, Reason: ReasonNotInAllowlist}
	case disallowed:
		return Verdict{Enabled: false, Reason: ReasonExplicitlyDisallowed}
	case len(rs.AllowedTools) > 0:
		return Verdict{Enabled: true, Reason: ReasonExplicitlyAllowed}
	default:
		return Verdict{Enabled: true, Reason: ReasonDefaultVisible}
	}
}

func matchesAnyRule(serverName, toolName string, rules []ToolRule) bool {
	for _, r := range rules {
		if r.matches(serverName, toolName) {
			return true
		}
	}
	return false
}

// FilterServers returns the servers enabled under rs, preserving input
// order so downstream prompt text is reproducible. defaultVisible, when
// non-nil, overrides each descriptor's own flag — callers that keep
// visibility defaults outside the snapshot pass their lookup here.
func FilterServers(servers []ServerDescriptor, rs *RestrictionSet, defaultVisible func(name string) bool) []ServerDescriptor {
	enabled := make([]ServerDescriptor, 0, len(servers))
	for _, s := range servers {
		visible := s.Visible()
		if defaultVisible != nil {
			visible = defaultVisible(s.Name)
		}
		if ResolveServer(s.Name, visible, rs).Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// FilterTools returns the names of the server's tools enabled under rs,
// in the order the server advertises them. The caller must have already
// confirmed the server itself is enabled.
func FilterTools(server ServerDescriptor, rs *RestrictionSet) []string {
	enabled := make([]string, 0, len(server.Tools))
	for _, tool := range server.Tools {
		if ResolveTool(server.Name, tool, rs).Enabled {
			enabled = append(enabled, tool)
		}
	}
	return enabled
}
