// Package restriction decides which MCP servers and tools a mode may
// see and invoke. It is a pure policy engine: callers pass in a server
// snapshot and a mode's restriction set, and get back deterministic
// enabled/disabled verdicts. The package holds no state, performs no
// I/O, and is safe for concurrent use without coordination.
package restriction

// ServerDescriptor describes one known tool-providing server.
// It is constructed by the connection layer when a server connects or
// its tool list changes, and is read-only to this package.
type ServerDescriptor struct {
	// Name uniquely identifies the server. Must be non-empty.
	Name string `json:"name"`

	// DefaultVisible governs visibility for modes that state no opinion
	// about this server. Nil means true. A server with DefaultVisible
	// false is opt-in: invisible unless a mode allow-lists it.
	DefaultVisible *bool `json:"defaultVisible,omitempty"`

	// Tools lists the tool names the server currently advertises, in
	// the order the server reported them. Unique within the server.
	Tools []string `json:"tools,omitempty"`
}

// Visible resolves the DefaultVisible flag, treating absence as true.
func (d ServerDescriptor) Visible() bool {
	return d.DefaultVisible == nil || *d.DefaultVisible
}

// ToolRule names a tool-level restriction: a server-name pattern paired
// with a tool-name pattern. Both fields are required; a rule missing
// either never matches anything.
type ToolRule struct {
	Server string `json:"server" yaml:"server"`
	Tool   string `json:"tool" yaml:"tool"`
}

// matches reports whether the rule applies to the given server/tool
// pair. Malformed rules (an empty field) are inert rather than errors —
// one bad entry must not disable the rest of the set.
func (r ToolRule) matches(serverName, toolName string) bool {
	if r.Server == "" || r.Tool == "" {
		return false
	}
	return MatchesPattern(serverName, r.Server) && MatchesPattern(toolName, r.Tool)
}

// RestrictionSet is the visibility policy attached to one mode. A nil
// RestrictionSet means "no restrictions; server defaults apply".
type RestrictionSet struct {
	// AllowedServers, when non-empty, limits visibility to servers
	// matching at least one pattern.
	AllowedServers []string `json:"allowedServers,omitempty" yaml:"allowedServers,omitempty"`

	// DisallowedServers hides matching servers regardless of other
	// rules. Not consulted for opt-in servers, whose only path to
	// visibility is the allow list.
	DisallowedServers []string `json:"disallowedServers,omitempty" yaml:"disallowedServers,omitempty"`

	// AllowedTools, when non-empty, limits tools on enabled servers to
	// those matching at least one rule.
	AllowedTools []ToolRule `json:"allowedTools,omitempty" yaml:"allowedTools,omitempty"`

	// DisallowedTools disables matching tools even when an allow rule
	// also matches. Disallow dominates allow at both granularities.
	DisallowedTools []ToolRule `json:"disallowedTools,omitempty" yaml:"disallowedTools,omitempty"`
}

// IsEmpty reports whether the set carries no rules at all.
func (rs *RestrictionSet) IsEmpty() bool {
	if rs == nil {
		return true
	}
	return len(rs.AllowedServers) == 0 &&
		len(rs.DisallowedServers) == 0 &&
		len(rs.AllowedTools) == 0 &&
		len(rs.DisallowedTools) == 0
}

// Normalize returns nil for an empty set, otherwise the set itself.
// An empty RestrictionSet and an absent one mean the same thing;
// mutators store the normalized form so callers never have to
// distinguish the two.
func (rs *RestrictionSet) Normalize() *RestrictionSet {
	if rs.IsEmpty() {
		return nil
	}
	return rs
}

// Reason explains a verdict. It never affects the enabled outcome.
type Reason string

const (
	// ReasonDefaultVisible: no rule applied; the server default kept it visible.
	ReasonDefaultVisible Reason = "default_visible"
	// ReasonDefaultHidden: no restrictions exist and the server defaults to hidden.
	ReasonDefaultHidden Reason = "default_hidden"
	// ReasonExplicitlyAllowed: an allow pattern matched.
	ReasonExplicitlyAllowed Reason = "explicitly_allowed"
	// ReasonNotInAllowlist: an allow list exists and nothing in it matched.
	ReasonNotInAllowlist Reason = "not_in_allowlist"
	// ReasonExplicitlyDisallowed: a disallow pattern matched.
	ReasonExplicitlyDisallowed Reason = "explicitly_disallowed"
)

// Verdict is the outcome of evaluating one server or one tool.
type Verdict struct {
	Enabled bool   `json:"enabled"`
	Reason  Reason `json:"reason"`
}
