// Package modes holds the named permission profiles a caller switches
// between, each carrying at most one restriction set. It is the
// mode-configuration store the gate looks restrictions up in; the
// resolution logic itself lives in pkg/restriction.
package modes

import (
	"strings"

	"github.com/jg-phare/modegate/pkg/restriction"
)

// Mode is a named permission profile. Restrictions is nil for a mode
// that states no opinion and defers to server defaults.
type Mode struct {
	Name         string                      `yaml:"name" json:"name"`
	Description  string                      `yaml:"description,omitempty" json:"description,omitempty"`
	Restrictions *restriction.RestrictionSet `yaml:"restrictions,omitempty" json:"restrictions,omitempty"`
}

// sanitize validates a restriction set at the configuration boundary so
// the resolver can assume well-formed input: patterns are trimmed,
// empty patterns and tool rules missing either field are dropped, and
// a set left empty collapses to nil.
func sanitize(rs *restriction.RestrictionSet) *restriction.RestrictionSet {
	if rs == nil {
		return nil
	}
	out := &restriction.RestrictionSet{
		AllowedServers:    cleanPatterns(rs.AllowedServers),
		DisallowedServers: cleanPatterns(rs.DisallowedServers),
		AllowedTools:      cleanRules(rs.AllowedTools),
		DisallowedTools:   cleanRules(rs.DisallowedTools),
	}
	return out.Normalize()
}

func cleanPatterns(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cleanRules(rules []restriction.ToolRule) []restriction.ToolRule {
	var out []restriction.ToolRule
	for _, r := range rules {
		r.Server = strings.TrimSpace(r.Server)
		r.Tool = strings.TrimSpace(r.Tool)
		if r.Server != "" && r.Tool != "" {
			out = append(out, r)
		}
	}
	return out
}
