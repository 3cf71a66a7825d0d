package gate

import (
	"strings"

	"github.com/jg-phare/modegate/pkg/restriction"
)

// ServerListing is one enabled server and the tools the active mode
// leaves enabled on it, in the order the server advertised them.
type ServerListing struct {
	Server string   `json:"server"`
	Tools  []string `json:"tools"`
}

// Listing returns the capability view the active mode permits: enabled
// servers each with their enabled tools. Servers whose tools are all
// disabled still appear, with an empty tool list.
func (g *Gate) Listing() []ServerListing {
	rs := g.modes.ActiveRestrictions()

	visible := restriction.FilterServers(g.servers.Descriptors(), rs, nil)
	listings := make([]ServerListing, 0, len(visible))
	for _, desc := range visible {
		listings = append(listings, ServerListing{
			Server: desc.Name,
			Tools:  restriction.FilterTools(desc, rs),
		})
	}
	return listings
}

// Search narrows the listing to entries matching the term, using
// pattern-or-contains semantics. A server whose name matches keeps its
// full tool list; otherwise only matching tools are kept, and servers
// with no match are dropped. Search results never feed enforcement.
func (g *Gate) Search(term string) []ServerListing {
	listings := g.Listing()
	if strings.TrimSpace(term) == "" {
		return listings
	}

	matched := make([]ServerListing, 0, len(listings))
	for _, entry := range listings {
		if restriction.MatchesPatternOrContains(entry.Server, term) {
			matched = append(matched, entry)
			continue
		}

		var tools []string
		for _, tool := range entry.Tools {
			if restriction.MatchesPatternOrContains(tool, term) {
				tools = append(tools, tool)
			}
		}
		if len(tools) > 0 {
			matched = append(matched, ServerListing{Server: entry.Server, Tools: tools})
		}
	}
	return matched
}
