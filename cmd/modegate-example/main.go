// Example program demonstrating mode-scoped server/tool gating.
//
// Usage:
//
//	# Filtered listing for the built-in demo servers
//	go run ./cmd/modegate-example/ -modes ./modes -mode readonly
//
//	# Connect a real stdio MCP server instead
//	go run ./cmd/modegate-example/ -modes ./modes -mode readonly \
//	    -server "npx -y @modelcontextprotocol/server-filesystem /tmp"
//
//	# Check a single invocation
//	go run ./cmd/modegate-example/ -modes ./modes -mode readonly -check files/write_file
//
//	# Interactive-search the listing
//	go run ./cmd/modegate-example/ -modes ./modes -search "read_*"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jg-phare/modegate/pkg/gate"
	"github.com/jg-phare/modegate/pkg/mcp"
	"github.com/jg-phare/modegate/pkg/modes"
	"github.com/jg-phare/modegate/pkg/restriction"
)

func main() {
	modesDir := flag.String("modes", "", "Directory of mode YAML files")
	modeName := flag.String("mode", "", "Mode to activate (empty: no restrictions)")
	server := flag.String("server", "", "Stdio MCP server command to connect (empty: built-in demo servers)")
	check := flag.String("check", "", "Invocation to check, as server/tool")
	search := flag.String("search", "", "Search term for the filtered listing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *modesDir, *modeName, *server, *check, *search); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, modesDir, modeName, server, check, search string) error {
	store := modes.NewStore()
	if modesDir != "" {
		loaded, err := modes.LoadDir(modesDir)
		if err != nil {
			return fmt.Errorf("load modes: %w", err)
		}
		store.Replace(loaded)
		fmt.Printf("Modes:  %s\n", strings.Join(store.Names(), ", "))
	}
	if modeName != "" {
		if err := store.SetActive(modeName); err != nil {
			return err
		}
		fmt.Printf("Active: %s\n", modeName)
	}

	source, cleanup, err := serverSource(ctx, server)
	if err != nil {
		return err
	}
	defer cleanup()

	g := gate.NewGate(store, source)

	if check != "" {
		serverName, toolName, ok := strings.Cut(check, "/")
		if !ok {
			return fmt.Errorf("-check wants server/tool, got %q", check)
		}
		printDecision(g.Check(serverName, toolName))
		return nil
	}

	listings := g.Listing()
	if search != "" {
		fmt.Printf("Search: %q\n", search)
		listings = g.Search(search)
	}

	fmt.Println(strings.Repeat("-", 40))
	if len(listings) == 0 {
		fmt.Println("(no servers visible)")
	}
	for _, entry := range listings {
		fmt.Printf("%s\n", entry.Server)
		for _, tool := range entry.Tools {
			fmt.Printf("  %s\n", tool)
		}
	}
	return nil
}

// serverSource connects the configured stdio server, or falls back to a
// fixed demo set so the gate has something to evaluate.
func serverSource(ctx context.Context, command string) (gate.ServerSource, func(), error) {
	if command == "" {
		return demoServers{}, func() {}, nil
	}

	parts := strings.Fields(command)
	client := mcp.NewClient()
	err := client.Connect(ctx, "server", mcp.ServerConfig{
		Type:    mcp.TransportStdio,
		Command: parts[0],
		Args:    parts[1:],
	})
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect %q: %w", command, err)
	}
	return client, func() { client.Close() }, nil
}

func printDecision(d gate.Decision) {
	verdict := "DENIED"
	if d.Allowed {
		verdict = "ALLOWED"
	}
	fmt.Printf("%s  %s/%s  reason=%s  id=%s\n", verdict, d.Server, d.Tool, d.Reason, d.ID)
	if d.Message != "" {
		fmt.Printf("  %s\n", d.Message)
	}
}

// demoServers mimics a few connected MCP servers, including an opt-in one.
type demoServers struct{}

func optIn() *bool { v := false; return &v }

func (demoServers) Descriptors() []restriction.ServerDescriptor {
	return []restriction.ServerDescriptor{
		{Name: "files", Tools: []string{"read_file", "write_file", "delete_file"}},
		{Name: "search", Tools: []string{"web_search", "local_search"}},
		{Name: "admin", DefaultVisible: optIn(), Tools: []string{"drop_table", "restart"}},
	}
}

func (d demoServers) Descriptor(name string) (restriction.ServerDescriptor, bool) {
	for _, desc := range d.Descriptors() {
		if desc.Name == name {
			return desc, true
		}
	}
	return restriction.ServerDescriptor{}, false
}
