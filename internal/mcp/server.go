// Package mcp exposes the memory subsystem as an MCP server: recall,
// index building, vault sync and telemetry as tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/memoria/internal/config"
	"github.com/nextlevelbuilder/memoria/internal/recall"
	"github.com/nextlevelbuilder/memoria/internal/store"
	"github.com/nextlevelbuilder/memoria/internal/telemetry"
	"github.com/nextlevelbuilder/memoria/internal/treeindex"
	"github.com/nextlevelbuilder/memoria/internal/vault"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps carries the subsystems the server exposes. Store may be nil;
// recall then degrades to empty results and the write tools report
// the store as uninitialized.
type Deps struct {
	Store   *store.Store
	Router  *recall.Router
	Builder *treeindex.Builder
	Vault   *vault.Syncer
	Metrics *telemetry.Aggregator

	// Config is the live runtime config; the recall tool reads its
	// tuning per request so file changes apply without a restart.
	// May be nil, in which case built-in defaults apply.
	Config *config.Live
}

// NewServer builds the MCP server with every tool registered.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"memoria",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	recallTool := &RecallTool{router: deps.Router, cfg: deps.Config}
	s.AddTool(recallTool.Definition(), recallTool.Handle)

	indexTool := &BuildIndexTool{builder: deps.Builder}
	s.AddTool(indexTool.Definition(), indexTool.Handle)

	importTool := &ImportSessionTool{store: deps.Store}
	s.AddTool(importTool.Definition(), importTool.Handle)

	syncTool := &SyncVaultTool{vault: deps.Vault}
	s.AddTool(syncTool.Definition(), syncTool.Handle)

	summaryTool := &TelemetrySummaryTool{metrics: deps.Metrics}
	s.AddTool(summaryTool.Definition(), summaryTool.Handle)

	recentTool := &TelemetryRecentTool{metrics: deps.Metrics}
	s.AddTool(recentTool.Definition(), recentTool.Handle)

	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
