package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/memoria/internal/config"
	"github.com/nextlevelbuilder/memoria/internal/recall"
	"github.com/nextlevelbuilder/memoria/internal/store"
	"github.com/nextlevelbuilder/memoria/internal/telemetry"
	"github.com/nextlevelbuilder/memoria/internal/treeindex"
	"github.com/nextlevelbuilder/memoria/internal/vault"
)

func objectSchema(properties map[string]interface{}, required ...string) mcpgo.ToolInputSchema {
	return mcpgo.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func jsonResult(v interface{}) (*mcpgo.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// RecallTool answers recall queries across past sessions.
type RecallTool struct {
	router *recall.Router
	cfg    *config.Live
}

func (t *RecallTool) Definition() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        "memoria_recall",
		Description: "Search past agent sessions for decisions, skills and session summaries. Modes: keyword, tree, hybrid (default).",
		InputSchema: objectSchema(map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Free-text query",
			},
			"project": map[string]interface{}{
				"type":        "string",
				"description": "Restrict results to one project",
			},
			"mode": map[string]interface{}{
				"type": "string",
				"enum": []string{recall.ModeKeyword, recall.ModeTree, recall.ModeHybrid},
			},
			"top_k": map[string]interface{}{
				"type":        "number",
				"description": "Maximum hits to return (default 5)",
			},
			"time_window": map[string]interface{}{
				"type":        "string",
				"description": "Trailing window like P7D; invalid values are ignored",
			},
		}, "query"),
	}
}

func (t *RecallTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	topK := req.GetInt("top_k", 0)
	if topK == 0 && t.cfg != nil {
		topK = t.cfg.Load().Recall.TopK
	}

	res, err := t.router.Recall(recall.Filter{
		Query:      query,
		Project:    req.GetString("project", ""),
		Mode:       req.GetString("mode", ""),
		TopK:       topK,
		TimeWindow: req.GetString("time_window", ""),
	})
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

// BuildIndexTool derives the project/topic/session hierarchy from
// sessions not yet indexed.
type BuildIndexTool struct {
	builder *treeindex.Builder
}

func (t *BuildIndexTool) Definition() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        "memoria_build_index",
		Description: "Index unlinked sessions into the memory tree. Idempotent; already-indexed sessions are skipped.",
		InputSchema: objectSchema(map[string]interface{}{
			"project": map[string]interface{}{
				"type":        "string",
				"description": "Only index sessions of this project",
			},
			"since": map[string]interface{}{
				"type":        "string",
				"description": "Only index sessions at or after this time (RFC3339 or YYYY-MM-DD)",
			},
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Index a single session",
			},
			"dry_run": map[string]interface{}{
				"type":        "boolean",
				"description": "Report what would be indexed without writing",
			},
		}),
	}
}

func (t *BuildIndexTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	res, err := t.builder.Build(treeindex.Options{
		Project:   req.GetString("project", ""),
		Since:     req.GetString("since", ""),
		SessionID: req.GetString("session_id", ""),
		DryRun:    req.GetBool("dry_run", false),
	})
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

// ImportSessionTool loads a session export file into the store.
type ImportSessionTool struct {
	store *store.Store
}

func (t *ImportSessionTool) Definition() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        "memoria_import_session",
		Description: "Import a session export JSON file into the memory store.",
		InputSchema: objectSchema(map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the session JSON file",
			},
		}, "path"),
	}
}

func (t *ImportSessionTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if t.store == nil {
		return mcpgo.NewToolResultError(store.ErrNotInitialized.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("read session file: %v", err)), nil
	}
	var doc store.SessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return mcpgo.NewToolResultError(fmt.Sprintf("parse session file: %v", err)), nil
	}

	id, err := t.store.ImportSession(doc)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"session_id": id})
}

// SyncVaultTool renders a session into the Markdown knowledge base.
type SyncVaultTool struct {
	vault *vault.Syncer
}

func (t *SyncVaultTool) Definition() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        "memoria_sync_vault",
		Description: "Write a session's daily note, decision docs and skill docs into the knowledge vault.",
		InputSchema: objectSchema(map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Session to sync",
			},
		}, "session_id"),
	}
}

func (t *SyncVaultTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	res, err := t.vault.SyncSession(id)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

// TelemetrySummaryTool reports windowed recall quality statistics.
type TelemetrySummaryTool struct {
	metrics *telemetry.Aggregator
}

func (t *TelemetrySummaryTool) Definition() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        "memoria_telemetry_summary",
		Description: "Aggregate recall telemetry over a trailing window: route counts, fallback rate, latency percentiles.",
		InputSchema: objectSchema(map[string]interface{}{
			"window_days": map[string]interface{}{
				"type":        "number",
				"description": "Window size in days (default 7)",
			},
		}),
	}
}

func (t *TelemetrySummaryTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	sum, err := t.metrics.Summarize(req.GetInt("window_days", 0))
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

// TelemetryRecentTool pages raw telemetry rows, newest first.
type TelemetryRecentTool struct {
	metrics *telemetry.Aggregator
}

func (t *TelemetryRecentTool) Definition() mcpgo.Tool {
	return mcpgo.Tool{
		Name:        "memoria_telemetry_recent",
		Description: "List raw recall telemetry records in a trailing window, newest first.",
		InputSchema: objectSchema(map[string]interface{}{
			"window": map[string]interface{}{
				"type":        "string",
				"description": "Trailing window like P7D (the default)",
			},
			"limit": map[string]interface{}{
				"type":        "number",
				"description": "Rows per page, 1 to 500 (default 50)",
			},
		}),
	}
}

func (t *TelemetryRecentTool) Handle(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	res, err := t.metrics.ListRecent(req.GetString("window", ""), req.GetInt("limit", 50))
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}
