package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memoria/internal/config"
	"github.com/nextlevelbuilder/memoria/internal/mcp"
	"github.com/nextlevelbuilder/memoria/internal/telemetry"
	"github.com/nextlevelbuilder/memoria/internal/treeindex"
	"github.com/nextlevelbuilder/memoria/internal/vault"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve memory tools over MCP on stdin/stdout",
		Long: `Run the MCP server. Agents connect over stdio and call the
memoria_* tools for recall, indexing, session import, vault sync and
telemetry. Config file changes are picked up without a restart.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			s := openStore(cfg)
			defer s.Close()

			live := config.NewLive(cfg)
			router := newRouter(cfg, s)
			srv := mcp.NewServer(mcp.Deps{
				Store:   s,
				Router:  router,
				Builder: treeindex.NewBuilder(s),
				Vault:   vault.NewSyncer(s, cfg.VaultPath()),
				Metrics: telemetry.NewAggregator(s),
				Config:  live,
			})

			if w := watchConfig(cfg, live); w != nil {
				defer w.Stop()
			}

			if err := mcp.ServeStdio(srv); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}
}

// watchConfig hot-reloads recall tuning while the server runs. The
// reload only affects settings read per request; store and vault
// paths stay fixed for the process lifetime.
func watchConfig(cfg config.Config, live *config.Live) *config.Watcher {
	path := configFlag
	if path == "" {
		path = filepath.Join(cfg.Home, "config.yaml")
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	w, err := config.NewWatcher(path, homeFlag)
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
		return nil
	}
	w.OnChange(func(next config.Config) {
		live.Store(next)
		slog.Info("config reloaded", "top_k", next.Recall.TopK)
	})
	if err := w.Start(); err != nil {
		slog.Warn("config watcher failed to start", "error", err)
		return nil
	}
	return w
}
