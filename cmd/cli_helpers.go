package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nextlevelbuilder/memoria/internal/config"
	"github.com/nextlevelbuilder/memoria/internal/recall"
	"github.com/nextlevelbuilder/memoria/internal/store"
	"github.com/nextlevelbuilder/memoria/internal/telemetry"
)

// loadConfig resolves the effective config from flags, the config
// file and the environment.
func loadConfig() config.Config {
	cfg, err := config.Load(configFlag, homeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStore opens the sessions database, creating it if needed.
func openStore(cfg config.Config) *store.Store {
	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	return s
}

// openExistingStore opens the database and fails if it was never
// initialized, so read commands do not create an empty store.
func openExistingStore(cfg config.Config) *store.Store {
	s, err := store.OpenExisting(cfg.DatabasePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if err == store.ErrNotInitialized {
			fmt.Fprintln(os.Stderr, "Run 'memoria init' or import a session first.")
		}
		os.Exit(1)
	}
	return s
}

// newRouter wires the full recall pipeline over an open store.
func newRouter(cfg config.Config, s *store.Store) *recall.Router {
	tree, err := recall.NewTreeRetriever(s, cfg.Recall.PathCacheSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return recall.NewRouter(s, recall.NewKeywordRetriever(s), tree, telemetry.NewRecorder(s))
}

// recallRouter opens the store if it exists and wires the router over
// it. A missing store is not a fault: recall degrades to the empty
// state instead of refusing to run. The cleanup func closes the store
// when one was opened.
func recallRouter(cfg config.Config) (*recall.Router, func(), error) {
	s, err := store.OpenExisting(cfg.DatabasePath())
	if err == store.ErrNotInitialized {
		return recall.NewRouter(nil, nil, nil, nil), func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return newRouter(cfg, s), func() { s.Close() }, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
