package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memoria/internal/store"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the memory database",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			s := openStore(cfg)
			defer s.Close()
			fmt.Printf("Initialized memory store: %s\n", cfg.DatabasePath())
		},
	}
}

func importCmd() *cobra.Command {
	var noSync bool
	cmd := &cobra.Command{
		Use:   "import [session-file.json...]",
		Short: "Import session export files",
		Long: `Import one or more session export JSON files into the memory store,
then sync each session into the knowledge vault. Re-importing a
session replaces its previous rows.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			s := openStore(cfg)
			defer s.Close()

			for _, path := range args {
				id := runImport(s, path)
				fmt.Printf("Imported session: %s\n", id)

				if noSync {
					continue
				}
				runSync(cfg, s, id)
			}
		},
	}
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "skip the knowledge vault sync")
	return cmd
}

func runImport(s *store.Store, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	var doc store.SessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", path, err)
		os.Exit(1)
	}

	id, err := s.ImportSession(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", path, err)
		os.Exit(1)
	}
	return id
}
