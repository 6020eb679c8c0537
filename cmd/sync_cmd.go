package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memoria/internal/config"
	"github.com/nextlevelbuilder/memoria/internal/store"
	"github.com/nextlevelbuilder/memoria/internal/vault"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [session-id]",
		Short: "Sync a session into the knowledge vault",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			s := openExistingStore(cfg)
			defer s.Close()
			runSync(cfg, s, args[0])
		},
	}
}

func runSync(cfg config.Config, s *store.Store, sessionID string) {
	res, err := vault.NewSyncer(s, cfg.VaultPath()).SyncSession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing %s: %v\n", sessionID, err)
		os.Exit(1)
	}

	fmt.Printf("Daily note: %s\n", res.DailyNote)
	for _, p := range res.DecisionDocs {
		fmt.Printf("Decision:   %s\n", p)
	}
	for _, p := range res.SkillDocs {
		fmt.Printf("Skill:      %s\n", p)
	}
}

func skillsCmd() *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "List recently learned skills",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			s := openExistingStore(cfg)
			defer s.Close()

			skills, err := s.RecentSkills(limit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if jsonOutput {
				printJSON(skills)
				return
			}
			if len(skills) == 0 {
				fmt.Println("No skills recorded.")
				return
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tSUCCESS\tCREATED")
			for _, sk := range skills {
				fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\n",
					sk.Name, sk.Category, sk.SuccessRate*100, sk.CreatedDate.Format(time.DateOnly))
			}
			w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum skills to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
