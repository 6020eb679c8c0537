package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memoria/internal/treeindex"
)

func indexCmd() *cobra.Command {
	var (
		project    string
		since      string
		sessionID  string
		dryRun     bool
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the memory tree from unindexed sessions",
		Long: `Derive project, topic and session nodes from sessions that are not
yet linked into the memory tree. The build is incremental and
idempotent: running it twice changes nothing.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			s := openExistingStore(cfg)
			defer s.Close()

			res, err := treeindex.NewBuilder(s).Build(treeindex.Options{
				Project:   project,
				Since:     since,
				SessionID: sessionID,
				DryRun:    dryRun,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			if jsonOutput {
				printJSON(res)
				return
			}
			fmt.Printf("Sessions considered: %d\n", res.SessionsConsidered)
			fmt.Printf("Sessions indexed:    %d\n", res.SessionsIndexed)
			fmt.Printf("Nodes upserted:      %d\n", res.NodesUpserted)
			fmt.Printf("Links upserted:      %d\n", res.LinksUpserted)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "only index sessions of this project")
	cmd.Flags().StringVar(&since, "since", "", "only index sessions at or after this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&sessionID, "session", "", "index a single session")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be indexed without writing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
