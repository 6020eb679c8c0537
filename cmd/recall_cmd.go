package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memoria/internal/recall"
)

func recallCommand() *cobra.Command {
	var (
		mode       string
		project    string
		topK       int
		window     string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Search past sessions",
		Long: `Query the memory store. Hybrid mode (the default) consults the
memory tree first and falls back to keyword scanning when the tree
has nothing relevant.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			router, cleanup, err := recallRouter(cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer cleanup()

			if topK == 0 {
				topK = cfg.Recall.TopK
			}
			res, err := router.Recall(recall.Filter{
				Query:      args[0],
				Mode:       mode,
				Project:    project,
				TopK:       topK,
				TimeWindow: window,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			if jsonOutput {
				printJSON(res)
				return
			}
			printHits(res)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "retrieval mode: keyword, tree or hybrid (default)")
	cmd.Flags().StringVar(&project, "project", "", "restrict results to one project")
	cmd.Flags().IntVar(&topK, "top-k", 0, "maximum hits to return (default 5)")
	cmd.Flags().StringVar(&window, "window", "", "trailing time window like P7D")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printHits(res recall.Result) {
	if len(res.Hits) == 0 {
		fmt.Println("No results.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTYPE\tSESSION\tSNIPPET")
	for _, h := range res.Hits {
		snippet := strings.ReplaceAll(h.Snippet, "\n", " ")
		if len(snippet) > 80 {
			snippet = snippet[:80]
		}
		fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", h.Score, h.Type, h.SessionID, snippet)
	}
	w.Flush()

	fmt.Printf("\nRoute: %s", res.RouteMode)
	if res.FallbackUsed {
		fmt.Print(" (fallback used)")
	}
	fmt.Println()
}
