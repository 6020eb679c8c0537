package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/memoria/internal/telemetry"
)

func telemetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Inspect recall quality telemetry",
	}
	cmd.AddCommand(telemetrySummaryCmd())
	cmd.AddCommand(telemetryRecentCmd())
	return cmd
}

func telemetrySummaryCmd() *cobra.Command {
	var windowDays int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate statistics over a trailing window",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			s := openExistingStore(cfg)
			defer s.Close()

			sum, err := telemetry.NewAggregator(s).Summarize(windowDays)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if jsonOutput {
				printJSON(sum)
				return
			}

			fmt.Printf("Queries (last %dd):  %d\n", windowDays, sum.TotalQueries)
			fmt.Printf("  keyword:          %d\n", sum.RouteCounts.Keyword)
			fmt.Printf("  tree:             %d\n", sum.RouteCounts.Tree)
			fmt.Printf("  hybrid (tree):    %d\n", sum.RouteCounts.HybridTree)
			fmt.Printf("  hybrid (fallback): %d\n", sum.RouteCounts.HybridFallback)
			fmt.Printf("Fallback rate:      %.2f%%\n", sum.FallbackRate*100)
			fmt.Printf("Avg latency:        %.2f ms (p95 %d ms)\n", sum.AvgLatencyMs, sum.P95LatencyMs)
			fmt.Printf("Avg hits:           %.2f\n", sum.AvgHitCount)
		},
	}
	cmd.Flags().IntVar(&windowDays, "window-days", 7, "window size in days")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func telemetryRecentCmd() *cobra.Command {
	var window string
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List raw telemetry records, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			s := openExistingStore(cfg)
			defer s.Close()

			res, err := telemetry.NewAggregator(s).ListRecent(window, limit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if jsonOutput {
				printJSON(res)
				return
			}

			fmt.Printf("Window %s: %d records\n", res.Window, res.Total)
			if len(res.Rows) == 0 {
				return
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tROUTE\tFALLBACK\tHITS\tLATENCY")
			for _, r := range res.Rows {
				fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%dms\n",
					r.CreatedAt.Format(time.DateTime), r.RouteMode, r.FallbackUsed, r.HitCount, r.LatencyMs)
			}
			w.Flush()
		},
	}
	cmd.Flags().StringVar(&window, "window", telemetry.DefaultWindow, "trailing window like P7D")
	cmd.Flags().IntVar(&limit, "limit", 50, "rows per page (1 to 500)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
