package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/internal/contracts"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full discovery run",
	Long: `Fetches all configured series, scores every indicator, selects the
lead story, and persists the resulting story package.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		pkg, err := a.runner.Run(ctx)
		if err != nil {
			if contracts.IsPackageIncomplete(err) {
				fmt.Printf("No viable story this run: %v\n", err)
				return nil
			}
			return err
		}

		printPackage(pkg)
		return nil
	},
}

// printPackage renders a run result for the terminal.
func printPackage(pkg *contracts.StoryPackage) {
	fmt.Printf("Episode %d - %s\n\n", pkg.Episode, pkg.RunAt.Format("2006-01-02"))

	lead := pkg.Lead
	fmt.Printf("LEAD STORY: %s\n", lead.Indicator.Name)
	if v, ok := lead.Metrics.LatestValue.Value(); ok {
		fmt.Printf("  Latest: %.2f %s (%s)\n", v, lead.Indicator.Unit,
			lead.Metrics.LatestDate.Format("2006-01-02"))
	}
	if pct, ok := lead.Metrics.YoYPct.Value(); ok {
		fmt.Printf("  YoY change: %+.1f%%\n", pct)
	} else {
		fmt.Printf("  YoY change: unavailable (%s)\n", lead.Metrics.YoYPct.Reason())
	}
	fmt.Printf("  Score: %.0f  Tags: %v\n", lead.Composite, lead.Tags)

	fmt.Printf("\nRelated context:\n")
	for _, r := range pkg.Related {
		if pct, ok := r.Metrics.YoYPct.Value(); ok {
			fmt.Printf("  - %s: %+.1f%% YoY\n", r.Indicator.Name, pct)
		} else {
			fmt.Printf("  - %s: YoY unavailable\n", r.Indicator.Name)
		}
	}

	fmt.Printf("\nTop ranked:\n")
	for _, s := range pkg.Ranked {
		marker := " "
		if s.Penalized {
			marker = "*"
		}
		fmt.Printf("  %2d.%s [%5.1f] %s\n", s.Rank, marker, s.Composite, s.Indicator.Name)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
