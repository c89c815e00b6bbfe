package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/internal/contracts"
)

var fetchLookbackYears int

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and persist all configured series without scoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		since := time.Now().UTC().AddDate(-fetchLookbackYears, 0, 0)
		snap := a.collector.Collect(ctx, a.strategy.Indicators, since)

		for _, st := range snap.Statuses() {
			switch st.Outcome {
			case contracts.FetchOK:
				series, _ := snap.Series(st.Code)
				if err := a.repo.SaveSeries(ctx, st.Code, series); err != nil {
					return fmt.Errorf("save %s: %w", st.Code, err)
				}
				fmt.Printf("  %-22s %4d observations\n", st.Code, len(series))
			case contracts.FetchEmpty:
				fmt.Printf("  %-22s empty\n", st.Code)
			default:
				fmt.Printf("  %-22s failed: %s\n", st.Code, st.Error)
			}
		}

		fmt.Printf("\nFetched %d/%d series\n", snap.FetchedCount(), len(a.strategy.Indicators))
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchLookbackYears, "lookback", 2, "years of history to fetch")
	rootCmd.AddCommand(fetchCmd)
}
