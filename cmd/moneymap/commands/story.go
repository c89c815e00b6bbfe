package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/internal/assemble"
	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/derive"
	"github.com/moneymap/moneymap/internal/scoring"
	"github.com/moneymap/moneymap/internal/selection"
	"github.com/moneymap/moneymap/internal/storyconfig"
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Discover a story from stored observations without persisting",
	Long: `Runs derive, score, and select against observations already in the
database. Nothing is fetched or written; use it to preview what the next
scheduled run would pick.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		runAt := time.Now().UTC()
		since := runAt.AddDate(-2, 0, 0)

		calc := derive.NewCalculator(a.strategy.Derive, a.log)
		metrics := make(map[string]contracts.DerivedMetrics, len(a.strategy.Indicators))
		for _, ind := range a.strategy.Indicators {
			series, err := a.repo.LoadSeries(ctx, ind.Code, since)
			if err != nil {
				return fmt.Errorf("load %s: %w", ind.Code, err)
			}
			if len(series) == 0 {
				metrics[ind.Code] = contracts.AllUnavailable(contracts.ReasonNoData)
				continue
			}
			metrics[ind.Code] = calc.Compute(series, runAt)
		}

		scorer := scoring.NewScorer(a.strategy.Scoring, a.log)
		scores := scorer.ScoreAll(a.strategy.Indicators, metrics)

		cooldown, err := a.repo.LoadCooldown(ctx, 50)
		if err != nil {
			return err
		}

		sel := selection.NewSelector(a.strategy.Selection, a.log)
		result, err := sel.Select(scores, cooldown, 0, runAt)
		if err != nil {
			return err
		}

		related := selection.ResolveRelated(result.Lead, result.Ranked,
			a.strategy.Relations, a.strategy.Selection.RelatedMin, a.strategy.Selection.RelatedMax)

		hash, err := storyconfig.Hash(a.strategy)
		if err != nil {
			return err
		}

		asm := assemble.NewAssembler(a.strategy.Selection.ViabilityFloor,
			a.strategy.Selection.RankedSize, a.log)
		pkg, err := asm.Assemble(assemble.Input{
			Lead:       result.Lead,
			Related:    related,
			Ranked:     result.Ranked,
			RunAt:      runAt,
			ConfigHash: hash,
		})
		if err != nil {
			if contracts.IsPackageIncomplete(err) {
				fmt.Printf("No viable story in stored data: %v\n", err)
				return nil
			}
			return err
		}

		printPackage(pkg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storyCmd)
}
