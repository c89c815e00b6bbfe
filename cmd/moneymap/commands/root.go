package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "moneymap",
	Short: "Money Map - economic story discovery pipeline",
	Long: `Money Map story discovery

Pulls economic time series from FRED, scores every indicator for viral
potential, selects the week's lead story, and assembles the story
package handed to script writing.

Examples:
  moneymap run
  moneymap fetch
  moneymap story
  moneymap api
  moneymap scheduler`,
}

// Execute adds all child commands to the root command and sets flags.
// Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default from STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
