package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thermabackend/internal/insight"
	"github.com/thermabackend/internal/wellness"
)

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <label>...",
		Short: "Print the 1-10 score of mood labels",
		Long: `Print the score of each mood label. Unknown labels score 6.

Examples:
  therma score happy sad
  therma score Happy   # labels are case-sensitive, prints 6`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, label := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", label, wellness.ScoreMood(label))
			}
			return nil
		},
	}
}

func newTrendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trend <score>...",
		Short: "Analyze a most-recent-first score series",
		Long: `Compare the recent half of a score series with the older half.

Examples:
  therma trend 9 2 9 9`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series := make([]int, len(args))
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("invalid score %q: %w", a, err)
				}
				series[i] = n
			}
			result := wellness.AnalyzeTrend(series)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.2f%%\n%s\n", result.Direction, result.ChangePercent, insight.TrendSentence(result))
			return nil
		},
	}
}

func newGrowthCmd() *cobra.Command {
	var (
		health int
		stage  int
		ratio  float64
	)
	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Project the garden growth percentage",
		Long: `Project the 0-100 growth percentage from plant state and today's
completion ratio.

Examples:
  therma growth --health 80 --stage 3 --ratio 0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plant := wellness.PlantState{Health: health, GrowthStage: stage}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", wellness.Growth(plant, ratio))
			return nil
		},
	}
	cmd.Flags().IntVar(&health, "health", 0, "plant health, 0-100")
	cmd.Flags().IntVar(&stage, "stage", wellness.MinStage, "growth stage, 1-5")
	cmd.Flags().Float64Var(&ratio, "ratio", 0, "today's completion ratio, 0-1")
	return cmd
}
