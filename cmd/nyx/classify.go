package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/nyx/internal/brain"
	"github.com/fyrsmithlabs/nyx/internal/learning"
	"github.com/fyrsmithlabs/nyx/internal/logging"
)

func newClassifyCmd() *cobra.Command {
	var noRewards bool

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Print the pipeline decision for an utterance",
		Long: `Run one utterance through perception and reasoning and print the decision
as JSON. Nothing is executed and no feedback is recorded.

Examples:
  nyx classify "what time is it"
  nyx classify --no-rewards open safari`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var rewards brain.RewardSource
			if !noRewards {
				rewards = learning.NewRewardTable(cfg.Brain.DataDir)
			}
			b := brain.New(rewards, thresholds(cfg.Feedback), brain.WithLogger(logging.NewNop()))

			decision, err := b.Process(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(decision)
		},
	}

	cmd.Flags().BoolVar(&noRewards, "no-rewards", false, "ignore the learned reward table")
	return cmd
}
