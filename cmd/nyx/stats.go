package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/nyx/internal/learning"
)

// statsOutput is printed by nyx stats.
type statsOutput struct {
	learning.Stats
	Path string `json:"path"`
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print reward table statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			table := learning.NewRewardTable(cfg.Brain.DataDir)
			if err := table.Load(cmd.Context()); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(statsOutput{Stats: table.Stats(), Path: table.Path()})
		},
	}
}
