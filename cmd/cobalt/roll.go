package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/chain"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/workflow"
	"github.com/spf13/cobra"
)

func rollCmd() *cobra.Command {
	var (
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "roll",
		Short: "Print point-buy stat rolls as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive, got %d", count)
			}
			rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewPCG(seed, seed))
			}
			rolls := make([]chain.HeroStats, 0, count)
			for i := 0; i < count; i++ {
				rolls = append(rolls, workflow.RollStats(rng))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if count == 1 {
				return enc.Encode(rolls[0])
			}
			return enc.Encode(rolls)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of rolls")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "fixed seed for reproducible rolls")
	return cmd
}
