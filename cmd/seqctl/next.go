package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"seqstore/internal/core/sequence"
	seqservice "seqstore/internal/infrastructure/sequence"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Issue the next value of a sequence.",
	Long: "`next --name orders` advances the named sequence in its own " +
		"transaction and prints the issued value.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, txManager, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		value, err := seqservice.New(txManager).NextValueInTx(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nextCmd)

	def := sequence.DefaultConfig("")
	f := nextCmd.Flags()
	f.String("name", "", "sequence name")
	f.Int64("initial", def.InitialValue, "lower bound and first ascending value")
	f.Int64("max", def.MaxValue, "upper bound and first descending value")
	f.Int64("increment", def.IncrementValue, "step between values")
	f.Bool("descending", false, "count down from --max")
	f.Bool("cycle", false, "restart at the starting bound instead of failing")
	_ = nextCmd.MarkFlagRequired("name")
}

// configFromFlags builds a validated sequence configuration.
func configFromFlags(cmd *cobra.Command) (sequence.Config, error) {
	f := cmd.Flags()
	name, _ := f.GetString("name")

	cfg := sequence.DefaultConfig(name)
	cfg.InitialValue, _ = f.GetInt64("initial")
	cfg.MaxValue, _ = f.GetInt64("max")
	cfg.IncrementValue, _ = f.GetInt64("increment")
	cfg.Descending, _ = f.GetBool("descending")
	cfg.Cycle, _ = f.GetBool("cycle")
	cfg.Table = mapping()

	if err := cfg.Validate(); err != nil {
		return sequence.Config{}, err
	}
	return cfg, nil
}
