package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"seqstore/internal/infrastructure/storage/postgres/sequence_repo"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sequences and their current values.",
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		limit, _ := cmd.Flags().GetUint64("limit")

		ctx := cmd.Context()
		pool, _, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		rows, err := sequence_repo.NewReader(pool.Pool).List(ctx, mapping(), sequence_repo.ListFilter{
			Prefix: prefix,
			Limit:  limit,
		})
		if err != nil {
			return err
		}

		printSequences(cmd, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("prefix", "", "only names starting with this text")
	listCmd.Flags().Uint64("limit", 0, "maximum number of rows, 0 for all")
}

func printSequences(cmd *cobra.Command, rows []sequence_repo.StoredSequence) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCURRENT\tCREATED\tMODIFIED")
	for _, r := range rows {
		modified := "-"
		if r.LastModifiedAt != nil {
			modified = r.LastModifiedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Name, r.CurrentValue, r.CreatedAt.Format(time.RFC3339), modified)
	}
	_ = w.Flush()
}
