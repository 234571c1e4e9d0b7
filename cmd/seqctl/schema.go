package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"seqstore/internal/infrastructure/storage/postgres"
	"seqstore/internal/infrastructure/storage/postgres/sequence_repo"
	"seqstore/pkg/logger"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or drop the sequence table.",
}

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the sequence table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ifNotExists, _ := cmd.Flags().GetBool("if-not-exists")
		schemaOpts := sequence_repo.SchemaOptions{IfNotExists: ifNotExists}

		if dryRun {
			sql, err := sequence_repo.CreateTableSQL(mapping(), schemaOpts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql+";")
			return nil
		}

		return runSchema(cmd.Context(), func(ctx context.Context, tx sequence_repo.Execer) error {
			return sequence_repo.CreateTable(ctx, tx, mapping(), schemaOpts)
		})
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the sequence table and every stored value.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ifExists, _ := cmd.Flags().GetBool("if-exists")
		schemaOpts := sequence_repo.SchemaOptions{IfExists: ifExists}

		if dryRun {
			sql, err := sequence_repo.DropTableSQL(mapping(), schemaOpts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql+";")
			return nil
		}

		return runSchema(cmd.Context(), func(ctx context.Context, tx sequence_repo.Execer) error {
			return sequence_repo.DropTable(ctx, tx, mapping(), schemaOpts)
		})
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaCreateCmd, schemaDropCmd)

	schemaCreateCmd.Flags().Bool("dry-run", false, "print the statement instead of executing it")
	schemaCreateCmd.Flags().Bool("if-not-exists", false, "do nothing when the table already exists")
	schemaDropCmd.Flags().Bool("dry-run", false, "print the statement instead of executing it")
	schemaDropCmd.Flags().Bool("if-exists", false, "do nothing when the table does not exist")
}

func runSchema(ctx context.Context, fn func(ctx context.Context, tx sequence_repo.Execer) error) error {
	pool, txManager, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx, postgres.TxFromContext(ctx).Tx)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "schema updated", "table", mapping().Table)
	return nil
}
