package sequence_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"seqstore/internal/core/sequence"
	"seqstore/pkg/logger"
)

// Execer runs a statement without returning rows.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// SchemaOptions tunes the DDL statements.
type SchemaOptions struct {
	IfNotExists bool
	IfExists    bool
}

// CreateTableSQL returns the DDL creating the sequence table.
func CreateTableSQL(mapping sequence.TableMapping, opts SchemaOptions) (string, error) {
	m := mapping.WithDefaults()
	if err := m.Validate(); err != nil {
		return "", err
	}

	guard := ""
	if opts.IfNotExists {
		guard = "IF NOT EXISTS "
	}

	return fmt.Sprintf(
		"CREATE TABLE %s%s (%s VARCHAR(%d) NOT NULL PRIMARY KEY, %s BIGINT NOT NULL, %s TIMESTAMP NOT NULL, %s TIMESTAMP)",
		guard,
		quote(m.Table),
		quote(m.NameColumn), sequence.MaxNameLength,
		quote(m.CurrentValueColumn),
		quote(m.CreatedAtColumn),
		quote(m.LastModifiedAtColumn),
	), nil
}

// DropTableSQL returns the DDL dropping the sequence table.
func DropTableSQL(mapping sequence.TableMapping, opts SchemaOptions) (string, error) {
	m := mapping.WithDefaults()
	if err := m.Validate(); err != nil {
		return "", err
	}

	guard := ""
	if opts.IfExists {
		guard = "IF EXISTS "
	}
	return fmt.Sprintf("DROP TABLE %s%s", guard, quote(m.Table)), nil
}

// CreateTable issues the create DDL. Run once at schema-management time.
func CreateTable(ctx context.Context, q Execer, mapping sequence.TableMapping, opts SchemaOptions) error {
	sql, err := CreateTableSQL(mapping, opts)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create sequence table: %w", err)
	}
	logger.Info(ctx, "created sequence table", "table", mapping.WithDefaults().Table)
	return nil
}

// DropTable issues the drop DDL. Every sequence in the table is lost.
func DropTable(ctx context.Context, q Execer, mapping sequence.TableMapping, opts SchemaOptions) error {
	sql, err := DropTableSQL(mapping, opts)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop sequence table: %w", err)
	}
	logger.Info(ctx, "dropped sequence table", "table", mapping.WithDefaults().Table)
	return nil
}
