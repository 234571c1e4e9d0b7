// Package sequence_repo provides the PostgreSQL store for sequence state rows.
// All operations run on the transaction carried by the context.
package sequence_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"seqstore/internal/core/apperror"
	"seqstore/internal/core/sequence"
	"seqstore/internal/infrastructure/storage/postgres"
	"seqstore/pkg/logger"
)

// StateRepo loads and advances the row of one named sequence.
type StateRepo struct {
	name    string
	mapping sequence.TableMapping
	now     func() time.Time
}

// Ensure compile-time interface compliance.
var _ sequence.Store = (*StateRepo)(nil)

// NewStateRepo creates a store for the sequence name in the mapped table.
func NewStateRepo(name string, mapping sequence.TableMapping) *StateRepo {
	return &StateRepo{
		name:    name,
		mapping: mapping.WithDefaults(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *StateRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// getTx returns the transaction from context.
// Row locks taken outside a transaction would be released immediately,
// so every operation refuses to run without one.
func (r *StateRepo) getTx(ctx context.Context, op string) (postgres.Querier, error) {
	tx := postgres.TxFromContext(ctx)
	if tx == nil {
		return nil, apperror.NewInternal(fmt.Errorf("sequence %s requires transaction context", op)).
			WithDetail("name", r.name)
	}
	return tx.Tx, nil
}

func (r *StateRepo) loadQuery() (string, []any, error) {
	m := r.mapping
	return r.Builder().
		Select(quote(m.CurrentValueColumn)).
		From(quote(m.Table)).
		Where(squirrel.Eq{quote(m.NameColumn): r.name}).
		Suffix("FOR UPDATE").
		ToSql()
}

// Load implements sequence.Store.
// Blocks until the row lock is granted or the transaction lock_timeout expires.
func (r *StateRepo) Load(ctx context.Context) (*sequence.State, error) {
	logger.Debug(ctx, "loading sequence state", "name", r.name, "table", r.mapping.Table)

	querier, err := r.getTx(ctx, "load")
	if err != nil {
		return nil, err
	}

	sql, args, err := r.loadQuery()
	if err != nil {
		return nil, fmt.Errorf("build load: %w", err)
	}

	var current int64
	if err := querier.QueryRow(ctx, sql, args...).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Info(ctx, "no existing state found for sequence", "name", r.name)
			return nil, nil
		}
		return nil, postgres.TranslateError(r.name, "load", err)
	}

	logger.Debug(ctx, "loaded sequence state", "name", r.name, "current_value", current)
	return &sequence.State{CurrentValue: current}, nil
}

func (r *StateRepo) insertQuery(state sequence.State) (string, []any, error) {
	m := r.mapping
	return r.Builder().
		Insert(quote(m.Table)).
		Columns(quote(m.NameColumn), quote(m.CurrentValueColumn), quote(m.CreatedAtColumn)).
		Values(r.name, state.CurrentValue, r.now()).
		ToSql()
}

// Insert implements sequence.Store.
// A concurrent first use of the same name surfaces as PersistenceConflict.
func (r *StateRepo) Insert(ctx context.Context, state sequence.State) error {
	logger.Debug(ctx, "inserting initial sequence state", "name", r.name, "current_value", state.CurrentValue)

	querier, err := r.getTx(ctx, "insert")
	if err != nil {
		return err
	}

	sql, args, err := r.insertQuery(state)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(r.name, "insert", err)
	}
	if tag.RowsAffected() == 0 {
		logger.Error(ctx, "failed to insert sequence state", "name", r.name, "affected_rows", tag.RowsAffected())
		return apperror.NewPersistenceConflict(r.name, "insert")
	}

	return nil
}

func (r *StateRepo) updateQuery(state sequence.State) (string, []any, error) {
	m := r.mapping
	return r.Builder().
		Update(quote(m.Table)).
		Set(quote(m.CurrentValueColumn), state.CurrentValue).
		Set(quote(m.LastModifiedAtColumn), r.now()).
		Where(squirrel.Eq{quote(m.NameColumn): r.name}).
		ToSql()
}

// Update implements sequence.Store.
func (r *StateRepo) Update(ctx context.Context, state sequence.State) error {
	logger.Debug(ctx, "updating sequence state", "name", r.name, "current_value", state.CurrentValue)

	querier, err := r.getTx(ctx, "update")
	if err != nil {
		return err
	}

	sql, args, err := r.updateQuery(state)
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(r.name, "update", err)
	}
	if tag.RowsAffected() == 0 {
		logger.Error(ctx, "failed to update sequence state", "name", r.name, "affected_rows", tag.RowsAffected())
		return apperror.NewPersistenceConflict(r.name, "update")
	}

	return nil
}

// quote renders a validated identifier as a quoted SQL identifier.
func quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}
