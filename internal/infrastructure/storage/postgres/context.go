package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ContextWithTx attaches a transaction the caller began itself, so code that
// expects a TxManager-managed transaction can run inside it.
// The caller stays responsible for commit and rollback.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	if existing := TxFromContext(ctx); existing != nil && existing.Tx == tx {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, &Tx{Tx: tx, nested: true})
}
