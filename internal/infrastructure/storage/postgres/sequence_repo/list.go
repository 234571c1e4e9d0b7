package sequence_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"seqstore/internal/core/sequence"
	"seqstore/internal/infrastructure/storage/postgres"
)

// StoredSequence is one row of the sequence table as seen by operators.
type StoredSequence struct {
	Name           string     `db:"name" json:"name"`
	CurrentValue   int64      `db:"current_value" json:"current_value"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	LastModifiedAt *time.Time `db:"last_modified_at" json:"last_modified_at,omitempty"`
}

// ListFilter narrows a listing.
type ListFilter struct {
	// Prefix matches names starting with the given text
	Prefix string
	Limit  uint64
	Offset uint64
}

// listQuery reads rows without locking them; values may advance right after.
func listQuery(mapping sequence.TableMapping, filter ListFilter) (string, []any, error) {
	m := mapping.WithDefaults()
	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			quote(m.NameColumn)+" AS name",
			quote(m.CurrentValueColumn)+" AS current_value",
			quote(m.CreatedAtColumn)+" AS created_at",
			quote(m.LastModifiedAtColumn)+" AS last_modified_at",
		).
		From(quote(m.Table)).
		OrderBy(quote(m.NameColumn))

	if filter.Prefix != "" {
		q = q.Where(squirrel.Like{quote(m.NameColumn): escapeLike(filter.Prefix) + "%"})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	return q.ToSql()
}

// List returns stored sequences ordered by name.
func List(ctx context.Context, q pgxscan.Querier, mapping sequence.TableMapping, filter ListFilter) ([]StoredSequence, error) {
	if err := mapping.WithDefaults().Validate(); err != nil {
		return nil, err
	}

	sql, args, err := listQuery(mapping, filter)
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	var rows []StoredSequence
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, postgres.TranslateError(mapping.WithDefaults().Table, "list", err)
	}
	return rows, nil
}

// Get returns one stored sequence without locking it.
func Get(ctx context.Context, q pgxscan.Querier, mapping sequence.TableMapping, name string) (*StoredSequence, error) {
	m := mapping.WithDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(
			quote(m.NameColumn)+" AS name",
			quote(m.CurrentValueColumn)+" AS current_value",
			quote(m.CreatedAtColumn)+" AS created_at",
			quote(m.LastModifiedAtColumn)+" AS last_modified_at",
		).
		From(quote(m.Table)).
		Where(squirrel.Eq{quote(m.NameColumn): name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}

	var row StoredSequence
	if err := pgxscan.Get(ctx, q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, postgres.TranslateError(name, "get", err)
	}
	return &row, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// Reader lists sequences of one mapped table outside any transaction.
type Reader struct {
	q pgxscan.Querier
}

// NewReader creates a reader over q, typically the connection pool.
func NewReader(q pgxscan.Querier) *Reader {
	return &Reader{q: q}
}

// List implements listing for the HTTP and CLI surfaces.
func (r *Reader) List(ctx context.Context, mapping sequence.TableMapping, filter ListFilter) ([]StoredSequence, error) {
	return List(ctx, r.q, mapping, filter)
}

// Get returns one stored sequence or nil when absent.
func (r *Reader) Get(ctx context.Context, mapping sequence.TableMapping, name string) (*StoredSequence, error) {
	return Get(ctx, r.q, mapping, name)
}
