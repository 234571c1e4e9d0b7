package sequence_repo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqstore/internal/core/apperror"
	"seqstore/internal/core/sequence"
	"seqstore/internal/infrastructure/storage/postgres"
)

// Mock objects

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = m.val
	}
	return nil
}

// fakeTx simulates a sequence table keyed by name.
// Only Exec and QueryRow are implemented; other pgx.Tx methods panic.
type fakeTx struct {
	pgx.Tx

	mu      sync.Mutex
	rows    map[string]int64
	loadErr error
	sqls    []string
}

func newFakeTx() *fakeTx {
	return &fakeTx{rows: make(map[string]int64)}
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sqls = append(f.sqls, sql)

	if f.loadErr != nil {
		return &mockRow{err: f.loadErr}
	}
	v, ok := f.rows[args[0].(string)]
	if !ok {
		return &mockRow{err: pgx.ErrNoRows}
	}
	return &mockRow{val: v}
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sqls = append(f.sqls, sql)

	switch {
	case strings.HasPrefix(sql, "INSERT"):
		name := args[0].(string)
		if _, exists := f.rows[name]; exists {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: postgres.SQLStateUniqueViolation}
		}
		f.rows[name] = args[1].(int64)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "UPDATE"):
		name := args[2].(string)
		if _, exists := f.rows[name]; !exists {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		f.rows[name] = args[0].(int64)
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected statement: " + sql)
}

func txContext(tx pgx.Tx) context.Context {
	return postgres.ContextWithTx(context.Background(), tx)
}

func TestStateRepo_LoadSQL(t *testing.T) {
	repo := NewStateRepo("orders", sequence.DefaultTableMapping())

	sql, args, err := repo.loadQuery()
	require.NoError(t, err)

	assert.Equal(t, `SELECT "current_value" FROM "im_standard_sequence" WHERE "name" = $1 FOR UPDATE`, sql)
	assert.Equal(t, []any{"orders"}, args)
}

func TestStateRepo_InsertSQL(t *testing.T) {
	repo := NewStateRepo("orders", sequence.TableMapping{Table: "seq", CreatedAtColumn: "born"})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	sql, args, err := repo.insertQuery(sequence.State{CurrentValue: 10})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "seq" ("name","current_value","born") VALUES ($1,$2,$3)`, sql)
	assert.Equal(t, []any{"orders", int64(10), fixed}, args)
}

func TestStateRepo_UpdateSQL(t *testing.T) {
	repo := NewStateRepo("orders", sequence.DefaultTableMapping())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	sql, args, err := repo.updateQuery(sequence.State{CurrentValue: 15})
	require.NoError(t, err)

	assert.Equal(t, `UPDATE "im_standard_sequence" SET "current_value" = $1, "last_modified_at" = $2 WHERE "name" = $3`, sql)
	assert.Equal(t, []any{int64(15), fixed, "orders"}, args)
}

func TestStateRepo_RequiresTransaction(t *testing.T) {
	repo := NewStateRepo("orders", sequence.DefaultTableMapping())
	ctx := context.Background()

	_, err := repo.Load(ctx)
	assert.Error(t, err)
	assert.Error(t, repo.Insert(ctx, sequence.State{CurrentValue: 1}))
	assert.Error(t, repo.Update(ctx, sequence.State{CurrentValue: 2}))
}

func TestStateRepo_LoadAbsentThenInsert(t *testing.T) {
	tx := newFakeTx()
	ctx := txContext(tx)
	repo := NewStateRepo("orders", sequence.DefaultTableMapping())

	state, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, repo.Insert(ctx, sequence.State{CurrentValue: 10}))

	state, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, int64(10), state.CurrentValue)
}

func TestStateRepo_LoadIsIdempotent(t *testing.T) {
	tx := newFakeTx()
	tx.rows["orders"] = 42
	ctx := txContext(tx)
	repo := NewStateRepo("orders", sequence.DefaultTableMapping())

	first, err := repo.Load(ctx)
	require.NoError(t, err)
	second, err := repo.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStateRepo_DoubleInsertConflicts(t *testing.T) {
	tx := newFakeTx()
	ctx := txContext(tx)
	repo := NewStateRepo("orders", sequence.DefaultTableMapping())

	require.NoError(t, repo.Insert(ctx, sequence.State{CurrentValue: 10}))

	err := repo.Insert(ctx, sequence.State{CurrentValue: 10})
	assert.True(t, apperror.IsPersistenceConflict(err), "got %v", err)
	assert.True(t, postgres.IsUniqueViolation(err))
}

func TestStateRepo_UpdateMissingRowConflicts(t *testing.T) {
	tx := newFakeTx()
	ctx := txContext(tx)
	repo := NewStateRepo("orders", sequence.DefaultTableMapping())

	err := repo.Update(ctx, sequence.State{CurrentValue: 15})
	assert.True(t, apperror.IsPersistenceConflict(err))
}

func TestStateRepo_LockTimeout(t *testing.T) {
	tx := newFakeTx()
	tx.loadErr = &pgconn.PgError{Code: postgres.SQLStateLockNotAvailable, Message: "canceling statement due to lock timeout"}
	ctx := txContext(tx)
	repo := NewStateRepo("orders", sequence.DefaultTableMapping())

	_, err := repo.Load(ctx)
	assert.True(t, apperror.IsLockTimeout(err))
	assert.True(t, apperror.IsRetryable(err))
}

func TestStateRepo_EngineWalkthrough(t *testing.T) {
	tx := newFakeTx()
	ctx := txContext(tx)

	cfg := sequence.DefaultConfig("example")
	cfg.InitialValue = 10
	cfg.MaxValue = 20
	cfg.IncrementValue = 5

	engine, err := sequence.NewEngine(cfg, NewStateRepo(cfg.Name, cfg.Table))
	require.NoError(t, err)

	var got []int64
	for i := 0; i < 3; i++ {
		v, err := engine.NextValue(ctx, sequence.EventInsert)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int64{10, 15, 20}, got)

	_, err = engine.NextValue(ctx, sequence.EventInsert)
	assert.True(t, apperror.IsSequenceExhausted(err))
	assert.Equal(t, int64(20), tx.rows["example"], "exhaustion leaves the row untouched")
}
