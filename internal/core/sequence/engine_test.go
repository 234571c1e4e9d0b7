package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqstore/internal/core/apperror"
)

type failingStore struct {
	loadErr error
	state   *State
}

func (f *failingStore) Load(ctx context.Context) (*State, error) { return f.state, f.loadErr }
func (f *failingStore) Insert(ctx context.Context, state State) error {
	return errors.New("insert should not be called")
}
func (f *failingStore) Update(ctx context.Context, state State) error {
	return errors.New("update should not be called")
}

func drain(t *testing.T, e *Engine, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	values := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		v, err := e.NextValue(ctx, EventInsert)
		require.NoError(t, err)
		values = append(values, v)
	}
	return values
}

func TestNewEngine_RejectsInvalidInput(t *testing.T) {
	_, err := NewEngine(testConfig(false, false), nil)
	assert.True(t, apperror.IsConfiguration(err))

	cfg := testConfig(false, false)
	cfg.IncrementValue = 0
	_, err = NewEngine(cfg, NewMemoryStore(cfg.Name))
	assert.True(t, apperror.IsConfiguration(err))
}

func TestEngine_AscendingNonCycling(t *testing.T) {
	e, err := NewEngine(testConfig(false, false), NewMemoryStore("test"))
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 15, 20}, drain(t, e, 3))

	_, err = e.NextValue(context.Background(), EventInsert)
	assert.True(t, apperror.IsSequenceExhausted(err))
}

func TestEngine_AscendingCycling(t *testing.T) {
	e, err := NewEngine(testConfig(false, true), NewMemoryStore("test"))
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 15, 20, 10, 15}, drain(t, e, 5))
}

func TestEngine_DescendingNonCycling(t *testing.T) {
	e, err := NewEngine(testConfig(true, false), NewMemoryStore("test"))
	require.NoError(t, err)

	assert.Equal(t, []int64{20, 15, 10}, drain(t, e, 3))

	_, err = e.NextValue(context.Background(), EventInsert)
	assert.True(t, apperror.IsSequenceExhausted(err))
}

func TestEngine_DescendingCycling(t *testing.T) {
	e, err := NewEngine(testConfig(true, true), NewMemoryStore("test"))
	require.NoError(t, err)

	assert.Equal(t, []int64{20, 15, 10, 20}, drain(t, e, 4))
}

func TestEngine_InsertThenUpdate(t *testing.T) {
	store := NewMemoryStore("test")
	e, err := NewEngine(testConfig(false, false), store)
	require.NoError(t, err)

	drain(t, e, 3)

	assert.Equal(t, 3, store.Calls["load"])
	assert.Equal(t, 1, store.Calls["insert"])
	assert.Equal(t, 2, store.Calls["update"])
}

func TestEngine_RejectsNonInsertEvent(t *testing.T) {
	store := NewMemoryStore("test")
	e, err := NewEngine(testConfig(false, false), store)
	require.NoError(t, err)

	_, err = e.NextValue(context.Background(), EventUpdate)
	assert.True(t, apperror.IsUnsupportedLifecycle(err))
	assert.Zero(t, store.Calls["load"], "no I/O before lifecycle check")
	assert.Equal(t, []EventType{EventInsert}, e.EventTypes())
}

func TestEngine_PropagatesLoadError(t *testing.T) {
	e, err := NewEngine(testConfig(false, false), &failingStore{loadErr: apperror.NewLockTimeout("test")})
	require.NoError(t, err)

	_, err = e.NextValue(context.Background(), EventInsert)
	assert.True(t, apperror.IsLockTimeout(err))
}

func TestEngine_ExhaustionSkipsUpdate(t *testing.T) {
	e, err := NewEngine(testConfig(false, false), &failingStore{state: &State{CurrentValue: 20}})
	require.NoError(t, err)

	_, err = e.NextValue(context.Background(), EventInsert)
	assert.True(t, apperror.IsSequenceExhausted(err))
}

func TestMemoryStore_DoubleInsertConflicts(t *testing.T) {
	store := NewMemoryStore("test")
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, State{CurrentValue: 1}))
	err := store.Insert(ctx, State{CurrentValue: 1})
	assert.True(t, apperror.IsPersistenceConflict(err))
}

func TestMockGenerator_Defaults(t *testing.T) {
	var g Generator = &MockGenerator{}
	v, err := g.NextValue(context.Background(), EventInsert)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}
