package sequence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqstore/internal/core/apperror"
	coresequence "seqstore/internal/core/sequence"
)

type txKey struct{}

// lockingTxManager serializes transactions the way a row lock on a single
// sequence would.
type lockingTxManager struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (m *lockingTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.InTransaction(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

func (m *lockingTxManager) InTransaction(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

type memoryStores struct {
	mu     sync.Mutex
	stores map[string]*coresequence.MemoryStore
	built  int
}

func newMemoryStores() *memoryStores {
	return &memoryStores{stores: make(map[string]*coresequence.MemoryStore)}
}

func (f *memoryStores) factory(name string, mapping coresequence.TableMapping) coresequence.Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built++
	key := mapping.Table + "/" + name
	if s, ok := f.stores[key]; ok {
		return s
	}
	s := coresequence.NewMemoryStore(name)
	f.stores[key] = s
	return s
}

func exampleConfig() coresequence.Config {
	cfg := coresequence.DefaultConfig("example")
	cfg.InitialValue = 10
	cfg.MaxValue = 20
	cfg.IncrementValue = 5
	return cfg
}

func TestService_NextValueInTx(t *testing.T) {
	txm := &lockingTxManager{}
	svc := NewWithStores(txm, newMemoryStores().factory)
	ctx := context.Background()

	var got []int64
	for i := 0; i < 3; i++ {
		v, err := svc.NextValueInTx(ctx, exampleConfig())
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int64{10, 15, 20}, got)

	_, err := svc.NextValueInTx(ctx, exampleConfig())
	assert.True(t, apperror.IsSequenceExhausted(err))
	assert.Equal(t, 3, txm.commits)
	assert.Equal(t, 1, txm.rollbacks)
}

func TestService_NextValueRequiresTransaction(t *testing.T) {
	svc := NewWithStores(&lockingTxManager{}, newMemoryStores().factory)

	_, err := svc.NextValue(context.Background(), exampleConfig())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInternal, apperror.CodeOf(err))
}

func TestService_NextValueJoinsCallerTransaction(t *testing.T) {
	txm := &lockingTxManager{}
	svc := NewWithStores(txm, newMemoryStores().factory)

	var values []int64
	err := txm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		for i := 0; i < 2; i++ {
			v, err := svc.NextValue(ctx, exampleConfig())
			if err != nil {
				return err
			}
			values = append(values, v)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 15}, values)
	assert.Equal(t, 1, txm.commits)
}

func TestService_CachesEnginesPerConfig(t *testing.T) {
	stores := newMemoryStores()
	svc := NewWithStores(&lockingTxManager{}, stores.factory)

	a, err := svc.Engine(exampleConfig())
	require.NoError(t, err)
	b, err := svc.Engine(exampleConfig())
	require.NoError(t, err)
	assert.Same(t, a, b)

	explicit := exampleConfig()
	explicit.Table = coresequence.DefaultTableMapping()
	c, err := svc.Engine(explicit)
	require.NoError(t, err)
	assert.Same(t, a, c, "default mapping normalizes to the same key")

	other := exampleConfig()
	other.Cycle = true
	d, err := svc.Engine(other)
	require.NoError(t, err)
	assert.NotSame(t, a, d)
	assert.Equal(t, 2, stores.built)
}

func TestService_InvalidConfigIsNotCached(t *testing.T) {
	stores := newMemoryStores()
	svc := NewWithStores(&lockingTxManager{}, stores.factory)

	bad := exampleConfig()
	bad.MaxValue = bad.InitialValue

	_, err := svc.NextValueInTx(context.Background(), bad)
	assert.True(t, apperror.IsConfiguration(err))
	assert.Zero(t, svc.engines.Len())
}

func TestService_EngineCacheIsBounded(t *testing.T) {
	stores := newMemoryStores()
	svc := NewWithStores(&lockingTxManager{}, stores.factory, WithEngineCacheSize(2))
	ctx := context.Background()

	first, err := svc.Engine(exampleConfig())
	require.NoError(t, err)
	v, err := svc.NextValueInTx(ctx, exampleConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)

	for i := 0; i < 100; i++ {
		cfg := exampleConfig()
		cfg.Name = fmt.Sprintf("tenant_%d", i)
		_, err := svc.NextValueInTx(ctx, cfg)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, svc.engines.Len())

	again, err := svc.Engine(exampleConfig())
	require.NoError(t, err)
	assert.NotSame(t, first, again, "evicted configuration is rebuilt")

	// Eviction drops the engine, not the stored state.
	v, err = svc.NextValueInTx(ctx, exampleConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(15), v)
}

func TestService_MetricsDoNotLabelBySequenceName(t *testing.T) {
	svc := NewWithStores(&lockingTxManager{}, newMemoryStores().factory)
	before := testutil.ToFloat64(valuesIssued)

	for i := 0; i < 5; i++ {
		cfg := exampleConfig()
		cfg.Name = fmt.Sprintf("client_supplied_%d", i)
		_, err := svc.NextValueInTx(context.Background(), cfg)
		require.NoError(t, err)
	}

	assert.Equal(t, before+5, testutil.ToFloat64(valuesIssued))
	assert.Equal(t, 1, testutil.CollectAndCount(nextValueDuration))
}

func TestWithEngineCacheSize_FallsBackToDefault(t *testing.T) {
	svc := NewWithStores(&lockingTxManager{}, newMemoryStores().factory, WithEngineCacheSize(0))
	assert.Equal(t, DefaultEngineCacheSize, svc.cacheSize)
}

func TestService_StatePersistsAcrossInstances(t *testing.T) {
	stores := newMemoryStores()
	ctx := context.Background()

	first := NewWithStores(&lockingTxManager{}, stores.factory)
	v, err := first.NextValueInTx(ctx, exampleConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)

	// A fresh service starts from the stored row, not from memory.
	second := NewWithStores(&lockingTxManager{}, stores.factory)
	v, err = second.NextValueInTx(ctx, exampleConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(15), v)
}

func TestService_ConcurrentCallersGetDistinctValues(t *testing.T) {
	svc := NewWithStores(&lockingTxManager{}, newMemoryStores().factory)
	cfg := coresequence.DefaultConfig("orders")
	cfg.InitialValue = 1

	const workers = 50
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values []int64
		errs   []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.NextValueInTx(context.Background(), cfg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			values = append(values, v)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		assert.Equal(t, int64(i+1), v)
	}
}

func TestService_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewWithStores(&lockingTxManager{}, func(name string, mapping coresequence.TableMapping) coresequence.Store {
		return failingStore{err: boom}
	})

	_, err := svc.NextValueInTx(context.Background(), exampleConfig())
	assert.ErrorIs(t, err, boom)
}

func TestService_Nil(t *testing.T) {
	var svc *Service
	_, err := svc.NextValueInTx(context.Background(), exampleConfig())
	assert.Error(t, err)
}

type failingStore struct {
	err error
}

func (f failingStore) Load(ctx context.Context) (*coresequence.State, error) { return nil, f.err }
func (f failingStore) Insert(ctx context.Context, state coresequence.State) error {
	return f.err
}
func (f failingStore) Update(ctx context.Context, state coresequence.State) error {
	return f.err
}
