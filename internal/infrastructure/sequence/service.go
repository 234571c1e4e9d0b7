// Package sequence provides the transactional entry point for issuing
// sequence values backed by PostgreSQL.
// This is the infrastructure layer - it drives core/sequence.Engine.
package sequence

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"seqstore/internal/core/apperror"
	coresequence "seqstore/internal/core/sequence"
	"seqstore/internal/core/tx"
	"seqstore/internal/infrastructure/storage/postgres/sequence_repo"
	"seqstore/pkg/logger"
)

var tracer = otel.Tracer("seqstore/sequence")

// StoreFactory builds the Store for one sequence.
type StoreFactory func(name string, mapping coresequence.TableMapping) coresequence.Store

// PostgresStores binds sequences to rows of a PostgreSQL table.
func PostgresStores(name string, mapping coresequence.TableMapping) coresequence.Store {
	return sequence_repo.NewStateRepo(name, mapping)
}

// DefaultEngineCacheSize bounds the number of configurations kept in memory.
const DefaultEngineCacheSize = 1024

// Option configures a Service.
type Option func(*Service)

// WithEngineCacheSize sets how many validated configurations are kept.
// Values below 1 fall back to DefaultEngineCacheSize.
func WithEngineCacheSize(size int) Option {
	return func(s *Service) {
		s.cacheSize = size
	}
}

// Service issues values for any configured sequence.
// Only validated configurations are cached, least recently used first out;
// sequence state is always read from the database under a row lock.
type Service struct {
	txManager tx.Manager
	stores    StoreFactory
	cacheSize int
	engines   *lru.Cache[coresequence.Config, *coresequence.Engine]
}

// New creates a service storing sequences in PostgreSQL.
func New(txManager tx.Manager, opts ...Option) *Service {
	return NewWithStores(txManager, PostgresStores, opts...)
}

// NewWithStores creates a service using a custom store factory.
// Use for testing scenarios.
func NewWithStores(txManager tx.Manager, stores StoreFactory, opts ...Option) *Service {
	s := &Service{
		txManager: txManager,
		stores:    stores,
		cacheSize: DefaultEngineCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize < 1 {
		s.cacheSize = DefaultEngineCacheSize
	}
	// lru.New only fails for non-positive sizes.
	s.engines, _ = lru.New[coresequence.Config, *coresequence.Engine](s.cacheSize)
	return s
}

// Engine returns the engine for cfg, validating cfg on first use.
func (s *Service) Engine(cfg coresequence.Config) (*coresequence.Engine, error) {
	if s == nil {
		return nil, apperror.NewInternal(fmt.Errorf("sequence service is not initialized"))
	}

	key := cfg.Normalize()
	if e, ok := s.engines.Get(key); ok {
		return e, nil
	}

	e, err := coresequence.NewEngine(key, s.stores(key.Name, key.Table))
	if err != nil {
		return nil, err
	}
	// Engines hold no state, so a concurrent duplicate for the same key is harmless.
	s.engines.Add(key, e)
	cachedEngines.Set(float64(s.engines.Len()))
	return e, nil
}

// NextValue issues the next value inside the transaction carried by ctx.
// The row lock is held until that transaction ends, so the value becomes
// visible to others only when the caller commits.
func (s *Service) NextValue(ctx context.Context, cfg coresequence.Config) (int64, error) {
	if s == nil || s.txManager == nil {
		return 0, apperror.NewInternal(fmt.Errorf("sequence service is not initialized"))
	}
	if !s.txManager.InTransaction(ctx) {
		return 0, apperror.NewInternal(fmt.Errorf("next value requires transaction context")).
			WithDetail("name", cfg.Name)
	}
	return s.next(ctx, cfg)
}

// NextValueInTx issues the next value in a transaction of its own and
// commits it before returning.
func (s *Service) NextValueInTx(ctx context.Context, cfg coresequence.Config) (int64, error) {
	if s == nil || s.txManager == nil {
		return 0, apperror.NewInternal(fmt.Errorf("sequence service is not initialized"))
	}

	var value int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		v, err := s.next(ctx, cfg)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Service) next(ctx context.Context, cfg coresequence.Config) (int64, error) {
	ctx, span := tracer.Start(ctx, "sequence.NextValue")
	defer span.End()
	span.SetAttributes(attribute.String("sequence.name", cfg.Name))

	start := time.Now()
	value, err := s.issue(ctx, cfg)
	nextValueDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		code := apperror.CodeOf(err)
		nextValueFailures.WithLabelValues(code).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		logger.Warn(ctx, "next value failed", "name", cfg.Name, "code", code, "error", err)
		return 0, err
	}

	valuesIssued.Inc()
	span.SetAttributes(attribute.Int64("sequence.value", value))
	return value, nil
}

func (s *Service) issue(ctx context.Context, cfg coresequence.Config) (int64, error) {
	e, err := s.Engine(cfg)
	if err != nil {
		return 0, err
	}
	return e.NextValue(ctx, coresequence.EventInsert)
}
