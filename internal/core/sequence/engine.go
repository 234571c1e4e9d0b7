package sequence

import (
	"context"

	"seqstore/internal/core/apperror"
	"seqstore/pkg/logger"
)

// Engine issues values for one sequence by running load, compute and persist
// inside the caller's transaction.
type Engine struct {
	strategy *Strategy
	store    Store
}

// Ensure compile-time interface compliance.
var _ Generator = (*Engine)(nil)

// NewEngine validates cfg and binds it to store.
func NewEngine(cfg Config, store Store) (*Engine, error) {
	if store == nil {
		return nil, apperror.NewConfiguration("store cannot be nil")
	}

	strategy, err := NewStrategy(cfg)
	if err != nil {
		return nil, err
	}

	return &Engine{strategy: strategy, store: store}, nil
}

// Config returns the validated configuration.
func (e *Engine) Config() Config {
	return e.strategy.Config()
}

// EventTypes implements Generator.
func (e *Engine) EventTypes() []EventType {
	return []EventType{EventInsert}
}

// NextValue implements Generator.
func (e *Engine) NextValue(ctx context.Context, event EventType) (int64, error) {
	name := e.strategy.Config().Name

	if event != EventInsert {
		logger.Error(ctx, "identifier generator only supports insert", "name", name, "event", event.String())
		return 0, apperror.NewUnsupportedLifecycle(name, event)
	}

	logger.Debug(ctx, "generating identifier", "name", name)

	current, err := e.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	if current == nil {
		state := e.strategy.InitialState(ctx)
		if err := e.store.Insert(ctx, state); err != nil {
			return 0, err
		}
		logger.Debug(ctx, "initialized identifier", "name", name, "value", state.CurrentValue)
		return state.CurrentValue, nil
	}

	state, err := e.strategy.NextState(ctx, current)
	if err != nil {
		return 0, err
	}
	if err := e.store.Update(ctx, state); err != nil {
		return 0, err
	}

	logger.Debug(ctx, "generated identifier", "name", name, "value", state.CurrentValue)
	return state.CurrentValue, nil
}
