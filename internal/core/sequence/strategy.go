package sequence

import (
	"context"
	"math"

	"seqstore/internal/core/apperror"
	"seqstore/pkg/logger"
)

// Strategy computes sequence states. It performs no I/O.
type Strategy struct {
	cfg Config
}

// NewStrategy validates cfg and returns a strategy for it.
func NewStrategy(cfg Config) (*Strategy, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Default().WithComponent("sequence.strategy").Debugw("initialized strategy",
		"name", cfg.Name,
		"initial_value", cfg.InitialValue,
		"max_value", cfg.MaxValue,
		"increment_value", cfg.IncrementValue,
		"descending", cfg.Descending,
		"cycle", cfg.Cycle,
	)

	return &Strategy{cfg: cfg}, nil
}

// log resolves the logger per call so trace and client fields of ctx are attached.
func (s *Strategy) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithComponent("sequence.strategy")
}

// Config returns the validated configuration.
func (s *Strategy) Config() Config {
	return s.cfg
}

// InitialState returns MaxValue when descending, InitialValue otherwise.
func (s *Strategy) InitialState(ctx context.Context) State {
	value := s.cfg.InitialValue
	if s.cfg.Descending {
		value = s.cfg.MaxValue
	}
	s.log(ctx).Debugw("creating initial state", "name", s.cfg.Name, "value", value)
	return State{CurrentValue: value}
}

// NextState advances current by one step.
// The bound itself is issuable; exhaustion happens only once a step would cross it.
func (s *Strategy) NextState(ctx context.Context, current *State) (State, error) {
	if current == nil {
		return State{}, apperror.NewConfiguration("current state is required").
			WithDetail("name", s.cfg.Name)
	}

	s.log(ctx).Debugw("calculating next state",
		"name", s.cfg.Name,
		"current_value", current.CurrentValue,
		"descending", s.cfg.Descending,
	)

	if s.cfg.Descending {
		return s.nextDescending(ctx, current.CurrentValue)
	}
	return s.nextAscending(ctx, current.CurrentValue)
}

func (s *Strategy) nextAscending(ctx context.Context, current int64) (State, error) {
	next, ok := addExact(current, s.cfg.IncrementValue)
	if !ok {
		s.log(ctx).Errorw("sequence overflowed", "name", s.cfg.Name, "current_value", current)
		return State{}, apperror.NewSequenceOverflow(s.cfg.Name, current, s.cfg.IncrementValue)
	}

	switch {
	case next <= s.cfg.MaxValue:
		return State{CurrentValue: next}, nil
	case s.cfg.Cycle:
		s.log(ctx).Warnw("ascending sequence reached max value, cycling",
			"name", s.cfg.Name,
			"max_value", s.cfg.MaxValue,
			"current_value", current,
			"initial_value", s.cfg.InitialValue,
		)
		return s.InitialState(ctx), nil
	default:
		s.log(ctx).Errorw("sequence exhausted",
			"name", s.cfg.Name,
			"next_value", next,
			"max_value", s.cfg.MaxValue,
		)
		return State{}, apperror.NewSequenceExhausted(s.cfg.Name, next, s.cfg.MaxValue)
	}
}

func (s *Strategy) nextDescending(ctx context.Context, current int64) (State, error) {
	next, ok := subtractExact(current, s.cfg.IncrementValue)
	if !ok {
		s.log(ctx).Errorw("sequence overflowed", "name", s.cfg.Name, "current_value", current)
		return State{}, apperror.NewSequenceOverflow(s.cfg.Name, current, s.cfg.IncrementValue)
	}

	switch {
	case next >= s.cfg.InitialValue:
		return State{CurrentValue: next}, nil
	case s.cfg.Cycle:
		s.log(ctx).Warnw("descending sequence reached initial value, cycling",
			"name", s.cfg.Name,
			"initial_value", s.cfg.InitialValue,
			"current_value", current,
			"max_value", s.cfg.MaxValue,
		)
		return s.InitialState(ctx), nil
	default:
		s.log(ctx).Errorw("sequence exhausted",
			"name", s.cfg.Name,
			"next_value", next,
			"initial_value", s.cfg.InitialValue,
		)
		return State{}, apperror.NewSequenceExhausted(s.cfg.Name, next, s.cfg.InitialValue)
	}
}

// addExact reports false when a+b overflows int64. b must be positive.
func addExact(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// subtractExact reports false when a-b overflows int64. b must be positive.
func subtractExact(a, b int64) (int64, bool) {
	if a < math.MinInt64+b {
		return 0, false
	}
	return a - b, true
}
