package sequence

import (
	"context"
)

// EventType is the lifecycle phase of the record a value is generated for.
type EventType int

const (
	// EventInsert is the phase before a new record is first written.
	EventInsert EventType = iota
	// EventUpdate is the phase before an existing record is rewritten.
	EventUpdate
)

// String implements fmt.Stringer.
func (e EventType) String() string {
	switch e {
	case EventInsert:
		return "INSERT"
	case EventUpdate:
		return "UPDATE"
	default:
		return "UNKNOWN"
	}
}

// Generator produces identifier values.
// This is the domain contract - the persistence framework only sees this interface.
//
// Implementations expect ctx to carry an active transaction; the value is
// only final once that transaction commits.
type Generator interface {
	// NextValue returns the next value of the sequence.
	// Calling it for any event other than EventInsert is a programming error.
	NextValue(ctx context.Context, event EventType) (int64, error)

	// EventTypes lists the lifecycle phases the generator accepts.
	EventTypes() []EventType
}

// Store loads and saves the state row of one named sequence.
// Implementations live in infrastructure layer.
type Store interface {
	// Load returns the current state, or nil if the sequence has no row yet.
	// The row stays locked until the enclosing transaction ends.
	Load(ctx context.Context) (*State, error)

	// Insert creates the row with its first state.
	Insert(ctx context.Context, state State) error

	// Update overwrites the current value of an existing row.
	Update(ctx context.Context, state State) error
}
