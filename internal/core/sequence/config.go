// Package sequence provides domain contracts and the state engine for
// database-backed sequences. Storage implementations live in infrastructure layer.
package sequence

import (
	"fmt"
	"math"
	"regexp"
	"unicode/utf8"

	"seqstore/internal/core/apperror"
)

// Physical schema defaults.
const (
	DefaultTable                = "im_standard_sequence"
	DefaultNameColumn           = "name"
	DefaultCurrentValueColumn   = "current_value"
	DefaultCreatedAtColumn      = "created_at"
	DefaultLastModifiedAtColumn = "last_modified_at"

	// MaxNameLength matches the VARCHAR width of the name column.
	MaxNameLength = 100
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// TableMapping names the table and columns that hold sequence rows.
type TableMapping struct {
	Table                string
	NameColumn           string
	CurrentValueColumn   string
	CreatedAtColumn      string
	LastModifiedAtColumn string
}

// DefaultTableMapping returns the standard table layout.
func DefaultTableMapping() TableMapping {
	return TableMapping{
		Table:                DefaultTable,
		NameColumn:           DefaultNameColumn,
		CurrentValueColumn:   DefaultCurrentValueColumn,
		CreatedAtColumn:      DefaultCreatedAtColumn,
		LastModifiedAtColumn: DefaultLastModifiedAtColumn,
	}
}

// WithDefaults fills empty names with the standard layout.
func (m TableMapping) WithDefaults() TableMapping {
	def := DefaultTableMapping()
	if m.Table == "" {
		m.Table = def.Table
	}
	if m.NameColumn == "" {
		m.NameColumn = def.NameColumn
	}
	if m.CurrentValueColumn == "" {
		m.CurrentValueColumn = def.CurrentValueColumn
	}
	if m.CreatedAtColumn == "" {
		m.CreatedAtColumn = def.CreatedAtColumn
	}
	if m.LastModifiedAtColumn == "" {
		m.LastModifiedAtColumn = def.LastModifiedAtColumn
	}
	return m
}

// IsIdentifier reports whether s can be used as a table or column name.
func IsIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Validate checks that every name is a plain SQL identifier.
func (m TableMapping) Validate() error {
	fields := []struct {
		label, value string
	}{
		{"table", m.Table},
		{"name column", m.NameColumn},
		{"current value column", m.CurrentValueColumn},
		{"created at column", m.CreatedAtColumn},
		{"last modified at column", m.LastModifiedAtColumn},
	}
	for _, f := range fields {
		if !IsIdentifier(f.value) {
			return apperror.NewConfiguration(
				fmt.Sprintf("Invalid sequence configuration. %s %q is not a valid identifier", f.label, f.value)).
				WithDetail("field", f.label)
		}
	}
	return nil
}

// Config describes one named sequence.
// It is validated once when a Strategy or Engine is built and never re-checked.
type Config struct {
	// Name identifies the sequence row
	Name string

	// InitialValue is the lower bound and the first value when ascending
	InitialValue int64

	// MaxValue is the upper bound and the first value when descending
	MaxValue int64

	// IncrementValue is the step between consecutive values, must be positive
	IncrementValue int64

	// Descending counts down from MaxValue toward InitialValue
	Descending bool

	// Cycle restarts at the starting bound instead of failing on exhaustion
	Cycle bool

	// Table maps the sequence onto physical names; empty fields use defaults
	Table TableMapping
}

// DefaultConfig returns an ascending, non-cycling sequence covering [0, MaxInt64].
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		InitialValue:   0,
		MaxValue:       math.MaxInt64,
		IncrementValue: 1,
		Table:          DefaultTableMapping(),
	}
}

// Normalize returns a copy with default table mapping applied.
func (c Config) Normalize() Config {
	c.Table = c.Table.WithDefaults()
	return c
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.Name == "" {
		return apperror.NewConfiguration("Invalid sequence configuration. name must not be empty")
	}

	if utf8.RuneCountInString(c.Name) > MaxNameLength {
		return apperror.NewConfiguration(
			fmt.Sprintf("Invalid sequence configuration. name must be at most %d characters", MaxNameLength)).
			WithDetail("name", c.Name)
	}

	if c.MaxValue <= c.InitialValue {
		return apperror.NewConfiguration(
			fmt.Sprintf("Invalid sequence configuration. maxValue (%d) must be greater than initialValue (%d)",
				c.MaxValue, c.InitialValue)).
			WithDetail("name", c.Name)
	}

	if c.IncrementValue <= 0 {
		return apperror.NewConfiguration(
			fmt.Sprintf("Invalid sequence configuration. incrementValue (%d) must be greater than 0",
				c.IncrementValue)).
			WithDetail("name", c.Name)
	}

	return c.Table.Validate()
}

// State is a snapshot of the last issued value of a sequence.
type State struct {
	CurrentValue int64
}
