package dto

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"seqstore/internal/core/sequence"
	"seqstore/internal/infrastructure/storage/postgres/sequence_repo"
)

var registerOnce sync.Once

// RegisterValidations installs the custom tags used by sequence DTOs
// on gin's validator engine. Safe to call more than once.
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("sql_identifier", func(fl validator.FieldLevel) bool {
			return sequence.IsIdentifier(fl.Field().String())
		})
	})
}

// TableMappingRequest overrides physical table and column names.
type TableMappingRequest struct {
	Table                string `json:"table" binding:"omitempty,sql_identifier"`
	NameColumn           string `json:"name_column" binding:"omitempty,sql_identifier"`
	CurrentValueColumn   string `json:"current_value_column" binding:"omitempty,sql_identifier"`
	CreatedAtColumn      string `json:"created_at_column" binding:"omitempty,sql_identifier"`
	LastModifiedAtColumn string `json:"last_modified_at_column" binding:"omitempty,sql_identifier"`
}

// ToMapping overlays the request on defaults; empty fields keep the default.
func (r *TableMappingRequest) ToMapping(defaults sequence.TableMapping) sequence.TableMapping {
	m := defaults.WithDefaults()
	if r == nil {
		return m
	}
	if r.Table != "" {
		m.Table = r.Table
	}
	if r.NameColumn != "" {
		m.NameColumn = r.NameColumn
	}
	if r.CurrentValueColumn != "" {
		m.CurrentValueColumn = r.CurrentValueColumn
	}
	if r.CreatedAtColumn != "" {
		m.CreatedAtColumn = r.CreatedAtColumn
	}
	if r.LastModifiedAtColumn != "" {
		m.LastModifiedAtColumn = r.LastModifiedAtColumn
	}
	return m
}

// NextValueRequest describes the sequence to advance.
// Omitted numeric fields take the defaults of sequence.DefaultConfig.
// Range rules are checked by the sequence package so they surface as
// SEQUENCE_CONFIGURATION errors.
type NextValueRequest struct {
	Name           string               `json:"name" binding:"required,max=100"`
	InitialValue   *int64               `json:"initial_value"`
	MaxValue       *int64               `json:"max_value"`
	IncrementValue *int64               `json:"increment_value"`
	Descending     bool                 `json:"descending"`
	Cycle          bool                 `json:"cycle"`
	Table          *TableMappingRequest `json:"table"`
}

// ToConfig converts the request into a sequence configuration stored
// according to defaults unless the request names its own table or columns.
func (r NextValueRequest) ToConfig(defaults sequence.TableMapping) sequence.Config {
	cfg := sequence.DefaultConfig(r.Name)
	if r.InitialValue != nil {
		cfg.InitialValue = *r.InitialValue
	}
	if r.MaxValue != nil {
		cfg.MaxValue = *r.MaxValue
	}
	if r.IncrementValue != nil {
		cfg.IncrementValue = *r.IncrementValue
	}
	cfg.Descending = r.Descending
	cfg.Cycle = r.Cycle
	cfg.Table = r.Table.ToMapping(defaults)
	return cfg
}

// NextValueResponse carries an issued value.
type NextValueResponse struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// ListSequencesRequest filters stored sequences.
type ListSequencesRequest struct {
	PaginationRequest
	Prefix string `form:"prefix" binding:"omitempty,max=100"`
	Table  string `form:"table" binding:"omitempty,sql_identifier"`
}

// SequenceResponse is one stored sequence row.
type SequenceResponse struct {
	Name           string     `json:"name"`
	CurrentValue   int64      `json:"current_value"`
	CreatedAt      time.Time  `json:"created_at"`
	LastModifiedAt *time.Time `json:"last_modified_at,omitempty"`
}

// FromStoredSequence creates SequenceResponse from a stored row.
func FromStoredSequence(s sequence_repo.StoredSequence) SequenceResponse {
	return SequenceResponse{
		Name:           s.Name,
		CurrentValue:   s.CurrentValue,
		CreatedAt:      s.CreatedAt,
		LastModifiedAt: s.LastModifiedAt,
	}
}
