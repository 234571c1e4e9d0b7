package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"seqstore/internal/core/apperror"
	"seqstore/internal/core/sequence"
	"seqstore/internal/infrastructure/http/v1/dto"
	"seqstore/internal/infrastructure/storage/postgres/sequence_repo"
	"seqstore/pkg/logger"
)

// SequenceIssuer issues values in a transaction of its own.
type SequenceIssuer interface {
	NextValueInTx(ctx context.Context, cfg sequence.Config) (int64, error)
}

// SequenceLister reads stored sequence rows.
type SequenceLister interface {
	List(ctx context.Context, mapping sequence.TableMapping, filter sequence_repo.ListFilter) ([]sequence_repo.StoredSequence, error)
	Get(ctx context.Context, mapping sequence.TableMapping, name string) (*sequence_repo.StoredSequence, error)
}

// SequenceHandler handles sequence endpoints.
type SequenceHandler struct {
	*BaseHandler
	issuer SequenceIssuer
	lister SequenceLister
	table  sequence.TableMapping
}

// NewSequenceHandler creates a new sequence handler.
// table is used for requests that do not name their own table; empty
// fields fall back to the package defaults.
func NewSequenceHandler(base *BaseHandler, issuer SequenceIssuer, lister SequenceLister, table sequence.TableMapping) *SequenceHandler {
	return &SequenceHandler{
		BaseHandler: base,
		issuer:      issuer,
		lister:      lister,
		table:       table.WithDefaults(),
	}
}

// mappingFor applies a table override from the query string.
func (h *SequenceHandler) mappingFor(table string) sequence.TableMapping {
	return (&dto.TableMappingRequest{Table: table}).ToMapping(h.table)
}

// Next advances a sequence and returns the issued value.
// POST /api/v1/sequences/next
func (h *SequenceHandler) Next(c *gin.Context) {
	var req dto.NextValueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	value, err := h.issuer.NextValueInTx(ctx, req.ToConfig(h.table))
	if err != nil {
		h.Error(c, err)
		return
	}

	logger.Debug(ctx, "value issued over http", "name", req.Name, "value", value, "client", h.GetSubject(c))
	h.OK(c, dto.NextValueResponse{Name: req.Name, Value: value})
}

// List returns stored sequences ordered by name.
// GET /api/v1/sequences
func (h *SequenceHandler) List(c *gin.Context) {
	var req dto.ListSequencesRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	mapping := h.mappingFor(req.Table)
	items, err := h.lister.List(c.Request.Context(), mapping, sequence_repo.ListFilter{
		Prefix: req.Prefix,
		Limit:  uint64(req.PageSize),
		Offset: uint64(req.Offset()),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.SequenceResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.FromStoredSequence(item))
	}
	h.OK(c, dto.ListResponse{Items: out, Limit: req.PageSize, Offset: req.Offset()})
}

// Get returns one stored sequence.
// GET /api/v1/sequences/:name
func (h *SequenceHandler) Get(c *gin.Context) {
	name := c.Param("name")
	mapping := h.mappingFor(c.Query("table"))

	item, err := h.lister.Get(c.Request.Context(), mapping, name)
	if err != nil {
		h.Error(c, err)
		return
	}
	if item == nil {
		h.Error(c, apperror.NewNotFound("sequence", name))
		return
	}
	h.OK(c, dto.FromStoredSequence(*item))
}
