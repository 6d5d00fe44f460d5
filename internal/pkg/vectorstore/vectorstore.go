package vectorstore

import (
	"context"
	"errors"

	"github.com/paperlens/core/internal/models"
)

// ErrDimensionMismatch is returned when an embedding's length does not match
// the store's provisioned dimensionality.
var ErrDimensionMismatch = errors.New("vectorstore: embedding dimension mismatch")

// Record is one stored vector with its document text and metadata.
type Record struct {
	ID        string
	Embedding []float32
	Text      string
	Meta      models.ChunkMetadata
}

// Match is a query result ordered nearest-first.
type Match struct {
	Record
	Distance float64
}

// Store is the persistence collaborator for chunk vectors. Writes are
// idempotent upserts keyed by deterministic ids.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	// Get returns all records matching the filter, in insertion order.
	Get(ctx context.Context, filter Filter) ([]Record, error)
	// Query returns the topK nearest records to the embedding among those
	// matching the filter.
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	// DeleteWhere removes every record matching the filter.
	DeleteWhere(ctx context.Context, filter Filter) error
}

// Filter is a small tagged union each backend translates into its native
// query syntax. A nil Filter matches everything.
type Filter interface {
	isFilter()
}

// Equals matches records whose metadata field equals the value.
type Equals struct {
	Field string
	Value string
}

// In matches records whose metadata field equals any of the values.
type In struct {
	Field  string
	Values []string
}

// And matches records satisfying every sub-filter.
type And struct {
	Filters []Filter
}

func (Equals) isFilter() {}
func (In) isFilter()     {}
func (And) isFilter()    {}

// FieldDocID and FieldModality are the metadata fields every backend must
// support filtering on.
const (
	FieldDocID    = "doc_id"
	FieldModality = "modality"
)

// fieldValue extracts a filterable field from record metadata.
func fieldValue(meta models.ChunkMetadata, field string) string {
	switch field {
	case FieldDocID:
		return meta.DocID
	case FieldModality:
		return string(meta.Modality)
	default:
		if meta.Additional != nil {
			return meta.Additional[field]
		}
		return ""
	}
}

// Matches evaluates a filter against record metadata. Backends without a
// native filter language (and tests) use this directly.
func Matches(f Filter, meta models.ChunkMetadata) bool {
	switch filter := f.(type) {
	case nil:
		return true
	case Equals:
		return fieldValue(meta, filter.Field) == filter.Value
	case In:
		v := fieldValue(meta, filter.Field)
		for _, candidate := range filter.Values {
			if v == candidate {
				return true
			}
		}
		return false
	case And:
		for _, sub := range filter.Filters {
			if !Matches(sub, meta) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
