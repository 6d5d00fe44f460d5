// Package retrieval answers similarity queries over ingested chunks, scoped
// to an explicit set of documents. An empty scope means "no access", never
// "everything".
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/pkg/embedding"
	"github.com/paperlens/core/internal/pkg/vectorstore"
)

// Query describes one retrieval request.
type Query struct {
	Text          string
	AllowedDocIDs []string
	Modality      models.Modality
	TopK          int
}

// Retriever embeds queries and searches the vector store.
type Retriever struct {
	store    vectorstore.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

func NewRetriever(store vectorstore.Store, embedder embedding.Embedder, logger *zap.Logger) *Retriever {
	return &Retriever{store: store, embedder: embedder, logger: logger}
}

// Retrieve returns up to TopK chunks nearest to the query text, restricted
// to the allowed documents and modality. An empty document scope returns an
// empty result without touching the store. Store and embedding failures
// degrade to an empty result with degraded=true: answering without sources
// beats failing the whole request, but callers must be able to tell a dead
// store from a genuinely empty result.
func (r *Retriever) Retrieve(ctx context.Context, q Query) (chunks []models.RankedChunk, degraded bool) {
	if len(q.AllowedDocIDs) == 0 {
		return nil, false
	}
	if q.TopK <= 0 {
		return nil, false
	}

	vector, err := r.embedder.EmbedQuery(ctx, q.Text)
	if err != nil {
		r.logger.Error("query embedding failed, degrading to empty retrieval",
			zap.String("modality", string(q.Modality)),
			zap.Error(err))
		return nil, true
	}

	matches, err := r.store.Query(ctx, vector, q.TopK, scopeFilter(q))
	if err != nil {
		r.logger.Error("vector store query failed, degrading to empty retrieval",
			zap.String("modality", string(q.Modality)),
			zap.Int("doc_count", len(q.AllowedDocIDs)),
			zap.Error(err))
		return nil, true
	}

	chunks = make([]models.RankedChunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, models.RankedChunk{
			Chunk: models.Chunk{
				ID:        m.ID,
				Text:      m.Text,
				Embedding: m.Embedding,
				Meta:      m.Meta,
			},
			Distance: m.Distance,
		})
	}
	return chunks, false
}

// AllChunks returns every chunk of one document in ingestion order. Unlike
// Retrieve this propagates errors: callers need to distinguish "document is
// empty" from "store is down".
func (r *Retriever) AllChunks(ctx context.Context, docID string, modality models.Modality) ([]models.Chunk, error) {
	filter := vectorstore.Filter(vectorstore.Equals{Field: vectorstore.FieldDocID, Value: docID})
	if modality != "" {
		filter = vectorstore.And{Filters: []vectorstore.Filter{
			filter,
			vectorstore.Equals{Field: vectorstore.FieldModality, Value: string(modality)},
		}}
	}
	records, err := r.store.Get(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load chunks for %s: %w", docID, err)
	}

	chunks := make([]models.Chunk, 0, len(records))
	for _, rec := range records {
		chunks = append(chunks, models.Chunk{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: rec.Embedding,
			Meta:      rec.Meta,
		})
	}
	return chunks, nil
}

func scopeFilter(q Query) vectorstore.Filter {
	filters := []vectorstore.Filter{
		vectorstore.In{Field: vectorstore.FieldDocID, Values: q.AllowedDocIDs},
	}
	if q.Modality != "" {
		filters = append(filters, vectorstore.Equals{
			Field: vectorstore.FieldModality,
			Value: string(q.Modality),
		})
	}
	if len(filters) == 1 {
		return filters[0]
	}
	return vectorstore.And{Filters: filters}
}
