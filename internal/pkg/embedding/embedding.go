// Package embedding maps text (and image captions) to fixed-length vectors
// through an OpenAI-compatible embeddings API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	appcfg "github.com/paperlens/core/internal/config"
)

// The embeddings API accepts at most this many inputs per request; larger
// batches are split while preserving order.
const maxBatchSize = 100

// Embedder is the embedding collaborator contract.
type Embedder interface {
	// EmbedTexts returns one vector per input, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single retrieval query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimensions reports the vector length this embedder produces. The
	// vector store collection is keyed by this value.
	Dimensions() int
}

// OpenAIEmbedder talks to the OpenAI embeddings API or any compatible
// endpoint (local embedding servers included).
type OpenAIEmbedder struct {
	client openaiclient.Client
	model  string
	dim    int
}

func NewOpenAIEmbedder(cfg appcfg.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("embedding: api key is empty")
	}
	if cfg.Dimensions < 1 {
		return nil, fmt.Errorf("embedding: invalid dimensions %d", cfg.Dimensions)
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, openaioption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}

	return &OpenAIEmbedder{
		client: openaiclient.NewClient(opts...),
		model:  cfg.Model,
		dim:    cfg.Dimensions,
	}, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dim }

func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := e.client.Embeddings.New(ctx, openaiclient.EmbeddingNewParams{
			Input:      openaiclient.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
			Model:      openaiclient.EmbeddingModel(e.model),
			Dimensions: openaiclient.Int(int64(e.dim)),
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(resp.Data), len(batch))
		}
		for _, item := range resp.Data {
			vectors = append(vectors, toFloat32(item.Embedding))
		}
	}

	return vectors, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
