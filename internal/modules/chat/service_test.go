package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/modules/citation"
	"github.com/paperlens/core/internal/modules/retrieval"
	"github.com/paperlens/core/internal/pkg/vectorstore"
)

type unitEmbedder struct{}

func (unitEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (unitEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (unitEmbedder) Dimensions() int { return 3 }

func intPtr(v int) *int { return &v }

func seededService(t *testing.T) *Service {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	err := store.Upsert(context.Background(), []vectorstore.Record{
		{
			ID:        "paper::chunk::0000",
			Embedding: []float32{1, 0, 0},
			Text:      "Attention layers dominate runtime.",
			Meta: models.ChunkMetadata{
				DocID:       "paper",
				Title:       "Paper One",
				Modality:    models.ModalityText,
				HeadingPath: models.StringArray{"4 Results"},
				ChunkIndex:  0,
				Page:        intPtr(6),
			},
		},
		{
			ID:        "paper::image::0001",
			Embedding: []float32{0.9, 0.1, 0},
			Meta: models.ChunkMetadata{
				DocID:         "paper",
				Title:         "Paper One",
				Modality:      models.ModalityImage,
				Caption:       "Runtime breakdown by layer",
				Page:          intPtr(6),
				PictureNumber: 1,
				ImageData:     "iVBORw0KGgo=",
			},
		},
	})
	require.NoError(t, err)

	retriever := retrieval.NewRetriever(store, unitEmbedder{}, zap.NewNop())
	return &Service{retriever: retriever, logger: zap.NewNop()}
}

func TestBuildGroundingRegistersTextBeforeImages(t *testing.T) {
	svc := seededService(t)
	registry := citation.NewRegistry()

	grounding := svc.buildGrounding(context.Background(), AskInput{
		Prompt:    "runtime",
		DocIDs:    []string{"paper"},
		TextTopK:  4,
		ImageTopK: 2,
	}, registry)

	entries := registry.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "text:paper:chunk0:p6", entries[0].Key)
	assert.Equal(t, 1, entries[0].Number)
	assert.Equal(t, "image:paper:p6:pic1", entries[1].Key)
	assert.Equal(t, 2, entries[1].Number)

	assert.Contains(t, grounding, "[Source 1] Title: Paper One")
	assert.Contains(t, grounding, "[Source 2] Title: Paper One")
	assert.Less(t, strings.Index(grounding, "## TEXT RESULTS"), strings.Index(grounding, "## IMAGE RESULTS"))
}

func TestBuildGroundingEmptyScopeDegradesUncited(t *testing.T) {
	svc := seededService(t)
	registry := citation.NewRegistry()

	grounding := svc.buildGrounding(context.Background(), AskInput{
		Prompt:   "runtime",
		TextTopK: 4,
	}, registry)

	assert.Contains(t, grounding, noTextResults)
	assert.Contains(t, grounding, noImageResults)
	assert.Zero(t, registry.Len())
}

type downStore struct {
	vectorstore.Store
}

func (downStore) Query(ctx context.Context, embedding []float32, topK int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	return nil, errors.New("connection refused")
}

func TestBuildGroundingReportsSearchOutage(t *testing.T) {
	retriever := retrieval.NewRetriever(downStore{}, unitEmbedder{}, zap.NewNop())
	svc := &Service{retriever: retriever, logger: zap.NewNop()}
	registry := citation.NewRegistry()

	grounding := svc.buildGrounding(context.Background(), AskInput{
		Prompt:    "runtime",
		DocIDs:    []string{"paper"},
		TextTopK:  4,
		ImageTopK: 2,
	}, registry)

	assert.Contains(t, grounding, textSearchUnavailable)
	assert.Contains(t, grounding, imageSearchUnavailable)
	assert.NotContains(t, grounding, "No relevant text found")
	assert.Zero(t, registry.Len())
}

func TestReplayCitationsRestoresNumbering(t *testing.T) {
	svc := seededService(t)
	registry := citation.NewRegistry()

	history := []models.ChatMessage{
		{
			Role:      "assistant",
			Citations: `[{"Key":"text:paper:chunk3:p2","Number":1,"Payload":{"title":"Paper One"}},{"Key":"image:paper:p2:pic1","Number":2,"Payload":{}}]`,
		},
	}
	svc.replayCitations(history, registry)

	require.Equal(t, 2, registry.Len())
	entry, ok := registry.Lookup("text:paper:chunk3:p2")
	require.True(t, ok)
	assert.Equal(t, 1, entry.Number)

	// A source seen again in a later turn keeps its number; new sources
	// continue the sequence.
	assert.Equal(t, 1, registry.Register("text:paper:chunk3:p2", nil))
	assert.Equal(t, 3, registry.Register("text:paper:chunk9:p4", nil))
}

func TestComposePromptLayout(t *testing.T) {
	svc := seededService(t)
	history := []models.ChatMessage{
		{Role: "user", Content: "What is the runtime?"},
		{Role: "assistant", Content: "Attention dominates. [1]"},
	}

	prompt := svc.composePrompt(history, noTextResults+"\n\n"+noImageResults, "And memory?")

	assert.True(t, strings.HasPrefix(prompt, "## CONVERSATION SO FAR\n"))
	assert.Contains(t, prompt, "user: What is the runtime?")
	assert.Contains(t, prompt, "## SEARCH RESULTS")
	assert.True(t, strings.HasSuffix(prompt, "## QUESTION\nAnd memory?"))
}

func TestBoundHistoryDropsOldestFirst(t *testing.T) {
	long := strings.Repeat("word ", historyTokenBudget)
	turns := []historyTurn{
		{Role: "user", Content: long},
		{Role: "assistant", Content: "short answer"},
		{Role: "user", Content: "short question"},
	}

	bounded := boundHistory(turns)

	require.Len(t, bounded, 2)
	assert.Equal(t, "short answer", bounded[0].Content)
}

func TestSplitTokensRoundTrip(t *testing.T) {
	text := "Attention dominates runtime. [1]\nMemory is secondary."
	assert.Equal(t, text, strings.Join(splitTokens(text), ""))
}

func TestImageSourceKeyFallsBackToPosition(t *testing.T) {
	hit := models.RankedChunk{Chunk: models.Chunk{Meta: models.ChunkMetadata{DocID: "paper"}}}
	assert.Equal(t, "image:paper:p0:pic3", imageSourceKey(hit, 3))
}
