package comparison

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/pkg/llm"
)

type fakeChunkSource struct {
	text   map[string][]models.Chunk
	images map[string][]models.Chunk
	err    error
}

func (f *fakeChunkSource) AllChunks(ctx context.Context, docID string, modality models.Modality) ([]models.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if modality == models.ModalityImage {
		return f.images[docID], nil
	}
	return f.text[docID], nil
}

type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     []llm.Request
}

func (g *scriptedGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	i := len(g.calls)
	g.calls = append(g.calls, req)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return `{"paper_a_summary":"A.","paper_b_summary":"B.","similarities":"S.","differences":"D.","notes":""}`, nil
}

func twoDocSource() *fakeChunkSource {
	return &fakeChunkSource{
		text: map[string][]models.Chunk{
			"doc-a": {
				textChunk("a0", "Paper A introduces retrieval grounding.", []string{"1 Introduction"}, 0, intPtr(1)),
				textChunk("a1", "Paper A reports strong results.", []string{"4 Results"}, 1, intPtr(6)),
			},
			"doc-b": {
				textChunk("b0", "Paper B introduces a competing scheme.", []string{"1 Introduction"}, 0, intPtr(1)),
			},
		},
		images: map[string][]models.Chunk{},
	}
}

func TestCompareNotFoundOnEmptySide(t *testing.T) {
	src := twoDocSource()
	svc := NewService(src, &scriptedGenerator{}, zap.NewNop())

	_, err := svc.Compare(context.Background(), "doc-a", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestCompareOneSidedSectionStillCompared(t *testing.T) {
	src := twoDocSource()
	gen := &scriptedGenerator{}
	svc := NewService(src, gen, zap.NewNop())

	result, err := svc.Compare(context.Background(), "doc-a", "doc-b")
	require.NoError(t, err)

	// doc-b has no Results section, but doc-a does: the section is kept and
	// the missing side is prompted as "Not available.".
	names := make([]string, 0, len(result.Sections))
	for _, s := range result.Sections {
		names = append(names, s.Section)
	}
	assert.Equal(t, []string{"Introduction", "Results / Evaluation"}, names)

	resultsCall := gen.calls[1]
	assert.Contains(t, resultsCall.Prompt, "Not available.")

	require.Len(t, result.Sections, 2)
	assert.Empty(t, result.Sections[1].PaperBCitations)
	require.Len(t, result.Sections[1].PaperACitations, 1)
	assert.Equal(t, "a1", result.Sections[1].PaperACitations[0].ChunkID)
}

func TestCompareGenerationFailureFallsBack(t *testing.T) {
	src := twoDocSource()
	gen := &scriptedGenerator{errs: []error{errors.New("upstream 500")}}
	svc := NewService(src, gen, zap.NewNop())

	result, err := svc.Compare(context.Background(), "doc-a", "doc-b")
	require.NoError(t, err)
	require.NotEmpty(t, result.Sections)

	first := result.Sections[0]
	assert.Equal(t, summaryUnavailable, first.PaperASummary)
	assert.Equal(t, summaryUnavailable, first.PaperBSummary)
	assert.Empty(t, first.Similarities)
	assert.Empty(t, first.Differences)
	assert.NotEmpty(t, first.Notes)
	// Citations survive a generation failure.
	require.Len(t, first.PaperACitations, 1)

	// Later sections still get real output.
	assert.Equal(t, "A.", result.Sections[1].PaperASummary)
}

func TestCompareUnparseableResponseFallsBack(t *testing.T) {
	src := twoDocSource()
	gen := &scriptedGenerator{responses: []string{"I will not produce JSON today."}}
	svc := NewService(src, gen, zap.NewNop())

	result, err := svc.Compare(context.Background(), "doc-a", "doc-b")
	require.NoError(t, err)
	require.NotEmpty(t, result.Sections)
	assert.Equal(t, summaryUnavailable, result.Sections[0].PaperASummary)
	assert.Contains(t, result.Sections[0].Notes, "Introduction")
}

func TestCompareStripsCodeFences(t *testing.T) {
	src := twoDocSource()
	fenced := "```json\n{\"paper_a_summary\":\"Fenced A.\",\"paper_b_summary\":\"Fenced B.\",\"similarities\":\"\",\"differences\":\"\",\"notes\":\"\"}\n```"
	gen := &scriptedGenerator{responses: []string{fenced}}
	svc := NewService(src, gen, zap.NewNop())

	result, err := svc.Compare(context.Background(), "doc-a", "doc-b")
	require.NoError(t, err)
	assert.Equal(t, "Fenced A.", result.Sections[0].PaperASummary)
}

func TestCompareOverallSummaryFailureIsNotFatal(t *testing.T) {
	src := twoDocSource()
	// Calls: Introduction, Results, then the overall summary fails.
	gen := &scriptedGenerator{errs: []error{nil, nil, errors.New("quota")}}
	svc := NewService(src, gen, zap.NewNop())

	result, err := svc.Compare(context.Background(), "doc-a", "doc-b")
	require.NoError(t, err)
	assert.Nil(t, result.OverallSummary)
	assert.Len(t, result.Sections, 2)
}

func TestCompareOverallSummaryPresent(t *testing.T) {
	src := twoDocSource()
	gen := &scriptedGenerator{responses: []string{
		`{"paper_a_summary":"A.","paper_b_summary":"B.","similarities":"","differences":"","notes":""}`,
		`{"paper_a_summary":"A.","paper_b_summary":"B.","similarities":"","differences":"","notes":""}`,
		"  Both papers pursue grounded retrieval.  ",
	}}
	svc := NewService(src, gen, zap.NewNop())

	result, err := svc.Compare(context.Background(), "doc-a", "doc-b")
	require.NoError(t, err)
	require.NotNil(t, result.OverallSummary)
	assert.Equal(t, "Both papers pursue grounded retrieval.", *result.OverallSummary)
}

func TestCompareCancelledContext(t *testing.T) {
	src := twoDocSource()
	svc := NewService(src, &scriptedGenerator{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Compare(ctx, "doc-a", "doc-b")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregateSectionTextBudget(t *testing.T) {
	chunk := func(id string, size int) models.Chunk {
		return textChunk(id, strings.Repeat("x", size), nil, 0, nil)
	}
	chunks := []models.Chunk{chunk("a", 2000), chunk("b", 1500), chunk("c", 1000)}

	got := aggregateSectionText(chunks)

	// The chunk crossing the budget is kept whole; the one after it is not.
	assert.Equal(t, 2000+2+1500, len(got))
	assert.NotContains(t, got, strings.Repeat("x", 2000)+"\n\n"+strings.Repeat("x", 1500)+"\n\n")
}

func TestBuildCitationsCapAndExcerpt(t *testing.T) {
	chunks := make([]models.Chunk, 6)
	for i := range chunks {
		chunks[i] = textChunk("id", strings.Repeat("y", 400), []string{"4 Results", "4.1 Ablations"}, i, intPtr(5))
	}

	citations := buildCitations(chunks)

	require.Len(t, citations, maxCitationsPerSection)
	assert.Len(t, citations[0].Excerpt, maxExcerptLength)
	assert.Equal(t, "4 Results > 4.1 Ablations", citations[0].Heading)
	assert.Equal(t, 2, citations[2].ChunkIndex)
}
