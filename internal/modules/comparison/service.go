// Package comparison produces structured side-by-side comparisons of two
// ingested documents: one record per section plus an overall summary.
// Generation failures degrade per section; only a missing document fails the
// whole request.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/modules/section"
	"github.com/paperlens/core/internal/pkg/llm"
)

const (
	maxSectionCharacters   = 3000
	maxCitationsPerSection = 4
	maxExcerptLength       = 250

	sectionTemperature = 0.2
	sectionMaxTokens   = 800
	summaryTemperature = 0.25
	summaryMaxTokens   = 500
)

// ErrNotFound marks a comparison side with no ingested content.
var ErrNotFound = errors.New("document not found")

const summaryUnavailable = "Summary unavailable."

// ChunkSource loads every chunk of one document, ingestion-ordered.
// *retrieval.Retriever satisfies it.
type ChunkSource interface {
	AllChunks(ctx context.Context, docID string, modality models.Modality) ([]models.Chunk, error)
}

// Service runs the comparison pipeline.
type Service struct {
	chunks    ChunkSource
	generator llm.Generator
	logger    *zap.Logger
}

func NewService(chunks ChunkSource, generator llm.Generator, logger *zap.Logger) *Service {
	return &Service{chunks: chunks, generator: generator, logger: logger}
}

// Compare builds the full comparison of two documents. It fails with
// ErrNotFound when either side has zero text chunks; every later failure
// degrades to fallback content instead.
func (s *Service) Compare(ctx context.Context, docAID, docBID string) (*Result, error) {
	chunksA, err := s.chunks.AllChunks(ctx, docAID, models.ModalityText)
	if err != nil {
		return nil, err
	}
	chunksB, err := s.chunks.AllChunks(ctx, docBID, models.ModalityText)
	if err != nil {
		return nil, err
	}
	if len(chunksA) == 0 {
		return nil, fmt.Errorf("document %s: %w", docAID, ErrNotFound)
	}
	if len(chunksB) == 0 {
		return nil, fmt.Errorf("document %s: %w", docBID, ErrNotFound)
	}

	docA := docInfo(chunksA, docAID)
	docB := docInfo(chunksB, docBID)

	groupedA := groupBySection(chunksA)
	groupedB := groupBySection(chunksB)

	imagesA := assignImages(groupedA, s.fetchImages(ctx, docAID))
	imagesB := assignImages(groupedB, s.fetchImages(ctx, docBID))

	names := unionSectionNames(groupedA, groupedB)

	sections := make([]SectionComparison, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sideA := groupedA.bySection[name]
		sideB := groupedB.bySection[name]
		if len(sideA) == 0 && len(sideB) == 0 {
			continue
		}

		cmp := s.compareSection(ctx, name, docA, docB, sideA, sideB)
		cmp.PaperAImages = imagesA[name]
		cmp.PaperBImages = imagesB[name]
		sections = append(sections, cmp)
	}

	result := &Result{
		DocA:     docA,
		DocB:     docB,
		Sections: sections,
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.OverallSummary = s.overallSummary(ctx, docA, docB, chunksA, chunksB)
	return result, nil
}

// fetchImages loads a document's image chunks. A store failure here costs
// figure placement, not the comparison.
func (s *Service) fetchImages(ctx context.Context, docID string) []models.Chunk {
	images, err := s.chunks.AllChunks(ctx, docID, models.ModalityImage)
	if err != nil {
		s.logger.Warn("image fetch failed, comparing without figures",
			zap.String("doc_id", docID),
			zap.Error(err))
		return nil
	}
	return images
}

func (s *Service) compareSection(
	ctx context.Context,
	name string,
	docA, docB DocInfo,
	chunksA, chunksB []models.Chunk,
) SectionComparison {
	cmp := SectionComparison{
		Section:         name,
		PaperACitations: buildCitations(chunksA),
		PaperBCitations: buildCitations(chunksB),
	}

	textA := aggregateSectionText(chunksA)
	textB := aggregateSectionText(chunksB)

	raw, err := s.generator.Generate(ctx, llm.Request{
		System:      sectionSystemInstruction,
		Prompt:      sectionPrompt(name, docA, docB, textA, textB),
		Temperature: sectionTemperature,
		MaxTokens:   sectionMaxTokens,
	})
	if err != nil {
		s.logger.Error("section comparison generation failed",
			zap.String("section", name),
			zap.String("doc_a", docA.DocID),
			zap.String("doc_b", docB.DocID),
			zap.Error(err))
		applyFallback(&cmp, "Unable to generate comparison data due to LLM error.")
		return cmp
	}

	var fields sectionFields
	if err := llm.UnmarshalModelJSON(raw, &fields); err != nil {
		s.logger.Error("section comparison response unparseable",
			zap.String("section", name),
			zap.String("doc_a", docA.DocID),
			zap.String("doc_b", docB.DocID),
			zap.Error(err))
		applyFallback(&cmp, fmt.Sprintf("Model response could not be parsed for section %s.", name))
		return cmp
	}

	cmp.PaperASummary = orUnavailable(fields.PaperASummary)
	cmp.PaperBSummary = orUnavailable(fields.PaperBSummary)
	cmp.Similarities = fields.Similarities
	cmp.Differences = fields.Differences
	cmp.Notes = fields.Notes
	return cmp
}

func (s *Service) overallSummary(ctx context.Context, docA, docB DocInfo, chunksA, chunksB []models.Chunk) *string {
	textA := aggregateSectionText(chunksA)
	textB := aggregateSectionText(chunksB)
	if textA == "" || textB == "" {
		return nil
	}

	raw, err := s.generator.Generate(ctx, llm.Request{
		Prompt:      overallSummaryPrompt(docA, docB, textA, textB),
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		s.logger.Error("overall summary generation failed",
			zap.String("doc_a", docA.DocID),
			zap.String("doc_b", docB.DocID),
			zap.Error(err))
		return nil
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return nil
	}
	return &summary
}

func applyFallback(cmp *SectionComparison, note string) {
	cmp.PaperASummary = summaryUnavailable
	cmp.PaperBSummary = summaryUnavailable
	cmp.Similarities = ""
	cmp.Differences = ""
	cmp.Notes = note
}

func orUnavailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return summaryUnavailable
	}
	return s
}

// sectionGroups keeps grouped chunks plus first-seen section order. The
// order feeds image assignment tie-breaking.
type sectionGroups struct {
	names     []string
	bySection map[string][]models.Chunk
}

func groupBySection(chunks []models.Chunk) *sectionGroups {
	groups := &sectionGroups{bySection: make(map[string][]models.Chunk)}
	total := len(chunks)
	for _, chunk := range chunks {
		name := section.Classify(chunk.Meta.HeadingPath, chunk.Meta.ChunkIndex, total)
		if _, seen := groups.bySection[name]; !seen {
			groups.names = append(groups.names, name)
		}
		groups.bySection[name] = append(groups.bySection[name], chunk)
	}
	return groups
}

func unionSectionNames(a, b *sectionGroups) []string {
	seen := make(map[string]struct{}, len(a.names)+len(b.names))
	names := make([]string, 0, len(a.names)+len(b.names))
	for _, name := range append(append([]string{}, a.names...), b.names...) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	section.Sort(names)
	return names
}

func docInfo(chunks []models.Chunk, fallbackID string) DocInfo {
	info := DocInfo{DocID: fallbackID, Title: fallbackID}
	if len(chunks) == 0 {
		return info
	}
	meta := chunks[0].Meta
	if meta.DocID != "" {
		info.DocID = meta.DocID
	}
	if meta.Title != "" {
		info.Title = meta.Title
	} else if meta.DocID != "" {
		info.Title = meta.DocID
	}
	return info
}

// aggregateSectionText concatenates chunk texts in ingestion order until the
// character budget is reached. The chunk crossing the budget is kept whole.
func aggregateSectionText(chunks []models.Chunk) string {
	var texts []string
	total := 0
	for _, chunk := range chunks {
		text := strings.TrimSpace(chunk.Text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
		total += len(text)
		if total >= maxSectionCharacters {
			break
		}
	}
	return strings.Join(texts, "\n\n")
}

func buildCitations(chunks []models.Chunk) []Citation {
	if len(chunks) == 0 {
		return nil
	}
	limit := len(chunks)
	if limit > maxCitationsPerSection {
		limit = maxCitationsPerSection
	}
	citations := make([]Citation, 0, limit)
	for _, chunk := range chunks[:limit] {
		citations = append(citations, Citation{
			ChunkID:    chunk.ID,
			Page:       chunk.Meta.Page,
			ChunkIndex: chunk.Meta.ChunkIndex,
			Heading:    strings.Join(chunk.Meta.HeadingPath, " > "),
			Excerpt:    truncateExcerpt(chunk.Text),
		})
	}
	return citations
}

func truncateExcerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= maxExcerptLength {
		return text
	}
	return string(runes[:maxExcerptLength])
}
