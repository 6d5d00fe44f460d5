// Package library manages the document catalog: arXiv ingestion into the
// vector store, listing, and cascading deletion.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/pkg/embedding"
	"github.com/paperlens/core/internal/pkg/extract"
	"github.com/paperlens/core/internal/pkg/objstore"
	"github.com/paperlens/core/internal/pkg/taskqueue"
	"github.com/paperlens/core/internal/pkg/vectorstore"
)

// ErrDocumentNotFound is returned when a catalog row is missing.
var ErrDocumentNotFound = errors.New("document not found")

const ingestTaskType = "library_ingest"

// ingestTimeout bounds one background ingestion end to end.
const ingestTimeout = 10 * time.Minute

type Service struct {
	db        *gorm.DB
	store     vectorstore.Store
	embedder  embedding.Embedder
	extractor *extract.Client
	arxiv     *ArxivClient
	tasks     *taskqueue.Service
	archive   *objstore.Archive
	logger    *zap.Logger
}

func NewService(
	db *gorm.DB,
	store vectorstore.Store,
	embedder embedding.Embedder,
	extractor *extract.Client,
	arxiv *ArxivClient,
	tasks *taskqueue.Service,
	archive *objstore.Archive,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:        db,
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		arxiv:     arxiv,
		tasks:     tasks,
		archive:   archive,
		logger:    logger,
	}
}

// DocIDForArxiv is the catalog id for an arXiv paper. The prefix keeps
// arXiv ids from colliding with other sources.
func DocIDForArxiv(arxivID string) string {
	return "arxiv:" + arxivID
}

// SearchArxiv proxies a paper-discovery query to the arXiv catalog.
func (s *Service) SearchArxiv(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	return s.arxiv.Search(ctx, q)
}

// IngestArxiv enqueues background ingestion of one arXiv paper and returns
// the tracking task. Re-submitting a paper already in flight returns the
// existing task.
func (s *Service) IngestArxiv(ctx context.Context, arxivID string) (*taskqueue.Task, error) {
	arxivID = strings.TrimSpace(arxivID)
	if arxivID == "" {
		return nil, errors.New("arxiv id is required")
	}
	docID := DocIDForArxiv(arxivID)

	task, created, err := s.tasks.Enqueue(ctx, ingestTaskType, map[string]string{
		"arxiv_id": arxivID,
		"doc_id":   docID,
	}, docID)
	if err != nil {
		return nil, fmt.Errorf("enqueue ingestion: %w", err)
	}
	if !created {
		// Same paper already in flight; hand back the running task.
		return task, nil
	}

	doc := &models.Document{
		DocID:     docID,
		ArxivID:   arxivID,
		SourceURL: PDFURL(arxivID),
		Status:    models.DocumentPending,
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "error"}),
		}).
		Create(doc).Error; err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}

	go s.runIngestion(task.ID, arxivID, docID)
	return task, nil
}

// runIngestion executes the pipeline detached from the request that
// triggered it. Status lives in the task queue and the catalog row.
func (s *Service) runIngestion(taskID, arxivID, docID string) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	log := s.logger.With(
		zap.String("task_id", taskID),
		zap.String("doc_id", docID))

	if err := s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, ""); err != nil {
		log.Warn("task status update failed", zap.Error(err))
	}

	result, err := s.ingest(ctx, arxivID, docID)
	if err != nil {
		log.Error("ingestion failed", zap.Error(err))
		s.markDocumentFailed(ctx, docID, err)
		if uerr := s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error()); uerr != nil {
			log.Warn("task status update failed", zap.Error(uerr))
		}
		return
	}

	log.Info("ingestion completed",
		zap.Int("chunks", result.ChunkCount),
		zap.Int("images", result.ImageCount))
	if uerr := s.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, result, ""); uerr != nil {
		log.Warn("task status update failed", zap.Error(uerr))
	}
}

// IngestResult summarizes a finished ingestion for task polling.
type IngestResult struct {
	DocID      string `json:"doc_id"`
	ChunkCount int    `json:"chunk_count"`
	ImageCount int    `json:"image_count"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

func (s *Service) ingest(ctx context.Context, arxivID, docID string) (*IngestResult, error) {
	meta, err := s.arxiv.Metadata(ctx, arxivID)
	if err != nil {
		return nil, err
	}
	pdf, err := s.arxiv.DownloadPDF(ctx, arxivID)
	if err != nil {
		return nil, err
	}

	extracted, err := s.extractor.Extract(ctx, pdf)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", docID, err)
	}

	records, imageCount, err := s.buildRecords(ctx, docID, meta, extracted)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("document %s produced no ingestible content", docID)
	}

	if err := s.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", docID, err)
	}

	archiveKey := s.archivePDF(ctx, docID, pdf)

	update := map[string]any{
		"title":       meta.Title,
		"summary":     meta.Summary,
		"authors":     models.StringArray(meta.Authors),
		"status":      models.DocumentReady,
		"chunk_count": len(records) - imageCount,
		"image_count": imageCount,
		"archive_key": archiveKey,
		"error":       "",
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("doc_id = ?", docID).
		Updates(update).Error; err != nil {
		return nil, fmt.Errorf("finalize document %s: %w", docID, err)
	}

	return &IngestResult{
		DocID:      docID,
		ChunkCount: len(records) - imageCount,
		ImageCount: imageCount,
		ArchiveKey: archiveKey,
	}, nil
}

// buildRecords embeds every text chunk and image caption and assembles
// vector store records under deterministic ids, so re-ingestion overwrites
// instead of duplicating.
func (s *Service) buildRecords(ctx context.Context, docID string, meta *ArxivMetadata, extracted *extract.Result) ([]vectorstore.Record, int, error) {
	type pending struct {
		record vectorstore.Record
		text   string
	}
	var items []pending

	chunkIndex := 0
	for _, chunk := range extracted.Chunks {
		text := strings.TrimSpace(chunk.Text)
		if text == "" {
			continue
		}
		cm := models.ChunkMetadata{
			DocID:       docID,
			Title:       meta.Title,
			Authors:     models.StringArray(meta.Authors),
			SourceURL:   PDFURL(strings.TrimPrefix(docID, "arxiv:")),
			Modality:    models.ModalityText,
			HeadingPath: models.StringArray(chunk.Headings),
			ChunkIndex:  chunkIndex,
			Preview:     plainTextPreview(text),
		}
		if len(chunk.Pages) > 0 {
			page := chunk.Pages[0]
			cm.Page = &page
		}
		if box := extract.NormalizeBox(chunk.BBox, cm.Page, extracted.PageSizes); box != nil {
			cm.BBox = &models.BoundingBox{
				Left: box.Left, Top: box.Top, Right: box.Right, Bottom: box.Bottom,
			}
		}
		items = append(items, pending{
			record: vectorstore.Record{
				ID:   fmt.Sprintf("%s::chunk::%04d", docID, chunkIndex),
				Text: text,
				Meta: cm,
			},
			text: text,
		})
		chunkIndex++
	}

	imageCount := 0
	for i, image := range extracted.Images {
		if image.DataBase64 == "" {
			continue
		}
		caption := strings.TrimSpace(image.Caption)
		cm := models.ChunkMetadata{
			DocID:         docID,
			Title:         meta.Title,
			Modality:      models.ModalityImage,
			Caption:       caption,
			ImageData:     image.DataBase64,
			PictureNumber: image.PictureNumber,
			Page:          image.Page,
		}
		if box := extract.NormalizeBox(image.BBox, image.Page, extracted.PageSizes); box != nil {
			cm.BBox = &models.BoundingBox{
				Left: box.Left, Top: box.Top, Right: box.Right, Bottom: box.Bottom,
			}
		}
		embedText := caption
		if embedText == "" {
			embedText = fmt.Sprintf("Figure %d from %s", image.PictureNumber, meta.Title)
		}
		items = append(items, pending{
			record: vectorstore.Record{
				ID:   fmt.Sprintf("%s::image::%04d", docID, i),
				Text: caption,
				Meta: cm,
			},
			text: embedText,
		})
		imageCount++
	}

	if len(items) == 0 {
		return nil, 0, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.text
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("embed %s: %w", docID, err)
	}
	if len(vectors) != len(items) {
		return nil, 0, fmt.Errorf("embed %s: got %d vectors for %d inputs", docID, len(vectors), len(items))
	}

	records := make([]vectorstore.Record, len(items))
	for i, item := range items {
		item.record.Embedding = vectors[i]
		records[i] = item.record
	}
	return records, imageCount, nil
}

// archivePDF uploads the original PDF when an archive is configured. Archive
// failures do not fail ingestion.
func (s *Service) archivePDF(ctx context.Context, docID string, pdf []byte) string {
	if s.archive == nil {
		return ""
	}
	key, err := s.archive.PutPDF(ctx, docID, pdf)
	if err != nil {
		s.logger.Warn("pdf archive upload failed",
			zap.String("doc_id", docID),
			zap.Error(err))
		return ""
	}
	return key
}

func (s *Service) markDocumentFailed(ctx context.Context, docID string, cause error) {
	err := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("doc_id = ?", docID).
		Updates(map[string]any{
			"status": models.DocumentFailed,
			"error":  cause.Error(),
		}).Error
	if err != nil {
		s.logger.Warn("marking document failed did not persist",
			zap.String("doc_id", docID),
			zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&docs).Error
	return docs, err
}

func (s *Service) Get(ctx context.Context, docID string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, "doc_id = ?", docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
		}
		return nil, err
	}
	return &doc, nil
}

// TaskStatus reports the state of an ingestion task.
func (s *Service) TaskStatus(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	return s.tasks.GetByID(ctx, taskID)
}

// Delete removes a document's catalog row and every vector it owns.
func (s *Service) Delete(ctx context.Context, docID string) error {
	if _, err := s.Get(ctx, docID); err != nil {
		return err
	}
	if err := s.store.DeleteWhere(ctx, vectorstore.Equals{
		Field: vectorstore.FieldDocID,
		Value: docID,
	}); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", docID, err)
	}
	return s.db.WithContext(ctx).Delete(&models.Document{}, "doc_id = ?", docID).Error
}
