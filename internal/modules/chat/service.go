// Package chat answers user questions over ingested documents with
// retrieval-grounded generation and stable per-session citation numbers.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/paperlens/core/internal/config"
	"github.com/paperlens/core/internal/models"
	"github.com/paperlens/core/internal/modules/citation"
	"github.com/paperlens/core/internal/modules/retrieval"
	"github.com/paperlens/core/internal/pkg/llm"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("chat session not found")

const (
	chatTemperature = 0.0
	chatMaxTokens   = 1200
	titleMaxLength  = 80
)

// AskInput is one chat turn.
type AskInput struct {
	SessionID string
	Prompt    string
	DocIDs    []string
	TextTopK  int
	ImageTopK int
}

// Answer is the assistant reply with its numbered sources.
type Answer struct {
	SessionID string            `json:"session_id"`
	Text      string            `json:"answer"`
	Citations []*citation.Entry `json:"citations"`
}

type Service struct {
	db        *gorm.DB
	retriever *retrieval.Retriever
	generator llm.Generator
	defaults  config.RetrievalConfig
	logger    *zap.Logger
}

func NewService(db *gorm.DB, retriever *retrieval.Retriever, generator llm.Generator, defaults config.RetrievalConfig, logger *zap.Logger) *Service {
	return &Service{db: db, retriever: retriever, generator: generator, defaults: defaults, logger: logger}
}

// Ask runs one retrieval-grounded turn. Retrieval failures degrade to an
// uncited answer; only rate limits and generation errors propagate.
func (s *Service) Ask(ctx context.Context, in AskInput) (*Answer, error) {
	if in.TextTopK <= 0 {
		in.TextTopK = s.defaults.DefaultTextTopK
	}
	if in.ImageTopK <= 0 {
		in.ImageTopK = s.defaults.DefaultImageTopK
	}

	session, history, err := s.loadOrCreateSession(ctx, &in)
	if err != nil {
		return nil, err
	}

	// Replaying stored citations in number order reproduces the session's
	// numbering before any new source is registered.
	registry := citation.NewRegistry()
	s.replayCitations(history, registry)
	replayed := registry.Len()

	grounding := s.buildGrounding(ctx, in, registry)

	prompt := s.composePrompt(history, grounding, in.Prompt)

	answer, err := s.generator.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("chat generation: %w", err)
	}
	answer = strings.TrimSpace(answer)

	entries := registry.All()
	if err := s.persistTurn(ctx, session, in.Prompt, answer, entries); err != nil {
		// The user already has an answer; losing history is worth a log
		// line, not a failed request.
		s.logger.Error("persisting chat turn failed",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}

	s.logger.Info("chat turn answered",
		zap.String("session_id", session.ID),
		zap.Int("sources_total", len(entries)),
		zap.Int("sources_new", len(entries)-replayed))

	return &Answer{SessionID: session.ID, Text: answer, Citations: entries}, nil
}

func (s *Service) loadOrCreateSession(ctx context.Context, in *AskInput) (*models.ChatSession, []models.ChatMessage, error) {
	if in.SessionID == "" {
		session := &models.ChatSession{
			Title:  deriveTitle(in.Prompt),
			DocIDs: models.StringArray(in.DocIDs),
		}
		if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
			return nil, nil, fmt.Errorf("create chat session: %w", err)
		}
		return session, nil, nil
	}

	session, err := s.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, nil, err
	}
	// The session's document scope is fixed at creation.
	in.DocIDs = []string(session.DocIDs)

	var history []models.ChatMessage
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", session.ID).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		return nil, nil, fmt.Errorf("load chat history: %w", err)
	}
	return session, history, nil
}

func (s *Service) replayCitations(history []models.ChatMessage, registry *citation.Registry) {
	for _, msg := range history {
		if msg.Citations == "" {
			continue
		}
		var entries []citation.Entry
		if err := json.Unmarshal([]byte(msg.Citations), &entries); err != nil {
			s.logger.Warn("stored citations unreadable, renumbering session sources",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}
		for _, entry := range entries {
			registry.Register(entry.Key, entry.Payload)
		}
	}
}

// buildGrounding retrieves text then image evidence and registers every hit.
// Text sources register before image sources so numbering follows evidence
// order. Degraded retrieval is told apart from an empty corpus so the model
// is not instructed that nothing relevant exists when the store was down.
func (s *Service) buildGrounding(ctx context.Context, in AskInput, registry *citation.Registry) string {
	var sections []string

	textHits, textDegraded := s.retriever.Retrieve(ctx, retrieval.Query{
		Text:          in.Prompt,
		AllowedDocIDs: in.DocIDs,
		Modality:      models.ModalityText,
		TopK:          in.TextTopK,
	})
	if textDegraded {
		sections = append(sections, textSearchUnavailable)
	} else if len(textHits) == 0 {
		sections = append(sections, noTextResults)
	} else {
		var parts []string
		for _, hit := range textHits {
			number := registry.Register(textSourceKey(hit), textSourcePayload(hit))
			parts = append(parts, fmt.Sprintf("[Source %d] Title: %s\nHeading: %s\nContent:\n%s\n",
				number, sourceTitle(hit.Meta), strings.Join(hit.Meta.HeadingPath, " > "), strings.TrimSpace(hit.Text)))
		}
		sections = append(sections, "## TEXT RESULTS\n"+strings.Join(parts, "\n---\n"))
	}

	imageHits, imageDegraded := s.retriever.Retrieve(ctx, retrieval.Query{
		Text:          in.Prompt,
		AllowedDocIDs: in.DocIDs,
		Modality:      models.ModalityImage,
		TopK:          in.ImageTopK,
	})
	if imageDegraded {
		sections = append(sections, imageSearchUnavailable)
	} else if len(imageHits) == 0 {
		sections = append(sections, noImageResults)
	} else {
		var parts []string
		for i, hit := range imageHits {
			number := registry.Register(imageSourceKey(hit, i), imageSourcePayload(hit))
			parts = append(parts, fmt.Sprintf("[Source %d] Title: %s\nCaption: %s\n",
				number, sourceTitle(hit.Meta), hit.Meta.Caption))
		}
		sections = append(sections, "## IMAGE RESULTS\n"+strings.Join(parts, "\n---\n"))
	}

	return strings.Join(sections, "\n\n")
}

func (s *Service) composePrompt(history []models.ChatMessage, grounding, prompt string) string {
	turns := make([]historyTurn, 0, len(history))
	for _, msg := range history {
		turns = append(turns, historyTurn{Role: msg.Role, Content: msg.Content})
	}
	turns = boundHistory(turns)

	var b strings.Builder
	if len(turns) > 0 {
		b.WriteString("## CONVERSATION SO FAR\n")
		for _, turn := range turns {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString("## SEARCH RESULTS\n")
	b.WriteString(grounding)
	b.WriteString("\n\n## QUESTION\n")
	b.WriteString(prompt)
	return b.String()
}

func (s *Service) persistTurn(ctx context.Context, session *models.ChatSession, prompt, answer string, entries []*citation.Entry) error {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode citations: %w", err)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.ChatMessage{
			SessionID: session.ID,
			Role:      "user",
			Content:   prompt,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&models.ChatMessage{
			SessionID: session.ID,
			Role:      "assistant",
			Content:   answer,
			Citations: string(encoded),
		}).Error
	})
}

func (s *Service) ListSessions(ctx context.Context) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&sessions).Error
	return sessions, err
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return &session, nil
}

func (s *Service) SessionMessages(ctx context.Context, id string) ([]models.ChatMessage, error) {
	if _, err := s.GetSession(ctx, id); err != nil {
		return nil, err
	}
	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.GetSession(ctx, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChatSession{}, "id = ?", id).Error
	})
}

func textSourceKey(hit models.RankedChunk) string {
	page := 0
	if hit.Meta.Page != nil {
		page = *hit.Meta.Page
	}
	return citation.TextKey(hit.Meta.DocID, hit.Meta.ChunkIndex, page)
}

func imageSourceKey(hit models.RankedChunk, position int) string {
	page := 0
	if hit.Meta.Page != nil {
		page = *hit.Meta.Page
	}
	pic := hit.Meta.PictureNumber
	if pic == 0 {
		pic = position
	}
	return citation.ImageKey(hit.Meta.DocID, page, pic)
}

func textSourcePayload(hit models.RankedChunk) citation.Payload {
	payload := citation.Payload{
		"type":        "text",
		"doc_id":      hit.Meta.DocID,
		"title":       sourceTitle(hit.Meta),
		"heading":     strings.Join(hit.Meta.HeadingPath, " > "),
		"distance":    hit.Distance,
		"page":        hit.Meta.Page,
		"chunk_index": hit.Meta.ChunkIndex,
		"content":     strings.TrimSpace(hit.Text),
	}
	if hit.Meta.BBox != nil {
		payload["bbox"] = hit.Meta.BBox
	}
	return payload
}

func imageSourcePayload(hit models.RankedChunk) citation.Payload {
	payload := citation.Payload{
		"type":     "image",
		"doc_id":   hit.Meta.DocID,
		"title":    sourceTitle(hit.Meta),
		"caption":  hit.Meta.Caption,
		"distance": hit.Distance,
		"page":     hit.Meta.Page,
		"content":  hit.Meta.Caption,
	}
	if hit.Meta.ImageData != "" {
		payload["image_b64"] = hit.Meta.ImageData
	}
	if hit.Meta.BBox != nil {
		payload["bbox"] = hit.Meta.BBox
	}
	return payload
}

func sourceTitle(meta models.ChunkMetadata) string {
	if meta.Title != "" {
		return meta.Title
	}
	if meta.DocID != "" {
		return meta.DocID
	}
	return "Unknown"
}

func deriveTitle(prompt string) string {
	trimmed := strings.TrimSpace(prompt)
	runes := []rune(trimmed)
	if len(runes) <= titleMaxLength {
		return trimmed
	}
	return string(runes[:titleMaxLength])
}
