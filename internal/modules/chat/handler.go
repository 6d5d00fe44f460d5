package chat

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paperlens/core/internal/middleware"
	"github.com/paperlens/core/internal/pkg/llm"
	"github.com/paperlens/core/internal/pkg/response"
)

type AskDTO struct {
	SessionID string   `json:"session_id"`
	Message   string   `json:"message" binding:"required"`
	DocIDs    []string `json:"doc_ids"`
	TextTopK  int      `json:"text_top_k"`
	ImageTopK int      `json:"image_top_k"`
	Stream    bool     `json:"stream"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/chat")

	g.POST("", h.ask)
	g.GET("/sessions", h.listSessions)
	g.GET("/sessions/:id", h.getSession)
	g.DELETE("/sessions/:id", middleware.Auth(), h.deleteSession)
}

func (h *Handler) ask(c *gin.Context) {
	var dto AskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	answer, err := h.svc.Ask(c.Request.Context(), AskInput{
		SessionID: dto.SessionID,
		Prompt:    dto.Message,
		DocIDs:    dto.DocIDs,
		TextTopK:  dto.TextTopK,
		ImageTopK: dto.ImageTopK,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			response.NotFoundMsg(c, err.Error())
		case errors.Is(err, llm.ErrRateLimited):
			response.TooManyRequests(c, "generation provider rate limited, retry shortly")
		case errors.Is(err, llm.ErrNotConfigured):
			response.InternalError(c, err)
		default:
			response.InternalError(c, err)
		}
		return
	}

	if dto.Stream {
		h.streamAnswer(c, answer)
		return
	}
	response.OK(c, answer)
}

// streamAnswer replays the finished answer as SSE token events followed by
// one citations event. Clients treat the stream shape the same whether
// generation itself streamed or not.
func (h *Handler) streamAnswer(c *gin.Context, answer *Answer) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("session", gin.H{"session_id": answer.SessionID})
	c.Writer.Flush()

	for _, token := range splitTokens(answer.Text) {
		select {
		case <-c.Request.Context().Done():
			return
		default:
		}
		c.SSEvent("token", token)
		c.Writer.Flush()
	}

	c.SSEvent("citations", answer.Citations)
	c.SSEvent("done", "")
	c.Writer.Flush()
}

// splitTokens chunks text on word boundaries, keeping the separators so the
// concatenation of all events reproduces the answer exactly.
func splitTokens(text string) []string {
	var tokens []string
	start := 0
	for i, r := range text {
		if r == ' ' || r == '\n' {
			tokens = append(tokens, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, sessions)
}

func (h *Handler) getSession(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	session, err := h.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	messages, err := h.svc.SessionMessages(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"session": session, "messages": messages})
}

func (h *Handler) deleteSession(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := h.svc.DeleteSession(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
