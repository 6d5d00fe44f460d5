package library

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paperlens/core/internal/middleware"
	"github.com/paperlens/core/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/library")

	g.GET("/arxiv/search", h.searchArxiv)
	g.POST("/arxiv/:arxivId", middleware.Auth(), h.ingestArxiv)
	g.GET("", h.list)
	g.GET("/tasks/:id", h.taskStatus)
	g.GET("/:docId", h.get)
	g.DELETE("/:docId", middleware.Auth(), h.delete)
}

var (
	searchSortFields = map[string]bool{"relevance": true, "lastUpdatedDate": true, "submittedDate": true}
	searchSortOrders = map[string]bool{"ascending": true, "descending": true}
)

func (h *Handler) searchArxiv(c *gin.Context) {
	q := SearchQuery{
		Text:      c.Query("q"),
		Title:     c.Query("title"),
		Author:    c.Query("author"),
		Abstract:  c.Query("abs"),
		Category:  c.Query("cat"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if q.SortBy != "" && !searchSortFields[q.SortBy] {
		response.BadRequest(c, "sortBy must be relevance, lastUpdatedDate or submittedDate")
		return
	}
	if q.SortOrder != "" && !searchSortOrders[q.SortOrder] {
		response.BadRequest(c, "sortOrder must be ascending or descending")
		return
	}
	var err error
	if raw := c.Query("start"); raw != "" {
		if q.Start, err = strconv.Atoi(raw); err != nil || q.Start < 0 {
			response.BadRequest(c, "start must be a non-negative integer")
			return
		}
	}
	if raw := c.Query("max_results"); raw != "" {
		if q.MaxResults, err = strconv.Atoi(raw); err != nil || q.MaxResults < 1 || q.MaxResults > searchMaxResults {
			response.BadRequest(c, "max_results must be between 1 and 200")
			return
		}
	}

	results, err := h.svc.SearchArxiv(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, ErrEmptySearch) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, results)
}

func (h *Handler) ingestArxiv(c *gin.Context) {
	arxivID := strings.TrimSpace(c.Param("arxivId"))
	if arxivID == "" {
		response.BadRequest(c, "arxiv id is required")
		return
	}
	task, err := h.svc.IngestArxiv(c.Request.Context(), arxivID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Accepted(c, gin.H{
		"task_id": task.ID,
		"status":  task.Status,
		"doc_id":  DocIDForArxiv(arxivID),
	})
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, docs)
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("docId"))
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, doc)
}

func (h *Handler) taskStatus(c *gin.Context) {
	task, err := h.svc.TaskStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("docId")); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
