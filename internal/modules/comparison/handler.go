package comparison

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/paperlens/core/internal/pkg/llm"
	"github.com/paperlens/core/internal/pkg/response"
)

type CompareDTO struct {
	DocAID string `json:"doc_a_id" binding:"required"`
	DocBID string `json:"doc_b_id" binding:"required"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/compare")

	g.POST("", h.compare)
}

func (h *Handler) compare(c *gin.Context) {
	var dto CompareDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.DocAID == dto.DocBID {
		response.BadRequest(c, "cannot compare a document with itself")
		return
	}

	result, err := h.svc.Compare(c.Request.Context(), dto.DocAID, dto.DocBID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFoundMsg(c, err.Error())
		case errors.Is(err, llm.ErrRateLimited):
			response.TooManyRequests(c, "generation provider rate limited, retry shortly")
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, result)
}
