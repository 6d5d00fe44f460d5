package repolink

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paperlens/core/internal/middleware"
	"github.com/paperlens/core/internal/modules/library"
	"github.com/paperlens/core/internal/pkg/response"
)

type LinkDTO struct {
	Owner string `json:"owner" binding:"required"`
	Repo  string `json:"repo"  binding:"required"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/library/:docId/repo", middleware.Auth(), h.link)
}

func (h *Handler) link(c *gin.Context) {
	docID := strings.TrimSpace(c.Param("docId"))
	var dto LinkDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Link(c.Request.Context(), docID, dto.Owner, dto.Repo)
	if err != nil {
		if errors.Is(err, library.ErrDocumentNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, result)
}
