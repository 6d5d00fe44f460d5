package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paperlens/core/internal/middleware"
	"github.com/paperlens/core/internal/modules/chat"
	"github.com/paperlens/core/internal/modules/comparison"
	"github.com/paperlens/core/internal/modules/health"
	"github.com/paperlens/core/internal/modules/library"
	"github.com/paperlens/core/internal/modules/repolink"
	"github.com/paperlens/core/internal/modules/retrieval"
	"github.com/paperlens/core/internal/pkg/extract"
	"github.com/paperlens/core/internal/pkg/llm"
	"github.com/paperlens/core/internal/pkg/objstore"
	"github.com/paperlens/core/internal/pkg/response"
	"github.com/paperlens/core/internal/pkg/taskqueue"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.Use(middleware.RateLimit(a.rc.Raw()))

	// Shared services
	retriever := retrieval.NewRetriever(a.store, a.embedder, a.logger)
	taskSvc := taskqueue.NewService(a.rc)
	extractor := extract.NewClient(a.cfg.Extractor)
	arxiv := library.NewArxivClient()

	archive, err := objstore.New(a.cfg.Archive)
	if err != nil {
		a.logger.Warn("pdf archive unavailable, ingesting without archival", zap.Error(err))
		archive = nil
	}

	chatGen := llm.NewProviderGenerator(a.cfg.AI.SelectAIProvider(a.cfg.AI.ChatModel))
	comparisonGen := llm.NewProviderGenerator(a.cfg.AI.SelectAIProvider(a.cfg.AI.ComparisonModel))

	librarySvc := library.NewService(a.db, a.store, a.embedder, extractor, arxiv, taskSvc, archive, a.logger)
	comparisonSvc := comparison.NewService(retriever, comparisonGen, a.logger)
	chatSvc := chat.NewService(a.db, retriever, chatGen, a.cfg.Retrieval, a.logger)
	repolinkSvc := repolink.NewService(a.cfg.GitHub.Token, librarySvc, a.store, a.embedder, a.logger)

	// Versioned API
	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth())

	health.RegisterRoutes(api, a.db, a.rc)
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })

	library.NewHandler(librarySvc).RegisterRoutes(api)
	comparison.NewHandler(comparisonSvc).RegisterRoutes(api)
	chat.NewHandler(chatSvc).RegisterRoutes(api)
	repolink.NewHandler(repolinkSvc).RegisterRoutes(api)
}
