// Package app wires configuration, storage, and modules into a runnable
// HTTP application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/paperlens/core/internal/config"
	"github.com/paperlens/core/internal/database"
	"github.com/paperlens/core/internal/middleware"
	"github.com/paperlens/core/internal/pkg/embedding"
	"github.com/paperlens/core/internal/pkg/jwt"
	pkgredis "github.com/paperlens/core/internal/pkg/redis"
	"github.com/paperlens/core/internal/pkg/vectorstore"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rc       *pkgredis.Client
	store    vectorstore.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

// New initializes the application: config → DB → Redis → vector store →
// embedder → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if cfg.JWTSecret != "" {
		jwt.SetSecret(cfg.JWTSecret)
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	embedder, err := embedding.NewOpenAIEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	store, err := vectorstore.NewPgStore(context.Background(), cfg.VectorStore.DSN, embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		rc:       rc,
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
	app.registerRoutes()
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown releases held connections.
func (a *App) Shutdown() {
	if pg, ok := a.store.(*vectorstore.PgStore); ok {
		pg.Close()
	}
	if err := a.rc.Close(); err != nil {
		a.logger.Warn("closing redis connection failed", zap.Error(err))
	}
}
