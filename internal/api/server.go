package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dropsync/internal/api/handlers"
	"dropsync/internal/api/middleware"
	"dropsync/internal/catalog"
	"dropsync/internal/categorize"
	"dropsync/internal/config"
	"dropsync/internal/database"
	"dropsync/internal/inventory"
	"dropsync/internal/logger"
	"dropsync/internal/syncer"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

// Deps carries the engines the handlers expose over HTTP. The server
// owns no business logic itself.
type Deps struct {
	Orchestrator *syncer.Orchestrator
	Upserter     *catalog.UpsertEngine
	Reconciler   *inventory.Reconciler
	Categorizer  *categorize.Engine
	Runs         *syncer.GormRunStore
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, deps Deps) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db.DB)
	supplierHandler := handlers.NewSupplierHandler(db.DB, logger, deps.Orchestrator, deps.Reconciler)
	productHandler := handlers.NewProductHandler(db.DB, logger, cfg)
	categoryHandler := handlers.NewCategoryHandler(db.DB, logger, deps.Categorizer)
	syncHandler := handlers.NewSyncHandler(deps.Orchestrator, deps.Runs, logger)
	webhookHandler := handlers.NewWebhookHandler(db.DB, logger, cfg, deps.Upserter)

	router.GET("/health", healthHandler.Check)

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Suppliers
		suppliers := v1.Group("/suppliers")
		{
			suppliers.GET("", supplierHandler.List)
			suppliers.GET("/:id", supplierHandler.Get)
			suppliers.POST("", supplierHandler.Create)
			suppliers.PUT("/:id", supplierHandler.Update)
			suppliers.DELETE("/:id", supplierHandler.Delete)
			suppliers.POST("/:id/test", supplierHandler.Test)
			suppliers.POST("/:id/sync", supplierHandler.Sync)
			suppliers.POST("/:id/reconcile", supplierHandler.Reconcile)
		}

		// Products
		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
			products.PUT("/:id/category", productHandler.UpdateCategory)
			products.DELETE("/:id", productHandler.Delete)
		}

		// Category rules
		categories := v1.Group("/categories")
		{
			categories.GET("", categoryHandler.List)
			categories.GET("/:id", categoryHandler.Get)
			categories.POST("", categoryHandler.Create)
			categories.PUT("/:id", categoryHandler.Update)
			categories.DELETE("/:id", categoryHandler.Delete)
		}

		// Sync control
		sync := v1.Group("/sync")
		{
			sync.POST("", syncHandler.Trigger)
			sync.GET("/status", syncHandler.Status)
			sync.GET("/runs", syncHandler.Runs)
		}

		// Webhooks
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/shopify", webhookHandler.Shopify)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler stack for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
