package api

import (
	"github.com/gin-gonic/gin"

	"dhc-casetracker/internal/config"
	"dhc-casetracker/internal/database"
	"dhc-casetracker/internal/metrics"
	"dhc-casetracker/internal/pipeline"
	"dhc-casetracker/internal/scrape"
	"dhc-casetracker/pkg/logger"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, p *pipeline.Pipeline, store *database.Store, resolver *scrape.Resolver, m *metrics.Metrics, logger *logger.Logger, cfg *config.Config) {
	h := NewHandlers(p, store, resolver, logger, cfg)

	// Serve static files
	router.Static("/static", "./web/static")

	// HTML routes
	router.GET("/", h.HomePage)
	router.POST("/search", h.SearchCase)
	router.GET("/case/:id", h.ViewCase)
	router.GET("/download/:id", h.DownloadDocument)
	router.GET("/stats", h.StatsPage)

	// API routes
	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/case/:number", h.GetCaseAPI)
		api.GET("/cases", h.ListCasesAPI)
	}

	router.GET("/metrics", m.Handler())

	// Load HTML templates
	router.LoadHTMLGlob("web/templates/*")
}
