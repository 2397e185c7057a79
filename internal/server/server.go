package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dhc-casetracker/internal/api"
	"dhc-casetracker/internal/config"
	"dhc-casetracker/internal/database"
	"dhc-casetracker/internal/fetch"
	"dhc-casetracker/internal/metrics"
	"dhc-casetracker/internal/pipeline"
	"dhc-casetracker/internal/scrape"
	"dhc-casetracker/pkg/logger"
	"dhc-casetracker/pkg/middleware/requestid"
)

type Server struct {
	cfg    *config.Config
	logger *logger.Logger
	router *gin.Engine
	pool   *fetch.Pool
}

func New(cfg *config.Config, db *gorm.DB, logger *logger.Logger) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	m := metrics.New()

	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(loggingMiddleware(logger))
	router.Use(corsMiddleware())
	router.Use(m.GinMiddleware())

	pool := fetch.NewPool(cfg.SessionTTL, func() (*fetch.Session, error) {
		return fetch.NewSession(cfg.CourtBaseURL, cfg.RequestTimeout, cfg.FetchDelay)
	})

	browser := fetch.NewBrowser(cfg, logger)
	fetcher := fetch.NewFetcher(pool, browser, cfg.CourtBaseURL, logger)
	parser := scrape.NewParser(cfg.CourtBaseURL)
	resolver := scrape.NewResolver(cfg.DownloadDir, cfg.MaxPDFSize, cfg.RequestTimeout, logger)
	store := database.NewStore(db)

	p := pipeline.New(fetcher, parser, resolver, store, logger, m, cfg.DownloadOnSearch)

	api.SetupRoutes(router, p, store, resolver, m, logger, cfg)

	return &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		pool:   pool,
	}
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("Failed to start server", "error", err)
		}
	}()

	s.logger.Info("Server started", "address", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.pool.Close()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		return err
	}

	s.logger.Info("Server exited gracefully")
	return nil
}

func loggingMiddleware(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		if raw != "" {
			path = path + "?" + raw
		}

		logger.Info("HTTP Request",
			"request_id", requestid.Value(c),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", latency.String(),
			"user_agent", c.Request.UserAgent(),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
