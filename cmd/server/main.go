package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/analysis"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/graph"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/ingest"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/metrics"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/pipeline"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/store/relational"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/config"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Open SQLite store
	store, err := relational.Open(cfg.SQLitePath, cfg.Policy)
	if err != nil {
		log.Fatal("Failed to open SQLite store", zap.Error(err))
	}
	defer store.Close()

	// Connect to Neo4j
	ctx := context.Background()
	driver, err := graph.Connect(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}
	defer driver.Close(context.Background())

	graphRepo := graph.NewRepository(driver, cfg.Policy)
	if err := graphRepo.EnsureConstraints(ctx); err != nil {
		log.Fatal("Failed to ensure graph constraints", zap.Error(err))
	}

	pipe := pipeline.New(store, graphRepo)
	analyzer := analysis.New(store)

	router := newRouter(cfg, log, pipe, analyzer)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

func newRouter(cfg *config.Config, log *zap.Logger, pipe *pipeline.Pipeline, analyzer *analysis.Analyzer) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API routes
	api := router.Group("/api")
	{
		// Ingest a batch of raw items (API-pair or flat shape, mixed allowed)
		api.POST("/ingest", func(c *gin.Context) {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
				return
			}

			items, err := ingest.DecodeBatch(body)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			report, err := pipe.Ingest(c.Request.Context(), items)
			if err != nil {
				log.Error("Batch ingestion failed", zap.Error(err))
				if report != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, report)
		})

		analytics := api.Group("/analytics")
		{
			analytics.GET("/sentiment", func(c *gin.Context) {
				summary, err := analyzer.AverageSentiment(c.Request.Context())
				if err != nil {
					log.Error("Failed to compute average sentiment", zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute sentiment"})
					return
				}
				c.JSON(http.StatusOK, summary)
			})

			analytics.GET("/top-users", func(c *gin.Context) {
				users, err := analyzer.TopUsers(c.Request.Context())
				if err != nil {
					log.Error("Failed to fetch top users", zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch top users"})
					return
				}
				c.JSON(http.StatusOK, gin.H{"users": users})
			})

			analytics.GET("/timeline", func(c *gin.Context) {
				counts, err := analyzer.Trend(c.Request.Context())
				if err != nil {
					log.Error("Failed to compute timeline", zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute timeline"})
					return
				}
				c.JSON(http.StatusOK, gin.H{"buckets": counts})
			})
		}
	}

	return router
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
