package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/config"
	"github.com/jengzang/wayfarer-backend-go/internal/handler"
	"github.com/jengzang/wayfarer-backend-go/internal/middleware"
)

// Handlers bundles the HTTP handlers the router wires up.
type Handlers struct {
	Track     *handler.TrackHandler
	Stats     *handler.StatsHandler
	LifeEvent *handler.LifeEventHandler
	Export    *handler.ExportHandler
}

// SetupRouter builds the gin engine with middleware and all routes.
func SetupRouter(cfg *config.Config, logger *zap.Logger, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.RateLimit(300, time.Minute))

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		tracks := api.Group("/tracks")
		{
			tracks.POST("/batch", h.Track.IngestBatch)
			tracks.GET("/query", h.Track.QueryPoints)
			tracks.POST("/edits", h.Track.CreateEdit)
			tracks.GET("/edits", h.Track.ListEdits)
			tracks.DELETE("/edits/:id", h.Track.CancelEdit)
		}

		stats := api.Group("/stats")
		{
			stats.GET("/steps/daily", h.Stats.DailySteps)
			stats.GET("/steps/hourly", h.Stats.HourlySteps)
		}

		events := api.Group("/life-events")
		{
			events.GET("", h.LifeEvent.List)
			events.POST("", h.LifeEvent.Create)
			events.PUT("/:id", h.LifeEvent.Update)
			events.DELETE("/:id", h.LifeEvent.Delete)
		}

		exports := api.Group("/export")
		{
			exports.POST("", h.Export.Create)
			exports.GET("", h.Export.CreateFromQuery)
			exports.GET("/:id", h.Export.Get)
			exports.GET("/:id/download", h.Export.Download)
			exports.POST("/:id/cancel", h.Export.Cancel)
		}
	}

	return r
}
