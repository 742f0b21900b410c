package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/wayfarer-backend-go/internal/middleware"
	"github.com/jengzang/wayfarer-backend-go/internal/service"
	"github.com/jengzang/wayfarer-backend-go/pkg/response"
)

// StatsHandler handles HTTP requests for step statistics
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// DailySteps handles GET /api/v1/stats/steps/daily
func (h *StatsHandler) DailySteps(c *gin.Context) {
	startAt, endAt, ok := parseWindow(c)
	if !ok {
		return
	}

	buckets, err := h.statsService.Daily(middleware.UserID(c), startAt, endAt, c.Query("timezone"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"days": buckets})
}

// HourlySteps handles GET /api/v1/stats/steps/hourly
func (h *StatsHandler) HourlySteps(c *gin.Context) {
	startAt, endAt, ok := parseWindow(c)
	if !ok {
		return
	}

	buckets, err := h.statsService.Hourly(middleware.UserID(c), startAt, endAt, c.Query("timezone"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"hours": buckets})
}
