package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/wayfarer-backend-go/internal/export"
	"github.com/jengzang/wayfarer-backend-go/internal/middleware"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
	"github.com/jengzang/wayfarer-backend-go/pkg/response"
)

// ExportHandler handles HTTP requests for export jobs
type ExportHandler struct {
	exportService *export.Service
}

// NewExportHandler creates a new export handler
func NewExportHandler(exportService *export.Service) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

type exportRequest struct {
	Start          string `json:"start" form:"start"`
	End            string `json:"end" form:"end"`
	Format         string `json:"format" form:"format"`
	IncludeWeather bool   `json:"includeWeather" form:"includeWeather"`
	Timezone       string `json:"timezone" form:"timezone"`
}

func contentTypeFor(format string) string {
	switch format {
	case "CSV":
		return "text/csv"
	case "GeoJSON":
		return "application/geo+json"
	case "GPX", "KML":
		return "application/xml"
	}
	return "application/octet-stream"
}

// Create handles POST /api/v1/export. Small non-weather requests stream the
// artifact directly; everything else answers 202 with a job id.
func (h *ExportHandler) Create(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "EXPORT_INVALID_RANGE", "request body is not a valid export request")
		return
	}
	h.create(c, req)
}

// CreateFromQuery handles GET /api/v1/export, the query-parameter variant of
// Create for clients that cannot send a JSON body. Same semantics: sync
// stream for small non-weather windows, 202 with a job otherwise.
func (h *ExportHandler) CreateFromQuery(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, 400, "EXPORT_INVALID_RANGE", "query parameters are not a valid export request")
		return
	}
	h.create(c, req)
}

func (h *ExportHandler) create(c *gin.Context, req exportRequest) {
	startAt, err := timeutil.Parse(req.Start)
	if err != nil {
		response.Error(c, 400, "EXPORT_INVALID_RANGE", "start is not a valid timestamp")
		return
	}
	endAt, err := timeutil.Parse(req.End)
	if err != nil {
		response.Error(c, 400, "EXPORT_INVALID_RANGE", "end is not a valid timestamp")
		return
	}

	result, err := h.exportService.Create(middleware.UserID(c), export.CreateRequest{
		StartAt:        startAt,
		EndAt:          endAt,
		Format:         req.Format,
		IncludeWeather: req.IncludeWeather,
		Timezone:       req.Timezone,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	if result.Job == nil {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.SyncFilename))
		c.Data(http.StatusOK, contentTypeFor(result.SyncFormat), result.SyncPayload)
		return
	}
	response.Accepted(c, toExportJobView(result.Job))
}

// Get handles GET /api/v1/export/:id
func (h *ExportHandler) Get(c *gin.Context) {
	job, err := h.exportService.Get(middleware.UserID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toExportJobView(job))
}

// Download handles GET /api/v1/export/:id/download
func (h *ExportHandler) Download(c *gin.Context) {
	path, filename, err := h.exportService.Download(middleware.UserID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	c.FileAttachment(path, filename)
}

// Cancel handles POST /api/v1/export/:id/cancel
func (h *ExportHandler) Cancel(c *gin.Context) {
	job, err := h.exportService.Cancel(middleware.UserID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toExportJobView(job))
}
