package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/wayfarer-backend-go/internal/middleware"
	"github.com/jengzang/wayfarer-backend-go/internal/service"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
	"github.com/jengzang/wayfarer-backend-go/pkg/response"
)

// TrackHandler handles HTTP requests for track points and edits
type TrackHandler struct {
	trackService *service.TrackService
	editService  *service.EditService
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(trackService *service.TrackService, editService *service.EditService) *TrackHandler {
	return &TrackHandler{
		trackService: trackService,
		editService:  editService,
	}
}

type batchRequest struct {
	Points []service.PointInput `json:"points"`
}

// IngestBatch handles POST /api/v1/tracks/batch
func (h *TrackHandler) IngestBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "TRACK_BATCH_MALFORMED", "request body is not a valid batch")
		return
	}

	result, err := h.trackService.IngestBatch(middleware.UserID(c), req.Points)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// QueryPoints handles GET /api/v1/tracks/query
func (h *TrackHandler) QueryPoints(c *gin.Context) {
	startAt, endAt, ok := parseWindow(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	points, err := h.trackService.QueryWindow(middleware.UserID(c), startAt, endAt, limit, offset)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{
		"points": toPointViews(points),
		"count":  len(points),
	})
}

type editRequest struct {
	Type  string  `json:"type"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Note  *string `json:"note"`
}

// CreateEdit handles POST /api/v1/tracks/edits
func (h *TrackHandler) CreateEdit(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "EDIT_INVALID_RANGE", "request body is not a valid edit")
		return
	}
	startAt, err := timeutil.Parse(req.Start)
	if err != nil {
		response.Error(c, 400, "EDIT_INVALID_RANGE", "start is not a valid timestamp")
		return
	}
	endAt, err := timeutil.Parse(req.End)
	if err != nil {
		response.Error(c, 400, "EDIT_INVALID_RANGE", "end is not a valid timestamp")
		return
	}

	result, err := h.editService.Create(middleware.UserID(c), req.Type, startAt, endAt, req.Note)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{
		"editId":       result.Edit.ID,
		"appliedCount": result.AppliedCount,
		"edit":         toEditView(result.Edit),
	})
}

// ListEdits handles GET /api/v1/tracks/edits
func (h *TrackHandler) ListEdits(c *gin.Context) {
	edits, err := h.editService.List(middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	views := make([]editView, 0, len(edits))
	for i := range edits {
		views = append(views, toEditView(&edits[i]))
	}
	response.Success(c, gin.H{"edits": views})
}

// CancelEdit handles DELETE /api/v1/tracks/edits/:id
func (h *TrackHandler) CancelEdit(c *gin.Context) {
	edit, err := h.editService.Cancel(middleware.UserID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toEditView(edit))
}

// parseWindow reads the required start/end query parameters.
func parseWindow(c *gin.Context) (int64, int64, bool) {
	startAt, err := timeutil.Parse(c.Query("start"))
	if err != nil {
		response.Error(c, 400, "INVALID_TIMESTAMP", "start is not a valid timestamp")
		return 0, 0, false
	}
	endAt, err := timeutil.Parse(c.Query("end"))
	if err != nil {
		response.Error(c, 400, "INVALID_TIMESTAMP", "end is not a valid timestamp")
		return 0, 0, false
	}
	return startAt, endAt, true
}
