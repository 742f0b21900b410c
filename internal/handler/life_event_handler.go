package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/wayfarer-backend-go/internal/middleware"
	"github.com/jengzang/wayfarer-backend-go/internal/service"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
	"github.com/jengzang/wayfarer-backend-go/pkg/response"
)

// LifeEventHandler handles HTTP requests for life events
type LifeEventHandler struct {
	eventService *service.LifeEventService
}

// NewLifeEventHandler creates a new life event handler
func NewLifeEventHandler(eventService *service.LifeEventService) *LifeEventHandler {
	return &LifeEventHandler{eventService: eventService}
}

// List handles GET /api/v1/life-events
func (h *LifeEventHandler) List(c *gin.Context) {
	var startAt, endAt int64
	if s := c.Query("start"); s != "" {
		v, err := timeutil.Parse(s)
		if err != nil {
			response.Error(c, 400, "INVALID_TIMESTAMP", "start is not a valid timestamp")
			return
		}
		startAt = v
	}
	if s := c.Query("end"); s != "" {
		v, err := timeutil.Parse(s)
		if err != nil {
			response.Error(c, 400, "INVALID_TIMESTAMP", "end is not a valid timestamp")
			return
		}
		endAt = v
	}

	events, err := h.eventService.List(middleware.UserID(c), startAt, endAt)
	if err != nil {
		response.FromError(c, err)
		return
	}
	views := make([]lifeEventView, 0, len(events))
	for i := range events {
		views = append(views, toLifeEventView(&events[i]))
	}
	response.Success(c, gin.H{"events": views})
}

type lifeEventRequest struct {
	service.LifeEventInput
	Start string `json:"start"`
	End   string `json:"end"`
}

func (h *LifeEventHandler) bindInput(c *gin.Context) (service.LifeEventInput, bool) {
	var req lifeEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, 400, "LIFE_EVENT_MALFORMED", "request body is not a valid life event")
		return service.LifeEventInput{}, false
	}
	startAt, err := timeutil.Parse(req.Start)
	if err != nil {
		response.Error(c, 400, "LIFE_EVENT_INVALID_RANGE", "start is not a valid timestamp")
		return service.LifeEventInput{}, false
	}
	endAt, err := timeutil.Parse(req.End)
	if err != nil {
		response.Error(c, 400, "LIFE_EVENT_INVALID_RANGE", "end is not a valid timestamp")
		return service.LifeEventInput{}, false
	}
	input := req.LifeEventInput
	input.StartAt = startAt
	input.EndAt = endAt
	return input, true
}

// Create handles POST /api/v1/life-events
func (h *LifeEventHandler) Create(c *gin.Context) {
	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	event, err := h.eventService.Create(middleware.UserID(c), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, toLifeEventView(event))
}

// Update handles PUT /api/v1/life-events/:id
func (h *LifeEventHandler) Update(c *gin.Context) {
	input, ok := h.bindInput(c)
	if !ok {
		return
	}

	event, err := h.eventService.Update(middleware.UserID(c), c.Param("id"), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, toLifeEventView(event))
}

// Delete handles DELETE /api/v1/life-events/:id
func (h *LifeEventHandler) Delete(c *gin.Context) {
	if err := h.eventService.Delete(middleware.UserID(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
