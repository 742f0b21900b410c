package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/wayfarer-backend-go/internal/apperr"
)

// ErrorBody is the standard error envelope
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success sends a 200 response with the given payload
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response with the given payload
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Accepted sends a 202 response with the given payload
func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, data)
}

// Error sends an error envelope with a stable code
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorBody{Code: code, Message: message})
}

// FromError maps a service error onto the envelope: apperr.Error keeps its
// code and status, anything else becomes an opaque 500.
func FromError(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.JSON(ae.Status, ErrorBody{Code: ae.Code, Message: ae.Message, Details: ae.Details})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Message: "internal error"})
}
