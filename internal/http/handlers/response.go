// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints: a structured error envelope, consistent JSON serialization, and
// helpers for common HTTP patterns, so both success and failure responses
// keep a uniform machine-friendly shape.
//
// Example error response:
//
//	HTTP/1.1 500 Internal Server Error
//	{
//	  "ok": false,
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "error": "internal_error",
//	  "message": "submission could not be accepted"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-landing-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
// OK is always false so clients can branch on one key for both outcomes.
// RequestID echoes X-Request-ID so server logs can be correlated with
// client-side errors; Code is a stable machine-readable string (see
// errors.go); Message is safe for display.
type ErrorResponse struct {
	OK        bool   `json:"ok" example:"false"`
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"error" example:"invalid_phone"`
	Message   string `json:"message" example:"phone does not match the accepted format"`
}

// fail aborts the request with a structured error. Server errors (>=500) are
// logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail(), used by router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
