// Submission HTTP handler.
//
// This file exposes the REST endpoint that admits phone submissions:
//   - POST /submit (relative to the API base path)
//
// The handler resolves request metadata (client IP, UA), applies a short
// per-request budget to the claim-and-dispatch section, and records the
// endpoint_requests_total / endpoint_request_duration_seconds pair exactly
// once per request whatever the outcome.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-landing-backend/internal/domain"
	"github.com/tbourn/go-landing-backend/internal/http/middleware"
	"github.com/tbourn/go-landing-backend/internal/services"
)

// SubmitRequest is the JSON payload for a phone submission.
type SubmitRequest struct {
	// Phone is the raw phone string; surrounding whitespace is tolerated.
	Phone string `json:"phone" binding:"required" example:"+14155550100"`
}

// SubmitResponse is the success envelope for accepted submissions.
type SubmitResponse struct {
	OK bool `json:"ok" example:"true"`
	// Duplicate is true when the phone was already submitted inside the
	// suppression window; the submission was recorded for analytics only.
	Duplicate bool `json:"duplicate" example:"false"`
}

// Submit godoc
// @ID          submitPhone
// @Summary     Submit a phone number
// @Description Validates the phone, suppresses duplicates within the
// @Description configured window, and dispatches background persistence and
// @Description audit jobs. Duplicates are acknowledged with duplicate=true.
// @Tags        Submission
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SubmitRequest  true  "Submission payload"
//
// @Success     200  {object} handlers.SubmitResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid phone"
// @Failure     429  {object} handlers.ErrorResponse "Rate limit exceeded"
// @Failure     500  {object} handlers.ErrorResponse "Dependency unavailable"
// @Router      /submit [post]
func (h *Handlers) Submit(c *gin.Context) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		h.metrics.ObserveEndpoint(strconv.Itoa(status), time.Since(start))
	}()

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status = http.StatusBadRequest
		fail(c, status, ErrCodeBadRequest, "phone is required")
		return
	}

	meta := domain.RequestMeta{
		Path:       c.FullPath(),
		ClientIP:   middleware.ClientIP(c, h.opts.TrustedProxyHeader),
		UserAgent:  c.Request.UserAgent(),
		ReceivedAt: start.UTC(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.SubmitTimeout)
	defer cancel()

	res, err := h.svc.Submit(ctx, req.Phone, meta)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPhone):
			status = http.StatusBadRequest
			fail(c, status, ErrCodeInvalidPhone, "phone does not match the accepted format")
		default:
			// Dependency failures and timeouts fail closed: nothing was
			// accepted, the client should retry later.
			status = http.StatusInternalServerError
			fail(c, status, ErrCodeInternal, "submission could not be accepted")
		}
		return
	}

	ok(c, http.StatusOK, SubmitResponse{OK: true, Duplicate: res.Duplicate})
}
