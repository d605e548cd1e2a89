// Landing HTTP handler.
//
// GET / serves a small service descriptor with the total number of stored
// submissions. The count query is read-through cached for a short TTL so the
// landing page never becomes a load amplifier on the relational store.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-landing-backend/internal/http/middleware"
	"github.com/tbourn/go-landing-backend/internal/repo"
)

// LandingResponse is the public landing payload.
type LandingResponse struct {
	Service     string    `json:"service" example:"go-landing-backend"`
	Status      string    `json:"status" example:"ok"`
	TotalPhones int64     `json:"total_phones" example:"1042"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Landing godoc
// @ID          landing
// @Summary     Landing page
// @Description Service descriptor with the total number of stored
// @Description submissions. The total is cached briefly, so it may lag the
// @Description store by up to the cache TTL.
// @Tags        Landing
// @Produce     json
// @Success     200  {object} handlers.LandingResponse
// @Failure     500  {object} handlers.ErrorResponse "Store unavailable"
// @Router      / [get]
func (h *Handlers) Landing(c *gin.Context) {
	now := h.now()

	h.landingMu.Lock()
	if h.landing != nil && now.Before(h.landingExp) {
		resp := *h.landing
		h.landingMu.Unlock()
		ok(c, http.StatusOK, resp)
		return
	}
	h.landingMu.Unlock()

	total, err := repo.CountPhones(c.Request.Context(), h.db)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("landing count query")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "store unavailable")
		return
	}

	resp := LandingResponse{
		Service:     "go-landing-backend",
		Status:      "ok",
		TotalPhones: total,
		GeneratedAt: now.UTC(),
	}

	h.landingMu.Lock()
	h.landing = &resp
	h.landingExp = now.Add(h.opts.LandingCacheTTL)
	h.landingMu.Unlock()

	ok(c, http.StatusOK, resp)
}
