// Phones report HTTP handler.
//
// GET /phones (relative to the API base path) returns a paginated listing of
// stored submissions, most recent first. Responses carry a weak ETag derived
// from the table's row count and newest timestamp, so polling dashboards can
// revalidate cheaply with If-None-Match.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-landing-backend/internal/http/middleware"
	"github.com/tbourn/go-landing-backend/internal/repo"
	"github.com/tbourn/go-landing-backend/internal/utils"
)

// maxPageSize caps page_size for the phones report.
const maxPageSize = 100

// PhoneItem is one row of the phones report.
type PhoneItem struct {
	Phone     string    `json:"phone" example:"+14155550100"`
	CreatedAt time.Time `json:"created_at"`
}

// PhonesResponse is the paginated phones report envelope.
type PhonesResponse struct {
	Total    int64       `json:"total" example:"1042"`
	Page     int         `json:"page" example:"1"`
	PageSize int         `json:"page_size" example:"20"`
	Items    []PhoneItem `json:"items"`
}

// ListPhones godoc
// @ID          listPhones
// @Summary     List stored submissions
// @Description Paginated listing of persisted phone submissions, newest
// @Description first. Supports ETag revalidation via If-None-Match.
// @Tags        Report
// @Produce     json
//
// @Param       page       query  int  false  "1-based page"       default(1)
// @Param       page_size  query  int  false  "rows per page"      default(20)  maximum(100)
//
// @Success     200  {object} handlers.PhonesResponse
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /phones [get]
func (h *Handlers) ListPhones(c *gin.Context) {
	page := utils.AtoiDefault(c.Query("page"), 1)
	pageSize := utils.AtoiDefault(c.Query("page_size"), 20)
	page, pageSize = utils.ClampPagination(page, pageSize, maxPageSize)

	ctx := c.Request.Context()

	total, maxTS, err := repo.PhonesStats(ctx, h.db)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("phones stats query")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "store unavailable")
		return
	}

	// Weak validator: changes whenever a row is appended. Page parameters
	// are folded in so each page revalidates independently.
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"phones-%d-%d-%d-%d"`, total, ts, page, pageSize)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	rows, err := repo.ListPhonesPage(ctx, h.db, (page-1)*pageSize, pageSize)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("phones page query")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "store unavailable")
		return
	}

	items := make([]PhoneItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, PhoneItem{Phone: r.Phone, CreatedAt: r.CreatedAt})
	}

	ok(c, http.StatusOK, PhonesResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}
