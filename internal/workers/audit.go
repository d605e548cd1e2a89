package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-landing-backend/internal/auditlog"
	"github.com/tbourn/go-landing-backend/internal/observability"
	"github.com/tbourn/go-landing-backend/internal/queue"
)

// AuditHandler processes audit:log jobs by appending one entry per job to the
// audit store. The store is append-only, so redelivered jobs at worst write
// the same entry twice.
type AuditHandler struct {
	store       auditlog.Store
	softTimeout time.Duration
	maxRetry    int
	metrics     *observability.Metrics
	log         zerolog.Logger
}

// NewAuditHandler builds the handler; parameters mirror NewPersistHandler.
func NewAuditHandler(store auditlog.Store, softTimeout time.Duration, maxRetry int, m *observability.Metrics, log zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		store:       store,
		softTimeout: softTimeout,
		maxRetry:    maxRetry,
		metrics:     m,
		log:         log,
	}
}

// ProcessTask implements asynq.Handler for queue.TypeAuditLog.
func (h *AuditHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p queue.AuditPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error().Err(err).Msg("audit job has malformed payload")
		h.observeFailure(ctx, true)
		return fmt.Errorf("unmarshal audit payload: %v: %w", err, asynq.SkipRetry)
	}

	wctx, cancel := context.WithTimeout(ctx, h.softTimeout)
	defer cancel()

	entry := auditlog.Entry{
		Phone:      p.Phone,
		Path:       p.Path,
		ClientIP:   p.ClientIP,
		UserAgent:  p.UserAgent,
		Duplicate:  p.Duplicate,
		EnqueuedAt: p.EnqueuedAt,
	}
	if err := h.store.Insert(wctx, entry); err != nil {
		h.log.Warn().Err(err).Str("type", queue.TypeAuditLog).Msg("audit insert failed")
		h.observeFailure(ctx, false)
		return fmt.Errorf("insert audit entry: %w", err)
	}

	h.metrics.ObserveJob(queue.TypeAuditLog, observability.JobOutcomeOK)
	return nil
}

func (h *AuditHandler) observeFailure(ctx context.Context, structural bool) {
	retried, _ := asynq.GetRetryCount(ctx)
	if structural || retried >= h.maxRetry {
		h.metrics.ObserveJob(queue.TypeAuditLog, observability.JobOutcomeDeadLetter)
		return
	}
	h.metrics.ObserveJob(queue.TypeAuditLog, observability.JobOutcomeRetry)
}
