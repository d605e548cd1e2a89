// Package workers contains the asynq task handlers that drain the two job
// queues: persist jobs append phone rows to the relational store, audit jobs
// append request records to the audit log store.
//
// Error classification drives the retry machinery: a handler returns a plain
// error for transient faults (store unreachable, timeout) so asynq retries
// with backoff, and wraps asynq.SkipRetry for structural faults (malformed
// payload) that no number of retries can fix — those go straight to the
// archive. Every completion increments the jobs_processed_total counter with
// an ok / retry / dead_letter outcome.
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-landing-backend/internal/observability"
	"github.com/tbourn/go-landing-backend/internal/queue"
	"github.com/tbourn/go-landing-backend/internal/repo"
)

// PhoneWriter is the narrow store contract the persist handler needs.
type PhoneWriter interface {
	WritePhone(ctx context.Context, phone string) error
}

// GormPhoneWriter appends rows through the repo layer.
type GormPhoneWriter struct {
	DB *gorm.DB
}

func (w GormPhoneWriter) WritePhone(ctx context.Context, p string) error {
	_, err := repo.CreatePhone(ctx, w.DB, p)
	return err
}

// PersistHandler processes phone:persist jobs.
type PersistHandler struct {
	store       PhoneWriter
	softTimeout time.Duration
	maxRetry    int
	metrics     *observability.Metrics
	log         zerolog.Logger
}

// NewPersistHandler builds the handler. softTimeout bounds the store write
// inside each attempt; maxRetry must match the enqueue-side policy so the
// handler can tell a retryable failure from a final one when recording
// metrics.
func NewPersistHandler(store PhoneWriter, softTimeout time.Duration, maxRetry int, m *observability.Metrics, log zerolog.Logger) *PersistHandler {
	return &PersistHandler{
		store:       store,
		softTimeout: softTimeout,
		maxRetry:    maxRetry,
		metrics:     m,
		log:         log,
	}
}

// ProcessTask implements asynq.Handler for queue.TypePersistPhone.
func (h *PersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p queue.PersistPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.log.Error().Err(err).Msg("persist job has malformed payload")
		h.observeFailure(ctx, queue.TypePersistPhone, true)
		return fmt.Errorf("unmarshal persist payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.Phone == "" {
		h.observeFailure(ctx, queue.TypePersistPhone, true)
		return fmt.Errorf("persist payload missing phone: %w", asynq.SkipRetry)
	}

	wctx, cancel := context.WithTimeout(ctx, h.softTimeout)
	defer cancel()

	if err := h.store.WritePhone(wctx, p.Phone); err != nil {
		h.log.Warn().Err(err).Str("type", queue.TypePersistPhone).Msg("store write failed")
		h.observeFailure(ctx, queue.TypePersistPhone, false)
		return fmt.Errorf("write phone: %w", err)
	}

	h.metrics.ObserveJob(queue.TypePersistPhone, observability.JobOutcomeOK)
	return nil
}

// observeFailure records a failed attempt. Structural failures and attempts
// that have exhausted the retry budget count as dead_letter; anything else
// will be redelivered and counts as retry.
func (h *PersistHandler) observeFailure(ctx context.Context, taskType string, structural bool) {
	retried, _ := asynq.GetRetryCount(ctx)
	if structural || retried >= h.maxRetry {
		h.metrics.ObserveJob(taskType, observability.JobOutcomeDeadLetter)
		return
	}
	h.metrics.ObserveJob(taskType, observability.JobOutcomeRetry)
}
