package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-landing-backend/internal/auditlog"
	"github.com/tbourn/go-landing-backend/internal/observability"
	"github.com/tbourn/go-landing-backend/internal/queue"
)

// flakyWriter fails the first failUntil writes, then succeeds.
type flakyWriter struct {
	failUntil int
	calls     int
	phones    []string
}

func (w *flakyWriter) WritePhone(_ context.Context, p string) error {
	w.calls++
	if w.calls <= w.failUntil {
		return errors.New("store unavailable")
	}
	w.phones = append(w.phones, p)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}

func persistTask(t *testing.T, p queue.PersistPayload) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(queue.TypePersistPhone, b)
}

func TestPersistHandler_WritesPhone(t *testing.T) {
	w := &flakyWriter{}
	m := newTestMetrics()
	h := NewPersistHandler(w, 20*time.Second, 5, m, zerolog.Nop())

	err := h.ProcessTask(context.Background(), persistTask(t, queue.PersistPayload{Phone: "+14155550100"}))
	if err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(w.phones) != 1 || w.phones[0] != "+14155550100" {
		t.Fatalf("written phones = %v", w.phones)
	}
	got := testutil.ToFloat64(m.JobsProcessed.WithLabelValues(queue.TypePersistPhone, observability.JobOutcomeOK))
	if got != 1 {
		t.Fatalf("ok counter = %v, want 1", got)
	}
}

func TestPersistHandler_TransientFailureRetries(t *testing.T) {
	w := &flakyWriter{failUntil: 2}
	m := newTestMetrics()
	h := NewPersistHandler(w, 20*time.Second, 5, m, zerolog.Nop())

	task := persistTask(t, queue.PersistPayload{Phone: "+14155550100"})

	// Two failing attempts: each must return a retryable error.
	for i := 0; i < 2; i++ {
		err := h.ProcessTask(context.Background(), task)
		if err == nil {
			t.Fatalf("attempt %d: expected error", i+1)
		}
		if errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("attempt %d: transient failure marked SkipRetry", i+1)
		}
	}
	// Third attempt succeeds; exactly one row is written overall.
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("final attempt: %v", err)
	}
	if len(w.phones) != 1 {
		t.Fatalf("written phones = %v, want exactly one", w.phones)
	}
	retries := testutil.ToFloat64(m.JobsProcessed.WithLabelValues(queue.TypePersistPhone, observability.JobOutcomeRetry))
	if retries != 2 {
		t.Fatalf("retry counter = %v, want 2", retries)
	}
}

func TestPersistHandler_MalformedPayloadSkipsRetry(t *testing.T) {
	w := &flakyWriter{}
	m := newTestMetrics()
	h := NewPersistHandler(w, 20*time.Second, 5, m, zerolog.Nop())

	err := h.ProcessTask(context.Background(), asynq.NewTask(queue.TypePersistPhone, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if w.calls != 0 {
		t.Fatalf("store touched for malformed payload")
	}
	dead := testutil.ToFloat64(m.JobsProcessed.WithLabelValues(queue.TypePersistPhone, observability.JobOutcomeDeadLetter))
	if dead != 1 {
		t.Fatalf("dead_letter counter = %v, want 1", dead)
	}
}

func TestPersistHandler_EmptyPhoneSkipsRetry(t *testing.T) {
	w := &flakyWriter{}
	h := NewPersistHandler(w, 20*time.Second, 5, newTestMetrics(), zerolog.Nop())

	err := h.ProcessTask(context.Background(), persistTask(t, queue.PersistPayload{}))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if w.calls != 0 {
		t.Fatalf("store touched for empty phone")
	}
}

func TestAuditHandler_InsertsEntry(t *testing.T) {
	store := auditlog.NewMemoryStore()
	m := newTestMetrics()
	h := NewAuditHandler(store, 20*time.Second, 5, m, zerolog.Nop())

	enq := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	b, err := json.Marshal(queue.AuditPayload{
		Phone:      "+14155550100",
		Path:       "/api/v1/submit",
		ClientIP:   "203.0.113.7",
		UserAgent:  "test-agent",
		Duplicate:  true,
		EnqueuedAt: enq,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	if err := h.ProcessTask(context.Background(), asynq.NewTask(queue.TypeAuditLog, b)); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Phone != "+14155550100" || !e.Duplicate || e.ClientIP != "203.0.113.7" {
		t.Fatalf("entry = %+v", e)
	}
	if !e.EnqueuedAt.Equal(enq) {
		t.Fatalf("EnqueuedAt = %v, want %v", e.EnqueuedAt, enq)
	}
	ok := testutil.ToFloat64(m.JobsProcessed.WithLabelValues(queue.TypeAuditLog, observability.JobOutcomeOK))
	if ok != 1 {
		t.Fatalf("ok counter = %v, want 1", ok)
	}
}

func TestAuditHandler_StoreFailureIsRetryable(t *testing.T) {
	store := auditlog.NewMemoryStore()
	store.FailWith = errors.New("mongo unreachable")
	h := NewAuditHandler(store, 20*time.Second, 5, newTestMetrics(), zerolog.Nop())

	b, _ := json.Marshal(queue.AuditPayload{Phone: "+14155550100"})
	err := h.ProcessTask(context.Background(), asynq.NewTask(queue.TypeAuditLog, b))
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient store failure marked SkipRetry")
	}
}

func TestNewMux_RoutesBothTypes(t *testing.T) {
	w := &flakyWriter{}
	m := newTestMetrics()
	persist := NewPersistHandler(w, time.Second, 5, m, zerolog.Nop())
	audit := NewAuditHandler(auditlog.NewMemoryStore(), time.Second, 5, m, zerolog.Nop())

	mux := NewMux(persist, audit)

	if err := mux.ProcessTask(context.Background(), persistTask(t, queue.PersistPayload{Phone: "+14155550100"})); err != nil {
		t.Fatalf("persist via mux: %v", err)
	}
	b, _ := json.Marshal(queue.AuditPayload{Phone: "+14155550100"})
	if err := mux.ProcessTask(context.Background(), asynq.NewTask(queue.TypeAuditLog, b)); err != nil {
		t.Fatalf("audit via mux: %v", err)
	}
}
