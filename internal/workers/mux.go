package workers

import (
	"github.com/hibiken/asynq"

	"github.com/tbourn/go-landing-backend/internal/queue"
)

// NewMux routes task types to their handlers. Both queues share one mux; the
// asynq server's queue map decides which queues a worker process drains.
func NewMux(persist *PersistHandler, audit *AuditHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(queue.TypePersistPhone, persist)
	mux.Handle(queue.TypeAuditLog, audit)
	return mux
}
