// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they validate input, resolve request metadata,
// delegate to the submission service or the repo layer, and translate domain
// errors into HTTP results.
package handlers

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-landing-backend/internal/domain"
	"github.com/tbourn/go-landing-backend/internal/observability"
	"github.com/tbourn/go-landing-backend/internal/services"
)

// SubmissionAPI is the service contract the submit endpoint depends on.
type SubmissionAPI interface {
	Submit(ctx context.Context, raw string, meta domain.RequestMeta) (services.Result, error)
}

// Options configures handler construction.
type Options struct {
	// SubmitTimeout bounds the claim-and-dispatch section of the submit flow.
	SubmitTimeout time.Duration
	// TrustedProxyHeader names the header used to resolve the client IP
	// behind a reverse proxy; empty disables header lookup.
	TrustedProxyHeader string
	// LandingCacheTTL is how long the landing payload is served from cache.
	LandingCacheTTL time.Duration
}

// Handlers aggregates the dependencies of all endpoint handlers.
type Handlers struct {
	svc     SubmissionAPI
	db      *gorm.DB
	metrics *observability.Metrics
	opts    Options

	// landing payload cache; guarded by landingMu.
	landingMu  sync.Mutex
	landing    *LandingResponse
	landingExp time.Time

	// now is a clock seam for the landing cache tests.
	now func() time.Time
}

// New wires the handler set. Zero Options fields get sensible defaults.
func New(svc SubmissionAPI, db *gorm.DB, m *observability.Metrics, opts Options) *Handlers {
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 2 * time.Second
	}
	if opts.LandingCacheTTL <= 0 {
		opts.LandingCacheTTL = time.Minute
	}
	return &Handlers{
		svc:     svc,
		db:      db,
		metrics: m,
		opts:    opts,
		now:     time.Now,
	}
}
