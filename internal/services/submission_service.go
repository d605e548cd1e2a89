// Package services contains the business-logic layer.
//
// SubmissionService implements the admission flow for phone submissions:
// validate the raw input, claim the phone in the dedup cache, then dispatch
// background jobs. The HTTP layer stays thin; everything that decides whether
// a submission is accepted, duplicate, or rejected lives here.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-landing-backend/internal/dedup"
	"github.com/tbourn/go-landing-backend/internal/domain"
	"github.com/tbourn/go-landing-backend/internal/phone"
	"github.com/tbourn/go-landing-backend/internal/queue"
)

// ErrInvalidPhone mirrors phone.ErrInvalidPhone so callers can depend on the
// service package alone.
var ErrInvalidPhone = phone.ErrInvalidPhone

// ErrDependencyUnavailable is returned when the dedup cache or the task queue
// cannot be reached. The flow fails closed: no job is enqueued and the caller
// must report a server-side error, never a silent accept.
var ErrDependencyUnavailable = errors.New("dependency_unavailable")

// Result describes the outcome of an accepted submission.
type Result struct {
	// Phone is the canonical (trimmed) phone string that was admitted.
	Phone string
	// Duplicate is true when the phone was already claimed inside the
	// suppression window; only the audit job was dispatched.
	Duplicate bool
}

// SubmissionService coordinates validation, duplicate suppression, and job
// dispatch. All dependencies are interfaces so tests can substitute fakes.
type SubmissionService struct {
	validator *phone.Validator
	cache     dedup.Cache
	enq       queue.Enqueuer
	ttl       time.Duration
	log       zerolog.Logger
}

// NewSubmissionService wires the admission flow. ttl is the dedup suppression
// window (a claim blocks persist jobs for the same phone until it expires).
func NewSubmissionService(v *phone.Validator, c dedup.Cache, e queue.Enqueuer, ttl time.Duration, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		validator: v,
		cache:     c,
		enq:       e,
		ttl:       ttl,
		log:       log,
	}
}

// Submit runs the full admission flow for one raw submission:
//
//  1. Validate raw against the configured pattern (trim first).
//  2. Claim the canonical phone in the dedup cache.
//  3. Enqueue an audit job describing the request (every valid submission,
//     duplicate or not).
//  4. Enqueue a persist job only when the claim was won.
//
// A duplicate is not an error: Submit returns Result{Duplicate: true} and nil.
// Cache or queue failures return ErrDependencyUnavailable; in that case no
// job has been enqueued for a fresh claim that could not be dispatched, and
// the claim itself may remain in the cache until its TTL expires (clients
// retrying within the window will be treated as duplicates, which is the
// at-most-once side of the tradeoff documented in the dedup package).
func (s *SubmissionService) Submit(ctx context.Context, raw string, meta domain.RequestMeta) (Result, error) {
	canonical, err := s.validator.Validate(raw)
	if err != nil {
		return Result{}, err
	}

	fresh, err := s.cache.Claim(ctx, dedup.Key(canonical), s.ttl)
	if err != nil {
		s.log.Error().Err(err).Str("path", meta.Path).Msg("dedup cache unavailable")
		return Result{}, fmt.Errorf("%w: dedup claim: %v", ErrDependencyUnavailable, err)
	}

	if err := s.enq.EnqueueAudit(ctx, queue.AuditPayload{
		Phone:      canonical,
		Path:       meta.Path,
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Duplicate:  !fresh,
		EnqueuedAt: meta.ReceivedAt,
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue audit job")
		return Result{}, fmt.Errorf("%w: enqueue audit: %v", ErrDependencyUnavailable, err)
	}

	if !fresh {
		s.log.Debug().Str("ip", meta.ClientIP).Msg("duplicate submission suppressed")
		return Result{Phone: canonical, Duplicate: true}, nil
	}

	if err := s.enq.EnqueuePersist(ctx, queue.PersistPayload{Phone: canonical}); err != nil {
		s.log.Error().Err(err).Msg("enqueue persist job")
		return Result{}, fmt.Errorf("%w: enqueue persist: %v", ErrDependencyUnavailable, err)
	}

	return Result{Phone: canonical, Duplicate: false}, nil
}
