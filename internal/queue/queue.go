// Package queue defines the asynchronous dispatch channel between the HTTP
// request path and the worker consumers, carried by asynq over Redis.
//
// Producers (the submission service) enqueue through the Enqueuer interface
// and return as soon as the job is durably recorded in the broker; they never
// wait on worker availability. Consumers (cmd/worker) pull from two
// independent logical queues, one per sink, so a slow relational store cannot
// starve audit logging or vice versa.
//
// Delivery is at-least-once: a worker crash mid-processing redelivers the
// job. The audit sink is append-only and tolerates replays; the persist sink
// relies on the upstream dedup claim to make duplicates rare, and accepts
// the residual risk of a duplicate row after a crash-and-redeliver.
//
// Time budgets follow the soft/hard split of the original deployment: the
// hard budget bounds a whole attempt (asynq cancels the task context and the
// attempt counts as failed), while the soft budget bounds the single store
// write inside the handler. Attempts that keep failing are retried with
// exponential backoff up to MaxRetry, then moved to asynq's archive — the
// dead-letter set — and surfaced through metrics, never dropped silently.
package queue

import (
	"context"
	"time"
)

// Task type names, also used by the worker mux to route handlers.
const (
	TypePersistPhone = "phone:persist"
	TypeAuditLog     = "audit:log"
)

// Queue names. Each worker kind reads its own queue, giving the two sinks
// independent logical subscriptions over the same broker.
const (
	QueuePersist = "persist"
	QueueAudit   = "audit"
)

// PersistPayload is the body of a phone:persist job. Exactly one is enqueued
// per unique submission.
type PersistPayload struct {
	Phone string `json:"phone"`
}

// AuditPayload is the body of an audit:log job. Exactly one is enqueued per
// accepted submission, duplicate or not.
type AuditPayload struct {
	Phone      string    `json:"phone"`
	Path       string    `json:"path"`
	ClientIP   string    `json:"ip"`
	UserAgent  string    `json:"ua"`
	Duplicate  bool      `json:"duplicate"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Enqueuer is the producer-side contract consumed by the submission service.
// Both methods return once the job is durably recorded for dispatch, or an
// error when the broker is unreachable (the request path fails closed on it).
type Enqueuer interface {
	EnqueuePersist(ctx context.Context, p PersistPayload) error
	EnqueueAudit(ctx context.Context, p AuditPayload) error
}

// Policy bundles the per-job execution budget and retry posture applied at
// enqueue time.
type Policy struct {
	// MaxRetry is the number of re-deliveries after the first failed
	// attempt before the job is archived (dead-lettered).
	MaxRetry int
	// SoftTimeout bounds the single store write inside a handler.
	SoftTimeout time.Duration
	// HardTimeout bounds a whole processing attempt; asynq cancels the task
	// context when it elapses.
	HardTimeout time.Duration
	// Retention keeps completed jobs inspectable in the broker for a while.
	Retention time.Duration
}

// DefaultPolicy mirrors the historical deployment defaults: soft 20s,
// hard 30s, five retries, one day of retention.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetry:    5,
		SoftTimeout: 20 * time.Second,
		HardTimeout: 30 * time.Second,
		Retention:   24 * time.Hour,
	}
}

// normalize fills zero fields from DefaultPolicy so a partially configured
// policy never produces an unbounded job.
func (p Policy) normalize() Policy {
	def := DefaultPolicy()
	if p.MaxRetry <= 0 {
		p.MaxRetry = def.MaxRetry
	}
	if p.SoftTimeout <= 0 {
		p.SoftTimeout = def.SoftTimeout
	}
	if p.HardTimeout <= 0 {
		p.HardTimeout = def.HardTimeout
	}
	if p.HardTimeout < p.SoftTimeout {
		p.HardTimeout = p.SoftTimeout
	}
	if p.Retention <= 0 {
		p.Retention = def.Retention
	}
	return p
}
