// Package queue defines the asynchronous dispatch channel between the HTTP
// request path and the worker consumers.
//
// This file provides the producer-side asynq client.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Client is the asynq-backed Enqueuer used in production. Enqueue calls
// perform a single Redis write and return; worker execution is fully
// decoupled.
type Client struct {
	c      *asynq.Client
	policy Policy
}

// NewClient builds a Client over the given Redis connection with policy
// applied to every enqueued job. Zero policy fields fall back to
// DefaultPolicy.
func NewClient(redis asynq.RedisConnOpt, policy Policy) *Client {
	return &Client{
		c:      asynq.NewClient(redis),
		policy: policy.normalize(),
	}
}

// Close releases the underlying broker connection.
func (c *Client) Close() error { return c.c.Close() }

// EnqueuePersist records a phone:persist job on the persist queue.
func (c *Client) EnqueuePersist(ctx context.Context, p PersistPayload) error {
	return c.enqueue(ctx, TypePersistPhone, QueuePersist, p)
}

// EnqueueAudit records an audit:log job on the audit queue.
func (c *Client) EnqueueAudit(ctx context.Context, p AuditPayload) error {
	return c.enqueue(ctx, TypeAuditLog, QueueAudit, p)
}

// enqueue marshals payload and submits it with the client's policy. The
// returned error is non-nil only when the job could not be durably recorded;
// callers treat that as a dependency failure for the whole request.
func (c *Client) enqueue(ctx context.Context, typename, qname string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", typename, err)
	}
	task := asynq.NewTask(typename, b)
	_, err = c.c.EnqueueContext(ctx, task,
		asynq.Queue(qname),
		asynq.MaxRetry(c.policy.MaxRetry),
		asynq.Timeout(c.policy.HardTimeout),
		asynq.Retention(c.policy.Retention),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", typename, err)
	}
	return nil
}
