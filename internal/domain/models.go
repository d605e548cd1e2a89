// Package domain defines the persistence model and request-scoped value
// objects for the phone ingestion pipeline. The Phone type is mapped with
// GORM and forms the store-of-record for accepted unique submissions.
package domain

import (
	"time"
)

// Phone represents a single accepted unique submission in the relational
// store. Rows are append-only: the pipeline never updates or deletes them.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Phone: the canonical phone string as validated at ingestion time;
//     indexed together with CreatedAt for reporting queries.
//   - CreatedAt: server-assigned insertion timestamp (UTC).
//
// Note: the (phone, created_at) index is deliberately non-unique. A crashed
// worker may redeliver a persist job and produce a second row for the same
// phone; that risk is accepted and bounded by the upstream dedup claim.
type Phone struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Phone     string    `json:"phone"      gorm:"type:varchar(20);not null;index:idx_phone_created,priority:1"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_phone_created,priority:2"`
}

// TableName returns the database table name for Phone.
func (Phone) TableName() string { return "phones" }

// RequestMeta carries the request attributes that travel with a submission
// into the dispatch layer. It is a plain value object extracted once by the
// HTTP handler; nothing downstream touches the framework request.
type RequestMeta struct {
	// Path is the route the submission arrived on (e.g. "/api/v1/submit").
	Path string
	// ClientIP is the caller address after trusted-proxy resolution.
	ClientIP string
	// UserAgent is the raw User-Agent header, possibly empty.
	UserAgent string
	// ReceivedAt is the server clock reading when the request was admitted.
	ReceivedAt time.Time
}

// Submission is an accepted, validated phone submission. It is created once
// per accepted HTTP request, handed to the dispatch layer after validation,
// and never mutated afterwards.
type Submission struct {
	// Phone is the canonical (validated, trimmed) phone string.
	Phone string
	// Meta captures the originating request attributes.
	Meta RequestMeta
}
