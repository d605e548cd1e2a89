// Package repo implements the data persistence layer for the relational
// store, backed by GORM. This file provides repository functions for the
// Phone model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only append and
// query composition.
//
// Error semantics:
//   - On DB errors (constraint violations, connectivity issues, etc.) the
//     raw gorm error is propagated; the worker layer decides whether a
//     failure is transient (retry) or structural (dead-letter).
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-landing-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across layers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreatePhone appends a row for the given canonical phone string with a UTC
// creation timestamp. The table is append-only; there is no update path.
//
// A second row for the same phone is possible when a persist job is
// redelivered after a worker crash; the (phone, created_at) index is
// intentionally non-unique (see domain.Phone). Deployments that need strict
// uniqueness can add a unique constraint on a phone+time-bucket expression
// at the store level.
func CreatePhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Phone, error) {
	p := &domain.Phone{
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// CountPhones returns the total number of stored rows.
func CountPhones(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Phone{}).
		Count(&total).Error
	return total, err
}

// ListPhonesPage returns a paginated slice of rows ordered by creation time
// descending. Use CountPhones for pagination metadata. The caller computes
// offset and limit (e.g. (page-1)*pageSize).
func ListPhonesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Phone, error) {
	var out []domain.Phone
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// PhonesStats returns aggregate metadata for the phones table: the total
// number of rows and the maximum CreatedAt among them. Used for ETag
// generation on the report endpoint. When the table is empty the count is 0
// and maxCreatedAt is nil.
func PhonesStats(ctx context.Context, db *gorm.DB) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Phone{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
