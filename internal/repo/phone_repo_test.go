package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-landing-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:phonerepo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestCreatePhone_AppendsRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p, err := CreatePhone(ctx, db, "+14155550100")
	if err != nil {
		t.Fatalf("CreatePhone: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("expected auto-assigned ID, got 0")
	}
	if p.Phone != "+14155550100" {
		t.Fatalf("phone = %q", p.Phone)
	}
	if p.CreatedAt.IsZero() || time.Since(p.CreatedAt) > time.Minute {
		t.Fatalf("unexpected CreatedAt: %v", p.CreatedAt)
	}

	var got domain.Phone
	if err := db.First(&got, p.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if got.Phone != p.Phone {
		t.Fatalf("stored phone = %q, want %q", got.Phone, p.Phone)
	}
}

func TestCreatePhone_DuplicateRowsAllowed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Redelivered persist jobs may write the same phone twice; the store
	// must not reject the second append.
	if _, err := CreatePhone(ctx, db, "+14155550100"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreatePhone(ctx, db, "+14155550100"); err != nil {
		t.Fatalf("second create: %v", err)
	}
	n, err := CountPhones(ctx, db)
	if err != nil {
		t.Fatalf("CountPhones: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func TestListPhonesPage_OrderAndBounds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Seed with explicit timestamps so ordering is deterministic.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		row := &domain.Phone{Phone: fmt.Sprintf("+1415555010%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	page, err := ListPhonesPage(ctx, db, 0, 2)
	if err != nil {
		t.Fatalf("ListPhonesPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len = %d, want 2", len(page))
	}
	// Most recent first.
	if page[0].Phone != "+14155550104" || page[1].Phone != "+14155550103" {
		t.Fatalf("unexpected order: %q, %q", page[0].Phone, page[1].Phone)
	}

	// Offset past the end returns an empty slice, not an error.
	tail, err := ListPhonesPage(ctx, db, 10, 2)
	if err != nil {
		t.Fatalf("ListPhonesPage past end: %v", err)
	}
	if len(tail) != 0 {
		t.Fatalf("expected empty page, got %d rows", len(tail))
	}
}

func TestPhonesStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	count, maxTS, err := PhonesStats(ctx, db)
	if err != nil {
		t.Fatalf("PhonesStats empty: %v", err)
	}
	if count != 0 || maxTS != nil {
		t.Fatalf("empty stats = (%d, %v), want (0, nil)", count, maxTS)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		row := &domain.Phone{Phone: "+14155550100", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	count, maxTS, err = PhonesStats(ctx, db)
	if err != nil {
		t.Fatalf("PhonesStats: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if maxTS == nil || !maxTS.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("maxCreatedAt = %v, want %v", maxTS, base.Add(2*time.Hour))
	}
}
