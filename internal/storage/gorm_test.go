package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/goldenbrick/markermap/internal/models"
	"gorm.io/gorm"
)

var sqliteSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:storage_%d?mode=memory&cache=shared", sqliteSeq.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.User{}, &models.Marker{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func TestGormMarkerRepository(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	repo := NewGormMarkerRepository(conn)

	older := newTestMarker("older")
	older.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	older.ContentItems = []byte(`[{"type":"image","url":"https://example.com/a.jpg"}]`)
	if errCreate := repo.Create(ctx, older); errCreate != nil {
		t.Fatalf("create older: %v", errCreate)
	}
	newer := newTestMarker("newer")
	newer.CreatedAt = time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	if errCreate := repo.Create(ctx, newer); errCreate != nil {
		t.Fatalf("create newer: %v", errCreate)
	}
	if older.ID == 0 || newer.ID == 0 || older.ID == newer.ID {
		t.Fatalf("expected distinct ids, got %d and %d", older.ID, newer.ID)
	}

	list, errList := repo.List(ctx)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	got, errGet := repo.Get(ctx, older.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if got.Latitude != 25.1972 {
		t.Fatalf("unexpected latitude %v", got.Latitude)
	}

	if errDelete := repo.Delete(ctx, older.ID); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if errDelete := repo.Delete(ctx, older.ID); !errors.Is(errDelete, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errDelete)
	}
	if _, errGet = repo.Get(ctx, 9999); !errors.Is(errGet, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errGet)
	}
}

func TestGormUserRepositoryConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(openTestDB(t))

	if errCreate := repo.Create(ctx, &models.User{Username: "admin", Password: "h", Role: models.RoleAdmin}); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if errCreate := repo.Create(ctx, &models.User{Username: "admin", Password: "h"}); !errors.Is(errCreate, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", errCreate)
	}

	user, errFind := repo.FindByUsername(ctx, "admin")
	if errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if _, errFind = repo.FindByID(ctx, user.ID); errFind != nil {
		t.Fatalf("find by id: %v", errFind)
	}
	if _, errFind = repo.FindByUsername(ctx, "nobody"); !errors.Is(errFind, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errFind)
	}
}

func TestGormPingerNilDB(t *testing.T) {
	if err := GormPinger(nil).Ping(context.Background()); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
