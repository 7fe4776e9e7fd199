package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goldenbrick/markermap/internal/models"
	"gorm.io/gorm"
)

// GormMarkerRepository stores markers in the markers table.
type GormMarkerRepository struct {
	db *gorm.DB
}

// NewGormMarkerRepository constructs a GormMarkerRepository.
func NewGormMarkerRepository(db *gorm.DB) *GormMarkerRepository {
	return &GormMarkerRepository{db: db}
}

// List returns all markers ordered by creation time, newest first.
func (r *GormMarkerRepository) List(ctx context.Context) ([]models.Marker, error) {
	var rows []models.Marker
	if errFind := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("storage: list markers: %w", errFind)
	}
	return rows, nil
}

// Get returns a single marker by id.
func (r *GormMarkerRepository) Get(ctx context.Context, id uint64) (*models.Marker, error) {
	var row models.Marker
	if errFind := r.db.WithContext(ctx).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get marker: %w", errFind)
	}
	return &row, nil
}

// Create inserts a marker; the database assigns the id.
func (r *GormMarkerRepository) Create(ctx context.Context, marker *models.Marker) error {
	marker.ID = 0
	if len(marker.ContentItems) == 0 {
		marker.ContentItems = []byte("[]")
	}
	if errCreate := r.db.WithContext(ctx).Create(marker).Error; errCreate != nil {
		return fmt.Errorf("storage: create marker: %w", errCreate)
	}
	return nil
}

// Delete removes a marker in a single statement so concurrent deletes succeed once.
func (r *GormMarkerRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&models.Marker{}, id)
	if res.Error != nil {
		return fmt.Errorf("storage: delete marker: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormUserRepository stores users in the users table.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository constructs a GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByUsername looks a user up by exact username.
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if errFind := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: find user: %w", errFind)
	}
	return &user, nil
}

// FindByID looks a user up by id.
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if errFind := r.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: find user: %w", errFind)
	}
	return &user, nil
}

// Create inserts a user.
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = 0
	if errCreate := r.db.WithContext(ctx).Create(user).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			return ErrConflict
		}
		return fmt.Errorf("storage: create user: %w", errCreate)
	}
	return nil
}

// GormPinger pings the connection pool behind a gorm handle.
func GormPinger(db *gorm.DB) Pinger {
	return PingFunc(func(ctx context.Context) error {
		if db == nil {
			return errors.New("storage: primary database not configured")
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

// isUniqueViolation recognises unique-constraint errors from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "sqlstate 23505")
}
