// Package storage persists users and markers.
//
// Two backends satisfy the same repository contracts: a gorm-backed SQL store
// (the primary) and a JSON document on local disk (the substitute). Context
// routes every operation to one of them and owns the one-way switch from the
// primary to the substitute when the database becomes unreachable.
package storage

import (
	"context"
	"errors"

	"github.com/goldenbrick/markermap/internal/models"
)

// Storage errors shared by all backends.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict indicates a unique constraint would be violated.
	ErrConflict = errors.New("storage: conflict")
	// ErrUnavailable indicates neither backend could serve the operation.
	ErrUnavailable = errors.New("storage: unavailable")
)

// MarkerRepository stores markers.
type MarkerRepository interface {
	// List returns all markers, newest first.
	List(ctx context.Context) ([]models.Marker, error)
	// Get returns one marker or ErrNotFound.
	Get(ctx context.Context, id uint64) (*models.Marker, error)
	// Create assigns an id to marker and stores it.
	Create(ctx context.Context, marker *models.Marker) error
	// Delete removes one marker or returns ErrNotFound.
	Delete(ctx context.Context, id uint64) error
}

// UserRepository stores user accounts.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uint64) (*models.User, error)
	// Create assigns an id to user and stores it, or returns ErrConflict for a taken username.
	Create(ctx context.Context, user *models.User) error
}

// Pinger checks primary connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
