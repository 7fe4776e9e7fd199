package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goldenbrick/markermap/internal/models"
	"github.com/goldenbrick/markermap/internal/security"
	"github.com/goldenbrick/markermap/internal/storage"
	log "github.com/sirupsen/logrus"
)

// EnsureDefaultAdmin creates the admin account when no user has that username.
// It reports whether an account was created.
func EnsureDefaultAdmin(ctx context.Context, users storage.UserRepository, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, fmt.Errorf("auth: default admin requires username and password")
	}

	_, errFind := users.FindByUsername(ctx, username)
	if errFind == nil {
		return false, nil
	}
	if !errors.Is(errFind, storage.ErrNotFound) {
		return false, fmt.Errorf("auth: look up default admin: %w", errFind)
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return false, fmt.Errorf("auth: hash default admin password: %w", errHash)
	}
	admin := &models.User{Username: username, Password: hash, Role: models.RoleAdmin}
	if errCreate := users.Create(ctx, admin); errCreate != nil {
		if errors.Is(errCreate, storage.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("auth: create default admin: %w", errCreate)
	}
	log.Infof("auth: default admin %q created", username)
	return true, nil
}

// AdminSeeder adapts EnsureDefaultAdmin to the substitute store seed hook.
func AdminSeeder(username, password string) storage.SeedFunc {
	return func(ctx context.Context, users storage.UserRepository, _ storage.MarkerRepository) error {
		_, err := EnsureDefaultAdmin(ctx, users, username, password)
		return err
	}
}
