// Package auth authenticates users and decides who may change markers.
package auth

import (
	"strings"

	"github.com/goldenbrick/markermap/internal/models"
)

// Role is the single authorization attribute of an account.
type Role string

// Known roles.
const (
	RoleAdmin Role = models.RoleAdmin
	RoleUser  Role = models.RoleUser
)

// ParseRole maps stored role strings to a Role; anything unknown is treated as RoleUser.
func ParseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// Identity is the caller as asserted by a verified session token.
type Identity struct {
	UserID   uint64 `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// CanWrite reports whether identity may create or delete markers.
// A nil identity is anonymous and may only read.
func CanWrite(identity *Identity) bool {
	return identity != nil && identity.Role == RoleAdmin
}
