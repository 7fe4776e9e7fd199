package models

import "time"

// User roles stored in the users.role column.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account that can sign in to manage markers.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	Username string `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"` // Unique login name.
	Password string `gorm:"type:varchar(255);not null" json:"passwordHash"`        // Bcrypt hash.
	Role     string `gorm:"type:varchar(20);not null;default:user" json:"role"`    // admin or user.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"createdAt"` // Creation timestamp.
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
