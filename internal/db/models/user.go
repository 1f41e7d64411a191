// Package models contains database model definitions.
package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole is an informational grouping of user accounts.
// Authorization is driven by granted permissions, not by the role tag.
type UserRole string

const (
	// RoleAdmin marks system administrators.
	RoleAdmin UserRole = "ADMIN"
	// RoleWorker marks staff operating the lending desk.
	RoleWorker UserRole = "WORKER"
	// RoleVolunteer marks volunteers logging activity hours.
	RoleVolunteer UserRole = "VOLUNTEER"
	// RoleClient marks clients borrowing equipment.
	RoleClient UserRole = "CLIENT"
)

// User represents a user account in the system.
// A user owns zero or more granted permissions through the user_permissions
// join table; the role tag is informational only.
type User struct {
	// ID is the unique identifier for the user (UUID string).
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
	// Email is the unique login identifier.
	Email string `gorm:"unique;size:255;not null" json:"email"`
	// Password is the Argon2id hashed password. Never serialized.
	Password string `gorm:"size:255;not null" json:"-"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100;not null" json:"firstName"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100;not null" json:"lastName"`
	// Phone is an optional contact number.
	Phone string `gorm:"size:50" json:"phone,omitempty"`
	// Address is an optional contact address.
	Address string `gorm:"size:255" json:"address,omitempty"`
	// Role is the informational role tag (ADMIN, WORKER, VOLUNTEER or CLIENT).
	Role UserRole `gorm:"type:varchar(20);not null;default:'CLIENT'" json:"role"`
	// IsActive indicates whether the account may log in or borrow equipment.
	IsActive bool `gorm:"not null;default:true" json:"isActive"`
	// LastLogin is the timestamp of the most recent successful login.
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	// RefreshTokenHash is the digest of the currently valid refresh token.
	// Empty when the user is logged out. Never serialized.
	RefreshTokenHash string `gorm:"size:128" json:"-"`
	// Permissions are the permission rows granted to this user.
	Permissions []Permission `gorm:"many2many:user_permissions;" json:"permissions,omitempty"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	return nil
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HashPassword hashes a plaintext password with Argon2id and stores the
// encoded hash on the user.
func (u *User) HashPassword(password string) error {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return err
	}

	u.Password = hash

	return nil
}

// VerifyPassword compares a plaintext password against the stored hash.
func (u *User) VerifyPassword(password string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, u.Password)
}
