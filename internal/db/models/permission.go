package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission represents a named access right in resource:action format
// (e.g. "loans:write"). Permissions are seeded reference data; they are
// granted to users directly through the user_permissions join table.
type Permission struct {
	// ID is the unique identifier for the permission (UUID string).
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
	// Name is the unique permission identifier, e.g. "loans:read".
	Name string `gorm:"unique;size:100;not null" json:"name"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255" json:"description,omitempty"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (p *Permission) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	return nil
}
