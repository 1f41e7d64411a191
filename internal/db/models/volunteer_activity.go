package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Suggested activity types. The column is a plain string so coordinators can
// introduce new kinds of work without a schema change.
const (
	ActivityDelivery    = "delivery"
	ActivityPickup      = "pickup"
	ActivityMaintenance = "maintenance"
	ActivityOfficeWork  = "office-work"
	ActivityOther       = "other"
)

// VolunteerActivity is one logged unit of volunteer work: who, what kind,
// how many hours and on which day. No state machine; plain CRUD.
type VolunteerActivity struct {
	// ID is the unique identifier for the activity (UUID string).
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
	// VolunteerID is the user (role VOLUNTEER) who performed the work.
	VolunteerID string `gorm:"type:varchar(36);index;not null" json:"volunteerId"`
	// Volunteer is the performing user (loaded via foreign key).
	Volunteer User `gorm:"foreignKey:VolunteerID" json:"volunteer,omitempty"`
	// ActivityType is the kind of work performed.
	ActivityType string `gorm:"size:100;not null" json:"activityType"`
	// Description is a free-text account of the work.
	Description string `gorm:"size:1000;not null" json:"description"`
	// Hours worked, bounded to 0.1-24 by the volunteers service.
	Hours float64 `gorm:"not null" json:"hours"`
	// Date is the day the work was performed; never in the future.
	Date time.Time `gorm:"index;not null" json:"date"`
	// Notes holds optional extra remarks.
	Notes string `gorm:"size:1000" json:"notes,omitempty"`
	// CreatedAt is the timestamp when the activity was logged (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the activity was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the VolunteerActivity model.
func (VolunteerActivity) TableName() string {
	return "volunteer_activities"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (a *VolunteerActivity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	return nil
}
