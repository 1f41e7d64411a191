package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction classifies what an audit entry records.
type AuditAction string

// Audit action kinds.
const (
	AuditCreate      AuditAction = "CREATE"
	AuditRead        AuditAction = "READ"
	AuditUpdate      AuditAction = "UPDATE"
	AuditDelete      AuditAction = "DELETE"
	AuditLogin       AuditAction = "LOGIN"
	AuditLogout      AuditAction = "LOGOUT"
	AuditFailedLogin AuditAction = "FAILED_LOGIN"
	AuditSystemEvent AuditAction = "SYSTEM_EVENT"
	AuditError       AuditAction = "ERROR"
)

// AuditEntity classifies which kind of entity an audit entry concerns.
type AuditEntity string

// Audit entity kinds.
const (
	EntityUser              AuditEntity = "USER"
	EntityProduct           AuditEntity = "PRODUCT"
	EntityProductInstance   AuditEntity = "PRODUCT_INSTANCE"
	EntityLoan              AuditEntity = "LOAN"
	EntityVolunteerActivity AuditEntity = "VOLUNTEER_ACTIVITY"
	EntityAuth              AuditEntity = "AUTH"
	EntitySystem            AuditEntity = "SYSTEM"
)

// AuditLog is one immutable record in the append-only action log. Entries are
// never updated; the only deletion path is the bulk age-based retention
// cleanup in the audit service.
type AuditLog struct {
	// ID is the unique identifier for the entry (UUID string).
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
	// Action is the kind of event recorded.
	Action AuditAction `gorm:"type:varchar(20);index;not null" json:"action"`
	// EntityType is the kind of entity the event concerns.
	EntityType AuditEntity `gorm:"type:varchar(30);index;not null" json:"entityType"`
	// EntityID is the id of the concerned entity, when one could be determined.
	EntityID string `gorm:"type:varchar(36);index" json:"entityId,omitempty"`
	// UserID is the acting user, when authenticated.
	UserID string `gorm:"type:varchar(36);index" json:"userId,omitempty"`
	// User is the acting user (loaded via foreign key when UserID is set).
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	// IPAddress of the client, when known.
	IPAddress string `gorm:"size:64" json:"ipAddress,omitempty"`
	// UserAgent of the client, when known.
	UserAgent string `gorm:"size:255" json:"userAgent,omitempty"`
	// Description is the human-readable summary of the event.
	Description string `gorm:"size:500;not null" json:"description"`
	// Metadata holds structured JSON context for the event.
	Metadata json.RawMessage `gorm:"type:blob" json:"metadata,omitempty"`
	// Endpoint is the request path, for HTTP-originated entries.
	Endpoint string `gorm:"size:255" json:"endpoint,omitempty"`
	// HTTPMethod of the originating request.
	HTTPMethod string `gorm:"size:10" json:"httpMethod,omitempty"`
	// StatusCode of the response, for HTTP-originated entries.
	StatusCode int `json:"statusCode,omitempty"`
	// ExecutionTime of the request in milliseconds.
	ExecutionTime int64 `json:"executionTime,omitempty"`
	// ErrorMessage holds the failure text for error entries.
	ErrorMessage string `gorm:"size:1000" json:"errorMessage,omitempty"`
	// CreatedAt is the timestamp when the entry was written (managed by GORM).
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// TableName specifies the database table name for the AuditLog model.
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	return nil
}
