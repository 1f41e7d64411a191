package models

import "time"

// UserPermission represents the many-to-many relationship between users and
// permissions. Each row records who granted the permission. Rows are created
// on grant and deleted on revoke; the (user, permission) pair is unique.
type UserPermission struct {
	// UserID is the ID of the user holding the permission.
	UserID string `gorm:"type:varchar(36);primaryKey;column:user_id" json:"userId"`
	// PermissionID is the ID of the granted permission.
	PermissionID string `gorm:"type:varchar(36);primaryKey;column:permission_id" json:"permissionId"`
	// GrantedBy is the ID of the user who granted this permission.
	GrantedBy string `gorm:"type:varchar(36)" json:"grantedBy,omitempty"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	// Permission is the associated permission (loaded via foreign key).
	Permission Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE" json:"-"`
	// CreatedAt is the timestamp when the permission was granted (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the database table name for the UserPermission model.
func (UserPermission) TableName() string {
	return "user_permissions"
}
