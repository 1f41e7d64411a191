package daemon

import (
	"gorm.io/gorm"

	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

const defaultAdminEmail = "admin@lendkeeper.local"

// seed upserts the permission catalog and, on an empty user table,
// creates a bootstrap administrator.
func seed(_ *config.Config, db *gorm.DB) {
	for name, description := range auth.Catalog() {
		err := db.Where(models.Permission{Name: name}).
			Attrs(models.Permission{Description: description}).
			FirstOrCreate(&models.Permission{}).Error
		if err != nil {
			log.Error().Err(err).Str("permission", name).Msg("failed to seed permission")
		}
	}

	var count int64

	db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}

	admin := &models.User{
		Email:     defaultAdminEmail,
		FirstName: "System",
		LastName:  "Administrator",
		Role:      models.RoleAdmin,
		IsActive:  true,
	}

	if err := admin.HashPassword("changeme"); err != nil {
		log.Error().Err(err).Msg("failed to hash bootstrap admin password")
		return
	}

	if err := db.Create(admin).Error; err != nil {
		log.Error().Err(err).Msg("failed to create bootstrap admin")
		return
	}

	var perm models.Permission
	if err := db.Where("name = ?", auth.PermSystemAdmin).First(&perm).Error; err != nil {
		log.Error().Err(err).Msg("failed to load admin permission")
		return
	}

	err := db.Create(&models.UserPermission{
		UserID:       admin.ID,
		PermissionID: perm.ID,
		GrantedBy:    admin.ID,
	}).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to grant admin permission")
		return
	}

	log.Warn().Str("email", defaultAdminEmail).
		Msg("created bootstrap admin with default password, change it immediately")
}
