package auth

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// Service provides authorization functionality over the per-user
// permission grants stored in the database.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetUserPermissions returns the names of every permission granted to the
// user. Grants are read fresh on every call so revocations take effect on
// the next request without re-authentication.
func (s *Service) GetUserPermissions(userID string) ([]string, error) {
	var names []string

	err := s.db.Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user permissions")
	}

	return names, nil
}

// ListPermissions returns the full permission catalog, sorted by name.
func (s *Service) ListPermissions() ([]models.Permission, error) {
	var perms []models.Permission

	err := s.db.Order("name ASC").Find(&perms).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list permissions")
	}

	return perms, nil
}

// HasPermission checks if a user holds a specific permission, either
// directly or through the universal bypass.
func (s *Service) HasPermission(userID, permission string) (bool, error) {
	var count int64

	err := s.db.Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ? AND permissions.name IN ?",
			userID, []string{permission, PermSystemAdmin}).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check permission")
	}

	return count > 0, nil
}

// CheckPermissions verifies that a user holds all of the given permissions.
// It returns the subset that is missing; an empty slice means the check
// passed. Holding PermSystemAdmin satisfies any requirement.
func (s *Service) CheckPermissions(userID string, required []string) ([]string, error) {
	if len(required) == 0 {
		return nil, nil
	}

	granted, err := s.GetUserPermissions(userID)
	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(granted))
	for _, name := range granted {
		held[name] = true
	}

	if held[PermSystemAdmin] {
		return nil, nil
	}

	var missing []string
	for _, name := range required {
		if !held[name] {
			missing = append(missing, name)
		}
	}

	return missing, nil
}

// GrantPermission records a permission grant for a user, remembering who
// granted it. Granting an already-held permission is a no-op.
func (s *Service) GrantPermission(userID, permissionName, grantedBy string) error {
	var perm models.Permission
	if err := s.db.Where("name = ?", permissionName).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Errorf("unknown permission %q", permissionName)
		}

		return errors.Wrap(err, "failed to look up permission")
	}

	grant := models.UserPermission{
		UserID:       userID,
		PermissionID: perm.ID,
		GrantedBy:    grantedBy,
	}

	err := s.db.Where("user_id = ? AND permission_id = ?", userID, perm.ID).
		FirstOrCreate(&grant).Error

	return errors.Wrap(err, "failed to grant permission")
}

// RevokePermission removes a permission grant from a user. Revoking a
// permission the user does not hold is a no-op.
func (s *Service) RevokePermission(userID, permissionName string) error {
	var perm models.Permission
	if err := s.db.Where("name = ?", permissionName).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Errorf("unknown permission %q", permissionName)
		}

		return errors.Wrap(err, "failed to look up permission")
	}

	err := s.db.Where("user_id = ? AND permission_id = ?", userID, perm.ID).
		Delete(&models.UserPermission{}).Error

	return errors.Wrap(err, "failed to revoke permission")
}
