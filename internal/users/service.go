// Package users implements user account administration: CRUD,
// activation and per-user permission grants.
package users

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// Service implements user administration operations.
type Service struct {
	db    *gorm.DB
	auth  *auth.Service
	audit *audit.Service
}

// NewService creates a new user service.
func NewService(db *gorm.DB, authSvc *auth.Service, auditSvc *audit.Service) *Service {
	return &Service{db: db, auth: authSvc, audit: auditSvc}
}

// CreateInput carries the fields for a new user account.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	Role      models.UserRole
}

// Create adds a user account. The email must not be taken.
func (s *Service) Create(in *CreateInput, actorID string) (*models.User, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", in.Email).
		Count(&count).Error; err != nil {
		return nil, errors.Wrap(err, "failed to check email")
	}

	if count > 0 {
		return nil, apperr.Conflict(apperr.CodeUserExists)
	}

	role := in.Role
	if role == "" {
		role = models.RoleClient
	}

	user := &models.User{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Address:   in.Address,
		Role:      role,
		IsActive:  true,
	}

	if err := user.HashPassword(in.Password); err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeUserSaveFailed)
	}

	s.audit.LogUserAction(models.AuditCreate, models.EntityUser, user.ID, actorID,
		"User created", map[string]interface{}{"email": user.Email, "role": user.Role})

	return user, nil
}

// Filters narrows a user listing. Zero values are ignored.
type Filters struct {
	Search   string
	Role     models.UserRole
	IsActive *bool
	Page     int
	Limit    int
}

// List returns a page of users with their permissions joined, plus the
// total match count.
func (s *Service) List(f Filters) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		query = query.Where(
			"email LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern, pattern)
	}

	if f.Role != "" {
		query = query.Where("role = ?", f.Role)
	}

	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count users")
	}

	page := f.Page
	if page < 1 {
		page = 1
	}

	limit := f.Limit
	if limit < 1 {
		limit = 10
	}

	if limit > 100 {
		limit = 100
	}

	var users []models.User

	err := query.Preload("Permissions").
		Order("last_name, first_name").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list users")
	}

	return users, total, nil
}

// Get returns a user with permissions joined.
func (s *Service) Get(id string) (*models.User, error) {
	user := new(models.User)

	err := s.db.Preload("Permissions").Where("id = ?", id).First(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeUserNotFound)
		}

		return nil, errors.Wrap(err, "failed to load user")
	}

	return user, nil
}

// UpdateInput carries editable account fields. Nil pointers leave the
// field unchanged. Passwords change through the auth provider only.
type UpdateInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
	Role      *models.UserRole
}

// Update edits a user account. Changing the email onto a taken address
// is a conflict.
func (s *Service) Update(id string, in *UpdateInput, actorID string) (*models.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	before := *user

	if in.Email != nil && *in.Email != user.Email {
		var count int64
		if err := s.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", *in.Email, id).
			Count(&count).Error; err != nil {
			return nil, errors.Wrap(err, "failed to check email")
		}

		if count > 0 {
			return nil, apperr.Conflict(apperr.CodeUserExists)
		}

		user.Email = *in.Email
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}

	if in.LastName != nil {
		user.LastName = *in.LastName
	}

	if in.Phone != nil {
		user.Phone = *in.Phone
	}

	if in.Address != nil {
		user.Address = *in.Address
	}

	if in.Role != nil {
		user.Role = *in.Role
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeUserSaveFailed)
	}

	s.audit.LogDataChange(models.EntityUser, id, actorID, "User updated", before, user)

	return user, nil
}

// SetActive activates or deactivates a user. Operators cannot
// deactivate themselves. Deactivation also clears the refresh token so
// the account cannot renew its session.
func (s *Service) SetActive(id string, active bool, actorID string) (*models.User, error) {
	if !active && id == actorID {
		return nil, apperr.Forbidden(apperr.CodeUserSelfDeactivate)
	}

	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"is_active": active}
	if !active {
		updates["refresh_token_hash"] = ""
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "failed to update user state")
	}

	description := "User activated"
	if !active {
		description = "User deactivated"
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityUser, id, actorID,
		description, nil)

	user.IsActive = active

	return user, nil
}

// Delete removes a user account. Operators cannot delete themselves.
func (s *Service) Delete(id, actorID string) error {
	if id == actorID {
		return apperr.Forbidden(apperr.CodeUserSelfDelete)
	}

	user, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(user).Error; err != nil {
		return errors.Wrap(err, "failed to delete user")
	}

	s.audit.LogUserAction(models.AuditDelete, models.EntityUser, id, actorID,
		"User deleted", map[string]interface{}{"email": user.Email})

	return nil
}

// GrantPermissions grants a set of permissions to a user, recording the
// grantor. Unknown permission names fail the whole grant.
func (s *Service) GrantPermissions(id string, names []string, actorID string) (*models.User, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	for _, name := range names {
		if err := s.auth.GrantPermission(id, name, actorID); err != nil {
			return nil, apperr.Wrap(err, apperr.KindNotFound, apperr.CodePermissionNotFound)
		}
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityUser, id, actorID,
		"Permissions granted", map[string]interface{}{"permissions": names})

	return s.Get(id)
}

// RevokePermissions removes a set of permissions from a user.
func (s *Service) RevokePermissions(id string, names []string, actorID string) (*models.User, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	for _, name := range names {
		if err := s.auth.RevokePermission(id, name); err != nil {
			return nil, apperr.Wrap(err, apperr.KindNotFound, apperr.CodePermissionNotFound)
		}
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityUser, id, actorID,
		"Permissions revoked", map[string]interface{}{"permissions": names})

	return s.Get(id)
}
