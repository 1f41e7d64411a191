package users

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.UserPermission{},
		&models.AuditLog{},
	)
	require.NoError(t, err, "failed to migrate test database")

	for name, description := range auth.Catalog() {
		err = db.Create(&models.Permission{Name: name, Description: description}).Error
		require.NoError(t, err, "failed to seed permissions")
	}

	return db
}

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)

	return NewService(db, auth.NewService(db), audit.NewService(db, 90)), db
}

func seedUser(t *testing.T, s *Service, email string, role models.UserRole) *models.User {
	t.Helper()

	user, err := s.Create(&CreateInput{
		Email:     email,
		Password:  "correct horse battery staple",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	}, "seeder")
	require.NoError(t, err)

	return user
}

func TestCreate(t *testing.T) {
	service, _ := testService(t)

	user := seedUser(t, service, "worker@example.org", models.RoleWorker)
	assert.NotEmpty(t, user.ID)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "correct horse battery staple", user.Password)

	// Taken email is a conflict.
	_, err := service.Create(&CreateInput{
		Email: "worker@example.org", Password: "whatever password",
	}, "seeder")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCreateDefaultsToClientRole(t *testing.T) {
	service, _ := testService(t)

	user, err := service.Create(&CreateInput{
		Email: "someone@example.org", Password: "whatever password",
	}, "seeder")
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, user.Role)
}

func TestListFilters(t *testing.T) {
	service, _ := testService(t)

	seedUser(t, service, "admin@example.org", models.RoleAdmin)
	seedUser(t, service, "worker@example.org", models.RoleWorker)
	volunteer := seedUser(t, service, "helper@example.org", models.RoleVolunteer)

	_, err := service.SetActive(volunteer.ID, false, "someone-else")
	require.NoError(t, err)

	_, total, err := service.List(Filters{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, total, err = service.List(Filters{Role: models.RoleWorker})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	active := true
	_, total, err = service.List(Filters{IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = service.List(Filters{Search: "helper"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestListPagination(t *testing.T) {
	service, _ := testService(t)

	for i := 0; i < 15; i++ {
		seedUser(t, service, fmt.Sprintf("user%02d@example.org", i), models.RoleClient)
	}

	users, total, err := service.List(Filters{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, users, 5)
}

func TestUpdate(t *testing.T) {
	service, _ := testService(t)

	user := seedUser(t, service, "worker@example.org", models.RoleWorker)
	other := seedUser(t, service, "other@example.org", models.RoleClient)

	phone := "+972-50-0000000"
	role := models.RoleAdmin
	updated, err := service.Update(user.ID, &UpdateInput{
		Phone: &phone, Role: &role,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	// Moving onto a taken email is a conflict.
	taken := "worker@example.org"
	_, err = service.Update(other.ID, &UpdateInput{Email: &taken}, "admin")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSelfProtection(t *testing.T) {
	service, _ := testService(t)

	user := seedUser(t, service, "admin@example.org", models.RoleAdmin)

	err := service.Delete(user.ID, user.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = service.SetActive(user.ID, false, user.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// Reactivating yourself is allowed; only deactivation is guarded.
	_, err = service.SetActive(user.ID, true, user.ID)
	assert.NoError(t, err)
}

func TestDeactivateClearsRefreshToken(t *testing.T) {
	service, db := testService(t)

	user := seedUser(t, service, "worker@example.org", models.RoleWorker)
	require.NoError(t, db.Model(user).
		Update("refresh_token_hash", "some-digest").Error)

	_, err := service.SetActive(user.ID, false, "admin")
	require.NoError(t, err)

	stored := new(models.User)
	require.NoError(t, db.Where("id = ?", user.ID).First(stored).Error)
	assert.False(t, stored.IsActive)
	assert.Empty(t, stored.RefreshTokenHash)
}

func TestDelete(t *testing.T) {
	service, _ := testService(t)

	user := seedUser(t, service, "worker@example.org", models.RoleWorker)

	require.NoError(t, service.Delete(user.ID, "admin"))

	_, err := service.Get(user.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = service.Delete(user.ID, "admin")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGrantAndRevokePermissions(t *testing.T) {
	service, db := testService(t)

	user := seedUser(t, service, "worker@example.org", models.RoleWorker)

	granted, err := service.GrantPermissions(user.ID,
		[]string{auth.PermLoansRead, auth.PermLoansWrite}, "admin")
	require.NoError(t, err)
	assert.Len(t, granted.Permissions, 2)

	// The grantor is recorded on each grant.
	var grants []models.UserPermission
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&grants).Error)
	require.Len(t, grants, 2)

	for _, grant := range grants {
		assert.Equal(t, "admin", grant.GrantedBy)
	}

	revoked, err := service.RevokePermissions(user.ID, []string{auth.PermLoansWrite}, "admin")
	require.NoError(t, err)
	require.Len(t, revoked.Permissions, 1)
	assert.Equal(t, auth.PermLoansRead, revoked.Permissions[0].Name)

	// Unknown permission names fail the grant.
	_, err = service.GrantPermissions(user.ID, []string{"nonsense:permission"}, "admin")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
