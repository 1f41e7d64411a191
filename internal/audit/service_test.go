package audit

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.User{}, &models.AuditLog{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestLogHelpers(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	service.LogUserAction(models.AuditCreate, models.EntityLoan, "loan-1", "user-1",
		"Loan created", map[string]interface{}{"barcode": "LK-0001", "token": "secret"})
	service.LogSecurityEvent(models.AuditFailedLogin, "", "10.0.0.1", "test-agent",
		"Failed login attempt", map[string]interface{}{"reason": "wrong password"})
	service.LogSystemEvent("Startup seed finished", nil)
	service.LogError(models.EntityProduct, "prod-1", "user-1",
		"Product update failed", "constraint violation")

	var entries []models.AuditLog
	require.NoError(t, db.Order("action").Find(&entries).Error)
	require.Len(t, entries, 4)

	byAction := make(map[models.AuditAction]models.AuditLog)
	for _, entry := range entries {
		byAction[entry.Action] = entry
	}

	created := byAction[models.AuditCreate]
	assert.Equal(t, models.EntityLoan, created.EntityType)
	assert.Equal(t, "loan-1", created.EntityID)
	assert.Contains(t, string(created.Metadata), "LK-0001")
	assert.Contains(t, string(created.Metadata), "[REDACTED]")
	assert.NotContains(t, string(created.Metadata), "secret")

	failed := byAction[models.AuditFailedLogin]
	assert.Equal(t, models.EntityAuth, failed.EntityType)
	assert.Equal(t, "10.0.0.1", failed.IPAddress)

	system := byAction[models.AuditSystemEvent]
	assert.Equal(t, models.EntitySystem, system.EntityType)

	errEntry := byAction[models.AuditError]
	assert.Equal(t, "constraint violation", errEntry.ErrorMessage)
}

func TestListFilters(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	for i := 0; i < 5; i++ {
		service.LogUserAction(models.AuditCreate, models.EntityLoan, "", "user-1", "Loan created", nil)
	}

	service.LogUserAction(models.AuditUpdate, models.EntityLoan, "", "user-2", "Loan updated", nil)
	service.LogUserAction(models.AuditCreate, models.EntityProduct, "", "user-1", "Product created", nil)

	testCases := []struct {
		name          string
		filters       Filters
		expectedTotal int64
	}{
		{"no filters", Filters{}, 7},
		{"by action", Filters{Action: models.AuditUpdate}, 1},
		{"by entity", Filters{EntityType: models.EntityLoan}, 6},
		{"by user", Filters{UserID: "user-1"}, 6},
		{"action and entity", Filters{Action: models.AuditCreate, EntityType: models.EntityProduct}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, total, err := service.List(tc.filters)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTotal, total)
			assert.Len(t, entries, int(tc.expectedTotal))
		})
	}
}

func TestListPagination(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	for i := 0; i < 25; i++ {
		service.LogUserAction(models.AuditRead, models.EntityLoan, "", "user-1", "Loan read", nil)
	}

	entries, total, err := service.List(Filters{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, entries, 10)

	entries, _, err = service.List(Filters{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestGetByID(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	entry := &models.AuditLog{
		Action:      models.AuditCreate,
		EntityType:  models.EntityLoan,
		Description: "Loan created",
	}
	require.NoError(t, service.Create(entry))

	found, err := service.GetByID(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loan created", found.Description)

	_, err = service.GetByID("00000000-0000-0000-0000-000000000000")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetStatistics(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	service.LogUserAction(models.AuditCreate, models.EntityLoan, "", "user-1", "Loan created", nil)
	service.LogUserAction(models.AuditCreate, models.EntityProduct, "", "user-1", "Product created", nil)
	service.LogSecurityEvent(models.AuditFailedLogin, "", "10.0.0.1", "", "Failed login attempt", nil)

	stats, err := service.GetStatistics()
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByAction[string(models.AuditCreate)])
	assert.Equal(t, int64(1), stats.ByAction[string(models.AuditFailedLogin)])
	assert.Equal(t, int64(1), stats.ByEntity[string(models.EntityLoan)])
	assert.Equal(t, int64(1), stats.FailedLast)
	assert.Zero(t, stats.Errors)
	assert.Len(t, stats.Recent, 3)

	require.NotEmpty(t, stats.TopUsers)
	assert.Equal(t, "user-1", stats.TopUsers[0].UserID)
	assert.Equal(t, int64(2), stats.TopUsers[0].Count)
}

func TestLogDataChange(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	service.LogDataChange(models.EntityUser, "user-2", "user-1", "User updated",
		map[string]string{"role": "CLIENT"}, map[string]string{"role": "WORKER"})

	var entry models.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, models.AuditUpdate, entry.Action)
	assert.Equal(t, "user-2", entry.EntityID)
	assert.Contains(t, string(entry.Metadata), "before")
	assert.Contains(t, string(entry.Metadata), "WORKER")
}

func TestCleanup(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	old := models.AuditLog{
		Action:      models.AuditRead,
		EntityType:  models.EntityLoan,
		Description: "Old entry",
	}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().AddDate(0, 0, -120)).Error)

	service.LogUserAction(models.AuditRead, models.EntityLoan, "", "user-1", "Fresh entry", nil)

	deleted, err := service.Cleanup(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// The fresh entry plus the cleanup's own system event remain.
	var remaining int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}
