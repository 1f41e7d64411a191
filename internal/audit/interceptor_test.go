package audit

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

func TestClassifyAction(t *testing.T) {
	assert.Equal(t, models.AuditCreate, classifyAction(fiber.MethodPost))
	assert.Equal(t, models.AuditUpdate, classifyAction(fiber.MethodPut))
	assert.Equal(t, models.AuditUpdate, classifyAction(fiber.MethodPatch))
	assert.Equal(t, models.AuditDelete, classifyAction(fiber.MethodDelete))
	assert.Equal(t, models.AuditRead, classifyAction(fiber.MethodGet))
	assert.Equal(t, models.AuditRead, classifyAction(fiber.MethodHead))
}

func TestClassifyEntity(t *testing.T) {
	assert.Equal(t, models.EntityUser, classifyEntity("/api/users/123"))
	assert.Equal(t, models.EntityProduct, classifyEntity("/api/products"))
	assert.Equal(t, models.EntityProductInstance, classifyEntity("/api/products/instances"))
	assert.Equal(t, models.EntityLoan, classifyEntity("/api/loans/active"))
	assert.Equal(t, models.EntityVolunteerActivity, classifyEntity("/api/volunteers/hours"))
	assert.Equal(t, models.EntityAuth, classifyEntity("/api/auth/login"))
	assert.Equal(t, models.EntitySystem, classifyEntity("/api/something-else"))
}

func TestShouldSkip(t *testing.T) {
	assert.True(t, shouldSkip("/api/audit"))
	assert.True(t, shouldSkip("/api/audit/statistics"))
	assert.True(t, shouldSkip("/api/health"))
	assert.True(t, shouldSkip("/favicon.ico"))
	assert.True(t, shouldSkip("/metrics"))
	assert.False(t, shouldSkip("/api/loans"))
}

func TestEntityIDFromPath(t *testing.T) {
	assert.Equal(t, "8a1f8e04-54a2-4c4b-a96e-0a9c39f9f001",
		entityIDFromPath("/api/loans/8a1f8e04-54a2-4c4b-a96e-0a9c39f9f001"))
	assert.Empty(t, entityIDFromPath("/api/loans"))
	assert.Empty(t, entityIDFromPath("/api/loans/active"))
}

func waitForEntries(t *testing.T, db *gorm.DB, expected int64) []models.AuditLog {
	t.Helper()

	// Entries are written on a separate goroutine.
	require.Eventually(t, func() bool {
		var count int64

		return db.Model(&models.AuditLog{}).Count(&count).Error == nil && count == expected
	}, 2*time.Second, 10*time.Millisecond)

	var entries []models.AuditLog
	require.NoError(t, db.Find(&entries).Error)

	return entries
}

func TestInterceptorRecordsRequests(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	app := fiber.New()
	app.Use(service.Interceptor())
	app.Post("/api/loans", func(c *fiber.Ctx) error {
		c.Locals(LocalsUserID, "user-1")

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
	})
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest(fiber.MethodPost, "/api/loans",
		strings.NewReader(`{"userId":"u1","password":"hunter2"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.7, 10.0.0.1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// Skipped paths never produce entries.
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	entries := waitForEntries(t, db, 1)
	entry := entries[0]

	assert.Equal(t, models.AuditCreate, entry.Action)
	assert.Equal(t, models.EntityLoan, entry.EntityType)
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, "/api/loans", entry.Endpoint)
	assert.Equal(t, fiber.MethodPost, entry.HTTPMethod)
	assert.Equal(t, fiber.StatusCreated, entry.StatusCode)
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	assert.Contains(t, string(entry.Metadata), "[REDACTED]")
	assert.NotContains(t, string(entry.Metadata), "hunter2")
}

func TestInterceptorRecordsErrors(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, 90)

	app := fiber.New()
	app.Use(service.Interceptor())
	app.Get("/api/loans", func(_ *fiber.Ctx) error {
		return fiber.ErrTeapot
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/loans", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	entries := waitForEntries(t, db, 1)
	entry := entries[0]

	assert.Equal(t, models.AuditError, entry.Action)
	assert.Equal(t, fiber.StatusTeapot, entry.StatusCode)
	assert.NotEmpty(t, entry.ErrorMessage)
}
