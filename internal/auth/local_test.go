package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

func testProvider(t *testing.T) (*LocalProvider, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)

	return NewLocalProvider(db, testIssuer(), audit.NewService(db, 90)), db
}

func TestRegister(t *testing.T) {
	provider, db := testProvider(t)

	user, pair, err := provider.Register(&RegisterInput{
		Email:     "new@example.org",
		Password:  "correct horse battery staple",
		FirstName: "New",
		LastName:  "Person",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	assert.Equal(t, models.RoleClient, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// The stored password is hashed, never plaintext.
	stored := new(models.User)
	require.NoError(t, db.Where("id = ?", user.ID).First(stored).Error)
	assert.NotEqual(t, "correct horse battery staple", stored.Password)
	assert.Equal(t, DigestToken(pair.RefreshToken), stored.RefreshTokenHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	provider, db := testProvider(t)
	seedUser(t, db, "taken@example.org", models.RoleClient)

	_, _, err := provider.Register(&RegisterInput{
		Email:    "taken@example.org",
		Password: "whatever password",
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestLogin(t *testing.T) {
	provider, db := testProvider(t)
	user := seedUser(t, db, "worker@example.org", models.RoleWorker)

	loggedIn, pair, err := provider.Login("worker@example.org",
		"correct horse battery staple", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotNil(t, loggedIn.LastLogin)
	require.NotEmpty(t, pair.RefreshToken)

	// Login is recorded in the audit trail.
	var entry models.AuditLog
	require.NoError(t, db.Where("action = ?", models.AuditLogin).First(&entry).Error)
	assert.Equal(t, user.ID, entry.UserID)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	provider, db := testProvider(t)

	inactive := seedUser(t, db, "inactive@example.org", models.RoleClient)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	seedUser(t, db, "worker@example.org", models.RoleWorker)

	testCases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.org", "correct horse battery staple"},
		{"wrong password", "worker@example.org", "wrong password"},
		{"deactivated account", "inactive@example.org", "correct horse battery staple"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := provider.Login(tc.email, tc.password, "10.0.0.1", "test-agent")
			require.Error(t, err)

			// The caller always sees the same error; the reason lives
			// only in the audit trail.
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperr.CodeInvalidCredentials, appErr.Code)
			assert.Equal(t, apperr.KindUnauthorized, appErr.Kind)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("action = ?", models.AuditFailedLogin).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRefreshRotation(t *testing.T) {
	provider, db := testProvider(t)
	seedUser(t, db, "worker@example.org", models.RoleWorker)

	_, pair, err := provider.Login("worker@example.org",
		"correct horse battery staple", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	rotated, err := provider.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The digest on file now matches the rotated token only.
	stored := new(models.User)
	require.NoError(t, db.Where("email = ?", "worker@example.org").First(stored).Error)
	assert.Equal(t, DigestToken(rotated.RefreshToken), stored.RefreshTokenHash)

	// The previous refresh token is spent.
	_, err = provider.Refresh(pair.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	provider, db := testProvider(t)
	seedUser(t, db, "worker@example.org", models.RoleWorker)

	_, pair, err := provider.Login("worker@example.org",
		"correct horse battery staple", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	_, err = provider.Refresh(pair.AccessToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestLogout(t *testing.T) {
	provider, db := testProvider(t)
	user := seedUser(t, db, "worker@example.org", models.RoleWorker)

	_, pair, err := provider.Login("worker@example.org",
		"correct horse battery staple", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	require.NoError(t, provider.Logout(user.ID, "10.0.0.1", "test-agent"))

	_, err = provider.Refresh(pair.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	var entry models.AuditLog
	require.NoError(t, db.Where("action = ?", models.AuditLogout).First(&entry).Error)
	assert.Equal(t, user.ID, entry.UserID)
}

func TestChangePassword(t *testing.T) {
	provider, db := testProvider(t)
	user := seedUser(t, db, "worker@example.org", models.RoleWorker)

	err := provider.ChangePassword(user.ID, "wrong password", "new password here")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	require.NoError(t, provider.ChangePassword(user.ID,
		"correct horse battery staple", "new password here"))

	_, _, err = provider.Login("worker@example.org", "correct horse battery staple",
		"10.0.0.1", "test-agent")
	assert.Error(t, err)

	_, _, err = provider.Login("worker@example.org", "new password here",
		"10.0.0.1", "test-agent")
	assert.NoError(t, err)
}
