package auth

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// LocalProvider implements credential-based authentication: register,
// login, token refresh, logout and password change. Security events are
// recorded in the audit trail.
type LocalProvider struct {
	db     *gorm.DB
	issuer *TokenIssuer
	audit  *audit.Service
}

// NewLocalProvider creates a new credential provider.
func NewLocalProvider(db *gorm.DB, issuer *TokenIssuer, auditSvc *audit.Service) *LocalProvider {
	return &LocalProvider{db: db, issuer: issuer, audit: auditSvc}
}

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	Role      models.UserRole
}

// Register creates a new user account and signs it in. The email must
// not already be taken.
func (p *LocalProvider) Register(in *RegisterInput) (*models.User, *TokenPair, error) {
	var count int64
	if err := p.db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, nil, errors.Wrap(err, "failed to check email")
	}

	if count > 0 {
		return nil, nil, apperr.Conflict(apperr.CodeUserExists)
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
		return nil, nil, errors.Wrap(err, "failed to hash password")
	}

	if err := p.db.Create(user).Error; err != nil {
		return nil, nil, apperr.Wrap(err, apperr.KindInternal, apperr.CodeRegistrationFailed)
	}

	pair, err := p.signIn(user)
	if err != nil {
		return nil, nil, err
	}

	p.audit.LogUserAction(models.AuditCreate, models.EntityUser, user.ID, user.ID,
		"User registered", map[string]interface{}{"email": user.Email, "role": user.Role})

	return user, pair, nil
}

// Login verifies credentials and issues a token pair. Every failure
// returns the same invalid-credentials error; the real reason is kept
// in the audit trail only.
func (p *LocalProvider) Login(email, password, ip, userAgent string) (*models.User, *TokenPair, error) {
	user := new(models.User)

	err := p.db.Where("email = ?", email).First(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.audit.LogSecurityEvent(models.AuditFailedLogin, "", ip, userAgent,
				"Failed login attempt", map[string]interface{}{"email": email, "reason": "unknown email"})

			return nil, nil, apperr.Unauthorized(apperr.CodeInvalidCredentials)
		}

		return nil, nil, errors.Wrap(err, "failed to load user")
	}

	if !user.IsActive {
		p.audit.LogSecurityEvent(models.AuditFailedLogin, user.ID, ip, userAgent,
			"Failed login attempt", map[string]interface{}{"email": email, "reason": "account deactivated"})

		return nil, nil, apperr.Unauthorized(apperr.CodeInvalidCredentials)
	}

	ok, err := user.VerifyPassword(password)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to verify password")
	}

	if !ok {
		p.audit.LogSecurityEvent(models.AuditFailedLogin, user.ID, ip, userAgent,
			"Failed login attempt", map[string]interface{}{"email": email, "reason": "wrong password"})

		return nil, nil, apperr.Unauthorized(apperr.CodeInvalidCredentials)
	}

	pair, err := p.signIn(user)
	if err != nil {
		return nil, nil, err
	}

	p.audit.LogSecurityEvent(models.AuditLogin, user.ID, ip, userAgent,
		"User logged in", map[string]interface{}{"email": email})

	log.Info().Str("user_id", user.ID).Str("email", email).Msg("User logged in")

	return user, pair, nil
}

// signIn issues a token pair and records the session state on the user
// row: last login time and the digest of the current refresh token.
func (p *LocalProvider) signIn(user *models.User) (*TokenPair, error) {
	pair, err := p.issuer.IssuePair(user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	user.RefreshTokenHash = DigestToken(pair.RefreshToken)

	err = p.db.Model(user).Updates(map[string]interface{}{
		"last_login":         user.LastLogin,
		"refresh_token_hash": user.RefreshTokenHash,
	}).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to record sign-in")
	}

	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The token
// must match the digest stored for the user; rotation invalidates the
// presented token.
func (p *LocalProvider) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := p.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized(apperr.CodeRefreshInvalid)
	}

	user := new(models.User)
	if err := p.db.Where("id = ?", claims.Subject).First(user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized(apperr.CodeRefreshInvalid)
		}

		return nil, errors.Wrap(err, "failed to load user")
	}

	if !user.IsActive || user.RefreshTokenHash == "" ||
		user.RefreshTokenHash != DigestToken(refreshToken) {
		return nil, apperr.Unauthorized(apperr.CodeRefreshInvalid)
	}

	return p.signIn(user)
}

// Logout clears the stored refresh token digest so the current refresh
// token can no longer be exchanged.
func (p *LocalProvider) Logout(userID, ip, userAgent string) error {
	err := p.db.Model(&models.User{}).Where("id = ?", userID).
		Update("refresh_token_hash", "").Error
	if err != nil {
		return errors.Wrap(err, "failed to clear refresh token")
	}

	p.audit.LogSecurityEvent(models.AuditLogout, userID, ip, userAgent,
		"User logged out", nil)

	return nil
}

// ChangePassword verifies the current password and replaces it. All
// refresh tokens are invalidated so other sessions must sign in again.
func (p *LocalProvider) ChangePassword(userID, current, newPassword string) error {
	user := new(models.User)
	if err := p.db.Where("id = ?", userID).First(user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound(apperr.CodeUserNotFound)
		}

		return errors.Wrap(err, "failed to load user")
	}

	ok, err := user.VerifyPassword(current)
	if err != nil {
		return errors.Wrap(err, "failed to verify password")
	}

	if !ok {
		p.audit.LogSecurityEvent(models.AuditError, userID, "", "",
			"Password change rejected", map[string]string{"reason": "current password mismatch"})

		return apperr.Unauthorized(apperr.CodePasswordMismatch)
	}

	if err := user.HashPassword(newPassword); err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	err = p.db.Model(user).Updates(map[string]interface{}{
		"password":           user.Password,
		"refresh_token_hash": "",
	}).Error
	if err != nil {
		return errors.Wrap(err, "failed to save password")
	}

	p.audit.LogUserAction(models.AuditUpdate, models.EntityUser, userID, userID,
		"User changed password", nil)

	return nil
}
