package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// Token use values distinguish access tokens from refresh tokens so one
// can never be presented in place of the other.
const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// Claims carries the JWT payload for both token kinds.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	TokenUse string `json:"token_use"`

	jwt.RegisteredClaims
}

// TokenPair bundles the two tokens handed to a client on login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a token issuer from the auth configuration.
func NewTokenIssuer(cfg *config.Auth) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  time.Duration(cfg.AccessTokenMinutes) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshTokenDays) * 24 * time.Hour,
	}
}

// IssuePair signs a fresh access and refresh token for a user.
func (t *TokenIssuer) IssuePair(user *models.User) (*TokenPair, error) {
	access, err := t.sign(user, tokenUseAccess, t.accessTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign access token")
	}

	refresh, err := t.sign(user, tokenUseRefresh, t.refreshTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign refresh token")
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (t *TokenIssuer) sign(user *models.User, use string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		Email:    user.Email,
		Role:     string(user.Role),
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// VerifyAccess parses an access token and returns its claims.
func (t *TokenIssuer) VerifyAccess(token string) (*Claims, error) {
	return t.verify(token, tokenUseAccess)
}

// VerifyRefresh parses a refresh token and returns its claims.
func (t *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	return t.verify(token, tokenUseRefresh)
}

func (t *TokenIssuer) verify(token, use string) (*Claims, error) {
	claims := new(Claims)

	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.TokenUse != use {
		return nil, ErrWrongTokenUse
	}

	if claims.Subject == "" {
		return nil, ErrNoSubject
	}

	return claims, nil
}

// DigestToken returns the hex SHA-256 digest of a token. Only the digest
// of the current refresh token is persisted per user.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}
