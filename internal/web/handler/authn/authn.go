// Package authn exposes the authentication endpoints: register, login,
// token refresh, logout, password change and the current identity.
package authn

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
	"github.com/lendkeeper/lendkeeper/internal/web/handler"
)

// Path is the base path of the authentication endpoints.
const Path = "/api/auth"

// Service is the authentication handler service.
type Service struct {
	cfg      *config.Config
	provider *auth.LocalProvider
	issuer   *auth.TokenIssuer
	authSvc  *auth.Service
}

// Handler is the authentication handler.
var Handler = Service{}

// Init initializes the authentication handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, provider *auth.LocalProvider,
	issuer *auth.TokenIssuer, authSvc *auth.Service,
) {
	if app == nil || cfg == nil || provider == nil || issuer == nil || authSvc == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
	}

	s.cfg = cfg
	s.provider = provider
	s.issuer = issuer
	s.authSvc = authSvc

	app.Route(Path, func(router fiber.Router) {
		router.Post("/register", s.Register)
		router.Post("/login", s.Login)
		router.Post("/refresh", s.Refresh)

		router.Post("/logout", auth.RequireAuth(issuer), s.Logout)
		router.Put("/change-password", auth.RequireAuth(issuer), s.ChangePassword)
		router.Get("/me", auth.RequireAuth(issuer), s.Me)
	})
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type sessionResponse struct {
	User   userView        `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// userView is the account shape returned to clients. Credential fields
// never leave the server.
type userView struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"isActive"`
}

func viewOf(user *models.User) userView {
	return userView{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
		Address:   user.Address,
		Role:      user.Role,
		IsActive:  user.IsActive,
	}
}

// Register handles self-service account creation. New accounts get the
// client role; staff roles are assigned by an administrator afterwards.
func (s *Service) Register(c *fiber.Ctx) error {
	req := new(registerRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	user, tokens, err := s.provider.Register(&auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(sessionResponse{
		User:   viewOf(user),
		Tokens: tokens,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles credential sign-in.
func (s *Service) Login(c *fiber.Ctx) error {
	req := new(loginRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	user, tokens, err := s.provider.Login(req.Email, req.Password,
		c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}

	return c.JSON(sessionResponse{User: viewOf(user), Tokens: tokens})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Refresh rotates a refresh token into a fresh pair.
func (s *Service) Refresh(c *fiber.Ctx) error {
	req := new(refreshRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	tokens, err := s.provider.Refresh(req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"tokens": tokens})
}

// Logout invalidates the caller's refresh token.
func (s *Service) Logout(c *fiber.Ctx) error {
	err := s.provider.Logout(auth.UserID(c), c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// ChangePassword replaces the caller's password.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	req := new(changePasswordRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	err := s.provider.ChangePassword(auth.UserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// Me returns the caller's identity and permission names.
func (s *Service) Me(c *fiber.Ctx) error {
	claims := auth.Identity(c)
	if claims == nil {
		return apperr.Unauthorized(apperr.CodeUnauthenticated)
	}

	permissions, err := s.authSvc.GetUserPermissions(claims.Subject)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"id":          claims.Subject,
		"email":       claims.Email,
		"role":        claims.Role,
		"permissions": permissions,
	})
}
