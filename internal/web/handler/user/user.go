// Package user exposes the user administration endpoints.
package user

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
	"github.com/lendkeeper/lendkeeper/internal/users"
	"github.com/lendkeeper/lendkeeper/internal/web/handler"
)

// Base paths of the user administration endpoints.
const (
	Path            = "/api/users"
	PermissionsPath = "/api/permissions"
)

// Service is the user handler service.
type Service struct {
	cfg     *config.Config
	users   *users.Service
	issuer  *auth.TokenIssuer
	authSvc *auth.Service
}

// Handler is the user handler.
var Handler = Service{}

// Init initializes the user handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, userSvc *users.Service,
	issuer *auth.TokenIssuer, authSvc *auth.Service,
) {
	if app == nil || cfg == nil || userSvc == nil || issuer == nil || authSvc == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
	}

	s.cfg = cfg
	s.users = userSvc
	s.issuer = issuer
	s.authSvc = authSvc

	app.Route(Path, func(router fiber.Router) {
		router.Use(auth.RequireAuth(issuer))

		router.Get(handler.RootPath,
			auth.RequirePermissions(authSvc, auth.PermUsersRead), s.List)
		router.Post(handler.RootPath,
			auth.RequirePermissions(authSvc, auth.PermUsersWrite), s.Create)
		router.Get("/:id",
			auth.RequirePermissions(authSvc, auth.PermUsersRead), s.Get)
		router.Put("/:id",
			auth.RequirePermissions(authSvc, auth.PermUsersWrite), s.Update)
		router.Delete("/:id",
			auth.RequirePermissions(authSvc, auth.PermUsersDelete), s.Delete)
		router.Patch("/:id/activate",
			auth.RequirePermissions(authSvc, auth.PermUsersWrite), s.Activate)
		router.Patch("/:id/deactivate",
			auth.RequirePermissions(authSvc, auth.PermUsersWrite), s.Deactivate)
		router.Post("/:id/permissions",
			auth.RequirePermissions(authSvc, auth.PermPermissionsManage), s.GrantPermissions)
		router.Delete("/:id/permissions",
			auth.RequirePermissions(authSvc, auth.PermPermissionsManage), s.RevokePermissions)
	})

	app.Get(PermissionsPath, auth.RequireAuth(issuer),
		auth.RequirePermissions(authSvc, auth.PermPermissionsManage), s.ListPermissions)
}

type createRequest struct {
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=8"`
	FirstName string          `json:"firstName" validate:"required"`
	LastName  string          `json:"lastName" validate:"required"`
	Phone     string          `json:"phone"`
	Address   string          `json:"address"`
	Role      models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN WORKER VOLUNTEER CLIENT"`
}

// Create adds a user account.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(createRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	user, err := s.users.Create(&users.CreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		Role:      req.Role,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// List returns a page of users.
func (s *Service) List(c *fiber.Ctx) error {
	p := handler.ParsePagination(c)

	filters := users.Filters{
		Search: c.Query("search"),
		Role:   models.UserRole(c.Query("role")),
		Page:   p.Page,
		Limit:  p.Limit,
	}

	if raw := c.Query("isActive"); raw != "" {
		active := raw == "true"
		filters.IsActive = &active
	}

	list, total, err := s.users.List(filters)
	if err != nil {
		return err
	}

	return handler.JSONPage(c, list, total, p)
}

// Get returns one user.
func (s *Service) Get(c *fiber.Ctx) error {
	user, err := s.users.Get(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

type updateRequest struct {
	Email     *string          `json:"email" validate:"omitempty,email"`
	FirstName *string          `json:"firstName"`
	LastName  *string          `json:"lastName"`
	Phone     *string          `json:"phone"`
	Address   *string          `json:"address"`
	Role      *models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN WORKER VOLUNTEER CLIENT"`
}

// Update edits a user account.
func (s *Service) Update(c *fiber.Ctx) error {
	req := new(updateRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	user, err := s.users.Update(c.Params("id"), &users.UpdateInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		Role:      req.Role,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// Delete removes a user account.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.users.Delete(c.Params("id"), auth.UserID(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Activate re-enables a user account.
func (s *Service) Activate(c *fiber.Ctx) error {
	user, err := s.users.SetActive(c.Params("id"), true, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// Deactivate disables a user account.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	user, err := s.users.SetActive(c.Params("id"), false, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

type permissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

// GrantPermissions grants a set of permissions to a user.
func (s *Service) GrantPermissions(c *fiber.Ctx) error {
	req := new(permissionsRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	user, err := s.users.GrantPermissions(c.Params("id"), req.Permissions, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// RevokePermissions removes a set of permissions from a user.
func (s *Service) RevokePermissions(c *fiber.Ctx) error {
	req := new(permissionsRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	user, err := s.users.RevokePermissions(c.Params("id"), req.Permissions, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// ListPermissions returns the permission catalog for grant management UIs.
func (s *Service) ListPermissions(c *fiber.Ctx) error {
	perms, err := s.authSvc.ListPermissions()
	if err != nil {
		return err
	}

	return c.JSON(perms)
}
