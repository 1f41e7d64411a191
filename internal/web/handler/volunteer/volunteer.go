// Package volunteer exposes the volunteer activity endpoints.
package volunteer

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
	"github.com/lendkeeper/lendkeeper/internal/volunteers"
	"github.com/lendkeeper/lendkeeper/internal/web/handler"
)

// Path is the base path of the volunteer endpoints.
const Path = "/api/volunteers"

// Service is the volunteer handler service.
type Service struct {
	cfg        *config.Config
	volunteers *volunteers.Service
	issuer     *auth.TokenIssuer
	authSvc    *auth.Service
}

// Handler is the volunteer handler.
var Handler = Service{}

// Init initializes the volunteer handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, volunteerSvc *volunteers.Service,
	issuer *auth.TokenIssuer, authSvc *auth.Service,
) {
	if app == nil || cfg == nil || volunteerSvc == nil || issuer == nil || authSvc == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
	}

	s.cfg = cfg
	s.volunteers = volunteerSvc
	s.issuer = issuer
	s.authSvc = authSvc

	app.Route(Path, func(router fiber.Router) {
		router.Use(auth.RequireAuth(issuer))

		router.Get("/activities",
			auth.RequirePermissions(authSvc, auth.PermVolunteersRead), s.List)
		router.Post("/activities",
			auth.RequirePermissions(authSvc, auth.PermVolunteersWrite), s.Create)
		router.Get("/activities/:id",
			auth.RequirePermissions(authSvc, auth.PermVolunteersRead), s.Get)
		router.Put("/activities/:id",
			auth.RequirePermissions(authSvc, auth.PermVolunteersWrite), s.Update)
		router.Delete("/activities/:id",
			auth.RequirePermissions(authSvc, auth.PermVolunteersDelete), s.Delete)
		router.Get("/report",
			auth.RequirePermissions(authSvc, auth.PermVolunteersRead), s.Report)
		router.Get("/:id/stats",
			auth.RequirePermissions(authSvc, auth.PermVolunteersRead), s.Statistics)
	})
}

// actor identifies the caller for the self-scoping rules.
func actor(c *fiber.Ctx) volunteers.Actor {
	a := volunteers.Actor{ID: auth.UserID(c)}
	if claims := auth.Identity(c); claims != nil {
		a.Role = models.UserRole(claims.Role)
	}

	return a
}

type createRequest struct {
	VolunteerID  string    `json:"volunteerId" validate:"required,uuid4"`
	ActivityType string    `json:"activityType" validate:"required"`
	Description  string    `json:"description"`
	Hours        float64   `json:"hours" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Notes        string    `json:"notes"`
}

// Create records a volunteer activity.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(createRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	activity, err := s.volunteers.Create(&volunteers.CreateInput{
		VolunteerID:  req.VolunteerID,
		ActivityType: req.ActivityType,
		Description:  req.Description,
		Hours:        req.Hours,
		Date:         req.Date,
		Notes:        req.Notes,
	}, actor(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(activity)
}

// List returns a page of activities matching the query filters.
func (s *Service) List(c *fiber.Ctx) error {
	p := handler.ParsePagination(c)

	from, err := handler.ParseDate(c, "from")
	if err != nil {
		return err
	}

	to, err := handler.ParseDate(c, "to")
	if err != nil {
		return err
	}

	list, total, err := s.volunteers.List(volunteers.Filters{
		VolunteerID:  c.Query("volunteerId"),
		ActivityType: c.Query("activityType"),
		From:         from,
		To:           to,
		Page:         p.Page,
		Limit:        p.Limit,
	}, actor(c))
	if err != nil {
		return err
	}

	return handler.JSONPage(c, list, total, p)
}

// Get returns one activity.
func (s *Service) Get(c *fiber.Ctx) error {
	activity, err := s.volunteers.Get(c.Params("id"), actor(c))
	if err != nil {
		return err
	}

	return c.JSON(activity)
}

type updateRequest struct {
	ActivityType *string    `json:"activityType"`
	Description  *string    `json:"description"`
	Hours        *float64   `json:"hours"`
	Date         *time.Time `json:"date"`
	Notes        *string    `json:"notes"`
}

// Update edits an activity.
func (s *Service) Update(c *fiber.Ctx) error {
	req := new(updateRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	activity, err := s.volunteers.Update(c.Params("id"), &volunteers.UpdateInput{
		ActivityType: req.ActivityType,
		Description:  req.Description,
		Hours:        req.Hours,
		Date:         req.Date,
		Notes:        req.Notes,
	}, actor(c))
	if err != nil {
		return err
	}

	return c.JSON(activity)
}

// Delete removes an activity.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.volunteers.Delete(c.Params("id"), actor(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Statistics returns aggregate numbers for one volunteer.
func (s *Service) Statistics(c *fiber.Ctx) error {
	stats, err := s.volunteers.GetStatistics(c.Params("id"), actor(c))
	if err != nil {
		return err
	}

	return c.JSON(stats)
}

// Report returns aggregate hours across all volunteers for a date range.
// Both bounds are required.
func (s *Service) Report(c *fiber.Ctx) error {
	from, err := handler.ParseDate(c, "from")
	if err != nil {
		return err
	}

	to, err := handler.ParseDate(c, "to")
	if err != nil {
		return err
	}

	if from == nil || to == nil {
		return apperr.BadRequest(apperr.CodeInvalidRequest)
	}

	report, err := s.volunteers.GetReport(*from, *to)
	if err != nil {
		return err
	}

	return c.JSON(report)
}
