// Package auditlog exposes the audit trail endpoints.
package auditlog

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
	"github.com/lendkeeper/lendkeeper/internal/web/handler"
)

// Path is the base path of the audit endpoints.
const Path = "/api/audit"

// Service is the audit handler service.
type Service struct {
	cfg     *config.Config
	audit   *audit.Service
	issuer  *auth.TokenIssuer
	authSvc *auth.Service
}

// Handler is the audit handler.
var Handler = Service{}

// Init initializes the audit handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, auditSvc *audit.Service,
	issuer *auth.TokenIssuer, authSvc *auth.Service,
) {
	if app == nil || cfg == nil || auditSvc == nil || issuer == nil || authSvc == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
	}

	s.cfg = cfg
	s.audit = auditSvc
	s.issuer = issuer
	s.authSvc = authSvc

	app.Route(Path, func(router fiber.Router) {
		router.Use(auth.RequireAuth(issuer))

		router.Get(handler.RootPath,
			auth.RequirePermissions(authSvc, auth.PermAuditRead), s.List)
		router.Get("/stats",
			auth.RequirePermissions(authSvc, auth.PermAuditRead), s.Statistics)
		router.Delete("/cleanup",
			auth.RequirePermissions(authSvc, auth.PermSystemAdmin), s.Cleanup)
		router.Get("/:id",
			auth.RequirePermissions(authSvc, auth.PermAuditRead), s.Get)
	})
}

// List returns a page of audit entries, newest first.
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

	list, total, err := s.audit.List(audit.Filters{
		Action:     models.AuditAction(c.Query("action")),
		EntityType: models.AuditEntity(c.Query("entityType")),
		EntityID:   c.Query("entityId"),
		UserID:     c.Query("userId"),
		From:       from,
		To:         to,
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		return err
	}

	return handler.JSONPage(c, list, total, p)
}

// Get returns one audit entry.
func (s *Service) Get(c *fiber.Ctx) error {
	entry, err := s.audit.GetByID(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(entry)
}

// Statistics returns aggregate audit numbers.
func (s *Service) Statistics(c *fiber.Ctx) error {
	stats, err := s.audit.GetStatistics()
	if err != nil {
		return err
	}

	return c.JSON(stats)
}

// Cleanup deletes audit entries older than the given number of days,
// falling back to the configured retention when days is absent.
func (s *Service) Cleanup(c *fiber.Ctx) error {
	days := c.QueryInt("days")
	if days < 0 {
		return apperr.BadRequest(apperr.CodeInvalidRequest)
	}

	deleted, err := s.audit.Cleanup(days)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}
