// Package loan exposes the lending endpoints: opening loans, returning
// or losing equipment, and loan reporting.
package loan

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
	"github.com/lendkeeper/lendkeeper/internal/loans"
	"github.com/lendkeeper/lendkeeper/internal/web/handler"
)

// Path is the base path of the loan endpoints.
const Path = "/api/loans"

// Service is the loan handler service.
type Service struct {
	cfg     *config.Config
	loans   *loans.Service
	issuer  *auth.TokenIssuer
	authSvc *auth.Service
}

// Handler is the loan handler.
var Handler = Service{}

// Init initializes the loan handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, loanSvc *loans.Service,
	issuer *auth.TokenIssuer, authSvc *auth.Service,
) {
	if app == nil || cfg == nil || loanSvc == nil || issuer == nil || authSvc == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
	}

	s.cfg = cfg
	s.loans = loanSvc
	s.issuer = issuer
	s.authSvc = authSvc

	app.Route(Path, func(router fiber.Router) {
		router.Use(auth.RequireAuth(issuer))

		router.Get(handler.RootPath,
			auth.RequirePermissions(authSvc, auth.PermLoansRead), s.List)
		router.Post(handler.RootPath,
			auth.RequirePermissions(authSvc, auth.PermLoansWrite), s.Create)
		router.Get("/active",
			auth.RequirePermissions(authSvc, auth.PermLoansRead), s.Active)
		router.Get("/overdue",
			auth.RequirePermissions(authSvc, auth.PermLoansRead), s.Overdue)
		router.Get("/stats",
			auth.RequirePermissions(authSvc, auth.PermLoansRead), s.Statistics)
		router.Get("/user/:userId",
			auth.RequirePermissions(authSvc, auth.PermLoansRead), s.UserActive)
		router.Patch("/return",
			auth.RequirePermissions(authSvc, auth.PermLoansWrite), s.ReturnByBarcode)
		router.Get("/:id",
			auth.RequirePermissions(authSvc, auth.PermLoansRead), s.Get)
		router.Put("/:id",
			auth.RequirePermissions(authSvc, auth.PermLoansWrite), s.Update)
		router.Patch("/:id/return",
			auth.RequirePermissions(authSvc, auth.PermLoansWrite), s.Return)
		router.Patch("/:id/mark-lost",
			auth.RequirePermissions(authSvc, auth.PermLoansWrite), s.MarkLost)
	})
}

type createRequest struct {
	UserID             string     `json:"userId" validate:"required,uuid4"`
	ProductInstanceID  string     `json:"productInstanceId" validate:"required,uuid4"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate"`
	Notes              string     `json:"notes"`
}

// Create opens a loan for a borrower on an instance.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(createRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	loan, err := s.loans.Create(&loans.CreateInput{
		UserID:             req.UserID,
		ProductInstanceID:  req.ProductInstanceID,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Notes:              req.Notes,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(loan)
}

// List returns a page of loans matching the query filters.
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

	list, total, err := s.loans.List(loans.Filters{
		UserID:   c.Query("userId"),
		Status:   models.LoanStatus(c.Query("status")),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		From:     from,
		To:       to,
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		return err
	}

	return handler.JSONPage(c, list, total, p)
}

// Get returns one loan with borrower and equipment joined.
func (s *Service) Get(c *fiber.Ctx) error {
	loan, err := s.loans.Get(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(loan)
}

// Active returns every active loan.
func (s *Service) Active(c *fiber.Ctx) error {
	list, err := s.loans.Active()
	if err != nil {
		return err
	}

	return c.JSON(list)
}

// Overdue returns every overdue loan.
func (s *Service) Overdue(c *fiber.Ctx) error {
	list, err := s.loans.Overdue()
	if err != nil {
		return err
	}

	return c.JSON(list)
}

// UserActive returns the open loans of one borrower.
func (s *Service) UserActive(c *fiber.Ctx) error {
	list, err := s.loans.UserActive(c.Params("userId"))
	if err != nil {
		return err
	}

	return c.JSON(list)
}

type returnRequest struct {
	Notes     string `json:"notes"`
	Condition string `json:"condition" validate:"omitempty,oneof=excellent good fair poor needs-repair"`
}

// Return closes an open loan and frees the instance.
func (s *Service) Return(c *fiber.Ctx) error {
	req := new(returnRequest)
	if len(c.Body()) > 0 {
		if err := handler.ParseBody(c, req); err != nil {
			return err
		}
	}

	loan, err := s.loans.Return(c.Params("id"), &loans.ReturnInput{
		Notes:     req.Notes,
		Condition: req.Condition,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(loan)
}

type returnByBarcodeRequest struct {
	Barcode   string `json:"barcode" validate:"required"`
	Notes     string `json:"notes"`
	Condition string `json:"condition" validate:"omitempty,oneof=excellent good fair poor needs-repair"`
}

// ReturnByBarcode closes the open loan of a scanned instance.
func (s *Service) ReturnByBarcode(c *fiber.Ctx) error {
	req := new(returnByBarcodeRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	loan, err := s.loans.ReturnByBarcode(req.Barcode, &loans.ReturnInput{
		Notes:     req.Notes,
		Condition: req.Condition,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(loan)
}

type lostRequest struct {
	Notes string `json:"notes"`
}

// MarkLost closes an open loan as lost. The instance stays unavailable.
func (s *Service) MarkLost(c *fiber.Ctx) error {
	req := new(lostRequest)
	if len(c.Body()) > 0 {
		if err := handler.ParseBody(c, req); err != nil {
			return err
		}
	}

	loan, err := s.loans.MarkLost(c.Params("id"), req.Notes, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(loan)
}

type updateRequest struct {
	ExpectedReturnDate *time.Time         `json:"expectedReturnDate"`
	Notes              *string            `json:"notes"`
	Status             *models.LoanStatus `json:"status" validate:"omitempty,oneof=ACTIVE OVERDUE RETURNED LOST"`
}

// Update applies an administrative override to a loan.
func (s *Service) Update(c *fiber.Ctx) error {
	req := new(updateRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	loan, err := s.loans.Update(c.Params("id"), &loans.UpdateInput{
		ExpectedReturnDate: req.ExpectedReturnDate,
		Notes:              req.Notes,
		Status:             req.Status,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(loan)
}

// Statistics returns aggregate lending numbers.
func (s *Service) Statistics(c *fiber.Ctx) error {
	stats, err := s.loans.GetStatistics()
	if err != nil {
		return err
	}

	return c.JSON(stats)
}
