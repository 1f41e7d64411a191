// Package product exposes the catalog endpoints: products and their
// physical instances.
package product

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/auth"
	"github.com/lendkeeper/lendkeeper/internal/config"
	"github.com/lendkeeper/lendkeeper/internal/products"
	"github.com/lendkeeper/lendkeeper/internal/web/handler"
)

// Path is the base path of the catalog endpoints. Instances live under
// /api/products/instances.
const Path = "/api/products"

// Service is the product handler service.
type Service struct {
	cfg      *config.Config
	products *products.Service
	issuer   *auth.TokenIssuer
	authSvc  *auth.Service
}

// Handler is the product handler.
var Handler = Service{}

// Init initializes the product handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, productSvc *products.Service,
	issuer *auth.TokenIssuer, authSvc *auth.Service,
) {
	if app == nil || cfg == nil || productSvc == nil || issuer == nil || authSvc == nil {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
	}

	s.cfg = cfg
	s.products = productSvc
	s.issuer = issuer
	s.authSvc = authSvc

	app.Route(Path, func(router fiber.Router) {
		router.Use(auth.RequireAuth(issuer))

		router.Get(handler.RootPath,
			auth.RequirePermissions(authSvc, auth.PermProductsRead), s.List)
		router.Post(handler.RootPath,
			auth.RequirePermissions(authSvc, auth.PermProductsWrite), s.Create)

		// Instance routes come before /:id so the router does not
		// swallow /instances as a product id.
		router.Get("/instances",
			auth.RequirePermissions(authSvc, auth.PermProductsRead), s.ListInstances)
		router.Post("/instances",
			auth.RequirePermissions(authSvc, auth.PermProductsWrite), s.CreateInstance)
		router.Get("/instances/barcode/:barcode",
			auth.RequirePermissions(authSvc, auth.PermProductsRead), s.GetInstanceByBarcode)
		router.Get("/instances/:id",
			auth.RequirePermissions(authSvc, auth.PermProductsRead), s.GetInstance)
		router.Put("/instances/:id",
			auth.RequirePermissions(authSvc, auth.PermProductsWrite), s.UpdateInstance)
		router.Delete("/instances/:id",
			auth.RequirePermissions(authSvc, auth.PermProductsDelete), s.DeleteInstance)

		router.Get("/:id",
			auth.RequirePermissions(authSvc, auth.PermProductsRead), s.Get)
		router.Put("/:id",
			auth.RequirePermissions(authSvc, auth.PermProductsWrite), s.Update)
		router.Delete("/:id",
			auth.RequirePermissions(authSvc, auth.PermProductsDelete), s.Delete)
		router.Get("/:id/availability",
			auth.RequirePermissions(authSvc, auth.PermProductsRead), s.Availability)
	})
}

type createRequest struct {
	Name         string `json:"name" validate:"required"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Category     string `json:"category" validate:"required"`
	Description  string `json:"description"`
}

// Create adds a product to the catalog.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(createRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	product, err := s.products.CreateProduct(&products.CreateProductInput{
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		Category:     req.Category,
		Description:  req.Description,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

// List returns a page of products.
func (s *Service) List(c *fiber.Ctx) error {
	p := handler.ParsePagination(c)

	list, total, err := s.products.ListProducts(products.ProductFilters{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		return err
	}

	return handler.JSONPage(c, list, total, p)
}

// Get returns one product with its instances.
func (s *Service) Get(c *fiber.Ctx) error {
	product, err := s.products.GetProduct(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(product)
}

type updateRequest struct {
	Name         *string `json:"name"`
	Manufacturer *string `json:"manufacturer"`
	Model        *string `json:"model"`
	Category     *string `json:"category"`
	Description  *string `json:"description"`
}

// Update edits a product.
func (s *Service) Update(c *fiber.Ctx) error {
	req := new(updateRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	product, err := s.products.UpdateProduct(c.Params("id"), &products.UpdateProductInput{
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		Category:     req.Category,
		Description:  req.Description,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(product)
}

// Delete removes a product and its instances.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.products.DeleteProduct(c.Params("id"), auth.UserID(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Availability returns the lendability counts for a product.
func (s *Service) Availability(c *fiber.Ctx) error {
	availability, err := s.products.GetAvailability(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(availability)
}

type createInstanceRequest struct {
	ProductID    string `json:"productId" validate:"required,uuid4"`
	Barcode      string `json:"barcode"`
	SerialNumber string `json:"serialNumber"`
	Condition    string `json:"condition" validate:"omitempty,oneof=excellent good fair poor needs-repair"`
	Location     string `json:"location"`
	Notes        string `json:"notes"`
}

// CreateInstance registers a physical unit of a product.
func (s *Service) CreateInstance(c *fiber.Ctx) error {
	req := new(createInstanceRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	instance, err := s.products.CreateInstance(req.ProductID, &products.CreateInstanceInput{
		Barcode:      req.Barcode,
		SerialNumber: req.SerialNumber,
		Condition:    req.Condition,
		Location:     req.Location,
		Notes:        req.Notes,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(instance)
}

// ListInstances returns instances matching the query filters.
func (s *Service) ListInstances(c *fiber.Ctx) error {
	filters := products.InstanceFilters{
		ProductID: c.Query("productId"),
		Condition: c.Query("condition"),
		Location:  c.Query("location"),
	}

	if raw := c.Query("isAvailable"); raw != "" {
		available := raw == "true"
		filters.IsAvailable = &available
	}

	instances, err := s.products.ListInstances(filters)
	if err != nil {
		return err
	}

	return c.JSON(instances)
}

// GetInstance returns one instance.
func (s *Service) GetInstance(c *fiber.Ctx) error {
	instance, err := s.products.GetInstance(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(instance)
}

// GetInstanceByBarcode resolves a scanned label.
func (s *Service) GetInstanceByBarcode(c *fiber.Ctx) error {
	instance, err := s.products.GetInstanceByBarcode(c.Params("barcode"))
	if err != nil {
		return err
	}

	return c.JSON(instance)
}

type updateInstanceRequest struct {
	Barcode      *string `json:"barcode"`
	SerialNumber *string `json:"serialNumber"`
	Condition    *string `json:"condition" validate:"omitempty,oneof=excellent good fair poor needs-repair"`
	IsAvailable  *bool   `json:"isAvailable"`
	Location     *string `json:"location"`
	Notes        *string `json:"notes"`
}

// UpdateInstance edits a unit.
func (s *Service) UpdateInstance(c *fiber.Ctx) error {
	req := new(updateInstanceRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return err
	}

	instance, err := s.products.UpdateInstance(c.Params("id"), &products.UpdateInstanceInput{
		Barcode:      req.Barcode,
		SerialNumber: req.SerialNumber,
		Condition:    req.Condition,
		IsAvailable:  req.IsAvailable,
		Location:     req.Location,
		Notes:        req.Notes,
	}, auth.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(instance)
}

// DeleteInstance removes a unit.
func (s *Service) DeleteInstance(c *fiber.Ctx) error {
	if err := s.products.DeleteInstance(c.Params("id"), auth.UserID(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
