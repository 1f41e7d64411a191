// Package products manages the equipment catalog: product definitions
// and their physical instances, each identified by a unique barcode.
package products

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// Service implements product and instance operations.
type Service struct {
	db    *gorm.DB
	audit *audit.Service
}

// NewService creates a new product service.
func NewService(db *gorm.DB, auditSvc *audit.Service) *Service {
	return &Service{db: db, audit: auditSvc}
}

// openLoanCount returns how many open loans hold instances matching the
// query condition.
func (s *Service) openLoanCount(condition string, args ...interface{}) (int64, error) {
	var count int64

	err := s.db.Model(&models.Loan{}).
		Joins("JOIN product_instances ON product_instances.id = loans.product_instance_id").
		Where("loans.status IN ?", []models.LoanStatus{models.LoanActive, models.LoanOverdue}).
		Where(condition, args...).
		Count(&count).Error

	return count, errors.Wrap(err, "failed to count open loans")
}

// CreateProductInput carries the fields for a new product.
type CreateProductInput struct {
	Name         string
	Manufacturer string
	Model        string
	Category     string
	Description  string
}

// CreateProduct adds a product to the catalog. The (name, manufacturer,
// model) triple must be unique.
func (s *Service) CreateProduct(in *CreateProductInput, actorID string) (*models.Product, error) {
	var count int64

	err := s.db.Model(&models.Product{}).
		Where("name = ? AND manufacturer = ? AND model = ?", in.Name, in.Manufacturer, in.Model).
		Count(&count).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to check product identity")
	}

	if count > 0 {
		return nil, apperr.Conflict(apperr.CodeProductExists)
	}

	product := &models.Product{
		Name:         in.Name,
		Manufacturer: in.Manufacturer,
		Model:        in.Model,
		Category:     in.Category,
		Description:  in.Description,
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeProductSaveFailed)
	}

	s.audit.LogUserAction(models.AuditCreate, models.EntityProduct, product.ID, actorID,
		"Product created", map[string]interface{}{"name": product.Name})

	return product, nil
}

// ProductFilters narrows a product listing. Zero values are ignored.
type ProductFilters struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

// ListProducts returns a page of products with their instances, plus the
// total match count.
func (s *Service) ListProducts(f ProductFilters) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{})

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		query = query.Where("name LIKE ? OR manufacturer LIKE ? OR model LIKE ?",
			pattern, pattern, pattern)
	}

	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count products")
	}

	page := f.Page
	if page < 1 {
		page = 1
	}

	limit := f.Limit
	if limit < 1 {
		limit = 10
	}

	if limit > 100 {
		limit = 100
	}

	var products []models.Product

	err := query.Preload("Instances").
		Order("name").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list products")
	}

	return products, total, nil
}

// GetProduct returns a product with its instances.
func (s *Service) GetProduct(id string) (*models.Product, error) {
	product := new(models.Product)

	err := s.db.Preload("Instances").Where("id = ?", id).First(product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeProductNotFound)
		}

		return nil, errors.Wrap(err, "failed to load product")
	}

	return product, nil
}

// UpdateProductInput carries editable product fields. Nil pointers leave
// the field unchanged.
type UpdateProductInput struct {
	Name         *string
	Manufacturer *string
	Model        *string
	Category     *string
	Description  *string
}

// UpdateProduct edits a product. Changing the identity triple onto an
// existing product is a conflict.
func (s *Service) UpdateProduct(id string, in *UpdateProductInput, actorID string) (*models.Product, error) {
	product, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		product.Name = *in.Name
	}

	if in.Manufacturer != nil {
		product.Manufacturer = *in.Manufacturer
	}

	if in.Model != nil {
		product.Model = *in.Model
	}

	if in.Category != nil {
		product.Category = *in.Category
	}

	if in.Description != nil {
		product.Description = *in.Description
	}

	var count int64

	err = s.db.Model(&models.Product{}).
		Where("name = ? AND manufacturer = ? AND model = ? AND id <> ?",
			product.Name, product.Manufacturer, product.Model, id).
		Count(&count).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to check product identity")
	}

	if count > 0 {
		return nil, apperr.Conflict(apperr.CodeProductExists)
	}

	if err := s.db.Save(product).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeProductSaveFailed)
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityProduct, id, actorID,
		"Product updated", in)

	return product, nil
}

// DeleteProduct removes a product and its instances. Deletion is blocked
// while any instance is held by an open loan.
func (s *Service) DeleteProduct(id string, actorID string) error {
	product, err := s.GetProduct(id)
	if err != nil {
		return err
	}

	onLoan, err := s.openLoanCount("product_instances.product_id = ?", id)
	if err != nil {
		return err
	}

	if onLoan > 0 {
		return apperr.BadRequest(apperr.CodeProductHasLoans)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).
			Delete(&models.ProductInstance{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete instances")
		}

		return errors.Wrap(tx.Delete(product).Error, "failed to delete product")
	})
	if err != nil {
		return err
	}

	s.audit.LogUserAction(models.AuditDelete, models.EntityProduct, id, actorID,
		"Product deleted", map[string]interface{}{"name": product.Name})

	return nil
}

// Availability summarizes how many units of a product are lendable.
type Availability struct {
	ProductID string `json:"productId"`
	Total     int64  `json:"total"`
	Available int64  `json:"available"`
	OnLoan    int64  `json:"onLoan"`
}

// GetAvailability counts a product's instances by lendability.
func (s *Service) GetAvailability(productID string) (*Availability, error) {
	if _, err := s.GetProduct(productID); err != nil {
		return nil, err
	}

	availability := &Availability{ProductID: productID}

	err := s.db.Model(&models.ProductInstance{}).
		Where("product_id = ?", productID).
		Count(&availability.Total).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count instances")
	}

	err = s.db.Model(&models.ProductInstance{}).
		Where("product_id = ? AND is_available = ?", productID, true).
		Count(&availability.Available).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count available instances")
	}

	availability.OnLoan, err = s.openLoanCount("product_instances.product_id = ?", productID)
	if err != nil {
		return nil, err
	}

	return availability, nil
}
