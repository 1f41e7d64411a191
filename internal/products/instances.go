package products

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/barcode"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// CreateInstanceInput carries the fields for a new product instance.
// An empty barcode gets a generated label code.
type CreateInstanceInput struct {
	Barcode      string
	SerialNumber string
	Condition    string
	Location     string
	Notes        string
}

// CreateInstance registers a physical unit of a product.
func (s *Service) CreateInstance(productID string, in *CreateInstanceInput, actorID string) (*models.ProductInstance, error) {
	if _, err := s.GetProduct(productID); err != nil {
		return nil, err
	}

	code := in.Barcode
	if code == "" {
		code = barcode.New()
	}

	var count int64
	if err := s.db.Model(&models.ProductInstance{}).
		Where("barcode = ?", code).Count(&count).Error; err != nil {
		return nil, errors.Wrap(err, "failed to check barcode")
	}

	if count > 0 {
		return nil, apperr.Conflict(apperr.CodeInstanceBarcodeExists)
	}

	condition := in.Condition
	if condition == "" {
		condition = models.ConditionGood
	}

	instance := &models.ProductInstance{
		ProductID:    productID,
		Barcode:      code,
		SerialNumber: in.SerialNumber,
		Condition:    condition,
		IsAvailable:  true,
		Location:     in.Location,
		Notes:        in.Notes,
	}

	if err := s.db.Create(instance).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeInstanceSaveFailed)
	}

	s.audit.LogUserAction(models.AuditCreate, models.EntityProductInstance, instance.ID, actorID,
		"Product instance created", map[string]interface{}{
			"productId": productID,
			"barcode":   instance.Barcode,
		})

	return instance, nil
}

// InstanceFilters narrows an instance listing. Zero values are ignored.
type InstanceFilters struct {
	ProductID   string
	Condition   string
	Location    string
	IsAvailable *bool
}

// ListInstances returns instances matching the filters with their
// product joined.
func (s *Service) ListInstances(f InstanceFilters) ([]models.ProductInstance, error) {
	query := s.db.Model(&models.ProductInstance{})

	if f.ProductID != "" {
		query = query.Where("product_id = ?", f.ProductID)
	}

	if f.Condition != "" {
		query = query.Where("condition = ?", f.Condition)
	}

	if f.Location != "" {
		query = query.Where("location = ?", f.Location)
	}

	if f.IsAvailable != nil {
		query = query.Where("is_available = ?", *f.IsAvailable)
	}

	var instances []models.ProductInstance

	err := query.Preload("Product").Order("barcode").Find(&instances).Error

	return instances, errors.Wrap(err, "failed to list instances")
}

// GetInstance returns an instance with its product joined.
func (s *Service) GetInstance(id string) (*models.ProductInstance, error) {
	instance := new(models.ProductInstance)

	err := s.db.Preload("Product").Where("id = ?", id).First(instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeInstanceNotFound)
		}

		return nil, errors.Wrap(err, "failed to load instance")
	}

	return instance, nil
}

// GetInstanceByBarcode resolves a scanned label to its instance.
func (s *Service) GetInstanceByBarcode(code string) (*models.ProductInstance, error) {
	instance := new(models.ProductInstance)

	err := s.db.Preload("Product").Where("barcode = ?", code).First(instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeInstanceNotFound)
		}

		return nil, errors.Wrap(err, "failed to load instance")
	}

	return instance, nil
}

// UpdateInstanceInput carries editable instance fields. Nil pointers
// leave the field unchanged.
type UpdateInstanceInput struct {
	Barcode      *string
	SerialNumber *string
	Condition    *string
	IsAvailable  *bool
	Location     *string
	Notes        *string
}

// UpdateInstance edits a unit. Relabeling onto a taken barcode is a
// conflict.
func (s *Service) UpdateInstance(id string, in *UpdateInstanceInput, actorID string) (*models.ProductInstance, error) {
	instance, err := s.GetInstance(id)
	if err != nil {
		return nil, err
	}

	if in.Barcode != nil && *in.Barcode != instance.Barcode {
		var count int64
		if err := s.db.Model(&models.ProductInstance{}).
			Where("barcode = ? AND id <> ?", *in.Barcode, id).
			Count(&count).Error; err != nil {
			return nil, errors.Wrap(err, "failed to check barcode")
		}

		if count > 0 {
			return nil, apperr.Conflict(apperr.CodeInstanceBarcodeExists)
		}

		instance.Barcode = *in.Barcode
	}

	if in.SerialNumber != nil {
		instance.SerialNumber = *in.SerialNumber
	}

	if in.Condition != nil {
		instance.Condition = *in.Condition
	}

	if in.IsAvailable != nil {
		instance.IsAvailable = *in.IsAvailable
	}

	if in.Location != nil {
		instance.Location = *in.Location
	}

	if in.Notes != nil {
		instance.Notes = *in.Notes
	}

	if err := s.db.Save(instance).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeInstanceSaveFailed)
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityProductInstance, id, actorID,
		"Product instance updated", in)

	return instance, nil
}

// DeleteInstance removes a unit. Deletion is blocked while the unit is
// held by an open loan.
func (s *Service) DeleteInstance(id string, actorID string) error {
	instance, err := s.GetInstance(id)
	if err != nil {
		return err
	}

	onLoan, err := s.openLoanCount("loans.product_instance_id = ?", id)
	if err != nil {
		return err
	}

	if onLoan > 0 {
		return apperr.BadRequest(apperr.CodeInstanceOnLoan)
	}

	if err := s.db.Delete(instance).Error; err != nil {
		return errors.Wrap(err, "failed to delete instance")
	}

	s.audit.LogUserAction(models.AuditDelete, models.EntityProductInstance, id, actorID,
		"Product instance deleted", map[string]interface{}{"barcode": instance.Barcode})

	return nil
}
