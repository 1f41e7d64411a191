// Package loans implements the lending state machine. A loan moves
// ACTIVE -> OVERDUE when its expected return date passes, and ends in
// RETURNED or LOST. Open loans hold their product instance exclusively
// and count against the per-user ceiling. Loans are never deleted.
package loans

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// MaxOpenLoans is the per-user ceiling of simultaneously open loans.
const MaxOpenLoans = 3

// Service implements loan lifecycle operations.
type Service struct {
	db    *gorm.DB
	audit *audit.Service
}

// NewService creates a new loan service.
func NewService(db *gorm.DB, auditSvc *audit.Service) *Service {
	return &Service{db: db, audit: auditSvc}
}

// withRowLock adds SELECT ... FOR UPDATE on engines that support it.
// SQLite serializes writes on its own and rejects the clause.
func withRowLock(tx *gorm.DB) *gorm.DB {
	switch tx.Dialector.Name() {
	case "mysql", "postgres":
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	default:
		return tx
	}
}

// openStatuses are the states that hold an instance and count against
// the ceiling.
var openStatuses = []models.LoanStatus{models.LoanActive, models.LoanOverdue}

// sweepOverdue flips every ACTIVE loan whose expected return date has
// passed to OVERDUE. Loans without an expected return date never
// transition on their own. Called lazily before reads so listings and
// statistics always reflect the current clock.
func (s *Service) sweepOverdue() {
	result := s.db.Model(&models.Loan{}).
		Where("status = ? AND expected_return_date IS NOT NULL AND expected_return_date < ?",
			models.LoanActive, time.Now()).
		Update("status", models.LoanOverdue)
	if result.Error != nil {
		log.Error().Err(result.Error).Msg("Failed to sweep overdue loans")

		return
	}

	if result.RowsAffected > 0 {
		log.Info().Int64("count", result.RowsAffected).Msg("Loans marked overdue")
	}
}

// appendNote adds a dated annotation to a loan's narrative.
func appendNote(existing, event, text string) string {
	if text == "" {
		return existing
	}

	annotation := fmt.Sprintf("[%s %s] %s", time.Now().Format("2006-01-02"), event, text)
	if existing == "" {
		return annotation
	}

	return existing + "\n" + annotation
}

// CreateInput carries the fields for a new loan.
type CreateInput struct {
	UserID             string
	ProductInstanceID  string
	ExpectedReturnDate *time.Time
	Notes              string
}

// Create opens a loan. The borrower must exist and be active, the
// instance must be available with no open loan, and the borrower must be
// under the open-loan ceiling. All checks and the write run in one
// transaction with the instance row locked, so two concurrent requests
// for the same unit cannot both succeed.
func (s *Service) Create(in *CreateInput, actorID string) (*models.Loan, error) {
	loan := &models.Loan{
		UserID:             in.UserID,
		ProductInstanceID:  in.ProductInstanceID,
		Status:             models.LoanActive,
		LoanDate:           time.Now(),
		ExpectedReturnDate: in.ExpectedReturnDate,
		Notes:              in.Notes,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ? AND is_active = ?", in.UserID, true).
			First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(apperr.CodeUserNotFound)
			}

			return errors.Wrap(err, "failed to load borrower")
		}

		var instance models.ProductInstance
		if err := withRowLock(tx).Where("id = ?", in.ProductInstanceID).
			First(&instance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(apperr.CodeInstanceNotFound)
			}

			return errors.Wrap(err, "failed to load instance")
		}

		var onLoan int64
		if err := tx.Model(&models.Loan{}).
			Where("product_instance_id = ? AND status IN ?", instance.ID, openStatuses).
			Count(&onLoan).Error; err != nil {
			return errors.Wrap(err, "failed to count instance loans")
		}

		if !instance.IsAvailable || onLoan > 0 {
			return apperr.Conflict(apperr.CodeInstanceOnLoan)
		}

		var open int64
		if err := tx.Model(&models.Loan{}).
			Where("user_id = ? AND status IN ?", in.UserID, openStatuses).
			Count(&open).Error; err != nil {
			return errors.Wrap(err, "failed to count user loans")
		}

		if open >= MaxOpenLoans {
			return apperr.Conflict(apperr.CodeLoanCeiling)
		}

		if err := tx.Create(loan).Error; err != nil {
			return apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeLoanSaveFailed)
		}

		err := tx.Model(&models.ProductInstance{}).Where("id = ?", instance.ID).
			Update("is_available", false).Error

		return errors.Wrap(err, "failed to reserve instance")
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogUserAction(models.AuditCreate, models.EntityLoan, loan.ID, actorID,
		"Loan created", map[string]interface{}{
			"userId":            loan.UserID,
			"productInstanceId": loan.ProductInstanceID,
		})

	return s.Get(loan.ID)
}

// Get returns a loan with borrower, instance and product joined.
func (s *Service) Get(id string) (*models.Loan, error) {
	s.sweepOverdue()

	loan := new(models.Loan)

	err := s.db.Preload("User").Preload("ProductInstance").
		Preload("ProductInstance.Product").
		Where("id = ?", id).First(loan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeLoanNotFound)
		}

		return nil, errors.Wrap(err, "failed to load loan")
	}

	return loan, nil
}

// Filters narrows a loan listing. Zero values are ignored.
type Filters struct {
	UserID   string
	Status   models.LoanStatus
	Category string
	Search   string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

// List returns a page of loans matching the filters, newest first, with
// the total match count.
func (s *Service) List(f Filters) ([]models.Loan, int64, error) {
	s.sweepOverdue()

	query := s.db.Model(&models.Loan{}).
		Joins("JOIN users ON users.id = loans.user_id").
		Joins("JOIN product_instances ON product_instances.id = loans.product_instance_id").
		Joins("JOIN products ON products.id = product_instances.product_id")

	if f.UserID != "" {
		query = query.Where("loans.user_id = ?", f.UserID)
	}

	if f.Status != "" {
		query = query.Where("loans.status = ?", f.Status)
	}

	if f.Category != "" {
		query = query.Where("products.category = ?", f.Category)
	}

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		query = query.Where(
			"users.first_name LIKE ? OR users.last_name LIKE ? OR users.email LIKE ?"+
				" OR products.name LIKE ? OR product_instances.barcode LIKE ?",
			pattern, pattern, pattern, pattern, pattern)
	}

	if f.From != nil {
		query = query.Where("loans.loan_date >= ?", f.From)
	}

	if f.To != nil {
		query = query.Where("loans.loan_date <= ?", f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count loans")
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

	var loans []models.Loan

	err := query.Preload("User").Preload("ProductInstance").
		Preload("ProductInstance.Product").
		Order("loans.loan_date DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&loans).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list loans")
	}

	return loans, total, nil
}

// Active returns every open loan that is not yet overdue.
func (s *Service) Active() ([]models.Loan, error) {
	return s.byStatus(models.LoanActive)
}

// Overdue returns every overdue loan.
func (s *Service) Overdue() ([]models.Loan, error) {
	return s.byStatus(models.LoanOverdue)
}

func (s *Service) byStatus(status models.LoanStatus) ([]models.Loan, error) {
	s.sweepOverdue()

	var loans []models.Loan

	err := s.db.Preload("User").Preload("ProductInstance").
		Preload("ProductInstance.Product").
		Where("status = ?", status).
		Order("loan_date DESC").
		Find(&loans).Error

	return loans, errors.Wrap(err, "failed to list loans by status")
}

// UserActive returns a user's open loans, overdue included.
func (s *Service) UserActive(userID string) ([]models.Loan, error) {
	s.sweepOverdue()

	var loans []models.Loan

	err := s.db.Preload("ProductInstance").Preload("ProductInstance.Product").
		Where("user_id = ? AND status IN ?", userID, openStatuses).
		Order("loan_date DESC").
		Find(&loans).Error

	return loans, errors.Wrap(err, "failed to list user loans")
}

// ReturnInput carries the optional fields accompanying a return.
type ReturnInput struct {
	Notes string
	// Condition updates the instance's condition on return when set.
	Condition string
}

// Return closes an open loan: the status becomes RETURNED, the actual
// return date is set, a dated annotation is appended and the instance
// becomes available again.
func (s *Service) Return(id string, in *ReturnInput, actorID string) (*models.Loan, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var loan models.Loan
		if err := withRowLock(tx).Where("id = ?", id).First(&loan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(apperr.CodeLoanNotFound)
			}

			return errors.Wrap(err, "failed to load loan")
		}

		if !loan.Status.IsOpen() {
			return apperr.BadRequest(apperr.CodeLoanNotOpen)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":             models.LoanReturned,
			"actual_return_date": &now,
			"notes":              appendNote(loan.Notes, "returned", in.Notes),
		}

		if err := tx.Model(&loan).Updates(updates).Error; err != nil {
			return errors.Wrap(err, "failed to close loan")
		}

		instanceUpdates := map[string]interface{}{"is_available": true}
		if in.Condition != "" {
			instanceUpdates["condition"] = in.Condition
		}

		err := tx.Model(&models.ProductInstance{}).
			Where("id = ?", loan.ProductInstanceID).
			Updates(instanceUpdates).Error

		return errors.Wrap(err, "failed to release instance")
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityLoan, id, actorID,
		"Loan returned", map[string]interface{}{"condition": in.Condition})

	return s.Get(id)
}

// ReturnByBarcode closes the open loan holding the instance with the
// given barcode. Scanning the unit at the counter is the common return
// path.
func (s *Service) ReturnByBarcode(barcode string, in *ReturnInput, actorID string) (*models.Loan, error) {
	var instance models.ProductInstance
	if err := s.db.Where("barcode = ?", barcode).First(&instance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeInstanceNotFound)
		}

		return nil, errors.Wrap(err, "failed to load instance")
	}

	var loan models.Loan

	err := s.db.Where("product_instance_id = ? AND status IN ?", instance.ID, openStatuses).
		First(&loan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeLoanNotFound)
		}

		return nil, errors.Wrap(err, "failed to find open loan")
	}

	return s.Return(loan.ID, in, actorID)
}

// MarkLost closes an open loan as LOST. The instance stays unavailable;
// lost equipment is not lendable until an operator says otherwise.
func (s *Service) MarkLost(id, notes, actorID string) (*models.Loan, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var loan models.Loan
		if err := withRowLock(tx).Where("id = ?", id).First(&loan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(apperr.CodeLoanNotFound)
			}

			return errors.Wrap(err, "failed to load loan")
		}

		if !loan.Status.IsOpen() {
			return apperr.BadRequest(apperr.CodeLoanLostNotOpen)
		}

		err := tx.Model(&loan).Updates(map[string]interface{}{
			"status": models.LoanLost,
			"notes":  appendNote(loan.Notes, "lost", notes),
		}).Error

		return errors.Wrap(err, "failed to mark loan lost")
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityLoan, id, actorID,
		"Loan marked lost", nil)

	return s.Get(id)
}

// UpdateInput carries the admin-override fields. Nil pointers leave the
// field unchanged.
type UpdateInput struct {
	ExpectedReturnDate *time.Time
	Notes              *string
	Status             *models.LoanStatus
}

// Update applies an administrative override to a loan. Moving into
// RETURNED sets the actual return date and frees the instance; moving
// back out clears the date and reserves the instance again.
func (s *Service) Update(id string, in *UpdateInput, actorID string) (*models.Loan, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var loan models.Loan
		if err := withRowLock(tx).Where("id = ?", id).First(&loan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(apperr.CodeLoanNotFound)
			}

			return errors.Wrap(err, "failed to load loan")
		}

		updates := map[string]interface{}{}

		if in.ExpectedReturnDate != nil {
			updates["expected_return_date"] = in.ExpectedReturnDate
		}

		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}

		if in.Status != nil && *in.Status != loan.Status {
			updates["status"] = *in.Status

			if *in.Status == models.LoanReturned {
				now := time.Now()
				updates["actual_return_date"] = &now
			} else if loan.Status == models.LoanReturned {
				updates["actual_return_date"] = gorm.Expr("NULL")
			}

			available := *in.Status == models.LoanReturned

			err := tx.Model(&models.ProductInstance{}).
				Where("id = ?", loan.ProductInstanceID).
				Update("is_available", available).Error
			if err != nil {
				return errors.Wrap(err, "failed to update instance availability")
			}
		}

		if len(updates) == 0 {
			return nil
		}

		err := tx.Model(&loan).Updates(updates).Error

		return errors.Wrap(err, "failed to update loan")
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityLoan, id, actorID,
		"Loan updated", in)

	return s.Get(id)
}
