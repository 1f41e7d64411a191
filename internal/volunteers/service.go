// Package volunteers tracks volunteer activities and hour totals.
// Volunteers may only record and review their own activities; workers
// and admins operate on any volunteer.
package volunteers

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// Hour bounds for a single activity.
const (
	MinHours = 0.1
	MaxHours = 24
)

// Service implements volunteer activity operations.
type Service struct {
	db    *gorm.DB
	audit *audit.Service
}

// NewService creates a new volunteer service.
func NewService(db *gorm.DB, auditSvc *audit.Service) *Service {
	return &Service{db: db, audit: auditSvc}
}

// Actor identifies who is performing an operation, for the self-scope
// rule.
type Actor struct {
	ID   string
	Role models.UserRole
}

// mayAccess reports whether the actor may touch the given volunteer's
// records.
func (a Actor) mayAccess(volunteerID string) bool {
	if a.Role == models.RoleVolunteer {
		return a.ID == volunteerID
	}

	return true
}

// getVolunteer loads a user and verifies the volunteer role and active
// state.
func (s *Service) getVolunteer(id string) (*models.User, error) {
	user := new(models.User)

	err := s.db.Where("id = ? AND role = ? AND is_active = ?",
		id, models.RoleVolunteer, true).First(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeVolunteerNotFound)
		}

		return nil, errors.Wrap(err, "failed to load volunteer")
	}

	return user, nil
}

func validateHours(hours float64) error {
	if hours < MinHours || hours > MaxHours {
		return apperr.BadRequest(apperr.CodeActivityHoursRange)
	}

	return nil
}

func validateDate(date time.Time) error {
	if date.After(time.Now()) {
		return apperr.BadRequest(apperr.CodeActivityFutureDate)
	}

	return nil
}

// CreateInput carries the fields for a new activity record.
type CreateInput struct {
	VolunteerID  string
	ActivityType string
	Description  string
	Hours        float64
	Date         time.Time
	Notes        string
}

// Create records an activity. The volunteer must exist, hold the
// volunteer role and be active; hours and date are bounded; volunteers
// record only for themselves.
func (s *Service) Create(in *CreateInput, actor Actor) (*models.VolunteerActivity, error) {
	if !actor.mayAccess(in.VolunteerID) {
		return nil, apperr.Forbidden(apperr.CodeActivitySelfOnly)
	}

	if _, err := s.getVolunteer(in.VolunteerID); err != nil {
		return nil, err
	}

	if err := validateHours(in.Hours); err != nil {
		return nil, err
	}

	if err := validateDate(in.Date); err != nil {
		return nil, err
	}

	activity := &models.VolunteerActivity{
		VolunteerID:  in.VolunteerID,
		ActivityType: in.ActivityType,
		Description:  in.Description,
		Hours:        in.Hours,
		Date:         in.Date,
		Notes:        in.Notes,
	}

	if err := s.db.Create(activity).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeActivitySaveFailed)
	}

	s.audit.LogUserAction(models.AuditCreate, models.EntityVolunteerActivity,
		activity.ID, actor.ID, "Volunteer activity recorded", map[string]interface{}{
			"volunteerId":  in.VolunteerID,
			"activityType": in.ActivityType,
			"hours":        in.Hours,
		})

	return activity, nil
}

// Filters narrows an activity listing. Zero values are ignored.
type Filters struct {
	VolunteerID  string
	ActivityType string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

// List returns a page of activities, newest first, with the total match
// count. Volunteers see only their own records regardless of filters.
func (s *Service) List(f Filters, actor Actor) ([]models.VolunteerActivity, int64, error) {
	if actor.Role == models.RoleVolunteer {
		f.VolunteerID = actor.ID
	}

	query := s.db.Model(&models.VolunteerActivity{})

	if f.VolunteerID != "" {
		query = query.Where("volunteer_id = ?", f.VolunteerID)
	}

	if f.ActivityType != "" {
		query = query.Where("activity_type = ?", f.ActivityType)
	}

	if f.From != nil {
		query = query.Where("date >= ?", f.From)
	}

	if f.To != nil {
		query = query.Where("date <= ?", f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count activities")
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

	var activities []models.VolunteerActivity

	err := query.Preload("Volunteer").
		Order("date DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list activities")
	}

	return activities, total, nil
}

// Get returns one activity. Volunteers can only read their own.
func (s *Service) Get(id string, actor Actor) (*models.VolunteerActivity, error) {
	activity := new(models.VolunteerActivity)

	err := s.db.Preload("Volunteer").Where("id = ?", id).First(activity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeActivityNotFound)
		}

		return nil, errors.Wrap(err, "failed to load activity")
	}

	if !actor.mayAccess(activity.VolunteerID) {
		return nil, apperr.Forbidden(apperr.CodeActivityViewSelfOnly)
	}

	return activity, nil
}

// UpdateInput carries editable activity fields. Nil pointers leave the
// field unchanged.
type UpdateInput struct {
	ActivityType *string
	Description  *string
	Hours        *float64
	Date         *time.Time
	Notes        *string
}

// Update edits an activity under the same bounds as Create.
func (s *Service) Update(id string, in *UpdateInput, actor Actor) (*models.VolunteerActivity, error) {
	activity, err := s.Get(id, actor)
	if err != nil {
		return nil, err
	}

	if in.Hours != nil {
		if err := validateHours(*in.Hours); err != nil {
			return nil, err
		}

		activity.Hours = *in.Hours
	}

	if in.Date != nil {
		if err := validateDate(*in.Date); err != nil {
			return nil, err
		}

		activity.Date = *in.Date
	}

	if in.ActivityType != nil {
		activity.ActivityType = *in.ActivityType
	}

	if in.Description != nil {
		activity.Description = *in.Description
	}

	if in.Notes != nil {
		activity.Notes = *in.Notes
	}

	if err := s.db.Save(activity).Error; err != nil {
		return nil, apperr.Wrap(err, apperr.KindBadRequest, apperr.CodeActivitySaveFailed)
	}

	s.audit.LogUserAction(models.AuditUpdate, models.EntityVolunteerActivity,
		id, actor.ID, "Volunteer activity updated", in)

	return activity, nil
}

// Delete removes an activity record.
func (s *Service) Delete(id string, actor Actor) error {
	activity, err := s.Get(id, actor)
	if err != nil {
		return err
	}

	if err := s.db.Delete(activity).Error; err != nil {
		return errors.Wrap(err, "failed to delete activity")
	}

	s.audit.LogUserAction(models.AuditDelete, models.EntityVolunteerActivity,
		id, actor.ID, "Volunteer activity deleted", nil)

	return nil
}
