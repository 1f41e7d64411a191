// Package audit implements the append-only action trail: a write API used
// by the other services, an HTTP interceptor that records every API
// request, and query operations for reviewing the trail.
package audit

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// Service writes and queries audit log entries.
type Service struct {
	db            *gorm.DB
	retentionDays int
}

// NewService creates a new audit service. retentionDays is the default
// age threshold for Cleanup when the caller does not provide one.
func NewService(db *gorm.DB, retentionDays int) *Service {
	return &Service{db: db, retentionDays: retentionDays}
}

// Create writes a single audit entry.
func (s *Service) Create(entry *models.AuditLog) error {
	return errors.Wrap(s.db.Create(entry).Error, "failed to write audit entry")
}

// record writes an entry and swallows any failure with a log line. An
// audit write must never fail the operation that triggered it.
func (s *Service) record(entry *models.AuditLog) {
	if err := s.Create(entry); err != nil {
		log.Error().Err(err).
			Str("action", string(entry.Action)).
			Str("entity_type", string(entry.EntityType)).
			Msg("Failed to write audit entry")
	}
}

// LogUserAction records a data-plane action performed by a user.
func (s *Service) LogUserAction(action models.AuditAction, entity models.AuditEntity,
	entityID, userID, description string, metadata interface{},
) {
	s.record(&models.AuditLog{
		Action:      action,
		EntityType:  entity,
		EntityID:    entityID,
		UserID:      userID,
		Description: description,
		Metadata:    Sanitize(metadata),
	})
}

// LogDataChange records an update together with the state it replaced,
// so the trail shows what a record looked like before the edit.
func (s *Service) LogDataChange(entity models.AuditEntity, entityID, userID,
	description string, before, after interface{},
) {
	s.record(&models.AuditLog{
		Action:      models.AuditUpdate,
		EntityType:  entity,
		EntityID:    entityID,
		UserID:      userID,
		Description: description,
		Metadata:    Sanitize(map[string]interface{}{"before": before, "after": after}),
	})
}

// LogSecurityEvent records an authentication event such as a login,
// logout or failed login attempt.
func (s *Service) LogSecurityEvent(action models.AuditAction, userID, ip, userAgent,
	description string, metadata interface{},
) {
	s.record(&models.AuditLog{
		Action:      action,
		EntityType:  models.EntityAuth,
		UserID:      userID,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Description: description,
		Metadata:    Sanitize(metadata),
	})
}

// LogSystemEvent records an event without an acting user, such as the
// retention cleanup or the startup seed.
func (s *Service) LogSystemEvent(description string, metadata interface{}) {
	s.record(&models.AuditLog{
		Action:      models.AuditSystemEvent,
		EntityType:  models.EntitySystem,
		Description: description,
		Metadata:    Sanitize(metadata),
	})
}

// LogError records a failure as an audit entry.
func (s *Service) LogError(entity models.AuditEntity, entityID, userID,
	description, errorMessage string,
) {
	s.record(&models.AuditLog{
		Action:       models.AuditError,
		EntityType:   entity,
		EntityID:     entityID,
		UserID:       userID,
		Description:  description,
		ErrorMessage: errorMessage,
	})
}

// Filters narrows an audit trail query. Zero values are ignored.
type Filters struct {
	Action     models.AuditAction
	EntityType models.AuditEntity
	EntityID   string
	UserID     string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

// List returns a page of audit entries matching the filters, newest
// first, along with the total match count.
func (s *Service) List(f Filters) ([]models.AuditLog, int64, error) {
	query := s.db.Model(&models.AuditLog{})

	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}

	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}

	if f.EntityID != "" {
		query = query.Where("entity_id = ?", f.EntityID)
	}

	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}

	if f.From != nil {
		query = query.Where("created_at >= ?", f.From)
	}

	if f.To != nil {
		query = query.Where("created_at <= ?", f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count audit entries")
	}

	page := f.Page
	if page < 1 {
		page = 1
	}

	limit := f.Limit
	if limit < 1 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	var entries []models.AuditLog

	err := query.Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list audit entries")
	}

	return entries, total, nil
}

// GetByID returns a single audit entry.
func (s *Service) GetByID(id string) (*models.AuditLog, error) {
	entry := new(models.AuditLog)

	err := s.db.Preload("User").Where("id = ?", id).First(entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(apperr.CodeAuditNotFound)
		}

		return nil, errors.Wrap(err, "failed to load audit entry")
	}

	return entry, nil
}

// Statistics summarizes the audit trail.
type Statistics struct {
	Total      int64             `json:"total"`
	ByAction   map[string]int64  `json:"byAction"`
	ByEntity   map[string]int64  `json:"byEntity"`
	Errors     int64             `json:"errors"`
	FailedLast int64             `json:"failedLoginsLast24h"`
	TopUsers   []UserCount       `json:"topUsers"`
	Recent     []models.AuditLog `json:"recent"`
}

// UserCount is one row of the most-active-users breakdown.
type UserCount struct {
	UserID string `json:"userId"`
	Count  int64  `json:"count"`
}

type bucketCount struct {
	Bucket string
	Count  int64
}

// GetStatistics returns aggregate counts over the whole trail.
func (s *Service) GetStatistics() (*Statistics, error) {
	stats := &Statistics{
		ByAction: make(map[string]int64),
		ByEntity: make(map[string]int64),
	}

	if err := s.db.Model(&models.AuditLog{}).Count(&stats.Total).Error; err != nil {
		return nil, errors.Wrap(err, "failed to count audit entries")
	}

	var byAction []bucketCount

	err := s.db.Model(&models.AuditLog{}).
		Select("action AS bucket, COUNT(*) AS count").
		Group("action").
		Scan(&byAction).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate actions")
	}

	for _, row := range byAction {
		stats.ByAction[row.Bucket] = row.Count
	}

	var byEntity []bucketCount

	err = s.db.Model(&models.AuditLog{}).
		Select("entity_type AS bucket, COUNT(*) AS count").
		Group("entity_type").
		Scan(&byEntity).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate entities")
	}

	for _, row := range byEntity {
		stats.ByEntity[row.Bucket] = row.Count
	}

	err = s.db.Model(&models.AuditLog{}).
		Where("action = ? AND created_at >= ?",
			models.AuditFailedLogin, time.Now().Add(-24*time.Hour)).
		Count(&stats.FailedLast).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count failed logins")
	}

	stats.Errors = stats.ByAction[string(models.AuditError)]

	err = s.db.Model(&models.AuditLog{}).
		Select("user_id, COUNT(*) AS count").
		Where("user_id <> ''").
		Group("user_id").
		Order("count DESC").
		Limit(5).
		Scan(&stats.TopUsers).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate users")
	}

	err = s.db.Preload("User").
		Order("created_at DESC").
		Limit(10).
		Find(&stats.Recent).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load recent entries")
	}

	return stats, nil
}

// Cleanup deletes entries older than the given number of days and
// returns the number removed. A non-positive value falls back to the
// configured retention default. The cleanup itself is recorded as a
// system event.
func (s *Service) Cleanup(olderThanDays int) (int64, error) {
	days := olderThanDays
	if days <= 0 {
		days = s.retentionDays
	}

	cutoff := time.Now().AddDate(0, 0, -days)

	result := s.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to clean up audit entries")
	}

	s.LogSystemEvent("Audit retention cleanup", map[string]interface{}{
		"olderThanDays": days,
		"deleted":       result.RowsAffected,
	})

	log.Info().Int64("deleted", result.RowsAffected).Int("older_than_days", days).
		Msg("Audit retention cleanup finished")

	return result.RowsAffected, nil
}
