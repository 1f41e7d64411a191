package volunteers

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// Statistics summarizes one volunteer's work.
type Statistics struct {
	VolunteerID     string             `json:"volunteerId"`
	TotalActivities int64              `json:"totalActivities"`
	TotalHours      float64            `json:"totalHours"`
	HoursByType     map[string]float64 `json:"hoursByType"`
	HoursByMonth    map[string]float64 `json:"hoursByMonth"`
	// Recent holds the five most recent activities.
	Recent []models.VolunteerActivity `json:"recent"`
}

// GetStatistics aggregates a volunteer's recorded work. Volunteers can
// only view their own statistics.
func (s *Service) GetStatistics(volunteerID string, actor Actor) (*Statistics, error) {
	if !actor.mayAccess(volunteerID) {
		return nil, apperr.Forbidden(apperr.CodeActivityViewSelfOnly)
	}

	if _, err := s.getVolunteer(volunteerID); err != nil {
		return nil, err
	}

	stats := &Statistics{
		VolunteerID:  volunteerID,
		HoursByType:  make(map[string]float64),
		HoursByMonth: make(map[string]float64),
	}

	// Aggregate in Go; the month key format differs per SQL engine.
	var activities []models.VolunteerActivity
	if err := s.db.Where("volunteer_id = ?", volunteerID).
		Find(&activities).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load activities")
	}

	for _, activity := range activities {
		stats.TotalActivities++
		stats.TotalHours += activity.Hours
		stats.HoursByType[activity.ActivityType] += activity.Hours
		stats.HoursByMonth[activity.Date.Format("2006-01")] += activity.Hours
	}

	err := s.db.Where("volunteer_id = ?", volunteerID).
		Order("date DESC").
		Limit(5).
		Find(&stats.Recent).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load recent activities")
	}

	return stats, nil
}

// Report summarizes all volunteer work over a period.
type Report struct {
	From            time.Time          `json:"from"`
	To              time.Time          `json:"to"`
	TotalActivities int64              `json:"totalActivities"`
	TotalHours      float64            `json:"totalHours"`
	HoursByType     map[string]float64 `json:"hoursByType"`
	ByVolunteer     []VolunteerTotal   `json:"byVolunteer"`
}

// VolunteerTotal is one volunteer's share of a period report.
type VolunteerTotal struct {
	VolunteerID string  `json:"volunteerId"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Activities  int64   `json:"activities"`
	Hours       float64 `json:"hours"`
}

// GetReport aggregates all activity in [from, to] across volunteers,
// sorted by hours contributed.
func (s *Service) GetReport(from, to time.Time) (*Report, error) {
	report := &Report{
		From:        from,
		To:          to,
		HoursByType: make(map[string]float64),
	}

	var activities []models.VolunteerActivity

	err := s.db.Preload("Volunteer").
		Where("date >= ? AND date <= ?", from, to).
		Find(&activities).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load activities")
	}

	totals := make(map[string]*VolunteerTotal)

	for _, activity := range activities {
		report.TotalActivities++
		report.TotalHours += activity.Hours
		report.HoursByType[activity.ActivityType] += activity.Hours

		entry, ok := totals[activity.VolunteerID]
		if !ok {
			entry = &VolunteerTotal{
				VolunteerID: activity.VolunteerID,
				FirstName:   activity.Volunteer.FirstName,
				LastName:    activity.Volunteer.LastName,
			}
			totals[activity.VolunteerID] = entry
		}

		entry.Activities++
		entry.Hours += activity.Hours
	}

	report.ByVolunteer = make([]VolunteerTotal, 0, len(totals))
	for _, entry := range totals {
		report.ByVolunteer = append(report.ByVolunteer, *entry)
	}

	// Largest contribution first.
	sort.Slice(report.ByVolunteer, func(i, j int) bool {
		return report.ByVolunteer[i].Hours > report.ByVolunteer[j].Hours
	})

	return report, nil
}
