package loans

import (
	"github.com/pkg/errors"

	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// Statistics summarizes the loan book.
type Statistics struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
	// AverageDurationDays is averaged over RETURNED loans only.
	AverageDurationDays float64          `json:"averageDurationDays"`
	ActiveByCategory    map[string]int64 `json:"activeByCategory"`
	OverdueByUser       []OverdueUser    `json:"overdueByUser"`
}

// OverdueUser is one borrower holding overdue loans.
type OverdueUser struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Count     int64  `json:"count"`
}

type statusCount struct {
	Status string
	Count  int64
}

type categoryCount struct {
	Category string
	Count    int64
}

// GetStatistics aggregates the loan book: counts per status, average
// loan duration, open loans per product category and overdue loans per
// borrower.
func (s *Service) GetStatistics() (*Statistics, error) {
	s.sweepOverdue()

	stats := &Statistics{
		ByStatus:         make(map[string]int64),
		ActiveByCategory: make(map[string]int64),
	}

	if err := s.db.Model(&models.Loan{}).Count(&stats.Total).Error; err != nil {
		return nil, errors.Wrap(err, "failed to count loans")
	}

	var byStatus []statusCount

	err := s.db.Model(&models.Loan{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate statuses")
	}

	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
	}

	// Average in Go rather than SQL; date arithmetic differs per engine.
	var returned []models.Loan

	err = s.db.Select("loan_date", "actual_return_date").
		Where("status = ? AND actual_return_date IS NOT NULL", models.LoanReturned).
		Find(&returned).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load returned loans")
	}

	if len(returned) > 0 {
		var totalDays float64
		for _, loan := range returned {
			totalDays += loan.ActualReturnDate.Sub(loan.LoanDate).Hours() / 24
		}

		stats.AverageDurationDays = totalDays / float64(len(returned))
	}

	var byCategory []categoryCount

	err = s.db.Model(&models.Loan{}).
		Select("products.category AS category, COUNT(*) AS count").
		Joins("JOIN product_instances ON product_instances.id = loans.product_instance_id").
		Joins("JOIN products ON products.id = product_instances.product_id").
		Where("loans.status IN ?", openStatuses).
		Group("products.category").
		Scan(&byCategory).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate categories")
	}

	for _, row := range byCategory {
		stats.ActiveByCategory[row.Category] = row.Count
	}

	err = s.db.Model(&models.Loan{}).
		Select("loans.user_id AS user_id, users.first_name, users.last_name, COUNT(*) AS count").
		Joins("JOIN users ON users.id = loans.user_id").
		Where("loans.status = ?", models.LoanOverdue).
		Group("loans.user_id, users.first_name, users.last_name").
		Order("count DESC").
		Scan(&stats.OverdueByUser).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate overdue borrowers")
	}

	return stats, nil
}
