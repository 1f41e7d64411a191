package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoanStatus is the finite state of a loan.
type LoanStatus string

const (
	// LoanActive is the initial state of every loan.
	LoanActive LoanStatus = "ACTIVE"
	// LoanOverdue is an active loan whose expected return date has passed.
	LoanOverdue LoanStatus = "OVERDUE"
	// LoanReturned is the terminal state of a returned loan.
	LoanReturned LoanStatus = "RETURNED"
	// LoanLost is the terminal state of a loan whose equipment was lost.
	LoanLost LoanStatus = "LOST"
)

// IsOpen reports whether the status still counts against the per-user loan
// ceiling and the per-instance exclusivity rule (ACTIVE or OVERDUE).
func (s LoanStatus) IsOpen() bool {
	return s == LoanActive || s == LoanOverdue
}

// Loan binds one User to one ProductInstance for a time window.
// Loans are never deleted; history is permanent. ActualReturnDate is set if
// and only if the status is RETURNED. Notes is an append-only narrative:
// return and loss events are appended as dated annotations.
type Loan struct {
	// ID is the unique identifier for the loan (UUID string).
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
	// UserID is the borrowing user.
	UserID string `gorm:"type:varchar(36);index;not null" json:"userId"`
	// User is the borrower (loaded via foreign key).
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	// ProductInstanceID is the borrowed unit.
	ProductInstanceID string `gorm:"type:varchar(36);index;not null" json:"productInstanceId"`
	// ProductInstance is the borrowed unit (loaded via foreign key).
	ProductInstance ProductInstance `gorm:"foreignKey:ProductInstanceID" json:"productInstance,omitempty"`
	// Status is the loan's current state.
	Status LoanStatus `gorm:"type:varchar(20);index;not null;default:'ACTIVE'" json:"status"`
	// LoanDate is when the loan was created.
	LoanDate time.Time `gorm:"not null" json:"loanDate"`
	// ExpectedReturnDate is when the equipment is due back, when agreed.
	ExpectedReturnDate *time.Time `json:"expectedReturnDate,omitempty"`
	// ActualReturnDate is when the equipment came back; set only on return.
	ActualReturnDate *time.Time `json:"actualReturnDate,omitempty"`
	// Notes is the append-only free-text narrative for this loan.
	Notes string `gorm:"size:2000" json:"notes,omitempty"`
	// CreatedAt is the timestamp when the loan was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the loan was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the Loan model.
func (Loan) TableName() string {
	return "loans"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (l *Loan) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	return nil
}
