package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Instance condition vocabulary. The column is free-form so intake staff can
// record nuances, but these are the values the UI offers.
const (
	ConditionExcellent   = "excellent"
	ConditionGood        = "good"
	ConditionFair        = "fair"
	ConditionPoor        = "poor"
	ConditionNeedsRepair = "needs-repair"
)

// ProductInstance is one physical, trackable unit of a Product, identified by
// a unique barcode. At most one loan may be active against an instance at any
// time; IsAvailable is the stored signal for "borrowable right now".
type ProductInstance struct {
	// ID is the unique identifier for the instance (UUID string).
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
	// ProductID is the catalog product this unit belongs to.
	ProductID string `gorm:"type:varchar(36);index;not null" json:"productId"`
	// Product is the associated catalog entry (loaded via foreign key).
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	// Barcode is the unique physical label on the unit.
	Barcode string `gorm:"unique;size:100;not null" json:"barcode"`
	// SerialNumber is the manufacturer serial, when known.
	SerialNumber string `gorm:"size:100" json:"serialNumber,omitempty"`
	// Condition describes the physical state of the unit.
	Condition string `gorm:"size:50;not null;default:'good'" json:"condition"`
	// IsAvailable indicates whether the unit can currently be loaned out.
	IsAvailable bool `gorm:"not null;default:true" json:"isAvailable"`
	// Location is where the unit is stored.
	Location string `gorm:"size:200" json:"location,omitempty"`
	// Notes holds free-text remarks about the unit.
	Notes string `gorm:"size:1000" json:"notes,omitempty"`
	// Loans are the loans recorded against this unit.
	Loans []Loan `gorm:"foreignKey:ProductInstanceID" json:"-"`
	// CreatedAt is the timestamp when the instance was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the instance was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the ProductInstance model.
func (ProductInstance) TableName() string {
	return "product_instances"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (pi *ProductInstance) BeforeCreate(_ *gorm.DB) error {
	if pi.ID == "" {
		pi.ID = uuid.NewString()
	}

	return nil
}
