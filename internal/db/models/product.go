package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog entry for a type of durable medical equipment
// (wheelchair, walker, bed). Physical units are tracked as ProductInstances.
type Product struct {
	// ID is the unique identifier for the product (UUID string).
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`
	// Name is the catalog name of the product.
	Name string `gorm:"size:200;not null;uniqueIndex:idx_product_identity" json:"name"`
	// Category groups products for statistics, e.g. "wheelchairs".
	Category string `gorm:"size:100;not null" json:"category"`
	// Manufacturer of this product.
	Manufacturer string `gorm:"size:100;uniqueIndex:idx_product_identity" json:"manufacturer"`
	// Model is the manufacturer's model designation.
	Model string `gorm:"size:100;uniqueIndex:idx_product_identity" json:"model"`
	// Description provides free-text details about the product.
	Description string `gorm:"size:1000" json:"description,omitempty"`
	// Instances are the physical units of this product.
	Instances []ProductInstance `gorm:"foreignKey:ProductID" json:"instances,omitempty"`
	// CreatedAt is the timestamp when the product was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the product was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the Product model.
func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	return nil
}
