package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
)

// Product is a catalog listing owned by a supplier. AvailableQuantity is only
// changed through guarded increments and decrements.
type Product struct {
	ID                   uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID           uuid.UUID             `gorm:"column:supplier_id;type:uuid;not null;index"`
	Name                 string                `gorm:"column:name;not null"`
	Description          *string               `gorm:"column:description"`
	Category             enums.ProductCategory `gorm:"column:category;type:text;not null"`
	PriceAmount          decimal.Decimal       `gorm:"column:price_amount;type:numeric(12,2);not null"`
	PriceUnit            enums.PriceUnit       `gorm:"column:price_unit;type:text;not null"`
	AvailableQuantity    int                   `gorm:"column:available_quantity;not null;default:0"`
	MinimumOrderQuantity int                   `gorm:"column:minimum_order_quantity;not null;default:1"`
	IsActive             bool                  `gorm:"column:is_active;not null"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
