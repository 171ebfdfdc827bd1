package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
)

// Cart is the single staging cart of a vendor. Totals are derived from Items
// and rewritten on every mutation together with Version.
type Cart struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID       uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex"`
	TotalItems     int             `gorm:"column:total_items;not null;default:0"`
	EstimatedTotal decimal.Decimal `gorm:"column:estimated_total;type:numeric(12,2);not null;default:0"`
	Version        int             `gorm:"column:version;not null;default:0"`
	LastUpdatedAt  time.Time       `gorm:"column:last_updated_at"`
	Items          []CartItem      `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem keeps the price seen when the line was added so later catalog
// changes surface as price_change issues.
type CartItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID           uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_cart_product"`
	Quantity         int             `gorm:"column:quantity;not null"`
	PriceAtAddAmount decimal.Decimal `gorm:"column:price_at_add_amount;type:numeric(12,2);not null"`
	PriceAtAddUnit   enums.PriceUnit `gorm:"column:price_at_add_unit;type:text;not null"`
	Notes            *string         `gorm:"column:notes"`
	Position         int             `gorm:"column:position;not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotal is quantity times the snapshot price.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.PriceAtAddAmount.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
