package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a vendor's rating of one supplier for one delivered order.
type Review struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	VendorID            uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_reviews_vendor_supplier_order"`
	SupplierID          uuid.UUID  `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_reviews_vendor_supplier_order;index"`
	OrderID             uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_reviews_vendor_supplier_order"`
	ProductID           *uuid.UUID `gorm:"column:product_id;type:uuid"`
	Rating              int        `gorm:"column:rating;not null"`
	QualityRating       *int       `gorm:"column:quality_rating"`
	DeliveryRating      *int       `gorm:"column:delivery_rating"`
	CommunicationRating *int       `gorm:"column:communication_rating"`
	ValueRating         *int       `gorm:"column:value_for_money_rating"`
	Comment             *string    `gorm:"column:comment"`
	IsVerifiedPurchase  bool       `gorm:"column:is_verified_purchase;not null"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
