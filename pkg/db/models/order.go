package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/types"
)

// Order is one supplier's share of a vendor checkout. Orders created by the
// same checkout share CheckoutID.
type Order struct {
	ID                   uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber          string                `gorm:"column:order_number;not null;uniqueIndex"`
	CheckoutID           uuid.UUID             `gorm:"column:checkout_id;type:uuid;not null;index"`
	VendorID             uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;index"`
	SupplierID           uuid.UUID             `gorm:"column:supplier_id;type:uuid;not null;index"`
	Status               enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount          decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	TotalItems           int                   `gorm:"column:total_items;not null"`
	DeliveryAddress      types.DeliveryAddress `gorm:"column:delivery_address;type:jsonb;serializer:json;not null"`
	ExpectedDeliveryDate *time.Time            `gorm:"column:expected_delivery_date"`
	ActualDeliveryDate   *time.Time            `gorm:"column:actual_delivery_date"`
	PaymentMethod        enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null;default:'cash_on_delivery'"`
	PaymentStatus        enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	VendorNotes          *string               `gorm:"column:vendor_notes"`
	SupplierNotes        *string               `gorm:"column:supplier_notes"`
	RejectionReason      *string               `gorm:"column:rejection_reason"`
	Items                []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory        []OrderStatusEntry    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots the product at checkout time.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	UnitPriceAmount decimal.Decimal `gorm:"column:unit_price_amount;type:numeric(12,2);not null"`
	UnitPriceUnit   enums.PriceUnit `gorm:"column:unit_price_unit;type:text;not null"`
	LineTotal       decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	SupplierID      uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null"`
	Notes           *string         `gorm:"column:notes"`
	Position        int             `gorm:"column:position;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// OrderStatusEntry is an append-only history row. Seq orders entries within an order.
type OrderStatusEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_status_history_seq"`
	Seq       int               `gorm:"column:seq;not null;uniqueIndex:ux_order_status_history_seq"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	UpdatedBy uuid.UUID         `gorm:"column:updated_by;type:uuid;not null"`
	Notes     *string           `gorm:"column:notes"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderStatusEntry) TableName() string {
	return "order_status_history"
}

func (e *OrderStatusEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
