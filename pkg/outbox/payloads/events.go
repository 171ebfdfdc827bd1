package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout that produced one order per supplier.
type OrderCreatedEvent struct {
	CheckoutID    uuid.UUID           `json:"checkout_id"`
	VendorID      uuid.UUID           `json:"vendor_id"`
	Orders        []OrderSummary      `json:"orders"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	TotalItems    int                 `json:"total_items"`
}

// OrderSummary is the per-supplier slice of an OrderCreatedEvent.
type OrderSummary struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderStatusChangedEvent is emitted on every committed status transition.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	VendorID      uuid.UUID         `json:"vendor_id"`
	SupplierID    uuid.UUID         `json:"supplier_id"`
	From          enums.OrderStatus `json:"from"`
	To            enums.OrderStatus `json:"to"`
	UpdatedBy     uuid.UUID         `json:"updated_by"`
	Reason        string            `json:"reason,omitempty"`
	StockRestored bool              `json:"stock_restored"`
}

// ReviewCreatedEvent tells downstream systems a supplier was rated.
type ReviewCreatedEvent struct {
	ReviewID      uuid.UUID       `json:"review_id"`
	OrderID       uuid.UUID       `json:"order_id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	SupplierID    uuid.UUID       `json:"supplier_id"`
	Rating        int             `json:"rating"`
	AverageRating decimal.Decimal `json:"average_rating"`
}
