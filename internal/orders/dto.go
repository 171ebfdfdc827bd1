package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/types"
)

// OrderDTO is the API view of one supplier-scoped order.
type OrderDTO struct {
	ID                   uuid.UUID             `json:"id"`
	OrderNumber          string                `json:"order_number"`
	CheckoutID           uuid.UUID             `json:"checkout_id"`
	VendorID             uuid.UUID             `json:"vendor_id"`
	SupplierID           uuid.UUID             `json:"supplier_id"`
	Status               enums.OrderStatus     `json:"status"`
	AllowedTransitions   []enums.OrderStatus   `json:"allowed_transitions"`
	TotalAmount          decimal.Decimal       `json:"total_amount"`
	TotalItems           int                   `json:"total_items"`
	DeliveryAddress      types.DeliveryAddress `json:"delivery_address"`
	ExpectedDeliveryDate *time.Time            `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time            `json:"actual_delivery_date,omitempty"`
	PaymentMethod        enums.PaymentMethod   `json:"payment_method"`
	PaymentStatus        enums.PaymentStatus   `json:"payment_status"`
	VendorNotes          *string               `json:"vendor_notes,omitempty"`
	SupplierNotes        *string               `json:"supplier_notes,omitempty"`
	RejectionReason      *string               `json:"rejection_reason,omitempty"`
	Items                []OrderItemDTO        `json:"items"`
	StatusHistory        []StatusEntryDTO      `json:"status_history"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

type OrderItemDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   products.Price  `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	Notes       *string         `json:"notes,omitempty"`
}

type StatusEntryDTO struct {
	Seq       int               `json:"seq"`
	Status    enums.OrderStatus `json:"status"`
	UpdatedBy uuid.UUID         `json:"updated_by"`
	Notes     *string           `json:"notes,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// CheckoutResult is returned by Checkout: one order per supplier in the cart.
type CheckoutResult struct {
	CheckoutID  uuid.UUID       `json:"checkout_id"`
	Orders      []OrderDTO      `json:"orders"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalItems  int             `json:"total_items"`
}

// VendorDashboard summarises a vendor's purchasing.
type VendorDashboard struct {
	TotalOrders     int64           `json:"total_orders"`
	PendingOrders   int64           `json:"pending_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	CompletionRate  decimal.Decimal `json:"completion_rate"`
}

// SupplierDashboard summarises a supplier's sales.
type SupplierDashboard struct {
	TotalOrders    int64           `json:"total_orders"`
	PendingOrders  int64           `json:"pending_orders"`
	AcceptedOrders int64           `json:"accepted_orders"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	AcceptanceRate decimal.Decimal `json:"acceptance_rate"`
}

// Dashboard carries exactly one of the two role views.
type Dashboard struct {
	Role     enums.UserRole     `json:"role"`
	Vendor   *VendorDashboard   `json:"vendor,omitempty"`
	Supplier *SupplierDashboard `json:"supplier,omitempty"`
}

// ToDTO converts an order row with its preloaded children.
func ToDTO(o models.Order) OrderDTO {
	out := OrderDTO{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		CheckoutID:           o.CheckoutID,
		VendorID:             o.VendorID,
		SupplierID:           o.SupplierID,
		Status:               o.Status,
		AllowedTransitions:   NextStatuses(o.Status),
		TotalAmount:          o.TotalAmount,
		TotalItems:           o.TotalItems,
		DeliveryAddress:      o.DeliveryAddress,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		ActualDeliveryDate:   o.ActualDeliveryDate,
		PaymentMethod:        o.PaymentMethod,
		PaymentStatus:        o.PaymentStatus,
		VendorNotes:          o.VendorNotes,
		SupplierNotes:        o.SupplierNotes,
		RejectionReason:      o.RejectionReason,
		Items:                make([]OrderItemDTO, 0, len(o.Items)),
		StatusHistory:        make([]StatusEntryDTO, 0, len(o.StatusHistory)),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	if out.AllowedTransitions == nil {
		out.AllowedTransitions = []enums.OrderStatus{}
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   products.Price{Amount: item.UnitPriceAmount, Unit: item.UnitPriceUnit},
			LineTotal:   item.LineTotal,
			SupplierID:  item.SupplierID,
			Notes:       item.Notes,
		})
	}
	for _, entry := range o.StatusHistory {
		out.StatusHistory = append(out.StatusHistory, StatusEntryDTO{
			Seq:       entry.Seq,
			Status:    entry.Status,
			UpdatedBy: entry.UpdatedBy,
			Notes:     entry.Notes,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}
