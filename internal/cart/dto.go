package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
)

// CartDTO is the API view of a vendor cart.
type CartDTO struct {
	ID             uuid.UUID       `json:"id"`
	VendorID       uuid.UUID       `json:"vendor_id"`
	Items          []CartItemDTO   `json:"items"`
	TotalItems     int             `json:"total_items"`
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
	Version        int             `json:"version"`
	LastUpdatedAt  time.Time       `json:"last_updated_at"`
}

// CartItemDTO pairs a line with the live product it references, when still present.
type CartItemDTO struct {
	ProductID  uuid.UUID            `json:"product_id"`
	Quantity   int                  `json:"quantity"`
	PriceAtAdd products.Price       `json:"price_at_add"`
	LineTotal  decimal.Decimal      `json:"line_total"`
	Notes      *string              `json:"notes,omitempty"`
	Product    *products.ProductDTO `json:"product,omitempty"`
}

// Issue is one problem found by Validate.
type Issue struct {
	Type                 enums.CartIssueKind `json:"type"`
	ProductID            uuid.UUID           `json:"product_id"`
	Message              string              `json:"message"`
	AvailableQuantity    *int                `json:"available_quantity,omitempty"`
	MinimumOrderQuantity *int                `json:"minimum_order_quantity,omitempty"`
	OldPrice             *decimal.Decimal    `json:"old_price,omitempty"`
	NewPrice             *decimal.Decimal    `json:"new_price,omitempty"`
}

// ValidationResult is the advisory outcome of re-checking a cart against the catalog.
type ValidationResult struct {
	Issues          []Issue `json:"issues"`
	ValidItemsCount int     `json:"valid_items_count"`
	TotalItemsCount int     `json:"total_items_count"`
	IsValid         bool    `json:"is_valid"`
}

// SupplierGroup previews the order checkout would create for one supplier.
type SupplierGroup struct {
	SupplierID uuid.UUID       `json:"supplier_id"`
	Items      []CartItemDTO   `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TotalItems int             `json:"total_items"`
}

// Summary groups the cart by supplier.
type Summary struct {
	TotalItems     int             `json:"total_items"`
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
	SupplierGroups []SupplierGroup `json:"supplier_groups"`
}

// Totals derives total_items and estimated_total from the lines.
func Totals(items []models.CartItem) (int, decimal.Decimal) {
	count := 0
	sum := decimal.Zero
	for _, item := range items {
		count += item.Quantity
		sum = sum.Add(item.LineTotal())
	}
	return count, sum.Round(2)
}

func toDTO(cart *models.Cart, live map[uuid.UUID]models.Product) *CartDTO {
	out := &CartDTO{
		ID:             cart.ID,
		VendorID:       cart.VendorID,
		Items:          make([]CartItemDTO, 0, len(cart.Items)),
		TotalItems:     cart.TotalItems,
		EstimatedTotal: cart.EstimatedTotal,
		Version:        cart.Version,
		LastUpdatedAt:  cart.LastUpdatedAt,
	}
	for _, item := range cart.Items {
		out.Items = append(out.Items, itemDTO(item, live))
	}
	return out
}

func itemDTO(item models.CartItem, live map[uuid.UUID]models.Product) CartItemDTO {
	dto := CartItemDTO{
		ProductID:  item.ProductID,
		Quantity:   item.Quantity,
		PriceAtAdd: products.Price{Amount: item.PriceAtAddAmount, Unit: item.PriceAtAddUnit},
		LineTotal:  item.LineTotal().Round(2),
		Notes:      item.Notes,
	}
	if product, ok := live[item.ProductID]; ok {
		p := products.ToDTO(product)
		dto.Product = &p
	}
	return dto
}
