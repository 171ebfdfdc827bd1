package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
)

// Price pairs an amount with the unit it is quoted in.
type Price struct {
	Amount decimal.Decimal `json:"amount"`
	Unit   enums.PriceUnit `json:"unit"`
}

// ProductDTO is the API representation of a catalog listing.
type ProductDTO struct {
	ID                   uuid.UUID             `json:"id"`
	SupplierID           uuid.UUID             `json:"supplier_id"`
	Name                 string                `json:"name"`
	Description          *string               `json:"description,omitempty"`
	Category             enums.ProductCategory `json:"category"`
	Price                Price                 `json:"price"`
	AvailableQuantity    int                   `json:"available_quantity"`
	MinimumOrderQuantity int                   `json:"minimum_order_quantity"`
	IsActive             bool                  `json:"is_active"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// ToDTO converts a product row.
func ToDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:                   p.ID,
		SupplierID:           p.SupplierID,
		Name:                 p.Name,
		Description:          p.Description,
		Category:             p.Category,
		Price:                Price{Amount: p.PriceAmount, Unit: p.PriceUnit},
		AvailableQuantity:    p.AvailableQuantity,
		MinimumOrderQuantity: p.MinimumOrderQuantity,
		IsActive:             p.IsActive,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
