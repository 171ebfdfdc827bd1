package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
)

type ReviewDTO struct {
	ID                  uuid.UUID  `json:"id"`
	VendorID            uuid.UUID  `json:"vendor_id"`
	SupplierID          uuid.UUID  `json:"supplier_id"`
	OrderID             uuid.UUID  `json:"order_id"`
	ProductID           *uuid.UUID `json:"product_id,omitempty"`
	Rating              int        `json:"rating"`
	QualityRating       *int       `json:"quality_rating,omitempty"`
	DeliveryRating      *int       `json:"delivery_rating,omitempty"`
	CommunicationRating *int       `json:"communication_rating,omitempty"`
	ValueRating         *int       `json:"value_for_money_rating,omitempty"`
	Comment             *string    `json:"comment,omitempty"`
	IsVerifiedPurchase  bool       `json:"is_verified_purchase"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toDTO(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:                  r.ID,
		VendorID:            r.VendorID,
		SupplierID:          r.SupplierID,
		OrderID:             r.OrderID,
		ProductID:           r.ProductID,
		Rating:              r.Rating,
		QualityRating:       r.QualityRating,
		DeliveryRating:      r.DeliveryRating,
		CommunicationRating: r.CommunicationRating,
		ValueRating:         r.ValueRating,
		Comment:             r.Comment,
		IsVerifiedPurchase:  r.IsVerifiedPurchase,
		CreatedAt:           r.CreatedAt,
	}
}
