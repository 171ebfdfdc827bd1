package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bazaarsetu/bazaarsetu-backend/api/middleware"
	"github.com/bazaarsetu/bazaarsetu-backend/api/responses"
	"github.com/bazaarsetu/bazaarsetu-backend/api/validators"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/reviews"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
)

type createReviewRequest struct {
	OrderID             uuid.UUID  `json:"order_id" validate:"required"`
	SupplierID          uuid.UUID  `json:"supplier_id" validate:"required"`
	ProductID           *uuid.UUID `json:"product_id,omitempty"`
	Rating              int        `json:"rating" validate:"required,min=1,max=5"`
	QualityRating       *int       `json:"quality_rating,omitempty" validate:"omitempty,min=1,max=5"`
	DeliveryRating      *int       `json:"delivery_rating,omitempty" validate:"omitempty,min=1,max=5"`
	CommunicationRating *int       `json:"communication_rating,omitempty" validate:"omitempty,min=1,max=5"`
	ValueRating         *int       `json:"value_rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment             *string    `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

func (r createReviewRequest) toCreateInput() reviews.CreateInput {
	return reviews.CreateInput{
		OrderID:             r.OrderID,
		SupplierID:          r.SupplierID,
		ProductID:           r.ProductID,
		Rating:              r.Rating,
		QualityRating:       r.QualityRating,
		DeliveryRating:      r.DeliveryRating,
		CommunicationRating: r.CommunicationRating,
		ValueRating:         r.ValueRating,
		Comment:             r.Comment,
	}
}

// CreateReview rates the supplier of one of the vendor's delivered orders.
func CreateReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "review service unavailable"))
			return
		}
		vendorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		review, err := svc.Create(r.Context(), vendorID, payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "review submitted", review)
	}
}

// PendingReviews lists delivered orders the vendor has not reviewed yet.
func PendingReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "review service unavailable"))
			return
		}
		vendorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.Pending(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", orders)
	}
}

func SupplierReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "review service unavailable"))
			return
		}
		supplierID, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForSupplier(r.Context(), supplierID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", page)
	}
}

// VendorReviews pages the reviews the calling vendor has written.
func VendorReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "review service unavailable"))
			return
		}
		vendorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForVendor(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", page)
	}
}
