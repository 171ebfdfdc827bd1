package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bazaarsetu/bazaarsetu-backend/api/middleware"
	"github.com/bazaarsetu/bazaarsetu-backend/api/responses"
	"github.com/bazaarsetu/bazaarsetu-backend/api/validators"
	cartsvc "github.com/bazaarsetu/bazaarsetu-backend/internal/cart"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
	Notes     *string   `json:"notes,omitempty" validate:"omitempty,max=200"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

// CartFetch returns the vendor's cart, creating an empty one on first use.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withVendor(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) {
		cart, err := svc.GetOrCreate(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", cart)
	})
}

// CartSummary previews the per-supplier orders checkout would create.
func CartSummary(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withVendor(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) {
		summary, err := svc.Summary(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", summary)
	})
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withVendor(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.AddItem(r.Context(), vendorID, cartsvc.AddItemInput{
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "item added to cart", cart)
	})
}

// CartUpdateItem sets a line's quantity. Zero removes the line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withVendor(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.UpdateItemQuantity(r.Context(), vendorID, productID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "cart updated", cart)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withVendor(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.RemoveItem(r.Context(), vendorID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "item removed from cart", cart)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withVendor(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) {
		cart, err := svc.Clear(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "cart cleared", cart)
	})
}

// CartValidate re-checks every line against the live catalog. Problems are
// reported in the payload; the request itself still succeeds.
func CartValidate(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withVendor(svc, logg, func(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) {
		result, err := svc.Validate(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		message := "cart is valid"
		if !result.IsValid {
			message = "cart has issues"
		}
		responses.WriteSuccess(w, message, result)
	})
}

func withVendor(svc cartsvc.Service, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		vendorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, vendorID)
	}
}
