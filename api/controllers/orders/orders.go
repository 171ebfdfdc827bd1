package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bazaarsetu/bazaarsetu-backend/api/middleware"
	"github.com/bazaarsetu/bazaarsetu-backend/api/responses"
	"github.com/bazaarsetu/bazaarsetu-backend/api/validators"
	internalorders "github.com/bazaarsetu/bazaarsetu-backend/internal/orders"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/types"
)

type checkoutRequest struct {
	DeliveryAddress types.DeliveryAddress `json:"delivery_address" validate:"required"`
	PaymentMethod   *string               `json:"payment_method,omitempty"`
	VendorNotes     *string               `json:"vendor_notes,omitempty" validate:"omitempty,max=500"`
}

func (r checkoutRequest) toInput() (internalorders.CheckoutInput, error) {
	input := internalorders.CheckoutInput{
		DeliveryAddress: r.DeliveryAddress,
		VendorNotes:     r.VendorNotes,
	}
	if r.PaymentMethod != nil {
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(*r.PaymentMethod))
		if err != nil {
			return internalorders.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
				WithDetails([]types.FieldError{{Field: "payment_method", Message: err.Error()}})
		}
		input.PaymentMethod = &method
	}
	return input, nil
}

type statusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type notesRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type rejectRequest struct {
	Reason string  `json:"reason" validate:"required,max=500"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// Checkout turns the vendor's cart into one pending order per supplier.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		vendorID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), vendorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "orders placed", result)
	}
}

// List returns the caller's orders, newest first, optionally filtered by status.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(svc, logg, func(w http.ResponseWriter, r *http.Request, actor internalorders.Actor) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.ListInput{Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		page, err := svc.List(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", page)
	})
}

func Dashboard(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(svc, logg, func(w http.ResponseWriter, r *http.Request, actor internalorders.Actor) {
		dashboard, err := svc.Dashboard(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", dashboard)
	})
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor internalorders.Actor, orderID uuid.UUID) {
		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", order)
	})
}

// UpdateStatus applies a generic status change, subject to the transition
// table and the caller's role.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor internalorders.Actor, orderID uuid.UUID) {
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails([]types.FieldError{{Field: "status", Message: err.Error()}}))
			return
		}

		order, err := svc.Transition(r.Context(), actor, orderID, internalorders.TransitionInput{
			Status: status,
			Notes:  payload.Notes,
			Reason: payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "order status updated", order)
	})
}

func Accept(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor internalorders.Actor, orderID uuid.UUID) {
		var payload notesRequest
		if err := decodeOptionalBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Accept(r.Context(), actor, orderID, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "order accepted", order)
	})
}

// Reject declines a pending order and returns its stock to the catalog.
func Reject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor internalorders.Actor, orderID uuid.UUID) {
		var payload rejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Reject(r.Context(), actor, orderID, payload.Reason, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "order rejected", order)
	})
}

// Cancel withdraws a pending order on the vendor's behalf.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return withOrder(svc, logg, func(w http.ResponseWriter, r *http.Request, actor internalorders.Actor, orderID uuid.UUID) {
		var payload notesRequest
		if err := decodeOptionalBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), actor, orderID, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "order cancelled", order)
	})
}
