package controllers

import (
	"net/http"
	"strings"

	"github.com/bazaarsetu/bazaarsetu-backend/api/responses"
	"github.com/bazaarsetu/bazaarsetu-backend/api/validators"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/users"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
)

type registerRequest struct {
	Role         string  `json:"role" validate:"required,oneof=vendor supplier"`
	Name         string  `json:"name" validate:"required,max=100"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        string  `json:"phone" validate:"required"`
	Password     string  `json:"password" validate:"required,min=8"`
	VendorType   *string `json:"vendor_type,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
	FSSAINumber  *string `json:"fssai_number,omitempty"`
}

func (r registerRequest) toRegistration() (users.Registration, error) {
	account := users.AccountInput{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Password: r.Password,
	}

	switch enums.UserRole(r.Role) {
	case enums.UserRoleVendor:
		reg := users.VendorRegistration{AccountInput: account}
		if r.VendorType != nil {
			vendorType, err := enums.ParseVendorType(strings.TrimSpace(*r.VendorType))
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor type")
			}
			reg.VendorType = &vendorType
		}
		return reg, nil
	case enums.UserRoleSupplier:
		reg := users.SupplierRegistration{AccountInput: account}
		if r.BusinessName != nil {
			reg.BusinessName = *r.BusinessName
		}
		if r.FSSAINumber != nil {
			reg.FSSAINumber = *r.FSSAINumber
		}
		return reg, nil
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "cannot register with role %q", r.Role)
	}
}

// RegisterUser signs up a vendor or a supplier. Suppliers start unverified.
func RegisterUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		var payload registerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		registration, err := payload.toRegistration()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Register(r.Context(), registration)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "user registered", user)
	}
}

// AdminVerifySupplier marks a supplier's licence as checked.
func AdminVerifySupplier(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		supplierID, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Verify(r.Context(), supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "supplier verified", user)
	}
}
