package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarsetu/bazaarsetu-backend/api/middleware"
	"github.com/bazaarsetu/bazaarsetu-backend/api/responses"
	"github.com/bazaarsetu/bazaarsetu-backend/api/validators"
	productsvc "github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
)

type priceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Unit   string          `json:"unit" validate:"required"`
}

type createProductRequest struct {
	Name                 string       `json:"name" validate:"required,max=200"`
	Description          *string      `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category             string       `json:"category" validate:"required"`
	Price                priceRequest `json:"price" validate:"required"`
	AvailableQuantity    int          `json:"available_quantity" validate:"min=0"`
	MinimumOrderQuantity int          `json:"minimum_order_quantity" validate:"min=0"`
	IsActive             *bool        `json:"is_active,omitempty"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateInput, error) {
	category, err := enums.ParseProductCategory(strings.TrimSpace(r.Category))
	if err != nil {
		return productsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	unit, err := enums.ParsePriceUnit(strings.TrimSpace(r.Price.Unit))
	if err != nil {
		return productsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price unit")
	}
	return productsvc.CreateInput{
		Name:                 r.Name,
		Description:          r.Description,
		Category:             category,
		PriceAmount:          r.Price.Amount,
		PriceUnit:            unit,
		AvailableQuantity:    r.AvailableQuantity,
		MinimumOrderQuantity: r.MinimumOrderQuantity,
		IsActive:             r.IsActive,
	}, nil
}

type updatePriceRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Unit   *string          `json:"unit,omitempty"`
}

type updateProductRequest struct {
	Name                 *string             `json:"name,omitempty" validate:"omitempty,max=200"`
	Description          *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category             *string             `json:"category,omitempty"`
	Price                *updatePriceRequest `json:"price,omitempty"`
	MinimumOrderQuantity *int                `json:"minimum_order_quantity,omitempty" validate:"omitempty,min=0"`
	IsActive             *bool               `json:"is_active,omitempty"`
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateInput, error) {
	input := productsvc.UpdateInput{
		Name:                 r.Name,
		Description:          r.Description,
		MinimumOrderQuantity: r.MinimumOrderQuantity,
		IsActive:             r.IsActive,
	}
	if r.Category != nil {
		category, err := enums.ParseProductCategory(strings.TrimSpace(*r.Category))
		if err != nil {
			return productsvc.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}
	if r.Price != nil {
		input.PriceAmount = r.Price.Amount
		if r.Price.Unit != nil {
			unit, err := enums.ParsePriceUnit(strings.TrimSpace(*r.Price.Unit))
			if err != nil {
				return productsvc.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price unit")
			}
			input.PriceUnit = &unit
		}
	}
	return input, nil
}

type setStockRequest struct {
	AvailableQuantity *int `json:"available_quantity" validate:"required,min=0"`
}

// ListProducts returns active catalog listings, optionally narrowed by
// category or supplier.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := productsvc.ListFilters{ActiveOnly: true}
		query := r.URL.Query()
		if raw := strings.TrimSpace(query.Get("category")); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			filters.Category = &category
		}
		if raw := strings.TrimSpace(query.Get("supplier_id")); raw != "" {
			supplierID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid supplier_id"))
				return
			}
			filters.SupplierID = &supplierID
		}

		page, err := svc.List(r.Context(), productsvc.ListInput{Filters: filters, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", page)
	}
}

// SupplierOwnProducts lists the calling supplier's listings. status is
// active (default), inactive or all.
func SupplierOwnProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		supplierID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := productsvc.ListFilters{SupplierID: &supplierID}
		switch status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))); status {
		case "", "all":
		case "active":
			filters.ActiveOnly = true
		case "inactive":
			filters.InactiveOnly = true
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "status must be active, inactive or all").
				WithDetails(map[string]any{"field": "status", "value": status}))
			return
		}

		page, err := svc.List(r.Context(), productsvc.ListInput{Filters: filters, Params: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", page)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", product)
	}
}

// SupplierCreateProduct lists a new product under the calling supplier.
func SupplierCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		supplierID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), supplierID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "product created", product)
	}
}

func SupplierUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		supplierID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), supplierID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "product updated", product)
	}
}

// SupplierSetStock overwrites available_quantity for restocks and corrections.
func SupplierSetStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		supplierID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.SetStock(r.Context(), supplierID, productID, *payload.AvailableQuantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "stock updated", product)
	}
}
