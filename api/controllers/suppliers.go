package controllers

import (
	"net/http"
	"strings"

	"github.com/bazaarsetu/bazaarsetu-backend/api/responses"
	"github.com/bazaarsetu/bazaarsetu-backend/api/validators"
	productsvc "github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/reviews"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/users"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
)

const (
	profileProductLimit = 10
	profileReviewLimit  = 5
)

type supplierProfile struct {
	Supplier      *users.UserDTO             `json:"supplier"`
	Products      []productsvc.ProductDTO    `json:"products"`
	RecentReviews []reviews.ReviewDTO        `json:"recent_reviews"`
	Categories    []productsvc.CategoryCount `json:"categories"`
}

// ListSuppliers serves the public supplier directory. Only verified
// suppliers are listed unless verified=false is passed.
func ListSuppliers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		verified, err := validators.ParseQueryBool(r, "verified", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListSuppliers(r.Context(), users.SupplierListInput{
			Filters: users.SupplierFilters{
				VerifiedOnly: verified,
				Search:       strings.TrimSpace(r.URL.Query().Get("search")),
			},
			Params: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "", page)
	}
}

// SupplierProfile returns a supplier with a sample of active products, the
// latest reviews and a per-category listing count.
func SupplierProfile(userSvc users.Service, productSvc productsvc.Service, reviewSvc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userSvc == nil || productSvc == nil || reviewSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier profile unavailable"))
			return
		}
		supplierID, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := userSvc.GetSupplier(r.Context(), supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := productSvc.List(r.Context(), productsvc.ListInput{
			Filters: productsvc.ListFilters{SupplierID: &supplierID, ActiveOnly: true},
			Params:  pagination.Params{Limit: profileProductLimit},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recent, err := reviewSvc.ListForSupplier(r.Context(), supplierID, pagination.Params{Limit: profileReviewLimit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categories, err := productSvc.Categories(r.Context(), supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, "", supplierProfile{
			Supplier:      supplier,
			Products:      products.Items,
			RecentReviews: recent.Items,
			Categories:    categories,
		})
	}
}
