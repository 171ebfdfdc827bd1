package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarsetu/bazaarsetu-backend/api/middleware"
	productsvc "github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/reviews"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/users"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/config"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all up", func(t *testing.T) {
		resp := httptest.NewRecorder()
		HealthReady(cfg, nil, map[string]Pinger{"db": up, "redis": nil}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"redis":"disabled"`)
		assert.Equal(t, "test", resp.Header().Get("X-BazaarSetu-Env"))
	})

	t.Run("db down", func(t *testing.T) {
		resp := httptest.NewRecorder()
		HealthReady(cfg, nil, map[string]Pinger{"db": down}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, resp.Code)
		assert.Contains(t, resp.Body.String(), `"db":"down"`)
		assert.NotContains(t, resp.Body.String(), "connection refused")
	})
}

type stubUserService struct {
	users.Service
	registered users.Registration
	verified   uuid.UUID
	directory  users.SupplierListInput
	err        error
}

func (s *stubUserService) ListSuppliers(ctx context.Context, input users.SupplierListInput) (*pagination.Page[users.UserDTO], error) {
	s.directory = input
	return &pagination.Page[users.UserDTO]{Items: []users.UserDTO{}}, s.err
}

func (s *stubUserService) Register(ctx context.Context, input users.Registration) (*users.UserDTO, error) {
	s.registered = input
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: uuid.New(), Role: input.Role()}, nil
}

func (s *stubUserService) Verify(ctx context.Context, supplierID uuid.UUID) (*users.UserDTO, error) {
	s.verified = supplierID
	return &users.UserDTO{ID: supplierID, IsVerified: true}, s.err
}

func TestRegisterUserBuildsVariantFromRole(t *testing.T) {
	svc := &stubUserService{}
	body := `{"role":"supplier","name":"Ravi Traders","email":"ravi@example.com","phone":"9876543210",
		"password":"s3cret-pass","business_name":"Ravi Traders","fssai_number":"12345678901234"}`

	resp := httptest.NewRecorder()
	RegisterUser(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, resp.Code)
	reg, ok := svc.registered.(users.SupplierRegistration)
	require.True(t, ok)
	assert.Equal(t, "12345678901234", reg.FSSAINumber)
	assert.Equal(t, "ravi@example.com", reg.Email)
}

func TestRegisterUserRejectsAdminRole(t *testing.T) {
	svc := &stubUserService{}
	body := `{"role":"admin","name":"x","email":"x@example.com","phone":"9876543210","password":"long-enough"}`

	resp := httptest.NewRecorder()
	RegisterUser(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Nil(t, svc.registered)
}

func TestAdminVerifySupplier(t *testing.T) {
	supplierID := uuid.New()
	svc := &stubUserService{}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("supplierId", supplierID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	resp := httptest.NewRecorder()
	AdminVerifySupplier(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, supplierID, svc.verified)
}

type stubProductService struct {
	productsvc.Service
	created  productsvc.CreateInput
	stockQty int
	list     productsvc.ListInput
}

func (s *stubProductService) Create(ctx context.Context, supplierID uuid.UUID, input productsvc.CreateInput) (*productsvc.ProductDTO, error) {
	s.created = input
	return &productsvc.ProductDTO{ID: uuid.New(), SupplierID: supplierID, Name: input.Name}, nil
}

func (s *stubProductService) SetStock(ctx context.Context, supplierID, productID uuid.UUID, qty int) (*productsvc.ProductDTO, error) {
	s.stockQty = qty
	return &productsvc.ProductDTO{ID: productID, AvailableQuantity: qty}, nil
}

func (s *stubProductService) List(ctx context.Context, input productsvc.ListInput) (*pagination.Page[productsvc.ProductDTO], error) {
	s.list = input
	return &pagination.Page[productsvc.ProductDTO]{Items: []productsvc.ProductDTO{}}, nil
}

func supplierRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithIdentity(req.Context(), uuid.New(), enums.UserRoleSupplier))
}

func TestSupplierCreateProduct(t *testing.T) {
	svc := &stubProductService{}
	body := `{"name":"Red Onion","category":"vegetables","price":{"amount":"32.50","unit":"kg"},
		"available_quantity":100,"minimum_order_quantity":5}`

	resp := httptest.NewRecorder()
	SupplierCreateProduct(svc, nil).ServeHTTP(resp, supplierRequest(http.MethodPost, "/api/v1/products", body))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Red Onion", svc.created.Name)
	assert.True(t, svc.created.PriceAmount.Equal(decimal.RequireFromString("32.50")))
	assert.Equal(t, enums.PriceUnit("kg"), svc.created.PriceUnit)
	assert.Equal(t, 5, svc.created.MinimumOrderQuantity)
}

func TestSupplierSetStockRequiresQuantity(t *testing.T) {
	svc := &stubProductService{stockQty: -1}
	newReq := func(body string) *http.Request {
		req := supplierRequest(http.MethodPatch, "/", body)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("productId", uuid.NewString())
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}

	resp := httptest.NewRecorder()
	SupplierSetStock(svc, nil).ServeHTTP(resp, newReq(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	SupplierSetStock(svc, nil).ServeHTTP(resp, newReq(`{"available_quantity":0}`))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, svc.stockQty)
}

func TestListProductsFilters(t *testing.T) {
	svc := &stubProductService{}
	supplierID := uuid.New()

	resp := httptest.NewRecorder()
	ListProducts(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?category=vegetables&supplier_id="+supplierID.String(), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, svc.list.Filters.ActiveOnly)
	require.NotNil(t, svc.list.Filters.SupplierID)
	assert.Equal(t, supplierID, *svc.list.Filters.SupplierID)
	require.NotNil(t, svc.list.Filters.Category)
	assert.Equal(t, pagination.DefaultLimit, svc.list.Params.Limit)
}

func TestSupplierOwnProductsStatusFilter(t *testing.T) {
	tests := []struct {
		query    string
		want     int
		active   bool
		inactive bool
	}{
		{"", http.StatusOK, false, false},
		{"?status=all", http.StatusOK, false, false},
		{"?status=active", http.StatusOK, true, false},
		{"?status=INACTIVE", http.StatusOK, false, true},
		{"?status=archived", http.StatusBadRequest, false, false},
	}
	for _, tt := range tests {
		t.Run("status"+tt.query, func(t *testing.T) {
			svc := &stubProductService{}
			supplierID := uuid.New()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/supplier/products"+tt.query, nil)
			req = req.WithContext(middleware.WithIdentity(req.Context(), supplierID, enums.UserRoleSupplier))

			resp := httptest.NewRecorder()
			SupplierOwnProducts(svc, nil).ServeHTTP(resp, req)

			require.Equal(t, tt.want, resp.Code)
			if tt.want != http.StatusOK {
				return
			}
			require.NotNil(t, svc.list.Filters.SupplierID)
			assert.Equal(t, supplierID, *svc.list.Filters.SupplierID)
			assert.Equal(t, tt.active, svc.list.Filters.ActiveOnly)
			assert.Equal(t, tt.inactive, svc.list.Filters.InactiveOnly)
		})
	}
}

func TestListSuppliersDefaultsToVerified(t *testing.T) {
	svc := &stubUserService{}

	resp := httptest.NewRecorder()
	ListSuppliers(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/suppliers?search=+farms+", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, svc.directory.Filters.VerifiedOnly)
	assert.Equal(t, "farms", svc.directory.Filters.Search)

	resp = httptest.NewRecorder()
	ListSuppliers(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/suppliers?verified=false", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, svc.directory.Filters.VerifiedOnly)

	resp = httptest.NewRecorder()
	ListSuppliers(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/suppliers?verified=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubReviewService struct {
	reviews.Service
	input reviews.CreateInput
	err   error
}

func (s *stubReviewService) Create(ctx context.Context, vendorID uuid.UUID, input reviews.CreateInput) (*reviews.ReviewDTO, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &reviews.ReviewDTO{ID: uuid.New(), Rating: input.Rating}, nil
}

func TestCreateReview(t *testing.T) {
	svc := &stubReviewService{}
	orderID, supplierID := uuid.New(), uuid.New()
	body := `{"order_id":"` + orderID.String() + `","supplier_id":"` + supplierID.String() + `","rating":4,"quality_rating":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body))
	req = req.WithContext(middleware.WithIdentity(req.Context(), uuid.New(), enums.UserRoleVendor))

	resp := httptest.NewRecorder()
	CreateReview(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, orderID, svc.input.OrderID)
	require.NotNil(t, svc.input.QualityRating)
	assert.Equal(t, 5, *svc.input.QualityRating)
}

func TestCreateReviewDuplicate(t *testing.T) {
	svc := &stubReviewService{err: pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")}
	body := `{"order_id":"` + uuid.NewString() + `","supplier_id":"` + uuid.NewString() + `","rating":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body))
	req = req.WithContext(middleware.WithIdentity(req.Context(), uuid.New(), enums.UserRoleVendor))

	resp := httptest.NewRecorder()
	CreateReview(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	var envelope struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.False(t, envelope.Success)
}
