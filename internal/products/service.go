package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
)

// Service exposes supplier catalog management and public reads.
type Service interface {
	Create(ctx context.Context, supplierID uuid.UUID, input CreateInput) (*ProductDTO, error)
	Update(ctx context.Context, supplierID, productID uuid.UUID, input UpdateInput) (*ProductDTO, error)
	SetStock(ctx context.Context, supplierID, productID uuid.UUID, qty int) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error)
	Categories(ctx context.Context, supplierID uuid.UUID) ([]CategoryCount, error)
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Name                 string
	Description          *string
	Category             enums.ProductCategory
	PriceAmount          decimal.Decimal
	PriceUnit            enums.PriceUnit
	AvailableQuantity    int
	MinimumOrderQuantity int
	IsActive             *bool
}

// UpdateInput holds optional mutation values. Stock is changed through SetStock only.
type UpdateInput struct {
	Name                 *string
	Description          *string
	Category             *enums.ProductCategory
	PriceAmount          *decimal.Decimal
	PriceUnit            *enums.PriceUnit
	MinimumOrderQuantity *int
	IsActive             *bool
}

// ListInput carries filters plus cursor pagination.
type ListInput struct {
	Filters ListFilters
	Params  pagination.Params
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, supplierID uuid.UUID, input CreateInput) (*ProductDTO, error) {
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "supplier identity required")
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := &models.Product{
		SupplierID:           supplierID,
		Name:                 strings.TrimSpace(input.Name),
		Description:          trimPtr(input.Description),
		Category:             input.Category,
		PriceAmount:          input.PriceAmount.Round(2),
		PriceUnit:            input.PriceUnit,
		AvailableQuantity:    input.AvailableQuantity,
		MinimumOrderQuantity: input.MinimumOrderQuantity,
		IsActive:             active,
	}
	if product.MinimumOrderQuantity == 0 {
		product.MinimumOrderQuantity = 1
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := ToDTO(*product)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, supplierID, productID uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, supplierID, productID)
	if err != nil {
		return nil, err
	}
	applyUpdate(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := ToDTO(*product)
	return &dto, nil
}

func (s *service) SetStock(ctx context.Context, supplierID, productID uuid.UUID, qty int) (*ProductDTO, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available_quantity cannot be negative")
	}
	if _, err := s.loadOwned(ctx, supplierID, productID); err != nil {
		return nil, err
	}
	if _, err := s.repo.SetStock(ctx, supplierID, productID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set stock")
	}
	return s.Get(ctx, productID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	dto := ToDTO(*product)
	return &dto, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.Filters, cursor, input.Params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := pagination.Build(rows, input.Params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	out := pagination.Map(page, ToDTO)
	return &out, nil
}

func (s *service) Categories(ctx context.Context, supplierID uuid.UUID) ([]CategoryCount, error) {
	rows, err := s.repo.CategoryCounts(ctx, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count categories")
	}
	if rows == nil {
		rows = []CategoryCount{}
	}
	return rows, nil
}

func (s *service) loadOwned(ctx context.Context, supplierID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if product.SupplierID != supplierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another supplier")
	}
	return product, nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func applyUpdate(product *models.Product, input UpdateInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = trimPtr(input.Description)
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.PriceAmount != nil {
		product.PriceAmount = input.PriceAmount.Round(2)
	}
	if input.PriceUnit != nil {
		product.PriceUnit = *input.PriceUnit
	}
	if input.MinimumOrderQuantity != nil {
		product.MinimumOrderQuantity = *input.MinimumOrderQuantity
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case !p.Category.IsValid():
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid category %q", p.Category)
	case !p.PriceUnit.IsValid():
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid price unit %q", p.PriceUnit)
	case p.PriceAmount.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	case p.AvailableQuantity < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "available_quantity cannot be negative")
	case p.MinimumOrderQuantity < 1:
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum_order_quantity must be at least 1")
	}
	return nil
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
