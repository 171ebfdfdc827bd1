package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
)

// ListFilters narrows product listings.
type ListFilters struct {
	Category     *enums.ProductCategory
	SupplierID   *uuid.UUID
	ActiveOnly   bool
	InactiveOnly bool
}

// CategoryCount is the number of active listings a supplier has in a category.
type CategoryCount struct {
	Category     enums.ProductCategory `json:"category"`
	ProductCount int64                 `json:"product_count"`
}

// Repository persists catalog rows. Stock helpers accept the caller's
// transaction so decrements commit or roll back with the order they back.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save writes the mutable catalog columns of product.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select("name", "description", "category", "price_amount", "price_unit", "minimum_order_quantity", "is_active", "updated_at").
		Updates(product).Error
}

// GetByID loads a product. The lookup runs on tx when one is supplied.
func (r *Repository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.conn(ctx, tx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetByIDs loads every product in ids; missing ids are simply absent from the result.
func (r *Repository) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var rows []models.Product
	if err := r.conn(ctx, tx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SetStock overwrites availability for a product owned by supplierID.
func (r *Repository) SetStock(ctx context.Context, supplierID, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND supplier_id = ?", productID, supplierID).
		Update("available_quantity", qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementAvailable subtracts qty only while enough active stock remains.
// A guarded update that matches no row is reported as the precise reason:
// missing product, inactive product or insufficient stock.
func (r *Repository) DecrementAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.conn(ctx, tx).
		Model(&models.Product{}).
		Where("id = ? AND is_active = ? AND available_quantity >= ?", productID, true, qty).
		Update("available_quantity", gorm.Expr("available_quantity - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	product, err := r.GetByID(ctx, tx, productID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeUnavailable, "product no longer exists").
			WithDetails(map[string]any{"product_id": productID})
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	case !product.IsActive:
		return pkgerrors.New(pkgerrors.CodeUnavailable, "product is no longer available").
			WithDetails(map[string]any{"product_id": productID, "name": product.Name})
	default:
		return InsufficientStock(product, qty)
	}
}

// IncrementAvailable returns qty units to the product.
func (r *Repository) IncrementAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := r.conn(ctx, tx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("available_quantity", gorm.Expr("available_quantity + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

// List pages products newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filters.Category != nil {
		q = q.Where("category = ?", *filters.Category)
	}
	if filters.SupplierID != nil {
		q = q.Where("supplier_id = ?", *filters.SupplierID)
	}
	if filters.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filters.InactiveOnly {
		q = q.Where("is_active = ?", false)
	}
	var rows []models.Product
	if err := pagination.Apply(q, "", cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CategoryCounts groups a supplier's active listings by category, largest first.
func (r *Repository) CategoryCounts(ctx context.Context, supplierID uuid.UUID) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("category, COUNT(*) AS product_count").
		Where("supplier_id = ? AND is_active = ?", supplierID, true).
		Group("category").
		Order("product_count DESC, category ASC").
		Scan(&rows).Error
	return rows, err
}

// InsufficientStock builds the error returned when qty exceeds availability.
func InsufficientStock(product *models.Product, qty int) error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "only %d units of %s available", product.AvailableQuantity, product.Name).
		WithDetails(map[string]any{
			"product_id": product.ID,
			"name":       product.Name,
			"available":  product.AvailableQuantity,
			"requested":  qty,
		})
}
