package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
)

// Repository persists reviews.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a reviews repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// RatingAggregate is the recomputed rating of one supplier.
type RatingAggregate struct {
	Average decimal.Decimal
	Total   int64
}

func (r *Repository) Create(ctx context.Context, tx *gorm.DB, review *models.Review) error {
	return r.conn(ctx, tx).Create(review).Error
}

// Aggregate averages every review of the supplier.
func (r *Repository) Aggregate(ctx context.Context, tx *gorm.DB, supplierID uuid.UUID) (RatingAggregate, error) {
	var out RatingAggregate
	err := r.conn(ctx, tx).
		Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("supplier_id = ?", supplierID).
		Scan(&out).Error
	return out, err
}

// ListBySupplier pages a supplier's reviews newest first.
func (r *Repository) ListBySupplier(ctx context.Context, supplierID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Review, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).Where("supplier_id = ?", supplierID)
	var rows []models.Review
	if err := pagination.Apply(q, "", cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByVendor pages the reviews a vendor has written, newest first.
func (r *Repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Review, error) {
	q := r.db.WithContext(ctx).Model(&models.Review{}).Where("vendor_id = ?", vendorID)
	var rows []models.Review
	if err := pagination.Apply(q, "", cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// OrderHasProduct reports whether productID is one of the order's lines.
func (r *Repository) OrderHasProduct(ctx context.Context, tx *gorm.DB, orderID, productID uuid.UUID) (bool, error) {
	var n int64
	err := r.conn(ctx, tx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		Count(&n).Error
	return n > 0, err
}
