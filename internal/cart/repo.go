package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
)

// Repository exposes persistence operations for vendor carts. Every method
// runs on tx when one is supplied.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// FindByVendor loads the vendor's cart with items in display order.
func (r *Repository) FindByVendor(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.conn(ctx, tx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Where("vendor_id = ?", vendorID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts an empty cart.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, cart *models.Cart) error {
	return r.conn(ctx, tx).Omit("Items").Create(cart).Error
}

// Claim bumps the cart version only if it still equals expected. The row
// stays locked for the rest of tx, so concurrent writers queue behind it
// and then miss the version they read.
func (r *Repository) Claim(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, expected int) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&models.Cart{}).
		Where("id = ? AND version = ?", cartID, expected).
		Update("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// WriteTotals stores the derived totals.
func (r *Repository) WriteTotals(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, totalItems int, estimated decimal.Decimal, at time.Time) error {
	return r.conn(ctx, tx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"total_items":     totalItems,
			"estimated_total": estimated,
			"last_updated_at": at,
		}).Error
}

// InsertItem appends a line.
func (r *Repository) InsertItem(ctx context.Context, tx *gorm.DB, item *models.CartItem) error {
	return r.conn(ctx, tx).Create(item).Error
}

// UpdateItem rewrites quantity and notes of an existing line.
func (r *Repository) UpdateItem(ctx context.Context, tx *gorm.DB, item *models.CartItem) error {
	return r.conn(ctx, tx).
		Model(item).
		Select("quantity", "notes", "updated_at").
		Updates(item).Error
}

// DeleteItems removes the given product lines. No ids removes nothing.
func (r *Repository) DeleteItems(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, productIDs ...uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.conn(ctx, tx).
		Where("cart_id = ? AND product_id IN ?", cartID, productIDs).
		Delete(&models.CartItem{}).Error
}

// DeleteAllItems empties the cart.
func (r *Repository) DeleteAllItems(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	return r.conn(ctx, tx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
