package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
)

// Repository persists orders, their items and status history. Every method
// runs on tx when one is supplied.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// ListFilters scopes List to one party of the order.
type ListFilters struct {
	ActorID uuid.UUID
	Party   enums.UserRole
	Status  *enums.OrderStatus
}

// StatusAggregate is one row of the per-status dashboard rollup.
type StatusAggregate struct {
	Status enums.OrderStatus
	Count  int64
	Amount decimal.Decimal
}

func preloadDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }).
		Preload("StatusHistory", func(q *gorm.DB) *gorm.DB { return q.Order("seq ASC") })
}

// Create inserts the order with its items and initial history.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return r.conn(ctx, tx).Create(order).Error
}

// FindScoped loads an order only when actorID is its vendor or its supplier.
func (r *Repository) FindScoped(ctx context.Context, tx *gorm.DB, orderID, actorID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := preloadDetail(r.conn(ctx, tx)).
		Where("id = ? AND (vendor_id = ? OR supplier_id = ?)", orderID, actorID, actorID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByCheckout returns every order a checkout produced, in creation order.
func (r *Repository) FindByCheckout(ctx context.Context, tx *gorm.DB, checkoutID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := preloadDetail(r.conn(ctx, tx)).
		Where("checkout_id = ?", checkoutID).
		Order("created_at ASC, order_number ASC").
		Find(&rows).Error
	return rows, err
}

// CompareAndSetStatus moves the order to `to` only if it is still in `from`.
// extra carries the columns that change together with the status.
func (r *Repository) CompareAndSetStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.conn(ctx, tx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AppendHistory adds the next entry to the order's status log.
func (r *Repository) AppendHistory(ctx context.Context, tx *gorm.DB, entry *models.OrderStatusEntry) error {
	var last int
	err := r.conn(ctx, tx).
		Model(&models.OrderStatusEntry{}).
		Where("order_id = ?", entry.OrderID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error
	if err != nil {
		return err
	}
	entry.Seq = last + 1
	return r.conn(ctx, tx).Create(entry).Error
}

// List pages the actor's orders newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	q := preloadDetail(r.db.WithContext(ctx)).Model(&models.Order{})
	q = scopeParty(q, filters.Party, filters.ActorID)
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	var rows []models.Order
	if err := pagination.Apply(q, "", cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Aggregate rolls up order counts and amounts per status for one party.
func (r *Repository) Aggregate(ctx context.Context, party enums.UserRole, actorID uuid.UUID) ([]StatusAggregate, error) {
	var rows []StatusAggregate
	q := scopeParty(r.db.WithContext(ctx).Model(&models.Order{}), party, actorID)
	err := q.Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// ListReviewable returns delivered orders of the vendor that have no review
// for their (vendor, supplier, order) triple yet.
func (r *Repository) ListReviewable(ctx context.Context, vendorID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := preloadDetail(r.db.WithContext(ctx)).
		Where("vendor_id = ? AND status = ?", vendorID, enums.OrderStatusDelivered).
		Where("NOT EXISTS (?)", r.db.Model(&models.Review{}).
			Select("1").
			Where("reviews.vendor_id = orders.vendor_id AND reviews.supplier_id = orders.supplier_id AND reviews.order_id = orders.id")).
		Order("actual_delivery_date DESC").
		Find(&rows).Error
	return rows, err
}

// FindDeliveredForVendor loads a delivered order of the vendor.
func (r *Repository) FindDeliveredForVendor(ctx context.Context, tx *gorm.DB, orderID, vendorID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.conn(ctx, tx).
		Where("id = ? AND vendor_id = ? AND status = ?", orderID, vendorID, enums.OrderStatusDelivered).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func scopeParty(q *gorm.DB, party enums.UserRole, actorID uuid.UUID) *gorm.DB {
	if party == enums.UserRoleSupplier {
		return q.Where("supplier_id = ?", actorID)
	}
	return q.Where("vendor_id = ?", actorID)
}
