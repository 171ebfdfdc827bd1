package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
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

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail retrieves the user matching the provided email, case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("lower(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// MarkVerified flips is_verified on.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_verified", true).Error
}

// SupplierFilters narrows the public supplier directory.
type SupplierFilters struct {
	VerifiedOnly bool
	Search       string
}

// ListSuppliers pages suppliers newest first. Search matches the contact or
// business name case-insensitively.
func (r *Repository) ListSuppliers(ctx context.Context, filters SupplierFilters, cursor *pagination.Cursor, limit int) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", enums.UserRoleSupplier)
	if filters.VerifiedOnly {
		q = q.Where("is_verified = ?", true)
	}
	if term := strings.ToLower(strings.TrimSpace(filters.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("(lower(name) LIKE ? OR lower(COALESCE(business_name, '')) LIKE ?)", like, like)
	}
	var rows []models.User
	if err := pagination.Apply(q, "", cursor, limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LockSupplier loads the supplier row FOR UPDATE. Rating writers take this
// lock before aggregating so concurrent reviews are counted in turn.
func (r *Repository) LockSupplier(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND role = ?", id, enums.UserRoleSupplier).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateRating stores a recomputed supplier aggregate.
func (r *Repository) UpdateRating(ctx context.Context, id uuid.UUID, average decimal.Decimal, total int) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"average_rating": average,
			"total_reviews":  total,
		}).Error
}
