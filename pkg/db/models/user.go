package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
)

// User stores both marketplace parties. Supplier-only columns stay NULL for
// vendors and the other way round.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null"`
	Name         string         `gorm:"column:name;not null"`
	Email        string         `gorm:"column:email;not null;uniqueIndex"`
	Phone        string         `gorm:"column:phone;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	IsVerified   bool           `gorm:"column:is_verified;not null;default:false"`

	VendorType *enums.VendorType `gorm:"column:vendor_type;type:text"`

	BusinessName  *string         `gorm:"column:business_name"`
	FSSAINumber   *string         `gorm:"column:fssai_number;uniqueIndex"`
	AverageRating decimal.Decimal `gorm:"column:average_rating;type:numeric(2,1);not null;default:0"`
	TotalReviews  int             `gorm:"column:total_reviews;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
