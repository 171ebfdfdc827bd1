package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID            uuid.UUID         `json:"id"`
	Role          enums.UserRole    `json:"role"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	IsVerified    bool              `json:"is_verified"`
	VendorType    *enums.VendorType `json:"vendor_type,omitempty"`
	BusinessName  *string           `json:"business_name,omitempty"`
	FSSAINumber   *string           `json:"fssai_number,omitempty"`
	AverageRating *decimal.Decimal  `json:"average_rating,omitempty"`
	TotalReviews  *int              `json:"total_reviews,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// AccountInput is shared by every registration variant.
type AccountInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// Registration is either a VendorRegistration or a SupplierRegistration.
type Registration interface {
	Role() enums.UserRole
	Account() AccountInput
}

// VendorRegistration signs up a food business that buys from suppliers.
type VendorRegistration struct {
	AccountInput
	VendorType *enums.VendorType
}

func (VendorRegistration) Role() enums.UserRole { return enums.UserRoleVendor }
func (v VendorRegistration) Account() AccountInput { return v.AccountInput }

// SupplierRegistration signs up a wholesaler. FSSAINumber is the 14 digit food licence.
type SupplierRegistration struct {
	AccountInput
	BusinessName string
	FSSAINumber  string
}

func (SupplierRegistration) Role() enums.UserRole { return enums.UserRoleSupplier }
func (s SupplierRegistration) Account() AccountInput { return s.AccountInput }

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:           u.ID,
		Role:         u.Role,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		IsVerified:   u.IsVerified,
		VendorType:   u.VendorType,
		BusinessName: u.BusinessName,
		FSSAINumber:  u.FSSAINumber,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Role == enums.UserRoleSupplier {
		rating := u.AverageRating
		total := u.TotalReviews
		dto.AverageRating = &rating
		dto.TotalReviews = &total
	}
	return dto
}

// PublicProfile is the directory view of a user; the FSSAI licence stays private.
func PublicProfile(u *models.User) *UserDTO {
	dto := FromModel(u)
	if dto != nil {
		dto.FSSAINumber = nil
	}
	return dto
}
