package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
)

// Vendor inserts a verified vendor.
func Vendor(t testing.TB, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Role:         enums.UserRoleVendor,
		Name:         "Ravi Chaatwala",
		Email:        fmt.Sprintf("vendor_%s@example.com", uuid.NewString()),
		Phone:        "9876543210",
		PasswordHash: "hash",
		IsVerified:   true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return user
}

// Supplier inserts a supplier with the given verification flag.
func Supplier(t testing.TB, conn *gorm.DB, verified bool) *models.User {
	t.Helper()
	business := "Sharma Wholesale"
	fssai := fmt.Sprintf("%014d", uuid.New().ID())
	user := &models.User{
		Role:          enums.UserRoleSupplier,
		Name:          "Anil Sharma",
		Email:         fmt.Sprintf("supplier_%s@example.com", uuid.NewString()),
		Phone:         "9123456780",
		PasswordHash:  "hash",
		IsVerified:    verified,
		BusinessName:  &business,
		FSSAINumber:   &fssai,
		AverageRating: decimal.Zero,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	return user
}

// ProductOpts tweaks the product created by Product.
type ProductOpts struct {
	Name      string
	Price     string
	Available int
	Minimum   int
	Inactive  bool
}

// Product inserts an active catalog listing for supplierID.
func Product(t testing.TB, conn *gorm.DB, supplierID uuid.UUID, opts ProductOpts) *models.Product {
	t.Helper()
	if opts.Name == "" {
		opts.Name = "Onion"
	}
	if opts.Price == "" {
		opts.Price = "30.00"
	}
	if opts.Minimum == 0 {
		opts.Minimum = 1
	}
	product := &models.Product{
		SupplierID:           supplierID,
		Name:                 opts.Name,
		Category:             enums.ProductCategoryVegetables,
		PriceAmount:          decimal.RequireFromString(opts.Price),
		PriceUnit:            enums.PriceUnitKg,
		AvailableQuantity:    opts.Available,
		MinimumOrderQuantity: opts.Minimum,
		IsActive:             !opts.Inactive,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// Reload fetches the current product row.
func Reload(t testing.TB, conn *gorm.DB, id uuid.UUID) *models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &product
}
