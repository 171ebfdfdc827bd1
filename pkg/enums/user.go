package enums

// UserRole separates the two marketplace parties plus platform operators.
type UserRole string

const (
	UserRoleVendor   UserRole = "vendor"
	UserRoleSupplier UserRole = "supplier"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{UserRoleVendor, UserRoleSupplier, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return contains(validUserRoles, r) }

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	return parse(validUserRoles, value, "user role")
}

// VendorType describes the kind of food business a vendor runs.
type VendorType string

const (
	VendorTypeStreetFood VendorType = "street_food"
	VendorTypeRestaurant VendorType = "restaurant"
	VendorTypeCafe       VendorType = "cafe"
	VendorTypeCatering   VendorType = "catering"
)

var validVendorTypes = []VendorType{
	VendorTypeStreetFood,
	VendorTypeRestaurant,
	VendorTypeCafe,
	VendorTypeCatering,
}

func (v VendorType) String() string { return string(v) }

func (v VendorType) IsValid() bool { return contains(validVendorTypes, v) }

// ParseVendorType converts raw input into a VendorType.
func ParseVendorType(value string) (VendorType, error) {
	return parse(validVendorTypes, value, "vendor type")
}
