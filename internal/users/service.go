package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/config"
	dbpkg "github.com/bazaarsetu/bazaarsetu-backend/pkg/db"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/security"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/types"
)

var (
	fssaiPattern = regexp.MustCompile(`^\d{14}$`)
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// Directory is the read surface other domains consume.
type Directory interface {
	GetRole(ctx context.Context, id uuid.UUID) (enums.UserRole, error)
	IsVerified(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service manages marketplace accounts.
type Service interface {
	Directory
	Register(ctx context.Context, input Registration) (*UserDTO, error)
	Verify(ctx context.Context, supplierID uuid.UUID) (*UserDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	ListSuppliers(ctx context.Context, input SupplierListInput) (*pagination.Page[UserDTO], error)
}

// SupplierListInput carries directory filters plus cursor pagination.
type SupplierListInput struct {
	Filters SupplierFilters
	Params  pagination.Params
}

type service struct {
	repo     *Repository
	password config.PasswordConfig
}

// NewService wires the user directory.
func NewService(repo *Repository, password config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, password: password}, nil
}

func (s *service) Register(ctx context.Context, input Registration) (*UserDTO, error) {
	if input == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registration is required")
	}
	account, err := normalizeAccount(input.Account())
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Role:  input.Role(),
		Name:  account.Name,
		Email: account.Email,
		Phone: account.Phone,
	}

	switch reg := input.(type) {
	case VendorRegistration:
		if reg.VendorType != nil && !reg.VendorType.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid vendor type %q", *reg.VendorType)
		}
		user.VendorType = reg.VendorType
		user.IsVerified = true
	case SupplierRegistration:
		business := strings.TrimSpace(reg.BusinessName)
		if business == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "business name is required for suppliers")
		}
		fssai := strings.TrimSpace(reg.FSSAINumber)
		if !fssaiPattern.MatchString(fssai) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "FSSAI number must be exactly 14 digits")
		}
		user.BusinessName = &business
		user.FSSAINumber = &fssai
		user.IsVerified = false
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported registration type")
	}

	if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup email")
	}

	hash, err := security.HashPassword(account.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user.PasswordHash = hash

	if err := s.repo.Create(ctx, user); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email or FSSAI number already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return FromModel(user), nil
}

func (s *service) Verify(ctx context.Context, supplierID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if user.Role != enums.UserRoleSupplier {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only suppliers require verification")
	}
	if !user.IsVerified {
		if err := s.repo.MarkVerified(ctx, supplierID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify supplier")
		}
		user.IsVerified = true
	}
	return FromModel(user), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// GetSupplier returns the public profile of a supplier. Other roles are
// reported as not found.
func (s *service) GetSupplier(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != enums.UserRoleSupplier {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return PublicProfile(user), nil
}

func (s *service) ListSuppliers(ctx context.Context, input SupplierListInput) (*pagination.Page[UserDTO], error) {
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListSuppliers(ctx, input.Filters, cursor, input.Params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	page := pagination.Build(rows, input.Params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	out := pagination.Map(page, func(u models.User) UserDTO { return *PublicProfile(&u) })
	return &out, nil
}

func (s *service) GetRole(ctx context.Context, id uuid.UUID) (enums.UserRole, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *service) IsVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsVerified, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func normalizeAccount(in AccountInput) (AccountInput, error) {
	out := AccountInput{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    strings.TrimSpace(in.Phone),
		Password: in.Password,
	}
	var fields []types.FieldError
	if out.Name == "" {
		fields = append(fields, types.FieldError{Field: "name", Message: "is required"})
	}
	if !strings.Contains(out.Email, "@") {
		fields = append(fields, types.FieldError{Field: "email", Message: "must be a valid email"})
	}
	if !phonePattern.MatchString(out.Phone) {
		fields = append(fields, types.FieldError{Field: "phone", Message: "must be a 10 digit mobile number"})
	}
	if err := security.CheckPasswordPolicy(out.Password); err != nil {
		fields = append(fields, types.FieldError{Field: "password", Message: err.Error()})
	}
	if len(fields) > 0 {
		return AccountInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid registration").WithDetails(fields)
	}
	return out, nil
}
