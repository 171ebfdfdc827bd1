package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	dbpkg "github.com/bazaarsetu/bazaarsetu-backend/pkg/db"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
)

const (
	maxMutationAttempts = 3
	maxNotesLength      = 200
)

var errVersionConflict = errors.New("cart version changed")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productReader interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error)
}

type supplierDirectory interface {
	IsVerified(ctx context.Context, id uuid.UUID) (bool, error)
}

type opRecorder interface {
	IncCartOp(op, result string)
}

// Service manages the single cart of each vendor.
type Service interface {
	GetOrCreate(ctx context.Context, vendorID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, vendorID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, vendorID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, vendorID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, vendorID uuid.UUID) (*CartDTO, error)
	Validate(ctx context.Context, vendorID uuid.UUID) (*ValidationResult, error)
	Summary(ctx context.Context, vendorID uuid.UUID) (*Summary, error)

	// Snapshot returns the stored cart without creating or pruning it.
	Snapshot(ctx context.Context, vendorID uuid.UUID) (*models.Cart, error)
	// ClearForCheckout empties cart inside tx, failing with CONFLICT when the
	// cart moved past the version the caller read.
	ClearForCheckout(ctx context.Context, tx *gorm.DB, cart *models.Cart) error
}

// AddItemInput captures one add-to-cart request.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Notes     *string
}

type service struct {
	repo      *Repository
	tx        txRunner
	products  productReader
	suppliers supplierDirectory
	ops       opRecorder
}

// NewService builds a cart service backed by the provided stack. ops may be nil.
func NewService(repo *Repository, tx txRunner, catalog productReader, suppliers supplierDirectory, ops opRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier directory required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		products:  catalog,
		suppliers: suppliers,
		ops:       ops,
	}, nil
}

func (s *service) GetOrCreate(ctx context.Context, vendorID uuid.UUID) (*CartDTO, error) {
	cart, err := s.Snapshot(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart, err = s.mutate(ctx, vendorID, "", func(*gorm.DB, *models.Cart) error { return nil })
		if err != nil {
			return nil, err
		}
		return toDTO(cart, nil), nil
	}

	live, err := s.liveProducts(ctx, nil, cart.Items)
	if err != nil {
		return nil, err
	}
	if len(staleLines(cart.Items, live)) > 0 {
		cart, err = s.mutate(ctx, vendorID, "prune", func(tx *gorm.DB, c *models.Cart) error {
			fresh, err := s.liveProducts(ctx, tx, c.Items)
			if err != nil {
				return err
			}
			stale := staleLines(c.Items, fresh)
			if err := s.repo.DeleteItems(ctx, tx, c.ID, stale...); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune cart")
			}
			c.Items = withoutProducts(c.Items, stale...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return toDTO(cart, live), nil
}

func (s *service) AddItem(ctx context.Context, vendorID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	notes, err := normalizeNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	product, err := s.loadOrderable(ctx, input.ProductID)
	if err != nil {
		s.record("add", err)
		return nil, err
	}
	if err := s.checkSupplier(ctx, product.SupplierID); err != nil {
		s.record("add", err)
		return nil, err
	}
	if err := checkQuantity(product, input.Quantity); err != nil {
		s.record("add", err)
		return nil, err
	}

	cart, err := s.mutate(ctx, vendorID, "add", func(tx *gorm.DB, c *models.Cart) error {
		current, err := s.products.GetByID(ctx, tx, input.ProductID)
		if err != nil {
			return mapProductError(err)
		}
		if !current.IsActive {
			return productNotFound(input.ProductID)
		}

		for i := range c.Items {
			line := &c.Items[i]
			if line.ProductID != input.ProductID {
				continue
			}
			merged := line.Quantity + input.Quantity
			if merged > current.AvailableQuantity {
				return products.InsufficientStock(current, merged)
			}
			line.Quantity = merged
			if notes != nil {
				line.Notes = notes
			}
			if err := s.repo.UpdateItem(ctx, tx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
			return nil
		}

		if input.Quantity > current.AvailableQuantity {
			return products.InsufficientStock(current, input.Quantity)
		}
		item := models.CartItem{
			CartID:           c.ID,
			ProductID:        current.ID,
			Quantity:         input.Quantity,
			PriceAtAddAmount: current.PriceAmount,
			PriceAtAddUnit:   current.PriceUnit,
			Notes:            notes,
			Position:         nextPosition(c.Items),
		}
		if err := s.repo.InsertItem(ctx, tx, &item); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return errVersionConflict
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
		}
		c.Items = append(c.Items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.render(ctx, cart)
}

func (s *service) UpdateItemQuantity(ctx context.Context, vendorID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	existing, err := s.Snapshot(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if existing == nil || findLine(existing.Items, productID) == nil {
		return nil, itemNotFound(productID)
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, vendorID, productID)
	}

	product, err := s.loadOrderable(ctx, productID)
	if err != nil {
		s.record("update", err)
		return nil, err
	}
	if err := checkQuantity(product, quantity); err != nil {
		s.record("update", err)
		return nil, err
	}

	cart, err := s.mutate(ctx, vendorID, "update", func(tx *gorm.DB, c *models.Cart) error {
		line := findLine(c.Items, productID)
		if line == nil {
			return itemNotFound(productID)
		}
		current, err := s.products.GetByID(ctx, tx, productID)
		if err != nil {
			return mapProductError(err)
		}
		if err := checkQuantity(current, quantity); err != nil {
			return err
		}
		line.Quantity = quantity
		if err := s.repo.UpdateItem(ctx, tx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.render(ctx, cart)
}

func (s *service) RemoveItem(ctx context.Context, vendorID, productID uuid.UUID) (*CartDTO, error) {
	existing, err := s.Snapshot(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if existing != nil && findLine(existing.Items, productID) == nil {
		return s.render(ctx, existing)
	}

	cart, err := s.mutate(ctx, vendorID, "remove", func(tx *gorm.DB, c *models.Cart) error {
		if err := s.repo.DeleteItems(ctx, tx, c.ID, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		c.Items = withoutProducts(c.Items, productID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.render(ctx, cart)
}

func (s *service) Clear(ctx context.Context, vendorID uuid.UUID) (*CartDTO, error) {
	cart, err := s.mutate(ctx, vendorID, "clear", func(tx *gorm.DB, c *models.Cart) error {
		if err := s.repo.DeleteAllItems(ctx, tx, c.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		c.Items = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDTO(cart, nil), nil
}

func (s *service) ClearForCheckout(ctx context.Context, tx *gorm.DB, cart *models.Cart) error {
	if tx == nil || cart == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "checkout clear requires a transaction and cart")
	}
	ok, err := s.repo.Claim(ctx, tx, cart.ID, cart.Version)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim cart")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConcurrentUpdate, "cart changed during checkout, review it and retry")
	}
	if err := s.repo.DeleteAllItems(ctx, tx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if err := s.repo.WriteTotals(ctx, tx, cart.ID, 0, decimal.Zero, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart totals")
	}
	s.record("clear", nil)
	return nil
}

func (s *service) Snapshot(ctx context.Context, vendorID uuid.UUID) (*models.Cart, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	cart, err := s.repo.FindByVendor(ctx, nil, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) Validate(ctx context.Context, vendorID uuid.UUID) (*ValidationResult, error) {
	cart, err := s.Snapshot(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	result := &ValidationResult{Issues: []Issue{}}
	if cart == nil || len(cart.Items) == 0 {
		return result, nil
	}

	live, err := s.liveProducts(ctx, nil, cart.Items)
	if err != nil {
		return nil, err
	}
	result.TotalItemsCount = len(cart.Items)
	blocking := false
	for _, item := range cart.Items {
		issues := inspectLine(item, live)
		for _, issue := range issues {
			if issue.Type.Blocking() {
				blocking = true
			}
		}
		if len(issues) == 0 || issues[0].Type != enums.CartIssueUnavailable {
			result.ValidItemsCount++
		}
		result.Issues = append(result.Issues, issues...)
	}
	result.IsValid = !blocking
	return result, nil
}

func (s *service) Summary(ctx context.Context, vendorID uuid.UUID) (*Summary, error) {
	cart, err := s.Snapshot(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{EstimatedTotal: decimal.Zero, SupplierGroups: []SupplierGroup{}}
	if cart == nil || len(cart.Items) == 0 {
		return summary, nil
	}

	live, err := s.liveProducts(ctx, nil, cart.Items)
	if err != nil {
		return nil, err
	}
	summary.TotalItems = cart.TotalItems
	summary.EstimatedTotal = cart.EstimatedTotal

	index := map[uuid.UUID]int{}
	for _, item := range cart.Items {
		product, ok := live[item.ProductID]
		if !ok {
			continue
		}
		pos, seen := index[product.SupplierID]
		if !seen {
			pos = len(summary.SupplierGroups)
			index[product.SupplierID] = pos
			summary.SupplierGroups = append(summary.SupplierGroups, SupplierGroup{
				SupplierID: product.SupplierID,
				Subtotal:   decimal.Zero,
			})
		}
		group := &summary.SupplierGroups[pos]
		group.Items = append(group.Items, itemDTO(item, live))
		group.Subtotal = group.Subtotal.Add(item.LineTotal()).Round(2)
		group.TotalItems += item.Quantity
	}
	return summary, nil
}

// mutate applies fn to the vendor's cart inside a transaction that first
// claims the cart version, then rewrites the derived totals. Losing the
// claim to a concurrent writer restarts the whole attempt.
func (s *service) mutate(ctx context.Context, vendorID uuid.UUID, op string, fn func(tx *gorm.DB, cart *models.Cart) error) (*models.Cart, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}

	var (
		out *models.Cart
		err error
	)
	for attempt := 0; attempt < maxMutationAttempts; attempt++ {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			cart, err := s.loadOrCreate(ctx, tx, vendorID)
			if err != nil {
				return err
			}
			ok, err := s.repo.Claim(ctx, tx, cart.ID, cart.Version)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim cart")
			}
			if !ok {
				return errVersionConflict
			}
			cart.Version++

			if err := fn(tx, cart); err != nil {
				return err
			}

			now := time.Now().UTC()
			cart.TotalItems, cart.EstimatedTotal = Totals(cart.Items)
			cart.LastUpdatedAt = now
			if err := s.repo.WriteTotals(ctx, tx, cart.ID, cart.TotalItems, cart.EstimatedTotal, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart totals")
			}
			out = cart
			return nil
		})
		if !errors.Is(err, errVersionConflict) {
			break
		}
	}
	if errors.Is(err, errVersionConflict) {
		err = pkgerrors.New(pkgerrors.CodeConcurrentUpdate, "cart is being modified concurrently, retry")
	}
	if op != "" {
		s.record(op, err)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) loadOrCreate(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByVendor(ctx, tx, vendorID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{
		VendorID:       vendorID,
		EstimatedTotal: decimal.Zero,
		LastUpdatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, tx, cart); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, errVersionConflict
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func (s *service) loadOrderable(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, mapProductError(err)
	}
	if !product.IsActive {
		return nil, productNotFound(productID)
	}
	return product, nil
}

func (s *service) checkSupplier(ctx context.Context, supplierID uuid.UUID) error {
	verified, err := s.suppliers.IsVerified(ctx, supplierID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnverified, "can only order from verified suppliers")
		}
		return err
	}
	if !verified {
		return pkgerrors.New(pkgerrors.CodeUnverified, "can only order from verified suppliers")
	}
	return nil
}

func (s *service) liveProducts(ctx context.Context, tx *gorm.DB, items []models.CartItem) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	rows, err := s.products.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	live := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		live[row.ID] = row
	}
	return live, nil
}

func (s *service) render(ctx context.Context, cart *models.Cart) (*CartDTO, error) {
	live, err := s.liveProducts(ctx, nil, cart.Items)
	if err != nil {
		return nil, err
	}
	return toDTO(cart, live), nil
}

func (s *service) record(op string, err error) {
	if s.ops == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(pkgerrors.As(err).Code())
	}
	s.ops.IncCartOp(op, result)
}

func inspectLine(item models.CartItem, live map[uuid.UUID]models.Product) []Issue {
	product, ok := live[item.ProductID]
	if !ok || !product.IsActive {
		return []Issue{{
			Type:      enums.CartIssueUnavailable,
			ProductID: item.ProductID,
			Message:   "product is no longer available",
		}}
	}

	var issues []Issue
	if item.Quantity > product.AvailableQuantity {
		available := product.AvailableQuantity
		issues = append(issues, Issue{
			Type:              enums.CartIssueStock,
			ProductID:         item.ProductID,
			Message:           fmt.Sprintf("only %d %s available", available, product.PriceUnit),
			AvailableQuantity: &available,
		})
	}
	if item.Quantity < product.MinimumOrderQuantity {
		minimum := product.MinimumOrderQuantity
		issues = append(issues, Issue{
			Type:                 enums.CartIssueMinimumOrder,
			ProductID:            item.ProductID,
			Message:              fmt.Sprintf("minimum order quantity is %d %s", minimum, product.PriceUnit),
			MinimumOrderQuantity: &minimum,
		})
	}
	if !item.PriceAtAddAmount.Equal(product.PriceAmount) || item.PriceAtAddUnit != product.PriceUnit {
		oldPrice := item.PriceAtAddAmount
		newPrice := product.PriceAmount
		issues = append(issues, Issue{
			Type:      enums.CartIssuePriceChange,
			ProductID: item.ProductID,
			Message:   fmt.Sprintf("price changed from %s to %s per %s", oldPrice.StringFixed(2), newPrice.StringFixed(2), product.PriceUnit),
			OldPrice:  &oldPrice,
			NewPrice:  &newPrice,
		})
	}
	return issues
}

func checkQuantity(product *models.Product, quantity int) error {
	if quantity < product.MinimumOrderQuantity {
		return pkgerrors.Newf(pkgerrors.CodeBelowMinimum, "minimum order quantity is %d %s", product.MinimumOrderQuantity, product.PriceUnit).
			WithDetails(map[string]any{
				"product_id": product.ID,
				"minimum":    product.MinimumOrderQuantity,
				"requested":  quantity,
			})
	}
	if quantity > product.AvailableQuantity {
		return products.InsufficientStock(product, quantity)
	}
	return nil
}

func staleLines(items []models.CartItem, live map[uuid.UUID]models.Product) []uuid.UUID {
	var stale []uuid.UUID
	for _, item := range items {
		if product, ok := live[item.ProductID]; !ok || !product.IsActive {
			stale = append(stale, item.ProductID)
		}
	}
	return stale
}

func withoutProducts(items []models.CartItem, productIDs ...uuid.UUID) []models.CartItem {
	drop := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}
	kept := items[:0]
	for _, item := range items {
		if _, ok := drop[item.ProductID]; !ok {
			kept = append(kept, item)
		}
	}
	return kept
}

func findLine(items []models.CartItem, productID uuid.UUID) *models.CartItem {
	for i := range items {
		if items[i].ProductID == productID {
			return &items[i]
		}
	}
	return nil
}

func nextPosition(items []models.CartItem) int {
	next := 0
	for _, item := range items {
		if item.Position >= next {
			next = item.Position + 1
		}
	}
	return next
}

func normalizeNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil, nil
	}
	if len([]rune(trimmed)) > maxNotesLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "notes must be at most %d characters", maxNotesLength)
	}
	return &trimmed, nil
}

func mapProductError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found or unavailable")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func productNotFound(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found or unavailable").
		WithDetails(map[string]any{"product_id": productID})
}

func itemNotFound(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart").
		WithDetails(map[string]any{"product_id": productID})
}
