package orders

import (
	"bytes"
	"context"
	"regexp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	dbpkg "github.com/bazaarsetu/bazaarsetu-backend/pkg/db"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/outbox"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/outbox/payloads"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/types"
)

const (
	maxNumberAttempts   = 3
	maxVendorNoteLength = 500
	defaultDeliveryDays = 3
)

// CheckoutInput carries the vendor's checkout request.
type CheckoutInput struct {
	DeliveryAddress types.DeliveryAddress
	PaymentMethod   *enums.PaymentMethod
	VendorNotes     *string
}

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

type supplierGroup struct {
	supplierID uuid.UUID
	lines      []models.CartItem
}

// Checkout turns the vendor's cart into one pending order per supplier.
// Every line is re-validated against the live catalog before anything is
// written, then stock is decremented with guarded updates inside a single
// transaction that also creates the orders and clears the cart.
func (s *service) Checkout(ctx context.Context, vendorID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	started := time.Now()
	result, err := s.checkout(ctx, vendorID, input)
	if s.metrics != nil {
		outcome, created := "ok", 0
		if err != nil {
			outcome = string(pkgerrors.As(err).Code())
		} else {
			created = len(result.Orders)
		}
		s.metrics.ObserveCheckout(outcome, created, time.Since(started))
	}
	return result, err
}

func (s *service) checkout(ctx context.Context, vendorID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	address, payment, notes, err := normalizeCheckout(input)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.Snapshot(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	live, err := s.loadProducts(ctx, nil, cart.Items)
	if err != nil {
		return nil, err
	}
	for _, line := range cart.Items {
		if err := checkLine(line, live); err != nil {
			return nil, err
		}
	}

	checkoutID := uuid.New()
	var created []models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range byProduct(cart.Items, func(i models.CartItem) uuid.UUID { return i.ProductID }) {
			if err := s.catalog.DecrementAvailable(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		current, err := s.loadProducts(ctx, tx, cart.Items)
		if err != nil {
			return err
		}
		now := s.now()
		expected := now.AddDate(0, 0, s.deliveryDays())

		for _, group := range groupBySupplier(cart.Items, current) {
			order := buildOrder(group, current, vendorID, checkoutID, address, payment, notes, now, expected)
			if err := s.insertOrder(ctx, tx, order, now); err != nil {
				return err
			}
			created = append(created, *order)
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateCheckout,
			AggregateID:   checkoutID,
			Actor:         &outbox.ActorRef{UserID: vendorID, Role: enums.UserRoleVendor},
			Data:          orderCreatedPayload(checkoutID, vendorID, payment, created),
			OccurredAt:    now,
		}); err != nil {
			return err
		}

		return s.carts.ClearForCheckout(ctx, tx, cart)
	})
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{
		CheckoutID:  checkoutID,
		Orders:      make([]OrderDTO, 0, len(created)),
		TotalAmount: decimal.Zero,
	}
	for _, order := range created {
		result.Orders = append(result.Orders, ToDTO(order))
		result.TotalAmount = result.TotalAmount.Add(order.TotalAmount)
		result.TotalItems += order.TotalItems
	}

	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, vendorID.String()), map[string]any{
		"checkout_id": checkoutID.String(),
		"orders":      len(created),
	})
	s.logg.Info(logCtx, "checkout completed")
	return result, nil
}

// byProduct returns the lines sorted by product id. Stock rows are always
// locked in this order so concurrent checkouts and restores cannot deadlock.
func byProduct[T any](lines []T, productID func(T) uuid.UUID) []T {
	sorted := slices.Clone(lines)
	slices.SortStableFunc(sorted, func(a, b T) int {
		x, y := productID(a), productID(b)
		return bytes.Compare(x[:], y[:])
	})
	return sorted
}

// insertOrder assigns an order number and inserts the order under a
// savepoint, drawing a new number if the unique index rejects it.
func (s *service) insertOrder(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) error {
	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.OrderNumber = number
		lastErr = tx.Transaction(func(sp *gorm.DB) error {
			return s.repo.Create(ctx, sp, order)
		})
		if lastErr == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(lastErr, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create order")
		}
		s.logg.Warn(s.logg.WithField(ctx, "order_number", number), "order number collision, drawing another")
	}
	return pkgerrors.Wrap(pkgerrors.CodeConcurrentUpdate, lastErr, "could not allocate a unique order number")
}

func (s *service) loadProducts(ctx context.Context, tx *gorm.DB, items []models.CartItem) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	rows, err := s.catalog.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	out := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (s *service) deliveryDays() int {
	if s.cfg.ExpectedDeliveryDays > 0 {
		return s.cfg.ExpectedDeliveryDays
	}
	return defaultDeliveryDays
}

func checkLine(line models.CartItem, live map[uuid.UUID]models.Product) error {
	product, ok := live[line.ProductID]
	if !ok || !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeUnavailable, "a product in the cart is no longer available").
			WithDetails(map[string]any{"product_id": line.ProductID})
	}
	if line.Quantity > product.AvailableQuantity {
		return products.InsufficientStock(&product, line.Quantity)
	}
	return nil
}

// groupBySupplier keeps suppliers in the order their first line appears in the cart.
func groupBySupplier(items []models.CartItem, live map[uuid.UUID]models.Product) []supplierGroup {
	index := map[uuid.UUID]int{}
	var groups []supplierGroup
	for _, item := range items {
		supplierID := live[item.ProductID].SupplierID
		pos, ok := index[supplierID]
		if !ok {
			pos = len(groups)
			index[supplierID] = pos
			groups = append(groups, supplierGroup{supplierID: supplierID})
		}
		groups[pos].lines = append(groups[pos].lines, item)
	}
	return groups
}

func buildOrder(
	group supplierGroup,
	live map[uuid.UUID]models.Product,
	vendorID, checkoutID uuid.UUID,
	address types.DeliveryAddress,
	payment enums.PaymentMethod,
	notes *string,
	now, expected time.Time,
) *models.Order {
	order := &models.Order{
		ID:                   uuid.New(),
		CheckoutID:           checkoutID,
		VendorID:             vendorID,
		SupplierID:           group.supplierID,
		Status:               enums.OrderStatusPending,
		TotalAmount:          decimal.Zero,
		DeliveryAddress:      address,
		ExpectedDeliveryDate: &expected,
		PaymentMethod:        payment,
		PaymentStatus:        enums.PaymentStatusPending,
		VendorNotes:          notes,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for i, line := range group.lines {
		lineTotal := line.LineTotal().Round(2)
		order.Items = append(order.Items, models.OrderItem{
			OrderID:         order.ID,
			ProductID:       line.ProductID,
			ProductName:     live[line.ProductID].Name,
			Quantity:        line.Quantity,
			UnitPriceAmount: line.PriceAtAddAmount,
			UnitPriceUnit:   line.PriceAtAddUnit,
			LineTotal:       lineTotal,
			SupplierID:      group.supplierID,
			Notes:           line.Notes,
			Position:        i,
			CreatedAt:       now,
		})
		order.TotalAmount = order.TotalAmount.Add(lineTotal)
		order.TotalItems += line.Quantity
	}
	placed := "Order placed"
	order.StatusHistory = []models.OrderStatusEntry{{
		OrderID:   order.ID,
		Seq:       1,
		Status:    enums.OrderStatusPending,
		UpdatedBy: vendorID,
		Notes:     &placed,
		CreatedAt: now,
	}}
	return order
}

func orderCreatedPayload(checkoutID, vendorID uuid.UUID, payment enums.PaymentMethod, created []models.Order) payloads.OrderCreatedEvent {
	event := payloads.OrderCreatedEvent{
		CheckoutID:    checkoutID,
		VendorID:      vendorID,
		PaymentMethod: payment,
		TotalAmount:   decimal.Zero,
		Orders:        make([]payloads.OrderSummary, 0, len(created)),
	}
	for _, order := range created {
		event.Orders = append(event.Orders, payloads.OrderSummary{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			SupplierID:  order.SupplierID,
			TotalAmount: order.TotalAmount,
		})
		event.TotalAmount = event.TotalAmount.Add(order.TotalAmount)
		event.TotalItems += order.TotalItems
	}
	return event
}

func normalizeCheckout(input CheckoutInput) (types.DeliveryAddress, enums.PaymentMethod, *string, error) {
	address := input.DeliveryAddress.Normalize()
	var fields []types.FieldError
	if address.Street == "" {
		fields = append(fields, types.FieldError{Field: "delivery_address.street", Message: "is required"})
	}
	if address.City == "" {
		fields = append(fields, types.FieldError{Field: "delivery_address.city", Message: "is required"})
	}
	if address.State == "" {
		fields = append(fields, types.FieldError{Field: "delivery_address.state", Message: "is required"})
	}
	if !pincodePattern.MatchString(address.Pincode) {
		fields = append(fields, types.FieldError{Field: "delivery_address.pincode", Message: "must be 6 digits"})
	}

	payment := enums.PaymentMethodCashOnDelivery
	if input.PaymentMethod != nil {
		payment = *input.PaymentMethod
		if !payment.IsValid() {
			fields = append(fields, types.FieldError{Field: "payment_method", Message: "must be cash_on_delivery, online or bank_transfer"})
		}
	}

	notes := trimmed(input.VendorNotes)
	if notes != nil && len([]rune(*notes)) > maxVendorNoteLength {
		fields = append(fields, types.FieldError{Field: "vendor_notes", Message: "must be at most 500 characters"})
	}

	if len(fields) > 0 {
		return types.DeliveryAddress{}, "", nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout request").WithDetails(fields)
	}
	return address, payment, notes, nil
}
