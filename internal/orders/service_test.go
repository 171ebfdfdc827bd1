package orders

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/internal/cart"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/products"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/users"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/config"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/dbtest"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/outbox"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/types"
)

var fixedNow = time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)

type checkoutObservation struct {
	result string
	orders int
}

type stubMetrics struct {
	mu          sync.Mutex
	checkouts   []checkoutObservation
	transitions []string
	restored    int
}

func (m *stubMetrics) ObserveCheckout(result string, orders int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkouts = append(m.checkouts, checkoutObservation{result: result, orders: orders})
}

func (m *stubMetrics) IncTransition(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+"->"+to)
}

func (m *stubMetrics) AddStockRestored(units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restored += units
}

// flakyLedger fails the nth decrement to exercise rollback after earlier
// lines were already taken.
type flakyLedger struct {
	*products.Repository
	failOn int
	calls  int
}

func (l *flakyLedger) DecrementAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	l.calls++
	if l.calls == l.failOn {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock taken concurrently")
	}
	return l.Repository.DecrementAvailable(ctx, tx, productID, qty)
}

// recordingLedger keeps the order in which stock rows were touched.
type recordingLedger struct {
	*products.Repository
	decremented []uuid.UUID
	incremented []uuid.UUID
}

func (l *recordingLedger) DecrementAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	l.decremented = append(l.decremented, productID)
	return l.Repository.DecrementAvailable(ctx, tx, productID, qty)
}

func (l *recordingLedger) IncrementAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	l.incremented = append(l.incremented, productID)
	return l.Repository.IncrementAvailable(ctx, tx, productID, qty)
}

// racingStore moves the order to another status inside the transition's
// transaction right after it was loaded, as a concurrent writer would.
type racingStore struct {
	*Repository
	to    enums.OrderStatus
	raced bool
}

func (r *racingStore) FindScoped(ctx context.Context, tx *gorm.DB, orderID, actorID uuid.UUID) (*models.Order, error) {
	order, err := r.Repository.FindScoped(ctx, tx, orderID, actorID)
	if err != nil || tx == nil || r.raced {
		return order, err
	}
	r.raced = true
	if err := tx.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Update("status", r.to).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// scriptedNumbers replays fixed order numbers.
type scriptedNumbers struct {
	numbers []string
	calls   int
}

func (s *scriptedNumbers) Next(context.Context, time.Time) (string, error) {
	n := s.numbers[s.calls%len(s.numbers)]
	s.calls++
	return n, nil
}

type harness struct {
	svc      Service
	carts    cart.Service
	conn     *gorm.DB
	metrics  *stubMetrics
	vendor   *models.User
	supplier *models.User
}

type harnessOpts struct {
	catalog  stockLedger
	numbers  numberSource
	wrapRepo func(*Repository) orderStore
}

func newHarness(t *testing.T, opts ...harnessOpts) *harness {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()

	userSvc, err := users.NewService(users.NewRepository(conn), config.PasswordConfig{})
	require.NoError(t, err)
	productRepo := products.NewRepository(conn)
	carts, err := cart.NewService(cart.NewRepository(conn), client, productRepo, userSvc, nil)
	require.NoError(t, err)

	var catalog stockLedger = productRepo
	var numbers numberSource = NewNumberGenerator(newStubCounter(), logger.Nop())
	var repo orderStore = NewRepository(conn)
	if len(opts) > 0 {
		if opts[0].catalog != nil {
			catalog = opts[0].catalog
		}
		if opts[0].numbers != nil {
			numbers = opts[0].numbers
		}
		if opts[0].wrapRepo != nil {
			repo = opts[0].wrapRepo(NewRepository(conn))
		}
	}

	metrics := &stubMetrics{}
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Tx:      client,
		Carts:   carts,
		Catalog: catalog,
		Numbers: numbers,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Metrics: metrics,
		Logger:  logger.Nop(),
		Config:  config.OrdersConfig{ExpectedDeliveryDays: 3},
		Clock:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	return &harness{
		svc:      svc,
		carts:    carts,
		conn:     conn,
		metrics:  metrics,
		vendor:   dbtest.Vendor(t, conn),
		supplier: dbtest.Supplier(t, conn, true),
	}
}

func (h *harness) add(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	_, err := h.carts.AddItem(context.Background(), h.vendor.ID, cart.AddItemInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

func (h *harness) checkout(t *testing.T) *CheckoutResult {
	t.Helper()
	result, err := h.svc.Checkout(context.Background(), h.vendor.ID, validCheckout())
	require.NoError(t, err)
	return result
}

func (h *harness) vendorActor() Actor {
	return Actor{ID: h.vendor.ID, Role: enums.UserRoleVendor}
}

func (h *harness) supplierActor() Actor {
	return Actor{ID: h.supplier.ID, Role: enums.UserRoleSupplier}
}

func (h *harness) advance(t *testing.T, orderID uuid.UUID, statuses ...enums.OrderStatus) {
	t.Helper()
	for _, status := range statuses {
		_, err := h.svc.Transition(context.Background(), h.supplierActor(), orderID, TransitionInput{Status: status})
		require.NoError(t, err, "move to %s", status)
	}
}

func (h *harness) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func validCheckout() CheckoutInput {
	return CheckoutInput{
		DeliveryAddress: types.DeliveryAddress{
			Street:  " 12 Chandni Chowk ",
			City:    "Delhi",
			State:   "Delhi",
			Pincode: "110006",
		},
	}
}

func codeOf(err error) pkgerrors.Code {
	return pkgerrors.As(err).Code()
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{Repo: NewRepository(nil)})
	assert.ErrorContains(t, err, "transaction runner")
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Price: "40.00", Available: 100})
	h.add(t, product.ID, 10)

	result := h.checkout(t)

	require.Len(t, result.Orders, 1)
	order := result.Orders[0]
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, h.supplier.ID, order.SupplierID)
	assert.Equal(t, result.CheckoutID, order.CheckoutID)
	assert.Equal(t, "BZS-20240309-000001", order.OrderNumber)
	assert.True(t, decimal.RequireFromString("400").Equal(order.TotalAmount))
	assert.Equal(t, 10, order.TotalItems)
	assert.Equal(t, enums.PaymentMethodCashOnDelivery, order.PaymentMethod)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "12 Chandni Chowk", order.DeliveryAddress.Street)
	require.NotNil(t, order.ExpectedDeliveryDate)
	assert.True(t, fixedNow.AddDate(0, 0, 3).Equal(*order.ExpectedDeliveryDate))
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, enums.OrderStatusPending, order.StatusHistory[0].Status)
	assert.Equal(t, h.vendor.ID, order.StatusHistory[0].UpdatedBy)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Onion", order.Items[0].ProductName)
	assert.True(t, decimal.RequireFromString("40").Equal(order.Items[0].UnitPrice.Amount))

	assert.Equal(t, 90, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)

	cartAfter, err := h.carts.GetOrCreate(ctx, h.vendor.ID)
	require.NoError(t, err)
	assert.Empty(t, cartAfter.Items)
	assert.Zero(t, cartAfter.TotalItems)

	assert.EqualValues(t, 1, h.countEvents(t, enums.EventOrderCreated))
	assert.Equal(t, []checkoutObservation{{result: "ok", orders: 1}}, h.metrics.checkouts)

	stored, err := h.svc.Get(ctx, h.vendorActor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, stored.OrderNumber)
}

func TestCheckoutUsesSnapshotPrice(t *testing.T) {
	h := newHarness(t)
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Price: "40.00", Available: 20})
	h.add(t, product.ID, 5)
	require.NoError(t, h.conn.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("price_amount", decimal.RequireFromString("55.00")).Error)

	result := h.checkout(t)
	assert.True(t, decimal.RequireFromString("200").Equal(result.TotalAmount), "got %s", result.TotalAmount)
}

func TestCheckoutSplitsBySupplier(t *testing.T) {
	h := newHarness(t)
	other := dbtest.Supplier(t, h.conn, true)
	onion := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Price: "30.00", Available: 50})
	paneer := dbtest.Product(t, h.conn, other.ID, dbtest.ProductOpts{Name: "Paneer", Price: "320.00", Available: 10})
	potato := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Name: "Potato", Price: "25.50", Available: 40})
	h.add(t, onion.ID, 4)
	h.add(t, paneer.ID, 2)
	h.add(t, potato.ID, 2)

	result := h.checkout(t)

	require.Len(t, result.Orders, 2)
	first, second := result.Orders[0], result.Orders[1]
	assert.Equal(t, h.supplier.ID, first.SupplierID)
	assert.Equal(t, other.ID, second.SupplierID)
	assert.Len(t, first.Items, 2)
	assert.True(t, decimal.RequireFromString("171").Equal(first.TotalAmount), "got %s", first.TotalAmount)
	assert.True(t, decimal.RequireFromString("640").Equal(second.TotalAmount))
	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, first.CheckoutID, second.CheckoutID)
	assert.True(t, decimal.RequireFromString("811").Equal(result.TotalAmount))
	assert.Equal(t, 8, result.TotalItems)
	for _, item := range first.Items {
		assert.Equal(t, h.supplier.ID, item.SupplierID)
	}
}

func TestCheckoutFailsWhenStockDropped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 20})
	h.add(t, product.ID, 10)
	require.NoError(t, h.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("available_quantity", 5).Error)

	_, err := h.svc.Checkout(ctx, h.vendor.ID, validCheckout())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, codeOf(err))

	assert.Equal(t, 5, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
	cartAfter, err := h.carts.GetOrCreate(ctx, h.vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, cartAfter.TotalItems)

	var orders int64
	require.NoError(t, h.conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Equal(t, "INSUFFICIENT_STOCK", h.metrics.checkouts[0].result)
}

func TestCheckoutRollsBackEarlierDecrements(t *testing.T) {
	productRepo := &flakyLedger{failOn: 2}
	h := newHarness(t, harnessOpts{catalog: productRepo})
	productRepo.Repository = products.NewRepository(h.conn)

	first := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 20})
	second := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Name: "Tomato", Available: 20})
	h.add(t, first.ID, 5)
	h.add(t, second.ID, 5)

	_, err := h.svc.Checkout(context.Background(), h.vendor.ID, validCheckout())
	require.Error(t, err)

	assert.Equal(t, 20, dbtest.Reload(t, h.conn, first.ID).AvailableQuantity)
	assert.Equal(t, 20, dbtest.Reload(t, h.conn, second.ID).AvailableQuantity)
	assert.Zero(t, h.countEvents(t, enums.EventOrderCreated))
	snapshot, err := h.carts.Snapshot(context.Background(), h.vendor.ID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Items, 2)
}

func TestCheckoutRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Checkout(ctx, h.vendor.ID, validCheckout())
		assert.Equal(t, pkgerrors.CodeEmptyCart, codeOf(err))

		_, err = h.carts.GetOrCreate(ctx, h.vendor.ID)
		require.NoError(t, err)
		_, err = h.svc.Checkout(ctx, h.vendor.ID, validCheckout())
		assert.Equal(t, pkgerrors.CodeEmptyCart, codeOf(err))
	})

	t.Run("inactive product", func(t *testing.T) {
		h := newHarness(t)
		product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 20})
		h.add(t, product.ID, 3)
		require.NoError(t, h.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error)

		_, err := h.svc.Checkout(ctx, h.vendor.ID, validCheckout())
		assert.Equal(t, pkgerrors.CodeUnavailable, codeOf(err))
	})

	t.Run("invalid address", func(t *testing.T) {
		h := newHarness(t)
		input := validCheckout()
		input.DeliveryAddress.City = "  "
		input.DeliveryAddress.Pincode = "1100"

		_, err := h.svc.Checkout(ctx, h.vendor.ID, input)
		require.Equal(t, pkgerrors.CodeValidation, codeOf(err))
		fields, ok := pkgerrors.As(err).Details().([]types.FieldError)
		require.True(t, ok)
		assert.Len(t, fields, 2)
	})

	t.Run("unknown payment method", func(t *testing.T) {
		h := newHarness(t)
		input := validCheckout()
		method := enums.PaymentMethod("barter")
		input.PaymentMethod = &method

		_, err := h.svc.Checkout(ctx, h.vendor.ID, input)
		assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
	})

	t.Run("missing identity", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Checkout(ctx, uuid.Nil, validCheckout())
		assert.Equal(t, pkgerrors.CodeUnauthorized, codeOf(err))
	})
}

func TestCheckoutRetriesOrderNumberCollision(t *testing.T) {
	numbers := &scriptedNumbers{numbers: []string{"BZS-20240309-000001", "BZS-20240309-000001", "BZS-20240309-000002"}}
	h := newHarness(t, harnessOpts{numbers: numbers})
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 20})

	h.add(t, product.ID, 2)
	first := h.checkout(t)
	h.add(t, product.ID, 3)
	second := h.checkout(t)

	assert.Equal(t, "BZS-20240309-000001", first.Orders[0].OrderNumber)
	assert.Equal(t, "BZS-20240309-000002", second.Orders[0].OrderNumber)
	assert.Equal(t, 3, numbers.calls)
	assert.Equal(t, 15, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
}

func TestRejectRestoresStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 50})
	h.add(t, product.ID, 10)
	order := h.checkout(t).Orders[0]
	require.Equal(t, 40, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)

	_, err := h.svc.Transition(ctx, h.supplierActor(), order.ID, TransitionInput{Status: enums.OrderStatusRejected})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	updated, err := h.svc.Reject(ctx, h.supplierActor(), order.ID, "Out of season", nil)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusRejected, updated.Status)
	require.NotNil(t, updated.RejectionReason)
	assert.Equal(t, "Out of season", *updated.RejectionReason)
	require.Len(t, updated.StatusHistory, 2)
	assert.Equal(t, 2, updated.StatusHistory[1].Seq)
	assert.Equal(t, h.supplier.ID, updated.StatusHistory[1].UpdatedBy)
	assert.Empty(t, updated.AllowedTransitions)
	assert.Equal(t, 50, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
	assert.Equal(t, 10, h.metrics.restored)
	assert.EqualValues(t, 1, h.countEvents(t, enums.EventOrderStatusChanged))
}

func TestCancelRestoresOnlyWhilePending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 30})

	h.add(t, product.ID, 6)
	cancelled := h.checkout(t).Orders[0]
	h.add(t, product.ID, 4)
	accepted := h.checkout(t).Orders[0]
	require.Equal(t, 20, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)

	out, err := h.svc.Cancel(ctx, h.vendorActor(), cancelled.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, out.Status)
	require.NotNil(t, out.StatusHistory[1].Notes)
	assert.Equal(t, "Cancelled by vendor", *out.StatusHistory[1].Notes)
	assert.Equal(t, 26, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)

	h.advance(t, accepted.ID, enums.OrderStatusAccepted)
	_, err = h.svc.Cancel(ctx, h.vendorActor(), accepted.ID, nil)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, codeOf(err))
	assert.Equal(t, 26, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
}

func TestFullLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 30})
	h.add(t, product.ID, 5)
	order := h.checkout(t).Orders[0]

	_, err := h.svc.Transition(ctx, h.supplierActor(), order.ID, TransitionInput{Status: enums.OrderStatusShipped})
	require.Equal(t, pkgerrors.CodeInvalidTransition, codeOf(err))

	notes := "  Loaded on the morning van  "
	_, err = h.svc.Accept(ctx, h.supplierActor(), order.ID, &notes)
	require.NoError(t, err)
	h.advance(t, order.ID, enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered)

	final, err := h.svc.Get(ctx, h.vendorActor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, final.Status)
	require.NotNil(t, final.ActualDeliveryDate)
	require.NotNil(t, final.SupplierNotes)
	assert.Equal(t, "Loaded on the morning van", *final.SupplierNotes)

	want := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusAccepted,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	}
	require.Len(t, final.StatusHistory, len(want))
	for i, entry := range final.StatusHistory {
		assert.Equal(t, i+1, entry.Seq)
		assert.Equal(t, want[i], entry.Status)
	}
	assert.Equal(t, 25, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
	assert.Equal(t, []string{
		"pending->accepted",
		"accepted->processing",
		"processing->shipped",
		"shipped->delivered",
	}, h.metrics.transitions)
}

func TestIllegalTransitionsLeaveOrderUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 30})
	h.add(t, product.ID, 5)
	order := h.checkout(t).Orders[0]
	h.advance(t, order.ID, enums.OrderStatusAccepted, enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered)

	for _, status := range enums.OrderStatuses() {
		_, err := h.svc.Transition(ctx, h.supplierActor(), order.ID, TransitionInput{Status: status, Reason: ptr("late")})
		assert.Error(t, err, "delivered -> %s", status)
	}
	_, err := h.svc.Cancel(ctx, h.vendorActor(), order.ID, nil)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, codeOf(err))

	final, err := h.svc.Get(ctx, h.supplierActor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, final.Status)
	assert.Len(t, final.StatusHistory, 5)
	assert.Equal(t, 25, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
}

func TestStockIsConservedAcrossOutcomes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 100})

	quantities := []int{7, 11, 13, 17}
	var ids []uuid.UUID
	for _, qty := range quantities {
		h.add(t, product.ID, qty)
		ids = append(ids, h.checkout(t).Orders[0].ID)
	}

	_, err := h.svc.Reject(ctx, h.supplierActor(), ids[0], "No transport", nil)
	require.NoError(t, err)
	_, err = h.svc.Cancel(ctx, h.vendorActor(), ids[1], nil)
	require.NoError(t, err)
	h.advance(t, ids[2], enums.OrderStatusAccepted, enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered)

	// Still reserved: the delivered order and the pending one.
	assert.Equal(t, 100-13-17, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
}

func TestTransitionLosingCompareAndSetIsRejected(t *testing.T) {
	store := &racingStore{to: enums.OrderStatusAccepted}
	h := newHarness(t, harnessOpts{wrapRepo: func(repo *Repository) orderStore {
		store.Repository = repo
		return store
	}})
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 10})
	h.add(t, product.ID, 4)
	order := h.checkout(t).Orders[0]

	_, err := h.svc.Cancel(ctx, h.vendorActor(), order.ID, nil)
	require.Error(t, err)
	assert.True(t, store.raced)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, codeOf(err))

	final, err := h.svc.Get(ctx, h.vendorActor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, final.Status)
	assert.Len(t, final.StatusHistory, 1)
	assert.Equal(t, 6, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
	assert.Zero(t, h.countEvents(t, enums.EventOrderStatusChanged))
	assert.Empty(t, h.metrics.transitions)
	assert.Zero(t, h.metrics.restored)
}

func TestStockRowsAreTouchedInProductOrder(t *testing.T) {
	ledger := &recordingLedger{}
	h := newHarness(t, harnessOpts{catalog: ledger})
	ledger.Repository = products.NewRepository(h.conn)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, name := range []string{"Onion", "Potato", "Tomato", "Garlic"} {
		p := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Name: name, Available: 20})
		ids = append(ids, p.ID)
	}
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	for i := len(sorted) - 1; i >= 0; i-- {
		h.add(t, sorted[i], 2)
	}

	order := h.checkout(t).Orders[0]
	assert.Equal(t, sorted, ledger.decremented)

	_, err := h.svc.Cancel(ctx, h.vendorActor(), order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, sorted, ledger.incremented)
	for _, id := range ids {
		assert.Equal(t, 20, dbtest.Reload(t, h.conn, id).AvailableQuantity)
	}
}

// The sqlite test database serialises these transactions, so the loser
// always reads the winner's status. TestTransitionLosingCompareAndSetIsRejected
// covers the interleaved case.
func TestConcurrentCancelAndAcceptHaveOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 10})
	h.add(t, product.ID, 4)
	order := h.checkout(t).Orders[0]

	var (
		wg        sync.WaitGroup
		cancelErr error
		acceptErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = h.svc.Cancel(ctx, h.vendorActor(), order.ID, nil)
	}()
	go func() {
		defer wg.Done()
		_, acceptErr = h.svc.Accept(ctx, h.supplierActor(), order.ID, nil)
	}()
	wg.Wait()

	require.True(t, (cancelErr == nil) != (acceptErr == nil), "cancel=%v accept=%v", cancelErr, acceptErr)
	final, err := h.svc.Get(ctx, h.vendorActor(), order.ID)
	require.NoError(t, err)
	assert.Len(t, final.StatusHistory, 2)
	if cancelErr == nil {
		assert.Equal(t, pkgerrors.CodeInvalidTransition, codeOf(acceptErr))
		assert.Equal(t, 10, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
	} else {
		assert.Equal(t, pkgerrors.CodeInvalidTransition, codeOf(cancelErr))
		assert.Equal(t, 6, dbtest.Reload(t, h.conn, product.ID).AvailableQuantity)
	}
}

func TestOrderAccessIsScopedToParties(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 10})
	h.add(t, product.ID, 2)
	order := h.checkout(t).Orders[0]

	stranger := dbtest.Vendor(t, h.conn)
	_, err := h.svc.Get(ctx, Actor{ID: stranger.ID, Role: enums.UserRoleVendor}, order.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))

	rival := dbtest.Supplier(t, h.conn, true)
	_, err = h.svc.Accept(ctx, Actor{ID: rival.ID, Role: enums.UserRoleSupplier}, order.ID, nil)
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))

	_, err = h.svc.Accept(ctx, h.vendorActor(), order.ID, nil)
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	_, err = h.svc.Cancel(ctx, h.supplierActor(), order.ID, nil)
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	_, err = h.svc.Get(ctx, Actor{ID: h.vendor.ID, Role: enums.UserRoleSupplier}, order.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	_, err = h.svc.Get(ctx, Actor{ID: h.vendor.ID, Role: enums.UserRoleAdmin}, order.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	_, err = h.svc.Get(ctx, h.vendorActor(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(err))
}

func TestListFiltersByPartyAndStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 50})
	for i := 0; i < 3; i++ {
		h.add(t, product.ID, 1)
		h.checkout(t)
	}
	page, err := h.svc.List(ctx, h.vendorActor(), ListInput{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	h.advance(t, page.Items[0].ID, enums.OrderStatusAccepted)

	accepted := enums.OrderStatusAccepted
	filtered, err := h.svc.List(ctx, h.supplierActor(), ListInput{Status: &accepted})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, page.Items[0].ID, filtered.Items[0].ID)

	other := dbtest.Supplier(t, h.conn, true)
	empty, err := h.svc.List(ctx, Actor{ID: other.ID, Role: enums.UserRoleSupplier}, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	bogus := enums.OrderStatus("lost")
	_, err = h.svc.List(ctx, h.vendorActor(), ListInput{Status: &bogus})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
}

func TestDashboards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	other := dbtest.Supplier(t, h.conn, true)
	onion := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Price: "30.00", Available: 50})
	paneer := dbtest.Product(t, h.conn, other.ID, dbtest.ProductOpts{Name: "Paneer", Price: "300.00", Available: 10})
	h.add(t, onion.ID, 10)
	h.add(t, paneer.ID, 1)
	result := h.checkout(t)
	require.Len(t, result.Orders, 2)

	h.advance(t, result.Orders[0].ID, enums.OrderStatusAccepted, enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered)

	vendorView, err := h.svc.Dashboard(ctx, h.vendorActor())
	require.NoError(t, err)
	require.NotNil(t, vendorView.Vendor)
	assert.Nil(t, vendorView.Supplier)
	assert.EqualValues(t, 2, vendorView.Vendor.TotalOrders)
	assert.EqualValues(t, 1, vendorView.Vendor.PendingOrders)
	assert.EqualValues(t, 1, vendorView.Vendor.CompletedOrders)
	assert.True(t, decimal.RequireFromString("300").Equal(vendorView.Vendor.TotalSpent), "spent %s", vendorView.Vendor.TotalSpent)
	assert.True(t, decimal.RequireFromString("50").Equal(vendorView.Vendor.CompletionRate))

	supplierView, err := h.svc.Dashboard(ctx, h.supplierActor())
	require.NoError(t, err)
	require.NotNil(t, supplierView.Supplier)
	assert.EqualValues(t, 1, supplierView.Supplier.TotalOrders)
	assert.EqualValues(t, 1, supplierView.Supplier.AcceptedOrders)
	assert.True(t, decimal.RequireFromString("300").Equal(supplierView.Supplier.TotalRevenue))
	assert.True(t, decimal.RequireFromString("100").Equal(supplierView.Supplier.AcceptanceRate))

	empty, err := h.svc.Dashboard(ctx, Actor{ID: dbtest.Vendor(t, h.conn).ID, Role: enums.UserRoleVendor})
	require.NoError(t, err)
	assert.Zero(t, empty.Vendor.TotalOrders)
	assert.True(t, empty.Vendor.CompletionRate.IsZero())
}

func TestReviewableOrdersExcludeReviewed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := dbtest.Product(t, h.conn, h.supplier.ID, dbtest.ProductOpts{Available: 50})
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		h.add(t, product.ID, 1)
		ids = append(ids, h.checkout(t).Orders[0].ID)
	}
	h.advance(t, ids[0], enums.OrderStatusAccepted, enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered)
	h.advance(t, ids[1], enums.OrderStatusAccepted, enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered)

	require.NoError(t, h.conn.Create(&models.Review{
		VendorID:           h.vendor.ID,
		SupplierID:         h.supplier.ID,
		OrderID:            ids[0],
		Rating:             5,
		IsVerifiedPurchase: true,
	}).Error)

	out, err := h.svc.ReviewableOrders(ctx, h.vendor.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ids[1], out[0].ID)
}

func ptr[T any](v T) *T {
	return &v
}
