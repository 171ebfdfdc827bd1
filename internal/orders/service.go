package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/pkg/config"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/logger"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/outbox"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/outbox/payloads"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
)

const maxReasonLength = 500

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderStore interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	FindScoped(ctx context.Context, tx *gorm.DB, orderID, actorID uuid.UUID) (*models.Order, error)
	CompareAndSetStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (bool, error)
	AppendHistory(ctx context.Context, tx *gorm.DB, entry *models.OrderStatusEntry) error
	List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	Aggregate(ctx context.Context, party enums.UserRole, actorID uuid.UUID) ([]StatusAggregate, error)
	ListReviewable(ctx context.Context, vendorID uuid.UUID) ([]models.Order, error)
}

type cartStore interface {
	Snapshot(ctx context.Context, vendorID uuid.UUID) (*models.Cart, error)
	ClearForCheckout(ctx context.Context, tx *gorm.DB, cart *models.Cart) error
}

type stockLedger interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error)
	DecrementAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	IncrementAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type numberSource interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderRecorder interface {
	ObserveCheckout(result string, orders int, duration time.Duration)
	IncTransition(from, to string)
	AddStockRestored(units int)
}

// Actor is the authenticated caller of an order operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// Service runs checkout and the order lifecycle.
type Service interface {
	Checkout(ctx context.Context, vendorID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
	Transition(ctx context.Context, actor Actor, orderID uuid.UUID, input TransitionInput) (*OrderDTO, error)
	Accept(ctx context.Context, actor Actor, orderID uuid.UUID, notes *string) (*OrderDTO, error)
	Reject(ctx context.Context, actor Actor, orderID uuid.UUID, reason string, notes *string) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, notes *string) (*OrderDTO, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor Actor, input ListInput) (*pagination.Page[OrderDTO], error)
	Dashboard(ctx context.Context, actor Actor) (*Dashboard, error)
	ReviewableOrders(ctx context.Context, vendorID uuid.UUID) ([]OrderDTO, error)
}

// TransitionInput is a requested status change.
type TransitionInput struct {
	Status enums.OrderStatus
	Notes  *string
	Reason *string
}

// ListInput filters and pages List.
type ListInput struct {
	Status *enums.OrderStatus
	Params pagination.Params
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Repo    orderStore
	Tx      txRunner
	Carts   cartStore
	Catalog stockLedger
	Numbers numberSource
	Outbox  outboxPublisher
	Metrics orderRecorder
	Logger  *logger.Logger
	Config  config.OrdersConfig
	Clock   func() time.Time
}

type service struct {
	repo    orderStore
	tx      txRunner
	carts   cartStore
	catalog stockLedger
	numbers numberSource
	outbox  outboxPublisher
	metrics orderRecorder
	logg    *logger.Logger
	cfg     config.OrdersConfig
	now     func() time.Time
}

// NewService builds the order engine. Metrics and Clock are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Numbers == nil {
		return nil, fmt.Errorf("order number source required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		carts:   params.Carts,
		catalog: params.Catalog,
		numbers: params.Numbers,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		cfg:     params.Config,
		now:     func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, input TransitionInput) (*OrderDTO, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", input.Status)
	}
	reason := trimmed(input.Reason)
	if input.Status == enums.OrderStatusRejected && reason == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	if reason != nil && len([]rune(*reason)) > maxReasonLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "reason must be at most %d characters", maxReasonLength)
	}
	notes := trimmed(input.Notes)

	var (
		from     enums.OrderStatus
		restored int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.FindScoped(ctx, tx, orderID, actor.ID)
		if err != nil {
			return mapLoadError(err)
		}
		party := partyOf(order, actor)
		if party == "" {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor role does not match the order party")
		}
		if err := CanTransition(order.Status, input.Status, party); err != nil {
			return err
		}
		rule, _ := lookupTransition(order.Status, input.Status)
		from = order.Status

		now := s.now()
		extra := map[string]any{}
		if rule.requiresReason {
			extra["rejection_reason"] = *reason
		}
		if rule.delivers {
			extra["actual_delivery_date"] = now
		}
		if party == enums.UserRoleSupplier && notes != nil {
			extra["supplier_notes"] = *notes
		}
		ok, err := s.repo.CompareAndSetStatus(ctx, tx, order.ID, from, input.Status, extra)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return invalidTransition(from, input.Status)
		}

		historyNotes := notes
		if historyNotes == nil && reason != nil {
			historyNotes = reason
		}
		entry := &models.OrderStatusEntry{
			OrderID:   order.ID,
			Status:    input.Status,
			UpdatedBy: actor.ID,
			Notes:     historyNotes,
		}
		if err := s.repo.AppendHistory(ctx, tx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		if rule.restoresStock {
			restored, err = s.restoreStock(ctx, tx, order)
			if err != nil {
				return err
			}
		}

		data := payloads.OrderStatusChangedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			VendorID:      order.VendorID,
			SupplierID:    order.SupplierID,
			From:          from,
			To:            input.Status,
			UpdatedBy:     actor.ID,
			StockRestored: rule.restoresStock,
		}
		if reason != nil {
			data.Reason = *reason
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.ID, Role: party},
			Data:          data,
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncTransition(string(from), string(input.Status))
		s.metrics.AddStockRestored(restored)
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"from": from,
		"to":   input.Status,
	})
	s.logg.Info(logCtx, "order status changed")

	return s.Get(ctx, actor, orderID)
}

// restoreStock gives back exactly the quantities stored on the order lines.
// A product that no longer exists is skipped.
func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, order *models.Order) (int, error) {
	units := 0
	for _, item := range byProduct(order.Items, func(i models.OrderItem) uuid.UUID { return i.ProductID }) {
		err := s.catalog.IncrementAvailable(ctx, tx, item.ProductID, item.Quantity)
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", item.ProductID.String()), "stock not restored for missing product")
			continue
		}
		if err != nil {
			return 0, err
		}
		units += item.Quantity
	}
	return units, nil
}

func (s *service) Accept(ctx context.Context, actor Actor, orderID uuid.UUID, notes *string) (*OrderDTO, error) {
	return s.Transition(ctx, actor, orderID, TransitionInput{Status: enums.OrderStatusAccepted, Notes: notes})
}

func (s *service) Reject(ctx context.Context, actor Actor, orderID uuid.UUID, reason string, notes *string) (*OrderDTO, error) {
	return s.Transition(ctx, actor, orderID, TransitionInput{Status: enums.OrderStatusRejected, Reason: &reason, Notes: notes})
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, notes *string) (*OrderDTO, error) {
	if notes == nil {
		def := "Cancelled by vendor"
		notes = &def
	}
	return s.Transition(ctx, actor, orderID, TransitionInput{Status: enums.OrderStatusCancelled, Notes: notes})
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	order, err := s.repo.FindScoped(ctx, nil, orderID, actor.ID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if partyOf(order, actor) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor role does not match the order party")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor Actor, input ListInput) (*pagination.Page[OrderDTO], error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", *input.Status)
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListFilters{ActorID: actor.ID, Party: actor.Role, Status: input.Status}, cursor, input.Params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Build(rows, input.Params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := pagination.Map(page, ToDTO)
	return &out, nil
}

func (s *service) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.Aggregate(ctx, actor.Role, actor.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate orders")
	}
	byStatus := make(map[enums.OrderStatus]StatusAggregate, len(rows))
	var total int64
	for _, row := range rows {
		byStatus[row.Status] = row
		total += row.Count
	}
	delivered := byStatus[enums.OrderStatusDelivered]

	out := &Dashboard{Role: actor.Role}
	switch actor.Role {
	case enums.UserRoleVendor:
		out.Vendor = &VendorDashboard{
			TotalOrders:     total,
			PendingOrders:   byStatus[enums.OrderStatusPending].Count,
			CompletedOrders: delivered.Count,
			TotalSpent:      delivered.Amount.Round(2),
			CompletionRate:  percentage(delivered.Count, total),
		}
	case enums.UserRoleSupplier:
		var accepted int64
		for _, status := range []enums.OrderStatus{
			enums.OrderStatusAccepted,
			enums.OrderStatusProcessing,
			enums.OrderStatusShipped,
			enums.OrderStatusDelivered,
		} {
			accepted += byStatus[status].Count
		}
		out.Supplier = &SupplierDashboard{
			TotalOrders:    total,
			PendingOrders:  byStatus[enums.OrderStatusPending].Count,
			AcceptedOrders: accepted,
			TotalRevenue:   delivered.Amount.Round(2),
			AcceptanceRate: percentage(accepted, total),
		}
	}
	return out, nil
}

func (s *service) ReviewableOrders(ctx context.Context, vendorID uuid.UUID) ([]OrderDTO, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	rows, err := s.repo.ListReviewable(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviewable orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToDTO(row))
	}
	return out, nil
}

// partyOf resolves which side of the order the actor is on. The claimed
// role must agree with the relationship.
func partyOf(order *models.Order, actor Actor) enums.UserRole {
	switch {
	case actor.Role == enums.UserRoleVendor && order.VendorID == actor.ID:
		return enums.UserRoleVendor
	case actor.Role == enums.UserRoleSupplier && order.SupplierID == actor.ID:
		return enums.UserRoleSupplier
	default:
		return ""
	}
}

func validateActor(actor Actor) error {
	if actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.UserRoleVendor && actor.Role != enums.UserRoleSupplier {
		return pkgerrors.New(pkgerrors.CodeForbidden, "orders are only visible to vendors and suppliers")
	}
	return nil
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func percentage(part, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(total)).Round(1)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
