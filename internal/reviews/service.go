package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazaarsetu/bazaarsetu-backend/internal/orders"
	"github.com/bazaarsetu/bazaarsetu-backend/internal/users"
	dbpkg "github.com/bazaarsetu/bazaarsetu-backend/pkg/db"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/db/models"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/enums"
	pkgerrors "github.com/bazaarsetu/bazaarsetu-backend/pkg/errors"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/outbox"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/outbox/payloads"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/pagination"
	"github.com/bazaarsetu/bazaarsetu-backend/pkg/types"
)

const maxCommentLength = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type deliveredOrders interface {
	FindDeliveredForVendor(ctx context.Context, tx *gorm.DB, orderID, vendorID uuid.UUID) (*models.Order, error)
}

type reviewableOrders interface {
	ReviewableOrders(ctx context.Context, vendorID uuid.UUID) ([]orders.OrderDTO, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records vendor reviews of suppliers.
type Service interface {
	Create(ctx context.Context, vendorID uuid.UUID, input CreateInput) (*ReviewDTO, error)
	ListForSupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) (*pagination.Page[ReviewDTO], error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*pagination.Page[ReviewDTO], error)
	Pending(ctx context.Context, vendorID uuid.UUID) ([]orders.OrderDTO, error)
}

// CreateInput rates one delivered order. Sub-ratings are optional.
type CreateInput struct {
	OrderID             uuid.UUID
	SupplierID          uuid.UUID
	ProductID           *uuid.UUID
	Rating              int
	QualityRating       *int
	DeliveryRating      *int
	CommunicationRating *int
	ValueRating         *int
	Comment             *string
}

// ServiceParams bundles the dependencies required to build a reviews service.
type ServiceParams struct {
	Repo       *Repository
	Tx         txRunner
	Orders     deliveredOrders
	Reviewable reviewableOrders
	Users      *users.Repository
	Outbox     outboxPublisher
}

type service struct {
	repo       *Repository
	tx         txRunner
	orders     deliveredOrders
	reviewable reviewableOrders
	users      *users.Repository
	outbox     outboxPublisher
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order lookup required")
	}
	if params.Reviewable == nil {
		return nil, fmt.Errorf("reviewable orders source required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		orders:     params.Orders,
		reviewable: params.Reviewable,
		users:      params.Users,
		outbox:     params.Outbox,
	}, nil
}

// Create stores the review and refreshes the supplier's aggregate rating in
// the same transaction.
func (s *service) Create(ctx context.Context, vendorID uuid.UUID, input CreateInput) (*ReviewDTO, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	comment, err := validateInput(&input)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		VendorID:            vendorID,
		SupplierID:          input.SupplierID,
		OrderID:             input.OrderID,
		ProductID:           input.ProductID,
		Rating:              input.Rating,
		QualityRating:       input.QualityRating,
		DeliveryRating:      input.DeliveryRating,
		CommunicationRating: input.CommunicationRating,
		ValueRating:         input.ValueRating,
		Comment:             comment,
		IsVerifiedPurchase:  true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.FindDeliveredForVendor(ctx, tx, input.OrderID, vendorID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivered order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.SupplierID != input.SupplierID {
			return pkgerrors.New(pkgerrors.CodeValidation, "supplier did not fulfil this order")
		}
		if input.ProductID != nil {
			ok, err := s.repo.OrderHasProduct(ctx, tx, order.ID, *input.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order product")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "product is not part of this order")
			}
		}

		suppliers := s.users.WithTx(tx)
		if _, err := suppliers.LockSupplier(ctx, input.SupplierID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock supplier")
		}

		if err := s.repo.Create(ctx, tx, review); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		agg, err := s.repo.Aggregate(ctx, tx, input.SupplierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
		}
		average := agg.Average.Round(1)
		if err := suppliers.UpdateRating(ctx, input.SupplierID, average, int(agg.Total)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier rating")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewCreated,
			AggregateType: enums.AggregateReview,
			AggregateID:   review.ID,
			Actor:         &outbox.ActorRef{UserID: vendorID, Role: enums.UserRoleVendor},
			Data: payloads.ReviewCreatedEvent{
				ReviewID:      review.ID,
				OrderID:       review.OrderID,
				VendorID:      vendorID,
				SupplierID:    review.SupplierID,
				Rating:        review.Rating,
				AverageRating: average,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*review)
	return &dto, nil
}

func (s *service) ListForSupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) (*pagination.Page[ReviewDTO], error) {
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	return pageReviews(ctx, supplierID, params, s.repo.ListBySupplier)
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*pagination.Page[ReviewDTO], error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return pageReviews(ctx, vendorID, params, s.repo.ListByVendor)
}

type reviewLister func(ctx context.Context, id uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Review, error)

func pageReviews(ctx context.Context, id uuid.UUID, params pagination.Params, list reviewLister) (*pagination.Page[ReviewDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := list(ctx, id, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	page := pagination.Build(rows, params.Limit, func(r models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := pagination.Map(page, toDTO)
	return &out, nil
}

func (s *service) Pending(ctx context.Context, vendorID uuid.UUID) ([]orders.OrderDTO, error) {
	return s.reviewable.ReviewableOrders(ctx, vendorID)
}

func validateInput(input *CreateInput) (*string, error) {
	var fields []types.FieldError
	if input.OrderID == uuid.Nil {
		fields = append(fields, types.FieldError{Field: "order_id", Message: "is required"})
	}
	if input.SupplierID == uuid.Nil {
		fields = append(fields, types.FieldError{Field: "supplier_id", Message: "is required"})
	}
	if input.Rating < 1 || input.Rating > 5 {
		fields = append(fields, types.FieldError{Field: "rating", Message: "must be between 1 and 5"})
	}
	subRatings := []struct {
		field string
		value *int
	}{
		{"quality_rating", input.QualityRating},
		{"delivery_rating", input.DeliveryRating},
		{"communication_rating", input.CommunicationRating},
		{"value_for_money_rating", input.ValueRating},
	}
	for _, sub := range subRatings {
		if sub.value != nil && (*sub.value < 1 || *sub.value > 5) {
			fields = append(fields, types.FieldError{Field: sub.field, Message: "must be between 1 and 5"})
		}
	}

	var comment *string
	if input.Comment != nil {
		c := strings.TrimSpace(*input.Comment)
		if len([]rune(c)) > maxCommentLength {
			fields = append(fields, types.FieldError{Field: "comment", Message: "must be at most 1000 characters"})
		}
		if c != "" {
			comment = &c
		}
	}

	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review").WithDetails(fields)
	}
	return comment, nil
}
