package enums

// OutboxEventType identifies the domain event stored in outbox_events.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventReviewCreated      OutboxEventType = "review_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventReviewCreated,
}

func (e OutboxEventType) String() string { return string(e) }

func (e OutboxEventType) IsValid() bool { return contains(validOutboxEventTypes, e) }

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "outbox event type")
}

// OutboxAggregateType names the aggregate an event belongs to.
type OutboxAggregateType string

const (
	AggregateCheckout OutboxAggregateType = "checkout"
	AggregateOrder    OutboxAggregateType = "order"
	AggregateReview   OutboxAggregateType = "review"
)

var validAggregateTypes = []OutboxAggregateType{AggregateCheckout, AggregateOrder, AggregateReview}

func (a OutboxAggregateType) IsValid() bool { return contains(validAggregateTypes, a) }

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "outbox aggregate type")
}
