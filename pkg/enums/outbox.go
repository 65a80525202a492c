package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateUser    OutboxAggregateType = "user"
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateUser,
	AggregateOrder,
	AggregatePayment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventUserRegistered         OutboxEventType = "user_registered"
	EventUserActivated          OutboxEventType = "user_activated"
	EventPasswordResetRequested OutboxEventType = "password_reset_requested"
	EventPasswordResetCompleted OutboxEventType = "password_reset_completed"
	EventOrderPlaced            OutboxEventType = "order_placed"
	EventOrderPaid              OutboxEventType = "order_paid"
	EventOrderCanceled          OutboxEventType = "order_canceled"
	EventPaymentFailed          OutboxEventType = "payment_failed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventUserRegistered,
	EventUserActivated,
	EventPasswordResetRequested,
	EventPasswordResetCompleted,
	EventOrderPlaced,
	EventOrderPaid,
	EventOrderCanceled,
	EventPaymentFailed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
