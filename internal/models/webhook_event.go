package models

import (
	"fmt"
	"time"
)

// EventType is the billing event kind after mapping from the provider's own
// event name.
type EventType string

const (
	EventTypeCheckoutCompleted   EventType = "checkout_completed"
	EventTypeInvoicePaid         EventType = "invoice_paid"
	EventTypePaymentFailed       EventType = "payment_failed"
	EventTypeSubscriptionDeleted EventType = "subscription_deleted"
	// EventTypeUnrecognized marks provider events this service does not act
	// on. They are stored with their raw provider type.
	EventTypeUnrecognized EventType = "unrecognized"
)

var stripeEventTypes = map[string]EventType{
	"checkout.session.completed":    EventTypeCheckoutCompleted,
	"invoice.paid":                  EventTypeInvoicePaid,
	"invoice.payment_failed":        EventTypePaymentFailed,
	"customer.subscription.deleted": EventTypeSubscriptionDeleted,
}

// EventTypeFromStripe maps a Stripe event name. The boolean is false when the
// name is not one this service handles, in which case EventTypeUnrecognized is
// returned.
func EventTypeFromStripe(name string) (EventType, bool) {
	if t, ok := stripeEventTypes[name]; ok {
		return t, true
	}
	return EventTypeUnrecognized, false
}

// ParseEventType maps a stored string to an EventType. Unknown values are an
// error.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventTypeCheckoutCompleted, EventTypeInvoicePaid, EventTypePaymentFailed,
		EventTypeSubscriptionDeleted, EventTypeUnrecognized:
		return EventType(s), nil
	}
	return "", fmt.Errorf("%w: event type %q", ErrUnknownValue, s)
}

func (t EventType) String() string {
	return string(t)
}

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *EventType) UnmarshalText(data []byte) error {
	parsed, err := ParseEventType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// WebhookEvent records every billing webhook received. ProviderEventID is the
// idempotency key.
type WebhookEvent struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Provider        string     `json:"provider" gorm:"not null"`
	ProviderEventID string     `json:"provider_event_id" gorm:"uniqueIndex;not null"`
	ProviderType    string     `json:"provider_type"`
	Type            EventType  `json:"type" gorm:"not null"`
	EventTimestamp  time.Time  `json:"event_timestamp"`
	Payload         string     `json:"-"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
