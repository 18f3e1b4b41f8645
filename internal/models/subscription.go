package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownValue is wrapped by every enum parser when the input names no
// known variant.
var ErrUnknownValue = errors.New("unknown value")

// SubscriptionType distinguishes printed issues from digital-only access.
type SubscriptionType string

const (
	SubscriptionTypePhysical SubscriptionType = "physical"
	SubscriptionTypeDigital  SubscriptionType = "digital"
)

// ParseSubscriptionType maps a string to a SubscriptionType. Unknown values
// are an error.
func ParseSubscriptionType(s string) (SubscriptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(SubscriptionTypePhysical):
		return SubscriptionTypePhysical, nil
	case string(SubscriptionTypeDigital):
		return SubscriptionTypeDigital, nil
	}
	return "", fmt.Errorf("%w: subscription type %q", ErrUnknownValue, s)
}

func (t SubscriptionType) String() string {
	return string(t)
}

func (t SubscriptionType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *SubscriptionType) UnmarshalText(data []byte) error {
	parsed, err := ParseSubscriptionType(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SubscriptionStatus tracks the billing lifecycle of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// ParseSubscriptionStatus maps a string to a SubscriptionStatus. Unknown values
// are an error.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch SubscriptionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case SubscriptionStatusPending:
		return SubscriptionStatusPending, nil
	case SubscriptionStatusActive:
		return SubscriptionStatusActive, nil
	case SubscriptionStatusPastDue:
		return SubscriptionStatusPastDue, nil
	case SubscriptionStatusCancelled:
		return SubscriptionStatusCancelled, nil
	}
	return "", fmt.Errorf("%w: subscription status %q", ErrUnknownValue, s)
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *SubscriptionStatus) UnmarshalText(data []byte) error {
	parsed, err := ParseSubscriptionStatus(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Subscription is a physical or digital subscription owned by a user. The
// renewal date is derived from the anniversary fields on every read and is
// never stored.
type Subscription struct {
	ID                      uint               `json:"id" gorm:"primaryKey"`
	UserID                  uint               `json:"user_id" gorm:"index;not null"`
	User                    User               `json:"-" gorm:"foreignKey:UserID"`
	Type                    SubscriptionType   `json:"subscription_type" gorm:"not null"`
	Status                  SubscriptionStatus `json:"subscription_status" gorm:"not null;default:'pending'"`
	AnniversaryMonth        int                `json:"subscription_anniversary_month"`
	AnniversaryDay          int                `json:"subscription_anniversary_day"`
	CreationDate            time.Time          `json:"subscription_creation_date"`
	ShippingAddress         string             `json:"shipping_address,omitempty"`
	StripeCustomerID        string             `json:"-" gorm:"index"`
	StripeSubscriptionID    string             `json:"-" gorm:"index"`
	CheckoutSessionID       string             `json:"-" gorm:"index"`
	LastReminderSent        *time.Time         `json:"-"`
	LastReminderRenewalDate *time.Time         `json:"-"`
	CreatedAt               time.Time          `json:"created_at"`
	UpdatedAt               time.Time          `json:"updated_at"`

	RenewalDate string `json:"subscription_renewal_date,omitempty" gorm:"-"`
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// SetAnniversaryFrom derives the anniversary month/day from t in UTC.
func (s *Subscription) SetAnniversaryFrom(t time.Time) {
	t = t.UTC()
	s.AnniversaryMonth = int(t.Month())
	s.AnniversaryDay = t.Day()
}
