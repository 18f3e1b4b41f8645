package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscriptionType(t *testing.T) {
	tests := []struct {
		input    string
		expected SubscriptionType
		wantErr  bool
	}{
		{"physical", SubscriptionTypePhysical, false},
		{"Digital", SubscriptionTypeDigital, false},
		{" digital ", SubscriptionTypeDigital, false},
		{"print", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSubscriptionType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseSubscriptionStatus(t *testing.T) {
	for _, s := range []string{"pending", "active", "past_due", "cancelled"} {
		got, err := ParseSubscriptionStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, got.String())
	}

	_, err := ParseSubscriptionStatus("paused")
	assert.ErrorIs(t, err, ErrUnknownValue)
}

func TestSubscription_JSONRejectsUnknownType(t *testing.T) {
	var sub Subscription
	err := json.Unmarshal([]byte(`{"subscription_type":"carrier-pigeon"}`), &sub)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"subscription_type":"physical","subscription_status":"active"}`), &sub)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionTypePhysical, sub.Type)
	assert.True(t, sub.IsActive())
}

func TestSubscription_SetAnniversaryFrom(t *testing.T) {
	var sub Subscription
	// 01:00 on Mar 1 in UTC+2 is still Feb 29 in UTC.
	sub.SetAnniversaryFrom(time.Date(2024, time.March, 1, 1, 0, 0, 0, time.FixedZone("EET", 2*60*60)))

	assert.Equal(t, 2, sub.AnniversaryMonth)
	assert.Equal(t, 29, sub.AnniversaryDay)
}

func TestEventTypeFromStripe(t *testing.T) {
	got, ok := EventTypeFromStripe("checkout.session.completed")
	assert.True(t, ok)
	assert.Equal(t, EventTypeCheckoutCompleted, got)

	got, ok = EventTypeFromStripe("customer.created")
	assert.False(t, ok)
	assert.Equal(t, EventTypeUnrecognized, got)

	_, err := ParseEventType("customer.created")
	assert.Error(t, err)
}

func TestSubscriber_IsActive(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Subscriber{}).IsActive())
	assert.True(t, (&Subscriber{Verified: true}).IsActive())
	assert.False(t, (&Subscriber{Verified: true, UnsubscribedAt: &now}).IsActive())
}
