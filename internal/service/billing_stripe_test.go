package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"newsletter/internal/models"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func newTestStripeProvider() *StripeProvider {
	return NewStripeProvider(StripeConfig{
		SecretKey:     "sk_test_dummy",
		WebhookSecret: testWebhookSecret,
		Prices: map[models.SubscriptionType]string{
			models.SubscriptionTypeDigital:  "price_digital",
			models.SubscriptionTypePhysical: "price_physical",
		},
		SuccessURL: "http://news.test/billing/success",
		CancelURL:  "http://news.test/billing/cancel",
	})
}

func sign(payload string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	}).Header
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	p := newTestStripeProvider()

	tests := []struct {
		name    string
		payload string
		want    BillingEvent
	}{
		{
			name: "checkout completed",
			payload: `{"id":"evt_1","object":"event","type":"checkout.session.completed","created":1709164800,
				"data":{"object":{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1"}}}`,
			want: BillingEvent{
				ID: "evt_1", ProviderType: "checkout.session.completed", Type: models.EventTypeCheckoutCompleted,
				OccurredAt: time.Unix(1709164800, 0).UTC(), CheckoutSessionID: "cs_1", CustomerID: "cus_1", SubscriptionID: "sub_1",
			},
		},
		{
			name: "invoice payment failed",
			payload: `{"id":"evt_2","object":"event","type":"invoice.payment_failed","created":1709164800,
				"data":{"object":{"id":"in_1","object":"invoice","customer":"cus_1"}}}`,
			want: BillingEvent{
				ID: "evt_2", ProviderType: "invoice.payment_failed", Type: models.EventTypePaymentFailed,
				OccurredAt: time.Unix(1709164800, 0).UTC(), CustomerID: "cus_1",
			},
		},
		{
			name: "subscription deleted",
			payload: `{"id":"evt_3","object":"event","type":"customer.subscription.deleted","created":1709164800,
				"data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1"}}}`,
			want: BillingEvent{
				ID: "evt_3", ProviderType: "customer.subscription.deleted", Type: models.EventTypeSubscriptionDeleted,
				OccurredAt: time.Unix(1709164800, 0).UTC(), CustomerID: "cus_1", SubscriptionID: "sub_1",
			},
		},
		{
			name: "unrecognized",
			payload: `{"id":"evt_4","object":"event","type":"customer.created","created":1709164800,
				"data":{"object":{"id":"cus_1","object":"customer"}}}`,
			want: BillingEvent{
				ID: "evt_4", ProviderType: "customer.created", Type: models.EventTypeUnrecognized,
				OccurredAt: time.Unix(1709164800, 0).UTC(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseWebhook([]byte(tt.payload), sign(tt.payload))
			require.NoError(t, err)
			tt.want.Payload = []byte(tt.payload)
			assert.Equal(t, &tt.want, got)
		})
	}
}

func TestStripeProvider_ParseWebhookRejects(t *testing.T) {
	p := newTestStripeProvider()
	payload := `{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{}}}`

	_, err := p.ParseWebhook([]byte(payload), "t=1,v1=deadbeef")
	assert.Error(t, err)

	_, err = p.ParseWebhook([]byte(payload+" "), sign(payload))
	assert.Error(t, err, "payload tampered after signing")

	unconfigured := NewStripeProvider(StripeConfig{})
	_, err = unconfigured.ParseWebhook([]byte(payload), sign(payload))
	assert.Error(t, err)
}

func TestStripeProvider_CreateCheckoutSession(t *testing.T) {
	p := newTestStripeProvider()
	var captured *stripe.CheckoutSessionParams
	p.newSession = func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		captured = params
		return &stripe.CheckoutSession{ID: "cs_42", URL: "https://checkout.stripe.test/cs_42"}, nil
	}

	session, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{
		SubscriptionID: 7, Type: models.SubscriptionTypePhysical, CustomerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, &CheckoutSession{ID: "cs_42", URL: "https://checkout.stripe.test/cs_42"}, session)

	require.NotNil(t, captured)
	assert.Equal(t, "subscription", *captured.Mode)
	assert.Equal(t, "7", *captured.ClientReferenceID)
	assert.Equal(t, "buyer@example.com", *captured.CustomerEmail)
	require.Len(t, captured.LineItems, 1)
	assert.Equal(t, "price_physical", *captured.LineItems[0].Price)
	assert.Equal(t, "physical", captured.Metadata["subscription_type"])
}

func TestStripeProvider_CreateCheckoutSessionErrors(t *testing.T) {
	p := newTestStripeProvider()
	p.newSession = func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("card network unavailable")
	}

	_, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{Type: models.SubscriptionTypeDigital})
	assert.ErrorContains(t, err, "card network unavailable")

	p.prices = nil
	_, err = p.CreateCheckoutSession(context.Background(), CheckoutRequest{Type: models.SubscriptionTypeDigital})
	assert.ErrorContains(t, err, "no stripe price")
}
