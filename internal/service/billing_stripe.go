package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"newsletter/internal/models"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeConfig holds the Stripe account settings used for checkout.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Prices        map[models.SubscriptionType]string
	SuccessURL    string
	CancelURL     string
}

// StripeProvider implements BillingProvider with Stripe Checkout.
type StripeProvider struct {
	webhookSecret string
	prices        map[models.SubscriptionType]string
	successURL    string
	cancelURL     string
	newSession    func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	stripe.Key = cfg.SecretKey
	return &StripeProvider{
		webhookSecret: cfg.WebhookSecret,
		prices:        cfg.Prices,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		newSession:    session.New,
	}
}

func (p *StripeProvider) Name() string {
	return "stripe"
}

// CreateCheckoutSession starts a subscription-mode checkout. The local
// subscription id travels as the client reference.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	priceID, ok := p.prices[req.Type]
	if !ok || priceID == "" {
		return nil, fmt.Errorf("billing: no stripe price configured for %q", req.Type)
	}

	ref := strconv.FormatUint(uint64(req.SubscriptionID), 10)
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(p.successURL),
		CancelURL:         stripe.String(p.cancelURL),
		ClientReferenceID: stripe.String(ref),
		Metadata: map[string]string{
			"subscription_id":   ref,
			"subscription_type": string(req.Type),
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	s, err := p.newSession(params)
	if err != nil {
		return nil, fmt.Errorf("billing: create stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the ids the
// billing service needs.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*BillingEvent, error) {
	if p.webhookSecret == "" {
		return nil, errors.New("billing: webhook secret not configured")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("billing: webhook signature verification failed: %w", err)
	}

	eventType, known := models.EventTypeFromStripe(string(event.Type))
	ev := &BillingEvent{
		ID:           event.ID,
		ProviderType: string(event.Type),
		Type:         eventType,
		OccurredAt:   time.Unix(event.Created, 0).UTC(),
		Payload:      payload,
	}
	if !known || event.Data == nil {
		return ev, nil
	}

	switch eventType {
	case models.EventTypeCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("billing: parse checkout session: %w", err)
		}
		ev.CheckoutSessionID = cs.ID
		if cs.Customer != nil {
			ev.CustomerID = cs.Customer.ID
		}
		if cs.Subscription != nil {
			ev.SubscriptionID = cs.Subscription.ID
		}
	case models.EventTypeInvoicePaid, models.EventTypePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("billing: parse invoice: %w", err)
		}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
	case models.EventTypeSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("billing: parse subscription: %w", err)
		}
		ev.SubscriptionID = sub.ID
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
	}
	return ev, nil
}
