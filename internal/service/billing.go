package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsletter/internal/models"
	"newsletter/internal/repository"
)

var (
	ErrBillingDisabled  = errors.New("billing is not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrDuplicateEvent   = errors.New("webhook event already processed")
	ErrCheckoutMismatch = errors.New("checkout completed for a subscription that is no longer pending")
)

// CheckoutRequest is what a provider needs to start a hosted checkout.
type CheckoutRequest struct {
	SubscriptionID uint
	Type           models.SubscriptionType
	CustomerEmail  string
}

// CheckoutSession is the provider's answer to a CheckoutRequest.
type CheckoutSession struct {
	ID  string
	URL string
}

// BillingEvent is a verified provider webhook reduced to the fields this
// service acts on.
type BillingEvent struct {
	ID                string
	ProviderType      string
	Type              models.EventType
	OccurredAt        time.Time
	Payload           []byte
	CheckoutSessionID string
	CustomerID        string
	SubscriptionID    string
}

// BillingProvider abstracts the payment processor.
type BillingProvider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*BillingEvent, error)
}

// CheckoutResult is returned to the client, which redirects to URL.
type CheckoutResult struct {
	SubscriptionID uint   `json:"subscription_id"`
	SessionID      string `json:"session_id"`
	URL            string `json:"url"`
}

type BillingService struct {
	provider      BillingProvider
	subscriptions *SubscriptionService
	users         *repository.UserRepository
	events        *repository.WebhookEventRepository
	email         EmailServiceInterface
	notifier      NotificationServiceInterface
}

// NewBillingService wires billing. A nil provider disables checkout and
// webhooks.
func NewBillingService(provider BillingProvider, subscriptions *SubscriptionService, users *repository.UserRepository,
	events *repository.WebhookEventRepository, email EmailServiceInterface, notifier NotificationServiceInterface) *BillingService {
	return &BillingService{
		provider:      provider,
		subscriptions: subscriptions,
		users:         users,
		events:        events,
		email:         email,
		notifier:      notifier,
	}
}

// Checkout creates a pending subscription and a hosted checkout session for it.
func (b *BillingService) Checkout(ctx context.Context, user *models.User, t models.SubscriptionType, shippingAddress string) (*CheckoutResult, error) {
	if b.provider == nil {
		return nil, ErrBillingDisabled
	}

	sub, err := b.subscriptions.CreatePending(user.ID, t, shippingAddress)
	if err != nil {
		return nil, err
	}

	session, err := b.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		SubscriptionID: sub.ID,
		Type:           t,
		CustomerEmail:  user.Email,
	})
	if err != nil {
		if delErr := b.subscriptions.Delete(sub.ID); delErr != nil {
			slog.Error("failed to remove pending subscription", "subscription_id", sub.ID, "error", delErr)
		}
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	if err := b.subscriptions.AttachCheckoutSession(sub, session.ID); err != nil {
		return nil, fmt.Errorf("store checkout session: %w", err)
	}

	slog.Info("checkout started", "subscription_id", sub.ID, "user_id", user.ID, "session_id", session.ID)
	return &CheckoutResult{SubscriptionID: sub.ID, SessionID: session.ID, URL: session.URL}, nil
}

// HandleWebhook verifies and records a provider event, then applies it.
// Processing failures are stored on the event record rather than returned, so
// the provider does not retry events that can never succeed. A repeated event
// id returns the stored record and ErrDuplicateEvent.
func (b *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.WebhookEvent, error) {
	if b.provider == nil {
		return nil, ErrBillingDisabled
	}

	ev, err := b.provider.ParseWebhook(payload, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	exists, err := b.events.Exists(ev.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		stored, err := b.events.GetByProviderEventID(ev.ID)
		if err != nil {
			return nil, err
		}
		return stored, ErrDuplicateEvent
	}

	record, err := b.events.Create(&models.WebhookEvent{
		Provider:        b.provider.Name(),
		ProviderEventID: ev.ID,
		ProviderType:    ev.ProviderType,
		Type:            ev.Type,
		EventTimestamp:  ev.OccurredAt,
		Payload:         string(ev.Payload),
	})
	if err != nil {
		// A concurrent delivery of the same event won the insert.
		if stored, getErr := b.events.GetByProviderEventID(ev.ID); getErr == nil {
			return stored, ErrDuplicateEvent
		}
		return nil, fmt.Errorf("record webhook event: %w", err)
	}

	processErr := b.apply(ctx, ev)
	if processErr != nil {
		slog.Error("webhook processing failed", "event_id", ev.ID, "type", ev.ProviderType, "error", processErr)
	}
	if err := b.events.MarkProcessed(record.ID, processErr); err != nil {
		return nil, err
	}

	return b.events.GetByProviderEventID(ev.ID)
}

func (b *BillingService) apply(_ context.Context, ev *BillingEvent) error {
	switch ev.Type {
	case models.EventTypeCheckoutCompleted:
		return b.checkoutCompleted(ev)
	case models.EventTypeInvoicePaid:
		return b.invoicePaid(ev)
	case models.EventTypePaymentFailed:
		return b.paymentFailed(ev)
	case models.EventTypeSubscriptionDeleted:
		return b.subscriptionDeleted(ev)
	default:
		slog.Info("ignoring unrecognized webhook event", "event_id", ev.ID, "type", ev.ProviderType)
		return nil
	}
}

func (b *BillingService) checkoutCompleted(ev *BillingEvent) error {
	sub, err := b.subscriptions.FindByCheckoutSession(ev.CheckoutSessionID)
	if err != nil {
		return fmt.Errorf("checkout %s: %w", ev.CheckoutSessionID, err)
	}
	if sub.Status != models.SubscriptionStatusPending {
		if sub.StripeCustomerID != "" || sub.StripeSubscriptionID != "" {
			slog.Info("checkout already applied", "subscription_id", sub.ID, "status", sub.Status)
			return nil
		}
		// Paid after the row left pending. Keep the ids so later invoice
		// events still resolve, and surface the mismatch.
		if err := b.subscriptions.RecordProviderIDs(sub, ev.CustomerID, ev.SubscriptionID); err != nil {
			return err
		}
		return fmt.Errorf("%w: subscription %d is %s", ErrCheckoutMismatch, sub.ID, sub.Status)
	}

	if err := b.subscriptions.Activate(sub, ev.OccurredAt, ev.CustomerID, ev.SubscriptionID); err != nil {
		return err
	}
	slog.Info("subscription activated", "subscription_id", sub.ID, "renewal_date", sub.RenewalDate)

	user := b.owner(sub)
	if user == nil {
		return nil
	}
	if err := b.email.SendReceipt(user, sub); err != nil {
		slog.Error("failed to send receipt", "subscription_id", sub.ID, "error", err)
	}
	if err := b.notifier.CheckoutCompleted(user, sub); err != nil {
		slog.Error("failed to notify checkout", "subscription_id", sub.ID, "error", err)
	}
	return nil
}

func (b *BillingService) invoicePaid(ev *BillingEvent) error {
	subs, err := b.lookup(ev)
	if err != nil {
		return err
	}
	for i := range subs {
		// The first invoice of a checkout is handled by checkout completion.
		if subs[i].Status != models.SubscriptionStatusPastDue {
			continue
		}
		if err := b.subscriptions.SetStatus(&subs[i], models.SubscriptionStatusActive); err != nil {
			return err
		}
		slog.Info("subscription reactivated", "subscription_id", subs[i].ID)
	}
	return nil
}

func (b *BillingService) paymentFailed(ev *BillingEvent) error {
	subs, err := b.lookup(ev)
	if err != nil {
		return err
	}
	for i := range subs {
		sub := &subs[i]
		if sub.Status != models.SubscriptionStatusActive {
			continue
		}
		if err := b.subscriptions.SetStatus(sub, models.SubscriptionStatusPastDue); err != nil {
			return err
		}
		slog.Warn("subscription past due", "subscription_id", sub.ID)

		user := b.owner(sub)
		if user == nil {
			continue
		}
		if err := b.email.SendPaymentFailed(user, sub); err != nil {
			slog.Error("failed to send payment failure mail", "subscription_id", sub.ID, "error", err)
		}
		if err := b.notifier.PaymentFailed(user, sub); err != nil {
			slog.Error("failed to notify payment failure", "subscription_id", sub.ID, "error", err)
		}
	}
	return nil
}

func (b *BillingService) subscriptionDeleted(ev *BillingEvent) error {
	subs, err := b.lookup(ev)
	if err != nil {
		return err
	}
	for i := range subs {
		if subs[i].Status == models.SubscriptionStatusCancelled {
			continue
		}
		if err := b.subscriptions.SetStatus(&subs[i], models.SubscriptionStatusCancelled); err != nil {
			return err
		}
		slog.Info("subscription cancelled by provider", "subscription_id", subs[i].ID)
	}
	return nil
}

// lookup finds the local subscriptions an event refers to, by provider
// subscription id first and customer id second.
func (b *BillingService) lookup(ev *BillingEvent) ([]models.Subscription, error) {
	if ev.SubscriptionID != "" {
		sub, err := b.subscriptions.FindByStripeSubscription(ev.SubscriptionID)
		if err == nil {
			return []models.Subscription{*sub}, nil
		}
		if !errors.Is(err, ErrSubscriptionNotFound) {
			return nil, err
		}
	}
	if ev.CustomerID != "" {
		subs, err := b.subscriptions.FindByStripeCustomer(ev.CustomerID)
		if err != nil {
			return nil, err
		}
		if len(subs) > 0 {
			return subs, nil
		}
	}
	return nil, fmt.Errorf("event %s: %w", ev.ID, ErrSubscriptionNotFound)
}

// owner returns the preloaded user or loads it. Failures are logged.
func (b *BillingService) owner(sub *models.Subscription) *models.User {
	if sub.User.ID != 0 {
		return &sub.User
	}
	user, err := b.users.GetByID(sub.UserID)
	if err != nil {
		slog.Error("failed to load subscription owner", "subscription_id", sub.ID, "error", err)
		return nil
	}
	return user
}
