package service

import (
	"context"
	"time"

	"newsletter/internal/models"
)

// SubscriberServiceInterface defines the contract for newsletter subscriber operations.
type SubscriberServiceInterface interface {
	Subscribe(email, name, lang string) (*models.Subscriber, error)
	Verify(token string) (*models.Subscriber, error)
	Unsubscribe(token string) (*models.Subscriber, error)
	List(limit, offset int) ([]models.Subscriber, int64, error)
	Active() ([]models.Subscriber, error)
	Delete(id uint) error
}

// SubscriptionServiceInterface defines the contract for subscription operations.
type SubscriptionServiceInterface interface {
	Create(input CreateSubscriptionInput) (*models.Subscription, error)
	GetByID(id uint) (*models.Subscription, error)
	ListForUser(userID uint, limit, offset int) ([]models.Subscription, int64, error)
	ListAll(limit, offset int) ([]models.Subscription, int64, error)
	Update(id uint, input UpdateSubscriptionInput) (*models.Subscription, error)
	Cancel(id uint) (*models.Subscription, error)
	Delete(id uint) error
}

// AuthServiceInterface defines the contract for account and token operations.
type AuthServiceInterface interface {
	Signup(email, password, name string) (*models.User, error)
	Login(email, password string) (string, *models.User, error)
	ParseToken(tokenString string) (*Claims, error)
	GetUser(id uint) (*models.User, error)
	ResetPassword(email, password string) error
}

// EmailServiceInterface defines the contract for outgoing mail.
type EmailServiceInterface interface {
	SendVerification(sub *models.Subscriber) error
	SendWelcome(sub *models.Subscriber) error
	SendNewsletter(sub *models.Subscriber, subject, body string) error
	SendReceipt(user *models.User, sub *models.Subscription) error
	SendPaymentFailed(user *models.User, sub *models.Subscription) error
	SendRenewalReminder(user *models.User, sub *models.Subscription, renewalAt time.Time, daysUntil int) error
}

// NotificationServiceInterface defines the contract for admin push notifications.
type NotificationServiceInterface interface {
	SubscriberVerified(sub *models.Subscriber) error
	CheckoutCompleted(user *models.User, sub *models.Subscription) error
	PaymentFailed(user *models.User, sub *models.Subscription) error
}

// NewsletterServiceInterface defines the contract for newsletter broadcasts.
type NewsletterServiceInterface interface {
	Broadcast(subject, body string) (*BroadcastResult, error)
}

// BillingServiceInterface defines the contract for checkout and webhook handling.
type BillingServiceInterface interface {
	Checkout(ctx context.Context, user *models.User, t models.SubscriptionType, shippingAddress string) (*CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.WebhookEvent, error)
}

// ReminderServiceInterface defines the contract for renewal reminders.
type ReminderServiceInterface interface {
	DueReminders(now time.Time) ([]DueReminder, error)
	SendDueReminders(now time.Time) (int, error)
}

// ExportServiceInterface defines the contract for subscriber exports.
type ExportServiceInterface interface {
	SubscribersCSV() ([]byte, error)
	SealedSubscribersCSV(password string) ([]byte, error)
}

// Compile-time interface satisfaction checks.
var _ SubscriberServiceInterface = (*SubscriberService)(nil)
var _ SubscriptionServiceInterface = (*SubscriptionService)(nil)
var _ AuthServiceInterface = (*AuthService)(nil)
var _ EmailServiceInterface = (*EmailService)(nil)
var _ NotificationServiceInterface = (*NotificationService)(nil)
var _ NewsletterServiceInterface = (*NewsletterService)(nil)
var _ BillingServiceInterface = (*BillingService)(nil)
var _ ReminderServiceInterface = (*ReminderService)(nil)
var _ ExportServiceInterface = (*ExportService)(nil)
