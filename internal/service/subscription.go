package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsletter/internal/models"
	"newsletter/internal/renewal"
	"newsletter/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrShippingAddressRequired = errors.New("physical subscriptions need a shipping address")
	ErrAnniversaryIncomplete   = errors.New("anniversary month and day must be given together")
	ErrSubscriptionNotActive   = errors.New("subscription is not active")
	ErrSubscriptionPending     = errors.New("subscription is awaiting checkout")
)

// CreateSubscriptionInput describes a subscription created without checkout,
// for example a complimentary one granted by an administrator.
type CreateSubscriptionInput struct {
	UserID           uint
	Type             models.SubscriptionType
	Status           models.SubscriptionStatus
	ShippingAddress  string
	AnniversaryMonth int
	AnniversaryDay   int
	CreationDate     *time.Time
}

// UpdateSubscriptionInput holds optional changes; nil fields are left alone.
type UpdateSubscriptionInput struct {
	ShippingAddress  *string
	Status           *models.SubscriptionStatus
	AnniversaryMonth *int
	AnniversaryDay   *int
}

type SubscriptionService struct {
	repo *repository.SubscriptionRepository
	calc *renewal.Calculator
}

func NewSubscriptionService(repo *repository.SubscriptionRepository, calc *renewal.Calculator) *SubscriptionService {
	return &SubscriptionService{repo: repo, calc: calc}
}

func validateShipping(t models.SubscriptionType, address string) error {
	if _, err := models.ParseSubscriptionType(string(t)); err != nil {
		return err
	}
	if t == models.SubscriptionTypePhysical && strings.TrimSpace(address) == "" {
		return ErrShippingAddressRequired
	}
	return nil
}

func validateAnniversary(month, day int) error {
	if !renewal.ValidAnniversary(month, day) {
		return fmt.Errorf("%w: month %d day %d", renewal.ErrInvalidAnniversary, month, day)
	}
	return nil
}

// Create stores a subscription. Without an explicit anniversary it is derived
// from the creation date, which defaults to now.
func (s *SubscriptionService) Create(input CreateSubscriptionInput) (*models.Subscription, error) {
	if err := validateShipping(input.Type, input.ShippingAddress); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.SubscriptionStatusActive
	}
	if _, err := models.ParseSubscriptionStatus(string(status)); err != nil {
		return nil, err
	}

	created := s.calc.Now()
	if input.CreationDate != nil {
		created = input.CreationDate.UTC()
	}

	sub := &models.Subscription{
		UserID:          input.UserID,
		Type:            input.Type,
		Status:          status,
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		CreationDate:    created,
	}

	switch {
	case input.AnniversaryMonth == 0 && input.AnniversaryDay == 0:
		sub.SetAnniversaryFrom(created)
	case input.AnniversaryMonth == 0 || input.AnniversaryDay == 0:
		return nil, ErrAnniversaryIncomplete
	default:
		if err := validateAnniversary(input.AnniversaryMonth, input.AnniversaryDay); err != nil {
			return nil, err
		}
		sub.AnniversaryMonth = input.AnniversaryMonth
		sub.AnniversaryDay = input.AnniversaryDay
	}

	if _, err := s.repo.Create(sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	if err := s.decorate(sub); err != nil {
		return nil, err
	}

	slog.Info("subscription created", "subscription_id", sub.ID, "user_id", sub.UserID, "type", sub.Type)
	return sub, nil
}

// CreatePending stores a subscription awaiting checkout. Its anniversary is set
// when payment completes.
func (s *SubscriptionService) CreatePending(userID uint, t models.SubscriptionType, shippingAddress string) (*models.Subscription, error) {
	if err := validateShipping(t, shippingAddress); err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		UserID:          userID,
		Type:            t,
		Status:          models.SubscriptionStatusPending,
		ShippingAddress: strings.TrimSpace(shippingAddress),
	}
	if _, err := s.repo.Create(sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

// decorate fills in the computed renewal date. Subscriptions without an
// anniversary yet (pending checkout) are left blank.
func (s *SubscriptionService) decorate(sub *models.Subscription) error {
	if sub.AnniversaryMonth == 0 && sub.AnniversaryDay == 0 {
		sub.RenewalDate = ""
		return nil
	}
	date, err := s.calc.RenewalDate(sub.AnniversaryMonth, sub.AnniversaryDay, sub.CreationDate)
	if err != nil {
		return fmt.Errorf("subscription %d: %w", sub.ID, err)
	}
	sub.RenewalDate = date
	return nil
}

func (s *SubscriptionService) decorateAll(subs []models.Subscription) error {
	for i := range subs {
		if err := s.decorate(&subs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SubscriptionService) GetByID(id uint) (*models.Subscription, error) {
	sub, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) ListForUser(userID uint, limit, offset int) ([]models.Subscription, int64, error) {
	subs, total, err := s.repo.GetByUser(userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.decorateAll(subs); err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (s *SubscriptionService) ListAll(limit, offset int) ([]models.Subscription, int64, error) {
	subs, total, err := s.repo.GetAllPaginated(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.decorateAll(subs); err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// load fetches the stored row without computing its renewal date, so that a
// row with a corrupt anniversary can still be repaired.
func (s *SubscriptionService) load(id uint) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	return sub, err
}

// refresh recomputes the renewal date after a write. The write has already
// happened, so a bad anniversary is logged and the date left blank.
func (s *SubscriptionService) refresh(sub *models.Subscription) {
	if err := s.decorate(sub); err != nil {
		slog.Warn("subscription has an invalid anniversary", "subscription_id", sub.ID, "error", err)
		sub.RenewalDate = ""
	}
}

// Update applies and validates the changes before anything is saved.
func (s *SubscriptionService) Update(id uint, input UpdateSubscriptionInput) (*models.Subscription, error) {
	sub, err := s.load(id)
	if err != nil {
		return nil, err
	}

	if input.ShippingAddress != nil {
		sub.ShippingAddress = strings.TrimSpace(*input.ShippingAddress)
	}
	if input.Status != nil {
		if _, err := models.ParseSubscriptionStatus(string(*input.Status)); err != nil {
			return nil, err
		}
		sub.Status = *input.Status
	}
	if (input.AnniversaryMonth == nil) != (input.AnniversaryDay == nil) {
		return nil, ErrAnniversaryIncomplete
	}
	if input.AnniversaryMonth != nil {
		if err := validateAnniversary(*input.AnniversaryMonth, *input.AnniversaryDay); err != nil {
			return nil, err
		}
		sub.AnniversaryMonth = *input.AnniversaryMonth
		sub.AnniversaryDay = *input.AnniversaryDay
	}

	if err := validateShipping(sub.Type, sub.ShippingAddress); err != nil {
		return nil, err
	}

	if err := s.repo.Save(sub); err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	s.refresh(sub)
	return sub, nil
}

// Cancel marks a subscription cancelled. Cancelling twice is harmless.
// Subscriptions with an open checkout cannot be cancelled; an unpaid
// checkout simply stays pending.
func (s *SubscriptionService) Cancel(id uint) (*models.Subscription, error) {
	sub, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionStatusPending {
		return nil, ErrSubscriptionPending
	}
	status := models.SubscriptionStatusCancelled
	return s.Update(id, UpdateSubscriptionInput{Status: &status})
}

func (s *SubscriptionService) Delete(id uint) error {
	err := s.repo.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSubscriptionNotFound
	}
	return err
}

// Activate records a completed checkout. The creation date becomes the
// payment time and the anniversary is derived from it.
func (s *SubscriptionService) Activate(sub *models.Subscription, paidAt time.Time, customerID, stripeSubscriptionID string) error {
	sub.Status = models.SubscriptionStatusActive
	sub.CreationDate = paidAt.UTC()
	sub.SetAnniversaryFrom(paidAt)
	if customerID != "" {
		sub.StripeCustomerID = customerID
	}
	if stripeSubscriptionID != "" {
		sub.StripeSubscriptionID = stripeSubscriptionID
	}
	if err := s.repo.Save(sub); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	return s.decorate(sub)
}

// SetStatus persists a status change made by a billing event.
func (s *SubscriptionService) SetStatus(sub *models.Subscription, status models.SubscriptionStatus) error {
	sub.Status = status
	if err := s.repo.Save(sub); err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	s.refresh(sub)
	return nil
}

// RecordProviderIDs stores the provider's customer and subscription ids
// without touching the status.
func (s *SubscriptionService) RecordProviderIDs(sub *models.Subscription, customerID, stripeSubscriptionID string) error {
	if customerID != "" {
		sub.StripeCustomerID = customerID
	}
	if stripeSubscriptionID != "" {
		sub.StripeSubscriptionID = stripeSubscriptionID
	}
	if err := s.repo.Save(sub); err != nil {
		return fmt.Errorf("record provider ids: %w", err)
	}
	return nil
}

// AttachCheckoutSession stores the provider session id on a pending subscription.
func (s *SubscriptionService) AttachCheckoutSession(sub *models.Subscription, sessionID string) error {
	sub.CheckoutSessionID = sessionID
	return s.repo.Save(sub)
}

func (s *SubscriptionService) FindByCheckoutSession(sessionID string) (*models.Subscription, error) {
	sub, err := s.repo.GetByCheckoutSession(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	return sub, err
}

func (s *SubscriptionService) FindByStripeSubscription(stripeID string) (*models.Subscription, error) {
	sub, err := s.repo.GetByStripeSubscription(stripeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	return sub, err
}

func (s *SubscriptionService) FindByStripeCustomer(customerID string) ([]models.Subscription, error) {
	return s.repo.GetByStripeCustomer(customerID)
}
