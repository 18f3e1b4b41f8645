package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsletter/internal/models"
	"newsletter/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAlreadySubscribed  = errors.New("email is already subscribed")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrDeliveryFailed     = errors.New("could not deliver email")
)

type SubscriberService struct {
	repo     *repository.SubscriberRepository
	email    EmailServiceInterface
	notifier NotificationServiceInterface
	now      func() time.Time
}

func NewSubscriberService(repo *repository.SubscriberRepository, email EmailServiceInterface, notifier NotificationServiceInterface) *SubscriberService {
	return &SubscriberService{
		repo:     repo,
		email:    email,
		notifier: notifier,
		now:      time.Now,
	}
}

// Subscribe registers an address and mails a verification link. Unverified
// or unsubscribed addresses get a fresh token and a new mail.
func (s *SubscriberService) Subscribe(email, name, lang string) (*models.Subscriber, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetByEmail(email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub, err = s.repo.Create(&models.Subscriber{
			Email:             email,
			Name:              strings.TrimSpace(name),
			Language:          lang,
			VerificationToken: uuid.NewString(),
			UnsubscribeToken:  uuid.NewString(),
		})
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}
	case err != nil:
		return nil, err
	case sub.IsActive():
		return nil, ErrAlreadySubscribed
	default:
		sub.Verified = false
		sub.VerifiedAt = nil
		sub.UnsubscribedAt = nil
		sub.VerificationToken = uuid.NewString()
		if name = strings.TrimSpace(name); name != "" {
			sub.Name = name
		}
		if lang != "" {
			sub.Language = lang
		}
		if err := s.repo.Save(sub); err != nil {
			return nil, fmt.Errorf("update subscriber: %w", err)
		}
	}

	if err := s.email.SendVerification(sub); err != nil {
		slog.Error("failed to send verification email", "subscriber_id", sub.ID, "error", err)
		return sub, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	slog.Info("verification email sent", "subscriber_id", sub.ID)
	return sub, nil
}

// Verify confirms the subscriber owning token.
func (s *SubscriberService) Verify(token string) (*models.Subscriber, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	sub, err := s.repo.GetByVerificationToken(token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub.Verified = true
	sub.VerifiedAt = &now
	sub.VerificationToken = ""
	if sub.UnsubscribeToken == "" {
		sub.UnsubscribeToken = uuid.NewString()
	}
	if err := s.repo.Save(sub); err != nil {
		return nil, fmt.Errorf("verify subscriber: %w", err)
	}

	if err := s.email.SendWelcome(sub); err != nil {
		slog.Warn("failed to send welcome email", "subscriber_id", sub.ID, "error", err)
	}
	if err := s.notifier.SubscriberVerified(sub); err != nil {
		slog.Warn("failed to notify about verified subscriber", "subscriber_id", sub.ID, "error", err)
	}

	return sub, nil
}

// Unsubscribe stops newsletters for the subscriber owning token. Repeating
// the call is harmless.
func (s *SubscriberService) Unsubscribe(token string) (*models.Subscriber, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	sub, err := s.repo.GetByUnsubscribeToken(token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if sub.UnsubscribedAt == nil {
		now := s.now()
		sub.UnsubscribedAt = &now
		if err := s.repo.Save(sub); err != nil {
			return nil, fmt.Errorf("unsubscribe: %w", err)
		}
		slog.Info("subscriber unsubscribed", "subscriber_id", sub.ID)
	}
	return sub, nil
}

func (s *SubscriberService) List(limit, offset int) ([]models.Subscriber, int64, error) {
	return s.repo.GetAllPaginated(limit, offset)
}

func (s *SubscriberService) Active() ([]models.Subscriber, error) {
	return s.repo.GetActive()
}

func (s *SubscriberService) Delete(id uint) error {
	err := s.repo.Delete(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSubscriberNotFound
	}
	return err
}
