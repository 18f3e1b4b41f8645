package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsletter/internal/models"
	"newsletter/internal/renewal"
	"newsletter/internal/repository"
)

// DueReminder is an active subscription whose renewal falls inside the
// reminder window and has not been announced yet.
type DueReminder struct {
	Subscription models.Subscription
	RenewalAt    time.Time
	DaysUntil    int
}

type ReminderService struct {
	repo  *repository.SubscriptionRepository
	email EmailServiceInterface
	days  int
}

func NewReminderService(repo *repository.SubscriptionRepository, email EmailServiceInterface, days int) *ReminderService {
	return &ReminderService{repo: repo, email: email, days: days}
}

// DueReminders lists subscriptions renewing within the configured number of
// days from now.
func (r *ReminderService) DueReminders(now time.Time) ([]DueReminder, error) {
	if r.days < 0 {
		return nil, nil
	}

	subs, err := r.repo.GetActive()
	if err != nil {
		return nil, fmt.Errorf("load active subscriptions: %w", err)
	}

	calc := renewal.NewCalculator(renewal.FixedClock(now))
	var due []DueReminder
	for _, sub := range subs {
		if sub.AnniversaryMonth == 0 && sub.AnniversaryDay == 0 {
			continue
		}
		next, err := calc.NextRenewal(sub.AnniversaryMonth, sub.AnniversaryDay, sub.CreationDate)
		if err != nil {
			slog.Error("skipping subscription with invalid anniversary", "subscription_id", sub.ID, "error", err)
			continue
		}
		if sub.LastReminderRenewalDate != nil && sub.LastReminderRenewalDate.Equal(next) {
			continue
		}
		days := renewal.DaysUntil(now, next)
		if days < 0 || days > r.days {
			continue
		}
		sub.RenewalDate = renewal.FormatDate(next)
		due = append(due, DueReminder{Subscription: sub, RenewalAt: next, DaysUntil: days})
	}
	return due, nil
}

// SendDueReminders mails every due reminder and records it so the same
// renewal is announced once. It returns the number of mails sent.
func (r *ReminderService) SendDueReminders(now time.Time) (int, error) {
	due, err := r.DueReminders(now)
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for i := range due {
		d := &due[i]
		sub := &d.Subscription
		if err := r.email.SendRenewalReminder(&sub.User, sub, d.RenewalAt, d.DaysUntil); err != nil {
			slog.Error("failed to send renewal reminder", "subscription_id", sub.ID, "error", err)
			errs = append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
			continue
		}

		sentAt := now.UTC()
		renewalAt := d.RenewalAt
		sub.LastReminderSent = &sentAt
		sub.LastReminderRenewalDate = &renewalAt
		if err := r.repo.Save(sub); err != nil {
			errs = append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
			continue
		}
		sent++
		slog.Info("renewal reminder sent", "subscription_id", sub.ID, "days_until", d.DaysUntil, "renewal_date", sub.RenewalDate)
	}
	return sent, errors.Join(errs...)
}
