package service

import (
	"testing"
	"time"

	"newsletter/internal/models"
	"newsletter/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderService_DueReminders(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewSubscriptionRepository(db)
	user := createTestUser(t, db, "a@example.com")
	now := time.Date(2024, time.February, 25, 6, 0, 0, 0, time.UTC)
	created := time.Date(2022, time.January, 1, 9, 0, 0, 0, time.UTC)

	subs := []models.Subscription{
		{UserID: user.ID, Type: models.SubscriptionTypeDigital, Status: models.SubscriptionStatusActive, AnniversaryMonth: 2, AnniversaryDay: 29, CreationDate: created},
		{UserID: user.ID, Type: models.SubscriptionTypeDigital, Status: models.SubscriptionStatusActive, AnniversaryMonth: 3, AnniversaryDay: 3, CreationDate: created},
		{UserID: user.ID, Type: models.SubscriptionTypeDigital, Status: models.SubscriptionStatusActive, AnniversaryMonth: 3, AnniversaryDay: 4, CreationDate: created},
		{UserID: user.ID, Type: models.SubscriptionTypeDigital, Status: models.SubscriptionStatusActive, AnniversaryMonth: 2, AnniversaryDay: 25, CreationDate: created},
		{UserID: user.ID, Type: models.SubscriptionTypeDigital, Status: models.SubscriptionStatusCancelled, AnniversaryMonth: 2, AnniversaryDay: 26, CreationDate: created},
		{UserID: user.ID, Type: models.SubscriptionTypeDigital, Status: models.SubscriptionStatusActive, AnniversaryMonth: 2, AnniversaryDay: 24, CreationDate: created},
	}
	for i := range subs {
		_, err := repo.Create(&subs[i])
		require.NoError(t, err)
	}

	svc := NewReminderService(repo, newTestEmailService(&recordingMailer{}), 7)
	due, err := svc.DueReminders(now)
	require.NoError(t, err)

	got := map[string]int{}
	for _, d := range due {
		got[d.Subscription.RenewalDate] = d.DaysUntil
	}
	assert.Equal(t, map[string]int{
		"2/29/2024": 4,
		"3/3/2024":  7,
		"2/25/2024": 0,
	}, got)
}

func TestReminderService_SendDueRemindersOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewSubscriptionRepository(db)
	user := createTestUser(t, db, "a@example.com")
	sub := &models.Subscription{
		UserID: user.ID, Type: models.SubscriptionTypePhysical, Status: models.SubscriptionStatusActive,
		ShippingAddress: "1 Main St", AnniversaryMonth: 3, AnniversaryDay: 2,
		CreationDate: time.Date(2021, time.March, 2, 0, 0, 0, 0, time.UTC),
	}
	_, err := repo.Create(sub)
	require.NoError(t, err)

	mailer := &recordingMailer{}
	svc := NewReminderService(repo, newTestEmailService(mailer), 7)
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

	sent, err := svc.SendDueReminders(now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	mails := mailer.to("a@example.com")
	require.Len(t, mails, 1)
	assert.Equal(t, "Your subscription renews tomorrow", mails[0].Subject)
	assert.Contains(t, mails[0].Body, "March 2, 2024")

	stored, err := repo.GetByID(sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastReminderSent)
	require.NotNil(t, stored.LastReminderRenewalDate)
	assert.True(t, stored.LastReminderRenewalDate.Equal(time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)))

	sent, err = svc.SendDueReminders(now.Add(12 * time.Hour))
	require.NoError(t, err)
	assert.Zero(t, sent, "same renewal is announced once")

	// After the renewal the next year's reminder is due again.
	sent, err = svc.SendDueReminders(time.Date(2025, time.February, 27, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestReminderService_DeliveryFailureIsRetried(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewSubscriptionRepository(db)
	user := createTestUser(t, db, "a@example.com")
	_, err := repo.Create(&models.Subscription{
		UserID: user.ID, Type: models.SubscriptionTypeDigital, Status: models.SubscriptionStatusActive,
		AnniversaryMonth: 3, AnniversaryDay: 5, CreationDate: time.Date(2021, time.March, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	mailer := &recordingMailer{fail: map[string]bool{"a@example.com": true}}
	svc := NewReminderService(repo, newTestEmailService(mailer), 7)
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

	sent, err := svc.SendDueReminders(now)
	assert.Error(t, err)
	assert.Zero(t, sent)

	mailer.fail = nil
	sent, err = svc.SendDueReminders(now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}
