package repository

import (
	"errors"
	"testing"
	"time"

	"newsletter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// every pooled connection would get its own in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.Subscriber{}, &models.Subscription{}, &models.WebhookEvent{})
	require.NoError(t, err)

	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	user, err := NewUserRepository(db).Create(&models.User{Email: email, PasswordHash: "hash"})
	require.NoError(t, err)
	return user
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	created := createUser(t, db, "reader@example.com")

	found, err := repo.GetByEmail("reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.GetByEmail("missing@example.com")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = repo.Create(&models.User{Email: "reader@example.com", PasswordHash: "other"})
	assert.Error(t, err, "email must be unique")

	require.NoError(t, repo.UpdatePasswordHash(created.ID, "new-hash"))
	found, err = repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", found.PasswordHash)
	assert.Equal(t, int64(1), repo.Count())
}

func TestSubscriberRepository_Tokens(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriberRepository(db)

	sub, err := repo.Create(&models.Subscriber{
		Email:             "a@example.com",
		VerificationToken: "verify-1",
		UnsubscribeToken:  "unsub-1",
	})
	require.NoError(t, err)

	found, err := repo.GetByVerificationToken("verify-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)

	found, err = repo.GetByUnsubscribeToken("unsub-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)

	_, err = repo.GetByVerificationToken("")
	assert.Error(t, err, "empty token never matches")
}

func TestSubscriberRepository_GetActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriberRepository(db)
	now := time.Now()

	_, err := repo.Create(&models.Subscriber{Email: "verified@example.com", Verified: true})
	require.NoError(t, err)
	_, err = repo.Create(&models.Subscriber{Email: "pending@example.com"})
	require.NoError(t, err)
	_, err = repo.Create(&models.Subscriber{Email: "gone@example.com", Verified: true, UnsubscribedAt: &now})
	require.NoError(t, err)

	active, err := repo.GetActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "verified@example.com", active[0].Email)

	page, total, err := repo.GetAllPaginated(2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)
}

func TestSubscriberRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriberRepository(db)

	sub, err := repo.Create(&models.Subscriber{Email: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(sub.ID))
	assert.ErrorIs(t, repo.Delete(sub.ID), gorm.ErrRecordNotFound)
}

func TestSubscriptionRepository_Finders(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	owner := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")

	sub, err := repo.Create(&models.Subscription{
		UserID:               owner.ID,
		Type:                 models.SubscriptionTypePhysical,
		Status:               models.SubscriptionStatusActive,
		CreationDate:         time.Now().UTC(),
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		CheckoutSessionID:    "cs_1",
	})
	require.NoError(t, err)
	_, err = repo.Create(&models.Subscription{
		UserID: other.ID,
		Type:   models.SubscriptionTypeDigital,
		Status: models.SubscriptionStatusPending,
	})
	require.NoError(t, err)

	byUser, total, err := repo.GetByUser(owner.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, sub.ID, byUser[0].ID)

	bySession, err := repo.GetByCheckoutSession("cs_1")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", bySession.User.Email)

	byStripe, err := repo.GetByStripeSubscription("sub_1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, byStripe.ID)

	byCustomer, err := repo.GetByStripeCustomer("cus_1")
	require.NoError(t, err)
	assert.Len(t, byCustomer, 1)

	active, err := repo.GetActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, owner.ID, active[0].User.ID)

	_, err = repo.GetByCheckoutSession("")
	assert.Error(t, err)
	assert.Equal(t, int64(2), repo.Count())
}

func TestSubscriptionRepository_SaveZeroValues(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubscriptionRepository(db)
	owner := createUser(t, db, "owner@example.com")

	sub, err := repo.Create(&models.Subscription{
		UserID:          owner.ID,
		Type:            models.SubscriptionTypePhysical,
		Status:          models.SubscriptionStatusActive,
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)

	sub.ShippingAddress = ""
	sub.Status = models.SubscriptionStatusCancelled
	require.NoError(t, repo.Save(sub))

	reloaded, err := repo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.ShippingAddress)
	assert.Equal(t, models.SubscriptionStatusCancelled, reloaded.Status)
}

func TestWebhookEventRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWebhookEventRepository(db)

	exists, err := repo.Exists("evt_1")
	require.NoError(t, err)
	assert.False(t, exists)

	event, err := repo.Create(&models.WebhookEvent{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		ProviderType:    "invoice.paid",
		Type:            models.EventTypeInvoicePaid,
	})
	require.NoError(t, err)

	exists, err = repo.Exists("evt_1")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.Create(&models.WebhookEvent{Provider: "stripe", ProviderEventID: "evt_1", Type: models.EventTypeInvoicePaid})
	assert.Error(t, err, "provider event id is unique")

	require.NoError(t, repo.MarkProcessed(event.ID, errors.New("boom")))
	stored, err := repo.GetByProviderEventID("evt_1")
	require.NoError(t, err)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Equal(t, "boom", stored.Error)
}
