package repository

import (
	"newsletter/internal/models"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(subscription *models.Subscription) (*models.Subscription, error) {
	if err := r.db.Create(subscription).Error; err != nil {
		return nil, err
	}
	return subscription, nil
}

func (r *SubscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := r.db.Preload("User").First(&subscription, id).Error; err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *SubscriptionRepository) GetByUser(userID uint, limit, offset int) ([]models.Subscription, int64, error) {
	var total int64
	query := r.db.Model(&models.Subscription{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subscriptions []models.Subscription
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&subscriptions).Error; err != nil {
		return nil, 0, err
	}
	return subscriptions, total, nil
}

func (r *SubscriptionRepository) GetAllPaginated(limit, offset int) ([]models.Subscription, int64, error) {
	var total int64
	if err := r.db.Model(&models.Subscription{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subscriptions []models.Subscription
	if err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&subscriptions).Error; err != nil {
		return nil, 0, err
	}
	return subscriptions, total, nil
}

// GetActive returns active subscriptions with their owning user loaded.
func (r *SubscriptionRepository) GetActive() ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	if err := r.db.Preload("User").Where("status = ?", models.SubscriptionStatusActive).Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *SubscriptionRepository) GetByCheckoutSession(sessionID string) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := r.db.Preload("User").Where("checkout_session_id = ? AND checkout_session_id <> ''", sessionID).First(&subscription).Error; err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *SubscriptionRepository) GetByStripeSubscription(stripeID string) (*models.Subscription, error) {
	var subscription models.Subscription
	if err := r.db.Preload("User").Where("stripe_subscription_id = ? AND stripe_subscription_id <> ''", stripeID).First(&subscription).Error; err != nil {
		return nil, err
	}
	return &subscription, nil
}

// GetByStripeCustomer returns every subscription billed to the customer.
func (r *SubscriptionRepository) GetByStripeCustomer(customerID string) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	if err := r.db.Preload("User").Where("stripe_customer_id = ? AND stripe_customer_id <> ''", customerID).Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// Save writes every field of subscription, including zero values.
func (r *SubscriptionRepository) Save(subscription *models.Subscription) error {
	return r.db.Omit("User").Save(subscription).Error
}

func (r *SubscriptionRepository) Delete(id uint) error {
	result := r.db.Delete(&models.Subscription{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SubscriptionRepository) Count() int64 {
	var count int64
	r.db.Model(&models.Subscription{}).Count(&count)
	return count
}
