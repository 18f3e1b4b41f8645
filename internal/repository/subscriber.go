package repository

import (
	"newsletter/internal/models"

	"gorm.io/gorm"
)

type SubscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

func (r *SubscriberRepository) Create(subscriber *models.Subscriber) (*models.Subscriber, error) {
	if err := r.db.Create(subscriber).Error; err != nil {
		return nil, err
	}
	return subscriber, nil
}

func (r *SubscriberRepository) GetByID(id uint) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.First(&subscriber, id).Error; err != nil {
		return nil, err
	}
	return &subscriber, nil
}

func (r *SubscriberRepository) GetByEmail(email string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.Where("email = ?", email).First(&subscriber).Error; err != nil {
		return nil, err
	}
	return &subscriber, nil
}

func (r *SubscriberRepository) GetByVerificationToken(token string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.Where("verification_token = ? AND verification_token <> ''", token).First(&subscriber).Error; err != nil {
		return nil, err
	}
	return &subscriber, nil
}

func (r *SubscriberRepository) GetByUnsubscribeToken(token string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.Where("unsubscribe_token = ? AND unsubscribe_token <> ''", token).First(&subscriber).Error; err != nil {
		return nil, err
	}
	return &subscriber, nil
}

// GetAllPaginated returns subscribers with pagination support.
func (r *SubscriberRepository) GetAllPaginated(limit, offset int) ([]models.Subscriber, int64, error) {
	var total int64
	if err := r.db.Model(&models.Subscriber{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subscribers []models.Subscriber
	if err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&subscribers).Error; err != nil {
		return nil, 0, err
	}
	return subscribers, total, nil
}

func (r *SubscriberRepository) GetAll() ([]models.Subscriber, error) {
	var subscribers []models.Subscriber
	if err := r.db.Order("email ASC").Find(&subscribers).Error; err != nil {
		return nil, err
	}
	return subscribers, nil
}

// GetActive returns verified subscribers that have not unsubscribed.
func (r *SubscriberRepository) GetActive() ([]models.Subscriber, error) {
	var subscribers []models.Subscriber
	if err := r.db.Where("verified = ? AND unsubscribed_at IS NULL", true).Order("email ASC").Find(&subscribers).Error; err != nil {
		return nil, err
	}
	return subscribers, nil
}

// Save writes every field of subscriber, including zero values.
func (r *SubscriberRepository) Save(subscriber *models.Subscriber) error {
	return r.db.Save(subscriber).Error
}

func (r *SubscriberRepository) Delete(id uint) error {
	result := r.db.Delete(&models.Subscriber{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
