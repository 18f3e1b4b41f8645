package repository

import (
	"errors"
	"time"

	"newsletter/internal/models"

	"gorm.io/gorm"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Exists reports whether an event with the provider id was already recorded.
func (r *WebhookEventRepository) Exists(providerEventID string) (bool, error) {
	var event models.WebhookEvent
	err := r.db.Where("provider_event_id = ?", providerEventID).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *WebhookEventRepository) Create(event *models.WebhookEvent) (*models.WebhookEvent, error) {
	if err := r.db.Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *WebhookEventRepository) GetByProviderEventID(providerEventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.Where("provider_event_id = ?", providerEventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// MarkProcessed stamps the event and stores the processing error, if any.
func (r *WebhookEventRepository) MarkProcessed(id uint, processErr error) error {
	updates := map[string]interface{}{
		"processed_at": time.Now().UTC(),
		"error":        "",
	}
	if processErr != nil {
		updates["error"] = processErr.Error()
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
