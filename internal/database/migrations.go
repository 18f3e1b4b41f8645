package database

import (
	"log/slog"

	"newsletter/internal/models"

	"gorm.io/gorm"
)

// RunMigrations executes all database migrations
func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Subscriber{},
		&models.Subscription{},
		&models.WebhookEvent{},
	)
	if err != nil {
		return err
	}

	migrations := []func(*gorm.DB) error{
		migrateSubscriberUnsubscribeTokens,
		migrateAnniversaryFields,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// migrateSubscriberUnsubscribeTokens backfills unsubscribe tokens for rows
// created before the column existed.
func migrateSubscriberUnsubscribeTokens(db *gorm.DB) error {
	var count int64
	db.Model(&models.Subscriber{}).Where("unsubscribe_token IS NULL OR unsubscribe_token = ''").Count(&count)
	if count == 0 {
		return nil
	}

	slog.Info("running migration: backfilling subscriber unsubscribe tokens", "count", count)

	// hex(randomblob(16)) keeps the backfill inside SQLite
	if err := db.Exec("UPDATE subscribers SET unsubscribe_token = lower(hex(randomblob(16))) WHERE unsubscribe_token IS NULL OR unsubscribe_token = ''").Error; err != nil {
		return err
	}

	slog.Info("migration completed: subscriber unsubscribe tokens backfilled")
	return nil
}

// migrateAnniversaryFields derives missing anniversary month/day from the
// creation date of older subscription rows.
func migrateAnniversaryFields(db *gorm.DB) error {
	var subs []models.Subscription
	if err := db.Where("(anniversary_month IS NULL OR anniversary_month = 0) AND status = ?", models.SubscriptionStatusActive).Find(&subs).Error; err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	slog.Info("running migration: deriving subscription anniversaries", "count", len(subs))

	for i := range subs {
		sub := &subs[i]
		sub.SetAnniversaryFrom(sub.CreationDate)
		if err := db.Model(sub).Updates(map[string]interface{}{
			"anniversary_month": sub.AnniversaryMonth,
			"anniversary_day":   sub.AnniversaryDay,
		}).Error; err != nil {
			return err
		}
	}

	slog.Info("migration completed: subscription anniversaries derived")
	return nil
}
