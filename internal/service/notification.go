package service

import (
	"fmt"
	"log/slog"
	"strings"

	"newsletter/internal/i18n"
	"newsletter/internal/models"

	"github.com/containrrr/shoutrrr"
	t "github.com/containrrr/shoutrrr/pkg/types"
)

const notificationTitle = "Newsletter"

// NotificationService pushes operator notifications to the shoutrrr URLs
// configured for the deployment. With no URLs configured every call is a no-op.
type NotificationService struct {
	urls        []string
	i18nService *i18n.I18nService
}

func NewNotificationService(urls []string, i18nService *i18n.I18nService) *NotificationService {
	return &NotificationService{
		urls:        urls,
		i18nService: i18nService,
	}
}

// Enabled reports whether any notification URL is configured.
func (s *NotificationService) Enabled() bool {
	return len(s.urls) > 0
}

func (s *NotificationService) tData(messageID string, data map[string]interface{}) string {
	if s.i18nService == nil {
		return messageID
	}
	return s.i18nService.For(s.i18nService.DefaultLanguage()).TrData(messageID, data)
}

func (s *NotificationService) sendToAll(title, message string) error {
	if !s.Enabled() {
		return nil
	}

	sender, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		return fmt.Errorf("failed to create Shoutrrr sender: %w", err)
	}

	params := t.Params{}
	if title != "" {
		params["title"] = title
	}

	var errMsgs []string
	for _, e := range sender.Send(message, &params) {
		if e != nil {
			errMsgs = append(errMsgs, e.Error())
		}
	}

	if len(errMsgs) > 0 {
		return fmt.Errorf("shoutrrr send errors: %s", strings.Join(errMsgs, "; "))
	}
	return nil
}

func (s *NotificationService) notify(messageID string, data map[string]interface{}) error {
	message := s.tData(messageID, data)
	if err := s.sendToAll(notificationTitle, message); err != nil {
		slog.Warn("failed to send notification", "message_id", messageID, "error", err)
		return err
	}
	return nil
}

// SubscriberVerified announces a newly confirmed subscriber.
func (s *NotificationService) SubscriberVerified(sub *models.Subscriber) error {
	return s.notify("notify_subscriber_verified", map[string]interface{}{"Email": sub.Email})
}

// CheckoutCompleted announces a paid subscription.
func (s *NotificationService) CheckoutCompleted(user *models.User, sub *models.Subscription) error {
	return s.notify("notify_checkout_completed", map[string]interface{}{"Email": user.Email, "Type": sub.Type.String()})
}

// PaymentFailed announces a failed renewal charge.
func (s *NotificationService) PaymentFailed(user *models.User, sub *models.Subscription) error {
	return s.notify("notify_payment_failed", map[string]interface{}{"Email": user.Email, "Type": sub.Type.String()})
}
