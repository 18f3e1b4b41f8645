package service

import (
	"errors"
	"log/slog"
	"strings"
)

var ErrEmptyNewsletter = errors.New("newsletter subject and body are required")

// BroadcastResult summarises one newsletter send.
type BroadcastResult struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// NewsletterService mails an issue to every active subscriber.
type NewsletterService struct {
	subscribers SubscriberServiceInterface
	email       EmailServiceInterface
}

func NewNewsletterService(subscribers SubscriberServiceInterface, email EmailServiceInterface) *NewsletterService {
	return &NewsletterService{subscribers: subscribers, email: email}
}

// Broadcast sends subject/body to every active subscriber. Individual
// delivery failures are counted, not returned.
func (n *NewsletterService) Broadcast(subject, body string) (*BroadcastResult, error) {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(body) == "" {
		return nil, ErrEmptyNewsletter
	}

	recipients, err := n.subscribers.Active()
	if err != nil {
		return nil, err
	}

	result := &BroadcastResult{Recipients: len(recipients)}
	for i := range recipients {
		if err := n.email.SendNewsletter(&recipients[i], subject, body); err != nil {
			slog.Warn("newsletter delivery failed", "subscriber_id", recipients[i].ID, "error", err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	slog.Info("newsletter broadcast complete", "sent", result.Sent, "failed", result.Failed)
	return result, nil
}
