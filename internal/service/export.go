package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"newsletter/internal/crypto"
	"newsletter/internal/models"
	"newsletter/internal/repository"
)

var subscriberCSVHeader = []string{"ID", "Email", "Name", "Language", "Verified", "Verified At", "Unsubscribed At", "Created At"}

type ExportService struct {
	subscribers *repository.SubscriberRepository
}

func NewExportService(subscribers *repository.SubscriberRepository) *ExportService {
	return &ExportService{subscribers: subscribers}
}

// SubscribersCSV renders every subscriber, active or not.
func (e *ExportService) SubscribersCSV() ([]byte, error) {
	subscribers, err := e.subscribers.GetAll()
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(subscriberCSVHeader); err != nil {
		return nil, err
	}
	for _, s := range subscribers {
		if err := writer.Write(subscriberRecord(&s)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SealedSubscribersCSV returns the CSV export encrypted with password.
func (e *ExportService) SealedSubscribersCSV(password string) ([]byte, error) {
	data, err := e.SubscribersCSV()
	if err != nil {
		return nil, err
	}
	return crypto.Seal(data, password)
}

func subscriberRecord(s *models.Subscriber) []string {
	return []string{
		strconv.FormatUint(uint64(s.ID), 10),
		s.Email,
		s.Name,
		s.Language,
		strconv.FormatBool(s.Verified),
		formatTimestamp(s.VerifiedAt),
		formatTimestamp(s.UnsubscribedAt),
		s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
