package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"newsletter/internal/i18n"
	"newsletter/internal/models"
	"newsletter/internal/renewal"
	"newsletter/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.Subscriber{}, &models.Subscription{}, &models.WebhookEvent{})
	require.NoError(t, err)

	return db
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// recordingMailer captures messages instead of delivering them.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]bool
}

func (m *recordingMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[to] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *recordingMailer) to(addr string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.To == addr {
			out = append(out, s)
		}
	}
	return out
}

func newTestEmailService(mailer Mailer) *EmailService {
	return NewEmailService(mailer, i18n.NewI18nService(), "http://news.test")
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) SubscriberVerified(sub *models.Subscriber) error {
	n.events = append(n.events, "verified:"+sub.Email)
	return nil
}

func (n *recordingNotifier) CheckoutCompleted(user *models.User, _ *models.Subscription) error {
	n.events = append(n.events, "checkout:"+user.Email)
	return nil
}

func (n *recordingNotifier) PaymentFailed(user *models.User, _ *models.Subscription) error {
	n.events = append(n.events, "payment_failed:"+user.Email)
	return nil
}

// fakeProvider hands out predictable sessions and returns queued events.
type fakeProvider struct {
	sessions   int
	requests   []CheckoutRequest
	failCreate bool
	events     map[string]*BillingEvent
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if p.failCreate {
		return nil, errors.New("provider down")
	}
	p.sessions++
	p.requests = append(p.requests, req)
	id := "cs_test_" + string(rune('a'+p.sessions-1))
	return &CheckoutSession{ID: id, URL: "https://pay.test/" + id}, nil
}

func (p *fakeProvider) ParseWebhook(payload []byte, signature string) (*BillingEvent, error) {
	ev, ok := p.events[signature]
	if !ok {
		return nil, errors.New("bad signature")
	}
	ev.Payload = payload
	return ev, nil
}

func fixedCalculator(now time.Time) *renewal.Calculator {
	return renewal.NewCalculator(renewal.FixedClock(now))
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	user, err := repository.NewUserRepository(db).Create(&models.User{Email: email, PasswordHash: "x", Language: "en"})
	require.NoError(t, err)
	return user
}
