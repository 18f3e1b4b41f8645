package service

import (
	"strings"
	"testing"

	"newsletter/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscriberFixture struct {
	svc      *SubscriberService
	repo     *repository.SubscriberRepository
	mailer   *recordingMailer
	notifier *recordingNotifier
}

func newSubscriberFixture(t *testing.T) *subscriberFixture {
	db := setupTestDB(t)
	repo := repository.NewSubscriberRepository(db)
	mailer := &recordingMailer{}
	notifier := &recordingNotifier{}
	return &subscriberFixture{
		svc:      NewSubscriberService(repo, newTestEmailService(mailer), notifier),
		repo:     repo,
		mailer:   mailer,
		notifier: notifier,
	}
}

func TestSubscriberService_SubscribeSendsVerification(t *testing.T) {
	f := newSubscriberFixture(t)

	sub, err := f.svc.Subscribe("Reader@Example.com", " Rea Der ", "de")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", sub.Email)
	assert.Equal(t, "Rea Der", sub.Name)
	assert.False(t, sub.Verified)
	assert.NotEmpty(t, sub.VerificationToken)
	assert.NotEmpty(t, sub.UnsubscribeToken)

	mails := f.mailer.to("reader@example.com")
	require.Len(t, mails, 1)
	assert.Contains(t, mails[0].Body, "http://news.test/api/subscribers/verify?token="+sub.VerificationToken)
	assert.Contains(t, mails[0].Body, `lang="de"`)
}

func TestSubscriberService_SubscribeTwice(t *testing.T) {
	f := newSubscriberFixture(t)

	first, err := f.svc.Subscribe("a@example.com", "", "en")
	require.NoError(t, err)

	t.Run("unverified address gets a new token", func(t *testing.T) {
		again, err := f.svc.Subscribe("a@example.com", "", "en")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.NotEqual(t, first.VerificationToken, again.VerificationToken)
		assert.Len(t, f.mailer.to("a@example.com"), 2)
	})

	t.Run("verified address is rejected", func(t *testing.T) {
		current, err := f.repo.GetByEmail("a@example.com")
		require.NoError(t, err)
		_, err = f.svc.Verify(current.VerificationToken)
		require.NoError(t, err)

		_, err = f.svc.Subscribe("a@example.com", "", "en")
		assert.ErrorIs(t, err, ErrAlreadySubscribed)
	})
}

func TestSubscriberService_SubscribeInvalidEmail(t *testing.T) {
	f := newSubscriberFixture(t)

	_, err := f.svc.Subscribe("nope", "", "en")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestSubscriberService_SubscribeDeliveryFailure(t *testing.T) {
	f := newSubscriberFixture(t)
	f.mailer.fail = map[string]bool{"a@example.com": true}

	sub, err := f.svc.Subscribe("a@example.com", "", "en")
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	require.NotNil(t, sub)

	stored, err := f.repo.GetByEmail("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, stored.ID)
}

func TestSubscriberService_Verify(t *testing.T) {
	f := newSubscriberFixture(t)
	sub, err := f.svc.Subscribe("a@example.com", "Ann", "en")
	require.NoError(t, err)

	verified, err := f.svc.Verify(sub.VerificationToken)
	require.NoError(t, err)
	assert.True(t, verified.IsActive())
	assert.NotNil(t, verified.VerifiedAt)
	assert.Empty(t, verified.VerificationToken)

	mails := f.mailer.to("a@example.com")
	require.Len(t, mails, 2)
	assert.Equal(t, "Welcome aboard", mails[1].Subject)
	assert.Contains(t, mails[1].Body, "/api/subscribers/unsubscribe?token="+sub.UnsubscribeToken)
	assert.Equal(t, []string{"verified:a@example.com"}, f.notifier.events)

	_, err = f.svc.Verify(sub.VerificationToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "tokens are single use")

	_, err = f.svc.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSubscriberService_Unsubscribe(t *testing.T) {
	f := newSubscriberFixture(t)
	sub, err := f.svc.Subscribe("a@example.com", "", "en")
	require.NoError(t, err)
	_, err = f.svc.Verify(sub.VerificationToken)
	require.NoError(t, err)

	out, err := f.svc.Unsubscribe(sub.UnsubscribeToken)
	require.NoError(t, err)
	assert.False(t, out.IsActive())
	first := *out.UnsubscribedAt

	again, err := f.svc.Unsubscribe(sub.UnsubscribeToken)
	require.NoError(t, err)
	assert.True(t, first.Equal(*again.UnsubscribedAt))

	active, err := f.svc.Active()
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = f.svc.Unsubscribe("unknown")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSubscriberService_ResubscribeAfterUnsubscribe(t *testing.T) {
	f := newSubscriberFixture(t)
	sub, err := f.svc.Subscribe("a@example.com", "", "en")
	require.NoError(t, err)
	_, err = f.svc.Verify(sub.VerificationToken)
	require.NoError(t, err)
	_, err = f.svc.Unsubscribe(sub.UnsubscribeToken)
	require.NoError(t, err)

	again, err := f.svc.Subscribe("a@example.com", "", "en")
	require.NoError(t, err)
	assert.False(t, again.Verified)
	assert.Nil(t, again.UnsubscribedAt)
	assert.NotEmpty(t, again.VerificationToken)
}

func TestSubscriberService_ListAndDelete(t *testing.T) {
	f := newSubscriberFixture(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := f.svc.Subscribe(email, "", "en")
		require.NoError(t, err)
	}

	page, total, err := f.svc.List(2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, int64(3), total)

	require.NoError(t, f.svc.Delete(page[0].ID))
	assert.ErrorIs(t, f.svc.Delete(page[0].ID), ErrSubscriberNotFound)
}

func TestNewsletterService_Broadcast(t *testing.T) {
	f := newSubscriberFixture(t)
	for _, email := range []string{"a@example.com", "b@example.com", "pending@example.com"} {
		sub, err := f.svc.Subscribe(email, "", "en")
		require.NoError(t, err)
		if !strings.HasPrefix(email, "pending") {
			_, err = f.svc.Verify(sub.VerificationToken)
			require.NoError(t, err)
		}
	}
	f.mailer.fail = map[string]bool{"b@example.com": true}

	newsletter := NewNewsletterService(f.svc, newTestEmailService(f.mailer))
	result, err := newsletter.Broadcast("Issue 1", "<p>Hello <b>readers</b></p>")
	require.NoError(t, err)
	assert.Equal(t, &BroadcastResult{Recipients: 2, Sent: 1, Failed: 1}, result)

	mails := f.mailer.to("a@example.com")
	last := mails[len(mails)-1]
	assert.Equal(t, "Issue 1", last.Subject)
	assert.Contains(t, last.Body, "<b>readers</b>")
	assert.Contains(t, last.Body, "/api/subscribers/unsubscribe?token=")
	assert.Len(t, f.mailer.to("pending@example.com"), 1, "unverified subscribers only get the verification mail")

	_, err = newsletter.Broadcast(" ", "body")
	assert.ErrorIs(t, err, ErrEmptyNewsletter)
}
