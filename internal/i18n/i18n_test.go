package i18n

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewI18nService(t *testing.T) {
	svc := NewI18nService()

	assert.NotNil(t, svc.bundle)
	assert.Equal(t, "en", svc.DefaultLanguage())
	assert.ElementsMatch(t, []string{"en", "de"}, svc.SupportedLanguages())
	assert.Equal(t, "en", svc.SupportedLanguages()[0])
}

func TestI18nService_Match(t *testing.T) {
	svc := NewI18nService()

	tests := []struct {
		name     string
		input    []string
		expected string
	}{
		{"german header", []string{"de-DE,de;q=0.9,en;q=0.8"}, "de"},
		{"english header", []string{"en-US"}, "en"},
		{"unsupported falls back", []string{"fr-FR"}, "en"},
		{"empty", nil, "en"},
		{"stored preference first", []string{"de", "en-US"}, "de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, svc.Match(tt.input...))
		})
	}
}

func TestTranslator_Tr(t *testing.T) {
	svc := NewI18nService()

	assert.Equal(t, "Welcome aboard", svc.For("en").Tr("email_welcome_subject"))
	assert.Equal(t, "Willkommen an Bord", svc.For("de").Tr("email_welcome_subject"))
	assert.Equal(t, "Welcome aboard", svc.For("fr").Tr("email_welcome_subject"))
	assert.Equal(t, "missing_message", svc.For("en").Tr("missing_message"))
}

func TestTranslator_GermanFallsBackToEnglish(t *testing.T) {
	svc := NewI18nService()

	got := svc.For("de").TrData("notify_subscriber_verified", map[string]interface{}{"Email": "a@example.com"})
	assert.Equal(t, "New subscriber confirmed: a@example.com", got)
}

func TestTranslator_TrCountData(t *testing.T) {
	tr := NewI18nService().For("en")

	assert.Equal(t, "Your subscription renews tomorrow", tr.TrCountData("email_reminder_subject", 1, nil))
	assert.Equal(t, "Your subscription renews in 5 days", tr.TrCountData("email_reminder_subject", 5, nil))
}

func TestTranslator_FormatDate(t *testing.T) {
	svc := NewI18nService()
	d := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "February 28, 2025", svc.For("en").FormatDate(d))
	assert.Equal(t, "28.02.2025", svc.For("de").FormatDate(d))
}
