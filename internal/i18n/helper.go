package i18n

import (
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// Translator binds the service to one language so mail templates can call
// translation methods without passing a localizer around.
type Translator struct {
	localizer *i18n.Localizer
	service   *I18nService
	lang      string
}

// For returns a Translator for lang, falling back to the default language.
func (s *I18nService) For(lang string) *Translator {
	lang = s.Match(lang)
	return &Translator{
		localizer: s.NewLocalizer(lang),
		service:   s,
		lang:      lang,
	}
}

// Lang returns the resolved language code.
func (t *Translator) Lang() string {
	return t.lang
}

// Tr translates a simple string by message ID
func (t *Translator) Tr(messageID string) string {
	return t.service.T(t.localizer, messageID, nil)
}

// TrData translates a string with template data
func (t *Translator) TrData(messageID string, data map[string]interface{}) string {
	return t.service.T(t.localizer, messageID, data)
}

// TrCountData translates a string with plural support and template data
func (t *Translator) TrCountData(messageID string, count int, data map[string]interface{}) string {
	return t.service.TPluralCount(t.localizer, messageID, count, data)
}

// FormatDate renders a date the way readers of the language expect.
func (t *Translator) FormatDate(d time.Time) string {
	switch t.lang {
	case "de":
		return d.Format("02.01.2006")
	default:
		return d.Format("January 2, 2006")
	}
}
