package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// I18nService manages the message bundle used for outgoing mail and
// notifications.
type I18nService struct {
	bundle         *i18n.Bundle
	matcher        language.Matcher
	defaultLang    string
	supportedLangs []string
}

// NewI18nService loads every embedded locale file. English is the fallback.
func NewI18nService() *I18nService {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Warn("failed to list locale files", "error", err)
	}
	for _, entry := range entries {
		file := path.Join("locales", entry.Name())
		data, err := localeFS.ReadFile(file)
		if err != nil {
			slog.Warn("failed to read locale file", "file", file, "error", err)
			continue
		}
		if _, err := bundle.ParseMessageFileBytes(data, file); err != nil {
			slog.Warn("failed to parse locale file", "file", file, "error", err)
		}
	}

	// LanguageTags keeps English first because it is the bundle default.
	tags := bundle.LanguageTags()
	supported := make([]string, 0, len(tags))
	for _, tag := range tags {
		base, _ := tag.Base()
		supported = append(supported, base.String())
	}

	return &I18nService{
		bundle:         bundle,
		matcher:        language.NewMatcher(tags),
		defaultLang:    "en",
		supportedLangs: supported,
	}
}

// Match picks the best supported language for an Accept-Language header or a
// stored preference. Unknown input yields the default language.
func (s *I18nService) Match(preferences ...string) string {
	_, index := language.MatchStrings(s.matcher, preferences...)
	if index < 0 || index >= len(s.supportedLangs) {
		return s.defaultLang
	}
	return s.supportedLangs[index]
}

// NewLocalizer creates a localizer for the given language with English fallback
func (s *I18nService) NewLocalizer(lang string) *i18n.Localizer {
	if lang == "" {
		lang = s.defaultLang
	}
	return i18n.NewLocalizer(s.bundle, lang, s.defaultLang)
}

// T translates a message with optional template data.
func (s *I18nService) T(localizer *i18n.Localizer, messageID string, data map[string]interface{}) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	// a fallback translation comes back together with a not-found error
	if err != nil && msg == "" {
		return messageID
	}
	return msg
}

// TPluralCount translates a message with plural support
func (s *I18nService) TPluralCount(localizer *i18n.Localizer, messageID string, count int, data map[string]interface{}) string {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Count"] = count

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil && msg == "" {
		return fmt.Sprintf("%s (%d)", messageID, count)
	}
	return msg
}

// SupportedLanguages returns the list of supported language codes
func (s *I18nService) SupportedLanguages() []string {
	return s.supportedLangs
}

// DefaultLanguage returns the default language code
func (s *I18nService) DefaultLanguage() string {
	return s.defaultLang
}
