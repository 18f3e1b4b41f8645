package middleware

import (
	"newsletter/internal/i18n"

	"github.com/gin-gonic/gin"
)

const ContextLang = "lang"

// Language negotiates the response language from the lang query parameter or
// the Accept-Language header.
func Language(i18nService *i18n.I18nService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextLang, i18nService.Match(c.Query("lang"), c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// Lang returns the negotiated language, defaulting to English.
func Lang(c *gin.Context) string {
	if lang := c.GetString(ContextLang); lang != "" {
		return lang
	}
	return "en"
}
