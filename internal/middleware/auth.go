package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"newsletter/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// TokenParser validates access tokens.
type TokenParser interface {
	ParseToken(tokenString string) (*service.Claims, error)
}

// RequireAuth validates the bearer token and stores the caller's claims in the
// gin context. Requests without a valid token get 401.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := tokens.ParseToken(raw)
		if err != nil {
			slog.Debug("rejected access token", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator access required"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's ID, or 0 outside RequireAuth.
func UserID(c *gin.Context) uint {
	id, _ := c.Get(ContextUserID)
	v, _ := id.(uint)
	return v
}

// IsAdmin reports whether the authenticated caller carries the admin claim.
func IsAdmin(c *gin.Context) bool {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return false
	}
	claims, ok := v.(*service.Claims)
	return ok && claims.Admin
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
