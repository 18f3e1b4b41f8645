package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"newsletter/internal/crypto"
	"newsletter/internal/models"
	"newsletter/internal/renewal"
	"newsletter/internal/service"

	"github.com/gin-gonic/gin"
)

// parseID reads the :id path parameter. It writes a 400 and returns false when
// the value is not a positive integer.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apiBadRequest(c, ErrInvalidID)
		return 0, false
	}
	return uint(id), true
}

// respondError maps service errors to HTTP status codes. Unexpected errors
// are logged and reported as 500 without detail.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubscriptionNotFound),
		errors.Is(err, service.ErrSubscriberNotFound),
		errors.Is(err, service.ErrUserNotFound):
		apiNotFound(c, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrAlreadySubscribed),
		errors.Is(err, service.ErrSubscriptionPending):
		apiError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		apiError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrShippingAddressRequired),
		errors.Is(err, service.ErrAnniversaryIncomplete),
		errors.Is(err, service.ErrEmptyNewsletter),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, renewal.ErrInvalidAnniversary),
		errors.Is(err, models.ErrUnknownValue),
		errors.Is(err, crypto.ErrEmptyPassword):
		apiBadRequest(c, err.Error())
	case errors.Is(err, service.ErrDeliveryFailed):
		apiError(c, http.StatusBadGateway, "Could not send email, please try again later")
	case errors.Is(err, service.ErrBillingDisabled):
		apiError(c, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		apiInternalError(c)
	}
}
