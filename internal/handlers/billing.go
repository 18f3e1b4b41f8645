package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"newsletter/internal/middleware"
	"newsletter/internal/models"
	"newsletter/internal/service"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billing service.BillingServiceInterface
	auth    service.AuthServiceInterface
}

func NewBillingHandler(billing service.BillingServiceInterface, auth service.AuthServiceInterface) *BillingHandler {
	return &BillingHandler{billing: billing, auth: auth}
}

type CheckoutRequest struct {
	Type            models.SubscriptionType `json:"subscription_type" binding:"required"`
	ShippingAddress string                  `json:"shipping_address"`
}

// Checkout starts a hosted checkout and returns its URL.
func (h *BillingHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiBadRequest(c, err.Error())
		return
	}

	user, err := h.auth.GetUser(middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.billing.Checkout(c.Request.Context(), user, req.Type, req.ShippingAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Webhook receives provider events. Anything that passes signature
// verification is acknowledged with 200, including duplicates.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		apiBadRequest(c, ErrInvalidRequestBody)
		return
	}
	if len(payload) > maxWebhookBody {
		apiError(c, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	event, err := h.billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, service.ErrDuplicateEvent):
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
	case errors.Is(err, service.ErrInvalidSignature):
		slog.Warn("webhook signature rejected", "remote", c.ClientIP())
		apiBadRequest(c, "Invalid signature")
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"received": true, "type": event.Type})
	}
}
