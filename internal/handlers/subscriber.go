package handlers

import (
	"errors"
	"net/http"

	"newsletter/internal/middleware"
	"newsletter/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriberHandler struct {
	subscribers service.SubscriberServiceInterface
}

func NewSubscriberHandler(subscribers service.SubscriberServiceInterface) *SubscriberHandler {
	return &SubscriberHandler{subscribers: subscribers}
}

type SubscribeRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Subscribe registers an address and sends the confirmation mail. Without an
// explicit language the negotiated request language is stored.
func (h *SubscriberHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiBadRequest(c, ErrInvalidRequestBody)
		return
	}
	lang := req.Language
	if lang == "" {
		lang = middleware.Lang(c)
	}

	_, err := h.subscribers.Subscribe(req.Email, req.Name, lang)
	if err != nil && !errors.Is(err, service.ErrAlreadySubscribed) {
		respondError(c, err)
		return
	}
	// Confirmed addresses get the same answer as new ones.
	c.JSON(http.StatusAccepted, gin.H{"message": "Check your inbox to confirm your subscription"})
}

// Verify is the target of the confirmation link.
func (h *SubscriberHandler) Verify(c *gin.Context) {
	sub, err := h.subscribers.Verify(c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription confirmed", "email": sub.Email})
}

// Unsubscribe is the target of the link in every newsletter footer.
func (h *SubscriberHandler) Unsubscribe(c *gin.Context) {
	sub, err := h.subscribers.Unsubscribe(c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "You have been unsubscribed", "email": sub.Email})
}

func (h *SubscriberHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c)
	subscribers, total, err := h.subscribers.List(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, subscribers, limit, offset, total)
}

func (h *SubscriberHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.subscribers.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
