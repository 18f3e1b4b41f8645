package handlers

import (
	"net/http"

	"newsletter/internal/service"

	"github.com/gin-gonic/gin"
)

type NewsletterHandler struct {
	newsletters service.NewsletterServiceInterface
}

func NewNewsletterHandler(newsletters service.NewsletterServiceInterface) *NewsletterHandler {
	return &NewsletterHandler{newsletters: newsletters}
}

type BroadcastRequest struct {
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// Broadcast mails an issue to every active subscriber.
func (h *NewsletterHandler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiBadRequest(c, ErrInvalidRequestBody)
		return
	}

	result, err := h.newsletters.Broadcast(req.Subject, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
