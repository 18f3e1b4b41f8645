package handlers

import (
	"net/http"
	"time"

	"newsletter/internal/middleware"
	"newsletter/internal/models"
	"newsletter/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	service service.SubscriptionServiceInterface
}

func NewSubscriptionHandler(service service.SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// CreateSubscriptionRequest is the DTO for granting a subscription without
// checkout. UserID defaults to the caller.
type CreateSubscriptionRequest struct {
	UserID           uint                      `json:"user_id"`
	Type             models.SubscriptionType   `json:"subscription_type" binding:"required"`
	Status           models.SubscriptionStatus `json:"subscription_status"`
	ShippingAddress  string                    `json:"shipping_address"`
	AnniversaryMonth int                       `json:"subscription_anniversary_month" binding:"omitempty,min=1,max=12"`
	AnniversaryDay   int                       `json:"subscription_anniversary_day" binding:"omitempty,min=1,max=31"`
	CreationDate     *time.Time                `json:"subscription_creation_date"`
}

// UpdateSubscriptionRequest is the DTO for partial updates.
// All fields are pointers so we can distinguish between "not provided" (nil) and "set to zero value".
type UpdateSubscriptionRequest struct {
	ShippingAddress  *string                    `json:"shipping_address"`
	Status           *models.SubscriptionStatus `json:"subscription_status"`
	AnniversaryMonth *int                       `json:"subscription_anniversary_month"`
	AnniversaryDay   *int                       `json:"subscription_anniversary_day"`
}

// List returns the caller's subscriptions, or every subscription for admins.
func (h *SubscriptionHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c)

	var (
		subs  []models.Subscription
		total int64
		err   error
	)
	if middleware.IsAdmin(c) && c.Query("mine") == "" {
		subs, total, err = h.service.ListAll(limit, offset)
	} else {
		subs, total, err = h.service.ListForUser(middleware.UserID(c), limit, offset)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	paginated(c, subs, limit, offset, total)
}

// Create grants a subscription directly. Customers buy through checkout.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	if !middleware.IsAdmin(c) {
		apiError(c, http.StatusForbidden, ErrAdminOnly)
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiBadRequest(c, err.Error())
		return
	}
	userID := req.UserID
	if userID == 0 {
		userID = middleware.UserID(c)
	}

	sub, err := h.service.Create(service.CreateSubscriptionInput{
		UserID:           userID,
		Type:             req.Type,
		Status:           req.Status,
		ShippingAddress:  req.ShippingAddress,
		AnniversaryMonth: req.AnniversaryMonth,
		AnniversaryDay:   req.AnniversaryDay,
		CreationDate:     req.CreationDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// load fetches the subscription named by :id if the caller may see it. Other
// users' subscriptions are reported as missing.
func (h *SubscriptionHandler) load(c *gin.Context) (*models.Subscription, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	sub, err := h.service.GetByID(id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !middleware.IsAdmin(c) && sub.UserID != middleware.UserID(c) {
		apiNotFound(c, service.ErrSubscriptionNotFound.Error())
		return nil, false
	}
	return sub, true
}

func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Update lets owners change the shipping address. Status and anniversary
// changes need an administrator.
func (h *SubscriptionHandler) Update(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiBadRequest(c, err.Error())
		return
	}
	if !middleware.IsAdmin(c) && (req.Status != nil || req.AnniversaryMonth != nil || req.AnniversaryDay != nil) {
		apiError(c, http.StatusForbidden, ErrAdminOnly)
		return
	}

	updated, err := h.service.Update(sub.ID, service.UpdateSubscriptionInput{
		ShippingAddress:  req.ShippingAddress,
		Status:           req.Status,
		AnniversaryMonth: req.AnniversaryMonth,
		AnniversaryDay:   req.AnniversaryDay,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}
	cancelled, err := h.service.Cancel(sub.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelled)
}

func (h *SubscriptionHandler) Delete(c *gin.Context) {
	if !middleware.IsAdmin(c) {
		apiError(c, http.StatusForbidden, ErrAdminOnly)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
