package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100

	// maxWebhookBody matches the payload cap Stripe documents for webhooks.
	maxWebhookBody = 65536
)

// Common error messages used across handlers
const (
	ErrInvalidID          = "Invalid ID"
	ErrNotFound           = "Not found"
	ErrInvalidRequestBody = "Invalid request body"
	ErrInternalServer     = "Internal server error"
	ErrPasswordRequired   = "Password required"
	ErrAdminOnly          = "Administrator access required"
)

// APIErrorResponse is the standard error format for all API endpoints.
type APIErrorResponse struct {
	Error string `json:"error"`
}

// apiError sends a standardized JSON error response.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, APIErrorResponse{Error: message})
}

func apiBadRequest(c *gin.Context, message string) {
	apiError(c, http.StatusBadRequest, message)
}

func apiNotFound(c *gin.Context, message string) {
	apiError(c, http.StatusNotFound, message)
}

func apiInternalError(c *gin.Context) {
	apiError(c, http.StatusInternalServerError, ErrInternalServer)
}

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// PaginatedResponse wraps list data with pagination metadata.
type PaginatedResponse struct {
	Data       any            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// parsePagination extracts and validates limit/offset from query params.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageLimit
	offset = 0

	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

func paginated(c *gin.Context, data any, limit, offset int, total int64) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       data,
		Pagination: PaginationMeta{Limit: limit, Offset: offset, Total: total},
	})
}
