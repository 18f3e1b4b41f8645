package handlers

import (
	"fmt"
	"net/http"
	"time"

	"newsletter/internal/service"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	export service.ExportServiceInterface
}

func NewExportHandler(export service.ExportServiceInterface) *ExportHandler {
	return &ExportHandler{export: export}
}

type EncryptedExportRequest struct {
	Password string `json:"password"`
}

// SubscribersCSV downloads every subscriber as CSV.
func (h *ExportHandler) SubscribersCSV(c *gin.Context) {
	data, err := h.export.SubscribersCSV()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=subscribers.csv")
	c.Data(http.StatusOK, "text/csv", data)
}

// Encrypted downloads the CSV sealed with the given password.
func (h *ExportHandler) Encrypted(c *gin.Context) {
	var req EncryptedExportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		apiBadRequest(c, ErrPasswordRequired)
		return
	}

	data, err := h.export.SealedSubscribersCSV(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("subscribers-%s.nlex", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/octet-stream", data)
}
