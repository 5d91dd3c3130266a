package api

import (
	"net/http"

	"vocab-api/internal/response"
	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// PhonePeWebhook handles gateway callbacks. Duplicates are acknowledged with 200.
// POST /api/webhook/phonepe
func (h *Handler) PhonePeWebhook(c *gin.Context) {
	if !h.webhookAuth.Verify(c.GetHeader("Authorization")) {
		logging.Warnf("Rejected webhook with invalid authorization from %s", c.ClientIP())
		response.ErrorJSON(c, http.StatusUnauthorized, apperrors.CodeWebhookUnauthorized, "Unauthorized")
		return
	}

	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodeValidationFailed, "Empty request body")
		return
	}

	result, err := h.payments.HandleWebhook(c.Request.Context(), body)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	if result.AlreadyProcessed {
		logging.Infof("Webhook already processed - order: %s, event: %s", result.MerchantTransactionID, result.EventType)
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "Already processed", "data": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "processed": true, "data": result})
}
